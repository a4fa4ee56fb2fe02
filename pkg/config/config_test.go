package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/Sternrassler/vpp-client/pkg/client"
	"github.com/Sternrassler/vpp-client/pkg/logging"
	"github.com/google/uuid"
)

const testGUID = "5F0C3C1E-8D2A-4C39-9F4E-2B7D1F6A9C10"

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, env := range []string{EnvConfig, EnvSToken, EnvClientGUID, EnvClientHost, EnvServiceURL, EnvRedisAddr} {
		t.Setenv(env, "")
	}
}

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.ServiceURL != client.DefaultServiceURL {
		t.Errorf("ServiceURL = %q, want %q", cfg.ServiceURL, client.DefaultServiceURL)
	}
	if cfg.MaxConcurrency != 5 {
		t.Errorf("MaxConcurrency = %d, want 5", cfg.MaxConcurrency)
	}
	if cfg.RequestTimeout != 30*time.Second {
		t.Errorf("RequestTimeout = %v, want 30s", cfg.RequestTimeout)
	}
	if cfg.Redis.Enabled() {
		t.Error("Redis should be disabled by default")
	}
}

func TestLoad_File(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, "vpp.yaml", `
service_url: https://vpp.example.com/wa/
stoken: file-token
client_guid: `+testGUID+`
client_host: mdm.example.com
max_concurrency: 3
request_timeout: 10s
redis:
  addr: localhost:6379
  db: 2
log:
  level: debug
  pretty: true
metrics_addr: ":9090"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.ServiceURL != "https://vpp.example.com/wa/" {
		t.Errorf("ServiceURL = %q", cfg.ServiceURL)
	}
	if cfg.SToken != "file-token" {
		t.Errorf("SToken = %q, want file-token", cfg.SToken)
	}
	if cfg.MaxConcurrency != 3 {
		t.Errorf("MaxConcurrency = %d, want 3", cfg.MaxConcurrency)
	}
	if cfg.RequestTimeout != 10*time.Second {
		t.Errorf("RequestTimeout = %v, want 10s", cfg.RequestTimeout)
	}
	if cfg.Redis.Addr != "localhost:6379" || cfg.Redis.DB != 2 {
		t.Errorf("Redis = %+v", cfg.Redis)
	}
	if cfg.Log.Level != logging.LevelDebug || !cfg.Log.Pretty {
		t.Errorf("Log = %+v", cfg.Log)
	}
	if cfg.MetricsAddr != ":9090" {
		t.Errorf("MetricsAddr = %q", cfg.MetricsAddr)
	}
	// Unset keys keep their defaults.
	if cfg.ServiceConfigTTL != 24*time.Hour {
		t.Errorf("ServiceConfigTTL = %v, want 24h", cfg.ServiceConfigTTL)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate failed: %v", err)
	}
}

func TestLoad_EnvConfigPath(t *testing.T) {
	clearEnv(t)
	t.Setenv(EnvConfig, writeFile(t, "vpp.yaml", "client_host: from-env-path\n"))

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.ClientHost != "from-env-path" {
		t.Errorf("ClientHost = %q, want from-env-path", cfg.ClientHost)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, "vpp.yaml", "stoken: file-token\nclient_host: file-host\n")

	t.Setenv(EnvSToken, "env-token")
	t.Setenv(EnvClientGUID, testGUID)
	t.Setenv(EnvClientHost, "env-host")
	t.Setenv(EnvServiceURL, "http://127.0.0.1:8080/")
	t.Setenv(EnvRedisAddr, "redis:6379")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	tests := []struct {
		name, got, want string
	}{
		{"stoken", cfg.SToken, "env-token"},
		{"client guid", cfg.ClientGUID, testGUID},
		{"client host", cfg.ClientHost, "env-host"},
		{"service url", cfg.ServiceURL, "http://127.0.0.1:8080/"},
		{"redis addr", cfg.Redis.Addr, "redis:6379"},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("%s = %q, want %q", tt.name, tt.got, tt.want)
		}
	}
}

func TestLoad_STokenFile(t *testing.T) {
	clearEnv(t)
	tokenPath := writeFile(t, "org.vpptoken", "eyJ0b2tlbiI6ImFiYyJ9\n")
	path := writeFile(t, "vpp.yaml", "stoken_file: "+tokenPath+"\n")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.SToken != "eyJ0b2tlbiI6ImFiYyJ9" {
		t.Errorf("SToken = %q, want trimmed file contents", cfg.SToken)
	}
}

func TestLoad_Errors(t *testing.T) {
	clearEnv(t)

	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("Expected error for missing file")
	}
	if _, err := Load(writeFile(t, "bad.yaml", "max_concurrency: [1, 2\n")); err == nil {
		t.Error("Expected error for invalid YAML")
	}
	if _, err := Load(writeFile(t, "vpp.yaml", "stoken_file: /nonexistent/token\n")); err == nil {
		t.Error("Expected error for missing stoken file")
	}
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		cfg := Default()
		cfg.SToken = "token"
		cfg.ClientGUID = testGUID
		cfg.ClientHost = "mdm.example.com"
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"missing stoken", func(c *Config) { c.SToken = "" }, "no sToken"},
		{"missing guid", func(c *Config) { c.ClientGUID = "" }, "client_guid is required"},
		{"guid not a uuid", func(c *Config) { c.ClientGUID = "not-a-guid" }, "not a UUID"},
		{"missing host", func(c *Config) { c.ClientHost = "" }, "client_host"},
		{"relative service url", func(c *Config) { c.ServiceURL = "wa/" }, "service_url"},
		{"zero concurrency", func(c *Config) { c.MaxConcurrency = 0 }, "max_concurrency"},
		{"concurrency above server limit", func(c *Config) { c.MaxConcurrency = 50 }, "between 1 and 5"},
		{"concurrency at server limit", func(c *Config) { c.MaxConcurrency = 5 }, ""},
		{"zero timeout", func(c *Config) { c.RequestTimeout = 0 }, "request_timeout"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()

			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() = %v, want nil", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() = %v, want error containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestClientConfig(t *testing.T) {
	cfg := Default()
	cfg.SToken = "token"
	cfg.ClientGUID = testGUID
	cfg.ClientHost = "mdm.example.com"
	cfg.MaxConcurrency = 2

	cc := cfg.ClientConfig(nil)
	if cc.SToken != "token" || cc.ClientGUID != testGUID || cc.ClientHost != "mdm.example.com" {
		t.Errorf("identity not carried over: %+v", cc)
	}
	if cc.MaxConcurrency != 2 {
		t.Errorf("MaxConcurrency = %d, want 2", cc.MaxConcurrency)
	}
	if cc.Redis != nil {
		t.Error("Redis should be nil when disabled")
	}
	if cfg.Redis.NewClient() != nil {
		t.Error("NewClient should return nil when Redis is disabled")
	}
}

func TestGenerateClientGUID(t *testing.T) {
	a, b := GenerateClientGUID(), GenerateClientGUID()
	if a == b {
		t.Error("Expected distinct GUIDs")
	}
	if _, err := uuid.Parse(a); err != nil {
		t.Errorf("Generated GUID %q does not parse: %v", a, err)
	}
	if a != strings.ToUpper(a) {
		t.Errorf("Generated GUID %q should be upper case", a)
	}
}
