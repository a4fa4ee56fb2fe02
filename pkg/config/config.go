// Package config loads the vpp-sync configuration.
//
// Configuration is read from a YAML file given by --config or the VPP_CONFIG
// environment variable. A handful of environment variables override file
// values so that secrets never have to live in the file:
//
//	VPP_STOKEN        session token
//	VPP_CLIENT_GUID   client GUID registered with the token
//	VPP_CLIENT_HOST   client hostname registered with the token
//	VPP_SERVICE_URL   base service URL
//	VPP_REDIS_ADDR    Redis address (enables the cache and cursor store)
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/Sternrassler/vpp-client/pkg/client"
	"github.com/Sternrassler/vpp-client/pkg/logging"
	"github.com/Sternrassler/vpp-client/pkg/pagination"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"gopkg.in/yaml.v3"
)

// EnvConfig names the environment variable holding the config file path.
const EnvConfig = "VPP_CONFIG"

// Environment overrides.
const (
	EnvSToken     = "VPP_STOKEN"
	EnvClientGUID = "VPP_CLIENT_GUID"
	EnvClientHost = "VPP_CLIENT_HOST"
	EnvServiceURL = "VPP_SERVICE_URL"
	EnvRedisAddr  = "VPP_REDIS_ADDR"
)

// ErrNoSToken is returned by Validate when neither sToken nor sToken_file is set.
var ErrNoSToken = errors.New("no sToken configured; set stoken, stoken_file or " + EnvSToken)

// Config is the complete vpp-sync configuration.
type Config struct {
	// ServiceURL is the base URL the service configuration is discovered from.
	ServiceURL string `yaml:"service_url"`

	// SToken is the session token. STokenFile points at a downloaded
	// .vpptoken file and is read when SToken is empty.
	SToken     string `yaml:"stoken"`
	STokenFile string `yaml:"stoken_file"`

	// ClientGUID and ClientHost identify this installation to the service.
	ClientGUID string `yaml:"client_guid"`
	ClientHost string `yaml:"client_host"`

	MaxConcurrency int           `yaml:"max_concurrency"`
	RequestTimeout time.Duration `yaml:"request_timeout"`

	Redis RedisConfig `yaml:"redis"`

	// ServiceConfigTTL applies when discovery responses carry no Expires header.
	ServiceConfigTTL time.Duration `yaml:"service_config_ttl"`

	Log logging.Config `yaml:"log"`

	// MetricsAddr enables the Prometheus endpoint when non-empty (e.g. ":9090").
	MetricsAddr string `yaml:"metrics_addr"`
}

// RedisConfig configures the optional Redis connection.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// Enabled reports whether a Redis address is configured.
func (r RedisConfig) Enabled() bool {
	return r.Addr != ""
}

// NewClient returns a go-redis client for r, or nil when Redis is disabled.
func (r RedisConfig) NewClient() *redis.Client {
	if !r.Enabled() {
		return nil
	}
	return redis.NewClient(&redis.Options{
		Addr:     r.Addr,
		Password: r.Password,
		DB:       r.DB,
	})
}

// Default returns the configuration used before the file and environment
// are applied.
func Default() *Config {
	hostname, _ := os.Hostname()

	return &Config{
		ServiceURL:       client.DefaultServiceURL,
		ClientHost:       hostname,
		MaxConcurrency:   pagination.DefaultMaxConcurrency,
		RequestTimeout:   30 * time.Second,
		ServiceConfigTTL: 24 * time.Hour,
		Log: logging.Config{
			Level: logging.LevelInfo,
		},
	}
}

// Load reads the configuration file at path (or VPP_CONFIG when path is
// empty) on top of Default, then applies environment overrides. With neither
// a path nor VPP_CONFIG only defaults and the environment are used.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = os.Getenv(EnvConfig)
	}
	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, fmt.Errorf("load config %s: %w", path, err)
		}
	}

	cfg.applyEnv()

	if cfg.SToken == "" && cfg.STokenFile != "" {
		data, err := os.ReadFile(cfg.STokenFile)
		if err != nil {
			return nil, fmt.Errorf("read stoken file: %w", err)
		}
		cfg.SToken = strings.TrimSpace(string(data))
	}

	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, c)
}

func (c *Config) applyEnv() {
	overrides := []struct {
		env    string
		target *string
	}{
		{EnvSToken, &c.SToken},
		{EnvClientGUID, &c.ClientGUID},
		{EnvClientHost, &c.ClientHost},
		{EnvServiceURL, &c.ServiceURL},
		{EnvRedisAddr, &c.Redis.Addr},
	}
	for _, o := range overrides {
		if v := os.Getenv(o.env); v != "" {
			*o.target = v
		}
	}
}

// Validate checks that the configuration can be used to build a client.
func (c *Config) Validate() error {
	if c.SToken == "" {
		return ErrNoSToken
	}
	if c.ClientGUID == "" {
		return fmt.Errorf("client_guid is required (generate one with --new-guid)")
	}
	if _, err := uuid.Parse(c.ClientGUID); err != nil {
		return fmt.Errorf("client_guid %q is not a UUID: %w", c.ClientGUID, err)
	}
	if c.ClientHost == "" {
		return fmt.Errorf("client_host is required")
	}
	u, err := url.Parse(c.ServiceURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("service_url %q is not an absolute URL", c.ServiceURL)
	}
	if c.MaxConcurrency < 1 || c.MaxConcurrency > pagination.DefaultMaxConcurrency {
		return fmt.Errorf("max_concurrency must be between 1 and %d (got %d)", pagination.DefaultMaxConcurrency, c.MaxConcurrency)
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("request_timeout must be positive (got %s)", c.RequestTimeout)
	}
	return nil
}

// ClientConfig converts c into a client configuration. redisClient may be nil.
func (c *Config) ClientConfig(redisClient *redis.Client) client.Config {
	cfg := client.DefaultConfig(c.SToken, c.ClientGUID, c.ClientHost)
	cfg.ServiceURL = c.ServiceURL
	cfg.MaxConcurrency = c.MaxConcurrency
	cfg.RequestTimeout = c.RequestTimeout
	cfg.ServiceConfigTTL = c.ServiceConfigTTL
	cfg.Redis = redisClient
	return cfg
}

// GenerateClientGUID returns a fresh client GUID for first-time setup.
func GenerateClientGUID() string {
	return strings.ToUpper(uuid.NewString())
}
