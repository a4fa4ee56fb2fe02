package cache

import (
	"net/url"
	"strings"
)

// KeyPrefix namespaces every service configuration key in Redis.
const KeyPrefix = "vpp:service_config"

// ServiceConfigKey identifies the cached service configuration of one VPP
// deployment.
type ServiceConfigKey struct {
	// ServiceURL is the base URL the configuration was discovered from.
	ServiceURL string
}

// String generates a deterministic cache key string.
// Format: vpp:service_config:host/path
//
// Example:
//
//	vpp:service_config:vpp.itunes.apple.com/WebObjects/MZFinance.woa/wa
func (k ServiceConfigKey) String() string {
	raw := strings.TrimSpace(k.ServiceURL)

	if u, err := url.Parse(raw); err == nil && u.Host != "" {
		raw = strings.ToLower(u.Host) + "/" + strings.Trim(u.Path, "/")
	}

	raw = strings.Trim(raw, "/")
	if raw == "" {
		return KeyPrefix
	}
	return KeyPrefix + ":" + raw
}
