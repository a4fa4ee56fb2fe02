package cache

import (
	"net/http"
	"time"
)

const (
	// DefaultTTL is the fallback TTL when the discovery response has no
	// usable Expires header.
	DefaultTTL = 24 * time.Hour
)

// NewEntry builds an entry for a freshly discovered URL map.
// The expiry comes from the response's Expires header, or defaultTTL.
func NewEntry(urls map[string]string, headers http.Header, defaultTTL time.Duration) *Entry {
	now := time.Now()
	entry := &Entry{
		URLs:     make(map[string]string, len(urls)),
		CachedAt: now,
		Expires:  parseExpires(headers, now, defaultTTL),
	}
	for k, v := range urls {
		entry.URLs[k] = v
	}
	return entry
}

// parseExpires parses the Expires header.
// Returns now + defaultTTL if the header is missing, invalid or in the past.
func parseExpires(headers http.Header, now time.Time, defaultTTL time.Duration) time.Time {
	if defaultTTL <= 0 {
		defaultTTL = DefaultTTL
	}

	expiresStr := headers.Get("Expires")
	if expiresStr == "" {
		return now.Add(defaultTTL)
	}

	expires, err := http.ParseTime(expiresStr)
	if err != nil || !expires.After(now) {
		return now.Add(defaultTTL)
	}

	return expires
}
