package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"regexp"

	"github.com/Sternrassler/vpp-client/pkg/cache"
	"github.com/Sternrassler/vpp-client/pkg/vpp"
)

// serviceURLKey matches service configuration keys such as "getUsersSrvUrl".
var serviceURLKey = regexp.MustCompile(`^(.+)SrvUrl$`)

// loadServiceConfig returns the operation→URL map, from the shared cache
// when possible, otherwise by discovery.
func (c *Client) loadServiceConfig(ctx context.Context) (map[vpp.Operation]string, error) {
	if c.cache != nil {
		entry, err := c.cache.Get(ctx, c.cacheKey)
		switch {
		case err == nil:
			c.logger.Debug().
				Int("services", len(entry.URLs)).
				Dur("ttl", entry.TTL()).
				Msg("Service configuration loaded from cache")
			return toOperations(entry.URLs), nil
		case err != cache.ErrCacheMiss:
			c.logger.Warn().Err(err).Msg("Service configuration cache get error")
		}
	}

	urls, headers, err := c.discover(ctx)
	if err != nil {
		return nil, err
	}

	if c.cache != nil {
		entry := cache.NewEntry(urls, headers, c.config.ServiceConfigTTL)
		if err := c.cache.Set(ctx, c.cacheKey, entry); err != nil {
			c.logger.Warn().Err(err).Msg("Failed to cache service configuration")
		}
	}

	return toOperations(urls), nil
}

// discover fetches VPPServiceConfigSrv and extracts every "<name>SrvUrl" entry.
func (c *Client) discover(ctx context.Context) (map[string]string, http.Header, error) {
	op := vpp.OpServiceConfig

	base, err := url.Parse(c.config.ServiceURL)
	if err != nil {
		return nil, nil, &vpp.ProtocolError{Operation: op, Index: vpp.NoIndex, Reason: "invalid service url", Err: err}
	}
	target := base.ResolveReference(&url.URL{Path: string(op)})

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.String(), nil)
	if err != nil {
		return nil, nil, &vpp.TransportError{Operation: op, Index: vpp.NoIndex, Err: fmt.Errorf("create request: %w", err)}
	}

	resp, headers, err := c.do(req, op)
	if err != nil {
		return nil, nil, err
	}
	if resp.HTTPStatus < 200 || resp.HTTPStatus >= 300 {
		return nil, nil, vpp.Validate(op, vpp.NoIndex, resp)
	}
	// The discovery document carries no status unless something went wrong.
	if resp.Status != nil && *resp.Status != vpp.StatusSuccess {
		return nil, nil, vpp.Validate(op, vpp.NoIndex, resp)
	}

	urls := make(map[string]string)
	for key, raw := range resp.Fields {
		m := serviceURLKey.FindStringSubmatch(key)
		if m == nil {
			continue
		}
		var u string
		if err := json.Unmarshal(raw, &u); err != nil || u == "" {
			continue
		}
		urls[m[1]] = u
	}

	if len(urls) == 0 {
		return nil, nil, &vpp.ProtocolError{Operation: op, Index: vpp.NoIndex, Reason: "service configuration lists no service URLs"}
	}

	c.logger.Info().
		Int("services", len(urls)).
		Str("service_url", c.config.ServiceURL).
		Msg("Discovered VPP service configuration")

	return urls, headers, nil
}

func toOperations(urls map[string]string) map[vpp.Operation]string {
	out := make(map[vpp.Operation]string, len(urls))
	for name, u := range urls {
		out[vpp.Operation(name)] = u
	}
	return out
}
