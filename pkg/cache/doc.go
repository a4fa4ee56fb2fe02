// Package cache stores the VPP service configuration in Redis.
//
// VPP publishes its per-operation URLs at VPPServiceConfigSrv. Every client
// instance needs them before it can issue a request, so the discovered map is
// shared across processes through Redis:
//
//   - Entries expire according to the discovery response's Expires header
//     (or a configured default TTL)
//   - Keys are derived deterministically from the service config URL
//   - An entry is deleted when VPP answers with error 9617 (URL moved), so
//     the next client instance rediscovers the URLs
//   - Prometheus metrics track hits, misses and errors
//
// # Basic Usage
//
//	redisClient := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
//	manager := cache.NewManager(redisClient)
//
//	key := cache.ServiceConfigKey{ServiceURL: "https://vpp.itunes.apple.com/WebObjects/MZFinance.woa/wa/"}
//	entry, err := manager.Get(ctx, key)
//	if err == cache.ErrCacheMiss {
//		// discover, then:
//		entry = cache.NewEntry(urls, resp.Header, cache.DefaultTTL)
//		_ = manager.Set(ctx, key, entry)
//	}
//
// A client instance copies the cached map once at construction; later cache
// changes never alter the URLs of a running client.
package cache
