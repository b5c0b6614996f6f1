// Package cache stores upstream responses and derived records under
// time-to-live classes.
//
// A Cache wraps a Store backend and never returns errors: a failed read is a
// miss and a failed write is logged and dropped, so callers always fall back
// to the network.
//
// # Backends
//
//   - MemoryStore: process-local map, the default
//   - RedisStore: shared between processes (go-redis)
//   - SQLiteStore: on-disk, survives restarts (go-sqlite3)
//
// # TTL classes
//
//	c := cache.New(cache.NewMemoryStore())
//	c.SetJSON(ctx, url, payload, cache.Long)     // 12 hours
//	c.SetJSON(ctx, "track_42", track, cache.Meta) // 30 days
//	c.SetJSON(ctx, cache.KeyRecentSearches, h, cache.Never)
//
// # History
//
// History keeps a bounded, most-recent-first list persisted under the
// Never class, used for recent searches and recent plays.
package cache
