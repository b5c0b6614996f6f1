package cache

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/goccy/go-json"
)

// Class is a time-to-live class.
type Class int

const (
	// Short is for user-scoped data that changes often.
	Short Class = iota
	// Long is the default for upstream responses.
	Long
	// Meta is for derived records such as normalized tracks and ids.
	Meta
	// Never entries do not expire.
	Never
)

func (c Class) String() string {
	switch c {
	case Short:
		return "short"
	case Long:
		return "long"
	case Meta:
		return "meta"
	case Never:
		return "never"
	}
	return fmt.Sprintf("class(%d)", int(c))
}

// DefaultTTLs are the durations of each class. A zero duration never expires.
var DefaultTTLs = map[Class]time.Duration{
	Short: 5 * time.Minute,
	Long:  12 * time.Hour,
	Meta:  30 * 24 * time.Hour,
	Never: 0,
}

// Store is a byte-oriented key/value backend with per-entry expiry.
//
// A ttl of zero stores the entry without expiry. Get must never return an
// entry past its expiry.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Clear(ctx context.Context) error
	Close() error
}

// Cache adds TTL classes, JSON encoding and error swallowing on top of a
// Store.
type Cache struct {
	store  Store
	ttls   map[Class]time.Duration
	logger *slog.Logger
}

// Option configures a Cache.
type Option func(*Cache)

// WithTTL overrides the duration of one class.
func WithTTL(class Class, ttl time.Duration) Option {
	return func(c *Cache) {
		c.ttls[class] = ttl
	}
}

// WithLogger sets the logger used for swallowed errors.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Cache) {
		c.logger = logger
	}
}

// New creates a Cache on top of store.
func New(store Store, opts ...Option) *Cache {
	c := &Cache{
		store:  store,
		ttls:   make(map[Class]time.Duration, len(DefaultTTLs)),
		logger: slog.Default(),
	}
	for class, ttl := range DefaultTTLs {
		c.ttls[class] = ttl
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// TTL returns the duration of class.
func (c *Cache) TTL(class Class) time.Duration {
	if class == Never {
		return 0
	}
	if ttl, ok := c.ttls[class]; ok {
		return ttl
	}
	return c.ttls[Long]
}

// Get returns the raw value stored under key.
func (c *Cache) Get(ctx context.Context, key string) ([]byte, bool) {
	value, ok, err := c.store.Get(ctx, key)
	if err != nil {
		c.logger.Warn("Cache read failed", "key", key, "error", err)
		return nil, false
	}
	return value, ok
}

// Set stores value under key for the duration of class.
func (c *Cache) Set(ctx context.Context, key string, value []byte, class Class) {
	if err := c.store.Set(ctx, key, value, c.TTL(class)); err != nil {
		c.logger.Warn("Cache write failed", "key", key, "class", class, "error", err)
	}
}

// GetJSON decodes the value stored under key into v. A value that does not
// decode is treated as a miss.
func (c *Cache) GetJSON(ctx context.Context, key string, v any) bool {
	data, ok := c.Get(ctx, key)
	if !ok {
		return false
	}
	if err := json.Unmarshal(data, v); err != nil {
		c.logger.Debug("Ignoring undecodable cache entry", "key", key, "error", err)
		return false
	}
	return true
}

// SetJSON encodes v and stores it under key.
func (c *Cache) SetJSON(ctx context.Context, key string, v any, class Class) {
	data, err := json.Marshal(v)
	if err != nil {
		c.logger.Warn("Cache encode failed", "key", key, "error", err)
		return
	}
	c.Set(ctx, key, data, class)
}

// Delete removes key.
func (c *Cache) Delete(ctx context.Context, key string) {
	if err := c.store.Delete(ctx, key); err != nil {
		c.logger.Warn("Cache delete failed", "key", key, "error", err)
	}
}

// Clear removes every entry.
func (c *Cache) Clear(ctx context.Context) {
	if err := c.store.Clear(ctx); err != nil {
		c.logger.Warn("Cache clear failed", "error", err)
		return
	}
	c.logger.Info("Cache cleared")
}

// Close releases the backend.
func (c *Cache) Close() error {
	return c.store.Close()
}

// Open creates the Store named by backend: "memory", "redis" or "sqlite".
// dsn is the redis URL or the sqlite file path; it is ignored for memory.
func Open(backend, dsn string) (Store, error) {
	switch strings.ToLower(backend) {
	case "", "memory":
		return NewMemoryStore(), nil
	case "redis":
		return OpenRedis(dsn)
	case "sqlite":
		return OpenSQLite(dsn)
	}
	return nil, fmt.Errorf("unknown cache backend %q", backend)
}
