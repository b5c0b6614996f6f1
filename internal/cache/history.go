package cache

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/goccy/go-json"
)

// DefaultHistoryLimit bounds recent searches and recent plays.
const DefaultHistoryLimit = 50

// Entry is one History element.
type Entry[T any] struct {
	Key   string    `json:"key"`
	Value T         `json:"value"`
	At    time.Time `json:"at"`
}

// History is a bounded most-recently-used list persisted in a Cache under
// the Never class. Adding an existing key moves it to the front.
//
// Example:
//
//	searches := cache.NewHistory[string](ctx, c, cache.KeyRecentSearches, cache.DefaultHistoryLimit)
//	searches.Add(ctx, "ambient", "ambient")
//	for _, q := range searches.Values() {
//	    fmt.Println(q)
//	}
type History[T any] struct {
	mu      sync.Mutex
	cache   *Cache
	key     string
	limit   int
	entries []Entry[T]
	now     func() time.Time
	logger  *slog.Logger
}

// NewHistory loads the history stored under key. A stored value that does
// not decode is logged and replaced by an empty history.
func NewHistory[T any](ctx context.Context, c *Cache, key string, limit int) *History[T] {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	h := &History[T]{
		cache:  c,
		key:    key,
		limit:  limit,
		now:    time.Now,
		logger: c.logger,
	}
	h.load(ctx)
	return h
}

func (h *History[T]) load(ctx context.Context) {
	data, ok := h.cache.Get(ctx, h.key)
	if !ok {
		return
	}
	var entries []Entry[T]
	if err := json.Unmarshal(data, &entries); err != nil {
		h.logger.Warn("Discarding unreadable history", "key", h.key, "error", err)
		h.cache.Delete(ctx, h.key)
		return
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].At.After(entries[j].At)
	})
	if len(entries) > h.limit {
		entries = entries[:h.limit]
	}
	h.entries = entries
}

// Add records value under key as the most recent entry and persists the
// history. Writes are persisted in the order they are applied.
func (h *History[T]) Add(ctx context.Context, key string, value T) {
	h.mu.Lock()
	defer h.mu.Unlock()
	entries := make([]Entry[T], 0, len(h.entries)+1)
	entries = append(entries, Entry[T]{Key: key, Value: value, At: h.now()})
	for _, e := range h.entries {
		if e.Key != key {
			entries = append(entries, e)
		}
	}
	if len(entries) > h.limit {
		entries = entries[:h.limit]
	}
	h.entries = entries
	h.cache.SetJSON(ctx, h.key, entries, Never)
}

// Entries returns the entries, most recent first.
func (h *History[T]) Entries() []Entry[T] {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]Entry[T](nil), h.entries...)
}

// Values returns the stored values, most recent first.
func (h *History[T]) Values() []T {
	h.mu.Lock()
	defer h.mu.Unlock()
	values := make([]T, len(h.entries))
	for i, e := range h.entries {
		values[i] = e.Value
	}
	return values
}

// Len returns the number of entries.
func (h *History[T]) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.entries)
}

// Clear empties the history and its stored copy.
func (h *History[T]) Clear(ctx context.Context) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.entries = nil
	h.cache.Delete(ctx, h.key)
}
