package cache

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHistory_BoundedAndMostRecentFirst(t *testing.T) {
	ctx := context.Background()
	c := New(NewMemoryStore())
	clock := newClock()

	h := NewHistory[string](ctx, c, KeyRecentSearches, 3)
	h.now = clock.Now

	for i := 1; i <= 4; i++ {
		q := fmt.Sprintf("q%d", i)
		h.Add(ctx, q, q)
		clock.Advance(time.Second)
	}
	assert.Equal(t, []string{"q4", "q3", "q2"}, h.Values())

	h.Add(ctx, "q2", "q2")
	assert.Equal(t, []string{"q2", "q4", "q3"}, h.Values())
}

func TestHistory_Rehydrates(t *testing.T) {
	ctx := context.Background()
	c := New(NewMemoryStore())
	clock := newClock()

	h := NewHistory[string](ctx, c, KeyRecentSearches, DefaultHistoryLimit)
	h.now = clock.Now
	h.Add(ctx, "first", "first")
	clock.Advance(time.Minute)
	h.Add(ctx, "second", "second")

	reloaded := NewHistory[string](ctx, c, KeyRecentSearches, DefaultHistoryLimit)
	assert.Equal(t, []string{"second", "first"}, reloaded.Values())
}

func TestHistory_CorruptValueIsDiscarded(t *testing.T) {
	ctx := context.Background()
	c := New(NewMemoryStore())
	c.Set(ctx, KeyRecentPlays, []byte(`{"not":"a list"}`), Never)

	h := NewHistory[string](ctx, c, KeyRecentPlays, DefaultHistoryLimit)
	assert.Equal(t, 0, h.Len())

	_, ok := c.Get(ctx, KeyRecentPlays)
	assert.False(t, ok)

	h.Add(ctx, "x", "x")
	require.Equal(t, 1, h.Len())
}

func TestHistory_Clear(t *testing.T) {
	ctx := context.Background()
	c := New(NewMemoryStore())
	h := NewHistory[int](ctx, c, "numbers", 5)
	h.Add(ctx, "1", 1)
	h.Clear(ctx)

	assert.Equal(t, 0, h.Len())
	assert.Equal(t, 0, NewHistory[int](ctx, c, "numbers", 5).Len())
}

// gatedStore holds the first Set of a key until release is closed.
type gatedStore struct {
	*MemoryStore
	key     string
	once    sync.Once
	entered chan struct{}
	release chan struct{}
}

func (s *gatedStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if key == s.key {
		s.once.Do(func() {
			close(s.entered)
			<-s.release
		})
	}
	return s.MemoryStore.Set(ctx, key, value, ttl)
}

func TestHistory_ConcurrentAddsPersistInOrder(t *testing.T) {
	ctx := context.Background()
	store := &gatedStore{
		MemoryStore: NewMemoryStore(),
		key:         KeyRecentSearches,
		entered:     make(chan struct{}),
		release:     make(chan struct{}),
	}
	c := New(store)
	clock := newClock()
	h := NewHistory[string](ctx, c, KeyRecentSearches, DefaultHistoryLimit)
	h.now = clock.Now

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		h.Add(ctx, "first", "first")
	}()
	<-store.entered
	go func() {
		defer wg.Done()
		h.Add(ctx, "second", "second")
	}()
	time.Sleep(20 * time.Millisecond)
	close(store.release)
	wg.Wait()

	assert.Equal(t, []string{"second", "first"}, h.Values())
	reloaded := NewHistory[string](ctx, c, KeyRecentSearches, DefaultHistoryLimit)
	assert.Equal(t, h.Values(), reloaded.Values())
}
