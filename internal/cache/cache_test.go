package cache

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) Now() time.Time { return c.t }

func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newClock() *fakeClock {
	return &fakeClock{t: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func TestMemoryStore_Expiry(t *testing.T) {
	ctx := context.Background()
	clock := newClock()
	store := NewMemoryStore()
	store.now = clock.Now
	c := New(store)

	c.Set(ctx, "short", []byte("a"), Short)
	c.Set(ctx, "long", []byte("b"), Long)
	c.Set(ctx, "forever", []byte("c"), Never)

	clock.Advance(5*time.Minute - time.Second)
	_, ok := c.Get(ctx, "short")
	assert.True(t, ok, "entry readable before its TTL")

	clock.Advance(time.Second)
	_, ok = c.Get(ctx, "short")
	assert.False(t, ok, "entry must not be read at or past its TTL")

	clock.Advance(12 * time.Hour)
	_, ok = c.Get(ctx, "long")
	assert.False(t, ok)

	clock.Advance(365 * 24 * time.Hour)
	v, ok := c.Get(ctx, "forever")
	assert.True(t, ok)
	assert.Equal(t, []byte("c"), v)
}

func TestCache_JSON(t *testing.T) {
	ctx := context.Background()
	c := New(NewMemoryStore())

	type record struct {
		Name string `json:"name"`
	}
	c.SetJSON(ctx, "k", record{Name: "x"}, Meta)

	var got record
	require.True(t, c.GetJSON(ctx, "k", &got))
	assert.Equal(t, "x", got.Name)

	c.Set(ctx, "broken", []byte("{not json"), Meta)
	assert.False(t, c.GetJSON(ctx, "broken", &got))
	assert.False(t, c.GetJSON(ctx, "missing", &got))
}

func TestCache_TTLOverride(t *testing.T) {
	c := New(NewMemoryStore(), WithTTL(Long, time.Hour))
	assert.Equal(t, time.Hour, c.TTL(Long))
	assert.Equal(t, 5*time.Minute, c.TTL(Short))
	assert.Equal(t, time.Duration(0), c.TTL(Never))
}

type failingStore struct{ MemoryStore }

var errBackend = errors.New("backend down")

func (*failingStore) Get(context.Context, string) ([]byte, bool, error) {
	return nil, false, errBackend
}

func (*failingStore) Set(context.Context, string, []byte, time.Duration) error {
	return errBackend
}

func TestCache_SwallowsBackendErrors(t *testing.T) {
	ctx := context.Background()
	c := New(&failingStore{})

	assert.NotPanics(t, func() {
		c.Set(ctx, "k", []byte("v"), Long)
	})
	_, ok := c.Get(ctx, "k")
	assert.False(t, ok)
}

func TestCache_Clear(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	c := New(store)
	c.Set(ctx, "a", []byte("1"), Long)
	c.Set(ctx, "b", []byte("2"), Never)

	c.Clear(ctx)
	assert.Equal(t, 0, store.Len())
}

func TestRedisStore(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := NewRedisStore(rdb, "test:")
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "a", []byte("1"), time.Minute))
	require.NoError(t, store.Set(ctx, "b", []byte("2"), 0))
	require.NoError(t, rdb.Set(ctx, "other", "keep", 0).Err())

	v, ok, err := store.Get(ctx, "a")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte("1"), v)

	mr.FastForward(2 * time.Minute)
	_, ok, err = store.Get(ctx, "a")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.Clear(ctx))
	_, ok, _ = store.Get(ctx, "b")
	assert.False(t, ok)
	assert.True(t, mr.Exists("other"), "clear must only remove prefixed keys")
}

func TestSQLiteStore(t *testing.T) {
	ctx := context.Background()
	store, err := OpenSQLite(filepath.Join(t.TempDir(), "cache.db"))
	require.NoError(t, err)
	defer store.Close()

	clock := newClock()
	store.now = clock.Now

	require.NoError(t, store.Set(ctx, "a", []byte("1"), time.Minute))
	require.NoError(t, store.Set(ctx, "a", []byte("2"), time.Minute))
	require.NoError(t, store.Set(ctx, "b", []byte("3"), 0))

	v, ok, err := store.Get(ctx, "a")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte("2"), v)

	clock.Advance(time.Minute)
	_, ok, err = store.Get(ctx, "a")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.Set(ctx, "c", []byte("4"), time.Second))
	clock.Advance(time.Hour)
	n, err := store.Prune(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	_, ok, _ = store.Get(ctx, "b")
	assert.True(t, ok)
}

func TestOpen(t *testing.T) {
	store, err := Open("memory", "")
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, store)

	_, err = Open("carrier-pigeon", "")
	assert.Error(t, err)
}

func TestStores_ExpiredReadKeepsNewerWrite(t *testing.T) {
	sqliteStore, err := OpenSQLite(filepath.Join(t.TempDir(), "cache.db"))
	require.NoError(t, err)
	defer sqliteStore.Close()
	memoryStore := NewMemoryStore()

	tests := []struct {
		name   string
		store  Store
		setNow func(func() time.Time)
	}{
		{"memory", memoryStore, func(now func() time.Time) { memoryStore.now = now }},
		{"sqlite", sqliteStore, func(now func() time.Time) { sqliteStore.now = now }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			clock := newClock()
			tt.setNow(clock.Now)
			require.NoError(t, tt.store.Set(ctx, "k", []byte("stale"), time.Minute))
			clock.Advance(time.Hour)

			// The expiry check reads the clock between loading the entry and
			// deleting it; a writer slips in at that point.
			wrote := false
			tt.setNow(func() time.Time {
				if !wrote {
					wrote = true
					require.NoError(t, tt.store.Set(ctx, "k", []byte("fresh"), 0))
				}
				return clock.Now()
			})

			_, ok, err := tt.store.Get(ctx, "k")
			require.NoError(t, err)
			assert.False(t, ok)
			require.True(t, wrote)

			v, ok, err := tt.store.Get(ctx, "k")
			require.NoError(t, err)
			assert.True(t, ok)
			assert.Equal(t, []byte("fresh"), v)
		})
	}
}
