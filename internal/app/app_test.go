package app

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/handiism/bandcamp-catalog/internal/cache"
	"github.com/handiism/bandcamp-catalog/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSettings(t *testing.T, handle string) *config.Settings {
	t.Helper()
	s := config.DefaultSettings()
	s.Handle = handle
	s.CookieJarPath = filepath.Join(t.TempDir(), "cookies.json")
	return s
}

func TestNew_ClearsCacheOnAccountChange(t *testing.T) {
	ctx := context.Background()
	store := cache.NewMemoryStore()

	first, err := New(ctx, testSettings(t, "jane"), nil, WithStore(store))
	require.NoError(t, err)
	first.Cache.Set(ctx, "page", []byte("x"), cache.Long)

	same, err := New(ctx, testSettings(t, "jane"), nil, WithStore(store))
	require.NoError(t, err)
	_, ok := same.Cache.Get(ctx, "page")
	assert.True(t, ok)

	other, err := New(ctx, testSettings(t, "john"), nil, WithStore(store))
	require.NoError(t, err)
	_, ok = other.Cache.Get(ctx, "page")
	assert.False(t, ok)
	digest, ok := other.Cache.Get(ctx, cache.KeyAccount)
	require.True(t, ok)
	assert.Equal(t, accountDigest(other.Settings), string(digest))
}

func TestNew_UnknownBackend(t *testing.T) {
	s := testSettings(t, "jane")
	s.CacheBackend = "memcached"
	_, err := New(context.Background(), s, nil)
	assert.Error(t, err)
}

func TestNew_SQLiteBackend(t *testing.T) {
	ctx := context.Background()
	s := testSettings(t, "jane")
	s.CacheBackend = "sqlite"
	s.SQLitePath = filepath.Join(t.TempDir(), "nested", "cache.db")

	a, err := New(ctx, s, nil)
	require.NoError(t, err)
	a.Cache.Set(ctx, "k", []byte("v"), cache.Never)
	require.NoError(t, a.Close())

	again, err := New(ctx, s, nil)
	require.NoError(t, err)
	defer again.Close()
	v, ok := again.Cache.Get(ctx, "k")
	require.True(t, ok)
	assert.Equal(t, "v", string(v))
	assert.FileExists(t, s.CookieJarPath)
}

func TestReconfigure(t *testing.T) {
	ctx := context.Background()
	a, err := New(ctx, testSettings(t, "jane"), nil, WithStore(cache.NewMemoryStore()))
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "settings.json")

	a.Cache.Set(ctx, "page", []byte("x"), cache.Long)
	next := *a.Settings
	next.SortByDate = true
	require.NoError(t, a.Reconfigure(ctx, &next, path))
	_, ok := a.Cache.Get(ctx, "page")
	assert.True(t, ok)

	next.IdentityToken = "new"
	require.NoError(t, a.Reconfigure(ctx, &next, path))
	_, ok = a.Cache.Get(ctx, "page")
	assert.False(t, ok)

	saved, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "new", saved.IdentityToken)

	next.PlaylistFormat = "xspf"
	assert.Error(t, a.Reconfigure(ctx, &next, path))
}

func TestDownloads(t *testing.T) {
	a, err := New(context.Background(), testSettings(t, "jane"), nil, WithStore(cache.NewMemoryStore()))
	require.NoError(t, err)
	m, err := a.Downloads(nil)
	require.NoError(t, err)
	assert.Empty(t, m.Albums())
}
