package bandcamp

import (
	"context"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"sync"
	"testing"

	"github.com/handiism/bandcamp-catalog/internal/cache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFingerprint_OrderIndependent(t *testing.T) {
	a := Fingerprint([]int64{3, 1, 2})
	b := Fingerprint([]int64{1, 2, 3})

	assert.Equal(t, a, b)
	assert.Len(t, a, 64)
	assert.NotEqual(t, a, Fingerprint([]int64{1, 2}))
	assert.NotEqual(t, Fingerprint([]int64{12, 3}), Fingerprint([]int64{1, 23}))
}

func TestFingerprint_DoesNotReorderInput(t *testing.T) {
	ids := []int64{3, 1, 2}
	Fingerprint(ids)
	assert.Equal(t, []int64{3, 1, 2}, ids)
}

func summaryHandler(ids ...string) http.HandlerFunc {
	lookup := ""
	for i, id := range ids {
		if i > 0 {
			lookup += ","
		}
		lookup += `"a` + id + `": {"item_type": "a", "item_id": ` + id + `}`
	}
	return serveJSON(`{"fan_id": 555, "collection_summary": {"username": "jane", "tralbum_lookup": {` + lookup + `}}}`)
}

func TestSync_NeedsRescan(t *testing.T) {
	var mu sync.Mutex
	current := summaryHandler("1", "2", "3")
	serve := func(h http.HandlerFunc) {
		mu.Lock()
		defer mu.Unlock()
		current = h
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/api/fan/2/collection_summary", func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		h := current
		mu.Unlock()
		h(w, r)
	})
	env := newTestEnv(t, mux)
	s := NewSync(env.api, env.ex, env.cache, nil)
	ctx := context.Background()

	rescan, sum, err := s.NeedsRescan(ctx)
	require.NoError(t, err)
	assert.True(t, rescan)
	assert.Equal(t, Fingerprint([]int64{1, 2, 3}), sum)

	s.Commit(ctx, sum)
	v, ok := env.cache.Get(ctx, cache.KeyLibraryFingerprint)
	require.True(t, ok)
	assert.Equal(t, sum, string(v))

	rescan, _, err = s.NeedsRescan(ctx)
	require.NoError(t, err)
	assert.False(t, rescan)

	serve(summaryHandler("3", "2", "1"))
	rescan, _, err = s.NeedsRescan(ctx)
	require.NoError(t, err)
	assert.False(t, rescan)

	serve(summaryHandler("1", "2", "3", "4"))
	rescan, _, err = s.NeedsRescan(ctx)
	require.NoError(t, err)
	assert.True(t, rescan)
}

func TestSync_Scan(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/fancollection/1/collection_items", func(w http.ResponseWriter, r *http.Request) {
		serveJSON(`{"items": [
			{"item_type": "album", "album_id": 100, "album_title": "Test Album", "band_name": "Test Artist",
			 "item_url": "` + "http://" + r.Host + `/album/test", "added": "02 Feb 2024 10:00:00 GMT"},
			{"item_type": "album", "album_id": 200, "album_title": "Gone", "item_url": "` + "http://" + r.Host + `/album/gone"}
		], "more_available": false}`)(w, r)
	})
	mux.HandleFunc("/album/test", serveHTML(albumPage))
	mux.HandleFunc("/album/gone", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})
	env := newTestEnv(t, mux)
	s := NewSync(env.api, env.ex, env.cache, nil)
	s.SetWorkers(2)

	albums, err := s.Scan(context.Background(), 555)
	require.NoError(t, err)

	require.Len(t, albums, 1)
	assert.Equal(t, "Test Album", albums[0].Title)
	assert.Len(t, albums[0].Tracks, 2)
	assert.Equal(t, 2024, albums[0].AddedAt.Year())
}

func TestSync_ScanCancelled(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/fancollection/1/collection_items", serveJSON(`{"items": []}`))
	env := newTestEnv(t, mux)
	s := NewSync(env.api, env.ex, env.cache, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := s.Scan(ctx, 555)
	assert.Error(t, err)
}

func TestIdentityFromJar(t *testing.T) {
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	u, _ := url.Parse("https://bandcamp.com")
	jar.SetCookies(u, []*http.Cookie{
		{Name: "session", Value: "s"},
		{Name: "identity", Value: "secret"},
	})

	assert.Equal(t, "secret", IdentityFromJar(jar, "https://bandcamp.com"))
	assert.Equal(t, "", IdentityFromJar(jar, "https://example.com"))
	assert.Equal(t, "", IdentityFromJar(nil, "https://bandcamp.com"))
}

func TestIdentityCookie(t *testing.T) {
	assert.Equal(t, "identity=abc", IdentityCookie("abc"))
}
