package http

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type RoundTripFunc func(req *http.Request) (*http.Response, error)

func (f RoundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func TestClient_StatusError(t *testing.T) {
	client := NewClient(WithTransport(RoundTripFunc(func(req *http.Request) (*http.Response, error) {
		return &http.Response{
			StatusCode: http.StatusBadRequest,
			Status:     "400 Bad Request",
			Body:       io.NopCloser(strings.NewReader(`{"error":"bad"}`)),
			Header:     make(http.Header),
		}, nil
	})))

	_, err := client.Get(context.Background(), "https://bandcamp.com/x")
	require.Error(t, err)

	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, 400, se.Code)
	assert.True(t, se.Unauthorized())
	assert.False(t, se.NotFound())
	assert.Equal(t, "HTTP 400: 400 Bad Request", se.Error())
}

func TestClient_PostJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "identity=abc", r.Header.Get("Cookie"))
		assert.NotEmpty(t, r.Header.Get("User-Agent"))
		body, _ := io.ReadAll(r.Body)
		assert.JSONEq(t, `{"fan_id":7}`, string(body))
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	header := http.Header{}
	header.Set("Cookie", "identity=abc")
	resp, err := NewClient().PostJSON(context.Background(), srv.URL, map[string]int{"fan_id": 7}, header)
	require.NoError(t, err)
	assert.True(t, resp.IsJSON())
	assert.False(t, resp.IsHTML())
	assert.JSONEq(t, `{"ok":true}`, string(resp.Body))
}

func TestClient_PostForm(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "12", r.PostForm.Get("fan_id"))
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte("<html></html>"))
	}))
	defer srv.Close()

	resp, err := NewClient().PostForm(context.Background(), srv.URL, url.Values{"fan_id": {"12"}}, nil)
	require.NoError(t, err)
	assert.True(t, resp.IsHTML())
}

func TestClient_RateLimit(t *testing.T) {
	var calls int
	client := NewClient(
		WithRateLimit(1, 1),
		WithTransport(RoundTripFunc(func(req *http.Request) (*http.Response, error) {
			calls++
			return &http.Response{StatusCode: 200, Body: io.NopCloser(strings.NewReader("ok")), Header: make(http.Header)}, nil
		})),
	)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	_, err := client.Get(ctx, "https://bandcamp.com/a")
	require.NoError(t, err)
	_, err = client.Get(ctx, "https://bandcamp.com/b")
	assert.Error(t, err, "second request must wait past the deadline")
	assert.Equal(t, 1, calls)
}

func TestFileJar_Persists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cookies.json")
	u, _ := url.Parse("https://bandcamp.com/")

	jar, err := NewFileJar(path)
	require.NoError(t, err)
	jar.SetCookies(u, []*http.Cookie{{Name: "identity", Value: "tok", Expires: time.Now().Add(time.Hour)}})

	reloaded, err := NewFileJar(path)
	require.NoError(t, err)
	cookies := reloaded.Cookies(u)
	require.Len(t, cookies, 1)
	assert.Equal(t, "identity", cookies[0].Name)
	assert.Equal(t, "tok", cookies[0].Value)
}

func TestFileJar_MissingFile(t *testing.T) {
	jar, err := NewFileJar(filepath.Join(t.TempDir(), "none.json"))
	require.NoError(t, err)
	u, _ := url.Parse("https://bandcamp.com/")
	assert.Empty(t, jar.Cookies(u))
}

func TestFileJar_ConcurrentSetsAllPersisted(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cookies.json")
	u, _ := url.Parse("https://bandcamp.com/")

	jar, err := NewFileJar(path)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			jar.SetCookies(u, []*http.Cookie{{
				Name:    fmt.Sprintf("c%d", i),
				Value:   "v",
				Expires: time.Now().Add(time.Hour),
			}})
		}()
	}
	wg.Wait()

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	reloaded, err := NewFileJar(path)
	require.NoError(t, err)
	assert.Len(t, reloaded.Cookies(u), 16)
}

func TestFileJar_SaveFailureLogged(t *testing.T) {
	parent := filepath.Join(t.TempDir(), "state")

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	jar, err := NewFileJar(filepath.Join(parent, "cookies.json"), WithJarLogger(logger))
	require.NoError(t, err)
	// a regular file where the directory should be
	require.NoError(t, os.WriteFile(parent, []byte("x"), 0o600))

	u, _ := url.Parse("https://bandcamp.com/")
	jar.SetCookies(u, []*http.Cookie{{Name: "identity", Value: "tok", Expires: time.Now().Add(time.Hour)}})

	assert.Len(t, jar.Cookies(u), 1, "in-memory cookies survive a failed save")
	assert.Contains(t, buf.String(), "Failed to save cookie jar")
	assert.Contains(t, buf.String(), "level=WARN")
}
