package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MissingFileGivesDefaults(t *testing.T) {
	s, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	require.NoError(t, err)
	assert.Equal(t, DefaultSettings(), s)
}

func TestLoad_KeepsDefaultsForMissingFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"handle": "jane",
		"cache_backend": "sqlite",
		"cache_ttl": {"short": "1m"},
		"timeout": "5s"
	}`), 0o600))

	s, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "jane", s.Handle)
	assert.Equal(t, "sqlite", s.CacheBackend)
	assert.Equal(t, Duration(time.Minute), s.CacheTTL["short"])
	assert.Equal(t, Duration(5*time.Second), s.Timeout)
	assert.Equal(t, "m3u", s.PlaylistFormat)
	assert.Equal(t, 4, s.ScanWorkers)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"bad json", `{"handle":`},
		{"unknown backend", `{"cache_backend": "memcached"}`},
		{"redis without url", `{"cache_backend": "redis"}`},
		{"unknown playlist", `{"playlist_format": "xspf"}`},
		{"unknown ttl class", `{"cache_ttl": {"forever": "1h"}}`},
		{"bad duration", `{"timeout": "soon"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "settings.json")
			require.NoError(t, os.WriteFile(path, []byte(tt.body), 0o600))
			_, err := Load(path)
			assert.Error(t, err)
		})
	}
}

func TestSave_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "settings.json")
	s := DefaultSettings()
	s.IdentityToken = "secret"
	s.CacheTTL = map[string]Duration{"meta": Duration(48 * time.Hour)}
	require.NoError(t, s.Save(path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, s, loaded)
}

func TestCredentialsChanged(t *testing.T) {
	base := DefaultSettings()
	base.Handle = "jane"
	base.IdentityToken = "tok"

	tests := []struct {
		name   string
		mutate func(*Settings)
		want   bool
	}{
		{"same", func(*Settings) {}, false},
		{"trailing slash", func(s *Settings) { s.BaseURL += "/" }, false},
		{"other settings", func(s *Settings) { s.SortByDate = true }, false},
		{"handle", func(s *Settings) { s.Handle = "john" }, true},
		{"token", func(s *Settings) { s.IdentityToken = "" }, true},
		{"key", func(s *Settings) { s.DeveloperKey = "k" }, true},
		{"base url", func(s *Settings) { s.BaseURL = "http://localhost" }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next := *base
			tt.mutate(&next)
			assert.Equal(t, tt.want, next.CredentialsChanged(base))
		})
	}
	assert.False(t, base.CredentialsChanged(nil))
}
