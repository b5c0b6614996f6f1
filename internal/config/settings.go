package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/goccy/go-json"
)

// Duration is a time.Duration stored as text ("5m", "12h") in the settings
// file.
type Duration time.Duration

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// Settings holds all configuration options.
type Settings struct {
	// Account
	Handle        string `json:"handle"`
	IdentityToken string `json:"identity_token"`
	DeveloperKey  string `json:"developer_key"`
	BaseURL       string `json:"base_url"`
	// ImporterEnabled lets a host poll the collection checksum to decide
	// when to rescan.
	ImporterEnabled bool   `json:"importer_enabled"`
	SortByDate      bool   `json:"sort_by_date"`

	// Cache
	CacheBackend string `json:"cache_backend"` // memory, redis, sqlite
	RedisURL     string `json:"redis_url"`
	SQLitePath   string `json:"sqlite_path"`

	// CacheTTL overrides the lifetime of the "short", "long" and "meta"
	// cache classes.
	CacheTTL map[string]Duration `json:"cache_ttl,omitempty"`

	// HTTP
	CookieJarPath     string   `json:"cookie_jar_path"`
	RequestsPerSecond float64  `json:"requests_per_second"`
	RequestBurst      int      `json:"request_burst"`
	Timeout           Duration `json:"timeout"`
	ScanWorkers       int      `json:"scan_workers"`

	// Download settings
	DownloadsPath             string  `json:"downloads_path"`
	MaxConcurrentAlbums       int     `json:"max_concurrent_albums"`
	MaxConcurrentTracks       int     `json:"max_concurrent_tracks"`
	DownloadMaxRetries        int     `json:"download_max_retries"`
	DownloadRetryCooldown     float64 `json:"download_retry_cooldown"`
	DownloadRetryExponent     float64 `json:"download_retry_exponent"`
	AllowedFileSizeDifference float64 `json:"allowed_file_size_difference"`
	DownloadArtistDiscography bool    `json:"download_artist_discography"`

	// File naming
	FileNameFormat         string `json:"file_name_format"`
	CoverArtFileNameFormat string `json:"cover_art_file_name_format"`
	PlaylistFileNameFormat string `json:"playlist_file_name_format"`

	// Cover art
	SaveCoverArtInFolder bool `json:"save_cover_art_in_folder"`
	SaveCoverArtInTags   bool `json:"save_cover_art_in_tags"`
	CoverArtMaxSize      int  `json:"cover_art_max_size"`
	ConvertCoverArtToJPG bool `json:"convert_cover_art_to_jpg"`

	// Playlists
	CreatePlaylist bool   `json:"create_playlist"`
	PlaylistFormat string `json:"playlist_format"` // m3u, pls, wpl, zpl
	M3UExtended    bool   `json:"m3u_extended"`

	ModifyTags bool `json:"modify_tags"`

	// ListenAddr is where "bandcamp serve" listens.
	ListenAddr string `json:"listen_addr"`
}

// Dir returns the directory holding the settings file, the cookie jar and
// the sqlite cache.
func Dir() string {
	base, err := os.UserConfigDir()
	if err != nil {
		base = os.TempDir()
	}
	return filepath.Join(base, "bandcamp-catalog")
}

// DefaultPath is the settings file used when none is given.
func DefaultPath() string {
	return filepath.Join(Dir(), "settings.json")
}

// DefaultSettings returns settings with default values.
func DefaultSettings() *Settings {
	homeDir, _ := os.UserHomeDir()
	dir := Dir()
	return &Settings{
		BaseURL: "https://bandcamp.com",

		CacheBackend: "memory",
		SQLitePath:   filepath.Join(dir, "cache.db"),

		CookieJarPath:     filepath.Join(dir, "cookies.json"),
		RequestsPerSecond: 4,
		RequestBurst:      8,
		Timeout:           Duration(30 * time.Second),
		ScanWorkers:       4,

		DownloadsPath:             filepath.Join(homeDir, "Music", "Bandcamp", "{artist}", "{album}"),
		MaxConcurrentAlbums:       1,
		MaxConcurrentTracks:       4,
		DownloadMaxRetries:        7,
		DownloadRetryCooldown:     0.2,
		DownloadRetryExponent:     4.0,
		AllowedFileSizeDifference: 0.05,

		FileNameFormat:         "{tracknum} {artist} - {title}.mp3",
		CoverArtFileNameFormat: "{album}",
		PlaylistFileNameFormat: "{album}",

		SaveCoverArtInTags:   true,
		CoverArtMaxSize:      1000,
		ConvertCoverArtToJPG: true,

		PlaylistFormat: "m3u",
		M3UExtended:    true,

		ModifyTags: true,

		ListenAddr: "127.0.0.1:8095",
	}
}

// Load reads settings from a JSON file. Fields missing from the file keep
// their defaults, and a missing file yields the defaults.
func Load(path string) (*Settings, error) {
	settings := DefaultSettings()
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return settings, nil
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(data, settings); err != nil {
		return nil, fmt.Errorf("settings %s: %w", path, err)
	}
	if err := settings.Validate(); err != nil {
		return nil, fmt.Errorf("settings %s: %w", path, err)
	}
	return settings, nil
}

// Save writes settings to a JSON file. The file holds the identity token
// and is created readable by the owner only.
func (s *Settings) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

// Validate rejects values the rest of the program cannot work with.
func (s *Settings) Validate() error {
	switch strings.ToLower(s.CacheBackend) {
	case "", "memory", "sqlite":
	case "redis":
		if s.RedisURL == "" {
			return errors.New("cache_backend redis needs redis_url")
		}
	default:
		return fmt.Errorf("unknown cache_backend %q", s.CacheBackend)
	}
	switch strings.ToLower(s.PlaylistFormat) {
	case "", "m3u", "pls", "wpl", "zpl":
	default:
		return fmt.Errorf("unknown playlist_format %q", s.PlaylistFormat)
	}
	for class := range s.CacheTTL {
		switch class {
		case "short", "long", "meta":
		default:
			return fmt.Errorf("unknown cache_ttl class %q", class)
		}
	}
	return nil
}

// CredentialsChanged reports whether s talks to Bandcamp as a different
// account than prev. Cached user data must be dropped when it does.
func (s *Settings) CredentialsChanged(prev *Settings) bool {
	if prev == nil {
		return false
	}
	return s.Handle != prev.Handle ||
		s.IdentityToken != prev.IdentityToken ||
		s.DeveloperKey != prev.DeveloperKey ||
		strings.TrimRight(s.BaseURL, "/") != strings.TrimRight(prev.BaseURL, "/")
}
