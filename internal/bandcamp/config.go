package bandcamp

import (
	"context"
	"log/slog"
	"strings"

	"github.com/handiism/bandcamp-catalog/internal/cache"
)

const (
	DefaultBaseURL  = "https://bandcamp.com"
	DefaultDailyURL = "https://daily.bandcamp.com"
)

// Config holds what the API client and extractor need to reach Bandcamp.
type Config struct {
	// BaseURL is the Bandcamp origin. Tests point it at a local server.
	BaseURL string

	// DailyURL is the Bandcamp Daily origin.
	DailyURL string

	// DeveloperKey signs API GET requests.
	DeveloperKey string

	// IdentityToken is the value of the "identity" cookie used for
	// user-scoped calls. Leave empty when the HTTP client carries a
	// cookie jar with the session instead.
	IdentityToken string

	Logger *slog.Logger
}

func (c Config) withDefaults() Config {
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	if c.DailyURL == "" {
		c.DailyURL = DefaultDailyURL
	}
	c.BaseURL = strings.TrimRight(c.BaseURL, "/")
	c.DailyURL = strings.TrimRight(c.DailyURL, "/")
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	return c
}

// remember returns the value cached under key, or loads it and caches it
// under class when keep approves the loaded value.
func remember[T any](ctx context.Context, c *cache.Cache, key string, class cache.Class, load func() (T, error), keep func(T) bool) (T, error) {
	var v T
	if c.GetJSON(ctx, key, &v) {
		return v, nil
	}
	v, err := load()
	if err != nil {
		return v, err
	}
	if keep(v) {
		c.SetJSON(ctx, key, v, class)
	}
	return v, nil
}

func nonEmpty[T any](v []T) bool {
	return len(v) > 0
}
