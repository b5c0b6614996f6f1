// Package app wires settings into a ready Bandcamp catalog: HTTP client,
// cookie jar, response cache, API client, extractor, collection sync and
// the provider used by the binaries.
package app

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/handiism/bandcamp-catalog/internal/bandcamp"
	"github.com/handiism/bandcamp-catalog/internal/cache"
	"github.com/handiism/bandcamp-catalog/internal/config"
	"github.com/handiism/bandcamp-catalog/internal/download"
	bchttp "github.com/handiism/bandcamp-catalog/internal/http"
	"github.com/handiism/bandcamp-catalog/internal/model"
)

// App holds the wired components. Close it when done.
type App struct {
	Settings *config.Settings
	Logger   *slog.Logger

	Cache     *cache.Cache
	Client    *bchttp.Client
	Jar       *bchttp.FileJar
	API       *bandcamp.API
	Extractor *bandcamp.Extractor
	Sync      *bandcamp.Sync
	Provider  *bandcamp.Provider
	Searches  *cache.History[string]
	Plays     *cache.History[model.Track]

	apiConfig bandcamp.Config
	norm      *bandcamp.Normalizer
}

// Option adjusts an App before its components are built.
type Option func(*options)

type options struct {
	httpOpts []bchttp.Option
	store    cache.Store
}

// WithHTTPOptions passes extra options to the HTTP client.
func WithHTTPOptions(opts ...bchttp.Option) Option {
	return func(o *options) {
		o.httpOpts = append(o.httpOpts, opts...)
	}
}

// WithStore uses store instead of the backend named in the settings.
func WithStore(store cache.Store) Option {
	return func(o *options) {
		o.store = store
	}
}

// New builds an App from s. When the cache was filled for another account
// it is cleared first.
func New(ctx context.Context, s *config.Settings, logger *slog.Logger, opts ...Option) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	store := o.store
	if store == nil {
		if s.CacheBackend == "sqlite" && s.SQLitePath != "" {
			if err := os.MkdirAll(filepath.Dir(s.SQLitePath), 0o755); err != nil {
				return nil, err
			}
		}
		dsn := s.SQLitePath
		if strings.EqualFold(s.CacheBackend, "redis") {
			dsn = s.RedisURL
		}
		var err error
		store, err = cache.Open(s.CacheBackend, dsn)
		if err != nil {
			return nil, fmt.Errorf("open cache: %w", err)
		}
	}
	c := cache.New(store, cacheOptions(s, logger)...)

	httpOpts := []bchttp.Option{
		bchttp.WithLogger(logger),
		bchttp.WithRateLimit(s.RequestsPerSecond, s.RequestBurst),
	}
	if s.Timeout > 0 {
		httpOpts = append(httpOpts, bchttp.WithTimeout(time.Duration(s.Timeout)))
	}
	var jar *bchttp.FileJar
	if s.CookieJarPath != "" {
		var err error
		jar, err = bchttp.NewFileJar(s.CookieJarPath, bchttp.WithJarLogger(logger))
		if err != nil {
			c.Close()
			return nil, fmt.Errorf("cookie jar: %w", err)
		}
		httpOpts = append(httpOpts, bchttp.WithJar(jar))
	}
	client := bchttp.NewClient(append(httpOpts, o.httpOpts...)...)

	cfg := bandcamp.Config{
		BaseURL:       s.BaseURL,
		DeveloperKey:  s.DeveloperKey,
		IdentityToken: s.IdentityToken,
		Logger:        logger,
	}
	if cfg.IdentityToken == "" && jar != nil {
		base := s.BaseURL
		if base == "" {
			base = bandcamp.DefaultBaseURL
		}
		cfg.IdentityToken = bandcamp.IdentityFromJar(jar, base)
	}

	a := &App{
		Settings:  s,
		Logger:    logger,
		Cache:     c,
		Client:    client,
		Jar:       jar,
		apiConfig: cfg,
	}
	a.checkAccount(ctx)

	a.norm = bandcamp.NewNormalizer(c, logger)
	a.API = bandcamp.NewAPI(client, c, a.norm, cfg)
	a.Extractor = bandcamp.NewExtractor(client, c, a.norm, cfg)
	a.Sync = bandcamp.NewSync(a.API, a.Extractor, c, logger)
	a.Sync.SetWorkers(s.ScanWorkers)
	a.Searches = cache.NewHistory[string](ctx, c, cache.KeyRecentSearches, cache.DefaultHistoryLimit)
	a.Plays = cache.NewHistory[model.Track](ctx, c, cache.KeyRecentPlays, cache.DefaultHistoryLimit)
	a.Provider = bandcamp.NewProvider(a.API, a.Extractor, a.Searches, a.Plays, bandcamp.ProviderConfig{
		Handle:     s.Handle,
		SortByDate: s.SortByDate,
		Logger:     logger,
	})
	return a, nil
}

func cacheOptions(s *config.Settings, logger *slog.Logger) []cache.Option {
	opts := []cache.Option{cache.WithLogger(logger)}
	classes := map[string]cache.Class{"short": cache.Short, "long": cache.Long, "meta": cache.Meta}
	for name, ttl := range s.CacheTTL {
		if class, ok := classes[name]; ok {
			opts = append(opts, cache.WithTTL(class, time.Duration(ttl)))
		}
	}
	return opts
}

// accountDigest identifies the account the settings talk to Bandcamp as.
func accountDigest(s *config.Settings) string {
	sum := sha256.Sum256([]byte(strings.Join([]string{
		s.Handle,
		s.IdentityToken,
		s.DeveloperKey,
		strings.TrimRight(s.BaseURL, "/"),
	}, "\x00")))
	return hex.EncodeToString(sum[:])
}

// checkAccount clears a cache that was filled with other credentials.
func (a *App) checkAccount(ctx context.Context) {
	digest := accountDigest(a.Settings)
	if prev, ok := a.Cache.Get(ctx, cache.KeyAccount); ok && string(prev) != digest {
		a.Logger.Info("Credentials changed, clearing cache")
		a.Cache.Clear(ctx)
	}
	a.Cache.Set(ctx, cache.KeyAccount, []byte(digest), cache.Never)
}

// Reconfigure saves next to path. When the credentials differ from the
// current ones the cache is cleared, since it may hold the previous
// account's data. The App keeps its components; build a new one to use
// next.
func (a *App) Reconfigure(ctx context.Context, next *config.Settings, path string) error {
	if err := next.Validate(); err != nil {
		return err
	}
	if next.CredentialsChanged(a.Settings) {
		a.Logger.Info("Credentials changed, clearing cache")
		a.Cache.Clear(ctx)
		a.Cache.Set(ctx, cache.KeyAccount, []byte(accountDigest(next)), cache.Never)
	}
	return next.Save(path)
}

// VerifyIdentity asks Bandcamp who owns token. A token that upstream
// rejects, or that resolves to no fan, yields ErrInvalidIdentity.
func (a *App) VerifyIdentity(ctx context.Context, token string) (bandcamp.CollectionSummary, error) {
	if token == "" {
		return bandcamp.CollectionSummary{}, bandcamp.ErrNoIdentity
	}
	cfg := a.apiConfig
	cfg.IdentityToken = token
	summary, err := bandcamp.NewAPI(a.Client, a.Cache, a.norm, cfg).CollectionSummary(ctx)
	var ue *bandcamp.UpstreamError
	if errors.As(err, &ue) {
		return summary, fmt.Errorf("%w: %s", bandcamp.ErrInvalidIdentity, ue.Message)
	}
	if err != nil {
		return summary, err
	}
	if summary.FanID == 0 && summary.Username == "" {
		return summary, fmt.Errorf("collection summary names no fan: %w", bandcamp.ErrInvalidIdentity)
	}
	return summary, nil
}

// Downloads builds a download manager reading albums through the
// extractor.
func (a *App) Downloads(onProgress func(download.ProgressEvent)) (*download.Manager, error) {
	opts, err := download.OptionsFromSettings(a.Settings)
	if err != nil {
		return nil, err
	}
	return download.NewManager(a.Extractor, a.Client, opts, a.Logger, onProgress), nil
}

// Close persists the cookie jar and closes the cache.
func (a *App) Close() error {
	var errs []error
	if a.Jar != nil {
		errs = append(errs, a.Jar.Save())
	}
	errs = append(errs, a.Cache.Close())
	return errors.Join(errs...)
}
