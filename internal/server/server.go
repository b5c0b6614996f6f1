package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/handiism/bandcamp-catalog/internal/bandcamp"
	"github.com/handiism/bandcamp-catalog/internal/model"
)

// SessionHeader carries the caller's session id. Searches in one session
// supersede each other.
const SessionHeader = "X-Session-Id"

// Catalog is the set of entry points the server exposes.
type Catalog interface {
	Search(ctx context.Context, req bandcamp.Request, cb bandcamp.Callback)
	RecentSearches(ctx context.Context, req bandcamp.Request, cb bandcamp.Callback)
	Album(ctx context.Context, req bandcamp.Request, cb bandcamp.Callback)
	AlbumByID(ctx context.Context, req bandcamp.Request, cb bandcamp.Callback)
	Track(ctx context.Context, req bandcamp.Request, cb bandcamp.Callback)
	ResolveURL(ctx context.Context, req bandcamp.Request, cb bandcamp.Callback)
	Band(ctx context.Context, req bandcamp.Request, cb bandcamp.Callback)
	BandPage(ctx context.Context, req bandcamp.Request, cb bandcamp.Callback)
	Fan(ctx context.Context, req bandcamp.Request, cb bandcamp.Callback)
	Collection(ctx context.Context, req bandcamp.Request, cb bandcamp.Callback)
	Wishlist(ctx context.Context, req bandcamp.Request, cb bandcamp.Callback)
	Following(ctx context.Context, req bandcamp.Request, cb bandcamp.Callback)
	Feed(ctx context.Context, req bandcamp.Request, cb bandcamp.Callback)
	WeeklyShows(ctx context.Context, req bandcamp.Request, cb bandcamp.Callback)
	WeeklyShow(ctx context.Context, req bandcamp.Request, cb bandcamp.Callback)
	Tag(ctx context.Context, req bandcamp.Request, cb bandcamp.Callback)
	Discover(ctx context.Context, req bandcamp.Request, cb bandcamp.Callback)
	Daily(ctx context.Context, req bandcamp.Request, cb bandcamp.Callback)
	Article(ctx context.Context, req bandcamp.Request, cb bandcamp.Callback)
	RecentPlays(ctx context.Context, req bandcamp.Request, cb bandcamp.Callback)
	RecordPlay(ctx context.Context, t model.Track)
}

var _ Catalog = (*bandcamp.Provider)(nil)

// Library reports whether the purchased collection changed since the last
// scan.
type Library interface {
	NeedsRescan(ctx context.Context) (bool, string, error)
}

var _ Library = (*bandcamp.Sync)(nil)

type Server struct {
	catalog Catalog
	library Library
	logger  *slog.Logger
	timeout time.Duration
}

// NewServer creates a Server. library may be nil, in which case the
// library endpoint is not routed.
func NewServer(catalog Catalog, library Library, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		catalog: catalog,
		library: library,
		logger:  logger,
		timeout: 2 * time.Minute,
	}
}

// Router builds the HTTP routes. middlewares run before the built-in
// recoverer.
func (s *Server) Router(middlewares ...func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()

	for _, mw := range middlewares {
		r.Use(mw)
	}
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(s.timeout))

	r.Get("/health", s.handleHealth)

	r.Get("/search", s.handleSearch)
	r.Get("/search/recent", s.browse(s.catalog.RecentSearches, none))

	r.Get("/albums", s.browse(s.catalog.Album, urlParam))
	r.Get("/albums/{id}", s.browse(s.catalog.AlbumByID, idParam))
	r.Get("/tracks/{id}", s.browse(s.catalog.Track, idParam))
	r.Get("/resolve", s.browse(s.catalog.ResolveURL, urlParam))

	r.Get("/bands", s.browse(s.catalog.BandPage, urlParam))
	r.Get("/bands/{id}", s.browse(s.catalog.Band, bandParams))

	r.Get("/fans/{handle}", s.browse(s.catalog.Fan, fanParams))
	r.Get("/collection", s.browse(s.catalog.Collection, pageParams))
	r.Get("/wishlist", s.browse(s.catalog.Wishlist, pageParams))
	r.Get("/following", s.browse(s.catalog.Following, pageParams))
	r.Get("/feed", s.browse(s.catalog.Feed, pageParams))

	r.Get("/weekly", s.browse(s.catalog.WeeklyShows, none))
	r.Get("/weekly/{id}", s.browse(s.catalog.WeeklyShow, idParam))
	r.Get("/tags/{slug}", s.browse(s.catalog.Tag, slugParam))
	r.Get("/discover", s.browse(s.catalog.Discover, none))
	r.Get("/daily", s.browse(s.catalog.Daily, none))
	r.Get("/daily/article", s.browse(s.catalog.Article, urlParam))

	r.Get("/plays", s.browse(s.catalog.RecentPlays, none))
	r.Post("/plays", s.handleRecordPlay)

	if s.library != nil {
		r.Get("/library/checksum", s.handleChecksum)
	}

	return r
}

// ListenAndServe serves the router on addr until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Router(middleware.RequestID, middleware.RealIP, s.logRequests),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() {
		s.logger.Info("Listening", "addr", addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("Handled request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()))
	})
}
