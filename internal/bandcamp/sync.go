package bandcamp

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/handiism/bandcamp-catalog/internal/cache"
	"github.com/handiism/bandcamp-catalog/internal/model"
	"golang.org/x/sync/errgroup"
)

const (
	// PurchasedPageSize is large enough to list a whole collection in one
	// call.
	PurchasedPageSize = 10000

	// DefaultScanWorkers bounds concurrent album detail fetches in Scan.
	DefaultScanWorkers = 4
)

// Sync is the blocking counterpart of API used by the offline library
// scan. It lists the purchased collection, fetches album detail and keeps
// a fingerprint of the collection to tell when a rescan is needed.
//
// Example:
//
//	s := NewSync(api, extractor, c, nil)
//	rescan, sum, err := s.NeedsRescan(ctx)
//	if err != nil || !rescan {
//	    return err
//	}
//	albums, err := s.Scan(ctx, fanID)
//	// ... import albums ...
//	s.Commit(ctx, sum)
type Sync struct {
	api       *API
	extractor *Extractor
	cache     *cache.Cache
	logger    *slog.Logger
	workers   int
}

// NewSync creates a Sync.
func NewSync(api *API, extractor *Extractor, c *cache.Cache, logger *slog.Logger) *Sync {
	if logger == nil {
		logger = slog.Default()
	}
	return &Sync{
		api:       api,
		extractor: extractor,
		cache:     c,
		logger:    logger,
		workers:   DefaultScanWorkers,
	}
}

// SetWorkers changes how many albums Scan fetches at once.
func (s *Sync) SetWorkers(n int) {
	if n > 0 {
		s.workers = n
	}
}

// PurchasedAlbums lists the fan's purchased releases in one pass.
func (s *Sync) PurchasedAlbums(ctx context.Context, fanID int64) ([]model.Album, error) {
	page, err := s.api.CollectionItems(ctx, fanID, "", PurchasedPageSize)
	if err != nil {
		return nil, err
	}
	if page.More {
		s.logger.Warn("Collection larger than one page, scan is partial", "fan_id", fanID, "albums", len(page.Albums))
	}
	return page.Albums, nil
}

// AlbumDetail fetches the full album with tracks. The album page is
// preferred; an album without a URL is looked up by id.
func (s *Sync) AlbumDetail(ctx context.Context, album model.Album) (model.Album, error) {
	var full model.Album
	var err error
	switch {
	case album.URL != "":
		full, err = s.extractor.Album(ctx, album.URL)
	case album.ID != 0:
		full, err = s.api.AlbumInfo(ctx, album.ID)
	default:
		return model.Album{}, fmt.Errorf("album %q: %w", album.Title, ErrNotFound)
	}
	if err != nil {
		return model.Album{}, err
	}
	if full.Failed() {
		return full, nil
	}
	return model.MergeAlbum(full, album)
}

// Scan returns the detail of every purchased album. Albums that fail are
// logged and skipped; a cancelled context stops the scan.
func (s *Sync) Scan(ctx context.Context, fanID int64) ([]model.Album, error) {
	albums, err := s.PurchasedAlbums(ctx, fanID)
	if err != nil {
		return nil, err
	}

	var mu sync.Mutex
	detailed := make([]model.Album, len(albums))
	ok := make([]bool, len(albums))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for i, album := range albums {
		g.Go(func() error {
			full, err := s.AlbumDetail(gctx, album)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				s.logger.Warn("Skipping album", "album", album.Title, "url", album.URL, "error", err)
				return nil
			}
			if full.Failed() {
				s.logger.Warn("Skipping album", "album", album.Title, "url", album.URL, "error", full.Error)
				return nil
			}
			mu.Lock()
			detailed[i], ok[i] = full, true
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make([]model.Album, 0, len(albums))
	for i := range detailed {
		if ok[i] {
			out = append(out, detailed[i])
		}
	}
	return out, nil
}

// Fingerprint hashes a set of album ids. The order of ids does not matter.
func Fingerprint(ids []int64) string {
	sorted := append([]int64(nil), ids...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	parts := make([]string, len(sorted))
	for i, id := range sorted {
		parts[i] = strconv.FormatInt(id, 10)
	}
	sum := sha256.Sum256([]byte(strings.Join(parts, ",")))
	return hex.EncodeToString(sum[:])
}

// Checksum fingerprints the collection of the identity token's owner.
func (s *Sync) Checksum(ctx context.Context) (string, error) {
	summary, err := s.api.CollectionSummary(ctx)
	if err != nil {
		return "", err
	}
	return Fingerprint(summary.AlbumIDs), nil
}

// NeedsRescan compares the current checksum with the one saved by the last
// Commit. It returns the current checksum for passing to Commit.
func (s *Sync) NeedsRescan(ctx context.Context) (bool, string, error) {
	sum, err := s.Checksum(ctx)
	if err != nil {
		return false, "", err
	}
	prev, ok := s.cache.Get(ctx, cache.KeyLibraryFingerprint)
	return !ok || string(prev) != sum, sum, nil
}

// Commit records sum as the checksum of the imported library.
func (s *Sync) Commit(ctx context.Context, sum string) {
	s.cache.Set(ctx, cache.KeyLibraryFingerprint, []byte(sum), cache.Never)
}

// IdentityFromJar returns the identity token stored in jar for baseURL, or
// "" when there is none.
func IdentityFromJar(jar http.CookieJar, baseURL string) string {
	u, err := url.Parse(baseURL)
	if err != nil || jar == nil {
		return ""
	}
	for _, c := range jar.Cookies(u) {
		if c.Name == "identity" {
			return c.Value
		}
	}
	return ""
}
