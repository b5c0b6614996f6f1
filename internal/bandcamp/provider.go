package bandcamp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/handiism/bandcamp-catalog/internal/cache"
	"github.com/handiism/bandcamp-catalog/internal/model"
)

// Callback receives the result of one request.
type Callback func([]model.Item)

// Request carries the arguments of a Provider call. Each method reads
// only the fields it needs.
type Request struct {
	// Session scopes concurrent searches. Empty means no session.
	Session string

	Query  string
	URL    string
	ID     int64
	Handle string

	// Token continues a paged collection listing.
	Token string

	Slug string

	// Section picks a fan page sub-collection: collection, wishlist,
	// hidden, following_bands, following_fans or followers.
	Section string
}

// ProviderConfig configures a Provider.
type ProviderConfig struct {
	// Handle is the account used when a request names no fan.
	Handle string

	// SortByDate keeps collection pages in purchase order instead of
	// sorting them by name.
	SortByDate bool

	Logger *slog.Logger
}

// Provider is the entry point for a host UI. Every method returns
// immediately and invokes cb exactly once, from another goroutine, with a
// renderable list: the results, or a single error or empty placeholder.
// Errors never reach the caller as values.
//
// Example:
//
//	p.Album(ctx, bandcamp.Request{URL: u}, func(items []model.Item) {
//	    if len(items) == 1 && items[0].Failed() {
//	        fmt.Println("error:", items[0].Message)
//	        return
//	    }
//	    for _, it := range items {
//	        fmt.Println(it.Name())
//	    }
//	})
type Provider struct {
	api       *API
	extractor *Extractor
	search    *Aggregator
	plays     *cache.History[model.Track]
	searches  *cache.History[string]
	cfg       ProviderConfig
	logger    *slog.Logger
}

// NewProvider creates a Provider. The search aggregator is built from api
// and extractor and records queries into searches.
func NewProvider(api *API, extractor *Extractor, searches *cache.History[string], plays *cache.History[model.Track], cfg ProviderConfig) *Provider {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	branches := Branches{
		General: extractor.Search,
		Tags:    api.SearchTags,
		Artists: func(ctx context.Context, q string) ([]model.Item, error) {
			return api.Autocomplete(ctx, q, FilterBands)
		},
		Fans: api.SearchFans,
	}
	return &Provider{
		api:       api,
		extractor: extractor,
		search:    NewAggregator(branches, searches, cfg.Logger),
		plays:     plays,
		searches:  searches,
		cfg:       cfg,
		logger:    cfg.Logger,
	}
}

// run executes fn in its own goroutine and delivers its shaped result.
func (p *Provider) run(ctx context.Context, op string, cb Callback, fn func(context.Context) ([]model.Item, error)) {
	var once sync.Once
	deliver := func(items []model.Item) {
		once.Do(func() { cb(items) })
	}
	go func() {
		items, err := fn(ctx)
		if err == nil && ctx.Err() != nil {
			err = ctx.Err()
		}
		deliver(p.shape(op, items, err))
	}()
}

// shape turns a result into a renderable list.
func (p *Provider) shape(op string, items []model.Item, err error) []model.Item {
	var upstream *UpstreamError
	switch {
	case err == nil && len(items) == 0:
		return []model.Item{model.EmptyItem()}
	case err == nil:
		return items
	case errors.Is(err, ErrInvalidIdentity):
		p.logger.Warn("Request rejected identity", "op", op)
		return []model.Item{model.InvalidIdentityItem()}
	case errors.Is(err, ErrNoData):
		p.logger.Info("Request returned no data", "op", op, "error", err)
		return []model.Item{model.EmptyItem()}
	case errors.As(err, &upstream):
		p.logger.Warn("Request failed upstream", "op", op, "error", err)
		return []model.Item{model.ErrorItem(upstream.Message)}
	}
	p.logger.Warn("Request failed", "op", op, "error", err)
	return []model.Item{model.ErrorItem(err.Error())}
}

// Search runs the combined search for req.Query.
func (p *Provider) Search(ctx context.Context, req Request, cb Callback) {
	if strings.TrimSpace(req.Query) == "" {
		p.run(ctx, "search", cb, func(context.Context) ([]model.Item, error) { return nil, nil })
		return
	}
	var once sync.Once
	p.search.Search(ctx, req.Session, req.Query, func(items []model.Item) {
		once.Do(func() { cb(items) })
	})
}

// RecentSearches lists past queries, newest first.
func (p *Provider) RecentSearches(ctx context.Context, _ Request, cb Callback) {
	p.run(ctx, "recent_searches", cb, func(context.Context) ([]model.Item, error) {
		var items []model.Item
		for _, q := range p.searches.Values() {
			items = append(items, model.QueryItem(q))
		}
		return items, nil
	})
}

// Album lists the tracks of the album or track page at req.URL.
func (p *Provider) Album(ctx context.Context, req Request, cb Callback) {
	p.run(ctx, "album", cb, func(ctx context.Context) ([]model.Item, error) {
		album, err := p.extractor.Album(ctx, req.URL)
		if err != nil {
			return nil, err
		}
		return albumTracks(album), nil
	})
}

// AlbumByID lists the tracks of album req.ID.
func (p *Provider) AlbumByID(ctx context.Context, req Request, cb Callback) {
	p.run(ctx, "album_info", cb, func(ctx context.Context) ([]model.Item, error) {
		album, err := p.api.AlbumInfo(ctx, req.ID)
		if err != nil {
			return nil, err
		}
		return albumTracks(album), nil
	})
}

func albumTracks(album model.Album) []model.Item {
	if album.Failed() {
		return []model.Item{model.AlbumItem(album)}
	}
	items := make([]model.Item, 0, len(album.Tracks))
	for _, t := range album.Tracks {
		items = append(items, model.TrackItem(t))
	}
	return items
}

// Track returns track req.ID.
func (p *Provider) Track(ctx context.Context, req Request, cb Callback) {
	p.run(ctx, "track", cb, func(ctx context.Context) ([]model.Item, error) {
		t, err := p.api.Track(ctx, req.ID)
		if err != nil {
			return nil, err
		}
		return []model.Item{model.TrackItem(t)}, nil
	})
}

// ResolveURL resolves req.URL and lists what it points to: a track, the
// tracks of an album, or a band's releases.
func (p *Provider) ResolveURL(ctx context.Context, req Request, cb Callback) {
	p.run(ctx, "resolve", cb, func(ctx context.Context) ([]model.Item, error) {
		ref, err := p.api.ResolveURL(ctx, req.URL)
		if err != nil {
			return nil, err
		}
		switch ref.Kind {
		case model.KindTrack:
			t, err := p.api.Track(ctx, ref.TrackID)
			if err != nil {
				return nil, err
			}
			return []model.Item{model.TrackItem(t)}, nil
		case model.KindAlbum:
			album, err := p.api.AlbumInfo(ctx, ref.AlbumID)
			if err != nil {
				return nil, err
			}
			return albumTracks(album), nil
		case model.KindBand:
			return p.bandReleases(ctx, ref.BandID, "")
		}
		return nil, fmt.Errorf("url %q: %w", req.URL, ErrNotFound)
	})
}

// Band lists the releases of band req.ID. When the discography endpoint
// fails the band's music page is read instead; req.URL spares a band info
// lookup.
func (p *Provider) Band(ctx context.Context, req Request, cb Callback) {
	p.run(ctx, "band", cb, func(ctx context.Context) ([]model.Item, error) {
		return p.bandReleases(ctx, req.ID, req.URL)
	})
}

func (p *Provider) bandReleases(ctx context.Context, bandID int64, bandURL string) ([]model.Item, error) {
	items, err := p.api.Discography(ctx, bandID)
	if err == nil && len(items) > 0 {
		return items, nil
	}
	p.logger.Info("Discography unavailable, reading band page", "band_id", bandID, "error", err)

	if bandURL == "" {
		band, berr := p.api.BandInfo(ctx, bandID)
		if berr != nil || band.URL == "" {
			return nil, errors.Join(err, berr)
		}
		bandURL = band.URL
	}
	page, perr := p.extractor.BandPage(ctx, bandURL)
	if perr != nil {
		return nil, perr
	}
	return albumItems(page.Releases), nil
}

// BandPage lists the releases on the band page at req.URL, preceded by the
// band itself.
func (p *Provider) BandPage(ctx context.Context, req Request, cb Callback) {
	p.run(ctx, "band_page", cb, func(ctx context.Context) ([]model.Item, error) {
		page, err := p.extractor.BandPage(ctx, req.URL)
		if err != nil {
			return nil, err
		}
		return append([]model.Item{model.ArtistItem(page.Band)}, albumItems(page.Releases)...), nil
	})
}

func albumItems(albums []model.Album) []model.Item {
	items := make([]model.Item, 0, len(albums))
	for _, a := range albums {
		items = append(items, model.AlbumItem(a))
	}
	return items
}

func artistItems(artists []model.Artist) []model.Item {
	items := make([]model.Item, 0, len(artists))
	for _, a := range artists {
		items = append(items, model.ArtistItem(a))
	}
	return items
}

// Fan lists one sub-collection of a fan page. req.Handle defaults to the
// configured account and req.Section to the purchased collection.
func (p *Provider) Fan(ctx context.Context, req Request, cb Callback) {
	p.run(ctx, "fan", cb, func(ctx context.Context) ([]model.Item, error) {
		handle, err := p.handle(req)
		if err != nil {
			return nil, err
		}
		page, err := p.extractor.Fan(ctx, handle)
		if err != nil {
			return nil, err
		}
		switch req.Section {
		case "", "collection":
			return albumItems(page.Collection), nil
		case "wishlist":
			return albumItems(page.Wishlist), nil
		case "hidden":
			return albumItems(page.Hidden), nil
		case "following_bands":
			return artistItems(page.FollowingBands), nil
		case "following_fans":
			return artistItems(page.FollowingFans), nil
		case "followers":
			return artistItems(page.Followers), nil
		}
		return nil, fmt.Errorf("fan section %q: %w", req.Section, ErrNotFound)
	})
}

// Collection lists a page of the fan's purchases.
func (p *Provider) Collection(ctx context.Context, req Request, cb Callback) {
	p.collection(ctx, "collection", req, cb, p.api.CollectionItems)
}

// Wishlist lists a page of the fan's wishlist.
func (p *Provider) Wishlist(ctx context.Context, req Request, cb Callback) {
	p.collection(ctx, "wishlist", req, cb, p.api.Wishlist)
}

// Following lists a page of the bands the fan follows.
func (p *Provider) Following(ctx context.Context, req Request, cb Callback) {
	p.collection(ctx, "following", req, cb, p.api.FollowingBands)
}

type pageFunc func(ctx context.Context, fanID int64, token string, count int) (model.CollectionPage, error)

func (p *Provider) collection(ctx context.Context, op string, req Request, cb Callback, fetch pageFunc) {
	p.run(ctx, op, cb, func(ctx context.Context) ([]model.Item, error) {
		fanID, err := p.fanID(ctx, req)
		if err != nil {
			return nil, err
		}
		page, err := fetch(ctx, fanID, req.Token, DefaultPageSize)
		if err != nil {
			return nil, err
		}
		page.Albums = SortCollection(page.Albums, p.cfg.SortByDate)
		if !p.cfg.SortByDate {
			page.Artists = sortArtists(page.Artists)
		}
		return page.Items(), nil
	})
}

// Feed lists the fan's activity feed.
func (p *Provider) Feed(ctx context.Context, req Request, cb Callback) {
	p.run(ctx, "feed", cb, func(ctx context.Context) ([]model.Item, error) {
		fanID, err := p.fanID(ctx, req)
		if err != nil {
			return nil, err
		}
		return p.api.Feed(ctx, fanID)
	})
}

func (p *Provider) handle(req Request) (string, error) {
	if req.Handle != "" {
		return req.Handle, nil
	}
	if p.cfg.Handle != "" {
		return p.cfg.Handle, nil
	}
	return "", ErrNoIdentity
}

func (p *Provider) fanID(ctx context.Context, req Request) (int64, error) {
	if req.ID != 0 {
		return req.ID, nil
	}
	handle, err := p.handle(req)
	if err != nil {
		return 0, err
	}
	return p.extractor.FanID(ctx, handle)
}

// WeeklyShows lists Bandcamp Weekly shows.
func (p *Provider) WeeklyShows(ctx context.Context, _ Request, cb Callback) {
	p.run(ctx, "weekly", cb, func(ctx context.Context) ([]model.Item, error) {
		shows, err := p.api.WeeklyShows(ctx)
		if err != nil {
			return nil, err
		}
		items := make([]model.Item, 0, len(shows))
		for _, s := range shows {
			items = append(items, model.ShowItem(s))
		}
		return items, nil
	})
}

// WeeklyShow lists the tracks of show req.ID, reading the show page when
// the API fails.
func (p *Provider) WeeklyShow(ctx context.Context, req Request, cb Callback) {
	p.run(ctx, "weekly_show", cb, func(ctx context.Context) ([]model.Item, error) {
		show, err := p.api.WeeklyShow(ctx, req.ID)
		if err != nil {
			p.logger.Info("Weekly API failed, reading show page", "show", req.ID, "error", err)
			show, err = p.extractor.WeeklyShow(ctx, req.ID)
			if err != nil {
				return nil, err
			}
		}
		items := make([]model.Item, 0, len(show.Tracks))
		for _, t := range show.Tracks {
			items = append(items, model.TrackItem(t))
		}
		return items, nil
	})
}

// Tag lists the releases of tag req.Slug.
func (p *Provider) Tag(ctx context.Context, req Request, cb Callback) {
	p.run(ctx, "tag", cb, func(ctx context.Context) ([]model.Item, error) {
		return p.extractor.Tag(ctx, req.Slug)
	})
}

// Discover lists the releases of the discovery page.
func (p *Provider) Discover(ctx context.Context, _ Request, cb Callback) {
	p.run(ctx, "discover", cb, p.extractor.Discover)
}

// Daily lists Bandcamp Daily articles.
func (p *Provider) Daily(ctx context.Context, _ Request, cb Callback) {
	p.run(ctx, "daily", cb, func(ctx context.Context) ([]model.Item, error) {
		articles, err := p.extractor.Daily(ctx)
		if err != nil {
			return nil, err
		}
		items := make([]model.Item, 0, len(articles))
		for _, a := range articles {
			items = append(items, model.ArticleItem(a))
		}
		return items, nil
	})
}

// Article lists the releases featured in the article at req.URL.
func (p *Provider) Article(ctx context.Context, req Request, cb Callback) {
	p.run(ctx, "article", cb, func(ctx context.Context) ([]model.Item, error) {
		article, err := p.extractor.Article(ctx, req.URL)
		if err != nil {
			return nil, err
		}
		return albumItems(article.Albums), nil
	})
}

// RecentPlays lists recently played tracks, newest first.
func (p *Provider) RecentPlays(ctx context.Context, _ Request, cb Callback) {
	p.run(ctx, "recent_plays", cb, func(context.Context) ([]model.Item, error) {
		var items []model.Item
		for _, t := range p.plays.Values() {
			items = append(items, model.TrackItem(t))
		}
		return items, nil
	})
}

// RecordPlay adds t to the recent plays.
func (p *Provider) RecordPlay(ctx context.Context, t model.Track) {
	key := TrackKey(t)
	if key == "" {
		key = t.URL
	}
	if key == "" {
		return
	}
	p.plays.Add(ctx, key, t)
}

// SortCollection orders collection albums newest first when byDate is set,
// else by title.
func SortCollection(albums []model.Album, byDate bool) []model.Album {
	if !byDate {
		return sortAlbums(albums)
	}
	sort.SliceStable(albums, func(i, j int) bool {
		return albums[i].AddedAt.After(albums[j].AddedAt)
	})
	return albums
}
