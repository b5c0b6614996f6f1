package bandcamp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"

	"github.com/handiism/bandcamp-catalog/internal/bandcamp/dto"
	"github.com/handiism/bandcamp-catalog/internal/cache"
	bchttp "github.com/handiism/bandcamp-catalog/internal/http"
	"github.com/handiism/bandcamp-catalog/internal/model"
	"github.com/tidwall/gjson"
	"golang.org/x/net/html"
)

// Extractor recovers catalog data from Bandcamp HTML pages where no JSON
// API exists: album and track pages, fan profiles, tag hubs, the discovery
// page, Bandcamp Daily, Weekly show pages, search results and band pages.
//
// Most pages carry their data as JSON in an attribute (data-tralbum,
// data-blob, data-player-infos, data-search). The Extractor parses the
// markup, decodes that JSON and shapes it into model records.
//
// Failure policy:
//   - transport errors are returned as is
//   - a page without the expected marker or with the wrong content type
//     returns ErrNoData
//   - an album page that is a not-found page returns an error record
//
// Successful non-empty results are cached under the Long class.
//
// Example usage:
//
//	ex := NewExtractor(client, c, norm, Config{})
//	album, err := ex.Album(ctx, "https://artist.bandcamp.com/album/name")
//	if err != nil {
//	    return err
//	}
//	if album.Failed() {
//	    fmt.Println(album.Error)
//	}
type Extractor struct {
	client *bchttp.Client
	cache  *cache.Cache
	norm   *Normalizer
	disco  *Discography
	cfg    Config
	logger *slog.Logger
}

// NewExtractor creates an Extractor.
func NewExtractor(client *bchttp.Client, c *cache.Cache, norm *Normalizer, cfg Config) *Extractor {
	cfg = cfg.withDefaults()
	return &Extractor{
		client: client,
		cache:  c,
		norm:   norm,
		disco:  NewDiscography(),
		cfg:    cfg,
		logger: cfg.Logger,
	}
}

func pageKey(pageURL string) string {
	return "html:" + pageURL
}

// fetch downloads pageURL and checks it is HTML.
func (e *Extractor) fetch(ctx context.Context, pageURL string) ([]byte, error) {
	resp, err := e.client.Fetch(ctx, pageURL, nil)
	if err != nil {
		return nil, err
	}
	if !resp.IsHTML() {
		e.logger.Info("Unexpected content type", "url", pageURL, "content_type", resp.ContentType)
		return nil, fmt.Errorf("%s: %w", pageURL, ErrNoData)
	}
	return resp.Body, nil
}

// document fetches and parses pageURL.
func (e *Extractor) document(ctx context.Context, pageURL string) (*html.Node, error) {
	body, err := e.fetch(ctx, pageURL)
	if err != nil {
		return nil, err
	}
	doc, err := parseHTML(body)
	if err != nil {
		e.logger.Info("Unparseable page", "url", pageURL, "error", err)
		return nil, fmt.Errorf("%s: %w", pageURL, ErrNoData)
	}
	return doc, nil
}

// blob returns the JSON carried in attribute name of the element with id.
func (e *Extractor) blob(doc *html.Node, pageURL, id, name string) (gjson.Result, error) {
	el := findFirst(doc, byID(id))
	raw := attr(el, name)
	if raw == "" || !gjson.Valid(raw) {
		e.logger.Info("Page has no embedded data", "url", pageURL, "marker", id)
		return gjson.Result{}, fmt.Errorf("%s: %w", pageURL, ErrNoData)
	}
	return gjson.Parse(raw), nil
}

// Album extracts an album or track page.
//
// A 404 response or a not-found page yields an Album error record and a
// nil error, so callers can render the message.
func (e *Extractor) Album(ctx context.Context, pageURL string) (model.Album, error) {
	return remember(ctx, e.cache, pageKey(pageURL), cache.Long,
		func() (model.Album, error) { return e.album(ctx, pageURL) },
		func(a model.Album) bool { return !a.Failed() && len(a.Tracks) > 0 })
}

func (e *Extractor) album(ctx context.Context, pageURL string) (model.Album, error) {
	body, err := e.fetch(ctx, pageURL)
	if err != nil {
		var se *bchttp.StatusError
		if errors.As(err, &se) && se.NotFound() {
			return model.AlbumError(se.Error()), nil
		}
		return model.Album{}, err
	}
	page := string(body)

	data, err := extractAlbumData(page)
	if err != nil {
		if doc, perr := parseHTML(body); perr == nil {
			if title := pageTitle(doc); isErrorPage(title) {
				return model.AlbumError(title), nil
			}
		}
		e.logger.Info("Album page has no track data", "url", pageURL)
		return model.Album{}, fmt.Errorf("%s: %w", pageURL, ErrNoData)
	}

	ja, err := dto.ParseJSONAlbum([]byte(fixJSON(data)))
	if err != nil {
		e.logger.Info("Undecodable album data", "url", pageURL, "error", err)
		return model.Album{}, fmt.Errorf("%s: %w", pageURL, ErrNoData)
	}

	album := ja.ToAlbum()
	if album.URL == "" {
		album.URL = pageURL
	}
	album = e.norm.NormalizeAlbum(ctx, album, ja.RawTracks())

	extractLyrics(page, &album)
	for i, t := range album.Tracks {
		if t.Lyrics != "" {
			album.Tracks[i] = e.norm.NormalizeTrack(ctx, t, &album)
		}
	}

	return album, nil
}

// Fan extracts a fan profile page: the fan's identity and the six
// sub-collections embedded in its data blob, each sorted by name.
//
// The fan id is cached under the Meta class as a side effect.
func (e *Extractor) Fan(ctx context.Context, handle string) (model.FanPage, error) {
	pageURL := e.cfg.BaseURL + "/" + url.PathEscape(handle)
	return remember(ctx, e.cache, pageKey(pageURL), cache.Long,
		func() (model.FanPage, error) { return e.fan(ctx, handle, pageURL) },
		func(p model.FanPage) bool { return p.Fan.FanID != 0 })
}

func (e *Extractor) fan(ctx context.Context, handle, pageURL string) (model.FanPage, error) {
	doc, err := e.document(ctx, pageURL)
	if err != nil {
		return model.FanPage{}, err
	}
	blob, err := e.blob(doc, pageURL, "pagedata", "data-blob")
	if err != nil {
		return model.FanPage{}, err
	}

	page := model.FanPage{Fan: dto.ParseFan(blob.Get("fan_data"))}
	if page.Fan.Handle == "" {
		page.Fan.Handle = handle
	}
	if page.Fan.FanID != 0 {
		e.cache.Set(ctx, cache.UserIDKey(handle), []byte(strconv.FormatInt(page.Fan.FanID, 10)), cache.Meta)
	}

	items := blob.Get("item_cache")
	page.Collection = sortAlbums(albumsOf(items.Get("collection")))
	page.Wishlist = sortAlbums(albumsOf(items.Get("wishlist")))
	page.Hidden = sortAlbums(albumsOf(items.Get("hidden")))
	page.FollowingBands = sortArtists(artistsOf(items.Get("following_bands"), dto.ParseBand))
	page.FollowingFans = sortArtists(artistsOf(items.Get("following_fans"), dto.ParseFan))
	page.Followers = sortArtists(artistsOf(items.Get("followers"), dto.ParseFan))

	return page, nil
}

// FanID returns the numeric id of handle, from the cache when known.
func (e *Extractor) FanID(ctx context.Context, handle string) (int64, error) {
	if v, ok := e.cache.Get(ctx, cache.UserIDKey(handle)); ok {
		if id, err := strconv.ParseInt(string(v), 10, 64); err == nil {
			return id, nil
		}
	}
	page, err := e.Fan(ctx, handle)
	if err != nil {
		return 0, err
	}
	if page.Fan.FanID == 0 {
		return 0, fmt.Errorf("fan %q: %w", handle, ErrNotFound)
	}
	return page.Fan.FanID, nil
}

// each iterates over the values of an array or of an id-keyed object.
func each(r gjson.Result, fn func(gjson.Result)) {
	r.ForEach(func(_, v gjson.Result) bool {
		fn(v)
		return true
	})
}

func albumsOf(r gjson.Result) []model.Album {
	var out []model.Album
	each(r, func(v gjson.Result) {
		out = append(out, dto.ParseItemAlbum(v))
	})
	return out
}

func artistsOf(r gjson.Result, parse func(gjson.Result) model.Artist) []model.Artist {
	var out []model.Artist
	each(r, func(v gjson.Result) {
		out = append(out, parse(v))
	})
	return out
}

// Tag extracts the releases listed on a tag hub page.
func (e *Extractor) Tag(ctx context.Context, slug string) ([]model.Item, error) {
	pageURL := e.cfg.BaseURL + "/tag/" + url.PathEscape(TagSlug(slug))
	return remember(ctx, e.cache, pageKey(pageURL), cache.Long, func() ([]model.Item, error) {
		doc, err := e.document(ctx, pageURL)
		if err != nil {
			return nil, err
		}
		blob, err := e.blob(doc, pageURL, "pagedata", "data-blob")
		if err != nil {
			return nil, err
		}

		var items []model.Item
		blob.Get("hub.tabs").ForEach(func(_, tab gjson.Result) bool {
			tab.Get("dig_deeper.results").ForEach(func(_, res gjson.Result) bool {
				each(res.Get("items"), func(v gjson.Result) {
					if item, ok := e.tralbumItem(ctx, v); ok {
						items = append(items, item)
					}
				})
				return true
			})
			return true
		})
		return dedupe(items), nil
	}, nonEmpty[model.Item])
}

// Discover extracts the releases of the discovery page.
func (e *Extractor) Discover(ctx context.Context) ([]model.Item, error) {
	pageURL := e.cfg.BaseURL + "/discover"
	return remember(ctx, e.cache, pageKey(pageURL), cache.Long, func() ([]model.Item, error) {
		doc, err := e.document(ctx, pageURL)
		if err != nil {
			return nil, err
		}
		blob, err := e.blob(doc, pageURL, "pagedata", "data-blob")
		if err != nil {
			return nil, err
		}

		results := blob.Get("discover_2015.initial.items")
		if !results.Exists() {
			results = blob.Get("items")
		}
		var items []model.Item
		each(results, func(v gjson.Result) {
			if item, ok := e.tralbumItem(ctx, v); ok {
				items = append(items, item)
			}
		})
		return dedupe(items), nil
	}, nonEmpty[model.Item])
}

// tralbumItem shapes a hub/discovery entry. Only album, track and merch
// entries are kept.
func (e *Extractor) tralbumItem(ctx context.Context, r gjson.Result) (model.Item, bool) {
	kind := model.ParseKind(dto.Kind(r))
	switch kind {
	case model.KindAlbum:
		album := dto.ParseItemAlbum(r)
		if featured := r.Get("featured_track"); featured.Exists() {
			album.Tracks = []model.Track{e.norm.Normalize(ctx, featured, &album)}
		}
		return model.AlbumItem(album), true
	case model.KindTrack:
		return model.TrackItem(e.norm.Normalize(ctx, r, nil)), true
	}
	return model.Item{}, false
}

// Daily lists the articles on the Bandcamp Daily front page.
func (e *Extractor) Daily(ctx context.Context) ([]model.Article, error) {
	pageURL := e.cfg.DailyURL + "/"
	return remember(ctx, e.cache, pageKey(pageURL), cache.Long, func() ([]model.Article, error) {
		doc, err := e.document(ctx, pageURL)
		if err != nil {
			return nil, err
		}

		var articles []model.Article
		seen := make(map[string]bool)
		for _, n := range findAll(doc, byClass("list-article")) {
			link := findFirst(n, byTagClass("a", "title"))
			href := attr(link, "href")
			if href == "" {
				continue
			}
			abs := resolveAgainstOrigin(pageURL, href)
			if seen[abs] {
				continue
			}
			seen[abs] = true
			articles = append(articles, model.Article{
				URL:      abs,
				Title:    text(link),
				Category: text(findFirst(n, byClass("franchise"))),
				ImageURL: imageSource(findFirst(n, byTag("img"))),
			})
		}
		if len(articles) == 0 {
			e.logger.Info("Daily page lists no articles", "url", pageURL)
			return nil, fmt.Errorf("%s: %w", pageURL, ErrNoData)
		}
		return articles, nil
	}, nonEmpty[model.Article])
}

// Article extracts the releases featured in a Bandcamp Daily article.
func (e *Extractor) Article(ctx context.Context, articleURL string) (model.Article, error) {
	return remember(ctx, e.cache, pageKey(articleURL), cache.Long, func() (model.Article, error) {
		doc, err := e.document(ctx, articleURL)
		if err != nil {
			return model.Article{}, err
		}

		article := model.Article{URL: articleURL, Title: text(findFirst(doc, byTag("h1")))}
		if article.Title == "" {
			article.Title = pageTitle(doc)
		}

		for _, el := range findAll(doc, hasAttr("data-player-infos")) {
			infos := attr(el, "data-player-infos")
			if !gjson.Valid(infos) {
				continue
			}
			each(gjson.Parse(infos), func(info gjson.Result) {
				switch model.ParseKind(dto.Kind(info)) {
				case model.KindAlbum, model.KindTrack:
				default:
					return
				}
				album := dto.ParseItemAlbum(info)
				album = e.norm.NormalizeAlbum(ctx, album, info.Get("tracklist").Array())
				article.Albums = append(article.Albums, album)
			})
		}
		if len(article.Albums) == 0 {
			e.logger.Info("Article has no players", "url", articleURL)
			return model.Article{}, fmt.Errorf("%s: %w", articleURL, ErrNoData)
		}
		return article, nil
	}, func(a model.Article) bool { return len(a.Albums) > 0 })
}

// WeeklyShow extracts a Bandcamp Weekly show from its page. It serves as
// a fallback for API.WeeklyShow.
func (e *Extractor) WeeklyShow(ctx context.Context, showID int64) (model.Show, error) {
	pageURL := fmt.Sprintf("%s/?show=%d", e.cfg.BaseURL, showID)
	return remember(ctx, e.cache, pageKey(pageURL), cache.Long, func() (model.Show, error) {
		doc, err := e.document(ctx, pageURL)
		if err != nil {
			return model.Show{}, err
		}
		blob, err := e.blob(doc, pageURL, "pagedata", "data-blob")
		if err != nil {
			return model.Show{}, err
		}

		raw := blob.Get("bcw_data." + strconv.FormatInt(showID, 10))
		if !raw.Exists() {
			e.logger.Info("Weekly page lacks show", "url", pageURL, "show", showID)
			return model.Show{}, fmt.Errorf("show %d: %w", showID, ErrNoData)
		}
		show := dto.ParseShow(raw)
		if show.ID == 0 {
			show.ID = showID
		}
		for _, t := range raw.Get("tracks").Array() {
			show.Tracks = append(show.Tracks, e.norm.Normalize(ctx, t, nil))
		}
		return show, nil
	}, func(s model.Show) bool { return len(s.Tracks) > 0 })
}

// Search extracts the search results page for query. Each result carries
// its type in a data-search attribute; unknown types are skipped.
func (e *Extractor) Search(ctx context.Context, query string) ([]model.Item, error) {
	pageURL := e.cfg.BaseURL + "/search?" + url.Values{"q": {query}, "page": {"1"}}.Encode()
	return remember(ctx, e.cache, pageKey(pageURL), cache.Long, func() ([]model.Item, error) {
		doc, err := e.document(ctx, pageURL)
		if err != nil {
			return nil, err
		}

		var items []model.Item
		for _, li := range findAll(doc, byTagClass("li", "searchresult")) {
			if item, ok := e.searchItem(ctx, li); ok {
				items = append(items, item)
			}
		}
		return items, nil
	}, nonEmpty[model.Item])
}

func (e *Extractor) searchItem(ctx context.Context, li *html.Node) (model.Item, bool) {
	meta := gjson.Parse(attr(li, "data-search"))
	id := meta.Get("id").Int()

	heading := findFirst(li, byClass("heading"))
	name := text(heading)
	itemURL := stripQuery(attr(findFirst(heading, byTag("a")), "href"))
	if u := text(findFirst(li, byClass("itemurl"))); itemURL == "" && u != "" {
		itemURL = stripQuery(u)
	}
	subhead := text(findFirst(li, byClass("subhead")))
	img := imageSource(findFirst(findFirst(li, byClass("art")), byTag("img")))

	switch model.ParseKind(meta.Get("type").String()) {
	case model.KindAlbum:
		_, artist := splitSubhead(subhead)
		return model.AlbumItem(model.Album{
			ID:           id,
			Title:        name,
			Artist:       artist,
			URL:          itemURL,
			ArtworkURL:   img,
			ThumbnailURL: img,
		}), true
	case model.KindTrack:
		album, artist := splitSubhead(subhead)
		track := e.norm.NormalizeTrack(ctx, model.Track{
			ID:           id,
			Title:        name,
			Artist:       artist,
			Album:        album,
			URL:          itemURL,
			ArtworkURL:   img,
			ThumbnailURL: img,
		}, nil)
		return model.TrackItem(track), true
	case model.KindBand:
		band := model.NewBand(id, name)
		band.URL = itemURL
		band.ImageURL = img
		band.Location = subhead
		return model.ArtistItem(band), true
	case model.KindFan:
		fan := model.NewFan(id, name)
		fan.URL = itemURL
		fan.ImageURL = img
		return model.ArtistItem(fan), true
	}
	return model.Item{}, false
}

// splitSubhead parses "from Album by Artist" and "by Artist".
func splitSubhead(s string) (album, artist string) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "from ") {
		rest := strings.TrimPrefix(s, "from ")
		if i := strings.LastIndex(rest, " by "); i >= 0 {
			return strings.TrimSpace(rest[:i]), strings.TrimSpace(rest[i+4:])
		}
		return strings.TrimSpace(rest), ""
	}
	return "", strings.TrimSpace(strings.TrimPrefix(s, "by "))
}

func stripQuery(raw string) string {
	if i := strings.IndexAny(raw, "?#"); i >= 0 {
		return raw[:i]
	}
	return raw
}

// TagSlug normalizes a tag name the way tag page URLs spell it.
func TagSlug(name string) string {
	return strings.Join(strings.Fields(strings.ToLower(name)), "-")
}
