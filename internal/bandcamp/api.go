package bandcamp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/adrg/strutil"
	"github.com/adrg/strutil/metrics"
	"github.com/handiism/bandcamp-catalog/internal/bandcamp/dto"
	"github.com/handiism/bandcamp-catalog/internal/cache"
	bchttp "github.com/handiism/bandcamp-catalog/internal/http"
	"github.com/handiism/bandcamp-catalog/internal/model"
	"github.com/samber/lo"
	"github.com/tidwall/gjson"
)

// BandMatchThreshold is the minimum Jaro-Winkler similarity FindBand
// accepts.
const BandMatchThreshold = 0.85

var doubledScheme = regexp.MustCompile(`^(?:https?://)+(https?://)`)

// API calls Bandcamp's JSON endpoints.
//
// GET requests are signed with the developer key unless the endpoint does
// not take one, and successful responses are cached under their full URL.
// User-scoped calls send the identity cookie and are never cached.
//
// Example usage:
//
//	api := NewAPI(client, c, norm, Config{DeveloperKey: key})
//	album, err := api.AlbumInfo(ctx, 12345)
//	if err != nil {
//	    return err
//	}
//	for _, t := range album.Tracks {
//	    fmt.Println(t.Number, t.Title, t.Streamable())
//	}
type API struct {
	client *bchttp.Client
	cache  *cache.Cache
	norm   *Normalizer
	cfg    Config
	logger *slog.Logger
}

// NewAPI creates an API client.
func NewAPI(client *bchttp.Client, c *cache.Cache, norm *Normalizer, cfg Config) *API {
	cfg = cfg.withDefaults()
	return &API{
		client: client,
		cache:  c,
		norm:   norm,
		cfg:    cfg,
		logger: cfg.Logger,
	}
}

// call describes how one endpoint is reached.
type call struct {
	path   string
	params url.Values
	class  cache.Class

	noKey    bool
	noCache  bool
	identity bool
}

func (a *API) url(c call) string {
	params := url.Values{}
	for k, v := range c.params {
		params[k] = v
	}
	if !c.noKey && a.cfg.DeveloperKey != "" {
		params.Set("key", a.cfg.DeveloperKey)
	}
	u := a.cfg.BaseURL + c.path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}
	return u
}

func (a *API) header(identity bool) (http.Header, error) {
	h := http.Header{}
	if identity {
		if a.cfg.IdentityToken == "" {
			return nil, ErrNoIdentity
		}
		h.Set("Cookie", IdentityCookie(a.cfg.IdentityToken))
	}
	return h, nil
}

// IdentityCookie formats the Cookie header value for an identity token.
func IdentityCookie(token string) string {
	return "identity=" + token
}

// get issues a GET call and returns the decoded body.
func (a *API) get(ctx context.Context, c call) (gjson.Result, error) {
	u := a.url(c)
	cacheable := !c.noCache && !c.identity
	if cacheable {
		if body, ok := a.cache.Get(ctx, u); ok {
			return gjson.ParseBytes(body), nil
		}
	}

	header, err := a.header(c.identity)
	if err != nil {
		return gjson.Result{}, err
	}
	resp, err := a.client.Fetch(ctx, u, header)
	if err != nil {
		return gjson.Result{}, a.transportError(c, err)
	}
	body, err := a.decode(c.path, resp)
	if err != nil {
		return gjson.Result{}, err
	}
	if cacheable {
		a.cache.Set(ctx, u, resp.Body, c.class)
	}
	return body, nil
}

// postJSON issues a JSON POST call. POST responses are not cached.
func (a *API) postJSON(ctx context.Context, c call, payload any) (gjson.Result, error) {
	header, err := a.header(c.identity)
	if err != nil {
		return gjson.Result{}, err
	}
	resp, err := a.client.PostJSON(ctx, a.cfg.BaseURL+c.path, payload, header)
	if err != nil {
		return gjson.Result{}, a.transportError(c, err)
	}
	return a.decode(c.path, resp)
}

// postForm issues a form-encoded POST call.
func (a *API) postForm(ctx context.Context, c call, values url.Values) (gjson.Result, error) {
	header, err := a.header(c.identity)
	if err != nil {
		return gjson.Result{}, err
	}
	resp, err := a.client.PostForm(ctx, a.cfg.BaseURL+c.path, values, header)
	if err != nil {
		return gjson.Result{}, a.transportError(c, err)
	}
	return a.decode(c.path, resp)
}

func (a *API) transportError(c call, err error) error {
	var se *bchttp.StatusError
	if c.identity && errors.As(err, &se) && se.Unauthorized() {
		a.logger.Warn("Identity token rejected", "endpoint", c.path, "status", se.Code)
		return fmt.Errorf("%s: %w", c.path, ErrInvalidIdentity)
	}
	a.logger.Warn("Request failed", "endpoint", c.path, "error", err)
	return err
}

// decode validates a response body. A JSON body carrying an error field
// becomes an *UpstreamError.
func (a *API) decode(endpoint string, resp *bchttp.Response) (gjson.Result, error) {
	if !gjson.ValidBytes(resp.Body) {
		a.logger.Info("Response is not JSON", "endpoint", endpoint, "content_type", resp.ContentType)
		return gjson.Result{}, fmt.Errorf("%s: %w", endpoint, ErrNoData)
	}
	body := gjson.ParseBytes(resp.Body)
	if e := body.Get("error"); e.Exists() && e.Type != gjson.False && e.Type != gjson.Null {
		msg := body.Get("error_message").String()
		if msg == "" && e.Type == gjson.String {
			msg = e.String()
		}
		if msg == "" {
			msg = "unknown error"
		}
		a.logger.Info("Upstream error", "endpoint", endpoint, "message", msg)
		return gjson.Result{}, &UpstreamError{Endpoint: endpoint, Message: msg}
	}
	return body, nil
}

// AlbumInfo returns an album with its normalized tracks.
func (a *API) AlbumInfo(ctx context.Context, albumID int64) (model.Album, error) {
	body, err := a.get(ctx, call{
		path:   "/api/album/2/info",
		params: url.Values{"album_id": {strconv.FormatInt(albumID, 10)}},
		class:  cache.Long,
	})
	if err != nil {
		return model.Album{}, err
	}
	album := dto.ParseAPIAlbum(body)
	if album.ID == 0 {
		album.ID = albumID
	}
	return a.norm.NormalizeAlbum(ctx, album, body.Get("tracks").Array()), nil
}

// TrackInfo looks up tracks by id. Upstream answers a single id with one
// record and several ids with an id-keyed object; either way the result
// maps each returned id to its normalized track.
func (a *API) TrackInfo(ctx context.Context, ids ...int64) (map[string]model.Track, error) {
	if len(ids) == 0 {
		return map[string]model.Track{}, nil
	}
	joined := strings.Join(lo.Map(ids, func(id int64, _ int) string {
		return strconv.FormatInt(id, 10)
	}), ",")

	body, err := a.get(ctx, call{
		path:   "/api/track/3/info",
		params: url.Values{"track_id": {joined}},
		class:  cache.Long,
	})
	if err != nil {
		return nil, err
	}

	out := make(map[string]model.Track)
	if body.Get("track_id").Exists() {
		t := a.norm.Normalize(ctx, body, nil)
		out[TrackKey(t)] = t
		return out, nil
	}
	body.ForEach(func(k, v gjson.Result) bool {
		if !v.IsObject() {
			return true
		}
		t := a.norm.Normalize(ctx, v, nil)
		key := TrackKey(t)
		if key == "" {
			key = k.String()
		}
		out[key] = t
		return true
	})
	return out, nil
}

// Track returns a single track.
func (a *API) Track(ctx context.Context, trackID int64) (model.Track, error) {
	tracks, err := a.TrackInfo(ctx, trackID)
	if err != nil {
		return model.Track{}, err
	}
	t, ok := tracks[strconv.FormatInt(trackID, 10)]
	if !ok {
		return model.Track{}, fmt.Errorf("track %d: %w", trackID, ErrNotFound)
	}
	return t, nil
}

// SearchBands looks up bands by name.
func (a *API) SearchBands(ctx context.Context, name string) ([]model.Artist, error) {
	body, err := a.get(ctx, call{
		path:   "/api/band/3/search",
		params: url.Values{"name": {name}},
		class:  cache.Short,
	})
	if err != nil {
		return nil, err
	}
	var bands []model.Artist
	for _, r := range body.Get("results").Array() {
		bands = append(bands, dto.ParseBand(r))
	}
	return bands, nil
}

// FindBand returns the band search result whose name is closest to name.
func (a *API) FindBand(ctx context.Context, name string) (model.Artist, error) {
	bands, err := a.SearchBands(ctx, name)
	if err != nil {
		return model.Artist{}, err
	}
	query := strings.ToLower(strings.TrimSpace(name))
	var best model.Artist
	var bestScore float64
	for _, b := range bands {
		score := strutil.Similarity(query, strings.ToLower(b.Name), metrics.NewJaroWinkler())
		if score > bestScore && score >= BandMatchThreshold {
			best, bestScore = b, score
		}
	}
	if best.BandID == 0 {
		return model.Artist{}, fmt.Errorf("band %q: %w", name, ErrNotFound)
	}
	return best, nil
}

// BandInfo returns a band's profile.
func (a *API) BandInfo(ctx context.Context, bandID int64) (model.Artist, error) {
	body, err := a.get(ctx, call{
		path:   "/api/band/3/info",
		params: url.Values{"band_id": {strconv.FormatInt(bandID, 10)}},
		class:  cache.Long,
	})
	if err != nil {
		return model.Artist{}, err
	}
	band := dto.ParseBand(body)
	if band.BandID == 0 {
		band.BandID = bandID
	}
	return band, nil
}

// Discography lists a band's releases. Entries carrying a track_id are
// standalone tracks; the rest are albums.
func (a *API) Discography(ctx context.Context, bandID int64) ([]model.Item, error) {
	body, err := a.get(ctx, call{
		path:   "/api/band/3/discography",
		params: url.Values{"band_id": {strconv.FormatInt(bandID, 10)}},
		class:  cache.Long,
	})
	if err != nil {
		return nil, err
	}

	var items []model.Item
	for _, r := range body.Get("discography").Array() {
		switch {
		case r.Get("track_id").Exists():
			items = append(items, model.TrackItem(a.norm.Normalize(ctx, r, nil)))
		case r.Get("album_id").Exists():
			items = append(items, model.AlbumItem(dto.ParseAPIAlbum(r)))
		}
	}
	return items, nil
}

// CleanURL prepares a Bandcamp URL for the resolver: a leading "www." is
// dropped, a doubled scheme collapsed, and a missing scheme set to https.
func CleanURL(raw string) string {
	u := strings.TrimSpace(raw)
	u = doubledScheme.ReplaceAllString(u, "$1")
	if !strings.Contains(u, "://") {
		u = "https://" + u
	}
	scheme, rest, _ := strings.Cut(u, "://")
	rest = strings.TrimPrefix(rest, "www.")
	return scheme + "://" + rest
}

// ResolveURL maps a Bandcamp URL to band, album and track ids.
func (a *API) ResolveURL(ctx context.Context, raw string) (model.Ref, error) {
	body, err := a.get(ctx, call{
		path:   "/api/url/1/info",
		params: url.Values{"url": {CleanURL(raw)}},
		class:  cache.Meta,
	})
	if err != nil {
		return model.Ref{}, err
	}

	ref := model.Ref{
		BandID:  body.Get("band_id").Int(),
		AlbumID: body.Get("album_id").Int(),
		TrackID: body.Get("track_id").Int(),
	}
	switch {
	case ref.TrackID != 0:
		ref.Kind = model.KindTrack
	case ref.AlbumID != 0:
		ref.Kind = model.KindAlbum
	case ref.BandID != 0:
		ref.Kind = model.KindBand
	default:
		return model.Ref{}, fmt.Errorf("url %q: %w", raw, ErrNotFound)
	}
	return ref, nil
}
