package bandcamp

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"time"

	"github.com/handiism/bandcamp-catalog/internal/bandcamp/dto"
	"github.com/handiism/bandcamp-catalog/internal/model"
	"github.com/tidwall/gjson"
)

const (
	// FeedLimit caps the number of feed entries gathered across pages.
	FeedLimit = 100

	// DefaultPageSize is the page size of fan collection calls.
	DefaultPageSize = 20
)

// collectionRequest is the body of the fancollection endpoints.
type collectionRequest struct {
	FanID          int64  `json:"fan_id"`
	OlderThanToken string `json:"older_than_token"`
	Count          int    `json:"count"`
}

// FirstPageToken returns the pagination token that starts from the newest
// entry.
func FirstPageToken(now time.Time) string {
	return fmt.Sprintf("%d::a::", now.Unix())
}

// CollectionItems returns a page of the fan's purchased releases. An empty
// token starts from the newest purchase.
func (a *API) CollectionItems(ctx context.Context, fanID int64, token string, count int) (model.CollectionPage, error) {
	return a.collectionPage(ctx, "/api/fancollection/1/collection_items", model.PageAlbums, fanID, token, count)
}

// Wishlist returns a page of the fan's wishlist.
func (a *API) Wishlist(ctx context.Context, fanID int64, token string, count int) (model.CollectionPage, error) {
	return a.collectionPage(ctx, "/api/fancollection/1/wishlist_items", model.PageAlbums, fanID, token, count)
}

// FollowingBands returns a page of the bands the fan follows.
func (a *API) FollowingBands(ctx context.Context, fanID int64, token string, count int) (model.CollectionPage, error) {
	return a.collectionPage(ctx, "/api/fancollection/1/following_bands", model.PageArtists, fanID, token, count)
}

func (a *API) collectionPage(ctx context.Context, path string, kind model.PageKind, fanID int64, token string, count int) (model.CollectionPage, error) {
	if token == "" {
		token = FirstPageToken(time.Now())
	}
	if count <= 0 {
		count = DefaultPageSize
	}

	body, err := a.postJSON(ctx, call{path: path, identity: a.cfg.IdentityToken != ""}, collectionRequest{
		FanID:          fanID,
		OlderThanToken: token,
		Count:          count,
	})
	if err != nil {
		return model.CollectionPage{}, err
	}

	page := model.CollectionPage{
		Kind:      kind,
		LastToken: body.Get("last_token").String(),
		More:      body.Get("more_available").Bool(),
	}
	entries := body.Get("items")
	if !entries.Exists() {
		entries = body.Get("followeds")
	}
	for _, r := range entries.Array() {
		switch kind {
		case model.PageArtists:
			page.Artists = append(page.Artists, dto.ParseBand(r))
		default:
			album := dto.ParseItemAlbum(r)
			if model.ParseKind(dto.Kind(r)) == model.KindTrack {
				album.Tracks = []model.Track{a.norm.Normalize(ctx, r, nil)}
			}
			page.Albums = append(page.Albums, album)
		}
	}
	if !page.More {
		page.LastToken = ""
	}
	return page, nil
}

// Feed returns the fan's activity feed, newest first. Pages are fetched one
// after the other, each starting below the oldest story date of the last,
// until a page comes back without entries or FeedLimit entries are held.
func (a *API) Feed(ctx context.Context, fanID int64) ([]model.Item, error) {
	var items []model.Item
	olderThan := strconv.FormatInt(time.Now().Unix(), 10)

	for len(items) < FeedLimit {
		body, err := a.postForm(ctx, call{path: "/fan_dash_feed_updates", identity: true}, url.Values{
			"fan_id":     {strconv.FormatInt(fanID, 10)},
			"older_than": {olderThan},
		})
		if err != nil {
			if len(items) > 0 {
				a.logger.Warn("Feed page failed, returning partial feed", "fan_id", fanID, "error", err)
				break
			}
			return nil, err
		}

		page := a.feedPage(ctx, body)
		if len(page) == 0 {
			break
		}
		items = append(items, page...)

		next := body.Get("stories.oldest_story_date")
		if !next.Exists() || next.String() == "" || next.String() == olderThan {
			break
		}
		olderThan = next.String()
	}

	items = dedupe(items)
	if len(items) > FeedLimit {
		items = items[:FeedLimit]
	}
	return items, nil
}

// feedPage shapes one feed page. Each story references its featured track
// in the page's track list.
func (a *API) feedPage(ctx context.Context, body gjson.Result) []model.Item {
	tracks := make(map[int64]gjson.Result)
	for _, t := range body.Get("track_list").Array() {
		tracks[t.Get("track_id").Int()] = t
	}

	var items []model.Item
	for _, story := range body.Get("stories.entries").Array() {
		album := dto.ParseItemAlbum(story)
		featured, hasTrack := tracks[story.Get("featured_track").Int()]

		switch model.ParseKind(dto.Kind(story)) {
		case model.KindTrack:
			raw := story
			if hasTrack {
				raw = featured
			}
			t := a.norm.Normalize(ctx, raw, &album)
			if t.ID == 0 {
				t.ID = album.ID
			}
			items = append(items, model.TrackItem(t))
		case model.KindAlbum:
			if hasTrack {
				album.Tracks = []model.Track{a.norm.Normalize(ctx, featured, &album)}
			}
			items = append(items, model.AlbumItem(album))
		}
	}
	return items
}

// CollectionSummary is the identity-scoped summary of the caller's
// collection.
type CollectionSummary struct {
	FanID    int64
	Username string

	// AlbumIDs holds the albums whose purchased flag is absent or false,
	// in ascending order.
	AlbumIDs []int64
}

// CollectionSummary fetches the summary of the fan owning the identity
// token. It is never cached.
func (a *API) CollectionSummary(ctx context.Context) (CollectionSummary, error) {
	body, err := a.get(ctx, call{
		path:     "/api/fan/2/collection_summary",
		noKey:    true,
		noCache:  true,
		identity: true,
	})
	if err != nil {
		return CollectionSummary{}, err
	}

	summary := CollectionSummary{
		FanID:    body.Get("fan_id").Int(),
		Username: body.Get("collection_summary.username").String(),
	}
	body.Get("collection_summary.tralbum_lookup").ForEach(func(_, v gjson.Result) bool {
		if model.ParseKind(v.Get("item_type").String()) != model.KindAlbum {
			return true
		}
		if v.Get("purchased").Bool() {
			return true
		}
		if id := v.Get("item_id").Int(); id != 0 {
			summary.AlbumIDs = append(summary.AlbumIDs, id)
		}
		return true
	})
	sort.Slice(summary.AlbumIDs, func(i, j int) bool { return summary.AlbumIDs[i] < summary.AlbumIDs[j] })
	return summary, nil
}
