package bandcamp

import (
	"context"
	"log/slog"
	"net/url"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/handiism/bandcamp-catalog/internal/artwork"
	"github.com/handiism/bandcamp-catalog/internal/bandcamp/dto"
	"github.com/handiism/bandcamp-catalog/internal/cache"
	"github.com/handiism/bandcamp-catalog/internal/model"
	"github.com/tidwall/gjson"
)

var (
	streamIDParam   = regexp.MustCompile(`[?&]id=(\d+)`)
	streamIDSegment = regexp.MustCompile(`/stream/[^?]*/(\d+)\?`)
	streamIDFile    = regexp.MustCompile(`(\d+)\.mp3$`)
)

// StreamKey derives a track key from a streaming URL. It returns "" when
// the URL carries no recognizable id.
//
// Recognized forms, in order:
//
//	https://bandcamp.com/stream_redirect?enc=mp3-128&id=12345  -> 12345
//	https://t4.bcbits.com/stream/abc/mp3-128/12345?p=0          -> 12345
//	https://example.com/music/12345.mp3                          -> 12345
func StreamKey(streamURL string) string {
	for _, re := range []*regexp.Regexp{streamIDParam, streamIDSegment, streamIDFile} {
		if m := re.FindStringSubmatch(streamURL); m != nil {
			return m[1]
		}
	}
	return ""
}

// TrackKey is the stable cache key of t: its upstream id, else the key
// derived from its streaming URL.
func TrackKey(t model.Track) string {
	if t.ID != 0 {
		return strconv.FormatInt(t.ID, 10)
	}
	return StreamKey(t.StreamURL)
}

// Normalizer shapes partial track records into canonical tracks and keeps
// them in the cache under the Meta class.
//
// Example:
//
//	norm := NewNormalizer(c, nil)
//	track := norm.Normalize(ctx, gjson.Parse(fragment), &album)
//	if !track.Streamable() {
//	    fmt.Println("listed but not playable:", track.Title)
//	}
type Normalizer struct {
	cache  *cache.Cache
	logger *slog.Logger
}

// NewNormalizer creates a Normalizer. A nil logger uses slog.Default().
func NewNormalizer(c *cache.Cache, logger *slog.Logger) *Normalizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Normalizer{cache: c, logger: logger}
}

// Normalize shapes a raw upstream track fragment. album may be nil.
func (n *Normalizer) Normalize(ctx context.Context, raw gjson.Result, album *model.Album) model.Track {
	return n.NormalizeTrack(ctx, dto.ParseTrack(raw), album)
}

// NormalizeTrack runs the canonical shaping on t:
//  1. backfill artist, album, artwork and album URL from album
//  2. merge the cached record for the track key, fresh fields winning
//  3. index the small thumbnail by the large artwork URL
//  4. resolve a relative track URL against the album URL origin
//  5. cache the result under the track key
//
// Entity decoding, stream selection and track number aliases are handled
// when the raw fragment is parsed. NormalizeTrack never fails; a track without a key is
// returned without touching the cache.
func (n *Normalizer) NormalizeTrack(ctx context.Context, t model.Track, album *model.Album) model.Track {
	t.Title = strings.TrimSpace(t.Title)
	t.Artist = strings.TrimSpace(t.Artist)

	if album != nil {
		if t.Artist == "" {
			t.Artist = album.Artist
		}
		if t.Album == "" {
			t.Album = album.Title
		}
		if t.AlbumID == 0 {
			t.AlbumID = album.ID
		}
		if t.BandID == 0 {
			t.BandID = album.BandID
		}
		if t.AlbumURL == "" {
			t.AlbumURL = album.URL
		}
		if t.ArtID == 0 {
			t.ArtID = album.ArtID
		}
		if t.ArtworkURL == "" {
			t.ArtworkURL = album.ArtworkURL
		}
		if t.ThumbnailURL == "" {
			t.ThumbnailURL = album.ThumbnailURL
		}
	}
	if t.ArtworkURL == "" && t.ArtID != 0 {
		t.ArtworkURL = artwork.URL(t.ArtID, artwork.Large)
	}

	key := TrackKey(t)
	if key != "" {
		var cached model.Track
		if n.cache.GetJSON(ctx, cache.TrackKey(key), &cached) {
			merged, err := model.MergeTrack(t, cached)
			if err != nil {
				n.logger.Warn("Failed to merge cached track", "key", key, "error", err)
			}
			t = merged
		}
	}

	if t.ThumbnailURL != "" && t.ArtworkURL != "" && t.ThumbnailURL != t.ArtworkURL {
		n.cache.Set(ctx, cache.ThumbnailKey(t.ArtworkURL), []byte(t.ThumbnailURL), cache.Meta)
	}

	if t.URL != "" && t.AlbumURL != "" {
		t.URL = resolveAgainstOrigin(t.AlbumURL, t.URL)
	}

	if key != "" {
		n.cache.SetJSON(ctx, cache.TrackKey(key), t, cache.Meta)
	} else {
		n.logger.Debug("Track has no key, not caching", "title", t.Title)
	}

	return t
}

// NormalizeAlbum normalizes every raw track in album context, ordering the
// result by track number.
func (n *Normalizer) NormalizeAlbum(ctx context.Context, album model.Album, raws []gjson.Result) model.Album {
	tracks := make([]model.Track, 0, len(raws))
	for _, raw := range raws {
		tracks = append(tracks, n.Normalize(ctx, raw, &album))
	}
	album.Tracks = sortTracks(tracks)
	return album
}

// Cached returns the cached record for a track key.
func (n *Normalizer) Cached(ctx context.Context, key string) (model.Track, bool) {
	var t model.Track
	if key == "" {
		return t, false
	}
	ok := n.cache.GetJSON(ctx, cache.TrackKey(key), &t)
	return t, ok
}

// Thumbnail returns the small artwork variant for a large artwork URL,
// from the side index when known, else by rewriting the rendition.
func (n *Normalizer) Thumbnail(ctx context.Context, artworkURL string) string {
	if small, ok := n.cache.Get(ctx, cache.ThumbnailKey(artworkURL)); ok {
		return string(small)
	}
	return artwork.Resize(artworkURL, artwork.Thumbnail)
}

// resolveAgainstOrigin makes ref absolute using the scheme and host of base.
func resolveAgainstOrigin(base, ref string) string {
	r, err := url.Parse(ref)
	if err != nil || r.IsAbs() {
		return ref
	}
	b, err := url.Parse(base)
	if err != nil || b.Host == "" {
		return ref
	}
	origin := &url.URL{Scheme: b.Scheme, Host: b.Host, Path: "/"}
	return origin.ResolveReference(r).String()
}

// sortTracks orders tracks by number; tracks without a number keep their
// relative position after numbered ones.
func sortTracks(tracks []model.Track) []model.Track {
	out := make([]model.Track, len(tracks))
	copy(out, tracks)
	sort.SliceStable(out, func(i, j int) bool {
		return trackLess(out[i], out[j])
	})
	return out
}

func trackLess(a, b model.Track) bool {
	switch {
	case a.Number == 0:
		return false
	case b.Number == 0:
		return true
	}
	return a.Number < b.Number
}
