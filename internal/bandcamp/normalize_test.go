package bandcamp

import (
	"context"
	"testing"

	"github.com/handiism/bandcamp-catalog/internal/cache"
	"github.com/handiism/bandcamp-catalog/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

func TestStreamKey(t *testing.T) {
	tests := []struct {
		name string
		url  string
		want string
	}{
		{"id parameter", "https://bandcamp.com/stream_redirect?enc=mp3-128&id=12345&ts=99", "12345"},
		{"id parameter first", "https://bandcamp.com/stream_redirect?id=12345&enc=mp3-128", "12345"},
		{"stream segment", "https://t4.bcbits.com/stream/abc/mp3-128/67890?p=0&ts=1", "67890"},
		{"mp3 suffix", "https://example.com/music/424242.mp3", "424242"},
		{"no id", "https://example.com/music/track.ogg", ""},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StreamKey(tt.url))
		})
	}
}

func TestTrackKey(t *testing.T) {
	assert.Equal(t, "7", TrackKey(model.Track{ID: 7, StreamURL: "https://x/?id=9"}))
	assert.Equal(t, "9", TrackKey(model.Track{StreamURL: "https://x/?id=9"}))
	assert.Equal(t, "", TrackKey(model.Track{Title: "no key"}))
}

func newNormalizer() (*Normalizer, *cache.Cache) {
	c := cache.New(cache.NewMemoryStore())
	return NewNormalizer(c, nil), c
}

func TestNormalizer_BackfillsFromAlbum(t *testing.T) {
	norm, _ := newNormalizer()
	album := model.Album{
		ID:           3,
		Title:        "Album",
		Artist:       "Band",
		URL:          "https://band.bandcamp.com/album/album",
		ArtworkURL:   "https://f4.bcbits.com/img/a0000000001_10.jpg",
		ThumbnailURL: "https://f4.bcbits.com/img/a0000000001_3.jpg",
	}
	raw := gjson.Parse(`{
		"track_id": 11,
		"title": "Rock &amp; Roll",
		"track_num": 4,
		"title_link": "/track/rock-roll",
		"file": {"mp3-v0": "https://v0", "mp3-128": "https://t4.bcbits.com/stream/a/mp3-128/11?p=0"}
	}`)

	track := norm.Normalize(context.Background(), raw, &album)

	assert.Equal(t, int64(11), track.ID)
	assert.Equal(t, "Rock & Roll", track.Title)
	assert.Equal(t, 4, track.Number)
	assert.Equal(t, "Band", track.Artist)
	assert.Equal(t, "Album", track.Album)
	assert.Equal(t, int64(3), track.AlbumID)
	assert.Equal(t, album.URL, track.AlbumURL)
	assert.Equal(t, album.ArtworkURL, track.ArtworkURL)
	assert.Equal(t, "https://t4.bcbits.com/stream/a/mp3-128/11?p=0", track.StreamURL)
	assert.Equal(t, "https://band.bandcamp.com/track/rock-roll", track.URL)
}

func TestNormalizer_KeepsUnstreamableTracks(t *testing.T) {
	norm, _ := newNormalizer()
	track := norm.Normalize(context.Background(), gjson.Parse(`{"track_id": 5, "title": "Preorder", "file": null}`), nil)

	assert.Equal(t, "Preorder", track.Title)
	assert.False(t, track.Streamable())
}

func TestNormalizer_MergesCachedRecord(t *testing.T) {
	ctx := context.Background()
	norm, _ := newNormalizer()

	norm.NormalizeTrack(ctx, model.Track{ID: 20, Title: "Old", Lyrics: "words", Duration: 120}, nil)
	track := norm.NormalizeTrack(ctx, model.Track{ID: 20, Title: "New"}, nil)

	assert.Equal(t, "New", track.Title)
	assert.Equal(t, "words", track.Lyrics)
	assert.Equal(t, 120.0, track.Duration)

	cached, ok := norm.Cached(ctx, "20")
	require.True(t, ok)
	assert.Equal(t, track, cached)
}

func TestNormalizer_Idempotent(t *testing.T) {
	ctx := context.Background()
	norm, _ := newNormalizer()
	album := model.Album{ID: 1, Title: "A", Artist: "B", URL: "https://b.bandcamp.com/album/a"}

	first := norm.Normalize(ctx, gjson.Parse(`{"id": 30, "title": "T &amp; U", "track_number": 2, "streaming_url": {"mp3-128": "//t4.bcbits.com/stream/x/mp3-128/30?p=0"}, "url": "/track/t"}`), &album)
	second := norm.NormalizeTrack(ctx, first, &album)

	assert.Equal(t, first, second)
	assert.Equal(t, "T & U", second.Title)
	assert.Equal(t, "https://t4.bcbits.com/stream/x/mp3-128/30?p=0", second.StreamURL)
}

func TestNormalizer_DoubleEncodedTitleStable(t *testing.T) {
	ctx := context.Background()
	norm, _ := newNormalizer()

	first := norm.Normalize(ctx, gjson.Parse(`{"id": 31, "title": "I &amp;lt;3 you", "artist": "A &amp;amp; B"}`), nil)
	assert.Equal(t, "I &lt;3 you", first.Title)
	assert.Equal(t, "A &amp; B", first.Artist)

	second := norm.NormalizeTrack(ctx, first, nil)
	third := norm.NormalizeTrack(ctx, second, nil)
	assert.Equal(t, first, second)
	assert.Equal(t, second, third)
}

func TestNormalizer_KeyFromStreamURL(t *testing.T) {
	ctx := context.Background()
	norm, c := newNormalizer()

	norm.NormalizeTrack(ctx, model.Track{Title: "Keyed", StreamURL: "https://bandcamp.com/stream_redirect?enc=mp3-128&id=12345"}, nil)

	var cached model.Track
	assert.True(t, c.GetJSON(ctx, cache.TrackKey("12345"), &cached))
	assert.Equal(t, "Keyed", cached.Title)
}

func TestNormalizer_NoKeySkipsCache(t *testing.T) {
	ctx := context.Background()
	store := cache.NewMemoryStore()
	norm := NewNormalizer(cache.New(store), nil)

	norm.NormalizeTrack(ctx, model.Track{Title: "Anonymous"}, nil)

	assert.Equal(t, 0, store.Len())
}

func TestNormalizer_ThumbnailIndex(t *testing.T) {
	ctx := context.Background()
	norm, _ := newNormalizer()
	large := "https://f4.bcbits.com/img/a0000000009_10.jpg"

	norm.NormalizeTrack(ctx, model.Track{ID: 1, ArtworkURL: large, ThumbnailURL: "https://small/9.jpg"}, nil)

	assert.Equal(t, "https://small/9.jpg", norm.Thumbnail(ctx, large))
	assert.Equal(t, "https://f4.bcbits.com/img/a0000000008_3.jpg", norm.Thumbnail(ctx, "https://f4.bcbits.com/img/a0000000008_10.jpg"))
}

func TestNormalizer_AlbumOrder(t *testing.T) {
	norm, _ := newNormalizer()
	raws := gjson.Parse(`[
		{"track_id": 3, "track_num": 9, "title": "nine"},
		{"track_id": 1, "title": "loose"},
		{"track_id": 2, "track_num": 2, "title": "two"}
	]`).Array()

	album := norm.NormalizeAlbum(context.Background(), model.Album{Title: "A"}, raws)

	titles := make([]string, 0, len(album.Tracks))
	for _, tr := range album.Tracks {
		titles = append(titles, tr.Title)
	}
	assert.Equal(t, []string{"two", "nine", "loose"}, titles)
}
