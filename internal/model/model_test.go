package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDownloadable(t *testing.T) {
	tests := []struct {
		input string
		want  Downloadable
	}{
		{"", DownloadUnknown},
		{"0", NotDownloadable},
		{"1", DownloadFree},
		{"2", DownloadPaid},
		{"free", DownloadFree},
		{"PAID", DownloadPaid},
		{"true", DownloadFree},
		{"banana", DownloadUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseDownloadable(tt.input))
		})
	}
}

func TestParseKind(t *testing.T) {
	tests := []struct {
		input string
		want  Kind
	}{
		{"a", KindAlbum},
		{"album", KindAlbum},
		{"m", KindAlbum},
		{"t", KindTrack},
		{"Track", KindTrack},
		{"b", KindBand},
		{"f", KindFan},
		{"x", KindUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseKind(tt.input))
		})
	}
}

func TestArtist_Identity(t *testing.T) {
	band := NewBand(1, "Band")
	fan := NewFan(2, "Fan")

	assert.False(t, band.IsFan())
	assert.True(t, fan.IsFan())
	assert.NoError(t, band.Validate())

	both := Artist{BandID: 1, FanID: 2}
	assert.ErrorIs(t, both.Validate(), ErrAmbiguousIdentity)
	assert.False(t, both.IsFan())
}

func TestItem_Constructors(t *testing.T) {
	assert.Equal(t, KindFan, ArtistItem(NewFan(3, "x")).Kind)
	assert.Equal(t, KindBand, ArtistItem(NewBand(3, "x")).Kind)

	failed := AlbumItem(AlbumError("HTTP 404"))
	assert.Equal(t, KindError, failed.Kind)
	assert.Equal(t, "HTTP 404", failed.Name())

	inv := InvalidIdentityItem()
	assert.True(t, inv.Failed())
	assert.True(t, inv.InvalidIdentity)

	assert.Equal(t, KindEmpty, EmptyItem().Kind)
}

func TestItem_NameAndKey(t *testing.T) {
	item := AlbumItem(Album{ID: 12, Title: "Record"})
	assert.Equal(t, "Record", item.Name())
	assert.Equal(t, "album:12", item.Key())

	item.Label = "Record (album)"
	assert.Equal(t, "Record (album)", item.Name())

	tag := TagItem(Tag{Name: "Ambient"})
	assert.Equal(t, "tag:ambient", tag.Key())
}

func TestKind_TextRoundTrip(t *testing.T) {
	text, err := KindTrack.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "track", string(text))

	var k Kind
	require.NoError(t, k.UnmarshalText([]byte("band")))
	assert.Equal(t, KindBand, k)
}

func TestMergeTrack(t *testing.T) {
	cached := Track{
		ID:           5,
		Title:        "Old Title",
		Artist:       "Artist",
		Lyrics:       "la la",
		Downloadable: DownloadPaid,
	}
	fresh := Track{
		ID:        5,
		Title:     "New Title",
		StreamURL: "https://t4.bcbits.com/stream/abc/mp3-128/5",
	}

	merged, err := MergeTrack(fresh, cached)
	require.NoError(t, err)

	assert.Equal(t, "New Title", merged.Title)
	assert.Equal(t, "Artist", merged.Artist)
	assert.Equal(t, "la la", merged.Lyrics)
	assert.Equal(t, DownloadPaid, merged.Downloadable)
	assert.Equal(t, fresh.StreamURL, merged.StreamURL)
}

func TestMergeAlbum(t *testing.T) {
	released := time.Date(2021, 3, 4, 0, 0, 0, 0, time.UTC)
	cached := Album{
		ID:          1,
		Title:       "Cached",
		ReleaseDate: released,
		Tracks:      []Track{{ID: 1}, {ID: 2}},
	}

	merged, err := MergeAlbum(Album{ID: 1, Title: "Fresh"}, cached)
	require.NoError(t, err)
	assert.Equal(t, "Fresh", merged.Title)
	assert.Equal(t, released, merged.ReleaseDate)
	assert.Len(t, merged.Tracks, 2)

	kept, err := MergeAlbum(Album{ID: 1, Tracks: []Track{{ID: 9}}}, cached)
	require.NoError(t, err)
	require.Len(t, kept.Tracks, 1)
	assert.Equal(t, int64(9), kept.Tracks[0].ID)
}

func TestMergeTrack_EmptyCachedKeepsFresh(t *testing.T) {
	fresh := Track{ID: 3, Title: "Only", Artist: "A", Downloadable: DownloadFree}

	merged, err := MergeTrack(fresh, Track{})
	require.NoError(t, err)
	assert.Equal(t, fresh, merged)
}

func TestCollectionPage_Items(t *testing.T) {
	page := CollectionPage{
		Kind:    PageArtists,
		Artists: []Artist{NewBand(1, "A"), NewBand(2, "B")},
	}
	items := page.Items()
	require.Len(t, items, 2)
	assert.Equal(t, KindBand, items[0].Kind)
}
