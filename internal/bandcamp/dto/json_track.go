package dto

import (
	"github.com/handiism/bandcamp-catalog/internal/artwork"
	"github.com/handiism/bandcamp-catalog/internal/model"
	"github.com/tidwall/gjson"
)

// ParseTrack reads a raw track fragment. Bandcamp spells the same field
// differently depending on where the fragment came from (album pages,
// track info, feeds, weekly shows, collections), so each field is looked
// up under every known name.
//
// The result is only partially shaped; run it through the normalizer
// before handing it out.
func ParseTrack(r gjson.Result) model.Track {
	t := model.Track{
		ID:           num(r, "track_id", "id", "audio_track_id", "featured_track.id", "tralbum_id", "item_id"),
		Title:        text(r, "title", "track_title", "featured_track_title", "item_title", "name"),
		Artist:       text(r, "artist", "band_name", "artist_name"),
		Album:        text(r, "album_title", "album", "tralbum_title"),
		AlbumID:      num(r, "album_id"),
		AlbumURL:     absoluteScheme(str(r, "album_url", "tralbum_url")),
		BandID:       num(r, "band_id"),
		URL:          absoluteScheme(str(r, "title_link", "track_url", "url")),
		StreamURL:    SelectStream(first(r, "file", "streaming_url", "stream_url", "audio_url", "featured_track.file")),
		Number:       int(num(r, "track_num", "track_number", "number", "tracknum")),
		Duration:     first(r, "duration", "audio_track_duration").Float(),
		ArtID:        num(r, "art_id", "track_art_id", "item_art_id", "album_art_id"),
		ArtworkURL:   str(r, "large_art_url", "art_url", "item_art_url"),
		ThumbnailURL: str(r, "small_art_url"),
		Downloadable: model.ParseDownloadable(str(r, "downloadable", "is_downloadable")),
		Lyrics:       str(r, "lyrics"),
		About:        str(r, "about"),
		Credits:      str(r, "credits"),
	}
	if t.ArtworkURL == "" && t.ArtID != 0 {
		t.ArtworkURL = artwork.URL(t.ArtID, artwork.Large)
	}
	if t.ThumbnailURL == "" && t.ArtID != 0 {
		t.ThumbnailURL = artwork.URL(t.ArtID, artwork.Thumbnail)
	}
	return t
}
