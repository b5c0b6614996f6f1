package model

import (
	"strconv"
	"strings"
)

// Downloadable describes whether a track or album can be downloaded.
//
// Upstream reports it as 0/1/2, as "free"/"paid", or as a boolean.
// The zero value means the upstream did not say.
type Downloadable int

const (
	DownloadUnknown Downloadable = iota
	NotDownloadable
	DownloadFree
	DownloadPaid
)

// ParseDownloadable converts an upstream downloadable marker.
//
// Example:
//
//	ParseDownloadable("2")    // DownloadPaid
//	ParseDownloadable("free") // DownloadFree
//	ParseDownloadable("")     // DownloadUnknown
func ParseDownloadable(v string) Downloadable {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "":
		return DownloadUnknown
	case "0", "false", "none", "no":
		return NotDownloadable
	case "1", "free", "true":
		return DownloadFree
	case "2", "paid":
		return DownloadPaid
	}
	return DownloadUnknown
}

func (d Downloadable) String() string {
	switch d {
	case NotDownloadable:
		return "none"
	case DownloadFree:
		return "free"
	case DownloadPaid:
		return "paid"
	default:
		return ""
	}
}

// Track is the canonical record for a single Bandcamp track.
//
// Every field is optional. A track without a StreamURL is listed but not
// playable; ID is zero when the upstream payload did not carry one.
//
// Track values are produced by the normalizer in the bandcamp package and
// are safe to cache: the JSON encoding round-trips every field.
type Track struct {
	// ID is the upstream track id.
	ID int64 `json:"id,omitempty"`

	// Title is the track title.
	Title string `json:"title,omitempty"`

	// Artist is the performing artist, falling back to the album artist.
	Artist string `json:"artist,omitempty"`

	// Album is the title of the release the track belongs to.
	Album string `json:"album,omitempty"`

	AlbumID  int64  `json:"album_id,omitempty"`
	AlbumURL string `json:"album_url,omitempty"`
	BandID   int64  `json:"band_id,omitempty"`

	// URL is the absolute track page URL.
	URL string `json:"url,omitempty"`

	// StreamURL is the selected streaming URL, preferring 128kbps mp3.
	StreamURL string `json:"stream_url,omitempty"`

	// Number is the 1-indexed position in the album.
	Number     int `json:"number,omitempty"`
	DiscNumber int `json:"disc_number,omitempty"`

	// Duration is the track length in seconds.
	Duration float64 `json:"duration,omitempty"`

	ArtID        int64  `json:"art_id,omitempty"`
	ArtworkURL   string `json:"artwork_url,omitempty"`
	ThumbnailURL string `json:"thumbnail_url,omitempty"`

	Downloadable Downloadable `json:"downloadable,omitempty"`

	Lyrics  string `json:"lyrics,omitempty"`
	About   string `json:"about,omitempty"`
	Credits string `json:"credits,omitempty"`
}

// Streamable reports whether the track carries a streaming URL.
func (t Track) Streamable() bool {
	return t.StreamURL != ""
}

// IDString returns the track id as a string, or "" when absent.
func (t Track) IDString() string {
	if t.ID == 0 {
		return ""
	}
	return strconv.FormatInt(t.ID, 10)
}

// DisplayName returns "Artist - Title" when the artist is known.
func (t Track) DisplayName() string {
	if t.Artist == "" {
		return t.Title
	}
	return t.Artist + " - " + t.Title
}
