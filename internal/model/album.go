package model

import (
	"strconv"
	"time"
)

// Album represents a Bandcamp release with its metadata and tracks.
//
// An Album with a non-empty Error is an error record: the page or API call
// it came from failed (for example an HTTP 404) and no other field is
// meaningful. Hosts render it as a message instead of a release.
//
// Example:
//
//	album, _ := extractor.Album(ctx, "https://artist.bandcamp.com/album/name")
//	if album.Failed() {
//	    fmt.Println("error:", album.Error)
//	    return
//	}
//	for _, track := range album.Tracks {
//	    fmt.Printf("%02d %s\n", track.Number, track.Title)
//	}
type Album struct {
	ID     int64  `json:"id,omitempty"`
	Title  string `json:"title,omitempty"`
	Artist string `json:"artist,omitempty"`
	BandID int64  `json:"band_id,omitempty"`

	// URL is the absolute album page URL.
	URL string `json:"url,omitempty"`

	ArtID        int64  `json:"art_id,omitempty"`
	ArtworkURL   string `json:"artwork_url,omitempty"`
	ThumbnailURL string `json:"thumbnail_url,omitempty"`

	// ReleaseDate is when the album was released. Zero when unknown.
	ReleaseDate time.Time `json:"release_date,omitempty"`

	// AddedAt is when the album entered a fan's collection or wishlist.
	AddedAt time.Time `json:"added_at,omitempty"`

	About        string       `json:"about,omitempty"`
	Credits      string       `json:"credits,omitempty"`
	Downloadable Downloadable `json:"downloadable,omitempty"`

	// Tracks contains the normalized tracks of the album, in album order.
	Tracks []Track `json:"tracks,omitempty"`

	// Error is set on error records only.
	Error string `json:"error,omitempty"`
}

// AlbumError returns an error record carrying msg.
func AlbumError(msg string) Album {
	return Album{Error: msg}
}

// Failed reports whether a is an error record.
func (a Album) Failed() bool {
	return a.Error != ""
}

// HasArtwork returns true if the album has cover art available for download.
func (a Album) HasArtwork() bool {
	return a.ArtworkURL != ""
}

// IDString returns the album id as a string, or "" when absent.
func (a Album) IDString() string {
	if a.ID == 0 {
		return ""
	}
	return strconv.FormatInt(a.ID, 10)
}

// StreamableTracks returns the tracks that carry a streaming URL.
func (a Album) StreamableTracks() []Track {
	var tracks []Track
	for _, t := range a.Tracks {
		if t.Streamable() {
			tracks = append(tracks, t)
		}
	}
	return tracks
}
