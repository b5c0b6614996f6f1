package dto

import (
	"html"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/handiism/bandcamp-catalog/internal/artwork"
	"github.com/handiism/bandcamp-catalog/internal/model"
	"github.com/tidwall/gjson"
)

// JSONAlbum represents the data-tralbum blob embedded in album and track
// pages.
type JSONAlbum struct {
	ID          int64             `json:"id"`
	URL         string            `json:"url"`
	ItemType    string            `json:"item_type"`
	AlbumData   *JSONAlbumData    `json:"current"`
	ArtID       *int64            `json:"art_id"`
	Artist      string            `json:"artist"`
	AlbumURL    string            `json:"album_url"`
	ReleaseDate *BandcampTime     `json:"album_release_date"`
	Tracks      []json.RawMessage `json:"trackinfo"`
}

// JSONAlbumData contains album metadata.
type JSONAlbumData struct {
	ID           int64         `json:"id"`
	BandID       int64         `json:"band_id"`
	AlbumTitle   string        `json:"title"`
	About        string        `json:"about"`
	Credits      string        `json:"credits"`
	DownloadPref *int          `json:"download_pref"`
	ReleaseDate  *BandcampTime `json:"release_date"`
	PublishDate  *BandcampTime `json:"publish_date"`
}

// ParseJSONAlbum decodes a data-tralbum blob.
func ParseJSONAlbum(data []byte) (*JSONAlbum, error) {
	var ja JSONAlbum
	if err := json.Unmarshal(data, &ja); err != nil {
		return nil, err
	}
	return &ja, nil
}

// IsTrack reports whether the blob describes a single track page.
func (ja *JSONAlbum) IsTrack() bool {
	return strings.EqualFold(ja.ItemType, "track")
}

// ToAlbum converts the album-level fields. Tracks are left to the caller,
// which normalizes each entry of RawTracks in album context.
func (ja *JSONAlbum) ToAlbum() model.Album {
	album := model.Album{
		Artist: strings.TrimSpace(html.UnescapeString(ja.Artist)),
		URL:    absoluteScheme(ja.URL),
	}

	if ja.ArtID != nil && *ja.ArtID != 0 {
		album.ArtID = *ja.ArtID
		album.ArtworkURL = artwork.URL(*ja.ArtID, artwork.Large)
		album.ThumbnailURL = artwork.URL(*ja.ArtID, artwork.Thumbnail)
	}

	// Determine release date with fallbacks
	var releaseDate time.Time
	if ja.ReleaseDate != nil {
		releaseDate = ja.ReleaseDate.Time
	} else if ja.AlbumData != nil && ja.AlbumData.ReleaseDate != nil {
		releaseDate = ja.AlbumData.ReleaseDate.Time
	} else if ja.AlbumData != nil && ja.AlbumData.PublishDate != nil {
		releaseDate = ja.AlbumData.PublishDate.Time
	}
	album.ReleaseDate = releaseDate

	if ja.AlbumData != nil {
		album.ID = ja.AlbumData.ID
		album.BandID = ja.AlbumData.BandID
		album.Title = strings.TrimSpace(html.UnescapeString(ja.AlbumData.AlbumTitle))
		album.About = strings.TrimSpace(ja.AlbumData.About)
		album.Credits = strings.TrimSpace(ja.AlbumData.Credits)
		if ja.AlbumData.DownloadPref != nil {
			album.Downloadable = model.ParseDownloadable(strconv.Itoa(*ja.AlbumData.DownloadPref))
		}
	}
	if album.ID == 0 {
		album.ID = ja.ID
	}

	return album
}

// RawTracks returns the trackinfo entries for gjson-based parsing.
func (ja *JSONAlbum) RawTracks() []gjson.Result {
	tracks := make([]gjson.Result, 0, len(ja.Tracks))
	for _, raw := range ja.Tracks {
		tracks = append(tracks, gjson.ParseBytes(raw))
	}
	return tracks
}

// ParseAPIAlbum reads an /api/album/2/info response.
func ParseAPIAlbum(r gjson.Result) model.Album {
	album := model.Album{
		ID:           num(r, "album_id"),
		Title:        text(r, "title"),
		Artist:       text(r, "artist", "band_name"),
		BandID:       num(r, "band_id"),
		URL:          absoluteScheme(str(r, "url")),
		ArtID:        num(r, "art_id"),
		ArtworkURL:   str(r, "large_art_url"),
		ThumbnailURL: str(r, "small_art_url"),
		ReleaseDate:  timeOf(first(r, "release_date")),
		About:        str(r, "about"),
		Credits:      str(r, "credits"),
		Downloadable: model.ParseDownloadable(str(r, "downloadable")),
	}
	fillArtwork(&album)
	return album
}

// ParseItemAlbum reads the album-like entries of fan collections, feeds,
// tag hubs, discovery and daily players.
func ParseItemAlbum(r gjson.Result) model.Album {
	album := model.Album{
		ID:          num(r, "album_id", "tralbum_id", "item_id", "id"),
		Title:       text(r, "album_title", "item_title", "title", "primary_text"),
		Artist:      text(r, "band_name", "artist", "secondary_text"),
		BandID:      num(r, "band_id"),
		URL:         absoluteScheme(str(r, "item_url", "tralbum_url", "url")),
		ArtID:       num(r, "item_art_id", "art_id", "album_art_id"),
		ReleaseDate: timeOf(first(r, "release_date", "publish_date")),
		AddedAt:     timeOf(first(r, "added", "purchased", "story_date")),
	}
	if album.URL == "" {
		album.URL = urlFromHints(r.Get("url_hints"))
	}
	fillArtwork(&album)
	return album
}

func fillArtwork(album *model.Album) {
	if album.ArtworkURL == "" && album.ArtID != 0 {
		album.ArtworkURL = artwork.URL(album.ArtID, artwork.Large)
	}
	if album.ThumbnailURL == "" && album.ArtID != 0 {
		album.ThumbnailURL = artwork.URL(album.ArtID, artwork.Thumbnail)
	}
}

// urlFromHints rebuilds an item URL from discovery url_hints.
func urlFromHints(h gjson.Result) string {
	sub, slug := h.Get("subdomain").String(), h.Get("slug").String()
	if sub == "" || slug == "" {
		return ""
	}
	kind := "album"
	if model.ParseKind(h.Get("item_type").String()) == model.KindTrack {
		kind = "track"
	}
	host := sub + ".bandcamp.com"
	if custom := h.Get("custom_domain").String(); custom != "" {
		host = custom
	}
	return "https://" + host + "/" + kind + "/" + slug
}
