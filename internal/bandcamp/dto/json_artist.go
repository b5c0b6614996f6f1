package dto

import (
	"github.com/handiism/bandcamp-catalog/internal/artwork"
	"github.com/handiism/bandcamp-catalog/internal/model"
	"github.com/tidwall/gjson"
)

// ParseBand reads a band record from band search, band info, followed
// bands and discovery payloads.
func ParseBand(r gjson.Result) model.Artist {
	a := model.NewBand(num(r, "band_id", "id"), str(r, "name", "band_name"))
	a.Handle = str(r, "subdomain", "url_hints.subdomain")
	a.URL = absoluteScheme(str(r, "url", "item_url", "band_url"))
	if a.URL == "" && a.Handle != "" {
		a.URL = "https://" + a.Handle + ".bandcamp.com"
	}
	a.ImageID = num(r, "image_id", "art_id", "img_id")
	a.ImageURL = str(r, "image_url", "img")
	if a.ImageURL == "" && a.ImageID != 0 {
		a.ImageURL = artwork.ImageURL(a.ImageID, artwork.Thumbnail)
	}
	a.Location = str(r, "location")
	a.OffsiteURL = str(r, "offsite_url")
	a.Bio = str(r, "bio")
	return a
}

// ParseFan reads a fan record from fan pages and fan search results.
func ParseFan(r gjson.Result) model.Artist {
	a := model.NewFan(num(r, "fan_id", "id"), str(r, "name"))
	a.Handle = str(r, "username")
	a.URL = absoluteScheme(str(r, "trackpipe_url", "url", "item_url"))
	if a.URL == "" && a.Handle != "" {
		a.URL = "https://bandcamp.com/" + a.Handle
	}
	if a.Name == "" {
		a.Name = a.Handle
	}
	a.ImageID = num(r, "image_id", "img_id")
	a.ImageURL = str(r, "image_url", "img")
	if a.ImageURL == "" && a.ImageID != 0 {
		a.ImageURL = artwork.ImageURL(a.ImageID, artwork.Thumbnail)
	}
	a.Location = str(r, "location")
	a.Bio = str(r, "bio")
	return a
}

// ParseShow reads a weekly show from the list or detail endpoint.
func ParseShow(r gjson.Result) model.Show {
	s := model.Show{
		ID:          num(r, "id", "show_id"),
		Title:       str(r, "title", "subtitle"),
		Subtitle:    str(r, "subtitle"),
		Description: str(r, "desc", "short_desc"),
		Date:        timeOf(first(r, "date", "published_date")),
		ImageID:     num(r, "show_image_id", "image_id"),
		StreamURL:   SelectStream(first(r, "audio_stream", "audio_url")),
	}
	if s.ImageID != 0 {
		s.ImageURL = artwork.ImageURL(s.ImageID, artwork.Medium)
	}
	return s
}
