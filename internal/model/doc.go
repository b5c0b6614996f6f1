// Package model defines the canonical records shared by every layer of
// bandcamp-catalog.
//
// Upstream Bandcamp data arrives in many shapes (API JSON, HTML-embedded
// JSON blobs, search page fragments). Everything is converted once into the
// types of this package, so callers never deal with raw payloads.
//
// # Records
//
//	track := model.Track{ID: 42, Title: "Song", StreamURL: mp3URL}
//	album := model.Album{ID: 7, Title: "Record", Tracks: []model.Track{track}}
//	band := model.NewBand(99, "Artist")
//	fan := model.NewFan(1234, "listener")
//
// # Items
//
// Item is a tagged union used for every result list returned to a host.
// Its Kind says which payload field is set:
//
//	items := []model.Item{
//	    model.AlbumItem(album),
//	    model.TrackItem(track),
//	    model.ErrorItem("upstream unavailable"),
//	}
//
// A failed request always yields a single KindError item and an empty
// result yields a single KindEmpty placeholder.
package model
