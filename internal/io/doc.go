// Package ioutils provides file system and image helpers for saved tracks.
//
// # File names
//
// Path templates such as "{artist}/{album}" are expanded with Expand, which
// sanitizes every value with SanitizeFileName:
//
//	dir := ioutils.Expand("/music/{artist}/{album}", map[string]string{
//	    "artist": "AC/DC",
//	    "album":  "Live...",
//	})
//	// "/music/AC_DC/Live"
//
// Playlists and covers are written with WriteFileAtomic.
//
// # Cover art
//
// ImageService shrinks covers and converts them to JPEG before they are
// saved next to the tracks or embedded in their tags:
//
//	svc := ioutils.NewImageService()
//	cover, err := svc.Prepare(data, ioutils.CoverOptions{MaxSize: 1000, JPEG: true})
package ioutils
