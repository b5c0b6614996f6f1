package download

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/handiism/bandcamp-catalog/internal/audio"
	ioutils "github.com/handiism/bandcamp-catalog/internal/io"
	"github.com/handiism/bandcamp-catalog/internal/model"
)

// Layout turns albums and tracks into file paths. Formats use the
// placeholders {artist}, {album}, {title}, {tracknum}, {year}, {month} and
// {day}; every value is sanitized before it is substituted.
type Layout struct {
	// DownloadsPath is the album directory template.
	DownloadsPath string

	FileNameFormat         string
	CoverArtFileNameFormat string
	PlaylistFileNameFormat string
	PlaylistFormat         audio.PlaylistFormat
}

func albumValues(album model.Album) map[string]string {
	v := map[string]string{
		"artist": album.Artist,
		"album":  album.Title,
		"year":   "",
		"month":  "",
		"day":    "",
	}
	if !album.ReleaseDate.IsZero() {
		v["year"] = album.ReleaseDate.Format("2006")
		v["month"] = album.ReleaseDate.Format("01")
		v["day"] = album.ReleaseDate.Format("02")
	}
	return v
}

// AlbumDir is the directory album is saved to.
func (l Layout) AlbumDir(album model.Album) string {
	// Expand sanitizes values only, so separators in the template survive.
	return filepath.Clean(ioutils.Expand(l.DownloadsPath, albumValues(album)))
}

// TrackPath is where track of album is saved.
func (l Layout) TrackPath(album model.Album, track model.Track) string {
	v := albumValues(album)
	v["title"] = track.Title
	v["tracknum"] = fmt.Sprintf("%02d", track.Number)
	if track.Artist != "" {
		v["artist"] = track.Artist
	}
	name := ioutils.Expand(l.FileNameFormat, v)
	if !strings.HasSuffix(strings.ToLower(name), ".mp3") {
		name += ".mp3"
	}
	return filepath.Join(l.AlbumDir(album), name)
}

// CoverPath is where the cover of album is saved.
func (l Layout) CoverPath(album model.Album) string {
	return filepath.Join(l.AlbumDir(album), ioutils.Expand(l.CoverArtFileNameFormat, albumValues(album))+".jpg")
}

// PlaylistPath is where the playlist of album is saved.
func (l Layout) PlaylistPath(album model.Album) string {
	name := ioutils.Expand(l.PlaylistFileNameFormat, albumValues(album))
	return filepath.Join(l.AlbumDir(album), name+l.PlaylistFormat.Extension())
}
