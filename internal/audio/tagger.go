package audio

import (
	"errors"
	"os"
	"strconv"

	"github.com/bogem/id3v2"
	"github.com/handiism/bandcamp-catalog/internal/model"
)

// TagAction says what happens to one ID3 frame.
type TagAction int

const (
	// TagKeep leaves the frame as the file has it.
	TagKeep TagAction = iota
	// TagSet writes the value from Bandcamp.
	TagSet
	// TagClear removes the frame.
	TagClear
)

// TagConfig holds the action for each frame the tagger knows about.
type TagConfig struct {
	Artist      TagAction // TPE1
	AlbumArtist TagAction // TPE2
	Album       TagAction // TALB
	Title       TagAction // TIT2
	Year        TagAction // TYER
	Date        TagAction // TDRC
	TrackNumber TagAction // TRCK
	DiscNumber  TagAction // TPOS
	Lyrics      TagAction // USLT
	Comments    TagAction // COMM
	Genre       TagAction // TCON
}

// DefaultTagConfig sets every frame Bandcamp knows about and clears
// comments and genre.
func DefaultTagConfig() TagConfig {
	return TagConfig{
		Artist:      TagSet,
		AlbumArtist: TagSet,
		Album:       TagSet,
		Title:       TagSet,
		Year:        TagSet,
		Date:        TagSet,
		TrackNumber: TagSet,
		DiscNumber:  TagSet,
		Lyrics:      TagSet,
		Comments:    TagClear,
		Genre:       TagClear,
	}
}

// Tagger writes ID3v2 tags to saved MP3 files.
//
//	tagger := NewTagger(DefaultTagConfig())
//	err := tagger.Write(path, track, album, cover)
type Tagger struct {
	config TagConfig
}

func NewTagger(config TagConfig) *Tagger {
	return &Tagger{config: config}
}

type textFrame struct {
	id     string
	action TagAction
	value  string
}

// Write tags the file at path with track and album. A non-nil cover
// replaces any attached front cover. Empty values are never written.
func (t *Tagger) Write(path string, track model.Track, album model.Album, cover []byte) error {
	tag, err := id3v2.Open(path, id3v2.Options{Parse: true})
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return err
		}
		tag = id3v2.NewEmptyTag()
	}
	defer tag.Close()

	t.apply(tag, track, album)
	if cover != nil {
		tag.DeleteFrames(tag.CommonID("Attached picture"))
		tag.AddAttachedPicture(id3v2.PictureFrame{
			Encoding:    id3v2.EncodingUTF8,
			MimeType:    "image/jpeg",
			PictureType: id3v2.PTFrontCover,
			Description: "Cover",
			Picture:     cover,
		})
	}
	return tag.Save()
}

func (t *Tagger) apply(tag *id3v2.Tag, track model.Track, album model.Album) {
	tag.SetDefaultEncoding(id3v2.EncodingUTF8)

	artist := track.Artist
	if artist == "" {
		artist = album.Artist
	}
	var year, date, number, disc string
	if !album.ReleaseDate.IsZero() {
		year = album.ReleaseDate.Format("2006")
		date = album.ReleaseDate.Format("2006-01-02")
	}
	if track.Number > 0 {
		number = strconv.Itoa(track.Number)
	}
	if track.DiscNumber > 0 {
		disc = strconv.Itoa(track.DiscNumber)
	}
	albumTitle := album.Title
	if albumTitle == "" {
		albumTitle = track.Album
	}

	frames := []textFrame{
		{"TPE1", t.config.Artist, artist},
		{"TPE2", t.config.AlbumArtist, album.Artist},
		{"TALB", t.config.Album, albumTitle},
		{"TIT2", t.config.Title, track.Title},
		{"TYER", t.config.Year, year},
		{"TDRC", t.config.Date, date},
		{"TRCK", t.config.TrackNumber, number},
		{"TPOS", t.config.DiscNumber, disc},
		{"TCON", t.config.Genre, ""},
	}
	for _, f := range frames {
		switch f.action {
		case TagClear:
			tag.DeleteFrames(f.id)
		case TagSet:
			if f.value != "" {
				tag.DeleteFrames(f.id)
				tag.AddTextFrame(f.id, tag.DefaultEncoding(), f.value)
			}
		}
	}

	lyrics := tag.CommonID("Unsynchronised lyrics/text transcription")
	switch t.config.Lyrics {
	case TagClear:
		tag.DeleteFrames(lyrics)
	case TagSet:
		if track.Lyrics != "" {
			tag.DeleteFrames(lyrics)
			tag.AddUnsynchronisedLyricsFrame(id3v2.UnsynchronisedLyricsFrame{
				Encoding: id3v2.EncodingUTF8,
				Language: "eng",
				Lyrics:   track.Lyrics,
			})
		}
	}

	if t.config.Comments == TagClear {
		tag.DeleteFrames(tag.CommonID("Comments"))
	}
}
