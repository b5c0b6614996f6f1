package audio

import (
	"encoding/xml"
	"fmt"
	"io"
	"strings"

	"github.com/handiism/bandcamp-catalog/internal/model"
)

// PlaylistFormat is a playlist file format.
type PlaylistFormat int

const (
	FormatM3U PlaylistFormat = iota
	FormatPLS
	FormatWPL // Windows Media Player
	FormatZPL // Zune
)

var formatNames = map[PlaylistFormat]string{
	FormatM3U: "m3u",
	FormatPLS: "pls",
	FormatWPL: "wpl",
	FormatZPL: "zpl",
}

// ParseFormat maps a settings value to a format. The empty string means
// M3U.
func ParseFormat(name string) (PlaylistFormat, error) {
	name = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(name), "."))
	if name == "" {
		return FormatM3U, nil
	}
	for f, n := range formatNames {
		if n == name {
			return f, nil
		}
	}
	return FormatM3U, fmt.Errorf("unknown playlist format %q", name)
}

// Extension returns the file extension, with the dot.
func (f PlaylistFormat) Extension() string {
	return "." + f.String()
}

func (f PlaylistFormat) String() string {
	if n, ok := formatNames[f]; ok {
		return n
	}
	return "m3u"
}

// Entry is one playlist line. Location is a file name relative to the
// playlist or a stream URL.
type Entry struct {
	Location string
	Title    string
	Artist   string
	Album    string

	// Duration in seconds.
	Duration float64
}

// Playlist is a titled list of entries.
type Playlist struct {
	Title   string
	Entries []Entry
}

// StreamPlaylist lists the streamable tracks of albums by their stream URL.
// Tracks without one are skipped.
func StreamPlaylist(title string, albums []model.Album) Playlist {
	pl := Playlist{Title: title}
	for _, a := range albums {
		for _, t := range a.StreamableTracks() {
			pl.Entries = append(pl.Entries, TrackEntry(t, t.StreamURL))
		}
	}
	return pl
}

// TrackEntry describes t stored at location.
func TrackEntry(t model.Track, location string) Entry {
	return Entry{
		Location: location,
		Title:    t.Title,
		Artist:   t.Artist,
		Album:    t.Album,
		Duration: t.Duration,
	}
}

// PlaylistWriter renders playlists in one format.
//
//	w := NewPlaylistWriter(FormatM3U, true)
//	err := w.Write(os.Stdout, pl)
//
//	// #EXTM3U
//	// #EXTINF:180,Artist - Song Title
//	// 01 Artist - Song Title.mp3
type PlaylistWriter struct {
	format PlaylistFormat

	// extended adds #EXTINF lines to M3U output.
	extended bool
}

func NewPlaylistWriter(format PlaylistFormat, extended bool) *PlaylistWriter {
	return &PlaylistWriter{format: format, extended: extended}
}

// Format returns the format the writer renders.
func (p *PlaylistWriter) Format() PlaylistFormat {
	return p.format
}

// Write renders pl to w.
func (p *PlaylistWriter) Write(w io.Writer, pl Playlist) error {
	switch p.format {
	case FormatPLS:
		return writePLS(w, pl)
	case FormatWPL:
		return writeSMIL(w, pl, `<?wpl version="1.0"?>`, false)
	case FormatZPL:
		return writeSMIL(w, pl, `<?zpl version="2.0"?>`, true)
	}
	return p.writeM3U(w, pl)
}

// String renders pl and returns it.
func (p *PlaylistWriter) String(pl Playlist) string {
	var sb strings.Builder
	_ = p.Write(&sb, pl)
	return sb.String()
}

func (p *PlaylistWriter) writeM3U(w io.Writer, pl Playlist) error {
	var sb strings.Builder
	if p.extended {
		sb.WriteString("#EXTM3U\n")
		if pl.Title != "" {
			fmt.Fprintf(&sb, "#PLAYLIST:%s\n", pl.Title)
		}
	}
	for _, e := range pl.Entries {
		if p.extended {
			fmt.Fprintf(&sb, "#EXTINF:%d,%s\n", int(e.Duration), displayName(e))
		}
		sb.WriteString(e.Location + "\n")
	}
	_, err := io.WriteString(w, sb.String())
	return err
}

func writePLS(w io.Writer, pl Playlist) error {
	var sb strings.Builder
	sb.WriteString("[playlist]\n")
	for i, e := range pl.Entries {
		n := i + 1
		fmt.Fprintf(&sb, "File%d=%s\n", n, e.Location)
		fmt.Fprintf(&sb, "Title%d=%s\n", n, displayName(e))
		fmt.Fprintf(&sb, "Length%d=%d\n", n, int(e.Duration))
	}
	fmt.Fprintf(&sb, "NumberOfEntries=%d\nVersion=2\n", len(pl.Entries))
	_, err := io.WriteString(w, sb.String())
	return err
}

type smilMeta struct {
	Name    string `xml:"name,attr"`
	Content string `xml:"content,attr"`
}

type smilMedia struct {
	Src         string `xml:"src,attr"`
	AlbumTitle  string `xml:"albumTitle,attr,omitempty"`
	AlbumArtist string `xml:"albumArtist,attr,omitempty"`
	TrackTitle  string `xml:"trackTitle,attr,omitempty"`
	TrackArtist string `xml:"trackArtist,attr,omitempty"`
	Duration    int64  `xml:"duration,attr,omitempty"`
}

type smil struct {
	XMLName xml.Name    `xml:"smil"`
	Title   string      `xml:"head>title"`
	Meta    []smilMeta  `xml:"head>meta"`
	Media   []smilMedia `xml:"body>seq>media"`
}

// writeSMIL renders the XML shared by WPL and ZPL. ZPL also carries track
// metadata on every media element.
func writeSMIL(w io.Writer, pl Playlist, header string, detailed bool) error {
	doc := smil{Title: pl.Title}
	if detailed {
		doc.Meta = []smilMeta{
			{Name: "Generator", Content: "bandcamp-catalog"},
			{Name: "ItemCount", Content: fmt.Sprint(len(pl.Entries))},
		}
	}
	for _, e := range pl.Entries {
		m := smilMedia{Src: e.Location}
		if detailed {
			m.AlbumTitle = e.Album
			m.AlbumArtist = e.Artist
			m.TrackTitle = e.Title
			m.TrackArtist = e.Artist
			m.Duration = int64(e.Duration * 1000)
		}
		doc.Media = append(doc.Media, m)
	}

	if _, err := io.WriteString(w, header+"\n"); err != nil {
		return err
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return err
	}
	_, err := io.WriteString(w, "\n")
	return err
}

func displayName(e Entry) string {
	if e.Artist == "" {
		return e.Title
	}
	return e.Artist + " - " + e.Title
}
