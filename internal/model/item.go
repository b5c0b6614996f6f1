package model

import (
	"fmt"
	"strings"
)

// Kind identifies which payload an Item carries.
type Kind int

const (
	KindUnknown Kind = iota
	KindAlbum
	KindTrack
	KindBand
	KindFan
	KindTag
	KindShow
	KindArticle
	KindError
	KindEmpty
	KindQuery
)

var kindNames = map[Kind]string{
	KindUnknown: "unknown",
	KindAlbum:   "album",
	KindTrack:   "track",
	KindBand:    "band",
	KindFan:     "fan",
	KindTag:     "tag",
	KindShow:    "show",
	KindArticle: "article",
	KindError:   "error",
	KindEmpty:   "empty",
	KindQuery:   "query",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// MarshalText encodes the kind by name.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText accepts any spelling understood by ParseKind.
func (k *Kind) UnmarshalText(text []byte) error {
	*k = ParseKind(string(text))
	return nil
}

// ParseKind maps an upstream item type tag to a Kind.
//
// Bandcamp uses single letters in most payloads ("a", "t", "b", "f") and
// full words in others. Merch and package entries describe a release and
// map to KindAlbum. Anything else is KindUnknown.
func ParseKind(s string) Kind {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "a", "album", "m", "merch", "p", "package":
		return KindAlbum
	case "t", "track":
		return KindTrack
	case "b", "band", "artist", "label":
		return KindBand
	case "f", "fan":
		return KindFan
	case "tag", "genre":
		return KindTag
	case "show":
		return KindShow
	case "article":
		return KindArticle
	case "error":
		return KindError
	case "empty":
		return KindEmpty
	case "query":
		return KindQuery
	}
	return KindUnknown
}

// Tag is a Bandcamp genre/tag.
type Tag struct {
	Name string `json:"name"`
	// Slug is the normalized form used in tag page URLs.
	Slug string `json:"slug,omitempty"`
	URL  string `json:"url,omitempty"`
}

// Item is one entry of a result list.
//
// Kind determines the payload: Album for KindAlbum, Track for KindTrack,
// Artist for KindBand and KindFan, Tag, Show or Article for their kinds,
// and Message for KindError and KindEmpty.
type Item struct {
	Kind Kind `json:"kind"`

	// Label overrides the display name derived from the payload.
	Label string `json:"label,omitempty"`

	Album   *Album   `json:"album,omitempty"`
	Track   *Track   `json:"track,omitempty"`
	Artist  *Artist  `json:"artist,omitempty"`
	Tag     *Tag     `json:"tag,omitempty"`
	Show    *Show    `json:"show,omitempty"`
	Article *Article `json:"article,omitempty"`

	Message string `json:"message,omitempty"`

	// InvalidIdentity marks an error caused by a rejected identity token.
	InvalidIdentity bool `json:"invalid_identity,omitempty"`
}

func AlbumItem(a Album) Item {
	if a.Failed() {
		return ErrorItem(a.Error)
	}
	return Item{Kind: KindAlbum, Album: &a}
}

func TrackItem(t Track) Item {
	return Item{Kind: KindTrack, Track: &t}
}

// ArtistItem returns a KindFan or KindBand item depending on a's identity.
func ArtistItem(a Artist) Item {
	if a.IsFan() {
		return Item{Kind: KindFan, Artist: &a}
	}
	return Item{Kind: KindBand, Artist: &a}
}

func TagItem(t Tag) Item {
	return Item{Kind: KindTag, Tag: &t}
}

func ShowItem(s Show) Item {
	return Item{Kind: KindShow, Show: &s}
}

func ArticleItem(a Article) Item {
	return Item{Kind: KindArticle, Article: &a}
}

// ErrorItem returns an error record carrying msg.
func ErrorItem(msg string) Item {
	return Item{Kind: KindError, Message: msg}
}

// InvalidIdentityItem is returned when upstream rejects the identity token.
func InvalidIdentityItem() Item {
	return Item{
		Kind:            KindError,
		Message:         "invalid identity token",
		InvalidIdentity: true,
	}
}

// EmptyItem is the placeholder returned for empty results.
func EmptyItem() Item {
	return Item{Kind: KindEmpty, Message: "empty"}
}

// QueryItem is a past search query.
func QueryItem(q string) Item {
	return Item{Kind: KindQuery, Label: q}
}

// Name returns the display name of the item.
func (i Item) Name() string {
	if i.Label != "" {
		return i.Label
	}
	switch i.Kind {
	case KindAlbum:
		if i.Album != nil {
			return i.Album.Title
		}
	case KindTrack:
		if i.Track != nil {
			return i.Track.Title
		}
	case KindBand, KindFan:
		if i.Artist != nil {
			return i.Artist.Name
		}
	case KindTag:
		if i.Tag != nil {
			return i.Tag.Name
		}
	case KindShow:
		if i.Show != nil {
			return i.Show.Title
		}
	case KindArticle:
		if i.Article != nil {
			return i.Article.Title
		}
	}
	return i.Message
}

// Key identifies the item for de-duplication. Items without an id or URL
// fall back to kind plus display name.
func (i Item) Key() string {
	switch {
	case i.Album != nil && i.Album.ID != 0:
		return fmt.Sprintf("album:%d", i.Album.ID)
	case i.Album != nil && i.Album.URL != "":
		return "album:" + i.Album.URL
	case i.Track != nil && i.Track.ID != 0:
		return fmt.Sprintf("track:%d", i.Track.ID)
	case i.Track != nil && i.Track.URL != "":
		return "track:" + i.Track.URL
	case i.Artist != nil && i.Artist.FanID != 0:
		return fmt.Sprintf("fan:%d", i.Artist.FanID)
	case i.Artist != nil && i.Artist.BandID != 0:
		return fmt.Sprintf("band:%d", i.Artist.BandID)
	case i.Tag != nil:
		return "tag:" + strings.ToLower(i.Tag.Name)
	case i.Show != nil && i.Show.ID != 0:
		return fmt.Sprintf("show:%d", i.Show.ID)
	case i.Article != nil:
		return "article:" + i.Article.URL
	}
	return i.Kind.String() + ":" + strings.ToLower(i.Name())
}

// Failed reports whether the item is an error record.
func (i Item) Failed() bool {
	return i.Kind == KindError
}
