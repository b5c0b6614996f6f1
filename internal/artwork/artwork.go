package artwork

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

const (
	baseURL   = "https://f4.bcbits.com/img/"
	albumMark = "a"
	idWidth   = 10
)

// Size is a Bandcamp image rendition code.
type Size int

const (
	Original       Size = 0
	LargeThumbnail Size = 2 // 350x350
	Thumbnail      Size = 3 // 100x100
	Medium         Size = 5 // 700x700
	Small          Size = 7 // 150x150
	Large          Size = 10
	Banner         Size = 16
)

// DefaultSize is used when a size class is not recognized.
const DefaultSize = LargeThumbnail

var sizeNames = map[string]Size{
	"original":        Original,
	"full":            Original,
	"large_thumbnail": LargeThumbnail,
	"large_thumb":     LargeThumbnail,
	"thumbnail":       Thumbnail,
	"thumb":           Thumbnail,
	"medium":          Medium,
	"small":           Small,
	"large":           Large,
	"banner":          Banner,
}

// ParseSize maps a size class name to a rendition. Unknown names return
// DefaultSize.
func ParseSize(name string) Size {
	if s, ok := sizeNames[strings.ToLower(strings.TrimSpace(name))]; ok {
		return s
	}
	return DefaultSize
}

// URL returns the album artwork URL for artID at the requested size.
// The id is zero-padded to ten digits. Any id is templated; callers that
// have no art skip the call.
func URL(artID int64, size Size) string {
	return URLFromString(strconv.FormatInt(artID, 10), size)
}

// ImageURL returns the band or fan image URL for imageID.
func ImageURL(imageID int64, size Size) string {
	return fmt.Sprintf("%s%s_%d.jpg", baseURL, pad(strconv.FormatInt(imageID, 10)), size)
}

// URLFromString is URL for ids that arrive as strings. The trimmed input
// is padded and templated whether or not it is numeric.
func URLFromString(artID string, size Size) string {
	return fmt.Sprintf("%s%s%s_%d.jpg", baseURL, albumMark, pad(strings.TrimSpace(artID)), size)
}

func pad(id string) string {
	if len(id) >= idWidth {
		return id
	}
	return strings.Repeat("0", idWidth-len(id)) + id
}

var renditionRe = regexp.MustCompile(`^(.*/img/a?\d+)_\d+(\.\w+)$`)

// Resize rewrites the rendition suffix of an existing bcbits image URL.
// URLs that do not look like bcbits images are returned unchanged.
func Resize(imageURL string, size Size) string {
	m := renditionRe.FindStringSubmatch(imageURL)
	if m == nil {
		return imageURL
	}
	return fmt.Sprintf("%s_%d%s", m[1], size, m[2])
}
