package bandcamp

import (
	"fmt"
	"html"
	"regexp"
	"strings"

	"github.com/handiism/bandcamp-catalog/internal/model"
)

var (
	urlConcat = regexp.MustCompile(`(url: ".+)" \+ "(.+",)`)
	htmlTag   = regexp.MustCompile(`<[^>]*>`)
	errTitle  = regexp.MustCompile(`(?i)\b404\b|not found|page not available`)
)

// extractAlbumData extracts the data-tralbum JSON string from HTML.
//
// Bandcamp embeds album data in the HTML like this:
//
//	<script ... data-tralbum="{...JSON...}">
//
// This function finds and extracts that JSON, then HTML-unescapes it
// (since the JSON is embedded in an HTML attribute, characters like
// quotes are escaped as &quot;).
func extractAlbumData(htmlContent string) (string, error) {
	const startString = `data-tralbum="{`
	const stopString = `}"`

	startIndex := strings.Index(htmlContent, startString)
	if startIndex == -1 {
		return "", fmt.Errorf("could not find album data in HTML")
	}

	startIndex += len(startString) - 1 // Include the opening brace
	remaining := htmlContent[startIndex:]

	endIndex := strings.Index(remaining, stopString)
	if endIndex == -1 {
		return "", fmt.Errorf("could not find end of album data")
	}

	albumData := remaining[:endIndex+1]
	return html.UnescapeString(albumData), nil
}

// fixJSON fixes malformed JSON from Bandcamp pages.
//
// Some Bandcamp pages have JavaScript-style URL concatenation in the JSON:
//
//	url: "http://example.bandcamp.com" + "/album/name",
//
// This is not valid JSON, so we fix it by removing the concatenation.
func fixJSON(albumData string) string {
	return urlConcat.ReplaceAllString(albumData, "${1}${2}")
}

// isErrorPage reports whether title looks like Bandcamp's not-found page.
func isErrorPage(title string) bool {
	return errTitle.MatchString(title)
}

// extractLyrics fills track Lyrics from the "lyrics_row_N" elements.
func extractLyrics(htmlContent string, album *model.Album) {
	for i := range album.Tracks {
		track := &album.Tracks[i]
		if track.Lyrics != "" || track.Number == 0 {
			continue
		}

		lyricsID := fmt.Sprintf(`id="lyrics_row_%d"`, track.Number)
		startIdx := strings.Index(htmlContent, lyricsID)
		if startIdx == -1 {
			continue
		}

		remaining := htmlContent[startIdx:]
		contentStart := strings.Index(remaining, ">")
		if contentStart == -1 {
			continue
		}

		contentEnd := strings.Index(remaining[contentStart:], "</div>")
		if contentEnd == -1 {
			continue
		}

		lyricsHTML := remaining[contentStart+1 : contentStart+contentEnd]
		lyrics := htmlTag.ReplaceAllString(lyricsHTML, "")
		track.Lyrics = strings.TrimSpace(html.UnescapeString(lyrics))
	}
}
