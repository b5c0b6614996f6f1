package bandcamp

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/handiism/bandcamp-catalog/internal/bandcamp/dto"
	"github.com/handiism/bandcamp-catalog/internal/cache"
	"github.com/handiism/bandcamp-catalog/internal/model"
	"github.com/tidwall/gjson"
	"golang.org/x/net/html"
)

// ErrNoAlbumFound is returned when a band page links no album or track.
var ErrNoAlbumFound = errors.New("no album found on page")

// ErrManyAlbums is returned when a single-release page links more than one
// album.
var ErrManyAlbums = errors.New("found multiple album URLs, expected exactly one")

var (
	releaseLink = regexp.MustCompile(`(/(?:album|track)/[^"&?#\s]+)(?:"|&quot;)`)
	albumHref   = regexp.MustCompile(`href="(/album/[^"?#]+)"`)
)

// Discography finds release links on a band's /music page.
//
// Two page shapes exist:
//  1. a grid listing every release
//  2. a band with a single release, whose /music page is the album page
//     itself (it carries a "discography" sidebar)
//
// Example usage:
//
//	disco := NewDiscography()
//	paths, err := disco.ReleasePaths(musicPageHTML)
//	if errors.Is(err, ErrNoAlbumFound) {
//	    fmt.Println("Band has no published music")
//	}
type Discography struct{}

// NewDiscography creates a new Discography.
func NewDiscography() *Discography {
	return &Discography{}
}

// ReleasePaths returns the distinct relative release paths on a music page,
// like "/album/name" or "/track/name", in sorted order.
func (d *Discography) ReleasePaths(musicPageHTML string) ([]string, error) {
	if d.isSingleRelease(musicPageHTML) {
		path, err := d.singleAlbumPath(musicPageHTML)
		if err != nil {
			return nil, err
		}
		return []string{path}, nil
	}

	paths := uniqueMatches(releaseLink, musicPageHTML)
	if len(paths) == 0 {
		return nil, ErrNoAlbumFound
	}
	return paths, nil
}

// ReleaseURLs is ReleasePaths made absolute against bandURL.
func (d *Discography) ReleaseURLs(bandURL, musicPageHTML string) ([]string, error) {
	paths, err := d.ReleasePaths(musicPageHTML)
	if err != nil {
		return nil, err
	}
	urls := make([]string, 0, len(paths))
	for _, p := range paths {
		urls = append(urls, resolveAgainstOrigin(bandURL, p))
	}
	return urls, nil
}

func (d *Discography) isSingleRelease(page string) bool {
	return strings.Contains(page, `div id="discography"`)
}

func (d *Discography) singleAlbumPath(page string) (string, error) {
	paths := uniqueMatches(albumHref, page)
	switch len(paths) {
	case 0:
		return "", ErrNoAlbumFound
	case 1:
		return paths[0], nil
	}
	return "", ErrManyAlbums
}

func uniqueMatches(re *regexp.Regexp, s string) []string {
	set := make(map[string]struct{})
	for _, m := range re.FindAllStringSubmatch(s, -1) {
		set[m[1]] = struct{}{}
	}
	out := make([]string, 0, len(set))
	for p := range set {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// BandPage extracts a band's /music page: name, location, bio, image and
// the release grid. When the grid cannot be read the release links found
// by Discography are returned as bare albums carrying only their URL.
func (e *Extractor) BandPage(ctx context.Context, bandURL string) (model.BandPage, error) {
	bandURL = strings.TrimRight(bandURL, "/")
	pageURL := bandURL + "/music"
	return remember(ctx, e.cache, pageKey(pageURL), cache.Long, func() (model.BandPage, error) {
		body, err := e.fetch(ctx, pageURL)
		if err != nil {
			return model.BandPage{}, err
		}
		doc, err := parseHTML(body)
		if err != nil {
			return model.BandPage{}, fmt.Errorf("%s: %w", pageURL, ErrNoData)
		}

		page := model.BandPage{Band: e.bandHeader(doc, bandURL)}
		page.Releases = e.releaseGrid(doc, bandURL, page.Band)
		if len(page.Releases) > 0 {
			return page, nil
		}

		urls, err := e.disco.ReleaseURLs(bandURL, string(body))
		if err != nil {
			e.logger.Info("Band page lists no releases", "url", pageURL, "error", err)
			return model.BandPage{}, fmt.Errorf("%s: %w", pageURL, ErrNoData)
		}
		for _, u := range urls {
			page.Releases = append(page.Releases, model.Album{URL: u, Artist: page.Band.Name, BandID: page.Band.BandID})
		}
		return page, nil
	}, func(p model.BandPage) bool { return len(p.Releases) > 0 })
}

func (e *Extractor) bandHeader(doc *html.Node, bandURL string) model.Artist {
	var band model.Artist
	if raw := attr(findFirst(doc, hasAttr("data-band")), "data-band"); gjson.Valid(raw) {
		band = dto.ParseBand(gjson.Parse(raw))
	}

	header := findFirst(doc, byID("band-name-location"))
	if name := text(findFirst(header, byClass("title"))); name != "" {
		band.Name = name
	}
	if loc := text(findFirst(header, byClass("location"))); loc != "" {
		band.Location = loc
	}
	if bio := text(findFirst(doc, byID("bio-text"))); bio != "" {
		band.Bio = bio
	}
	if img := imageSource(findFirst(findFirst(doc, byID("bio-container")), byTag("img"))); img != "" {
		band.ImageURL = img
	}
	if band.Name == "" {
		band.Name = pageTitle(doc)
	}
	band.URL = bandURL
	return band
}

func (e *Extractor) releaseGrid(doc *html.Node, bandURL string, band model.Artist) []model.Album {
	var albums []model.Album
	for _, li := range findAll(doc, byTagClass("li", "music-grid-item")) {
		link := findFirst(li, byTag("a"))
		href := attr(link, "href")
		if href == "" {
			continue
		}
		title := findFirst(li, byClass("title"))
		album := model.Album{
			ID:     gridItemID(attr(li, "data-item-id")),
			Title:  text(title),
			Artist: band.Name,
			BandID: band.BandID,
			URL:    resolveAgainstOrigin(bandURL+"/", href),
		}
		// Compilations credit the artist under the title.
		if artist := text(findFirst(title, byClass("artist-override"))); artist != "" {
			album.Artist = artist
			album.Title = strings.TrimSpace(strings.TrimSuffix(album.Title, artist))
		}
		img := imageSource(findFirst(li, byTag("img")))
		album.ArtworkURL, album.ThumbnailURL = img, img
		albums = append(albums, album)
	}
	return albums
}

// gridItemID parses "album-123" and "track-123".
func gridItemID(v string) int64 {
	id, _ := strconv.ParseInt(v[strings.LastIndex(v, "-")+1:], 10, 64)
	return id
}
