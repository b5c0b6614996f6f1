package bandcamp

import (
	"sort"
	"strings"

	"github.com/handiism/bandcamp-catalog/internal/model"
	"github.com/samber/lo"
)

func sortAlbums(albums []model.Album) []model.Album {
	sort.SliceStable(albums, func(i, j int) bool {
		return strings.ToLower(albums[i].Title) < strings.ToLower(albums[j].Title)
	})
	return albums
}

func sortArtists(artists []model.Artist) []model.Artist {
	sort.SliceStable(artists, func(i, j int) bool {
		return strings.ToLower(artists[i].Name) < strings.ToLower(artists[j].Name)
	})
	return artists
}

func sortItems(items []model.Item) []model.Item {
	sort.SliceStable(items, func(i, j int) bool {
		return strings.ToLower(items[i].Name()) < strings.ToLower(items[j].Name())
	})
	return items
}

// dedupe drops items whose key was already seen, keeping the first.
func dedupe(items []model.Item) []model.Item {
	return lo.UniqBy(items, func(it model.Item) string {
		return it.Key()
	})
}
