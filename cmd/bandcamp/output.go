package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/goccy/go-json"

	"github.com/handiism/bandcamp-catalog/internal/model"
)

func printItems(w io.Writer, items []model.Item, asJSON bool) error {
	if asJSON {
		if items == nil {
			items = []model.Item{}
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(items)
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, it := range items {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", it.Kind, it.Name(), detail(it))
	}
	return tw.Flush()
}

func detail(it model.Item) string {
	switch {
	case it.InvalidIdentity:
		return "set a valid identity token with: bandcamp login <handle> <token>"
	case it.Track != nil:
		if it.Track.StreamURL == "" {
			return it.Track.URL
		}
		return it.Track.StreamURL
	case it.Album != nil:
		return it.Album.URL
	case it.Artist != nil:
		return it.Artist.URL
	case it.Tag != nil:
		return it.Tag.URL
	case it.Show != nil:
		return fmt.Sprintf("id=%d", it.Show.ID)
	case it.Article != nil:
		return it.Article.URL
	}
	return it.Message
}
