package bandcamp

import (
	"context"

	"github.com/handiism/bandcamp-catalog/internal/bandcamp/dto"
	"github.com/handiism/bandcamp-catalog/internal/model"
)

// Search filters of the autocomplete endpoint.
const (
	FilterAll   = ""
	FilterBands = "b"
	FilterFans  = "f"
)

// autocompleteRequest is the body of the public search endpoint.
type autocompleteRequest struct {
	SearchText   string `json:"search_text"`
	SearchFilter string `json:"search_filter"`
	FullPage     bool   `json:"full_page"`
	FanID        *int64 `json:"fan_id"`
}

type tagSearchRequest struct {
	SearchTerm string `json:"search_term"`
	Count      int    `json:"count"`
}

// Autocomplete queries Bandcamp's search-as-you-type endpoint with filter.
func (a *API) Autocomplete(ctx context.Context, query, filter string) ([]model.Item, error) {
	body, err := a.postJSON(ctx, call{path: "/api/bcsearch_public_api/1/autocomplete_elastic"}, autocompleteRequest{
		SearchText:   query,
		SearchFilter: filter,
	})
	if err != nil {
		return nil, err
	}

	var items []model.Item
	for _, r := range body.Get("auto.results").Array() {
		switch model.ParseKind(r.Get("type").String()) {
		case model.KindAlbum:
			items = append(items, model.AlbumItem(dto.ParseItemAlbum(r)))
		case model.KindTrack:
			items = append(items, model.TrackItem(a.norm.Normalize(ctx, r, nil)))
		case model.KindBand:
			items = append(items, model.ArtistItem(dto.ParseBand(r)))
		case model.KindFan:
			items = append(items, model.ArtistItem(dto.ParseFan(r)))
		}
	}
	return items, nil
}

// SearchFans returns fan accounts matching query.
func (a *API) SearchFans(ctx context.Context, query string) ([]model.Item, error) {
	return a.Autocomplete(ctx, query, FilterFans)
}

// SearchTags returns tags whose name matches query.
func (a *API) SearchTags(ctx context.Context, query string) ([]model.Item, error) {
	body, err := a.postJSON(ctx, call{path: "/api/fansignup/1/search_tag"}, tagSearchRequest{
		SearchTerm: query,
		Count:      20,
	})
	if err != nil {
		return nil, err
	}

	var items []model.Item
	for _, r := range body.Get("matching_tags").Array() {
		name := r.Get("tag_name").String()
		if name == "" {
			continue
		}
		slug := r.Get("tag_norm_name").String()
		if slug == "" {
			slug = TagSlug(name)
		}
		items = append(items, model.TagItem(model.Tag{
			Name: name,
			Slug: slug,
			URL:  a.cfg.BaseURL + "/tag/" + slug,
		}))
	}
	return items, nil
}
