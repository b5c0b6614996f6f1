package model

import "time"

// PageKind tells what a CollectionPage holds.
type PageKind int

const (
	PageAlbums PageKind = iota
	PageArtists
)

// CollectionPage is one page of a fan's collection, wishlist or followed
// bands. LastToken continues pagination; it is empty on the last page.
type CollectionPage struct {
	Kind      PageKind `json:"kind"`
	Albums    []Album  `json:"albums,omitempty"`
	Artists   []Artist `json:"artists,omitempty"`
	LastToken string   `json:"last_token,omitempty"`
	More      bool     `json:"more,omitempty"`
}

// Items converts the page to result items.
func (p CollectionPage) Items() []Item {
	items := make([]Item, 0, len(p.Albums)+len(p.Artists))
	for _, a := range p.Albums {
		items = append(items, AlbumItem(a))
	}
	for _, a := range p.Artists {
		items = append(items, ArtistItem(a))
	}
	return items
}

// FanPage bundles a fan's identity with the sub-collections embedded in
// their profile page. Any of the lists may be empty.
type FanPage struct {
	Fan            Artist   `json:"fan"`
	Collection     []Album  `json:"collection,omitempty"`
	Wishlist       []Album  `json:"wishlist,omitempty"`
	Hidden         []Album  `json:"hidden,omitempty"`
	FollowingBands []Artist `json:"following_bands,omitempty"`
	FollowingFans  []Artist `json:"following_fans,omitempty"`
	Followers      []Artist `json:"followers,omitempty"`
}

// SearchResultSet holds the four independent search branches for a query.
type SearchResultSet struct {
	General []Item `json:"general,omitempty"`
	Artists []Item `json:"artists,omitempty"`
	Fans    []Item `json:"fans,omitempty"`
	Tags    []Item `json:"tags,omitempty"`
}

// Show is a Bandcamp Weekly radio show.
type Show struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title,omitempty"`
	Subtitle    string    `json:"subtitle,omitempty"`
	Description string    `json:"description,omitempty"`
	Date        time.Time `json:"date,omitempty"`
	ImageID     int64     `json:"image_id,omitempty"`
	ImageURL    string    `json:"image_url,omitempty"`

	// StreamURL plays the whole show.
	StreamURL string  `json:"stream_url,omitempty"`
	Tracks    []Track `json:"tracks,omitempty"`
}

// Article is a Bandcamp Daily article. Albums holds the releases featured
// in its embedded players once the article page is fetched.
type Article struct {
	URL      string    `json:"url"`
	Title    string    `json:"title,omitempty"`
	Category string    `json:"category,omitempty"`
	ImageURL string    `json:"image_url,omitempty"`
	Date     time.Time `json:"date,omitempty"`
	Albums   []Album   `json:"albums,omitempty"`
}

// Ref is the result of resolving a Bandcamp URL to ids.
type Ref struct {
	Kind    Kind  `json:"kind"`
	BandID  int64 `json:"band_id,omitempty"`
	AlbumID int64 `json:"album_id,omitempty"`
	TrackID int64 `json:"track_id,omitempty"`
}

// BandPage is a band's own music page: the band and the releases it lists.
type BandPage struct {
	Band     Artist  `json:"band"`
	Releases []Album `json:"releases,omitempty"`
}
