// Package artwork turns Bandcamp image ids into image URLs.
//
// Bandcamp serves every image from one host. Album art ids are prefixed
// with "a", band and fan photos are not, and a numeric suffix selects the
// rendition:
//
//	artwork.URL(1234567890, artwork.Large)      // https://f4.bcbits.com/img/a1234567890_10.jpg
//	artwork.ImageURL(42, artwork.Thumbnail)     // https://f4.bcbits.com/img/0000000042_3.jpg
//	artwork.URL(7, artwork.ParseSize("bogus"))  // falls back to LargeThumbnail
package artwork
