// Package bandcamp is the Bandcamp data-access layer: it scrapes pages,
// calls the JSON endpoints and shapes everything into the records of
// package model.
//
// The package is organized around a few types:
//
//   - Normalizer turns raw track fragments from any source into canonical
//     tracks and keeps them in the cache
//   - Extractor reads HTML pages (album, fan, tag, discover, daily, weekly,
//     search, band music pages) for their embedded JSON
//   - API calls the signed GET and the POST endpoints
//   - Aggregator runs the four search branches and merges them
//   - Sync is the blocking path used by the offline library scan
//   - Provider is the callback-based entry point for a host UI
//
// # Album Pages
//
// Album and track pages embed their data in a data-tralbum attribute:
//
//	ex := bandcamp.NewExtractor(client, c, norm, bandcamp.Config{})
//	album, err := ex.Album(ctx, "https://artist.bandcamp.com/album/name")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if album.Failed() {
//	    fmt.Println("not found:", album.Error)
//	}
//	fmt.Printf("Album: %s by %s\n", album.Title, album.Artist)
//
// # Band Pages
//
// When the discography endpoint is unavailable, a band's releases are read
// from its /music page:
//
//	page, err := ex.BandPage(ctx, "https://artist.bandcamp.com")
//	for _, a := range page.Releases {
//	    fmt.Println(a.URL)
//	}
//
// # Errors
//
// Inside the package, failures are returned as errors: ErrNoData for
// responses without the expected structure, ErrInvalidIdentity when the
// identity cookie is rejected, *UpstreamError for error bodies, and the
// transport's *http.StatusError. Provider converts all of them into
// single-item result lists.
package bandcamp
