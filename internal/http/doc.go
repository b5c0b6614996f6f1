// Package http provides the HTTP client used for every Bandcamp request.
//
// The Client in this package handles:
//   - User-Agent headers for Bandcamp compatibility
//   - Request rate limiting
//   - JSON and form POST bodies
//   - Typed status errors, so callers can tell an auth failure from an outage
//   - File downloads with progress tracking
//
// # Basic Usage
//
//	client := http.NewClient(http.WithRateLimit(4, 8))
//
//	// Fetch HTML page
//	html, err := client.GetString(ctx, "https://artist.bandcamp.com/album/name")
//
//	// POST a JSON body
//	resp, err := client.PostJSON(ctx, apiURL, map[string]any{"fan_id": 1}, nil)
//
//	// Distinguish status codes
//	var se *http.StatusError
//	if errors.As(err, &se) && se.Unauthorized() {
//	    // identity token rejected
//	}
//
// # Cookies
//
// FileJar is a cookie jar persisted to a JSON file, for clients that keep a
// logged-in session across runs:
//
//	jar, err := http.NewFileJar("~/.config/bandcamp/cookies.json")
//	client := http.NewClient(http.WithJar(jar))
package http
