// Package server exposes the catalog entry points over HTTP so a media
// server host can browse Bandcamp without linking the Go packages.
//
// Every browse endpoint answers 200 with a JSON body of the form
//
//	{"session": "...", "items": [...]}
//
// Upstream failures arrive as error or empty items, never as HTTP errors.
// Only malformed requests are rejected with 400.
package server
