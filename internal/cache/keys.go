package cache

const (
	KeyRecentSearches     = "recent_searches"
	KeyRecentPlays        = "recent_plays"
	KeyLibraryFingerprint = "library_fingerprint"

	// KeyAccount holds a digest of the credentials the cache was filled
	// with.
	KeyAccount = "account"
)

// UserIDKey is where the numeric fan id of handle is kept.
func UserIDKey(handle string) string {
	return "user_id_" + handle
}

// TrackKey is where a normalized track is kept.
func TrackKey(key string) string {
	return "track_" + key
}

// ThumbnailKey maps a large artwork URL to its small thumbnail URL.
func ThumbnailKey(artworkURL string) string {
	return "artwork_small_" + artworkURL
}
