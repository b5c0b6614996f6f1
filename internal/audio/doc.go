// Package audio writes ID3 tags to saved tracks and renders playlists.
//
// # ID3 Tagging
//
// Tagger sets, keeps or clears each frame according to its TagConfig:
//
//	tagger := audio.NewTagger(audio.DefaultTagConfig())
//	err := tagger.Write("/music/Band/Album/01 Song.mp3", track, album, coverJPEG)
//
// # Playlists
//
// A Playlist is a list of entries that point at local files or stream
// URLs. StreamPlaylist builds one from albums, which is how a collection is
// exported:
//
//	pl := audio.StreamPlaylist("My collection", albums)
//	w := audio.NewPlaylistWriter(audio.FormatM3U, true)
//	err := w.Write(os.Stdout, pl)
//
// Supported formats are M3U (optionally extended), PLS, WPL and ZPL.
package audio
