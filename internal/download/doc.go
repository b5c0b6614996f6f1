// Package download saves the streamable tracks of Bandcamp albums to disk.
//
// # Manager
//
// The Manager:
//
//  1. Resolves input URLs to album pages, expanding band URLs to their
//     releases when discography downloads are enabled
//  2. Reads each album through a Source (the bandcamp extractor)
//  3. Downloads cover art and tracks concurrently, with retries
//  4. Tags the saved MP3 files
//  5. Writes a playlist per album (optional)
//
// Only tracks with a stream URL are saved; the others are reported and
// skipped.
//
// # Basic Usage
//
//	opts, err := download.OptionsFromSettings(settings)
//	if err != nil {
//	    return err
//	}
//	manager := download.NewManager(extractor, client, opts, logger, func(event download.ProgressEvent) {
//	    fmt.Println(event.Message)
//	})
//	if err := manager.Initialize(ctx, download.ParseInput(input)); err != nil {
//	    return err
//	}
//	err = manager.StartDownloads(ctx)
//
// # Paths
//
// Layout expands the directory and file name templates of the settings,
// e.g. "{artist}/{album}" and "{tracknum} {artist} - {title}.mp3".
//
// # Retry Logic
//
// Failed downloads are retried up to MaxRetries times, waiting
// RetryCooldown * RetryExponent^n before attempt n+1.
package download
