package download

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/handiism/bandcamp-catalog/internal/audio"
	"github.com/handiism/bandcamp-catalog/internal/config"
	bchttp "github.com/handiism/bandcamp-catalog/internal/http"
	ioutils "github.com/handiism/bandcamp-catalog/internal/io"
	"github.com/handiism/bandcamp-catalog/internal/model"
	"golang.org/x/sync/errgroup"
)

// ProgressLevel indicates the severity/type of a progress message.
type ProgressLevel int

const (
	LevelInfo ProgressLevel = iota
	LevelVerbose
	LevelWarning
	LevelError
	LevelSuccess
)

// ProgressEvent represents a download progress update.
type ProgressEvent struct {
	Message string
	Level   ProgressLevel
}

// Source reads album and band pages. *bandcamp.Extractor implements it.
type Source interface {
	Album(ctx context.Context, url string) (model.Album, error)
	BandPage(ctx context.Context, bandURL string) (model.BandPage, error)
}

// Options controls a Manager.
type Options struct {
	Layout Layout

	MaxConcurrentAlbums int
	MaxConcurrentTracks int

	MaxRetries    int
	RetryCooldown time.Duration
	RetryExponent float64

	// AllowedSizeDifference is the relative size difference under which an
	// existing file counts as already downloaded.
	AllowedSizeDifference float64

	Discography bool

	SaveCoverInFolder bool
	SaveCoverInTags   bool
	Cover             ioutils.CoverOptions

	CreatePlaylist bool
	M3UExtended    bool

	ModifyTags bool
}

// OptionsFromSettings maps the download part of settings.
func OptionsFromSettings(s *config.Settings) (Options, error) {
	format, err := audio.ParseFormat(s.PlaylistFormat)
	if err != nil {
		return Options{}, err
	}
	return Options{
		Layout: Layout{
			DownloadsPath:          s.DownloadsPath,
			FileNameFormat:         s.FileNameFormat,
			CoverArtFileNameFormat: s.CoverArtFileNameFormat,
			PlaylistFileNameFormat: s.PlaylistFileNameFormat,
			PlaylistFormat:         format,
		},
		MaxConcurrentAlbums:   s.MaxConcurrentAlbums,
		MaxConcurrentTracks:   s.MaxConcurrentTracks,
		MaxRetries:            s.DownloadMaxRetries,
		RetryCooldown:         time.Duration(s.DownloadRetryCooldown * float64(time.Second)),
		RetryExponent:         s.DownloadRetryExponent,
		AllowedSizeDifference: s.AllowedFileSizeDifference,
		Discography:           s.DownloadArtistDiscography,
		SaveCoverInFolder:     s.SaveCoverArtInFolder,
		SaveCoverInTags:       s.SaveCoverArtInTags,
		Cover:                 ioutils.CoverOptions{MaxSize: s.CoverArtMaxSize, JPEG: s.ConvertCoverArtToJPG},
		CreatePlaylist:        s.CreatePlaylist,
		M3UExtended:           s.M3UExtended,
		ModifyTags:            s.ModifyTags,
	}, nil
}

// Manager saves the streamable tracks of albums to disk.
type Manager struct {
	source   Source
	client   *bchttp.Client
	opts     Options
	tagger   *audio.Tagger
	playlist *audio.PlaylistWriter
	images   *ioutils.ImageService
	logger   *slog.Logger

	mu     sync.Mutex
	albums []model.Album

	totalBytes      int64
	totalFiles      int32
	receivedBytes   atomic.Int64
	downloadedFiles atomic.Int32

	onProgress func(ProgressEvent)
}

// NewManager creates a Manager. onProgress may be nil.
func NewManager(source Source, client *bchttp.Client, opts Options, logger *slog.Logger, onProgress func(ProgressEvent)) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	opts.MaxConcurrentAlbums = max(opts.MaxConcurrentAlbums, 1)
	opts.MaxConcurrentTracks = max(opts.MaxConcurrentTracks, 1)
	opts.MaxRetries = max(opts.MaxRetries, 1)
	return &Manager{
		source:     source,
		client:     client,
		opts:       opts,
		tagger:     audio.NewTagger(audio.DefaultTagConfig()),
		playlist:   audio.NewPlaylistWriter(opts.Layout.PlaylistFormat, opts.M3UExtended),
		images:     ioutils.NewImageService(),
		logger:     logger,
		onProgress: onProgress,
	}
}

// ParseInput splits whitespace or comma separated text into http(s) URLs.
func ParseInput(input string) []string {
	fields := strings.FieldsFunc(input, func(r rune) bool {
		return r == ',' || r == '\n' || r == '\r' || r == ' ' || r == '\t'
	})
	var urls []string
	for _, f := range fields {
		if strings.HasPrefix(f, "http://") || strings.HasPrefix(f, "https://") {
			urls = append(urls, f)
		}
	}
	return urls
}

// Initialize reads the albums behind urls. A band URL expands to its
// releases when discography downloads are enabled.
func (m *Manager) Initialize(ctx context.Context, urls []string) error {
	var albumURLs []string
	for _, u := range urls {
		found, err := m.releaseURLs(ctx, u)
		if err != nil {
			m.progress(LevelError, "Error getting albums from %s: %v", u, err)
			continue
		}
		albumURLs = append(albumURLs, found...)
	}

	for _, u := range albumURLs {
		m.progress(LevelVerbose, "Fetching album info: %s", u)
		album, err := m.source.Album(ctx, u)
		if err != nil {
			m.progress(LevelError, "Error fetching %s: %v", u, err)
			continue
		}
		if album.Failed() {
			m.progress(LevelError, "Error fetching %s: %s", u, album.Error)
			continue
		}
		streamable := album.StreamableTracks()
		if skipped := len(album.Tracks) - len(streamable); skipped > 0 {
			m.progress(LevelWarning, "%s: %d tracks cannot be streamed and are skipped", album.Title, skipped)
		}
		album.Tracks = streamable

		m.mu.Lock()
		m.albums = append(m.albums, album)
		m.mu.Unlock()
		m.progress(LevelInfo, "Found album: %s - %s (%d tracks)", album.Artist, album.Title, len(album.Tracks))
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}

	m.calculateTotals(ctx)
	return nil
}

func (m *Manager) releaseURLs(ctx context.Context, inputURL string) ([]string, error) {
	u, err := url.Parse(inputURL)
	if err != nil {
		return nil, err
	}
	if strings.Contains(u.Path, "/album/") || strings.Contains(u.Path, "/track/") || !m.opts.Discography {
		return []string{inputURL}, nil
	}

	page, err := m.source.BandPage(ctx, u.Scheme+"://"+u.Host)
	if err != nil {
		return nil, err
	}
	urls := make([]string, 0, len(page.Releases))
	for _, r := range page.Releases {
		if r.URL != "" {
			urls = append(urls, r.URL)
		}
	}
	if len(urls) == 0 {
		return nil, fmt.Errorf("no releases on %s", inputURL)
	}
	return urls, nil
}

// calculateTotals sizes every file with HEAD requests. Unknown sizes count
// as zero.
func (m *Manager) calculateTotals(ctx context.Context) {
	var total atomic.Int64
	var files int32
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(m.opts.MaxConcurrentTracks)

	size := func(u string) {
		g.Go(func() error {
			if n, err := m.client.GetFileSize(ctx, u); err == nil {
				total.Add(n)
			}
			return nil
		})
	}
	for _, album := range m.Albums() {
		for _, t := range album.Tracks {
			files++
			size(t.StreamURL)
		}
		if album.HasArtwork() && (m.opts.SaveCoverInFolder || m.opts.SaveCoverInTags) {
			files++
			size(album.ArtworkURL)
		}
	}
	_ = g.Wait()
	m.totalBytes = total.Load()
	m.totalFiles = files
}

// Albums returns the albums found by Initialize.
func (m *Manager) Albums() []model.Album {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]model.Album(nil), m.albums...)
}

// AlbumNames describes the albums found by Initialize.
func (m *Manager) AlbumNames() []string {
	albums := m.Albums()
	names := make([]string, len(albums))
	for i, a := range albums {
		names[i] = fmt.Sprintf("%s - %s (%d tracks)", a.Artist, a.Title, len(a.Tracks))
	}
	return names
}

// Progress returns the bytes and files received so far and the expected
// totals.
func (m *Manager) Progress() (received, total int64, filesReceived, filesTotal int32) {
	return m.receivedBytes.Load(), m.totalBytes, m.downloadedFiles.Load(), m.totalFiles
}

// StartDownloads saves every initialized album. A failed track is reported
// and does not stop the others.
func (m *Manager) StartDownloads(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(m.opts.MaxConcurrentAlbums)
	for _, album := range m.Albums() {
		g.Go(func() error {
			return m.downloadAlbum(ctx, album)
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}

func (m *Manager) downloadAlbum(ctx context.Context, album model.Album) error {
	layout := m.opts.Layout
	if err := ioutils.EnsureDir(layout.AlbumDir(album)); err != nil {
		m.progress(LevelError, "Error creating directory: %v", err)
		return err
	}

	var cover []byte
	if (m.opts.SaveCoverInTags || m.opts.SaveCoverInFolder) && album.HasArtwork() {
		var err error
		cover, err = m.downloadCover(ctx, album)
		if err != nil {
			m.progress(LevelWarning, "Error downloading artwork for %s: %v", album.Title, err)
		}
	}

	saved := make([]bool, len(album.Tracks))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(m.opts.MaxConcurrentTracks)
	for i, track := range album.Tracks {
		g.Go(func() error {
			if err := m.downloadTrack(gctx, album, track, cover); err != nil {
				m.progress(LevelError, "Error downloading %s: %v", track.Title, err)
				return nil
			}
			saved[i] = true
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	var entries []audio.Entry
	for i, t := range album.Tracks {
		if saved[i] {
			entries = append(entries, audio.TrackEntry(t, filepath.Base(layout.TrackPath(album, t))))
		}
	}
	if m.opts.CreatePlaylist && len(entries) > 0 {
		content := m.playlist.String(audio.Playlist{Title: album.Title, Entries: entries})
		if err := ioutils.WriteFileAtomic(layout.PlaylistPath(album), []byte(content)); err != nil {
			m.progress(LevelWarning, "Error creating playlist: %v", err)
		} else {
			m.progress(LevelSuccess, "Created playlist for %s", album.Title)
		}
	}

	if len(entries) == len(album.Tracks) {
		m.progress(LevelSuccess, "Successfully downloaded album: %s", album.Title)
	} else {
		m.progress(LevelWarning, "Finished %s, %d of %d tracks failed", album.Title, len(album.Tracks)-len(entries), len(album.Tracks))
	}
	return nil
}

// downloadCover fetches the cover, saves it to the album directory when
// asked to, and returns the copy to embed in tags.
func (m *Manager) downloadCover(ctx context.Context, album model.Album) ([]byte, error) {
	var raw []byte
	err := m.retry(ctx, "artwork of "+album.Title, func() error {
		var err error
		raw, err = m.client.DownloadBytes(ctx, album.ArtworkURL)
		return err
	})
	if err != nil {
		return nil, err
	}
	m.downloadedFiles.Add(1)
	m.receivedBytes.Add(int64(len(raw)))

	cover, err := m.images.Prepare(raw, m.opts.Cover)
	if err != nil {
		m.logger.Warn("Cover art not processed", "album", album.Title, "error", err)
		cover = raw
	}
	if m.opts.SaveCoverInFolder {
		if err := ioutils.WriteFileAtomic(m.opts.Layout.CoverPath(album), cover); err != nil {
			m.progress(LevelWarning, "Error saving artwork: %v", err)
		}
	}
	m.progress(LevelVerbose, "Downloaded artwork for %s", album.Title)
	if !m.opts.SaveCoverInTags {
		return nil, nil
	}
	return cover, nil
}

func (m *Manager) downloadTrack(ctx context.Context, album model.Album, track model.Track, cover []byte) error {
	path := m.opts.Layout.TrackPath(album, track)
	if m.alreadySaved(ctx, path, track.StreamURL) {
		m.progress(LevelVerbose, "Skipping existing: %s", filepath.Base(path))
		m.downloadedFiles.Add(1)
		return nil
	}

	var last int64
	err := m.retry(ctx, track.Title, func() error {
		last = 0
		return m.client.DownloadFile(ctx, track.StreamURL, path, func(written, _ int64) {
			m.receivedBytes.Add(written - last)
			last = written
		})
	})
	if err != nil {
		os.Remove(path)
		return err
	}
	m.downloadedFiles.Add(1)

	if m.opts.ModifyTags || cover != nil {
		if err := m.tagger.Write(path, track, album, cover); err != nil {
			m.progress(LevelWarning, "Error tagging %s: %v", track.Title, err)
		}
	}
	m.progress(LevelVerbose, "Downloaded: %s", filepath.Base(path))
	return nil
}

func (m *Manager) alreadySaved(ctx context.Context, path, streamURL string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	expected, err := m.client.GetFileSize(ctx, streamURL)
	if err != nil || expected <= 0 {
		return false
	}
	diff := math.Abs(float64(info.Size()-expected)) / float64(expected)
	return diff <= m.opts.AllowedSizeDifference
}

// retry runs fn up to MaxRetries times, waiting RetryCooldown *
// RetryExponent^n between attempts.
func (m *Manager) retry(ctx context.Context, what string, fn func() error) error {
	var err error
	for try := range m.opts.MaxRetries {
		if err = fn(); err == nil {
			return nil
		}
		if ctx.Err() != nil || try == m.opts.MaxRetries-1 {
			break
		}
		m.progress(LevelWarning, "Retry %d/%d for %s", try+1, m.opts.MaxRetries-1, what)
		wait := time.Duration(float64(m.opts.RetryCooldown) * math.Pow(m.opts.RetryExponent, float64(try)))
		select {
		case <-ctx.Done():
			return errors.Join(err, ctx.Err())
		case <-time.After(wait):
		}
	}
	return err
}

func (m *Manager) progress(level ProgressLevel, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	switch level {
	case LevelError:
		m.logger.Error(msg)
	case LevelWarning:
		m.logger.Warn(msg)
	default:
		m.logger.Debug(msg)
	}
	if m.onProgress != nil {
		m.onProgress(ProgressEvent{Message: msg, Level: level})
	}
}
