package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/handiism/bandcamp-catalog/internal/app"
	"github.com/handiism/bandcamp-catalog/internal/audio"
	"github.com/handiism/bandcamp-catalog/internal/bandcamp"
	"github.com/handiism/bandcamp-catalog/internal/download"
	"github.com/handiism/bandcamp-catalog/internal/model"
	"github.com/handiism/bandcamp-catalog/internal/server"
)

type env struct {
	app          *app.App
	out          io.Writer
	settingsPath string
	json         bool
}

type command struct {
	usage string
	run   func(ctx context.Context, e *env, args []string) error
}

type entry func(ctx context.Context, req bandcamp.Request, cb bandcamp.Callback)

var errUsage = errors.New("wrong arguments, see -help")

var commands = map[string]command{
	"search":      {"<query>  search artists, releases, tags and fans", browse(searchRequest, provider(func(p *bandcamp.Provider) entry { return p.Search }))},
	"recent":      {"list recent searches", browse(noArgs, provider(func(p *bandcamp.Provider) entry { return p.RecentSearches }))},
	"plays":       {"list recently played tracks", browse(noArgs, provider(func(p *bandcamp.Provider) entry { return p.RecentPlays }))},
	"album":       {"<url|id>  list the tracks of an album", albumCommand},
	"track":       {"<id>  show a track", browse(idRequest, provider(func(p *bandcamp.Provider) entry { return p.Track }))},
	"resolve":     {"<url>  list what a Bandcamp URL points to", browse(urlRequest, provider(func(p *bandcamp.Provider) entry { return p.ResolveURL }))},
	"band":        {"<id|url>  list a band's releases", bandCommand},
	"fan":         {"[handle] [section]  list a fan page section", browse(fanRequest, provider(func(p *bandcamp.Provider) entry { return p.Fan }))},
	"collection":  {"[handle] [token]  list purchases", browse(pageRequest, provider(func(p *bandcamp.Provider) entry { return p.Collection }))},
	"wishlist":    {"[handle] [token]  list the wishlist", browse(pageRequest, provider(func(p *bandcamp.Provider) entry { return p.Wishlist }))},
	"following":   {"[handle] [token]  list followed bands", browse(pageRequest, provider(func(p *bandcamp.Provider) entry { return p.Following }))},
	"feed":        {"[handle]  list the activity feed", browse(pageRequest, provider(func(p *bandcamp.Provider) entry { return p.Feed }))},
	"weekly":      {"list Bandcamp Weekly shows", browse(noArgs, provider(func(p *bandcamp.Provider) entry { return p.WeeklyShows }))},
	"show":        {"<id>  list the tracks of a weekly show", browse(idRequest, provider(func(p *bandcamp.Provider) entry { return p.WeeklyShow }))},
	"tag":         {"<slug>  list releases for a tag", browse(slugRequest, provider(func(p *bandcamp.Provider) entry { return p.Tag }))},
	"discover":    {"list the discover page", browse(noArgs, provider(func(p *bandcamp.Provider) entry { return p.Discover }))},
	"daily":       {"list Bandcamp Daily articles", browse(noArgs, provider(func(p *bandcamp.Provider) entry { return p.Daily }))},
	"article":     {"<url>  list releases featured in an article", browse(urlRequest, provider(func(p *bandcamp.Provider) entry { return p.Article }))},
	"checksum":    {"report whether the purchased collection changed", checksumCommand},
	"scan":        {"[handle]  read every purchased album and remember the collection", scanCommand},
	"export":      {"<file> [handle]  write the purchased collection as a playlist of stream URLs", exportCommand},
	"download":    {"<url>...  download albums, tracks or band discographies", downloadCommand},
	"serve":       {"serve the catalog over HTTP", serveCommand},
	"clear-cache": {"remove every cached response", clearCacheCommand},
	"login":       {"[handle] <identity-token>  verify and save account credentials", loginCommand},
}

func commandNames() []string {
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

func provider(pick func(*bandcamp.Provider) entry) func(*env) entry {
	return func(e *env) entry { return pick(e.app.Provider) }
}

// browse runs one provider entry point and prints its items.
func browse(parse func([]string) (bandcamp.Request, error), pick func(*env) entry) func(context.Context, *env, []string) error {
	return func(ctx context.Context, e *env, args []string) error {
		req, err := parse(args)
		if err != nil {
			return err
		}
		items, err := await(ctx, pick(e), req)
		if err != nil {
			return err
		}
		return printItems(e.out, items, e.json)
	}
}

// await blocks until fn reports or ctx is done.
func await(ctx context.Context, fn entry, req bandcamp.Request) ([]model.Item, error) {
	ch := make(chan []model.Item, 1)
	fn(ctx, req, func(items []model.Item) { ch <- items })
	select {
	case items := <-ch:
		return items, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func noArgs(args []string) (bandcamp.Request, error) {
	if len(args) > 0 {
		return bandcamp.Request{}, errUsage
	}
	return bandcamp.Request{}, nil
}

func searchRequest(args []string) (bandcamp.Request, error) {
	query := strings.TrimSpace(strings.Join(args, " "))
	if query == "" {
		return bandcamp.Request{}, errUsage
	}
	return bandcamp.Request{Session: uuid.NewString(), Query: query}, nil
}

func idRequest(args []string) (bandcamp.Request, error) {
	if len(args) != 1 {
		return bandcamp.Request{}, errUsage
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil || id <= 0 {
		return bandcamp.Request{}, fmt.Errorf("invalid id %q", args[0])
	}
	return bandcamp.Request{ID: id}, nil
}

func urlRequest(args []string) (bandcamp.Request, error) {
	if len(args) != 1 || !isURL(args[0]) {
		return bandcamp.Request{}, errUsage
	}
	return bandcamp.Request{URL: args[0]}, nil
}

func slugRequest(args []string) (bandcamp.Request, error) {
	if len(args) != 1 {
		return bandcamp.Request{}, errUsage
	}
	return bandcamp.Request{Slug: args[0]}, nil
}

func fanRequest(args []string) (bandcamp.Request, error) {
	var req bandcamp.Request
	switch len(args) {
	case 2:
		req.Section = args[1]
		fallthrough
	case 1:
		req.Handle = args[0]
	case 0:
	default:
		return req, errUsage
	}
	return req, nil
}

func pageRequest(args []string) (bandcamp.Request, error) {
	var req bandcamp.Request
	switch len(args) {
	case 2:
		req.Token = args[1]
		fallthrough
	case 1:
		req.Handle = args[0]
	case 0:
	default:
		return req, errUsage
	}
	return req, nil
}

func isURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

func albumCommand(ctx context.Context, e *env, args []string) error {
	if len(args) == 1 && isURL(args[0]) {
		return browse(urlRequest, provider(func(p *bandcamp.Provider) entry { return p.Album }))(ctx, e, args)
	}
	return browse(idRequest, provider(func(p *bandcamp.Provider) entry { return p.AlbumByID }))(ctx, e, args)
}

func bandCommand(ctx context.Context, e *env, args []string) error {
	if len(args) == 1 && isURL(args[0]) {
		return browse(urlRequest, provider(func(p *bandcamp.Provider) entry { return p.BandPage }))(ctx, e, args)
	}
	return browse(idRequest, provider(func(p *bandcamp.Provider) entry { return p.Band }))(ctx, e, args)
}

func checksumCommand(ctx context.Context, e *env, args []string) error {
	if len(args) > 0 {
		return errUsage
	}
	changed, sum, err := e.app.Sync.NeedsRescan(ctx)
	if err != nil {
		return err
	}
	if e.json {
		return json.NewEncoder(e.out).Encode(server.ChecksumResponse{Checksum: sum, Changed: changed})
	}
	fmt.Fprintf(e.out, "%s changed=%t\n", sum, changed)
	return nil
}

func purchased(ctx context.Context, e *env, args []string) ([]model.Album, error) {
	if len(args) > 1 {
		return nil, errUsage
	}
	h := e.app.Settings.Handle
	if len(args) == 1 {
		h = args[0]
	}
	if h == "" {
		return nil, bandcamp.ErrNoIdentity
	}
	fanID, err := e.app.Extractor.FanID(ctx, h)
	if err != nil {
		return nil, err
	}
	return e.app.Sync.Scan(ctx, fanID)
}

func scanCommand(ctx context.Context, e *env, args []string) error {
	albums, err := purchased(ctx, e, args)
	if err != nil {
		return err
	}
	if sum, err := e.app.Sync.Checksum(ctx); err == nil {
		e.app.Sync.Commit(ctx, sum)
	} else {
		e.app.Logger.Warn("Collection checksum unavailable", "error", err)
	}
	items := make([]model.Item, 0, len(albums))
	for _, a := range albums {
		items = append(items, model.AlbumItem(a))
	}
	return printItems(e.out, items, e.json)
}

func exportCommand(ctx context.Context, e *env, args []string) error {
	if len(args) == 0 {
		return errUsage
	}
	path := args[0]
	format, err := audio.ParseFormat(strings.TrimPrefix(extension(path), "."))
	if err != nil {
		format, err = audio.ParseFormat(e.app.Settings.PlaylistFormat)
		if err != nil {
			return err
		}
	}
	albums, err := purchased(ctx, e, args[1:])
	if err != nil {
		return err
	}
	title := "Bandcamp collection"
	if e.app.Settings.Handle != "" {
		title = e.app.Settings.Handle + "'s Bandcamp collection"
	}
	pl := audio.StreamPlaylist(title, albums)

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := audio.NewPlaylistWriter(format, e.app.Settings.M3UExtended).Write(f, pl); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	fmt.Fprintf(e.out, "Wrote %d tracks to %s\n", len(pl.Entries), path)
	return nil
}

func extension(path string) string {
	if i := strings.LastIndexByte(path, '.'); i >= 0 && !strings.ContainsAny(path[i:], `/\`) {
		return strings.ToLower(path[i:])
	}
	return ""
}

func downloadCommand(ctx context.Context, e *env, args []string) error {
	urls := download.ParseInput(strings.Join(args, "\n"))
	if len(urls) == 0 {
		return errUsage
	}
	m, err := e.app.Downloads(func(ev download.ProgressEvent) {
		if ev.Level == download.LevelVerbose && !*verbose {
			return
		}
		fmt.Fprintln(e.out, progressPrefix(ev.Level)+ev.Message)
	})
	if err != nil {
		return err
	}
	if err := m.Initialize(ctx, urls); err != nil {
		return err
	}
	if err := m.StartDownloads(ctx); err != nil {
		return err
	}
	received, total, files, filesTotal := m.Progress()
	fmt.Fprintf(e.out, "Downloaded %d/%d files (%.2f MB)\n", files, filesTotal, float64(received)/1024/1024)
	if total > 0 && received < total {
		fmt.Fprintf(e.out, "  (%.2f MB expected)\n", float64(total)/1024/1024)
	}
	return nil
}

func progressPrefix(level download.ProgressLevel) string {
	switch level {
	case download.LevelError:
		return "error: "
	case download.LevelWarning:
		return "warning: "
	case download.LevelSuccess:
		return "done: "
	}
	return ""
}

func serveCommand(ctx context.Context, e *env, args []string) error {
	if len(args) > 0 {
		return errUsage
	}
	var library server.Library
	if e.app.Settings.ImporterEnabled {
		library = e.app.Sync
	}
	srv := server.NewServer(e.app.Provider, library, e.app.Logger)
	return srv.ListenAndServe(ctx, e.app.Settings.ListenAddr)
}

func clearCacheCommand(ctx context.Context, e *env, args []string) error {
	if len(args) > 0 {
		return errUsage
	}
	e.app.Cache.Clear(ctx)
	fmt.Fprintln(e.out, "Cache cleared")
	return nil
}

func loginCommand(ctx context.Context, e *env, args []string) error {
	var h, token string
	switch len(args) {
	case 1:
		token = args[0]
	case 2:
		h, token = args[0], args[1]
	default:
		return errUsage
	}

	summary, err := e.app.VerifyIdentity(ctx, token)
	if errors.Is(err, bandcamp.ErrInvalidIdentity) {
		return fmt.Errorf("bandcamp rejected the identity token, copy a fresh identity cookie from a logged-in browser: %w", err)
	}
	if err != nil {
		return fmt.Errorf("verify identity token: %w", err)
	}
	if h == "" {
		h = summary.Username
	}
	if h == "" {
		return errors.New("bandcamp returned no username for the token, pass the handle explicitly")
	}
	if summary.Username != "" && !strings.EqualFold(h, summary.Username) {
		e.app.Logger.Warn("Handle differs from the token's owner", "handle", h, "owner", summary.Username)
	}

	next := *e.app.Settings
	next.Handle = h
	next.IdentityToken = token
	if err := e.app.Reconfigure(ctx, &next, e.settingsPath); err != nil {
		return err
	}
	fmt.Fprintf(e.out, "Saved credentials for %s (fan %d) to %s\n", next.Handle, summary.FanID, e.settingsPath)
	return nil
}
