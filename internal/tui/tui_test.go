package tui

import (
	"context"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/handiism/bandcamp-catalog/internal/bandcamp"
	"github.com/handiism/bandcamp-catalog/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type call struct {
	op  string
	req bandcamp.Request
}

// fakeCatalog answers every call synchronously with the items registered
// for its operation.
type fakeCatalog struct {
	calls   []call
	results map[string][]model.Item
	played  []model.Track
}

func (f *fakeCatalog) answer(op string) func(context.Context, bandcamp.Request, bandcamp.Callback) {
	return func(_ context.Context, req bandcamp.Request, cb bandcamp.Callback) {
		f.calls = append(f.calls, call{op, req})
		items, ok := f.results[op]
		if !ok {
			items = []model.Item{model.EmptyItem()}
		}
		cb(items)
	}
}

func (f *fakeCatalog) Search(ctx context.Context, r bandcamp.Request, cb bandcamp.Callback) {
	f.answer("search")(ctx, r, cb)
}
func (f *fakeCatalog) RecentSearches(ctx context.Context, r bandcamp.Request, cb bandcamp.Callback) {
	f.answer("recent")(ctx, r, cb)
}
func (f *fakeCatalog) Album(ctx context.Context, r bandcamp.Request, cb bandcamp.Callback) {
	f.answer("album")(ctx, r, cb)
}
func (f *fakeCatalog) AlbumByID(ctx context.Context, r bandcamp.Request, cb bandcamp.Callback) {
	f.answer("album_id")(ctx, r, cb)
}
func (f *fakeCatalog) Band(ctx context.Context, r bandcamp.Request, cb bandcamp.Callback) {
	f.answer("band")(ctx, r, cb)
}
func (f *fakeCatalog) Fan(ctx context.Context, r bandcamp.Request, cb bandcamp.Callback) {
	f.answer("fan")(ctx, r, cb)
}
func (f *fakeCatalog) Collection(ctx context.Context, r bandcamp.Request, cb bandcamp.Callback) {
	f.answer("collection")(ctx, r, cb)
}
func (f *fakeCatalog) Tag(ctx context.Context, r bandcamp.Request, cb bandcamp.Callback) {
	f.answer("tag")(ctx, r, cb)
}
func (f *fakeCatalog) WeeklyShow(ctx context.Context, r bandcamp.Request, cb bandcamp.Callback) {
	f.answer("show")(ctx, r, cb)
}
func (f *fakeCatalog) Article(ctx context.Context, r bandcamp.Request, cb bandcamp.Callback) {
	f.answer("article")(ctx, r, cb)
}
func (f *fakeCatalog) RecordPlay(_ context.Context, t model.Track) {
	f.played = append(f.played, t)
}

// send feeds msg to m and runs every command it returns until the model
// settles, ignoring timers.
func send(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	next, cmd := m.Update(msg)
	m = next.(Model)
	for _, follow := range run(cmd) {
		m = send(t, m, follow)
	}
	return m
}

func run(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	switch msg := cmd().(type) {
	case tea.BatchMsg:
		var out []tea.Msg
		for _, c := range msg {
			out = append(out, run(c)...)
		}
		return out
	case ItemsMsg:
		return []tea.Msg{msg}
	}
	return nil
}

func key(k tea.KeyType) tea.KeyMsg {
	return tea.KeyMsg{Type: k}
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestModel_SearchAndBrowse(t *testing.T) {
	cat := &fakeCatalog{results: map[string][]model.Item{
		"search": {
			model.ArtistItem(model.Artist{BandID: 7, Name: "Band", URL: "https://band.bandcamp.com"}),
			model.AlbumItem(model.Album{ID: 1, Title: "Record", URL: "https://band.bandcamp.com/album/record"}),
		},
		"album": {
			model.TrackItem(model.Track{ID: 11, Title: "Song", StreamURL: "https://t4.bcbits.com/stream/11"}),
		},
	}}
	m := NewModel(Deps{Catalog: cat})

	m = send(t, m, runes("record"))
	m = send(t, m, key(tea.KeyEnter))
	require.Equal(t, StateList, m.state)
	require.Len(t, cat.calls, 1)
	assert.Equal(t, "search", cat.calls[0].op)
	assert.Equal(t, "record", cat.calls[0].req.Query)
	assert.Equal(t, m.session, cat.calls[0].req.Session)
	assert.Contains(t, m.View(), "Band")

	m = send(t, m, runes("j"))
	m = send(t, m, key(tea.KeyEnter))
	require.Len(t, cat.calls, 2)
	assert.Equal(t, "album", cat.calls[1].op)
	assert.Equal(t, "https://band.bandcamp.com/album/record", cat.calls[1].req.URL)
	assert.Len(t, m.pages, 2)

	m = send(t, m, key(tea.KeyEnter))
	require.Len(t, cat.played, 1)
	assert.Equal(t, int64(11), cat.played[0].ID)
	assert.Contains(t, m.status, "Playing Song")

	m = send(t, m, key(tea.KeyBackspace))
	assert.Len(t, m.pages, 1)
	assert.Equal(t, 1, m.pages[0].cursor)

	m = send(t, m, runes("k"))
	m = send(t, m, key(tea.KeyEnter))
	assert.Equal(t, "band", cat.calls[2].op)
	assert.Equal(t, int64(7), cat.calls[2].req.ID)
}

func TestModel_ReleaseURLOpensAlbum(t *testing.T) {
	cat := &fakeCatalog{}
	m := NewModel(Deps{Catalog: cat})

	m = send(t, m, runes("https://band.bandcamp.com/album/x"))
	m = send(t, m, key(tea.KeyEnter))

	require.Len(t, cat.calls, 1)
	assert.Equal(t, "album", cat.calls[0].op)
	assert.Contains(t, m.View(), "Nothing found.")
}

func TestModel_EmptyQueryListsRecentSearches(t *testing.T) {
	cat := &fakeCatalog{results: map[string][]model.Item{
		"recent": {model.QueryItem("old query")},
	}}
	m := NewModel(Deps{Catalog: cat})

	m = send(t, m, key(tea.KeyEnter))
	m = send(t, m, key(tea.KeyEnter))

	require.Len(t, cat.calls, 2)
	assert.Equal(t, "recent", cat.calls[0].op)
	assert.Equal(t, "search", cat.calls[1].op)
	assert.Equal(t, "old query", cat.calls[1].req.Query)
}

func TestModel_InvalidIdentity(t *testing.T) {
	cat := &fakeCatalog{results: map[string][]model.Item{
		"collection": {model.InvalidIdentityItem()},
	}}
	m := NewModel(Deps{Catalog: cat})

	m = send(t, m, key(tea.KeyCtrlL))
	require.Equal(t, StateList, m.state)
	assert.Contains(t, m.status, "identity token")
	assert.Contains(t, m.View(), "Error: invalid identity token")
}

func TestModel_DownloadWithoutManager(t *testing.T) {
	cat := &fakeCatalog{results: map[string][]model.Item{
		"search": {model.TagItem(model.Tag{Name: "ambient", Slug: "ambient"})},
	}}
	m := NewModel(Deps{Catalog: cat})
	m = send(t, m, runes("ambient"))
	m = send(t, m, key(tea.KeyEnter))

	m = send(t, m, runes("d"))
	assert.Equal(t, "Nothing to download here.", m.status)

	m = send(t, m, key(tea.KeyEnter))
	assert.Equal(t, "tag", cat.calls[1].op)
	assert.Equal(t, "ambient", cat.calls[1].req.Slug)
}

func TestDownloadURL(t *testing.T) {
	assert.Equal(t, "https://a/album/x", downloadURL(model.AlbumItem(model.Album{URL: "https://a/album/x"})))
	assert.Equal(t, "https://a/album/x", downloadURL(model.TrackItem(model.Track{URL: "https://a/track/y", AlbumURL: "https://a/album/x"})))
	assert.Equal(t, "https://a/track/y", downloadURL(model.TrackItem(model.Track{URL: "https://a/track/y"})))
	assert.Empty(t, downloadURL(model.EmptyItem()))
}
