// Package tui provides a Bubble Tea terminal interface for browsing the
// Bandcamp catalog and downloading releases.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"
	"github.com/handiism/bandcamp-catalog/internal/bandcamp"
	"github.com/handiism/bandcamp-catalog/internal/download"
	"github.com/handiism/bandcamp-catalog/internal/model"
)

// Catalog is the part of *bandcamp.Provider the interface browses.
type Catalog interface {
	Search(ctx context.Context, req bandcamp.Request, cb bandcamp.Callback)
	RecentSearches(ctx context.Context, req bandcamp.Request, cb bandcamp.Callback)
	Album(ctx context.Context, req bandcamp.Request, cb bandcamp.Callback)
	AlbumByID(ctx context.Context, req bandcamp.Request, cb bandcamp.Callback)
	Band(ctx context.Context, req bandcamp.Request, cb bandcamp.Callback)
	Fan(ctx context.Context, req bandcamp.Request, cb bandcamp.Callback)
	Collection(ctx context.Context, req bandcamp.Request, cb bandcamp.Callback)
	Tag(ctx context.Context, req bandcamp.Request, cb bandcamp.Callback)
	WeeklyShow(ctx context.Context, req bandcamp.Request, cb bandcamp.Callback)
	Article(ctx context.Context, req bandcamp.Request, cb bandcamp.Callback)
	RecordPlay(ctx context.Context, t model.Track)
}

var _ Catalog = (*bandcamp.Provider)(nil)

// Deps is what the interface runs against.
type Deps struct {
	Catalog Catalog

	// Downloads builds the manager for one download run.
	Downloads func(onProgress func(download.ProgressEvent)) (*download.Manager, error)

	// DownloadsPath is shown on the download screen.
	DownloadsPath string
}

// State represents the current UI state.
type State int

const (
	StateInput State = iota
	StateLoading
	StateList
	StateInitializing
	StateDownloading
	StateComplete
	StateError
)

// LogEntry represents a log message in the UI.
type LogEntry struct {
	Message string
	Level   download.ProgressLevel
}

// page is one list on the navigation stack.
type page struct {
	title  string
	items  []model.Item
	cursor int
}

// Model is the Bubble Tea model for the TUI.
type Model struct {
	deps    Deps
	session string

	state     State
	textInput textinput.Model
	spinner   spinner.Model
	progress  progress.Model

	pages  []page
	status string
	err    error

	// Download run
	ctx     context.Context
	cancel  context.CancelFunc
	manager *download.Manager
	events  chan download.ProgressEvent
	logs    []LogEntry
	albums  []string

	totalFiles      int32
	downloadedFiles int32
	receivedBytes   int64

	verbose bool

	width  int
	height int
}

// NewModel creates a new TUI model.
func NewModel(deps Deps) Model {
	ti := textinput.New()
	ti.Placeholder = "search, or paste an album URL"
	ti.Focus()
	ti.CharLimit = 500
	ti.Width = 60

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B"))

	prog := progress.New(progress.WithDefaultGradient())
	prog.Width = 50

	ctx, cancel := context.WithCancel(context.Background())
	return Model{
		deps:      deps,
		session:   uuid.NewString(),
		state:     StateInput,
		textInput: ti,
		spinner:   sp,
		progress:  prog,
		ctx:       ctx,
		cancel:    cancel,
		events:    make(chan download.ProgressEvent, 64),
	}
}

// Init initializes the model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.spinner.Tick)
}

// Message types
type (
	// ItemsMsg delivers one catalog result list.
	ItemsMsg struct {
		Title string
		Items []model.Item
	}

	// ProgressMsg is sent when download progress updates.
	ProgressMsg struct {
		Event download.ProgressEvent
	}

	// InitDoneMsg is sent when initialization completes.
	InitDoneMsg struct {
		Albums  []string
		Manager *download.Manager
		Err     error
	}

	// DownloadDoneMsg is sent when all downloads complete.
	DownloadDoneMsg struct {
		Received int64
		Files    int32
		TotalF   int32
		Err      error
	}

	// TickMsg is for periodic progress updates.
	TickMsg struct{}
)

var errCancelled = errors.New("cancelled by user")

// request turns one catalog call into a command. The callback may fire on
// any goroutine; the command waits for it.
func (m Model) request(title string, call func(context.Context, bandcamp.Request, bandcamp.Callback), req bandcamp.Request) tea.Cmd {
	ctx := m.ctx
	return func() tea.Msg {
		ch := make(chan []model.Item, 1)
		call(ctx, req, func(items []model.Item) { ch <- items })
		select {
		case items := <-ch:
			return ItemsMsg{Title: title, Items: items}
		case <-ctx.Done():
			return ItemsMsg{Title: title, Items: []model.Item{model.ErrorItem(errCancelled.Error())}}
		}
	}
}

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.progress.Width = min(max(msg.Width-20, 20), 80)
		return m, nil

	case tea.KeyMsg:
		if next, cmd, handled := m.handleKey(msg); handled {
			return next, cmd
		}

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)

	case ItemsMsg:
		m.pages = append(m.pages, page{title: msg.Title, items: msg.Items})
		m.state = StateList
		m.status = ""
		if len(msg.Items) == 1 && msg.Items[0].InvalidIdentity {
			m.status = "Bandcamp rejected the identity token; update it in the settings."
		}

	case ProgressMsg:
		if msg.Event.Level != download.LevelVerbose || m.verbose {
			m.logs = append(m.logs, LogEntry{Message: msg.Event.Message, Level: msg.Event.Level})
			if len(m.logs) > 10 {
				m.logs = m.logs[len(m.logs)-10:]
			}
		}
		cmds = append(cmds, m.listen())

	case InitDoneMsg:
		if msg.Err != nil {
			m.state = StateError
			m.err = msg.Err
			break
		}
		m.albums = msg.Albums
		m.manager = msg.Manager
		m.state = StateDownloading
		cmds = append(cmds, m.startDownload(), m.tickProgress())

	case DownloadDoneMsg:
		m.receivedBytes = msg.Received
		m.downloadedFiles = msg.Files
		m.totalFiles = msg.TotalF
		switch {
		case m.ctx.Err() != nil:
			m.state = StateError
			m.err = errCancelled
		case msg.Err != nil:
			m.state = StateError
			m.err = msg.Err
		default:
			m.state = StateComplete
		}

	case TickMsg:
		if m.manager != nil && m.state == StateDownloading {
			received, _, files, totalFiles := m.manager.Progress()
			m.receivedBytes = received
			m.downloadedFiles = files
			m.totalFiles = totalFiles
			var percent float64
			if totalFiles > 0 {
				percent = float64(files) / float64(totalFiles)
			}
			cmds = append(cmds, m.progress.SetPercent(percent), m.tickProgress())
		}

	case progress.FrameMsg:
		progressModel, cmd := m.progress.Update(msg)
		m.progress = progressModel.(progress.Model)
		cmds = append(cmds, cmd)
	}

	if m.state == StateInput {
		var cmd tea.Cmd
		m.textInput, cmd = m.textInput.Update(msg)
		cmds = append(cmds, cmd)
	}
	return m, tea.Batch(cmds...)
}

func (m Model) handleKey(msg tea.KeyMsg) (Model, tea.Cmd, bool) {
	key := msg.String()
	if key == "ctrl+c" {
		m.cancel()
		return m, tea.Quit, true
	}

	switch m.state {
	case StateInput:
		switch key {
		case "esc":
			if len(m.pages) > 0 {
				m.state = StateList
				return m, nil, true
			}
			return m, tea.Quit, true
		case "enter":
			m, cmd := m.submit(strings.TrimSpace(m.textInput.Value()))
			return m, cmd, true
		case "ctrl+l":
			m.state = StateLoading
			return m, tea.Batch(m.request("Collection", m.deps.Catalog.Collection, bandcamp.Request{}), m.spinner.Tick), true
		}

	case StateList:
		p := &m.pages[len(m.pages)-1]
		if len(p.items) == 0 {
			return m, nil, false
		}
		switch key {
		case "up", "k":
			p.cursor = max(p.cursor-1, 0)
		case "down", "j":
			p.cursor = min(p.cursor+1, len(p.items)-1)
		case "enter", "right", "l":
			m, cmd := m.open(p.items[p.cursor])
			return m, cmd, true
		case "backspace", "left", "h":
			if len(m.pages) > 1 {
				m.pages = m.pages[:len(m.pages)-1]
			}
			m.status = ""
		case "/":
			m.state = StateInput
			m.textInput.SetValue("")
			m.textInput.Focus()
		case "d":
			if u := downloadURL(p.items[p.cursor]); u != "" {
				m, cmd := m.startInit(u)
				return m, cmd, true
			}
			m.status = "Nothing to download here."
		case "v":
			m.verbose = !m.verbose
		case "q", "esc":
			return m, tea.Quit, true
		}
		return m, nil, true

	case StateLoading, StateInitializing, StateDownloading:
		if key == "esc" {
			m.cancel()
			m.state = StateError
			m.err = errCancelled
			return m, nil, true
		}

	case StateComplete, StateError:
		switch key {
		case "q":
			return m, tea.Quit, true
		case "r", "esc":
			m = m.reset()
			return m, nil, true
		}
	}
	return m, nil, false
}

// submit searches for query, opens it when it is a release URL, or lists
// the recent searches when it is empty.
func (m Model) submit(query string) (Model, tea.Cmd) {
	m.state = StateLoading
	m.pages = nil
	var cmd tea.Cmd
	switch {
	case query == "":
		cmd = m.request("Recent searches", m.deps.Catalog.RecentSearches, bandcamp.Request{})
	case isReleaseURL(query):
		cmd = m.request(query, m.deps.Catalog.Album, bandcamp.Request{URL: query})
	default:
		cmd = m.request("Search: "+query, m.deps.Catalog.Search, bandcamp.Request{Session: m.session, Query: query})
	}
	return m, tea.Batch(cmd, m.spinner.Tick)
}

// open descends into item.
func (m Model) open(item model.Item) (Model, tea.Cmd) {
	c := m.deps.Catalog
	var cmd tea.Cmd
	switch item.Kind {
	case model.KindAlbum:
		if item.Album.URL != "" {
			cmd = m.request(item.Name(), c.Album, bandcamp.Request{URL: item.Album.URL})
		} else {
			cmd = m.request(item.Name(), c.AlbumByID, bandcamp.Request{ID: item.Album.ID})
		}
	case model.KindTrack:
		t := *item.Track
		c.RecordPlay(m.ctx, t)
		if t.Streamable() {
			m.status = "Playing " + t.DisplayName() + ": " + t.StreamURL
		} else {
			m.status = t.DisplayName() + " cannot be streamed."
		}
		return m, nil
	case model.KindBand:
		cmd = m.request(item.Name(), c.Band, bandcamp.Request{ID: item.Artist.BandID, URL: item.Artist.URL})
	case model.KindFan:
		cmd = m.request(item.Name(), c.Fan, bandcamp.Request{Handle: item.Artist.Handle})
	case model.KindTag:
		cmd = m.request("Tag: "+item.Name(), c.Tag, bandcamp.Request{Slug: item.Tag.Slug})
	case model.KindShow:
		cmd = m.request(item.Name(), c.WeeklyShow, bandcamp.Request{ID: item.Show.ID})
	case model.KindArticle:
		cmd = m.request(item.Name(), c.Article, bandcamp.Request{URL: item.Article.URL})
	case model.KindQuery:
		m, cmd := m.submit(item.Name())
		return m, cmd
	default:
		return m, nil
	}
	m.state = StateLoading
	return m, tea.Batch(cmd, m.spinner.Tick)
}

func isReleaseURL(s string) bool {
	return strings.HasPrefix(s, "http") && (strings.Contains(s, "/album/") || strings.Contains(s, "/track/"))
}

func downloadURL(item model.Item) string {
	switch {
	case item.Album != nil && item.Album.URL != "":
		return item.Album.URL
	case item.Track != nil && item.Track.AlbumURL != "":
		return item.Track.AlbumURL
	case item.Track != nil && item.Track.URL != "":
		return item.Track.URL
	}
	return ""
}

func (m Model) reset() Model {
	m.state = StateList
	if len(m.pages) == 0 {
		m.state = StateInput
		m.textInput.SetValue("")
		m.textInput.Focus()
	}
	m.logs = nil
	m.albums = nil
	m.err = nil
	m.status = ""
	m.downloadedFiles = 0
	m.totalFiles = 0
	m.receivedBytes = 0
	m.manager = nil
	m.ctx, m.cancel = context.WithCancel(context.Background())
	return m
}

func (m Model) tickProgress() tea.Cmd {
	return tea.Tick(200*time.Millisecond, func(_ time.Time) tea.Msg {
		return TickMsg{}
	})
}

// listen waits for the next download progress event.
func (m Model) listen() tea.Cmd {
	events := m.events
	return func() tea.Msg {
		return ProgressMsg{Event: <-events}
	}
}

// startInit builds a manager and reads the albums behind u.
func (m Model) startInit(u string) (Model, tea.Cmd) {
	if m.deps.Downloads == nil {
		m.status = "Downloads are not configured."
		return m, nil
	}
	m.state = StateInitializing
	ctx, events, build := m.ctx, m.events, m.deps.Downloads
	init := func() tea.Msg {
		manager, err := build(func(e download.ProgressEvent) {
			select {
			case events <- e:
			default:
			}
		})
		if err != nil {
			return InitDoneMsg{Err: err}
		}
		if err := manager.Initialize(ctx, []string{u}); err != nil {
			return InitDoneMsg{Err: err}
		}
		names := manager.AlbumNames()
		if len(names) == 0 {
			return InitDoneMsg{Err: fmt.Errorf("no downloadable album at %s", u)}
		}
		return InitDoneMsg{Albums: names, Manager: manager}
	}
	return m, tea.Batch(init, m.listen(), m.spinner.Tick)
}

// startDownload runs the downloads in the background.
func (m Model) startDownload() tea.Cmd {
	ctx, manager := m.ctx, m.manager
	return func() tea.Msg {
		err := manager.StartDownloads(ctx)
		received, _, files, totalFiles := manager.Progress()
		return DownloadDoneMsg{Received: received, Files: files, TotalF: totalFiles, Err: err}
	}
}

// Run starts the TUI application.
func Run(deps Deps) error {
	p := tea.NewProgram(NewModel(deps), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
