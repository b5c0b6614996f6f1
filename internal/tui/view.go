package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/handiism/bandcamp-catalog/internal/download"
	"github.com/handiism/bandcamp-catalog/internal/model"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FF6B6B")).
			MarginBottom(1)

	subtitleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#4ECDC4"))

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#95E1A3"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	warningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFE66D"))

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#A8DADC"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#6C757D"))

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#4ECDC4")).
			Padding(1, 2)

	albumStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F8B500"))

	cursorStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#F8B500"))
)

// listHeight is the number of items shown when the window size is unknown.
const listHeight = 15

// View renders the UI.
func (m Model) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("♪ Bandcamp"))
	b.WriteString("\n")
	b.WriteString(dimStyle.Render("Browse and download music from Bandcamp"))
	b.WriteString("\n\n")

	switch m.state {
	case StateInput:
		b.WriteString(m.viewInput())
	case StateLoading:
		b.WriteString(m.spinner.View() + " " + subtitleStyle.Render("Loading..."))
		b.WriteString("\n")
	case StateList:
		b.WriteString(m.viewList())
	case StateInitializing:
		b.WriteString(m.spinner.View() + " " + subtitleStyle.Render("Fetching album info..."))
		b.WriteString("\n\n")
		b.WriteString(m.renderLogs())
	case StateDownloading:
		b.WriteString(m.viewDownloading())
	case StateComplete:
		b.WriteString(m.viewComplete())
	case StateError:
		b.WriteString(errorStyle.Render("Error occurred:"))
		b.WriteString("\n\n")
		if m.err != nil {
			b.WriteString("  " + m.err.Error())
		}
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(dimStyle.Render(m.helpText()))
	return b.String()
}

func (m Model) viewInput() string {
	var b strings.Builder
	b.WriteString(subtitleStyle.Render("Search Bandcamp:"))
	b.WriteString("\n\n")
	b.WriteString(m.textInput.View())
	b.WriteString("\n\n")
	b.WriteString(dimStyle.Render("Leave empty for recent searches."))
	b.WriteString("\n")
	return b.String()
}

func (m Model) viewList() string {
	var b strings.Builder
	p := m.pages[len(m.pages)-1]

	b.WriteString(subtitleStyle.Render(p.title))
	b.WriteString("\n\n")

	height := listHeight
	if m.height > 12 {
		height = m.height - 12
	}
	start := 0
	if p.cursor >= height {
		start = p.cursor - height + 1
	}
	end := min(start+height, len(p.items))

	for i := start; i < end; i++ {
		line := describe(p.items[i])
		if i == p.cursor {
			b.WriteString(cursorStyle.Render("› " + line))
		} else {
			b.WriteString("  " + styleFor(p.items[i]).Render(line))
		}
		b.WriteString("\n")
	}
	if m.status != "" {
		b.WriteString("\n")
		b.WriteString(infoStyle.Render(m.status))
		b.WriteString("\n")
	}
	return b.String()
}

// describe renders one result line.
func describe(it model.Item) string {
	switch it.Kind {
	case model.KindAlbum:
		if it.Album.Artist != "" {
			return fmt.Sprintf("%s by %s", it.Name(), it.Album.Artist)
		}
	case model.KindTrack:
		line := it.Track.DisplayName()
		if it.Track.Number > 0 {
			line = fmt.Sprintf("%02d %s", it.Track.Number, line)
		}
		if !it.Track.Streamable() {
			line += " (not streamable)"
		}
		return line
	case model.KindBand:
		if it.Artist.Location != "" {
			return fmt.Sprintf("%s (%s)", it.Name(), it.Artist.Location)
		}
	case model.KindEmpty:
		return "Nothing found."
	case model.KindError:
		return "Error: " + it.Message
	}
	return it.Name()
}

func styleFor(it model.Item) lipgloss.Style {
	switch it.Kind {
	case model.KindError:
		return errorStyle
	case model.KindEmpty:
		return dimStyle
	case model.KindAlbum:
		return albumStyle
	case model.KindTag, model.KindQuery:
		return infoStyle
	}
	return lipgloss.NewStyle()
}

func (m Model) viewDownloading() string {
	var b strings.Builder

	if len(m.albums) > 0 {
		b.WriteString(successStyle.Render(fmt.Sprintf("Found %d album(s):", len(m.albums))))
		b.WriteString("\n")
		for _, album := range m.albums {
			b.WriteString(albumStyle.Render("  ♪ " + album))
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	var percent float64
	if m.totalFiles > 0 {
		percent = float64(m.downloadedFiles) / float64(m.totalFiles)
	}
	b.WriteString(m.progress.ViewAs(percent))
	b.WriteString("\n")
	b.WriteString(infoStyle.Render(fmt.Sprintf(
		"Files: %d/%d | Downloaded: %.2f MB",
		m.downloadedFiles, m.totalFiles, float64(m.receivedBytes)/1024/1024,
	)))
	b.WriteString("\n")
	if m.deps.DownloadsPath != "" {
		b.WriteString(dimStyle.Render("Saving to " + m.deps.DownloadsPath))
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(m.renderLogs())
	return b.String()
}

func (m Model) viewComplete() string {
	return boxStyle.Render(fmt.Sprintf(
		"Download complete!\n\nAlbums: %d\nFiles: %d\nSize: %.2f MB",
		len(m.albums), m.downloadedFiles, float64(m.receivedBytes)/1024/1024,
	))
}

func (m Model) renderLogs() string {
	var b strings.Builder
	for _, entry := range m.logs {
		style := dimStyle
		prefix := "•"
		switch entry.Level {
		case download.LevelError:
			style, prefix = errorStyle, "✗"
		case download.LevelWarning:
			style, prefix = warningStyle, "!"
		case download.LevelSuccess:
			style, prefix = successStyle, "✓"
		case download.LevelInfo:
			style, prefix = infoStyle, "›"
		}
		b.WriteString(style.Render(prefix + " " + entry.Message))
		b.WriteString("\n")
	}
	return b.String()
}

func (m Model) helpText() string {
	switch m.state {
	case StateInput:
		return "enter: search • ctrl+l: my collection • esc: back/quit"
	case StateList:
		return "↑/↓: move • enter: open • d: download • backspace: back • /: search • v: verbose • q: quit"
	case StateLoading, StateInitializing, StateDownloading:
		return "esc: cancel"
	case StateComplete, StateError:
		return "r: back • q: quit"
	}
	return ""
}
