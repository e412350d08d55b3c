package tui

import (
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/dustin/go-humanize"

	"github.com/neilberkman/ccreplay/internal/core/reconstruct"
)

type sessionListItem struct {
	session           *reconstruct.Session
	matchesCurrentDir bool
}

func (i sessionListItem) FilterValue() string {
	return i.session.Title() + " " + i.session.Project
}

func (i sessionListItem) Title() string {
	return firstLine(i.session.Title(), 80)
}

func (i sessionListItem) Description() string {
	return fmt.Sprintf("%s | %d conversations | Updated: %s",
		i.session.Project, len(i.session.Pairs), formatTime(i.session.LastActivity))
}

// Custom delegate to handle current directory highlighting
type sessionDelegate struct {
	list.DefaultDelegate
}

func (d sessionDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	s, ok := item.(sessionListItem)
	if !ok {
		d.DefaultDelegate.Render(w, m, index, item)
		return
	}

	title := s.Title()
	desc := s.Description()

	if s.matchesCurrentDir {
		if index == m.Index() {
			title = selectedItemStyle.Render(title)
			desc = selectedItemStyle.Faint(true).Render(desc)
		} else {
			title = currentDirItemStyle.Render(title)
			desc = itemStyle.Render(desc)
		}
	} else {
		if index == m.Index() {
			title = selectedItemStyle.Render(title)
			desc = selectedItemStyle.Faint(true).Render(desc)
		} else {
			title = itemStyle.Render(title)
			desc = itemStyle.Render(desc)
		}
	}

	fmt.Fprintf(w, "%s\n%s", title, desc)
}

func createSessionList(sessions []*reconstruct.Session, currentDir string, width, height int) list.Model {
	items := make([]list.Item, len(sessions))
	for i, s := range sessions {
		items[i] = sessionListItem{
			session:           s,
			matchesCurrentDir: currentDir != "" && s.Project == currentDir,
		}
	}

	delegate := sessionDelegate{DefaultDelegate: list.NewDefaultDelegate()}

	l := list.New(items, delegate, width, height-1) // Reserve 1 line for help text only
	l.Title = ""
	l.SetShowStatusBar(false)
	l.SetShowHelp(false)
	l.SetShowTitle(false)
	l.SetFilteringEnabled(false) // Dedicated search on / instead

	return l
}

func (m Model) updateList(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		if selected, ok := m.list.SelectedItem().(sessionListItem); ok {
			s := selected.session
			return m, func() tea.Msg { return sessionSelectedMsg{session: s} }
		}
		return m, nil

	case "o":
		// Open selected session in new terminal
		if selected, ok := m.list.SelectedItem().(sessionListItem); ok {
			m.err = nil
			return m, openInNewTerminal(selected.session)
		}
		return m, nil

	case "/":
		m.mode = searchView
		m.searchInput.Focus()
		return m, nil

	case "p":
		// Toggle project filter
		m.projectFilterEnabled = !m.projectFilterEnabled
		m.savedCursorIndex = 0
		return m, loadSessions(m.engine, m.projectFilterEnabled, m.currentDirectory)

	case "s":
		// Rescan the logs - save cursor position first
		m.scanning = true
		m.scanDone = 0
		m.scanTotal = 0
		m.scanCurrent = ""
		m.savedCursorIndex = m.list.Index()
		m.scanCh = make(chan tea.Msg, 64)
		return m, tea.Batch(startScan(m.engine, m.scanCh, false), waitScan(m.scanCh))

	case "?":
		m.mode = helpView
		return m, nil

	case "q":
		return m, tea.Quit
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m Model) viewList() string {
	// Build help text / scan status
	var helpText string
	if m.scanning && m.scanTotal > 0 {
		progressBar := renderProgressBar(m.scanDone, m.scanTotal, m.width)
		fileInfo := ""
		if m.scanCurrent != "" {
			fileInfo = " | " + filepath.Base(m.scanCurrent)
			if len(fileInfo) > 60 {
				fileInfo = fileInfo[:57] + "..."
			}
		}
		helpText = progressBar + fileInfo
	} else if m.scanning {
		helpText = "⏳ Scanning logs..."
	} else {
		helpText = "↑/k up • ↓/j down • enter open • / search • q quit • ? more"
	}

	if len(m.sessions) == 0 {
		if m.scanning {
			return "Scanning logs...\n\n" + helpText
		}
		if m.projectFilterEnabled {
			return "No sessions in this project. Press 'p' to show all.\n\n" + helpText
		}
		return "No sessions found. Press 's' to rescan.\n\n" + helpText
	}

	return m.list.View() + "\n" + helpText
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "unknown"
	}
	return humanize.Time(t)
}
