package tui

import (
	"os"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/neilberkman/ccreplay/internal/core/engine"
	"github.com/neilberkman/ccreplay/internal/core/reconstruct"
)

type viewMode int

const (
	listView viewMode = iota
	detailView
	searchView
	helpView
	fallbackView
)

type Model struct {
	engine   *engine.Engine
	mode     viewMode
	list     list.Model
	viewport viewport.Model
	width    int
	height   int
	err      error

	sessions       []*reconstruct.Session
	currentSession *reconstruct.Session
	statusMessage  string

	// Session list state
	projectFilterEnabled bool
	currentDirectory     string
	savedCursorIndex     int

	// Scan state
	scanning    bool
	scanDone    int
	scanTotal   int
	scanCurrent string
	scanCh      chan tea.Msg

	// Search view state
	searchInput       textinput.Model
	searchResults     []searchResult
	searchSelectedIdx int
	searchViewOffset  int

	// In-session search state
	inSessionSearchMode     bool
	inSessionNavigationMode bool
	inSessionSearch         textinput.Model
	matchLines              []int
	inSessionMatchIdx       int

	// Detail view options
	showThinking bool

	// Fallback view state
	fallbackSession *reconstruct.Session

	// Set when the user picked a session to resume; the CLI layer execs
	// claude after the program exits.
	LaunchSession *reconstruct.Session
	LaunchFork    bool
}

func New(eng *engine.Engine) Model {
	searchInput := textinput.New()
	searchInput.Placeholder = "type to search conversations"
	searchInput.CharLimit = 200

	inSessionSearch := textinput.New()
	inSessionSearch.Placeholder = "search in session"
	inSessionSearch.Prompt = "/"
	inSessionSearch.CharLimit = 200

	cwd, _ := os.Getwd()

	return Model{
		engine:           eng,
		mode:             listView,
		searchInput:      searchInput,
		inSessionSearch:  inSessionSearch,
		currentDirectory: cwd,
		scanning:         true,
		scanCh:           make(chan tea.Msg, 64),
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(startScan(m.engine, m.scanCh, false), waitScan(m.scanCh))
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		if len(m.sessions) > 0 {
			m.list.SetSize(m.width, m.height-1)
		}
		if m.currentSession != nil {
			m.viewport.Width = m.width
			m.viewport.Height = m.height - 8
			m.refreshDetailContent()
		}
		return m, nil

	case tea.MouseMsg:
		return m.updateMouse(msg)

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			return m, tea.Quit
		}

		// Mode-specific key handling
		switch m.mode {
		case listView:
			return m.updateList(msg)
		case detailView:
			return m.updateDetail(msg)
		case searchView:
			return m.updateSearch(msg)
		case helpView:
			return m.updateHelp(msg)
		case fallbackView:
			return m.updateTerminalFallback(msg)
		}

	case scanProgressMsg:
		m.scanDone = msg.progress.Done
		m.scanTotal = msg.progress.Total
		m.scanCurrent = msg.progress.Path
		return m, waitScan(m.scanCh)

	case scanDoneMsg:
		m.scanning = false
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		return m, loadSessions(m.engine, m.projectFilterEnabled, m.currentDirectory)

	case sessionsLoadedMsg:
		m.err = nil
		m.sessions = msg.sessions
		m.list = createSessionList(msg.sessions, m.currentDirectory, m.width, m.height)
		if m.savedCursorIndex > 0 && m.savedCursorIndex < len(msg.sessions) {
			m.list.Select(m.savedCursorIndex)
			m.savedCursorIndex = 0
		}
		return m, nil

	case sessionSelectedMsg:
		m.currentSession = msg.session
		m.showThinking = false
		m.viewport = createViewport(msg.session, false, m.width, m.height)
		m.mode = detailView
		return m, nil

	case searchResultsMsg:
		m.searchResults = msg.results
		return m, nil

	case sessionLaunchedMsg:
		m.LaunchSession = msg.session
		m.LaunchFork = msg.fork
		return m, tea.Quit

	case statusMsg:
		m.statusMessage = msg.text
		return m, nil

	case terminalSpawnedMsg:
		if msg.err != nil {
			m.fallbackSession = msg.session
			m.mode = fallbackView
			return m, nil
		}
		m.statusMessage = "Opened in new terminal window"
		return m, nil

	case errMsg:
		m.err = msg.err
		return m, nil
	}

	return m, nil
}

func (m Model) updateMouse(msg tea.MouseMsg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch m.mode {
	case listView:
		m.list, cmd = m.list.Update(msg)
	case detailView:
		m.viewport, cmd = m.viewport.Update(msg)
	case searchView:
		switch msg.Button {
		case tea.MouseButtonWheelDown:
			m = handleSearchMouseWheel(m, true)
		case tea.MouseButtonWheelUp:
			m = handleSearchMouseWheel(m, false)
		}
	}
	return m, cmd
}

// refreshDetailContent re-renders the conversation into the viewport,
// preserving any in-session search highlighting.
func (m *Model) refreshDetailContent() {
	if m.currentSession == nil {
		return
	}
	query := ""
	if m.inSessionSearchMode {
		query = m.inSessionSearch.Value()
	}
	result := renderConversation(m.currentSession, m.showThinking, query, m.inSessionMatchIdx, m.width, m.matchLines)
	m.viewport.SetContent(result.content)
}

func (m Model) View() string {
	if m.err != nil {
		return "Error: " + m.err.Error() + "\n\nPress q to quit"
	}

	switch m.mode {
	case listView:
		return m.viewList()
	case detailView:
		return m.viewDetail()
	case searchView:
		return m.viewSearch()
	case helpView:
		return m.viewHelp()
	case fallbackView:
		return m.viewTerminalFallback()
	}

	return ""
}
