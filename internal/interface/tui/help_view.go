package tui

import (
	tea "github.com/charmbracelet/bubbletea"
)

func (m Model) updateHelp(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	m.mode = listView
	return m, nil
}

func (m Model) viewHelp() string {
	help := `
ccreplay - Help
═══════════════

SESSION LIST VIEW
─────────────────
  ↑/↓, j/k     Navigate sessions
  Enter        View session details
  o            Open session in new terminal
  /            Search conversations
  p            Toggle current-project filter
  s            Rescan logs
  ?            Show this help
  q            Quit

SESSION DETAIL VIEW
───────────────────
  r            Resume session in Claude Code
  f            Fork session (new session ID)
  o            Open in new terminal window
  c            Copy resume command to clipboard
  e            Export session to markdown
  t            Toggle thinking blocks
  /            Search within session
  n/p          Next/previous match (after Enter)
  j/k          Scroll line by line
  d/u          Scroll half page
  g/G          Jump to top/bottom
  esc          Back to session list

SEARCH VIEW
───────────
  Type         Enter search query (live)
  Enter        Open selected session
  Ctrl+j, ↑↓   Navigate results
  esc          Back to session list

Filters work inside the query: project:path, after:yesterday,
before:2024-11-01, after:3-days-ago.

Press any key to return to session list
`

	return helpStyle.Render(help)
}
