package tui

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
)

func (m Model) updateTerminalFallback(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.fallbackSession == nil {
		m.mode = listView
		return m, nil
	}

	switch msg.String() {
	case "r":
		// Resume in current terminal
		return m, launchClaudeSession(m.fallbackSession, false)

	case "c":
		// Copy command to clipboard - with fallback message
		return m, copyResumeCommand(m.fallbackSession, true)

	case "w":
		// Write command to file
		return m, writeCommandToFile(m.fallbackSession)

	case "q", "esc":
		// Go back to wherever we came from (list or detail view)
		m.statusMessage = ""
		if m.currentSession != nil {
			m.mode = detailView
		} else {
			m.mode = listView
		}
		return m, nil
	}

	return m, nil
}

func (m Model) viewTerminalFallback() string {
	if m.fallbackSession == nil {
		return "No session selected"
	}

	status := ""
	if m.statusMessage != "" {
		status = "\n" + helpStyle.Render(m.statusMessage) + "\n"
	}

	return fmt.Sprintf(`
%s

Cannot spawn a new terminal window in this environment (SSH/remote session).

Command to resume:

  %s

Options:

  r - Resume in THIS terminal
  w - Write command to /tmp/ccreplay-cmd.sh
  c - Try copying to clipboard
  q - Cancel
%s
`, titleStyle.Render("Terminal Not Available"), resumeShellCommand(m.fallbackSession), status)
}
