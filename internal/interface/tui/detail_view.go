package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/muesli/reflow/wordwrap"

	"github.com/neilberkman/ccreplay/internal/core/extract"
	"github.com/neilberkman/ccreplay/internal/core/reconstruct"
)

func createViewport(s *reconstruct.Session, showThinking bool, width, height int) viewport.Model {
	vp := viewport.New(width, height-8)
	result := renderConversation(s, showThinking, "", -1, width, nil)
	vp.SetContent(result.content)
	return vp
}

type renderResult struct {
	content string
}

// headerLines is the line count of the header block rendered below;
// in-session search skips these lines when locating matches.
const headerLines = 5

func renderConversation(s *reconstruct.Session, showThinking bool, query string, currentMatchIdx int, width int, matchLines []int) renderResult {
	var b strings.Builder

	// Header
	b.WriteString(titleStyle.Render("Session: "+firstLine(s.Title(), 80)) + "\n")
	b.WriteString(fmt.Sprintf("Project: %s\n", s.Project))
	b.WriteString(fmt.Sprintf("Conversations: %d | Tools: %d | Tokens: %s\n",
		len(s.Pairs), s.TotalTools, humanize.Comma(int64(s.TotalTokens.Total()))))
	b.WriteString(strings.Repeat("─", width) + "\n\n")

	wrapWidth := width - 10
	if wrapWidth < 40 {
		wrapWidth = 40
	}

	// Conversations - render WITHOUT highlighting first
	for i := range s.Pairs {
		p := &s.Pairs[i]

		b.WriteString(userStyle.Render("▸ USER"))
		b.WriteString(" ")
		b.WriteString(timestampStyle.Render(formatTime(p.UserTime)))
		b.WriteString("\n")
		b.WriteString(wordwrap.String(extract.CleanUserText(p.UserContent), wrapWidth))
		b.WriteString("\n\n")

		if showThinking && len(p.ThinkingBlocks) > 0 {
			b.WriteString(thinkingStyle.Render("▸ THINKING"))
			b.WriteString("\n")
			for j, block := range p.ThinkingBlocks {
				if j > 0 {
					b.WriteString("\n")
				}
				b.WriteString(wordwrap.String(block.Text, wrapWidth))
				b.WriteString("\n")
			}
			b.WriteString("\n")
		}

		b.WriteString(assistantStyle.Render("▸ ASSISTANT"))
		b.WriteString(" ")
		b.WriteString(timestampStyle.Render(formatTime(p.AssistantTime)))
		if p.ResponseTimeSeconds > 0 {
			b.WriteString(timestampStyle.Render(fmt.Sprintf(" (%.1fs)", p.ResponseTimeSeconds)))
		}
		b.WriteString("\n")
		answer := extract.CleanDisplayText(p.AssistantContent)
		if answer == "" && len(p.AllToolUses) == 0 {
			answer = "(no response recorded)"
		}
		b.WriteString(wordwrap.String(answer, wrapWidth))
		b.WriteString("\n")

		if len(p.AllToolUses) > 0 {
			b.WriteString(toolStyle.Render(wordwrap.String("⚙ "+toolSummary(p.AllToolUses), wrapWidth)))
			b.WriteString("\n")
		}
		for _, thread := range p.SubAgentThreads {
			line := "⤷ Task: " + firstLine(thread.Command, 60)
			if n := len(thread.Responses); n > 0 {
				line += fmt.Sprintf(" (%d responses)", n)
			}
			b.WriteString(toolStyle.Render(line))
			b.WriteString("\n")
		}

		b.WriteString("\n")
		b.WriteString(strings.Repeat("─", width) + "\n\n")
	}

	baseContent := b.String()

	if query == "" {
		return renderResult{content: baseContent}
	}

	// Split into lines and highlight - the current match gets the active
	// style, the rest the regular match style.
	lines := strings.Split(baseContent, "\n")
	currentMatchLine := -1
	if currentMatchIdx >= 0 && currentMatchIdx < len(matchLines) {
		currentMatchLine = matchLines[currentMatchIdx]
	}

	var result strings.Builder
	for i, line := range lines {
		isCurrent := i == currentMatchLine
		result.WriteString(highlightLineWithStyle(line, query, isCurrent))
		if i < len(lines)-1 {
			result.WriteString("\n")
		}
	}

	return renderResult{content: result.String()}
}

func toolSummary(tools []reconstruct.ToolInvocation) string {
	names := make([]string, len(tools))
	for i, t := range tools {
		names[i] = t.Name
		if t.Result != nil && t.Result.IsError {
			names[i] += " (failed)"
		}
	}
	return strings.Join(names, ", ")
}

func (m Model) updateDetail(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// Handle in-session search mode
	if m.inSessionSearchMode {
		if m.inSessionNavigationMode {
			// Navigation mode (after Enter) - n/p cycle through matches
			switch msg.String() {
			case "esc":
				m.exitInSessionSearch()
				return m, nil

			case "n":
				if len(m.matchLines) > 0 {
					m.inSessionMatchIdx++
					if m.inSessionMatchIdx >= len(m.matchLines) {
						m.inSessionMatchIdx = 0
					}
					m.refreshDetailContent()
					scrollToMatchSmart(&m)
				}
				return m, nil

			case "p":
				if len(m.matchLines) > 0 {
					m.inSessionMatchIdx--
					if m.inSessionMatchIdx < 0 {
						m.inSessionMatchIdx = len(m.matchLines) - 1
					}
					m.refreshDetailContent()
					scrollToMatchSmart(&m)
				}
				return m, nil

			case "j", "down":
				m.viewport.LineDown(1)
				return m, nil

			case "k", "up":
				m.viewport.LineUp(1)
				return m, nil

			default:
				return m, nil
			}
		}

		// Typing in the search box
		switch msg.String() {
		case "esc":
			m.exitInSessionSearch()
			return m, nil

		case "enter":
			// Navigation mode enables n/p cycling
			if len(m.matchLines) > 0 {
				m.inSessionNavigationMode = true
				m.refreshDetailContent()
			}
			return m, nil

		case "down":
			m.viewport.LineDown(1)
			return m, nil

		case "up":
			m.viewport.LineUp(1)
			return m, nil

		default:
			var cmd tea.Cmd
			m.inSessionSearch, cmd = m.inSessionSearch.Update(msg)

			// Live search: re-highlight and jump to the first match on
			// every keystroke.
			query := m.inSessionSearch.Value()
			if query != "" && m.currentSession != nil {
				m.matchLines = findMatchesInRenderedContent(m.currentSession, m.showThinking, query, m.width)
				if len(m.matchLines) > 0 {
					m.inSessionMatchIdx = 0
				} else {
					m.inSessionMatchIdx = -1
				}
				m.refreshDetailContent()
				if len(m.matchLines) > 0 {
					scrollToMatchAlways(&m)
				}
			} else {
				m.matchLines = nil
				m.inSessionMatchIdx = 0
				m.refreshDetailContent()
			}

			return m, cmd
		}
	}

	// Normal detail view navigation
	switch msg.String() {
	case "esc", "q":
		m.mode = listView
		m.statusMessage = ""
		return m, nil

	case "r":
		// Resume session in Claude Code
		if m.currentSession != nil {
			return m, launchClaudeSession(m.currentSession, false)
		}
		return m, nil

	case "f":
		// Fork session (resume under a new session ID)
		if m.currentSession != nil {
			return m, launchClaudeSession(m.currentSession, true)
		}
		return m, nil

	case "c":
		// Copy resume command to clipboard
		if m.currentSession != nil {
			return m, copyResumeCommand(m.currentSession, false)
		}
		return m, nil

	case "o":
		// Open in new terminal window
		if m.currentSession != nil {
			m.err = nil
			return m, openInNewTerminal(m.currentSession)
		}
		return m, nil

	case "t":
		// Toggle thinking blocks
		m.showThinking = !m.showThinking
		m.refreshDetailContent()
		m.viewport.GotoTop()
		return m, nil

	case "e":
		// Export to markdown in the current directory
		if m.currentSession != nil {
			return m, exportSession(m.currentSession, m.showThinking)
		}
		return m, nil

	case "ctrl+f", "/":
		m.inSessionSearchMode = true
		m.inSessionSearch.Focus()
		return m, nil

	case "j", "down":
		m.viewport.LineDown(1)
		return m, nil

	case "k", "up":
		m.viewport.LineUp(1)
		return m, nil

	case "d":
		m.viewport.HalfViewDown()
		return m, nil

	case "u":
		m.viewport.HalfViewUp()
		return m, nil

	case "g":
		m.viewport.GotoTop()
		return m, nil

	case "G":
		m.viewport.GotoBottom()
		return m, nil
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m *Model) exitInSessionSearch() {
	m.inSessionSearchMode = false
	m.inSessionNavigationMode = false
	m.inSessionSearch.SetValue("")
	m.inSessionSearch.Blur()
	m.matchLines = nil
	m.inSessionMatchIdx = 0
	m.refreshDetailContent()
}

// highlightLineWithStyle highlights all occurrences of query in a single
// line. On the current match line the first occurrence gets the active
// style.
func highlightLineWithStyle(text, query string, isCurrent bool) string {
	if query == "" {
		return text
	}

	lower := strings.ToLower(text)
	lowerQuery := strings.ToLower(query)

	var result strings.Builder
	lastIdx := 0
	matchCount := 0

	for {
		idx := strings.Index(lower[lastIdx:], lowerQuery)
		if idx == -1 {
			result.WriteString(text[lastIdx:])
			break
		}

		idx += lastIdx
		result.WriteString(text[lastIdx:idx])

		var style lipgloss.Style
		if isCurrent && matchCount == 0 {
			style = searchCurrentMatchStyle
		} else {
			style = searchMatchStyle
		}
		result.WriteString(style.Render(text[idx : idx+len(query)]))

		lastIdx = idx + len(query)
		matchCount++
	}

	return result.String()
}

// findMatchesInRenderedContent renders the conversation without
// highlighting, splits it into lines, and returns the indices of lines
// containing the query. Scrolling then works on exact rendered lines
// with no offset arithmetic.
func findMatchesInRenderedContent(s *reconstruct.Session, showThinking bool, query string, width int) []int {
	if query == "" {
		return nil
	}

	result := renderConversation(s, showThinking, "", -1, width, nil)
	lines := strings.Split(result.content, "\n")

	var matchLines []int
	queryLower := strings.ToLower(query)
	for i, line := range lines {
		if i >= headerLines && strings.Contains(strings.ToLower(line), queryLower) {
			matchLines = append(matchLines, i)
		}
	}

	return matchLines
}

// scrollToMatchSmart scrolls for n/p navigation: if the match is already
// visible it stays put, otherwise the match lands 3 lines from the top.
func scrollToMatchSmart(m *Model) {
	if len(m.matchLines) == 0 || m.inSessionMatchIdx < 0 || m.inSessionMatchIdx >= len(m.matchLines) {
		return
	}

	matchLine := m.matchLines[m.inSessionMatchIdx]
	currentOffset := m.viewport.YOffset
	if matchLine >= currentOffset && matchLine < currentOffset+m.viewport.Height {
		return
	}

	targetOffset := matchLine - 3
	if targetOffset < 0 {
		targetOffset = 0
	}
	m.viewport.SetYOffset(targetOffset)
}

// scrollToMatchAlways always scrolls to the match - used for live search
// while typing.
func scrollToMatchAlways(m *Model) {
	if len(m.matchLines) == 0 || m.inSessionMatchIdx < 0 || m.inSessionMatchIdx >= len(m.matchLines) {
		return
	}

	targetOffset := m.matchLines[m.inSessionMatchIdx] - 3
	if targetOffset < 0 {
		targetOffset = 0
	}
	m.viewport.SetYOffset(targetOffset)
}

func (m Model) viewDetail() string {
	if m.currentSession == nil {
		return "No session loaded"
	}

	content := m.viewport.View()

	// Add search box if in search mode
	if m.inSessionSearchMode {
		searchBox := "\n" + m.inSessionSearch.View()
		if len(m.matchLines) > 0 {
			searchBox += fmt.Sprintf(" [%d/%d matches]", m.inSessionMatchIdx+1, len(m.matchLines))
		} else if m.inSessionSearch.Value() != "" {
			searchBox += " [no matches]"
		}
		if m.inSessionNavigationMode {
			searchBox += "\nn/p: next/prev | ↑↓: scroll | esc: exit"
		} else {
			searchBox += "\nEnter: navigate mode | ↑↓: scroll | esc: exit"
		}
		content += searchBox
	} else {
		footer := fmt.Sprintf("\n%3.f%%", m.viewport.ScrollPercent()*100)
		if m.statusMessage != "" {
			footer += "\n" + helpStyle.Render(m.statusMessage)
		}
		footer += "\n\nr: resume | f: fork | o: new terminal | c: copy | e: export | t: thinking | /: search | j/k: scroll | esc: back"
		content += footer
	}

	return content
}
