package tui

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/atotto/clipboard"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/neilberkman/ccreplay/internal/core/config"
	"github.com/neilberkman/ccreplay/internal/core/engine"
	"github.com/neilberkman/ccreplay/internal/core/export"
	"github.com/neilberkman/ccreplay/internal/core/reconstruct"
	"github.com/neilberkman/ccreplay/internal/core/search"
	"github.com/neilberkman/ccreplay/internal/core/session"
	"github.com/neilberkman/ccreplay/internal/core/terminal"
)

type errMsg struct {
	err error
}

type statusMsg struct {
	text string
}

type sessionsLoadedMsg struct {
	sessions []*reconstruct.Session
}

type sessionSelectedMsg struct {
	session *reconstruct.Session
}

type scanProgressMsg struct {
	progress engine.Progress
}

type scanDoneMsg struct {
	err error
}

type searchResultsMsg struct {
	results []searchResult
}

type sessionLaunchedMsg struct {
	session *reconstruct.Session
	fork    bool
}

type terminalSpawnedMsg struct {
	session *reconstruct.Session
	err     error
}

// searchResult groups one session's matches for the search view.
type searchResult struct {
	SessionID string
	Summary   string
	Project   string
	Updated   string
	Matches   []matchInfo
}

type matchInfo struct {
	MatchType string
	Snippet   string
	PairIndex int
}

// startScan kicks off a scan on a background goroutine. Progress and
// completion arrive over ch; pair it with waitScan.
func startScan(eng *engine.Engine, ch chan<- tea.Msg, rebuild bool) tea.Cmd {
	return func() tea.Msg {
		go func() {
			onProgress := func(p engine.Progress) {
				ch <- scanProgressMsg{progress: p}
			}
			var err error
			if rebuild {
				_, err = eng.Rebuild(onProgress)
			} else {
				_, err = eng.Load(onProgress)
			}
			ch <- scanDoneMsg{err: err}
			close(ch)
		}()
		return nil
	}
}

// waitScan relays the next scan event. The progress handler re-arms it
// until scanDoneMsg arrives.
func waitScan(ch <-chan tea.Msg) tea.Cmd {
	return func() tea.Msg {
		return <-ch
	}
}

func loadSessions(eng *engine.Engine, projectFilter bool, currentDir string) tea.Cmd {
	return func() tea.Msg {
		sessions, err := eng.Sessions()
		if err != nil {
			return errMsg{err}
		}

		if projectFilter && currentDir != "" {
			var filtered []*reconstruct.Session
			for _, s := range sessions {
				if s.Project == currentDir {
					filtered = append(filtered, s)
				}
			}
			sessions = filtered
		}

		return sessionsLoadedMsg{sessions}
	}
}

func selectSession(eng *engine.Engine, id string) tea.Cmd {
	return func() tea.Msg {
		s, err := eng.Session(id)
		if err != nil {
			return errMsg{err}
		}
		return sessionSelectedMsg{session: s}
	}
}

func performSearch(eng *engine.Engine, query string) tea.Cmd {
	return func() tea.Msg {
		// Minimum 2 characters to search (avoid useless single-char results)
		if len(query) < 2 {
			return searchResultsMsg{results: nil}
		}

		matches, err := eng.Search(query, search.Options{MaxResults: 150})
		if err != nil {
			return errMsg{err}
		}
		if len(matches) == 0 {
			return searchResultsMsg{results: []searchResult{}}
		}

		// Group matches by session, up to 3 per session and 50 sessions,
		// keeping the newest-first match order.
		sessionMap := make(map[string]*searchResult)
		var sessionOrder []string
		for _, r := range matches {
			result, exists := sessionMap[r.SessionID]
			if !exists {
				if len(sessionOrder) >= 50 {
					continue
				}
				result = &searchResult{
					SessionID: r.SessionID,
					Summary:   r.SessionSummary,
					Project:   r.ProjectPath,
					Updated:   formatTime(r.Timestamp),
				}
				sessionMap[r.SessionID] = result
				sessionOrder = append(sessionOrder, r.SessionID)
			}
			if len(result.Matches) < 3 {
				result.Matches = append(result.Matches, matchInfo{
					MatchType: r.MatchType,
					Snippet:   r.MatchContext,
					PairIndex: r.PairIndex,
				})
			}
		}

		results := make([]searchResult, 0, len(sessionOrder))
		for _, id := range sessionOrder {
			results = append(results, *sessionMap[id])
		}

		return searchResultsMsg{results: results}
	}
}

func launchClaudeSession(s *reconstruct.Session, fork bool) tea.Cmd {
	return func() tea.Msg {
		// bubbletea owns the terminal, so the exec happens in the CLI
		// layer after the program quits.
		return sessionLaunchedMsg{session: s, fork: fork}
	}
}

func copyResumeCommand(s *reconstruct.Session, fromFallbackView bool) tea.Cmd {
	return func() tea.Msg {
		cmd := resumeShellCommand(s)

		if err := clipboard.WriteAll(cmd); err != nil {
			// No clipboard in this environment; show the command instead.
			if fromFallbackView {
				return statusMsg{text: "NoClipboard: " + cmd}
			}
			return statusMsg{text: "Command: " + cmd}
		}

		return statusMsg{text: "Resume command copied to clipboard!"}
	}
}

func writeCommandToFile(s *reconstruct.Session) tea.Cmd {
	return func() tea.Msg {
		filePath := "/tmp/ccreplay-cmd.sh"
		content := fmt.Sprintf("#!/bin/bash\n%s\n", resumeShellCommand(s))
		if err := os.WriteFile(filePath, []byte(content), 0755); err != nil {
			return statusMsg{text: fmt.Sprintf("Failed to write file: %v", err)}
		}
		return statusMsg{text: fmt.Sprintf("Command written to %s", filePath)}
	}
}

// resumeShellCommand is the plain resume command without the context
// prompt, for copying and writing out.
func resumeShellCommand(s *reconstruct.Session) string {
	workDir := session.ResolveWorkingDir(s.Project, s.LastCWD)
	if workDir != "" {
		return fmt.Sprintf("cd %s && claude --resume %s", workDir, s.ID)
	}
	return fmt.Sprintf("claude --resume %s", s.ID)
}

// exportSession writes the session as markdown into the current
// directory, same layout and filename as the export command.
func exportSession(s *reconstruct.Session, includeThinking bool) tea.Cmd {
	return func() tea.Msg {
		opts := export.Options{IncludeThinking: includeThinking, IncludeTools: true}
		if cfg, err := config.Load(); err == nil {
			opts.Template = cfg.ExportTemplate
		}

		markdown, err := export.Markdown(s, opts)
		if err != nil {
			return statusMsg{text: fmt.Sprintf("Export failed: %v", err)}
		}

		shortID := s.ID
		if len(shortID) > 8 {
			shortID = shortID[:8]
		}
		cwd, err := os.Getwd()
		if err != nil {
			return statusMsg{text: fmt.Sprintf("Export failed: %v", err)}
		}
		path := filepath.Join(cwd, fmt.Sprintf("session-%s.md", shortID))
		if err := os.WriteFile(path, []byte(markdown), 0644); err != nil {
			return statusMsg{text: fmt.Sprintf("Export failed: %v", err)}
		}

		return statusMsg{text: fmt.Sprintf("Exported to %s", path)}
	}
}

func openInNewTerminal(s *reconstruct.Session) tea.Cmd {
	return func() tea.Msg {
		command, err := session.BuildResumeCommand(s, false)
		if err != nil {
			return terminalSpawnedMsg{session: s, err: err}
		}

		cfg, err := config.Load()
		if err != nil {
			return terminalSpawnedMsg{session: s, err: err}
		}

		spawner := &terminal.Spawner{CustomCommand: cfg.TerminalCommand}
		spawnCfg := terminal.SpawnConfig{
			WorkingDir: session.ResolveWorkingDir(s.Project, s.LastCWD),
			Command:    command,
		}
		if err := spawner.Spawn(spawnCfg); err != nil {
			return terminalSpawnedMsg{session: s, err: err}
		}

		return terminalSpawnedMsg{session: s}
	}
}

func firstLine(s string, maxLen int) string {
	// Find first newline or max length
	for i, r := range s {
		if r == '\n' || i >= maxLen {
			if i > maxLen {
				return s[:maxLen] + "..."
			}
			return s[:i]
		}
	}
	if len(s) > maxLen {
		return s[:maxLen] + "..."
	}
	return s
}
