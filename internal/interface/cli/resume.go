package cli

import (
	"fmt"
	"os"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/neilberkman/ccreplay/internal/core/reconstruct"
	"github.com/neilberkman/ccreplay/internal/core/search"
	"github.com/neilberkman/ccreplay/internal/core/session"
	"github.com/neilberkman/ccreplay/internal/core/terminal"
)

var resumeCmd = &cobra.Command{
	Use:   "resume [query]",
	Short: "Find and resume a Claude Code session",
	Long: `Search past sessions and resume one with its original context.

With a query, candidates come from a full conversation search. Without
one, the most recent sessions are offered. The resumed session gets a
context-priming prompt built from the session's age and working
directory; customize it via ~/.config/ccreplay/resume_prompt.txt.

Examples:
  ccreplay resume
  ccreplay resume "postgres migration bug"
  ccreplay resume "ena-6530" --auto
  ccreplay resume "schema.go" --fork --terminal`,
	RunE: runResume,
}

var (
	resumeAuto     bool
	resumeFork     bool
	resumeTerminal bool
)

func init() {
	rootCmd.AddCommand(resumeCmd)

	resumeCmd.Flags().BoolVar(&resumeAuto, "auto", false, "Auto-select best match without prompt")
	resumeCmd.Flags().BoolVar(&resumeFork, "fork", false, "Fork into a new session instead of continuing")
	resumeCmd.Flags().BoolVar(&resumeTerminal, "terminal", false, "Launch in a new terminal window")
}

func runResume(cmd *cobra.Command, args []string) error {
	eng, err := openEngine()
	if err != nil {
		return err
	}

	var candidates []*reconstruct.Session
	if len(args) == 0 {
		spin := session.NewSpinner("Scanning sessions...")
		spin.Start()
		sessions, err := eng.Sessions()
		spin.Stop()
		if err != nil {
			return fmt.Errorf("failed to load sessions: %w", err)
		}
		candidates = sessions
	} else {
		query := strings.Join(args, " ")
		fmt.Printf("Searching for: \"%s\"\n", query)

		spin := session.NewSpinner("Scanning sessions...")
		spin.Start()
		results, err := eng.Search(query, search.Options{})
		spin.Stop()
		if err != nil {
			return fmt.Errorf("search failed: %w", err)
		}
		seen := map[string]bool{}
		for _, r := range results {
			if seen[r.SessionID] {
				continue
			}
			seen[r.SessionID] = true
			s, err := eng.Session(r.SessionID)
			if err != nil {
				continue
			}
			candidates = append(candidates, s)
		}
	}

	if len(candidates) == 0 {
		fmt.Println("No matching sessions found.")
		return nil
	}

	displayCount := len(candidates)
	if displayCount > 5 {
		displayCount = 5
	}

	fmt.Printf("\nFound %d session(s):\n\n", len(candidates))
	for i := 0; i < displayCount; i++ {
		s := candidates[i]
		fmt.Printf("%d. %s\n", i+1, s.ID)
		fmt.Printf("   Project: %s\n", s.Project)

		if title := s.Title(); title != s.ID {
			if len(title) > 150 {
				title = title[:147] + "..."
			}
			title = strings.ReplaceAll(title, "\n", " ")
			fmt.Printf("   Summary: %s\n", title)
		}
		fmt.Printf("   Updated: %s\n", formatTimestamp(s.LastActivity))
		fmt.Println()
	}

	// Select session
	var selection int
	if resumeAuto {
		selection = 1
		fmt.Printf("Auto-selecting: %s\n", candidates[0].ID)
	} else {
		fmt.Printf("Select session to resume (1-%d, 0 to cancel): ", displayCount)
		_, err := fmt.Scanf("%d", &selection)
		if err != nil || selection < 1 || selection > displayCount {
			fmt.Println("Cancelled.")
			return nil
		}
	}

	selected := candidates[selection-1]
	fmt.Printf("\nResuming session %s...\n", selected.ID)
	return launchClaude(selected, resumeFork, resumeTerminal)
}

// launchClaude resumes a session, either replacing this process or in a
// freshly spawned terminal window.
func launchClaude(s *reconstruct.Session, fork, newTerminal bool) error {
	command, err := session.BuildResumeCommand(s, fork)
	if err != nil {
		return fmt.Errorf("failed to build resume command: %w", err)
	}
	workingDir := session.ResolveWorkingDir(s.Project, s.LastCWD)

	if newTerminal {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		spawner := &terminal.Spawner{CustomCommand: cfg.TerminalCommand}
		if err := spawner.Spawn(terminal.SpawnConfig{WorkingDir: workingDir, Command: command}); err != nil {
			return fmt.Errorf("failed to spawn terminal: %w", err)
		}
		fmt.Println("Launched in a new terminal window.")
		return nil
	}

	return execShell(workingDir, command)
}

// execShell replaces the current process with the command, run through a
// login shell so version managers are loaded.
func execShell(workingDir, command string) error {
	if workingDir != "" {
		if err := os.Chdir(workingDir); err != nil {
			return fmt.Errorf("failed to cd to %s: %w", workingDir, err)
		}
	}

	shell := os.Getenv("SHELL")
	if shell == "" {
		shell = "/bin/bash"
	}

	return syscall.Exec(shell, []string{shell, "-l", "-c", command}, os.Environ())
}
