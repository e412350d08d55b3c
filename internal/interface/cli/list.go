package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/neilberkman/ccreplay/internal/core/search"
)

var (
	listLimit   int
	listProject string
	listToday   bool
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List Claude Code sessions",
	Long: `List reconstructed sessions in reverse chronological order.

Shows session titles, project paths, conversation counts, and timestamps.

Examples:
  ccreplay list
  ccreplay list --limit 10
  ccreplay list --today
  ccreplay list --project /path/to/project`,
	RunE: runList,
}

func init() {
	rootCmd.AddCommand(listCmd)
	listCmd.Flags().IntVar(&listLimit, "limit", 20, "Maximum number of sessions to display")
	listCmd.Flags().StringVar(&listProject, "project", "", "Filter by project path")
	listCmd.Flags().BoolVar(&listToday, "today", false, "Only sessions active today")
}

func runList(cmd *cobra.Command, args []string) error {
	eng, err := openEngine()
	if err != nil {
		return err
	}

	sessions, err := eng.Sessions()
	if err != nil {
		return fmt.Errorf("failed to load sessions: %w", err)
	}

	filters := search.Filters{Project: listProject}
	if listToday {
		now := time.Now()
		filters.After = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
		filters.HasAfter = true
	}
	sessions = search.FilterSessions(sessions, filters)

	if len(sessions) > listLimit {
		sessions = sessions[:listLimit]
	}

	if len(sessions) == 0 {
		switch {
		case listProject != "":
			fmt.Printf("No sessions found for project: %s\n", listProject)
		case listToday:
			fmt.Println("No sessions active today.")
		default:
			fmt.Println("No sessions found. Is Claude Code writing logs to ~/.claude/projects?")
		}
		return nil
	}

	fmt.Printf("Showing %d session(s)", len(sessions))
	if listProject != "" {
		fmt.Printf(" for project: %s", listProject)
	}
	fmt.Println()
	fmt.Println()

	for i, s := range sessions {
		fmt.Printf("[%d] %s\n", i+1, s.ID)
		if title := s.Title(); title != "" && title != s.ID {
			fmt.Printf("    Title: %s\n", truncateSummary(title, 80))
		}
		fmt.Printf("    Project: %s\n", s.Project)
		fmt.Printf("    Conversations: %d\n", len(s.Pairs))
		if !s.LastActivity.IsZero() {
			fmt.Printf("    Updated: %s\n", formatTimestamp(s.LastActivity))
		}
		if !s.StartTime.IsZero() {
			fmt.Printf("    Started: %s\n", formatTimestamp(s.StartTime))
		}
		fmt.Println()
	}

	return nil
}

// truncateSummary truncates long summaries for display
func truncateSummary(summary string, maxLen int) string {
	// Remove newlines and excessive whitespace
	summary = strings.ReplaceAll(summary, "\n", " ")
	summary = strings.Join(strings.Fields(summary), " ")

	if len(summary) <= maxLen {
		return summary
	}

	// Find a good break point (end of word)
	truncated := summary[:maxLen]
	lastSpace := strings.LastIndex(truncated, " ")
	if lastSpace > maxLen-20 {
		truncated = truncated[:lastSpace]
	}

	return truncated + "..."
}

// formatTimestamp formats a timestamp in a human-friendly way
func formatTimestamp(t time.Time) string {
	now := time.Now()
	diff := now.Sub(t)

	// Less than a minute
	if diff < time.Minute {
		return "just now"
	}

	// Less than an hour
	if diff < time.Hour {
		mins := int(diff.Minutes())
		if mins == 1 {
			return "1 minute ago"
		}
		return fmt.Sprintf("%d minutes ago", mins)
	}

	// Less than a day
	if diff < 24*time.Hour {
		hours := int(diff.Hours())
		if hours == 1 {
			return "1 hour ago"
		}
		return fmt.Sprintf("%d hours ago", hours)
	}

	// Less than a week
	if diff < 7*24*time.Hour {
		days := int(diff.Hours() / 24)
		if days == 1 {
			return "1 day ago"
		}
		return fmt.Sprintf("%d days ago", days)
	}

	// Less than a month
	if diff < 30*24*time.Hour {
		weeks := int(diff.Hours() / 24 / 7)
		if weeks == 1 {
			return "1 week ago"
		}
		return fmt.Sprintf("%d weeks ago", weeks)
	}

	// Show formatted date
	if t.Year() == now.Year() {
		return t.Format("Jan 2")
	}

	return t.Format("Jan 2, 2006")
}
