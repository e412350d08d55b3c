package cli

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/neilberkman/ccreplay/internal/core/discovery"
)

var (
	statsDays     int
	statsProjects int
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show usage statistics",
	Long: `Display statistics across the whole conversation archive.

Shows session and conversation counts, tool and token usage, daily
activity, and the busiest projects.`,
	RunE: runStats,
}

func init() {
	rootCmd.AddCommand(statsCmd)
	statsCmd.Flags().IntVar(&statsDays, "days", 14, "Number of recent days to show")
	statsCmd.Flags().IntVar(&statsProjects, "projects", 5, "Number of top projects to show")
}

func runStats(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	eng, err := openEngine()
	if err != nil {
		return err
	}

	overview, err := eng.Overview()
	if err != nil {
		return fmt.Errorf("failed to load sessions: %w", err)
	}

	fmt.Println("Usage Statistics")
	fmt.Println("================")
	fmt.Println()

	fmt.Printf("Total Sessions:      %d\n", overview.TotalSessions)
	fmt.Printf("Total Conversations: %d\n", overview.TotalConversations)
	fmt.Printf("Total Tool Calls:    %d\n", overview.TotalToolUses)
	fmt.Printf("Total Tokens:        %s\n", humanize.Comma(int64(overview.TotalTokens.Total())))
	if overview.TotalThinkingChars > 0 {
		fmt.Printf("Thinking Output:     %s chars\n", humanize.Comma(int64(overview.TotalThinkingChars)))
	}
	fmt.Println()

	if overview.TotalSessions > 0 {
		if !overview.OldestSession.IsZero() {
			fmt.Printf("Oldest Session:    %s\n", overview.OldestSession.Format("Jan 2, 2006 3:04 PM"))
		}
		if !overview.NewestSession.IsZero() {
			fmt.Printf("Newest Session:    %s\n", overview.NewestSession.Format("Jan 2, 2006 3:04 PM"))
		}
		fmt.Println()

		if overview.MostActiveProject != "" {
			fmt.Printf("Most Active Project:\n")
			fmt.Printf("  Path:     %s\n", overview.MostActiveProject)
			fmt.Printf("  Sessions: %d\n", overview.MostActiveProjectCount)
			fmt.Println()
		}
	}

	days, err := eng.DailyStatistics()
	if err != nil {
		return err
	}
	if len(days) > 0 {
		shown := days
		if len(shown) > statsDays {
			shown = shown[:statsDays]
		}
		fmt.Printf("Daily Activity (last %d day(s)):\n", len(shown))
		for _, d := range shown {
			fmt.Printf("  %s  %3d session(s)  %4d conv  %5d tools  %12s tok\n",
				d.Date, d.Sessions, d.Conversations, d.ToolUses, humanize.Comma(int64(d.Tokens.Total())))
		}
		fmt.Println()
	}

	projects, err := eng.ProjectStatistics()
	if err != nil {
		return err
	}
	if len(projects) > 0 {
		shown := projects
		if len(shown) > statsProjects {
			shown = shown[:statsProjects]
		}
		fmt.Printf("Top Projects:\n")
		for _, p := range shown {
			fmt.Printf("  %s\n", p.Project)
			fmt.Printf("    Sessions: %d  Conversations: %d  Tools: %d  Time: %s\n",
				p.Sessions, p.Conversations, p.ToolUses,
				(time.Duration(p.DurationSeconds) * time.Second).Round(time.Minute))
		}
		fmt.Println()
	}

	root := cfg.LogsDir
	if root == "" {
		if root, err = discovery.DefaultRoot(); err != nil {
			return err
		}
	}
	files, err := discovery.Find(root)
	if err != nil {
		return err
	}
	var totalBytes int64
	for _, f := range files {
		totalBytes += f.Size
	}
	fmt.Printf("Logs Location: %s\n", root)
	fmt.Printf("Logs Size:     %s across %d file(s)\n", formatBytes(totalBytes), len(files))

	return nil
}

// formatBytes formats bytes into human-readable format
func formatBytes(bytes int64) string {
	const (
		KB = 1024
		MB = KB * 1024
		GB = MB * 1024
	)

	switch {
	case bytes >= GB:
		return fmt.Sprintf("%.2f GB", float64(bytes)/float64(GB))
	case bytes >= MB:
		return fmt.Sprintf("%.2f MB", float64(bytes)/float64(MB))
	case bytes >= KB:
		return fmt.Sprintf("%.2f KB", float64(bytes)/float64(KB))
	default:
		return fmt.Sprintf("%d bytes", bytes)
	}
}
