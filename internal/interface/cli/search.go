package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/neilberkman/ccreplay/internal/core/search"
)

var (
	searchLimit    int
	searchRegex    bool
	searchCaseSens bool
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search Claude Code conversations",
	Long: `Search through every reconstructed conversation.

Matches user messages, assistant responses and thinking blocks, in that
order of precedence. Literal queries support OR (uppercase or lowercase)
between alternatives; --regex switches to regular expression matching.

Filter tokens inside the query scope the search:
  project:<substring>   only sessions under a matching project path
  after:<date>          only sessions active after the date
  before:<date>         only sessions started before the date
Dates accept natural language ("yesterday", "last monday") or formats
like 2025-01-08.

Examples:
  ccreplay search "authentication bug"
  ccreplay search "deadlock OR race"
  ccreplay search "project:api after:yesterday migration"
  ccreplay search --regex "fix\w+ the \w+"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSearch,
}

func init() {
	rootCmd.AddCommand(searchCmd)
	searchCmd.Flags().IntVar(&searchLimit, "limit", 0, "Maximum number of matches (default: 50)")
	searchCmd.Flags().BoolVar(&searchRegex, "regex", false, "Treat query as a regular expression")
	searchCmd.Flags().BoolVar(&searchCaseSens, "case-sensitive", false, "Match case exactly")
}

func runSearch(cmd *cobra.Command, args []string) error {
	// Join all args as query
	query := strings.Join(args, " ")

	eng, err := openEngine()
	if err != nil {
		return err
	}

	results, err := eng.Search(query, search.Options{
		Regex:         searchRegex,
		CaseSensitive: searchCaseSens,
		MaxResults:    searchLimit,
	})
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if len(results) == 0 {
		fmt.Printf("No results found for: %s\n", query)
		return nil
	}

	// Group matches by session, keeping the newest-first result order.
	order := []string{}
	bySession := map[string][]search.SearchResult{}
	for _, r := range results {
		if _, seen := bySession[r.SessionID]; !seen {
			order = append(order, r.SessionID)
		}
		bySession[r.SessionID] = append(bySession[r.SessionID], r)
	}

	fmt.Printf("Found %d session(s) with %d match(es) for: %s\n", len(order), len(results), query)
	fmt.Println()

	for n, id := range order {
		matches := bySession[id]
		first := matches[0]

		fmt.Printf("=== Session %d ===\n", n+1)
		fmt.Printf("ID:      %s\n", id)
		if first.SessionSummary != "" {
			fmt.Printf("Summary: %s\n", truncateSummary(first.SessionSummary, 80))
		}
		fmt.Printf("Project: %s\n", first.ProjectPath)
		fmt.Printf("Matches: %d\n", len(matches))
		fmt.Println()

		// Show up to 3 matches per session
		matchLimit := 3
		if len(matches) > matchLimit {
			fmt.Printf("Showing first %d of %d matches:\n", matchLimit, len(matches))
		}
		for i, m := range matches {
			if i >= matchLimit {
				break
			}
			fmt.Printf("  Match %d [%s, %s]:\n", i+1, m.MatchType, formatTimestamp(m.Timestamp))
			fmt.Printf("  %s\n", truncateMessage(m.MatchContext, 200))
			fmt.Println()
		}
	}

	return nil
}

// truncateMessage truncates long messages for display
func truncateMessage(msg string, maxLen int) string {
	if len(msg) <= maxLen {
		return msg
	}

	// Find a good break point (end of word)
	truncated := msg[:maxLen]
	lastSpace := strings.LastIndexAny(truncated, " \n\t")
	if lastSpace > maxLen-50 {
		truncated = truncated[:lastSpace]
	}

	return truncated + "..."
}
