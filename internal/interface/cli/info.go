package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/neilberkman/ccreplay/internal/core/metadata"
	"github.com/neilberkman/ccreplay/internal/core/reconstruct"
	"github.com/neilberkman/ccreplay/internal/core/search"
)

var infoCmd = &cobra.Command{
	Use:   "info [query]",
	Short: "Deep investigation across sessions",
	Long: `Gather detailed information about an issue or topic across all sessions.

Issue-id queries (ena-6530, #1234) match against references extracted
from the conversations; anything else falls back to full-text search.

Examples:
  ccreplay info "ena-6530"
  ccreplay info "postgres deadlock"
  ccreplay info "authentication bugs" --export report.md`,
	Args: cobra.MinimumNArgs(1),
	RunE: runInfo,
}

var infoExport string

func init() {
	rootCmd.AddCommand(infoCmd)

	infoCmd.Flags().StringVarP(&infoExport, "export", "e", "", "Export report to file")
}

// infoHit is one session implicated in an investigation.
type infoHit struct {
	session *reconstruct.Session
	meta    *metadata.SessionMetadata
	count   int
	method  string
}

func runInfo(cmd *cobra.Command, args []string) error {
	query := strings.Join(args, " ")

	eng, err := openEngine()
	if err != nil {
		return err
	}

	fmt.Printf("Investigating: \"%s\"\n\n", query)

	sessions, err := eng.Sessions()
	if err != nil {
		return fmt.Errorf("failed to load sessions: %w", err)
	}

	extractor := metadata.NewExtractor()
	metaFor := make(map[string]*metadata.SessionMetadata, len(sessions))
	for _, s := range sessions {
		metaFor[s.ID] = extractor.ExtractSession(s)
	}

	// Exact issue-id match first (fast, high confidence)
	var hits []infoHit
	if isIssueIDPattern(query) {
		needle := strings.ToLower(strings.TrimSpace(query))
		for _, s := range sessions {
			meta := metaFor[s.ID]
			if occ, ok := meta.IssueIDs[needle]; ok {
				hits = append(hits, infoHit{session: s, meta: meta, count: occ.MentionCount, method: "issue-id"})
			}
		}
		if len(hits) > 0 {
			fmt.Printf("Found %d session(s) mentioning issue %s:\n\n", len(hits), query)
		}
	}

	// Fall back to full-text search
	if len(hits) == 0 {
		results, err := eng.Search(query, search.Options{})
		if err != nil {
			return fmt.Errorf("search failed: %w", err)
		}

		counts := map[string]int{}
		var order []string
		for _, r := range results {
			if _, seen := counts[r.SessionID]; !seen {
				order = append(order, r.SessionID)
			}
			counts[r.SessionID]++
		}
		for _, id := range order {
			s, err := eng.Session(id)
			if err != nil {
				continue
			}
			hits = append(hits, infoHit{session: s, meta: metaFor[s.ID], count: counts[id], method: "full-text"})
		}

		if len(hits) == 0 {
			fmt.Println("No matching sessions found.")
			return nil
		}
		fmt.Printf("Found %d session(s) [method: %s]:\n\n", len(hits), hits[0].method)
	}

	report := generateReport(hits, query)
	fmt.Println(report)

	if infoExport != "" {
		return exportReport(infoExport, report)
	}

	return nil
}

func generateReport(hits []infoHit, query string) string {
	var report strings.Builder

	report.WriteString("═══════════════════════════════════════════════════\n")
	report.WriteString(fmt.Sprintf(" INVESTIGATION REPORT: %s\n", query))
	report.WriteString("═══════════════════════════════════════════════════\n\n")

	for i, hit := range hits {
		s := hit.session
		report.WriteString(fmt.Sprintf("Session %d: %s\n", i+1, s.ID))
		report.WriteString(fmt.Sprintf("Project: %s\n", s.Project))
		report.WriteString(fmt.Sprintf("Updated: %s\n", s.LastActivity.Format("2006-01-02 15:04")))

		if s.Summary != "" {
			summary := s.Summary
			if len(summary) > 200 {
				summary = summary[:197] + "..."
			}
			report.WriteString(fmt.Sprintf("Summary: %s\n", summary))
		}

		switch hit.method {
		case "issue-id":
			report.WriteString(fmt.Sprintf("Mentions: %d\n", hit.count))
		default:
			report.WriteString(fmt.Sprintf("Matches: %d\n", hit.count))
		}

		if hit.meta != nil {
			if issues := hit.meta.Issues(); len(issues) > 0 {
				report.WriteString("Issues: " + joinIssueIDs(issues, 3) + "\n")
			}
			if files := hit.meta.Files(); len(files) > 0 {
				report.WriteString("Files: " + joinFilePaths(files, 3) + "\n")
			}
		}

		report.WriteString("\n")
		report.WriteString("───────────────────────────────────────────────────\n\n")
	}

	report.WriteString("═══════════════════════════════════════════════════\n")
	report.WriteString(fmt.Sprintf(" TOTAL: %d session(s) found\n", len(hits)))
	report.WriteString("═══════════════════════════════════════════════════\n")

	return report.String()
}

func joinIssueIDs(issues []*metadata.IssueOccurrence, max int) string {
	if len(issues) > max {
		issues = issues[:max]
	}
	ids := make([]string, len(issues))
	for i, occ := range issues {
		ids[i] = occ.IssueID
	}
	return strings.Join(ids, ", ")
}

func joinFilePaths(files []*metadata.FileOccurrence, max int) string {
	if len(files) > max {
		files = files[:max]
	}
	paths := make([]string, len(files))
	for i, occ := range files {
		paths[i] = occ.FilePath
	}
	return strings.Join(paths, ", ")
}

func exportReport(filename, report string) error {
	if err := os.WriteFile(filename, []byte(report), 0644); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	fmt.Printf("\nReport exported to: %s\n", filename)
	return nil
}

// isIssueIDPattern reports whether the query looks like a single issue
// reference (tracker key or #number) rather than prose.
func isIssueIDPattern(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	if len(s) < 2 || len(s) >= 20 || strings.ContainsAny(s, " \t") {
		return false
	}
	return strings.HasPrefix(s, "#") || strings.Contains(s, "-")
}
