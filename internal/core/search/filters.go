package search

import (
	"strings"
	"time"

	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"

	"github.com/neilberkman/ccreplay/internal/core/reconstruct"
)

// Filters are the structured constraints parsed out of a query string.
type Filters struct {
	Query     string    // free text left after filter tokens are removed
	Project   string    // substring match on the session's project path
	After     time.Time // only sessions active after this time
	Before    time.Time // only sessions started before this time
	HasAfter  bool
	HasBefore bool
}

// ParseQuery extracts filter tokens from a search query string.
// Supports:
//   - project:<path> - filter by project
//   - date:yesterday, date:2024-11-01 - sessions since that date
//   - after:yesterday, before:2024-11-01 - explicit date bounds
//
// Date values go through natural language parsing first, so relative
// phrases work the same as literal dates.
func ParseQuery(query string) Filters {
	var filters Filters

	w := when.New(nil)
	w.Add(en.All...)
	w.Add(common.All...)

	var queryParts []string
	for _, token := range strings.Fields(query) {
		if strings.HasPrefix(token, "project:") {
			filters.Project = strings.TrimPrefix(token, "project:")
			continue
		}

		if strings.HasPrefix(token, "date:") {
			if parsed := parseDate(w, strings.TrimPrefix(token, "date:")); parsed != nil {
				filters.After = *parsed
				filters.HasAfter = true
			}
			continue
		}

		if strings.HasPrefix(token, "after:") {
			if parsed := parseDate(w, strings.TrimPrefix(token, "after:")); parsed != nil {
				filters.After = *parsed
				filters.HasAfter = true
			}
			continue
		}

		if strings.HasPrefix(token, "before:") {
			if parsed := parseDate(w, strings.TrimPrefix(token, "before:")); parsed != nil {
				filters.Before = *parsed
				filters.HasBefore = true
			}
			continue
		}

		queryParts = append(queryParts, token)
	}

	filters.Query = strings.Join(queryParts, " ")
	return filters
}

// parseDate resolves a date token, natural language first, then a run of
// common literal formats.
func parseDate(w *when.Parser, dateStr string) *time.Time {
	result, err := w.Parse(dateStr, time.Now())
	if err == nil && result != nil {
		return &result.Time
	}

	formats := []string{
		"2006-01-02",
		"2006-01-02T15:04:05",
		time.RFC3339,
		"2006/01/02",
		"01/02/2006",
	}
	for _, format := range formats {
		if t, err := time.Parse(format, dateStr); err == nil {
			return &t
		}
	}

	return nil
}

// FilterSessions keeps the sessions that satisfy every set filter. Order
// is preserved, so a pre-sorted list stays sorted.
func FilterSessions(sessions []*reconstruct.Session, f Filters) []*reconstruct.Session {
	if f.Project == "" && !f.HasAfter && !f.HasBefore {
		return sessions
	}

	var kept []*reconstruct.Session
	for _, s := range sessions {
		if s == nil {
			continue
		}
		if f.Project != "" && !strings.Contains(strings.ToLower(s.Project), strings.ToLower(f.Project)) {
			continue
		}
		if f.HasAfter && s.LastActivity.Before(f.After) {
			continue
		}
		if f.HasBefore && s.StartTime.After(f.Before) {
			continue
		}
		kept = append(kept, s)
	}
	return kept
}
