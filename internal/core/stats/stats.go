// Package stats aggregates reconstructed sessions: per-session metrics are
// computed at reconstruction time, this package rolls them up by calendar
// day and by project.
package stats

import (
	"sort"
	"time"

	"github.com/neilberkman/ccreplay/internal/core/reconstruct"
	"github.com/neilberkman/ccreplay/pkg/cclog"
)

const dayLayout = "2006-01-02"

// unknownProject buckets sessions whose working directory never surfaced.
const unknownProject = "(unknown)"

// DayAggregate sums one local calendar day. Sessions is a deduplicated
// session-id count, not a conversation count.
type DayAggregate struct {
	Date            string
	Sessions        int
	Conversations   int
	DurationSeconds float64
	ToolUses        int
	Tokens          cclog.TokenUsage
}

// ProjectAggregate sums one project across all of its sessions.
type ProjectAggregate struct {
	Project         string
	Sessions        int
	Conversations   int
	DurationSeconds float64
	ToolUses        int
	Tokens          cclog.TokenUsage
	LastActivity    time.Time
}

// Overview is the whole-archive rollup.
type Overview struct {
	TotalSessions          int
	TotalConversations     int
	TotalToolUses          int
	TotalTokens            cclog.TokenUsage
	TotalThinkingChars     int
	OldestSession          time.Time
	NewestSession          time.Time
	MostActiveProject      string
	MostActiveProjectCount int
}

// Daily groups sessions by the local calendar date of their first user
// turn, newest day first.
func Daily(sessions []*reconstruct.Session) []DayAggregate {
	buckets := make(map[string]*DayAggregate)
	seen := make(map[string]map[string]struct{})

	for _, s := range sessions {
		if s == nil {
			continue
		}
		day := s.StartTime.Local().Format(dayLayout)
		agg, ok := buckets[day]
		if !ok {
			agg = &DayAggregate{Date: day}
			buckets[day] = agg
			seen[day] = make(map[string]struct{})
		}
		if _, dup := seen[day][s.ID]; !dup {
			seen[day][s.ID] = struct{}{}
			agg.Sessions++
		}
		agg.Conversations += len(s.Pairs)
		agg.DurationSeconds += s.DurationSeconds
		agg.ToolUses += s.TotalTools
		agg.Tokens.Add(s.TotalTokens)
	}

	out := make([]DayAggregate, 0, len(buckets))
	for _, agg := range buckets {
		out = append(out, *agg)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date > out[j].Date })
	return out
}

// ByProject groups sessions by project, most sessions first.
func ByProject(sessions []*reconstruct.Session) []ProjectAggregate {
	buckets := make(map[string]*ProjectAggregate)
	seen := make(map[string]map[string]struct{})

	for _, s := range sessions {
		if s == nil {
			continue
		}
		project := s.Project
		if project == "" {
			project = unknownProject
		}
		agg, ok := buckets[project]
		if !ok {
			agg = &ProjectAggregate{Project: project}
			buckets[project] = agg
			seen[project] = make(map[string]struct{})
		}
		if _, dup := seen[project][s.ID]; !dup {
			seen[project][s.ID] = struct{}{}
			agg.Sessions++
		}
		agg.Conversations += len(s.Pairs)
		agg.DurationSeconds += s.DurationSeconds
		agg.ToolUses += s.TotalTools
		agg.Tokens.Add(s.TotalTokens)
		if s.LastActivity.After(agg.LastActivity) {
			agg.LastActivity = s.LastActivity
		}
	}

	out := make([]ProjectAggregate, 0, len(buckets))
	for _, agg := range buckets {
		out = append(out, *agg)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Sessions != out[j].Sessions {
			return out[i].Sessions > out[j].Sessions
		}
		return out[i].Project < out[j].Project
	})
	return out
}

// Overall produces the whole-archive summary.
func Overall(sessions []*reconstruct.Session) *Overview {
	o := &Overview{}
	for _, s := range sessions {
		if s == nil {
			continue
		}
		o.TotalSessions++
		o.TotalConversations += len(s.Pairs)
		o.TotalToolUses += s.TotalTools
		o.TotalTokens.Add(s.TotalTokens)
		o.TotalThinkingChars += s.ThinkingChars
		if o.OldestSession.IsZero() || s.StartTime.Before(o.OldestSession) {
			o.OldestSession = s.StartTime
		}
		if s.LastActivity.After(o.NewestSession) {
			o.NewestSession = s.LastActivity
		}
	}

	for _, p := range ByProject(sessions) {
		if p.Sessions > o.MostActiveProjectCount {
			o.MostActiveProject = p.Project
			o.MostActiveProjectCount = p.Sessions
		}
	}
	return o
}
