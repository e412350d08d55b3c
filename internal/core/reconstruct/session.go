package reconstruct

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/neilberkman/ccreplay/pkg/cclog"
)

// Session owns one log file's reconstructed pairs plus aggregates computed
// once at build time. The pair list is immutable after reconstruction.
type Session struct {
	ID              string             `json:"id"`
	Project         string             `json:"project"`
	LastCWD         string             `json:"last_cwd,omitempty"`
	Summary         string             `json:"summary,omitempty"`
	FilePath        string             `json:"file_path"`
	FileSize        int64              `json:"file_size"`
	FileMtime       time.Time          `json:"file_mtime"`
	Pairs           []ConversationPair `json:"pairs"`
	StartTime       time.Time          `json:"start_time"`
	EndTime         time.Time          `json:"end_time"`
	LastActivity    time.Time          `json:"last_activity"`
	DurationSeconds float64            `json:"duration_seconds"`
	TotalTools      int                `json:"total_tools"`
	TotalTokens     cclog.TokenUsage   `json:"total_tokens"`
	ThinkingChars   int                `json:"thinking_chars"`
}

// ReconstructSession builds a Session from a file's decoded entries.
// It returns nil when reconstruction yields no pairs: empty files and
// pure-plumbing files are "no session", never an error. File size and
// mtime are left to the caller, which already holds the file metadata.
func ReconstructSession(path string, entries []cclog.Entry, first *cclog.Entry) *Session {
	pairs := Reconstruct(entries)
	if len(pairs) == 0 {
		return nil
	}

	s := &Session{
		ID:       sessionIDFor(path, entries),
		Project:  projectFor(entries, first),
		LastCWD:  lastCWDFor(entries),
		FilePath: path,
		Pairs:    pairs,
	}
	for i := range entries {
		if entries[i].Type == cclog.TypeSummary && entries[i].Summary != "" {
			s.Summary = entries[i].Summary
		}
	}
	s.finalize()
	return s
}

// sessionIDFor prefers the sessionId recorded in the entries. Sub-agent
// files (agent-*.jsonl) carry the parent's sessionId, so for those the
// filename is the real identity.
func sessionIDFor(path string, entries []cclog.Entry) string {
	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	if strings.HasPrefix(stem, "agent-") {
		return stem
	}
	for i := range entries {
		if entries[i].SessionID != "" {
			return entries[i].SessionID
		}
	}
	if stem != "" {
		return stem
	}
	return path
}

// projectFor recovers the working directory: the retained first entry when
// it has one, else the first entry that does.
func projectFor(entries []cclog.Entry, first *cclog.Entry) string {
	if first != nil && first.CWD != "" {
		return first.CWD
	}
	for i := range entries {
		if entries[i].CWD != "" {
			return entries[i].CWD
		}
	}
	return ""
}

// lastCWDFor finds where the session ended up. Sessions can cd away from
// the project directory, and resuming wants to know about it.
func lastCWDFor(entries []cclog.Entry) string {
	for i := len(entries) - 1; i >= 0; i-- {
		if entries[i].CWD != "" {
			return entries[i].CWD
		}
	}
	return ""
}

func (s *Session) finalize() {
	s.StartTime = s.Pairs[0].UserTime
	s.EndTime = s.Pairs[len(s.Pairs)-1].AssistantTime
	s.LastActivity = s.EndTime
	for i := range s.Pairs {
		p := &s.Pairs[i]
		s.DurationSeconds += p.ResponseTimeSeconds
		s.TotalTools += len(p.ToolUses)
		s.TotalTokens.Add(p.TokenUsage)
		s.ThinkingChars += p.ThinkingChars()
		if p.AssistantTime.After(s.LastActivity) {
			s.LastActivity = p.AssistantTime
		}
	}
}

// Duration is the summed response time across turns. Idle time between
// turns is excluded, so this can be smaller than ActualDuration.
func (s *Session) Duration() time.Duration {
	return time.Duration(s.DurationSeconds * float64(time.Second))
}

// ActualDuration is the wall-clock span from the first user turn to the
// last assistant turn.
func (s *Session) ActualDuration() time.Duration {
	return s.EndTime.Sub(s.StartTime)
}

// FirstUserMessage returns the opening ask of the session.
func (s *Session) FirstUserMessage() string {
	for i := range s.Pairs {
		if c := strings.TrimSpace(s.Pairs[i].UserContent); c != "" {
			return c
		}
	}
	return ""
}

// Title picks a display name: summary, first ask, then the bare id.
func (s *Session) Title() string {
	if s.Summary != "" {
		return s.Summary
	}
	if msg := s.FirstUserMessage(); msg != "" {
		if line := strings.SplitN(msg, "\n", 2)[0]; line != "" {
			return line
		}
	}
	return s.ID
}
