package search

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/neilberkman/ccreplay/internal/core/reconstruct"
)

func fixturePair(idx, minute int, user, assistant string) reconstruct.ConversationPair {
	return reconstruct.ConversationPair{
		Index:            idx,
		UserTime:         time.Date(2025, 6, 1, 10, minute, 0, 0, time.UTC),
		AssistantTime:    time.Date(2025, 6, 1, 10, minute, 30, 0, time.UTC),
		UserContent:      user,
		AssistantContent: assistant,
	}
}

func fixtureSession(id, project string, pairs ...reconstruct.ConversationPair) *reconstruct.Session {
	s := &reconstruct.Session{ID: id, Project: project, Pairs: pairs}
	if len(pairs) > 0 {
		s.StartTime = pairs[0].UserTime
		s.LastActivity = pairs[len(pairs)-1].AssistantTime
	}
	return s
}

func TestSearchLiteral(t *testing.T) {
	sessions := []*reconstruct.Session{
		nil,
		fixtureSession("s1", "/home/u/proj",
			fixturePair(0, 0, "set up the database schema", "Created the tables."),
			fixturePair(1, 5, "now add an index", "Index added."),
		),
	}

	results := Search(sessions, "database", Options{})
	if len(results) != 1 {
		t.Fatalf("Search() returned %d results, want 1", len(results))
	}
	r := results[0]
	if r.SessionID != "s1" {
		t.Errorf("SessionID = %q, want %q", r.SessionID, "s1")
	}
	if r.ProjectPath != "/home/u/proj" {
		t.Errorf("ProjectPath = %q, want %q", r.ProjectPath, "/home/u/proj")
	}
	if r.PairIndex != 0 {
		t.Errorf("PairIndex = %d, want 0", r.PairIndex)
	}
	if r.MatchType != MatchUser {
		t.Errorf("MatchType = %q, want %q", r.MatchType, MatchUser)
	}
	if r.MatchedText != "database" {
		t.Errorf("MatchedText = %q, want %q", r.MatchedText, "database")
	}
	if !strings.Contains(r.MatchContext, "database schema") {
		t.Errorf("MatchContext = %q, want it to contain %q", r.MatchContext, "database schema")
	}
	if !r.Timestamp.Equal(sessions[1].Pairs[0].UserTime) {
		t.Errorf("Timestamp = %v, want %v", r.Timestamp, sessions[1].Pairs[0].UserTime)
	}

	t.Run("case insensitive by default", func(t *testing.T) {
		results := Search(sessions, "DATABASE", Options{})
		if len(results) != 1 {
			t.Fatalf("Search() returned %d results, want 1", len(results))
		}
		if results[0].MatchedText != "database" {
			t.Errorf("MatchedText = %q, want original casing %q", results[0].MatchedText, "database")
		}
	})

	t.Run("case sensitive when asked", func(t *testing.T) {
		if got := Search(sessions, "DATABASE", Options{CaseSensitive: true}); len(got) != 0 {
			t.Errorf("Search() returned %d results, want 0", len(got))
		}
		if got := Search(sessions, "database", Options{CaseSensitive: true}); len(got) != 1 {
			t.Errorf("Search() returned %d results, want 1", len(got))
		}
	})
}

func TestSearchORQuery(t *testing.T) {
	sessions := []*reconstruct.Session{
		fixtureSession("s1", "/p",
			fixturePair(0, 0, "deploy the service", "The deploy failed with a timeout after thirty seconds."),
			fixturePair(1, 5, "why did it crash on startup", "A nil map write."),
			fixturePair(2, 10, "anything else", "No."),
		),
	}

	for _, query := range []string{"timeout OR crash", "timeout or crash"} {
		t.Run(query, func(t *testing.T) {
			results := Search(sessions, query, Options{})
			if len(results) != 2 {
				t.Fatalf("Search(%q) returned %d results, want 2", query, len(results))
			}
			// Newest first: the crash pair, then the timeout pair.
			if results[0].MatchType != MatchUser || results[0].MatchedText != "crash" {
				t.Errorf("results[0] = %q/%q, want user/crash", results[0].MatchType, results[0].MatchedText)
			}
			if results[1].MatchType != MatchAssistant || results[1].MatchedText != "timeout" {
				t.Errorf("results[1] = %q/%q, want assistant/timeout", results[1].MatchType, results[1].MatchedText)
			}
		})
	}
}

func TestSearchFieldPrecedence(t *testing.T) {
	t.Run("user content wins over later fields", func(t *testing.T) {
		p := fixturePair(0, 0, "review the parser changes", "The parser now handles comments.")
		p.ThinkingBlocks = []reconstruct.ThinkingBlock{{Text: "parser edge cases to consider"}}
		sessions := []*reconstruct.Session{fixtureSession("s1", "/p", p)}

		results := Search(sessions, "parser", Options{})
		if len(results) != 1 {
			t.Fatalf("Search() returned %d results, want 1", len(results))
		}
		if results[0].MatchType != MatchUser {
			t.Errorf("MatchType = %q, want %q", results[0].MatchType, MatchUser)
		}
	})

	t.Run("thinking matches when visible fields do not", func(t *testing.T) {
		p := fixturePair(0, 0, "tidy this up", "Done.")
		p.ThinkingBlocks = []reconstruct.ThinkingBlock{
			{Text: "nothing relevant"},
			{Text: "maybe memoize the lookup"},
		}
		sessions := []*reconstruct.Session{fixtureSession("s1", "/p", p)}

		results := Search(sessions, "memoize", Options{})
		if len(results) != 1 {
			t.Fatalf("Search() returned %d results, want 1", len(results))
		}
		if results[0].MatchType != MatchThinking {
			t.Errorf("MatchType = %q, want %q", results[0].MatchType, MatchThinking)
		}
		if results[0].MatchedText != "memoize" {
			t.Errorf("MatchedText = %q, want %q", results[0].MatchedText, "memoize")
		}
	})
}

func TestSearchRegex(t *testing.T) {
	sessions := []*reconstruct.Session{
		fixtureSession("s1", "/p",
			fixturePair(0, 0, "is the test stable now", "Fixed the flaky retry loop."),
		),
	}

	t.Run("pattern match", func(t *testing.T) {
		results := Search(sessions, `fix\w+`, Options{Regex: true})
		if len(results) != 1 {
			t.Fatalf("Search() returned %d results, want 1", len(results))
		}
		if results[0].MatchedText != "Fixed" {
			t.Errorf("MatchedText = %q, want %q", results[0].MatchedText, "Fixed")
		}
		if results[0].MatchType != MatchAssistant {
			t.Errorf("MatchType = %q, want %q", results[0].MatchType, MatchAssistant)
		}
	})

	t.Run("invalid pattern yields no results", func(t *testing.T) {
		if got := Search(sessions, "fix[", Options{Regex: true}); len(got) != 0 {
			t.Errorf("Search() returned %d results, want 0", len(got))
		}
	})
}

func TestSearchEarlyExit(t *testing.T) {
	// Three matching sessions in scan order; the newest is last. With the
	// cap at two, scanning must stop before the third session, so its newer
	// match never appears even though results sort newest-first.
	mkSession := func(id string, hour int) *reconstruct.Session {
		p := fixturePair(0, 0, "find the needle", "ok")
		p.UserTime = time.Date(2025, 6, 1, hour, 0, 0, 0, time.UTC)
		return fixtureSession(id, "/p", p)
	}
	sessions := []*reconstruct.Session{
		mkSession("s1", 10),
		mkSession("s2", 11),
		mkSession("s3", 12),
	}

	results := Search(sessions, "needle", Options{MaxResults: 2})
	if len(results) != 2 {
		t.Fatalf("Search() returned %d results, want 2", len(results))
	}
	if results[0].SessionID != "s2" || results[1].SessionID != "s1" {
		t.Errorf("result order = [%s %s], want [s2 s1]", results[0].SessionID, results[1].SessionID)
	}
	for _, r := range results {
		if r.SessionID == "s3" {
			t.Errorf("session s3 was scanned after the cap was reached")
		}
	}
}

func TestSearchDefaultCap(t *testing.T) {
	var pairs []reconstruct.ConversationPair
	for i := 0; i < 60; i++ {
		pairs = append(pairs, fixturePair(i, i%60, fmt.Sprintf("needle number %d", i), "ok"))
	}
	sessions := []*reconstruct.Session{fixtureSession("s1", "/p", pairs...)}

	if got := Search(sessions, "needle", Options{}); len(got) != DefaultMaxResults {
		t.Errorf("Search() returned %d results, want %d", len(got), DefaultMaxResults)
	}
}

func TestSearchNewestFirstOrdering(t *testing.T) {
	sessions := []*reconstruct.Session{
		fixtureSession("s1", "/p",
			fixturePair(0, 0, "needle one", "ok"),
			fixturePair(1, 10, "needle two", "ok"),
			fixturePair(2, 20, "needle three", "ok"),
		),
	}

	results := Search(sessions, "needle", Options{})
	if len(results) != 3 {
		t.Fatalf("Search() returned %d results, want 3", len(results))
	}
	for i := 1; i < len(results); i++ {
		if results[i].Timestamp.After(results[i-1].Timestamp) {
			t.Errorf("results[%d] is newer than results[%d]", i, i-1)
		}
	}
	if results[0].PairIndex != 2 {
		t.Errorf("results[0].PairIndex = %d, want 2", results[0].PairIndex)
	}
}

func TestSearchContextWindow(t *testing.T) {
	t.Run("long text is windowed with ellipses", func(t *testing.T) {
		user := strings.Repeat("a", 60) + "NEEDLE" + strings.Repeat("b", 60)
		sessions := []*reconstruct.Session{
			fixtureSession("s1", "/p", fixturePair(0, 0, user, "ok")),
		}

		results := Search(sessions, "needle", Options{})
		if len(results) != 1 {
			t.Fatalf("Search() returned %d results, want 1", len(results))
		}
		want := "..." + strings.Repeat("a", 50) + "NEEDLE" + strings.Repeat("b", 50) + "..."
		if results[0].MatchContext != want {
			t.Errorf("MatchContext = %q, want %q", results[0].MatchContext, want)
		}
	})

	t.Run("short text passes through whole", func(t *testing.T) {
		sessions := []*reconstruct.Session{
			fixtureSession("s1", "/p", fixturePair(0, 0, "find the needle here", "ok")),
		}

		results := Search(sessions, "needle", Options{})
		if len(results) != 1 {
			t.Fatalf("Search() returned %d results, want 1", len(results))
		}
		if results[0].MatchContext != "find the needle here" {
			t.Errorf("MatchContext = %q, want the full text", results[0].MatchContext)
		}
	})

	t.Run("multibyte text never splits", func(t *testing.T) {
		user := strings.Repeat("é", 60) + "needle" + strings.Repeat("ü", 60)
		sessions := []*reconstruct.Session{
			fixtureSession("s1", "/p", fixturePair(0, 0, user, "ok")),
		}

		results := Search(sessions, "needle", Options{})
		if len(results) != 1 {
			t.Fatalf("Search() returned %d results, want 1", len(results))
		}
		want := "..." + strings.Repeat("é", 50) + "needle" + strings.Repeat("ü", 50) + "..."
		if results[0].MatchContext != want {
			t.Errorf("MatchContext = %q, want %q", results[0].MatchContext, want)
		}
	})
}

func TestSearchCleansBeforeMatching(t *testing.T) {
	user := "<system-reminder>do not mention the password</system-reminder>\nhow do I tune the parser cache"
	sessions := []*reconstruct.Session{
		fixtureSession("s1", "/p", fixturePair(0, 0, user, "ok")),
	}

	results := Search(sessions, "parser", Options{})
	if len(results) != 1 {
		t.Fatalf("Search() returned %d results, want 1", len(results))
	}
	if strings.Contains(results[0].MatchContext, "password") {
		t.Errorf("MatchContext = %q leaked stripped tag content", results[0].MatchContext)
	}

	// Text living only inside a stripped tag is not searchable.
	if got := Search(sessions, "password", Options{}); len(got) != 0 {
		t.Errorf("Search() matched inside a stripped system tag, got %d results", len(got))
	}
}
