package engine

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/neilberkman/ccreplay/internal/core/config"
	"github.com/neilberkman/ccreplay/internal/core/search"
)

func writeSessionLog(t *testing.T, root, project, name, sessionID, userText, assistantText string, at time.Time) string {
	t.Helper()
	dir := filepath.Join(root, project)
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatal(err)
	}

	cwd := "/" + strings.ReplaceAll(strings.TrimPrefix(project, "-"), "-", "/")

	lines := fmt.Sprintf(
		`{"type":"user","timestamp":%q,"sessionId":%q,"cwd":%q,"uuid":"u1","message":{"role":"user","content":%q}}`+"\n"+
			`{"type":"assistant","timestamp":%q,"sessionId":%q,"uuid":"a1","parentUuid":"u1","message":{"role":"assistant","content":[{"type":"text","text":%q}],"usage":{"input_tokens":10,"output_tokens":5}}}`+"\n",
		at.Format(time.RFC3339), sessionID, cwd, userText,
		at.Add(30*time.Second).Format(time.RFC3339), sessionID, assistantText,
	)

	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(lines), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func testEngine(t *testing.T) (*Engine, string) {
	t.Helper()
	root := t.TempDir()

	base := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	writeSessionLog(t, root, "-home-u-alpha", "a1.jsonl", "alpha-one", "fix the parser", "Parser fixed.", base)
	writeSessionLog(t, root, "-home-u-beta", "b1.jsonl", "beta-one", "deploy the service", "Deployed.", base.Add(time.Hour))

	// A log that reconstructs to no session at all.
	junk := filepath.Join(root, "-home-u-alpha", "empty.jsonl")
	if err := os.WriteFile(junk, []byte("not json\n{\"no\":\"type\"}\n"), 0644); err != nil {
		t.Fatal(err)
	}

	cfg := &config.Config{
		LogsDir:    root,
		CacheDir:   filepath.Join(t.TempDir(), "cache"),
		Workers:    2,
		MaxResults: 50,
	}
	return New(cfg), root
}

func TestEngineLoad(t *testing.T) {
	e, _ := testEngine(t)

	var events []Progress
	res, err := e.Load(func(p Progress) { events = append(events, p) })
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if res.RunID == "" {
		t.Error("RunID is empty")
	}
	if res.Files != 3 {
		t.Errorf("Files = %d, want 3", res.Files)
	}
	if res.Sessions != 2 {
		t.Errorf("Sessions = %d, want 2", res.Sessions)
	}
	if res.FromCache != 0 {
		t.Errorf("FromCache = %d, want 0 on a cold cache", res.FromCache)
	}
	if res.Failed != 0 {
		t.Errorf("Failed = %d, want 0", res.Failed)
	}

	t.Run("progress fires once per file", func(t *testing.T) {
		if len(events) != 3 {
			t.Fatalf("got %d progress events, want 3", len(events))
		}
		if last := events[len(events)-1]; last.Done != last.Total || last.Total != 3 {
			t.Errorf("final progress = %d/%d, want 3/3", last.Done, last.Total)
		}
	})

	t.Run("sessions ordered newest first", func(t *testing.T) {
		sessions, err := e.Sessions()
		if err != nil {
			t.Fatalf("Sessions() error = %v", err)
		}
		if len(sessions) != 2 {
			t.Fatalf("Sessions() returned %d, want 2", len(sessions))
		}
		if sessions[0].ID != "beta-one" || sessions[1].ID != "alpha-one" {
			t.Errorf("order = [%s %s], want [beta-one alpha-one]", sessions[0].ID, sessions[1].ID)
		}
	})

	t.Run("project recovered from cwd", func(t *testing.T) {
		sessions, _ := e.Sessions()
		if sessions[1].Project != "/home/u/alpha" {
			t.Errorf("Project = %q, want %q", sessions[1].Project, "/home/u/alpha")
		}
	})
}

func TestEngineCacheWarmup(t *testing.T) {
	e, _ := testEngine(t)

	if _, err := e.Load(nil); err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	res, err := e.Load(nil)
	if err != nil {
		t.Fatalf("second Load() error = %v", err)
	}
	// All three files hit, including the cached no-session marker.
	if res.FromCache != 3 {
		t.Errorf("FromCache = %d, want 3", res.FromCache)
	}
	if res.Sessions != 2 {
		t.Errorf("Sessions = %d, want 2", res.Sessions)
	}

	t.Run("rebuild bypasses cache", func(t *testing.T) {
		res, err := e.Rebuild(nil)
		if err != nil {
			t.Fatalf("Rebuild() error = %v", err)
		}
		if res.FromCache != 0 {
			t.Errorf("FromCache = %d, want 0 after Rebuild", res.FromCache)
		}
		if res.Sessions != 2 {
			t.Errorf("Sessions = %d, want 2", res.Sessions)
		}
	})
}

func TestEngineSessionLookup(t *testing.T) {
	e, _ := testEngine(t)

	t.Run("exact id", func(t *testing.T) {
		s, err := e.Session("alpha-one")
		if err != nil {
			t.Fatalf("Session() error = %v", err)
		}
		if s.ID != "alpha-one" {
			t.Errorf("ID = %q, want %q", s.ID, "alpha-one")
		}
	})

	t.Run("unique prefix", func(t *testing.T) {
		s, err := e.Session("beta")
		if err != nil {
			t.Fatalf("Session() error = %v", err)
		}
		if s.ID != "beta-one" {
			t.Errorf("ID = %q, want %q", s.ID, "beta-one")
		}
	})

	t.Run("unknown id errors", func(t *testing.T) {
		if _, err := e.Session("gamma"); err == nil {
			t.Error("Session() should error for an unknown id")
		}
	})
}

func TestEngineSearch(t *testing.T) {
	e, _ := testEngine(t)

	t.Run("literal", func(t *testing.T) {
		results, err := e.Search("parser", search.Options{})
		if err != nil {
			t.Fatalf("Search() error = %v", err)
		}
		if len(results) != 1 {
			t.Fatalf("Search() returned %d results, want 1", len(results))
		}
		if results[0].SessionID != "alpha-one" {
			t.Errorf("SessionID = %q, want %q", results[0].SessionID, "alpha-one")
		}
	})

	t.Run("project filter scopes the scan", func(t *testing.T) {
		results, err := e.Search("project:beta deploy", search.Options{})
		if err != nil {
			t.Fatalf("Search() error = %v", err)
		}
		if len(results) != 1 || results[0].SessionID != "beta-one" {
			t.Fatalf("Search() = %+v, want one beta-one result", results)
		}
	})

	t.Run("filter without text finds nothing", func(t *testing.T) {
		results, err := e.Search("project:beta", search.Options{})
		if err != nil {
			t.Fatalf("Search() error = %v", err)
		}
		if len(results) != 0 {
			t.Errorf("Search() returned %d results, want 0", len(results))
		}
	})

	t.Run("regex keeps spaces intact", func(t *testing.T) {
		results, err := e.Search(`fix the \w+`, search.Options{Regex: true})
		if err != nil {
			t.Fatalf("Search() error = %v", err)
		}
		if len(results) != 1 {
			t.Fatalf("Search() returned %d results, want 1", len(results))
		}
		if results[0].MatchedText != "fix the parser" {
			t.Errorf("MatchedText = %q, want %q", results[0].MatchedText, "fix the parser")
		}
	})
}

func TestEngineStatistics(t *testing.T) {
	e, _ := testEngine(t)

	days, err := e.DailyStatistics()
	if err != nil {
		t.Fatalf("DailyStatistics() error = %v", err)
	}
	if len(days) != 1 {
		t.Fatalf("DailyStatistics() returned %d days, want 1", len(days))
	}
	if days[0].Sessions != 2 {
		t.Errorf("Sessions = %d, want 2", days[0].Sessions)
	}

	projects, err := e.ProjectStatistics()
	if err != nil {
		t.Fatalf("ProjectStatistics() error = %v", err)
	}
	if len(projects) != 2 {
		t.Errorf("ProjectStatistics() returned %d projects, want 2", len(projects))
	}

	overview, err := e.Overview()
	if err != nil {
		t.Fatalf("Overview() error = %v", err)
	}
	if overview.TotalSessions != 2 {
		t.Errorf("Overview().TotalSessions = %d, want 2", overview.TotalSessions)
	}
	if overview.TotalConversations != 2 {
		t.Errorf("Overview().TotalConversations = %d, want 2", overview.TotalConversations)
	}
}
