package reconstruct

import (
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/neilberkman/ccreplay/pkg/cclog"
)

var base = time.Date(2025, 3, 4, 10, 0, 0, 0, time.UTC)

func at(sec int) time.Time { return base.Add(time.Duration(sec) * time.Second) }

func userAt(uuid, text string, sec int) cclog.Entry {
	return cclog.Entry{Type: cclog.TypeUser, UUID: uuid, Text: text, Timestamp: at(sec)}
}

func echoAt(toolID, result string, sec int) cclog.Entry {
	return cclog.Entry{Type: cclog.TypeUser, Timestamp: at(sec), Items: []cclog.ContentItem{
		{Type: cclog.ItemToolResult, ToolID: toolID, Result: result, Timestamp: at(sec)},
	}}
}

func assistantAt(uuid, text string, sec int) cclog.Entry {
	return cclog.Entry{Type: cclog.TypeAssistant, UUID: uuid, Timestamp: at(sec), Items: []cclog.ContentItem{
		{Type: cclog.ItemText, Text: text, Timestamp: at(sec)},
	}}
}

func toolUseAt(uuid, name, id string, sec int) cclog.Entry {
	return cclog.Entry{Type: cclog.TypeAssistant, UUID: uuid, Timestamp: at(sec), Items: []cclog.ContentItem{
		{Type: cclog.ItemToolUse, ToolName: name, ToolID: id, ToolInput: map[string]any{"command": "ls"}, Timestamp: at(sec)},
	}}
}

// A tool round trip is one turn: the result echo between the two assistant
// entries must correlate, not split the conversation.
func TestReconstructToolRoundTrip(t *testing.T) {
	entries := []cclog.Entry{
		userAt("u1", "fix bug", 0),
		toolUseAt("a1", "Bash", "t1", 12),
		echoAt("t1", "file.txt", 19),
		assistantAt("a2", "Done", 31),
	}

	pairs := Reconstruct(entries)
	if len(pairs) != 1 {
		t.Fatalf("pair count = %v, want 1", len(pairs))
	}

	p := pairs[0]
	if p.UserContent != "fix bug" {
		t.Errorf("UserContent = %q, want 'fix bug'", p.UserContent)
	}
	if p.AssistantContent != "Done" {
		t.Errorf("AssistantContent = %q, want 'Done'", p.AssistantContent)
	}
	if len(p.ToolUses) != 1 {
		t.Fatalf("ToolUses count = %v, want 1", len(p.ToolUses))
	}
	if p.ToolUses[0].Name != "Bash" {
		t.Errorf("tool name = %v, want Bash", p.ToolUses[0].Name)
	}
	if p.ToolUses[0].Result == nil || p.ToolUses[0].Result.Text != "file.txt" {
		t.Errorf("tool result = %+v, want file.txt", p.ToolUses[0].Result)
	}
	if p.AssistantUUID != "a2" {
		t.Errorf("AssistantUUID = %v, want a2 (last response anchors)", p.AssistantUUID)
	}
	if p.ResponseTimeSeconds != 31 {
		t.Errorf("ResponseTimeSeconds = %v, want 31", p.ResponseTimeSeconds)
	}
}

func TestTurnBoundaries(t *testing.T) {
	t.Run("each answered user opens a turn", func(t *testing.T) {
		entries := []cclog.Entry{
			userAt("u1", "first", 0),
			assistantAt("a1", "one", 5),
			userAt("u2", "second", 60),
			assistantAt("a2", "two", 65),
		}
		pairs := Reconstruct(entries)
		if len(pairs) != 2 {
			t.Fatalf("pair count = %v, want 2", len(pairs))
		}
		if pairs[0].UserContent != "first" || pairs[1].UserContent != "second" {
			t.Errorf("pair contents = %q, %q", pairs[0].UserContent, pairs[1].UserContent)
		}
		if pairs[0].Index != 0 || pairs[1].Index != 1 {
			t.Errorf("pair indexes = %v, %v", pairs[0].Index, pairs[1].Index)
		}
	})

	t.Run("unanswered user is replaced silently", func(t *testing.T) {
		entries := []cclog.Entry{
			userAt("u1", "never answered", 0),
			userAt("u2", "answered", 10),
			assistantAt("a1", "reply", 15),
		}
		pairs := Reconstruct(entries)
		if len(pairs) != 1 {
			t.Fatalf("pair count = %v, want 1", len(pairs))
		}
		if pairs[0].UserUUID != "u2" {
			t.Errorf("UserUUID = %v, want u2", pairs[0].UserUUID)
		}
	})

	t.Run("result echoes never bound turns", func(t *testing.T) {
		entries := []cclog.Entry{
			userAt("u1", "ask", 0),
			toolUseAt("a1", "Read", "t1", 5),
			echoAt("t1", "contents", 8),
			echoAt("t-stray", "stray", 9),
			assistantAt("a2", "done", 12),
		}
		pairs := Reconstruct(entries)
		if len(pairs) != 1 {
			t.Fatalf("pair count = %v, want 1", len(pairs))
		}
	})

	t.Run("assistant-only stream yields nothing", func(t *testing.T) {
		entries := []cclog.Entry{assistantAt("a1", "hello", 0)}
		if pairs := Reconstruct(entries); pairs != nil {
			t.Errorf("pairs = %+v, want nil", pairs)
		}
	})
}

func TestToolCorrelation(t *testing.T) {
	t.Run("result arriving before invocation", func(t *testing.T) {
		entries := []cclog.Entry{
			userAt("u1", "ask", 0),
			echoAt("t1", "early result", 3),
			toolUseAt("a1", "Bash", "t1", 5),
			assistantAt("a2", "done", 9),
		}
		pairs := Reconstruct(entries)
		if len(pairs) != 1 {
			t.Fatalf("pair count = %v, want 1", len(pairs))
		}
		if pairs[0].ToolUses[0].Result == nil || pairs[0].ToolUses[0].Result.Text != "early result" {
			t.Errorf("result = %+v, want early result", pairs[0].ToolUses[0].Result)
		}
	})

	t.Run("unmatched invocation keeps nil result", func(t *testing.T) {
		entries := []cclog.Entry{
			userAt("u1", "ask", 0),
			toolUseAt("a1", "Bash", "t-nores", 5),
			assistantAt("a2", "done", 9),
		}
		pairs := Reconstruct(entries)
		if pairs[0].ToolUses[0].Result != nil {
			t.Errorf("result = %+v, want nil", pairs[0].ToolUses[0].Result)
		}
	})

	t.Run("error flag carries through", func(t *testing.T) {
		entries := []cclog.Entry{
			userAt("u1", "ask", 0),
			toolUseAt("a1", "Bash", "t1", 5),
			{Type: cclog.TypeUser, Timestamp: at(8), Items: []cclog.ContentItem{
				{Type: cclog.ItemToolResult, ToolID: "t1", Result: "boom", IsError: true, Timestamp: at(8)},
			}},
			assistantAt("a2", "that failed", 12),
		}
		pairs := Reconstruct(entries)
		res := pairs[0].ToolUses[0].Result
		if res == nil || !res.IsError || res.Text != "boom" {
			t.Errorf("result = %+v, want error boom", res)
		}
	})
}

func TestResponseTimeClamp(t *testing.T) {
	t.Run("long gaps cap at one hour", func(t *testing.T) {
		entries := []cclog.Entry{
			userAt("u1", "ask", 0),
			assistantAt("a1", "late answer", 2*3600),
		}
		pairs := Reconstruct(entries)
		if pairs[0].ResponseTimeSeconds != 3600 {
			t.Errorf("ResponseTimeSeconds = %v, want 3600", pairs[0].ResponseTimeSeconds)
		}
	})

	t.Run("negative deltas floor at zero", func(t *testing.T) {
		entries := []cclog.Entry{
			userAt("u1", "ask", 100),
			assistantAt("a1", "skewed clock", 40),
		}
		pairs := Reconstruct(entries)
		if pairs[0].ResponseTimeSeconds != 0 {
			t.Errorf("ResponseTimeSeconds = %v, want 0", pairs[0].ResponseTimeSeconds)
		}
	})
}

// Sub-agent detection is heuristic (Task proximity and sidechain flag
// transitions); these cases pin the supported shapes, not a guarantee.
func TestSubAgentThreading(t *testing.T) {
	t.Run("command after Task invocation", func(t *testing.T) {
		entries := []cclog.Entry{
			userAt("u1", "refactor everything", 0),
			toolUseAt("a1", "Task", "task1", 5),
			userAt("s1", "explore the codebase structure", 6),
			{Type: cclog.TypeAssistant, UUID: "s2", IsSidechain: true, Timestamp: at(20), Items: []cclog.ContentItem{
				{Type: cclog.ItemText, Text: "sub-agent report", Timestamp: at(20)},
			}},
			assistantAt("a2", "overall done", 30),
			userAt("u2", "next ask", 60),
			assistantAt("a3", "sure", 65),
		}
		pairs := Reconstruct(entries)
		if len(pairs) != 2 {
			t.Fatalf("pair count = %v, want 2", len(pairs))
		}

		p := pairs[0]
		if len(p.SubAgentThreads) != 1 {
			t.Fatalf("thread count = %v, want 1", len(p.SubAgentThreads))
		}
		thread := p.SubAgentThreads[0]
		if thread.Command != "explore the codebase structure" {
			t.Errorf("thread command = %q", thread.Command)
		}
		if len(thread.Responses) != 1 || thread.Responses[0].Text != "sub-agent report" {
			t.Errorf("thread responses = %+v", thread.Responses)
		}

		// Task launches are display-only: excluded from tool counts,
		// retained in the unfiltered list.
		if len(p.ToolUses) != 0 {
			t.Errorf("ToolUses = %+v, want Task filtered out", p.ToolUses)
		}
		if len(p.AllToolUses) != 1 || p.AllToolUses[0].Name != "Task" {
			t.Errorf("AllToolUses = %+v", p.AllToolUses)
		}
	})

	t.Run("sidechain-flagged command without Task", func(t *testing.T) {
		entries := []cclog.Entry{
			userAt("u1", "main ask", 0),
			assistantAt("a1", "working", 5),
			{Type: cclog.TypeUser, UUID: "s1", IsSidechain: true, Text: "delegated ask", Timestamp: at(10)},
			assistantAt("a2", "done", 20),
		}
		pairs := Reconstruct(entries)
		if len(pairs) != 1 {
			t.Fatalf("pair count = %v, want 1 (sidechain user is not a boundary)", len(pairs))
		}
		if len(pairs[0].SubAgentThreads) != 1 {
			t.Fatalf("thread count = %v, want 1", len(pairs[0].SubAgentThreads))
		}
	})

	t.Run("dedicated sub-agent file reconstructs normally", func(t *testing.T) {
		entries := []cclog.Entry{
			{Type: cclog.TypeUser, UUID: "u1", IsSidechain: true, Text: "agent prompt", Timestamp: at(0)},
			{Type: cclog.TypeAssistant, UUID: "a1", IsSidechain: true, Timestamp: at(5), Items: []cclog.ContentItem{
				{Type: cclog.ItemText, Text: "agent answer", Timestamp: at(5)},
			}},
		}
		pairs := Reconstruct(entries)
		if len(pairs) != 1 {
			t.Fatalf("pair count = %v, want 1", len(pairs))
		}
		if !pairs[0].IsSidechain {
			t.Error("IsSidechain flag lost")
		}
	})
}

func TestTokenAccumulation(t *testing.T) {
	entries := []cclog.Entry{
		userAt("u1", "ask", 0),
		// Accounting-only entry: no content, still counts.
		{Type: cclog.TypeAssistant, Timestamp: at(2), HasUsage: true,
			Usage: cclog.TokenUsage{InputTokens: 5, OutputTokens: 7, CacheReadTokens: 100}},
		{Type: cclog.TypeAssistant, UUID: "a1", Timestamp: at(5), HasUsage: true,
			Usage: cclog.TokenUsage{InputTokens: 10, OutputTokens: 3},
			Items: []cclog.ContentItem{{Type: cclog.ItemText, Text: "done", Timestamp: at(5)}}},
	}
	pairs := Reconstruct(entries)
	if len(pairs) != 1 {
		t.Fatalf("pair count = %v, want 1", len(pairs))
	}
	u := pairs[0].TokenUsage
	if u.InputTokens != 15 || u.OutputTokens != 10 || u.CacheReadTokens != 100 {
		t.Errorf("TokenUsage = %+v", u)
	}
	if u.Total() != 25 {
		t.Errorf("Total() = %v, want 25", u.Total())
	}
}

func TestThinkingAccumulation(t *testing.T) {
	entries := []cclog.Entry{
		userAt("u1", "ask", 0),
		{Type: cclog.TypeAssistant, UUID: "a1", Timestamp: at(3), Items: []cclog.ContentItem{
			{Type: cclog.ItemThinking, Thinking: "step one", Timestamp: at(3)},
			{Type: cclog.ItemThinking, Thinking: "step two", Timestamp: at(3)},
		}},
		assistantAt("a2", "answer", 8),
	}
	pairs := Reconstruct(entries)
	p := pairs[0]
	if len(p.ThinkingBlocks) != 2 {
		t.Fatalf("thinking blocks = %v, want 2", len(p.ThinkingBlocks))
	}
	if p.ThinkingChars() != len("step one")+len("step two") {
		t.Errorf("ThinkingChars() = %v", p.ThinkingChars())
	}
}

func TestRawContentMergedChronologically(t *testing.T) {
	entries := []cclog.Entry{
		userAt("u1", "ask", 0),
		assistantAt("a1", "later text", 20),
		assistantAt("a2", "earlier text", 10),
	}
	pairs := Reconstruct(entries)
	raw := pairs[0].RawContent
	if len(raw) != 2 {
		t.Fatalf("raw content count = %v, want 2", len(raw))
	}
	if raw[0].Text != "earlier text" || raw[1].Text != "later text" {
		t.Errorf("raw order = %q, %q", raw[0].Text, raw[1].Text)
	}
}

func TestReconstructDeterministic(t *testing.T) {
	entries := []cclog.Entry{
		userAt("u1", "ask", 0),
		toolUseAt("a1", "Bash", "t1", 3),
		echoAt("t1", "out", 6),
		assistantAt("a2", "done", 9),
		userAt("u2", "more", 20),
		assistantAt("a3", "sure", 25),
	}
	first := Reconstruct(entries)
	second := Reconstruct(entries)
	if !reflect.DeepEqual(first, second) {
		t.Error("reconstruction is not deterministic across runs")
	}
}

func TestReconstructSession(t *testing.T) {
	t.Run("aggregates", func(t *testing.T) {
		entries := []cclog.Entry{
			{Type: cclog.TypeSummary, Summary: "Refactor importer"},
			{Type: cclog.TypeUser, UUID: "u1", SessionID: "sess-1", CWD: "/Users/neil/proj/api", Text: "ask", Timestamp: at(0)},
			toolUseAt("a1", "Bash", "t1", 5),
			assistantAt("a2", "done", 10),
			userAt("u2", "more", 30),
			assistantAt("a3", "sure", 45),
		}
		s := ReconstructSession("/logs/sess-file.jsonl", entries, &entries[1])
		if s == nil {
			t.Fatal("ReconstructSession() = nil, want session")
		}
		if s.ID != "sess-1" {
			t.Errorf("ID = %v, want sess-1", s.ID)
		}
		if s.Project != "/Users/neil/proj/api" {
			t.Errorf("Project = %v", s.Project)
		}
		if s.Summary != "Refactor importer" {
			t.Errorf("Summary = %v", s.Summary)
		}
		if len(s.Pairs) != 2 {
			t.Fatalf("pair count = %v, want 2", len(s.Pairs))
		}
		if s.TotalTools != 1 {
			t.Errorf("TotalTools = %v, want 1", s.TotalTools)
		}
		if s.DurationSeconds != 10+15 {
			t.Errorf("DurationSeconds = %v, want 25", s.DurationSeconds)
		}
		if !s.StartTime.Equal(at(0)) || !s.EndTime.Equal(at(45)) {
			t.Errorf("span = %v..%v", s.StartTime, s.EndTime)
		}
		if s.ActualDuration() != 45*time.Second {
			t.Errorf("ActualDuration() = %v", s.ActualDuration())
		}
		if s.Title() != "Refactor importer" {
			t.Errorf("Title() = %v", s.Title())
		}
	})

	t.Run("no pairs means no session", func(t *testing.T) {
		entries := []cclog.Entry{userAt("u1", "never answered", 0)}
		if s := ReconstructSession("/logs/empty.jsonl", entries, nil); s != nil {
			t.Errorf("ReconstructSession() = %+v, want nil", s)
		}
	})

	t.Run("agent files keep filename identity", func(t *testing.T) {
		entries := []cclog.Entry{
			{Type: cclog.TypeUser, UUID: "u1", SessionID: "parent-sess", Text: "prompt", Timestamp: at(0), IsSidechain: true},
			{Type: cclog.TypeAssistant, UUID: "a1", Timestamp: at(5), IsSidechain: true, Items: []cclog.ContentItem{
				{Type: cclog.ItemText, Text: "report", Timestamp: at(5)},
			}},
		}
		s := ReconstructSession("/logs/agent-abc123.jsonl", entries, nil)
		if s == nil {
			t.Fatal("ReconstructSession() = nil")
		}
		if s.ID != "agent-abc123" {
			t.Errorf("ID = %v, want agent-abc123", s.ID)
		}
	})
}

// Cleanup runs during reconstruction, so pair content never surfaces
// continuation preambles or tool residue verbatim.
func TestReconstructCleansUserContent(t *testing.T) {
	preamble := "This session is being continued from a previous conversation that ran out of context.\nPlease continue the conversation from where we left it off. Finish the cache layer."
	entries := []cclog.Entry{
		userAt("u1", preamble, 0),
		assistantAt("a1", "on it", 5),
	}
	pairs := Reconstruct(entries)
	if strings.Contains(pairs[0].UserContent, "ran out of context") {
		t.Errorf("UserContent kept preamble: %q", pairs[0].UserContent)
	}
	if !strings.Contains(pairs[0].UserContent, "cache layer") {
		t.Errorf("UserContent lost restated ask: %q", pairs[0].UserContent)
	}
}
