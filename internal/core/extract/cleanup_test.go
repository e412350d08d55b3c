package extract

import (
	"strings"
	"testing"
)

const continuationWithAsk = `This session is being continued from a previous conversation that ran out of context. The conversation is summarized below: the user was refactoring the importer.
Please continue the conversation from where we left it off. Finish wiring the retry logic in the importer.`

const continuationNoAsk = `This session is being continued from a previous conversation that ran out of context. Summary follows.`

func TestIsContinuation(t *testing.T) {
	if !IsContinuation(continuationWithAsk) {
		t.Error("preamble not detected")
	}
	if IsContinuation("please continue reviewing my PR") {
		t.Error("ordinary request misdetected as preamble")
	}
}

func TestReduceContinuation(t *testing.T) {
	got := ReduceContinuation(continuationWithAsk)
	if !strings.Contains(got, "retry logic") {
		t.Errorf("ReduceContinuation() = %q, want restated ask", got)
	}
	if strings.Contains(got, "summarized below") {
		t.Errorf("ReduceContinuation() kept preamble: %q", got)
	}

	if got := ReduceContinuation(continuationNoAsk); got != Placeholder {
		t.Errorf("ReduceContinuation() without marker = %q, want placeholder", got)
	}
}

func TestStripToolArtifacts(t *testing.T) {
	t.Run("filters artifact lines", func(t *testing.T) {
		text := "[1] Bash(go test ./...)\nFile: internal/core/db.go\nplease look at the failing test\nCommand: go vet"
		got := StripToolArtifacts(text)
		if got != "please look at the failing test" {
			t.Errorf("StripToolArtifacts() = %q", got)
		}
	})

	t.Run("falls back to first line", func(t *testing.T) {
		text := "[1] Bash(ls)\n[2] Read(main.go)"
		got := StripToolArtifacts(text)
		if got != "[1] Bash(ls)" {
			t.Errorf("StripToolArtifacts() fallback = %q", got)
		}
	})

	t.Run("empty input yields placeholder", func(t *testing.T) {
		if got := StripToolArtifacts("\n  \n"); got != Placeholder {
			t.Errorf("StripToolArtifacts() = %q, want placeholder", got)
		}
	})
}

func TestStripSystemTags(t *testing.T) {
	text := "before <system-reminder>injected context</system-reminder> after"
	got := StripSystemTags(text)
	if strings.Contains(got, "injected") {
		t.Errorf("StripSystemTags() kept reminder: %q", got)
	}
	if !strings.Contains(got, "before") || !strings.Contains(got, "after") {
		t.Errorf("StripSystemTags() lost prose: %q", got)
	}

	multi := "ask\n<command-name>/clear</command-name>\n<local-command-stdout>done</local-command-stdout>"
	if got := StripSystemTags(multi); strings.Contains(got, "/clear") || strings.Contains(got, "done") {
		t.Errorf("StripSystemTags() kept command blocks: %q", got)
	}
}

func TestCleanUserText(t *testing.T) {
	t.Run("plain text untouched", func(t *testing.T) {
		if got := CleanUserText("fix the bug in parser.go please"); got != "fix the bug in parser.go please" {
			t.Errorf("CleanUserText() = %q", got)
		}
	})

	t.Run("continuation reduced", func(t *testing.T) {
		got := CleanUserText(continuationNoAsk)
		if got != Placeholder {
			t.Errorf("CleanUserText() = %q, want placeholder", got)
		}
	})

	t.Run("artifacts stripped", func(t *testing.T) {
		got := CleanUserText("pattern: TODO\nwhy does the search miss this?")
		if got != "why does the search miss this?" {
			t.Errorf("CleanUserText() = %q", got)
		}
	})
}
