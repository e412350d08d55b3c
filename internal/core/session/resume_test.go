package session

import (
	"os"
	"strings"
	"testing"
	"time"

	"github.com/neilberkman/ccreplay/internal/core/config"
	"github.com/neilberkman/ccreplay/internal/core/reconstruct"
)

func promptFileFromCommand(t *testing.T, cmd string) string {
	t.Helper()
	start := strings.Index(cmd, "$(cat ")
	if start < 0 {
		t.Fatalf("command %q has no prompt file reference", cmd)
	}
	rest := cmd[start+len("$(cat "):]
	end := strings.Index(rest, ")")
	if end < 0 {
		t.Fatalf("command %q has an unterminated prompt file reference", cmd)
	}
	return rest[:end]
}

func TestBuildResumeCommand(t *testing.T) {
	cfg := &config.Config{
		ResumePromptTemplate: config.DefaultResumePrompt,
		ClaudeFlags:          []string{"--model", "opus"},
	}
	s := &reconstruct.Session{
		ID:           "sess-1",
		Project:      "/home/u/proj",
		LastCWD:      "/home/u/proj/sub",
		LastActivity: time.Now().Add(-2 * time.Hour),
	}

	cmd, err := buildResumeCommand(cfg, s, false)
	if err != nil {
		t.Fatalf("buildResumeCommand() error = %v", err)
	}
	promptFile := promptFileFromCommand(t, cmd)
	defer func() {
		_ = os.Remove(promptFile)
	}()

	if !strings.HasPrefix(cmd, "claude --model opus --resume sess-1 ") {
		t.Errorf("command = %q, want claude with config flags and session id", cmd)
	}
	if strings.Contains(cmd, "--fork-session") {
		t.Errorf("command = %q should not fork", cmd)
	}

	prompt, err := os.ReadFile(promptFile)
	if err != nil {
		t.Fatalf("reading prompt file: %v", err)
	}
	if !strings.Contains(string(prompt), "you were last working in: /home/u/proj/sub") {
		t.Errorf("prompt = %q, want the divergent cwd called out", prompt)
	}
	if !strings.Contains(string(prompt), "2 hours ago") {
		t.Errorf("prompt = %q, want a humanized idle time", prompt)
	}

	t.Run("fork", func(t *testing.T) {
		cmd, err := buildResumeCommand(cfg, s, true)
		if err != nil {
			t.Fatalf("buildResumeCommand() error = %v", err)
		}
		defer func() {
			_ = os.Remove(promptFileFromCommand(t, cmd))
		}()
		if !strings.Contains(cmd, "--fork-session") {
			t.Errorf("command = %q, want --fork-session", cmd)
		}
	})

	t.Run("same directory skips the callout", func(t *testing.T) {
		same := *s
		same.LastCWD = same.Project
		cmd, err := buildResumeCommand(cfg, &same, false)
		if err != nil {
			t.Fatalf("buildResumeCommand() error = %v", err)
		}
		promptFile := promptFileFromCommand(t, cmd)
		defer func() {
			_ = os.Remove(promptFile)
		}()
		prompt, err := os.ReadFile(promptFile)
		if err != nil {
			t.Fatalf("reading prompt file: %v", err)
		}
		if strings.Contains(string(prompt), "last working in") {
			t.Errorf("prompt = %q should not mention a divergent cwd", prompt)
		}
	})
}

func TestResolveWorkingDir(t *testing.T) {
	if got := ResolveWorkingDir("/proj", "/somewhere/else"); got != "/proj" {
		t.Errorf("ResolveWorkingDir() = %q, want the project path", got)
	}
}
