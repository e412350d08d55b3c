package session

import (
	"fmt"
	"os"
	"strings"

	"github.com/cbroglie/mustache"
	"github.com/dustin/go-humanize"

	"github.com/neilberkman/ccreplay/internal/core/config"
	"github.com/neilberkman/ccreplay/internal/core/reconstruct"
)

// BuildResumeCommand builds the complete claude command for resuming a
// reconstructed session, rendering the configured resume prompt with the
// session's timing and location.
func BuildResumeCommand(s *reconstruct.Session, fork bool) (string, error) {
	cfg, err := config.Load()
	if err != nil {
		return "", fmt.Errorf("failed to load config: %w", err)
	}
	return buildResumeCommand(cfg, s, fork)
}

func buildResumeCommand(cfg *config.Config, s *reconstruct.Session, fork bool) (string, error) {
	timeSince := "unknown"
	if !s.LastActivity.IsZero() {
		timeSince = humanize.Time(s.LastActivity)
	}

	lastCwd := s.LastCWD
	if lastCwd == "" {
		lastCwd = s.Project
	}
	sameDir := lastCwd == s.Project

	templateData := map[string]interface{}{
		"last_updated":        s.LastActivity.Format("2006-01-02 15:04:05"),
		"last_cwd":            lastCwd,
		"time_since":          timeSince,
		"project_path":        s.Project,
		"same_directory":      sameDir,
		"different_directory": !sameDir,
	}

	resumePrompt, err := mustache.Render(cfg.ResumePromptTemplate, templateData)
	if err != nil {
		// Fall back to simple prompt if template fails
		resumePrompt = fmt.Sprintf("Resuming session. You were last in: %s", lastCwd)
	}

	// Write prompt to temp file to avoid shell escaping issues
	tmpfile, err := os.CreateTemp("", "ccreplay-prompt-*.txt")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	// Note: Caller is responsible for cleaning up temp file

	if _, err := tmpfile.Write([]byte(resumePrompt)); err != nil {
		_ = tmpfile.Close()
		_ = os.Remove(tmpfile.Name())
		return "", fmt.Errorf("failed to write prompt: %w", err)
	}
	_ = tmpfile.Close()

	flags := ""
	if len(cfg.ClaudeFlags) > 0 {
		flags = " " + strings.Join(cfg.ClaudeFlags, " ")
	}

	if fork {
		return fmt.Sprintf("claude%s --resume %s --fork-session \"$(cat %s)\"", flags, s.ID, tmpfile.Name()), nil
	}
	return fmt.Sprintf("claude%s --resume %s \"$(cat %s)\"", flags, s.ID, tmpfile.Name()), nil
}
