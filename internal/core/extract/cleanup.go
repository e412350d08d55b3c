package extract

import (
	"regexp"
	"strings"
)

// Placeholder stands in when cleanup strips a message down to nothing.
const Placeholder = "[Continued from previous session]"

// continuationPrefix opens the preamble the assistant CLI injects when a
// session resumes after running out of context.
const continuationPrefix = "This session is being continued"

// continuationMarkers precede a restated user ask inside a continuation
// preamble. When one is found, everything after it is the actual request.
var continuationMarkers = []string{
	"Please continue the conversation from where we left it off",
	"continue the conversation from where we left",
	"The user sent the following message:",
	"last task that you were asked to work on",
}

// systemTagRE matches injected tag blocks that are not user prose.
var systemTagRE = regexp.MustCompile(
	`(?s)<system-reminder>.*?</system-reminder>` +
		`|<local-command-[^>]*>.*?</local-command-[^>]*>` +
		`|<command-[^>]+>.*?</command-[^>]+>` +
		`|<hook-[^>]+>.*?</hook-[^>]+>`,
)

// artifactLineRE matches lines that are tool-execution residue rather than
// prose: bracketed call indices and the File:/Command:/pattern: echo lines
// tools emit into the transcript.
var artifactLineRE = regexp.MustCompile(`^(\[\d+\]|File:|Command:|pattern:)`)

// IsContinuation reports whether text opens with a continuation-session
// preamble.
func IsContinuation(s string) bool {
	return strings.HasPrefix(strings.TrimSpace(s), continuationPrefix)
}

// HasToolArtifacts reports whether any line of text looks like
// tool-execution residue.
func HasToolArtifacts(s string) bool {
	for _, line := range strings.Split(s, "\n") {
		if artifactLineRE.MatchString(strings.TrimSpace(line)) {
			return true
		}
	}
	return false
}

// StripSystemTags removes injected tag blocks, preserving line structure so
// later line-based filtering still works.
func StripSystemTags(s string) string {
	if !strings.Contains(s, "<") {
		return s
	}
	return strings.TrimSpace(systemTagRE.ReplaceAllString(s, ""))
}

// ReduceContinuation shrinks a continuation preamble to the restated user
// ask that follows a known marker phrase. Without a marker the whole
// preamble is summary recap, so a fixed placeholder is returned instead.
// Heuristic: marker phrasing drifts across CLI versions.
func ReduceContinuation(s string) string {
	for _, marker := range continuationMarkers {
		if idx := strings.Index(s, marker); idx >= 0 {
			rest := strings.TrimSpace(s[idx+len(marker):])
			rest = strings.TrimLeft(rest, ".: \n")
			if rest != "" {
				return rest
			}
		}
	}
	return Placeholder
}

// StripToolArtifacts filters tool-residue lines out of text, keeping prose.
// Falls back to the first meaningful line, then to the placeholder, so the
// result is always non-empty.
func StripToolArtifacts(s string) string {
	lines := strings.Split(s, "\n")
	var prose []string
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || artifactLineRE.MatchString(trimmed) {
			continue
		}
		prose = append(prose, line)
	}
	if len(prose) > 0 {
		return strings.TrimSpace(strings.Join(prose, "\n"))
	}
	for _, line := range lines {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			return trimmed
		}
	}
	return Placeholder
}

// CleanUserText runs the full user-text cleanup pipeline: strip injected
// tags, reduce continuation preambles, filter tool artifacts. The result is
// always non-empty for non-empty input.
func CleanUserText(s string) string {
	s = StripSystemTags(s)
	if s == "" {
		return s
	}
	if IsContinuation(s) {
		return ReduceContinuation(s)
	}
	if HasToolArtifacts(s) {
		return StripToolArtifacts(s)
	}
	return s
}

// CleanDisplayText cleans assistant-side text, which never carries a
// continuation preamble but can quote tool output.
func CleanDisplayText(s string) string {
	s = StripSystemTags(s)
	if s != "" && HasToolArtifacts(s) {
		return StripToolArtifacts(s)
	}
	return s
}
