// Package extract pulls user text, assistant text, thinking, tool calls and
// token counts out of individual log entries, and cleans text contaminated
// with tool-execution artifacts or continuation-session preambles. All
// functions are pure and null-safe; malformed entries yield empty values,
// never errors.
package extract

import (
	"strings"

	"github.com/neilberkman/ccreplay/pkg/cclog"
)

// UserText returns the prose content of a user entry: the string form
// as-is, or the concatenated text items of the array form. Tool result
// echoes are not prose and are skipped.
func UserText(e *cclog.Entry) string {
	if e == nil {
		return ""
	}
	if !e.HasItems() {
		return e.Text
	}
	var parts []string
	for _, item := range e.Items {
		if item.Type == cclog.ItemText && item.Text != "" {
			parts = append(parts, item.Text)
		}
	}
	return strings.Join(parts, "\n")
}

// AssistantText returns the concatenated text items of an assistant entry.
func AssistantText(e *cclog.Entry) string {
	if e == nil {
		return ""
	}
	if !e.HasItems() {
		return e.Text
	}
	var parts []string
	for _, item := range e.Items {
		if item.Type == cclog.ItemText && item.Text != "" {
			parts = append(parts, item.Text)
		}
	}
	return strings.Join(parts, "\n")
}

// Thinking returns the thinking items of an entry in order.
func Thinking(e *cclog.Entry) []cclog.ContentItem {
	return itemsOfType(e, cclog.ItemThinking)
}

// ToolUses returns the tool_use items of an entry in order.
func ToolUses(e *cclog.Entry) []cclog.ContentItem {
	return itemsOfType(e, cclog.ItemToolUse)
}

// ToolResults returns the tool_result items of an entry in order.
func ToolResults(e *cclog.Entry) []cclog.ContentItem {
	return itemsOfType(e, cclog.ItemToolResult)
}

func itemsOfType(e *cclog.Entry, typ string) []cclog.ContentItem {
	if e == nil {
		return nil
	}
	var out []cclog.ContentItem
	for _, item := range e.Items {
		if item.Type == typ {
			out = append(out, item)
		}
	}
	return out
}

// IsToolResultEcho reports whether a user entry is solely the echo of tool
// results back into the transcript. Such entries are plumbing, not turns:
// they carry results for correlation but never open or close a turn.
func IsToolResultEcho(e *cclog.Entry) bool {
	if e == nil || e.Type != cclog.TypeUser || !e.HasItems() {
		return false
	}
	sawResult := false
	for _, item := range e.Items {
		switch item.Type {
		case cclog.ItemToolResult:
			sawResult = true
		case cclog.ItemText:
			if strings.TrimSpace(item.Text) != "" {
				return false
			}
		default:
			return false
		}
	}
	return sawResult
}

// HasAssistantContent reports whether an assistant entry carries actual
// content: non-empty text, any thinking, or any tool invocation. Entries
// without it (pure usage accounting, empty deltas) contribute tokens but
// never anchor a turn.
func HasAssistantContent(e *cclog.Entry) bool {
	if e == nil {
		return false
	}
	if strings.TrimSpace(e.Text) != "" {
		return true
	}
	for _, item := range e.Items {
		switch item.Type {
		case cclog.ItemText:
			if strings.TrimSpace(item.Text) != "" {
				return true
			}
		case cclog.ItemThinking, cclog.ItemToolUse:
			return true
		}
	}
	return false
}
