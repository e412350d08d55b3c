// Package cclog decodes Claude Code session logs: append-only JSONL files
// where each line is one event record (a user turn, an assistant turn, a
// tool result echo, token accounting).
package cclog

import "time"

// Entry types the reconstruction pipeline acts on. Other typed entries
// survive decoding but are ignored downstream; typeless lines are dropped.
const (
	TypeUser      = "user"
	TypeAssistant = "assistant"
	TypeSummary   = "summary"
)

// Content item types within a message content array.
const (
	ItemText       = "text"
	ItemThinking   = "thinking"
	ItemToolUse    = "tool_use"
	ItemToolResult = "tool_result"
)

// TokenUsage holds the token counts reported on an assistant entry.
type TokenUsage struct {
	InputTokens         int `json:"input_tokens"`
	OutputTokens        int `json:"output_tokens"`
	CacheCreationTokens int `json:"cache_creation_input_tokens"`
	CacheReadTokens     int `json:"cache_read_input_tokens"`
}

// Total returns input plus output tokens. Cache counts are tracked
// separately and not folded in.
func (u TokenUsage) Total() int {
	return u.InputTokens + u.OutputTokens
}

// Add accumulates counts from another usage record.
func (u *TokenUsage) Add(other TokenUsage) {
	u.InputTokens += other.InputTokens
	u.OutputTokens += other.OutputTokens
	u.CacheCreationTokens += other.CacheCreationTokens
	u.CacheReadTokens += other.CacheReadTokens
}

// ContentItem is one element of a message content array. Type selects which
// fields are meaningful: Text for "text", Thinking for "thinking",
// ToolName/ToolID/ToolInput for "tool_use", ToolID/Result/IsError for
// "tool_result".
type ContentItem struct {
	Type      string
	Text      string
	Thinking  string
	ToolName  string
	ToolID    string
	ToolInput map[string]any
	Result    string
	IsError   bool
	Timestamp time.Time
}

// Entry is one decoded event record. Content arrives either as a plain
// string (Text) or as an ordered list of tagged items (Items); exactly one
// of the two is populated for entries that carry content at all.
type Entry struct {
	Type        string
	Timestamp   time.Time
	Text        string
	Items       []ContentItem
	Usage       TokenUsage
	HasUsage    bool
	UUID        string
	ParentUUID  string
	SessionID   string
	Summary     string
	IsMeta      bool
	IsSidechain bool
	CWD         string
}

// HasItems reports whether the entry carried array-form content.
func (e *Entry) HasItems() bool {
	return len(e.Items) > 0
}
