// Package reconstruct rebuilds conversational turns from the flat entry
// stream of a session log: pairing user asks with assistant answers,
// correlating tool invocations with their results, threading sub-agent
// exchanges, and accumulating token usage.
package reconstruct

import (
	"time"

	"github.com/neilberkman/ccreplay/pkg/cclog"
)

// TaskToolName marks a tool invocation that launches a sub-agent rather
// than running a primitive tool.
const TaskToolName = "Task"

// ToolResult is the resolved outcome of a tool invocation.
type ToolResult struct {
	Text    string `json:"text"`
	IsError bool   `json:"is_error,omitempty"`
}

// ToolInvocation is one tool call made by the assistant. Result is nil
// until a tool_result with a matching id is correlated; unmatched
// invocations keep it nil.
type ToolInvocation struct {
	Name   string         `json:"name"`
	ID     string         `json:"id"`
	Input  map[string]any `json:"input,omitempty"`
	Result *ToolResult    `json:"result,omitempty"`
	Time   time.Time      `json:"time"`
}

// IsTask reports whether this invocation launched a sub-agent. Task
// invocations are excluded from tool-usage counts but kept for display
// and threading.
func (t *ToolInvocation) IsTask() bool {
	return t.Name == TaskToolName
}

// ThinkingBlock is one segment of internal assistant deliberation.
type ThinkingBlock struct {
	Time time.Time `json:"time"`
	Text string    `json:"text"`
}

// SubAgentResponse is one assistant answer inside a sub-agent thread.
type SubAgentResponse struct {
	Time time.Time `json:"time"`
	Text string    `json:"text"`
}

// SubAgentThread is a nested command/response exchange delegated to an
// invoked sub-agent, tracked apart from the primary turn.
type SubAgentThread struct {
	Time      time.Time          `json:"time"`
	Command   string             `json:"command"`
	Responses []SubAgentResponse `json:"responses,omitempty"`
}

// ConversationPair is one reconstructed user-ask/assistant-answer unit,
// possibly spanning several raw assistant entries. The last contentful
// assistant entry anchors the turn's time and identity links; text and
// thinking accumulate across all of them.
type ConversationPair struct {
	Index               int                 `json:"index"`
	UserTime            time.Time           `json:"user_time"`
	AssistantTime       time.Time           `json:"assistant_time"`
	ResponseTimeSeconds float64             `json:"response_time_seconds"`
	UserContent         string              `json:"user_content"`
	AssistantContent    string              `json:"assistant_content"`
	ToolUses            []ToolInvocation    `json:"tool_uses,omitempty"`
	AllToolUses         []ToolInvocation    `json:"all_tool_uses,omitempty"`
	ThinkingBlocks      []ThinkingBlock     `json:"thinking_blocks,omitempty"`
	TokenUsage          cclog.TokenUsage    `json:"token_usage"`
	UserUUID            string              `json:"user_uuid,omitempty"`
	UserParentUUID      string              `json:"user_parent_uuid,omitempty"`
	AssistantUUID       string              `json:"assistant_uuid,omitempty"`
	AssistantParentUUID string              `json:"assistant_parent_uuid,omitempty"`
	IsMeta              bool                `json:"is_meta,omitempty"`
	IsSidechain         bool                `json:"is_sidechain,omitempty"`
	SubAgentThreads     []SubAgentThread    `json:"sub_agent_threads,omitempty"`
	RawContent          []cclog.ContentItem `json:"raw_content,omitempty"`
}

// ThinkingChars returns the character volume of this turn's deliberation.
func (p *ConversationPair) ThinkingChars() int {
	n := 0
	for _, b := range p.ThinkingBlocks {
		n += len(b.Text)
	}
	return n
}
