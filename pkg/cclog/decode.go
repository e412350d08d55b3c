package cclog

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"
)

const (
	// MaxToolResultLen caps decoded tool_result text. Pathological tool
	// outputs (a cat of a bundled JS file, a runaway loop) would otherwise
	// dominate memory for sessions nobody asked to read in full.
	MaxToolResultLen = 10000

	// TruncationMarker is appended to capped tool results.
	TruncationMarker = "...[truncated]"

	// streamThreshold selects the line-streaming decode strategy for files
	// at or above this size; smaller files are read in one shot.
	streamThreshold = 5 * 1024 * 1024

	maxLineLen = 10 * 1024 * 1024
)

// rawEntry mirrors one JSONL line. Session identity shows up under three
// different keys across log versions.
type rawEntry struct {
	Type           string          `json:"type"`
	UUID           string          `json:"uuid,omitempty"`
	ParentUUID     string          `json:"parentUuid,omitempty"`
	SessionID      string          `json:"sessionId,omitempty"`
	SessionIDSnake string          `json:"session_id,omitempty"`
	ConversationID string          `json:"conversation_id,omitempty"`
	Summary        string          `json:"summary,omitempty"`
	Message        json.RawMessage `json:"message,omitempty"`
	Usage          json.RawMessage `json:"usage,omitempty"`
	Timestamp      string          `json:"timestamp,omitempty"`
	IsMeta         bool            `json:"isMeta,omitempty"`
	IsSidechain    bool            `json:"isSidechain,omitempty"`
	CWD            string          `json:"cwd,omitempty"`
}

type rawMessage struct {
	Role    string          `json:"role,omitempty"`
	Content json.RawMessage `json:"content,omitempty"`
	Usage   json.RawMessage `json:"usage,omitempty"`
}

type rawItem struct {
	Type      string          `json:"type"`
	Text      string          `json:"text,omitempty"`
	Thinking  string          `json:"thinking,omitempty"`
	Name      string          `json:"name,omitempty"`
	ID        string          `json:"id,omitempty"`
	Input     map[string]any  `json:"input,omitempty"`
	ToolUseID string          `json:"tool_use_id,omitempty"`
	Content   json.RawMessage `json:"content,omitempty"`
	Result    string          `json:"result,omitempty"`
	IsError   bool            `json:"is_error,omitempty"`
}

// DecodeFile decodes a session log. Files at or above 5MB are streamed line
// by line; smaller files are slurped and decoded in one pass. The two
// strategies produce identical output. The second return value is the first
// decoded entry, kept so callers can recover the working directory without
// re-reading the file.
func DecodeFile(path string) ([]Entry, *Entry, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to stat file: %w", err)
	}

	if info.Size() >= streamThreshold {
		f, err := os.Open(path)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open file: %w", err)
		}
		defer f.Close()
		return Decode(f)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read file: %w", err)
	}
	entries, first := DecodeBytes(data)
	return entries, first, nil
}

// Decode consumes JSONL from r one line at a time. Malformed lines are
// skipped silently; only read errors are surfaced.
func Decode(r io.Reader) ([]Entry, *Entry, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxLineLen)

	var entries []Entry
	var first *Entry
	for scanner.Scan() {
		entry, ok := DecodeLine(scanner.Bytes())
		if !ok {
			continue
		}
		entries = append(entries, entry)
		if first == nil {
			e := entry
			first = &e
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, nil, fmt.Errorf("error reading stream: %w", err)
	}
	return entries, first, nil
}

// DecodeBytes decodes an in-memory JSONL buffer.
func DecodeBytes(data []byte) ([]Entry, *Entry) {
	var entries []Entry
	var first *Entry
	for _, line := range bytes.Split(data, []byte("\n")) {
		entry, ok := DecodeLine(line)
		if !ok {
			continue
		}
		entries = append(entries, entry)
		if first == nil {
			e := entry
			first = &e
		}
	}
	return entries, first
}

// DecodeLine decodes a single JSONL line. It returns false for lines that
// are empty, not a bracketed object, structurally undecodable, or missing a
// type field. Append-only logs routinely contain such lines; they are not
// errors.
func DecodeLine(line []byte) (Entry, bool) {
	line = bytes.TrimSpace(bytes.TrimPrefix(line, []byte("\ufeff")))
	if len(line) == 0 || line[0] != '{' || line[len(line)-1] != '}' {
		return Entry{}, false
	}

	var raw rawEntry
	if err := json.Unmarshal(line, &raw); err != nil {
		return Entry{}, false
	}
	if raw.Type == "" {
		return Entry{}, false
	}

	entry := Entry{
		Type:        raw.Type,
		Timestamp:   parseTimestamp(raw.Timestamp),
		UUID:        raw.UUID,
		ParentUUID:  raw.ParentUUID,
		SessionID:   sessionID(&raw),
		Summary:     raw.Summary,
		IsMeta:      raw.IsMeta,
		IsSidechain: raw.IsSidechain,
		CWD:         raw.CWD,
	}

	usage := raw.Usage
	if len(raw.Message) > 0 {
		var msg rawMessage
		if err := json.Unmarshal(raw.Message, &msg); err == nil {
			decodeContent(&entry, msg.Content)
			if len(msg.Usage) > 0 {
				usage = msg.Usage
			}
		}
	}
	if len(usage) > 0 {
		var u TokenUsage
		if err := json.Unmarshal(usage, &u); err == nil {
			entry.Usage = u
			entry.HasUsage = true
		}
	}

	return entry, true
}

func sessionID(raw *rawEntry) string {
	if raw.SessionID != "" {
		return raw.SessionID
	}
	if raw.SessionIDSnake != "" {
		return raw.SessionIDSnake
	}
	return raw.ConversationID
}

// decodeContent fills Text or Items from message.content, which arrives
// either as a plain string or as an array of tagged items.
func decodeContent(entry *Entry, content json.RawMessage) {
	if len(content) == 0 {
		return
	}

	var s string
	if err := json.Unmarshal(content, &s); err == nil {
		entry.Text = s
		return
	}

	var items []rawItem
	if err := json.Unmarshal(content, &items); err != nil {
		return
	}
	for _, item := range items {
		ci := ContentItem{Type: item.Type, Timestamp: entry.Timestamp}
		switch item.Type {
		case ItemText:
			ci.Text = item.Text
		case ItemThinking:
			ci.Thinking = item.Thinking
		case ItemToolUse:
			ci.ToolName = item.Name
			ci.ToolID = item.ID
			ci.ToolInput = item.Input
		case ItemToolResult:
			ci.ToolID = item.ToolUseID
			ci.Result = truncateResult(resultText(&item))
			ci.IsError = item.IsError
		default:
			continue
		}
		entry.Items = append(entry.Items, ci)
	}
}

// resultText resolves tool_result payload text, which hides under content,
// text, or result depending on log version, and may itself be an array of
// text blocks.
func resultText(item *rawItem) string {
	if len(item.Content) > 0 {
		var s string
		if err := json.Unmarshal(item.Content, &s); err == nil {
			return s
		}
		var blocks []rawItem
		if err := json.Unmarshal(item.Content, &blocks); err == nil {
			var buf bytes.Buffer
			for _, b := range blocks {
				if b.Type == ItemText && b.Text != "" {
					if buf.Len() > 0 {
						buf.WriteString("\n")
					}
					buf.WriteString(b.Text)
				}
			}
			return buf.String()
		}
	}
	if item.Text != "" {
		return item.Text
	}
	return item.Result
}

func truncateResult(s string) string {
	if len(s) > MaxToolResultLen {
		return s[:MaxToolResultLen] + TruncationMarker
	}
	return s
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
}

// parseTimestamp falls back to the current time for absent or malformed
// timestamps so downstream ordering never sees a zero time.
func parseTimestamp(s string) time.Time {
	if s != "" {
		for _, layout := range timestampLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return t
			}
		}
	}
	return time.Now()
}
