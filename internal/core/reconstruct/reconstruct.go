package reconstruct

import (
	"sort"
	"strings"

	"github.com/neilberkman/ccreplay/internal/core/extract"
	"github.com/neilberkman/ccreplay/pkg/cclog"
)

// maxResponseSeconds caps per-turn response time. Idle gaps (the user
// stepping away mid-turn) are capped rather than allowed to skew duration
// aggregates.
const maxResponseSeconds = 3600

// turnState is the in-progress turn, threaded through a single fold over
// the entry sequence. Reconstruction is deterministic: same entries in,
// same pairs out.
type turnState struct {
	currentUser        *cclog.Entry
	pendingToolUses    []ToolInvocation
	pendingToolResults map[string]ToolResult
	thinkingBlocks     []ThinkingBlock
	assistantResponses []*cclog.Entry
	subAgentThreads    []SubAgentThread
	tokens             cclog.TokenUsage
	rawContent         []cclog.ContentItem
	taskOpen           bool
}

func newTurnState() *turnState {
	return &turnState{pendingToolResults: make(map[string]ToolResult)}
}

// reset starts a new turn anchored on user entry e.
func (st *turnState) reset(e *cclog.Entry) {
	*st = turnState{
		currentUser:        e,
		pendingToolResults: make(map[string]ToolResult),
	}
}

// Reconstruct folds the ordered entry sequence into conversation pairs.
// It never fails: malformed or unexpected entries degrade to skips and
// empty fields, and an entry stream that produces no turns yields nil.
func Reconstruct(entries []cclog.Entry) []ConversationPair {
	var pairs []ConversationPair
	st := newTurnState()

	for i := range entries {
		e := &entries[i]
		switch e.Type {
		case cclog.TypeUser:
			st.onUser(e, &pairs)
		case cclog.TypeAssistant:
			st.onAssistant(e)
		}
	}

	if p := st.close(len(pairs)); p != nil {
		pairs = append(pairs, *p)
	}
	return pairs
}

func (st *turnState) onUser(e *cclog.Entry, pairs *[]ConversationPair) {
	// Tool result echoes are plumbing: capture results for correlation,
	// never open or close a turn.
	if extract.IsToolResultEcho(e) {
		for _, item := range extract.ToolResults(e) {
			st.absorbToolResult(item)
		}
		return
	}

	if st.isSubAgentCommand(e) {
		st.subAgentThreads = append(st.subAgentThreads, SubAgentThread{
			Time:    e.Timestamp,
			Command: extract.CleanUserText(extract.UserText(e)),
		})
		st.taskOpen = false
		return
	}

	if p := st.close(len(*pairs)); p != nil {
		*pairs = append(*pairs, *p)
	}
	st.reset(e)
}

// isSubAgentCommand detects the prompt handed to an invoked sub-agent: the
// user entry immediately following a Task invocation in this turn, or one
// whose sidechain flag flips on relative to the anchoring user. The flag
// comparison keeps dedicated sub-agent log files (every entry flagged)
// reconstructing as ordinary sessions. Heuristic, known to be approximate.
func (st *turnState) isSubAgentCommand(e *cclog.Entry) bool {
	if st.currentUser == nil {
		return false
	}
	if st.taskOpen {
		return true
	}
	return e.IsSidechain && !st.currentUser.IsSidechain
}

func (st *turnState) onAssistant(e *cclog.Entry) {
	for _, item := range extract.ToolUses(e) {
		inv := ToolInvocation{
			Name:  item.ToolName,
			ID:    item.ToolID,
			Input: item.ToolInput,
			Time:  item.Timestamp,
		}
		if res, ok := st.pendingToolResults[inv.ID]; ok && inv.ID != "" {
			r := res
			inv.Result = &r
			delete(st.pendingToolResults, inv.ID)
		}
		if inv.IsTask() {
			st.taskOpen = true
		}
		st.pendingToolUses = append(st.pendingToolUses, inv)
	}

	for _, item := range extract.Thinking(e) {
		if item.Thinking == "" {
			continue
		}
		st.thinkingBlocks = append(st.thinkingBlocks, ThinkingBlock{
			Time: item.Timestamp,
			Text: item.Thinking,
		})
	}

	if e.HasUsage {
		st.tokens.Add(e.Usage)
	}

	if st.answersSubAgent(e) {
		idx := st.oldestUnansweredThread()
		st.subAgentThreads[idx].Responses = append(st.subAgentThreads[idx].Responses, SubAgentResponse{
			Time: e.Timestamp,
			Text: extract.AssistantText(e),
		})
	}

	if extract.HasAssistantContent(e) {
		st.assistantResponses = append(st.assistantResponses, e)
		if e.HasItems() {
			st.rawContent = append(st.rawContent, e.Items...)
		} else if strings.TrimSpace(e.Text) != "" {
			st.rawContent = append(st.rawContent, cclog.ContentItem{
				Type:      cclog.ItemText,
				Text:      e.Text,
				Timestamp: e.Timestamp,
			})
		}
	}
}

func (st *turnState) answersSubAgent(e *cclog.Entry) bool {
	if len(st.subAgentThreads) == 0 || !e.IsSidechain {
		return false
	}
	return st.currentUser == nil || !st.currentUser.IsSidechain
}

// oldestUnansweredThread picks the first thread with no responses yet;
// once every thread has one, later responses continue the most recent
// thread's stream.
func (st *turnState) oldestUnansweredThread() int {
	for i := range st.subAgentThreads {
		if len(st.subAgentThreads[i].Responses) == 0 {
			return i
		}
	}
	return len(st.subAgentThreads) - 1
}

// absorbToolResult joins a result to its already-seen invocation by id, or
// parks it for an invocation that has not arrived yet. Correlation works in
// both orders.
func (st *turnState) absorbToolResult(item cclog.ContentItem) {
	if item.ToolID == "" {
		return
	}
	res := ToolResult{Text: item.Result, IsError: item.IsError}
	for i := range st.pendingToolUses {
		if st.pendingToolUses[i].ID == item.ToolID && st.pendingToolUses[i].Result == nil {
			r := res
			st.pendingToolUses[i].Result = &r
			return
		}
	}
	st.pendingToolResults[item.ToolID] = res
}

// close emits the open turn as a pair, or nil when no contentful assistant
// entry followed the anchoring user.
func (st *turnState) close(index int) *ConversationPair {
	if st.currentUser == nil || len(st.assistantResponses) == 0 {
		return nil
	}

	anchor := st.assistantResponses[len(st.assistantResponses)-1]

	responseTime := anchor.Timestamp.Sub(st.currentUser.Timestamp).Seconds()
	if responseTime < 0 {
		responseTime = 0
	}
	if responseTime > maxResponseSeconds {
		responseTime = maxResponseSeconds
	}

	var texts []string
	for _, r := range st.assistantResponses {
		if t := extract.CleanDisplayText(extract.AssistantText(r)); t != "" {
			texts = append(texts, t)
		}
	}

	raw := make([]cclog.ContentItem, len(st.rawContent))
	copy(raw, st.rawContent)
	sort.SliceStable(raw, func(i, j int) bool {
		return raw[i].Timestamp.Before(raw[j].Timestamp)
	})

	var uses []ToolInvocation
	for _, u := range st.pendingToolUses {
		if !u.IsTask() {
			uses = append(uses, u)
		}
	}

	return &ConversationPair{
		Index:               index,
		UserTime:            st.currentUser.Timestamp,
		AssistantTime:       anchor.Timestamp,
		ResponseTimeSeconds: responseTime,
		UserContent:         extract.CleanUserText(extract.UserText(st.currentUser)),
		AssistantContent:    strings.Join(texts, "\n"),
		ToolUses:            uses,
		AllToolUses:         st.pendingToolUses,
		ThinkingBlocks:      st.thinkingBlocks,
		TokenUsage:          st.tokens,
		UserUUID:            st.currentUser.UUID,
		UserParentUUID:      st.currentUser.ParentUUID,
		AssistantUUID:       anchor.UUID,
		AssistantParentUUID: anchor.ParentUUID,
		IsMeta:              st.currentUser.IsMeta,
		IsSidechain:         st.currentUser.IsSidechain,
		SubAgentThreads:     st.subAgentThreads,
		RawContent:          raw,
	}
}
