// Package mcp exposes the conversation archive to Claude Code over the
// Model Context Protocol. Every tool call re-scans the logs first, so
// results always include sessions written since the server started.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/neilberkman/ccreplay/internal/core/config"
	"github.com/neilberkman/ccreplay/internal/core/engine"
	"github.com/neilberkman/ccreplay/internal/core/extract"
	"github.com/neilberkman/ccreplay/internal/core/metadata"
	"github.com/neilberkman/ccreplay/internal/core/search"
	"github.com/neilberkman/ccreplay/internal/logging"
)

// SearchConversationsArgs defines arguments for the search_conversations tool
type SearchConversationsArgs struct {
	Query      string `json:"query" jsonschema:"description=Search term to match against conversation content,required"`
	Limit      int    `json:"limit,omitempty" jsonschema:"description=Max number of sessions to return (default: 10)"`
	Project    string `json:"project,omitempty" jsonschema:"description=Filter by project path substring"`
	Regex      bool   `json:"regex,omitempty" jsonschema:"description=Treat query as a regular expression"`
	AfterDate  string `json:"after_date,omitempty" jsonschema:"description=Only matches after this date (ISO 8601 format, e.g. 2025-01-01)"`
	BeforeDate string `json:"before_date,omitempty" jsonschema:"description=Only matches before this date (ISO 8601 format)"`
}

// GetSessionArgs defines arguments for the get_session tool
type GetSessionArgs struct {
	SessionID   string `json:"session_id" jsonschema:"description=Session id (any unique prefix) to retrieve,required"`
	SearchQuery string `json:"search_query,omitempty" jsonschema:"description=Optional search term to find matching conversations"`
}

// ListSessionsArgs defines arguments for the list_sessions tool
type ListSessionsArgs struct {
	Limit   int    `json:"limit,omitempty" jsonschema:"description=Max sessions to return (default: 20)"`
	Project string `json:"project,omitempty" jsonschema:"description=Filter by project path substring"`
}

// UsageStatsArgs defines arguments for the usage_stats tool
type UsageStatsArgs struct {
	Days     int `json:"days,omitempty" jsonschema:"description=Number of recent days to include (default: 14)"`
	Projects int `json:"projects,omitempty" jsonschema:"description=Number of top projects to include (default: 5)"`
}

// SessionMatch represents a session search result
type SessionMatch struct {
	SessionID    string         `json:"session_id"`
	Summary      string         `json:"summary"`
	Project      string         `json:"project"`
	LastActivity string         `json:"last_activity"`
	MatchCount   int            `json:"match_count"`
	Matches      []MatchSnippet `json:"matches"`
}

// MatchSnippet represents one conversation match within a session
type MatchSnippet struct {
	MatchType string `json:"match_type"`
	Snippet   string `json:"snippet"`
	Pair      int    `json:"pair"`
	Timestamp string `json:"timestamp"`
}

// SessionDetail represents a session with key messages (not full conversation)
type SessionDetail struct {
	SessionID     string          `json:"session_id"`
	Title         string          `json:"title"`
	Project       string          `json:"project"`
	Started       string          `json:"started"`
	LastActivity  string          `json:"last_activity"`
	Conversations int             `json:"conversations"`
	ToolCalls     int             `json:"tool_calls"`
	Tokens        int             `json:"tokens"`
	Issues        []string        `json:"issues,omitempty"`
	Files         []string        `json:"files,omitempty"`
	FirstMessage  *MessageDetail  `json:"first_message,omitempty"`
	LastMessage   *MessageDetail  `json:"last_message,omitempty"`
	MatchingPairs []MessageDetail `json:"matching_pairs,omitempty"`
}

// MessageDetail represents a single message in a session
type MessageDetail struct {
	Type      string `json:"type"`
	Content   string `json:"content"`
	Timestamp string `json:"timestamp"`
	Pair      int    `json:"pair"`
}

// SessionSummary represents a session in the list view
type SessionSummary struct {
	SessionID     string `json:"session_id"`
	Title         string `json:"title"`
	Project       string `json:"project"`
	Started       string `json:"started"`
	LastActivity  string `json:"last_activity"`
	Conversations int    `json:"conversations"`
	ToolCalls     int    `json:"tool_calls"`
	Tokens        int    `json:"tokens"`
}

const timeLayout = "2006-01-02 15:04:05"

// StartServer starts the MCP server
func StartServer(cfg *config.Config) error {
	log := logging.NewLogger("mcp")
	eng := engine.New(cfg)

	s := server.NewMCPServer(
		"ccreplay",
		"1.0.0",
	)

	// Register search_conversations tool
	searchTool := mcp.NewTool("search_conversations",
		mcp.WithDescription("Search Claude Code conversations for a query string across user messages, assistant responses and thinking blocks. Supports OR between alternatives, regex, and date and project filtering."),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("Search term to match against conversation content")),
		mcp.WithNumber("limit",
			mcp.Description("Max number of sessions to return (default: 10)")),
		mcp.WithString("project",
			mcp.Description("Filter by project path substring")),
		mcp.WithBoolean("regex",
			mcp.Description("Treat query as a regular expression")),
		mcp.WithString("after_date",
			mcp.Description("Only matches after this date (ISO 8601 format, e.g. '2025-01-01' or '2025-01-08T10:00:00Z')")),
		mcp.WithString("before_date",
			mcp.Description("Only matches before this date (ISO 8601 format)")),
	)
	s.AddTool(searchTool, makeSearchConversationsHandler(eng))

	// Register get_session tool
	detailTool := mcp.NewTool("get_session",
		mcp.WithDescription("Retrieve session info with first message, last message, mentioned issue ids and file paths, and optionally matching conversations for a specific Claude Code session"),
		mcp.WithString("session_id",
			mcp.Required(),
			mcp.Description("Session id to retrieve; any unique prefix works")),
		mcp.WithString("search_query",
			mcp.Description("Optional search term to find matching conversations in the session")),
	)
	s.AddTool(detailTool, makeGetSessionHandler(eng))

	// Register list_sessions tool
	listTool := mcp.NewTool("list_sessions",
		mcp.WithDescription("Get recent Claude Code sessions, optionally filtered by project"),
		mcp.WithNumber("limit",
			mcp.Description("Max sessions to return (default: 20)")),
		mcp.WithString("project",
			mcp.Description("Filter by project path substring")),
	)
	s.AddTool(listTool, makeListSessionsHandler(eng))

	// Register usage_stats tool
	statsTool := mcp.NewTool("usage_stats",
		mcp.WithDescription("Get aggregate usage statistics: totals, daily activity and busiest projects"),
		mcp.WithNumber("days",
			mcp.Description("Number of recent days to include (default: 14)")),
		mcp.WithNumber("projects",
			mcp.Description("Number of top projects to include (default: 5)")),
	)
	s.AddTool(statsTool, makeUsageStatsHandler(eng))

	log.Info("serving conversation archive tools over stdio")
	return server.ServeStdio(s)
}

// refresh re-scans the logs so tool results see sessions written since
// the last call. The snapshot cache keeps this cheap.
func refresh(eng *engine.Engine) error {
	_, err := eng.Load(nil)
	return err
}

func decodeArgs(request mcp.CallToolRequest, out any) error {
	argsBytes, _ := json.Marshal(request.Params.Arguments)
	return json.Unmarshal(argsBytes, out)
}

func makeSearchConversationsHandler(eng *engine.Engine) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		if err := refresh(eng); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("scan failed: %v", err)), nil
		}

		var args SearchConversationsArgs
		if err := decodeArgs(request, &args); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("invalid arguments: %v", err)), nil
		}

		// Set defaults (interface concern - pagination)
		limit := args.Limit
		if limit == 0 {
			limit = 10
		}

		after, err := parseToolDate(args.AfterDate)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("invalid after_date: %v", err)), nil
		}
		before, err := parseToolDate(args.BeforeDate)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("invalid before_date: %v", err)), nil
		}

		results, err := eng.Search(args.Query, search.Options{Regex: args.Regex})
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("search failed: %v", err)), nil
		}

		// Scope by project and date after matching, so regex queries get
		// the same filters as literal ones.
		var scoped []search.SearchResult
		for _, r := range results {
			if args.Project != "" && !strings.Contains(strings.ToLower(r.ProjectPath), strings.ToLower(args.Project)) {
				continue
			}
			if !after.IsZero() && r.Timestamp.Before(after) {
				continue
			}
			if !before.IsZero() && r.Timestamp.After(before) {
				continue
			}
			scoped = append(scoped, r)
		}

		// Group matches by session (interface concern - presentation)
		var sessions []SessionMatch
		index := map[string]int{}
		for _, r := range scoped {
			i, seen := index[r.SessionID]
			if !seen {
				if len(sessions) >= limit {
					continue
				}
				index[r.SessionID] = len(sessions)
				sessions = append(sessions, SessionMatch{
					SessionID:    r.SessionID,
					Summary:      r.SessionSummary,
					Project:      r.ProjectPath,
					LastActivity: r.Timestamp.Format(timeLayout),
					Matches:      []MatchSnippet{},
				})
				i = len(sessions) - 1
			}
			sessions[i].MatchCount++
			// Limit to 3 snippets per session for display
			if len(sessions[i].Matches) < 3 {
				sessions[i].Matches = append(sessions[i].Matches, MatchSnippet{
					MatchType: r.MatchType,
					Snippet:   r.MatchContext,
					Pair:      r.PairIndex,
					Timestamp: r.Timestamp.Format(timeLayout),
				})
			}
		}

		resultJSON, err := json.Marshal(map[string]interface{}{
			"sessions": sessions,
		})
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to marshal results: %v", err)), nil
		}

		return mcp.NewToolResultText(string(resultJSON)), nil
	}
}

func makeGetSessionHandler(eng *engine.Engine) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		if err := refresh(eng); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("scan failed: %v", err)), nil
		}

		var args GetSessionArgs
		if err := decodeArgs(request, &args); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("invalid arguments: %v", err)), nil
		}

		s, err := eng.Session(args.SessionID)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		detail := SessionDetail{
			SessionID:     s.ID,
			Title:         s.Title(),
			Project:       s.Project,
			Started:       s.StartTime.Format(timeLayout),
			LastActivity:  s.LastActivity.Format(timeLayout),
			Conversations: len(s.Pairs),
			ToolCalls:     s.TotalTools,
			Tokens:        s.TotalTokens.Total(),
		}

		// Top mentioned issue ids and file paths give the caller hooks
		// for follow-up searches.
		meta := metadata.NewExtractor().ExtractSession(s)
		for _, iss := range meta.Issues() {
			detail.Issues = append(detail.Issues, iss.IssueID)
			if len(detail.Issues) >= 5 {
				break
			}
		}
		for _, f := range meta.Files() {
			detail.Files = append(detail.Files, f.FilePath)
			if len(detail.Files) >= 5 {
				break
			}
		}

		if len(s.Pairs) > 0 {
			first := s.Pairs[0]
			detail.FirstMessage = &MessageDetail{
				Type:      "user",
				Content:   clip(extract.CleanUserText(first.UserContent), 2000),
				Timestamp: first.UserTime.Format(timeLayout),
				Pair:      first.Index,
			}

			last := s.Pairs[len(s.Pairs)-1]
			detail.LastMessage = &MessageDetail{
				Type:      "assistant",
				Content:   clip(extract.CleanDisplayText(last.AssistantContent), 2000),
				Timestamp: last.AssistantTime.Format(timeLayout),
				Pair:      last.Index,
			}
		}

		// If search query provided, filter matching conversations
		if args.SearchQuery != "" {
			queryLower := strings.ToLower(args.SearchQuery)
			for i := range s.Pairs {
				p := &s.Pairs[i]
				user := extract.CleanUserText(p.UserContent)
				assistant := extract.CleanDisplayText(p.AssistantContent)

				var content, msgType string
				switch {
				case strings.Contains(strings.ToLower(user), queryLower):
					content, msgType = user, "user"
				case strings.Contains(strings.ToLower(assistant), queryLower):
					content, msgType = assistant, "assistant"
				default:
					continue
				}

				detail.MatchingPairs = append(detail.MatchingPairs, MessageDetail{
					Type:      msgType,
					Content:   clip(content, 2000),
					Timestamp: p.UserTime.Format(timeLayout),
					Pair:      p.Index,
				})
				if len(detail.MatchingPairs) >= 5 {
					break
				}
			}
		}

		resultJSON, err := json.Marshal(detail)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to marshal result: %v", err)), nil
		}

		return mcp.NewToolResultText(string(resultJSON)), nil
	}
}

func makeListSessionsHandler(eng *engine.Engine) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		if err := refresh(eng); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("scan failed: %v", err)), nil
		}

		var args ListSessionsArgs
		if err := decodeArgs(request, &args); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("invalid arguments: %v", err)), nil
		}

		// Set defaults
		limit := args.Limit
		if limit == 0 {
			limit = 20
		}

		all, err := eng.Sessions()
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("query failed: %v", err)), nil
		}
		if args.Project != "" {
			all = search.FilterSessions(all, search.Filters{Project: args.Project})
		}
		if len(all) > limit {
			all = all[:limit]
		}

		var sessions []SessionSummary
		for _, s := range all {
			sessions = append(sessions, SessionSummary{
				SessionID:     s.ID,
				Title:         s.Title(),
				Project:       s.Project,
				Started:       s.StartTime.Format(timeLayout),
				LastActivity:  s.LastActivity.Format(timeLayout),
				Conversations: len(s.Pairs),
				ToolCalls:     s.TotalTools,
				Tokens:        s.TotalTokens.Total(),
			})
		}

		resultJSON, err := json.Marshal(map[string]interface{}{
			"sessions": sessions,
		})
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to marshal results: %v", err)), nil
		}

		return mcp.NewToolResultText(string(resultJSON)), nil
	}
}

func makeUsageStatsHandler(eng *engine.Engine) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		if err := refresh(eng); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("scan failed: %v", err)), nil
		}

		var args UsageStatsArgs
		if err := decodeArgs(request, &args); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("invalid arguments: %v", err)), nil
		}

		days := args.Days
		if days == 0 {
			days = 14
		}
		projectLimit := args.Projects
		if projectLimit == 0 {
			projectLimit = 5
		}

		overview, err := eng.Overview()
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("query failed: %v", err)), nil
		}
		daily, err := eng.DailyStatistics()
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("query failed: %v", err)), nil
		}
		if len(daily) > days {
			daily = daily[:days]
		}
		projects, err := eng.ProjectStatistics()
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("query failed: %v", err)), nil
		}
		if len(projects) > projectLimit {
			projects = projects[:projectLimit]
		}

		dailyOut := make([]map[string]interface{}, 0, len(daily))
		for _, d := range daily {
			dailyOut = append(dailyOut, map[string]interface{}{
				"date":          d.Date,
				"sessions":      d.Sessions,
				"conversations": d.Conversations,
				"tool_calls":    d.ToolUses,
				"tokens":        d.Tokens.Total(),
			})
		}
		projectsOut := make([]map[string]interface{}, 0, len(projects))
		for _, p := range projects {
			projectsOut = append(projectsOut, map[string]interface{}{
				"project":       p.Project,
				"sessions":      p.Sessions,
				"conversations": p.Conversations,
				"tool_calls":    p.ToolUses,
				"tokens":        p.Tokens.Total(),
				"last_activity": p.LastActivity.Format(timeLayout),
			})
		}

		resultJSON, err := json.Marshal(map[string]interface{}{
			"totals": map[string]interface{}{
				"sessions":       overview.TotalSessions,
				"conversations":  overview.TotalConversations,
				"tool_calls":     overview.TotalToolUses,
				"tokens":         overview.TotalTokens.Total(),
				"thinking_chars": overview.TotalThinkingChars,
				"oldest_session": formatOptional(overview.OldestSession),
				"newest_session": formatOptional(overview.NewestSession),
				"most_active_project": map[string]interface{}{
					"path":     overview.MostActiveProject,
					"sessions": overview.MostActiveProjectCount,
				},
			},
			"daily":    dailyOut,
			"projects": projectsOut,
		})
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to marshal results: %v", err)), nil
		}

		return mcp.NewToolResultText(string(resultJSON)), nil
	}
}

// parseToolDate accepts a bare date or a full RFC 3339 timestamp.
func parseToolDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	for _, layout := range []string{"2006-01-02", time.RFC3339} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", s)
}

func formatOptional(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(timeLayout)
}

func clip(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
