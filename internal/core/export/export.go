// Package export renders reconstructed sessions to markdown through
// mustache templates, so the output format stays user-overridable.
package export

import (
	"fmt"
	"strings"
	"time"

	"github.com/cbroglie/mustache"

	"github.com/neilberkman/ccreplay/internal/core/reconstruct"
)

// DefaultTemplate is the built-in markdown layout. Config can replace it
// wholesale with export_template.txt.
const DefaultTemplate = `# {{{title}}}

**Session ID:** ` + "`{{session_id}}`" + `
**Project:** ` + "`{{{project}}}`" + `
**Started:** {{started}}
**Last activity:** {{last_activity}}
**Conversations:** {{conversations}}
**Tool calls:** {{tool_calls}}
**Tokens:** {{tokens_input}} in / {{tokens_output}} out

---

{{#pairs}}
**USER** _{{user_time}}_

{{{user}}}

{{#thinking}}
_Thinking:_

> {{{text}}}

{{/thinking}}
{{#tools}}
- ` + "`{{name}}`" + `{{#failed}} (failed){{/failed}}
{{/tools}}
{{#has_assistant}}
**ASSISTANT** _{{assistant_time}}_

{{{assistant}}}

{{/has_assistant}}
---

{{/pairs}}
`

// Options control what lands in the rendered document.
type Options struct {
	Template        string // custom mustache template; empty means DefaultTemplate
	IncludeThinking bool
	IncludeTools    bool
}

// Markdown renders one session.
func Markdown(s *reconstruct.Session, opts Options) (string, error) {
	tpl := opts.Template
	if tpl == "" {
		tpl = DefaultTemplate
	}

	out, err := mustache.Render(tpl, templateData(s, opts))
	if err != nil {
		return "", fmt.Errorf("failed to render export template: %w", err)
	}
	return out, nil
}

func templateData(s *reconstruct.Session, opts Options) map[string]interface{} {
	pairs := make([]map[string]interface{}, 0, len(s.Pairs))
	for i := range s.Pairs {
		p := &s.Pairs[i]
		pd := map[string]interface{}{
			"number":         p.Index + 1,
			"user_time":      formatTime(p.UserTime),
			"assistant_time": formatTime(p.AssistantTime),
			"user":           p.UserContent,
			"assistant":      p.AssistantContent,
			"has_assistant":  strings.TrimSpace(p.AssistantContent) != "",
		}

		if opts.IncludeThinking {
			thinking := make([]map[string]interface{}, 0, len(p.ThinkingBlocks))
			for _, tb := range p.ThinkingBlocks {
				thinking = append(thinking, map[string]interface{}{"text": tb.Text})
			}
			pd["thinking"] = thinking
		}

		if opts.IncludeTools {
			tools := make([]map[string]interface{}, 0, len(p.ToolUses))
			for _, tu := range p.ToolUses {
				tools = append(tools, map[string]interface{}{
					"name":   tu.Name,
					"failed": tu.Result != nil && tu.Result.IsError,
				})
			}
			pd["tools"] = tools
		}

		pairs = append(pairs, pd)
	}

	return map[string]interface{}{
		"title":         s.Title(),
		"session_id":    s.ID,
		"project":       s.Project,
		"summary":       s.Summary,
		"started":       formatTime(s.StartTime),
		"last_activity": formatTime(s.LastActivity),
		"conversations": len(s.Pairs),
		"tool_calls":    s.TotalTools,
		"tokens_input":  s.TotalTokens.InputTokens,
		"tokens_output": s.TotalTokens.OutputTokens,
		"pairs":         pairs,
	}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "unknown"
	}
	return t.Format("Jan 02, 2006 15:04:05")
}
