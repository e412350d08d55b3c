package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/neilberkman/ccreplay/internal/core/extract"
	"github.com/neilberkman/ccreplay/internal/core/reconstruct"
	"github.com/neilberkman/ccreplay/internal/core/tree"
)

var (
	showThinking bool
	showRaw      bool
	showTree     bool
	showTools    bool
)

var showCmd = &cobra.Command{
	Use:   "show <session-id>",
	Short: "Show a reconstructed conversation",
	Long: `Print a session's full conversation to the terminal.

The session id may be abbreviated to any unique prefix. Tool calls are
listed under the assistant turn that made them; --tools expands each
call with its input and a result preview, and --thinking includes the
assistant's thinking blocks. --tree prints the entry graph instead,
exposing branch points left behind by edited or retried messages.

Examples:
  ccreplay show 0ccfddc4
  ccreplay show 0ccfddc4-00e7-443a-bb82-58ede5936619 --thinking
  ccreplay show 0ccfddc4 --tools
  ccreplay show 0ccfddc4 --tree`,
	Args: cobra.ExactArgs(1),
	RunE: runShow,
}

func init() {
	rootCmd.AddCommand(showCmd)
	showCmd.Flags().BoolVar(&showThinking, "thinking", false, "Include thinking blocks")
	showCmd.Flags().BoolVar(&showRaw, "raw", false, "Print message text without cleanup")
	showCmd.Flags().BoolVar(&showTools, "tools", false, "Show tool inputs and result previews")
	showCmd.Flags().BoolVar(&showTree, "tree", false, "Print the conversation tree instead of the transcript")
}

func runShow(cmd *cobra.Command, args []string) error {
	eng, err := openEngine()
	if err != nil {
		return err
	}

	s, err := eng.Session(args[0])
	if err != nil {
		return err
	}

	fmt.Printf("Session: %s\n", s.ID)
	if title := s.Title(); title != s.ID {
		fmt.Printf("Title:   %s\n", truncateSummary(title, 100))
	}
	fmt.Printf("Project: %s\n", s.Project)
	fmt.Printf("Started: %s\n", s.StartTime.Format("Jan 2, 2006 3:04 PM"))
	fmt.Printf("Updated: %s (%s)\n", formatTimestamp(s.LastActivity), s.ActualDuration().Round(time.Second))
	fmt.Printf("Conversations: %d   Tool calls: %d   Tokens: %d\n", len(s.Pairs), s.TotalTools, s.TotalTokens.Total())
	fmt.Println()
	fmt.Println(strings.Repeat("─", 60))

	if showTree {
		printTree(s)
		return nil
	}

	for i := range s.Pairs {
		printPair(&s.Pairs[i])
	}

	return nil
}

func printTree(s *reconstruct.Session) {
	t := tree.Build(s.Pairs)
	if len(t.Roots) == 0 {
		fmt.Println("No linked entries in this session.")
		return
	}
	for i, root := range t.Roots {
		if i > 0 {
			fmt.Println()
		}
		printTreeChain(t, root, 0)
	}
}

// printTreeChain prints one parent chain at a single indent level. At a
// branch point the newest child continues the chain; older siblings are
// superseded edits and render one level deeper.
func printTreeChain(t *tree.Tree, uuid string, depth int) {
	for uuid != "" {
		n := t.Node(uuid)
		if n == nil {
			return
		}
		printTreeNode(n, depth)

		children := t.Children[uuid]
		if len(children) == 0 {
			return
		}
		for _, alt := range children[:len(children)-1] {
			printTreeChain(t, alt, depth+1)
		}
		uuid = children[len(children)-1]
	}
}

func printTreeNode(n *tree.Node, depth int) {
	label := "assistant:"
	if n.Type == tree.NodeUser {
		label = "user:"
	}

	text := strings.ReplaceAll(n.Content, "\n", " ")
	text = truncateSummary(strings.TrimSpace(text), 70)
	if text == "" {
		text = "(empty)"
	}

	marker := ""
	if n.IsSidechain {
		marker += " [sidechain]"
	}
	if n.IsMeta {
		marker += " [meta]"
	}

	fmt.Printf("%s%s %-10s %s%s\n",
		strings.Repeat("  ", depth), n.Timestamp.Format("15:04:05"), label, text, marker)
}

func printPair(p *reconstruct.ConversationPair) {
	fmt.Printf("\n[%d] %s", p.Index+1, p.UserTime.Format("Jan 2 15:04:05"))
	if p.ResponseTimeSeconds > 0 {
		fmt.Printf("  (response %.1fs)", p.ResponseTimeSeconds)
	}
	fmt.Println()

	user := p.UserContent
	assistant := p.AssistantContent
	if !showRaw {
		user = extract.CleanUserText(user)
		assistant = extract.CleanDisplayText(assistant)
	}

	if user != "" {
		fmt.Println("\nUSER:")
		fmt.Println(indent(user))
	}

	if showThinking {
		for _, tb := range p.ThinkingBlocks {
			text := tb.Text
			if !showRaw {
				text = extract.CleanDisplayText(text)
			}
			if text == "" {
				continue
			}
			fmt.Println("\nTHINKING:")
			fmt.Println(indent(text))
		}
	}

	if assistant != "" {
		fmt.Println("\nASSISTANT:")
		fmt.Println(indent(assistant))
	}

	if len(p.AllToolUses) > 0 {
		if showTools {
			fmt.Println()
			for i := range p.AllToolUses {
				printToolUse(&p.AllToolUses[i])
			}
		} else {
			names := make([]string, 0, len(p.AllToolUses))
			for _, t := range p.AllToolUses {
				name := t.Name
				if t.Result != nil && t.Result.IsError {
					name += " (failed)"
				}
				names = append(names, name)
			}
			fmt.Printf("\nTools: %s\n", strings.Join(names, ", "))
		}
	}

	for _, thread := range p.SubAgentThreads {
		fmt.Printf("\nSub-agent: %s\n", truncateSummary(thread.Command, 80))
		for _, r := range thread.Responses {
			fmt.Println(indent(truncateMessage(r.Text, 200)))
		}
	}

	fmt.Println()
	fmt.Println(strings.Repeat("─", 60))
}

func printToolUse(t *reconstruct.ToolInvocation) {
	line := t.Name
	if in := toolInputSummary(t.Input); in != "" {
		line += ": " + in
	}
	fmt.Printf("  ⚙ %s\n", line)

	if t.Result == nil {
		return
	}
	preview := truncateSummary(t.Result.Text, 120)
	if t.Result.IsError {
		if preview == "" {
			preview = "(failed)"
		} else {
			preview = "(failed) " + preview
		}
	}
	if preview != "" {
		fmt.Printf("    → %s\n", preview)
	}
}

// toolInputSummary picks the most descriptive input field for one-line display.
func toolInputSummary(input map[string]any) string {
	for _, key := range []string{"command", "file_path", "path", "pattern", "query", "url", "description"} {
		if v, ok := input[key]; ok {
			if s, ok := v.(string); ok && s != "" {
				return truncateSummary(s, 80)
			}
		}
	}
	return ""
}

func indent(s string) string {
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	for i, line := range lines {
		lines[i] = "  " + line
	}
	return strings.Join(lines, "\n")
}
