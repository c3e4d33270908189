package app

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/claudetrail/internal/output"
	"github.com/blackwell-systems/claudetrail/internal/transcript"
)

var (
	showFlagTools bool
	showFlagTree  bool
)

var showCmd = &cobra.Command{
	Use:   "show <transcript.jsonl>",
	Short: "Inspect one transcript in detail",
	Long: `Parse a single transcript and render the session's identity, message
counts, token and cost figures, and optionally its tool executions and
conversation tree.

Examples:
  claudetrail show session.jsonl            # overview
  claudetrail show session.jsonl --tools    # include tool executions
  claudetrail show session.jsonl --tree     # include the conversation tree`,
	Args: cobra.ExactArgs(1),
	RunE: runShow,
}

func init() {
	showCmd.Flags().BoolVar(&showFlagTools, "tools", false, "Show every tool execution")
	showCmd.Flags().BoolVar(&showFlagTree, "tree", false, "Show the conversation tree")
	rootCmd.AddCommand(showCmd)
}

func runShow(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	parser := parserFromConfig(cfg)
	s, err := parser.ParseFile(args[0])
	if err != nil {
		return err
	}

	if flagJSON {
		return output.PrintJSON(s)
	}

	renderShow(s)
	if showFlagTools {
		renderToolExecutions(s)
	}
	if showFlagTree {
		renderTree(s)
	}
	return nil
}

func renderShow(s *transcript.Session) {
	label := func(l string, v any) {
		fmt.Printf(" %s %s\n", output.StyleLabel.Render(l), output.StyleBold.Render(fmt.Sprint(v)))
	}
	muted := func(l string, v any) {
		fmt.Printf(" %s %s\n", output.StyleLabel.Render(l), output.StyleMuted.Render(fmt.Sprint(v)))
	}

	fmt.Println(output.Section("Session"))
	fmt.Println()
	label("Session ID", s.SessionID)
	muted("Path", s.Path)
	label("Start", output.FormatTime(s.StartTime()))
	muted("End", output.FormatTime(s.EndTime()))
	label("Duration", output.FormatDuration(s.Duration()))
	if models := sessionModels(s); len(models) > 0 {
		muted("Models", strings.Join(models, ", "))
	}

	fmt.Println()
	fmt.Println(output.Section("Messages"))
	fmt.Println()
	muted("User messages", s.UserMessageCount())
	muted("Assistant messages", s.AssistantMessageCount())
	if s.SkippedRecords > 0 {
		muted("Skipped records", s.SkippedRecords)
	}
	for _, w := range s.Warnings {
		fmt.Printf(" %s\n", output.StyleWarning.Render(w))
	}

	fmt.Println()
	fmt.Println(output.Section("Tokens & Cost"))
	fmt.Println()
	in, out := 0, 0
	for i := range s.Messages {
		in += s.Messages[i].InputTokens()
		out += s.Messages[i].OutputTokens()
	}
	muted("Input tokens", in)
	muted("Output tokens", out)
	label("Total cost", output.FormatCost(s.TotalCost()))

	usage := s.ToolUsageSummary()
	fmt.Println()
	fmt.Println(output.Section("Tools"))
	fmt.Println()
	if len(usage) == 0 {
		fmt.Printf(" %s\n", output.StyleMuted.Render("No tool usage recorded"))
	} else {
		names := make([]string, 0, len(usage))
		for name := range usage {
			names = append(names, name)
		}
		sort.Slice(names, func(i, j int) bool {
			if usage[names[i]] != usage[names[j]] {
				return usage[names[i]] > usage[names[j]]
			}
			return names[i] < names[j]
		})
		for _, name := range names {
			muted(name, usage[name])
		}
	}

	if len(s.Summaries) > 0 {
		fmt.Println()
		fmt.Println(output.Section("Summaries"))
		fmt.Println()
		for _, sum := range s.Summaries {
			fmt.Printf(" %s\n", output.StyleMuted.Render(output.Truncate(sum.Summary, 100)))
		}
	}
	fmt.Println()
}

func renderToolExecutions(s *transcript.Session) {
	execs := s.ToolExecutions()

	fmt.Println(output.Section("Tool Executions"))
	fmt.Println()
	if len(execs) == 0 {
		fmt.Printf(" %s\n\n", output.StyleMuted.Render("No tool executions recorded"))
		return
	}

	tbl := output.NewTable("Tool", "Status", "Duration", "Output").AlignRight(3)
	for _, e := range execs {
		status := output.StyleMuted.Render("pending")
		switch {
		case e.Succeeded():
			status = output.StyleSuccess.Render("ok")
		case e.IsError:
			status = output.StyleError.Render("error")
		}
		tbl.AddRow(
			e.ToolName,
			status,
			output.FormatDuration(e.Duration),
			output.Truncate(strings.ReplaceAll(e.Output, "\n", " "), 48),
		)
	}
	tbl.Print()
	fmt.Println()
}

func renderTree(s *transcript.Session) {
	fmt.Println(output.Section("Conversation Tree"))
	fmt.Println()

	tree := s.ConversationTree()
	var walk func(uuid string, depth int)
	walk = func(uuid string, depth int) {
		m, ok := s.MessageByUUID(uuid)
		if !ok {
			return
		}
		fmt.Printf(" %s%s\n", strings.Repeat("  ", depth), messageSummary(m))
		for _, child := range tree.Children[uuid] {
			walk(child, depth+1)
		}
	}
	for _, root := range tree.Roots {
		walk(root, 0)
	}
	fmt.Println()
}

// messageSummary renders one tree node: role, sidechain marker, text or
// tool names.
func messageSummary(m *transcript.Message) string {
	role := output.StyleBold.Render(m.Role)
	if m.Role == transcript.RoleAssistant {
		role = output.StyleHeader.Render(m.Role)
	}

	marker := ""
	if m.IsSidechain {
		marker = output.StyleWarning.Render(" [sidechain]")
	}

	body := output.Truncate(strings.ReplaceAll(m.Text(), "\n", " "), 60)
	if tools := m.ToolNames(); len(tools) > 0 {
		if body != "" {
			body += " "
		}
		body += output.StyleMuted.Render("(" + strings.Join(tools, ", ") + ")")
	}
	if body == "" {
		body = output.StyleMuted.Render("(no text)")
	}

	return fmt.Sprintf("%s%s: %s", role, marker, body)
}

// sessionModels returns the distinct model names seen on assistant turns.
func sessionModels(s *transcript.Session) []string {
	seen := make(map[string]bool)
	var models []string
	for i := range s.Messages {
		m := s.Messages[i].Model
		if m != "" && !seen[m] {
			seen[m] = true
			models = append(models, m)
		}
	}
	sort.Strings(models)
	return models
}
