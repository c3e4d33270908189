package app

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/blackwell-systems/claudetrail/internal/agent"
	"github.com/blackwell-systems/claudetrail/internal/output"
	"github.com/blackwell-systems/claudetrail/internal/workspace"
)

var (
	historyFlagWorkspace string
	historyFlagLimit     int
	historyFlagID        string
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Browse recorded transitions for a workspace",
	Long: `List the transitions recorded for a workspace by 'claudetrail run
--record', newest first, or inspect a single transition by id.

Examples:
  claudetrail history                          # latest transitions here
  claudetrail history --workspace ~/src/api    # another workspace
  claudetrail history --id 8f14e45f-...        # one transition in full`,
	Args: cobra.NoArgs,
	RunE: runHistory,
}

func init() {
	historyCmd.Flags().StringVar(&historyFlagWorkspace, "workspace", ".", "Workspace directory to read recordings from")
	historyCmd.Flags().IntVar(&historyFlagLimit, "limit", 10, "Maximum transitions to list (0 = all)")
	historyCmd.Flags().StringVar(&historyFlagID, "id", "", "Show a single transition by id")
	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ws, err := workspace.NewWithConfig(historyFlagWorkspace, workspace.Config{
		ClaudeHome: cfg.ClaudeHome,
		Parser:     parserFromConfig(cfg),
	})
	if err != nil {
		return fmt.Errorf("opening workspace: %w", err)
	}

	rec := agent.OpenRecorder(ws.Root())

	if historyFlagID != "" {
		id, err := uuid.Parse(historyFlagID)
		if err != nil {
			return fmt.Errorf("invalid transition id %q: %w", historyFlagID, err)
		}
		tr, err := rec.Find(id)
		if err != nil {
			return err
		}
		if flagJSON {
			return output.PrintJSON(tr)
		}
		renderTransitionDetail(tr)
		return nil
	}

	transitions, err := rec.Recent(historyFlagLimit)
	if err != nil {
		return fmt.Errorf("reading recordings: %w", err)
	}

	if flagJSON {
		return output.PrintJSON(transitions)
	}

	if len(transitions) == 0 {
		fmt.Println(output.StyleMuted.Render(" No transitions recorded. Run with 'claudetrail run --record'."))
		return nil
	}

	fmt.Println(output.Section("Transitions in " + ws.Name()))
	fmt.Println()

	tbl := output.NewTable("Recorded", "ID", "Prompt", "Cost", "Files", "Tools").
		AlignRight(4, 5, 6)
	for _, tr := range transitions {
		tbl.AddRow(
			output.FormatTime(tr.RecordedAt),
			output.Truncate(tr.ID.String(), 8),
			output.Truncate(strings.ReplaceAll(tr.Prompt.Text, "\n", " "), 40),
			output.FormatCost(tr.Execution.CostUSD),
			len(tr.AllFilesChanged()),
			len(tr.ToolsUsed()),
		)
	}
	tbl.Print()

	fmt.Println()
	fmt.Printf(" %s\n", output.StyleMuted.Render("Use --id <uuid> to inspect one transition, --json for machine output"))
	return nil
}

func renderTransitionDetail(tr *agent.Transition) {
	label := func(l string, v any) {
		fmt.Printf(" %s %s\n", output.StyleLabel.Render(l), output.StyleBold.Render(fmt.Sprint(v)))
	}
	muted := func(l string, v any) {
		fmt.Printf(" %s %s\n", output.StyleLabel.Render(l), output.StyleMuted.Render(fmt.Sprint(v)))
	}

	fmt.Println(output.Section("Transition"))
	fmt.Println()
	label("ID", tr.ID)
	muted("Recorded", output.FormatTime(tr.RecordedAt))
	if convID, ok := tr.Metadata["conversation_id"]; ok {
		muted("Conversation", convID)
	}

	fmt.Println(output.Section("Prompt"))
	fmt.Println()
	fmt.Printf(" %s\n", tr.Prompt.Text)
	if tr.Prompt.ResumeSessionID != "" {
		fmt.Println()
		muted("Resumed session", tr.Prompt.ResumeSessionID)
	}

	fmt.Println(output.Section("Execution"))
	fmt.Println()
	label("Session", tr.Execution.SessionID)
	muted("Model", tr.Execution.Model)
	label("Cost", output.FormatCost(tr.Execution.CostUSD))
	muted("Duration", output.FormatDuration(time.Duration(tr.Execution.DurationMS)*time.Millisecond))
	muted("New messages", len(tr.NewMessages()))
	if tools := tr.ToolsUsed(); len(tools) > 0 {
		muted("Tools", strings.Join(tools, ", "))
	}
	if tr.HasToolErrors() {
		fmt.Printf(" %s\n", output.StyleWarning.Render("Some tool executions reported errors"))
	}

	created, modified, deleted := tr.FilesCreated(), tr.FilesModified(), tr.FilesDeleted()
	fmt.Println(output.Section("Files"))
	fmt.Println()
	if len(created)+len(modified)+len(deleted) == 0 {
		fmt.Printf(" %s\n", output.StyleMuted.Render("No tracked files changed"))
	}
	for _, f := range created {
		fmt.Printf("   %s %s\n", output.StyleSuccess.Render("+"), f)
	}
	for _, f := range modified {
		fmt.Printf("   %s %s\n", output.StyleWarning.Render("~"), f)
	}
	for _, f := range deleted {
		fmt.Printf("   %s %s\n", output.StyleError.Render("-"), f)
	}

	fmt.Println(output.Section("Response"))
	fmt.Println()
	fmt.Println(tr.Execution.Response)
	fmt.Println()
}
