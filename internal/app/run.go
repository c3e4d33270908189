package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/claudetrail/internal/agent"
	"github.com/blackwell-systems/claudetrail/internal/output"
	"github.com/blackwell-systems/claudetrail/internal/workspace"
)

var (
	runFlagWorkspace       string
	runFlagModel           string
	runFlagTimeout         int
	runFlagRecord          bool
	runFlagSave            string
	runFlagLoad            string
	runFlagResume          string
	runFlagAllowedTools    string
	runFlagDisallowedTools string
	runFlagSkipPermissions bool
)

var runCmd = &cobra.Command{
	Use:   "run <prompt>...",
	Short: "Send a prompt to the claude CLI and record what changed",
	Long: `Snapshot the workspace, invoke the claude CLI with the prompt, snapshot
again, and report the transition: the agent's response, its cost, and
every file the turn created, modified, or deleted.

Consecutive sends resume the same underlying session. Use --save to keep
the conversation on disk, --load to continue it later, or --resume to pick
up an existing Claude session by id.

Examples:
  claudetrail run "add input validation"
  claudetrail run --workspace ~/src/api --model sonnet "fix the flaky test"
  claudetrail run --record --save conv.json "refactor the parser"
  claudetrail run --load conv.json "now add tests for it"
  claudetrail run --resume 3f9c1a8e "keep going"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runRun,
}

func init() {
	runCmd.Flags().StringVar(&runFlagWorkspace, "workspace", ".", "Workspace directory the agent operates on")
	runCmd.Flags().StringVar(&runFlagModel, "model", "", "Model to use (overrides config)")
	runCmd.Flags().IntVar(&runFlagTimeout, "timeout", 0, "Invocation timeout in seconds (0 = config default)")
	runCmd.Flags().BoolVar(&runFlagRecord, "record", false, "Append the transition to the workspace recording")
	runCmd.Flags().StringVar(&runFlagSave, "save", "", "Save the conversation to this file afterwards")
	runCmd.Flags().StringVar(&runFlagLoad, "load", "", "Continue a previously saved conversation")
	runCmd.Flags().StringVar(&runFlagResume, "resume", "", "Resume an existing Claude session by id")
	runCmd.Flags().StringVar(&runFlagAllowedTools, "allowed-tools", "", "Comma-separated tool allowlist (overrides config)")
	runCmd.Flags().StringVar(&runFlagDisallowedTools, "disallowed-tools", "", "Comma-separated tool denylist (overrides config)")
	runCmd.Flags().BoolVar(&runFlagSkipPermissions, "skip-permissions", false, "Pass --dangerously-skip-permissions to the agent")
	runCmd.MarkFlagsMutuallyExclusive("load", "resume")
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ws, err := workspace.NewWithConfig(runFlagWorkspace, workspace.Config{
		Patterns:   cfg.Workspace.Patterns,
		ClaudeHome: cfg.ClaudeHome,
		Parser:     parserFromConfig(cfg),
	})
	if err != nil {
		return fmt.Errorf("opening workspace: %w", err)
	}

	runner, err := agent.NewCLIRunner(ws.Root(), cfg.Agent.Binary)
	if err != nil {
		return err
	}
	runner.Model = cfg.Agent.Model
	if runFlagModel != "" {
		runner.Model = runFlagModel
	}
	runner.AllowedTools = cfg.Agent.AllowedTools
	if runFlagAllowedTools != "" {
		runner.AllowedTools = runFlagAllowedTools
	}
	runner.DisallowedTools = cfg.Agent.DisallowedTools
	if runFlagDisallowedTools != "" {
		runner.DisallowedTools = runFlagDisallowedTools
	}
	runner.SkipPermissions = cfg.Agent.SkipPermissions || runFlagSkipPermissions

	opts := agent.ConversationOptions{
		Record:          runFlagRecord,
		SettleDelay:     time.Duration(cfg.Workspace.SettleDelayMS) * time.Millisecond,
		ResumeSessionID: runFlagResume,
	}
	var conv *agent.Conversation
	if runFlagLoad != "" {
		conv, err = agent.LoadConversation(runFlagLoad, ws, runner, opts)
		if err != nil {
			return fmt.Errorf("loading conversation: %w", err)
		}
	} else {
		conv, err = agent.NewConversationWithOptions(ws, runner, opts)
		if err != nil {
			return fmt.Errorf("starting conversation: %w", err)
		}
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, shutdownSignals...)
	defer signal.Stop(sigCh)
	go func() {
		<-sigCh
		cancel()
	}()

	timeout := runFlagTimeout
	if timeout <= 0 {
		timeout = cfg.Agent.TimeoutSeconds
	}
	if timeout > 0 {
		var tcancel context.CancelFunc
		ctx, tcancel = context.WithTimeout(ctx, time.Duration(timeout)*time.Second)
		defer tcancel()
	}

	tr, err := conv.Send(ctx, strings.Join(args, " "))
	if err != nil {
		return fmt.Errorf("agent run: %w", err)
	}

	// A loaded conversation persists back to its file unless --save redirects.
	savePath := runFlagSave
	if savePath == "" && runFlagLoad != "" {
		savePath = runFlagLoad
	}
	if savePath != "" {
		if err := conv.Save(savePath); err != nil {
			return fmt.Errorf("saving conversation: %w", err)
		}
	}

	if flagJSON {
		return output.PrintJSON(tr)
	}

	renderTransition(conv, tr, savePath)
	return nil
}

func renderTransition(conv *agent.Conversation, tr *agent.Transition, savePath string) {
	fmt.Println(output.Section("Response"))
	fmt.Println()
	fmt.Println(tr.Execution.Response)

	label := func(l string, v any) {
		fmt.Printf(" %s %s\n", output.StyleLabel.Render(l), output.StyleBold.Render(fmt.Sprint(v)))
	}
	muted := func(l string, v any) {
		fmt.Printf(" %s %s\n", output.StyleLabel.Render(l), output.StyleMuted.Render(fmt.Sprint(v)))
	}

	fmt.Println(output.Section("Turn"))
	fmt.Println()
	label("Session", tr.Execution.SessionID)
	muted("Model", tr.Execution.Model)
	label("Cost", output.FormatCost(tr.Execution.CostUSD))
	muted("Duration", output.FormatDuration(time.Duration(tr.Execution.DurationMS)*time.Millisecond))
	muted("Conversation", fmt.Sprintf("%d turns · %s total", len(conv.History()), output.FormatCost(conv.TotalCost())))
	if tools := tr.ToolsUsed(); len(tools) > 0 {
		muted("Tools", strings.Join(tools, ", "))
	}
	if tr.HasToolErrors() {
		fmt.Printf(" %s\n", output.StyleWarning.Render("Some tool executions reported errors"))
	}

	created, modified, deleted := tr.FilesCreated(), tr.FilesModified(), tr.FilesDeleted()
	if len(created)+len(modified)+len(deleted) > 0 {
		fmt.Println(output.Section("Files"))
		fmt.Println()
		for _, f := range created {
			fmt.Printf("   %s %s\n", output.StyleSuccess.Render("+"), f)
		}
		for _, f := range modified {
			fmt.Printf("   %s %s\n", output.StyleWarning.Render("~"), f)
		}
		for _, f := range deleted {
			fmt.Printf("   %s %s\n", output.StyleError.Render("-"), f)
		}
	}

	fmt.Println()
	if conv.Recording() {
		fmt.Printf(" %s\n", output.StyleMuted.Render("Transition recorded under "+conv.Recorder().Dir()))
	}
	if savePath != "" {
		fmt.Printf(" %s\n", output.StyleMuted.Render("Conversation saved to "+savePath))
	}
}
