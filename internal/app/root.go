// Package app contains the Cobra command tree for claudetrail.
package app

import (
	"fmt"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/blackwell-systems/claudetrail/internal/config"
	"github.com/blackwell-systems/claudetrail/internal/output"
	"github.com/blackwell-systems/claudetrail/internal/transcript"
)

var appVersion = "dev"

// SetVersion sets the application version (called from main with ldflags value).
func SetVersion(v string) {
	appVersion = v
	rootCmd.Version = v
}

var (
	flagNoColor bool
	flagJSON    bool
	flagVerbose bool
	flagConfig  string
)

var rootCmd = &cobra.Command{
	Use:   "claudetrail",
	Short: "Transcript analytics and conversation tracking for Claude Code",
	Long: `claudetrail reads the JSONL transcripts Claude Code writes under
~/.claude/projects, turns them into typed sessions with derived cost,
tool, and timing statistics, and records what each agent invocation
changed in a workspace.

Run 'claudetrail' with no arguments to see the available subcommands.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if flagNoColor || !stdoutIsTerminal() {
			output.SetNoColor(true)
		}
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Println("claudetrail", appVersion)
		fmt.Println()
		fmt.Println("Use a subcommand:")
		fmt.Println("  projects  List project directories holding transcripts")
		fmt.Println("  sessions  List parsed sessions in a project directory")
		fmt.Println("  show      Inspect one transcript in detail")
		fmt.Println("  tools     Aggregate tool usage across a project")
		fmt.Println("  costs     Break down spend by day and session")
		fmt.Println("  run       Send a prompt to the claude CLI and record what changed")
		fmt.Println("  history   Browse recorded transitions for a workspace")
		fmt.Println("  index     Build the SQLite session index")
		fmt.Println("  stats     Query the session index")
		fmt.Println("  watch     Follow a project directory for live session updates")
		return nil
	},
}

// Execute is the entry point called from main.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// stdoutIsTerminal reports whether stdout is attached to a terminal, so
// piped output stays free of ANSI sequences.
func stdoutIsTerminal() bool {
	fd := os.Stdout.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// loadConfig loads configuration honoring the --config flag.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if !cfg.Output.Color {
		output.SetNoColor(true)
	}
	width := cfg.Output.Width
	if width <= 0 && stdoutIsTerminal() {
		width = output.TerminalWidth(0)
	}
	output.SetDefaultWidth(width)
	return cfg, nil
}

// parserFromConfig builds a transcript parser from configuration.
func parserFromConfig(cfg *config.Config) transcript.Parser {
	return transcript.Parser{
		MixedSessionPolicy: transcript.MixedSessionPolicy(cfg.Parser.MixedSessionPolicy),
		MaxLineBytes:       cfg.Parser.MaxLineBytes,
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "Config file path (default: ~/.config/claudetrail/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&flagNoColor, "no-color", false, "Disable colored output")
	rootCmd.PersistentFlags().BoolVar(&flagJSON, "json", false, "Output as JSON")
	rootCmd.PersistentFlags().BoolVar(&flagVerbose, "verbose", false, "Enable verbose output")
}
