package app

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/claudetrail/internal/output"
	"github.com/blackwell-systems/claudetrail/internal/project"
	"github.com/blackwell-systems/claudetrail/internal/store"
)

var indexCmd = &cobra.Command{
	Use:   "index [root]",
	Short: "Build the SQLite session index",
	Long: `Parse every transcript under a root (default: <claude_home>/projects)
and upsert the flattened sessions into the SQLite index, so 'claudetrail
stats' can answer cross-project questions without re-parsing.

Reindexing is idempotent: existing sessions are updated in place.

Examples:
  claudetrail index                     # index ~/.claude/projects
  claudetrail index /backup/claude      # index another root`,
	Args: cobra.MaximumNArgs(1),
	RunE: runIndex,
}

func init() {
	rootCmd.AddCommand(indexCmd)
}

// indexReport summarizes one indexing pass.
type indexReport struct {
	Projects int    `json:"projects"`
	Sessions int    `json:"sessions"`
	Failures int    `json:"failures"`
	DB       string `json:"db"`
}

func runIndex(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	root := filepath.Join(cfg.ClaudeHome, "projects")
	if len(args) == 1 {
		root = args[0]
	}

	dirs, err := project.FindProjects(root)
	if err != nil {
		return fmt.Errorf("discovering projects: %w", err)
	}

	db, err := store.Open(cfg.Index.DB)
	if err != nil {
		return fmt.Errorf("opening index: %w", err)
	}
	defer db.Close()

	loader := project.Loader{
		Parser:      parserFromConfig(cfg),
		Parallelism: cfg.Index.Parallelism,
	}

	report := indexReport{DB: cfg.Index.DB}
	for _, dir := range dirs {
		p, err := loader.Load(cmd.Context(), dir)
		if err != nil {
			return fmt.Errorf("loading %s: %w", dir, err)
		}

		indexed := 0
		for _, s := range p.Sessions {
			// Summary-only transcripts carry no session id.
			if s.SessionID == "" {
				continue
			}
			if err := db.UpsertSession(store.NewSessionRow(s, p.Path, p.Name)); err != nil {
				return fmt.Errorf("indexing session %s: %w", s.SessionID, err)
			}
			indexed++
		}

		report.Projects++
		report.Sessions += indexed
		report.Failures += len(p.Warnings)

		if flagVerbose {
			for _, w := range p.Warnings {
				fmt.Fprintln(os.Stderr, output.StyleWarning.Render("warning: "+w))
			}
		}
		if !flagJSON {
			fmt.Printf(" %s %s\n",
				output.StyleSuccess.Render(fmt.Sprintf("%4d", indexed)),
				output.StyleMuted.Render(p.Name))
		}
	}

	if flagJSON {
		return output.PrintJSON(report)
	}

	fmt.Println()
	fmt.Printf(" %s\n", output.StyleBold.Render(fmt.Sprintf(
		"Indexed %d sessions across %d projects into %s",
		report.Sessions, report.Projects, report.DB)))
	if report.Failures > 0 {
		fmt.Printf(" %s\n", output.StyleWarning.Render(fmt.Sprintf(
			"%d transcripts failed to parse (run with --verbose for details)", report.Failures)))
	}
	return nil
}
