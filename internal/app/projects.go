package app

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/claudetrail/internal/output"
	"github.com/blackwell-systems/claudetrail/internal/project"
)

var projectsCmd = &cobra.Command{
	Use:   "projects [root]",
	Short: "List projects holding transcripts, with per-project totals",
	Long: `Walk a transcript root (default: <claude_home>/projects), load every
project found there, and list each with its session, message, and cost
totals. Transcripts that fail to parse are counted as warnings and do not
stop the listing.

Examples:
  claudetrail projects                  # projects under ~/.claude/projects
  claudetrail projects /backup/claude   # projects under another root`,
	Args: cobra.MaximumNArgs(1),
	RunE: runProjects,
}

func init() {
	rootCmd.AddCommand(projectsCmd)
}

// projectInfo is one loaded project directory.
type projectInfo struct {
	Name     string  `json:"name"`
	Path     string  `json:"path"`
	Sessions int     `json:"sessions"`
	Messages int     `json:"messages"`
	CostUSD  float64 `json:"cost_usd"`
	Warnings int     `json:"warnings,omitempty"`
}

func runProjects(cmd *cobra.Command, args []string) error {
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

	loader := project.Loader{
		Parser:      parserFromConfig(cfg),
		Parallelism: cfg.Index.Parallelism,
	}

	infos := make([]projectInfo, 0, len(dirs))
	var totalSessions int
	var totalCost float64
	for _, dir := range dirs {
		p, err := loader.Load(cmd.Context(), dir)
		if err != nil {
			return fmt.Errorf("loading %s: %w", dir, err)
		}

		if flagVerbose {
			for _, w := range p.Warnings {
				fmt.Fprintln(os.Stderr, output.StyleWarning.Render("warning: "+w))
			}
		}

		infos = append(infos, projectInfo{
			Name:     p.Name,
			Path:     p.Path,
			Sessions: p.TotalSessions(),
			Messages: p.TotalMessages(),
			CostUSD:  p.TotalCost(),
			Warnings: len(p.Warnings),
		})
		totalSessions += p.TotalSessions()
		totalCost += p.TotalCost()
	}

	if flagJSON {
		return output.PrintJSON(infos)
	}

	if len(infos) == 0 {
		fmt.Println(output.StyleMuted.Render(" No transcripts found under " + root))
		return nil
	}

	fmt.Println(output.Section("Projects"))
	fmt.Println()

	tbl := output.NewTable("Project", "Sessions", "Messages", "Cost", "Path").AlignRight(2, 3, 4)
	for _, p := range infos {
		name := p.Name
		if p.Warnings > 0 {
			name = output.StyleWarning.Render(name + " !")
		}
		tbl.AddRow(name, p.Sessions, p.Messages, output.FormatCost(p.CostUSD), p.Path)
	}
	tbl.Print()

	fmt.Println()
	fmt.Printf(" %s\n", output.StyleMuted.Render(fmt.Sprintf(
		"%d projects, %d sessions, %s total", len(infos), totalSessions, output.FormatCost(totalCost))))
	return nil
}
