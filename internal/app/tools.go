package app

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/claudetrail/internal/output"
	"github.com/blackwell-systems/claudetrail/internal/project"
)

var toolsCmd = &cobra.Command{
	Use:   "tools <project-dir>",
	Short: "Aggregate tool usage across a project",
	Long: `Parse every transcript in a project directory and aggregate tool
executions: how often each tool ran, how many runs completed, and how
many errored.

Examples:
  claudetrail tools ~/.claude/projects/-home-dev-api
  claudetrail tools . --json`,
	Args: cobra.ExactArgs(1),
	RunE: runTools,
}

func init() {
	rootCmd.AddCommand(toolsCmd)
}

func runTools(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	loader := project.Loader{
		Parser:      parserFromConfig(cfg),
		Parallelism: cfg.Index.Parallelism,
	}
	p, err := loader.Load(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("loading project: %w", err)
	}

	stats := p.ToolStats()

	if flagJSON {
		return output.PrintJSON(stats)
	}

	if len(stats) == 0 {
		fmt.Println(output.StyleMuted.Render(" No tool executions recorded."))
		return nil
	}

	fmt.Println(output.Section("Tool Usage in " + p.Name))
	fmt.Println()

	tbl := output.NewTable("Tool", "Uses", "Results", "Errors", "Error %").
		AlignRight(2, 3, 4, 5)
	for _, st := range stats {
		errRate := fmt.Sprintf("%.0f%%", st.ErrorRate()*100)
		if st.Errors > 0 {
			errRate = output.StyleWarning.Render(errRate)
		}
		tbl.AddRow(st.Tool, st.Uses, st.Results, st.Errors, errRate)
	}
	tbl.Print()

	fmt.Println()
	fmt.Printf(" %s\n", output.StyleMuted.Render(fmt.Sprintf(
		"%d sessions parsed, %d tools seen", p.TotalSessions(), len(stats))))
	return nil
}
