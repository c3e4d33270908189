package app

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/claudetrail/internal/output"
	"github.com/blackwell-systems/claudetrail/internal/store"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Query the session index",
	Long: `Answer cross-project questions from the SQLite index built by
'claudetrail index': totals, spend per project, and tool usage across
everything you have indexed.`,
	Args: cobra.NoArgs,
	RunE: runStats,
}

func init() {
	rootCmd.AddCommand(statsCmd)
}

// statsReport is the JSON shape of the stats command.
type statsReport struct {
	Totals   store.Totals           `json:"totals"`
	Projects []store.ProjectSummary `json:"projects"`
	Tools    []store.ToolTotal      `json:"tools"`
}

func runStats(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	db, err := store.Open(cfg.Index.DB)
	if err != nil {
		return fmt.Errorf("opening index: %w", err)
	}
	defer db.Close()

	totals, err := db.IndexTotals()
	if err != nil {
		return fmt.Errorf("reading totals: %w", err)
	}
	projects, err := db.ProjectSummaries()
	if err != nil {
		return fmt.Errorf("reading project summaries: %w", err)
	}
	tools, err := db.ToolTotals()
	if err != nil {
		return fmt.Errorf("reading tool totals: %w", err)
	}

	if flagJSON {
		return output.PrintJSON(statsReport{Totals: totals, Projects: projects, Tools: tools})
	}

	if totals.Sessions == 0 {
		fmt.Println(output.StyleMuted.Render(" Index is empty. Run 'claudetrail index' first."))
		return nil
	}

	fmt.Println(output.Section("Index Totals"))
	fmt.Println()
	fmt.Printf(" %s\n", output.KeyValue("Sessions", totals.Sessions))
	fmt.Printf(" %s\n", output.KeyValue("Messages", totals.Messages))
	fmt.Printf(" %s\n", output.KeyValue("Total cost", output.FormatCost(totals.CostUSD)))

	fmt.Println(output.Section("Projects by Spend"))
	fmt.Println()
	ptbl := output.NewTable("Project", "Sessions", "Messages", "Cost", "Last Activity").
		AlignRight(2, 3, 4)
	for _, p := range projects {
		ptbl.AddRow(
			p.ProjectName,
			p.Sessions,
			p.Messages,
			output.FormatCost(p.CostUSD),
			output.FormatTime(p.LastActivity),
		)
	}
	ptbl.Print()

	fmt.Println(output.Section("Tools Across Projects"))
	fmt.Println()
	ttbl := output.NewTable("Tool", "Count").AlignRight(2)
	for _, t := range tools {
		ttbl.AddRow(t.Tool, t.Count)
	}
	ttbl.Print()

	fmt.Println()
	fmt.Printf(" %s\n", output.StyleMuted.Render("Index: "+cfg.Index.DB))
	return nil
}
