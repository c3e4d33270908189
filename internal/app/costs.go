package app

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/claudetrail/internal/output"
	"github.com/blackwell-systems/claudetrail/internal/project"
)

var costsFlagTop int

var costsCmd = &cobra.Command{
	Use:   "costs <project-dir>",
	Short: "Break down spend by day and session",
	Long: `Parse every transcript in a project directory and show where the money
went: cost per calendar day and the most expensive sessions.

Examples:
  claudetrail costs ~/.claude/projects/-home-dev-api
  claudetrail costs . --top 10`,
	Args: cobra.ExactArgs(1),
	RunE: runCosts,
}

func init() {
	costsCmd.Flags().IntVar(&costsFlagTop, "top", 5, "Number of most expensive sessions to show")
	rootCmd.AddCommand(costsCmd)
}

// costReport is the JSON shape of the costs command.
type costReport struct {
	Project     string             `json:"project"`
	TotalUSD    float64            `json:"total_usd"`
	Daily       map[string]float64 `json:"daily"`
	TopSessions []topSession       `json:"top_sessions"`
}

type topSession struct {
	SessionID string  `json:"session_id"`
	StartTime string  `json:"start_time,omitempty"`
	CostUSD   float64 `json:"cost_usd"`
}

func runCosts(cmd *cobra.Command, args []string) error {
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

	daily := p.DailyCosts()
	top := p.MostExpensiveSessions(costsFlagTop)

	if flagJSON {
		report := costReport{
			Project:  p.Name,
			TotalUSD: p.TotalCost(),
			Daily:    daily,
		}
		for _, s := range top {
			report.TopSessions = append(report.TopSessions, topSession{
				SessionID: s.SessionID,
				StartTime: output.FormatTime(s.StartTime()),
				CostUSD:   s.TotalCost(),
			})
		}
		return output.PrintJSON(report)
	}

	if p.TotalSessions() == 0 {
		fmt.Println(output.StyleMuted.Render(" No sessions found."))
		return nil
	}

	fmt.Println(output.Section("Daily Costs in " + p.Name))
	fmt.Println()

	days := make([]string, 0, len(daily))
	maxCost := 0.0
	for day, cost := range daily {
		days = append(days, day)
		if cost > maxCost {
			maxCost = cost
		}
	}
	sort.Strings(days)

	if len(days) == 0 {
		fmt.Printf(" %s\n", output.StyleMuted.Render("No dated messages carry costs"))
	}
	for _, day := range days {
		fmt.Printf(" %s  %s %s\n",
			output.StyleBold.Render(day),
			output.Bar(daily[day], maxCost, 24),
			output.FormatCost(daily[day]))
	}

	fmt.Println()
	fmt.Println(output.Section("Most Expensive Sessions"))
	fmt.Println()

	tbl := output.NewTable("Session", "Start", "Cost").AlignRight(3)
	for _, s := range top {
		tbl.AddRow(
			output.Truncate(s.SessionID, 12),
			output.FormatTime(s.StartTime()),
			output.FormatCost(s.TotalCost()),
		)
	}
	tbl.Print()

	fmt.Println()
	fmt.Printf(" %s\n", output.StyleBold.Render("Total: "+output.FormatCost(p.TotalCost())))
	return nil
}
