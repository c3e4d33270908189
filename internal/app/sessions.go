package app

import (
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/claudetrail/internal/output"
	"github.com/blackwell-systems/claudetrail/internal/project"
	"github.com/blackwell-systems/claudetrail/internal/transcript"
)

var (
	sessionsFlagSort  string
	sessionsFlagDays  int
	sessionsFlagLimit int
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions <project-dir>",
	Short: "List parsed sessions in a project directory",
	Long: `Parse every transcript in a project directory and list the sessions
with their derived statistics.

Examples:
  claudetrail sessions ~/.claude/projects/-home-dev-api
  claudetrail sessions . --sort cost            # most expensive first
  claudetrail sessions . --days 7 --limit 5     # last 7 days, top 5`,
	Args: cobra.ExactArgs(1),
	RunE: runSessions,
}

func init() {
	sessionsCmd.Flags().StringVar(&sessionsFlagSort, "sort", "recent", "Sort by: recent, cost, duration, messages")
	sessionsCmd.Flags().IntVar(&sessionsFlagDays, "days", 0, "Only sessions from the last N days (0 = all)")
	sessionsCmd.Flags().IntVar(&sessionsFlagLimit, "limit", 0, "Maximum sessions to display (0 = all)")
	rootCmd.AddCommand(sessionsCmd)
}

func runSessions(cmd *cobra.Command, args []string) error {
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

	sessions := p.Sessions
	if sessionsFlagDays > 0 {
		cutoff := time.Now().AddDate(0, 0, -sessionsFlagDays)
		sessions = p.FilterSessions(func(s *transcript.Session) bool {
			return s.StartTime().After(cutoff)
		})
	}

	switch sessionsFlagSort {
	case "cost":
		sort.SliceStable(sessions, func(i, j int) bool {
			return sessions[i].TotalCost() > sessions[j].TotalCost()
		})
	case "duration":
		sort.SliceStable(sessions, func(i, j int) bool {
			return sessions[i].Duration() > sessions[j].Duration()
		})
	case "messages":
		sort.SliceStable(sessions, func(i, j int) bool {
			return sessions[i].Len() > sessions[j].Len()
		})
	default: // "recent"
		sort.SliceStable(sessions, func(i, j int) bool {
			return sessions[i].StartTime().After(sessions[j].StartTime())
		})
	}

	if sessionsFlagLimit > 0 && len(sessions) > sessionsFlagLimit {
		sessions = sessions[:sessionsFlagLimit]
	}

	if flagJSON {
		return output.PrintJSON(sessions)
	}

	if flagVerbose {
		for _, w := range p.Warnings {
			fmt.Fprintln(os.Stderr, output.StyleWarning.Render("warning: "+w))
		}
	}

	if len(sessions) == 0 {
		fmt.Println(output.StyleMuted.Render(" No sessions found."))
		return nil
	}

	renderSessions(p, sessions)
	return nil
}

func renderSessions(p *project.Project, sessions []*transcript.Session) {
	fmt.Println(output.Section("Sessions in " + p.Name))
	fmt.Println()

	tbl := output.NewTable("Session", "Start", "Duration", "Msgs", "Tools", "Cost").
		AlignRight(4, 5, 6)

	for _, s := range sessions {
		tools := 0
		for _, n := range s.ToolUsageSummary() {
			tools += n
		}
		tbl.AddRow(
			output.Truncate(s.SessionID, 12),
			output.FormatTime(s.StartTime()),
			output.FormatDuration(s.Duration()),
			s.Len(),
			tools,
			output.FormatCost(s.TotalCost()),
		)
	}
	tbl.Print()

	fmt.Println()
	fmt.Printf(" %s\n", output.StyleBold.Render(fmt.Sprintf(
		"Totals: %d sessions · %d messages · %s · %s",
		p.TotalSessions(), p.TotalMessages(),
		output.FormatDuration(p.TotalDuration()), output.FormatCost(p.TotalCost()),
	)))
	if len(p.Warnings) > 0 {
		fmt.Printf(" %s\n", output.StyleWarning.Render(fmt.Sprintf(
			"%d transcripts skipped (run with --verbose for details)", len(p.Warnings))))
	}
	fmt.Println()
	fmt.Printf(" %s\n", output.StyleMuted.Render("Use --sort cost|duration|messages to reorder, --json for machine output"))
	fmt.Printf(" %s\n", output.StyleMuted.Render("Use claudetrail show <transcript> to inspect one session"))
}
