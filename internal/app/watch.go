package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/claudetrail/internal/output"
	"github.com/blackwell-systems/claudetrail/internal/watch"
)

var (
	watchFlagInterval string
	watchFlagNotify   bool
)

var watchCmd = &cobra.Command{
	Use:   "watch <project-dir>",
	Short: "Follow a project directory for live session updates",
	Long: `Poll a project directory and report every transcript that grows: which
session changed, how many messages it gained, and what it has cost so
far. Stop with ctrl-c.

Examples:
  claudetrail watch ~/.claude/projects/-home-dev-api
  claudetrail watch . --interval 5s`,
	Args: cobra.ExactArgs(1),
	RunE: runWatchCmd,
}

func init() {
	watchCmd.Flags().StringVar(&watchFlagInterval, "interval", "2s", "Poll interval as a duration string (e.g. 2s, 500ms)")
	watchCmd.Flags().BoolVar(&watchFlagNotify, "notify", false, "Send desktop notifications for updates")
	rootCmd.AddCommand(watchCmd)
}

// watchEvent is the JSON shape of one update in --json mode, emitted as a
// line-delimited stream.
type watchEvent struct {
	Time          time.Time `json:"time"`
	SessionID     string    `json:"session_id"`
	Path          string    `json:"path"`
	NewMessages   int       `json:"new_messages"`
	TotalMessages int       `json:"total_messages"`
	TotalCostUSD  float64   `json:"total_cost_usd"`
	First         bool      `json:"first,omitempty"`
}

func runWatchCmd(cmd *cobra.Command, args []string) error {
	if _, err := loadConfig(); err != nil {
		return err
	}

	interval, err := time.ParseDuration(watchFlagInterval)
	if err != nil {
		return fmt.Errorf("invalid interval %q: %w", watchFlagInterval, err)
	}
	if interval < 500*time.Millisecond {
		return fmt.Errorf("interval must be at least 500ms, got %s", interval)
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

	if !flagJSON {
		fmt.Printf("claudetrail watching %s (checking every %s)\n", args[0], interval)
	}

	enc := json.NewEncoder(os.Stdout)
	updateFn := func(u watch.Update) {
		if watchFlagNotify {
			_ = watch.Notify(
				output.Truncate(u.Session.SessionID, 12),
				fmt.Sprintf("+%d messages · %s", u.NewMessages, output.FormatCost(u.Session.TotalCost())),
			)
		}
		if flagJSON {
			_ = enc.Encode(watchEvent{
				Time:          u.Time,
				SessionID:     u.Session.SessionID,
				Path:          u.Path,
				NewMessages:   u.NewMessages,
				TotalMessages: u.Session.Len(),
				TotalCostUSD:  u.Session.TotalCost(),
				First:         u.First,
			})
			return
		}
		printUpdate(u)
	}

	w := watch.New(args[0], interval, updateFn)
	err = w.Run(ctx)
	if errors.Is(err, context.Canceled) {
		if !flagJSON {
			fmt.Println("\nStopped.")
		}
		return nil
	}
	return err
}

// printUpdate formats and prints one session update to the terminal.
func printUpdate(u watch.Update) {
	timestamp := u.Time.Format("15:04:05")
	id := output.StyleBold.Render(output.Truncate(u.Session.SessionID, 12))
	delta := output.StyleSuccess.Render(fmt.Sprintf("+%d messages", u.NewMessages))
	if u.First {
		delta = output.StyleSuccess.Render("new session") + " " +
			output.StyleMuted.Render(fmt.Sprintf("(%d messages)", u.NewMessages))
	}
	fmt.Printf("[%s] %s %s · %d total · %s\n",
		timestamp, id, delta, u.Session.Len(),
		output.FormatCost(u.Session.TotalCost()))
}
