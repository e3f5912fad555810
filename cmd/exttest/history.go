package main

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	clierrors "github.com/mesos-tools/exttest/internal/errors"
	"github.com/mesos-tools/exttest/internal/history"
	"github.com/mesos-tools/exttest/internal/output"
	"github.com/mesos-tools/exttest/internal/paths"
)

// RunDetail is the JSON document printed by 'exttest history show --json'.
type RunDetail struct {
	history.Run
	Results []history.Result `json:"results"`
}

func newHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect past external test runs",
		Long: `Every 'exttest run' is recorded under the state directory unless
--no-history is given. Use these commands to list, inspect, and prune runs.`,
	}

	cmd.AddCommand(newHistoryListCmd())
	cmd.AddCommand(newHistoryShowCmd())
	cmd.AddCommand(newHistoryPruneCmd())

	return cmd
}

func historyDir() (string, error) {
	dir, err := paths.HistoryDir()
	if err != nil {
		return "", clierrors.Wrap(clierrors.ExitConfig, "Cannot locate the run history", err)
	}

	return dir, nil
}

func newHistoryListCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recorded runs",
		Long:  `List recorded runs, newest first, with their pass, fail, and skip counts.`,
		Example: `  exttest history list
  exttest history list --limit 5 --json`,
		Args: noArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := output.FromContext(cmd.Context())

			if limit < 0 {
				return clierrors.New(clierrors.ExitUsage, "--limit must not be negative")
			}

			dir, err := historyDir()
			if err != nil {
				return err
			}

			runs, err := history.List(dir)
			if err != nil {
				return clierrors.Wrap(clierrors.ExitGeneral, "Cannot read the run history", err)
			}

			if limit > 0 && len(runs) > limit {
				runs = runs[:limit]
			}

			if out.JSON {
				if runs == nil {
					runs = []history.Run{}
				}

				return out.PrintJSON(runs)
			}

			if len(runs) == 0 {
				out.Info("No recorded runs")
				return nil
			}

			rows := make([][]string, 0, len(runs))

			for _, r := range runs {
				rows = append(rows, []string{
					r.RunID,
					r.StartedAt.Local().Format("2006-01-02 15:04:05"),
					runStatusCell(r),
					strconv.Itoa(r.Passed),
					strconv.Itoa(r.Failed),
					strconv.Itoa(r.Skipped),
				})
			}

			out.Table([]string{"RUN", "STARTED", "STATUS", "PASSED", "FAILED", "SKIPPED"}, rows, 2)

			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 0, "Show at most this many runs (0 shows all)")

	return cmd
}

func runStatusCell(r history.Run) string {
	switch {
	case r.FinishedAt == nil:
		return output.WarningMark + " unfinished"
	case r.Failed > 0:
		return output.XMark + " failed"
	default:
		return output.CheckMark + " passed"
	}
}

func newHistoryShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <run-id>",
		Short: "Show the results of a recorded run",
		Long: `Show every test of a recorded run with its result and duration. A run that
was interrupted shows the tests that finished before it stopped.`,
		Example: `  exttest history show 20260301-120000-ab12cd34
  exttest history show 20260301-120000-ab12cd34 --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := output.FromContext(cmd.Context())

			dir, err := historyDir()
			if err != nil {
				return err
			}

			run, err := history.Get(dir, args[0])
			if err != nil {
				return runLookupError(args[0], err)
			}

			results, err := history.ReadResults(dir, args[0])
			if err != nil {
				return runLookupError(args[0], err)
			}

			if out.JSON {
				if results == nil {
					results = []history.Result{}
				}

				return out.PrintJSON(RunDetail{Run: run, Results: results})
			}

			out.Print("Run %s\n", run.RunID)
			out.Muted("Started %s", run.StartedAt.Local().Format(time.RFC1123))

			if run.Manifest != "" {
				out.Muted("Manifest %s", run.Manifest)
			}

			out.Muted("Source %s", run.SourceDir)
			out.Println()

			if len(results) == 0 {
				out.Info("No results recorded")
				return nil
			}

			renderResults(out, results)
			renderCounts(out, run.Passed, run.Failed, run.Skipped)

			return nil
		},
	}
}

func runLookupError(runID string, err error) error {
	if errors.Is(err, history.ErrNotFound) {
		return clierrors.New(clierrors.ExitUsage, fmt.Sprintf("No recorded run %q", runID)).
			WithHint("Run 'exttest history list' to see recorded runs")
	}

	return clierrors.Wrap(clierrors.ExitGeneral, "Cannot read run "+runID, err)
}

func newHistoryPruneCmd() *cobra.Command {
	var olderThan string

	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete recorded runs older than a duration",
		Long: fmt.Sprintf(`Delete recorded runs that finished before the retention window.
The default window is %s.`, history.DefaultRetention()),
		Example: `  exttest history prune
  exttest history prune --older-than 168h`,
		Args: noArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := output.FromContext(cmd.Context())

			retention := history.DefaultRetention()

			if olderThan != "" {
				d, err := time.ParseDuration(olderThan)
				if err != nil || d < 0 {
					return clierrors.New(clierrors.ExitUsage, fmt.Sprintf("Invalid duration for --older-than: %q", olderThan)).
						WithHint("Use a Go duration such as 168h or 30m")
				}

				retention = d
			}

			dir, err := historyDir()
			if err != nil {
				return err
			}

			removed, err := history.PruneOlderThan(dir, time.Now().Add(-retention))
			if err != nil {
				return clierrors.Wrap(clierrors.ExitGeneral, "Cannot prune the run history", err)
			}

			out.Success("Removed %d run(s) older than %s", removed, retention)

			return nil
		},
	}

	cmd.Flags().StringVar(&olderThan, "older-than", "", "Override the retention window (example: 168h)")

	return cmd
}
