package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	clierrors "github.com/mesos-tools/exttest/internal/errors"
	"github.com/mesos-tools/exttest/internal/external"
	"github.com/mesos-tools/exttest/internal/history"
	"github.com/mesos-tools/exttest/internal/manifest"
	"github.com/mesos-tools/exttest/internal/observability"
	"github.com/mesos-tools/exttest/internal/output"
	"github.com/mesos-tools/exttest/internal/paths"
	"github.com/mesos-tools/exttest/internal/spawn"
)

// RunReport is the JSON document printed by 'exttest run --json'.
type RunReport struct {
	RunID   string           `json:"run_id,omitempty"`
	Passed  int              `json:"passed"`
	Failed  int              `json:"failed"`
	Skipped int              `json:"skipped"`
	Results []history.Result `json:"results"`
}

// selection is a set of external tests run together, once or on every
// change with --watch.
type selection struct {
	settings     external.Settings
	entries      []manifest.Entry
	skipDisabled bool
	manifestPath string

	// historyDir is where runs are recorded; empty disables recording.
	historyDir string
}

func newRunCmd() *cobra.Command {
	var (
		manifestPath    string
		alsoRunDisabled bool
		watchMode       bool
		noHistory       bool
	)

	cmd := &cobra.Command{
		Use:   "run [<suite> <test>]",
		Short: "Run external tests",
		Long: `Run one external test, or every test listed in a manifest, one after another.
Each script runs as <source-dir>/src/tests/external/<suite>/<test>.sh in a fresh
workspace under --tmp-root. A DISABLED_ prefix on the test name is dropped when
locating the script. Manifest tests carrying the prefix are skipped unless
--also-run-disabled is given. The command exits with status 7 if any test fails.

With --watch, the selection runs again whenever one of its scripts or the
manifest changes, until interrupted. The exit status is that of the last run.`,
		Example: `  exttest run containerizer basic
  exttest run containerizer DISABLED_slow --verbose
  exttest run --manifest tests.yaml --json
  exttest run -m tests.toml --also-run-disabled
  exttest run -m tests.yaml --watch`,
		Args: func(cmd *cobra.Command, args []string) error {
			switch {
			case len(args) == 2 && manifestPath == "":
				return nil
			case len(args) == 0 && manifestPath != "":
				return nil
			case len(args) == 0:
				return clierrors.TestSelectionRequired(cmd.CommandPath())
			default:
				return &clierrors.CLIError{
					Message: fmt.Sprintf("'%s' takes a suite and a test, or --manifest, but not both", cmd.CommandPath()),
					Hint:    fmt.Sprintf("Run '%s --help' for usage", cmd.CommandPath()),
					Code:    clierrors.ExitUsage,
				}
			}
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			out := output.FromContext(cmd.Context())

			if watchMode && out.JSON {
				return clierrors.New(clierrors.ExitUsage, "--watch cannot be combined with --json")
			}

			settings, err := loadSettings(cmd)
			if err != nil {
				return err
			}

			var entries []manifest.Entry

			skipDisabled := false

			if manifestPath != "" {
				m, loadErr := loadManifest(manifestPath)
				if loadErr != nil {
					return loadErr
				}

				entries = m.Entries()
				skipDisabled = !alsoRunDisabled
			} else {
				entries = append(entries, manifest.Entry{Suite: args[0], Test: args[1]})
			}

			if err := requireSourceDir(settings); err != nil {
				return err
			}

			sel := &selection{
				settings:     settings,
				entries:      entries,
				skipDisabled: skipDisabled,
				manifestPath: manifestPath,
			}

			if !noHistory {
				sel.historyDir = historyDirOrEmpty(cmd.Context())
			}

			runErr := sel.run(cmd.Context(), out)
			if !watchMode {
				return runErr
			}

			return sel.watch(cmd.Context(), out, runErr)
		},
	}

	addManifestFlag(cmd, &manifestPath)
	cmd.Flags().BoolVar(&alsoRunDisabled, "also-run-disabled", false, "Run manifest tests whose name starts with DISABLED_")
	cmd.Flags().BoolVarP(&watchMode, "watch", "w", false, "Run again when a script or the manifest changes")
	cmd.Flags().BoolVar(&noHistory, "no-history", false, "Do not record this run in the run history")

	return cmd
}

// historyDirOrEmpty returns the run history directory, or "" if the state
// directory cannot be resolved.
func historyDirOrEmpty(ctx context.Context) string {
	dir, err := paths.HistoryDir()
	if err != nil {
		observability.FromContext(ctx).Warn("run history disabled", slog.String("error", err.Error()))
		return ""
	}

	return dir
}

// run executes every test in the selection and prints the results.
func (s *selection) run(ctx context.Context, out *output.Writer) error {
	// Stdout carries the report in JSON mode. Launch failures are printed
	// with the test's result line, so the runner's own copy is dropped.
	scriptOut := out.Out
	if out.JSON {
		scriptOut = out.Err
	}

	runner, err := external.New(s.settings,
		external.WithStreams(scriptOut, out.Err),
		external.WithDiagnostics(io.Discard),
	)
	if err != nil {
		return clierrors.Wrap(clierrors.ExitConfig, "Invalid settings", err)
	}

	logger := observability.FromContext(ctx)
	report := RunReport{Results: make([]history.Result, 0, len(s.entries))}
	rec := s.startRecording(ctx)
	report.RunID = rec.runID()

	// Script output would tear through the bar.
	progress := &output.Progress{}
	if !s.settings.Verbose {
		progress = out.Progress(len(s.entries))
	}

	for _, entry := range s.entries {
		inv := entry.Invocation()

		if s.skipDisabled && strings.HasPrefix(entry.Test, external.DisabledPrefix) {
			skipped := history.Result{Suite: inv.Suite, Test: inv.Test, Result: history.Skipped}

			report.Skipped++
			report.Results = append(report.Results, skipped)
			rec.append(ctx, skipped)

			if !out.JSON {
				progress.Clear()
				out.Warning("%s skipped (disabled)", inv)
			}

			progress.Skip()

			continue
		}

		result := runOne(ctx, out, runner, entry, progress)
		if result.Result == history.Passed {
			report.Passed++
		} else {
			report.Failed++
		}

		progress.Record(result.Result == history.Passed)

		report.Results = append(report.Results, result)
		rec.append(ctx, result)
	}

	progress.Finish()
	rec.close(ctx)

	logger.Info("external test run finished",
		slog.Int("passed", report.Passed),
		slog.Int("failed", report.Failed),
		slog.Int("skipped", report.Skipped),
	)

	if out.JSON {
		if err := out.PrintJSON(report); err != nil {
			return err
		}
	} else if len(report.Results) > 1 {
		out.Println()
		renderSummary(out, report)
	}

	if report.Failed > 0 {
		return clierrors.ExternalTestsFailed(report.Failed, report.Passed+report.Failed)
	}

	return nil
}

func runOne(ctx context.Context, out *output.Writer, runner *external.Runner, entry manifest.Entry, progress *output.Progress) history.Result {
	inv := entry.Invocation()
	verbose := runner.Settings().Verbose

	// Script output would tear through a spinner line.
	var spin *output.Spinner

	switch {
	case verbose:
		if !out.JSON {
			out.Muted("=== RUN %s", inv)
		}
	case !progress.Enabled():
		spin = out.Spinner("Running " + inv.String())
		spin.Start()
	}

	start := time.Now()
	outcome, err := runner.Execute(ctx, entry.Suite, entry.Test)
	elapsed := time.Since(start)

	result := history.Result{
		Suite:      inv.Suite,
		Test:       inv.Test,
		Result:     history.Passed,
		DurationMS: elapsed.Milliseconds(),
	}

	switch {
	case err != nil:
		result.Result = history.LaunchFailed
	case outcome.Kind == external.ExitFailure:
		status := outcome.Status
		result.Result = history.Failed
		result.Status = &status
	case outcome.Kind == external.SignalFailure:
		result.Result = history.Failed
		result.Signal = spawn.SignalName(outcome.Signal)
	}

	result.Message = external.FailureMessage(inv, outcome, err)

	if out.JSON {
		if spin != nil {
			spin.Stop()
		}

		return result
	}

	passed := result.Result == history.Passed
	line := fmt.Sprintf("%s (%s)", inv, formatDuration(elapsed))

	progress.Clear()

	switch {
	case spin != nil && passed:
		spin.StopWithSuccess(line)
	case spin != nil:
		spin.StopWithFailure(result.Message)
	case passed:
		out.Success("%s", line)
	default:
		out.Failure("%s", result.Message)
	}

	return result
}

func renderSummary(out *output.Writer, report RunReport) {
	renderResults(out, report.Results)
	renderCounts(out, report.Passed, report.Failed, report.Skipped)
}

func renderResults(out *output.Writer, results []history.Result) {
	rows := make([][]string, 0, len(results))

	for _, r := range results {
		duration := ""
		if r.Result != history.Skipped {
			duration = formatDuration(time.Duration(r.DurationMS) * time.Millisecond)
		}

		rows = append(rows, []string{r.Suite, r.Test, resultCell(r), duration})
	}

	out.Table([]string{"SUITE", "TEST", "RESULT", "TIME"}, rows, 2)
}

func resultCell(r history.Result) string {
	switch r.Result {
	case history.Passed:
		return output.CheckMark + " passed"
	case history.Skipped:
		return output.WarningMark + " skipped"
	case history.LaunchFailed:
		return output.XMark + " not launched"
	case history.Failed:
		if r.Signal != "" {
			return output.XMark + " " + r.Signal
		}

		if r.Status != nil {
			return fmt.Sprintf("%s exit %d", output.XMark, *r.Status)
		}
	}

	return output.XMark + " " + r.Result
}

func renderCounts(out *output.Writer, passed, failed, skipped int) {
	out.Print("%d passed", passed)

	if failed > 0 {
		out.Print(", %d failed", failed)
	}

	if skipped > 0 {
		out.Print(", %d skipped", skipped)
	}

	out.Println()
}

// recording appends one run's results to the history. A nil recording
// records nothing. Write failures are logged and stop the recording; they
// never fail the run.
type recording struct {
	store *history.Store
}

func (s *selection) startRecording(ctx context.Context) *recording {
	if s.historyDir == "" {
		return nil
	}

	manifestPath := s.manifestPath
	if manifestPath != "" {
		if abs, err := filepath.Abs(manifestPath); err == nil {
			manifestPath = abs
		}
	}

	store, err := history.Start(s.historyDir, history.Meta{
		RunID:     history.NewRunID(time.Now()),
		SourceDir: s.settings.SourceDir,
		Manifest:  manifestPath,
	})
	if err != nil {
		observability.FromContext(ctx).Warn("run history not recorded", slog.String("error", err.Error()))
		return nil
	}

	return &recording{store: store}
}

func (r *recording) runID() string {
	if r == nil || r.store == nil {
		return ""
	}

	return r.store.RunID()
}

func (r *recording) append(ctx context.Context, result history.Result) {
	if r == nil || r.store == nil {
		return
	}

	if err := r.store.Append(result); err != nil {
		observability.FromContext(ctx).Warn("run history write failed", slog.String("error", err.Error()))
		r.close(ctx)
	}
}

func (r *recording) close(ctx context.Context) {
	if r == nil || r.store == nil {
		return
	}

	if err := r.store.Close(); err != nil {
		observability.FromContext(ctx).Warn("run history close failed", slog.String("error", err.Error()))
	}

	r.store = nil
}

func formatDuration(d time.Duration) string {
	if d < time.Second {
		return d.Round(time.Millisecond).String()
	}

	return d.Round(100 * time.Millisecond).String()
}
