// Package external runs external test scripts as child processes and reports
// their outcome to a test framework.
//
// An external test is an executable script at
// <source_dir>/src/tests/external/<suite>/<test>.sh. Each run gets a fresh
// workspace directory as its working directory and the MESOS_* environment
// entries describing the source and build trees. A script passes by exiting
// with status 0; any other exit status or a terminating signal is reported
// as a failure naming the suite, the test, and the status or signal.
//
// Go tests run scripts through package exttesting, which keeps the testing
// package out of production binaries.
package external

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"maps"
	"os"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	"github.com/mesos-tools/exttest/internal/observability"
	"github.com/mesos-tools/exttest/internal/spawn"
)

// Launch stages that can fail before a script's outcome is known.
const (
	OpWorkspace = "workspace"
	OpExecute   = "execute"
	OpWait      = "wait"
)

// LaunchError is a failure of the harness itself, as opposed to a failure
// of the external test.
type LaunchError struct {
	Op   string
	Path string
	Err  error
}

func (e *LaunchError) Error() string {
	reason := osReason(e.Err)

	switch e.Op {
	case OpWorkspace:
		return fmt.Sprintf("Failed to create temporary directory at '%s': %s", e.Path, reason)
	case OpExecute:
		return fmt.Sprintf("Failed to execute '%s': %s", e.Path, reason)
	default:
		return fmt.Sprintf("Failed to %s '%s': %s", e.Op, e.Path, reason)
	}
}

func (e *LaunchError) Unwrap() error {
	return e.Err
}

// osReason drops the operation and path from OS errors, which LaunchError
// already names.
func osReason(err error) string {
	var pathErr *fs.PathError
	if errors.As(err, &pathErr) {
		return pathErr.Err.Error()
	}

	return err.Error()
}

// Runner executes external tests one at a time.
type Runner struct {
	settings Settings
	extraEnv map[string]string
	stdout   io.Writer
	stderr   io.Writer
	diag     io.Writer
}

// Option configures a Runner.
type Option func(*Runner)

// WithStreams sets where script output goes in verbose mode. The defaults
// are os.Stdout and os.Stderr.
func WithStreams(stdout, stderr io.Writer) Option {
	return func(r *Runner) {
		r.stdout = stdout
		r.stderr = stderr
	}
}

// WithDiagnostics sets where harness diagnostics are printed. The default
// is os.Stderr.
func WithDiagnostics(w io.Writer) Option {
	return func(r *Runner) {
		r.diag = w
	}
}

// New creates a Runner. Relative directories in settings are resolved
// against the current working directory. A configured env file is read
// once, here.
func New(settings Settings, opts ...Option) (*Runner, error) {
	abs, err := settings.Absolute()
	if err != nil {
		return nil, err
	}

	var extra map[string]string

	if abs.EnvFile != "" {
		if extra, err = ReadEnvFile(abs.EnvFile); err != nil {
			return nil, err
		}
	}

	r := &Runner{
		settings: abs,
		extraEnv: extra,
		stdout:   os.Stdout,
		stderr:   os.Stderr,
		diag:     os.Stderr,
	}

	for _, opt := range opts {
		opt(r)
	}

	return r, nil
}

// Settings returns the resolved settings.
func (r *Runner) Settings() Settings {
	return r.settings
}

// Execute runs one external test to completion and classifies how it
// ended. A non-nil error means the script could not be run at all; it has
// already been printed to the diagnostics writer.
//
// There is no timeout: Execute blocks for as long as the script runs.
func (r *Runner) Execute(ctx context.Context, suite, test string) (Outcome, error) {
	inv := NewInvocation(suite, test)

	logger := observability.FromContext(ctx).With(
		slog.String("invocation.id", uuid.NewString()),
		slog.String("suite", inv.Suite),
		slog.String("test", inv.Test),
	)

	ctx, span := observability.StartInvocation(ctx, inv.Suite, inv.Test)
	defer span.End()

	workspace, err := CreateWorkspace(r.settings.TmpRoot, inv)
	if err != nil {
		return Outcome{}, r.launchFailed(logger, span, err)
	}

	script := ScriptPath(r.settings.SourceDir, inv)

	spec := &spawn.Spec{
		Path: script,
		Dir:  workspace,
		Env:  r.environment(),
	}

	if r.settings.Verbose {
		spec.Stdout = r.stdout
		spec.Stderr = r.stderr
	}

	proc, err := spawn.Start(ctx, spec)
	if err != nil {
		return Outcome{}, r.launchFailed(logger, span, &LaunchError{Op: OpExecute, Path: script, Err: err})
	}

	logger.Debug("external test started",
		slog.Int("pid", proc.Pid()),
		slog.String("script", script),
		slog.String("workspace", workspace),
	)

	observability.InvocationLaunched(span, workspace, proc.Pid())

	term, err := proc.Wait()
	if err != nil {
		return Outcome{}, r.launchFailed(logger, span, &LaunchError{Op: OpWait, Path: script, Err: err})
	}

	outcome := OutcomeOf(term)

	var failure error
	if outcome.Failed() {
		failure = errors.New(outcome.Message(inv))
	}

	observability.InvocationFinished(span, outcome.Kind.String(), failure)

	if failure != nil {
		logger.Warn("external test failed", slog.Any("outcome", outcome), slog.String("workspace", workspace))
	} else {
		logger.Info("external test passed", slog.String("workspace", workspace))
	}

	return outcome, nil
}

func (r *Runner) environment() map[string]string {
	env := make(map[string]string, len(r.extraEnv)+4)
	maps.Copy(env, r.extraEnv)
	maps.Copy(env, LaunchEnvironment(r.settings))

	return env
}

func (r *Runner) launchFailed(logger *slog.Logger, span trace.Span, err error) error {
	fmt.Fprintln(r.diag, err)
	logger.Error("external test could not be launched", slog.String("error", err.Error()))
	observability.RecordError(span, err)

	return err
}

// Report runs one external test and records any failure on rep. It is
// silent on success and returns whether the test passed.
func (r *Runner) Report(ctx context.Context, rep Reporter, suite, test string) bool {
	rep.Helper()

	outcome, err := r.Execute(ctx, suite, test)

	if msg := FailureMessage(NewInvocation(suite, test), outcome, err); msg != "" {
		rep.Errorf("%s", msg)
		return false
	}

	return true
}

// FailureMessage returns what Report records for a run of inv, or "" if
// the run passed. err is the error returned by Execute.
func FailureMessage(inv Invocation, outcome Outcome, err error) string {
	if err != nil {
		return fmt.Sprintf("Failed to launch external test %s: %v", inv, err)
	}

	if outcome.Failed() {
		return outcome.Message(inv)
	}

	return ""
}
