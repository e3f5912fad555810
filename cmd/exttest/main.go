// Package main is the entry point for the exttest CLI.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/mesos-tools/exttest/internal/buildinfo"
	clierrors "github.com/mesos-tools/exttest/internal/errors"
	"github.com/mesos-tools/exttest/internal/observability"
	"github.com/mesos-tools/exttest/internal/output"
)

// Version information (set via ldflags during build).
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	os.Exit(run())
}

func run() (exitCode int) {
	// A panic while the spinner runs would leave the cursor hidden.
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprint(os.Stderr, "\033[?25h")
			panic(r)
		}
	}()

	buildinfo.Version = version
	buildinfo.Commit = commit
	buildinfo.Date = date

	out := output.Default()

	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		return handleError(out, err)
	}

	return clierrors.ExitSuccess
}

// handleError prints err and returns the exit code for it.
func handleError(out *output.Writer, err error) int {
	var cliErr *clierrors.CLIError
	if clierrors.As(err, &cliErr) {
		if cliErr.Cause != nil {
			out.Failure("%s: %v", cliErr.Message, cliErr.Cause)
		} else {
			out.Failure("%s", cliErr.Message)
		}

		if cliErr.Hint != "" {
			out.Hint("%s", cliErr.Hint)
		}

		return cliErr.Code
	}

	errStr := err.Error()

	// Cobra's unknown command error already carries suggestions.
	if strings.HasPrefix(errStr, "unknown command") {
		out.Failure("%s", errStr)

		if !strings.Contains(errStr, "--help") {
			out.Hint("Run 'exttest --help' for usage")
		}

		return clierrors.ExitUsage
	}

	if strings.HasPrefix(errStr, "unknown flag") ||
		strings.HasPrefix(errStr, "unknown shorthand flag") ||
		strings.Contains(errStr, "required flag") ||
		strings.HasPrefix(errStr, "accepts ") {
		out.Failure("%s", errStr)
		out.Hint("Run 'exttest --help' for usage")

		return clierrors.ExitUsage
	}

	out.Failure("%s", errStr)

	return clierrors.ExitGeneral
}

func newRootCmd() *cobra.Command {
	var (
		jsonOutput bool
		quiet      bool
		noColor    bool
		logLevel   string
		logFormat  string
		logFile    string
		logStderr  string
	)

	out := output.Default()

	rootCmd := &cobra.Command{
		Use:   "exttest",
		Short: "Run Mesos external test scripts",
		Long: `exttest runs the shell scripts under <source-dir>/src/tests/external as
isolated child processes. Each script gets a fresh working directory and the
MESOS_SOURCE_DIR, MESOS_BUILD_DIR, MESOS_WEBUI_DIR and MESOS_LAUNCHER_DIR
environment variables. A script passes when it exits with status 0.

Get started:
  exttest doctor                      Check the source and build trees
  exttest run containerizer basic     Run one external test
  exttest run --manifest tests.yaml   Run every test in a manifest`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			out.JSON = pickBoolFlagOrEnv(jsonOutput, "EXTTEST_JSON")
			out.Quiet = pickBoolFlagOrEnv(quiet, "EXTTEST_QUIET")

			if noColor {
				out.SetNoColor(true)

				color.NoColor = true
			}

			logCfg := observability.Config{
				Level:          pickFlagOrEnv(logLevel, "EXTTEST_LOG_LEVEL", "info"),
				Format:         pickFlagOrEnv(logFormat, "EXTTEST_LOG_FORMAT", "json"),
				LogFile:        pickFlagOrEnv(logFile, "EXTTEST_LOG_FILE", ""),
				StderrMode:     pickFlagOrEnv(logStderr, "EXTTEST_LOG_STDERR", "auto"),
				InteractiveTTY: out.Terminal().IsTTY,
				SessionID:      uuid.NewString(),
				CommandPath:    cmd.CommandPath(),
				Version:        buildinfo.Version,
				Commit:         buildinfo.Commit,
			}

			logger, cleanup, err := observability.NewLogger(&logCfg)
			if err != nil {
				return &clierrors.CLIError{
					Message: fmt.Sprintf("Invalid logging configuration: %v", err),
					Hint:    "Use --log-level (error|warn|info|debug), --log-format (json|text), --log-stderr (auto|on|off), and/or --log-file",
					Code:    clierrors.ExitUsage,
				}
			}

			slog.SetDefault(logger)

			ctx := out.WithContext(cmd.Context())
			ctx = observability.WithLogger(ctx, logger)
			cmd.SetContext(ctx)

			if cleanup != nil {
				cmd.PostRunE = wrapPostRunCleanup(cmd.PostRunE, cleanup)
			}

			environment := "development"
			if buildinfo.IsRelease() {
				environment = "release"
			}

			// Tracing is opt-in via OTEL_ENABLED.
			telemetryShutdown, telemetryErr := observability.SetupTelemetry(ctx, &observability.TelemetryConfig{
				Enabled:     observability.IsTelemetryEnabled(),
				Version:     buildinfo.Version,
				Commit:      buildinfo.Commit,
				Environment: environment,
			})
			if telemetryErr != nil {
				logger.Warn("telemetry initialization failed", slog.String("error", telemetryErr.Error()))
			}

			if telemetryShutdown != nil {
				cmd.PostRunE = wrapNamedPostRunCleanup(cmd.PostRunE, "telemetry resources", func() error {
					shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer cancel()

					return telemetryShutdown(shutdownCtx)
				})
			}

			return nil
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.BoolVar(&jsonOutput, "json", false, "Output in JSON format")
	flags.BoolVar(&quiet, "quiet", false, "Minimal output (for CI)")
	flags.BoolVar(&noColor, "no-color", false, "Disable colored output")
	flags.StringVar(&logLevel, "log-level", "", "Log level: error, warn, info, debug")
	flags.StringVar(&logFormat, "log-format", "", "Log format: json, text")
	flags.StringVar(&logFile, "log-file", "", "Optional structured log file path")
	flags.StringVar(&logStderr, "log-stderr", "", "Structured logging to stderr: auto, on, off")

	// Bound to the configuration in loadSettings; empty means "not given".
	flags.String("source-dir", "", "Root of the Mesos source tree (default \".\")")
	flags.String("build-dir", "", "Root of the Mesos build tree (default \".\")")
	flags.String("tmp-root", "", "Directory for per-test workspaces (default: system temp dir)")
	flags.BoolP("verbose", "v", false, "Show the scripts' stdout and stderr")
	flags.String("env-file", "", "Dotenv file with extra variables for the scripts")

	rootCmd.SuggestionsMinimumDistance = 2

	rootCmd.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return &clierrors.CLIError{
			Message: err.Error(),
			Hint:    fmt.Sprintf("Run '%s --help' for available flags", cmd.CommandPath()),
			Code:    clierrors.ExitUsage,
		}
	})

	rootCmd.AddCommand(newRunCmd())
	rootCmd.AddCommand(newListCmd())
	rootCmd.AddCommand(newDoctorCmd())
	rootCmd.AddCommand(newHistoryCmd())
	rootCmd.AddCommand(newConfigCmd())
	rootCmd.AddCommand(newVersionCmd())

	return rootCmd
}

func wrapPostRunCleanup(postRun func(*cobra.Command, []string) error, cleanup func() error) func(*cobra.Command, []string) error {
	return wrapNamedPostRunCleanup(postRun, "logger resources", cleanup)
}

func wrapNamedPostRunCleanup(postRun func(*cobra.Command, []string) error, name string, cleanup func() error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		if postRun != nil {
			if err := postRun(cmd, args); err != nil {
				_ = cleanup()
				return err
			}
		}

		if err := cleanup(); err != nil {
			return fmt.Errorf("cleanup %s: %w", name, err)
		}

		return nil
	}
}

func pickBoolFlagOrEnv(flagValue bool, envKey string) bool {
	if flagValue {
		return true
	}

	v := strings.ToLower(strings.TrimSpace(os.Getenv(envKey)))

	return v == "1" || v == "true" || v == "yes"
}

func pickFlagOrEnv(flagValue, envKey, fallback string) string {
	if trimmed := strings.TrimSpace(flagValue); trimmed != "" {
		return trimmed
	}

	if envValue := strings.TrimSpace(os.Getenv(envKey)); envValue != "" {
		return envValue
	}

	return fallback
}

// noArgs rejects positional arguments with a clearer message than
// cobra.NoArgs, which reports them as unknown commands.
func noArgs(cmd *cobra.Command, args []string) error {
	if len(args) > 0 {
		return &clierrors.CLIError{
			Message: fmt.Sprintf("'%s' accepts no arguments", cmd.CommandPath()),
			Hint:    fmt.Sprintf("Run '%s --help' for usage", cmd.CommandPath()),
			Code:    clierrors.ExitUsage,
		}
	}

	return nil
}

// VersionInfo represents version information for JSON output.
type VersionInfo struct {
	Version string `json:"version"`
	Commit  string `json:"commit"`
	Date    string `json:"date"`
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "version",
		Short:   "Show version information",
		Long:    `Display the exttest binary version, git commit, and build date.`,
		Example: `  exttest version`,
		Args:    noArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := output.FromContext(cmd.Context())

			if out.JSON {
				return out.PrintJSON(VersionInfo{
					Version: buildinfo.Version,
					Commit:  buildinfo.Commit,
					Date:    buildinfo.Date,
				})
			}

			out.Print("exttest %s\n", buildinfo.Version)
			out.Print("  commit: %s\n", buildinfo.Commit)
			out.Print("  built:  %s\n", buildinfo.Date)

			return nil
		},
	}
}
