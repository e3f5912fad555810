package main

import (
	"strings"
	"testing"

	"github.com/spf13/cobra"

	clierrors "github.com/mesos-tools/exttest/internal/errors"
)

// TestAllRunnableCommandsHaveArgsValidator walks the entire command tree and
// fails if any runnable command is missing an Args validator.
func TestAllRunnableCommandsHaveArgsValidator(t *testing.T) {
	root := newRootCmd()

	var missing []string

	for _, cmd := range collectAllCommands(root) {
		if !cmd.Runnable() {
			continue
		}

		if cmd.Args == nil {
			missing = append(missing, cmd.CommandPath())
		}
	}

	if len(missing) > 0 {
		t.Errorf("runnable commands missing Args validator:\n  %s\n\nAdd Args: noArgs (or another validator) to each command.",
			strings.Join(missing, "\n  "))
	}
}

// collectAllCommands returns every command in the tree (including root).
func collectAllCommands(root *cobra.Command) []*cobra.Command {
	var all []*cobra.Command

	var walk func(cmd *cobra.Command)

	walk = func(cmd *cobra.Command) {
		all = append(all, cmd)
		for _, child := range cmd.Commands() {
			walk(child)
		}
	}

	walk(root)

	return all
}

// executeForError runs the root command with args and returns its CLIError.
func executeForError(t *testing.T, args ...string) *clierrors.CLIError {
	t.Helper()

	root := newRootCmd()
	root.SetArgs(args)

	err := root.Execute()
	if err == nil {
		t.Fatalf("exttest %s: expected error, got nil", strings.Join(args, " "))
	}

	var cliErr *clierrors.CLIError
	if !clierrors.As(err, &cliErr) {
		t.Fatalf("expected CLIError, got %T: %v", err, err)
	}

	return cliErr
}

func TestUnknownFlagReturnsCLIError(t *testing.T) {
	cliErr := executeForError(t, "version", "--bogus")

	if cliErr.Code != clierrors.ExitUsage {
		t.Errorf("exit code = %d, want %d (ExitUsage)", cliErr.Code, clierrors.ExitUsage)
	}

	if !strings.Contains(cliErr.Message, "unknown flag") {
		t.Errorf("message = %q, want to contain 'unknown flag'", cliErr.Message)
	}

	if !strings.Contains(cliErr.Hint, "exttest version --help") {
		t.Errorf("hint = %q, want to contain 'exttest version --help'", cliErr.Hint)
	}
}

func TestNoArgsCommandRejectsExtraArgs(t *testing.T) {
	cliErr := executeForError(t, "version", "extra")

	if cliErr.Code != clierrors.ExitUsage {
		t.Errorf("exit code = %d, want %d (ExitUsage)", cliErr.Code, clierrors.ExitUsage)
	}

	if !strings.Contains(cliErr.Message, "accepts no arguments") {
		t.Errorf("message = %q, want to contain 'accepts no arguments'", cliErr.Message)
	}
}

func TestRunArgs(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantMsg string
	}{
		{name: "nothing selected", args: []string{"run"}, wantMsg: "No external test selected"},
		{name: "suite only", args: []string{"run", "containerizer"}, wantMsg: "takes a suite and a test"},
		{name: "too many", args: []string{"run", "a", "b", "c"}, wantMsg: "takes a suite and a test"},
		{name: "both forms", args: []string{"run", "a", "b", "--manifest", "tests.yaml"}, wantMsg: "but not both"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cliErr := executeForError(t, tt.args...)

			if cliErr.Code != clierrors.ExitUsage {
				t.Errorf("exit code = %d, want %d", cliErr.Code, clierrors.ExitUsage)
			}

			if !strings.Contains(cliErr.Message, tt.wantMsg) {
				t.Errorf("message = %q, want to contain %q", cliErr.Message, tt.wantMsg)
			}
		})
	}
}
