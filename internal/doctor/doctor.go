// Package doctor checks that the environment can run external tests.
//
// The default checks validate:
//   - the source tree and its src/tests/external directory
//   - the build tree
//   - that workspaces can be created under the tmp root
//   - that /bin/sh is available for script shebangs
//   - the env file, when one is configured
//
// Manifest checks can be added to verify every listed script is present
// and executable.
package doctor

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mesos-tools/exttest/internal/external"
	"github.com/mesos-tools/exttest/internal/manifest"
)

// Status represents the result of a diagnostic check.
type Status int

const (
	// StatusPass indicates the check passed.
	StatusPass Status = iota
	// StatusWarn indicates a non-critical issue.
	StatusWarn
	// StatusFail indicates a critical failure.
	StatusFail
)

// String returns the lowercase status name used in JSON output.
func (s Status) String() string {
	switch s {
	case StatusPass:
		return "pass"
	case StatusWarn:
		return "warn"
	case StatusFail:
		return "fail"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Result holds the outcome of a single check.
type Result struct {
	Name    string `json:"name"`
	Status  Status `json:"status"`
	Message string `json:"message"`
	Detail  string `json:"detail,omitempty"`
}

// Check is a diagnostic check function.
type Check func(ctx context.Context) Result

// Runner executes diagnostic checks.
type Runner struct {
	checks []namedCheck
}

type namedCheck struct {
	name  string
	check Check
}

// shellPath is the interpreter named by external test shebangs.
var shellPath = "/bin/sh"

// New creates a runner with the default checks for settings.
func New(settings external.Settings) *Runner {
	r := &Runner{}

	r.AddCheck("Source Directory", func(context.Context) Result { return checkSourceDir(settings.SourceDir) })
	r.AddCheck("Build Directory", func(context.Context) Result { return checkBuildDir(settings.BuildDir) })
	r.AddCheck("Workspace Root", func(context.Context) Result { return checkTmpRoot(settings.TmpRoot) })
	r.AddCheck("Shell", func(context.Context) Result { return checkShell(shellPath) })

	if settings.EnvFile != "" {
		r.AddCheck("Env File", func(context.Context) Result { return checkEnvFile(settings.EnvFile) })
	}

	return r
}

// AddCheck registers a diagnostic check.
func (r *Runner) AddCheck(name string, check Check) {
	r.checks = append(r.checks, namedCheck{name: name, check: check})
}

// AddManifestCheck registers a check that every script listed in m exists
// and is executable.
func (r *Runner) AddManifestCheck(settings external.Settings, m *manifest.Manifest) {
	r.AddCheck("Manifest Scripts", func(context.Context) Result {
		return checkScripts(settings.SourceDir, m.Entries())
	})
}

// Run executes all registered checks and returns the results.
func (r *Runner) Run(ctx context.Context) []Result {
	results := make([]Result, 0, len(r.checks))

	for _, nc := range r.checks {
		result := nc.check(ctx)
		result.Name = nc.name
		results = append(results, result)
	}

	return results
}

// Summary returns counts of passed, failed, and warning checks.
func Summary(results []Result) (passed, failed, warnings int) {
	for _, r := range results {
		switch r.Status {
		case StatusPass:
			passed++
		case StatusFail:
			failed++
		case StatusWarn:
			warnings++
		}
	}

	return passed, failed, warnings
}

func checkSourceDir(dir string) Result {
	if res, ok := requireDir(dir, "source_dir"); !ok {
		return res
	}

	scripts := external.ScriptDir(dir)

	info, err := os.Stat(scripts)
	if err != nil || !info.IsDir() {
		return Result{
			Status:  StatusFail,
			Message: dir,
			Detail:  fmt.Sprintf("No external tests at %s; is this a Mesos source tree?", scripts),
		}
	}

	return Result{Status: StatusPass, Message: dir}
}

func checkBuildDir(dir string) Result {
	if res, ok := requireDir(dir, "build_dir"); !ok {
		return res
	}

	launcher := filepath.Join(dir, "src")
	if _, err := os.Stat(launcher); err != nil {
		return Result{
			Status:  StatusWarn,
			Message: dir,
			Detail:  fmt.Sprintf("%s does not exist yet; MESOS_LAUNCHER_DIR will point at a missing directory", launcher),
		}
	}

	return Result{Status: StatusPass, Message: dir}
}

func requireDir(dir, key string) (Result, bool) {
	if dir == "" {
		return Result{
			Status:  StatusFail,
			Message: "Not configured",
			Detail:  fmt.Sprintf("Set it with --%s or 'exttest config set %s <dir>'", flagName(key), key),
		}, false
	}

	info, err := os.Stat(dir)
	if err != nil {
		return Result{Status: StatusFail, Message: dir, Detail: err.Error()}, false
	}

	if !info.IsDir() {
		return Result{Status: StatusFail, Message: dir, Detail: "Not a directory"}, false
	}

	return Result{}, true
}

// checkTmpRoot creates and removes a trial workspace the same way a run does.
func checkTmpRoot(root string) Result {
	trial := external.Invocation{Suite: "exttest", Test: "doctor"}

	workspace, err := external.CreateWorkspace(root, trial)
	if err != nil {
		return Result{Status: StatusFail, Message: root, Detail: err.Error()}
	}

	if err := os.Remove(workspace); err != nil {
		return Result{
			Status:  StatusWarn,
			Message: root,
			Detail:  fmt.Sprintf("Trial workspace %s could not be removed: %v", workspace, err),
		}
	}

	return Result{Status: StatusPass, Message: root + " (writable)"}
}

func checkShell(path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		return Result{
			Status:  StatusFail,
			Message: "Not found",
			Detail:  fmt.Sprintf("External test scripts need %s", path),
		}
	}

	if info.Mode()&0o111 == 0 {
		return Result{Status: StatusFail, Message: path, Detail: "Not executable"}
	}

	return Result{Status: StatusPass, Message: path}
}

func checkEnvFile(path string) Result {
	env, err := external.ReadEnvFile(path)
	if err != nil {
		return Result{Status: StatusFail, Message: path, Detail: err.Error()}
	}

	var shadowed []string

	for _, key := range []string{external.EnvSourceDir, external.EnvBuildDir, external.EnvWebUIDir, external.EnvLauncherDir} {
		if _, ok := env[key]; ok {
			shadowed = append(shadowed, key)
		}
	}

	message := fmt.Sprintf("%s (%d variable(s))", path, len(env))

	if len(shadowed) > 0 {
		return Result{
			Status:  StatusWarn,
			Message: message,
			Detail:  fmt.Sprintf("Ignored, the runner always sets: %s", strings.Join(shadowed, ", ")),
		}
	}

	return Result{Status: StatusPass, Message: message}
}

func checkScripts(sourceDir string, entries []manifest.Entry) Result {
	var missing, notExec []string

	for _, e := range entries {
		inv := e.Invocation()
		path := external.ScriptPath(sourceDir, inv)

		info, err := os.Stat(path)

		switch {
		case err != nil:
			missing = append(missing, inv.String())
		case info.IsDir() || info.Mode()&0o111 == 0:
			notExec = append(notExec, inv.String())
		}
	}

	total := len(entries)

	switch {
	case len(missing) > 0:
		return Result{
			Status:  StatusFail,
			Message: fmt.Sprintf("%d of %d script(s) missing", len(missing), total),
			Detail:  fmt.Sprintf("Missing: %s", joinNames(missing)),
		}
	case len(notExec) > 0:
		return Result{
			Status:  StatusFail,
			Message: fmt.Sprintf("%d of %d script(s) not executable", len(notExec), total),
			Detail:  fmt.Sprintf("Run chmod +x on: %s", joinNames(notExec)),
		}
	default:
		return Result{Status: StatusPass, Message: fmt.Sprintf("%d script(s) ready", total)}
	}
}

func joinNames(names []string) string {
	const limit = 5

	if len(names) <= limit {
		return strings.Join(names, ", ")
	}

	return fmt.Sprintf("%s and %d more", strings.Join(names[:limit], ", "), len(names)-limit)
}

func flagName(key string) string {
	switch key {
	case "source_dir":
		return "source-dir"
	case "build_dir":
		return "build-dir"
	default:
		return key
	}
}

// RenderResults formats diagnostic results using the provided output functions.
func RenderResults(results []Result, printFn, successFn, warningFn, failureFn, mutedFn func(format string, args ...any)) {
	maxNameLen := 0
	for _, r := range results {
		if len(r.Name) > maxNameLen {
			maxNameLen = len(r.Name)
		}
	}

	for _, r := range results {
		width := maxNameLen + 4

		switch r.Status {
		case StatusPass:
			successFn("%-*s%s", width, r.Name, r.Message)
		case StatusWarn:
			warningFn("%-*s%s", width, r.Name, r.Message)
		case StatusFail:
			failureFn("%-*s%s", width, r.Name, r.Message)
		default:
			printFn("%s %-*s%s\n", r.Status.Symbol(), width, r.Name, r.Message)
		}

		if r.Detail != "" {
			mutedFn("    %s", r.Detail)
		}
	}
}

// Symbol returns the status symbol for display.
func (s Status) Symbol() string {
	switch s {
	case StatusPass:
		return checkMark
	case StatusWarn:
		return warningMark
	case StatusFail:
		return xMark
	default:
		return "?"
	}
}

const (
	checkMark   = "\u2713" // ✓
	xMark       = "\u2717" // ✗
	warningMark = "\u26A0" // ⚠
)
