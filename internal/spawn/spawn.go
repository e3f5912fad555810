// Package spawn launches a program as a child process and reports how it
// terminated.
//
// A Spec carries everything the child needs before its image is replaced:
// the working directory, an environment overlay, and where its standard
// streams go. None of it is applied to the calling process.
package spawn

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sort"
	"strings"
	"syscall"
)

// State is the way a child process terminated.
type State int

const (
	// Exited means the child called exit (or returned from main).
	Exited State = iota
	// Signaled means the child was terminated by a signal.
	Signaled
)

// String returns the lowercase name of the state.
func (s State) String() string {
	switch s {
	case Exited:
		return "exited"
	case Signaled:
		return "signaled"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Termination describes a finished child process.
type Termination struct {
	State State
	// Code is the exit status. Only meaningful when State is Exited.
	Code int
	// Signal is the terminating signal. Only meaningful when State is Signaled.
	Signal syscall.Signal
}

// Success reports whether the child exited with status 0.
func (t Termination) Success() bool {
	return t.State == Exited && t.Code == 0
}

// Spec describes a program to launch.
type Spec struct {
	// Path is the program to execute. It is also passed as argv[0].
	Path string

	// Args are passed after argv[0].
	Args []string

	// Dir is the child's working directory. Empty means the caller's.
	Dir string

	// Env is layered over the caller's environment. Keys present here
	// replace inherited values of the same name.
	Env map[string]string

	// Stdout and Stderr receive the child's output. Nil discards it.
	Stdout io.Writer
	Stderr io.Writer
}

// Process is a running child.
type Process struct {
	cmd  *exec.Cmd
	path string
}

// Start launches the program described by spec.
//
// The context is only consulted before launch; a started child always runs
// to completion.
func Start(ctx context.Context, spec *Spec) (*Process, error) {
	if spec == nil || strings.TrimSpace(spec.Path) == "" {
		return nil, errors.New("spawn: program path is required")
	}

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("spawn %s: %w", spec.Path, err)
	}

	// exec.Command would resolve a bare name through PATH; the program must
	// be executed exactly as given.
	cmd := &exec.Cmd{ //nolint:gosec // G204: path comes from the caller's configured source tree
		Path:   spec.Path,
		Args:   append([]string{spec.Path}, spec.Args...),
		Dir:    spec.Dir,
		Env:    MergeEnv(os.Environ(), spec.Env),
		Stdout: spec.Stdout,
		Stderr: spec.Stderr,
	}

	if err := cmd.Start(); err != nil {
		return nil, err
	}

	return &Process{cmd: cmd, path: spec.Path}, nil
}

// Pid returns the child's process id.
func (p *Process) Pid() int {
	return p.cmd.Process.Pid
}

// Wait blocks until the child terminates.
//
// Stop notifications are not terminations and are never returned. A child
// that finished in any way other than exit or signal violates the contract
// of the OS wait primitive and causes a panic.
func (p *Process) Wait() (Termination, error) {
	err := p.cmd.Wait()

	var exitErr *exec.ExitError
	if err != nil && !errors.As(err, &exitErr) {
		return Termination{}, fmt.Errorf("wait for %s: %w", p.path, err)
	}

	state := p.cmd.ProcessState
	if state == nil {
		return Termination{}, fmt.Errorf("wait for %s: no process state", p.path)
	}

	status, ok := state.Sys().(syscall.WaitStatus)
	if !ok {
		return Termination{}, fmt.Errorf("wait for %s: unexpected status type %T", p.path, state.Sys())
	}

	return classify(p.Pid(), status), nil
}

func classify(pid int, status syscall.WaitStatus) Termination {
	switch {
	case status.Exited():
		return Termination{State: Exited, Code: status.ExitStatus()}
	case status.Signaled():
		return Termination{State: Signaled, Signal: status.Signal()}
	default:
		panic(fmt.Sprintf("spawn: process %d neither exited nor signaled (status %v)", pid, status))
	}
}

// MergeEnv returns base with overlay applied. Entries in base whose key
// appears in overlay are dropped; overlay entries are appended in key order.
func MergeEnv(base []string, overlay map[string]string) []string {
	merged := make([]string, 0, len(base)+len(overlay))

	for _, kv := range base {
		key, _, _ := strings.Cut(kv, "=")
		if _, replaced := overlay[key]; replaced {
			continue
		}

		merged = append(merged, kv)
	}

	keys := make([]string, 0, len(overlay))
	for k := range overlay {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	for _, k := range keys {
		merged = append(merged, k+"="+overlay[k])
	}

	return merged
}
