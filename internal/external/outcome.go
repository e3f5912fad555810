package external

import (
	"fmt"
	"log/slog"
	"syscall"

	"github.com/mesos-tools/exttest/internal/spawn"
)

// Kind classifies an Outcome.
type Kind int

const (
	// Success means the script exited with status 0.
	Success Kind = iota
	// ExitFailure means the script exited with a nonzero status.
	ExitFailure
	// SignalFailure means the script was terminated by a signal.
	SignalFailure
)

// String returns the lowercase name of the kind.
func (k Kind) String() string {
	switch k {
	case Success:
		return "success"
	case ExitFailure:
		return "exit_failure"
	case SignalFailure:
		return "signal_failure"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Outcome is the classified result of one external test.
type Outcome struct {
	Kind Kind
	// Status is the exit status for ExitFailure.
	Status int
	// Signal is the terminating signal for SignalFailure.
	Signal syscall.Signal
}

// OutcomeOf classifies a child termination.
func OutcomeOf(term spawn.Termination) Outcome {
	switch {
	case term.State == spawn.Signaled:
		return Outcome{Kind: SignalFailure, Signal: term.Signal}
	case term.Code != 0:
		return Outcome{Kind: ExitFailure, Status: term.Code}
	default:
		return Outcome{Kind: Success}
	}
}

// Failed reports whether the outcome is a test failure.
func (o Outcome) Failed() bool {
	return o.Kind != Success
}

// Message returns the failure message for inv, or "" on success.
func (o Outcome) Message(inv Invocation) string {
	switch o.Kind {
	case ExitFailure:
		return fmt.Sprintf("%s exited with status %d", inv, o.Status)
	case SignalFailure:
		return fmt.Sprintf("%s terminated with signal '%s'", inv, spawn.SignalDescription(o.Signal))
	default:
		return ""
	}
}

// LogValue implements slog.LogValuer.
func (o Outcome) LogValue() slog.Value {
	switch o.Kind {
	case ExitFailure:
		return slog.GroupValue(slog.String("kind", o.Kind.String()), slog.Int("status", o.Status))
	case SignalFailure:
		return slog.GroupValue(slog.String("kind", o.Kind.String()), slog.String("signal", spawn.SignalName(o.Signal)))
	default:
		return slog.GroupValue(slog.String("kind", o.Kind.String()))
	}
}
