package main

import (
	"strings"
	"testing"
	"time"

	"github.com/mesos-tools/exttest/internal/history"
)

func TestResultCell(t *testing.T) {
	status := 3

	tests := []struct {
		name   string
		result history.Result
		want   string
	}{
		{name: "passed", result: history.Result{Result: history.Passed}, want: "✓ passed"},
		{name: "skipped", result: history.Result{Result: history.Skipped}, want: "⚠ skipped"},
		{name: "not launched", result: history.Result{Result: history.LaunchFailed}, want: "✗ not launched"},
		{name: "exit status", result: history.Result{Result: history.Failed, Status: &status}, want: "✗ exit 3"},
		{name: "signal", result: history.Result{Result: history.Failed, Signal: "SIGKILL"}, want: "✗ SIGKILL"},
		{name: "unknown", result: history.Result{Result: "bogus"}, want: "✗ bogus"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := resultCell(tt.result); got != tt.want {
				t.Errorf("resultCell() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRunStatusCell(t *testing.T) {
	finished := time.Now()

	tests := []struct {
		name string
		run  history.Run
		want string
	}{
		{name: "unfinished", run: history.Run{Meta: history.Meta{Failed: 1}}, want: "⚠ unfinished"},
		{name: "failed", run: history.Run{Meta: history.Meta{FinishedAt: &finished, Failed: 1}}, want: "✗ failed"},
		{name: "passed", run: history.Run{Meta: history.Meta{FinishedAt: &finished, Passed: 2}}, want: "✓ passed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := runStatusCell(tt.run); got != tt.want {
				t.Errorf("runStatusCell() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRenderCounts(t *testing.T) {
	tests := []struct {
		passed, failed, skipped int
		want                    string
	}{
		{passed: 3, want: "3 passed\n"},
		{passed: 1, failed: 2, want: "1 passed, 2 failed\n"},
		{passed: 0, failed: 1, skipped: 4, want: "0 passed, 1 failed, 4 skipped\n"},
	}

	for _, tt := range tests {
		t.Run(strings.TrimSpace(tt.want), func(t *testing.T) {
			out, buf := newTestWriter()

			renderCounts(out, tt.passed, tt.failed, tt.skipped)

			if got := buf.String(); got != tt.want {
				t.Errorf("renderCounts() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSelectionRecording(t *testing.T) {
	dir := t.TempDir()
	sel := &selection{historyDir: dir, manifestPath: "tests.yaml"}

	rec := sel.startRecording(t.Context())
	if rec == nil {
		t.Fatal("startRecording() = nil, want a recording")
	}

	id := rec.runID()

	rec.append(t.Context(), history.Result{Suite: "a", Test: "b", Result: history.Passed})
	rec.close(t.Context())

	runs, err := history.List(dir)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}

	if len(runs) != 1 || runs[0].RunID != id {
		t.Fatalf("List() = %#v", runs)
	}

	if runs[0].Passed != 1 || !strings.HasSuffix(runs[0].Manifest, "tests.yaml") {
		t.Errorf("recorded meta = %#v", runs[0].Meta)
	}

	// Disabled recording is a no-op.
	var none *recording

	none.append(t.Context(), history.Result{})
	none.close(t.Context())

	if (&selection{}).startRecording(t.Context()) != nil {
		t.Error("startRecording() without a history dir should record nothing")
	}
}
