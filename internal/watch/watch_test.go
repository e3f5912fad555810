package watch

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type changes struct {
	mu    sync.Mutex
	paths []string
	ch    chan string
}

func newChanges() *changes {
	return &changes{ch: make(chan string, 16)}
}

func (c *changes) record(_ context.Context, path string) {
	c.mu.Lock()
	c.paths = append(c.paths, path)
	c.mu.Unlock()
	c.ch <- path
}

func (c *changes) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.paths)
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()

	if err := os.WriteFile(path, []byte(content), 0o755); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

// start runs w until the test ends.
func start(t *testing.T, w *Watcher, c *changes) {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)

	go func() { done <- w.Run(ctx, c.record) }()

	t.Cleanup(func() {
		cancel()

		if err := <-done; err != nil {
			t.Errorf("Run() error = %v", err)
		}
	})
}

func TestWatcher_ReportsChangedFile(t *testing.T) {
	dir := t.TempDir()
	script := filepath.Join(dir, "basic.sh")
	writeFile(t, script, "#!/bin/sh\nexit 0\n")

	w, err := New([]string{script}, discardLogger())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	w.SetDebounce(50 * time.Millisecond)

	c := newChanges()
	start(t, w, c)

	writeFile(t, script, "#!/bin/sh\nexit 1\n")

	select {
	case got := <-c.ch:
		if got != script {
			t.Errorf("changed = %q, want %q", got, script)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no change reported")
	}
}

func TestWatcher_IgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	script := filepath.Join(dir, "basic.sh")
	writeFile(t, script, "#!/bin/sh\n")

	w, err := New([]string{script}, discardLogger())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	w.SetDebounce(20 * time.Millisecond)

	c := newChanges()
	start(t, w, c)

	writeFile(t, filepath.Join(dir, "other.sh"), "#!/bin/sh\n")

	select {
	case got := <-c.ch:
		t.Fatalf("unexpected change for %q", got)
	case <-time.After(300 * time.Millisecond):
	}
}

func TestWatcher_DebouncesBursts(t *testing.T) {
	dir := t.TempDir()
	script := filepath.Join(dir, "basic.sh")
	writeFile(t, script, "#!/bin/sh\n")

	w, err := New([]string{script}, discardLogger())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	w.SetDebounce(300 * time.Millisecond)

	c := newChanges()
	start(t, w, c)

	for i := range 3 {
		writeFile(t, script, "#!/bin/sh\nexit "+string(rune('0'+i))+"\n")
	}

	select {
	case <-c.ch:
	case <-time.After(5 * time.Second):
		t.Fatal("no change reported")
	}

	time.Sleep(600 * time.Millisecond)

	if n := c.count(); n != 1 {
		t.Errorf("callbacks = %d, want 1", n)
	}
}

func TestWatcher_SetFollowsNewFiles(t *testing.T) {
	first := filepath.Join(t.TempDir(), "basic.sh")
	added := filepath.Join(t.TempDir(), "extra.sh")
	writeFile(t, first, "#!/bin/sh\n")
	writeFile(t, added, "#!/bin/sh\n")

	w, err := New([]string{first}, discardLogger())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	w.SetDebounce(20 * time.Millisecond)

	c := newChanges()

	// The callback swaps the set the way a manifest reload does.
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	swapped := false

	go func() {
		done <- w.Run(ctx, func(ctx context.Context, path string) {
			if !swapped {
				swapped = true

				if err := w.Set([]string{added}); err != nil {
					t.Errorf("Set() error = %v", err)
				}
			}

			c.record(ctx, path)
		})
	}()

	t.Cleanup(func() {
		cancel()

		if err := <-done; err != nil {
			t.Errorf("Run() error = %v", err)
		}
	})

	writeFile(t, first, "#!/bin/sh\nexit 1\n")

	select {
	case <-c.ch:
	case <-time.After(5 * time.Second):
		t.Fatal("no change reported for the first file")
	}

	writeFile(t, added, "#!/bin/sh\nexit 2\n")

	select {
	case got := <-c.ch:
		if got != added {
			t.Errorf("changed = %q, want %q", got, added)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no change reported for the added file")
	}

	// The first file left the set.
	writeFile(t, first, "#!/bin/sh\nexit 3\n")

	select {
	case got := <-c.ch:
		t.Fatalf("unexpected change for %q", got)
	case <-time.After(300 * time.Millisecond):
	}

	if w.Files() != 1 {
		t.Errorf("Files() = %d, want 1", w.Files())
	}
}

func TestWatcher_SetKeepsPreviousOnError(t *testing.T) {
	script := filepath.Join(t.TempDir(), "basic.sh")
	writeFile(t, script, "#!/bin/sh\n")

	w, err := New([]string{script}, discardLogger())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	t.Cleanup(func() { _ = w.Close() })

	missing := filepath.Join(t.TempDir(), "gone", "extra.sh")
	if err := w.Set([]string{script, missing}); err == nil {
		t.Fatal("Set() with a missing directory error = nil, want error")
	}

	if err := w.Set(nil); err == nil {
		t.Fatal("Set(nil) error = nil, want error")
	}

	if w.Files() != 1 {
		t.Errorf("Files() = %d, want 1", w.Files())
	}
}

func TestNew_Errors(t *testing.T) {
	if _, err := New(nil, discardLogger()); err == nil {
		t.Error("New(nil) error = nil, want error")
	}

	missing := filepath.Join(t.TempDir(), "gone", "basic.sh")
	if _, err := New([]string{missing}, discardLogger()); err == nil {
		t.Error("New() with a missing directory error = nil, want error")
	}
}

func TestWatcher_StopsOnCancel(t *testing.T) {
	script := filepath.Join(t.TempDir(), "basic.sh")
	writeFile(t, script, "#!/bin/sh\n")

	w, err := New([]string{script, script}, discardLogger())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if w.Files() != 1 {
		t.Errorf("Files() = %d, want 1", w.Files())
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := w.Run(ctx, func(context.Context, string) { t.Error("callback after cancel") }); err != nil {
		t.Errorf("Run() error = %v", err)
	}
}
