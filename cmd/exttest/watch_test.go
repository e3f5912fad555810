package main

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/mesos-tools/exttest/internal/external"
	"github.com/mesos-tools/exttest/internal/manifest"
	"github.com/mesos-tools/exttest/internal/watch"
)

func TestSelectionFiles(t *testing.T) {
	src := filepath.FromSlash("/src/mesos")
	entries := []manifest.Entry{
		{Suite: "containerizer", Test: "basic"},
		{Suite: "containerizer", Test: "DISABLED_slow"},
	}

	script := func(suite, test string) string {
		return external.ScriptPath(src, external.NewInvocation(suite, test))
	}

	tests := []struct {
		name string
		sel  selection
		want []string
	}{
		{
			name: "single test",
			sel:  selection{entries: entries[:1]},
			want: []string{script("containerizer", "basic")},
		},
		{
			name: "disabled tests skipped",
			sel:  selection{entries: entries, skipDisabled: true, manifestPath: "tests.yaml"},
			want: []string{script("containerizer", "basic"), "tests.yaml"},
		},
		{
			name: "disabled tests included",
			sel:  selection{entries: entries},
			want: []string{script("containerizer", "basic"), script("containerizer", "slow")},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.sel.settings = external.Settings{SourceDir: src}

			if got := tt.sel.files(); !slices.Equal(got, tt.want) {
				t.Errorf("files() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSelectionIsManifest(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	sel := selection{manifestPath: "tests.yaml"}

	if !sel.isManifest(filepath.Join(dir, "tests.yaml")) {
		t.Error("isManifest(absolute manifest path) = false")
	}

	if sel.isManifest(filepath.Join(dir, "other.yaml")) {
		t.Error("isManifest(other file) = true")
	}

	if (&selection{}).isManifest(filepath.Join(dir, "tests.yaml")) {
		t.Error("isManifest() without a manifest = true")
	}
}

func TestSelectionReload(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "mesos")

	for _, script := range []string{"containerizer/basic.sh", "examples/extra.sh"} {
		path := filepath.Join(external.ScriptDir(src), filepath.FromSlash(script))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}

		if err := os.WriteFile(path, []byte("#!/bin/sh\n"), 0o755); err != nil {
			t.Fatal(err)
		}
	}

	manifestPath := filepath.Join(dir, "tests.yaml")
	writeManifest := func(body string) {
		t.Helper()

		if err := os.WriteFile(manifestPath, []byte(body), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	writeManifest("suites:\n  - name: containerizer\n    tests: [basic]\n")

	sel := &selection{
		settings:     external.Settings{SourceDir: src},
		entries:      []manifest.Entry{{Suite: "containerizer", Test: "basic"}},
		manifestPath: manifestPath,
	}

	w, err := watch.New(sel.files(), slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("watch.New() error = %v", err)
	}

	t.Cleanup(func() { _ = w.Close() })

	writeManifest("suites:\n  - name: containerizer\n    tests: [basic]\n  - name: examples\n    tests: [extra]\n")

	if err := sel.reload(w); err != nil {
		t.Fatalf("reload() error = %v", err)
	}

	if len(sel.entries) != 2 {
		t.Fatalf("entries = %v, want 2", sel.entries)
	}

	if w.Files() != 3 {
		t.Errorf("Files() = %d, want 3 (two scripts and the manifest)", w.Files())
	}

	// A suite whose directory does not exist cannot be watched.
	writeManifest("suites:\n  - name: missing\n    tests: [gone]\n")

	if err := sel.reload(w); err == nil {
		t.Fatal("reload() error = nil, want error")
	}

	if len(sel.entries) != 2 || w.Files() != 3 {
		t.Errorf("after failed reload: entries = %v, Files() = %d; want previous selection", sel.entries, w.Files())
	}

	writeManifest("suites: [")

	if err := sel.reload(w); err == nil {
		t.Fatal("reload() with a broken manifest error = nil, want error")
	}

	if len(sel.entries) != 2 {
		t.Errorf("entries = %v after broken manifest, want previous selection", sel.entries)
	}
}
