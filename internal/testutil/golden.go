// Package testutil holds golden file helpers shared by exttest tests.
package testutil

import (
	"errors"
	"flag"
	"io/fs"
	"os"
	"path/filepath"
)

var update = flag.Bool("update", false, "rewrite golden files under testdata")

// TB is the subset of testing.TB the helpers need.
type TB interface {
	Helper()
	Errorf(format string, args ...any)
	Fatalf(format string, args ...any)
	Logf(format string, args ...any)
}

// GoldenPath returns the path of name inside the package's testdata directory.
func GoldenPath(name string) string {
	return filepath.Join("testdata", name)
}

// AssertGolden compares got with testdata/<name>. With -update it writes
// got to the file instead.
func AssertGolden(t TB, got, name string) {
	t.Helper()

	path := GoldenPath(name)

	if *update {
		writeGolden(t, path, got)
		return
	}

	want, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("golden file %s does not exist; run with -update to create it", path)
		return
	}

	if err != nil {
		t.Fatalf("read golden file %s: %v", path, err)
		return
	}

	if got != string(want) {
		t.Errorf("output mismatch for %s\n\ngot:\n%s\n\nwant:\n%s\n\nrun with -update to refresh golden files", path, got, want)
	}
}

func writeGolden(t TB, path, content string) {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("create %s: %v", filepath.Dir(path), err)
		return
	}

	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write golden file %s: %v", path, err)
		return
	}

	t.Logf("updated golden file: %s", path)
}
