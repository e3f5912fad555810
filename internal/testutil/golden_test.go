package testutil

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// recorder captures failures without failing the enclosing test.
type recorder struct {
	errors []string
	fatal  bool
	logs   []string
}

func (r *recorder) Helper() {}

func (r *recorder) Errorf(format string, args ...any) {
	r.errors = append(r.errors, fmt.Sprintf(format, args...))
}

func (r *recorder) Fatalf(format string, args ...any) {
	r.fatal = true
	r.errors = append(r.errors, fmt.Sprintf(format, args...))
}

func (r *recorder) Logf(format string, args ...any) {
	r.logs = append(r.logs, fmt.Sprintf(format, args...))
}

func writeTestdata(t *testing.T, name, content string) {
	t.Helper()

	if err := os.MkdirAll("testdata", 0o755); err != nil {
		t.Fatal(err)
	}

	if err := os.WriteFile(filepath.Join("testdata", name), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestAssertGolden(t *testing.T) {
	t.Chdir(t.TempDir())
	writeTestdata(t, "run.golden", "✓ containerizer/basic\n")

	tests := []struct {
		name      string
		got       string
		file      string
		wantFatal bool
		wantErr   string
	}{
		{name: "match", got: "✓ containerizer/basic\n", file: "run.golden"},
		{name: "mismatch", got: "✗ containerizer/basic\n", file: "run.golden", wantErr: "output mismatch"},
		{name: "missing file", got: "x", file: "absent.golden", wantFatal: true, wantErr: "-update"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &recorder{}
			AssertGolden(rec, tt.got, tt.file)

			if rec.fatal != tt.wantFatal {
				t.Errorf("fatal = %v, want %v", rec.fatal, tt.wantFatal)
			}

			if tt.wantErr == "" {
				if len(rec.errors) != 0 {
					t.Errorf("unexpected failures: %q", rec.errors)
				}

				return
			}

			if len(rec.errors) != 1 || !strings.Contains(rec.errors[0], tt.wantErr) {
				t.Errorf("failures = %q, want one containing %q", rec.errors, tt.wantErr)
			}
		})
	}
}

func TestAssertGolden_Update(t *testing.T) {
	t.Chdir(t.TempDir())

	old := *update
	*update = true

	t.Cleanup(func() { *update = old })

	rec := &recorder{}
	AssertGolden(rec, "fresh\n", "new.golden")

	if len(rec.errors) != 0 {
		t.Fatalf("unexpected failures: %q", rec.errors)
	}

	data, err := os.ReadFile(GoldenPath("new.golden"))
	if err != nil {
		t.Fatalf("golden file not written: %v", err)
	}

	if string(data) != "fresh\n" {
		t.Errorf("golden content = %q, want %q", data, "fresh\n")
	}
}
