package terminal

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDetectFile_NotATerminal(t *testing.T) {
	f, err := os.Create(filepath.Join(t.TempDir(), "out.log"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	defer f.Close()

	t.Setenv("TERM", "xterm")

	info := DetectFile(f)
	if info.IsTTY {
		t.Error("regular file detected as a TTY")
	}

	if info.Width != 80 || info.Height != 24 {
		t.Errorf("size = %dx%d, want 80x24 defaults", info.Width, info.Height)
	}

	if info.ColorEnabled() || info.SpinnersEnabled() {
		t.Error("color and spinners must be off for non-TTY output")
	}
}

func TestDetectFile_ColorOptOut(t *testing.T) {
	f, err := os.Create(filepath.Join(t.TempDir(), "out.log"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	defer f.Close()

	t.Setenv("NO_COLOR", "")

	if !DetectFile(f).NoColor {
		t.Error("NO_COLOR set but NoColor = false")
	}

	os.Unsetenv("NO_COLOR")
	t.Setenv("TERM", "dumb")

	if !DetectFile(f).NoColor {
		t.Error("TERM=dumb but NoColor = false")
	}
}

func TestInfo_ColorEnabled(t *testing.T) {
	tests := []struct {
		name string
		info Info
		want bool
	}{
		{name: "tty", info: Info{IsTTY: true}, want: true},
		{name: "no color env", info: Info{IsTTY: true, NoColor: true}, want: false},
		{name: "flag", info: Info{IsTTY: true, ForceFlag: true}, want: false},
		{name: "pipe", info: Info{}, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.info.ColorEnabled(); got != tt.want {
				t.Errorf("ColorEnabled() = %v, want %v", got, tt.want)
			}
		})
	}
}
