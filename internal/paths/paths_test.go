package paths

import (
	"path/filepath"
	"runtime"
	"testing"
)

func TestConfigRoot_UsesXDGConfigHome(t *testing.T) {
	tmp := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", tmp)

	got, err := ConfigRoot()
	if err != nil {
		t.Fatalf("ConfigRoot() error = %v", err)
	}

	want := filepath.Join(tmp, "exttest")
	if got != want {
		t.Fatalf("ConfigRoot() = %q, want %q", got, want)
	}
}

func TestConfigRoot_IgnoresRelativeXDG(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("XDG_CONFIG_HOME", "relative/dir")

	got, err := ConfigRoot()
	if err != nil {
		t.Fatalf("ConfigRoot() error = %v", err)
	}

	if !filepath.IsAbs(got) {
		t.Fatalf("ConfigRoot() = %q, want an absolute path", got)
	}
}

func TestStateRoot_FallsBackToHome(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("XDG_STATE_HOME", "")

	got, err := StateRoot()
	if err != nil {
		t.Fatalf("StateRoot() error = %v", err)
	}

	want := filepath.Join(home, ".local", "state", "exttest")
	if got != want {
		t.Fatalf("StateRoot() = %q, want %q", got, want)
	}
}

func TestDerivedPaths(t *testing.T) {
	cfg := t.TempDir()
	state := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", cfg)
	t.Setenv("XDG_STATE_HOME", state)

	logFile, err := DefaultLogFile()
	if err != nil {
		t.Fatalf("DefaultLogFile() error = %v", err)
	}

	wantLog := filepath.Join(state, "exttest", "logs", "exttest.log")
	if logFile != wantLog {
		t.Fatalf("DefaultLogFile() = %q, want %q", logFile, wantLog)
	}

	configFile, err := ConfigFile()
	if err != nil {
		t.Fatalf("ConfigFile() error = %v", err)
	}

	wantConfig := filepath.Join(cfg, "exttest", "config.yaml")
	if configFile != wantConfig {
		t.Fatalf("ConfigFile() = %q, want %q", configFile, wantConfig)
	}

	history, err := HistoryDir()
	if err != nil {
		t.Fatalf("HistoryDir() error = %v", err)
	}

	if want := filepath.Join(state, "exttest", "history"); history != want {
		t.Fatalf("HistoryDir() = %q, want %q", history, want)
	}
}

func TestDefaultWorkspaceRoot_FollowsTMPDIR(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("TMPDIR is not consulted on windows")
	}

	tmp := t.TempDir()
	t.Setenv("TMPDIR", tmp)

	if got := DefaultWorkspaceRoot(); got != tmp {
		t.Fatalf("DefaultWorkspaceRoot() = %q, want %q", got, tmp)
	}
}
