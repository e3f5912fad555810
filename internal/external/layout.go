package external

import (
	"fmt"
	"path/filepath"

	"github.com/joho/godotenv"

	"github.com/mesos-tools/exttest/internal/config"
)

// Environment entries exposed to every external test.
const (
	EnvSourceDir   = "MESOS_SOURCE_DIR"
	EnvBuildDir    = "MESOS_BUILD_DIR"
	EnvWebUIDir    = "MESOS_WEBUI_DIR"
	EnvLauncherDir = "MESOS_LAUNCHER_DIR"
)

// ScriptExt is appended to the test name to form the script file name.
const ScriptExt = ".sh"

// Settings is the configuration the runner consumes.
type Settings struct {
	// SourceDir is the root of the source tree holding the scripts.
	SourceDir string
	// BuildDir is the root of the build tree.
	BuildDir string
	// TmpRoot is where per-invocation workspaces are created.
	TmpRoot string
	// Verbose lets script output through to the caller's streams.
	Verbose bool
	// EnvFile optionally names a dotenv file whose variables are added to
	// every script's environment. The MESOS_* entries win over it.
	EnvFile string
}

// SettingsFromConfig reads Settings from cfg and makes the paths absolute.
func SettingsFromConfig(cfg *config.Config) (Settings, error) {
	return Settings{
		SourceDir: cfg.SourceDir(),
		BuildDir:  cfg.BuildDir(),
		TmpRoot:   cfg.TmpRoot(),
		Verbose:   cfg.Verbose(),
		EnvFile:   cfg.EnvFile(),
	}.Absolute()
}

// Absolute returns a copy of s with every directory made absolute.
func (s Settings) Absolute() (Settings, error) {
	dirs := []struct {
		key string
		val *string
	}{
		{config.KeySourceDir, &s.SourceDir},
		{config.KeyBuildDir, &s.BuildDir},
		{config.KeyTmpRoot, &s.TmpRoot},
	}

	for _, d := range dirs {
		if *d.val == "" {
			return Settings{}, fmt.Errorf("%s is not set", d.key)
		}

		abs, err := filepath.Abs(*d.val)
		if err != nil {
			return Settings{}, fmt.Errorf("resolve %s: %w", d.key, err)
		}

		*d.val = abs
	}

	if s.EnvFile != "" {
		abs, err := filepath.Abs(s.EnvFile)
		if err != nil {
			return Settings{}, fmt.Errorf("resolve %s: %w", config.KeyEnvFile, err)
		}

		s.EnvFile = abs
	}

	return s, nil
}

// ScriptDir returns the directory holding the scripts of every suite.
func ScriptDir(sourceDir string) string {
	return filepath.Join(sourceDir, "src", "tests", "external")
}

// ScriptPath returns the script executed for inv:
// <sourceDir>/src/tests/external/<suite>/<test>.sh.
func ScriptPath(sourceDir string, inv Invocation) string {
	return filepath.Join(ScriptDir(sourceDir), inv.Suite, inv.Test+ScriptExt)
}

// LaunchEnvironment returns the entries set in every external test's
// environment, overriding inherited values of the same name.
func LaunchEnvironment(s Settings) map[string]string {
	return map[string]string{
		EnvSourceDir:   s.SourceDir,
		EnvBuildDir:    s.BuildDir,
		EnvWebUIDir:    filepath.Join(s.SourceDir, "src", "webui"),
		EnvLauncherDir: filepath.Join(s.BuildDir, "src"),
	}
}

// ReadEnvFile parses a dotenv file of extra script variables.
func ReadEnvFile(path string) (map[string]string, error) {
	env, err := godotenv.Read(path)
	if err != nil {
		return nil, fmt.Errorf("read env file: %w", err)
	}

	return env, nil
}
