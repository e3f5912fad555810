package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mesos-tools/exttest/internal/config"
	clierrors "github.com/mesos-tools/exttest/internal/errors"
	"github.com/mesos-tools/exttest/internal/external"
	"github.com/mesos-tools/exttest/internal/manifest"
)

var errNotDirectory = errors.New("not a directory")

// loadSettings resolves runner settings from flags, EXTTEST_* variables,
// the config file, and defaults, in that order.
func loadSettings(cmd *cobra.Command) (external.Settings, error) {
	cfg := config.Load()

	if err := cfg.BindFlags(cmd.Flags()); err != nil {
		return external.Settings{}, clierrors.ConfigFailed("read flags", err)
	}

	settings, err := external.SettingsFromConfig(cfg)
	if err != nil {
		return external.Settings{}, clierrors.Wrap(clierrors.ExitConfig, "Invalid settings", err).
			WithHint("Run 'exttest config list' to see the effective configuration")
	}

	return settings, nil
}

// requireSourceDir fails early when the source tree is missing, instead of
// reporting every script as unlaunchable.
func requireSourceDir(settings external.Settings) error {
	info, err := os.Stat(settings.SourceDir)
	if err != nil {
		return clierrors.SourceDirInvalid(settings.SourceDir, err)
	}

	if !info.IsDir() {
		return clierrors.SourceDirInvalid(settings.SourceDir, errNotDirectory)
	}

	return nil
}

func loadManifest(path string) (*manifest.Manifest, error) {
	m, err := manifest.Load(path)
	if err != nil {
		return nil, clierrors.ManifestInvalid(path, err)
	}

	return m, nil
}

// addManifestFlag registers --manifest on cmd.
func addManifestFlag(cmd *cobra.Command, target *string) {
	cmd.Flags().StringVarP(target, "manifest", "m", "", "YAML or TOML file listing suites and tests")
}

func errManifestRequired(cmd *cobra.Command) error {
	return &clierrors.CLIError{
		Message: fmt.Sprintf("'%s' needs --manifest", cmd.CommandPath()),
		Hint:    fmt.Sprintf("Run '%s --manifest tests.yaml'", cmd.CommandPath()),
		Code:    clierrors.ExitUsage,
	}
}
