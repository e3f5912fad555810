package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mesos-tools/exttest/internal/config"
	clierrors "github.com/mesos-tools/exttest/internal/errors"
	"github.com/mesos-tools/exttest/internal/output"
	"github.com/mesos-tools/exttest/internal/paths"
)

// configDescriptions documents each key in 'exttest config list'.
var configDescriptions = map[string]string{
	config.KeySourceDir: "Root of the Mesos source tree",
	config.KeyBuildDir:  "Root of the Mesos build tree",
	config.KeyTmpRoot:   "Directory for per-test workspaces",
	config.KeyVerbose:   "Show the scripts' stdout and stderr",
	config.KeyEnvFile:   "Dotenv file with extra variables for the scripts",
}

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration",
		Long:  `View and modify exttest configuration settings.`,
	}

	cmd.AddCommand(newConfigListCmd())
	cmd.AddCommand(newConfigGetCmd())
	cmd.AddCommand(newConfigSetCmd())

	return cmd
}

func newConfigListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all configuration settings",
		Long: `Display every configuration key with its effective value, after applying
the config file, EXTTEST_* environment variables, and global flags.`,
		Example: `  exttest config list
  exttest config list --json`,
		Args: noArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := output.FromContext(cmd.Context())

			cfg := config.Load()
			if err := cfg.BindFlags(cmd.Flags()); err != nil {
				return clierrors.ConfigFailed("read flags", err)
			}

			settings := make(map[string]any, len(config.Keys))
			for _, key := range config.Keys {
				settings[key] = cfg.Get(key)
			}

			if out.JSON {
				return out.PrintJSON(settings)
			}

			for _, key := range config.Keys {
				out.Print("%-10s = %v\n", key, settings[key])
				out.Muted("             %s", configDescriptions[key])
			}

			if file, err := paths.ConfigFile(); err == nil {
				out.Println()
				out.Muted("Config file: %s", file)
			}

			return nil
		},
	}
}

func newConfigGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "get <key>",
		Short:   "Get a configuration value",
		Long:    `Retrieve and display the effective value of a single configuration key.`,
		Example: `  exttest config get source_dir`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := output.FromContext(cmd.Context())
			key := args[0]

			if !config.IsKnownKey(key) {
				return clierrors.UnknownConfigKey(key, config.Keys)
			}

			cfg := config.Load()
			if err := cfg.BindFlags(cmd.Flags()); err != nil {
				return clierrors.ConfigFailed("read flags", err)
			}

			out.Print("%s = %v\n", key, cfg.Get(key))

			return nil
		},
	}
}

func newConfigSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a configuration value",
		Long:  `Set a configuration key to the given value. The value is persisted to the config file.`,
		Example: `  exttest config set source_dir ~/src/mesos
  exttest config set verbose true`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := output.FromContext(cmd.Context())
			key, value := args[0], args[1]

			if !config.IsKnownKey(key) {
				return clierrors.UnknownConfigKey(key, config.Keys)
			}

			var stored any = value

			if key == config.KeyVerbose {
				b, err := parseBool(value)
				if err != nil {
					return clierrors.New(clierrors.ExitUsage, fmt.Sprintf("Invalid value for %s: %q", key, value)).
						WithHint("Use true or false")
				}

				stored = b
			}

			cfg := config.Load()

			if err := cfg.Set(key, stored); err != nil {
				return clierrors.ConfigFailed("set config", err)
			}

			out.Success("Set %s = %v", key, stored)

			return nil
		},
	}
}

func parseBool(s string) (bool, error) {
	switch s {
	case "true", "1", "yes", "on":
		return true, nil
	case "false", "0", "no", "off":
		return false, nil
	default:
		return false, fmt.Errorf("not a boolean: %q", s)
	}
}
