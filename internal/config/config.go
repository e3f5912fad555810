// Package config handles exttest configuration using Viper.
//
// Configuration sources (in priority order):
//  1. Command-line flags bound with BindFlags
//  2. Environment variables (EXTTEST_*)
//  3. Config file (<user config dir>/exttest/config.yaml)
//  4. Built-in defaults
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/mesos-tools/exttest/internal/paths"
)

// Configuration keys.
const (
	KeySourceDir = "source_dir"
	KeyBuildDir  = "build_dir"
	KeyTmpRoot   = "tmp_root"
	KeyVerbose   = "verbose"
	KeyEnvFile   = "env_file"
)

// DefaultDir is the default source and build directory: the directory the
// tests are launched from.
const DefaultDir = "."

// Keys lists every key exttest understands, in display order.
var Keys = []string{KeySourceDir, KeyBuildDir, KeyTmpRoot, KeyVerbose, KeyEnvFile}

// Config holds the exttest configuration.
type Config struct {
	v *viper.Viper
}

// Load reads configuration from all sources.
func Load() *Config {
	v := viper.New()

	// Set defaults
	v.SetDefault(KeySourceDir, DefaultDir)
	v.SetDefault(KeyBuildDir, DefaultDir)
	v.SetDefault(KeyTmpRoot, paths.DefaultWorkspaceRoot())
	v.SetDefault(KeyVerbose, false)
	v.SetDefault(KeyEnvFile, "")

	// Config file location
	if root, err := paths.ConfigRoot(); err == nil {
		v.AddConfigPath(root)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	// Environment variables
	v.SetEnvPrefix("EXTTEST")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file (ignore if not found, but warn on other errors)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			fmt.Fprintf(os.Stderr, "Warning: error reading config file: %v\n", err)
		}
	}

	return &Config{v: v}
}

// BindFlags binds command-line flags to configuration keys. Flag names are
// the kebab-case form of the key (source_dir -> --source-dir). Flags that
// are not defined on fs are skipped.
func (c *Config) BindFlags(fs *pflag.FlagSet) error {
	for _, key := range Keys {
		flag := fs.Lookup(strings.ReplaceAll(key, "_", "-"))
		if flag == nil {
			continue
		}

		if err := c.v.BindPFlag(key, flag); err != nil {
			return fmt.Errorf("bind flag --%s: %w", flag.Name, err)
		}
	}

	return nil
}

// IsKnownKey reports whether key is a recognized configuration key.
func IsKnownKey(key string) bool {
	return slices.Contains(Keys, key)
}

// Get returns a configuration value.
func (c *Config) Get(key string) interface{} {
	return c.v.Get(key)
}

// GetString returns a configuration value as string.
func (c *Config) GetString(key string) string {
	return c.v.GetString(key)
}

// GetBool returns a configuration value as bool.
func (c *Config) GetBool(key string) bool {
	return c.v.GetBool(key)
}

// Set sets a configuration value and persists it.
func (c *Config) Set(key string, value interface{}) error {
	c.v.Set(key, value)

	configFile, err := paths.ConfigFile()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(configFile), 0o700); err != nil {
		return err
	}

	return c.v.WriteConfigAs(configFile)
}

// All returns all configuration as a map.
func (c *Config) All() map[string]interface{} {
	return c.v.AllSettings()
}

// SourceDir returns the configured source tree root.
func (c *Config) SourceDir() string {
	return c.GetString(KeySourceDir)
}

// BuildDir returns the configured build tree root.
func (c *Config) BuildDir() string {
	return c.GetString(KeyBuildDir)
}

// TmpRoot returns the directory under which test workspaces are created.
func (c *Config) TmpRoot() string {
	return c.GetString(KeyTmpRoot)
}

// Verbose reports whether external test output should reach the terminal.
func (c *Config) Verbose() bool {
	return c.GetBool(KeyVerbose)
}

// EnvFile returns the dotenv file of extra script variables, or "".
func (c *Config) EnvFile() string {
	return c.GetString(KeyEnvFile)
}
