// SPDX-License-Identifier: MPL-2.0

// Package config loads the tool configuration: a config.cue file validated
// against an embedded schema and merged into viper on top of defaults.
// Router hosts usually carry their config in /etc/capctl; workstations use
// the XDG config directory.
package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"

	"capctl/pkg/cueschema"
)

const (
	// AppName is the application name, used for config directory layout.
	AppName = "capctl"

	// ConfigFileName is the config file name.
	ConfigFileName = "config.cue"

	// SystemConfigDir is the host-level config location, the usual home on
	// a provisioned router.
	SystemConfigDir = "/etc/capctl"
)

//go:embed config_schema.cue
var configSchema string

// Config is the decoded tool configuration.
type Config struct {
	// CapabilityRoot is the directory holding capability subdirectories.
	CapabilityRoot string `mapstructure:"capability_root"`

	// ActivationPolicy is "abort" or "continue".
	ActivationPolicy string `mapstructure:"activation_policy"`

	// Runner selects the setup-script runner: "native" or "virtual".
	Runner string `mapstructure:"runner"`

	// LogLevel is one of error, warn, info, debug.
	LogLevel string `mapstructure:"log_level"`

	// Serve configures the read-only SSH status server.
	Serve ServeConfig `mapstructure:"serve"`
}

// ServeConfig configures `capctl serve`.
type ServeConfig struct {
	// Address is the listen address, host:port.
	Address string `mapstructure:"address"`

	// HostKeyPath is the SSH host key location; generated when absent.
	HostKeyPath string `mapstructure:"host_key_path"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		CapabilityRoot:   ".",
		ActivationPolicy: "abort",
		Runner:           "native",
		LogLevel:         "info",
		Serve: ServeConfig{
			Address:     "localhost:2223",
			HostKeyPath: filepath.Join(SystemConfigDir, "ssh_host_key"),
		},
	}
}

// Load reads the configuration. A non-empty path is used exclusively and
// must exist; otherwise the first of $XDG_CONFIG_HOME/capctl/config.cue
// (falling back to ~/.config) and /etc/capctl/config.cue is used, and
// defaults apply when neither exists.
func Load(path string) (*Config, error) {
	v := viper.New()

	defaults := Default()
	v.SetDefault("capability_root", defaults.CapabilityRoot)
	v.SetDefault("activation_policy", defaults.ActivationPolicy)
	v.SetDefault("runner", defaults.Runner)
	v.SetDefault("log_level", defaults.LogLevel)
	v.SetDefault("serve.address", defaults.Serve.Address)
	v.SetDefault("serve.host_key_path", defaults.Serve.HostKeyPath)

	resolved, err := resolvePath(path)
	if err != nil {
		return nil, err
	}
	if resolved != "" {
		if err := mergeCUE(v, resolved); err != nil {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	return &cfg, nil
}

func resolvePath(path string) (string, error) {
	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return "", fmt.Errorf("config file %s: %w", path, err)
		}
		return path, nil
	}

	if userDir, err := UserConfigDir(); err == nil {
		candidate := filepath.Join(userDir, ConfigFileName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
	}

	candidate := filepath.Join(SystemConfigDir, ConfigFileName)
	if _, err := os.Stat(candidate); err == nil {
		return candidate, nil
	}

	return "", nil
}

// UserConfigDir returns the per-user config directory,
// $XDG_CONFIG_HOME/capctl or ~/.config/capctl.
func UserConfigDir() (string, error) {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, AppName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, ".config", AppName), nil
}

// mergeCUE validates a config.cue file against the #Config schema and merges
// it into viper.
func mergeCUE(v *viper.Viper, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file %s: %w", path, err)
	}

	m, err := cueschema.DecodeMap(configSchema, data, "#Config", path)
	if err != nil {
		return err
	}
	if err := v.MergeConfigMap(m); err != nil {
		return fmt.Errorf("merge config %s: %w", path, err)
	}
	return nil
}
