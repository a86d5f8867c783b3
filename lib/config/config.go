// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// EnvironmentVariable names the settings file when --settings is absent.
const EnvironmentVariable = "JAILKEEPER_SETTINGS"

// Config is the daemon configuration.
type Config struct {
	// Paths configures filesystem locations.
	Paths PathsConfig `yaml:"paths"`

	// Logging configures the structured log output.
	Logging LoggingConfig `yaml:"logging"`

	// Timing configures the supervision loop's bounded waits.
	Timing TimingConfig `yaml:"timing"`
}

// PathsConfig configures filesystem locations.
type PathsConfig struct {
	// JailRoot is the jail-storage root. Each jail is built at
	// <JailRoot>/<chroot name>.
	// Default: /var/jail
	JailRoot string `yaml:"jail_root"`

	// RunDir holds the per-jail instance lock files.
	// Default: /var/run/jail
	RunDir string `yaml:"run_dir"`

	// GlobalLock blocks the whole daemon from starting while it exists.
	// Default: /var/lock/subsys/jail
	GlobalLock string `yaml:"global_lock"`

	// LogFile receives JSON logs from the supervisor and its children.
	// Default: /var/log/jail.log
	LogFile string `yaml:"log_file"`

	// MetricsDir, when set, receives a Prometheus textfile per jail.
	MetricsDir string `yaml:"metrics_dir"`
}

// LoggingConfig configures the structured log output.
type LoggingConfig struct {
	// Level is one of debug, info, warn, error.
	// Default: info
	Level string `yaml:"level"`
}

// TimingConfig configures bounded waits.
type TimingConfig struct {
	// ReadyTimeout bounds how long the invoker waits for the supervisor
	// to report readiness.
	// Default: 2s
	ReadyTimeout string `yaml:"ready_timeout"`

	// UnmountRetry is the interval between attempts to unmount a target
	// that refused to detach.
	// Default: 1s
	UnmountRetry string `yaml:"unmount_retry"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Paths: PathsConfig{
			JailRoot:   "/var/jail",
			RunDir:     "/var/run/jail",
			GlobalLock: "/var/lock/subsys/jail",
			LogFile:    "/var/log/jail.log",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
		Timing: TimingConfig{
			ReadyTimeout: "2s",
			UnmountRetry: "1s",
		},
	}
}

// Load loads configuration from the file named by JAILKEEPER_SETTINGS.
// When the variable is unset the defaults are returned.
func Load() (*Config, error) {
	path := os.Getenv(EnvironmentVariable)
	if path == "" {
		return Default(), nil
	}
	return LoadFile(path)
}

// LoadFile loads configuration from a specific file path, on top of the
// defaults.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	cfg.expandVariables()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// expandVariables expands ${VAR} and ${VAR:-default} patterns in paths.
func (c *Config) expandVariables() {
	vars := map[string]string{
		"JAIL_ROOT": c.Paths.JailRoot,
		"RUN_DIR":   c.Paths.RunDir,
	}

	c.Paths.JailRoot = expandVars(c.Paths.JailRoot, vars)
	c.Paths.RunDir = expandVars(c.Paths.RunDir, vars)
	vars["JAIL_ROOT"] = c.Paths.JailRoot
	vars["RUN_DIR"] = c.Paths.RunDir

	c.Paths.GlobalLock = expandVars(c.Paths.GlobalLock, vars)
	c.Paths.LogFile = expandVars(c.Paths.LogFile, vars)
	c.Paths.MetricsDir = expandVars(c.Paths.MetricsDir, vars)
}

var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

func expandVars(s string, vars map[string]string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}

		name := parts[1]
		defaultValue := ""
		if len(parts) >= 3 {
			defaultValue = parts[2]
		}

		// Check provided vars first, then environment.
		if value, ok := vars[name]; ok && value != "" {
			return value
		}
		if value := os.Getenv(name); value != "" {
			return value
		}
		return defaultValue
	})
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []error

	for name, path := range map[string]string{
		"paths.jail_root":   c.Paths.JailRoot,
		"paths.run_dir":     c.Paths.RunDir,
		"paths.global_lock": c.Paths.GlobalLock,
		"paths.log_file":    c.Paths.LogFile,
	} {
		if path == "" {
			errs = append(errs, fmt.Errorf("%s is required", name))
		} else if !filepath.IsAbs(path) {
			errs = append(errs, fmt.Errorf("%s must be absolute, got %q", name, path))
		}
	}
	if c.Paths.MetricsDir != "" && !filepath.IsAbs(c.Paths.MetricsDir) {
		errs = append(errs, fmt.Errorf("paths.metrics_dir must be absolute, got %q", c.Paths.MetricsDir))
	}

	if _, err := c.LogLevel(); err != nil {
		errs = append(errs, err)
	}
	if _, err := c.ReadyTimeout(); err != nil {
		errs = append(errs, err)
	}
	if _, err := c.UnmountRetry(); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

// LogLevel parses Logging.Level.
func (c *Config) LogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Logging.Level)); err != nil {
		return slog.LevelInfo, fmt.Errorf("logging.level: %w", err)
	}
	return level, nil
}

// ReadyTimeout parses Timing.ReadyTimeout.
func (c *Config) ReadyTimeout() (time.Duration, error) {
	return parsePositiveDuration("timing.ready_timeout", c.Timing.ReadyTimeout)
}

// UnmountRetry parses Timing.UnmountRetry.
func (c *Config) UnmountRetry() (time.Duration, error) {
	return parsePositiveDuration("timing.unmount_retry", c.Timing.UnmountRetry)
}

func parsePositiveDuration(name, value string) (time.Duration, error) {
	duration, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", name, err)
	}
	if duration <= 0 {
		return 0, fmt.Errorf("%s must be positive, got %s", name, value)
	}
	return duration, nil
}
