// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/jailkeeper/lib/config"
)

// options are the parsed command line.
type options struct {
	settings   string
	jailRoot   string
	runDir     string
	globalLock string
	logFile    string
	metricsDir string
	debug      bool
	foreground bool
	check      bool
	inspect    string
	version    bool
	role       string

	positional []string
}

func parseFlags(args []string) (*options, *pflag.FlagSet, error) {
	opts := &options{}
	defaults := config.Default()

	flagSet := pflag.NewFlagSet("jailkeeper", pflag.ContinueOnError)
	flagSet.StringVar(&opts.settings, "settings", "", "daemon settings file (YAML); defaults to $"+config.EnvironmentVariable)
	flagSet.StringVar(&opts.jailRoot, "jail-root", defaults.Paths.JailRoot, "directory jails are built under")
	flagSet.StringVar(&opts.runDir, "run-dir", defaults.Paths.RunDir, "directory holding per-jail instance locks")
	flagSet.StringVar(&opts.globalLock, "global-lock", defaults.Paths.GlobalLock, "lock file that blocks startup while present")
	flagSet.StringVar(&opts.logFile, "log-file", defaults.Paths.LogFile, "JSON log file for the supervisor and its children")
	flagSet.StringVar(&opts.metricsDir, "metrics-dir", "", "write a Prometheus textfile per jail to this directory")
	flagSet.BoolVar(&opts.debug, "debug", false, "log at debug level")
	flagSet.BoolVar(&opts.foreground, "foreground", false, "supervise in the foreground instead of daemonizing")
	flagSet.BoolVar(&opts.check, "check", false, "validate CONFIG and the host, print the results, and exit")
	flagSet.StringVar(&opts.inspect, "inspect", "", "report the capability sets of the running jail `NAME` and exit")
	flagSet.BoolVar(&opts.version, "version", false, "print version information and exit")
	flagSet.StringVar(&opts.role, "role", "", "process-tree role (internal)")
	flagSet.MarkHidden("role")
	flagSet.BoolP("help", "h", false, "show help")

	if err := flagSet.Parse(args); err != nil {
		return nil, flagSet, err
	}
	if help, _ := flagSet.GetBool("help"); help {
		return nil, flagSet, pflag.ErrHelp
	}
	opts.positional = flagSet.Args()
	return opts, flagSet, nil
}

// resolveConfig layers defaults, the settings file, and explicitly set
// flags, in that order.
func resolveConfig(opts *options, flagSet *pflag.FlagSet) (*config.Config, error) {
	var cfg *config.Config
	var err error
	if opts.settings != "" {
		cfg, err = config.LoadFile(opts.settings)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, err
	}

	overrides := []struct {
		flag   string
		target *string
		value  string
	}{
		{"jail-root", &cfg.Paths.JailRoot, opts.jailRoot},
		{"run-dir", &cfg.Paths.RunDir, opts.runDir},
		{"global-lock", &cfg.Paths.GlobalLock, opts.globalLock},
		{"log-file", &cfg.Paths.LogFile, opts.logFile},
		{"metrics-dir", &cfg.Paths.MetricsDir, opts.metricsDir},
	}
	for _, override := range overrides {
		if flagSet.Changed(override.flag) {
			*override.target = override.value
		}
	}
	if opts.debug {
		cfg.Logging.Level = slog.LevelDebug.String()
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid settings: %w", err)
	}
	return cfg, nil
}

// childArgs is the command line every re-executed role receives ahead
// of its --role flag: the resolved settings, spelled out as flags.
func childArgs(opts *options, cfg *config.Config) []string {
	args := []string{
		"--jail-root=" + cfg.Paths.JailRoot,
		"--run-dir=" + cfg.Paths.RunDir,
		"--global-lock=" + cfg.Paths.GlobalLock,
		"--log-file=" + cfg.Paths.LogFile,
	}
	if cfg.Paths.MetricsDir != "" {
		args = append(args, "--metrics-dir="+cfg.Paths.MetricsDir)
	}
	if opts.settings != "" {
		settings, err := filepath.Abs(opts.settings)
		if err == nil {
			args = append(args, "--settings="+settings)
		}
	}
	if level, err := cfg.LogLevel(); err == nil && level <= slog.LevelDebug {
		args = append(args, "--debug")
	}
	return args
}
