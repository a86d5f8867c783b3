// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/bureau-foundation/jailkeeper/jail"
	"github.com/bureau-foundation/jailkeeper/lib/clock"
	"github.com/bureau-foundation/jailkeeper/lib/config"
	"github.com/bureau-foundation/jailkeeper/lib/jailspec"
	"github.com/bureau-foundation/jailkeeper/lib/process"
	"github.com/bureau-foundation/jailkeeper/privilege"
	"github.com/bureau-foundation/jailkeeper/supervise"
)

// invoke is the default role: validate, check the global lock, and
// start the supervisor.
func invoke(opts *options, cfg *config.Config) error {
	level, _ := cfg.LogLevel()
	logger := invokerLogger(level)

	if opts.inspect != "" {
		return statusError(inspect(os.Stdout, cfg.Paths.RunDir, opts.inspect))
	}
	if len(opts.positional) < 1 || len(opts.positional) > 2 {
		return fmt.Errorf("expected CONFIG [first-run], got %d arguments (see --help)", len(opts.positional))
	}
	documentPath, err := filepath.Abs(opts.positional[0])
	if err != nil {
		return fmt.Errorf("resolving %s: %w", opts.positional[0], err)
	}
	if opts.check {
		return statusError(check(os.Stdout, documentPath, cfg))
	}

	if os.Geteuid() != 0 {
		return errors.New("jailkeeper must run as root")
	}
	firstRun := len(opts.positional) == 2
	if err := supervise.CheckGlobalLock(cfg.Paths.GlobalLock, firstRun); err != nil {
		return err
	}
	spec, err := supervise.DocumentLoader(documentPath, nil, logger)()
	if err != nil {
		return err
	}
	executable, err := os.Executable()
	if err != nil {
		return fmt.Errorf("locating own executable: %w", err)
	}
	if err := jail.CheckLauncher(executable, spec); err != nil {
		return err
	}
	if err := os.MkdirAll(cfg.Paths.RunDir, 0755); err != nil {
		return fmt.Errorf("creating run directory: %w", err)
	}

	if opts.foreground {
		return statusError(supervisorLoop(logger, documentPath, opts, cfg, nil))
	}

	timeout, _ := cfg.ReadyTimeout()
	reexec := supervise.Reexec{Args: childArgs(opts, cfg)}
	pid, err := reexec.Daemonize(clock.Real(), timeout, documentPath)
	if err != nil {
		return err
	}
	logger.Info("supervisor started", "document", documentPath, "pid", pid, "log_file", cfg.Paths.LogFile)
	return nil
}

// superviseRole runs in the daemonized supervisor.
func superviseRole(opts *options, cfg *config.Config) int {
	logFile, err := openLogFile(cfg.Paths.LogFile)
	if err != nil {
		process.Fatal(err)
	}
	defer logFile.Close()
	level, _ := cfg.LogLevel()
	logger := roleLogger(logFile, level, supervise.RoleSupervise)

	if len(opts.positional) != 1 {
		process.Die(logger, "supervisor expects exactly one jail document", "arguments", opts.positional)
	}
	ready, err := supervise.InheritedFile(supervise.ReadyFD, "ready")
	if err != nil {
		process.Die(logger, "no readiness pipe", "error", err)
	}
	return supervisorLoop(logger, opts.positional[0], opts, cfg, ready)
}

// supervisorLoop runs the restart loop. ready, when non-nil, receives
// the readiness record once signals are in place.
func supervisorLoop(logger *slog.Logger, documentPath string, opts *options, cfg *config.Config, ready *os.File) int {
	engine, err := newEngine(cfg, logger)
	if err != nil {
		process.Die(logger, "cannot create jail engine", "error", err)
	}
	reexec := supervise.Reexec{Args: childArgs(opts, cfg)}
	supervisor, err := supervise.New(supervise.Config{
		Load:        supervise.DocumentLoader(documentPath, nil, logger),
		RunDir:      cfg.Paths.RunDir,
		StartKeeper: reexec.StartKeeper,
		Destroyer:   engine,
		MetricsDir:  cfg.Paths.MetricsDir,
		Logger:      logger,
	})
	if err != nil {
		process.Die(logger, "cannot create supervisor", "error", err)
	}

	stop := supervisor.Detach()
	defer stop()
	if ready != nil {
		if err := supervise.SignalReady(ready); err != nil {
			logger.Warn("cannot signal readiness", "error", err)
		}
	}

	logger.Info("supervising", "document", documentPath)
	if err := supervisor.Run(context.Background()); err != nil {
		logger.Error("supervision ended with an error", "error", err)
		return process.ExitFatal
	}
	logger.Info("supervision ended")
	return process.ExitOK
}

func newEngine(cfg *config.Config, logger *slog.Logger) (*jail.Engine, error) {
	retry, err := cfg.UnmountRetry()
	if err != nil {
		return nil, err
	}
	return jail.New(jail.Config{
		StorageRoot:  cfg.Paths.JailRoot,
		UnmountRetry: retry,
		Logger:       logger,
	})
}

// keeperRole runs in the keeper child.
func keeperRole(opts *options, cfg *config.Config) int {
	logFile, err := openLogFile(cfg.Paths.LogFile)
	if err != nil {
		process.Fatal(err)
	}
	defer logFile.Close()
	level, _ := cfg.LogLevel()
	logger := roleLogger(logFile, level, supervise.RoleKeeper)

	specFile, err := supervise.InheritedFile(supervise.SpecFD, "spec")
	if err != nil {
		process.Die(logger, "no spec pipe", "error", err)
	}
	channel, err := supervise.InheritedFile(supervise.ChannelFD, "channel")
	if err != nil {
		process.Die(logger, "no launch channel", "error", err)
	}
	engine, err := newEngine(cfg, logger)
	if err != nil {
		process.Die(logger, "cannot create jail engine", "error", err)
	}

	var launcherArgs []string
	if opts.debug {
		launcherArgs = append(launcherArgs, "--debug")
	}
	launcher := supervise.Reexec{Args: launcherArgs}
	return supervise.RunKeeper(supervise.KeeperConfig{
		Engine: engine,
		StartLauncher: func(spec jailspec.JailSpec) (*exec.Cmd, error) {
			return launcher.StartLauncher(spec, logFile)
		},
		Logger: logger,
	}, specFile, channel)
}

// launchRole runs in the launcher grandchild, inside the jail.
func launchRole(opts *options) int {
	level := slog.LevelInfo
	if opts.debug {
		level = slog.LevelDebug
	}
	var logger *slog.Logger
	if logFile, err := supervise.InheritedFile(supervise.LogFD, "log"); err == nil {
		logger = roleLogger(logFile, level, supervise.RoleLaunch)
	} else {
		logger = newLogger(os.Stderr, level, true)
	}

	specFile, err := supervise.InheritedFile(supervise.SpecFD, "spec")
	if err != nil {
		process.Die(logger, "no spec pipe", "error", err)
	}
	return supervise.RunLauncher(privilege.KernelSystem{}, specFile, logger)
}
