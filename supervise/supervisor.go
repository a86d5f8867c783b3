// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package supervise

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"

	"golang.org/x/sys/unix"

	"github.com/bureau-foundation/jailkeeper/lib/clock"
	"github.com/bureau-foundation/jailkeeper/lib/handshake"
	"github.com/bureau-foundation/jailkeeper/lib/jailspec"
)

// Destroyer tears a jail down. *jail.Engine implements it.
type Destroyer interface {
	Destroy(ctx context.Context, spec jailspec.JailSpec) error
	Root(spec jailspec.JailSpec) (string, error)
}

// Rebooter is asked to reboot the host when supervision of a
// RebootOnDie jail ends without SIGTERM.
type Rebooter interface {
	Reboot(ctx context.Context, reason string) error
}

// LogRebooter records the reboot request and does nothing else.
type LogRebooter struct {
	Logger *slog.Logger
}

func (r LogRebooter) Reboot(ctx context.Context, reason string) error {
	r.Logger.Warn("reboot requested", "reason", reason)
	return nil
}

// Config configures a Supervisor.
type Config struct {
	// Load produces the spec at the start of every iteration.
	Load LoadFunc

	// RunDir holds the instance lock files.
	RunDir string

	// StartKeeper starts the keeper for one iteration.
	StartKeeper StartKeeperFunc

	// Destroyer tears the jail down after the keeper exits.
	Destroyer Destroyer

	// Rebooter defaults to LogRebooter.
	Rebooter Rebooter

	// Metrics defaults to a fresh NewMetrics.
	Metrics *Metrics

	// MetricsDir, when set, receives a textfile after every iteration.
	MetricsDir string

	// Clock defaults to the real clock.
	Clock clock.Clock

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// Supervisor is the restart loop around one jail document.
type Supervisor struct {
	load        LoadFunc
	runDir      string
	startKeeper StartKeeperFunc
	destroyer   Destroyer
	rebooter    Rebooter
	metrics     *Metrics
	metricsDir  string
	clock       clock.Clock
	logger      *slog.Logger

	terminated atomic.Bool
}

// New returns a Supervisor for config.
func New(config Config) (*Supervisor, error) {
	if config.Load == nil {
		return nil, errors.New("supervisor requires a Load function")
	}
	if config.StartKeeper == nil {
		return nil, errors.New("supervisor requires a StartKeeper function")
	}
	if config.Destroyer == nil {
		return nil, errors.New("supervisor requires a Destroyer")
	}
	if config.RunDir == "" {
		return nil, errors.New("supervisor requires a run directory")
	}

	s := &Supervisor{
		load:        config.Load,
		runDir:      config.RunDir,
		startKeeper: config.StartKeeper,
		destroyer:   config.Destroyer,
		rebooter:    config.Rebooter,
		metrics:     config.Metrics,
		metricsDir:  config.MetricsDir,
		clock:       config.Clock,
		logger:      config.Logger,
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.rebooter == nil {
		s.rebooter = LogRebooter{Logger: s.logger}
	}
	if s.metrics == nil {
		s.metrics = NewMetrics()
	}
	if s.clock == nil {
		s.clock = clock.Real()
	}
	return s, nil
}

// Terminate stops the loop after the current iteration. Safe to call
// from any goroutine.
func (s *Supervisor) Terminate() {
	s.terminated.Store(true)
}

// Terminated reports whether Terminate has been called.
func (s *Supervisor) Terminated() bool {
	return s.terminated.Load()
}

// Detach prepares the process to run as a daemon: job-control and
// hangup signals are ignored, the umask is cleared, and SIGTERM calls
// Terminate. The returned function stops the SIGTERM watch.
func (s *Supervisor) Detach() (stop func()) {
	signal.Ignore(syscall.SIGTSTP, syscall.SIGTTOU, syscall.SIGTTIN, syscall.SIGHUP)
	unix.Umask(0)

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGTERM)
	done := make(chan struct{})
	go func() {
		for {
			select {
			case <-signals:
				s.logger.Info("SIGTERM received, stopping after the current iteration")
				s.Terminate()
			case <-done:
				return
			}
		}
	}()
	return func() {
		signal.Stop(signals)
		close(done)
	}
}

// Run loops until the restart policy, a rejected document, or Terminate
// ends supervision. The current iteration always runs to completion,
// teardown included.
func (s *Supervisor) Run(ctx context.Context) error {
	var last jailspec.JailSpec
	loaded := false

	for {
		spec, restart, err := s.iterate(ctx)
		if err == nil {
			last, loaded = spec, true
		}
		if s.Terminated() {
			s.logger.Info("terminated, not restarting")
			break
		}
		if !restart {
			break
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		s.logger.Info("restarting jail", "jail", spec.ChrootName)
	}

	if loaded && last.Restart.RebootOnDie && !s.Terminated() {
		reason := fmt.Sprintf("jail %s ended", last.ChrootName)
		if err := s.rebooter.Reboot(ctx, reason); err != nil {
			return fmt.Errorf("requesting reboot: %w", err)
		}
	}
	return nil
}

// iterate runs one lock → keeper → teardown → unlock cycle. It returns
// the spec it ran, whether the loop should go on, and a non-nil error
// when no spec could be loaded.
func (s *Supervisor) iterate(ctx context.Context) (jailspec.JailSpec, bool, error) {
	spec, err := s.load()
	if err != nil {
		s.logger.Error("jail document rejected, supervision stops", "error", err)
		return jailspec.JailSpec{}, false, err
	}
	logger := s.logger.With("jail", spec.ChrootName)

	start := s.clock.Now()
	s.metrics.iterationStarted(spec.ChrootName)
	defer func() {
		s.metrics.iterationFinished(spec.ChrootName, clock.Since(s.clock, start))
		s.writeMetrics(logger, spec.ChrootName)
	}()

	lock, err := AcquireInstance(s.runDir, spec.ChrootName)
	if err != nil {
		if errors.Is(err, ErrAlreadyRunning) {
			s.metrics.refused(spec.ChrootName)
			logger.Error("already running", "error", err)
		} else {
			logger.Error("cannot take instance lock", "error", err)
		}
		return spec, false, nil
	}

	s.runKeeper(logger, spec, lock)

	if err := s.destroyer.Destroy(ctx, spec); err != nil {
		logger.Error("jail teardown incomplete", "error", err)
	}
	if err := lock.Release(); err != nil {
		logger.Error("cannot release instance lock", "error", err)
	}
	return spec, spec.Restart.NeverDie, nil
}

func (s *Supervisor) runKeeper(logger *slog.Logger, spec jailspec.JailSpec, lock *InstanceLock) {
	keeper, err := s.startKeeper(spec)
	if err != nil {
		s.metrics.constructionFailed(spec.ChrootName)
		logger.Error("cannot start keeper", "error", err)
		return
	}
	logger = logger.With("keeper_pid", keeper.PID())

	record, err := keeper.Launched()
	if err != nil {
		s.metrics.constructionFailed(spec.ChrootName)
		logger.Error("keeper failed before launching the target", "error", err)
	} else {
		if record.KeeperPID != keeper.PID() {
			logger.Warn("launch record from an unexpected keeper", "record_keeper_pid", record.KeeperPID)
		}
		root, _ := s.destroyer.Root(spec)
		instance := handshake.InstanceRecord{
			ChrootName:    spec.ChrootName,
			JailRoot:      root,
			Executable:    spec.Name,
			SupervisorPID: os.Getpid(),
			KeeperPID:     record.KeeperPID,
			KeeperPPID:    record.KeeperPPID,
			TargetPID:     record.TargetPID,
			Digest:        record.Digest,
			Started:       s.clock.Now(),
		}
		if err := lock.Record(instance); err != nil {
			logger.Warn("cannot persist instance record", "error", err)
		}
		logger.Info("jail running", "target_pid", record.TargetPID, "digest", record.Digest.String())
	}

	status, err := keeper.Wait()
	if err != nil {
		logger.Error("waiting for keeper", "error", err)
	}
	s.metrics.exited(spec.ChrootName, status)
	logger.Info("keeper exited", "status", status)
}

func (s *Supervisor) writeMetrics(logger *slog.Logger, chrootName string) {
	if s.metricsDir == "" {
		return
	}
	if err := s.metrics.WriteTextfile(s.metricsDir, chrootName); err != nil {
		logger.Warn("cannot write metrics textfile", "error", err)
	}
}
