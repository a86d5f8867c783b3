// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package supervise

import (
	"io"
	"log/slog"
	"os"
	"os/exec"

	"github.com/bureau-foundation/jailkeeper/jail"
	"github.com/bureau-foundation/jailkeeper/lib/handshake"
	"github.com/bureau-foundation/jailkeeper/lib/jailspec"
	"github.com/bureau-foundation/jailkeeper/lib/process"
	"github.com/bureau-foundation/jailkeeper/privilege"
)

// KeeperConfig configures the keeper role.
type KeeperConfig struct {
	// Engine builds the jail.
	Engine *jail.Engine

	// StartLauncher starts the launcher for spec. It runs after the
	// chroot.
	StartLauncher func(spec jailspec.JailSpec) (*exec.Cmd, error)

	Logger *slog.Logger
}

// RunKeeper is the keeper role. It reads the spec from specFile, builds
// the jail and chroots into it, starts the launcher, sends the launch
// record on channel, and waits for the target. It returns the target's
// exit status, or ExitFatal if the target never started.
//
// On failure the keeper leaves the jail as it is: the supervisor tears
// it down after reaping the keeper.
func RunKeeper(config KeeperConfig, specFile io.Reader, channel io.WriteCloser) int {
	logger := config.Logger
	defer channel.Close()

	var spec jailspec.JailSpec
	if err := handshake.Receive(specFile, &spec); err != nil {
		logger.Error("cannot read jail spec", "error", err)
		return process.ExitFatal
	}
	logger = logger.With("jail", spec.ChrootName)

	result, err := config.Engine.Construct(spec)
	if err != nil {
		logger.Error("jail construction failed", "error", err)
		return process.ExitFatal
	}

	launcher, err := config.StartLauncher(spec)
	if err != nil {
		logger.Error("cannot start launcher", "error", err)
		return process.ExitFatal
	}

	record := handshake.LaunchRecord{
		TargetPID:  launcher.Process.Pid,
		KeeperPID:  os.Getpid(),
		KeeperPPID: os.Getppid(),
		Digest:     result.Digest,
	}
	if err := handshake.Send(channel, record); err != nil {
		// The target is already running; losing the record only costs
		// the supervisor its instance record.
		logger.Warn("cannot send launch record", "error", err)
	}
	logger.Info("target started", "target_pid", record.TargetPID, "digest", result.Digest.String())

	status, err := exitStatus(launcher.Wait())
	if err != nil {
		logger.Error("waiting for target", "error", err)
	}
	logger.Info("target exited", "target_pid", record.TargetPID, "status", status)
	return status
}

// RunLauncher is the launch role. It reads the spec from specFile,
// drops privilege through sys, and execs the target. It returns only on
// failure, with ExitFatal.
func RunLauncher(sys privilege.System, specFile io.Reader, logger *slog.Logger) int {
	var spec jailspec.JailSpec
	if err := handshake.Receive(specFile, &spec); err != nil {
		logger.Error("cannot read jail spec", "error", err)
		return process.ExitFatal
	}

	plan := privilege.NewPlan(spec)
	err := privilege.Launch(sys, plan, logger.With("jail", spec.ChrootName))
	logger.Error("launch failed", "jail", spec.ChrootName, "error", err)
	return process.ExitFatal
}
