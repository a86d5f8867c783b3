// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package privilege

import (
	"errors"
	"fmt"
	"log/slog"
	"syscall"
)

// LaunchError is a fatal failure of one launch step.
type LaunchError struct {
	Step string
	Err  error
}

func (e *LaunchError) Error() string {
	var errno syscall.Errno
	if errors.As(e.Err, &errno) {
		return fmt.Sprintf("launch %s: %v (errno %d)", e.Step, e.Err, int(errno))
	}
	return fmt.Sprintf("launch %s: %v", e.Step, e.Err)
}

func (e *LaunchError) Unwrap() error {
	return e.Err
}

// Launch applies plan through sys and execs the target. It returns only
// on failure; every returned error is a *LaunchError.
func Launch(sys System, plan Plan, logger *slog.Logger) error {
	for _, limit := range plan.Limits {
		if err := sys.SetRlimit(limit.Resource, limit.Value); err != nil {
			return &LaunchError{Step: "rlimit " + limit.Name, Err: err}
		}
	}

	for _, rejected := range plan.Rejected {
		logger.Error("capability rejected", "error", rejected)
	}
	if err := sys.SetCapabilities(plan.SetupCapabilities()); err != nil {
		return &LaunchError{Step: "capabilities", Err: err}
	}
	if plan.WriteFileCapabilities && len(plan.Accepted) > 0 {
		if err := sys.SetFileCapabilities(plan.Executable, plan.Accepted); err != nil {
			logger.Warn("cannot set file capabilities",
				"executable", plan.Executable, "capabilities", plan.FileCapabilityText(), "error", err)
		}
	}

	if err := sys.ChangeIdentity(plan.UID, plan.GID, plan.SetupCapabilities()); err != nil {
		return &LaunchError{Step: "identity", Err: err}
	}

	final := plan.FinalCapabilities()
	if err := sys.SetCapabilities(final); err != nil {
		return &LaunchError{Step: "capability drop", Err: err}
	}
	if err := sys.RaiseAmbient(final); err != nil {
		return &LaunchError{Step: "ambient capabilities", Err: err}
	}
	if err := sys.SetKeepCapabilities(true); err != nil {
		return &LaunchError{Step: "keep capabilities", Err: err}
	}

	sys.Umask(plan.Umask)

	if plan.ApplyNice {
		if err := sys.Nice(plan.Nice); err != nil {
			logger.Warn("cannot apply nice", "delta", plan.Nice, "error", err)
		}
	}

	logger.Info("executing target",
		"executable", plan.Executable,
		"argv", plan.Argv,
		"uid", plan.UID,
		"gid", plan.GID,
		"capabilities", plan.FileCapabilityText(),
	)
	if err := sys.Exec(plan.Executable, plan.Argv, plan.Environment); err != nil {
		return &LaunchError{Step: "exec " + plan.Executable, Err: err}
	}
	return nil
}
