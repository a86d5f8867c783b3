// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package process

import (
	"fmt"
	"log/slog"
	"os"
	"syscall"
)

const (
	// ExitOK is the status of a graceful shutdown.
	ExitOK = 0

	// ExitFatal is the status of any fatal precondition or step.
	ExitFatal = 1
)

// exit is replaced in tests.
var exit = os.Exit

// Fatal writes "error: err" to stderr and exits with ExitFatal. Use it
// in main() when the structured logger may not be initialized.
func Fatal(err error) {
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	exit(ExitFatal)
}

// Die logs msg at error level with the given attributes and exits with
// ExitFatal. It is the in-role replacement for Fatal once a logger is
// available.
func Die(logger *slog.Logger, msg string, args ...any) {
	logger.Error(msg, args...)
	exit(ExitFatal)
}

// StatusCode folds a wait status into a single exit code: the exit
// status for a normal exit, 128+signal for a signal death.
func StatusCode(status syscall.WaitStatus) int {
	switch {
	case status.Exited():
		return status.ExitStatus()
	case status.Signaled():
		return 128 + int(status.Signal())
	default:
		return ExitFatal
	}
}
