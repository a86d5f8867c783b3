// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package process

import (
	"errors"
	"io"
	"log/slog"
	"syscall"
	"testing"
)

func TestFatalExitsWithFatalStatus(t *testing.T) {
	var code int
	original := exit
	exit = func(c int) { code = c }
	t.Cleanup(func() { exit = original })

	Fatal(errors.New("boom"))
	if code != ExitFatal {
		t.Errorf("Fatal exit code = %d, want %d", code, ExitFatal)
	}

	code = -1
	Die(slog.New(slog.NewTextHandler(io.Discard, nil)), "step failed", "step", "chroot")
	if code != ExitFatal {
		t.Errorf("Die exit code = %d, want %d", code, ExitFatal)
	}
}

func TestStatusCode(t *testing.T) {
	tests := []struct {
		name   string
		status syscall.WaitStatus
		want   int
	}{
		// Linux wait status layout: exit code in bits 8-15, signal in 0-6.
		{"clean exit", syscall.WaitStatus(0), 0},
		{"exit 3", syscall.WaitStatus(3 << 8), 3},
		{"killed by SIGKILL", syscall.WaitStatus(syscall.SIGKILL), 128 + 9},
		{"killed by SIGTERM", syscall.WaitStatus(syscall.SIGTERM), 128 + 15},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if got := StatusCode(test.status); got != test.want {
				t.Errorf("StatusCode(%#x) = %d, want %d", uint32(test.status), got, test.want)
			}
		})
	}
}
