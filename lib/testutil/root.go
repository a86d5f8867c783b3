// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package testutil

import (
	"os"
	"testing"
)

// RequireRoot skips the test unless it runs with euid 0. Tests that
// perform real mounts or credential changes call it first.
func RequireRoot(t testing.TB) {
	t.Helper()
	if os.Geteuid() != 0 {
		t.Skip("needs euid 0 for mount(2)")
	}
}
