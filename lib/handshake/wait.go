// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package handshake

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/bureau-foundation/jailkeeper/lib/clock"
)

// ErrTimeout is returned by ReceiveWithin when no record arrives before
// the deadline.
var ErrTimeout = errors.New("handshake: timed out")

// ReceiveWithin is Receive bounded by timeout on clk. On timeout the
// reader goroutine stays blocked until r is closed; callers close r
// after a timeout.
func ReceiveWithin(clk clock.Clock, r io.Reader, timeout time.Duration, record any) error {
	done := make(chan error, 1)
	go func() {
		done <- Receive(r, record)
	}()

	select {
	case err := <-done:
		return err
	case <-clk.After(timeout):
		return fmt.Errorf("%w after %v waiting for %T", ErrTimeout, timeout, record)
	}
}
