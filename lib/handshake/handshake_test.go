// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package handshake

import (
	"bytes"
	"errors"
	"io"
	"os"
	"slices"
	"testing"
	"time"

	"github.com/bureau-foundation/jailkeeper/lib/binhash"
	"github.com/bureau-foundation/jailkeeper/lib/clock"
	"github.com/bureau-foundation/jailkeeper/lib/jailspec"
	"github.com/bureau-foundation/jailkeeper/lib/testutil"
)

func TestSpecOverPipe(t *testing.T) {
	t.Parallel()

	spec := jailspec.JailSpec{
		Name:         "/bin/echo",
		Identity:     jailspec.Identity{User: "nobody", UID: 65534, Group: "nogroup", GID: 65534},
		Capabilities: []string{"net_bind_service", "SYS_ADMIN"},
		Arguments:    "hello world",
		Limits:       jailspec.Limits{AddressSpace: 1 << 30, Nice: 5},
		Umask:        0o022,
		ChrootName:   "echo1",
		Home:         "nobody",
		BindReadOnly: []string{"/lib"},
		Restart:      jailspec.RestartPolicy{NeverDie: true},
	}

	reader, writer, err := os.Pipe()
	if err != nil {
		t.Fatal(err)
	}
	defer reader.Close()

	sent := make(chan error, 1)
	go func() {
		sent <- Send(writer, spec)
	}()

	var received jailspec.JailSpec
	if err := Receive(reader, &received); err != nil {
		t.Fatalf("Receive: %v", err)
	}
	if err := testutil.RequireReceive(t, sent, 5*time.Second, "waiting for Send"); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if received.Name != spec.Name || received.Identity != spec.Identity ||
		!slices.Equal(received.Capabilities, spec.Capabilities) ||
		!slices.Equal(received.BindReadOnly, spec.BindReadOnly) ||
		received.Limits != spec.Limits || received.Restart != spec.Restart ||
		received.Umask != spec.Umask {
		t.Errorf("received %+v, want %+v", received, spec)
	}
}

func TestDeterministicEncoding(t *testing.T) {
	t.Parallel()

	record := InstanceRecord{
		ChrootName: "echo1",
		TargetPID:  42,
		Digest:     binhash.Digest{1, 2, 3},
		Started:    time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}
	first, err := Marshal(record)
	if err != nil {
		t.Fatal(err)
	}
	second, err := Marshal(record)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(first, second) {
		t.Error("same record encoded to different bytes")
	}

	var decoded InstanceRecord
	if err := Unmarshal(first, &decoded); err != nil {
		t.Fatal(err)
	}
	if decoded.Digest != record.Digest || !decoded.Started.Equal(record.Started) {
		t.Errorf("decoded %+v, want %+v", decoded, record)
	}
}

func TestReceiveEmptyChannel(t *testing.T) {
	t.Parallel()

	var record LaunchRecord
	err := Receive(bytes.NewReader(nil), &record)
	if !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Errorf("Receive on empty channel = %v, want ErrUnexpectedEOF", err)
	}
}

func TestReceiveWithinDelivers(t *testing.T) {
	t.Parallel()

	fake := clock.Fake(time.Unix(0, 0))
	data, err := Marshal(Ready{PID: 7})
	if err != nil {
		t.Fatal(err)
	}

	var ready Ready
	if err := ReceiveWithin(fake, bytes.NewReader(data), 2*time.Second, &ready); err != nil {
		t.Fatalf("ReceiveWithin: %v", err)
	}
	if ready.PID != 7 {
		t.Errorf("PID = %d, want 7", ready.PID)
	}
}

func TestReceiveWithinTimesOut(t *testing.T) {
	t.Parallel()

	fake := clock.Fake(time.Unix(0, 0))
	reader, writer, err := os.Pipe()
	if err != nil {
		t.Fatal(err)
	}
	defer writer.Close()

	result := make(chan error, 1)
	go func() {
		var ready Ready
		result <- ReceiveWithin(fake, reader, 2*time.Second, &ready)
	}()

	fake.WaitForTimers(1)
	fake.Advance(2 * time.Second)

	err = testutil.RequireReceive(t, result, 5*time.Second, "waiting for timeout")
	if !errors.Is(err, ErrTimeout) {
		t.Errorf("ReceiveWithin = %v, want ErrTimeout", err)
	}
	reader.Close()
}
