// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package supervise

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/bureau-foundation/jailkeeper/lib/handshake"
)

func TestCheckGlobalLock(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "subsys", "jail")

	if err := CheckGlobalLock(path, false); err != nil {
		t.Fatalf("CheckGlobalLock without a lock: %v", err)
	}
	if _, err := os.Lstat(path); err == nil {
		t.Fatal("CheckGlobalLock created the lock without first-run")
	}

	if err := CheckGlobalLock(path, true); err != nil {
		t.Fatalf("CheckGlobalLock first-run: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("first-run did not create the lock: %v", err)
	}
	if info.Size() != 0 {
		t.Errorf("global lock size = %d, want 0", info.Size())
	}

	for _, firstRun := range []bool{false, true} {
		if err := CheckGlobalLock(path, firstRun); !errors.Is(err, ErrGlobalLock) {
			t.Errorf("CheckGlobalLock(firstRun=%v) with lock present = %v, want ErrGlobalLock", firstRun, err)
		}
	}
}

func TestAcquireInstanceExclusive(t *testing.T) {
	t.Parallel()

	runDir := filepath.Join(t.TempDir(), "run")
	lock, err := AcquireInstance(runDir, "echo1")
	if err != nil {
		t.Fatal(err)
	}
	if lock.Path() != filepath.Join(runDir, "echo1") {
		t.Errorf("Path() = %q", lock.Path())
	}
	record := handshake.InstanceRecord{ChrootName: "echo1", TargetPID: 1234}
	if err := lock.Record(record); err != nil {
		t.Fatal(err)
	}
	before, err := os.ReadFile(lock.Path())
	if err != nil {
		t.Fatal(err)
	}

	if _, err := AcquireInstance(runDir, "echo1"); !errors.Is(err, ErrAlreadyRunning) {
		t.Fatalf("second AcquireInstance = %v, want ErrAlreadyRunning", err)
	}
	after, err := os.ReadFile(lock.Path())
	if err != nil {
		t.Fatal(err)
	}
	if string(before) != string(after) {
		t.Error("refused AcquireInstance modified the existing lock")
	}

	if err := lock.Release(); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Lstat(lock.Path()); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("lock file survives Release: %v", err)
	}

	again, err := AcquireInstance(runDir, "echo1")
	if err != nil {
		t.Fatalf("AcquireInstance after Release: %v", err)
	}
	again.Release()
}

func TestAcquireInstanceRejectsTraversal(t *testing.T) {
	t.Parallel()

	runDir := t.TempDir()
	for _, name := range []string{"", "..", "a/b"} {
		if _, err := AcquireInstance(runDir, name); err == nil {
			t.Errorf("AcquireInstance(%q) succeeded", name)
		}
	}
}

func TestReadInstance(t *testing.T) {
	t.Parallel()

	runDir := t.TempDir()
	lock, err := AcquireInstance(runDir, "echo1")
	if err != nil {
		t.Fatal(err)
	}
	defer lock.Release()

	if _, err := ReadInstance(runDir, "echo1"); !errors.Is(err, ErrNoInstanceRecord) {
		t.Errorf("ReadInstance of an empty lock = %v, want ErrNoInstanceRecord", err)
	}

	started := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	want := handshake.InstanceRecord{
		ChrootName:    "echo1",
		JailRoot:      "/var/jail/echo1",
		Executable:    "/bin/echo",
		SupervisorPID: 10,
		KeeperPID:     11,
		KeeperPPID:    10,
		TargetPID:     12,
		Started:       started,
	}
	// A longer record followed by a shorter one must not leave a tail.
	long := want
	long.Executable = "/usr/local/libexec/a/very/long/path/to/a/target"
	if err := lock.Record(long); err != nil {
		t.Fatal(err)
	}
	if err := lock.Record(want); err != nil {
		t.Fatal(err)
	}

	got, err := ReadInstance(runDir, "echo1")
	if err != nil {
		t.Fatal(err)
	}
	if !got.Started.Equal(started) {
		t.Errorf("Started = %v, want %v", got.Started, started)
	}
	got.Started = want.Started
	if got != want {
		t.Errorf("ReadInstance = %+v, want %+v", got, want)
	}

	if _, err := ReadInstance(runDir, "absent"); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("ReadInstance of an absent lock = %v", err)
	}
}
