// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package supervise

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/bureau-foundation/jailkeeper/lib/handshake"
	"github.com/bureau-foundation/jailkeeper/lib/jailspec"
)

var (
	// ErrAlreadyRunning is returned when the instance lock for a chroot
	// name already exists.
	ErrAlreadyRunning = errors.New("jail already running")

	// ErrGlobalLock is returned when the global lock file blocks
	// startup.
	ErrGlobalLock = errors.New("global lock present")
)

// CheckGlobalLock refuses to start while the global lock file exists.
// With firstRun it then creates the lock, so this start is the last one
// until an operator removes it.
func CheckGlobalLock(path string, firstRun bool) error {
	_, err := os.Lstat(path)
	if err == nil {
		return fmt.Errorf("%w: %s", ErrGlobalLock, path)
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("checking global lock %s: %w", path, err)
	}
	if !firstRun {
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating global lock directory: %w", err)
	}
	file, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0640)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return fmt.Errorf("%w: %s", ErrGlobalLock, path)
		}
		return fmt.Errorf("creating global lock %s: %w", path, err)
	}
	return file.Close()
}

// InstanceLock is the exclusive per-jail lock file <runDir>/<name>.
type InstanceLock struct {
	path string
	file *os.File
}

// InstancePath returns the lock file path for chrootName.
func InstancePath(runDir, chrootName string) (string, error) {
	if err := jailspec.ValidateComponent("chroot name", chrootName); err != nil {
		return "", err
	}
	return filepath.Join(runDir, chrootName), nil
}

// AcquireInstance creates the instance lock for chrootName. If the lock
// already exists it returns an error wrapping ErrAlreadyRunning and
// leaves the existing file untouched.
func AcquireInstance(runDir, chrootName string) (*InstanceLock, error) {
	path, err := InstancePath(runDir, chrootName)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(runDir, 0755); err != nil {
		return nil, fmt.Errorf("creating run directory: %w", err)
	}

	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return nil, fmt.Errorf("%w: %s", ErrAlreadyRunning, path)
		}
		return nil, fmt.Errorf("creating instance lock: %w", err)
	}
	return &InstanceLock{path: path, file: file}, nil
}

// Path returns the lock file path.
func (l *InstanceLock) Path() string {
	return l.path
}

// Record replaces the lock file contents with record.
func (l *InstanceLock) Record(record handshake.InstanceRecord) error {
	data, err := handshake.Marshal(record)
	if err != nil {
		return fmt.Errorf("encoding instance record: %w", err)
	}
	if err := l.file.Truncate(0); err != nil {
		return fmt.Errorf("truncating %s: %w", l.path, err)
	}
	if _, err := l.file.WriteAt(data, 0); err != nil {
		return fmt.Errorf("writing %s: %w", l.path, err)
	}
	return l.file.Sync()
}

// Release closes and removes the lock file.
func (l *InstanceLock) Release() error {
	closeErr := l.file.Close()
	if err := os.Remove(l.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("removing instance lock: %w", err)
	}
	return closeErr
}

// ReadInstance returns the record stored in the instance lock for
// chrootName. A lock that exists but holds no record yet (the keeper is
// still building the jail) is reported as an error wrapping
// ErrNoInstanceRecord.
func ReadInstance(runDir, chrootName string) (handshake.InstanceRecord, error) {
	path, err := InstancePath(runDir, chrootName)
	if err != nil {
		return handshake.InstanceRecord{}, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return handshake.InstanceRecord{}, fmt.Errorf("reading instance lock: %w", err)
	}
	if len(data) == 0 {
		return handshake.InstanceRecord{}, fmt.Errorf("%s: %w", path, ErrNoInstanceRecord)
	}
	var record handshake.InstanceRecord
	if err := handshake.Unmarshal(data, &record); err != nil {
		return handshake.InstanceRecord{}, fmt.Errorf("decoding %s: %w", path, err)
	}
	return record, nil
}

// ErrNoInstanceRecord is returned by ReadInstance for a lock that holds
// no record.
var ErrNoInstanceRecord = errors.New("instance lock holds no record")
