// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package jail

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/bureau-foundation/jailkeeper/lib/binhash"
	"github.com/bureau-foundation/jailkeeper/lib/clock"
	"github.com/bureau-foundation/jailkeeper/lib/jailspec"
)

// DefaultUnmountRetry is the interval between unmount attempts when a
// target refuses to detach.
const DefaultUnmountRetry = time.Second

// Step names a phase of jail construction.
type Step string

const (
	StepSkeleton  Step = "skeleton"
	StepCopyDirs  Step = "copy_d"
	StepCopyFiles Step = "copy_f"
	StepBinary    Step = "binary"
	StepMount     Step = "mount"
	StepChroot    Step = "chroot"
)

// StepError is a construction failure. Every construction failure is
// fatal to the keeper.
type StepError struct {
	Step Step
	Path string
	Err  error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("jail %s %s: %v", e.Step, e.Path, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

// Config configures an Engine.
type Config struct {
	// StorageRoot is the directory jails are created under.
	StorageRoot string

	// Mounter performs mounts and the chroot. Defaults to
	// KernelMounter.
	Mounter Mounter

	// Clock paces unmount retries. Defaults to the real clock.
	Clock clock.Clock

	// UnmountRetry is the retry interval for stuck unmounts. Defaults
	// to DefaultUnmountRetry.
	UnmountRetry time.Duration

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// Engine constructs and destroys jails under one storage root.
type Engine struct {
	storageRoot  string
	mounter      Mounter
	clock        clock.Clock
	unmountRetry time.Duration
	logger       *slog.Logger
}

// New returns an Engine for config.
func New(config Config) (*Engine, error) {
	if !filepath.IsAbs(config.StorageRoot) {
		return nil, fmt.Errorf("jail storage root must be absolute, got %q", config.StorageRoot)
	}
	engine := &Engine{
		storageRoot:  filepath.Clean(config.StorageRoot),
		mounter:      config.Mounter,
		clock:        config.Clock,
		unmountRetry: config.UnmountRetry,
		logger:       config.Logger,
	}
	if engine.mounter == nil {
		engine.mounter = KernelMounter{}
	}
	if engine.clock == nil {
		engine.clock = clock.Real()
	}
	if engine.unmountRetry <= 0 {
		engine.unmountRetry = DefaultUnmountRetry
	}
	if engine.logger == nil {
		engine.logger = slog.Default()
	}
	return engine, nil
}

// StorageRoot returns the directory jails are created under.
func (e *Engine) StorageRoot() string {
	return e.storageRoot
}

// Root returns the path of the jail for spec.
func (e *Engine) Root(spec jailspec.JailSpec) (string, error) {
	if err := jailspec.ValidateComponent("chroot name", spec.ChrootName); err != nil {
		return "", err
	}
	return filepath.Join(e.storageRoot, spec.ChrootName), nil
}

// Result describes a constructed jail.
type Result struct {
	// Root is the host path of the jail root.
	Root string

	// Digest is the BLAKE3 digest of the executable copied into the
	// jail, identical to the host copy's.
	Digest binhash.Digest
}

// errDigestMismatch is wrapped when the in-jail copy of the executable
// differs from the host file.
var errDigestMismatch = errors.New("copied executable differs from source")
