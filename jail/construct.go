// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package jail

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/bureau-foundation/jailkeeper/lib/binhash"
	"github.com/bureau-foundation/jailkeeper/lib/jailspec"
)

// skeleton lists the directories every jail has, in creation order.
var skeleton = []string{"dev", "dev/shm", "dev/pts", "proc", "lib", "bin", "etc", "home"}

// systemBinds are mounted into every jail, in mount order. Teardown
// walks them in reverse nesting order (see systemUnmounts).
var systemBinds = []struct {
	source  string
	options BindOptions
}{
	{"/dev", BindOptions{}},
	{"/dev/pts", BindOptions{}},
	{"/dev/shm", BindOptions{}},
	{"/proc", BindOptions{Restrict: true, ReadOnly: true}},
}

var systemUnmounts = []string{"/dev/pts", "/dev/shm", "/dev", "/proc"}

// Construct builds the jail for spec and chroots the calling process
// into it. On success the process is inside the jail. On failure the
// partial jail is left for Destroy.
func (e *Engine) Construct(spec jailspec.JailSpec) (Result, error) {
	root, err := e.Root(spec)
	if err != nil {
		return Result{}, &StepError{Step: StepSkeleton, Path: spec.ChrootName, Err: err}
	}
	logger := e.logger.With("jail", spec.ChrootName, "root", root)
	logger.Info("constructing jail")

	if err := e.createSkeleton(root, spec); err != nil {
		return Result{}, err
	}
	for _, entry := range spec.CopyDirs {
		if err := e.copyDirectory(root, entry, spec.Identity); err != nil {
			return Result{}, err
		}
	}
	for _, entry := range spec.CopyFiles {
		if err := copyEntryFile(root, entry); err != nil {
			return Result{}, err
		}
	}
	digest, err := copyExecutable(root, spec.Name)
	if err != nil {
		return Result{}, err
	}
	logger.Debug("executable copied", "executable", spec.Name, "digest", digest.String())

	if err := e.mountAll(root, spec); err != nil {
		return Result{}, err
	}
	e.linkTemp(root)

	if err := os.Chmod(root, 0555); err != nil {
		return Result{}, &StepError{Step: StepChroot, Path: root, Err: err}
	}
	if err := e.mounter.Chroot(root); err != nil {
		return Result{}, &StepError{Step: StepChroot, Path: root, Err: err}
	}
	logger.Info("entered jail")
	return Result{Root: root, Digest: digest}, nil
}

func (e *Engine) createSkeleton(root string, spec jailspec.JailSpec) error {
	if err := os.MkdirAll(e.storageRoot, 0755); err != nil {
		return &StepError{Step: StepSkeleton, Path: e.storageRoot, Err: err}
	}
	for _, directory := range append([]string{""}, skeleton...) {
		path := filepath.Join(root, directory)
		if err := mkdirExact(path, 0755); err != nil {
			return &StepError{Step: StepSkeleton, Path: path, Err: err}
		}
	}

	home := filepath.Join(root, "home", spec.Home)
	if err := mkdirExact(home, 0750); err != nil {
		return &StepError{Step: StepSkeleton, Path: home, Err: err}
	}
	if err := os.Lchown(home, int(spec.Identity.UID), int(spec.Identity.GID)); err != nil {
		return &StepError{Step: StepSkeleton, Path: home, Err: err}
	}
	return nil
}

// mkdirExact creates path with mode regardless of the process umask.
// An existing directory is accepted as is.
func mkdirExact(path string, mode os.FileMode) error {
	err := os.Mkdir(path, mode)
	if errors.Is(err, fs.ErrExist) {
		info, statErr := os.Lstat(path)
		if statErr != nil {
			return statErr
		}
		if !info.IsDir() {
			return fmt.Errorf("%s exists and is not a directory", path)
		}
		return nil
	}
	if err != nil {
		return err
	}
	return os.Chmod(path, mode)
}

// mkdirParents creates path and any missing parents with mode 0755.
func mkdirParents(path string) error {
	if info, err := os.Lstat(path); err == nil {
		if !info.IsDir() {
			return fmt.Errorf("%s exists and is not a directory", path)
		}
		return nil
	}
	if err := mkdirParents(filepath.Dir(path)); err != nil {
		return err
	}
	return mkdirExact(path, 0755)
}

func (e *Engine) mountAll(root string, spec jailspec.JailSpec) error {
	for _, bind := range systemBinds {
		target := jailspec.InJail(root, bind.source)
		if err := sealMountPoint(target, bind.options); err != nil {
			return &StepError{Step: StepMount, Path: target, Err: err}
		}
		if err := e.mounter.Bind(bind.source, target, bind.options); err != nil {
			return &StepError{Step: StepMount, Path: target, Err: err}
		}
	}

	userBinds := []struct {
		entries  []string
		readOnly bool
	}{
		{spec.BindReadOnly, true},
		{spec.BindReadWrite, false},
	}
	for _, group := range userBinds {
		for _, entry := range group.entries {
			source, err := jailspec.HostPath(entry)
			if err != nil {
				return &StepError{Step: StepMount, Path: entry, Err: err}
			}
			target := jailspec.InJail(root, source)
			if err := mkdirParents(target); err != nil {
				return &StepError{Step: StepMount, Path: target, Err: err}
			}
			options := BindOptions{Restrict: true, ReadOnly: group.readOnly}
			if err := sealMountPoint(target, options); err != nil {
				return &StepError{Step: StepMount, Path: target, Err: err}
			}
			if err := e.mounter.Bind(source, target, options); err != nil {
				return &StepError{Step: StepMount, Path: target, Err: err}
			}
			e.logger.Debug("bound", "source", source, "target", target, "read_only", group.readOnly)
		}
	}
	return nil
}

// sealMountPoint makes the mount point of a read-only bind 0555. It
// runs before the bind: once the read-only remount is in place the
// directory can no longer be changed.
func sealMountPoint(target string, options BindOptions) error {
	if !options.ReadOnly {
		return nil
	}
	return os.Chmod(target, 0555)
}

// linkTemp points tmp at data/tmp when a bound data directory provides
// one.
func (e *Engine) linkTemp(root string) {
	info, err := os.Stat(filepath.Join(root, "data", "tmp"))
	if err != nil || !info.IsDir() {
		return
	}
	if err := os.Symlink("data/tmp", filepath.Join(root, "tmp")); err != nil {
		e.logger.Warn("cannot link tmp to data/tmp", "root", root, "error", err)
	}
}

// copyExecutable copies the target to the same path inside the jail
// with mode 0755 and verifies the copy.
func copyExecutable(root, name string) (binhash.Digest, error) {
	source, err := jailspec.HostPath(name)
	if err != nil {
		return binhash.Digest{}, &StepError{Step: StepBinary, Path: name, Err: err}
	}
	destination := jailspec.InJail(root, source)
	if err := mkdirParents(filepath.Dir(destination)); err != nil {
		return binhash.Digest{}, &StepError{Step: StepBinary, Path: destination, Err: err}
	}
	if err := copyFile(source, destination, 0755); err != nil {
		return binhash.Digest{}, &StepError{Step: StepBinary, Path: destination, Err: err}
	}

	digest, same, err := binhash.SameContent(source, destination)
	if err != nil {
		return binhash.Digest{}, &StepError{Step: StepBinary, Path: destination, Err: err}
	}
	if !same {
		return binhash.Digest{}, &StepError{Step: StepBinary, Path: destination, Err: errDigestMismatch}
	}
	return digest, nil
}
