// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package jail

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"slices"

	"github.com/bureau-foundation/jailkeeper/lib/jailspec"
)

// preservedBits are the mode bits carried from a source file to its
// jail copy.
const preservedBits = fs.ModePerm | fs.ModeSetuid | fs.ModeSetgid | fs.ModeSticky

// copyFile copies source to destination byte for byte and sets mode on
// the result.
func copyFile(source, destination string, mode fs.FileMode) error {
	if err := copyContents(source, destination); err != nil {
		return err
	}
	return os.Chmod(destination, mode)
}

// copyContents writes source's bytes to destination, which is created
// 0600 or truncated.
func copyContents(source, destination string) error {
	in, err := os.Open(source)
	if err != nil {
		return fmt.Errorf("opening source: %w", err)
	}
	defer in.Close()

	out, err := os.OpenFile(destination, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("creating destination: %w", err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("copying %s: %w", source, err)
	}
	return out.Close()
}

// copyEntryFile copies one copy_f entry, preserving its mode. Parent
// directories are created 0755.
func copyEntryFile(root, entry string) error {
	source, err := jailspec.HostPath(entry)
	if err != nil {
		return &StepError{Step: StepCopyFiles, Path: entry, Err: err}
	}
	info, err := os.Stat(source)
	if err != nil {
		return &StepError{Step: StepCopyFiles, Path: source, Err: err}
	}
	destination := jailspec.InJail(root, source)
	if err := mkdirParents(filepath.Dir(destination)); err != nil {
		return &StepError{Step: StepCopyFiles, Path: destination, Err: err}
	}
	if err := copyFile(source, destination, info.Mode()&preservedBits); err != nil {
		return &StepError{Step: StepCopyFiles, Path: destination, Err: err}
	}
	return nil
}

// copyDirectory recursively copies one copy_d entry. Files keep their
// mode and are owned by identity; every directory is made 0555 once its
// contents are in place.
func (e *Engine) copyDirectory(root, entry string, identity jailspec.Identity) error {
	sourceRoot, err := jailspec.HostPath(entry)
	if err != nil {
		return &StepError{Step: StepCopyDirs, Path: entry, Err: err}
	}
	destinationRoot := jailspec.InJail(root, sourceRoot)
	if err := mkdirParents(destinationRoot); err != nil {
		return &StepError{Step: StepCopyDirs, Path: destinationRoot, Err: err}
	}

	var directories []string
	walkErr := filepath.WalkDir(sourceRoot, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		relative, err := filepath.Rel(sourceRoot, path)
		if err != nil {
			return err
		}
		destination := filepath.Join(destinationRoot, relative)

		switch {
		case entry.IsDir():
			if err := mkdirExact(destination, 0755); err != nil {
				return err
			}
			directories = append(directories, destination)

		case entry.Type()&fs.ModeSymlink != 0:
			target, err := os.Readlink(path)
			if err != nil {
				return err
			}
			if err := os.Symlink(target, destination); err != nil {
				return err
			}
			e.chown(destination, identity)

		case entry.Type().IsRegular():
			info, err := entry.Info()
			if err != nil {
				return err
			}
			if err := copyContents(path, destination); err != nil {
				return err
			}
			e.chown(destination, identity)
			if err := os.Chmod(destination, info.Mode()&preservedBits); err != nil {
				return err
			}

		default:
			e.logger.Debug("skipping special file", "path", path, "type", entry.Type().String())
		}
		return nil
	})
	if walkErr != nil {
		return &StepError{Step: StepCopyDirs, Path: sourceRoot, Err: walkErr}
	}

	// Reverse walk order finalizes children before their parents.
	for _, directory := range slices.Backward(directories) {
		if err := os.Chmod(directory, 0555); err != nil {
			return &StepError{Step: StepCopyDirs, Path: directory, Err: err}
		}
	}
	return nil
}

func (e *Engine) chown(path string, identity jailspec.Identity) {
	if err := os.Lchown(path, int(identity.UID), int(identity.GID)); err != nil {
		e.logger.Debug("cannot chown jail copy", "path", path, "error", err)
	}
}
