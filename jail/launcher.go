// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package jail

import (
	"bytes"
	"debug/elf"
	"fmt"
	"io"
	"strings"

	"github.com/bureau-foundation/jailkeeper/lib/jailspec"
)

// MissingInterpreterError reports an executable that must run inside a
// jail whose ELF interpreter the jail does not contain.
type MissingInterpreterError struct {
	Executable  string
	Interpreter string
}

func (e *MissingInterpreterError) Error() string {
	return fmt.Sprintf("%s is dynamically linked (interpreter %s) and the jail does not provide %s; "+
		"build jailkeeper with CGO_ENABLED=0 or bind the loader and its libraries",
		e.Executable, e.Interpreter, e.Interpreter)
}

// Interpreter returns the PT_INTERP path of the ELF file at path, or ""
// for a statically linked executable.
func Interpreter(path string) (string, error) {
	file, err := elf.Open(path)
	if err != nil {
		return "", fmt.Errorf("reading ELF headers of %s: %w", path, err)
	}
	defer file.Close()

	for _, program := range file.Progs {
		if program.Type != elf.PT_INTERP {
			continue
		}
		data, err := io.ReadAll(program.Open())
		if err != nil {
			return "", fmt.Errorf("reading interpreter of %s: %w", path, err)
		}
		return string(bytes.TrimRight(data, "\x00")), nil
	}
	return "", nil
}

// Provides reports whether a bind or copy entry of spec places the host
// path at the same location inside the jail.
func Provides(spec jailspec.JailSpec, path string) bool {
	for _, entries := range [][]string{spec.BindReadOnly, spec.BindReadWrite, spec.CopyDirs, spec.CopyFiles} {
		for _, entry := range entries {
			hostPath, err := jailspec.HostPath(entry)
			if err != nil {
				continue
			}
			if path == hostPath || strings.HasPrefix(path, hostPath+"/") {
				return true
			}
		}
	}
	return false
}

// CheckLauncher verifies that executable, re-executed after the chroot
// as the launcher, can start inside the jail of spec.
func CheckLauncher(executable string, spec jailspec.JailSpec) error {
	interpreter, err := Interpreter(executable)
	if err != nil {
		return err
	}
	if interpreter == "" || Provides(spec, interpreter) {
		return nil
	}
	return &MissingInterpreterError{Executable: executable, Interpreter: interpreter}
}
