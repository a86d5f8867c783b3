// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package jailspec

import (
	"fmt"
	"path/filepath"
	"strings"
)

// HostPath applies the derivation rule for bind and copy entries:
// everything before the first '/' is discarded and the remainder,
// cleaned, is both the host absolute path and the path inside the
// jail. An entry with no '/' has no derivable path.
func HostPath(entry string) (string, error) {
	index := strings.IndexByte(entry, '/')
	if index < 0 {
		return "", fmt.Errorf("entry %q has no absolute path component", entry)
	}
	path := filepath.Clean(entry[index:])
	if path == "/" {
		return "", fmt.Errorf("entry %q derives the host root", entry)
	}
	return path, nil
}

// InJail returns where hostPath lives under jailRoot.
func InJail(jailRoot, hostPath string) string {
	return filepath.Join(jailRoot, hostPath)
}

// ValidateComponent checks that name collapses to exactly one path
// component: non-empty, no separators, and not "." or "..".
func ValidateComponent(kind, name string) error {
	switch {
	case name == "":
		return fmt.Errorf("%s is empty", kind)
	case strings.ContainsRune(name, '/'):
		return fmt.Errorf("%s %q must be a single path component", kind, name)
	case name == "." || name == "..":
		return fmt.Errorf("%s %q is a path traversal", kind, name)
	case strings.ContainsRune(name, 0):
		return fmt.Errorf("%s contains a NUL byte", kind)
	}
	return nil
}
