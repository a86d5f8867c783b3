// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package version

import (
	"fmt"
	"io"
	"os"
	"runtime"

	"github.com/bureau-foundation/jailkeeper/lib/binhash"
)

// Build stamps, overridden with -ldflags -X.
var (
	Version   = "0.1.0-dev"
	GitCommit = "unknown"
	GitDirty  = "false"
	BuildTime = "unknown"
)

// Info is the one-line version: "<version> (<commit>[-dirty], <time>)".
func Info() string {
	commit := GitCommit
	if GitDirty == "true" {
		commit += "-dirty"
	}
	return Version + " (" + commit + ", " + BuildTime + ")"
}

// SelfDigest hashes the running executable. Every role of the process
// tree is a re-exec of this file, so the digest names what each role
// runs.
func SelfDigest() (binhash.Digest, string, error) {
	path, err := os.Executable()
	if err != nil {
		return binhash.Digest{}, "", fmt.Errorf("locating own executable: %w", err)
	}
	digest, err := binhash.HashFile(path)
	if err != nil {
		return binhash.Digest{}, "", err
	}
	return digest, path, nil
}

// Print writes the --version report for the binary called name.
func Print(w io.Writer, name string) {
	fmt.Fprintf(w, "%s %s\n", name, Info())
	fmt.Fprintf(w, "  go:     %s %s/%s\n", runtime.Version(), runtime.GOOS, runtime.GOARCH)
	digest, path, err := SelfDigest()
	if err != nil {
		fmt.Fprintf(w, "  binary: unavailable (%v)\n", err)
		return
	}
	fmt.Fprintf(w, "  binary: %s\n  blake3: %s\n", path, digest)
}
