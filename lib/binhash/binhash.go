// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package binhash

import (
	"encoding/hex"
	"fmt"
	"io"
	"os"

	"github.com/zeebo/blake3"
)

// Digest is a 256-bit BLAKE3 digest.
type Digest [32]byte

// String returns the hex encoding of the digest.
func (d Digest) String() string {
	return hex.EncodeToString(d[:])
}

// IsZero reports whether d is the zero digest (no hash computed).
func (d Digest) IsZero() bool {
	return d == Digest{}
}

// HashFile streams the file at path through BLAKE3.
func HashFile(path string) (Digest, error) {
	file, err := os.Open(path)
	if err != nil {
		return Digest{}, fmt.Errorf("opening %s for hashing: %w", path, err)
	}
	defer file.Close()

	hasher := blake3.New()
	if _, err := io.Copy(hasher, file); err != nil {
		return Digest{}, fmt.Errorf("hashing %s: %w", path, err)
	}

	var digest Digest
	copy(digest[:], hasher.Sum(nil))
	return digest, nil
}

// SameContent hashes both files and reports whether they match. The
// returned digest is the source's.
func SameContent(source, copied string) (Digest, bool, error) {
	sourceDigest, err := HashFile(source)
	if err != nil {
		return Digest{}, false, err
	}
	copiedDigest, err := HashFile(copied)
	if err != nil {
		return Digest{}, false, err
	}
	return sourceDigest, sourceDigest == copiedDigest, nil
}
