// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package binhash

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/zeebo/blake3"
)

func writeFile(t *testing.T, directory, name string, content []byte) string {
	t.Helper()
	path := filepath.Join(directory, name)
	if err := os.WriteFile(path, content, 0755); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func TestHashFile(t *testing.T) {
	content := []byte("hello, jail")
	path := writeFile(t, t.TempDir(), "binary", content)

	got, err := HashFile(path)
	if err != nil {
		t.Fatalf("HashFile: %v", err)
	}
	if want := Digest(blake3.Sum256(content)); got != want {
		t.Errorf("HashFile = %s, want %s", got, want)
	}
	if got.IsZero() {
		t.Error("digest of real content should not be zero")
	}
	if length := len(got.String()); length != 64 {
		t.Errorf("String() length = %d, want 64", length)
	}
}

func TestHashFileLarge(t *testing.T) {
	content := make([]byte, 256*1024)
	for i := range content {
		content[i] = byte(i % 251)
	}
	path := writeFile(t, t.TempDir(), "large", content)

	got, err := HashFile(path)
	if err != nil {
		t.Fatalf("HashFile: %v", err)
	}
	if want := Digest(blake3.Sum256(content)); got != want {
		t.Errorf("HashFile(large) = %s, want %s", got, want)
	}
}

func TestHashFileNonexistent(t *testing.T) {
	if _, err := HashFile(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Fatal("HashFile should fail for a nonexistent file")
	}
}

func TestSameContent(t *testing.T) {
	directory := t.TempDir()
	source := writeFile(t, directory, "source", []byte("payload"))
	identical := writeFile(t, directory, "identical", []byte("payload"))
	different := writeFile(t, directory, "different", []byte("tampered"))

	digest, same, err := SameContent(source, identical)
	if err != nil {
		t.Fatalf("SameContent: %v", err)
	}
	if !same {
		t.Error("identical files reported as different")
	}
	if digest != Digest(blake3.Sum256([]byte("payload"))) {
		t.Errorf("SameContent digest = %s, want source digest", digest)
	}

	if _, same, err := SameContent(source, different); err != nil || same {
		t.Errorf("SameContent(different) = same:%v err:%v, want false, nil", same, err)
	}
}
