// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package jail

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"testing"

	"github.com/bureau-foundation/jailkeeper/lib/binhash"
	"github.com/bureau-foundation/jailkeeper/lib/jailspec"
	"github.com/bureau-foundation/jailkeeper/lib/testutil"
)

// outsideMounter makes real mounts but leaves the test process outside
// the jail.
type outsideMounter struct {
	KernelMounter
	chrooted string
}

func (m *outsideMounter) Chroot(root string) error {
	m.chrooted = root
	return nil
}

// TestKernelEchoJail runs the echo jail against the real kernel: the
// binary is copied 0755 and byte-identical, /lib is bound read-only,
// and the jail is gone after Destroy.
func TestKernelEchoJail(t *testing.T) {
	testutil.RequireRoot(t)
	echo := testutil.RequireBinary(t, "echo")
	echo, err := filepath.EvalSymlinks(echo)
	if err != nil {
		t.Fatal(err)
	}
	if info, err := os.Stat("/lib"); err != nil || !info.IsDir() {
		t.Skip("host has no /lib directory")
	}

	mounter := &outsideMounter{}
	var logs bytes.Buffer
	engine, err := New(Config{
		StorageRoot: filepath.Join(t.TempDir(), "jail"),
		Mounter:     mounter,
		Logger:      slog.New(slog.NewTextHandler(&logs, nil)),
	})
	if err != nil {
		t.Fatal(err)
	}
	spec := jailspec.JailSpec{
		Name:         echo,
		Identity:     jailspec.Identity{User: "root", Group: "root"},
		ChrootName:   testutil.UniqueID("echo"),
		Home:         "root",
		BindReadOnly: []string{"/lib"},
	}
	destroyed := false
	t.Cleanup(func() {
		if !destroyed {
			engine.Destroy(context.Background(), spec)
		}
	})

	result, err := engine.Construct(spec)
	if err != nil {
		t.Fatalf("Construct: %v", err)
	}
	if mounter.chrooted != result.Root {
		t.Errorf("chroot target = %q, want %q", mounter.chrooted, result.Root)
	}

	copied := jailspec.InJail(result.Root, echo)
	info, err := os.Stat(copied)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0755 {
		t.Errorf("in-jail binary mode = %v, want 0755", info.Mode().Perm())
	}
	if digest, same, err := binhash.SameContent(echo, copied); err != nil || !same || digest != result.Digest {
		t.Errorf("in-jail binary not identical to %s (same=%v, err=%v)", echo, same, err)
	}

	lib := filepath.Join(result.Root, "lib")
	if mounted, err := mounter.IsMounted(lib); err != nil || !mounted {
		t.Fatalf("IsMounted(%s) = %v, %v", lib, mounted, err)
	}
	err = os.WriteFile(filepath.Join(lib, "jailkeeper-write-test"), nil, 0644)
	if !errors.Is(err, syscall.EROFS) {
		t.Errorf("write into read-only bind: err = %v, want EROFS", err)
	}

	if err := engine.Destroy(context.Background(), spec); err != nil {
		t.Fatalf("Destroy: %v", err)
	}
	destroyed = true
	if mounted, _ := mounter.IsMounted(lib); mounted {
		t.Errorf("%s still mounted after Destroy", lib)
	}
	if _, err := os.Lstat(result.Root); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("jail root survived Destroy: %v", err)
	}
	if strings.Contains(logs.String(), "level=WARN") {
		t.Errorf("a clean construct and destroy logged warnings:\n%s", logs.String())
	}
}
