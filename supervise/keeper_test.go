// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package supervise

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/syndtr/gocapability/capability"

	"github.com/bureau-foundation/jailkeeper/jail"
	"github.com/bureau-foundation/jailkeeper/lib/binhash"
	"github.com/bureau-foundation/jailkeeper/lib/clock"
	"github.com/bureau-foundation/jailkeeper/lib/handshake"
	"github.com/bureau-foundation/jailkeeper/lib/jailspec"
	"github.com/bureau-foundation/jailkeeper/lib/process"
	"github.com/bureau-foundation/jailkeeper/lib/testutil"
)

// nullMounter accepts every mount without touching the kernel.
type nullMounter struct{}

func (nullMounter) Bind(source, target string, options jail.BindOptions) error { return nil }
func (nullMounter) Unmount(target string) error                                { return nil }
func (nullMounter) IsMounted(target string) (bool, error)                      { return false, nil }
func (nullMounter) Chroot(root string) error                                   { return nil }

func keeperFixture(t *testing.T) (*jail.Engine, jailspec.JailSpec) {
	t.Helper()

	host := t.TempDir()
	binary := filepath.Join(host, "echo")
	if err := os.WriteFile(binary, []byte("#!/bin/sh\n"), 0755); err != nil {
		t.Fatal(err)
	}
	engine, err := jail.New(jail.Config{
		StorageRoot: filepath.Join(t.TempDir(), "jail"),
		Mounter:     nullMounter{},
		Clock:       clock.Fake(time.Unix(0, 0)),
		Logger:      discardLogger(),
	})
	if err != nil {
		t.Fatal(err)
	}
	spec := jailspec.JailSpec{
		Name:       binary,
		Identity:   jailspec.Identity{User: "tester", UID: uint32(os.Getuid()), Group: "tester", GID: uint32(os.Getgid())},
		ChrootName: testutil.UniqueID("keeper"),
		Home:       "nobody",
	}
	t.Cleanup(func() {
		if err := engine.Destroy(context.Background(), spec); err != nil {
			t.Errorf("cleanup: %v", err)
		}
	})
	return engine, spec
}

func encodedSpec(t *testing.T, spec jailspec.JailSpec) io.Reader {
	t.Helper()
	data, err := handshake.Marshal(spec)
	if err != nil {
		t.Fatal(err)
	}
	return bytes.NewReader(data)
}

func TestRunKeeperReportsLaunch(t *testing.T) {
	t.Parallel()

	engine, spec := keeperFixture(t)
	sh := testutil.RequireBinary(t, "sh")

	var launcher *exec.Cmd
	channelRead, channelWrite, err := os.Pipe()
	if err != nil {
		t.Fatal(err)
	}
	defer channelRead.Close()

	status := RunKeeper(KeeperConfig{
		Engine: engine,
		StartLauncher: func(received jailspec.JailSpec) (*exec.Cmd, error) {
			if received.ChrootName != spec.ChrootName {
				t.Errorf("launcher got spec for %q", received.ChrootName)
			}
			launcher = exec.Command(sh, "-c", "exit 7")
			return launcher, launcher.Start()
		},
		Logger: discardLogger(),
	}, encodedSpec(t, spec), channelWrite)

	if status != 7 {
		t.Errorf("RunKeeper = %d, want the target's status 7", status)
	}
	var record handshake.LaunchRecord
	if err := handshake.Receive(channelRead, &record); err != nil {
		t.Fatalf("launch record: %v", err)
	}
	if record.TargetPID != launcher.Process.Pid {
		t.Errorf("TargetPID = %d, want %d", record.TargetPID, launcher.Process.Pid)
	}
	if record.KeeperPID != os.Getpid() || record.KeeperPPID != os.Getppid() {
		t.Errorf("keeper pids = %d/%d", record.KeeperPID, record.KeeperPPID)
	}
	digest, err := binhash.HashFile(spec.Name)
	if err != nil {
		t.Fatal(err)
	}
	if record.Digest != digest {
		t.Errorf("Digest = %s, want %s", record.Digest, digest)
	}
}

func TestRunKeeperConstructionFailure(t *testing.T) {
	t.Parallel()

	engine, spec := keeperFixture(t)
	spec.CopyFiles = []string{filepath.Join(t.TempDir(), "absent")}

	channelRead, channelWrite, err := os.Pipe()
	if err != nil {
		t.Fatal(err)
	}
	defer channelRead.Close()

	started := false
	status := RunKeeper(KeeperConfig{
		Engine: engine,
		StartLauncher: func(jailspec.JailSpec) (*exec.Cmd, error) {
			started = true
			return nil, errors.New("unreachable")
		},
		Logger: discardLogger(),
	}, encodedSpec(t, spec), channelWrite)

	if status != process.ExitFatal {
		t.Errorf("RunKeeper = %d, want ExitFatal", status)
	}
	if started {
		t.Error("launcher started after a construction failure")
	}
	var record handshake.LaunchRecord
	if err := handshake.Receive(channelRead, &record); !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Errorf("channel = %v, want closed without a record", err)
	}
}

// refusingSystem records the launch sequence and refuses the exec.
type refusingSystem struct {
	execPath string
	execArgv []string
}

func (s *refusingSystem) SetRlimit(resource int, value uint64) error            { return nil }
func (s *refusingSystem) SetCapabilities(caps []capability.Cap) error           { return nil }
func (s *refusingSystem) SetFileCapabilities(string, []capability.Cap) error    { return nil }
func (s *refusingSystem) ChangeIdentity(uid, gid int, _ []capability.Cap) error { return nil }
func (s *refusingSystem) RaiseAmbient(caps []capability.Cap) error              { return nil }
func (s *refusingSystem) SetKeepCapabilities(keep bool) error                   { return nil }
func (s *refusingSystem) Umask(mask int)                                        {}
func (s *refusingSystem) Nice(delta int) error                                  { return nil }

func (s *refusingSystem) Exec(path string, argv, env []string) error {
	s.execPath, s.execArgv = path, argv
	return errors.New("exec refused")
}

func TestRunLauncher(t *testing.T) {
	t.Parallel()

	spec := jailspec.JailSpec{
		Name:       "/bin/echo",
		Identity:   jailspec.Identity{User: "nobody", UID: 65534, Group: "nogroup", GID: 65534},
		ChrootName: "echo1",
		Arguments:  "hello world",
	}
	system := &refusingSystem{}
	if status := RunLauncher(system, encodedSpec(t, spec), discardLogger()); status != process.ExitFatal {
		t.Errorf("RunLauncher = %d, want ExitFatal", status)
	}
	if system.execPath != "/bin/echo" {
		t.Errorf("exec path = %q", system.execPath)
	}
	if len(system.execArgv) != 3 || system.execArgv[2] != "world" {
		t.Errorf("exec argv = %q", system.execArgv)
	}
}

func TestRunLauncherBadSpec(t *testing.T) {
	t.Parallel()

	system := &refusingSystem{}
	if status := RunLauncher(system, bytes.NewReader(nil), discardLogger()); status != process.ExitFatal {
		t.Errorf("RunLauncher = %d, want ExitFatal", status)
	}
	if system.execPath != "" {
		t.Error("exec attempted without a spec")
	}
}
