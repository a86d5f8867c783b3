// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package supervise

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"syscall"
	"time"

	"golang.org/x/sys/unix"

	"github.com/bureau-foundation/jailkeeper/lib/clock"
	"github.com/bureau-foundation/jailkeeper/lib/handshake"
	"github.com/bureau-foundation/jailkeeper/lib/jailspec"
	"github.com/bureau-foundation/jailkeeper/lib/process"
)

// Roles selected by the hidden --role flag.
const (
	RoleSupervise = "supervise"
	RoleKeeper    = "keeper"
	RoleLaunch    = "launch"
)

// File descriptors inherited by role children. ExtraFiles[i] becomes
// fd 3+i.
const (
	// ReadyFD carries the supervisor's readiness record to the invoker.
	ReadyFD = 3

	// SpecFD carries the JailSpec into a keeper or launcher.
	SpecFD = 3

	// ChannelFD carries the keeper's launch record to the supervisor.
	ChannelFD = 4

	// LogFD is the launcher's log file, opened by the keeper before
	// chroot.
	LogFD = 4
)

// SelfExecutable is what role children are started from. It resolves
// even after chroot as long as /proc is mounted inside the jail.
const SelfExecutable = "/proc/self/exe"

// Reexec starts role children by re-executing the running binary.
type Reexec struct {
	// Executable defaults to SelfExecutable.
	Executable string

	// Args are passed to every child ahead of the role flag.
	Args []string
}

func (r Reexec) command(role string, extra ...string) *exec.Cmd {
	executable := r.Executable
	if executable == "" {
		executable = SelfExecutable
	}
	args := append([]string{}, r.Args...)
	args = append(args, "--role="+role)
	args = append(args, extra...)
	return exec.Command(executable, args...)
}

// InheritedFile wraps a file descriptor received from the parent and
// marks it close-on-exec so it does not leak into the next exec.
func InheritedFile(fd int, name string) (*os.File, error) {
	if _, err := unix.FcntlInt(uintptr(fd), unix.F_GETFD, 0); err != nil {
		return nil, fmt.Errorf("fd %d (%s) not inherited: %w", fd, name, err)
	}
	unix.CloseOnExec(fd)
	return os.NewFile(uintptr(fd), name), nil
}

// Daemonize starts the supervisor role in a new session with stdio on
// /dev/null and waits up to timeout for its readiness record. It
// returns the supervisor's pid. A supervisor that fails to report in
// time is killed.
func (r Reexec) Daemonize(clk clock.Clock, timeout time.Duration, extra ...string) (int, error) {
	readyRead, readyWrite, err := os.Pipe()
	if err != nil {
		return 0, fmt.Errorf("creating readiness pipe: %w", err)
	}
	defer readyRead.Close()

	command := r.command(RoleSupervise, extra...)
	command.ExtraFiles = []*os.File{readyWrite} // becomes ReadyFD in child
	command.SysProcAttr = &syscall.SysProcAttr{Setsid: true}

	if err := command.Start(); err != nil {
		readyWrite.Close()
		return 0, fmt.Errorf("starting supervisor: %w", err)
	}
	// The child holds its own copy; without this close a dead child
	// would never produce EOF.
	readyWrite.Close()

	var ready handshake.Ready
	if err := handshake.ReceiveWithin(clk, readyRead, timeout, &ready); err != nil {
		command.Process.Kill()
		command.Wait()
		return 0, fmt.Errorf("supervisor did not become ready: %w", err)
	}
	// The supervisor outlives the invoker and is reparented to init.
	command.Process.Release()
	return ready.PID, nil
}

// SignalReady sends the readiness record and closes the pipe.
func SignalReady(w io.WriteCloser) error {
	return handshake.Send(w, handshake.Ready{PID: os.Getpid()})
}

// Keeper is a started keeper process.
type Keeper interface {
	// PID returns the keeper's process id.
	PID() int

	// Launched blocks until the keeper reports the launch. It returns
	// an error if the keeper closed the channel without a record, which
	// means it failed before the target started.
	Launched() (handshake.LaunchRecord, error)

	// Wait blocks until the keeper exits and returns its exit status.
	Wait() (int, error)
}

// StartKeeperFunc starts one keeper for spec.
type StartKeeperFunc func(spec jailspec.JailSpec) (Keeper, error)

type execKeeper struct {
	command *exec.Cmd
	channel *os.File
}

// StartKeeper starts the keeper role with spec on SpecFD and the launch
// channel on ChannelFD. The keeper inherits the caller's stdio, which
// the target inherits in turn.
func (r Reexec) StartKeeper(spec jailspec.JailSpec) (Keeper, error) {
	specRead, specWrite, err := os.Pipe()
	if err != nil {
		return nil, fmt.Errorf("creating spec pipe: %w", err)
	}
	channelRead, channelWrite, err := os.Pipe()
	if err != nil {
		specRead.Close()
		specWrite.Close()
		return nil, fmt.Errorf("creating launch channel: %w", err)
	}

	command := r.command(RoleKeeper)
	command.Stdin = os.Stdin
	command.Stdout = os.Stdout
	command.Stderr = os.Stderr
	command.ExtraFiles = []*os.File{specRead, channelWrite}

	startErr := command.Start()
	specRead.Close()
	channelWrite.Close()
	if startErr != nil {
		specWrite.Close()
		channelRead.Close()
		return nil, fmt.Errorf("starting keeper: %w", startErr)
	}

	if err := handshake.Send(specWrite, spec); err != nil {
		// The keeper exits on its own once its spec pipe is closed.
		command.Wait()
		channelRead.Close()
		return nil, fmt.Errorf("sending spec to keeper: %w", err)
	}
	return &execKeeper{command: command, channel: channelRead}, nil
}

func (k *execKeeper) PID() int {
	return k.command.Process.Pid
}

func (k *execKeeper) Launched() (handshake.LaunchRecord, error) {
	var record handshake.LaunchRecord
	err := handshake.Receive(k.channel, &record)
	k.channel.Close()
	return record, err
}

func (k *execKeeper) Wait() (int, error) {
	err := k.command.Wait()
	k.channel.Close()
	return exitStatus(err)
}

// exitStatus folds the result of exec.Cmd.Wait into an exit status.
func exitStatus(err error) (int, error) {
	if err == nil {
		return process.ExitOK, nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		if status, ok := exitErr.Sys().(syscall.WaitStatus); ok {
			return process.StatusCode(status), nil
		}
		return exitErr.ExitCode(), nil
	}
	return process.ExitFatal, err
}

// StartLauncher starts the launch role with spec on SpecFD and logFile
// on LogFD. The launcher inherits the caller's stdio.
func (r Reexec) StartLauncher(spec jailspec.JailSpec, logFile *os.File) (*exec.Cmd, error) {
	specRead, specWrite, err := os.Pipe()
	if err != nil {
		return nil, fmt.Errorf("creating spec pipe: %w", err)
	}

	command := r.command(RoleLaunch)
	command.Stdin = os.Stdin
	command.Stdout = os.Stdout
	command.Stderr = os.Stderr
	command.ExtraFiles = []*os.File{specRead}
	if logFile != nil {
		command.ExtraFiles = append(command.ExtraFiles, logFile)
	}

	startErr := command.Start()
	specRead.Close()
	if startErr != nil {
		specWrite.Close()
		return nil, fmt.Errorf("starting launcher: %w", startErr)
	}
	if err := handshake.Send(specWrite, spec); err != nil {
		command.Process.Kill()
		command.Wait()
		return nil, fmt.Errorf("sending spec to launcher: %w", err)
	}
	return command, nil
}
