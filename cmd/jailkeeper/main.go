// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"os"
	"runtime"
	"slices"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/jailkeeper/lib/process"
	"github.com/bureau-foundation/jailkeeper/lib/version"
	"github.com/bureau-foundation/jailkeeper/supervise"
)

func init() {
	// Capability sets are per thread. The launcher changes them on the
	// main thread and must exec from it.
	if slices.Contains(os.Args[1:], "--role="+supervise.RoleLaunch) {
		runtime.LockOSThread()
	}
}

// exitError carries a non-zero exit status out of run without an
// error message.
type exitError int

func (e exitError) Error() string {
	return fmt.Sprintf("exit status %d", int(e))
}

func (e exitError) ExitCode() int {
	return int(e)
}

// statusError converts a role's exit status to run's error result.
func statusError(status int) error {
	if status == process.ExitOK {
		return nil
	}
	return exitError(status)
}

func main() {
	if err := run(os.Args[1:]); err != nil {
		if coder, ok := err.(interface{ ExitCode() int }); ok {
			os.Exit(coder.ExitCode())
		}
		process.Fatal(err)
	}
}

func run(args []string) error {
	opts, flagSet, err := parseFlags(args)
	if err != nil {
		if err == pflag.ErrHelp {
			printHelp(flagSet)
			return nil
		}
		return err
	}

	if opts.version {
		version.Print(os.Stdout, "jailkeeper")
		return nil
	}

	// The launcher runs inside the jail, where neither the settings file
	// nor the log file path exists.
	if opts.role == supervise.RoleLaunch {
		return statusError(launchRole(opts))
	}

	cfg, err := resolveConfig(opts, flagSet)
	if err != nil {
		return err
	}

	switch opts.role {
	case "":
		return invoke(opts, cfg)
	case supervise.RoleSupervise:
		return statusError(superviseRole(opts, cfg))
	case supervise.RoleKeeper:
		return statusError(keeperRole(opts, cfg))
	default:
		return fmt.Errorf("unknown role %q", opts.role)
	}
}

func printHelp(flagSet *pflag.FlagSet) {
	fmt.Fprint(os.Stderr, `jailkeeper - run a program in a supervised chroot jail

USAGE
    jailkeeper [flags] CONFIG [first-run]
    jailkeeper --check CONFIG
    jailkeeper --inspect NAME

FLAGS
`)
	flagSet.SetOutput(os.Stderr)
	flagSet.PrintDefaults()
	fmt.Fprint(os.Stderr, `
ENVIRONMENT
    JAILKEEPER_SETTINGS  Daemon settings file (overridden by --settings)
`)
}
