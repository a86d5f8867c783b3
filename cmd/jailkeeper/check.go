// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"io"
	"os"

	"github.com/bureau-foundation/jailkeeper/jail"
	"github.com/bureau-foundation/jailkeeper/lib/config"
	"github.com/bureau-foundation/jailkeeper/lib/jailconfig"
	"github.com/bureau-foundation/jailkeeper/lib/jailspec"
	"github.com/bureau-foundation/jailkeeper/lib/process"
	"github.com/bureau-foundation/jailkeeper/privilege"
	"github.com/bureau-foundation/jailkeeper/supervise"
)

// check validates the document at path and the host without touching
// any jail, and prints what a launch would do.
func check(w io.Writer, path string, cfg *config.Config) int {
	spec, err := jailconfig.Load(path, nil)
	if err != nil {
		fmt.Fprintf(w, "✗ document: %v\n", err)
		return process.ExitFatal
	}

	validator := jailspec.NewValidator()
	validator.ValidateAll(spec)
	validator.PrintResults(w)

	plan := privilege.NewPlan(spec)
	fmt.Fprintf(w, "\nLaunch plan for %s:\n", spec.ChrootName)
	fmt.Fprintf(w, "  argv:         %q\n", plan.Argv)
	fmt.Fprintf(w, "  identity:     %s(%d):%s(%d)\n", spec.Identity.User, plan.UID, spec.Identity.Group, plan.GID)
	capabilities := plan.FileCapabilityText()
	if capabilities == "" {
		capabilities = "(none)"
	}
	fmt.Fprintf(w, "  capabilities: %s\n", capabilities)
	for _, rejected := range plan.Rejected {
		fmt.Fprintf(w, "  ⚠ %v\n", rejected)
	}
	fmt.Fprintf(w, "  restart:      never_die=%v reboot_on_die=%v\n", spec.Restart.NeverDie, spec.Restart.RebootOnDie)

	launcherOK := true
	if executable, err := os.Executable(); err != nil {
		fmt.Fprintf(w, "\n⚠ cannot locate own executable: %v\n", err)
	} else if err := jail.CheckLauncher(executable, spec); err != nil {
		fmt.Fprintf(w, "\n✗ launcher: %v\n", err)
		launcherOK = false
	} else {
		fmt.Fprintf(w, "\n✓ launcher can start inside the jail\n")
	}

	report := jail.DetectHost(cfg.Paths.JailRoot)
	if reason := report.SkipReason(); reason != "" {
		fmt.Fprintf(w, "\n⚠ host cannot run jails: %s\n", reason)
	} else {
		fmt.Fprintf(w, "\n✓ host can run jails\n")
	}

	if validator.HasErrors() || !launcherOK {
		return process.ExitFatal
	}
	return process.ExitOK
}

// inspect reports the capability sets of the live target of jail name.
// It exits non-zero when a forbidden capability is present.
func inspect(w io.Writer, runDir, name string) int {
	record, err := supervise.ReadInstance(runDir, name)
	if err != nil {
		fmt.Fprintf(w, "✗ %v\n", err)
		return process.ExitFatal
	}
	fmt.Fprintf(w, "jail %s\n  root:    %s\n  binary:  %s\n  blake3:  %s\n  started: %s\n  keeper:  %d (parent %d)\n",
		record.ChrootName, record.JailRoot, record.Executable, record.Digest,
		record.Started.Format("2006-01-02 15:04:05 MST"), record.KeeperPID, record.KeeperPPID)

	report, err := privilege.Inspect(record.TargetPID)
	if err != nil {
		fmt.Fprintf(w, "✗ %v\n", err)
		return process.ExitFatal
	}
	report.Print(w)
	if !report.Clean() {
		return process.ExitFatal
	}
	return process.ExitOK
}
