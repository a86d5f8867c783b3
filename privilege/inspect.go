// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package privilege

import (
	"fmt"
	"io"
	"strings"

	"github.com/syndtr/gocapability/capability"
)

// inspectedSets are reported in this order.
var inspectedSets = []capability.CapType{
	capability.EFFECTIVE,
	capability.PERMITTED,
	capability.INHERITABLE,
	capability.AMBIENT,
	capability.BOUNDING,
}

// SetReport lists the capabilities present in one set.
type SetReport struct {
	Set          capability.CapType
	Capabilities []capability.Cap
}

// Report is the capability state of one process.
type Report struct {
	PID  int
	Sets []SetReport

	// Violations lists every forbidden capability found, once per set
	// it appears in. The bounding set is included: a cleared bounding
	// set is part of the jail contract.
	Violations []Violation
}

// Violation is a forbidden capability present in a set.
type Violation struct {
	Set        capability.CapType
	Capability capability.Cap
}

func (v Violation) String() string {
	return fmt.Sprintf("cap_%s in %s", v.Capability, v.Set)
}

// Clean reports whether no forbidden capability was found.
func (r *Report) Clean() bool {
	return len(r.Violations) == 0
}

// Inspect reads the capability sets of pid from /proc.
func Inspect(pid int) (*Report, error) {
	state, err := capability.NewPid2(pid)
	if err != nil {
		return nil, fmt.Errorf("opening capabilities of pid %d: %w", pid, err)
	}
	if err := state.Load(); err != nil {
		return nil, fmt.Errorf("loading capabilities of pid %d: %w", pid, err)
	}
	report := Evaluate(state)
	report.PID = pid
	return report, nil
}

// Evaluate builds a report from already loaded capability state.
func Evaluate(state capability.Capabilities) *Report {
	report := &Report{}
	for _, set := range inspectedSets {
		setReport := SetReport{Set: set}
		for _, c := range capability.List() {
			if !state.Get(set, c) {
				continue
			}
			setReport.Capabilities = append(setReport.Capabilities, c)
			if IsForbidden(c) {
				report.Violations = append(report.Violations, Violation{Set: set, Capability: c})
			}
		}
		report.Sets = append(report.Sets, setReport)
	}
	return report
}

// Print writes a human-readable report.
func (r *Report) Print(w io.Writer) {
	fmt.Fprintf(w, "pid %d\n", r.PID)
	for _, set := range r.Sets {
		names := make([]string, len(set.Capabilities))
		for i, c := range set.Capabilities {
			names[i] = c.String()
		}
		if len(names) == 0 {
			names = []string{"(empty)"}
		}
		fmt.Fprintf(w, "  %-11s %s\n", set.Set.String()+":", strings.Join(names, " "))
	}
	fmt.Fprintln(w)
	if r.Clean() {
		fmt.Fprintln(w, "✓ no forbidden capabilities")
		return
	}
	for _, violation := range r.Violations {
		fmt.Fprintf(w, "✗ %s\n", violation)
	}
}
