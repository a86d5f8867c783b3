// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package privilege

import (
	"fmt"
	"slices"
	"strings"

	"github.com/syndtr/gocapability/capability"
	"golang.org/x/sys/unix"

	"github.com/bureau-foundation/jailkeeper/lib/jailspec"
)

// Forbidden lists the capabilities a jailed process may never hold.
var Forbidden = []capability.Cap{
	capability.CAP_SYS_ADMIN,
	capability.CAP_SETPCAP,
	capability.CAP_SETFCAP,
	capability.CAP_SYS_CHROOT,
}

// setupCapabilities are held by the launcher until the re-drop. A
// capset can only shrink the permitted set, so SETUID and SETGID must
// be kept here for the identity switch that follows. SETPCAP and
// SETFCAP are always dropped again; the others survive only if
// requested.
var setupCapabilities = []capability.Cap{
	capability.CAP_CHOWN,
	capability.CAP_SETPCAP,
	capability.CAP_SETFCAP,
	capability.CAP_SETUID,
	capability.CAP_SETGID,
}

// UnknownCapabilityError reports a name that matches no capability.
type UnknownCapabilityError struct {
	Name string
}

func (e *UnknownCapabilityError) Error() string {
	return fmt.Sprintf("unknown capability %q", e.Name)
}

// ForbiddenCapabilityError reports a request for a forbidden capability.
type ForbiddenCapabilityError struct {
	Name       string
	Capability capability.Cap
}

func (e *ForbiddenCapabilityError) Error() string {
	return fmt.Sprintf("capability %q (cap_%s) is forbidden inside a jail", e.Name, e.Capability)
}

// IsForbidden reports whether c is in the forbidden set.
func IsForbidden(c capability.Cap) bool {
	return slices.Contains(Forbidden, c)
}

// Resolve maps a capability name to its value. Matching is exact,
// case-insensitive, and the "cap_" prefix is optional.
func Resolve(name string) (capability.Cap, error) {
	normalized := strings.TrimPrefix(strings.ToLower(strings.TrimSpace(name)), "cap_")
	for _, c := range capability.List() {
		if c.String() != normalized {
			continue
		}
		if IsForbidden(c) {
			return c, &ForbiddenCapabilityError{Name: name, Capability: c}
		}
		return c, nil
	}
	return 0, &UnknownCapabilityError{Name: name}
}

// Rlimit is one resource ceiling to apply.
type Rlimit struct {
	Name     string
	Resource int
	Value    uint64
}

// Plan is everything Launch applies, computed ahead of time.
type Plan struct {
	Limits []Rlimit

	// Accepted are the resolved capabilities the target keeps, in
	// request order and without duplicates.
	Accepted []capability.Cap

	// Rejected holds one *UnknownCapabilityError or
	// *ForbiddenCapabilityError per skipped name.
	Rejected []error

	// RetainChown is true when CAP_CHOWN was requested.
	RetainChown bool

	// WriteFileCapabilities writes Accepted onto Executable before the
	// identity switch.
	WriteFileCapabilities bool

	UID   int
	GID   int
	Umask int

	// Nice is applied only when ApplyNice is set.
	Nice      int
	ApplyNice bool

	Executable  string
	Argv        []string
	Environment []string
}

// NewPlan computes the launch plan for spec.
func NewPlan(spec jailspec.JailSpec) Plan {
	plan := Plan{
		Limits: []Rlimit{
			{Name: "as", Resource: unix.RLIMIT_AS, Value: rlimitValue(spec.Limits.AddressSpace)},
			{Name: "fsize", Resource: unix.RLIMIT_FSIZE, Value: rlimitValue(spec.Limits.FileSize)},
			{Name: "msgqueue", Resource: unix.RLIMIT_MSGQUEUE, Value: rlimitValue(spec.Limits.MessageQueue)},
			{Name: "stack", Resource: unix.RLIMIT_STACK, Value: rlimitValue(spec.Limits.Stack)},
			{Name: "data", Resource: unix.RLIMIT_DATA, Value: rlimitValue(spec.Limits.Data)},
			{Name: "core", Resource: unix.RLIMIT_CORE, Value: 0},
		},
		WriteFileCapabilities: spec.FileCapabilities,
		UID:                   int(spec.Identity.UID),
		GID:                   int(spec.Identity.GID),
		Umask:                 int(spec.Umask & 0o777),
		Nice:                  spec.Limits.Nice,
		ApplyNice:             spec.Limits.NiceApplicable(),
		Executable:            spec.Name,
		Argv:                  spec.Argv(),
		Environment:           jailspec.MinimalEnvironment(),
	}

	for _, name := range spec.Capabilities {
		c, err := Resolve(name)
		if err != nil {
			plan.Rejected = append(plan.Rejected, err)
			continue
		}
		if c == capability.CAP_CHOWN {
			plan.RetainChown = true
		}
		if !slices.Contains(plan.Accepted, c) {
			plan.Accepted = append(plan.Accepted, c)
		}
	}
	return plan
}

func rlimitValue(limit jailspec.Limit) uint64 {
	if limit.IsUnlimited() {
		return unix.RLIM_INFINITY
	}
	return uint64(limit)
}

// SetupCapabilities returns the sets held between the capability step
// and the re-drop: Accepted plus CHOWN, SETPCAP, SETFCAP, SETUID and
// SETGID.
func (p Plan) SetupCapabilities() []capability.Cap {
	caps := slices.Clone(p.Accepted)
	for _, c := range setupCapabilities {
		if !slices.Contains(caps, c) {
			caps = append(caps, c)
		}
	}
	return caps
}

// FinalCapabilities returns the E/P/I sets the target keeps.
// CHOWN is in Accepted exactly when it was requested.
func (p Plan) FinalCapabilities() []capability.Cap {
	return slices.DeleteFunc(slices.Clone(p.Accepted), IsForbidden)
}

// FileCapabilityText renders Accepted in cap_from_text(3) form, one
// "cap_<name>+epi" clause per capability.
func (p Plan) FileCapabilityText() string {
	clauses := make([]string, len(p.Accepted))
	for i, c := range p.Accepted {
		clauses[i] = "cap_" + c.String() + "+epi"
	}
	return strings.Join(clauses, " ")
}
