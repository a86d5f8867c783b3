// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package jailspec

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// ValidationResult holds the result of one validation check.
type ValidationResult struct {
	Name    string
	Passed  bool
	Message string
	Warning bool // True if this is a warning, not an error.
}

// Validator checks a JailSpec against the host before any jail activity
// starts. Failures are fatal to startup; warnings describe settings that
// will be normalized or ignored.
type Validator struct {
	results []ValidationResult
	errors  int
}

// NewValidator creates a new validator.
func NewValidator() *Validator {
	return &Validator{
		results: make([]ValidationResult, 0),
	}
}

// Results returns all validation results.
func (v *Validator) Results() []ValidationResult {
	return v.results
}

// HasErrors returns true if any validation failed.
func (v *Validator) HasErrors() bool {
	return v.errors > 0
}

// Err summarizes the failures as a single error, or nil.
func (v *Validator) Err() error {
	if !v.HasErrors() {
		return nil
	}
	var messages []string
	for _, result := range v.results {
		if !result.Passed {
			messages = append(messages, result.Name+": "+result.Message)
		}
	}
	return fmt.Errorf("jail document failed validation: %s", strings.Join(messages, "; "))
}

func (v *Validator) pass(name, message string) {
	v.results = append(v.results, ValidationResult{Name: name, Passed: true, Message: message})
}

func (v *Validator) warn(name, message string) {
	v.results = append(v.results, ValidationResult{Name: name, Passed: true, Message: message, Warning: true})
}

func (v *Validator) fail(name, message string) {
	v.results = append(v.results, ValidationResult{Name: name, Passed: false, Message: message})
	v.errors++
}

// ValidateAll runs every check against spec.
func (v *Validator) ValidateAll(spec JailSpec) {
	v.ValidateExecutable(spec.Name)
	v.ValidateIdentity(spec.Identity)
	v.ValidateNames(spec)
	v.ValidateBinds("bind_ro", spec.BindReadOnly)
	v.ValidateBinds("bind_rw", spec.BindReadWrite)
	v.ValidateCopies(spec)
	v.ValidateLimits(spec)
}

// ValidateExecutable checks that the target is an absolute path to an
// executable regular file.
func (v *Validator) ValidateExecutable(name string) {
	if !filepath.IsAbs(name) {
		v.fail("executable", fmt.Sprintf("%q is not an absolute path", name))
		return
	}
	info, err := os.Stat(name)
	if err != nil {
		v.fail("executable", fmt.Sprintf("cannot stat %s: %v", name, err))
		return
	}
	if !info.Mode().IsRegular() {
		v.fail("executable", fmt.Sprintf("%s is not a regular file", name))
		return
	}
	if info.Mode()&0111 == 0 {
		v.warn("executable", fmt.Sprintf("%s has no execute bit on the host (the jail copy is forced to 0755)", name))
		return
	}
	v.pass("executable", name)
}

// ValidateIdentity checks that the identity was resolved.
func (v *Validator) ValidateIdentity(identity Identity) {
	if !identity.Resolved() {
		v.fail("identity", "user and group must both be resolved")
		return
	}
	if identity.UID == 0 {
		v.warn("identity", fmt.Sprintf("user %s has uid 0; the target will run as root", identity.User))
		return
	}
	v.pass("identity", fmt.Sprintf("%s (%d) / %s (%d)", identity.User, identity.UID, identity.Group, identity.GID))
}

// ValidateNames checks the chroot name and home directory.
func (v *Validator) ValidateNames(spec JailSpec) {
	if err := ValidateComponent("chroot name", spec.ChrootName); err != nil {
		v.fail("chroot-name", err.Error())
	} else {
		v.pass("chroot-name", spec.ChrootName)
	}
	if err := ValidateComponent("home", spec.Home); err != nil {
		v.fail("home", err.Error())
	} else {
		v.pass("home", spec.Home)
	}
	if spec.Umask > 0o777 {
		v.fail("umask", fmt.Sprintf("%#o has bits outside 0777", spec.Umask))
	}
}

// ValidateBinds checks that every bind entry derives to an existing
// host directory.
func (v *Validator) ValidateBinds(kind string, entries []string) {
	for _, entry := range entries {
		path, err := HostPath(entry)
		if err != nil {
			v.fail(kind, err.Error())
			continue
		}
		info, err := os.Stat(path)
		if err != nil {
			v.fail(kind, fmt.Sprintf("cannot stat %s: %v", path, err))
			continue
		}
		if !info.IsDir() {
			v.fail(kind, fmt.Sprintf("%s is not a directory", path))
			continue
		}
		v.pass(kind, path)
	}
}

// ValidateCopies checks that copy sources exist with the right type.
// A missing source would be fatal during construction.
func (v *Validator) ValidateCopies(spec JailSpec) {
	for _, entry := range spec.CopyFiles {
		path, err := HostPath(entry)
		if err != nil {
			v.fail("copy_f", err.Error())
			continue
		}
		info, err := os.Stat(path)
		if err != nil {
			v.fail("copy_f", fmt.Sprintf("cannot stat %s: %v", path, err))
			continue
		}
		if info.IsDir() {
			v.fail("copy_f", fmt.Sprintf("%s is a directory (use copy_d)", path))
			continue
		}
		v.pass("copy_f", path)
	}
	for _, entry := range spec.CopyDirs {
		path, err := HostPath(entry)
		if err != nil {
			v.fail("copy_d", err.Error())
			continue
		}
		info, err := os.Stat(path)
		if err != nil {
			v.fail("copy_d", fmt.Sprintf("cannot stat %s: %v", path, err))
			continue
		}
		if !info.IsDir() {
			v.fail("copy_d", fmt.Sprintf("%s is not a directory", path))
			continue
		}
		v.pass("copy_d", path)
	}
}

// ValidateLimits reports settings that will be ignored or truncated.
func (v *Validator) ValidateLimits(spec JailSpec) {
	if count := len(strings.Fields(SanitizeArguments(spec.Arguments))); count > MaxArguments {
		v.warn("arguments", fmt.Sprintf("%d tokens given, only the first %d are passed", count, MaxArguments))
	}
	if spec.Limits.Nice != 0 && !spec.Limits.NiceApplicable() {
		v.warn("nice", fmt.Sprintf("delta %d is outside (-20, 19) and will be ignored", spec.Limits.Nice))
	}
	if spec.Limits.Arena < 0 || spec.Limits.Arena > MaxArena {
		v.fail("arena", fmt.Sprintf("hint %d is outside 0..%d", spec.Limits.Arena, MaxArena))
	}
}

// PrintResults writes a human-readable report.
func (v *Validator) PrintResults(w io.Writer) {
	for _, r := range v.results {
		var prefix string
		if r.Passed {
			if r.Warning {
				prefix = "⚠"
			} else {
				prefix = "✓"
			}
		} else {
			prefix = "✗"
		}
		fmt.Fprintf(w, "%s %s: %s\n", prefix, r.Name, r.Message)
	}

	fmt.Fprintln(w)
	if v.HasErrors() {
		fmt.Fprintf(w, "Validation failed with %d error(s)\n", v.errors)
	} else {
		fmt.Fprintln(w, "Jail document is valid")
	}
}
