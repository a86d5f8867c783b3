// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package jailspec

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewValidator(t *testing.T) {
	t.Parallel()

	validator := NewValidator()

	if validator.HasErrors() {
		t.Error("new validator should have no errors")
	}
	if length := len(validator.Results()); length != 0 {
		t.Errorf("new validator should have no results, got %d", length)
	}
	if err := validator.Err(); err != nil {
		t.Errorf("Err() = %v, want nil", err)
	}
}

func TestValidatorAccumulation(t *testing.T) {
	t.Parallel()

	validator := NewValidator()
	validator.pass("check-a", "all good")
	validator.warn("check-b", "something is off")
	if validator.HasErrors() {
		t.Error("warnings should not count as errors")
	}

	validator.fail("check-c", "broken")
	if !validator.HasErrors() {
		t.Error("should have errors after a fail")
	}
	if length := len(validator.Results()); length != 3 {
		t.Fatalf("expected 3 results, got %d", length)
	}

	err := validator.Err()
	if err == nil {
		t.Fatal("Err() should be non-nil after a failure")
	}
	if !strings.Contains(err.Error(), "check-c: broken") {
		t.Errorf("Err() = %q, want it to mention check-c", err)
	}
	if strings.Contains(err.Error(), "check-b") {
		t.Errorf("Err() = %q should not mention warnings", err)
	}
}

// validSpec returns a spec that passes every check on any Linux host
// by pointing at files under dir.
func validSpec(t *testing.T, dir string) JailSpec {
	t.Helper()

	binary := filepath.Join(dir, "bin", "echo")
	if err := os.MkdirAll(filepath.Dir(binary), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(binary, []byte("#!/bin/sh\n"), 0755); err != nil {
		t.Fatal(err)
	}
	libDir := filepath.Join(dir, "lib")
	if err := os.MkdirAll(libDir, 0755); err != nil {
		t.Fatal(err)
	}
	config := filepath.Join(dir, "etc.conf")
	if err := os.WriteFile(config, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	return JailSpec{
		Name:         binary,
		Identity:     Identity{User: "nobody", UID: 65534, Group: "nogroup", GID: 65534},
		ChrootName:   "echo1",
		Home:         "nobody",
		BindReadOnly: []string{"ro:" + libDir},
		CopyFiles:    []string{config},
		CopyDirs:     []string{libDir},
	}
}

func TestValidateAllPasses(t *testing.T) {
	t.Parallel()

	spec := validSpec(t, t.TempDir())
	validator := NewValidator()
	validator.ValidateAll(spec)

	if validator.HasErrors() {
		var buffer bytes.Buffer
		validator.PrintResults(&buffer)
		t.Fatalf("valid spec failed validation:\n%s", buffer.String())
	}
}

func TestValidateAllFailures(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	tests := []struct {
		name   string
		mutate func(*JailSpec)
		check  string
	}{
		{"relative executable", func(s *JailSpec) { s.Name = "bin/echo" }, "executable"},
		{"missing executable", func(s *JailSpec) { s.Name = filepath.Join(dir, "absent") }, "executable"},
		{"directory executable", func(s *JailSpec) { s.Name = dir }, "executable"},
		{"unresolved identity", func(s *JailSpec) { s.Identity = Identity{} }, "identity"},
		{"traversal chroot", func(s *JailSpec) { s.ChrootName = ".." }, "chroot-name"},
		{"nested chroot", func(s *JailSpec) { s.ChrootName = "a/b" }, "chroot-name"},
		{"empty home", func(s *JailSpec) { s.Home = "" }, "home"},
		{"bind without slash", func(s *JailSpec) { s.BindReadWrite = []string{"nothing"} }, "bind_rw"},
		{"bind of a file", func(s *JailSpec) { s.BindReadOnly = []string{s.Name} }, "bind_ro"},
		{"bind of host root", func(s *JailSpec) { s.BindReadOnly = []string{"/"} }, "bind_ro"},
		{"copy_f of a directory", func(s *JailSpec) { s.CopyFiles = []string{dir} }, "copy_f"},
		{"copy_d of a file", func(s *JailSpec) { s.CopyDirs = []string{s.Name} }, "copy_d"},
		{"umask too wide", func(s *JailSpec) { s.Umask = 0o1777 }, "umask"},
		{"negative arena", func(s *JailSpec) { s.Limits.Arena = -1 }, "arena"},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			spec := validSpec(t, t.TempDir())
			test.mutate(&spec)

			validator := NewValidator()
			validator.ValidateAll(spec)

			if !validator.HasErrors() {
				t.Fatal("expected validation errors")
			}
			found := false
			for _, result := range validator.Results() {
				if !result.Passed && result.Name == test.check {
					found = true
				}
			}
			if !found {
				t.Errorf("no failed %q check in %+v", test.check, validator.Results())
			}
		})
	}
}

func TestValidateWarnings(t *testing.T) {
	t.Parallel()

	spec := validSpec(t, t.TempDir())
	spec.Identity.UID = 0
	spec.Limits.Nice = 25
	spec.Arguments = strings.Repeat("a ", MaxArguments+3)

	validator := NewValidator()
	validator.ValidateAll(spec)

	if validator.HasErrors() {
		t.Fatalf("warnings should not fail validation: %+v", validator.Results())
	}
	warnings := map[string]bool{}
	for _, result := range validator.Results() {
		if result.Warning {
			warnings[result.Name] = true
		}
	}
	for _, name := range []string{"identity", "nice", "arguments"} {
		if !warnings[name] {
			t.Errorf("expected a %q warning", name)
		}
	}
}

func TestPrintResults(t *testing.T) {
	t.Parallel()

	validator := NewValidator()
	validator.pass("executable", "/bin/echo")
	validator.warn("nice", "ignored")
	validator.fail("home", "home is empty")

	var buffer bytes.Buffer
	validator.PrintResults(&buffer)
	output := buffer.String()

	for _, want := range []string{"✓ executable: /bin/echo", "⚠ nice: ignored", "✗ home: home is empty", "Validation failed with 1 error(s)"} {
		if !strings.Contains(output, want) {
			t.Errorf("output missing %q:\n%s", want, output)
		}
	}
}
