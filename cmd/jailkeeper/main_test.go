// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/jailkeeper/jail"
	"github.com/bureau-foundation/jailkeeper/lib/config"
	"github.com/bureau-foundation/jailkeeper/lib/process"
	"github.com/bureau-foundation/jailkeeper/lib/testutil"
	"github.com/bureau-foundation/jailkeeper/supervise"
)

func TestParseFlags(t *testing.T) {
	opts, _, err := parseFlags([]string{"--foreground", "--role=keeper", "/etc/jail/echo.xml", "first-run"})
	if err != nil {
		t.Fatal(err)
	}
	if !opts.foreground || opts.role != supervise.RoleKeeper {
		t.Errorf("options = %+v", opts)
	}
	if !slices.Equal(opts.positional, []string{"/etc/jail/echo.xml", "first-run"}) {
		t.Errorf("positional = %q", opts.positional)
	}

	if _, _, err := parseFlags([]string{"--help"}); err != pflag.ErrHelp {
		t.Errorf("--help = %v, want ErrHelp", err)
	}
	if _, _, err := parseFlags([]string{"--no-such-flag"}); err == nil {
		t.Error("unknown flag accepted")
	}
}

func TestRoleFlagHidden(t *testing.T) {
	_, flagSet, err := parseFlags(nil)
	if err != nil {
		t.Fatal(err)
	}
	var buffer bytes.Buffer
	flagSet.SetOutput(&buffer)
	flagSet.PrintDefaults()
	if strings.Contains(buffer.String(), "--role") {
		t.Errorf("--role listed in help:\n%s", buffer.String())
	}
	if !strings.Contains(buffer.String(), "--jail-root") {
		t.Errorf("--jail-root missing from help:\n%s", buffer.String())
	}
}

func TestResolveConfigPrecedence(t *testing.T) {
	t.Setenv(config.EnvironmentVariable, "")

	settings := filepath.Join(t.TempDir(), "settings.yaml")
	content := "paths:\n  jail_root: /srv/jail\n  run_dir: /srv/run\nlogging:\n  level: warn\n"
	if err := os.WriteFile(settings, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	opts, flagSet, err := parseFlags([]string{"--settings", settings, "--run-dir", "/tmp/run", "--debug", "doc.xml"})
	if err != nil {
		t.Fatal(err)
	}
	cfg, err := resolveConfig(opts, flagSet)
	if err != nil {
		t.Fatal(err)
	}

	if cfg.Paths.JailRoot != "/srv/jail" {
		t.Errorf("JailRoot = %q, want the settings file value", cfg.Paths.JailRoot)
	}
	if cfg.Paths.RunDir != "/tmp/run" {
		t.Errorf("RunDir = %q, want the flag value", cfg.Paths.RunDir)
	}
	if cfg.Paths.LogFile != "/var/log/jail.log" {
		t.Errorf("LogFile = %q, want the default", cfg.Paths.LogFile)
	}
	if cfg.Logging.Level != "DEBUG" {
		t.Errorf("Level = %q, want --debug to win", cfg.Logging.Level)
	}

	args := childArgs(opts, cfg)
	for _, want := range []string{"--jail-root=/srv/jail", "--run-dir=/tmp/run", "--settings=" + settings, "--debug"} {
		if !slices.Contains(args, want) {
			t.Errorf("child args %q lack %q", args, want)
		}
	}
	for _, arg := range args {
		if strings.HasPrefix(arg, "--role") {
			t.Errorf("child args carry a role: %q", args)
		}
	}
}

func TestResolveConfigRejectsRelativePaths(t *testing.T) {
	t.Setenv(config.EnvironmentVariable, "")

	opts, flagSet, err := parseFlags([]string{"--jail-root", "var/jail"})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := resolveConfig(opts, flagSet); err == nil {
		t.Error("relative --jail-root accepted")
	}
}

func TestStatusError(t *testing.T) {
	if statusError(process.ExitOK) != nil {
		t.Error("status 0 produced an error")
	}
	var coder interface{ ExitCode() int }
	if err := statusError(137); !errors.As(err, &coder) || coder.ExitCode() != 137 {
		t.Errorf("statusError(137) = %v", err)
	}
}

func TestRunArgumentCount(t *testing.T) {
	t.Setenv(config.EnvironmentVariable, "")

	for _, args := range [][]string{
		{},
		{"a.xml", "first-run", "extra"},
	} {
		if err := run(args); err == nil {
			t.Errorf("run(%q) succeeded", args)
		}
	}
}

func writeDocument(t *testing.T, executable string, extra ...string) string {
	t.Helper()
	document := "executable: " + executable + "\n" +
		"user: root\n" +
		"group: root\n" +
		"chroot_name: check1\n" +
		"home: root\n" +
		"capabilities: [net_bind_service, sys_admin]\n" +
		"restart: true\n" +
		strings.Join(extra, "")
	path := filepath.Join(t.TempDir(), "check.yaml")
	if err := os.WriteFile(path, []byte(document), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

// testLoader returns the ELF interpreter of the running test binary, or
// "" when it is statically linked.
func testLoader(t *testing.T) string {
	t.Helper()
	executable, err := os.Executable()
	if err != nil {
		t.Fatal(err)
	}
	interpreter, err := jail.Interpreter(executable)
	if err != nil {
		t.Fatal(err)
	}
	return interpreter
}

func TestCheck(t *testing.T) {
	var extra []string
	if loader := testLoader(t); loader != "" {
		extra = append(extra, "bind_ro: ["+filepath.Dir(loader)+"]\n")
	}
	path := writeDocument(t, testutil.RequireBinary(t, "sh"), extra...)
	cfg := config.Default()
	cfg.Paths.JailRoot = filepath.Join(t.TempDir(), "jail")

	var output bytes.Buffer
	if status := check(&output, path, cfg); status != process.ExitOK {
		t.Errorf("check = %d\n%s", status, output.String())
	}
	for _, want := range []string{
		"Launch plan for check1",
		"cap_net_bind_service+epi",
		"forbidden",
		"never_die=true",
		"✓ launcher can start inside the jail",
	} {
		if !strings.Contains(output.String(), want) {
			t.Errorf("check output lacks %q:\n%s", want, output.String())
		}
	}
}

func TestCheckRejectsDynamicLauncherWithoutLoader(t *testing.T) {
	loader := testLoader(t)
	if loader == "" {
		t.Skip("test binary is statically linked")
	}
	path := writeDocument(t, testutil.RequireBinary(t, "sh"))
	cfg := config.Default()
	cfg.Paths.JailRoot = filepath.Join(t.TempDir(), "jail")

	var output bytes.Buffer
	if status := check(&output, path, cfg); status != process.ExitFatal {
		t.Errorf("check = %d, want ExitFatal\n%s", status, output.String())
	}
	for _, want := range []string{"✗ launcher", loader, "CGO_ENABLED=0"} {
		if !strings.Contains(output.String(), want) {
			t.Errorf("check output lacks %q:\n%s", want, output.String())
		}
	}
}

func TestCheckRejectsBadDocument(t *testing.T) {
	path := writeDocument(t, "relative/path")
	var output bytes.Buffer
	if status := check(&output, path, config.Default()); status != process.ExitFatal {
		t.Errorf("check = %d, want ExitFatal\n%s", status, output.String())
	}
}

func TestInspectWithoutInstance(t *testing.T) {
	var output bytes.Buffer
	if status := inspect(&output, t.TempDir(), "echo1"); status != process.ExitFatal {
		t.Errorf("inspect = %d, want ExitFatal", status)
	}
	if !strings.Contains(output.String(), "✗") {
		t.Errorf("output = %q", output.String())
	}
}
