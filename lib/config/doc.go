// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package config provides YAML loading of jailkeeper's daemon settings:
// where jails live, where locks and logs go, and the timing knobs of the
// supervision loop. Per-jail settings are not here; they come from jail
// documents (lib/jailconfig).
//
// Settings are loaded from a single file specified by either the
// JAILKEEPER_SETTINGS environment variable (via [Load]) or the
// --settings flag (via [LoadFile]). There are no fallbacks and no
// automatic file search. Without a settings file the command runs on
// [Default] values, and command-line flags override whichever was used.
//
// Variable expansion is performed on path fields after loading:
// ${JAIL_ROOT}, ${RUN_DIR}, and ${VAR:-default} patterns are expanded.
//
// This package depends on no other jailkeeper packages.
package config
