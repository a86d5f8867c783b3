// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package jailconfig loads jail documents and produces a
// [jailspec.JailSpec].
//
// Three encodings are accepted, selected by file extension:
//
//   - .xml: the element format (<jail name=...>, <user username=...
//     group=...>, <rlimit .../>, <caps name=.../>, <args name=.../>,
//     <bind_ro path=.../>, <bind_rw>, <copy_f>, <copy_d>, <home>,
//     <chpath>, <restart value=.../>, <reboot value=.../>). Path and
//     capability attributes hold whitespace-separated lists.
//   - .yaml / .yml: a flat mapping decoded with gopkg.in/yaml.v3.
//   - .jsonc / .json: the same mapping as JSON with comments and
//     trailing commas allowed (github.com/tidwall/jsonc).
//
// Every encoding decodes first into a closed set of typed [Element]
// values, one per element kind, and the elements are then applied in
// document order to build the spec. Unknown elements, unknown fields,
// and malformed numbers are errors: a document either maps completely
// onto a JailSpec or is rejected before any jail activity starts.
//
// User and group names are resolved through a [Resolver]; the default
// uses the host's account database. An unresolvable name is fatal,
// there is no fallback to root.
package jailconfig
