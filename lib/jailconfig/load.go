// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package jailconfig

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/bureau-foundation/jailkeeper/lib/jailspec"
)

// Load reads the jail document at path, decodes it according to its
// extension, and builds the spec. A nil resolver uses SystemResolver.
func Load(path string, resolver Resolver) (jailspec.JailSpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return jailspec.JailSpec{}, fmt.Errorf("reading jail document: %w", err)
	}
	elements, err := Decode(filepath.Ext(path), data)
	if err != nil {
		return jailspec.JailSpec{}, fmt.Errorf("%s: %w", path, err)
	}
	spec, err := Build(elements, resolver)
	if err != nil {
		return jailspec.JailSpec{}, fmt.Errorf("%s: %w", path, err)
	}
	return spec, nil
}

// Decode dispatches on a file extension (with or without the leading
// dot).
func Decode(extension string, data []byte) ([]Element, error) {
	switch strings.ToLower(strings.TrimPrefix(extension, ".")) {
	case "xml":
		return DecodeXML(bytes.NewReader(data))
	case "yaml", "yml":
		return DecodeYAML(data)
	case "json", "jsonc":
		return DecodeJSONC(data)
	default:
		return nil, fmt.Errorf("unsupported jail document extension %q (want .xml, .yaml, .yml, .json, or .jsonc)", extension)
	}
}
