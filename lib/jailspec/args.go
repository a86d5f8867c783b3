// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package jailspec

import "strings"

// MaxArguments is the most tokens taken from the argument line. argv[0]
// is always the executable name and is not counted.
const MaxArguments = 15

// SanitizeArguments replaces every byte outside printable ASCII
// [32,126] with a space.
func SanitizeArguments(line string) string {
	sanitized := []byte(line)
	for i, b := range sanitized {
		if b < 32 || b > 126 {
			sanitized[i] = ' '
		}
	}
	return string(sanitized)
}

// Argv builds the argument vector: Name followed by at most
// MaxArguments whitespace-separated tokens of the sanitized argument
// line. Extra tokens are dropped.
func (s JailSpec) Argv() []string {
	tokens := strings.Fields(SanitizeArguments(s.Arguments))
	if len(tokens) > MaxArguments {
		tokens = tokens[:MaxArguments]
	}
	return append([]string{s.Name}, tokens...)
}

// MinimalEnvironment is the entire environment the target receives. No
// host variable reaches the sandbox.
func MinimalEnvironment() []string {
	return []string{"HOME=", "SHELL=", "PATH="}
}
