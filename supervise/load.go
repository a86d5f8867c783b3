// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package supervise

import (
	"log/slog"

	"github.com/bureau-foundation/jailkeeper/lib/jailconfig"
	"github.com/bureau-foundation/jailkeeper/lib/jailspec"
)

// LoadFunc produces the spec for one supervision iteration.
type LoadFunc func() (jailspec.JailSpec, error)

// DocumentLoader returns a LoadFunc that reads and validates the jail
// document at path on every call, so edits take effect on the next
// iteration. Validation warnings are logged.
func DocumentLoader(path string, resolver jailconfig.Resolver, logger *slog.Logger) LoadFunc {
	return func() (jailspec.JailSpec, error) {
		spec, err := jailconfig.Load(path, resolver)
		if err != nil {
			return jailspec.JailSpec{}, err
		}
		validator := jailspec.NewValidator()
		validator.ValidateAll(spec)
		for _, result := range validator.Results() {
			if result.Warning {
				logger.Warn("jail document warning", "check", result.Name, "message", result.Message)
			}
		}
		if err := validator.Err(); err != nil {
			return jailspec.JailSpec{}, err
		}
		return spec, nil
	}
}
