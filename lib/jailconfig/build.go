// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package jailconfig

import (
	"errors"
	"fmt"

	"github.com/bureau-foundation/jailkeeper/lib/jailspec"
)

type builder struct {
	spec     jailspec.JailSpec
	resolver Resolver
}

// Build applies elements in order and returns the resulting spec. The
// executable, identity, chroot name, and home are required.
func Build(elements []Element, resolver Resolver) (jailspec.JailSpec, error) {
	if resolver == nil {
		resolver = SystemResolver{}
	}
	b := &builder{resolver: resolver}
	for _, element := range elements {
		if err := element.apply(b); err != nil {
			return jailspec.JailSpec{}, fmt.Errorf("<%s>: %w", element.Kind(), err)
		}
	}

	var missing []error
	if b.spec.Name == "" {
		missing = append(missing, errors.New("no executable (jail name)"))
	}
	if b.spec.Identity.User == "" {
		missing = append(missing, errors.New("no user"))
	}
	if b.spec.Identity.Group == "" {
		missing = append(missing, errors.New("no group"))
	}
	if b.spec.ChrootName == "" {
		missing = append(missing, errors.New("no chroot name (chpath)"))
	}
	if b.spec.Home == "" {
		missing = append(missing, errors.New("no home"))
	}
	if err := errors.Join(missing...); err != nil {
		return jailspec.JailSpec{}, fmt.Errorf("incomplete jail document: %w", err)
	}
	if err := jailspec.ValidateComponent("chroot name", b.spec.ChrootName); err != nil {
		return jailspec.JailSpec{}, err
	}
	if err := jailspec.ValidateComponent("home", b.spec.Home); err != nil {
		return jailspec.JailSpec{}, err
	}
	return b.spec, nil
}
