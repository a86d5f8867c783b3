// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package jailconfig

import (
	"fmt"
	"os/user"
	"strconv"
)

// Resolver maps account names to numeric ids.
type Resolver interface {
	LookupUser(name string) (uint32, error)
	LookupGroup(name string) (uint32, error)
}

// SystemResolver resolves names through the host account database.
type SystemResolver struct{}

// LookupUser returns the uid of the named user.
func (SystemResolver) LookupUser(name string) (uint32, error) {
	account, err := user.Lookup(name)
	if err != nil {
		return 0, err
	}
	return parseID(account.Uid)
}

// LookupGroup returns the gid of the named group.
func (SystemResolver) LookupGroup(name string) (uint32, error) {
	group, err := user.LookupGroup(name)
	if err != nil {
		return 0, err
	}
	return parseID(group.Gid)
}

func parseID(value string) (uint32, error) {
	id, err := strconv.ParseUint(value, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("non-numeric id %q: %w", value, err)
	}
	return uint32(id), nil
}

// StaticResolver resolves from fixed tables. Names absent from the
// tables are unknown.
type StaticResolver struct {
	Users  map[string]uint32
	Groups map[string]uint32
}

// LookupUser returns the uid of the named user.
func (r StaticResolver) LookupUser(name string) (uint32, error) {
	if id, ok := r.Users[name]; ok {
		return id, nil
	}
	return 0, user.UnknownUserError(name)
}

// LookupGroup returns the gid of the named group.
func (r StaticResolver) LookupGroup(name string) (uint32, error) {
	if id, ok := r.Groups[name]; ok {
		return id, nil
	}
	return 0, user.UnknownGroupError(name)
}
