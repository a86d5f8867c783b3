// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package jailconfig

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"
)

// Document is the mapping form of a jail document shared by the YAML
// and JSONC encodings.
//
//	executable: /bin/echo
//	user: nobody
//	group: nogroup
//	chroot_name: echo1
//	home: nobody
//	arguments: hello world
//	capabilities: [net_bind_service]
//	limits: {as: 0, fsize: 1048576, nice: 5}
//	bind_ro: [/lib, /lib64]
//	restart: true
type Document struct {
	Executable       string          `yaml:"executable" json:"executable"`
	User             string          `yaml:"user" json:"user"`
	Group            string          `yaml:"group" json:"group"`
	ChrootName       string          `yaml:"chroot_name" json:"chroot_name"`
	Home             string          `yaml:"home" json:"home"`
	Arguments        string          `yaml:"arguments" json:"arguments"`
	Capabilities     []string        `yaml:"capabilities" json:"capabilities"`
	Limits           *DocumentLimits `yaml:"limits" json:"limits"`
	Umask            string          `yaml:"umask" json:"umask"`
	CopyFiles        []string        `yaml:"copy_f" json:"copy_f"`
	CopyDirs         []string        `yaml:"copy_d" json:"copy_d"`
	BindReadOnly     []string        `yaml:"bind_ro" json:"bind_ro"`
	BindReadWrite    []string        `yaml:"bind_rw" json:"bind_rw"`
	Restart          bool            `yaml:"restart" json:"restart"`
	Reboot           bool            `yaml:"reboot" json:"reboot"`
	FileCapabilities bool            `yaml:"file_capabilities" json:"file_capabilities"`
}

// DocumentLimits is the limits block of a Document.
type DocumentLimits struct {
	AddressSpace *uint64 `yaml:"as" json:"as"`
	FileSize     *uint64 `yaml:"fsize" json:"fsize"`
	Stack        *uint64 `yaml:"stack" json:"stack"`
	MessageQueue *uint64 `yaml:"mq" json:"mq"`
	Data         *uint64 `yaml:"data" json:"data"`
	Nice         *int    `yaml:"nice" json:"nice"`
	Arena        *int    `yaml:"arena" json:"arena"`
}

// Elements converts the mapping into elements in the order the XML
// format would list them.
func (d Document) Elements() ([]Element, error) {
	elements := []Element{
		JailElement{Executable: d.Executable},
		UserElement{User: d.User, Group: d.Group},
		ChrootElement{Name: d.ChrootName},
		HomeElement{Name: d.Home},
	}
	if d.Limits != nil {
		elements = append(elements, LimitsElement{
			AddressSpace: d.Limits.AddressSpace,
			FileSize:     d.Limits.FileSize,
			Stack:        d.Limits.Stack,
			MessageQueue: d.Limits.MessageQueue,
			Data:         d.Limits.Data,
			Nice:         d.Limits.Nice,
			Arena:        d.Limits.Arena,
		})
	}
	if len(d.Capabilities) > 0 {
		elements = append(elements, CapabilitiesElement{Names: d.Capabilities})
	}
	if d.Arguments != "" {
		elements = append(elements, ArgumentsElement{Line: d.Arguments})
	}
	if d.Umask != "" {
		mask, err := parseUmask(d.Umask)
		if err != nil {
			return nil, err
		}
		elements = append(elements, UmaskElement{Mask: mask})
	}
	for _, list := range []struct {
		kind  PathKind
		paths []string
	}{
		{CopyDir, d.CopyDirs},
		{CopyFile, d.CopyFiles},
		{BindReadOnly, d.BindReadOnly},
		{BindReadWrite, d.BindReadWrite},
	} {
		if len(list.paths) > 0 {
			elements = append(elements, PathsElement{List: list.kind, Paths: list.paths})
		}
	}
	elements = append(elements,
		RestartElement{Enabled: d.Restart},
		RebootElement{Enabled: d.Reboot},
		FileCapabilitiesElement{Enabled: d.FileCapabilities},
	)
	return elements, nil
}

// DecodeYAML reads a YAML jail document. Unknown keys are rejected.
func DecodeYAML(data []byte) ([]Element, error) {
	var document Document
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&document); err != nil {
		return nil, fmt.Errorf("parsing YAML: %w", err)
	}
	return document.Elements()
}

// DecodeJSONC reads a JSON jail document, tolerating comments and
// trailing commas. Unknown keys are rejected.
func DecodeJSONC(data []byte) ([]Element, error) {
	var document Document
	decoder := json.NewDecoder(bytes.NewReader(jsonc.ToJSON(data)))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&document); err != nil {
		return nil, fmt.Errorf("parsing JSON: %w", err)
	}
	return document.Elements()
}
