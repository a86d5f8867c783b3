// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package jailconfig

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// DecodeXML reads an element-format jail document. Elements may nest
// (the jail element conventionally encloses the rest); only start
// elements and their attributes carry meaning.
func DecodeXML(r io.Reader) ([]Element, error) {
	decoder := xml.NewDecoder(r)
	decoder.Strict = true

	var elements []Element
	for {
		token, err := decoder.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parsing XML: %w", err)
		}
		start, ok := token.(xml.StartElement)
		if !ok {
			continue
		}
		element, err := xmlElement(start)
		if err != nil {
			line, _ := decoder.InputPos()
			return nil, fmt.Errorf("line %d: <%s>: %w", line, start.Name.Local, err)
		}
		elements = append(elements, element)
	}
	if len(elements) == 0 {
		return nil, errors.New("XML document contains no elements")
	}
	return elements, nil
}

func xmlElement(start xml.StartElement) (Element, error) {
	attributes, err := collectAttributes(start)
	if err != nil {
		return nil, err
	}

	switch start.Name.Local {
	case "jail":
		name, err := attributes.take("name")
		if err != nil {
			return nil, err
		}
		return JailElement{Executable: name}, attributes.done()

	case "user":
		element := UserElement{}
		element.User, _ = attributes.optional("username")
		element.Group, _ = attributes.optional("group")
		if element.User == "" && element.Group == "" {
			return nil, errors.New("needs username or group")
		}
		return element, attributes.done()

	case "rlimit":
		element, err := xmlLimits(attributes)
		if err != nil {
			return nil, err
		}
		return element, attributes.done()

	case "caps":
		names, err := attributes.take("name")
		if err != nil {
			return nil, err
		}
		return CapabilitiesElement{Names: strings.Fields(names)}, attributes.done()

	case "args":
		line, err := attributes.take("name")
		if err != nil {
			return nil, err
		}
		return ArgumentsElement{Line: line}, attributes.done()

	case "bind_ro", "bind_rw", "copy_f", "copy_d":
		paths, err := attributes.take("path")
		if err != nil {
			return nil, err
		}
		return PathsElement{List: PathKind(start.Name.Local), Paths: strings.Fields(paths)}, attributes.done()

	case "home":
		name, err := attributes.take("path")
		if err != nil {
			return nil, err
		}
		return HomeElement{Name: name}, attributes.done()

	case "chpath":
		name, err := attributes.take("path")
		if err != nil {
			return nil, err
		}
		return ChrootElement{Name: name}, attributes.done()

	case "restart":
		value, err := attributes.take("value")
		if err != nil {
			return nil, err
		}
		return RestartElement{Enabled: isYes(value)}, attributes.done()

	case "reboot":
		value, err := attributes.take("value")
		if err != nil {
			return nil, err
		}
		return RebootElement{Enabled: isYes(value)}, attributes.done()

	case "umask":
		value, err := attributes.take("value")
		if err != nil {
			return nil, err
		}
		mask, err := parseUmask(value)
		if err != nil {
			return nil, err
		}
		return UmaskElement{Mask: mask}, attributes.done()

	case "file_caps":
		value, err := attributes.take("value")
		if err != nil {
			return nil, err
		}
		return FileCapabilitiesElement{Enabled: isYes(value)}, attributes.done()
	}
	return nil, errors.New("unknown element")
}

func xmlLimits(attributes attributeSet) (LimitsElement, error) {
	var element LimitsElement
	ceilings := []struct {
		name   string
		target **uint64
	}{
		{"as", &element.AddressSpace},
		{"fsize", &element.FileSize},
		{"stack", &element.Stack},
		{"mq", &element.MessageQueue},
		{"data", &element.Data},
	}
	for _, ceiling := range ceilings {
		value, ok := attributes.optional(ceiling.name)
		if !ok {
			continue
		}
		parsed, err := strconv.ParseUint(strings.TrimSpace(value), 10, 64)
		if err != nil {
			return LimitsElement{}, fmt.Errorf("attribute %s: %w", ceiling.name, err)
		}
		*ceiling.target = &parsed
	}

	signed := []struct {
		name   string
		target **int
	}{
		{"nice", &element.Nice},
		{"arena", &element.Arena},
	}
	for _, field := range signed {
		value, ok := attributes.optional(field.name)
		if !ok {
			continue
		}
		parsed, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil {
			return LimitsElement{}, fmt.Errorf("attribute %s: %w", field.name, err)
		}
		*field.target = &parsed
	}
	return element, nil
}

// attributeSet tracks which attributes of one element have been
// consumed so leftovers can be rejected.
type attributeSet map[string]string

func collectAttributes(start xml.StartElement) (attributeSet, error) {
	attributes := make(attributeSet, len(start.Attr))
	for _, attribute := range start.Attr {
		if _, duplicate := attributes[attribute.Name.Local]; duplicate {
			return nil, fmt.Errorf("duplicate attribute %s", attribute.Name.Local)
		}
		attributes[attribute.Name.Local] = attribute.Value
	}
	return attributes, nil
}

func (a attributeSet) optional(name string) (string, bool) {
	value, ok := a[name]
	delete(a, name)
	return value, ok
}

func (a attributeSet) take(name string) (string, error) {
	value, ok := a.optional(name)
	if !ok {
		return "", fmt.Errorf("missing attribute %s", name)
	}
	return value, nil
}

func (a attributeSet) done() error {
	for name := range a {
		return fmt.Errorf("unknown attribute %s", name)
	}
	return nil
}

// isYes follows the document convention that any value starting with
// 'y' enables the flag.
func isYes(value string) bool {
	return strings.HasPrefix(strings.TrimSpace(value), "y")
}

func parseUmask(value string) (uint32, error) {
	mask, err := strconv.ParseUint(strings.TrimSpace(value), 8, 32)
	if err != nil {
		return 0, fmt.Errorf("umask %q is not octal: %w", value, err)
	}
	if mask > 0o777 {
		return 0, fmt.Errorf("umask %#o has bits outside 0777", mask)
	}
	return uint32(mask), nil
}
