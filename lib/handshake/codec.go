// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package handshake

import (
	"fmt"
	"io"

	"github.com/fxamacker/cbor/v2"
)

// encMode is the CBOR encoder configured with Core Deterministic
// Encoding: sorted map keys, smallest integer encoding, no
// indefinite-length items.
var encMode cbor.EncMode

// decMode rejects duplicate map keys and bounds nesting. Unknown fields
// are ignored so an older keeper can read a newer supervisor's spec.
var decMode cbor.DecMode

func init() {
	var err error

	encOptions := cbor.CoreDetEncOptions()
	encOptions.Time = cbor.TimeRFC3339Nano
	encMode, err = encOptions.EncMode()
	if err != nil {
		panic("handshake: CBOR encoder initialization failed: " + err.Error())
	}

	decMode, err = cbor.DecOptions{
		DupMapKey:       cbor.DupMapKeyEnforcedAPF,
		MaxNestedLevels: 16,
	}.DecMode()
	if err != nil {
		panic("handshake: CBOR decoder initialization failed: " + err.Error())
	}
}

// Marshal encodes v to deterministic CBOR.
func Marshal(v any) ([]byte, error) {
	return encMode.Marshal(v)
}

// Unmarshal decodes CBOR data into v.
func Unmarshal(data []byte, v any) error {
	return decMode.Unmarshal(data, v)
}

// Send encodes one record to w and closes it. The close is what tells
// the reader the channel is finished, so it happens even when encoding
// fails.
func Send(w io.WriteCloser, record any) error {
	encodeErr := encMode.NewEncoder(w).Encode(record)
	closeErr := w.Close()
	if encodeErr != nil {
		return fmt.Errorf("encoding %T: %w", record, encodeErr)
	}
	if closeErr != nil {
		return fmt.Errorf("closing channel after %T: %w", record, closeErr)
	}
	return nil
}

// Receive decodes exactly one record from r into record. An empty
// channel (the writer closed without sending) is reported as
// io.ErrUnexpectedEOF.
func Receive(r io.Reader, record any) error {
	err := decMode.NewDecoder(r).Decode(record)
	if err == io.EOF {
		return fmt.Errorf("decoding %T: %w", record, io.ErrUnexpectedEOF)
	}
	if err != nil {
		return fmt.Errorf("decoding %T: %w", record, err)
	}
	return nil
}
