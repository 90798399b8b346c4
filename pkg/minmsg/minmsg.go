// Package minmsg offers optional CBOR encoding helpers for MIN
// payloads that carry structured values instead of raw bytes.
package minmsg

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// Encode marshals v to CBOR and errors if the result would not fit a
// single MIN frame's payload.
func Encode(v interface{}, maxPayload int) ([]byte, error) {
	data, err := cbor.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("minmsg: marshal CBOR: %w", err)
	}
	if len(data) > maxPayload {
		return nil, fmt.Errorf("minmsg: encoded payload is %d bytes, exceeds %d byte limit", len(data), maxPayload)
	}
	return data, nil
}

// Decode unmarshals a delivered MIN payload into v.
func Decode(payload []byte, v interface{}) error {
	if err := cbor.Unmarshal(payload, v); err != nil {
		return fmt.Errorf("minmsg: unmarshal CBOR: %w", err)
	}
	return nil
}

// Reading is a single named value keyed by subtype, the shape the
// teacher packed into nested CBOR maps before handing payloads to its
// serial link.
type Reading struct {
	Subtype uint16      `cbor:"subtype"`
	Value   interface{} `cbor:"value"`
}

// EncodeReading wraps a subtype/value pair and encodes it, the
// generalized form of the teacher's writeUARTMessage/
// writeUARTMessageString pair, which special-cased the value's Go type
// instead of carrying it generically.
func EncodeReading(subtype uint16, value interface{}, maxPayload int) ([]byte, error) {
	return Encode(Reading{Subtype: subtype, Value: value}, maxPayload)
}

// DecodeReading is the inverse of EncodeReading.
func DecodeReading(payload []byte) (Reading, error) {
	var r Reading
	err := Decode(payload, &r)
	return r, err
}
