package sesh

import (
	"encoding/json"

	cbor "github.com/fxamacker/cbor/v2"
)

// Codec serializes arbitrary session payloads to and from bytes. Every
// store backend is parameterized by one. A Codec must be self-describing
// -- able to deserialize into an `any` and recover enough type information
// to reconstruct a Value -- because Value's own (Un)MarshalJSON/CBOR
// methods delegate to exactly that behavior for variant discovery.
type Codec interface {
	Encode(v any) ([]byte, error)
	Decode(data []byte, v any) error
}

// JSONCodec serializes with encoding/json.
type JSONCodec struct{}

func (JSONCodec) Encode(v any) ([]byte, error) { return json.Marshal(v) }

func (JSONCodec) Decode(data []byte, v any) error { return json.Unmarshal(data, v) }

// CBORCodec serializes with the fxamacker/cbor library: a compact,
// self-describing binary format, useful when session payloads include
// ByteArray values that would otherwise need JSON's base64 envelope.
type CBORCodec struct {
	mode cbor.UserBufferEncMode
}

// NewCBORCodec returns a CBORCodec configured with canonical (deterministic)
// encoding, so two equal payloads always serialize to the same bytes.
func NewCBORCodec() CBORCodec {
	mode, err := cbor.CanonicalEncOptions().UserBufferEncMode()
	if err != nil {
		// CanonicalEncOptions() is a constant, valid option set; this
		// cannot fail in practice.
		panic(err)
	}
	return CBORCodec{mode: mode}
}

func (c CBORCodec) Encode(v any) ([]byte, error) {
	if c.mode == nil {
		return cbor.Marshal(v)
	}
	return c.mode.Marshal(v)
}

func (CBORCodec) Decode(data []byte, v any) error { return cbor.Unmarshal(data, v) }

// DefaultCodec is used by every store constructor that doesn't take an
// explicit Codec.
var DefaultCodec Codec = JSONCodec{}
