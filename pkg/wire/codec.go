package wire

import (
	"encoding/json"
	"fmt"
)

// Codec is the collaborator interface consumed by pkg/janusapi for envelope
// (de)serialization. The core never assumes a concrete JSON library; a
// caller that already carries one elsewhere in its process (a faster
// encoder, a schema-validating one, …) can supply its own.
type Codec interface {
	// Marshal encodes v into wire bytes.
	Marshal(v any) ([]byte, error)

	// Unmarshal decodes wire bytes into v. It must return ErrParseError
	// (wrapped) when a required field is missing or malformed, matching the
	// `parse_error` contract.
	Unmarshal(data []byte, v any) error
}

// ErrParseError is returned (wrapped, via %w) by a Codec when a required
// envelope field is missing or of the wrong shape.
var ErrParseError = fmt.Errorf("wire: parse error")

// StdCodec is the default Codec, backed by encoding/json. No example in
// this module's lineage imports a third-party JSON library directly — gin's
// transitive bundles (sonic, goccy/go-json) are never reached by an import
// outside gin's own router — so the standard library is the grounded
// choice here; see DESIGN.md.
//
// StdCodec reports ErrParseError only for input that encoding/json rejects.
// It does not check for missing fields: an absent field decodes as its zero
// value without an error.
type StdCodec struct{}

func (StdCodec) Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (StdCodec) Unmarshal(data []byte, v any) error {
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: %v", ErrParseError, err)
	}
	return nil
}
