package server

import (
	"encoding/json"
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// Codec names, as they appear in Content-Type headers.
const (
	CodecCBOR = "cbor"
	CodecJSON = "json"
)

var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("server: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

// cborCodec encodes messages as canonical CBOR. It satisfies both
// connect.Codec and grpc's encoding.Codec.
type cborCodec struct{}

func (cborCodec) Name() string { return CodecCBOR }

func (cborCodec) Marshal(v any) ([]byte, error) {
	return cborEncMode.Marshal(v)
}

func (cborCodec) Unmarshal(data []byte, v any) error {
	return cbor.Unmarshal(data, v)
}

// jsonCodec lets curl and browsers talk to the Connect endpoints. Connect's
// built-in JSON codec only handles protobuf messages.
type jsonCodec struct{}

func (jsonCodec) Name() string { return CodecJSON }

func (jsonCodec) Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (jsonCodec) Unmarshal(data []byte, v any) error {
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, v)
}
