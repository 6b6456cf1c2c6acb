// Package proto holds the wire contract between the client and the identity
// provider: request and response messages, the gRPC service descriptor, and
// the codec used to carry them.
//
// identity.proto describes the service. Every message travels as a
// google.protobuf.Struct whose fields are the message's json names; the
// codec converts between the Go structs here and that protobuf encoding.
// Values that already are protobuf messages, such as the health service's,
// are marshalled directly.
package proto

import (
	"encoding/json"
	"fmt"

	"google.golang.org/grpc/encoding"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

// CodecName is the gRPC content-subtype used by IdentityService calls.
const CodecName = "pbstruct"

type structCodec struct{}

func (structCodec) Marshal(v any) ([]byte, error) {
	if m, ok := v.(proto.Message); ok {
		return proto.Marshal(m)
	}

	st, err := toStruct(v)
	if err != nil {
		return nil, fmt.Errorf("marshal %T: %w", v, err)
	}
	return proto.Marshal(st)
}

func (structCodec) Unmarshal(data []byte, v any) error {
	if m, ok := v.(proto.Message); ok {
		return proto.Unmarshal(data, m)
	}

	st := &structpb.Struct{}
	if err := proto.Unmarshal(data, st); err != nil {
		return fmt.Errorf("unmarshal %T: %w", v, err)
	}
	return fromStruct(st, v)
}

func (structCodec) Name() string {
	return CodecName
}

// toStruct maps the json fields of v onto a Struct.
func toStruct(v any) (*structpb.Struct, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var fields map[string]any
	if err := json.Unmarshal(b, &fields); err != nil {
		return nil, err
	}
	return structpb.NewStruct(fields)
}

func fromStruct(st *structpb.Struct, v any) error {
	b, err := st.MarshalJSON()
	if err != nil {
		return err
	}
	return json.Unmarshal(b, v)
}

func init() {
	encoding.RegisterCodec(structCodec{})
}
