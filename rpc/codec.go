// Package rpc exposes a gRPC facade over the hold and escrow lifecycle
// operations for service-to-service callers that prefer a typed RPC
// surface over the HTTP gateway, mirroring the teacher's split between
// its public HTTP API and its internal consensus/rpc client surface.
package rpc

import (
	"encoding/json"
	"fmt"

	"google.golang.org/grpc/encoding"
)

// jsonCodecName is registered with grpc's encoding package so a server
// and client can negotiate the "json" content-subtype instead of the
// default protobuf wire format. This avoids a protoc code-generation
// step while keeping the service definition as a standard grpc.ServiceDesc.
const jsonCodecName = "json"

func init() {
	encoding.RegisterCodec(jsonCodec{})
}

type jsonCodec struct{}

func (jsonCodec) Marshal(v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("rpc: marshal %T: %w", v, err)
	}
	return data, nil
}

func (jsonCodec) Unmarshal(data []byte, v any) error {
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("rpc: unmarshal into %T: %w", v, err)
	}
	return nil
}

func (jsonCodec) Name() string { return jsonCodecName }
