package rpc

import (
	"google.golang.org/grpc"

	"github.com/sardis-labs/agentpay/core/repo"
)

// NewServer builds a grpc.Server with the Gateway facade registered,
// using the JSON codec so no protoc-generated stubs are required. Pass
// the resulting server to a net.Listener the same way any other grpc.Server
// is served.
func NewServer(holdsRepo repo.HoldRepository, escrowsRepo repo.EscrowRepository, opts ...grpc.ServerOption) *grpc.Server {
	opts = append(opts, grpc.ForceServerCodec(jsonCodec{}))
	srv := grpc.NewServer(opts...)
	facade := &Facade{Holds: holdsRepo, Escrows: escrowsRepo}
	srv.RegisterService(&ServiceDesc, facade)
	return srv
}
