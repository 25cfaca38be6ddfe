package rpc

import (
	"context"
	"fmt"
	"time"

	"google.golang.org/grpc"

	agentpayerrors "github.com/sardis-labs/agentpay/core/errors"
	"github.com/sardis-labs/agentpay/core/repo"
	"github.com/sardis-labs/agentpay/native/escrow"
	"github.com/sardis-labs/agentpay/native/holds"
)

// Facade is the gRPC-reachable surface over holds and escrows. It holds
// no business logic of its own: every method loads a record, calls its
// native lifecycle method, and persists the result, the same sequence
// gateway/routes runs for its HTTP equivalents.
type Facade struct {
	Holds   repo.HoldRepository
	Escrows repo.EscrowRepository
	Now     func() time.Time
}

func (f *Facade) now() time.Time {
	if f.Now != nil {
		return f.Now()
	}
	return time.Now()
}

func (f *Facade) GetHold(ctx context.Context, req *GetHoldRequest) (*HoldResponse, error) {
	h, err := f.Holds.Get(ctx, req.HoldID)
	if err != nil {
		return nil, err
	}
	return holdToResponse(h), nil
}

func (f *Facade) CaptureHold(ctx context.Context, req *CaptureHoldRequest) (*HoldResponse, error) {
	h, err := f.Holds.Get(ctx, req.HoldID)
	if err != nil {
		return nil, err
	}
	if err := h.Capture(req.CaptureAmount, req.CaptureTxID, f.now()); err != nil {
		return nil, err
	}
	if err := f.Holds.Put(ctx, h); err != nil {
		return nil, err
	}
	return holdToResponse(h), nil
}

func (f *Facade) VoidHold(ctx context.Context, req *VoidHoldRequest) (*HoldResponse, error) {
	h, err := f.Holds.Get(ctx, req.HoldID)
	if err != nil {
		return nil, err
	}
	if err := h.Void(); err != nil {
		return nil, err
	}
	if err := f.Holds.Put(ctx, h); err != nil {
		return nil, err
	}
	return holdToResponse(h), nil
}

func (f *Facade) GetEscrow(ctx context.Context, req *GetEscrowRequest) (*EscrowResponse, error) {
	e, err := f.Escrows.Get(ctx, req.EscrowID)
	if err != nil {
		return nil, err
	}
	return escrowToResponse(e), nil
}

func (f *Facade) ReleaseEscrow(ctx context.Context, req *ReleaseEscrowRequest) (*EscrowResponse, error) {
	e, err := f.Escrows.Get(ctx, req.EscrowID)
	if err != nil {
		return nil, err
	}
	next, err := e.Release()
	if err != nil {
		return nil, err
	}
	if err := f.Escrows.Put(ctx, next); err != nil {
		return nil, err
	}
	return escrowToResponse(next), nil
}

func (f *Facade) RefundEscrow(ctx context.Context, req *RefundEscrowRequest) (*EscrowResponse, error) {
	e, err := f.Escrows.Get(ctx, req.EscrowID)
	if err != nil {
		return nil, err
	}
	next, err := e.Refund()
	if err != nil {
		return nil, err
	}
	if err := f.Escrows.Put(ctx, next); err != nil {
		return nil, err
	}
	return escrowToResponse(next), nil
}

func (f *Facade) Health(ctx context.Context, req *HealthRequest) (*HealthResponse, error) {
	return &HealthResponse{Status: "ok"}, nil
}

func holdToResponse(h *holds.Hold) *HoldResponse {
	return &HoldResponse{
		HoldID: h.HoldID, WalletID: h.WalletID, AmountMinor: h.AmountMinor,
		CapturedMinor: h.CapturedAmountMinor, Chain: h.Chain, Token: h.Token,
		Status: string(h.State), ExpiresAt: h.ExpiresAt.Unix(),
	}
}

func escrowToResponse(e *escrow.Escrow) *EscrowResponse {
	amount := "0"
	if e.Amount != nil {
		amount = e.Amount.String()
	}
	return &EscrowResponse{
		EscrowID: e.ID, Payer: e.Payer.String(), Payee: e.Payee.String(),
		Chain: e.Chain, Token: e.Token, AmountMinor: amount,
		Status: e.Status.String(), ExpiresAt: e.ExpiresAt,
	}
}

// ServiceDesc wires each Facade method into a grpc.ServiceDesc by hand,
// the same shape protoc-gen-go-grpc would emit, but against plain Go
// structs decoded through the json codec instead of generated protobuf
// message types.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: "agentpay.rpc.Gateway",
	HandlerType: (*any)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "GetHold", Handler: unaryHandler(func(f *Facade, ctx context.Context, req *GetHoldRequest) (any, error) {
			return f.GetHold(ctx, req)
		})},
		{MethodName: "CaptureHold", Handler: unaryHandler(func(f *Facade, ctx context.Context, req *CaptureHoldRequest) (any, error) {
			return f.CaptureHold(ctx, req)
		})},
		{MethodName: "VoidHold", Handler: unaryHandler(func(f *Facade, ctx context.Context, req *VoidHoldRequest) (any, error) {
			return f.VoidHold(ctx, req)
		})},
		{MethodName: "GetEscrow", Handler: unaryHandler(func(f *Facade, ctx context.Context, req *GetEscrowRequest) (any, error) {
			return f.GetEscrow(ctx, req)
		})},
		{MethodName: "ReleaseEscrow", Handler: unaryHandler(func(f *Facade, ctx context.Context, req *ReleaseEscrowRequest) (any, error) {
			return f.ReleaseEscrow(ctx, req)
		})},
		{MethodName: "RefundEscrow", Handler: unaryHandler(func(f *Facade, ctx context.Context, req *RefundEscrowRequest) (any, error) {
			return f.RefundEscrow(ctx, req)
		})},
		{MethodName: "Health", Handler: unaryHandler(func(f *Facade, ctx context.Context, req *HealthRequest) (any, error) {
			return f.Health(ctx, req)
		})},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "agentpay/rpc/gateway.proto",
}

// unaryHandler adapts a typed Facade method into the grpc.methodHandler
// shape (interface{} request decode, interceptor chain, interface{}
// response), generic over the request type so each ServiceDesc entry
// above stays a one-liner.
func unaryHandler[Req any](fn func(f *Facade, ctx context.Context, req *Req) (any, error)) func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		facade, ok := srv.(*Facade)
		if !ok {
			return nil, agentpayerrors.Internal(fmt.Errorf("rpc: handler registered against non-Facade server"))
		}
		req := new(Req)
		if err := dec(req); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return fn(facade, ctx, req)
		}
		info := &grpc.UnaryServerInfo{Server: srv}
		handler := func(ctx context.Context, req any) (any, error) {
			return fn(facade, ctx, req.(*Req))
		}
		return interceptor(ctx, req, info, handler)
	}
}
