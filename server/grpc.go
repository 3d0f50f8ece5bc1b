package server

import (
	"context"
	"errors"

	"connectrpc.com/connect"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// EvalServer is the gRPC view of EvalService.
type EvalServer interface {
	Evaluate(context.Context, *EvaluateRequest) (*EvaluateResponse, error)
	CheckSyntax(context.Context, *CheckSyntaxRequest) (*CheckSyntaxResponse, error)
	CreateSession(context.Context, *CreateSessionRequest) (*CreateSessionResponse, error)
	DestroySession(context.Context, *DestroySessionRequest) (*DestroySessionResponse, error)
	History(context.Context, *HistoryRequest) (*HistoryResponse, error)
}

var _ EvalServer = (*EvalService)(nil)

// grpcMethod builds the unary method descriptor for one EvalServer method.
func grpcMethod[Req, Res any](name string, fn func(EvalServer, context.Context, *Req) (*Res, error)) grpc.MethodDesc {
	fullMethod := "/" + ServiceName + "/" + name
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			handler := func(ctx context.Context, req any) (any, error) {
				res, err := fn(srv.(EvalServer), ctx, req.(*Req))
				if err != nil {
					return nil, toStatus(err)
				}
				return res, nil
			}
			if interceptor == nil {
				return handler(ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
			return interceptor(ctx, in, info, handler)
		},
	}
}

// evalServiceDesc describes EvalService to grpc-go. Messages are plain Go
// structs carried by the CBOR codec, so there is no generated descriptor.
var evalServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*EvalServer)(nil),
	Methods: []grpc.MethodDesc{
		grpcMethod("Evaluate", EvalServer.Evaluate),
		grpcMethod("CheckSyntax", EvalServer.CheckSyntax),
		grpcMethod("CreateSession", EvalServer.CreateSession),
		grpcMethod("DestroySession", EvalServer.DestroySession),
		grpcMethod("History", EvalServer.History),
	},
	Metadata: "lox/v1/eval.go",
}

// toStatus converts a service error to a gRPC status. Connect codes share
// their numbering with gRPC codes.
func toStatus(err error) error {
	if _, ok := status.FromError(err); ok {
		return err
	}
	var ce *connect.Error
	if errors.As(err, &ce) {
		return status.Error(codes.Code(ce.Code()), ce.Message())
	}
	return status.Error(codes.Unknown, err.Error())
}

// NewGRPCServer creates a gRPC server exposing svc with the CBOR codec.
func NewGRPCServer(svc EvalServer, opts ...grpc.ServerOption) *grpc.Server {
	opts = append([]grpc.ServerOption{grpc.ForceServerCodec(cborCodec{})}, opts...)
	s := grpc.NewServer(opts...)
	s.RegisterService(&evalServiceDesc, svc)
	return s
}

// GRPCClient calls an EvalService over gRPC.
type GRPCClient struct {
	cc grpc.ClientConnInterface
}

// NewGRPCClient wraps an established connection.
func NewGRPCClient(cc grpc.ClientConnInterface) *GRPCClient {
	return &GRPCClient{cc: cc}
}

func invoke[Req, Res any](ctx context.Context, cc grpc.ClientConnInterface, method string, req *Req, opts []grpc.CallOption) (*Res, error) {
	out := new(Res)
	opts = append([]grpc.CallOption{grpc.ForceCodec(cborCodec{})}, opts...)
	if err := cc.Invoke(ctx, method, req, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *GRPCClient) Evaluate(ctx context.Context, req *EvaluateRequest, opts ...grpc.CallOption) (*EvaluateResponse, error) {
	return invoke[EvaluateRequest, EvaluateResponse](ctx, c.cc, EvaluateProcedure, req, opts)
}

func (c *GRPCClient) CheckSyntax(ctx context.Context, req *CheckSyntaxRequest, opts ...grpc.CallOption) (*CheckSyntaxResponse, error) {
	return invoke[CheckSyntaxRequest, CheckSyntaxResponse](ctx, c.cc, CheckSyntaxProcedure, req, opts)
}

func (c *GRPCClient) CreateSession(ctx context.Context, req *CreateSessionRequest, opts ...grpc.CallOption) (*CreateSessionResponse, error) {
	return invoke[CreateSessionRequest, CreateSessionResponse](ctx, c.cc, CreateSessionProcedure, req, opts)
}

func (c *GRPCClient) DestroySession(ctx context.Context, req *DestroySessionRequest, opts ...grpc.CallOption) (*DestroySessionResponse, error) {
	return invoke[DestroySessionRequest, DestroySessionResponse](ctx, c.cc, DestroySessionProcedure, req, opts)
}

func (c *GRPCClient) History(ctx context.Context, req *HistoryRequest, opts ...grpc.CallOption) (*HistoryResponse, error) {
	return invoke[HistoryRequest, HistoryResponse](ctx, c.cc, HistoryProcedure, req, opts)
}
