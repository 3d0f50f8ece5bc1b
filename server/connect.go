package server

import (
	"context"
	"net/http"
	"strings"

	"connectrpc.com/connect"
)

// ServiceName is the fully qualified name of the evaluation service, shared
// by the Connect and gRPC transports.
const ServiceName = "lox.v1.EvalService"

// Procedure paths.
const (
	EvaluateProcedure       = "/" + ServiceName + "/Evaluate"
	CheckSyntaxProcedure    = "/" + ServiceName + "/CheckSyntax"
	CreateSessionProcedure  = "/" + ServiceName + "/CreateSession"
	DestroySessionProcedure = "/" + ServiceName + "/DestroySession"
	HistoryProcedure        = "/" + ServiceName + "/History"
)

// unary adapts a plain service method to a Connect handler.
func unary[Req, Res any](procedure string, fn func(context.Context, *Req) (*Res, error), opts ...connect.HandlerOption) http.Handler {
	return connect.NewUnaryHandler(procedure,
		func(ctx context.Context, req *connect.Request[Req]) (*connect.Response[Res], error) {
			res, err := fn(ctx, req.Msg)
			if err != nil {
				return nil, err
			}
			return connect.NewResponse(res), nil
		},
		opts...,
	)
}

// NewConnectHandler builds an HTTP handler serving svc with the Connect
// protocol. Clients may use application/cbor or application/json bodies.
// It returns the path prefix to mount the handler on.
func NewConnectHandler(svc *EvalService) (string, http.Handler) {
	opts := []connect.HandlerOption{
		connect.WithCodec(cborCodec{}),
		connect.WithCodec(jsonCodec{}),
	}

	mux := http.NewServeMux()
	mux.Handle(EvaluateProcedure, unary(EvaluateProcedure, svc.Evaluate, opts...))
	mux.Handle(CheckSyntaxProcedure, unary(CheckSyntaxProcedure, svc.CheckSyntax, opts...))
	mux.Handle(CreateSessionProcedure, unary(CreateSessionProcedure, svc.CreateSession, opts...))
	mux.Handle(DestroySessionProcedure, unary(DestroySessionProcedure, svc.DestroySession, opts...))
	mux.Handle(HistoryProcedure, unary(HistoryProcedure, svc.History, opts...))
	return "/" + ServiceName + "/", mux
}

// Client calls an EvalService over Connect using CBOR.
type Client struct {
	evaluate       *connect.Client[EvaluateRequest, EvaluateResponse]
	checkSyntax    *connect.Client[CheckSyntaxRequest, CheckSyntaxResponse]
	createSession  *connect.Client[CreateSessionRequest, CreateSessionResponse]
	destroySession *connect.Client[DestroySessionRequest, DestroySessionResponse]
	history        *connect.Client[HistoryRequest, HistoryResponse]
}

// NewClient creates a Client for the server at baseURL, e.g.
// "http://localhost:7878".
func NewClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) *Client {
	baseURL = strings.TrimRight(baseURL, "/")
	opts = append([]connect.ClientOption{connect.WithCodec(cborCodec{})}, opts...)
	return &Client{
		evaluate:       connect.NewClient[EvaluateRequest, EvaluateResponse](httpClient, baseURL+EvaluateProcedure, opts...),
		checkSyntax:    connect.NewClient[CheckSyntaxRequest, CheckSyntaxResponse](httpClient, baseURL+CheckSyntaxProcedure, opts...),
		createSession:  connect.NewClient[CreateSessionRequest, CreateSessionResponse](httpClient, baseURL+CreateSessionProcedure, opts...),
		destroySession: connect.NewClient[DestroySessionRequest, DestroySessionResponse](httpClient, baseURL+DestroySessionProcedure, opts...),
		history:        connect.NewClient[HistoryRequest, HistoryResponse](httpClient, baseURL+HistoryProcedure, opts...),
	}
}

func call[Req, Res any](ctx context.Context, c *connect.Client[Req, Res], req *Req) (*Res, error) {
	resp, err := c.CallUnary(ctx, connect.NewRequest(req))
	if err != nil {
		return nil, err
	}
	return resp.Msg, nil
}

func (c *Client) Evaluate(ctx context.Context, req *EvaluateRequest) (*EvaluateResponse, error) {
	return call(ctx, c.evaluate, req)
}

func (c *Client) CheckSyntax(ctx context.Context, req *CheckSyntaxRequest) (*CheckSyntaxResponse, error) {
	return call(ctx, c.checkSyntax, req)
}

func (c *Client) CreateSession(ctx context.Context, req *CreateSessionRequest) (*CreateSessionResponse, error) {
	return call(ctx, c.createSession, req)
}

func (c *Client) DestroySession(ctx context.Context, req *DestroySessionRequest) (*DestroySessionResponse, error) {
	return call(ctx, c.destroySession, req)
}

func (c *Client) History(ctx context.Context, req *HistoryRequest) (*HistoryResponse, error) {
	return call(ctx, c.history, req)
}
