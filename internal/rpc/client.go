package rpc

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/danielpatrickdp/adaptive-director/internal/director"
	"github.com/danielpatrickdp/adaptive-director/internal/player"
	"github.com/danielpatrickdp/adaptive-director/internal/signals"
)

// #region client-struct
// Client talks to a Director service. After StartSession (or SetToken) it
// authenticates every call for that session.
type Client struct {
	conn  *grpc.ClientConn
	cc    grpc.ClientConnInterface
	token string
}

// #endregion client-struct

// #region constructor
// NewClient connects to a Director gRPC server.
func NewClient(addr string, opts ...grpc.DialOption) (*Client, error) {
	if len(opts) == 0 {
		opts = []grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}
	}
	conn, err := grpc.NewClient(addr, opts...)
	if err != nil {
		return nil, fmt.Errorf("grpc dial %s: %w", addr, err)
	}
	return &Client{conn: conn, cc: conn}, nil
}

// NewClientWithConn wraps an existing connection. Close does not close it.
func NewClientWithConn(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

// Close shuts down the gRPC connection.
func (c *Client) Close() error {
	if c.conn == nil {
		return nil
	}
	return c.conn.Close()
}

// SetToken resumes an existing session.
func (c *Client) SetToken(token string) { c.token = token }

// Token returns the current session token.
func (c *Client) Token() string { return c.token }

// #endregion constructor

// #region calls
// StartSession opens a new session and keeps its token. A nil seed uses
// the server's configured seed.
func (c *Client) StartSession(ctx context.Context, seed *int64) (StartResponse, error) {
	var resp StartResponse
	if err := c.call(ctx, MethodStartSession, StartRequest{Seed: seed}, &resp); err != nil {
		return StartResponse{}, err
	}
	c.token = resp.Token
	return resp, nil
}

// ObserveTurn reports a completed player turn.
func (c *Client) ObserveTurn(ctx context.Context, turn signals.TurnSummary) (TurnResponse, error) {
	var resp TurnResponse
	err := c.call(ctx, MethodObserveTurn, turn, &resp)
	return resp, err
}

// ObserveGame reports a completed game.
func (c *Client) ObserveGame(ctx context.Context, result player.GameResult) (GameResponse, error) {
	var resp GameResponse
	err := c.call(ctx, MethodObserveGame, result, &resp)
	return resp, err
}

// Recommend reads the current plan.
func (c *Client) Recommend(ctx context.Context) (director.Recommendation, error) {
	var resp director.Recommendation
	err := c.call(ctx, MethodRecommend, struct{}{}, &resp)
	return resp, err
}

// Snapshot reads the full diagnostic view.
func (c *Client) Snapshot(ctx context.Context) (director.Diagnostics, error) {
	var resp director.Diagnostics
	err := c.call(ctx, MethodSnapshot, struct{}{}, &resp)
	return resp, err
}

func (c *Client) call(ctx context.Context, method string, req, out any) error {
	in, err := toStruct(req)
	if err != nil {
		return err
	}
	if c.token != "" {
		ctx = metadata.AppendToOutgoingContext(ctx, authHeader, "Bearer "+c.token)
	}
	resp := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, FullMethod(method), in, resp); err != nil {
		return fmt.Errorf("%s rpc: %w", method, err)
	}
	return fromStruct(resp, out)
}

// #endregion calls
