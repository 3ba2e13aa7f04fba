package rpc

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/structpb"
)

// #region client-struct
// Client wraps a gRPC connection to a chronicled server.
type Client struct {
	conn grpc.ClientConnInterface
	own  *grpc.ClientConn
}

// #endregion client-struct

// #region constructor
// NewClient connects to the chronicle service at addr.
func NewClient(addr string) (*Client, error) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("grpc dial %s: %w", addr, err)
	}
	return &Client{conn: conn, own: conn}, nil
}

// NewClientWithConn creates a Client over an existing connection, which the
// caller keeps ownership of.
func NewClientWithConn(conn grpc.ClientConnInterface) *Client {
	return &Client{conn: conn}
}

// Close shuts down a connection opened by NewClient.
func (c *Client) Close() error {
	if c.own == nil {
		return nil
	}
	return c.own.Close()
}

// #endregion constructor

// #region calls
// Resolve asks the server for the configuration of observer over
// [begin, begin+length). An empty length uses the server default.
func (c *Client) Resolve(ctx context.Context, observer, begin, length string) (Resolution, error) {
	req, err := windowRequest(observer, begin, length)
	if err != nil {
		return Resolution{}, err
	}
	resp := new(structpb.Struct)
	if err := c.conn.Invoke(ctx, methodResolve, req, resp); err != nil {
		return Resolution{}, fmt.Errorf("resolve rpc: %w", err)
	}
	res, err := decodeResolution(resp)
	if err != nil {
		return Resolution{}, fmt.Errorf("resolve rpc: %w", err)
	}
	return res, nil
}

// UseObserver asks whether observer contributes data to the window.
func (c *Client) UseObserver(ctx context.Context, observer, begin, length string) (bool, error) {
	req, err := windowRequest(observer, begin, length)
	if err != nil {
		return false, err
	}
	resp := new(structpb.Struct)
	if err := c.conn.Invoke(ctx, methodUseObserver, req, resp); err != nil {
		return false, fmt.Errorf("use observer rpc: %w", err)
	}
	return resp.GetFields()["use"].GetBoolValue(), nil
}

// ListObservers returns the observers loaded by the server.
func (c *Client) ListObservers(ctx context.Context) ([]string, error) {
	resp := new(structpb.Struct)
	if err := c.conn.Invoke(ctx, methodListObservers, &structpb.Struct{}, resp); err != nil {
		return nil, fmt.Errorf("list observers rpc: %w", err)
	}
	list := resp.GetFields()["observers"].GetListValue().GetValues()
	out := make([]string, len(list))
	for i, v := range list {
		out[i] = v.GetStringValue()
	}
	return out, nil
}

func windowRequest(observer, begin, length string) (*structpb.Struct, error) {
	fields := map[string]any{"observer": observer, "begin": begin}
	if length != "" {
		fields["length"] = length
	}
	req, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	return req, nil
}

// #endregion calls
