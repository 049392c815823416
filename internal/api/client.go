package api

import (
	"context"
	"fmt"
	"io"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/structpb"
)

// Client talks to a daemon over its Unix socket.
type Client struct {
	conn *grpc.ClientConn
}

// Dial creates a client for the daemon listening on socketPath. The
// connection is established lazily on the first call.
func Dial(socketPath string) (*Client, error) {
	conn, err := grpc.NewClient(
		"unix://"+socketPath,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to daemon: %w", err)
	}
	return &Client{conn: conn}, nil
}

// Close releases the connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

// Call invokes a unary method with the given request fields.
func (c *Client) Call(ctx context.Context, method string, fields map[string]any) (*structpb.Struct, error) {
	in, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}
	out := new(structpb.Struct)
	if err := c.conn.Invoke(ctx, "/"+ServiceName+"/"+method, in, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetStatus(ctx context.Context) (*structpb.Struct, error) {
	return c.Call(ctx, "GetStatus", nil)
}

func (c *Client) ListChats(ctx context.Context, selector string, limit int) (*structpb.Struct, error) {
	return c.Call(ctx, "ListChats", map[string]any{"selector": selector, "limit": limit})
}

func (c *Client) ListMessages(ctx context.Context, chatID int64, limit int) (*structpb.Struct, error) {
	return c.Call(ctx, "ListMessages", map[string]any{"chat_id": chatID, "limit": limit})
}

func (c *Client) SendText(ctx context.Context, chatID int64, text string) (*structpb.Struct, error) {
	return c.Call(ctx, "SendText", map[string]any{"chat_id": chatID, "text": text})
}

func (c *Client) StorageStatistics(ctx context.Context, chatLimit int) (*structpb.Struct, error) {
	return c.Call(ctx, "StorageStatistics", map[string]any{"chat_limit": chatLimit})
}

func (c *Client) LogOut(ctx context.Context) (*structpb.Struct, error) {
	return c.Call(ctx, "LogOut", nil)
}

func (c *Client) Link(ctx context.Context) (*structpb.Struct, error) {
	return c.Call(ctx, "Link", nil)
}

// WatchEvents streams event envelopes to fn until ctx ends, the stream
// fails, or fn returns an error.
func (c *Client) WatchEvents(ctx context.Context, fn func(*structpb.Struct) error) error {
	stream, err := c.conn.NewStream(ctx, &ServiceDesc.Streams[0], "/"+ServiceName+"/WatchEvents")
	if err != nil {
		return err
	}
	if err := stream.SendMsg(&structpb.Struct{}); err != nil {
		return err
	}
	if err := stream.CloseSend(); err != nil {
		return err
	}
	for {
		env := new(structpb.Struct)
		if err := stream.RecvMsg(env); err != nil {
			if err == io.EOF {
				return nil
			}
			return err
		}
		if err := fn(env); err != nil {
			return err
		}
	}
}
