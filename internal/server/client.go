package server

import (
	"context"
	"fmt"

	"github.com/knoguchi/editorialbot/internal/auth"
	"github.com/knoguchi/editorialbot/internal/service"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/protobuf/types/known/structpb"
)

// Client calls a remote EditorialService.
type Client struct {
	conn   *grpc.ClientConn
	apiKey string
	token  string
}

// ClientOption is a functional option for configuring Client.
type ClientOption func(*Client)

// WithAPIKey sends the static API key with every call.
func WithAPIKey(key string) ClientOption {
	return func(c *Client) {
		c.apiKey = key
	}
}

// WithBearerToken sends a reader JWT with every call.
func WithBearerToken(token string) ClientOption {
	return func(c *Client) {
		c.token = token
	}
}

// NewClient connects to the gRPC server at addr. Extra dial options follow
// the insecure transport credentials.
func NewClient(addr string, dialOpts []grpc.DialOption, opts ...ClientOption) (*Client, error) {
	dial := append([]grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}, dialOpts...)
	conn, err := grpc.NewClient(addr, dial...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", addr, err)
	}

	c := &Client{conn: conn}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Close closes the underlying connection
func (c *Client) Close() error {
	return c.conn.Close()
}

// Ask sends a question and decodes the reply.
func (c *Client) Ask(ctx context.Context, question string, topK int) (*service.Answer, error) {
	out, err := c.invoke(ctx, AskMethod, question, topK)
	if err != nil {
		return nil, err
	}
	return answerFromStruct(out), nil
}

// Retrieve returns the shortlist for a question.
func (c *Client) Retrieve(ctx context.Context, question string, topK int) ([]service.Source, error) {
	out, err := c.invoke(ctx, RetrieveMethod, question, topK)
	if err != nil {
		return nil, err
	}
	return sourcesFromList(out.GetFields()["sources"].GetListValue()), nil
}

func (c *Client) invoke(ctx context.Context, method, question string, topK int) (*structpb.Struct, error) {
	in, err := structpb.NewStruct(map[string]interface{}{
		"question": question,
		"top_k":    topK,
	})
	if err != nil {
		return nil, err
	}

	if c.apiKey != "" {
		ctx = metadata.AppendToOutgoingContext(ctx, auth.APIKeyHeader, c.apiKey)
	}
	if c.token != "" {
		ctx = metadata.AppendToOutgoingContext(ctx, auth.AuthorizationHeader, "Bearer "+c.token)
	}

	out := new(structpb.Struct)
	if err := c.conn.Invoke(ctx, method, in, out); err != nil {
		return nil, err
	}
	return out, nil
}
