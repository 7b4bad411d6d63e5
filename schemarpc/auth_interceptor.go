package schemarpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
)

// authenticationHeader is the metadata key Concordium nodes read access
// tokens from.
const authenticationHeader = "authentication"

// TokenAuthInterceptor attaches a node access token to outgoing calls.
type TokenAuthInterceptor struct {
	token string
}

// NewTokenAuthInterceptor creates an interceptor sending token.
func NewTokenAuthInterceptor(token string) *TokenAuthInterceptor {
	return &TokenAuthInterceptor{token: token}
}

// UnaryClientInterceptor returns a gRPC unary client interceptor that adds the token
func (i *TokenAuthInterceptor) UnaryClientInterceptor() grpc.UnaryClientInterceptor {
	return func(
		ctx context.Context,
		method string,
		req, reply interface{},
		cc *grpc.ClientConn,
		invoker grpc.UnaryInvoker,
		opts ...grpc.CallOption,
	) error {
		return invoker(i.withToken(ctx), method, req, reply, cc, opts...)
	}
}

// StreamClientInterceptor returns a gRPC stream client interceptor that adds the token
func (i *TokenAuthInterceptor) StreamClientInterceptor() grpc.StreamClientInterceptor {
	return func(
		ctx context.Context,
		desc *grpc.StreamDesc,
		cc *grpc.ClientConn,
		method string,
		streamer grpc.Streamer,
		opts ...grpc.CallOption,
	) (grpc.ClientStream, error) {
		return streamer(i.withToken(ctx), desc, cc, method, opts...)
	}
}

func (i *TokenAuthInterceptor) withToken(ctx context.Context) context.Context {
	md := metadata.Pairs(authenticationHeader, i.token)
	if existing, ok := metadata.FromOutgoingContext(ctx); ok {
		md = metadata.Join(existing, md)
	}
	return metadata.NewOutgoingContext(ctx, md)
}
