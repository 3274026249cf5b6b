// ABOUTME: gRPC interceptors that run the request gate on incoming calls
// ABOUTME: Reads bearer tokens from the authorization metadata key

package auth

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/peer"
)

// authorizationFromMetadata returns the first authorization metadata value, if any.
func authorizationFromMetadata(ctx context.Context) string {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ""
	}
	values := md.Get("authorization")
	if len(values) == 0 {
		return ""
	}
	return values[0]
}

func peerAttrs(ctx context.Context, method string) []any {
	attrs := []any{"rpc_method", method}
	if p, ok := peer.FromContext(ctx); ok && p.Addr != nil {
		attrs = append(attrs, "peer_addr", p.Addr.String())
	}
	return attrs
}

// UnaryInterceptor returns a gRPC unary interceptor that attaches an
// AuthContext when the call carries a valid bearer token. Calls are never rejected.
func (g *Gate) UnaryInterceptor() grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req any,
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (any, error) {
		ctx, _ = g.Apply(ctx, authorizationFromMetadata(ctx), peerAttrs(ctx, info.FullMethod)...)
		return handler(ctx, req)
	}
}

// StreamInterceptor returns a gRPC stream interceptor with the same behavior
// as UnaryInterceptor.
func (g *Gate) StreamInterceptor() grpc.StreamServerInterceptor {
	return func(
		srv any,
		ss grpc.ServerStream,
		info *grpc.StreamServerInfo,
		handler grpc.StreamHandler,
	) error {
		ctx, outcome := g.Apply(ss.Context(), authorizationFromMetadata(ss.Context()), peerAttrs(ss.Context(), info.FullMethod)...)
		if outcome.State != StateAuthenticated {
			return handler(srv, ss)
		}

		wrapped := &wrappedServerStream{
			ServerStream: ss,
			ctx:          ctx,
		}
		return handler(srv, wrapped)
	}
}

// wrappedServerStream wraps a grpc.ServerStream with a custom context.
type wrappedServerStream struct {
	grpc.ServerStream
	ctx context.Context
}

// Context returns the wrapped context.
func (w *wrappedServerStream) Context() context.Context {
	return w.ctx
}
