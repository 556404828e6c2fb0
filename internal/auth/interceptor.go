// Package auth provides gRPC authentication with a static API key or reader JWTs.
package auth

import (
	"context"
	"crypto/subtle"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

// contextKey is a custom type for context keys to avoid collisions
type contextKey string

const (
	// APIKeyHeader is the metadata key for API key authentication
	APIKeyHeader = "x-api-key"

	// AuthorizationHeader carries "Bearer <jwt>"
	AuthorizationHeader = "authorization"

	principalContextKey contextKey = "principal"
)

// Principal identifies an authenticated caller
type Principal struct {
	// Subject is the reader name for JWTs and "api-key" for the static key
	Subject string
	Method  string
}

// Interceptor authenticates gRPC calls. With neither an API key nor a JWT
// manager configured every call is allowed.
type Interceptor struct {
	apiKey      string
	jwt         *JWTManager
	skipMethods map[string]bool
}

// NewInterceptor creates a new authentication interceptor. jwtManager may be nil.
func NewInterceptor(apiKey string, jwtManager *JWTManager) *Interceptor {
	return &Interceptor{
		apiKey: apiKey,
		jwt:    jwtManager,
		skipMethods: map[string]bool{
			// Health check and reflection endpoints
			"/grpc.health.v1.Health/Check":                                   true,
			"/grpc.health.v1.Health/Watch":                                   true,
			"/grpc.reflection.v1.ServerReflection/ServerReflectionInfo":      true,
			"/grpc.reflection.v1alpha.ServerReflection/ServerReflectionInfo": true,
		},
	}
}

// WithSkipMethods adds methods to skip authentication
func (i *Interceptor) WithSkipMethods(methods ...string) *Interceptor {
	for _, method := range methods {
		i.skipMethods[method] = true
	}
	return i
}

// Enabled reports whether credentials are required
func (i *Interceptor) Enabled() bool {
	return i.apiKey != "" || i.jwt != nil
}

// UnaryInterceptor returns a gRPC unary interceptor for credential validation
func (i *Interceptor) UnaryInterceptor() grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req interface{},
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (interface{}, error) {
		if !i.Enabled() || i.skipMethods[info.FullMethod] {
			return handler(ctx, req)
		}

		principal, err := i.authenticate(ctx)
		if err != nil {
			return nil, err
		}
		return handler(context.WithValue(ctx, principalContextKey, principal), req)
	}
}

// StreamInterceptor returns a gRPC stream interceptor for credential validation
func (i *Interceptor) StreamInterceptor() grpc.StreamServerInterceptor {
	return func(
		srv interface{},
		ss grpc.ServerStream,
		info *grpc.StreamServerInfo,
		handler grpc.StreamHandler,
	) error {
		if !i.Enabled() || i.skipMethods[info.FullMethod] {
			return handler(srv, ss)
		}

		principal, err := i.authenticate(ss.Context())
		if err != nil {
			return err
		}
		wrappedStream := &wrappedServerStream{
			ServerStream: ss,
			ctx:          context.WithValue(ss.Context(), principalContextKey, principal),
		}
		return handler(srv, wrappedStream)
	}
}

func (i *Interceptor) authenticate(ctx context.Context) (*Principal, error) {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return nil, status.Error(codes.Unauthenticated, "missing metadata")
	}

	if key := firstValue(md, APIKeyHeader); key != "" {
		if i.apiKey == "" || subtle.ConstantTimeCompare([]byte(key), []byte(i.apiKey)) != 1 {
			return nil, status.Error(codes.Unauthenticated, "invalid API key")
		}
		return &Principal{Subject: "api-key", Method: "api_key"}, nil
	}

	bearer := firstValue(md, AuthorizationHeader)
	token, found := strings.CutPrefix(bearer, "Bearer ")
	if !found || strings.TrimSpace(token) == "" {
		return nil, status.Error(codes.Unauthenticated, "missing credentials")
	}
	if i.jwt == nil {
		return nil, status.Error(codes.Unauthenticated, "bearer tokens are not accepted")
	}

	claims, err := i.jwt.ValidateToken(strings.TrimSpace(token))
	if err != nil {
		return nil, status.Errorf(codes.Unauthenticated, "%v", err)
	}
	return &Principal{Subject: claims.Reader, Method: "jwt"}, nil
}

func firstValue(md metadata.MD, key string) string {
	values := md.Get(key)
	if len(values) == 0 {
		return ""
	}
	return strings.TrimSpace(values[0])
}

// wrappedServerStream wraps a grpc.ServerStream with a modified context
type wrappedServerStream struct {
	grpc.ServerStream
	ctx context.Context
}

// Context returns the wrapped context
func (w *wrappedServerStream) Context() context.Context {
	return w.ctx
}

// PrincipalFromContext returns the authenticated caller, if any
func PrincipalFromContext(ctx context.Context) (*Principal, bool) {
	p, ok := ctx.Value(principalContextKey).(*Principal)
	return p, ok
}
