package rpc

import (
	"context"
	"strings"

	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

const authHeader = "authorization"

type sessionKey struct{}

// SessionFromContext returns the session the request was authenticated for.
func SessionFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(sessionKey{}).(string)
	return id, ok && id != ""
}

// AuthInterceptor requires a bearer session token on every method except
// StartSession, and attaches the session ID and a session-scoped logger to
// the request context.
func AuthInterceptor(tokens *Tokens, log zerolog.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		if info.FullMethod == FullMethod(MethodStartSession) {
			return handler(log.WithContext(ctx), req)
		}

		md, _ := metadata.FromIncomingContext(ctx)
		values := md.Get(authHeader)
		if len(values) == 0 {
			return nil, status.Error(codes.Unauthenticated, "missing session token")
		}
		raw := strings.TrimSpace(strings.TrimPrefix(values[0], "Bearer "))

		sessionID, err := tokens.Verify(raw)
		if err != nil {
			log.Debug().Err(err).Str("method", info.FullMethod).Msg("rejected token")
			return nil, status.Error(codes.Unauthenticated, err.Error())
		}

		ctx = context.WithValue(ctx, sessionKey{}, sessionID)
		ctx = log.With().Str("session", sessionID).Logger().WithContext(ctx)
		return handler(ctx, req)
	}
}
