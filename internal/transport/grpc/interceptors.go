package grpc

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"queuesmart/backend/internal/auth"
	"queuesmart/backend/internal/domain"
)

type Authenticator interface {
	Authenticate(header string) (domain.Actor, error)
}

// AuthInterceptor resolves the bearer token in the "authorization" metadata
// into an actor on the context. Public methods pass through untouched.
func AuthInterceptor(a Authenticator, log *slog.Logger) grpc.UnaryServerInterceptor {
	if log == nil {
		log = slog.Default()
	}
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		if publicMethods[info.FullMethod] {
			return handler(ctx, req)
		}
		actor, err := a.Authenticate(firstMetadata(ctx, "authorization"))
		if err != nil {
			reason := "invalid_token"
			if errors.Is(err, auth.ErrMissingToken) {
				reason = "missing_token"
			}
			log.Info("unauthenticated call", slog.String("method", info.FullMethod), slog.String("reason", reason))
			return nil, status.Error(codes.Unauthenticated, "a valid bearer token is required")
		}
		return handler(auth.WithActor(ctx, actor), req)
	}
}

func DefaultRequestTimeoutInterceptor(timeout time.Duration) grpc.UnaryServerInterceptor {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		if _, ok := ctx.Deadline(); ok {
			return handler(ctx, req)
		}
		ctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		return handler(ctx, req)
	}
}

func idempotencyKey(ctx context.Context) string {
	if v := firstMetadata(ctx, "idempotency-key"); v != "" {
		return v
	}
	return firstMetadata(ctx, "x-idempotency-key")
}

func firstMetadata(ctx context.Context, key string) string {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ""
	}
	values := md.Get(key)
	if len(values) == 0 {
		return ""
	}
	return strings.TrimSpace(values[0])
}
