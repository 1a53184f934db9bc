package api

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
)

// UnaryAuthInterceptor enforces the per-method role requirement for calls to
// the session service. Other services pass through untouched.
func (s *Server) UnaryAuthInterceptor() grpc.UnaryServerInterceptor {
	prefix := "/" + ServiceName + "/"
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, next grpc.UnaryHandler) (any, error) {
		if !strings.HasPrefix(info.FullMethod, prefix) {
			return next(ctx, req)
		}
		method := strings.TrimPrefix(info.FullMethod, prefix)
		if publicMethods[method] {
			return next(ctx, req)
		}
		p, err := s.guard.Check(method, mdValue(ctx, "authorization"))
		if err != nil {
			return nil, s.mapErr(ctx, method, err)
		}
		return next(WithPrincipal(ctx, p), req)
	}
}

// UnaryRecoveryInterceptor turns a panic in a handler into an opaque
// codes.Internal so one bad request cannot take the process down.
func (s *Server) UnaryRecoveryInterceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, next grpc.UnaryHandler) (resp any, err error) {
		defer func() {
			if rec := recover(); rec != nil {
				resp, err = nil, s.mapErr(ctx, info.FullMethod, fmt.Errorf("panic: %v", rec))
			}
		}()
		return next(ctx, req)
	}
}

func mdValue(ctx context.Context, key string) string {
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if vals := md.Get(key); len(vals) > 0 {
			return vals[0]
		}
	}
	return ""
}
