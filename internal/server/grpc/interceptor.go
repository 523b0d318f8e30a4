package grpc

import (
	"context"
	"errors"
	"time"

	"github.com/dmitrijs2005/docverify/internal/common"
	"github.com/dmitrijs2005/docverify/internal/rpcx"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

type ctxKey string

const addressKey ctxKey = "address"

// protected lists the methods that need an access token.
var protected = map[string]struct{}{
	rpcx.MethodInsert:         {},
	rpcx.MethodUpdateByDigest: {},
	rpcx.MethodDelete:         {},
}

func addressFromContext(ctx context.Context) (string, bool) {
	a, ok := ctx.Value(addressKey).(string)
	return a, ok && a != ""
}

func (s *GRPCServer) accessTokenInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	if _, ok := protected[info.FullMethod]; !ok {
		return handler(ctx, req)
	}

	var accessToken string
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if values := md.Get(common.AccessTokenHeaderName); len(values) > 0 {
			accessToken = values[0]
		}
	}
	if accessToken == "" {
		return nil, status.Error(codes.Unauthenticated, "missing token")
	}

	address, err := s.auth.Authenticate(accessToken)
	if errors.Is(err, common.ErrTokenExpired) {
		return nil, status.Error(codes.Unauthenticated, "token expired")
	}
	if err != nil {
		return nil, status.Error(codes.Unauthenticated, "invalid token")
	}

	return handler(context.WithValue(ctx, addressKey, address), req)
}

func (s *GRPCServer) loggingInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	start := time.Now()
	resp, err := handler(ctx, req)
	if err != nil {
		s.logger.Warn(ctx, "rpc failed", "method", info.FullMethod, "code", status.Code(err).String(), "duration", time.Since(start))
	} else {
		s.logger.Info(ctx, "rpc", "method", info.FullMethod, "duration", time.Since(start))
	}
	return resp, err
}
