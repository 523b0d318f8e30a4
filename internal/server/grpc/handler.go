package grpc

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/docverify/internal/common"
	"github.com/dmitrijs2005/docverify/internal/records"
	"github.com/dmitrijs2005/docverify/internal/rpcx"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// toStatus maps service errors to gRPC codes. Unknown errors are logged and
// reported without detail.
func (s *GRPCServer) toStatus(ctx context.Context, err error) error {
	switch {
	case errors.Is(err, common.ErrInput):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, common.ErrorNotFound):
		return status.Error(codes.NotFound, "not found")
	case errors.Is(err, common.ErrorUnauthorized):
		return status.Error(codes.PermissionDenied, "permission denied")
	}
	s.logger.Error(ctx, err.Error())
	return status.Error(codes.Internal, "internal error")
}

func (s *GRPCServer) owner(ctx context.Context) (string, error) {
	a, ok := addressFromContext(ctx)
	if !ok {
		return "", status.Error(codes.Unauthenticated, "unauthenticated")
	}
	return a, nil
}

func (s *GRPCServer) Login(ctx context.Context, req *rpcx.LoginRequest) (*rpcx.LoginResponse, error) {
	sig, err := hexutil.Decode(req.Signature)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, "signature must be 0x-prefixed hex")
	}

	tok, err := s.auth.Login(ctx, req.Address, req.Message, sig)
	if err != nil {
		if errors.Is(err, common.ErrorUnauthorized) {
			s.logger.Warn(ctx, "login refused", "address", req.Address, "error", err)
			return nil, status.Error(codes.Unauthenticated, "unauthorized")
		}
		return nil, s.toStatus(ctx, err)
	}

	s.logger.Info(ctx, "Logged in", "address", req.Address)
	return &rpcx.LoginResponse{AccessToken: tok.AccessToken, ExpiresAt: tok.ExpiresAt}, nil
}

func (s *GRPCServer) Insert(ctx context.Context, req *rpcx.InsertRequest) (*rpcx.RecordResponse, error) {
	owner, err := s.owner(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.records.Insert(ctx, owner, req.Record); err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return &rpcx.RecordResponse{Record: req.Record}, nil
}

func (s *GRPCServer) UpdateByDigest(ctx context.Context, req *rpcx.UpdateByDigestRequest) (*rpcx.UpdateByDigestResponse, error) {
	owner, err := s.owner(ctx)
	if err != nil {
		return nil, err
	}
	n, err := s.records.UpdateByDigest(ctx, owner, req.SHA256, req.Patch)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return &rpcx.UpdateByDigestResponse{Updated: n}, nil
}

func (s *GRPCServer) Delete(ctx context.Context, req *rpcx.DeleteRequest) (*rpcx.DeleteResponse, error) {
	owner, err := s.owner(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.records.Delete(ctx, owner, req.ID); err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return &rpcx.DeleteResponse{}, nil
}

func (s *GRPCServer) list(ctx context.Context, rows []*records.FileRecord, err error) (*rpcx.RecordsResponse, error) {
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return &rpcx.RecordsResponse{Records: rows}, nil
}

func (s *GRPCServer) QueryByOwner(ctx context.Context, req *rpcx.QueryByOwnerRequest) (*rpcx.RecordsResponse, error) {
	rows, err := s.records.QueryByOwner(ctx, req.Owner)
	return s.list(ctx, rows, err)
}

func (s *GRPCServer) QueryByDigestAny(ctx context.Context, req *rpcx.QueryByDigestAnyRequest) (*rpcx.RecordsResponse, error) {
	rows, err := s.records.QueryByDigestAny(ctx, req.SHA256, req.SHA1, req.SHA512)
	return s.list(ctx, rows, err)
}

func (s *GRPCServer) QueryAll(ctx context.Context, _ *rpcx.QueryAllRequest) (*rpcx.RecordsResponse, error) {
	rows, err := s.records.QueryAll(ctx)
	return s.list(ctx, rows, err)
}

func (s *GRPCServer) QueryByCID(ctx context.Context, req *rpcx.QueryByCIDRequest) (*rpcx.RecordsResponse, error) {
	rows, err := s.records.QueryByCID(ctx, req.CID)
	return s.list(ctx, rows, err)
}

func (s *GRPCServer) Search(ctx context.Context, req *rpcx.SearchRequest) (*rpcx.RecordsResponse, error) {
	rows, err := s.records.Search(ctx, req.Filter)
	return s.list(ctx, rows, err)
}

func (s *GRPCServer) Stats(ctx context.Context, req *rpcx.StatsRequest) (*rpcx.StatsResponse, error) {
	st, err := s.records.Stats(ctx, req.Owner)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return &rpcx.StatsResponse{Stats: st}, nil
}

func (s *GRPCServer) Get(ctx context.Context, req *rpcx.GetRequest) (*rpcx.RecordResponse, error) {
	rec, err := s.records.Get(ctx, req.ID)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return &rpcx.RecordResponse{Record: rec}, nil
}

func (s *GRPCServer) Ping(context.Context, *rpcx.PingRequest) (*rpcx.PingResponse, error) {
	return &rpcx.PingResponse{Status: "OK"}, nil
}
