package grpc

import (
	"context"
	"net"

	"github.com/dmitrijs2005/docverify/internal/logging"
	"github.com/dmitrijs2005/docverify/internal/records"
	"github.com/dmitrijs2005/docverify/internal/rpcx"
	"github.com/dmitrijs2005/docverify/internal/server/services"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// RecordService is the business layer behind the record-store handlers.
type RecordService interface {
	records.Reader
	Insert(ctx context.Context, owner string, r *records.FileRecord) error
	UpdateByDigest(ctx context.Context, owner, sha256 string, p records.Patch) (int64, error)
	Delete(ctx context.Context, owner, id string) error
}

// AuthService issues and checks access tokens.
type AuthService interface {
	Login(ctx context.Context, address, message string, signature []byte) (*services.Token, error)
	Authenticate(token string) (string, error)
}

type GRPCServer struct {
	address string
	records RecordService
	auth    AuthService
	health  *health.Server
	logger  logging.Logger
}

var _ rpcx.RecordStoreServer = (*GRPCServer)(nil)

func NewGRPCServer(a string, l logging.Logger, rs RecordService, as AuthService) *GRPCServer {
	return &GRPCServer{
		address: a,
		logger:  l.With("module", "grpc_server"),
		records: rs,
		auth:    as,
		health:  health.NewServer(),
	}
}

// newServer creates the grpc.Server with the interceptors and services
// registered.
func (s *GRPCServer) newServer() *grpc.Server {
	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(s.loggingInterceptor, s.accessTokenInterceptor))

	rpcx.RegisterRecordStoreServer(srv, s)
	healthpb.RegisterHealthServer(srv, s.health)
	s.health.SetServingStatus(rpcx.ServiceName, healthpb.HealthCheckResponse_SERVING)

	return srv
}

// Serve accepts connections on lis until ctx is done.
func (s *GRPCServer) Serve(ctx context.Context, lis net.Listener) error {
	srv := s.newServer()

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping gRPC server...")
		s.health.Shutdown()
		srv.GracefulStop()
	}()

	s.logger.Info(ctx, "Starting gRPC server", "address", lis.Addr().String())

	return srv.Serve(lis)
}

func (s *GRPCServer) Run(ctx context.Context) error {
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}
	return s.Serve(ctx, listen)
}
