package rpcx

import (
	"context"
	"net"
	"testing"

	"github.com/dmitrijs2005/docverify/internal/records"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/test/bufconn"
)

type echoServer struct {
	RecordStoreServer
}

func (e *echoServer) Ping(context.Context, *PingRequest) (*PingResponse, error) {
	return &PingResponse{Status: "OK"}, nil
}

func (e *echoServer) QueryByDigestAny(_ context.Context, in *QueryByDigestAnyRequest) (*RecordsResponse, error) {
	return &RecordsResponse{Records: []*records.FileRecord{{SHA1: in.SHA1, Tags: records.Ptr("a,b")}}}, nil
}

func dial(t *testing.T, srv RecordStoreServer, interceptors ...grpc.UnaryServerInterceptor) *RecordStoreClient {
	t.Helper()

	lis := bufconn.Listen(1 << 20)
	s := grpc.NewServer(grpc.ChainUnaryInterceptor(interceptors...))
	RegisterRecordStoreServer(s, srv)
	go func() { _ = s.Serve(lis) }()
	t.Cleanup(s.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	return NewRecordStoreClient(conn)
}

func TestRoundTrip(t *testing.T) {
	c := dial(t, &echoServer{})

	pong, err := c.Ping(context.Background(), &PingRequest{})
	require.NoError(t, err)
	assert.Equal(t, "OK", pong.Status)

	res, err := c.QueryByDigestAny(context.Background(), &QueryByDigestAnyRequest{SHA1: "abc"})
	require.NoError(t, err)
	require.Len(t, res.Records, 1)
	assert.Equal(t, "abc", res.Records[0].SHA1)
	assert.Equal(t, "a,b", records.Deref(res.Records[0].Tags))
}

func TestInterceptorSeesFullMethod(t *testing.T) {
	var seen []string
	ic := func(ctx context.Context, req any, info *grpc.UnaryServerInfo, h grpc.UnaryHandler) (any, error) {
		seen = append(seen, info.FullMethod)
		return h(ctx, req)
	}
	c := dial(t, &echoServer{}, ic)

	_, err := c.Ping(context.Background(), &PingRequest{})
	require.NoError(t, err)
	assert.Equal(t, []string{MethodPing}, seen)
}
