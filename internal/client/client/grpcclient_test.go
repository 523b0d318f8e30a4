package client

import (
	"context"
	"errors"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/docverify/internal/common"
	"github.com/dmitrijs2005/docverify/internal/cryptox"
	"github.com/dmitrijs2005/docverify/internal/records"
	"github.com/dmitrijs2005/docverify/internal/rpcx"
	"github.com/dmitrijs2005/docverify/internal/wallet"
	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
)

// fakeServer issues "t1", "t2", ... and treats every token but the latest
// as expired.
type fakeServer struct {
	rpcx.RecordStoreServer

	mu      sync.Mutex
	logins  int
	current string
	loginOf string
	rows    []*records.FileRecord
	getErr  error
}

func (f *fakeServer) Login(_ context.Context, in *rpcx.LoginRequest) (*rpcx.LoginResponse, error) {
	sig, err := hexutil.Decode(in.Signature)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, "bad signature")
	}
	if err := cryptox.VerifyLogin(ethcommon.HexToAddress(in.Address), in.Message, sig, time.Now(), time.Minute); err != nil {
		return nil, status.Error(codes.Unauthenticated, "unauthorized")
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.logins++
	f.current = "t" + string(rune('0'+f.logins))
	f.loginOf = in.Address
	return &rpcx.LoginResponse{AccessToken: f.current}, nil
}

func (f *fakeServer) authorize(ctx context.Context) error {
	md, _ := metadata.FromIncomingContext(ctx)
	vals := md.Get(common.AccessTokenHeaderName)
	if len(vals) == 0 {
		return status.Error(codes.Unauthenticated, "missing token")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if vals[0] != f.current {
		return status.Error(codes.Unauthenticated, common.ErrTokenExpired.Error())
	}
	return nil
}

func (f *fakeServer) Insert(ctx context.Context, in *rpcx.InsertRequest) (*rpcx.RecordResponse, error) {
	if err := f.authorize(ctx); err != nil {
		return nil, err
	}
	r := *in.Record
	r.ID = "id-1"
	r.CreatedAt = time.Unix(10, 0).UTC()
	f.rows = append(f.rows, &r)
	return &rpcx.RecordResponse{Record: &r}, nil
}

func (f *fakeServer) UpdateByDigest(ctx context.Context, in *rpcx.UpdateByDigestRequest) (*rpcx.UpdateByDigestResponse, error) {
	if err := f.authorize(ctx); err != nil {
		return nil, err
	}
	return &rpcx.UpdateByDigestResponse{Updated: 2}, nil
}

func (f *fakeServer) Delete(ctx context.Context, in *rpcx.DeleteRequest) (*rpcx.DeleteResponse, error) {
	if err := f.authorize(ctx); err != nil {
		return nil, err
	}
	return nil, status.Error(codes.PermissionDenied, "permission denied")
}

func (f *fakeServer) QueryAll(context.Context, *rpcx.QueryAllRequest) (*rpcx.RecordsResponse, error) {
	return &rpcx.RecordsResponse{}, nil
}

func (f *fakeServer) QueryByDigestAny(_ context.Context, in *rpcx.QueryByDigestAnyRequest) (*rpcx.RecordsResponse, error) {
	return &rpcx.RecordsResponse{Records: f.rows}, nil
}

func (f *fakeServer) Get(context.Context, *rpcx.GetRequest) (*rpcx.RecordResponse, error) {
	return nil, f.getErr
}

func (f *fakeServer) Ping(context.Context, *rpcx.PingRequest) (*rpcx.PingResponse, error) {
	return &rpcx.PingResponse{Status: "OK"}, nil
}

func newSigner(t *testing.T) *wallet.KeyProvider {
	t.Helper()
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	p := wallet.NewKeyProvider(key, nil, nil)
	_, err = p.RequestAccounts(context.Background())
	require.NoError(t, err)
	return p
}

func dial(t *testing.T, srv *fakeServer, signer Signer) *GRPCClient {
	t.Helper()

	lis := bufconn.Listen(1 << 20)
	s := grpc.NewServer()
	rpcx.RegisterRecordStoreServer(s, srv)
	go func() { _ = s.Serve(lis) }()
	t.Cleanup(s.Stop)

	c, err := NewGRPCClient("passthrough:///bufnet", signer,
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestGRPCClient_LogsInOnDemand(t *testing.T) {
	srv := &fakeServer{}
	signer := newSigner(t)
	c := dial(t, srv, signer)
	ctx := context.Background()

	r := &records.FileRecord{FileName: "a.txt", SHA256: "aa"}
	require.NoError(t, c.Insert(ctx, r))
	assert.Equal(t, "id-1", r.ID)
	assert.Equal(t, 1, srv.logins)

	accounts, _ := signer.Accounts(ctx)
	assert.Equal(t, accounts[0].Hex(), srv.loginOf)

	// The server rotates its token; the client logs in again once.
	srv.mu.Lock()
	srv.current = "rotated"
	srv.mu.Unlock()

	n, err := c.UpdateByDigest(ctx, "aa", records.Patch{IsRegistered: records.Ptr(true)})
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)
	assert.Equal(t, 2, srv.logins)

	err = c.Delete(ctx, "id-1")
	assert.ErrorIs(t, err, common.ErrorUnauthorized)
	assert.Equal(t, 2, srv.logins)
}

func TestGRPCClient_ReadOnly(t *testing.T) {
	srv := &fakeServer{}
	c := dial(t, srv, nil)
	ctx := context.Background()

	require.NoError(t, c.Ping(ctx))

	rows, err := c.QueryAll(ctx)
	require.NoError(t, err)
	assert.NotNil(t, rows)
	assert.Empty(t, rows)

	err = c.Insert(ctx, &records.FileRecord{SHA256: "aa"})
	assert.ErrorIs(t, err, common.ErrorUnauthorized)
	assert.ErrorIs(t, c.Login(ctx), ErrNoSigner)
}

func TestGRPCClient_MapError(t *testing.T) {
	srv := &fakeServer{}
	c := dial(t, srv, nil)
	ctx := context.Background()

	tests := []struct {
		err  error
		want error
	}{
		{status.Error(codes.NotFound, "not found"), common.ErrorNotFound},
		{status.Error(codes.InvalidArgument, "bad"), common.ErrInput},
		{status.Error(codes.Unavailable, "down"), ErrUnavailable},
		{status.Error(codes.Internal, "boom"), common.ErrStore},
	}
	for _, tt := range tests {
		srv.getErr = tt.err
		_, err := c.Get(ctx, "x")
		assert.ErrorIs(t, err, tt.want)
	}

	var se *records.StoreError
	srv.getErr = status.Error(codes.Internal, "boom")
	_, err := c.Get(ctx, "x")
	require.True(t, errors.As(err, &se))
	assert.Equal(t, "get", se.Op)
}
