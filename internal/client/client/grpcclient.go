package client

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/docverify/internal/common"
	"github.com/dmitrijs2005/docverify/internal/cryptox"
	"github.com/dmitrijs2005/docverify/internal/records"
	"github.com/dmitrijs2005/docverify/internal/rpcx"
	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

// Signer is the wallet side of a login.
type Signer interface {
	Accounts(ctx context.Context) ([]ethcommon.Address, error)
	SignText(msg []byte) ([]byte, ethcommon.Address, error)
}

type GRPCClient struct {
	endpointURL string
	conn        *grpc.ClientConn
	client      *rpcx.RecordStoreClient
	signer      Signer
	now         func() time.Time

	mu          sync.RWMutex
	accessToken string
	address     string
}

var _ records.Store = (*GRPCClient)(nil)

func withAccessToken(ctx context.Context, token string) context.Context {
	md, _ := metadata.FromOutgoingContext(ctx)
	md = md.Copy()
	if md == nil {
		md = metadata.MD{}
	}
	md.Delete(common.AccessTokenHeaderName)
	if token != "" {
		md.Set(common.AccessTokenHeaderName, token)
	}

	return metadata.NewOutgoingContext(ctx, md)
}

func (s *GRPCClient) token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.accessToken
}

// needsLogin reports whether err asks for a fresh token.
func needsLogin(err error) bool {
	st, ok := status.FromError(err)
	if !ok || st.Code() != codes.Unauthenticated {
		return false
	}
	return st.Message() == common.ErrTokenExpired.Error() || st.Message() == "missing token"
}

func (s *GRPCClient) accessTokenInterceptor(
	ctx context.Context,
	method string,
	req, reply any,
	cc *grpc.ClientConn,
	invoker grpc.UnaryInvoker,
	opts ...grpc.CallOption,
) error {
	if method == rpcx.MethodLogin {
		return invoker(ctx, method, req, reply, cc, opts...)
	}

	err := invoker(withAccessToken(ctx, s.token()), method, req, reply, cc, opts...)
	if err == nil || s.signer == nil || !needsLogin(err) {
		return err
	}

	if lerr := s.Login(ctx); lerr != nil {
		return err
	}
	return invoker(withAccessToken(ctx, s.token()), method, req, reply, cc, opts...)
}

// NewGRPCClient dials endpointURL. signer may be nil for read-only use.
func NewGRPCClient(endpointURL string, signer Signer, opts ...grpc.DialOption) (*GRPCClient, error) {
	c := &GRPCClient{endpointURL: endpointURL, signer: signer, now: time.Now}
	if err := c.InitGRPCClient(opts...); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *GRPCClient) InitGRPCClient(opts ...grpc.DialOption) error {
	opts = append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithUnaryInterceptor(s.accessTokenInterceptor),
	}, opts...)

	conn, err := grpc.NewClient(s.endpointURL, opts...)
	if err != nil {
		return err
	}
	s.conn = conn
	s.client = rpcx.NewRecordStoreClient(conn)
	return nil
}

func (s *GRPCClient) Close() error {
	return s.conn.Close()
}

// Login signs a fresh challenge with the connected account and stores the
// access token the server returns.
func (s *GRPCClient) Login(ctx context.Context) error {
	if s.signer == nil {
		return ErrNoSigner
	}
	accounts, err := s.signer.Accounts(ctx)
	if err != nil {
		return err
	}
	if len(accounts) == 0 {
		return fmt.Errorf("wallet not connected: %w", common.ErrNoProvider)
	}

	msg := cryptox.LoginMessage(accounts[0], s.now())
	sig, addr, err := s.signer.SignText([]byte(msg))
	if err != nil {
		return err
	}
	if addr != accounts[0] {
		return fmt.Errorf("account changed while signing: %w", common.ErrorUnauthorized)
	}

	resp, err := s.client.Login(ctx, &rpcx.LoginRequest{
		Address:   addr.Hex(),
		Message:   msg,
		Signature: hexutil.Encode(sig),
	})
	if err != nil {
		return s.mapError("login", err)
	}

	s.mu.Lock()
	s.accessToken = resp.AccessToken
	s.address = strings.ToLower(addr.Hex())
	s.mu.Unlock()
	return nil
}

// Logout forgets the access token.
func (s *GRPCClient) Logout() {
	s.mu.Lock()
	s.accessToken, s.address = "", ""
	s.mu.Unlock()
}

func (s *GRPCClient) Ping(ctx context.Context) error {
	resp, err := s.client.Ping(ctx, &rpcx.PingRequest{})
	if err != nil {
		return s.mapError("ping", err)
	}
	if resp.Status != "OK" {
		return ErrUnavailable
	}
	return nil
}

func (s *GRPCClient) Insert(ctx context.Context, r *records.FileRecord) error {
	resp, err := s.client.Insert(ctx, &rpcx.InsertRequest{Record: r})
	if err != nil {
		return s.mapError("insert", err)
	}
	if resp.Record != nil {
		*r = *resp.Record
	}
	return nil
}

func (s *GRPCClient) UpdateByDigest(ctx context.Context, sha256 string, p records.Patch) (int64, error) {
	resp, err := s.client.UpdateByDigest(ctx, &rpcx.UpdateByDigestRequest{SHA256: sha256, Patch: p})
	if err != nil {
		return 0, s.mapError("update", err)
	}
	return resp.Updated, nil
}

func (s *GRPCClient) Delete(ctx context.Context, id string) error {
	if _, err := s.client.Delete(ctx, &rpcx.DeleteRequest{ID: id}); err != nil {
		return s.mapError("delete", err)
	}
	return nil
}

func (s *GRPCClient) Get(ctx context.Context, id string) (*records.FileRecord, error) {
	resp, err := s.client.Get(ctx, &rpcx.GetRequest{ID: id})
	if err != nil {
		return nil, s.mapError("get", err)
	}
	return resp.Record, nil
}

func (s *GRPCClient) QueryByOwner(ctx context.Context, owner string) ([]*records.FileRecord, error) {
	resp, err := s.client.QueryByOwner(ctx, &rpcx.QueryByOwnerRequest{Owner: owner})
	return s.rows("query by owner", resp, err)
}

func (s *GRPCClient) QueryByDigestAny(ctx context.Context, sha256, sha1, sha512 string) ([]*records.FileRecord, error) {
	resp, err := s.client.QueryByDigestAny(ctx, &rpcx.QueryByDigestAnyRequest{SHA256: sha256, SHA1: sha1, SHA512: sha512})
	return s.rows("query by digest", resp, err)
}

func (s *GRPCClient) QueryAll(ctx context.Context) ([]*records.FileRecord, error) {
	resp, err := s.client.QueryAll(ctx, &rpcx.QueryAllRequest{})
	return s.rows("query all", resp, err)
}

func (s *GRPCClient) QueryByCID(ctx context.Context, cid string) ([]*records.FileRecord, error) {
	resp, err := s.client.QueryByCID(ctx, &rpcx.QueryByCIDRequest{CID: cid})
	return s.rows("query by cid", resp, err)
}

func (s *GRPCClient) Search(ctx context.Context, f records.Filter) ([]*records.FileRecord, error) {
	resp, err := s.client.Search(ctx, &rpcx.SearchRequest{Filter: f})
	return s.rows("search", resp, err)
}

func (s *GRPCClient) Stats(ctx context.Context, owner string) (records.Stats, error) {
	resp, err := s.client.Stats(ctx, &rpcx.StatsRequest{Owner: owner})
	if err != nil {
		return records.Stats{}, s.mapError("stats", err)
	}
	return resp.Stats, nil
}

func (s *GRPCClient) rows(op string, resp *rpcx.RecordsResponse, err error) ([]*records.FileRecord, error) {
	if err != nil {
		return nil, s.mapError(op, err)
	}
	if resp.Records == nil {
		return []*records.FileRecord{}, nil
	}
	return resp.Records, nil
}

func (s *GRPCClient) mapError(op string, err error) error {
	if err == nil {
		return nil
	}
	st, ok := status.FromError(err)
	if !ok {
		return &records.StoreError{Op: op, Err: err}
	}
	switch st.Code() {
	case codes.Unauthenticated, codes.PermissionDenied:
		return fmt.Errorf("%s: %s: %w", op, st.Message(), common.ErrorUnauthorized)
	case codes.NotFound:
		return fmt.Errorf("%s: %w", op, common.ErrorNotFound)
	case codes.InvalidArgument:
		return fmt.Errorf("%s: %s: %w", op, st.Message(), common.ErrInput)
	case codes.Unavailable, codes.DeadlineExceeded:
		return &records.StoreError{Op: op, Err: errors.Join(ErrUnavailable, err)}
	default:
		return &records.StoreError{Op: op, Err: err}
	}
}
