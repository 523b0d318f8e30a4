package rpcx

import (
	"context"

	"google.golang.org/grpc"
)

const ServiceName = "docverify.records.v1.RecordStore"

// Full method names, as seen by interceptors.
const (
	MethodLogin            = "/" + ServiceName + "/Login"
	MethodInsert           = "/" + ServiceName + "/Insert"
	MethodUpdateByDigest   = "/" + ServiceName + "/UpdateByDigest"
	MethodQueryByOwner     = "/" + ServiceName + "/QueryByOwner"
	MethodQueryByDigestAny = "/" + ServiceName + "/QueryByDigestAny"
	MethodQueryAll         = "/" + ServiceName + "/QueryAll"
	MethodQueryByCID       = "/" + ServiceName + "/QueryByCID"
	MethodSearch           = "/" + ServiceName + "/Search"
	MethodStats            = "/" + ServiceName + "/Stats"
	MethodDelete           = "/" + ServiceName + "/Delete"
	MethodGet              = "/" + ServiceName + "/Get"
	MethodPing             = "/" + ServiceName + "/Ping"
)

// RecordStoreServer is implemented by the server's gRPC handler.
type RecordStoreServer interface {
	Login(context.Context, *LoginRequest) (*LoginResponse, error)
	Insert(context.Context, *InsertRequest) (*RecordResponse, error)
	UpdateByDigest(context.Context, *UpdateByDigestRequest) (*UpdateByDigestResponse, error)
	QueryByOwner(context.Context, *QueryByOwnerRequest) (*RecordsResponse, error)
	QueryByDigestAny(context.Context, *QueryByDigestAnyRequest) (*RecordsResponse, error)
	QueryAll(context.Context, *QueryAllRequest) (*RecordsResponse, error)
	QueryByCID(context.Context, *QueryByCIDRequest) (*RecordsResponse, error)
	Search(context.Context, *SearchRequest) (*RecordsResponse, error)
	Stats(context.Context, *StatsRequest) (*StatsResponse, error)
	Delete(context.Context, *DeleteRequest) (*DeleteResponse, error)
	Get(context.Context, *GetRequest) (*RecordResponse, error)
	Ping(context.Context, *PingRequest) (*PingResponse, error)
}

func unary[Req, Resp any](name string, call func(RecordStoreServer, context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(RecordStoreServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + ServiceName + "/" + name}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(RecordStoreServer), ctx, req.(*Req))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

// ServiceDesc describes the record-store service for grpc.Server.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*RecordStoreServer)(nil),
	Methods: []grpc.MethodDesc{
		unary("Login", RecordStoreServer.Login),
		unary("Insert", RecordStoreServer.Insert),
		unary("UpdateByDigest", RecordStoreServer.UpdateByDigest),
		unary("QueryByOwner", RecordStoreServer.QueryByOwner),
		unary("QueryByDigestAny", RecordStoreServer.QueryByDigestAny),
		unary("QueryAll", RecordStoreServer.QueryAll),
		unary("QueryByCID", RecordStoreServer.QueryByCID),
		unary("Search", RecordStoreServer.Search),
		unary("Stats", RecordStoreServer.Stats),
		unary("Delete", RecordStoreServer.Delete),
		unary("Get", RecordStoreServer.Get),
		unary("Ping", RecordStoreServer.Ping),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "docverify/records/v1",
}

func RegisterRecordStoreServer(s grpc.ServiceRegistrar, srv RecordStoreServer) {
	s.RegisterService(&ServiceDesc, srv)
}

// RecordStoreClient is the client stub for the record-store service.
type RecordStoreClient struct {
	cc grpc.ClientConnInterface
}

func NewRecordStoreClient(cc grpc.ClientConnInterface) *RecordStoreClient {
	return &RecordStoreClient{cc: cc}
}

func invoke[Resp any](ctx context.Context, cc grpc.ClientConnInterface, method string, in any, opts []grpc.CallOption) (*Resp, error) {
	out := new(Resp)
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	if err := cc.Invoke(ctx, method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *RecordStoreClient) Login(ctx context.Context, in *LoginRequest, opts ...grpc.CallOption) (*LoginResponse, error) {
	return invoke[LoginResponse](ctx, c.cc, MethodLogin, in, opts)
}

func (c *RecordStoreClient) Insert(ctx context.Context, in *InsertRequest, opts ...grpc.CallOption) (*RecordResponse, error) {
	return invoke[RecordResponse](ctx, c.cc, MethodInsert, in, opts)
}

func (c *RecordStoreClient) UpdateByDigest(ctx context.Context, in *UpdateByDigestRequest, opts ...grpc.CallOption) (*UpdateByDigestResponse, error) {
	return invoke[UpdateByDigestResponse](ctx, c.cc, MethodUpdateByDigest, in, opts)
}

func (c *RecordStoreClient) QueryByOwner(ctx context.Context, in *QueryByOwnerRequest, opts ...grpc.CallOption) (*RecordsResponse, error) {
	return invoke[RecordsResponse](ctx, c.cc, MethodQueryByOwner, in, opts)
}

func (c *RecordStoreClient) QueryByDigestAny(ctx context.Context, in *QueryByDigestAnyRequest, opts ...grpc.CallOption) (*RecordsResponse, error) {
	return invoke[RecordsResponse](ctx, c.cc, MethodQueryByDigestAny, in, opts)
}

func (c *RecordStoreClient) QueryAll(ctx context.Context, in *QueryAllRequest, opts ...grpc.CallOption) (*RecordsResponse, error) {
	return invoke[RecordsResponse](ctx, c.cc, MethodQueryAll, in, opts)
}

func (c *RecordStoreClient) QueryByCID(ctx context.Context, in *QueryByCIDRequest, opts ...grpc.CallOption) (*RecordsResponse, error) {
	return invoke[RecordsResponse](ctx, c.cc, MethodQueryByCID, in, opts)
}

func (c *RecordStoreClient) Search(ctx context.Context, in *SearchRequest, opts ...grpc.CallOption) (*RecordsResponse, error) {
	return invoke[RecordsResponse](ctx, c.cc, MethodSearch, in, opts)
}

func (c *RecordStoreClient) Stats(ctx context.Context, in *StatsRequest, opts ...grpc.CallOption) (*StatsResponse, error) {
	return invoke[StatsResponse](ctx, c.cc, MethodStats, in, opts)
}

func (c *RecordStoreClient) Delete(ctx context.Context, in *DeleteRequest, opts ...grpc.CallOption) (*DeleteResponse, error) {
	return invoke[DeleteResponse](ctx, c.cc, MethodDelete, in, opts)
}

func (c *RecordStoreClient) Get(ctx context.Context, in *GetRequest, opts ...grpc.CallOption) (*RecordResponse, error) {
	return invoke[RecordResponse](ctx, c.cc, MethodGet, in, opts)
}

func (c *RecordStoreClient) Ping(ctx context.Context, in *PingRequest, opts ...grpc.CallOption) (*PingResponse, error) {
	return invoke[PingResponse](ctx, c.cc, MethodPing, in, opts)
}
