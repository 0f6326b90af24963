package grpc

import (
	"context"
	"path"

	"github.com/dmitrijs2005/rollcall/internal/wire"
	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// LedgerServer is the server side of the ledger protocol. Every message is
// a google.protobuf.Struct laid out as described in package wire.
type LedgerServer interface {
	RecordAttendance(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListActiveEvents(context.Context, *structpb.Struct) (*structpb.Struct, error)
	FindMembers(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Ping(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

type unaryCall func(LedgerServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func unary(fullMethod string, call unaryCall) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: path.Base(fullMethod),
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := &structpb.Struct{}
			if err := dec(in); err != nil {
				return nil, err
			}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(LedgerServer), ctx, req.(*structpb.Struct))
			}
			if interceptor == nil {
				return handler(ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
			return interceptor(ctx, in, info, handler)
		},
	}
}

// LedgerServiceDesc describes the ledger service for grpc.Server.RegisterService.
var LedgerServiceDesc = grpc.ServiceDesc{
	ServiceName: wire.ServiceName,
	HandlerType: (*LedgerServer)(nil),
	Methods: []grpc.MethodDesc{
		unary(wire.MethodRecordAttendance, LedgerServer.RecordAttendance),
		unary(wire.MethodListActiveEvents, LedgerServer.ListActiveEvents),
		unary(wire.MethodFindMembers, LedgerServer.FindMembers),
		unary(wire.MethodPing, LedgerServer.Ping),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "rollcall/ledger.proto",
}
