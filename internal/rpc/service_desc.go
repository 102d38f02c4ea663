// Package rpc exposes a mutation-repair session over gRPC. Requests and
// responses use protobuf well-known types so no generated stubs are needed:
// positions travel as Int32Value, repair bases as StringValue, and every call
// answers with the session view encoded as a Struct.
package rpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// ServiceName is the fully-qualified gRPC service name.
const ServiceName = "dnarepair.v1.SessionService"

// Method names of ServiceName.
const (
	MethodIntroduceMutation = "IntroduceMutation"
	MethodRevealComplement  = "RevealComplement"
	MethodSubmitRepair      = "SubmitRepair"
	MethodReset             = "Reset"
	MethodGetSession        = "GetSession"
)

// FullMethod returns the "/service/method" path gRPC routes on.
func FullMethod(method string) string {
	return "/" + ServiceName + "/" + method
}

// SessionServiceServer is the server API for ServiceName.
type SessionServiceServer interface {
	// IntroduceMutation takes a 0-based position.
	IntroduceMutation(context.Context, *wrapperspb.Int32Value) (*structpb.Struct, error)
	RevealComplement(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	// SubmitRepair takes a single base letter.
	SubmitRepair(context.Context, *wrapperspb.StringValue) (*structpb.Struct, error)
	Reset(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	GetSession(context.Context, *emptypb.Empty) (*structpb.Struct, error)
}

// RegisterSessionServiceServer registers srv on s.
func RegisterSessionServiceServer(s grpc.ServiceRegistrar, srv SessionServiceServer) {
	s.RegisterService(&SessionServiceDesc, srv)
}

// SessionServiceDesc describes ServiceName for grpc.Server.RegisterService.
var SessionServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*SessionServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		unaryMethod(MethodIntroduceMutation,
			func() proto.Message { return new(wrapperspb.Int32Value) },
			func(s SessionServiceServer, ctx context.Context, in proto.Message) (*structpb.Struct, error) {
				return s.IntroduceMutation(ctx, in.(*wrapperspb.Int32Value))
			}),
		unaryMethod(MethodRevealComplement, newEmpty,
			func(s SessionServiceServer, ctx context.Context, in proto.Message) (*structpb.Struct, error) {
				return s.RevealComplement(ctx, in.(*emptypb.Empty))
			}),
		unaryMethod(MethodSubmitRepair,
			func() proto.Message { return new(wrapperspb.StringValue) },
			func(s SessionServiceServer, ctx context.Context, in proto.Message) (*structpb.Struct, error) {
				return s.SubmitRepair(ctx, in.(*wrapperspb.StringValue))
			}),
		unaryMethod(MethodReset, newEmpty,
			func(s SessionServiceServer, ctx context.Context, in proto.Message) (*structpb.Struct, error) {
				return s.Reset(ctx, in.(*emptypb.Empty))
			}),
		unaryMethod(MethodGetSession, newEmpty,
			func(s SessionServiceServer, ctx context.Context, in proto.Message) (*structpb.Struct, error) {
				return s.GetSession(ctx, in.(*emptypb.Empty))
			}),
	},
	Streams: []grpc.StreamDesc{},
}

func newEmpty() proto.Message { return new(emptypb.Empty) }

type unaryCall func(SessionServiceServer, context.Context, proto.Message) (*structpb.Struct, error)

// unaryMethod builds the MethodDesc a generated stub would contain: decode the
// request, then run the handler directly or through the interceptor chain.
func unaryMethod(name string, newReq func() proto.Message, call unaryCall) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := newReq()
			if err := dec(in); err != nil {
				return nil, err
			}
			server := srv.(SessionServiceServer)
			if interceptor == nil {
				return call(server, ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: FullMethod(name)}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(server, ctx, req.(proto.Message))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}
