package rpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// #region desc
// ServiceDesc describes the chronicle service for grpc.Server.RegisterService.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*ChronicleServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Resolve", Handler: resolveHandler},
		{MethodName: "UseObserver", Handler: useObserverHandler},
		{MethodName: "ListObservers", Handler: listObserversHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "obschronicle/v1/chronicle.proto",
}

type unaryMethod func(ChronicleServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func unaryHandler(fullMethod string, call unaryMethod) func(any, context.Context, func(any) error, grpc.UnaryServerInterceptor) (any, error) {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(ChronicleServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(ChronicleServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

var (
	resolveHandler       = unaryHandler(methodResolve, ChronicleServer.Resolve)
	useObserverHandler   = unaryHandler(methodUseObserver, ChronicleServer.UseObserver)
	listObserversHandler = unaryHandler(methodListObservers, ChronicleServer.ListObservers)
)

// #endregion desc
