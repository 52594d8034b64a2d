package rpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// #region service
// ServiceName is the fully qualified gRPC service name.
const ServiceName = "adaptive.director.v1.Director"

// Method names, as they appear after the service name in a full method.
const (
	MethodStartSession = "StartSession"
	MethodObserveTurn  = "ObserveTurn"
	MethodObserveGame  = "ObserveGame"
	MethodRecommend    = "Recommend"
	MethodSnapshot     = "Snapshot"
)

// FullMethod returns "/<service>/<method>".
func FullMethod(method string) string {
	return "/" + ServiceName + "/" + method
}

// DirectorServer is the server API. Every message is a structpb.Struct
// carrying the JSON form of the director types.
type DirectorServer interface {
	StartSession(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ObserveTurn(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ObserveGame(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Recommend(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Snapshot(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

// ServiceDesc describes the Director service for grpc.Server.RegisterService.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*DirectorServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: MethodStartSession, Handler: unaryHandler(MethodStartSession, DirectorServer.StartSession)},
		{MethodName: MethodObserveTurn, Handler: unaryHandler(MethodObserveTurn, DirectorServer.ObserveTurn)},
		{MethodName: MethodObserveGame, Handler: unaryHandler(MethodObserveGame, DirectorServer.ObserveGame)},
		{MethodName: MethodRecommend, Handler: unaryHandler(MethodRecommend, DirectorServer.Recommend)},
		{MethodName: MethodSnapshot, Handler: unaryHandler(MethodSnapshot, DirectorServer.Snapshot)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "adaptive/director/v1/director.proto",
}

// RegisterDirectorServer registers srv with s.
func RegisterDirectorServer(s grpc.ServiceRegistrar, srv DirectorServer) {
	s.RegisterService(&ServiceDesc, srv)
}

type unaryMethod func(DirectorServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func unaryHandler(method string, call unaryMethod) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(DirectorServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: FullMethod(method)}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(DirectorServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// #endregion service
