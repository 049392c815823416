package api

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "telesuper.v1.Facade"

// FacadeServer is the server side of the facade service. Every message is
// a google.protobuf.Struct.
type FacadeServer interface {
	GetStatus(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListChats(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListMessages(context.Context, *structpb.Struct) (*structpb.Struct, error)
	SendText(context.Context, *structpb.Struct) (*structpb.Struct, error)
	StorageStatistics(context.Context, *structpb.Struct) (*structpb.Struct, error)
	LogOut(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Link(context.Context, *structpb.Struct) (*structpb.Struct, error)
	WatchEvents(*structpb.Struct, grpc.ServerStream) error
}

type unaryMethod func(FacadeServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func unaryHandler(name string, call unaryMethod) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(FacadeServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + ServiceName + "/" + name}
			return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
				return call(srv.(FacadeServer), ctx, req.(*structpb.Struct))
			})
		},
	}
}

func watchEventsHandler(srv any, stream grpc.ServerStream) error {
	in := new(structpb.Struct)
	if err := stream.RecvMsg(in); err != nil {
		return err
	}
	return srv.(FacadeServer).WatchEvents(in, stream)
}

// ServiceDesc describes the facade service for grpc.Server.RegisterService.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*FacadeServer)(nil),
	Methods: []grpc.MethodDesc{
		unaryHandler("GetStatus", FacadeServer.GetStatus),
		unaryHandler("ListChats", FacadeServer.ListChats),
		unaryHandler("ListMessages", FacadeServer.ListMessages),
		unaryHandler("SendText", FacadeServer.SendText),
		unaryHandler("StorageStatistics", FacadeServer.StorageStatistics),
		unaryHandler("LogOut", FacadeServer.LogOut),
		unaryHandler("Link", FacadeServer.Link),
	},
	Streams: []grpc.StreamDesc{{
		StreamName:    "WatchEvents",
		Handler:       watchEventsHandler,
		ServerStreams: true,
	}},
	Metadata: "telesuper/v1/facade.proto",
}

// RegisterFacadeServer registers srv on s.
func RegisterFacadeServer(s grpc.ServiceRegistrar, srv FacadeServer) {
	s.RegisterService(&ServiceDesc, srv)
}
