package nodeapi

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/dynamicpb"
)

// ModuleSourceServer answers GetModuleSource queries. It returns the module
// version and raw wasm.
type ModuleSourceServer interface {
	GetModuleSource(ctx context.Context, ref []byte, block Block) (uint32, []byte, error)
}

// RegisterQueriesServer registers srv as the concordium.v2.Queries service
// on s. Only GetModuleSource is served.
func RegisterQueriesServer(s grpc.ServiceRegistrar, srv ModuleSourceServer) {
	s.RegisterService(&queriesServiceDesc, srv)
}

var queriesServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*ModuleSourceServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "GetModuleSource",
			Handler:    getModuleSourceHandler,
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: fileName,
}

func getModuleSourceHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := NewModuleSourceRequestMessage()
	if err := dec(in); err != nil {
		return nil, err
	}
	handler := func(ctx context.Context, req any) (any, error) {
		ref, block, err := ParseModuleSourceRequest(req.(*dynamicpb.Message))
		if err != nil {
			return nil, err
		}
		version, wasm, err := srv.(ModuleSourceServer).GetModuleSource(ctx, ref, block)
		if err != nil {
			return nil, err
		}
		return NewVersionedModuleSource(version, wasm)
	}
	if interceptor == nil {
		return handler(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: GetModuleSourceMethod,
	}
	return interceptor(ctx, in, info, handler)
}
