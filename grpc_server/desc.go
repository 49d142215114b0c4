package grpcserver

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/proto"
)

// unaryMethod builds a grpc.MethodDesc for a handler that takes and returns
// protobuf well-known types, so no generated stubs are needed.
func unaryMethod[S any, Req proto.Message, Resp proto.Message](
	service, name string,
	newReq func() Req,
	call func(srv S, ctx context.Context, req Req) (Resp, error),
) grpc.MethodDesc {
	fullMethod := "/" + service + "/" + name
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
			in := newReq()
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(S), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
			handler := func(ctx context.Context, req interface{}) (interface{}, error) {
				return call(srv.(S), ctx, req.(Req))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

// invoke calls a unary method through cc.
func invoke[Resp proto.Message](ctx context.Context, cc grpc.ClientConnInterface, method string, in proto.Message, out Resp, opts ...grpc.CallOption) (Resp, error) {
	if err := cc.Invoke(ctx, method, in, out, opts...); err != nil {
		var zero Resp
		return zero, err
	}
	return out, nil
}
