package grpcserver

import (
	"context"
	"errors"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	reg "yamdb/registry"
)

const registryServiceName = "yamdb.v1.RegistryService"

const RegistryService_Discover_FullMethodName = "/" + registryServiceName + "/Discover"

// RegistryServiceServer resolves healthy instances of a service through the registry.
// Registration itself happens at startup in the serve command.
type RegistryServiceServer interface {
	// Discover answers the "host:port" list of the named service.
	Discover(ctx context.Context, name *wrapperspb.StringValue) (*structpb.ListValue, error)
}

var RegistryService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: registryServiceName,
	HandlerType: (*RegistryServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		unaryMethod(registryServiceName, "Discover", func() *wrapperspb.StringValue { return new(wrapperspb.StringValue) },
			RegistryServiceServer.Discover),
	},
	Metadata: "yamdb/v1/registry.proto",
}

type registryServiceServer struct {
	registry reg.ServiceRegistry
}

func NewRegistryServiceServer(r reg.ServiceRegistry) RegistryServiceServer {
	return &registryServiceServer{registry: r}
}

func (s *registryServiceServer) Discover(ctx context.Context, req *wrapperspb.StringValue) (*structpb.ListValue, error) {
	name := req.GetValue()
	if name == "" {
		return nil, status.Error(codes.InvalidArgument, "service name required")
	}

	addrs, err := s.registry.Discover(name, "")
	if err != nil {
		if errors.Is(err, reg.ErrNoInstances) {
			return nil, status.Errorf(codes.NotFound, "no healthy instances of %q", name)
		}
		return nil, status.Errorf(codes.Unavailable, "discovering service %q: %v", name, err)
	}

	values := make([]interface{}, len(addrs))
	for i, addr := range addrs {
		values[i] = addr
	}
	return structpb.NewList(values)
}

// RegistryClient calls yamdb.v1.RegistryService.
type RegistryClient struct {
	cc grpc.ClientConnInterface
}

func NewRegistryClient(cc grpc.ClientConnInterface) *RegistryClient {
	return &RegistryClient{cc: cc}
}

func (c *RegistryClient) Discover(ctx context.Context, name string, opts ...grpc.CallOption) ([]string, error) {
	list, err := invoke(ctx, c.cc, RegistryService_Discover_FullMethodName, wrapperspb.String(name), new(structpb.ListValue), opts...)
	if err != nil {
		return nil, err
	}
	addrs := make([]string, 0, len(list.GetValues()))
	for _, v := range list.GetValues() {
		addrs = append(addrs, v.GetStringValue())
	}
	return addrs, nil
}
