package grpcserver

import (
	"context"
	"errors"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"yamdb/services"
)

const catalogServiceName = "yamdb.v1.CatalogService"

const CatalogService_GetTitleRating_FullMethodName = "/" + catalogServiceName + "/GetTitleRating"

// CatalogServiceServer exposes read-only catalog lookups.
type CatalogServiceServer interface {
	// GetTitleRating answers {title_id, rating}; rating is null while the title has no reviews.
	GetTitleRating(ctx context.Context, id *wrapperspb.UInt64Value) (*structpb.Struct, error)
}

var CatalogService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: catalogServiceName,
	HandlerType: (*CatalogServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		unaryMethod(catalogServiceName, "GetTitleRating", func() *wrapperspb.UInt64Value { return new(wrapperspb.UInt64Value) },
			CatalogServiceServer.GetTitleRating),
	},
	Metadata: "yamdb/v1/catalog.proto",
}

type catalogServiceServer struct {
	titles services.TitleService
}

func NewCatalogServiceServer(titles services.TitleService) CatalogServiceServer {
	return &catalogServiceServer{titles: titles}
}

func (s *catalogServiceServer) GetTitleRating(ctx context.Context, req *wrapperspb.UInt64Value) (*structpb.Struct, error) {
	id := req.GetValue()
	if id == 0 {
		return nil, status.Error(codes.InvalidArgument, "title id is required")
	}
	rating, err := s.titles.Rating(ctx, uint(id))
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			return nil, status.Errorf(codes.NotFound, "title %d not found", id)
		}
		return nil, status.Error(codes.Internal, "could not compute rating")
	}

	out := map[string]interface{}{"title_id": float64(id), "rating": nil}
	if rating != nil {
		out["rating"] = *rating
	}
	return structpb.NewStruct(out)
}

// CatalogClient calls yamdb.v1.CatalogService.
type CatalogClient struct {
	cc grpc.ClientConnInterface
}

func NewCatalogClient(cc grpc.ClientConnInterface) *CatalogClient {
	return &CatalogClient{cc: cc}
}

func (c *CatalogClient) GetTitleRating(ctx context.Context, titleID uint, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return invoke(ctx, c.cc, CatalogService_GetTitleRating_FullMethodName, wrapperspb.UInt64(uint64(titleID)), new(structpb.Struct), opts...)
}
