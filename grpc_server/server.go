package grpcserver

import (
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"gorm.io/gorm"

	"yamdb/auth"
	"yamdb/interceptors"
	"yamdb/registry"
	"yamdb/repositories"
	"yamdb/services"
)

// Deps is what the gRPC server needs. Registry is optional; without it the
// registry service is not served.
type Deps struct {
	DB       *gorm.DB
	Policies auth.Policies
	Registry registry.ServiceRegistry
	Logger   *zap.Logger
}

// PublicMethods can be called without a bearer token.
var PublicMethods = []string{
	AuthService_ValidateToken_FullMethodName,
	CatalogService_GetTitleRating_FullMethodName,
	RegistryService_Discover_FullMethodName,
	healthpb.Health_Check_FullMethodName,
	healthpb.Health_Watch_FullMethodName,
}

// NewServer builds the gRPC server with every service registered and marked SERVING.
func NewServer(deps Deps, opts ...grpc.ServerOption) *grpc.Server {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	users := repositories.NewUserRepository(deps.DB)
	titles := services.NewTitleService(
		repositories.NewTitleRepository(deps.DB),
		repositories.NewCategoryRepository(deps.DB),
		repositories.NewGenreRepository(deps.DB),
		deps.Policies,
	)

	opts = append(opts, grpc.ChainUnaryInterceptor(
		interceptors.RecoveryInterceptor(logger),
		interceptors.ZapLoggingInterceptor(logger),
		interceptors.AuthInterceptor(users, PublicMethods...),
	))
	s := grpc.NewServer(opts...)

	s.RegisterService(&AuthService_ServiceDesc, NewAuthServiceServer(users, deps.Policies))
	s.RegisterService(&CatalogService_ServiceDesc, NewCatalogServiceServer(titles))
	served := []string{authServiceName, catalogServiceName}
	if deps.Registry != nil {
		s.RegisterService(&RegistryService_ServiceDesc, NewRegistryServiceServer(deps.Registry))
		served = append(served, registryServiceName)
	}

	healthServer := health.NewServer()
	healthServer.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	for _, name := range served {
		healthServer.SetServingStatus(name, healthpb.HealthCheckResponse_SERVING)
	}
	healthpb.RegisterHealthServer(s, healthServer)
	return s
}
