package grpcserver

import (
	"context"
	"net/http"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"yamdb/auth"
	"yamdb/interceptors"
)

const authServiceName = "yamdb.v1.AuthService"

// Full method names of yamdb.v1.AuthService.
const (
	AuthService_ValidateToken_FullMethodName   = "/" + authServiceName + "/ValidateToken"
	AuthService_CheckPermission_FullMethodName = "/" + authServiceName + "/CheckPermission"
)

// AuthServiceServer lets other services validate YaMDb access tokens and ask
// the authorization layer for a decision.
type AuthServiceServer interface {
	// ValidateToken answers {valid, user_id, username, role} or {valid: false, error}.
	ValidateToken(ctx context.Context, token *wrapperspb.StringValue) (*structpb.Struct, error)
	// CheckPermission takes {resource, method, owner_id} and answers {granted, error}
	// for the caller identified by the bearer token in the metadata.
	CheckPermission(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
}

var AuthService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: authServiceName,
	HandlerType: (*AuthServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		unaryMethod(authServiceName, "ValidateToken", func() *wrapperspb.StringValue { return new(wrapperspb.StringValue) },
			AuthServiceServer.ValidateToken),
		unaryMethod(authServiceName, "CheckPermission", func() *structpb.Struct { return new(structpb.Struct) },
			AuthServiceServer.CheckPermission),
	},
	Metadata: "yamdb/v1/auth.proto",
}

type authServiceServer struct {
	users    auth.UserFinder
	policies auth.Policies
}

func NewAuthServiceServer(users auth.UserFinder, policies auth.Policies) AuthServiceServer {
	return &authServiceServer{users: users, policies: policies}
}

func (s *authServiceServer) ValidateToken(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error) {
	claims, err := auth.ParseAndValidateToken(req.GetValue())
	if err != nil {
		return invalid(err.Error())
	}
	user, err := auth.ResolveUser(ctx, s.users, claims)
	if err != nil {
		return invalid(err.Error())
	}
	return structpb.NewStruct(map[string]interface{}{
		"valid":    true,
		"user_id":  float64(user.ID),
		"username": user.Username,
		"role":     string(user.Role),
	})
}

func invalid(reason string) (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]interface{}{"valid": false, "error": reason})
}

func (s *authServiceServer) CheckPermission(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	fields := req.GetFields()
	resource := fields["resource"].GetStringValue()
	if _, known := auth.DefaultCapabilities[resource]; !known {
		return nil, status.Errorf(codes.InvalidArgument, "unknown resource %q", resource)
	}
	method := strings.ToUpper(fields["method"].GetStringValue())
	if method == "" {
		method = http.MethodGet
	}
	ownerID := uint(fields["owner_id"].GetNumberValue())

	caller := interceptors.GetUserFromContext(ctx)
	if err := s.policies.For(resource).Check(caller, method, ownerID); err != nil {
		return structpb.NewStruct(map[string]interface{}{"granted": false, "error": err.Error()})
	}
	return structpb.NewStruct(map[string]interface{}{"granted": true})
}

// AuthClient calls yamdb.v1.AuthService.
type AuthClient struct {
	cc grpc.ClientConnInterface
}

func NewAuthClient(cc grpc.ClientConnInterface) *AuthClient {
	return &AuthClient{cc: cc}
}

func (c *AuthClient) ValidateToken(ctx context.Context, token string, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return invoke(ctx, c.cc, AuthService_ValidateToken_FullMethodName, wrapperspb.String(token), new(structpb.Struct), opts...)
}

func (c *AuthClient) CheckPermission(ctx context.Context, resource, method string, ownerID uint, opts ...grpc.CallOption) (*structpb.Struct, error) {
	in, err := structpb.NewStruct(map[string]interface{}{
		"resource": resource,
		"method":   method,
		"owner_id": float64(ownerID),
	})
	if err != nil {
		return nil, err
	}
	return invoke(ctx, c.cc, AuthService_CheckPermission_FullMethodName, in, new(structpb.Struct), opts...)
}
