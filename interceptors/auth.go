package interceptors

import (
	"context"

	grpcauth "github.com/grpc-ecosystem/go-grpc-middleware/v2/interceptors/auth"
	"github.com/grpc-ecosystem/go-grpc-middleware/v2/interceptors/logging"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"yamdb/auth"
	"yamdb/models"
)

// contextKey is a custom type for context keys to avoid collisions.
type contextKey string

const (
	// UserIDKey is the context key for user ID.
	UserIDKey contextKey = "user_id"
	// UsernameKey is the context key for username.
	UsernameKey contextKey = "username"
	// UserKey is the context key for the loaded *models.User.
	UserKey contextKey = "user"
)

// AuthInterceptor returns a unary server interceptor that requires a bearer
// token on every method except the public ones, given as full method names.
func AuthInterceptor(users auth.UserFinder, publicMethods ...string) grpc.UnaryServerInterceptor {
	public := make(map[string]bool, len(publicMethods))
	for _, m := range publicMethods {
		public[m] = true
	}

	return func(
		ctx context.Context,
		req interface{},
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (interface{}, error) {
		if public[info.FullMethod] {
			return handler(ctx, req)
		}

		tokenString, err := grpcauth.AuthFromMD(ctx, "bearer")
		if err != nil {
			return nil, err
		}

		claims, err := auth.ParseAndValidateToken(tokenString)
		if err != nil {
			return nil, status.Errorf(codes.Unauthenticated, "invalid token: %v", err)
		}
		user, err := auth.ResolveUser(ctx, users, claims)
		if err != nil {
			return nil, status.Error(codes.Unauthenticated, err.Error())
		}

		// Shows up on the finish-call line of the logging interceptor.
		logging.AddFields(ctx, logging.Fields{"username", user.Username})

		newCtx := context.WithValue(ctx, UserIDKey, user.ID)
		newCtx = context.WithValue(newCtx, UsernameKey, user.Username)
		newCtx = context.WithValue(newCtx, UserKey, user)
		return handler(newCtx, req)
	}
}

// GetUserIDFromContext extracts the user ID from the context.
func GetUserIDFromContext(ctx context.Context) (uint, bool) {
	userID, ok := ctx.Value(UserIDKey).(uint)
	return userID, ok
}

// GetUsernameFromContext extracts the username from the context.
func GetUsernameFromContext(ctx context.Context) (string, bool) {
	username, ok := ctx.Value(UsernameKey).(string)
	return username, ok
}

// GetUserFromContext returns the authenticated caller, or nil on public methods.
func GetUserFromContext(ctx context.Context) *models.User {
	user, _ := ctx.Value(UserKey).(*models.User)
	return user
}
