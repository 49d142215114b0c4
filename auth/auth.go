package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	restful "github.com/emicklei/go-restful/v3"
	"github.com/golang-jwt/jwt/v4"

	"yamdb/models"
)

// mySigningKey should be a strong, randomly generated secret key
// supplied through configuration, NOT the default below.
var mySigningKey = []byte("mySigningKey")

var (
	tokenIssuer = "yamdb"
	tokenTTL    = 24 * time.Hour
)

const (
	tokenSubject  = "access"
	tokenAudience = "yamdb-api"
)

// Request attribute keys set by the auth filters.
const (
	AttrUserID   = "user_id"
	AttrUsername = "username"
	AttrUser     = "user"
)

// SetSigningKey allows setting the key from outside the package.
func SetSigningKey(key []byte) {
	if len(key) > 0 {
		mySigningKey = key
	}
}

// Configure sets the key, issuer and lifetime of issued access tokens.
func Configure(secret, issuer string, ttl time.Duration) {
	SetSigningKey([]byte(secret))
	if issuer != "" {
		tokenIssuer = issuer
	}
	if ttl > 0 {
		tokenTTL = ttl
	}
}

// CustomClaims are the claims carried by an access token.
type CustomClaims struct {
	UserID   uint   `json:"user_id"`
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// GenerateToken creates a signed access token for the given user.
func GenerateToken(user *models.User) (string, error) {
	now := time.Now()
	claims := &CustomClaims{
		UserID:   user.ID,
		Username: user.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(tokenTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    tokenIssuer,
			Subject:   tokenSubject,
			Audience:  []string{tokenAudience},
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(mySigningKey)
	if err != nil {
		return "", err
	}
	return tokenString, nil
}

// ParseAndValidateToken : used by the HTTP filters and the gRPC interceptor
func ParseAndValidateToken(tokenString string) (*CustomClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &CustomClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return mySigningKey, nil
	})

	if err != nil {
		var ve *jwt.ValidationError
		if errors.As(err, &ve) {
			if ve.Errors&jwt.ValidationErrorMalformed != 0 {
				return nil, errors.New("malformed token")
			} else if ve.Errors&(jwt.ValidationErrorExpired|jwt.ValidationErrorNotValidYet) != 0 {
				return nil, errors.New("token is either expired or not active yet")
			} else if ve.Errors&jwt.ValidationErrorSignatureInvalid != 0 {
				return nil, errors.New("invalid token signature")
			}
		}
		return nil, fmt.Errorf("couldn't handle this token: %w", err)
	}

	claims, ok := token.Claims.(*CustomClaims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token")
	}
	if claims.Subject != tokenSubject || !claims.VerifyAudience(tokenAudience, true) {
		return nil, errors.New("token was not issued for API access")
	}
	if claims.Issuer != tokenIssuer {
		return nil, errors.New("token was issued by another service")
	}
	return claims, nil
}

// UserFinder loads the account a token was issued for.
type UserFinder interface {
	FindByID(ctx context.Context, id uint) (*models.User, error)
}

// ErrInactiveUser is returned by ResolveUser for accounts that never confirmed their email.
var ErrInactiveUser = errors.New("user is inactive")

// ResolveUser loads the account named by claims. The token must still match
// the stored username, and the account must be active.
func ResolveUser(ctx context.Context, users UserFinder, claims *CustomClaims) (*models.User, error) {
	user, err := users.FindByID(ctx, claims.UserID)
	if err != nil {
		return nil, errors.New("user not found")
	}
	if user.Username != claims.Username {
		return nil, errors.New("token does not match the user")
	}
	if !user.IsActive {
		return nil, ErrInactiveUser
	}
	return user, nil
}

// AuthFilter creates a go-restful FilterFunction that requires a valid bearer token.
func AuthFilter(users UserFinder) restful.FilterFunction {
	return func(req *restful.Request, resp *restful.Response, chain *restful.FilterChain) {
		if req.HeaderParameter("Authorization") == "" {
			writeUnauthorized(resp, "Authorization header required")
			return
		}
		if !authenticate(users, req, resp) {
			return
		}
		chain.ProcessFilter(req, resp)
	}
}

// OptionalAuthFilter authenticates the caller when a token is present and
// lets anonymous requests through. A present but invalid token is rejected.
func OptionalAuthFilter(users UserFinder) restful.FilterFunction {
	return func(req *restful.Request, resp *restful.Response, chain *restful.FilterChain) {
		if req.HeaderParameter("Authorization") != "" && !authenticate(users, req, resp) {
			return
		}
		chain.ProcessFilter(req, resp)
	}
}

func authenticate(users UserFinder, req *restful.Request, resp *restful.Response) bool {
	parts := strings.Split(req.HeaderParameter("Authorization"), " ")
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
		writeUnauthorized(resp, "Invalid authorization header format")
		return false
	}

	claims, err := ParseAndValidateToken(parts[1])
	if err != nil {
		writeUnauthorized(resp, err.Error())
		return false
	}

	user, err := ResolveUser(req.Request.Context(), users, claims)
	if err != nil {
		writeUnauthorized(resp, err.Error())
		return false
	}

	// Store user information in request attributes for use by subsequent processing functions
	req.SetAttribute(AttrUserID, user.ID)
	req.SetAttribute(AttrUsername, user.Username)
	req.SetAttribute(AttrUser, user)
	return true
}

func writeUnauthorized(resp *restful.Response, message string) {
	resp.AddHeader("WWW-Authenticate", `Bearer realm="api"`)
	_ = resp.WriteHeaderAndJson(http.StatusUnauthorized, map[string]string{"message": message}, restful.MIME_JSON)
}

// CurrentUser returns the authenticated caller, or nil for anonymous requests.
func CurrentUser(req *restful.Request) *models.User {
	user, _ := req.Attribute(AttrUser).(*models.User)
	return user
}
