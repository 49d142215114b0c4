package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"yamdb/auth"
	"yamdb/mail"
	"yamdb/models"
	"yamdb/repositories"
)

// ErrInvalidConfirmationCode is returned for every failed token exchange,
// whether the user is unknown or the code is wrong, used or expired.
var ErrInvalidConfirmationCode = InvalidInput("invalid confirmation code")

// AuthService implements signup and the exchange of a confirmation code for an access token.
type AuthService interface {
	Signup(ctx context.Context, input *SignupInput) (*SignupResponse, error)
	Token(ctx context.Context, input *TokenInput) (*TokenResponse, error)
}

type SignupInput struct {
	Username string `json:"username" validate:"required,max=150,username"`
	Email    string `json:"email" validate:"required,max=254,email"`
}

type SignupResponse struct {
	Username string `json:"username"`
	Email    string `json:"email"`
}

type TokenInput struct {
	Username         string `json:"username" validate:"required,max=150"`
	ConfirmationCode string `json:"confirmation_code" validate:"required"`
}

type TokenResponse struct {
	Token string `json:"token"`
}

// AuthOptions configures AuthService.
type AuthOptions struct {
	From            string
	ConfirmationTTL time.Duration
	Now             func() time.Time
}

type authService struct {
	repo   repositories.UserRepository
	mailer mail.Sender
	opts   AuthOptions
	logger *zap.Logger
}

var _ AuthService = (*authService)(nil)

func NewAuthService(repo repositories.UserRepository, mailer mail.Sender, opts AuthOptions, logger *zap.Logger) AuthService {
	if opts.ConfirmationTTL <= 0 {
		opts.ConfirmationTTL = 24 * time.Hour
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &authService{repo: repo, mailer: mailer, opts: opts, logger: logger}
}

// Signup registers a pending user, or reuses the account when the same
// username and email sign up again, and mails a fresh confirmation code.
func (s *authService) Signup(ctx context.Context, input *SignupInput) (*SignupResponse, error) {
	if err := validateInput(input); err != nil {
		return nil, err
	}

	user, err := s.repo.FindByUsername(ctx, input.Username)
	switch {
	case err == nil:
		if user.Email != input.Email {
			return nil, FieldError("username", "A user with that username already exists.")
		}
	case errors.Is(err, gorm.ErrRecordNotFound):
		if other, err := s.repo.FindByEmail(ctx, input.Email); err == nil && other != nil {
			return nil, FieldError("email", "A user with that email already exists.")
		} else if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("check email: %w", err)
		}
		user = &models.User{Username: input.Username, Email: input.Email, Role: models.RoleUser}
	default:
		return nil, fmt.Errorf("check username: %w", err)
	}

	now := s.opts.Now()
	code, err := auth.NewConfirmationCode(now, s.opts.ConfirmationTTL)
	if err != nil {
		return nil, err
	}
	user.ConfirmationCode = code.Hash
	user.ConfirmationExpiresAt = &code.ExpiresAt

	if user.ID == 0 {
		err = s.repo.Create(ctx, user)
	} else {
		err = s.repo.Update(ctx, user)
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return nil, InvalidInput("A user with that username or email already exists.")
	}
	if err != nil {
		return nil, fmt.Errorf("save user: %w", err)
	}

	msg, err := mail.ConfirmationMessage(s.opts.From, user.Email, user.Username, code.Code, s.opts.ConfirmationTTL.String())
	if err != nil {
		return nil, err
	}
	if err := s.mailer.Send(ctx, msg); err != nil {
		return nil, fmt.Errorf("send confirmation code: %w", err)
	}
	s.logger.Info("Confirmation code issued", zap.String("username", user.Username))

	return &SignupResponse{Username: user.Username, Email: user.Email}, nil
}

// Token exchanges a confirmation code for an access token. The code is cleared
// on success so it cannot be used twice.
func (s *authService) Token(ctx context.Context, input *TokenInput) (*TokenResponse, error) {
	if err := validateInput(input); err != nil {
		return nil, err
	}

	user, err := s.repo.FindByUsername(ctx, input.Username)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrInvalidConfirmationCode
	}
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}

	if !auth.CheckConfirmationCode(user.ConfirmationCode, user.ConfirmationExpiresAt, input.ConfirmationCode, s.opts.Now()) {
		return nil, ErrInvalidConfirmationCode
	}

	user.ConfirmationCode = ""
	user.ConfirmationExpiresAt = nil
	user.IsActive = true
	if err := s.repo.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("activate user: %w", err)
	}

	token, err := auth.GenerateToken(user)
	if err != nil {
		return nil, fmt.Errorf("generate token: %w", err)
	}
	return &TokenResponse{Token: token}, nil
}
