package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"gorm.io/gorm"

	"yamdb/auth"
	"yamdb/models"
	"yamdb/repositories"
)

// The UserService interface defines the methods that user services need to implement
type UserService interface {
	ListUsers(ctx context.Context, caller *models.User, search string, page repositories.Page) ([]models.User, int64, error)
	CreateUser(ctx context.Context, caller *models.User, input *UserInput) (*models.User, error)
	GetUser(ctx context.Context, caller *models.User, username string) (*models.User, error)
	UpdateUser(ctx context.Context, caller *models.User, username string, input *UserInput) (*models.User, error)
	PatchUser(ctx context.Context, caller *models.User, username string, input *UserPatchInput) (*models.User, error)
	DeleteUser(ctx context.Context, caller *models.User, username string) error
	Me(ctx context.Context, caller *models.User) (*models.User, error)
	UpdateMe(ctx context.Context, caller *models.User, input *UserPatchInput) (*models.User, error)
}

// --- Structs for Input ---

// UserInput is the full representation accepted on create and replace.
type UserInput struct {
	Username  string `json:"username" validate:"required,max=150,username"`
	Email     string `json:"email" validate:"required,max=254,email"`
	FirstName string `json:"first_name" validate:"max=150"`
	LastName  string `json:"last_name" validate:"max=150"`
	Bio       string `json:"bio"`
	Role      string `json:"role" validate:"omitempty,role"`
}

// UserPatchInput updates only the fields that are present.
type UserPatchInput struct {
	Username  *string `json:"username" validate:"omitempty,max=150,username"`
	Email     *string `json:"email" validate:"omitempty,max=254,email"`
	FirstName *string `json:"first_name" validate:"omitempty,max=150"`
	LastName  *string `json:"last_name" validate:"omitempty,max=150"`
	Bio       *string `json:"bio"`
	Role      *string `json:"role" validate:"omitempty,role"`
}

// The userService structure is the implementation of the UserService interface
type userService struct {
	repo   repositories.UserRepository
	policy auth.Policy
}

var _ UserService = (*userService)(nil)

// NewUserService creates a new UserService instance
func NewUserService(repo repositories.UserRepository, policies auth.Policies) UserService {
	return &userService{repo: repo, policy: policies.For(auth.ResourceUsers)}
}

func (s *userService) ListUsers(ctx context.Context, caller *models.User, search string, page repositories.Page) ([]models.User, int64, error) {
	if err := s.policy.CheckRequest(caller, http.MethodGet); err != nil {
		return nil, 0, err
	}
	users, total, err := s.repo.FindAll(ctx, search, page)
	if err != nil {
		return nil, 0, fmt.Errorf("list users: %w", err)
	}
	return users, total, nil
}

// CreateUser lets an administrator add an account. The user still signs up
// with the same username and email to receive a confirmation code.
func (s *userService) CreateUser(ctx context.Context, caller *models.User, input *UserInput) (*models.User, error) {
	if err := s.policy.CheckRequest(caller, http.MethodPost); err != nil {
		return nil, err
	}
	if err := validateInput(input); err != nil {
		return nil, err
	}

	if err := s.ensureUnique(ctx, 0, input.Username, input.Email); err != nil {
		return nil, err
	}

	user := models.User{
		Username:  input.Username,
		Email:     input.Email,
		FirstName: input.FirstName,
		LastName:  input.LastName,
		Bio:       input.Bio,
		Role:      models.RoleUser,
	}
	if input.Role != "" {
		user.Role = models.Role(input.Role)
	}

	if err := s.save(ctx, &user, s.repo.Create); err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *userService) GetUser(ctx context.Context, caller *models.User, username string) (*models.User, error) {
	return s.loadFor(ctx, caller, http.MethodGet, username)
}

func (s *userService) UpdateUser(ctx context.Context, caller *models.User, username string, input *UserInput) (*models.User, error) {
	user, err := s.loadFor(ctx, caller, http.MethodPut, username)
	if err != nil {
		return nil, err
	}
	if err := validateInput(input); err != nil {
		return nil, err
	}
	if err := s.ensureUnique(ctx, user.ID, input.Username, input.Email); err != nil {
		return nil, err
	}

	user.Username = input.Username
	user.Email = input.Email
	user.FirstName = input.FirstName
	user.LastName = input.LastName
	user.Bio = input.Bio
	if input.Role != "" {
		user.Role = models.Role(input.Role)
	}

	if err := s.save(ctx, user, s.repo.Update); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *userService) PatchUser(ctx context.Context, caller *models.User, username string, input *UserPatchInput) (*models.User, error) {
	user, err := s.loadFor(ctx, caller, http.MethodPatch, username)
	if err != nil {
		return nil, err
	}
	return s.patch(ctx, user, input, true)
}

func (s *userService) DeleteUser(ctx context.Context, caller *models.User, username string) error {
	user, err := s.loadFor(ctx, caller, http.MethodDelete, username)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, user); err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	return nil
}

// Me returns the caller's own record.
func (s *userService) Me(ctx context.Context, caller *models.User) (*models.User, error) {
	if caller == nil {
		return nil, auth.ErrNotAuthenticated
	}
	user, err := s.repo.FindByID(ctx, caller.ID)
	if err != nil {
		return nil, lookupError("user", err)
	}
	return user, nil
}

// UpdateMe applies a partial update to the caller's record. The role field is
// ignored unless the caller is an administrator or superuser.
func (s *userService) UpdateMe(ctx context.Context, caller *models.User, input *UserPatchInput) (*models.User, error) {
	user, err := s.Me(ctx, caller)
	if err != nil {
		return nil, err
	}
	return s.patch(ctx, user, input, caller.IsAdmin())
}

func (s *userService) patch(ctx context.Context, user *models.User, input *UserPatchInput, allowRole bool) (*models.User, error) {
	if err := validateInput(input); err != nil {
		return nil, err
	}

	username, email := user.Username, user.Email
	if input.Username != nil {
		username = *input.Username
	}
	if input.Email != nil {
		email = *input.Email
	}
	if err := s.ensureUnique(ctx, user.ID, username, email); err != nil {
		return nil, err
	}

	user.Username = username
	user.Email = email
	if input.FirstName != nil {
		user.FirstName = *input.FirstName
	}
	if input.LastName != nil {
		user.LastName = *input.LastName
	}
	if input.Bio != nil {
		user.Bio = *input.Bio
	}
	if input.Role != nil && allowRole {
		user.Role = models.Role(*input.Role)
	}

	if err := s.save(ctx, user, s.repo.Update); err != nil {
		return nil, err
	}
	return user, nil
}

// loadFor resolves the target user and runs both policy levels for method.
func (s *userService) loadFor(ctx context.Context, caller *models.User, method, username string) (*models.User, error) {
	if err := s.policy.CheckRequest(caller, method); err != nil {
		return nil, err
	}
	user, err := s.repo.FindByUsername(ctx, username)
	if err != nil {
		return nil, lookupError("user", err)
	}
	if err := s.policy.CheckObject(caller, method, user.ID); err != nil {
		return nil, err
	}
	return user, nil
}

// ensureUnique rejects a username or email held by an account other than selfID.
func (s *userService) ensureUnique(ctx context.Context, selfID uint, username, email string) error {
	if other, err := s.repo.FindByUsername(ctx, username); err == nil && other.ID != selfID {
		return FieldError("username", "A user with that username already exists.")
	} else if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("check username: %w", err)
	}
	if other, err := s.repo.FindByEmail(ctx, email); err == nil && other.ID != selfID {
		return FieldError("email", "A user with that email already exists.")
	} else if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("check email: %w", err)
	}
	return nil
}

func (s *userService) save(ctx context.Context, user *models.User, write func(context.Context, *models.User) error) error {
	err := write(ctx, user)
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return InvalidInput("A user with that username or email already exists.")
	}
	if err != nil {
		return fmt.Errorf("save user: %w", err)
	}
	return nil
}
