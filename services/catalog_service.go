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

// CatalogService manages categories or genres, both addressed by slug.
type CatalogService[T repositories.SlugModel] interface {
	List(ctx context.Context, search string, page repositories.Page) ([]T, int64, error)
	Create(ctx context.Context, caller *models.User, input *SlugInput) (*T, error)
	Patch(ctx context.Context, caller *models.User, slug string, input *SlugPatchInput) (*T, error)
	Delete(ctx context.Context, caller *models.User, slug string) error
}

type SlugInput struct {
	Name string `json:"name" validate:"required,max=256"`
	Slug string `json:"slug" validate:"required,max=50,slug"`
}

type SlugPatchInput struct {
	Name *string `json:"name" validate:"omitempty,max=256"`
	Slug *string `json:"slug" validate:"omitempty,max=50,slug"`
}

type catalogService[T repositories.SlugModel] struct {
	kind   string
	repo   repositories.SlugRepository[T]
	policy auth.Policy
}

func NewCategoryService(repo repositories.SlugRepository[models.Category], policies auth.Policies) CatalogService[models.Category] {
	return &catalogService[models.Category]{kind: "category", repo: repo, policy: policies.For(auth.ResourceCategories)}
}

func NewGenreService(repo repositories.SlugRepository[models.Genre], policies auth.Policies) CatalogService[models.Genre] {
	return &catalogService[models.Genre]{kind: "genre", repo: repo, policy: policies.For(auth.ResourceGenres)}
}

func (s *catalogService[T]) List(ctx context.Context, search string, page repositories.Page) ([]T, int64, error) {
	items, total, err := s.repo.FindAll(ctx, search, page)
	if err != nil {
		return nil, 0, fmt.Errorf("list %s: %w", s.kind, err)
	}
	return items, total, nil
}

func (s *catalogService[T]) Create(ctx context.Context, caller *models.User, input *SlugInput) (*T, error) {
	if err := s.policy.CheckRequest(caller, http.MethodPost); err != nil {
		return nil, err
	}
	if err := validateInput(input); err != nil {
		return nil, err
	}
	if err := s.ensureFreeSlug(ctx, input.Slug); err != nil {
		return nil, err
	}

	// Category and Genre share one underlying struct type.
	item := T(models.Category{Name: input.Name, Slug: input.Slug})
	if err := s.save(ctx, &item, s.repo.Create); err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *catalogService[T]) Patch(ctx context.Context, caller *models.User, slug string, input *SlugPatchInput) (*T, error) {
	if err := s.policy.CheckRequest(caller, http.MethodPatch); err != nil {
		return nil, err
	}
	item, err := s.repo.FindBySlug(ctx, slug)
	if err != nil {
		return nil, lookupError(s.kind, err)
	}
	if err := s.policy.CheckObject(caller, http.MethodPatch, 0); err != nil {
		return nil, err
	}
	if err := validateInput(input); err != nil {
		return nil, err
	}

	fields := models.Category(*item)
	if input.Slug != nil && *input.Slug != fields.Slug {
		if err := s.ensureFreeSlug(ctx, *input.Slug); err != nil {
			return nil, err
		}
		fields.Slug = *input.Slug
	}
	if input.Name != nil {
		fields.Name = *input.Name
	}
	*item = T(fields)

	if err := s.save(ctx, item, s.repo.Update); err != nil {
		return nil, err
	}
	return item, nil
}

func (s *catalogService[T]) Delete(ctx context.Context, caller *models.User, slug string) error {
	if err := s.policy.CheckRequest(caller, http.MethodDelete); err != nil {
		return err
	}
	if err := s.policy.CheckObject(caller, http.MethodDelete, 0); err != nil {
		return err
	}
	if err := s.repo.DeleteBySlug(ctx, slug); err != nil {
		return lookupError(s.kind, err)
	}
	return nil
}

func (s *catalogService[T]) ensureFreeSlug(ctx context.Context, slug string) error {
	_, err := s.repo.FindBySlug(ctx, slug)
	if err == nil {
		return FieldError("slug", fmt.Sprintf("%s with this slug already exists.", s.kind))
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("check slug: %w", err)
	}
	return nil
}

func (s *catalogService[T]) save(ctx context.Context, item *T, write func(context.Context, *T) error) error {
	err := write(ctx, item)
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return FieldError("slug", fmt.Sprintf("%s with this slug already exists.", s.kind))
	}
	if err != nil {
		return fmt.Errorf("save %s: %w", s.kind, err)
	}
	return nil
}
