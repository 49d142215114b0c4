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

// TitleService manages titles. Writes name the category and genres by slug,
// every method returns the title as read back from the store.
type TitleService interface {
	ListTitles(ctx context.Context, filter repositories.TitleFilter, page repositories.Page) ([]models.Title, int64, error)
	GetTitle(ctx context.Context, id uint) (*models.Title, error)
	CreateTitle(ctx context.Context, caller *models.User, input *TitleInput) (*models.Title, error)
	UpdateTitle(ctx context.Context, caller *models.User, id uint, input *TitleInput) (*models.Title, error)
	PatchTitle(ctx context.Context, caller *models.User, id uint, input *TitlePatchInput) (*models.Title, error)
	DeleteTitle(ctx context.Context, caller *models.User, id uint) error
	Rating(ctx context.Context, id uint) (*float64, error)
}

type TitleInput struct {
	Name        string   `json:"name" validate:"required,max=256"`
	Year        int      `json:"year" validate:"required,gte=0,notfuture"`
	Description string   `json:"description"`
	Genre       []string `json:"genre" validate:"required,dive,max=50"`
	// Category is optional, an empty slug leaves the title without one.
	Category string `json:"category" validate:"max=50"`
}

type TitlePatchInput struct {
	Name        *string   `json:"name" validate:"omitempty,max=256"`
	Year        *int      `json:"year" validate:"omitempty,gte=0,notfuture"`
	Description *string   `json:"description"`
	Genre       *[]string `json:"genre" validate:"omitempty,dive,max=50"`
	Category    *string   `json:"category" validate:"omitempty,max=50"`
}

type titleService struct {
	titles     repositories.TitleRepository
	categories repositories.SlugRepository[models.Category]
	genres     repositories.SlugRepository[models.Genre]
	policy     auth.Policy
}

var _ TitleService = (*titleService)(nil)

func NewTitleService(
	titles repositories.TitleRepository,
	categories repositories.SlugRepository[models.Category],
	genres repositories.SlugRepository[models.Genre],
	policies auth.Policies,
) TitleService {
	return &titleService{
		titles:     titles,
		categories: categories,
		genres:     genres,
		policy:     policies.For(auth.ResourceTitles),
	}
}

func (s *titleService) ListTitles(ctx context.Context, filter repositories.TitleFilter, page repositories.Page) ([]models.Title, int64, error) {
	titles, total, err := s.titles.FindAll(ctx, filter, page)
	if err != nil {
		return nil, 0, fmt.Errorf("list titles: %w", err)
	}
	return titles, total, nil
}

func (s *titleService) GetTitle(ctx context.Context, id uint) (*models.Title, error) {
	title, err := s.titles.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError("title", err)
	}
	return title, nil
}

func (s *titleService) CreateTitle(ctx context.Context, caller *models.User, input *TitleInput) (*models.Title, error) {
	if err := s.policy.CheckRequest(caller, http.MethodPost); err != nil {
		return nil, err
	}
	if err := validateInput(input); err != nil {
		return nil, err
	}

	title := &models.Title{Name: input.Name, Year: input.Year, Description: input.Description}
	if err := s.resolveCategory(ctx, title, input.Category); err != nil {
		return nil, err
	}
	genres, err := s.resolveGenres(ctx, input.Genre)
	if err != nil {
		return nil, err
	}
	title.Genres = genres

	if err := s.titles.Create(ctx, title); err != nil {
		return nil, fmt.Errorf("create title: %w", err)
	}
	return s.GetTitle(ctx, title.ID)
}

func (s *titleService) UpdateTitle(ctx context.Context, caller *models.User, id uint, input *TitleInput) (*models.Title, error) {
	title, err := s.loadFor(ctx, caller, http.MethodPut, id)
	if err != nil {
		return nil, err
	}
	if err := validateInput(input); err != nil {
		return nil, err
	}

	title.Name = input.Name
	title.Year = input.Year
	title.Description = input.Description
	if err := s.resolveCategory(ctx, title, input.Category); err != nil {
		return nil, err
	}
	if title.Genres, err = s.resolveGenres(ctx, input.Genre); err != nil {
		return nil, err
	}

	if err := s.titles.Update(ctx, title, true); err != nil {
		return nil, fmt.Errorf("update title: %w", err)
	}
	return s.GetTitle(ctx, id)
}

func (s *titleService) PatchTitle(ctx context.Context, caller *models.User, id uint, input *TitlePatchInput) (*models.Title, error) {
	title, err := s.loadFor(ctx, caller, http.MethodPatch, id)
	if err != nil {
		return nil, err
	}
	if err := validateInput(input); err != nil {
		return nil, err
	}

	if input.Name != nil {
		title.Name = *input.Name
	}
	if input.Year != nil {
		title.Year = *input.Year
	}
	if input.Description != nil {
		title.Description = *input.Description
	}
	if input.Category != nil {
		if err := s.resolveCategory(ctx, title, *input.Category); err != nil {
			return nil, err
		}
	}
	if input.Genre != nil {
		if title.Genres, err = s.resolveGenres(ctx, *input.Genre); err != nil {
			return nil, err
		}
	}

	if err := s.titles.Update(ctx, title, input.Genre != nil); err != nil {
		return nil, fmt.Errorf("update title: %w", err)
	}
	return s.GetTitle(ctx, id)
}

func (s *titleService) DeleteTitle(ctx context.Context, caller *models.User, id uint) error {
	if _, err := s.loadFor(ctx, caller, http.MethodDelete, id); err != nil {
		return err
	}
	if err := s.titles.Delete(ctx, id); err != nil {
		return lookupError("title", err)
	}
	return nil
}

// Rating returns the mean review score of a title, nil when it has no reviews.
func (s *titleService) Rating(ctx context.Context, id uint) (*float64, error) {
	rating, err := s.titles.Rating(ctx, id)
	if err != nil {
		return nil, lookupError("title", err)
	}
	return rating, nil
}

func (s *titleService) loadFor(ctx context.Context, caller *models.User, method string, id uint) (*models.Title, error) {
	if err := s.policy.CheckRequest(caller, method); err != nil {
		return nil, err
	}
	title, err := s.GetTitle(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.policy.CheckObject(caller, method, 0); err != nil {
		return nil, err
	}
	return title, nil
}

func (s *titleService) resolveCategory(ctx context.Context, title *models.Title, slug string) error {
	if slug == "" {
		title.CategoryID = nil
		title.Category = nil
		return nil
	}
	category, err := s.categories.FindBySlug(ctx, slug)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return FieldError("category", fmt.Sprintf("Object with slug=%s does not exist.", slug))
	}
	if err != nil {
		return fmt.Errorf("load category: %w", err)
	}
	title.CategoryID = &category.ID
	title.Category = category
	return nil
}

func (s *titleService) resolveGenres(ctx context.Context, slugs []string) ([]models.Genre, error) {
	genres, err := s.genres.FindBySlugs(ctx, slugs)
	if err != nil {
		return nil, fmt.Errorf("load genres: %w", err)
	}
	found := make(map[string]bool, len(genres))
	for _, g := range genres {
		found[g.Slug] = true
	}
	for _, slug := range slugs {
		if !found[slug] {
			return nil, FieldError("genre", fmt.Sprintf("Object with slug=%s does not exist.", slug))
		}
	}
	return genres, nil
}
