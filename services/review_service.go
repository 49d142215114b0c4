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

// ReviewService manages the reviews of a title. A user reviews a title at most once.
type ReviewService interface {
	ListReviews(ctx context.Context, titleID uint, page repositories.Page) ([]models.Review, int64, error)
	GetReview(ctx context.Context, titleID, id uint) (*models.Review, error)
	CreateReview(ctx context.Context, caller *models.User, titleID uint, input *ReviewInput) (*models.Review, error)
	UpdateReview(ctx context.Context, caller *models.User, titleID, id uint, input *ReviewInput) (*models.Review, error)
	PatchReview(ctx context.Context, caller *models.User, titleID, id uint, input *ReviewPatchInput) (*models.Review, error)
	DeleteReview(ctx context.Context, caller *models.User, titleID, id uint) error
}

type ReviewInput struct {
	Text  string `json:"text" validate:"required"`
	Score int    `json:"score" validate:"required,gte=1,lte=10"`
}

type ReviewPatchInput struct {
	Text  *string `json:"text" validate:"omitempty,min=1"`
	Score *int    `json:"score" validate:"omitempty,gte=1,lte=10"`
}

// errDuplicateReview is returned for a second review of the same title by the same author.
var errDuplicateReview = InvalidInput("You have already reviewed this title.")

type reviewService struct {
	reviews repositories.ReviewRepository
	titles  repositories.TitleRepository
	policy  auth.Policy
}

var _ ReviewService = (*reviewService)(nil)

func NewReviewService(reviews repositories.ReviewRepository, titles repositories.TitleRepository, policies auth.Policies) ReviewService {
	return &reviewService{reviews: reviews, titles: titles, policy: policies.For(auth.ResourceReviews)}
}

func (s *reviewService) ListReviews(ctx context.Context, titleID uint, page repositories.Page) ([]models.Review, int64, error) {
	if err := s.ensureTitle(ctx, titleID); err != nil {
		return nil, 0, err
	}
	reviews, total, err := s.reviews.FindAllByTitle(ctx, titleID, page)
	if err != nil {
		return nil, 0, fmt.Errorf("list reviews: %w", err)
	}
	return reviews, total, nil
}

func (s *reviewService) GetReview(ctx context.Context, titleID, id uint) (*models.Review, error) {
	if err := s.ensureTitle(ctx, titleID); err != nil {
		return nil, err
	}
	review, err := s.reviews.FindByID(ctx, titleID, id)
	if err != nil {
		return nil, lookupError("review", err)
	}
	return review, nil
}

func (s *reviewService) CreateReview(ctx context.Context, caller *models.User, titleID uint, input *ReviewInput) (*models.Review, error) {
	if err := s.policy.CheckRequest(caller, http.MethodPost); err != nil {
		return nil, err
	}
	if err := s.ensureTitle(ctx, titleID); err != nil {
		return nil, err
	}
	if err := validateInput(input); err != nil {
		return nil, err
	}

	exists, err := s.reviews.ExistsForAuthor(ctx, titleID, caller.ID)
	if err != nil {
		return nil, fmt.Errorf("check existing review: %w", err)
	}
	if exists {
		return nil, errDuplicateReview
	}

	review := &models.Review{
		TitleID:  titleID,
		AuthorID: caller.ID,
		Text:     input.Text,
		Score:    input.Score,
	}
	err = s.reviews.Create(ctx, review)
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return nil, errDuplicateReview
	}
	if err != nil {
		return nil, fmt.Errorf("create review: %w", err)
	}
	review.Author = *caller
	return review, nil
}

func (s *reviewService) UpdateReview(ctx context.Context, caller *models.User, titleID, id uint, input *ReviewInput) (*models.Review, error) {
	review, err := s.loadFor(ctx, caller, http.MethodPut, titleID, id)
	if err != nil {
		return nil, err
	}
	if err := validateInput(input); err != nil {
		return nil, err
	}
	review.Text = input.Text
	review.Score = input.Score
	if err := s.reviews.Update(ctx, review); err != nil {
		return nil, fmt.Errorf("update review: %w", err)
	}
	return review, nil
}

func (s *reviewService) PatchReview(ctx context.Context, caller *models.User, titleID, id uint, input *ReviewPatchInput) (*models.Review, error) {
	review, err := s.loadFor(ctx, caller, http.MethodPatch, titleID, id)
	if err != nil {
		return nil, err
	}
	if err := validateInput(input); err != nil {
		return nil, err
	}
	if input.Text != nil {
		review.Text = *input.Text
	}
	if input.Score != nil {
		review.Score = *input.Score
	}
	if err := s.reviews.Update(ctx, review); err != nil {
		return nil, fmt.Errorf("update review: %w", err)
	}
	return review, nil
}

func (s *reviewService) DeleteReview(ctx context.Context, caller *models.User, titleID, id uint) error {
	review, err := s.loadFor(ctx, caller, http.MethodDelete, titleID, id)
	if err != nil {
		return err
	}
	if err := s.reviews.Delete(ctx, review); err != nil {
		return fmt.Errorf("delete review: %w", err)
	}
	return nil
}

// loadFor resolves the review within its title and runs both policy levels,
// the author being the owner.
func (s *reviewService) loadFor(ctx context.Context, caller *models.User, method string, titleID, id uint) (*models.Review, error) {
	if err := s.policy.CheckRequest(caller, method); err != nil {
		return nil, err
	}
	review, err := s.GetReview(ctx, titleID, id)
	if err != nil {
		return nil, err
	}
	if err := s.policy.CheckObject(caller, method, review.AuthorID); err != nil {
		return nil, err
	}
	return review, nil
}

func (s *reviewService) ensureTitle(ctx context.Context, titleID uint) error {
	if _, err := s.titles.FindByID(ctx, titleID); err != nil {
		return lookupError("title", err)
	}
	return nil
}
