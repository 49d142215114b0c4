package services

import (
	"context"
	"fmt"
	"net/http"

	"yamdb/auth"
	"yamdb/models"
	"yamdb/repositories"
)

// CommentService manages comments on a review. Every call names the title and
// the review, and the review has to belong to the title.
type CommentService interface {
	ListComments(ctx context.Context, titleID, reviewID uint, page repositories.Page) ([]models.Comment, int64, error)
	GetComment(ctx context.Context, titleID, reviewID, id uint) (*models.Comment, error)
	CreateComment(ctx context.Context, caller *models.User, titleID, reviewID uint, input *CommentInput) (*models.Comment, error)
	UpdateComment(ctx context.Context, caller *models.User, titleID, reviewID, id uint, input *CommentInput) (*models.Comment, error)
	PatchComment(ctx context.Context, caller *models.User, titleID, reviewID, id uint, input *CommentPatchInput) (*models.Comment, error)
	DeleteComment(ctx context.Context, caller *models.User, titleID, reviewID, id uint) error
}

type CommentInput struct {
	Text string `json:"text" validate:"required"`
}

type CommentPatchInput struct {
	Text *string `json:"text" validate:"omitempty,min=1"`
}

type commentService struct {
	comments repositories.CommentRepository
	reviews  ReviewService
	policy   auth.Policy
}

var _ CommentService = (*commentService)(nil)

func NewCommentService(comments repositories.CommentRepository, reviews ReviewService, policies auth.Policies) CommentService {
	return &commentService{comments: comments, reviews: reviews, policy: policies.For(auth.ResourceComments)}
}

func (s *commentService) ListComments(ctx context.Context, titleID, reviewID uint, page repositories.Page) ([]models.Comment, int64, error) {
	if _, err := s.reviews.GetReview(ctx, titleID, reviewID); err != nil {
		return nil, 0, err
	}
	comments, total, err := s.comments.FindAllByReview(ctx, reviewID, page)
	if err != nil {
		return nil, 0, fmt.Errorf("list comments: %w", err)
	}
	return comments, total, nil
}

func (s *commentService) GetComment(ctx context.Context, titleID, reviewID, id uint) (*models.Comment, error) {
	if _, err := s.reviews.GetReview(ctx, titleID, reviewID); err != nil {
		return nil, err
	}
	comment, err := s.comments.FindByID(ctx, reviewID, id)
	if err != nil {
		return nil, lookupError("comment", err)
	}
	return comment, nil
}

func (s *commentService) CreateComment(ctx context.Context, caller *models.User, titleID, reviewID uint, input *CommentInput) (*models.Comment, error) {
	if err := s.policy.CheckRequest(caller, http.MethodPost); err != nil {
		return nil, err
	}
	if _, err := s.reviews.GetReview(ctx, titleID, reviewID); err != nil {
		return nil, err
	}
	if err := validateInput(input); err != nil {
		return nil, err
	}

	comment := &models.Comment{ReviewID: reviewID, AuthorID: caller.ID, Text: input.Text}
	if err := s.comments.Create(ctx, comment); err != nil {
		return nil, fmt.Errorf("create comment: %w", err)
	}
	comment.Author = *caller
	return comment, nil
}

func (s *commentService) UpdateComment(ctx context.Context, caller *models.User, titleID, reviewID, id uint, input *CommentInput) (*models.Comment, error) {
	comment, err := s.loadFor(ctx, caller, http.MethodPut, titleID, reviewID, id)
	if err != nil {
		return nil, err
	}
	if err := validateInput(input); err != nil {
		return nil, err
	}
	comment.Text = input.Text
	if err := s.comments.Update(ctx, comment); err != nil {
		return nil, fmt.Errorf("update comment: %w", err)
	}
	return comment, nil
}

func (s *commentService) PatchComment(ctx context.Context, caller *models.User, titleID, reviewID, id uint, input *CommentPatchInput) (*models.Comment, error) {
	comment, err := s.loadFor(ctx, caller, http.MethodPatch, titleID, reviewID, id)
	if err != nil {
		return nil, err
	}
	if err := validateInput(input); err != nil {
		return nil, err
	}
	if input.Text != nil {
		comment.Text = *input.Text
	}
	if err := s.comments.Update(ctx, comment); err != nil {
		return nil, fmt.Errorf("update comment: %w", err)
	}
	return comment, nil
}

func (s *commentService) DeleteComment(ctx context.Context, caller *models.User, titleID, reviewID, id uint) error {
	comment, err := s.loadFor(ctx, caller, http.MethodDelete, titleID, reviewID, id)
	if err != nil {
		return err
	}
	if err := s.comments.Delete(ctx, comment); err != nil {
		return fmt.Errorf("delete comment: %w", err)
	}
	return nil
}

func (s *commentService) loadFor(ctx context.Context, caller *models.User, method string, titleID, reviewID, id uint) (*models.Comment, error) {
	if err := s.policy.CheckRequest(caller, method); err != nil {
		return nil, err
	}
	comment, err := s.GetComment(ctx, titleID, reviewID, id)
	if err != nil {
		return nil, err
	}
	if err := s.policy.CheckObject(caller, method, comment.AuthorID); err != nil {
		return nil, err
	}
	return comment, nil
}
