package repositories

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"yamdb/models"
)

// ReviewRepository stores reviews. Every lookup is scoped to the title the
// review was written for.
type ReviewRepository interface {
	Create(ctx context.Context, review *models.Review) error
	FindByID(ctx context.Context, titleID, id uint) (*models.Review, error)
	ExistsForAuthor(ctx context.Context, titleID, authorID uint) (bool, error)
	Update(ctx context.Context, review *models.Review) error
	Delete(ctx context.Context, review *models.Review) error
	FindAllByTitle(ctx context.Context, titleID uint, page Page) ([]models.Review, int64, error)
}

type reviewRepository struct {
	db *gorm.DB
}

func NewReviewRepository(db *gorm.DB) ReviewRepository {
	return &reviewRepository{db: db}
}

func (r *reviewRepository) Create(ctx context.Context, review *models.Review) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(review).Error
}

func (r *reviewRepository) FindByID(ctx context.Context, titleID, id uint) (*models.Review, error) {
	var review models.Review
	err := r.db.WithContext(ctx).
		Preload("Author").
		Where("title_id = ? AND id = ?", titleID, id).
		First(&review).Error
	if err != nil {
		return nil, err
	}
	return &review, nil
}

func (r *reviewRepository) ExistsForAuthor(ctx context.Context, titleID, authorID uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Review{}).
		Where("title_id = ? AND author_id = ?", titleID, authorID).
		Count(&count).Error
	return count > 0, err
}

func (r *reviewRepository) Update(ctx context.Context, review *models.Review) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Save(review).Error
}

// Delete removes the review and its comments.
func (r *reviewRepository) Delete(ctx context.Context, review *models.Review) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("review_id = ?", review.ID).Delete(&models.Comment{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Review{}, review.ID).Error
	})
}

// FindAllByTitle lists the reviews of a title, oldest first.
func (r *reviewRepository) FindAllByTitle(ctx context.Context, titleID uint, page Page) ([]models.Review, int64, error) {
	var reviews []models.Review
	var total int64

	query := r.db.WithContext(ctx).Model(&models.Review{}).Where("title_id = ?", titleID)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := query.Preload("Author").
		Order("pub_date").Order("id").
		Scopes(Paginate(page)).
		Find(&reviews).Error
	if err != nil {
		return nil, 0, err
	}
	return reviews, total, nil
}
