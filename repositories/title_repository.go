package repositories

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"yamdb/models"
)

const ratingColumn = "(SELECT AVG(reviews.score) FROM reviews WHERE reviews.title_id = titles.id) AS rating"

// TitleFilter narrows a title listing. Zero values do not filter.
type TitleFilter struct {
	Category string // category slug
	Genre    string // genre slug
	Name     string // case-insensitive substring
	Year     int
}

// TitleRepository stores titles. Loaded titles carry their category, genres
// and the average score of their reviews.
type TitleRepository interface {
	Create(ctx context.Context, title *models.Title) error
	FindByID(ctx context.Context, id uint) (*models.Title, error)
	Update(ctx context.Context, title *models.Title, replaceGenres bool) error
	Delete(ctx context.Context, id uint) error
	FindAll(ctx context.Context, filter TitleFilter, page Page) ([]models.Title, int64, error)
	Rating(ctx context.Context, id uint) (*float64, error)
}

type titleRepository struct {
	db *gorm.DB
}

func NewTitleRepository(db *gorm.DB) TitleRepository {
	return &titleRepository{db: db}
}

func (r *titleRepository) withDetails(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Model(&models.Title{}).
		Select("titles.*, " + ratingColumn).
		Preload("Category").
		Preload("Genres", func(db *gorm.DB) *gorm.DB { return db.Order("genres.id") })
}

// Create inserts the title and links its genres in one transaction.
func (r *titleRepository) Create(ctx context.Context, title *models.Title) error {
	genres := title.Genres
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(title).Error; err != nil {
			return err
		}
		return replaceGenres(tx, title, genres)
	})
}

func (r *titleRepository) FindByID(ctx context.Context, id uint) (*models.Title, error) {
	var title models.Title
	if err := r.withDetails(ctx).Where("titles.id = ?", id).First(&title).Error; err != nil {
		return nil, err
	}
	return &title, nil
}

// Update saves every column of title. Genre links are rewritten only when
// replaceGenres is set.
func (r *titleRepository) Update(ctx context.Context, title *models.Title, replace bool) error {
	genres := title.Genres
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Save(title).Error; err != nil {
			return err
		}
		if !replace {
			return nil
		}
		return replaceGenres(tx, title, genres)
	})
}

func replaceGenres(tx *gorm.DB, title *models.Title, genres []models.Genre) error {
	association := tx.Model(title).Omit("Genres.*").Association("Genres")
	if len(genres) == 0 {
		return association.Clear()
	}
	return association.Replace(genres)
}

// Delete removes the title with its reviews, their comments and its genre links.
func (r *titleRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Where("id = ?", id).Limit(1).Find(&models.Title{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}

		reviews := tx.Model(&models.Review{}).Select("id").Where("title_id = ?", id)
		if err := tx.Where("review_id IN (?)", reviews).Delete(&models.Comment{}).Error; err != nil {
			return err
		}
		if err := tx.Where("title_id = ?", id).Delete(&models.Review{}).Error; err != nil {
			return err
		}
		if err := tx.Exec("DELETE FROM title_genres WHERE title_id = ?", id).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", id).Delete(&models.Title{}).Error
	})
}

func (r *titleRepository) filtered(query *gorm.DB, f TitleFilter) *gorm.DB {
	if f.Category != "" {
		query = query.Where("titles.category_id IN (?)",
			r.db.Model(&models.Category{}).Select("id").Where("slug = ?", f.Category))
	}
	if f.Genre != "" {
		query = query.Where("titles.id IN (?)",
			r.db.Table("title_genres").
				Select("title_genres.title_id").
				Joins("JOIN genres ON genres.id = title_genres.genre_id").
				Where("genres.slug = ?", f.Genre))
	}
	if f.Name != "" {
		query = query.Where("LOWER(titles.name) LIKE ? ESCAPE '!'", containsPattern(f.Name))
	}
	if f.Year != 0 {
		query = query.Where("titles.year = ?", f.Year)
	}
	return query
}

func (r *titleRepository) FindAll(ctx context.Context, filter TitleFilter, page Page) ([]models.Title, int64, error) {
	var titles []models.Title
	var total int64

	countQuery := r.filtered(r.db.WithContext(ctx).Model(&models.Title{}), filter)
	if err := countQuery.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := r.filtered(r.withDetails(ctx), filter).
		Order("titles.id").
		Scopes(Paginate(page)).
		Find(&titles).Error
	if err != nil {
		return nil, 0, err
	}
	return titles, total, nil
}

// Rating returns the average review score of the title, nil when it has no reviews.
func (r *titleRepository) Rating(ctx context.Context, id uint) (*float64, error) {
	title, err := r.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return title.Rating, nil
}
