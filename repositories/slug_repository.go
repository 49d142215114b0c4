package repositories

import (
	"context"

	"gorm.io/gorm"

	"yamdb/models"
)

// SlugModel is a catalog entity addressed by its slug.
type SlugModel interface {
	models.Category | models.Genre
}

// SlugRepository stores categories or genres.
type SlugRepository[T SlugModel] interface {
	Create(ctx context.Context, item *T) error
	FindBySlug(ctx context.Context, slug string) (*T, error)
	FindBySlugs(ctx context.Context, slugs []string) ([]T, error)
	Update(ctx context.Context, item *T) error
	DeleteBySlug(ctx context.Context, slug string) error
	FindAll(ctx context.Context, search string, page Page) ([]T, int64, error)
}

type slugRepository[T SlugModel] struct {
	db *gorm.DB
	// detach releases the titles that reference the row with the given id.
	detach func(tx *gorm.DB, id uint) error
}

// NewCategoryRepository returns a repository whose deletes leave titles
// without a category.
func NewCategoryRepository(db *gorm.DB) SlugRepository[models.Category] {
	return &slugRepository[models.Category]{
		db: db,
		detach: func(tx *gorm.DB, id uint) error {
			return tx.Model(&models.Title{}).Where("category_id = ?", id).Update("category_id", nil).Error
		},
	}
}

// NewGenreRepository returns a repository whose deletes unlink the genre from its titles.
func NewGenreRepository(db *gorm.DB) SlugRepository[models.Genre] {
	return &slugRepository[models.Genre]{
		db: db,
		detach: func(tx *gorm.DB, id uint) error {
			return tx.Exec("DELETE FROM title_genres WHERE genre_id = ?", id).Error
		},
	}
}

func (r *slugRepository[T]) Create(ctx context.Context, item *T) error {
	return r.db.WithContext(ctx).Create(item).Error
}

func (r *slugRepository[T]) FindBySlug(ctx context.Context, slug string) (*T, error) {
	var item T
	if err := r.db.WithContext(ctx).Where("slug = ?", slug).First(&item).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

// FindBySlugs returns the rows matching slugs. Unknown slugs are skipped, the
// caller compares lengths.
func (r *slugRepository[T]) FindBySlugs(ctx context.Context, slugs []string) ([]T, error) {
	var items []T
	if len(slugs) == 0 {
		return items, nil
	}
	if err := r.db.WithContext(ctx).Where("slug IN ?", slugs).Order("id").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *slugRepository[T]) Update(ctx context.Context, item *T) error {
	return r.db.WithContext(ctx).Save(item).Error
}

func (r *slugRepository[T]) DeleteBySlug(ctx context.Context, slug string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var ids []uint
		if err := tx.Model(new(T)).Where("slug = ?", slug).Pluck("id", &ids).Error; err != nil {
			return err
		}
		if len(ids) == 0 {
			return gorm.ErrRecordNotFound
		}
		if err := r.detach(tx, ids[0]); err != nil {
			return err
		}
		return tx.Where("id = ?", ids[0]).Delete(new(T)).Error
	})
}

func (r *slugRepository[T]) FindAll(ctx context.Context, search string, page Page) ([]T, int64, error) {
	var items []T
	var total int64

	query := r.db.WithContext(ctx).Model(new(T))
	if search != "" {
		query = query.Where("LOWER(name) LIKE ? ESCAPE '!'", containsPattern(search))
	}
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if err := query.Order("id").Scopes(Paginate(page)).Find(&items).Error; err != nil {
		return nil, 0, err
	}
	return items, total, nil
}
