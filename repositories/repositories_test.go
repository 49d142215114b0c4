package repositories

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"yamdb/config"
	"yamdb/database"
	"yamdb/models"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := database.Open(config.DatabaseConfig{
		Driver: "sqlite",
		URL:    fmt.Sprintf("file:%s?mode=memory&cache=shared", name),
	}, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })
	return db
}

type fixture struct {
	ctx      context.Context
	users    UserRepository
	cats     SlugRepository[models.Category]
	genres   SlugRepository[models.Genre]
	titles   TitleRepository
	reviews  ReviewRepository
	comments CommentRepository
}

func newFixture(t *testing.T) *fixture {
	db := setupTestDB(t)
	return &fixture{
		ctx:      context.Background(),
		users:    NewUserRepository(db),
		cats:     NewCategoryRepository(db),
		genres:   NewGenreRepository(db),
		titles:   NewTitleRepository(db),
		reviews:  NewReviewRepository(db),
		comments: NewCommentRepository(db),
	}
}

func (f *fixture) user(t *testing.T, username string) *models.User {
	u := &models.User{Username: username, Email: username + "@example.com", Role: models.RoleUser}
	require.NoError(t, f.users.Create(f.ctx, u))
	return u
}

func (f *fixture) title(t *testing.T, name string, year int, cat *models.Category, genres ...models.Genre) *models.Title {
	title := &models.Title{Name: name, Year: year, Genres: genres}
	if cat != nil {
		title.CategoryID = &cat.ID
	}
	require.NoError(t, f.titles.Create(f.ctx, title))
	return title
}

func TestTitleRating(t *testing.T) {
	f := newFixture(t)
	alice, bob := f.user(t, "alice"), f.user(t, "bob")
	title := f.title(t, "X", 2020, nil)

	loaded, err := f.titles.FindByID(f.ctx, title.ID)
	require.NoError(t, err)
	assert.Nil(t, loaded.Rating)

	require.NoError(t, f.reviews.Create(f.ctx, &models.Review{TitleID: title.ID, AuthorID: alice.ID, Text: "good", Score: 8}))
	require.NoError(t, f.reviews.Create(f.ctx, &models.Review{TitleID: title.ID, AuthorID: bob.ID, Text: "fine", Score: 6}))

	rating, err := f.titles.Rating(f.ctx, title.ID)
	require.NoError(t, err)
	require.NotNil(t, rating)
	assert.InDelta(t, 7.0, *rating, 1e-9)
}

func TestDuplicateReviewIsRejected(t *testing.T) {
	f := newFixture(t)
	alice := f.user(t, "alice")
	title := f.title(t, "X", 2020, nil)

	require.NoError(t, f.reviews.Create(f.ctx, &models.Review{TitleID: title.ID, AuthorID: alice.ID, Text: "a", Score: 8}))

	exists, err := f.reviews.ExistsForAuthor(f.ctx, title.ID, alice.ID)
	require.NoError(t, err)
	assert.True(t, exists)

	err = f.reviews.Create(f.ctx, &models.Review{TitleID: title.ID, AuthorID: alice.ID, Text: "b", Score: 3})
	assert.ErrorIs(t, err, gorm.ErrDuplicatedKey)
}

func TestTitleFilters(t *testing.T) {
	f := newFixture(t)
	film := &models.Category{Name: "Film", Slug: "film"}
	book := &models.Category{Name: "Book", Slug: "book"}
	require.NoError(t, f.cats.Create(f.ctx, film))
	require.NoError(t, f.cats.Create(f.ctx, book))
	drama := &models.Genre{Name: "Drama", Slug: "drama"}
	comedy := &models.Genre{Name: "Comedy", Slug: "comedy"}
	require.NoError(t, f.genres.Create(f.ctx, drama))
	require.NoError(t, f.genres.Create(f.ctx, comedy))

	f.title(t, "The Godfather", 1972, film, *drama)
	f.title(t, "Airplane!", 1980, film, *comedy)
	f.title(t, "War and Peace", 1869, book, *drama)

	tests := []struct {
		name   string
		filter TitleFilter
		want   []string
	}{
		{"all", TitleFilter{}, []string{"The Godfather", "Airplane!", "War and Peace"}},
		{"category", TitleFilter{Category: "film"}, []string{"The Godfather", "Airplane!"}},
		{"genre", TitleFilter{Genre: "drama"}, []string{"The Godfather", "War and Peace"}},
		{"name", TitleFilter{Name: "god"}, []string{"The Godfather"}},
		{"name with escape character", TitleFilter{Name: "!"}, []string{"Airplane!"}},
		{"year", TitleFilter{Year: 1980}, []string{"Airplane!"}},
		{"combined", TitleFilter{Category: "book", Genre: "drama"}, []string{"War and Peace"}},
		{"unknown slug", TitleFilter{Category: "music"}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			titles, total, err := f.titles.FindAll(f.ctx, tt.filter, Page{Number: 1, Size: 10})
			require.NoError(t, err)
			var names []string
			for _, title := range titles {
				names = append(names, title.Name)
			}
			assert.Equal(t, tt.want, names)
			assert.EqualValues(t, len(tt.want), total)
		})
	}

	page, total, err := f.titles.FindAll(f.ctx, TitleFilter{}, Page{Number: 2, Size: 2})
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	require.Len(t, page, 1)
	assert.Equal(t, "War and Peace", page[0].Name)
	require.NotNil(t, page[0].Category)
	assert.Equal(t, "book", page[0].Category.Slug)
	require.Len(t, page[0].Genres, 1)
	assert.Equal(t, "drama", page[0].Genres[0].Slug)
}

func TestTitleUpdateReplacesGenres(t *testing.T) {
	f := newFixture(t)
	drama := &models.Genre{Name: "Drama", Slug: "drama"}
	comedy := &models.Genre{Name: "Comedy", Slug: "comedy"}
	require.NoError(t, f.genres.Create(f.ctx, drama))
	require.NoError(t, f.genres.Create(f.ctx, comedy))
	title := f.title(t, "X", 2020, nil, *drama)

	title.Name = "Y"
	title.Genres = []models.Genre{*comedy}
	require.NoError(t, f.titles.Update(f.ctx, title, true))

	loaded, err := f.titles.FindByID(f.ctx, title.ID)
	require.NoError(t, err)
	assert.Equal(t, "Y", loaded.Name)
	require.Len(t, loaded.Genres, 1)
	assert.Equal(t, "comedy", loaded.Genres[0].Slug)

	loaded.Description = "kept genres"
	require.NoError(t, f.titles.Update(f.ctx, loaded, false))
	loaded, err = f.titles.FindByID(f.ctx, title.ID)
	require.NoError(t, err)
	assert.Len(t, loaded.Genres, 1)
}

func TestCascadingDeletes(t *testing.T) {
	f := newFixture(t)
	alice, bob := f.user(t, "alice"), f.user(t, "bob")
	film := &models.Category{Name: "Film", Slug: "film"}
	require.NoError(t, f.cats.Create(f.ctx, film))
	drama := &models.Genre{Name: "Drama", Slug: "drama"}
	require.NoError(t, f.genres.Create(f.ctx, drama))

	title := f.title(t, "X", 2020, film, *drama)
	review := &models.Review{TitleID: title.ID, AuthorID: alice.ID, Text: "a", Score: 8}
	require.NoError(t, f.reviews.Create(f.ctx, review))
	comment := &models.Comment{ReviewID: review.ID, AuthorID: bob.ID, Text: "agreed"}
	require.NoError(t, f.comments.Create(f.ctx, comment))

	t.Run("category delete keeps titles", func(t *testing.T) {
		require.NoError(t, f.cats.DeleteBySlug(f.ctx, "film"))
		loaded, err := f.titles.FindByID(f.ctx, title.ID)
		require.NoError(t, err)
		assert.Nil(t, loaded.CategoryID)
		assert.Nil(t, loaded.Category)
	})

	t.Run("genre delete unlinks titles", func(t *testing.T) {
		require.NoError(t, f.genres.DeleteBySlug(f.ctx, "drama"))
		loaded, err := f.titles.FindByID(f.ctx, title.ID)
		require.NoError(t, err)
		assert.Empty(t, loaded.Genres)
	})

	t.Run("missing slug", func(t *testing.T) {
		assert.ErrorIs(t, f.genres.DeleteBySlug(f.ctx, "drama"), gorm.ErrRecordNotFound)
	})

	t.Run("user delete removes their comments", func(t *testing.T) {
		require.NoError(t, f.users.Delete(f.ctx, bob))
		_, err := f.comments.FindByID(f.ctx, review.ID, comment.ID)
		assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
	})

	t.Run("title delete removes reviews", func(t *testing.T) {
		require.NoError(t, f.titles.Delete(f.ctx, title.ID))
		_, err := f.reviews.FindByID(f.ctx, title.ID, review.ID)
		assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
		assert.ErrorIs(t, f.titles.Delete(f.ctx, title.ID), gorm.ErrRecordNotFound)
	})
}

func TestUserSearch(t *testing.T) {
	f := newFixture(t)
	for _, name := range []string{"alice", "alina", "bob"} {
		f.user(t, name)
	}

	users, total, err := f.users.FindAll(f.ctx, "AL", Page{Number: 1, Size: 10})
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	require.Len(t, users, 2)
	assert.Equal(t, "alice", users[0].Username)

	_, err = f.users.FindByUsername(f.ctx, "carol")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestSearchMatchesWildcardsLiterally(t *testing.T) {
	f := newFixture(t)
	for _, g := range []models.Genre{
		{Name: "Drama", Slug: "drama"},
		{Name: "Sci_Fi", Slug: "sci-fi"},
		{Name: "100% Rock", Slug: "rock"},
	} {
		require.NoError(t, f.genres.Create(f.ctx, &g))
	}
	for _, name := range []string{"al_ice", "alxice"} {
		f.user(t, name)
	}

	tests := []struct {
		search string
		want   string
	}{
		{"_", "Sci_Fi"},
		{"%", "100% Rock"},
		{"i_f", "Sci_Fi"},
	}
	for _, tt := range tests {
		t.Run(tt.search, func(t *testing.T) {
			genres, total, err := f.genres.FindAll(f.ctx, tt.search, Page{Number: 1, Size: 10})
			require.NoError(t, err)
			assert.EqualValues(t, 1, total)
			require.Len(t, genres, 1)
			assert.Equal(t, tt.want, genres[0].Name)
		})
	}

	users, total, err := f.users.FindAll(f.ctx, "l_i", Page{Number: 1, Size: 10})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, users, 1)
	assert.Equal(t, "al_ice", users[0].Username)
}
