package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	restful "github.com/emicklei/go-restful/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"yamdb/auth"
	"yamdb/config"
	"yamdb/database"
	"yamdb/mail"
	"yamdb/models"
	"yamdb/repositories"
	"yamdb/services"
)

func init() {
	auth.ConfirmationHashCost = 4
}

type apiFixture struct {
	t         *testing.T
	container *restful.Container
	users     repositories.UserRepository
	outbox    *mail.Outbox
}

func newAPIFixture(t *testing.T) *apiFixture {
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

	policies, err := auth.NewPolicies(nil)
	require.NoError(t, err)

	outbox := mail.NewOutbox()
	return &apiFixture{
		t: t,
		container: NewContainer(Deps{
			DB:       db,
			Mailer:   outbox,
			Policies: policies,
			Auth:     services.AuthOptions{From: "noreply@yamdb.local", ConfirmationTTL: time.Hour},
			Logger:   zap.NewNop(),
		}),
		users:  repositories.NewUserRepository(db),
		outbox: outbox,
	}
}

// account creates an active user with role and returns a bearer token for it.
func (f *apiFixture) account(username string, role models.Role) string {
	f.t.Helper()
	user := &models.User{Username: username, Email: username + "@example.com", Role: role, IsActive: true}
	require.NoError(f.t, f.users.Create(context.Background(), user))
	token, err := auth.GenerateToken(user)
	require.NoError(f.t, err)
	return token
}

func (f *apiFixture) do(method, path, token string, body interface{}) *httptest.ResponseRecorder {
	f.t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(f.t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	f.container.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body), w.Body.String())
	return body
}

func TestReviewAndRatingFlow(t *testing.T) {
	f := newAPIFixture(t)
	admin := f.account("admin", models.RoleAdmin)
	alice := f.account("alice", models.RoleUser)
	bob := f.account("bob", models.RoleUser)

	w := f.do(http.MethodPost, "/v1/categories", admin, map[string]string{"name": "Film", "slug": "film"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	w = f.do(http.MethodPost, "/v1/genres", admin, map[string]string{"name": "Drama", "slug": "drama"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = f.do(http.MethodPost, "/v1/titles", admin, map[string]interface{}{
		"name": "X", "year": 2020, "genre": []string{"drama"}, "category": "film",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	title := decode(t, w)
	assert.Nil(t, title["rating"])
	assert.Equal(t, map[string]interface{}{"name": "Film", "slug": "film"}, title["category"])
	assert.Equal(t, []interface{}{map[string]interface{}{"name": "Drama", "slug": "drama"}}, title["genre"])
	titleID := int(title["id"].(float64))
	reviews := fmt.Sprintf("/v1/titles/%d/reviews", titleID)

	w = f.do(http.MethodPost, reviews, alice, map[string]interface{}{"text": "Great", "score": 8})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	review := decode(t, w)
	assert.Equal(t, "alice", review["author"])
	assert.NotEmpty(t, review["pub_date"])

	w = f.do(http.MethodPost, reviews, alice, map[string]interface{}{"text": "Again", "score": 2})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do(http.MethodPost, reviews, bob, map[string]interface{}{"text": "Fine", "score": 6})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = f.do(http.MethodGet, fmt.Sprintf("/v1/titles/%d", titleID), "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.InDelta(t, 7.0, decode(t, w)["rating"], 0.0001)

	w = f.do(http.MethodGet, reviews, "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	page := decode(t, w)
	assert.EqualValues(t, 2, page["count"])
	assert.Nil(t, page["next"])
	assert.Nil(t, page["previous"])

	w = f.do(http.MethodGet, "/v1/titles?genre=drama&year=2020", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 1, decode(t, w)["count"])
	w = f.do(http.MethodGet, "/v1/titles?category=music", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 0, decode(t, w)["count"])
}

func TestWriteAccessByRole(t *testing.T) {
	f := newAPIFixture(t)
	alice := f.account("alice", models.RoleUser)
	bob := f.account("bob", models.RoleUser)
	moderator := f.account("mod", models.RoleModerator)
	admin := f.account("admin", models.RoleAdmin)

	cat := map[string]string{"name": "Books", "slug": "books"}
	assert.Equal(t, http.StatusUnauthorized, f.do(http.MethodPost, "/v1/categories", "", cat).Code)
	assert.Equal(t, http.StatusForbidden, f.do(http.MethodPost, "/v1/categories", alice, cat).Code)
	assert.Equal(t, http.StatusForbidden, f.do(http.MethodPost, "/v1/categories", moderator, cat).Code)
	require.Equal(t, http.StatusCreated, f.do(http.MethodPost, "/v1/categories", admin, cat).Code)

	w := f.do(http.MethodPost, "/v1/titles", admin, map[string]interface{}{"name": "Dune", "year": 1965, "genre": []string{}})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	titleID := int(decode(t, w)["id"].(float64))

	w = f.do(http.MethodPost, fmt.Sprintf("/v1/titles/%d/reviews", titleID), alice, map[string]interface{}{"text": "Sand", "score": 9})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	review := fmt.Sprintf("/v1/titles/%d/reviews/%d", titleID, int(decode(t, w)["id"].(float64)))

	assert.Equal(t, http.StatusUnauthorized, f.do(http.MethodPatch, review, "", map[string]int{"score": 1}).Code)
	assert.Equal(t, http.StatusForbidden, f.do(http.MethodPatch, review, bob, map[string]int{"score": 1}).Code)

	w = f.do(http.MethodPatch, review, alice, map[string]int{"score": 10})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.EqualValues(t, 10, decode(t, w)["score"])
	assert.Equal(t, http.StatusOK, f.do(http.MethodPatch, review, moderator, map[string]string{"text": "Moderated"}).Code)

	w = f.do(http.MethodPost, review+"/comments", bob, map[string]string{"text": "Agreed"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	comment := fmt.Sprintf("%s/comments/%d", review, int(decode(t, w)["id"].(float64)))
	assert.Equal(t, http.StatusForbidden, f.do(http.MethodDelete, comment, alice, nil).Code)
	assert.Equal(t, http.StatusNoContent, f.do(http.MethodDelete, comment, moderator, nil).Code)
	assert.Equal(t, http.StatusNotFound, f.do(http.MethodGet, comment, "", nil).Code)

	assert.Equal(t, http.StatusNoContent, f.do(http.MethodDelete, review, alice, nil).Code)
	assert.Equal(t, http.StatusNotFound, f.do(http.MethodGet, review, "", nil).Code)
}

func TestCatalogShape(t *testing.T) {
	f := newAPIFixture(t)
	admin := f.account("admin", models.RoleAdmin)
	require.Equal(t, http.StatusCreated, f.do(http.MethodPost, "/v1/categories", admin, map[string]string{"name": "Film", "slug": "film"}).Code)

	w := f.do(http.MethodPost, "/v1/categories", admin, map[string]string{"name": "Movies", "slug": "film"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decode(t, w)["errors"], "slug")

	w = f.do(http.MethodGet, "/v1/categories", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	results := decode(t, w)["results"].([]interface{})
	require.Len(t, results, 1)
	assert.Equal(t, map[string]interface{}{"name": "Film", "slug": "film"}, results[0])

	for _, method := range []string{http.MethodGet, http.MethodPut} {
		w = f.do(method, "/v1/categories/film", admin, map[string]string{"name": "Film", "slug": "film"})
		assert.Equal(t, http.StatusMethodNotAllowed, w.Code, method)
		assert.Equal(t, fmt.Sprintf("Method %q not allowed.", method), decode(t, w)["message"])
	}

	assert.Equal(t, http.StatusNoContent, f.do(http.MethodDelete, "/v1/categories/film", admin, nil).Code)
	assert.Equal(t, http.StatusNotFound, f.do(http.MethodDelete, "/v1/categories/film", admin, nil).Code)
}

func TestCatalogSearch(t *testing.T) {
	f := newAPIFixture(t)
	admin := f.account("admin", models.RoleAdmin)
	for slug, name := range map[string]string{"drama": "Drama", "sci-fi": "Sci_Fi", "rock": "100% Rock"} {
		w := f.do(http.MethodPost, "/v1/genres", admin, map[string]string{"name": name, "slug": slug})
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	}

	for query, want := range map[string]string{"_": "Sci_Fi", "%25": "100% Rock", "DRA": "Drama"} {
		w := f.do(http.MethodGet, "/v1/genres?search="+query, "", nil)
		require.Equal(t, http.StatusOK, w.Code)
		body := decode(t, w)
		assert.EqualValues(t, 1, body["count"], query)
		results := body["results"].([]interface{})
		require.Len(t, results, 1, query)
		assert.Equal(t, want, results[0].(map[string]interface{})["name"])
	}
}

func TestPagination(t *testing.T) {
	f := newAPIFixture(t)
	admin := f.account("admin", models.RoleAdmin)
	for i := 1; i <= 12; i++ {
		w := f.do(http.MethodPost, "/v1/genres", admin, map[string]string{"name": fmt.Sprintf("Genre %02d", i), "slug": fmt.Sprintf("g%02d", i)})
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	}

	w := f.do(http.MethodGet, "/v1/genres", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	first := decode(t, w)
	assert.EqualValues(t, 12, first["count"])
	assert.Len(t, first["results"], 10)
	assert.Equal(t, "http://example.com/v1/genres?page=2", first["next"])
	assert.Nil(t, first["previous"])

	w = f.do(http.MethodGet, "/v1/genres?page=2", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	second := decode(t, w)
	assert.Len(t, second["results"], 2)
	assert.Nil(t, second["next"])
	assert.Equal(t, "http://example.com/v1/genres", second["previous"])

	for _, page := range []string{"3", "0", "abc"} {
		w = f.do(http.MethodGet, "/v1/genres?page="+page, "", nil)
		assert.Equal(t, http.StatusNotFound, w.Code, page)
		assert.Equal(t, "Invalid page.", decode(t, w)["message"])
	}
}

func TestNotFoundAnswers(t *testing.T) {
	f := newAPIFixture(t)
	alice := f.account("alice", models.RoleUser)

	for _, path := range []string{"/v1/titles/999", "/v1/titles/abc", "/v1/titles/999/reviews", "/v1/nothing-here/1"} {
		w := f.do(http.MethodGet, path, "", nil)
		assert.Equal(t, http.StatusNotFound, w.Code, path)
	}
	w := f.do(http.MethodPost, "/v1/titles/999/reviews", alice, map[string]interface{}{"text": "?", "score": 5})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHealth(t *testing.T) {
	f := newAPIFixture(t)
	w := f.do(http.MethodGet, "/v1/health", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", decode(t, w)["status"])

	w = f.do(http.MethodGet, "/apidocs.json", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "YaMDb API", decode(t, w)["info"].(map[string]interface{})["title"])
}
