package services

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"yamdb/auth"
	"yamdb/config"
	"yamdb/database"
	"yamdb/mail"
	"yamdb/models"
	"yamdb/repositories"
)

func init() {
	auth.ConfirmationHashCost = 4
}

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

var codePattern = regexp.MustCompile(`[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}`)

func lastCode(t *testing.T, outbox *mail.Outbox) string {
	t.Helper()
	msg, ok := outbox.Last()
	require.True(t, ok, "no mail sent")
	code := codePattern.FindString(msg.Text)
	require.NotEmpty(t, code)
	return code
}

type authFixture struct {
	ctx    context.Context
	users  repositories.UserRepository
	outbox *mail.Outbox
	now    time.Time
	svc    AuthService
}

func newAuthFixture(t *testing.T) *authFixture {
	f := &authFixture{
		ctx:    context.Background(),
		users:  repositories.NewUserRepository(setupTestDB(t)),
		outbox: mail.NewOutbox(),
		now:    time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	}
	f.svc = NewAuthService(f.users, f.outbox, AuthOptions{
		From:            "noreply@yamdb.local",
		ConfirmationTTL: time.Hour,
		Now:             func() time.Time { return f.now },
	}, zap.NewNop())
	return f
}

func TestSignupAndToken(t *testing.T) {
	f := newAuthFixture(t)

	resp, err := f.svc.Signup(f.ctx, &SignupInput{Username: "alice", Email: "alice@example.com"})
	require.NoError(t, err)
	assert.Equal(t, &SignupResponse{Username: "alice", Email: "alice@example.com"}, resp)

	user, err := f.users.FindByUsername(f.ctx, "alice")
	require.NoError(t, err)
	assert.False(t, user.IsActive)
	assert.Equal(t, models.RoleUser, user.Role)

	code := lastCode(t, f.outbox)
	assert.NotEqual(t, code, user.ConfirmationCode, "only the hash is stored")

	token, err := f.svc.Token(f.ctx, &TokenInput{Username: "alice", ConfirmationCode: code})
	require.NoError(t, err)
	claims, err := auth.ParseAndValidateToken(token.Token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)

	user, err = f.users.FindByUsername(f.ctx, "alice")
	require.NoError(t, err)
	assert.True(t, user.IsActive)

	_, err = f.svc.Token(f.ctx, &TokenInput{Username: "alice", ConfirmationCode: code})
	assert.ErrorIs(t, err, ErrValidation, "a code is single use")
}

func TestSignupRules(t *testing.T) {
	f := newAuthFixture(t)
	_, err := f.svc.Signup(f.ctx, &SignupInput{Username: "alice", Email: "alice@example.com"})
	require.NoError(t, err)

	tests := []struct {
		name  string
		input SignupInput
		field string
	}{
		{"reserved username", SignupInput{Username: "me", Email: "me@example.com"}, "username"},
		{"invalid username", SignupInput{Username: "bad name!", Email: "x@example.com"}, "username"},
		{"invalid email", SignupInput{Username: "bob", Email: "not-an-email"}, "email"},
		{"missing email", SignupInput{Username: "bob"}, "email"},
		{"email of another user", SignupInput{Username: "bob", Email: "alice@example.com"}, "email"},
		{"username with another email", SignupInput{Username: "alice", Email: "other@example.com"}, "username"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Signup(f.ctx, &tt.input)
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Contains(t, verr.Fields, tt.field)
		})
	}
}

func TestSignupAgainIssuesFreshCode(t *testing.T) {
	f := newAuthFixture(t)
	input := &SignupInput{Username: "alice", Email: "alice@example.com"}

	_, err := f.svc.Signup(f.ctx, input)
	require.NoError(t, err)
	first := lastCode(t, f.outbox)

	_, err = f.svc.Signup(f.ctx, input)
	require.NoError(t, err)
	second := lastCode(t, f.outbox)
	assert.NotEqual(t, first, second)

	_, total, err := f.users.FindAll(f.ctx, "", repositories.Page{Number: 1, Size: 10})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)

	_, err = f.svc.Token(f.ctx, &TokenInput{Username: "alice", ConfirmationCode: first})
	assert.ErrorIs(t, err, ErrValidation)
	_, err = f.svc.Token(f.ctx, &TokenInput{Username: "alice", ConfirmationCode: second})
	assert.NoError(t, err)
}

func TestTokenFailuresLookAlike(t *testing.T) {
	f := newAuthFixture(t)
	_, err := f.svc.Signup(f.ctx, &SignupInput{Username: "alice", Email: "alice@example.com"})
	require.NoError(t, err)
	code := lastCode(t, f.outbox)

	_, errUnknown := f.svc.Token(f.ctx, &TokenInput{Username: "nobody", ConfirmationCode: code})
	_, errWrong := f.svc.Token(f.ctx, &TokenInput{Username: "alice", ConfirmationCode: "wrong"})
	f.now = f.now.Add(2 * time.Hour)
	_, errExpired := f.svc.Token(f.ctx, &TokenInput{Username: "alice", ConfirmationCode: code})

	for _, err := range []error{errUnknown, errWrong, errExpired} {
		assert.Equal(t, ErrInvalidConfirmationCode, err)
	}

	_, err = f.svc.Token(f.ctx, &TokenInput{Username: "alice"})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "confirmation_code")
}

func TestSignupMailFailure(t *testing.T) {
	f := newAuthFixture(t)
	f.outbox.Err = errors.New("relay down")

	_, err := f.svc.Signup(f.ctx, &SignupInput{Username: "alice", Email: "alice@example.com"})
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrValidation)
}

func TestUpdateMeIgnoresRoleForPlainUsers(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	repo := repositories.NewUserRepository(db)
	policies, err := auth.NewPolicies(nil)
	require.NoError(t, err)
	svc := NewUserService(repo, policies)

	plain := &models.User{Username: "plain", Email: "plain@example.com", Role: models.RoleUser}
	require.NoError(t, repo.Create(ctx, plain))
	admin := &models.User{Username: "boss", Email: "boss@example.com", Role: models.RoleAdmin}
	require.NoError(t, repo.Create(ctx, admin))

	role, bio := "admin", "hello"
	updated, err := svc.UpdateMe(ctx, plain, &UserPatchInput{Role: &role, Bio: &bio})
	require.NoError(t, err)
	assert.Equal(t, models.RoleUser, updated.Role)
	assert.Equal(t, "hello", updated.Bio)

	moderator := "moderator"
	updated, err = svc.UpdateMe(ctx, admin, &UserPatchInput{Role: &moderator})
	require.NoError(t, err)
	assert.Equal(t, models.RoleModerator, updated.Role)

	_, err = svc.UpdateMe(ctx, nil, &UserPatchInput{})
	assert.ErrorIs(t, err, auth.ErrNotAuthenticated)

	me := "me"
	_, err = svc.UpdateMe(ctx, plain, &UserPatchInput{Username: &me})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestAdminUserManagement(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	repo := repositories.NewUserRepository(db)
	policies, err := auth.NewPolicies(nil)
	require.NoError(t, err)
	svc := NewUserService(repo, policies)

	admin := &models.User{Username: "boss", Email: "boss@example.com", Role: models.RoleAdmin}
	require.NoError(t, repo.Create(ctx, admin))
	plain := &models.User{Username: "plain", Email: "plain@example.com", Role: models.RoleUser}
	require.NoError(t, repo.Create(ctx, plain))

	created, err := svc.CreateUser(ctx, admin, &UserInput{Username: "carol", Email: "carol@example.com", Role: "moderator"})
	require.NoError(t, err)
	assert.Equal(t, models.RoleModerator, created.Role)

	_, err = svc.CreateUser(ctx, admin, &UserInput{Username: "dave", Email: "carol@example.com"})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = svc.CreateUser(ctx, plain, &UserInput{Username: "eve", Email: "eve@example.com"})
	assert.ErrorIs(t, err, auth.ErrPermissionDenied)

	_, err = svc.GetUser(ctx, plain, "carol")
	assert.ErrorIs(t, err, auth.ErrPermissionDenied)

	_, err = svc.GetUser(ctx, admin, "nobody")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, svc.DeleteUser(ctx, admin, "carol"))
	_, err = svc.GetUser(ctx, admin, "carol")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestValidationMessages(t *testing.T) {
	err := validateInput(&TitleInput{Name: "X", Year: time.Now().Year() + 1, Genre: []string{}})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, map[string][]string{
		"year": {fmt.Sprintf("%d is not a valid year.", time.Now().Year()+1)},
	}, verr.Fields)

	err = validateInput(&TitleInput{Name: "X", Year: -500, Genre: []string{}})
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, []string{"-500 is not a valid year."}, verr.Fields["year"])

	negative := -1
	err = validateInput(&TitlePatchInput{Year: &negative})
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, []string{"-1 is not a valid year."}, verr.Fields["year"])

	err = validateInput(&SlugInput{Name: "Film", Slug: "not a slug"})
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "slug")

	err = validateInput(&ReviewInput{Text: "ok", Score: 11})
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, []string{"Ensure this value is less than or equal to 10."}, verr.Fields["score"])

	err = validateInput(&SignupInput{Username: "me", Email: "me@example.com"})
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, []string{`Username "me" is not allowed.`}, verr.Fields["username"])
}
