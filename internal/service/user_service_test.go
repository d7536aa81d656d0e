package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"chirp/internal/cache"
	"chirp/internal/featureflags"
	"chirp/internal/models"
	"chirp/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mailerStub struct {
	sent map[string]string
	err  error
}

func (m *mailerStub) SendConfirmation(_ context.Context, user *models.User, code string) error {
	if m.sent == nil {
		m.sent = map[string]string{}
	}
	m.sent[user.Email] = code
	return m.err
}

func newUserService(env *testEnv, mailer Mailer) *UserService {
	svc := NewUserService(env.users, env.store, mailer, nil)
	svc.newCode = func() string { return "brave-quiet-otter" }
	return svc
}

func TestUserService_RegisterValidation(t *testing.T) {
	env := newTestEnv(t)
	svc := newUserService(env, &mailerStub{})

	_, err := svc.Register(context.Background(), RegisterInput{Email: "x", Username: "a!", Password: "short"})
	assertAppCode(t, err, models.CodeValidation)

	var appErr *models.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Contains(t, appErr.Fields, "email")
	assert.Contains(t, appErr.Fields, "username")
	assert.Contains(t, appErr.Fields, "password")
}

func TestUserService_RegisterConfirmLogin(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	mailer := &mailerStub{}
	svc := newUserService(env, mailer)

	user, err := svc.Register(ctx, RegisterInput{Email: " Alice@Example.com ", Username: "Alice", Password: "password123"})
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", user.Email)
	assert.Equal(t, "alice", user.Username)
	assert.Equal(t, models.UserStatusPending, user.Status)
	require.NotNil(t, user.ConfirmationCode)
	assert.Equal(t, "brave-quiet-otter", mailer.sent["alice@example.com"])

	_, err = svc.Register(ctx, RegisterInput{Email: "alice@example.com", Username: "alice", Password: "password123"})
	assertAppCode(t, err, models.CodeValidation)
	var appErr *models.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Contains(t, appErr.Fields, "email")
	assert.Contains(t, appErr.Fields, "username")

	_, err = svc.ConfirmEmail(ctx, "alice@example.com", "wrong-code-here")
	assertAppCode(t, err, models.CodeValidation)
	require.ErrorAs(t, err, &appErr)
	assert.Contains(t, appErr.Fields, "form")

	confirmed, err := svc.ConfirmEmail(ctx, "alice@example.com", " Brave-Quiet-Otter ")
	require.NoError(t, err)
	assert.Equal(t, models.UserStatusActive, confirmed.Status)
	assert.Nil(t, confirmed.ConfirmationCode)

	stored, err := env.users.GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, models.UserStatusActive, stored.Status)
	assert.Nil(t, stored.ConfirmationCode)

	authed, err := svc.Authenticate(ctx, "ALICE@example.com", "password123")
	require.NoError(t, err)
	assert.Equal(t, user.ID, authed.ID)

	_, err = svc.Authenticate(ctx, "alice@example.com", "wrong-password")
	assertAppCode(t, err, models.CodeUnauthorized)

	_, err = svc.Authenticate(ctx, "nobody@example.com", "password123")
	assertAppCode(t, err, models.CodeUnauthorized)
}

func TestUserService_RequireConfirmationFlag(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	svc := newUserService(env, &mailerStub{})
	svc.flags = featureflags.Parse("require_confirmation=on")

	_, err := svc.Register(ctx, RegisterInput{Email: "carol@example.com", Username: "carol", Password: "password123"})
	require.NoError(t, err)

	_, err = svc.Authenticate(ctx, "carol@example.com", "password123")
	assertAppCode(t, err, models.CodeForbidden)

	_, err = svc.Authenticate(ctx, "carol@example.com", "wrong-password")
	assertAppCode(t, err, models.CodeUnauthorized)

	_, err = svc.ConfirmEmail(ctx, "carol@example.com", "brave-quiet-otter")
	require.NoError(t, err)
	_, err = svc.Authenticate(ctx, "carol@example.com", "password123")
	assert.NoError(t, err)
}

func TestUserService_RegisterSurvivesMailerFailure(t *testing.T) {
	env := newTestEnv(t)
	svc := newUserService(env, &mailerStub{err: errors.New("smtp down")})

	user, err := svc.Register(context.Background(), RegisterInput{Email: "bob@example.com", Username: "bob", Password: "password123"})
	require.NoError(t, err)
	assert.NotZero(t, user.ID)
}

func TestUserService_UpdateProfile(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	svc := newUserService(env, nil)
	a := testutil.CreateUser(t, env.db, "alice")

	_, err := svc.GetByID(ctx, a.ID)
	require.NoError(t, err)
	require.True(t, env.redis.Exists(cache.UserKey(a.ID)))

	updated, err := svc.UpdateProfile(ctx, a.ID, ProfileInput{
		Name:      strPtr("  Alice A.  "),
		Bio:       strPtr("hello"),
		Website:   strPtr("example.com"),
		AvatarURL: strPtr("https://img.example.com/a.png"),
	})
	require.NoError(t, err)
	assert.Equal(t, "Alice A.", *updated.Name)
	assert.Equal(t, "http://example.com", *updated.Website)
	assert.Equal(t, "https://img.example.com/a.png", *updated.AvatarURL)
	assert.Nil(t, updated.Location)
	assert.False(t, env.redis.Exists(cache.UserKey(a.ID)))

	cleared, err := svc.UpdateProfile(ctx, a.ID, ProfileInput{Website: strPtr(""), Bio: strPtr("  ")})
	require.NoError(t, err)
	assert.Nil(t, cleared.Website)
	assert.Nil(t, cleared.Bio)
	assert.Equal(t, "Alice A.", *cleared.Name)

	_, err = svc.UpdateProfile(ctx, a.ID, ProfileInput{Bio: strPtr(strings.Repeat("x", 161))})
	assertAppCode(t, err, models.CodeValidation)

	_, err = svc.UpdateProfile(ctx, 9999, ProfileInput{})
	assertAppCode(t, err, models.CodeNotFound)
}

func TestUserService_DeleteAccount(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	svc := newUserService(env, nil)
	a := testutil.CreateUser(t, env.db, "alice")
	b := testutil.CreateUser(t, env.db, "bob")
	x := testutil.CreatePost(t, env.db, a, "bye")
	testutil.Like(t, env.db, b, x)
	testutil.Follow(t, env.db, b, a)

	ok, err := svc.Exists(ctx, a.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, svc.DeleteAccount(ctx, a.ID))

	ok, err = svc.Exists(ctx, a.ID)
	require.NoError(t, err)
	assert.False(t, ok, "cached profile is invalidated on delete")

	_, err = svc.GetByID(ctx, a.ID)
	assertAppCode(t, err, models.CodeNotFound)

	set, err := env.graph.FollowSet(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, []uint{b.ID}, set)

	err = svc.DeleteAccount(ctx, a.ID)
	assertAppCode(t, err, models.CodeNotFound)
}

func TestConfirmationCode(t *testing.T) {
	code := ConfirmationCode()
	assert.Equal(t, strings.ToLower(code), code)
	assert.NotContains(t, code, " ")
	assert.GreaterOrEqual(t, len(strings.Split(code, "-")), 3)
}
