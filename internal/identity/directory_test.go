package identity

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"festivalhub/internal/apperr"
	"festivalhub/internal/models"
	"festivalhub/internal/store"
)

var testSecret = []byte("test-secret-0123456789")

func newTestService(t *testing.T) (*service, *store.Memory) {
	t.Helper()
	mem := store.NewMemory()
	svc := New(mem, Config{Secret: testSecret, TokenTTL: time.Hour, BcryptCost: bcrypt.MinCost}).(*service)
	return svc, mem
}

func signup(t *testing.T, svc Service, username string, roles ...string) *models.User {
	t.Helper()
	user, err := svc.Signup(context.Background(), SignupInput{
		Username: username,
		Password: "password123",
		FullName: username + " Example",
		Roles:    roles,
	})
	require.NoError(t, err)
	return user
}

func TestSignupValidation(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Signup(ctx, SignupInput{Username: "ana"})
	require.Error(t, err)
	e, ok := apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, apperr.KindValidation, e.Kind)
	assert.Equal(t, []string{"password", "fullName", "roles"}, e.Details)

	_, err = svc.Signup(ctx, SignupInput{Username: "ana", Password: "pw", FullName: "Ana", Roles: []string{"DJ"}})
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	signup(t, svc, "ana", "ARTIST")
	_, err = svc.Signup(ctx, SignupInput{Username: "ana", Password: "pw", FullName: "Ana", Roles: []string{"ARTIST"}})
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))
}

func TestRequireRoleListsEveryOffender(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	org := signup(t, svc, "olga", "ORGANIZER")
	artist := signup(t, svc, "arne", "ARTIST")

	require.NoError(t, svc.RequireRole(ctx, []string{org.ID}, models.RoleOrganizer, "organizers"))

	err := svc.RequireRole(ctx, []string{"missing-1", org.ID, artist.ID, ""}, models.RoleOrganizer, "organizers")
	require.Error(t, err)
	e, ok := apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, apperr.KindReference, e.Kind)
	assert.Equal(t, []string{"missing-1", artist.ID, ""}, e.Details)
	assert.Contains(t, e.Message, "ORGANIZER")
}

func TestGrantRole(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	visitor := signup(t, svc, "vera", "VISITOR")
	updated, err := svc.GrantRole(ctx, visitor.ID, models.RoleArtist)
	require.NoError(t, err)
	assert.True(t, updated.Roles.Has(models.RoleArtist))
	assert.True(t, updated.Roles.Has(models.RoleVisitor))

	roles, err := svc.Roles(ctx, visitor.ID)
	require.NoError(t, err)
	assert.True(t, roles.Has(models.RoleArtist))

	_, err = svc.GrantRole(ctx, "nobody", models.RoleArtist)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

func TestLoginAndAuthenticate(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	user := signup(t, svc, "sam", "STAFF", "ARTIST")

	_, err := svc.Login(ctx, "sam", "wrong")
	assert.Equal(t, apperr.KindUnauthenticated, apperr.KindOf(err))
	_, err = svc.Login(ctx, "nobody", "password123")
	assert.Equal(t, apperr.KindUnauthenticated, apperr.KindOf(err))

	session, err := svc.Login(ctx, "sam", "password123")
	require.NoError(t, err)
	require.NotEmpty(t, session.Token)

	caller, err := svc.Authenticate(ctx, session.Token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, caller.ID)
	assert.Equal(t, "sam", caller.Username)
	assert.True(t, caller.Roles.Has(models.RoleStaff))
	assert.True(t, caller.Roles.Has(models.RoleArtist))
}

func TestAuthenticateRejectsBadTokens(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	signup(t, svc, "sam", "STAFF")

	session, err := svc.Login(ctx, "sam", "password123")
	require.NoError(t, err)

	svc.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, err = svc.Authenticate(ctx, session.Token)
	assert.Equal(t, apperr.KindUnauthenticated, apperr.KindOf(err))
	svc.now = time.Now

	forged := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		Roles:            []string{"ORGANIZER"},
		RegisteredClaims: jwt.RegisteredClaims{Subject: "x", ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))},
	})
	signed, err := forged.SignedString([]byte("another-secret-entirely"))
	require.NoError(t, err)
	_, err = svc.Authenticate(ctx, signed)
	assert.Equal(t, apperr.KindUnauthenticated, apperr.KindOf(err))

	_, err = svc.Authenticate(ctx, "")
	assert.Equal(t, apperr.KindUnauthenticated, apperr.KindOf(err))
}
