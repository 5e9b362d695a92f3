package users

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/invexis/invexis/internal/database"
)

func newTestUsersService(t *testing.T, name string) *Service {
	t.Helper()
	db, err := database.New(database.Config{
		Path:    "file:" + name + "?mode=memory&cache=shared",
		Profile: database.ProfileStandard,
		Name:    "users",
	})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, db.InitSchema(Schema))
	return NewService(NewRepository(db.Conn(), zerolog.Nop()), zerolog.Nop())
}

func TestRegisterAndAuthenticate(t *testing.T) {
	svc := newTestUsersService(t, "users_roundtrip_test")

	userID, err := svc.Register("alice", "s3cret-pass")
	require.NoError(t, err)
	assert.NotEmpty(t, userID)

	authID, err := svc.Authenticate("alice", "s3cret-pass")
	require.NoError(t, err)
	assert.Equal(t, userID, authID)
}

func TestAuthenticateWrongPassword(t *testing.T) {
	svc := newTestUsersService(t, "users_wrongpass_test")

	_, err := svc.Register("bob", "correct-pass")
	require.NoError(t, err)

	_, err = svc.Authenticate("bob", "wrong-pass")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.Authenticate("nobody", "whatever")
	assert.ErrorIs(t, err, ErrInvalidCredentials, "unknown user and bad password are indistinguishable")
}

func TestRegisterDuplicateUsername(t *testing.T) {
	svc := newTestUsersService(t, "users_duplicate_test")

	_, err := svc.Register("carol", "password1")
	require.NoError(t, err)

	_, err = svc.Register("carol", "password2")
	assert.ErrorIs(t, err, ErrUsernameTaken)
}

func TestRegisterValidation(t *testing.T) {
	svc := newTestUsersService(t, "users_validation_test")

	_, err := svc.Register("ab", "long-enough")
	assert.Error(t, err, "short username")

	_, err = svc.Register("dave", "short")
	assert.Error(t, err, "short password")
}

func TestSaltsDiffer(t *testing.T) {
	svc := newTestUsersService(t, "users_salt_test")

	_, err := svc.Register("erin", "same-password")
	require.NoError(t, err)
	_, err = svc.Register("frank", "same-password")
	require.NoError(t, err)

	erin, err := svc.repo.GetByUsername("erin")
	require.NoError(t, err)
	frank, err := svc.repo.GetByUsername("frank")
	require.NoError(t, err)

	assert.NotEqual(t, erin.Salt, frank.Salt)
	assert.NotEqual(t, erin.PasswordHash, frank.PasswordHash,
		"same password must hash differently under different salts")
}
