package accounts_test

import (
	"testing"
	"time"

	accounts "github.com/counselgpt/go-accounts"
	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSigningKey = []byte("test-signing-key-32-bytes-long!!")

func testUser() *accounts.User {
	return &accounts.User{
		ID:               uuid.New(),
		Email:            "user@example.com",
		FullName:         "Test User",
		OrganizationType: accounts.OrgLawFirm,
		PasswordHash:     "x",
		EmailVerified:    true,
		Active:           true,
	}
}

func TestTokenRoundTrip(t *testing.T) {
	ts := accounts.NewTokenService(testSigningKey, time.Hour, nil)
	user := testUser()

	token, err := ts.Generate(user)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := ts.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, user.Email, claims.Email())
	assert.Equal(t, user.ID.String(), claims.UserID)
	assert.WithinDuration(t, time.Now().Add(time.Hour), claims.Expires(), time.Minute)
}

func TestTokenDefaultTTL(t *testing.T) {
	ts := accounts.NewTokenService(testSigningKey, 0, nil)
	assert.Equal(t, accounts.DefaultTokenTTL, ts.TTL())
}

func TestTokenExpired(t *testing.T) {
	issued := time.Now().Add(-2 * time.Hour)
	ts := accounts.NewTokenService(testSigningKey, time.Hour, nil).
		WithClock(func() time.Time { return issued })

	token, err := ts.Generate(testUser())
	require.NoError(t, err)

	live := accounts.NewTokenService(testSigningKey, time.Hour, nil)
	_, err = live.Validate(token)
	require.Error(t, err)
	assert.True(t, goerrors.Is(err, accounts.ErrTokenExpired))
}

func TestTokenWrongKey(t *testing.T) {
	ts := accounts.NewTokenService(testSigningKey, time.Hour, nil)
	token, err := ts.Generate(testUser())
	require.NoError(t, err)

	other := accounts.NewTokenService([]byte("a-different-signing-key-entirely"), time.Hour, nil)
	_, err = other.Validate(token)
	require.Error(t, err)

	var richErr *goerrors.Error
	require.True(t, goerrors.As(err, &richErr))
	assert.Equal(t, goerrors.CategoryAuth, richErr.Category)
}

func TestTokenGarbage(t *testing.T) {
	ts := accounts.NewTokenService(testSigningKey, time.Hour, nil)

	for _, tokenString := range []string{"", "garbage", "a.b.c"} {
		_, err := ts.Validate(tokenString)
		assert.Error(t, err, "token %q should not validate", tokenString)
	}
}

func TestTokenNilUser(t *testing.T) {
	ts := accounts.NewTokenService(testSigningKey, time.Hour, nil)
	_, err := ts.Generate(nil)
	assert.Error(t, err)
}
