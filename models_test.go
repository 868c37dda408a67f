package accounts_test

import (
	"testing"
	"time"

	accounts "github.com/counselgpt/go-accounts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeEmail(t *testing.T) {
	assert.Equal(t, "user@example.com", accounts.NormalizeEmail("  User@Example.COM "))
	assert.Equal(t, "", accounts.NormalizeEmail("   "))
}

func TestIsValidOrganizationType(t *testing.T) {
	assert.True(t, accounts.IsValidOrganizationType(accounts.OrgLawFirm))
	assert.True(t, accounts.IsValidOrganizationType(accounts.OrgOther))
	assert.False(t, accounts.IsValidOrganizationType("circus"))
	assert.False(t, accounts.IsValidOrganizationType(""))
}

func TestUserValidate(t *testing.T) {
	tests := []struct {
		name    string
		user    *accounts.User
		wantErr bool
	}{
		{
			name:    "password account",
			user:    &accounts.User{Email: "a@x.com", PasswordHash: "h"},
			wantErr: false,
		},
		{
			name:    "federated account",
			user:    &accounts.User{Email: "a@x.com", GoogleID: "sub-123"},
			wantErr: false,
		},
		{
			name:    "no credentials",
			user:    &accounts.User{Email: "a@x.com"},
			wantErr: true,
		},
		{
			name:    "no email",
			user:    &accounts.User{PasswordHash: "h"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.user.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestPendingRegistrationExpiry(t *testing.T) {
	issued := time.Now()
	rec := &accounts.PendingRegistration{OTPIssuedAt: issued}

	assert.False(t, rec.Expired(issued.Add(accounts.OTPExpiry-time.Second)))
	assert.True(t, rec.Expired(issued.Add(accounts.OTPExpiry+time.Second)))
}

func TestPendingRegistrationLockout(t *testing.T) {
	rec := &accounts.PendingRegistration{}
	assert.False(t, rec.Locked())
	assert.Equal(t, accounts.MaxOTPAttempts, rec.RemainingAttempts())

	rec.OTPAttempts = accounts.MaxOTPAttempts - 1
	assert.False(t, rec.Locked())
	assert.Equal(t, 1, rec.RemainingAttempts())

	rec.OTPAttempts = accounts.MaxOTPAttempts
	assert.True(t, rec.Locked())
	assert.Equal(t, 0, rec.RemainingAttempts())
}

func TestPendingRegistrationPromote(t *testing.T) {
	dob := time.Date(1990, 6, 15, 0, 0, 0, 0, time.UTC)
	rec := &accounts.PendingRegistration{
		Email:            "a@x.com",
		FullName:         "Ada X",
		DateOfBirth:      dob,
		OrganizationType: accounts.OrgStudent,
		OrganizationName: "Uni",
		PasswordHash:     "hash",
		OTPCode:          "123456",
	}

	user := rec.Promote()
	require.NotNil(t, user)
	assert.Equal(t, rec.Email, user.Email)
	assert.Equal(t, rec.FullName, user.FullName)
	assert.Equal(t, rec.PasswordHash, user.PasswordHash)
	require.NotNil(t, user.DateOfBirth)
	assert.True(t, user.DateOfBirth.Equal(dob))
	assert.True(t, user.EmailVerified)
	assert.True(t, user.Active)
	assert.Empty(t, user.GoogleID)
}
