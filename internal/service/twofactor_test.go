package service

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/keenon/cardapi/internal/auth"
)

func newTwoFactorFixture(t *testing.T) (*TwoFactorService, *fakeUserStore) {
	t.Helper()
	users := &fakeUserStore{}
	return &TwoFactorService{Users: users, TOTP: stubTOTP{}}, users
}

func seedPlainUser(t *testing.T, users *fakeUserStore) *auth.User {
	t.Helper()
	created, err := users.Create(context.Background(), &auth.User{
		Name:     "Alice",
		Email:    "alice@example.com",
		Role:     auth.RoleUser,
		Verified: true,
	})
	require.NoError(t, err)
	return created
}

func TestGenerateSecretStoresPendingSecret(t *testing.T) {
	svc, users := newTwoFactorFixture(t)
	ctx := context.Background()
	user := seedPlainUser(t, users)

	setup, err := svc.GenerateSecret(ctx, user.ID)
	require.NoError(t, err)
	require.Equal(t, "STUBSECRET", setup.Secret)
	require.NotEmpty(t, setup.QRCode)

	stored := users.mustGet(t, user.ID)
	require.NotNil(t, stored.TwoFactorSecret)
	require.False(t, stored.TwoFactorEnabled, "secret is pending until verified")
}

func TestGenerateSecretUnknownUser(t *testing.T) {
	svc, _ := newTwoFactorFixture(t)

	_, err := svc.GenerateSecret(context.Background(), "missing")
	requireAppError(t, err, http.StatusNotFound, "User not found")
}

func TestVerifyAndEnable(t *testing.T) {
	svc, users := newTwoFactorFixture(t)
	ctx := context.Background()
	user := seedPlainUser(t, users)

	_, err := svc.GenerateSecret(ctx, user.ID)
	require.NoError(t, err)

	require.NoError(t, svc.VerifyAndEnable(ctx, user.ID, "654321"))
	require.True(t, users.mustGet(t, user.ID).TwoFactorEnabled)
}

func TestVerifyAndEnableWrongCodeKeepsSecret(t *testing.T) {
	svc, users := newTwoFactorFixture(t)
	ctx := context.Background()
	user := seedPlainUser(t, users)

	_, err := svc.GenerateSecret(ctx, user.ID)
	require.NoError(t, err)

	err = svc.VerifyAndEnable(ctx, user.ID, "000000")
	requireAppError(t, err, http.StatusUnauthorized, "Invalid verification code")

	stored := users.mustGet(t, user.ID)
	require.NotNil(t, stored.TwoFactorSecret, "a failed attempt keeps the pending secret for retry")
	require.False(t, stored.TwoFactorEnabled)
}

func TestVerifyAndEnableWithoutSetup(t *testing.T) {
	svc, users := newTwoFactorFixture(t)
	user := seedPlainUser(t, users)

	err := svc.VerifyAndEnable(context.Background(), user.ID, "654321")
	requireAppError(t, err, http.StatusBadRequest, "Two-factor authentication not set up")
}

func TestVerifyRequiresEnabled(t *testing.T) {
	svc, users := newTwoFactorFixture(t)
	ctx := context.Background()
	user := seedPlainUser(t, users)

	_, err := svc.Verify(ctx, user.ID, "654321")
	requireAppError(t, err, http.StatusBadRequest, "Two-factor authentication not enabled")

	// A pending (unconfirmed) secret is still not enabled.
	_, err = svc.GenerateSecret(ctx, user.ID)
	require.NoError(t, err)
	_, err = svc.Verify(ctx, user.ID, "654321")
	requireAppError(t, err, http.StatusBadRequest, "Two-factor authentication not enabled")
}

func TestVerifyReportsCodeValidity(t *testing.T) {
	svc, users := newTwoFactorFixture(t)
	ctx := context.Background()
	user := seedPlainUser(t, users)

	_, err := svc.GenerateSecret(ctx, user.ID)
	require.NoError(t, err)
	require.NoError(t, svc.VerifyAndEnable(ctx, user.ID, "654321"))

	valid, err := svc.Verify(ctx, user.ID, "654321")
	require.NoError(t, err)
	require.True(t, valid)

	valid, err = svc.Verify(ctx, user.ID, "000000")
	require.NoError(t, err)
	require.False(t, valid)
}

func TestDisableClearsSecret(t *testing.T) {
	svc, users := newTwoFactorFixture(t)
	ctx := context.Background()
	user := seedPlainUser(t, users)

	_, err := svc.GenerateSecret(ctx, user.ID)
	require.NoError(t, err)
	require.NoError(t, svc.VerifyAndEnable(ctx, user.ID, "654321"))

	require.NoError(t, svc.Disable(ctx, user.ID))
	stored := users.mustGet(t, user.ID)
	require.Nil(t, stored.TwoFactorSecret)
	require.False(t, stored.TwoFactorEnabled)

	// Disabling again is a no-op, not an error.
	require.NoError(t, svc.Disable(ctx, user.ID))
}
