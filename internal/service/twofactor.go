package service

import (
	"context"

	"github.com/keenon/cardapi/internal/apperr"
	"github.com/keenon/cardapi/internal/auth"
)

// TwoFactorService manages the per-user TOTP lifecycle: disabled, pending
// setup (secret stored, not yet confirmed), enabled.
type TwoFactorService struct {
	Users UserStore
	TOTP  auth.TOTPVerifier
}

type TwoFactorSetup struct {
	Secret string `json:"secret"`
	QRCode string `json:"qrCode"`
}

// GenerateSecret stores a fresh pending secret on the user, replacing any
// earlier unconfirmed one, and returns it with a QR-encodable data URI.
func (s *TwoFactorService) GenerateSecret(ctx context.Context, userID string) (*TwoFactorSetup, error) {
	user, err := s.Users.FindByID(ctx, userID)
	if err != nil {
		return nil, apperr.Internal("Failed to generate secret").WithCause(err)
	}
	if user == nil {
		return nil, apperr.NotFound("User not found")
	}

	secret, qrCode, err := s.TOTP.Generate(user.Email)
	if err != nil {
		return nil, apperr.Internal("Failed to generate secret").WithCause(err)
	}

	user.TwoFactorSecret = &secret
	user.TwoFactorEnabled = false
	if err := s.Users.Save(ctx, user); err != nil {
		return nil, apperr.Internal("Failed to generate secret").WithCause(err)
	}

	return &TwoFactorSetup{Secret: secret, QRCode: qrCode}, nil
}

// VerifyAndEnable confirms the pending secret with a first valid code. A
// wrong code keeps the secret in place so the user can retry.
func (s *TwoFactorService) VerifyAndEnable(ctx context.Context, userID, code string) error {
	user, err := s.Users.FindByID(ctx, userID)
	if err != nil {
		return apperr.Internal("Failed to enable two-factor authentication").WithCause(err)
	}
	if user == nil {
		return apperr.NotFound("User not found")
	}

	if user.TwoFactorSecret == nil {
		return apperr.BadRequest("Two-factor authentication not set up")
	}

	if !s.TOTP.Verify(*user.TwoFactorSecret, code) {
		return apperr.Unauthorized("Invalid verification code")
	}

	user.TwoFactorEnabled = true
	if err := s.Users.Save(ctx, user); err != nil {
		return apperr.Internal("Failed to enable two-factor authentication").WithCause(err)
	}
	return nil
}

// Verify checks a code for an enabled user. A wrong code is a false result,
// not an error; the missing-setup cases are.
func (s *TwoFactorService) Verify(ctx context.Context, userID, code string) (bool, error) {
	user, err := s.Users.FindByID(ctx, userID)
	if err != nil {
		return false, apperr.Internal("Failed to verify code").WithCause(err)
	}
	if user == nil {
		return false, apperr.NotFound("User not found")
	}

	if !user.TwoFactorEnabled || user.TwoFactorSecret == nil {
		return false, apperr.BadRequest("Two-factor authentication not enabled")
	}

	return s.TOTP.Verify(*user.TwoFactorSecret, code), nil
}

// Disable clears the secret; disabling an already-disabled user succeeds.
func (s *TwoFactorService) Disable(ctx context.Context, userID string) error {
	user, err := s.Users.FindByID(ctx, userID)
	if err != nil {
		return apperr.Internal("Failed to disable two-factor authentication").WithCause(err)
	}
	if user == nil {
		return apperr.NotFound("User not found")
	}

	user.TwoFactorSecret = nil
	user.TwoFactorEnabled = false
	if err := s.Users.Save(ctx, user); err != nil {
		return apperr.Internal("Failed to disable two-factor authentication").WithCause(err)
	}
	return nil
}
