package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/keenon/cardapi/internal/apperr"
	"github.com/keenon/cardapi/internal/auth"
	"github.com/keenon/cardapi/internal/token"
)

const (
	refreshFailedMessage = "Could not refresh access token"
	twoFactorTokenTTL    = 5 * time.Minute
)

// AuthService drives registration, login (including the 2FA branch), token
// refresh, logout, and email verification.
type AuthService struct {
	Users      UserStore
	Sessions   SessionStore
	Tokens     *token.Codec
	Hasher     auth.PasswordHasher
	TwoFactor  *TwoFactorService
	Mailer     VerificationMailer
	Origin     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	SessionTTL time.Duration
}

type RegisterInput struct {
	Name     string
	Email    string
	Password string
}

type LoginResult struct {
	User              *auth.SessionSnapshot
	AccessToken       string
	RefreshToken      string
	RequiresTwoFactor bool
	TwoFactorToken    string
}

// HandleRegistration creates an unverified user and mails the verification
// link. The duplicate-email race is resolved by the store's unique index,
// not a read-then-insert check.
func (s *AuthService) HandleRegistration(ctx context.Context, input RegisterInput) error {
	rawCode, hashedCode, err := auth.NewVerificationCode()
	if err != nil {
		return apperr.Internal("Failed to create user").WithCause(err)
	}

	hashed, err := s.Hasher.Hash(input.Password)
	if err != nil {
		return apperr.Internal("Failed to create user").WithCause(err)
	}

	user, err := s.Users.Create(ctx, &auth.User{
		Name:             input.Name,
		Email:            strings.ToLower(input.Email),
		Password:         hashed,
		Role:             auth.RoleUser,
		Verified:         false,
		VerificationCode: &hashedCode,
	})
	if err != nil {
		if errors.Is(err, auth.ErrDuplicateKey) {
			return apperr.Conflict("User with that email already exists")
		}
		return apperr.Internal("Failed to create user").WithCause(err)
	}

	verifyURL := fmt.Sprintf("%s/verifyemail/%s", s.Origin, rawCode)
	if !s.Mailer.SendVerificationCode(ctx, user.Name, user.Email, verifyURL) {
		// The unsent code must not stay redeemable; the next registration
		// attempt regenerates a fresh one.
		user.VerificationCode = nil
		if saveErr := s.Users.Save(ctx, user); saveErr != nil {
			return apperr.Internal("There was an error sending email, please try again").WithCause(saveErr)
		}
		return apperr.Internal("There was an error sending email, please try again")
	}

	return nil
}

// LoginUser validates credentials. Unknown email and wrong password yield
// the same message so callers cannot enumerate accounts. With 2FA enabled it
// returns a short-lived challenge token and defers session creation to
// VerifyTwoFactorLogin.
func (s *AuthService) LoginUser(ctx context.Context, email, password string) (*LoginResult, error) {
	user, err := s.Users.FindByEmail(ctx, strings.ToLower(email))
	if err != nil {
		return nil, apperr.Internal("Login failed").WithCause(err)
	}
	if user == nil {
		return nil, apperr.BadRequest("Invalid email or password")
	}

	if !user.Verified {
		return nil, apperr.BadRequest("You are not verified")
	}

	if !s.Hasher.Compare(user.Password, password) {
		return nil, apperr.BadRequest("Invalid email or password")
	}

	if user.TwoFactorEnabled {
		challenge, err := s.Tokens.Sign(user.ID, token.AccessToken, twoFactorTokenTTL)
		if err != nil {
			return nil, apperr.Internal("Failed to sign tokens").WithCause(err)
		}
		return &LoginResult{RequiresTwoFactor: true, TwoFactorToken: challenge}, nil
	}

	return s.signTokens(ctx, user)
}

// VerifyTwoFactorLogin consumes the challenge token issued by LoginUser and
// completes the login. This is the only completion path for 2FA users.
func (s *AuthService) VerifyTwoFactorLogin(ctx context.Context, twoFactorToken, code string) (*LoginResult, error) {
	claims := s.Tokens.Verify(twoFactorToken, token.AccessToken)
	if claims == nil {
		return nil, apperr.Unauthorized("Invalid or expired token")
	}

	user, err := s.Users.FindByID(ctx, claims.UserID())
	if err != nil {
		return nil, apperr.Internal("Login failed").WithCause(err)
	}
	if user == nil {
		return nil, apperr.NotFound("User not found")
	}

	verified, err := s.TwoFactor.Verify(ctx, user.ID, code)
	if err != nil {
		return nil, err
	}
	if !verified {
		return nil, apperr.Unauthorized("Invalid verification code")
	}

	return s.signTokens(ctx, user)
}

// LogoutUser drops the session record; deleting an absent session succeeds.
func (s *AuthService) LogoutUser(ctx context.Context, userID string) error {
	if err := s.Sessions.Delete(ctx, userID); err != nil {
		return apperr.Internal("Logout failed").WithCause(err)
	}
	return nil
}

// RefreshAccessToken issues a fresh access token. Every failure mode maps to
// the same Forbidden message so the response never reveals which check
// failed. The session lookup is the revocation gate: logout deletes the
// record and kills still-unexpired refresh tokens.
func (s *AuthService) RefreshAccessToken(ctx context.Context, refreshToken string) (string, error) {
	if refreshToken == "" {
		return "", apperr.Forbidden(refreshFailedMessage)
	}

	claims := s.Tokens.Verify(refreshToken, token.RefreshToken)
	if claims == nil {
		return "", apperr.Forbidden(refreshFailedMessage)
	}

	session, err := s.Sessions.Get(ctx, claims.UserID())
	if err != nil {
		return "", apperr.Internal(refreshFailedMessage).WithCause(err)
	}
	if session == nil {
		return "", apperr.Forbidden(refreshFailedMessage)
	}

	user, err := s.Users.FindByID(ctx, session.ID)
	if err != nil {
		return "", apperr.Internal(refreshFailedMessage).WithCause(err)
	}
	if user == nil {
		return "", apperr.Forbidden(refreshFailedMessage)
	}

	accessToken, err := s.Tokens.Sign(user.ID, token.AccessToken, s.AccessTTL)
	if err != nil {
		return "", apperr.Internal(refreshFailedMessage).WithCause(err)
	}
	return accessToken, nil
}

// VerifyEmail redeems a raw verification code. Codes are single-use: the
// stored hash is cleared on success, so a replay fails the lookup.
func (s *AuthService) VerifyEmail(ctx context.Context, rawCode string) error {
	hashedCode := auth.HashString(rawCode)

	user, err := s.Users.FindByVerificationCode(ctx, hashedCode)
	if err != nil {
		return apperr.Internal("Could not verify email").WithCause(err)
	}
	if user == nil {
		return apperr.Unauthorized("Could not verify email")
	}

	user.Verified = true
	user.VerificationCode = nil
	if err := s.Users.Save(ctx, user); err != nil {
		return apperr.Internal("Could not verify email").WithCause(err)
	}
	return nil
}

func (s *AuthService) signTokens(ctx context.Context, user *auth.User) (*LoginResult, error) {
	snapshot := user.Snapshot()
	if err := s.Sessions.Create(ctx, snapshot, s.SessionTTL); err != nil {
		return nil, apperr.Internal("Failed to sign tokens").WithCause(err)
	}

	accessToken, err := s.Tokens.Sign(user.ID, token.AccessToken, s.AccessTTL)
	if err != nil {
		return nil, apperr.Internal("Failed to sign tokens").WithCause(err)
	}
	refreshToken, err := s.Tokens.Sign(user.ID, token.RefreshToken, s.RefreshTTL)
	if err != nil {
		return nil, apperr.Internal("Failed to sign tokens").WithCause(err)
	}

	return &LoginResult{
		User:         &snapshot,
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	}, nil
}
