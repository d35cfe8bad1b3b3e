package service

import (
	"context"
	"time"

	"github.com/keenon/cardapi/internal/apperr"
	"github.com/keenon/cardapi/internal/auth"
)

// APIKeyService issues, validates, lists, and revokes long-lived API keys.
type APIKeyService struct {
	Users UserStore
	Keys  APIKeyStore
}

// CreatedAPIKey carries the plaintext key. It exists only in the creation
// response; afterwards the key is recoverable from nothing we store.
type CreatedAPIKey struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Key       string    `json:"key"`
	Scopes    []string  `json:"scopes,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

type APIKeySummary struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Scopes    []string  `json:"scopes,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type ValidatedAPIKey struct {
	APIKey struct {
		ID     string   `json:"id"`
		Name   string   `json:"name"`
		Scopes []string `json:"scopes,omitempty"`
	} `json:"apiKey"`
	User struct {
		ID    string    `json:"id"`
		Name  string    `json:"name"`
		Email string    `json:"email"`
		Role  auth.Role `json:"role"`
	} `json:"user"`
}

func (v *ValidatedAPIKey) HasScopes(required []string) bool {
	key := auth.APIKey{Scopes: v.APIKey.Scopes}
	return key.HasScopes(required)
}

func (s *APIKeyService) CreateAPIKey(ctx context.Context, userID, name string, scopes []string) (*CreatedAPIKey, error) {
	user, err := s.Users.FindByID(ctx, userID)
	if err != nil {
		return nil, apperr.Internal("Failed to create API key").WithCause(err)
	}
	if user == nil {
		return nil, apperr.NotFound("User not found")
	}

	rawKey, err := auth.RandomToken(32)
	if err != nil {
		return nil, apperr.Internal("Failed to create API key").WithCause(err)
	}

	created, err := s.Keys.Create(ctx, &auth.APIKey{
		Name:    name,
		KeyHash: auth.HashString(rawKey),
		Scopes:  scopes,
		UserID:  userID,
	})
	if err != nil {
		return nil, apperr.Internal("Failed to create API key").WithCause(err)
	}

	return &CreatedAPIKey{
		ID:        created.ID,
		Name:      created.Name,
		Key:       rawKey,
		Scopes:    created.Scopes,
		CreatedAt: created.CreatedAt,
	}, nil
}

// ValidateAPIKey resolves a raw key to its record and owning user. The
// response never includes the stored hash or the user's password.
func (s *APIKeyService) ValidateAPIKey(ctx context.Context, rawKey string) (*ValidatedAPIKey, error) {
	key, err := s.Keys.FindByHash(ctx, auth.HashString(rawKey))
	if err != nil {
		return nil, apperr.Internal("Failed to validate API key").WithCause(err)
	}
	if key == nil {
		return nil, apperr.Unauthorized("Invalid API key")
	}

	user, err := s.Users.FindByID(ctx, key.UserID)
	if err != nil {
		return nil, apperr.Internal("Failed to validate API key").WithCause(err)
	}
	if user == nil {
		return nil, apperr.Unauthorized("User not found for API key")
	}

	result := &ValidatedAPIKey{}
	result.APIKey.ID = key.ID
	result.APIKey.Name = key.Name
	result.APIKey.Scopes = key.Scopes
	result.User.ID = user.ID
	result.User.Name = user.Name
	result.User.Email = user.Email
	result.User.Role = user.Role
	return result, nil
}

// RevokeAPIKey flips the revoked flag; the row stays for audit. Revoking a
// key owned by someone else is denied regardless of the caller's role.
func (s *APIKeyService) RevokeAPIKey(ctx context.Context, id, userID string) error {
	key, err := s.Keys.FindByID(ctx, id)
	if err != nil {
		return apperr.Internal("Failed to revoke API key").WithCause(err)
	}
	if key == nil {
		return apperr.NotFound("API key not found")
	}

	if key.UserID != userID {
		return apperr.Forbidden("You do not have permission to revoke this API key")
	}

	if err := s.Keys.Revoke(ctx, id); err != nil {
		return apperr.Internal("Failed to revoke API key").WithCause(err)
	}
	return nil
}

func (s *APIKeyService) ListAPIKeys(ctx context.Context, userID string) ([]APIKeySummary, error) {
	user, err := s.Users.FindByID(ctx, userID)
	if err != nil {
		return nil, apperr.Internal("Failed to list API keys").WithCause(err)
	}
	if user == nil {
		return nil, apperr.NotFound("User not found")
	}

	keys, err := s.Keys.FindByUserID(ctx, userID)
	if err != nil {
		return nil, apperr.Internal("Failed to list API keys").WithCause(err)
	}

	summaries := make([]APIKeySummary, 0, len(keys))
	for _, key := range keys {
		summaries = append(summaries, APIKeySummary{
			ID:        key.ID,
			Name:      key.Name,
			Scopes:    key.Scopes,
			CreatedAt: key.CreatedAt,
			UpdatedAt: key.UpdatedAt,
		})
	}
	return summaries, nil
}
