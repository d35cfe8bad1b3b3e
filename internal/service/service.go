// Package service holds the auth orchestration layer. Services receive their
// collaborators through constructors so tests can substitute in-memory
// doubles for the relational and session stores.
package service

import (
	"context"
	"time"

	"github.com/keenon/cardapi/internal/auth"
)

// UserStore is the narrow persistence contract the services need. The pgx
// repository satisfies it in production.
type UserStore interface {
	Create(ctx context.Context, user *auth.User) (*auth.User, error)
	FindByEmail(ctx context.Context, email string) (*auth.User, error)
	FindByID(ctx context.Context, id string) (*auth.User, error)
	FindByVerificationCode(ctx context.Context, hashedCode string) (*auth.User, error)
	Save(ctx context.Context, user *auth.User) error
	List(ctx context.Context, limit, offset int) ([]auth.User, error)
}

type APIKeyStore interface {
	Create(ctx context.Context, key *auth.APIKey) (*auth.APIKey, error)
	FindByID(ctx context.Context, id string) (*auth.APIKey, error)
	FindByHash(ctx context.Context, keyHash string) (*auth.APIKey, error)
	FindByUserID(ctx context.Context, userID string) ([]auth.APIKey, error)
	Revoke(ctx context.Context, id string) error
}

type SessionStore interface {
	Create(ctx context.Context, snapshot auth.SessionSnapshot, ttl time.Duration) error
	Get(ctx context.Context, userID string) (*auth.SessionSnapshot, error)
	Delete(ctx context.Context, userID string) error
}

// VerificationMailer delivers the registration email. Delivery problems are
// a boolean outcome, never an error crossing the service boundary.
type VerificationMailer interface {
	SendVerificationCode(ctx context.Context, name, to, verifyURL string) bool
}
