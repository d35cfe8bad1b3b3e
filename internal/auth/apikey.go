package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// APIKey holds a long-lived credential for service-to-service calls. Only a
// SHA-256 hash of the key is ever written; revocation keeps the row for audit.
type APIKey struct {
	ID        string
	Name      string
	KeyHash   string
	Revoked   bool
	Scopes    []string
	UserID    string
	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt *time.Time
}

// HasScopes reports whether the key carries every required scope.
func (k *APIKey) HasScopes(required []string) bool {
	for _, want := range required {
		found := false
		for _, have := range k.Scopes {
			if have == want {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

const apiKeyColumns = `"id","name","key","revoked","scopes","user_id","created_at","updated_at","deleted_at"`

type APIKeyRepository struct {
	DB *pgxpool.Pool
}

func NewAPIKeyRepository(db *pgxpool.Pool) *APIKeyRepository {
	return &APIKeyRepository{DB: db}
}

func (r *APIKeyRepository) Create(ctx context.Context, key *APIKey) (*APIKey, error) {
	id := uuid.NewString()
	row := r.DB.QueryRow(ctx, `
		INSERT INTO api_keys ("id","name","key","scopes","user_id")
		VALUES ($1,$2,$3,$4,$5)
		RETURNING `+apiKeyColumns+`
	`, id, key.Name, key.KeyHash, joinScopes(key.Scopes), key.UserID)
	return scanAPIKey(row)
}

func (r *APIKeyRepository) FindByID(ctx context.Context, id string) (*APIKey, error) {
	row := r.DB.QueryRow(ctx, `
		SELECT `+apiKeyColumns+`
		FROM api_keys
		WHERE "id"=$1 AND "deleted_at" IS NULL
	`, id)
	return scanAPIKeyOrNil(row)
}

// FindByHash looks up a non-revoked key by its stored hash.
func (r *APIKeyRepository) FindByHash(ctx context.Context, keyHash string) (*APIKey, error) {
	row := r.DB.QueryRow(ctx, `
		SELECT `+apiKeyColumns+`
		FROM api_keys
		WHERE "key"=$1 AND "revoked"=FALSE AND "deleted_at" IS NULL
	`, keyHash)
	return scanAPIKeyOrNil(row)
}

func (r *APIKeyRepository) FindByUserID(ctx context.Context, userID string) ([]APIKey, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT `+apiKeyColumns+`
		FROM api_keys
		WHERE "user_id"=$1 AND "revoked"=FALSE AND "deleted_at" IS NULL
		ORDER BY "created_at" DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var keys []APIKey
	for rows.Next() {
		key, err := scanAPIKey(rows)
		if err != nil {
			return nil, err
		}
		keys = append(keys, *key)
	}
	return keys, rows.Err()
}

func (r *APIKeyRepository) Revoke(ctx context.Context, id string) error {
	_, err := r.DB.Exec(ctx, `
		UPDATE api_keys SET "revoked"=TRUE, "updated_at"=NOW() WHERE "id"=$1
	`, id)
	return err
}

func scanAPIKeyOrNil(row pgx.Row) (*APIKey, error) {
	key, err := scanAPIKey(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return key, err
}

func scanAPIKey(row pgx.Row) (*APIKey, error) {
	var (
		key    APIKey
		scopes *string
	)

	if err := row.Scan(
		&key.ID,
		&key.Name,
		&key.KeyHash,
		&key.Revoked,
		&scopes,
		&key.UserID,
		&key.CreatedAt,
		&key.UpdatedAt,
		&key.DeletedAt,
	); err != nil {
		return nil, err
	}

	key.Scopes = splitScopes(scopes)
	return &key, nil
}

func joinScopes(scopes []string) *string {
	if len(scopes) == 0 {
		return nil
	}
	joined := strings.Join(scopes, ",")
	return &joined
}

func splitScopes(val *string) []string {
	if val == nil || *val == "" {
		return nil
	}
	parts := strings.Split(*val, ",")
	var out []string
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
