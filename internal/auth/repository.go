package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrDuplicateKey is the repository-level translation of the driver's
// unique-constraint violation. The service layer never inspects raw pgx
// errors; this is the only duplicate-key signal it sees.
var ErrDuplicateKey = errors.New("duplicate key")

const pgUniqueViolation = "23505"

const userColumns = `"id","name","email","password","role","verified","verification_code","two_factor_secret","two_factor_enabled","created_at","updated_at","deleted_at"`

type UserRepository struct {
	DB *pgxpool.Pool
}

func NewUserRepository(db *pgxpool.Pool) *UserRepository {
	return &UserRepository{DB: db}
}

// Create inserts a new user. Emails are stored lower-cased; the unique index
// on email surfaces races as ErrDuplicateKey rather than a pre-check.
func (r *UserRepository) Create(ctx context.Context, user *User) (*User, error) {
	id := uuid.NewString()
	row := r.DB.QueryRow(ctx, `
		INSERT INTO users ("id","name","email","password","role","verified","verification_code")
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		RETURNING `+userColumns+`
	`, id, user.Name, strings.ToLower(user.Email), user.Password, string(user.Role), user.Verified, user.VerificationCode)

	created, err := scanUser(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return nil, ErrDuplicateKey
		}
		return nil, err
	}
	return created, nil
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*User, error) {
	row := r.DB.QueryRow(ctx, `
		SELECT `+userColumns+`
		FROM users
		WHERE "email"=$1 AND "deleted_at" IS NULL
	`, strings.ToLower(email))
	return scanUserOrNil(row)
}

func (r *UserRepository) FindByID(ctx context.Context, id string) (*User, error) {
	row := r.DB.QueryRow(ctx, `
		SELECT `+userColumns+`
		FROM users
		WHERE "id"=$1 AND "deleted_at" IS NULL
	`, id)
	return scanUserOrNil(row)
}

func (r *UserRepository) FindByVerificationCode(ctx context.Context, hashedCode string) (*User, error) {
	row := r.DB.QueryRow(ctx, `
		SELECT `+userColumns+`
		FROM users
		WHERE "verification_code"=$1 AND "deleted_at" IS NULL
	`, hashedCode)
	return scanUserOrNil(row)
}

// Save persists the mutable auth fields of an existing user.
func (r *UserRepository) Save(ctx context.Context, user *User) error {
	_, err := r.DB.Exec(ctx, `
		UPDATE users
		SET "name"=$1,
		    "verified"=$2,
		    "verification_code"=$3,
		    "two_factor_secret"=$4,
		    "two_factor_enabled"=$5,
		    "updated_at"=NOW()
		WHERE "id"=$6
	`, user.Name, user.Verified, user.VerificationCode, user.TwoFactorSecret, user.TwoFactorEnabled, user.ID)
	return err
}

func (r *UserRepository) Delete(ctx context.Context, id string) error {
	_, err := r.DB.Exec(ctx, `
		UPDATE users SET "deleted_at"=NOW() WHERE "id"=$1 AND "deleted_at" IS NULL
	`, id)
	return err
}

func (r *UserRepository) List(ctx context.Context, limit, offset int) ([]User, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT `+userColumns+`
		FROM users
		WHERE "deleted_at" IS NULL
		ORDER BY "created_at" DESC
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, *user)
	}
	return users, rows.Err()
}

func scanUserOrNil(row pgx.Row) (*User, error) {
	user, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return user, err
}

func scanUser(row pgx.Row) (*User, error) {
	var (
		user             User
		role             string
		verificationCode *string
		twoFactorSecret  *string
		deletedAt        *time.Time
	)

	if err := row.Scan(
		&user.ID,
		&user.Name,
		&user.Email,
		&user.Password,
		&role,
		&user.Verified,
		&verificationCode,
		&twoFactorSecret,
		&user.TwoFactorEnabled,
		&user.CreatedAt,
		&user.UpdatedAt,
		&deletedAt,
	); err != nil {
		return nil, err
	}

	user.Role = Role(role)
	user.VerificationCode = verificationCode
	user.TwoFactorSecret = twoFactorSecret
	user.DeletedAt = deletedAt
	return &user, nil
}
