package auth

import "time"

type Role string

const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
)

type User struct {
	ID               string
	Name             string
	Email            string
	Password         string
	Role             Role
	Verified         bool
	VerificationCode *string
	TwoFactorSecret  *string
	TwoFactorEnabled bool
	CreatedAt        time.Time
	UpdatedAt        time.Time
	DeletedAt        *time.Time
}

// SessionSnapshot is the subset of the user stored in the session record.
// The password hash never leaves the relational store.
type SessionSnapshot struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  Role   `json:"role"`
}

func (u *User) Snapshot() SessionSnapshot {
	return SessionSnapshot{
		ID:    u.ID,
		Name:  u.Name,
		Email: u.Email,
		Role:  u.Role,
	}
}
