package server

import (
	"net/http"
	"time"

	"github.com/keenon/cardapi/internal/apperr"
	"github.com/keenon/cardapi/internal/auth"
)

type userResponse struct {
	ID               string    `json:"id"`
	Name             string    `json:"name"`
	Email            string    `json:"email"`
	Role             auth.Role `json:"role"`
	Verified         bool      `json:"verified"`
	TwoFactorEnabled bool      `json:"twoFactorEnabled"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

func toUserResponse(u *auth.User) userResponse {
	return userResponse{
		ID:               u.ID,
		Name:             u.Name,
		Email:            u.Email,
		Role:             u.Role,
		Verified:         u.Verified,
		TwoFactorEnabled: u.TwoFactorEnabled,
		CreatedAt:        u.CreatedAt,
		UpdatedAt:        u.UpdatedAt,
	}
}

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	user := userFromContext(r.Context())

	writeJSON(w, http.StatusOK, jsonBody{
		"status": "success",
		"user":   toUserResponse(user),
	})
}

// handleListUsers pages through all users for admins. Password hashes and
// two-factor secrets never leave the repository layer here.
func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 50)
	if limit < 1 || limit > 200 {
		limit = 50
	}
	offset := queryInt(r, "offset", 0)
	if offset < 0 {
		offset = 0
	}

	users, err := s.Users.List(r.Context(), limit, offset)
	if err != nil {
		writeAppError(w, r, err)
		return
	}

	out := make([]userResponse, 0, len(users))
	for i := range users {
		out = append(out, toUserResponse(&users[i]))
	}

	writeJSON(w, http.StatusOK, jsonBody{
		"status": "success",
		"users":  out,
	})
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	if err := s.Redis.Ping(r.Context()).Err(); err != nil {
		writeError(w, http.StatusServiceUnavailable, apperr.CodeInternal, "Session store unavailable")
		return
	}
	writeJSON(w, http.StatusOK, jsonBody{"status": "success"})
}

func queryInt(r *http.Request, name string, fallback int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback
	}
	var n int
	for _, c := range raw {
		if c < '0' || c > '9' {
			return fallback
		}
		n = n*10 + int(c-'0')
	}
	return n
}
