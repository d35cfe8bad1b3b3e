package server

import (
	"net/http"

	"github.com/justinas/nosurf"

	"github.com/keenon/cardapi/internal/apperr"
)

// csrfProtect wraps a route group in double-submit CSRF checking. The cookie
// is httpOnly; clients fetch the matching request token from the csrf-token
// endpoint and echo it in the X-CSRF-Token header.
func (s *Server) csrfProtect(next http.Handler) http.Handler {
	h := nosurf.New(next)
	h.SetBaseCookie(http.Cookie{
		Path:     "/",
		HttpOnly: true,
		Secure:   s.cfg.Production(),
		SameSite: http.SameSiteLaxMode,
	})
	h.SetFailureHandler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusForbidden, apperr.CodeForbidden, "Invalid CSRF token. Please try again.")
	}))
	return h
}

func (s *Server) handleCSRFToken(w http.ResponseWriter, r *http.Request) {
	token := nosurf.Token(r)
	w.Header().Set("X-CSRF-Token", token)
	writeJSON(w, http.StatusOK, jsonBody{
		"status":    "success",
		"csrfToken": token,
	})
}
