package server

import (
	"context"
	"net/http"

	"github.com/keenon/cardapi/internal/apperr"
	"github.com/keenon/cardapi/internal/auth"
	"github.com/keenon/cardapi/internal/token"
)

type ctxKey string

const (
	userContextKey   ctxKey = "user"
	apiKeyContextKey ctxKey = "apiKey"
)

// deserializeUser resolves the access token cookie into a user and puts it on
// the request context. The token alone is not enough: the Redis session must
// still exist, so a logout invalidates access tokens before they expire.
func (s *Server) deserializeUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(accessTokenCookie)
		if err != nil || cookie.Value == "" {
			writeError(w, http.StatusUnauthorized, apperr.CodeUnauthorized, "You are not logged in")
			return
		}

		claims := s.Tokens.Verify(cookie.Value, token.AccessToken)
		if claims == nil {
			writeError(w, http.StatusUnauthorized, apperr.CodeUnauthorized, "Invalid token or user doesn't exist")
			return
		}

		snapshot, err := s.Sessions.Get(r.Context(), claims.UserID())
		if err != nil {
			writeAppError(w, r, err)
			return
		}
		if snapshot == nil {
			writeError(w, http.StatusUnauthorized, apperr.CodeUnauthorized, "Invalid token or session has expired")
			return
		}

		user, err := s.Users.FindByID(r.Context(), snapshot.ID)
		if err != nil {
			writeAppError(w, r, err)
			return
		}
		if user == nil {
			writeError(w, http.StatusUnauthorized, apperr.CodeUnauthorized, "Invalid token or session has expired")
			return
		}

		ctx := context.WithValue(r.Context(), userContextKey, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) requireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if userFromContext(r.Context()) == nil {
			writeError(w, http.StatusUnauthorized, apperr.CodeUnauthorized, "Session has expired or user doesn't exist")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) requireRole(role auth.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user := userFromContext(r.Context())
			if user == nil {
				writeError(w, http.StatusUnauthorized, apperr.CodeUnauthorized, "Session has expired or user doesn't exist")
				return
			}
			if user.Role != role {
				writeError(w, http.StatusForbidden, apperr.CodeForbidden, "You are not allowed to perform this action")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func userFromContext(ctx context.Context) *auth.User {
	if val, ok := ctx.Value(userContextKey).(*auth.User); ok {
		return val
	}
	return nil
}

// blockSuspiciousIPs sits in front of every API route. It rejects requests
// from blocked addresses and counts request bursts so an address hammering
// the API gets blocked even when no individual limit trips. Redis failures
// never reject a request.
func (s *Server) blockSuspiciousIPs(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := clientIP(r, s.trustedProxies)

		if s.IPGuard.IsBlocked(r.Context(), ip) {
			writeError(w, http.StatusForbidden, apperr.CodeForbidden,
				"Your IP has been blocked due to suspicious activity. Please try again later.")
			return
		}

		if s.IPGuard.RegisterActivity(r.Context(), ip) {
			writeError(w, http.StatusForbidden, apperr.CodeForbidden,
				"Your IP has been blocked due to suspicious activity. Please try again later.")
			return
		}

		next.ServeHTTP(w, r)
	})
}

// apiKeyAuth authenticates requests by the X-API-Key header instead of a
// session cookie. Any valid, non-revoked key is accepted.
func (s *Server) apiKeyAuth() func(http.Handler) http.Handler {
	return s.apiKeyWithScopes()
}

// apiKeyWithScopes is apiKeyAuth plus a scope requirement. Insufficient
// scopes are a 403, distinct from the 401 an invalid key gets.
func (s *Server) apiKeyWithScopes(scopes ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rawKey := r.Header.Get("X-API-Key")
			if rawKey == "" {
				writeError(w, http.StatusUnauthorized, apperr.CodeUnauthorized, "API key is required")
				return
			}

			validated, err := s.APIKeys.ValidateAPIKey(r.Context(), rawKey)
			if err != nil {
				writeAppError(w, r, err)
				return
			}

			if len(scopes) > 0 && !validated.HasScopes(scopes) {
				writeError(w, http.StatusForbidden, apperr.CodeForbidden, "API key does not have required scopes")
				return
			}

			ctx := context.WithValue(r.Context(), apiKeyContextKey, validated)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func secureHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		next.ServeHTTP(w, r)
	})
}
