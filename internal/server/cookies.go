package server

import (
	"net/http"
	"time"
)

const (
	accessTokenCookie  = "access_token"
	refreshTokenCookie = "refresh_token"
	loggedInCookie     = "logged_in"
)

func (s *Server) authCookie(name, value string, ttl time.Duration, httpOnly bool) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: httpOnly,
		Secure:   s.cfg.Production(),
		SameSite: http.SameSiteLaxMode,
	}
}

// setLoginCookies installs the full cookie set issued on a successful login:
// both tokens as httpOnly cookies plus a readable logged_in flag so the
// frontend can tell whether a session exists without touching the tokens.
func (s *Server) setLoginCookies(w http.ResponseWriter, accessToken, refreshToken string) {
	http.SetCookie(w, s.authCookie(accessTokenCookie, accessToken, s.cfg.AccessTokenTTL, true))
	http.SetCookie(w, s.authCookie(refreshTokenCookie, refreshToken, s.cfg.RefreshTokenTTL, true))
	http.SetCookie(w, s.authCookie(loggedInCookie, "true", s.cfg.AccessTokenTTL, false))
}

// setRefreshCookies renews only the access token and the logged_in flag.
// The refresh token keeps its original expiry.
func (s *Server) setRefreshCookies(w http.ResponseWriter, accessToken string) {
	http.SetCookie(w, s.authCookie(accessTokenCookie, accessToken, s.cfg.AccessTokenTTL, true))
	http.SetCookie(w, s.authCookie(loggedInCookie, "true", s.cfg.AccessTokenTTL, false))
}

func (s *Server) clearLoginCookies(w http.ResponseWriter) {
	for _, name := range []string{accessTokenCookie, refreshTokenCookie, loggedInCookie} {
		http.SetCookie(w, &http.Cookie{
			Name:     name,
			Value:    "",
			Path:     "/",
			MaxAge:   -1,
			HttpOnly: name != loggedInCookie,
			Secure:   s.cfg.Production(),
			SameSite: http.SameSiteLaxMode,
		})
	}
}
