package server

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/keenon/cardapi/internal/apperr"
	"github.com/keenon/cardapi/internal/service"
)

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name            string `json:"name"`
		Email           string `json:"email"`
		Password        string `json:"password"`
		PasswordConfirm string `json:"passwordConfirm"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, apperr.CodeBadRequest, "Invalid request body")
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.TrimSpace(strings.ToLower(req.Email))

	if req.Name == "" {
		writeError(w, http.StatusBadRequest, apperr.CodeBadRequest, "Name is required")
		return
	}
	if !validateEmail(req.Email) {
		writeError(w, http.StatusBadRequest, apperr.CodeBadRequest, "Invalid email address")
		return
	}
	if err := validatePassword(req.Password); err != nil {
		writeError(w, http.StatusBadRequest, apperr.CodeBadRequest, err.Error())
		return
	}
	if req.Password != req.PasswordConfirm {
		writeError(w, http.StatusBadRequest, apperr.CodeBadRequest, "Passwords do not match")
		return
	}

	err := s.Auth.HandleRegistration(r.Context(), service.RegisterInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		writeAppError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, jsonBody{
		"status":  "success",
		"message": "An email with a verification code has been sent to " + req.Email,
	})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, apperr.CodeBadRequest, "Invalid request body")
		return
	}

	ip := clientIP(r, s.trustedProxies)
	result, err := s.Auth.LoginUser(r.Context(), req.Email, req.Password)
	if err != nil {
		if appErr := apperr.From(err); appErr != nil && appErr.Code == apperr.CodeBadRequest {
			s.IPGuard.RegisterFailedLogin(r.Context(), ip)
		}
		writeAppError(w, r, err)
		return
	}

	if result.RequiresTwoFactor {
		// The password checked out, but the login has not completed; the
		// failure counter survives until the code is verified.
		writeJSON(w, http.StatusOK, jsonBody{
			"status":         "success",
			"requires2FA":    true,
			"twoFactorToken": result.TwoFactorToken,
		})
		return
	}

	s.IPGuard.ResetFailedLogins(r.Context(), ip)
	s.setLoginCookies(w, result.AccessToken, result.RefreshToken)
	writeJSON(w, http.StatusOK, jsonBody{
		"status":       "success",
		"user":         result.User,
		"access_token": result.AccessToken,
	})
}

func (s *Server) handleVerifyTwoFactorLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		TwoFactorToken string `json:"twoFactorToken"`
		Code           string `json:"code"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, apperr.CodeBadRequest, "Invalid request body")
		return
	}

	ip := clientIP(r, s.trustedProxies)
	result, err := s.Auth.VerifyTwoFactorLogin(r.Context(), req.TwoFactorToken, req.Code)
	if err != nil {
		if appErr := apperr.From(err); appErr != nil && appErr.Code == apperr.CodeUnauthorized {
			s.IPGuard.RegisterFailedLogin(r.Context(), ip)
		}
		writeAppError(w, r, err)
		return
	}

	s.IPGuard.ResetFailedLogins(r.Context(), ip)
	s.setLoginCookies(w, result.AccessToken, result.RefreshToken)
	writeJSON(w, http.StatusOK, jsonBody{
		"status":       "success",
		"user":         result.User,
		"access_token": result.AccessToken,
	})
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var refreshToken string
	if cookie, err := r.Cookie(refreshTokenCookie); err == nil {
		refreshToken = cookie.Value
	}

	accessToken, err := s.Auth.RefreshAccessToken(r.Context(), refreshToken)
	if err != nil {
		writeAppError(w, r, err)
		return
	}

	s.setRefreshCookies(w, accessToken)
	writeJSON(w, http.StatusOK, jsonBody{
		"status":       "success",
		"access_token": accessToken,
	})
}

func (s *Server) handleVerifyEmail(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")

	if err := s.Auth.VerifyEmail(r.Context(), code); err != nil {
		writeAppError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, jsonBody{
		"status":  "success",
		"message": "Email verified successfully",
	})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	user := userFromContext(r.Context())

	if err := s.Auth.LogoutUser(r.Context(), user.ID); err != nil {
		writeAppError(w, r, err)
		return
	}

	s.clearLoginCookies(w)
	writeJSON(w, http.StatusOK, jsonBody{"status": "success"})
}
