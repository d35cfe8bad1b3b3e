package server

import (
	"net/http"

	"github.com/keenon/cardapi/internal/apperr"
)

func (s *Server) handleTwoFactorSetup(w http.ResponseWriter, r *http.Request) {
	user := userFromContext(r.Context())

	setup, err := s.TwoFactor.GenerateSecret(r.Context(), user.ID)
	if err != nil {
		writeAppError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, jsonBody{
		"status": "success",
		"secret": setup.Secret,
		"qrCode": setup.QRCode,
	})
}

func (s *Server) handleTwoFactorVerify(w http.ResponseWriter, r *http.Request) {
	user := userFromContext(r.Context())

	var req struct {
		Code string `json:"code"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, apperr.CodeBadRequest, "Invalid request body")
		return
	}

	if err := s.TwoFactor.VerifyAndEnable(r.Context(), user.ID, req.Code); err != nil {
		writeAppError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, jsonBody{
		"status":  "success",
		"message": "Two-factor authentication enabled",
	})
}

// handleTwoFactorValidate checks a code against the caller's enabled secret
// without changing any state. Clients use it to confirm the authenticator
// still matches before sensitive operations.
func (s *Server) handleTwoFactorValidate(w http.ResponseWriter, r *http.Request) {
	user := userFromContext(r.Context())

	var req struct {
		Code string `json:"code"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, apperr.CodeBadRequest, "Invalid request body")
		return
	}

	valid, err := s.TwoFactor.Verify(r.Context(), user.ID, req.Code)
	if err != nil {
		writeAppError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, jsonBody{
		"status": "success",
		"valid":  valid,
	})
}

func (s *Server) handleTwoFactorDisable(w http.ResponseWriter, r *http.Request) {
	user := userFromContext(r.Context())

	if err := s.TwoFactor.Disable(r.Context(), user.ID); err != nil {
		writeAppError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, jsonBody{
		"status":  "success",
		"message": "Two-factor authentication disabled",
	})
}
