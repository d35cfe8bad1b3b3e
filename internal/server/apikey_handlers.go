package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/keenon/cardapi/internal/apperr"
	"github.com/keenon/cardapi/internal/service"
)

func (s *Server) handleCreateAPIKey(w http.ResponseWriter, r *http.Request) {
	user := userFromContext(r.Context())

	var req struct {
		Name   string   `json:"name"`
		Scopes []string `json:"scopes"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, apperr.CodeBadRequest, "Invalid request body")
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, apperr.CodeBadRequest, "Name is required")
		return
	}

	created, err := s.APIKeys.CreateAPIKey(r.Context(), user.ID, req.Name, req.Scopes)
	if err != nil {
		writeAppError(w, r, err)
		return
	}

	// The raw key appears in this response and nowhere else.
	writeJSON(w, http.StatusCreated, jsonBody{
		"status": "success",
		"apiKey": created,
	})
}

func (s *Server) handleListAPIKeys(w http.ResponseWriter, r *http.Request) {
	user := userFromContext(r.Context())

	keys, err := s.APIKeys.ListAPIKeys(r.Context(), user.ID)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	if keys == nil {
		keys = []service.APIKeySummary{}
	}

	writeJSON(w, http.StatusOK, jsonBody{
		"status":  "success",
		"apiKeys": keys,
	})
}

func (s *Server) handleRevokeAPIKey(w http.ResponseWriter, r *http.Request) {
	user := userFromContext(r.Context())
	id := chi.URLParam(r, "id")

	if err := s.APIKeys.RevokeAPIKey(r.Context(), id, user.ID); err != nil {
		writeAppError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, jsonBody{
		"status":  "success",
		"message": "API key revoked",
	})
}

func (s *Server) handleValidateAPIKey(w http.ResponseWriter, r *http.Request) {
	validated, _ := r.Context().Value(apiKeyContextKey).(*service.ValidatedAPIKey)
	if validated == nil {
		writeError(w, http.StatusUnauthorized, apperr.CodeUnauthorized, "API key is required")
		return
	}

	writeJSON(w, http.StatusOK, jsonBody{
		"status": "success",
		"data":   validated,
	})
}
