package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"eduportal/internal/service"
)

func respondWithError(w http.ResponseWriter, status int, userMsg, logMsg string, err error) {
	if err != nil {
		if logMsg == "" {
			logMsg = userMsg
		}
		slog.Error(logMsg, "error", err, "status", status)
	}

	respondJSON(w, status, map[string]string{"error": userMsg})
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		respondWithError(w, http.StatusBadRequest, ErrInvalidJSON, "", nil)
		return false
	}
	return true
}

// respondWithServiceError maps service errors to responses
func respondWithServiceError(w http.ResponseWriter, logMsg string, err error) {
	switch {
	case errors.Is(err, service.ErrMemberNotFound):
		respondWithError(w, http.StatusNotFound, ErrMemberNotFoundMsg, "", nil)
	case errors.Is(err, service.ErrEventNotFound):
		respondWithError(w, http.StatusNotFound, ErrEventNotFoundMsg, "", nil)
	case errors.Is(err, service.ErrNameRequired),
		errors.Is(err, service.ErrTitleRequired),
		errors.Is(err, service.ErrStartDateRequired),
		errors.Is(err, service.ErrInvalidStartDate),
		errors.Is(err, service.ErrInvalidTime):
		respondWithError(w, http.StatusBadRequest, err.Error(), "", nil)
	default:
		respondWithError(w, http.StatusInternalServerError, ErrStorageUnavailableMsg, logMsg, err)
	}
}
