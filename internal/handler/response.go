// Package handler provides the HTTP handlers for the taskhub API.
package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"taskhub/internal/middleware"
	errs "taskhub/pkg/errors"
	"taskhub/pkg/logger"
	"taskhub/pkg/validator"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

const maxJSONBody = 1 << 20

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

func respondValidationErrors(w http.ResponseWriter, errors map[string]string) {
	respondJSON(w, http.StatusBadRequest, map[string]interface{}{
		"error":             "Validation failed",
		"validation_errors": errors,
	})
}

// decodeJSON reads a JSON body into dst, answering 400 itself on failure.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			respondError(w, http.StatusBadRequest, "Request body is required")
			return false
		}
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}

func currentUser(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "Unauthorized")
		return uuid.Nil, false
	}
	return userID, true
}

func pathUUID(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(mux.Vars(r)[name])
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid "+name)
		return uuid.Nil, false
	}
	return id, true
}

var errorStatus = []struct {
	err    error
	status int
}{
	{errs.ErrUserNotFound, http.StatusNotFound},
	{errs.ErrTaskNotFound, http.StatusNotFound},
	{errs.ErrDeliveryNotFound, http.StatusNotFound},
	{errs.ErrNotificationNotFound, http.StatusNotFound},
	{errs.ErrDraftNotFound, http.StatusNotFound},
	{errs.ErrUserAlreadyExists, http.StatusConflict},
	{errs.ErrInvalidTransition, http.StatusConflict},
	{errs.ErrAlreadyVerified, http.StatusConflict},
	{errs.ErrVerificationInProgress, http.StatusConflict},
	{errs.ErrInvalidCredentials, http.StatusUnauthorized},
	{errs.ErrInvalidCode, http.StatusBadRequest},
	{errs.ErrInvalidRole, http.StatusBadRequest},
	{errs.ErrInvalidPhase, http.StatusBadRequest},
	{errs.ErrInvalidStep, http.StatusBadRequest},
	{errs.ErrInvalidCategory, http.StatusBadRequest},
	{errs.ErrInvalidFilter, http.StatusBadRequest},
	{errs.ErrPhaseIncomplete, http.StatusUnprocessableEntity},
	{errs.ErrUploadFailed, http.StatusUnprocessableEntity},
	{errs.ErrFileInfected, http.StatusUnprocessableEntity},
	{errs.ErrFileUploadFailed, http.StatusBadRequest},
	{errs.ErrFileTooLarge, http.StatusRequestEntityTooLarge},
	{errs.ErrFileTypeNotAllowed, http.StatusUnsupportedMediaType},
}

// respondServiceError maps service errors onto status codes. Anything
// unrecognised is logged and answered with a generic 500.
func respondServiceError(w http.ResponseWriter, log logger.Logger, r *http.Request, err error) {
	var fieldErrs validator.FieldErrors
	if errors.As(err, &fieldErrs) {
		respondValidationErrors(w, fieldErrs)
		return
	}
	for _, e := range errorStatus {
		if errors.Is(err, e.err) {
			respondError(w, e.status, e.err.Error())
			return
		}
	}
	log.Error("Request failed", map[string]interface{}{
		"path":       r.URL.Path,
		"method":     r.Method,
		"request_id": middleware.RequestIDFromContext(r.Context()),
		"error":      err,
	})
	respondError(w, http.StatusInternalServerError, "Internal server error")
}
