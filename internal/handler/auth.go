package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"taskhub/internal/auth"
	"taskhub/internal/domain"
	errs "taskhub/pkg/errors"
	"taskhub/pkg/logger"
)

// AuthHandler handles registration, login and the onboarding steps.
type AuthHandler struct {
	service *auth.Service
	logger  logger.Logger
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(service *auth.Service, log logger.Logger) *AuthHandler {
	return &AuthHandler{
		service: service,
		logger:  log,
	}
}

// Register handles user registration.
// POST /api/v1/auth/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req auth.RegisterRequest

	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request data.")
		return
	}
	if !req.Complete() {
		respondError(w, http.StatusBadRequest, "All fields are required.")
		return
	}

	response, err := h.service.Register(r.Context(), &req)
	if err != nil {
		if errors.Is(err, errs.ErrUserAlreadyExists) {
			respondError(w, http.StatusConflict, "User already exists")
			return
		}
		respondServiceError(w, h.logger, r, err)
		return
	}

	respondJSON(w, http.StatusCreated, response)
}

// Login authenticates a user and returns a token.
// POST /api/v1/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req auth.LoginRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	response, err := h.service.Login(r.Context(), &req)
	if err != nil {
		if errors.Is(err, errs.ErrInvalidCredentials) {
			respondError(w, http.StatusUnauthorized, "Invalid credentials")
			return
		}
		respondServiceError(w, h.logger, r, err)
		return
	}

	respondJSON(w, http.StatusOK, response)
}

// Me returns the caller and their onboarding step.
// GET /api/v1/auth/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	me, err := h.service.Me(r.Context(), userID)
	if err != nil {
		respondServiceError(w, h.logger, r, err)
		return
	}
	respondJSON(w, http.StatusOK, me)
}

// SendVerification emails a fresh verification code.
// POST /api/v1/auth/verification/send
func (h *AuthHandler) SendVerification(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	if err := h.service.SendVerificationCode(r.Context(), userID); err != nil {
		respondServiceError(w, h.logger, r, err)
		return
	}
	respondJSON(w, http.StatusAccepted, map[string]string{"status": "sent"})
}

// VerifyCode checks the emailed code.
// POST /api/v1/auth/verification/verify
func (h *AuthHandler) VerifyCode(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	var req struct {
		Code string `json:"code"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Code == "" {
		respondValidationErrors(w, map[string]string{"code": "This field is required"})
		return
	}

	user, err := h.service.VerifyCode(r.Context(), userID, req.Code)
	if err != nil {
		respondServiceError(w, h.logger, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"user":           user,
		"onboardingStep": user.OnboardingStep(),
	})
}

// SelectRole records the marketplace role and returns a token carrying it.
// POST /api/v1/auth/role
func (h *AuthHandler) SelectRole(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	var req struct {
		Role domain.Role `json:"role"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	response, err := h.service.SelectRole(r.Context(), userID, req.Role)
	if err != nil {
		respondServiceError(w, h.logger, r, err)
		return
	}
	respondJSON(w, http.StatusOK, response)
}
