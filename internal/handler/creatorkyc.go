package handler

import (
	"encoding/json"
	"net/http"

	"taskhub/internal/creatorkyc"
	"taskhub/internal/domain"
	"taskhub/pkg/logger"

	"github.com/gorilla/mux"
)

// CreatorKYCHandler exposes the creator's five-step wizard.
type CreatorKYCHandler struct {
	service *creatorkyc.Service
	logger  logger.Logger
}

func NewCreatorKYCHandler(service *creatorkyc.Service, log logger.Logger) *CreatorKYCHandler {
	return &CreatorKYCHandler{service: service, logger: log}
}

func (h *CreatorKYCHandler) respond(w http.ResponseWriter, r *http.Request, progress *domain.CreatorKYCProgress, err error) {
	if err != nil {
		respondServiceError(w, h.logger, r, err)
		return
	}
	respondJSON(w, http.StatusOK, progress)
}

// GET /api/v1/creator/kyc
func (h *CreatorKYCHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	progress, err := h.service.Get(r.Context(), userID)
	h.respond(w, r, progress, err)
}

// PATCH /api/v1/creator/kyc
func (h *CreatorKYCHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	var fields map[string]json.RawMessage
	if !decodeJSON(w, r, &fields) {
		return
	}
	progress, err := h.service.UpdateFields(r.Context(), userID, fields)
	h.respond(w, r, progress, err)
}

// AttachDocument stores one of the wizard's files from a "file" part.
// POST /api/v1/creator/kyc/documents/{field}
func (h *CreatorKYCHandler) AttachDocument(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	_, files, err := parseMultipart(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid multipart form")
		return
	}
	file, ok := files["file"]
	if !ok {
		respondValidationErrors(w, map[string]string{"file": "This field is required"})
		return
	}
	progress, err := h.service.AttachDocument(r.Context(), userID, mux.Vars(r)["field"], file.FileName, file.ContentType, file.Data)
	h.respond(w, r, progress, err)
}

// POST /api/v1/creator/kyc/next
func (h *CreatorKYCHandler) Next(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	progress, err := h.service.Next(r.Context(), userID)
	h.respond(w, r, progress, err)
}

// POST /api/v1/creator/kyc/prev
func (h *CreatorKYCHandler) Prev(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	progress, err := h.service.Prev(r.Context(), userID)
	h.respond(w, r, progress, err)
}

// PUT /api/v1/creator/kyc/step
func (h *CreatorKYCHandler) GoTo(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	var req struct {
		Step int `json:"step"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	progress, err := h.service.GoTo(r.Context(), userID, req.Step)
	h.respond(w, r, progress, err)
}

// Complete submits the wizard; the call returns after the review delay.
// POST /api/v1/creator/kyc/complete
func (h *CreatorKYCHandler) Complete(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	status, err := h.service.Complete(r.Context(), userID)
	if err != nil {
		respondServiceError(w, h.logger, r, err)
		return
	}
	respondJSON(w, http.StatusOK, status)
}

// DELETE /api/v1/creator/kyc
func (h *CreatorKYCHandler) Reset(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	progress, err := h.service.Reset(r.Context(), userID)
	h.respond(w, r, progress, err)
}

// GET /api/v1/creator/kyc/status
func (h *CreatorKYCHandler) Status(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	status, err := h.service.Status(r.Context(), userID)
	if err != nil {
		respondServiceError(w, h.logger, r, err)
		return
	}
	respondJSON(w, http.StatusOK, status)
}
