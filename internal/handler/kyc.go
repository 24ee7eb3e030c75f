package handler

import (
	"encoding/json"
	"net/http"

	"taskhub/internal/domain"
	"taskhub/internal/kyc"
	"taskhub/pkg/logger"

	"github.com/gorilla/mux"
)

// KYCHandler exposes the fulfiller KYC tracker.
type KYCHandler struct {
	service *kyc.Service
	logger  logger.Logger
}

func NewKYCHandler(service *kyc.Service, log logger.Logger) *KYCHandler {
	return &KYCHandler{service: service, logger: log}
}

func (h *KYCHandler) phase(w http.ResponseWriter, r *http.Request) (domain.KYCPhase, bool) {
	phase, ok := domain.ParseKYCPhase(mux.Vars(r)["phase"])
	if !ok {
		respondError(w, http.StatusBadRequest, "Invalid phase")
		return "", false
	}
	return phase, true
}

func (h *KYCHandler) respondState(w http.ResponseWriter, r *http.Request, state *domain.KYCState, err error) {
	if err != nil {
		respondServiceError(w, h.logger, r, err)
		return
	}
	respondJSON(w, http.StatusOK, state)
}

// State returns the tracker.
// GET /api/v1/kyc
func (h *KYCHandler) State(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	state, err := h.service.State(r.Context(), userID)
	h.respondState(w, r, state, err)
}

// SetActivePhase opens a phase form, or closes it with {"phase": null}.
// PUT /api/v1/kyc/active-phase
func (h *KYCHandler) SetActivePhase(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	var req struct {
		Phase *string `json:"phase"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	var phase *domain.KYCPhase
	if req.Phase != nil {
		p, ok := domain.ParseKYCPhase(*req.Phase)
		if !ok {
			respondValidationErrors(w, map[string]string{"phase": "Must be one of: profile identity vehicle"})
			return
		}
		phase = &p
	}
	state, err := h.service.SetActivePhase(r.Context(), userID, phase)
	h.respondState(w, r, state, err)
}

// UpdateData merges partial phase fields without completing the phase.
// PATCH /api/v1/kyc/{phase}/data
func (h *KYCHandler) UpdateData(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	phase, ok := h.phase(w, r)
	if !ok {
		return
	}
	var fields map[string]json.RawMessage
	if !decodeJSON(w, r, &fields) {
		return
	}
	state, err := h.service.UpdateData(r.Context(), userID, phase, fields)
	h.respondState(w, r, state, err)
}

// SetPhaseError sets or clears a phase's error flag.
// PUT /api/v1/kyc/{phase}/error
func (h *KYCHandler) SetPhaseError(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	phase, ok := h.phase(w, r)
	if !ok {
		return
	}
	var req struct {
		HasError bool `json:"hasError"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	state, err := h.service.SetPhaseError(r.Context(), userID, phase, req.HasError)
	h.respondState(w, r, state, err)
}

// SubmitPhase posts a phase form with its documents.
// POST /api/v1/kyc/{phase}/submit
func (h *KYCHandler) SubmitPhase(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	phase, ok := h.phase(w, r)
	if !ok {
		return
	}
	fields, files, err := parseMultipart(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid multipart form")
		return
	}

	sub := kyc.PhaseSubmission{
		Fields:    fields,
		Documents: make(map[string]kyc.Document, len(files)),
	}
	for name, f := range files {
		sub.Documents[name] = kyc.Document{FileName: f.FileName, ContentType: f.ContentType, Data: f.Data}
	}

	state, err := h.service.SubmitPhase(r.Context(), userID, phase, sub)
	h.respondState(w, r, state, err)
}

// CompletePhase marks a phase complete without a form post.
// POST /api/v1/kyc/{phase}/complete
func (h *KYCHandler) CompletePhase(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	phase, ok := h.phase(w, r)
	if !ok {
		return
	}
	state, err := h.service.CompletePhase(r.Context(), userID, phase)
	h.respondState(w, r, state, err)
}

// Verify starts the simulated review and answers 202 while it runs.
// POST /api/v1/kyc/verify
func (h *KYCHandler) Verify(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	state, err := h.service.SubmitForVerification(r.Context(), userID)
	if err != nil {
		respondServiceError(w, h.logger, r, err)
		return
	}
	respondJSON(w, http.StatusAccepted, state)
}

// Unlock lifts the dashboard lock.
// POST /api/v1/kyc/unlock
func (h *KYCHandler) Unlock(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	state, err := h.service.CompleteAll(r.Context(), userID)
	h.respondState(w, r, state, err)
}

// Reset clears the tracker.
// DELETE /api/v1/kyc
func (h *KYCHandler) Reset(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	state, err := h.service.Reset(r.Context(), userID)
	h.respondState(w, r, state, err)
}
