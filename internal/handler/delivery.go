package handler

import (
	"context"
	"net/http"

	"taskhub/internal/delivery"
	"taskhub/internal/domain"
	"taskhub/pkg/logger"

	"github.com/google/uuid"
)

// DeliveryHandler serves the fulfiller dashboard.
type DeliveryHandler struct {
	service *delivery.Service
	logger  logger.Logger
}

func NewDeliveryHandler(service *delivery.Service, log logger.Logger) *DeliveryHandler {
	return &DeliveryHandler{service: service, logger: log}
}

// List returns deliveries, narrowed by ?filter=all|available|active|completed.
// GET /api/v1/deliveries
func (h *DeliveryHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	filter, ok := domain.ParseDeliveryFilter(r.URL.Query().Get("filter"))
	if !ok {
		respondError(w, http.StatusBadRequest, "Invalid filter")
		return
	}
	list, err := h.service.List(r.Context(), userID, filter)
	if err != nil {
		respondServiceError(w, h.logger, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"deliveries": list})
}

// POST /api/v1/deliveries/refresh
func (h *DeliveryHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	list, err := h.service.Refresh(r.Context(), userID)
	if err != nil {
		respondServiceError(w, h.logger, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"deliveries": list})
}

// POST /api/v1/deliveries/{id}/accept
func (h *DeliveryHandler) Accept(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.service.Accept)
}

// POST /api/v1/deliveries/{id}/complete
func (h *DeliveryHandler) Complete(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.service.Complete)
}

func (h *DeliveryHandler) transition(w http.ResponseWriter, r *http.Request, fn func(context.Context, uuid.UUID, uuid.UUID) (*domain.Delivery, error)) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	deliveryID, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	d, err := fn(r.Context(), userID, deliveryID)
	if err != nil {
		respondServiceError(w, h.logger, r, err)
		return
	}
	respondJSON(w, http.StatusOK, d)
}

// GET /api/v1/deliveries/stats
func (h *DeliveryHandler) Stats(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	stats, err := h.service.Stats(r.Context(), userID)
	if err != nil {
		respondServiceError(w, h.logger, r, err)
		return
	}
	respondJSON(w, http.StatusOK, stats)
}

// GET /api/v1/fulfiller/dashboard
func (h *DeliveryHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	dash, err := h.service.Dashboard(r.Context(), userID)
	if err != nil {
		respondServiceError(w, h.logger, r, err)
		return
	}
	respondJSON(w, http.StatusOK, dash)
}
