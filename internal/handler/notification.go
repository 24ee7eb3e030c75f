package handler

import (
	"net/http"

	"taskhub/internal/domain"
	"taskhub/internal/notification"
	"taskhub/pkg/logger"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Origins are already filtered by the CORS middleware and the token check.
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// NotificationHandler serves the notification feed and its live stream.
type NotificationHandler struct {
	service *notification.Service
	hub     *notification.Hub
	logger  logger.Logger
}

func NewNotificationHandler(service *notification.Service, hub *notification.Hub, log logger.Logger) *NotificationHandler {
	return &NotificationHandler{service: service, hub: hub, logger: log}
}

// List returns the feed with its unread count.
// GET /api/v1/notifications
func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	list, err := h.service.List(r.Context(), userID)
	if err != nil {
		respondServiceError(w, h.logger, r, err)
		return
	}
	unread := 0
	for _, n := range list {
		if !n.IsRead {
			unread++
		}
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"notifications": list,
		"unreadCount":   unread,
	})
}

// GET /api/v1/notifications/unread-count
func (h *NotificationHandler) UnreadCount(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	count, err := h.service.UnreadCount(r.Context(), userID)
	if err != nil {
		respondServiceError(w, h.logger, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]int{"unreadCount": count})
}

// POST /api/v1/notifications
func (h *NotificationHandler) Add(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	var req domain.NewNotification
	if !decodeJSON(w, r, &req) {
		return
	}
	n, err := h.service.Add(r.Context(), userID, req)
	if err != nil {
		respondServiceError(w, h.logger, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, n)
}

// POST /api/v1/notifications/{id}/read
func (h *NotificationHandler) MarkAsRead(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	if err := h.service.MarkAsRead(r.Context(), userID, mux.Vars(r)["id"]); err != nil {
		respondServiceError(w, h.logger, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// POST /api/v1/notifications/read-all
func (h *NotificationHandler) MarkAllAsRead(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	if err := h.service.MarkAllAsRead(r.Context(), userID); err != nil {
		respondServiceError(w, h.logger, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DELETE /api/v1/notifications/{id}
func (h *NotificationHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	if err := h.service.Delete(r.Context(), userID, mux.Vars(r)["id"]); err != nil {
		respondServiceError(w, h.logger, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Stream upgrades to a WebSocket that receives every new notification.
// GET /api/v1/notifications/ws
func (h *NotificationHandler) Stream(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("WebSocket upgrade failed", map[string]interface{}{"error": err.Error()})
		return
	}
	h.hub.Serve(r.Context(), userID, conn)
}
