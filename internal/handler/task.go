package handler

import (
	"net/http"

	"taskhub/internal/domain"
	"taskhub/internal/task"
	"taskhub/internal/taskdraft"
	"taskhub/pkg/logger"
)

// TaskHandler serves the creator dashboard and task records.
type TaskHandler struct {
	service *task.Service
	logger  logger.Logger
}

func NewTaskHandler(service *task.Service, log logger.Logger) *TaskHandler {
	return &TaskHandler{service: service, logger: log}
}

// List returns the creator's tasks, narrowed by ?filter=all|active|completed|draft.
// GET /api/v1/tasks
func (h *TaskHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	filter, ok := domain.ParseTaskFilter(r.URL.Query().Get("filter"))
	if !ok {
		respondError(w, http.StatusBadRequest, "Invalid filter")
		return
	}
	tasks, err := h.service.List(r.Context(), userID, filter)
	if err != nil {
		respondServiceError(w, h.logger, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"tasks": tasks})
}

// POST /api/v1/tasks
func (h *TaskHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	var req task.CreateTaskRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	t, err := h.service.Create(r.Context(), userID, &req)
	if err != nil {
		respondServiceError(w, h.logger, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, t)
}

// Refresh replaces the creator's tasks with a new generated set.
// POST /api/v1/tasks/refresh
func (h *TaskHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	tasks, err := h.service.Refresh(r.Context(), userID)
	if err != nil {
		respondServiceError(w, h.logger, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"tasks": tasks})
}

// PATCH /api/v1/tasks/{id}
func (h *TaskHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	taskID, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	var upd domain.TaskUpdate
	if !decodeJSON(w, r, &upd) {
		return
	}
	t, err := h.service.Update(r.Context(), userID, taskID, &upd)
	if err != nil {
		respondServiceError(w, h.logger, r, err)
		return
	}
	respondJSON(w, http.StatusOK, t)
}

// DELETE /api/v1/tasks/{id}
func (h *TaskHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	taskID, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	if err := h.service.Delete(r.Context(), userID, taskID); err != nil {
		respondServiceError(w, h.logger, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GET /api/v1/tasks/stats
func (h *TaskHandler) Stats(w http.ResponseWriter, r *http.Request) {
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

// GET /api/v1/creator/dashboard
func (h *TaskHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
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

// TaskDraftHandler serves the create-task wizard.
type TaskDraftHandler struct {
	service *taskdraft.Service
	logger  logger.Logger
}

func NewTaskDraftHandler(service *taskdraft.Service, log logger.Logger) *TaskDraftHandler {
	return &TaskDraftHandler{service: service, logger: log}
}

func (h *TaskDraftHandler) respond(w http.ResponseWriter, r *http.Request, status int, draft *domain.TaskDraft, err error) {
	if err != nil {
		respondServiceError(w, h.logger, r, err)
		return
	}
	respondJSON(w, status, draft)
}

// Start picks a category and opens a fresh draft.
// POST /api/v1/tasks/draft
func (h *TaskDraftHandler) Start(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	var req struct {
		Category string `json:"category"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	draft, err := h.service.Start(r.Context(), userID, req.Category)
	h.respond(w, r, http.StatusCreated, draft, err)
}

// GET /api/v1/tasks/draft
func (h *TaskDraftHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	draft, err := h.service.Get(r.Context(), userID)
	h.respond(w, r, http.StatusOK, draft, err)
}

// PUT /api/v1/tasks/draft/details
func (h *TaskDraftHandler) SaveDetails(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	var req taskdraft.DetailsRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	draft, err := h.service.SaveDetails(r.Context(), userID, &req)
	h.respond(w, r, http.StatusOK, draft, err)
}

// PUT /api/v1/tasks/draft/compensation
func (h *TaskDraftHandler) SaveCompensation(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	var req taskdraft.CompensationRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	draft, err := h.service.SaveCompensation(r.Context(), userID, &req)
	h.respond(w, r, http.StatusOK, draft, err)
}

// PUT /api/v1/tasks/draft/requirements
func (h *TaskDraftHandler) SaveRequirements(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	var req taskdraft.RequirementsRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	draft, err := h.service.SaveRequirements(r.Context(), userID, &req)
	h.respond(w, r, http.StatusOK, draft, err)
}

// Publish turns the draft into an active task.
// POST /api/v1/tasks/draft/publish
func (h *TaskDraftHandler) Publish(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	t, err := h.service.Publish(r.Context(), userID)
	if err != nil {
		respondServiceError(w, h.logger, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, t)
}

// DELETE /api/v1/tasks/draft
func (h *TaskDraftHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	if err := h.service.Cancel(r.Context(), userID); err != nil {
		respondServiceError(w, h.logger, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
