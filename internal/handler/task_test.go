package handler

import (
	"net/http"
	"testing"
	"time"

	"taskhub/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type taskList struct {
	Tasks []domain.Task `json:"tasks"`
}

func TestTasks_ListCreateUpdateDelete(t *testing.T) {
	f := newFixture(t)
	token := f.user(t)

	w := f.do(t, http.MethodGet, "/api/v1/tasks", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list taskList
	decode(t, w, &list)
	assert.Len(t, list.Tasks, 6)

	w = f.do(t, http.MethodGet, "/api/v1/tasks?filter=draft", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &list)
	for _, tk := range list.Tasks {
		assert.Equal(t, domain.TaskStatusDraft, tk.Status)
	}

	w = f.do(t, http.MethodGet, "/api/v1/tasks?filter=archived", token, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do(t, http.MethodPost, "/api/v1/tasks", token, map[string]interface{}{
		"title":    "",
		"category": "technology",
		"budget":   "-5",
	})
	require.Equal(t, http.StatusBadRequest, w.Code)
	fields := errorBody(t, w)["validation_errors"].(map[string]interface{})
	assert.Contains(t, fields, "title")

	w = f.do(t, http.MethodPost, "/api/v1/tasks", token, map[string]interface{}{
		"title":    "Build a landing page",
		"category": "technology",
		"budget":   "150000",
		"deadline": time.Now().Add(72 * time.Hour).Format(time.RFC3339),
		"skills":   []string{"HTML", "CSS"},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var created domain.Task
	decode(t, w, &created)
	assert.Equal(t, domain.TaskStatusActive, created.Status)

	w = f.do(t, http.MethodPatch, "/api/v1/tasks/"+created.ID.String(), token, map[string]interface{}{
		"status": "completed",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var updated domain.Task
	decode(t, w, &updated)
	assert.Equal(t, domain.TaskStatusCompleted, updated.Status)
	assert.NotNil(t, updated.CompletedAt)

	w = f.do(t, http.MethodPatch, "/api/v1/tasks/not-a-uuid", token, map[string]interface{}{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do(t, http.MethodDelete, "/api/v1/tasks/"+created.ID.String(), token, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = f.do(t, http.MethodDelete, "/api/v1/tasks/"+created.ID.String(), token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestTasks_OtherCreatorCannotTouch(t *testing.T) {
	f := newFixture(t)
	owner := f.user(t)
	other := f.user(t)

	w := f.do(t, http.MethodGet, "/api/v1/tasks", owner, nil)
	var list taskList
	decode(t, w, &list)
	require.NotEmpty(t, list.Tasks)

	w = f.do(t, http.MethodDelete, "/api/v1/tasks/"+list.Tasks[0].ID.String(), other, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestTasks_StatsAndDashboard(t *testing.T) {
	f := newFixture(t)
	token := f.user(t)

	w := f.do(t, http.MethodGet, "/api/v1/tasks/stats", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var stats domain.TaskStats
	decode(t, w, &stats)
	assert.Equal(t, 2, stats.ActiveTasks)
	assert.Equal(t, 2, stats.TasksCompleted)
	assert.Equal(t, 50, stats.AvgCompletionRate)

	w = f.do(t, http.MethodGet, "/api/v1/creator/dashboard", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var dash domain.CreatorDashboard
	decode(t, w, &dash)
	assert.Len(t, dash.Tasks, 6)
	require.NotNil(t, dash.Profile)
	assert.Equal(t, 4, dash.Profile.TotalTasksPosted)

	w = f.do(t, http.MethodPost, "/api/v1/tasks/refresh", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
}

func TestTaskDraft_Flow(t *testing.T) {
	f := newFixture(t)
	token := f.user(t)

	w := f.do(t, http.MethodGet, "/api/v1/tasks/draft", token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = f.do(t, http.MethodPost, "/api/v1/tasks/draft", token, map[string]string{"category": "astrology"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do(t, http.MethodPost, "/api/v1/tasks/draft", token, map[string]string{"category": "logistics"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = f.do(t, http.MethodPost, "/api/v1/tasks/draft/publish", token, nil)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, errorBody(t, w)["validation_errors"], "title")

	w = f.do(t, http.MethodPut, "/api/v1/tasks/draft/details", token, map[string]string{
		"title":       "Same-day parcel runs",
		"description": "Three drops around Ikeja",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = f.do(t, http.MethodPut, "/api/v1/tasks/draft/compensation", token, map[string]string{
		"compensation": "₦25,000 per day",
		"deadline":     "2030-01-31",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = f.do(t, http.MethodPut, "/api/v1/tasks/draft/requirements", token, map[string]interface{}{
		"requiredSkills": "Driving, Navigation",
		"githubLink":     "not a url",
	})
	require.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do(t, http.MethodPut, "/api/v1/tasks/draft/requirements", token, map[string]interface{}{
		"requiredSkills": "Driving, Navigation",
		"requireLicense": true,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = f.do(t, http.MethodPost, "/api/v1/tasks/draft/publish", token, nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var published domain.Task
	decode(t, w, &published)
	assert.Equal(t, "Same-day parcel runs", published.Title)
	assert.Equal(t, domain.TaskStatusActive, published.Status)
	assert.Equal(t, []string{"Driving", "Navigation"}, published.Skills)
	assert.Equal(t, "25000", published.Budget.String())

	w = f.do(t, http.MethodGet, "/api/v1/tasks/draft", token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
