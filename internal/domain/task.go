package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type TaskStatus string

const (
	TaskStatusDraft     TaskStatus = "draft"
	TaskStatusActive    TaskStatus = "active"
	TaskStatusCompleted TaskStatus = "completed"
	TaskStatusCancelled TaskStatus = "cancelled"
)

func (s TaskStatus) Valid() bool {
	switch s {
	case TaskStatusDraft, TaskStatusActive, TaskStatusCompleted, TaskStatusCancelled:
		return true
	}
	return false
}

type TaskFilter string

const (
	TaskFilterAll       TaskFilter = "all"
	TaskFilterActive    TaskFilter = "active"
	TaskFilterCompleted TaskFilter = "completed"
	TaskFilterDraft     TaskFilter = "draft"
)

func ParseTaskFilter(s string) (TaskFilter, bool) {
	switch TaskFilter(s) {
	case "":
		return TaskFilterAll, true
	case TaskFilterAll, TaskFilterActive, TaskFilterCompleted, TaskFilterDraft:
		return TaskFilter(s), true
	}
	return "", false
}

// Match reports whether a task is visible under the filter.
func (f TaskFilter) Match(t *Task) bool {
	switch f {
	case TaskFilterActive:
		return t.Status == TaskStatusActive
	case TaskFilterCompleted:
		return t.Status == TaskStatusCompleted
	case TaskFilterDraft:
		return t.Status == TaskStatusDraft
	default:
		return true
	}
}

type Task struct {
	ID                uuid.UUID       `json:"id" db:"id"`
	CreatorID         uuid.UUID       `json:"creatorId" db:"creator_id"`
	Title             string          `json:"title" db:"title"`
	Description       string          `json:"description" db:"description"`
	Category          string          `json:"category" db:"category"`
	Budget            decimal.Decimal `json:"budget" db:"budget"`
	Status            TaskStatus      `json:"status" db:"status"`
	ApplicationsCount int             `json:"applicationsCount" db:"applications_count"`
	Deadline          time.Time       `json:"deadline" db:"deadline"`
	CreatedAt         time.Time       `json:"createdAt" db:"created_at"`
	UpdatedAt         *time.Time      `json:"updatedAt,omitempty" db:"updated_at"`
	CompletedAt       *time.Time      `json:"completedAt,omitempty" db:"completed_at"`
	Requirements      []string        `json:"requirements" db:"-"`
	Skills            []string        `json:"skills" db:"-"`
}

// TaskUpdate carries a partial update; nil fields are left alone.
type TaskUpdate struct {
	Title             *string          `json:"title,omitempty"`
	Description       *string          `json:"description,omitempty"`
	Category          *string          `json:"category,omitempty"`
	Budget            *decimal.Decimal `json:"budget,omitempty"`
	Status            *TaskStatus      `json:"status,omitempty"`
	ApplicationsCount *int             `json:"applicationsCount,omitempty"`
	Deadline          *time.Time       `json:"deadline,omitempty"`
	Requirements      []string         `json:"requirements,omitempty"`
	Skills            []string         `json:"skills,omitempty"`
}

type TaskStats struct {
	ActiveTasks       int `json:"activeTasks"`
	TotalApplications int `json:"totalApplications"`
	TasksCompleted    int `json:"tasksCompleted"`
	AvgCompletionRate int `json:"avgCompletionRate"`
}

type CreatorProfile struct {
	ID               uuid.UUID `json:"id"`
	Name             string    `json:"name"`
	Role             string    `json:"role"`
	Location         string    `json:"location"`
	Phone            string    `json:"phone"`
	JoinedDate       time.Time `json:"joinedDate"`
	Rating           float64   `json:"rating"`
	TotalTasksPosted int       `json:"totalTasksPosted"`
	Avatar           *string   `json:"avatar,omitempty"`
}

type CreatorDashboard struct {
	Tasks   []*Task         `json:"tasks"`
	Stats   TaskStats       `json:"stats"`
	Profile *CreatorProfile `json:"userProfile"`
}
