// ==============================================================================
// TASK SERVICE - internal/task/service.go
// ==============================================================================
// Creator dashboard: task CRUD, mock seeding, stats and profile
// ==============================================================================

package task

import (
	"context"
	"math"
	"time"

	"taskhub/internal/domain"
	"taskhub/internal/mockdata"
	errs "taskhub/pkg/errors"
	"taskhub/pkg/logger"
	"taskhub/pkg/validator"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

type Repository interface {
	Create(ctx context.Context, task *domain.Task) error
	CreateBatch(ctx context.Context, tasks []*domain.Task) error
	Update(ctx context.Context, task *domain.Task) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Task, error)
	FindByCreator(ctx context.Context, creatorID uuid.UUID) ([]*domain.Task, error)
	DeleteByCreator(ctx context.Context, creatorID uuid.UUID) error
}

type UserRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
}

type Service struct {
	repo      Repository
	users     UserRepository
	generator *mockdata.Generator
	seedCount int
	validator *validator.Validator
	logger    logger.Logger
	now       func() time.Time

	seeds singleflight.Group
}

func NewService(repo Repository, users UserRepository, gen *mockdata.Generator, seedCount int, log logger.Logger) *Service {
	return &Service{
		repo:      repo,
		users:     users,
		generator: gen,
		seedCount: seedCount,
		validator: validator.New(),
		logger:    log,
		now:       time.Now,
	}
}

type CreateTaskRequest struct {
	Title        string            `json:"title" validate:"required,max=200"`
	Description  string            `json:"description" validate:"max=5000"`
	Category     string            `json:"category" validate:"required"`
	Budget       decimal.Decimal   `json:"budget" validate:"money"`
	Status       domain.TaskStatus `json:"status" validate:"omitempty,oneof=draft active"`
	Deadline     time.Time         `json:"deadline" validate:"required"`
	Requirements []string          `json:"requirements"`
	Skills       []string          `json:"skills"`
}

// ==============================================================================
// QUERIES
// ==============================================================================

// List returns the creator's tasks newest first. A creator with no tasks gets
// a freshly generated set.
func (s *Service) List(ctx context.Context, creatorID uuid.UUID, filter domain.TaskFilter) ([]*domain.Task, error) {
	tasks, err := s.all(ctx, creatorID)
	if err != nil {
		return nil, err
	}
	out := make([]*domain.Task, 0, len(tasks))
	for _, t := range tasks {
		if filter.Match(t) {
			out = append(out, t)
		}
	}
	return out, nil
}

func (s *Service) all(ctx context.Context, creatorID uuid.UUID) ([]*domain.Task, error) {
	tasks, err := s.repo.FindByCreator(ctx, creatorID)
	if err != nil {
		return nil, err
	}
	if len(tasks) > 0 {
		return tasks, nil
	}

	// Dashboards load the list and stats together; only one of them seeds.
	v, err, _ := s.seeds.Do(creatorID.String(), func() (interface{}, error) {
		tasks, err := s.repo.FindByCreator(ctx, creatorID)
		if err != nil {
			return nil, err
		}
		if len(tasks) > 0 {
			return tasks, nil
		}
		return s.seed(ctx, creatorID)
	})
	if err != nil {
		return nil, err
	}
	return v.([]*domain.Task), nil
}

func (s *Service) seed(ctx context.Context, creatorID uuid.UUID) ([]*domain.Task, error) {
	tasks := s.generator.Tasks(creatorID, s.seedCount)
	if err := s.repo.CreateBatch(ctx, tasks); err != nil {
		return nil, errs.Wrap(err, "failed to seed tasks")
	}
	s.logger.Info("Seeded mock tasks", map[string]interface{}{
		"creator_id": creatorID.String(),
		"count":      len(tasks),
	})
	return tasks, nil
}

// Refresh discards the creator's tasks and generates a new set.
func (s *Service) Refresh(ctx context.Context, creatorID uuid.UUID) ([]*domain.Task, error) {
	if err := s.repo.DeleteByCreator(ctx, creatorID); err != nil {
		return nil, err
	}
	return s.seed(ctx, creatorID)
}

func (s *Service) Stats(ctx context.Context, creatorID uuid.UUID) (domain.TaskStats, error) {
	tasks, err := s.all(ctx, creatorID)
	if err != nil {
		return domain.TaskStats{}, err
	}
	return CalculateStats(tasks), nil
}

// CalculateStats derives dashboard counters. The completion rate ignores
// drafts and is 0 when nothing has been posted.
func CalculateStats(tasks []*domain.Task) domain.TaskStats {
	var stats domain.TaskStats
	posted := 0
	for _, t := range tasks {
		stats.TotalApplications += t.ApplicationsCount
		switch t.Status {
		case domain.TaskStatusActive:
			stats.ActiveTasks++
		case domain.TaskStatusCompleted:
			stats.TasksCompleted++
		}
		if t.Status != domain.TaskStatusDraft {
			posted++
		}
	}
	if posted > 0 {
		stats.AvgCompletionRate = int(math.Round(float64(stats.TasksCompleted) / float64(posted) * 100))
	}
	return stats
}

func (s *Service) Profile(ctx context.Context, creatorID uuid.UUID) (*domain.CreatorProfile, error) {
	user, err := s.users.FindByID(ctx, creatorID)
	if err != nil {
		return nil, err
	}
	tasks, err := s.all(ctx, creatorID)
	if err != nil {
		return nil, err
	}
	return s.generator.CreatorProfile(user, postedCount(tasks)), nil
}

// Dashboard loads tasks and the user concurrently.
func (s *Service) Dashboard(ctx context.Context, creatorID uuid.UUID) (*domain.CreatorDashboard, error) {
	var (
		tasks []*domain.Task
		user  *domain.User
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		tasks, err = s.all(gctx, creatorID)
		return err
	})
	g.Go(func() error {
		var err error
		user, err = s.users.FindByID(gctx, creatorID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return &domain.CreatorDashboard{
		Tasks:   tasks,
		Stats:   CalculateStats(tasks),
		Profile: s.generator.CreatorProfile(user, postedCount(tasks)),
	}, nil
}

func postedCount(tasks []*domain.Task) int {
	n := 0
	for _, t := range tasks {
		if t.Status != domain.TaskStatusDraft {
			n++
		}
	}
	return n
}

// ==============================================================================
// COMMANDS
// ==============================================================================

func (s *Service) Create(ctx context.Context, creatorID uuid.UUID, req *CreateTaskRequest) (*domain.Task, error) {
	if err := s.validator.Check(req); err != nil {
		return nil, err
	}
	status := req.Status
	if status == "" {
		status = domain.TaskStatusActive
	}

	task := &domain.Task{
		ID:           uuid.New(),
		CreatorID:    creatorID,
		Title:        req.Title,
		Description:  req.Description,
		Category:     req.Category,
		Budget:       req.Budget,
		Status:       status,
		Deadline:     req.Deadline,
		CreatedAt:    s.now(),
		Requirements: nonNil(req.Requirements),
		Skills:       nonNil(req.Skills),
	}
	if err := s.repo.Create(ctx, task); err != nil {
		return nil, err
	}

	s.logger.Info("Task created", map[string]interface{}{
		"task_id":    task.ID.String(),
		"creator_id": creatorID.String(),
		"category":   task.Category,
		"status":     string(task.Status),
	})
	return task, nil
}

// Update applies a partial update to one of the creator's tasks.
func (s *Service) Update(ctx context.Context, creatorID, taskID uuid.UUID, upd *domain.TaskUpdate) (*domain.Task, error) {
	task, err := s.owned(ctx, creatorID, taskID)
	if err != nil {
		return nil, err
	}

	if upd.Title != nil {
		if *upd.Title == "" {
			return nil, validator.FieldErrors{"title": "This field is required"}
		}
		task.Title = *upd.Title
	}
	if upd.Description != nil {
		task.Description = *upd.Description
	}
	if upd.Category != nil {
		task.Category = *upd.Category
	}
	if upd.Budget != nil {
		if !upd.Budget.IsPositive() {
			return nil, validator.FieldErrors{"budget": "Must be a positive amount"}
		}
		task.Budget = *upd.Budget
	}
	if upd.Status != nil {
		if !upd.Status.Valid() {
			return nil, validator.FieldErrors{"status": "Unknown status"}
		}
		task.Status = *upd.Status
	}
	if upd.ApplicationsCount != nil {
		if *upd.ApplicationsCount < 0 {
			return nil, validator.FieldErrors{"applicationsCount": "Must not be negative"}
		}
		task.ApplicationsCount = *upd.ApplicationsCount
	}
	if upd.Deadline != nil {
		task.Deadline = *upd.Deadline
	}
	if upd.Requirements != nil {
		task.Requirements = upd.Requirements
	}
	if upd.Skills != nil {
		task.Skills = upd.Skills
	}

	now := s.now()
	task.UpdatedAt = &now
	if task.Status == domain.TaskStatusCompleted && task.CompletedAt == nil {
		task.CompletedAt = &now
	}
	if err := s.repo.Update(ctx, task); err != nil {
		return nil, err
	}
	return task, nil
}

func (s *Service) Delete(ctx context.Context, creatorID, taskID uuid.UUID) error {
	if _, err := s.owned(ctx, creatorID, taskID); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, taskID); err != nil {
		return err
	}
	s.logger.Info("Task deleted", map[string]interface{}{
		"task_id":    taskID.String(),
		"creator_id": creatorID.String(),
	})
	return nil
}

// owned hides other creators' tasks behind ErrTaskNotFound.
func (s *Service) owned(ctx context.Context, creatorID, taskID uuid.UUID) (*domain.Task, error) {
	task, err := s.repo.FindByID(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if task.CreatorID != creatorID {
		return nil, errs.ErrTaskNotFound
	}
	return task, nil
}

func nonNil(list []string) []string {
	if list == nil {
		return []string{}
	}
	return list
}
