// Package taskdraft keeps the create-task wizard's in-progress form between
// pages and publishes it as a task.
package taskdraft

import (
	"context"
	"regexp"
	"strings"
	"sync"
	"time"

	"taskhub/internal/catalog"
	"taskhub/internal/domain"
	"taskhub/internal/kvstore"
	"taskhub/internal/task"
	errs "taskhub/pkg/errors"
	"taskhub/pkg/logger"
	"taskhub/pkg/validator"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const storageKey = "taskFormData"

const defaultDeadline = 30 * 24 * time.Hour

var amountRe = regexp.MustCompile(`\d[\d,]*(\.\d+)?`)

type TaskCreator interface {
	Create(ctx context.Context, creatorID uuid.UUID, req *task.CreateTaskRequest) (*domain.Task, error)
}

type DetailsRequest struct {
	Title       string `json:"title" validate:"required,max=200"`
	Description string `json:"description" validate:"max=5000"`
	Duration    string `json:"duration"`
	WorkMode    string `json:"workMode"`
}

type CompensationRequest struct {
	Compensation    string `json:"compensation"`
	Deadline        string `json:"deadline"`
	ExperienceLevel string `json:"experienceLevel"`
}

type RequirementsRequest struct {
	RequiredSkills       string `json:"requiredSkills"`
	RequireCV            bool   `json:"requireCV"`
	ResumeLink           string `json:"resumeLink" validate:"omitempty,url"`
	PortfolioLink        string `json:"portfolioLink" validate:"omitempty,url"`
	GithubLink           string `json:"githubLink" validate:"omitempty,url"`
	LinkedinLink         bool   `json:"linkedinLink"`
	BehanceLink          string `json:"behanceLink" validate:"omitempty,url"`
	OtherCertLink        string `json:"otherCertLink" validate:"omitempty,url"`
	RequireCoverLetter   bool   `json:"requireCoverLetter"`
	RequireQuestionnaire bool   `json:"requireQuestionnaire"`
	RequireLicense       bool   `json:"requireLicense"`
}

type Service struct {
	store     kvstore.Store
	catalog   *catalog.Catalog
	tasks     TaskCreator
	validator *validator.Validator
	logger    logger.Logger
	now       func() time.Time

	locksMu sync.Mutex
	locks   map[uuid.UUID]*sync.Mutex
}

func NewService(store kvstore.Store, cat *catalog.Catalog, tasks TaskCreator, log logger.Logger) *Service {
	return &Service{
		store:     store,
		catalog:   cat,
		tasks:     tasks,
		validator: validator.New(),
		logger:    log,
		now:       time.Now,
		locks:     make(map[uuid.UUID]*sync.Mutex),
	}
}

// lock serialises draft writes per user so concurrent page saves never
// overwrite each other.
func (s *Service) lock(userID uuid.UUID) func() {
	s.locksMu.Lock()
	mu, ok := s.locks[userID]
	if !ok {
		mu = &sync.Mutex{}
		s.locks[userID] = mu
	}
	s.locksMu.Unlock()

	mu.Lock()
	return mu.Unlock
}

// Start discards any previous draft and opens a new one for category.
func (s *Service) Start(ctx context.Context, userID uuid.UUID, category string) (*domain.TaskDraft, error) {
	entry, ok := s.catalog.Category(category)
	if !ok {
		return nil, errs.ErrInvalidCategory
	}
	unlock := s.lock(userID)
	defer unlock()

	store := kvstore.Scoped(s.store, userID)
	if err := store.Delete(ctx, storageKey); err != nil {
		return nil, err
	}
	draft := &domain.TaskDraft{Category: entry.ID, CategoryTitle: entry.Title}
	if err := kvstore.SetJSON(ctx, store, storageKey, draft); err != nil {
		return nil, err
	}
	return draft, nil
}

// Get returns ErrDraftNotFound when no draft is open or the saved one is
// unreadable.
func (s *Service) Get(ctx context.Context, userID uuid.UUID) (*domain.TaskDraft, error) {
	var draft domain.TaskDraft
	ok, err := kvstore.GetJSON(ctx, kvstore.Scoped(s.store, userID), storageKey, &draft)
	if err != nil {
		return nil, err
	}
	if !ok || draft.Category == "" {
		return nil, errs.ErrDraftNotFound
	}
	return &draft, nil
}

func (s *Service) SaveDetails(ctx context.Context, userID uuid.UUID, req *DetailsRequest) (*domain.TaskDraft, error) {
	if err := s.validator.Check(req); err != nil {
		return nil, err
	}
	return s.update(ctx, userID, func(d *domain.TaskDraft) {
		d.Title = strings.TrimSpace(req.Title)
		d.Description = req.Description
		d.Duration = req.Duration
		d.WorkMode = req.WorkMode
	})
}

func (s *Service) SaveCompensation(ctx context.Context, userID uuid.UUID, req *CompensationRequest) (*domain.TaskDraft, error) {
	if req.Deadline != "" {
		if _, err := parseDeadline(req.Deadline); err != nil {
			return nil, validator.FieldErrors{"deadline": "Use dd/mm/yyyy"}
		}
	}
	return s.update(ctx, userID, func(d *domain.TaskDraft) {
		d.Compensation = req.Compensation
		d.Deadline = req.Deadline
		d.ExperienceLevel = req.ExperienceLevel
	})
}

func (s *Service) SaveRequirements(ctx context.Context, userID uuid.UUID, req *RequirementsRequest) (*domain.TaskDraft, error) {
	if err := s.validator.Check(req); err != nil {
		return nil, err
	}
	return s.update(ctx, userID, func(d *domain.TaskDraft) {
		d.RequiredSkills = req.RequiredSkills
		d.RequireCV = req.RequireCV
		d.ResumeLink = req.ResumeLink
		d.PortfolioLink = req.PortfolioLink
		d.GithubLink = req.GithubLink
		d.LinkedinLink = req.LinkedinLink
		d.BehanceLink = req.BehanceLink
		d.OtherCertLink = req.OtherCertLink
		d.RequireCoverLetter = req.RequireCoverLetter
		d.RequireQuestionnaire = req.RequireQuestionnaire
		d.RequireLicense = req.RequireLicense
	})
}

func (s *Service) Cancel(ctx context.Context, userID uuid.UUID) error {
	unlock := s.lock(userID)
	defer unlock()
	return s.clear(ctx, userID)
}

func (s *Service) clear(ctx context.Context, userID uuid.UUID) error {
	return kvstore.Scoped(s.store, userID).Delete(ctx, storageKey)
}

// Publish turns the draft into an active task and clears it.
func (s *Service) Publish(ctx context.Context, userID uuid.UUID) (*domain.Task, error) {
	unlock := s.lock(userID)
	defer unlock()

	draft, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	fieldErrs := validator.FieldErrors{}
	if draft.Title == "" {
		fieldErrs["title"] = "Please enter a task title"
	}
	budget, ok := parseAmount(draft.Compensation)
	if !ok {
		fieldErrs["compensation"] = "Enter an amount"
	}
	deadline := s.now().Add(defaultDeadline)
	if draft.Deadline != "" {
		if deadline, err = parseDeadline(draft.Deadline); err != nil {
			fieldErrs["deadline"] = "Use dd/mm/yyyy"
		}
	}
	if len(fieldErrs) > 0 {
		return nil, fieldErrs
	}

	created, err := s.tasks.Create(ctx, userID, &task.CreateTaskRequest{
		Title:        draft.Title,
		Description:  draft.Description,
		Category:     draft.Category,
		Budget:       budget,
		Status:       domain.TaskStatusActive,
		Deadline:     deadline,
		Requirements: requirements(draft),
		Skills:       splitSkills(draft.RequiredSkills),
	})
	if err != nil {
		return nil, err
	}
	if err := s.clear(ctx, userID); err != nil {
		s.logger.Warn("Failed to clear published draft", map[string]interface{}{
			"user_id": userID.String(),
			"error":   err,
		})
	}
	return created, nil
}

func (s *Service) update(ctx context.Context, userID uuid.UUID, fn func(*domain.TaskDraft)) (*domain.TaskDraft, error) {
	unlock := s.lock(userID)
	defer unlock()

	draft, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	fn(draft)
	if err := kvstore.SetJSON(ctx, kvstore.Scoped(s.store, userID), storageKey, draft); err != nil {
		return nil, err
	}
	return draft, nil
}

// parseAmount takes the first number in free text such as
// "₦500,000-₦800,000/month".
func parseAmount(text string) (decimal.Decimal, bool) {
	m := amountRe.FindString(text)
	if m == "" {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(strings.ReplaceAll(m, ",", ""))
	if err != nil || !d.IsPositive() {
		return decimal.Zero, false
	}
	return d, true
}

func parseDeadline(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	t, err := time.Parse("02/01/2006", s)
	if err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", s)
}

func splitSkills(text string) []string {
	var out []string
	for _, part := range strings.Split(text, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func requirements(d *domain.TaskDraft) []string {
	var out []string
	add := func(on bool, label string) {
		if on {
			out = append(out, label)
		}
	}
	add(d.RequireCV, "CV or resume")
	add(d.ResumeLink != "", "Resume link: "+d.ResumeLink)
	add(d.PortfolioLink != "", "Portfolio: "+d.PortfolioLink)
	add(d.GithubLink != "", "GitHub profile: "+d.GithubLink)
	add(d.LinkedinLink, "LinkedIn profile")
	add(d.BehanceLink != "", "Behance profile: "+d.BehanceLink)
	add(d.OtherCertLink != "", "Certification: "+d.OtherCertLink)
	add(d.RequireCoverLetter, "Cover letter")
	add(d.RequireQuestionnaire, "Screening questionnaire")
	add(d.RequireLicense, "Professional license")
	return out
}
