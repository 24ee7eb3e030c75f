// Package creatorkyc persists the task creator's five-step verification
// wizard.
package creatorkyc

import (
	"context"
	"encoding/json"
	"strconv"
	"sync"
	"time"

	"taskhub/internal/domain"
	"taskhub/internal/fileupload"
	"taskhub/internal/kvstore"
	errs "taskhub/pkg/errors"
	"taskhub/pkg/logger"
	"taskhub/pkg/validator"

	"github.com/google/uuid"
)

const (
	keyData               = "creator_kyc_data"
	keyStep               = "creator_kyc_current_step"
	keyStatus             = "creator_kyc_status"
	keyVerificationStatus = "creator_kyc_verification_status"
)

const (
	StatusCompleted = "completed"
	StatusPending   = "pending"
)

// documentFields are the form fields that hold uploaded files.
var documentFields = map[string]func(*domain.CreatorKYCForm) **domain.DocumentRef{
	"profilePhoto":   func(f *domain.CreatorKYCForm) **domain.DocumentRef { return &f.ProfilePhoto },
	"frontDocument":  func(f *domain.CreatorKYCForm) **domain.DocumentRef { return &f.FrontDocument },
	"backDocument":   func(f *domain.CreatorKYCForm) **domain.DocumentRef { return &f.BackDocument },
	"proofOfAddress": func(f *domain.CreatorKYCForm) **domain.DocumentRef { return &f.ProofOfAddress },
}

type DocumentStore interface {
	Upload(ctx context.Context, req *fileupload.UploadRequest) (*domain.DocumentRef, error)
	Delete(ctx context.Context, ref *domain.DocumentRef) error
}

type Service struct {
	store       kvstore.Store
	files       DocumentStore
	validator   *validator.Validator
	reviewDelay time.Duration
	logger      logger.Logger

	mu    sync.Mutex
	locks map[uuid.UUID]*sync.Mutex
}

func NewService(store kvstore.Store, files DocumentStore, reviewDelay time.Duration, log logger.Logger) *Service {
	return &Service{
		store:       store,
		files:       files,
		validator:   validator.New(),
		reviewDelay: reviewDelay,
		logger:      log,
		locks:       make(map[uuid.UUID]*sync.Mutex),
	}
}

func (s *Service) lock(userID uuid.UUID) func() {
	s.mu.Lock()
	l, ok := s.locks[userID]
	if !ok {
		l = &sync.Mutex{}
		s.locks[userID] = l
	}
	s.mu.Unlock()
	l.Lock()
	return l.Unlock
}

func progress(step int) *domain.CreatorKYCProgress {
	return &domain.CreatorKYCProgress{
		CurrentStep: step,
		Progress:    float64(step) / domain.CreatorKYCLastStep * 100,
	}
}

func clampStep(step int) int {
	if step < domain.CreatorKYCFirstStep {
		return domain.CreatorKYCFirstStep
	}
	if step > domain.CreatorKYCLastStep {
		return domain.CreatorKYCLastStep
	}
	return step
}

func (s *Service) load(ctx context.Context, userID uuid.UUID) (*domain.CreatorKYCProgress, error) {
	store := kvstore.Scoped(s.store, userID)

	step := domain.CreatorKYCFirstStep
	raw, ok, err := store.Get(ctx, keyStep)
	if err != nil {
		return nil, err
	}
	if ok {
		if n, err := strconv.Atoi(raw); err == nil {
			step = clampStep(n)
		}
	}

	p := progress(step)
	if _, err := kvstore.GetJSON(ctx, store, keyData, &p.FormData); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *Service) save(ctx context.Context, userID uuid.UUID, p *domain.CreatorKYCProgress) error {
	store := kvstore.Scoped(s.store, userID)
	if err := kvstore.SetJSON(ctx, store, keyData, p.FormData); err != nil {
		return err
	}
	return store.Set(ctx, keyStep, strconv.Itoa(p.CurrentStep))
}

func (s *Service) Get(ctx context.Context, userID uuid.UUID) (*domain.CreatorKYCProgress, error) {
	unlock := s.lock(userID)
	defer unlock()
	return s.load(ctx, userID)
}

// UpdateFields merges fields into the saved form. Document fields are set
// through AttachDocument only.
func (s *Service) UpdateFields(ctx context.Context, userID uuid.UUID, fields map[string]json.RawMessage) (*domain.CreatorKYCProgress, error) {
	for name := range fields {
		if _, ok := documentFields[name]; ok {
			return nil, validator.FieldErrors{name: "Upload the file instead"}
		}
	}

	unlock := s.lock(userID)
	defer unlock()

	p, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := kvstore.Merge(&p.FormData, fields); err != nil {
		return nil, validator.FieldErrors{"_global": err.Error()}
	}
	if err := s.validator.Check(&p.FormData); err != nil {
		return nil, err
	}
	if err := s.save(ctx, userID, p); err != nil {
		return nil, err
	}
	return p, nil
}

// AttachDocument uploads a file into one of the form's document fields,
// replacing whatever was there.
func (s *Service) AttachDocument(ctx context.Context, userID uuid.UUID, field, fileName, contentType string, data []byte) (*domain.CreatorKYCProgress, error) {
	slot, ok := documentFields[field]
	if !ok {
		return nil, validator.FieldErrors{field: "Unexpected document"}
	}

	ref, err := s.files.Upload(ctx, &fileupload.UploadRequest{
		UserID:      userID,
		Field:       "creator/" + field,
		FileName:    fileName,
		ContentType: contentType,
		Data:        data,
	})
	if err != nil {
		return nil, err
	}

	unlock := s.lock(userID)
	defer unlock()

	p, err := s.load(ctx, userID)
	if err != nil {
		_ = s.files.Delete(ctx, ref)
		return nil, err
	}
	target := slot(&p.FormData)
	old := *target
	*target = ref
	if err := s.save(ctx, userID, p); err != nil {
		_ = s.files.Delete(ctx, ref)
		return nil, err
	}
	if old != nil {
		s.deleteDocument(ctx, old)
	}
	return p, nil
}

func (s *Service) Next(ctx context.Context, userID uuid.UUID) (*domain.CreatorKYCProgress, error) {
	return s.move(ctx, userID, func(step int) int { return step + 1 })
}

func (s *Service) Prev(ctx context.Context, userID uuid.UUID) (*domain.CreatorKYCProgress, error) {
	return s.move(ctx, userID, func(step int) int { return step - 1 })
}

func (s *Service) GoTo(ctx context.Context, userID uuid.UUID, step int) (*domain.CreatorKYCProgress, error) {
	if step < domain.CreatorKYCFirstStep || step > domain.CreatorKYCLastStep {
		return nil, errs.ErrInvalidStep
	}
	return s.move(ctx, userID, func(int) int { return step })
}

func (s *Service) move(ctx context.Context, userID uuid.UUID, next func(int) int) (*domain.CreatorKYCProgress, error) {
	unlock := s.lock(userID)
	defer unlock()

	p, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	step := clampStep(next(p.CurrentStep))
	p.CurrentStep = step
	p.Progress = progress(step).Progress
	if err := kvstore.Scoped(s.store, userID).Set(ctx, keyStep, strconv.Itoa(step)); err != nil {
		return nil, err
	}
	return p, nil
}

// Reset clears the form and its documents and returns to step one.
func (s *Service) Reset(ctx context.Context, userID uuid.UUID) (*domain.CreatorKYCProgress, error) {
	unlock := s.lock(userID)
	defer unlock()

	p, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := kvstore.Scoped(s.store, userID).Delete(ctx, keyData, keyStep); err != nil {
		return nil, err
	}
	for _, slot := range documentFields {
		if ref := *slot(&p.FormData); ref != nil {
			s.deleteDocument(ctx, ref)
		}
	}
	return progress(domain.CreatorKYCFirstStep), nil
}

// Complete simulates the review round trip, then marks the wizard done and
// drops the draft form. The uploaded documents stay in storage.
func (s *Service) Complete(ctx context.Context, userID uuid.UUID) (*domain.CreatorKYCStatus, error) {
	timer := time.NewTimer(s.reviewDelay)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	unlock := s.lock(userID)
	defer unlock()

	store := kvstore.Scoped(s.store, userID)
	if err := store.Set(ctx, keyStatus, StatusCompleted); err != nil {
		return nil, err
	}
	if _, ok, err := store.Get(ctx, keyVerificationStatus); err != nil {
		return nil, err
	} else if !ok {
		if err := store.Set(ctx, keyVerificationStatus, StatusPending); err != nil {
			return nil, err
		}
	}
	if err := store.Delete(ctx, keyData, keyStep); err != nil {
		return nil, err
	}

	s.logger.Info("Creator KYC completed", map[string]interface{}{
		"event":   "creator_kyc_completed",
		"user_id": userID.String(),
	})
	return s.status(ctx, store)
}

func (s *Service) Status(ctx context.Context, userID uuid.UUID) (*domain.CreatorKYCStatus, error) {
	return s.status(ctx, kvstore.Scoped(s.store, userID))
}

// Completed reports whether the creator dashboard is unlocked.
func (s *Service) Completed(ctx context.Context, userID uuid.UUID) (bool, error) {
	st, err := s.Status(ctx, userID)
	if err != nil {
		return false, err
	}
	return st.Status == StatusCompleted, nil
}

func (s *Service) status(ctx context.Context, store kvstore.Store) (*domain.CreatorKYCStatus, error) {
	out := &domain.CreatorKYCStatus{Status: StatusPending, VerificationStatus: StatusPending}

	status, _, err := store.Get(ctx, keyStatus)
	if err != nil {
		return nil, err
	}
	if status == StatusCompleted {
		out.Status = StatusCompleted
	}
	verification, ok, err := store.Get(ctx, keyVerificationStatus)
	if err != nil {
		return nil, err
	}
	if ok && verification != "" {
		out.VerificationStatus = verification
	}
	return out, nil
}

func (s *Service) deleteDocument(ctx context.Context, ref *domain.DocumentRef) {
	if err := s.files.Delete(ctx, ref); err != nil {
		s.logger.Warn("Failed to delete creator KYC document", map[string]interface{}{
			"storage_key": ref.Key,
			"error":       err,
		})
	}
}
