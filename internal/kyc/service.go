// ==============================================================================
// KYC SERVICE - internal/kyc/service.go
// ==============================================================================
// Per-user tracker operations, phase submission and simulated verification
// ==============================================================================

package kyc

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"taskhub/internal/domain"
	"taskhub/internal/fileupload"
	"taskhub/internal/kvstore"
	"taskhub/internal/scheduler"
	"taskhub/pkg/config"
	errs "taskhub/pkg/errors"
	"taskhub/pkg/logger"
	"taskhub/pkg/validator"

	"github.com/google/uuid"
)

// ==============================================================================
// DEPENDENCIES
// ==============================================================================

// DocumentStore stores uploaded phase documents.
type DocumentStore interface {
	Validate(req *fileupload.UploadRequest) (string, error)
	Upload(ctx context.Context, req *fileupload.UploadRequest) (*domain.DocumentRef, error)
	Delete(ctx context.Context, ref *domain.DocumentRef) error
}

// Notifier delivers in-app notifications.
type Notifier interface {
	Add(ctx context.Context, userID uuid.UUID, n domain.NewNotification) (*domain.Notification, error)
}

// Document is a file posted with a phase form.
type Document struct {
	FileName    string
	ContentType string
	Data        []byte
}

// PhaseSubmission is everything a phase form posts at once.
type PhaseSubmission struct {
	Fields    map[string]json.RawMessage
	Documents map[string]Document
}

// ==============================================================================
// SERVICE
// ==============================================================================

type Service struct {
	store     kvstore.Store
	files     DocumentStore
	notifier  Notifier
	scheduler *scheduler.Scheduler
	uploader  *Uploader
	validator *validator.Validator
	cfg       config.KYCConfig
	logger    logger.Logger
	now       func() time.Time

	locksMu sync.Mutex
	locks   map[uuid.UUID]*sync.Mutex
}

type Option func(*Service)

// WithRand fixes the upload failure source.
func WithRand(r *rand.Rand) Option {
	return func(s *Service) { s.uploader = NewUploader(s.cfg, r) }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(
	store kvstore.Store,
	files DocumentStore,
	notifier Notifier,
	sched *scheduler.Scheduler,
	cfg config.KYCConfig,
	log logger.Logger,
	opts ...Option,
) *Service {
	s := &Service{
		store:     store,
		files:     files,
		notifier:  notifier,
		scheduler: sched,
		validator: validator.New(),
		cfg:       cfg,
		logger:    log,
		now:       time.Now,
		locks:     make(map[uuid.UUID]*sync.Mutex),
	}
	s.uploader = NewUploader(cfg, nil)
	for _, opt := range opts {
		opt(s)
	}
	return s
}

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

func (s *Service) tracker(userID uuid.UUID) *Tracker {
	return NewTracker(kvstore.Scoped(s.store, userID))
}

func verificationKey(userID uuid.UUID) string {
	return "kyc-verify:" + userID.String()
}

// ==============================================================================
// TRACKER OPERATIONS
// ==============================================================================

// State returns the user's tracker state. A verification whose delay has
// elapsed is resolved here, so restarts never strand a user in verifying.
func (s *Service) State(ctx context.Context, userID uuid.UUID) (*domain.KYCState, error) {
	unlock := s.lock(userID)
	defer unlock()
	return s.loadResolved(ctx, userID)
}

// loadResolved must be called with the user lock held. A pending
// verification that lost its timer, e.g. after a restart, is rescheduled.
func (s *Service) loadResolved(ctx context.Context, userID uuid.UUID) (*domain.KYCState, error) {
	tr := s.tracker(userID)
	state, err := tr.Load(ctx)
	if err != nil {
		return nil, err
	}
	if state.VerificationStatus != domain.VerificationVerifying || state.VerificationStartedAt == nil {
		return state, nil
	}

	remaining := state.VerificationStartedAt.Add(s.cfg.VerificationDelay).Sub(s.now())
	if remaining > 0 {
		s.scheduleVerification(userID, remaining)
		return state, nil
	}
	if err := s.markVerified(ctx, tr, state); err != nil {
		return nil, err
	}
	s.notifyVerified(ctx, userID)
	return state, nil
}

func (s *Service) SetActivePhase(ctx context.Context, userID uuid.UUID, phase *domain.KYCPhase) (*domain.KYCState, error) {
	unlock := s.lock(userID)
	defer unlock()

	state, err := s.loadResolved(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := s.tracker(userID).SaveActivePhase(ctx, phase); err != nil {
		return nil, err
	}
	state.ActivePhase = phase
	return state, nil
}

func (s *Service) SetPhaseError(ctx context.Context, userID uuid.UUID, phase domain.KYCPhase, hasError bool) (*domain.KYCState, error) {
	unlock := s.lock(userID)
	defer unlock()

	state, err := s.loadResolved(ctx, userID)
	if err != nil {
		return nil, err
	}
	state.HasError = state.HasError.With(phase, hasError)
	if err := s.tracker(userID).SaveErrors(ctx, state.HasError); err != nil {
		return nil, err
	}
	return state, nil
}

// UpdateData merges fields into one phase's data. Document fields are only
// written through SubmitPhase.
func (s *Service) UpdateData(ctx context.Context, userID uuid.UUID, phase domain.KYCPhase, fields map[string]json.RawMessage) (*domain.KYCState, error) {
	for field := range fields {
		if _, ok := slotFor(phase, field); ok {
			return nil, validator.FieldErrors{field: "Documents must be uploaded"}
		}
	}

	unlock := s.lock(userID)
	defer unlock()

	state, err := s.loadResolved(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := kvstore.Merge(phaseData(&state.Data, phase), fields); err != nil {
		return nil, validator.FieldErrors{"_global": err.Error()}
	}
	if err := s.tracker(userID).SaveData(ctx, state.Data); err != nil {
		return nil, err
	}
	return state, nil
}

// CompletePhase marks a phase done, clears its error and the active phase,
// and starts verification once all three phases are complete.
func (s *Service) CompletePhase(ctx context.Context, userID uuid.UUID, phase domain.KYCPhase) (*domain.KYCState, error) {
	unlock := s.lock(userID)
	defer unlock()

	state, err := s.loadResolved(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := s.completePhaseLocked(ctx, userID, state, phase); err != nil {
		return nil, err
	}
	return state, nil
}

func (s *Service) completePhaseLocked(ctx context.Context, userID uuid.UUID, state *domain.KYCState, phase domain.KYCPhase) error {
	tr := s.tracker(userID)

	state.Completion = state.Completion.With(phase, true)
	state.HasError = state.HasError.With(phase, false)
	state.ActivePhase = nil

	if err := tr.SaveCompletion(ctx, state.Completion); err != nil {
		return err
	}
	if err := tr.SaveErrors(ctx, state.HasError); err != nil {
		return err
	}
	if err := tr.SaveActivePhase(ctx, nil); err != nil {
		return err
	}

	s.logger.Info("KYC phase completed", map[string]interface{}{
		"event":   "kyc_phase_completed",
		"user_id": userID.String(),
		"phase":   string(phase),
	})

	if state.Completion.All() && state.VerificationStatus == domain.VerificationIdle {
		return s.beginVerification(ctx, userID, tr, state)
	}
	return nil
}

// SubmitForVerification starts the simulated review. A repeat call while a
// review is running is a no-op.
func (s *Service) SubmitForVerification(ctx context.Context, userID uuid.UUID) (*domain.KYCState, error) {
	unlock := s.lock(userID)
	defer unlock()

	state, err := s.loadResolved(ctx, userID)
	if err != nil {
		return nil, err
	}
	switch state.VerificationStatus {
	case domain.VerificationVerified:
		return nil, errs.ErrAlreadyVerified
	case domain.VerificationVerifying:
		return state, nil
	}
	if !state.Completion.All() {
		return nil, errs.ErrPhaseIncomplete
	}
	if err := s.beginVerification(ctx, userID, s.tracker(userID), state); err != nil {
		return nil, err
	}
	return state, nil
}

func (s *Service) beginVerification(ctx context.Context, userID uuid.UUID, tr *Tracker, state *domain.KYCState) error {
	if !canTransition(state.VerificationStatus, domain.VerificationVerifying) {
		return fmt.Errorf("%w: %s to %s", errs.ErrInvalidTransition, state.VerificationStatus, domain.VerificationVerifying)
	}

	started := s.now().UTC()
	if err := tr.SaveVerification(ctx, domain.VerificationVerifying, &started); err != nil {
		return err
	}
	state.VerificationStatus = domain.VerificationVerifying
	state.VerificationStartedAt = &started

	s.scheduleVerification(userID, s.cfg.VerificationDelay)

	s.logger.Info("KYC verification started", map[string]interface{}{
		"event":   "kyc_verification_started",
		"user_id": userID.String(),
		"delay":   s.cfg.VerificationDelay.String(),
	})
	return nil
}

func (s *Service) scheduleVerification(userID uuid.UUID, delay time.Duration) {
	if s.scheduler == nil {
		return
	}
	s.scheduler.Schedule(verificationKey(userID), delay, func(ctx context.Context) error {
		return s.finishVerification(ctx, userID)
	})
}

// finishVerification runs on the scheduler once the delay has passed.
func (s *Service) finishVerification(ctx context.Context, userID uuid.UUID) error {
	unlock := s.lock(userID)
	defer unlock()

	tr := s.tracker(userID)
	state, err := tr.Load(ctx)
	if err != nil {
		return err
	}
	if state.VerificationStatus != domain.VerificationVerifying {
		return nil
	}
	// The timer may belong to an earlier attempt that was reset.
	if state.VerificationStartedAt != nil {
		if remaining := state.VerificationStartedAt.Add(s.cfg.VerificationDelay).Sub(s.now()); remaining > 0 {
			s.scheduleVerification(userID, remaining)
			return nil
		}
	}
	if err := s.markVerified(ctx, tr, state); err != nil {
		return err
	}
	s.notifyVerified(ctx, userID)
	return nil
}

// markVerified always succeeds in the domain sense; only storage can fail.
func (s *Service) markVerified(ctx context.Context, tr *Tracker, state *domain.KYCState) error {
	if err := tr.SaveVerification(ctx, domain.VerificationVerified, nil); err != nil {
		return err
	}
	if err := tr.SaveLocked(ctx, false); err != nil {
		return err
	}
	state.VerificationStatus = domain.VerificationVerified
	state.VerificationStartedAt = nil
	state.AccountLocked = false
	return nil
}

func (s *Service) notifyVerified(ctx context.Context, userID uuid.UUID) {
	s.logger.Info("KYC verified", map[string]interface{}{
		"event":   "kyc_verified",
		"user_id": userID.String(),
	})
	if s.notifier == nil {
		return
	}
	_, err := s.notifier.Add(ctx, userID, domain.NewNotification{
		Type:    domain.NotificationKYCVerified,
		Title:   "Account Verified",
		Message: "Your KYC verification is complete. Your dashboard is now unlocked.",
	})
	if err != nil {
		s.logger.Warn("Failed to send KYC notification", map[string]interface{}{
			"user_id": userID.String(),
			"error":   err,
		})
	}
}

// CompleteAll unlocks the account without touching the phase flags.
func (s *Service) CompleteAll(ctx context.Context, userID uuid.UUID) (*domain.KYCState, error) {
	unlock := s.lock(userID)
	defer unlock()

	tr := s.tracker(userID)
	if err := tr.SaveLocked(ctx, false); err != nil {
		return nil, err
	}
	state, err := s.loadResolved(ctx, userID)
	if err != nil {
		return nil, err
	}
	return state, nil
}

// Reset wipes the tracker and the documents it referenced.
func (s *Service) Reset(ctx context.Context, userID uuid.UUID) (*domain.KYCState, error) {
	unlock := s.lock(userID)
	defer unlock()

	tr := s.tracker(userID)
	state, err := tr.Load(ctx)
	if err != nil {
		return nil, err
	}
	if err := tr.Clear(ctx); err != nil {
		return nil, err
	}
	if s.scheduler != nil {
		s.scheduler.Cancel(verificationKey(userID))
	}

	for _, phase := range domain.KYCPhases {
		for _, slot := range phaseSlots[phase] {
			if ref := *documentRef(&state.Data, phase, slot.field); ref != nil {
				s.deleteDocument(ctx, ref)
			}
		}
	}

	s.logger.Info("KYC reset", map[string]interface{}{
		"event":   "kyc_reset",
		"user_id": userID.String(),
	})
	return domain.NewKYCState(), nil
}

// ==============================================================================
// PHASE SUBMISSION
// ==============================================================================

// SubmitPhase runs a phase form end to end: validate, simulate the upload,
// store documents, merge data and complete the phase. A simulated failure
// flags the phase and returns ErrUploadFailed so the client can retry.
func (s *Service) SubmitPhase(ctx context.Context, userID uuid.UUID, phase domain.KYCPhase, sub PhaseSubmission) (*domain.KYCState, error) {
	state, err := s.State(ctx, userID)
	if err != nil {
		return nil, err
	}

	candidate := state.Data
	if err := kvstore.Merge(phaseData(&candidate, phase), withoutSlots(phase, sub.Fields)); err != nil {
		return nil, validator.FieldErrors{"_global": err.Error()}
	}

	incoming := make(map[string]bool, len(sub.Documents))
	fieldErrs := validator.FieldErrors{}
	for field, doc := range sub.Documents {
		slot, ok := slotFor(phase, field)
		if !ok {
			fieldErrs[field] = "Unexpected document"
			continue
		}
		req := s.uploadRequest(userID, phase, field, doc)
		ct, err := s.files.Validate(req)
		if err == nil && !contains(slot.types, ct) {
			err = errs.ErrFileTypeNotAllowed
		}
		if err != nil {
			fieldErrs[field] = "Upload failed. Click to retry"
			continue
		}
		incoming[field] = true
	}
	if verr := s.validator.Check(phaseForm(phase, &candidate, incoming)); verr != nil {
		for k, v := range verr.(validator.FieldErrors) {
			if _, exists := fieldErrs[k]; !exists {
				fieldErrs[k] = v
			}
		}
	}
	if len(fieldErrs) > 0 {
		return nil, fieldErrs
	}

	ok, err := s.uploader.Simulate(ctx, phase)
	if err != nil {
		return nil, err
	}
	if !ok {
		s.logger.Warn("KYC phase upload failed", map[string]interface{}{
			"event":   "kyc_upload_failed",
			"user_id": userID.String(),
			"phase":   string(phase),
		})
		if _, err := s.SetPhaseError(ctx, userID, phase, true); err != nil {
			return nil, err
		}
		return nil, errs.ErrUploadFailed
	}

	uploaded := make(map[string]*domain.DocumentRef, len(sub.Documents))
	for field, doc := range sub.Documents {
		ref, err := s.files.Upload(ctx, s.uploadRequest(userID, phase, field, doc))
		if err != nil {
			for _, r := range uploaded {
				s.deleteDocument(ctx, r)
			}
			return nil, fmt.Errorf("%w: %v", errs.ErrUploadFailed, err)
		}
		uploaded[field] = ref
	}

	unlock := s.lock(userID)
	defer unlock()

	// Reload: the tracker may have moved while the upload was simulated.
	state, err = s.loadResolved(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := kvstore.Merge(phaseData(&state.Data, phase), withoutSlots(phase, sub.Fields)); err != nil {
		return nil, validator.FieldErrors{"_global": err.Error()}
	}
	for field, ref := range uploaded {
		slot := documentRef(&state.Data, phase, field)
		if old := *slot; old != nil {
			s.deleteDocument(ctx, old)
		}
		*slot = ref
	}
	if err := s.tracker(userID).SaveData(ctx, state.Data); err != nil {
		return nil, err
	}
	if err := s.completePhaseLocked(ctx, userID, state, phase); err != nil {
		return nil, err
	}
	return state, nil
}

func (s *Service) uploadRequest(userID uuid.UUID, phase domain.KYCPhase, field string, doc Document) *fileupload.UploadRequest {
	return &fileupload.UploadRequest{
		UserID:      userID,
		Field:       string(phase) + "/" + field,
		FileName:    doc.FileName,
		ContentType: doc.ContentType,
		Data:        doc.Data,
	}
}

func (s *Service) deleteDocument(ctx context.Context, ref *domain.DocumentRef) {
	if err := s.files.Delete(ctx, ref); err != nil {
		s.logger.Warn("Failed to delete KYC document", map[string]interface{}{
			"storage_key": ref.Key,
			"error":       err,
		})
	}
}

func withoutSlots(phase domain.KYCPhase, fields map[string]json.RawMessage) map[string]json.RawMessage {
	out := make(map[string]json.RawMessage, len(fields))
	for k, v := range fields {
		if _, ok := slotFor(phase, k); ok {
			continue
		}
		out[k] = v
	}
	return out
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
