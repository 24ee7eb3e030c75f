// Package kyc tracks a fulfiller's progress through the three-phase KYC
// wizard and the simulated verification that follows it.
package kyc

import (
	"context"
	"fmt"
	"time"

	"taskhub/internal/domain"
	"taskhub/internal/kvstore"
)

// Storage keys. accountLocked and verificationStatus hold raw strings, the
// rest hold JSON.
const (
	keyAccountLocked      = "accountLocked"
	keyCompletion         = "kycCompletion"
	keyData               = "kycData"
	keyErrors             = "kycErrors"
	keyVerificationStatus = "verificationStatus"
	keyActivePhase        = "kycActivePhase"
	keyVerificationStart  = "verificationStartedAt"
)

var allKeys = []string{
	keyAccountLocked,
	keyCompletion,
	keyData,
	keyErrors,
	keyVerificationStatus,
	keyActivePhase,
	keyVerificationStart,
}

var statusTransitions = map[domain.VerificationStatus]map[domain.VerificationStatus]bool{
	domain.VerificationIdle: {
		domain.VerificationVerifying: true,
	},
	domain.VerificationVerifying: {
		domain.VerificationVerified: true,
		domain.VerificationIdle:     true,
	},
	domain.VerificationVerified: {},
}

func canTransition(from, to domain.VerificationStatus) bool {
	return statusTransitions[from][to]
}

// Tracker reads and writes one user's tracker state. It does no locking;
// callers serialise access per user.
type Tracker struct {
	store kvstore.Store
}

func NewTracker(store kvstore.Store) *Tracker {
	return &Tracker{store: store}
}

// Load rebuilds the tracker state from storage. Missing or unreadable values
// fall back to defaults. A locked account reports idle unless a verification
// with a recorded start time is in flight.
func (t *Tracker) Load(ctx context.Context) (*domain.KYCState, error) {
	state := domain.NewKYCState()

	locked, _, err := t.store.Get(ctx, keyAccountLocked)
	if err != nil {
		return nil, fmt.Errorf("load kyc state: %w", err)
	}
	state.AccountLocked = locked != "false"

	if _, err := kvstore.GetJSON(ctx, t.store, keyCompletion, &state.Completion); err != nil {
		return nil, err
	}
	if _, err := kvstore.GetJSON(ctx, t.store, keyErrors, &state.HasError); err != nil {
		return nil, err
	}
	var data domain.KYCData
	ok, err := kvstore.GetJSON(ctx, t.store, keyData, &data)
	if err != nil {
		return nil, err
	}
	if ok {
		state.Data = data
	}

	rawPhase, _, err := t.store.Get(ctx, keyActivePhase)
	if err != nil {
		return nil, fmt.Errorf("load kyc state: %w", err)
	}
	if p, ok := domain.ParseKYCPhase(rawPhase); ok {
		state.ActivePhase = &p
	}

	rawStatus, _, err := t.store.Get(ctx, keyVerificationStatus)
	if err != nil {
		return nil, fmt.Errorf("load kyc state: %w", err)
	}
	var startedAt *time.Time
	if raw, ok, err := t.store.Get(ctx, keyVerificationStart); err != nil {
		return nil, fmt.Errorf("load kyc state: %w", err)
	} else if ok {
		if ts, err := time.Parse(time.RFC3339Nano, raw); err == nil {
			startedAt = &ts
		}
	}

	status := domain.VerificationStatus(rawStatus)
	switch {
	case status == domain.VerificationVerifying && startedAt != nil && state.Completion.All():
		state.VerificationStatus = domain.VerificationVerifying
		state.VerificationStartedAt = startedAt
	case state.AccountLocked:
		state.VerificationStatus = domain.VerificationIdle
	case status == domain.VerificationVerified:
		state.VerificationStatus = domain.VerificationVerified
	default:
		state.VerificationStatus = domain.VerificationIdle
	}
	return state, nil
}

func (t *Tracker) SaveCompletion(ctx context.Context, c domain.PhaseFlags) error {
	return kvstore.SetJSON(ctx, t.store, keyCompletion, c)
}

func (t *Tracker) SaveErrors(ctx context.Context, e domain.PhaseFlags) error {
	return kvstore.SetJSON(ctx, t.store, keyErrors, e)
}

func (t *Tracker) SaveData(ctx context.Context, d domain.KYCData) error {
	return kvstore.SetJSON(ctx, t.store, keyData, d)
}

func (t *Tracker) SaveActivePhase(ctx context.Context, p *domain.KYCPhase) error {
	if p == nil {
		return t.store.Delete(ctx, keyActivePhase)
	}
	return t.store.Set(ctx, keyActivePhase, string(*p))
}

func (t *Tracker) SaveLocked(ctx context.Context, locked bool) error {
	v := "false"
	if locked {
		v = "true"
	}
	return t.store.Set(ctx, keyAccountLocked, v)
}

// SaveVerification writes the status and, for verifying, its start time.
func (t *Tracker) SaveVerification(ctx context.Context, status domain.VerificationStatus, startedAt *time.Time) error {
	if err := t.store.Set(ctx, keyVerificationStatus, string(status)); err != nil {
		return err
	}
	if startedAt == nil {
		return t.store.Delete(ctx, keyVerificationStart)
	}
	return t.store.Set(ctx, keyVerificationStart, startedAt.UTC().Format(time.RFC3339Nano))
}

// Clear removes every tracker key.
func (t *Tracker) Clear(ctx context.Context) error {
	return t.store.Delete(ctx, allKeys...)
}
