package kyc

import (
	"context"
	"math/rand/v2"
	"sync"
	"time"

	"taskhub/internal/domain"
	"taskhub/pkg/config"
)

// Uploader simulates the document upload round trip of each phase form:
// a fixed delay followed by a random failure.
type Uploader struct {
	mu       sync.Mutex
	rnd      *rand.Rand
	enabled  bool
	delays   map[domain.KYCPhase]time.Duration
	failRate map[domain.KYCPhase]float64
}

func NewUploader(cfg config.KYCConfig, rnd *rand.Rand) *Uploader {
	if rnd == nil {
		rnd = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &Uploader{
		rnd:     rnd,
		enabled: cfg.SimulateFailures,
		delays: map[domain.KYCPhase]time.Duration{
			domain.KYCPhaseProfile:  cfg.ProfileUploadDelay,
			domain.KYCPhaseIdentity: cfg.IdentityUploadDelay,
			domain.KYCPhaseVehicle:  cfg.VehicleUploadDelay,
		},
		failRate: map[domain.KYCPhase]float64{
			domain.KYCPhaseProfile:  cfg.ProfileFailureRate,
			domain.KYCPhaseIdentity: cfg.IdentityFailureRate,
			domain.KYCPhaseVehicle:  cfg.VehicleFailureRate,
		},
	}
}

// Simulate waits out the phase delay and reports whether the upload
// succeeded. It returns ctx.Err() if the caller goes away first.
func (u *Uploader) Simulate(ctx context.Context, phase domain.KYCPhase) (bool, error) {
	if d := u.delays[phase]; d > 0 {
		timer := time.NewTimer(d)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			return false, ctx.Err()
		}
	}

	if !u.enabled {
		return true, nil
	}
	u.mu.Lock()
	roll := u.rnd.Float64()
	u.mu.Unlock()
	return roll >= u.failRate[phase], nil
}
