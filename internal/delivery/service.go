// ==============================================================================
// DELIVERY SERVICE - internal/delivery/service.go
// ==============================================================================
// Fulfiller dashboard: delivery offers, status transitions, stats and profile
// ==============================================================================

package delivery

import (
	"context"
	"fmt"
	"math"
	"time"

	"taskhub/internal/domain"
	"taskhub/internal/mockdata"
	errs "taskhub/pkg/errors"
	"taskhub/pkg/logger"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

type Repository interface {
	CreateBatch(ctx context.Context, deliveries []*domain.Delivery) error
	Update(ctx context.Context, d *domain.Delivery) error
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Delivery, error)
	FindByFulfiller(ctx context.Context, fulfillerID uuid.UUID) ([]*domain.Delivery, error)
	DeleteByFulfiller(ctx context.Context, fulfillerID uuid.UUID) error
}

type UserRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
}

type Notifier interface {
	Add(ctx context.Context, userID uuid.UUID, n domain.NewNotification) (*domain.Notification, error)
}

var transitions = map[domain.DeliveryStatus][]domain.DeliveryStatus{
	domain.DeliveryStatusPending:   {domain.DeliveryStatusActive},
	domain.DeliveryStatusActive:    {domain.DeliveryStatusCompleted},
	domain.DeliveryStatusCompleted: {},
}

func canTransition(from, to domain.DeliveryStatus) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

type Service struct {
	repo      Repository
	users     UserRepository
	notifier  Notifier
	generator *mockdata.Generator
	seedCount int
	logger    logger.Logger
	now       func() time.Time

	seeds singleflight.Group
}

func NewService(repo Repository, users UserRepository, notifier Notifier, gen *mockdata.Generator, seedCount int, log logger.Logger) *Service {
	return &Service{
		repo:      repo,
		users:     users,
		notifier:  notifier,
		generator: gen,
		seedCount: seedCount,
		logger:    log,
		now:       time.Now,
	}
}

// ==============================================================================
// QUERIES
// ==============================================================================

// List returns the fulfiller's deliveries newest first, generating offers
// for a fulfiller who has none.
func (s *Service) List(ctx context.Context, fulfillerID uuid.UUID, filter domain.DeliveryFilter) ([]*domain.Delivery, error) {
	all, err := s.all(ctx, fulfillerID)
	if err != nil {
		return nil, err
	}
	out := make([]*domain.Delivery, 0, len(all))
	for _, d := range all {
		if filter.Match(d) {
			out = append(out, d)
		}
	}
	return out, nil
}

func (s *Service) all(ctx context.Context, fulfillerID uuid.UUID) ([]*domain.Delivery, error) {
	list, err := s.repo.FindByFulfiller(ctx, fulfillerID)
	if err != nil {
		return nil, err
	}
	if len(list) > 0 {
		return list, nil
	}

	v, err, _ := s.seeds.Do(fulfillerID.String(), func() (interface{}, error) {
		list, err := s.repo.FindByFulfiller(ctx, fulfillerID)
		if err != nil {
			return nil, err
		}
		if len(list) > 0 {
			return list, nil
		}
		return s.seed(ctx, fulfillerID)
	})
	if err != nil {
		return nil, err
	}
	return v.([]*domain.Delivery), nil
}

func (s *Service) seed(ctx context.Context, fulfillerID uuid.UUID) ([]*domain.Delivery, error) {
	list := s.generator.Deliveries(fulfillerID, s.seedCount)
	if err := s.repo.CreateBatch(ctx, list); err != nil {
		return nil, errs.Wrap(err, "failed to seed deliveries")
	}
	s.logger.Info("Seeded mock deliveries", map[string]interface{}{
		"fulfiller_id": fulfillerID.String(),
		"count":        len(list),
	})
	return list, nil
}

// Refresh replaces the fulfiller's deliveries with a new generated set and
// announces the open offers.
func (s *Service) Refresh(ctx context.Context, fulfillerID uuid.UUID) ([]*domain.Delivery, error) {
	if err := s.repo.DeleteByFulfiller(ctx, fulfillerID); err != nil {
		return nil, err
	}
	list, err := s.seed(ctx, fulfillerID)
	if err != nil {
		return nil, err
	}

	available := 0
	for _, d := range list {
		if d.Status == domain.DeliveryStatusPending {
			available++
		}
	}
	if available > 0 {
		s.notify(ctx, fulfillerID, domain.NewNotification{
			Type:    domain.NotificationNewDelivery,
			Title:   "New Delivery Requests",
			Message: fmt.Sprintf("%d delivery requests are waiting near you.", available),
		})
	}
	return list, nil
}

func (s *Service) Stats(ctx context.Context, fulfillerID uuid.UUID) (domain.DeliveryStats, error) {
	list, err := s.all(ctx, fulfillerID)
	if err != nil {
		return domain.DeliveryStats{}, err
	}
	return CalculateStats(list, s.now(), s.generator.EarningsChange()), nil
}

// CalculateStats summarises deliveries created since local midnight of now.
// Rates are nil when there is nothing to average.
func CalculateStats(list []*domain.Delivery, now time.Time, earningsChange int) domain.DeliveryStats {
	y, m, d := now.Date()
	todayStart := time.Date(y, m, d, 0, 0, 0, 0, now.Location())

	stats := domain.DeliveryStats{
		TodayEarnings:  decimal.Zero,
		EarningsChange: earningsChange,
	}
	var (
		timedCount int
		timedTotal float64
	)
	for _, dl := range list {
		if dl.CreatedAt.Before(todayStart) {
			continue
		}
		stats.TodayDeliveries.Total++
		switch dl.Status {
		case domain.DeliveryStatusCompleted:
			stats.TodayDeliveries.Completed++
			stats.TodayEarnings = stats.TodayEarnings.Add(dl.Amount)
			if dl.AcceptedAt != nil && dl.CompletedAt != nil {
				timedCount++
				timedTotal += dl.CompletedAt.Sub(*dl.AcceptedAt).Minutes()
			}
		case domain.DeliveryStatusActive:
			stats.TodayDeliveries.Active++
		case domain.DeliveryStatusPending:
			stats.TodayDeliveries.Available++
		}
	}

	if total := stats.TodayDeliveries.Total; total > 0 {
		rate := int(math.Round(float64(stats.TodayDeliveries.Completed+stats.TodayDeliveries.Active) / float64(total) * 100))
		stats.AcceptanceRate = &rate
	}
	if timedCount > 0 {
		avg := int(math.Round(timedTotal / float64(timedCount)))
		stats.AvgDeliveryTime = &avg
	}
	return stats
}

func (s *Service) Profile(ctx context.Context, fulfillerID uuid.UUID) (*domain.FulfillerProfile, error) {
	user, err := s.users.FindByID(ctx, fulfillerID)
	if err != nil {
		return nil, err
	}
	return s.generator.FulfillerProfile(user), nil
}

// Dashboard loads deliveries and the profile concurrently.
func (s *Service) Dashboard(ctx context.Context, fulfillerID uuid.UUID) (*domain.FulfillerDashboard, error) {
	var (
		list    []*domain.Delivery
		profile *domain.FulfillerProfile
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		list, err = s.all(gctx, fulfillerID)
		return err
	})
	g.Go(func() error {
		var err error
		profile, err = s.Profile(gctx, fulfillerID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return &domain.FulfillerDashboard{
		Deliveries: list,
		Stats:      CalculateStats(list, s.now(), s.generator.EarningsChange()),
		Profile:    profile,
	}, nil
}

// ==============================================================================
// TRANSITIONS
// ==============================================================================

func (s *Service) Accept(ctx context.Context, fulfillerID, deliveryID uuid.UUID) (*domain.Delivery, error) {
	d, err := s.transition(ctx, fulfillerID, deliveryID, domain.DeliveryStatusActive, func(d *domain.Delivery, now time.Time) {
		d.AcceptedAt = &now
	})
	if err != nil {
		return nil, err
	}
	s.notify(ctx, fulfillerID, domain.NewNotification{
		Type:    domain.NotificationAccepted,
		Title:   "Delivery Accepted",
		Message: fmt.Sprintf("You accepted order %s. Head to %s for pickup.", d.OrderID, d.PickupLocation.Address),
		OrderID: d.OrderID,
		Amount:  &d.Amount,
	})
	return d, nil
}

func (s *Service) Complete(ctx context.Context, fulfillerID, deliveryID uuid.UUID) (*domain.Delivery, error) {
	d, err := s.transition(ctx, fulfillerID, deliveryID, domain.DeliveryStatusCompleted, func(d *domain.Delivery, now time.Time) {
		d.CompletedAt = &now
	})
	if err != nil {
		return nil, err
	}
	s.notify(ctx, fulfillerID, domain.NewNotification{
		Type:    domain.NotificationCompleted,
		Title:   "Delivery Completed",
		Message: fmt.Sprintf("Order %s was delivered to %s.", d.OrderID, d.CustomerName),
		OrderID: d.OrderID,
		Amount:  &d.Amount,
	})
	return d, nil
}

func (s *Service) transition(ctx context.Context, fulfillerID, deliveryID uuid.UUID, to domain.DeliveryStatus, stamp func(*domain.Delivery, time.Time)) (*domain.Delivery, error) {
	d, err := s.repo.FindByID(ctx, deliveryID)
	if err != nil {
		return nil, err
	}
	if d.FulfillerID != fulfillerID {
		return nil, errs.ErrDeliveryNotFound
	}
	if !canTransition(d.Status, to) {
		return nil, fmt.Errorf("%w: %s -> %s", errs.ErrInvalidTransition, d.Status, to)
	}

	from := d.Status
	d.Status = to
	stamp(d, s.now())
	if err := s.repo.Update(ctx, d); err != nil {
		return nil, err
	}

	s.logger.Info("Delivery status changed", map[string]interface{}{
		"delivery_id":  d.ID.String(),
		"order_id":     d.OrderID,
		"fulfiller_id": fulfillerID.String(),
		"from":         string(from),
		"to":           string(to),
	})
	return d, nil
}

func (s *Service) notify(ctx context.Context, userID uuid.UUID, n domain.NewNotification) {
	if s.notifier == nil {
		return
	}
	if _, err := s.notifier.Add(ctx, userID, n); err != nil {
		s.logger.Error("Failed to add delivery notification", map[string]interface{}{
			"user_id": userID.String(),
			"type":    string(n.Type),
			"error":   err,
		})
	}
}
