// Package notification keeps each user's in-app notification feed and
// pushes new entries to connected clients.
package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"taskhub/internal/catalog"
	"taskhub/internal/domain"
	"taskhub/internal/kvstore"
	errs "taskhub/pkg/errors"
	"taskhub/pkg/logger"
	"taskhub/pkg/validator"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const storageKey = "notifications"

// Publisher fans a new notification out to live connections.
type Publisher interface {
	Publish(userID uuid.UUID, n *domain.Notification)
}

type Service struct {
	store     kvstore.Store
	catalog   *catalog.Catalog
	publisher Publisher
	validator *validator.Validator
	logger    logger.Logger
	now       func() time.Time

	mu    sync.Mutex
	locks map[uuid.UUID]*sync.Mutex
}

func NewService(store kvstore.Store, cat *catalog.Catalog, publisher Publisher, log logger.Logger) *Service {
	return &Service{
		store:     store,
		catalog:   cat,
		publisher: publisher,
		validator: validator.New(),
		logger:    log,
		now:       time.Now,
		locks:     make(map[uuid.UUID]*sync.Mutex),
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

// load returns the feed, seeding the demo notifications on first use.
func (s *Service) load(ctx context.Context, userID uuid.UUID) ([]*domain.Notification, error) {
	store := kvstore.Scoped(s.store, userID)
	raw, ok, err := store.Get(ctx, storageKey)
	if err != nil {
		return nil, fmt.Errorf("load notifications: %w", err)
	}
	if !ok {
		seeded := s.demo()
		if err := kvstore.SetJSON(ctx, store, storageKey, seeded); err != nil {
			return nil, err
		}
		return seeded, nil
	}

	var list []*domain.Notification
	if err := json.Unmarshal([]byte(raw), &list); err != nil {
		s.logger.Warn("Discarding unreadable notifications", map[string]interface{}{
			"user_id": userID.String(),
			"error":   err,
		})
		return []*domain.Notification{}, nil
	}
	return list, nil
}

func (s *Service) save(ctx context.Context, userID uuid.UUID, list []*domain.Notification) error {
	return kvstore.SetJSON(ctx, kvstore.Scoped(s.store, userID), storageKey, list)
}

func (s *Service) demo() []*domain.Notification {
	now := s.now()
	out := make([]*domain.Notification, 0, len(s.catalog.DemoNotifications))
	for i, d := range s.catalog.DemoNotifications {
		n := &domain.Notification{
			ID:        fmt.Sprintf("%d", i+1),
			Type:      domain.NotificationType(d.Type),
			Title:     d.Title,
			Message:   d.Message,
			Timestamp: now.Add(-d.Age),
			OrderID:   d.OrderID,
		}
		if d.Amount != "" {
			if amt, err := decimal.NewFromString(d.Amount); err == nil {
				n.Amount = &amt
			}
		}
		out = append(out, n)
	}
	return out
}

func (s *Service) List(ctx context.Context, userID uuid.UUID) ([]*domain.Notification, error) {
	unlock := s.lock(userID)
	defer unlock()
	return s.load(ctx, userID)
}

func (s *Service) UnreadCount(ctx context.Context, userID uuid.UUID) (int, error) {
	list, err := s.List(ctx, userID)
	if err != nil {
		return 0, err
	}
	count := 0
	for _, n := range list {
		if !n.IsRead {
			count++
		}
	}
	return count, nil
}

func (s *Service) MarkAsRead(ctx context.Context, userID uuid.UUID, id string) error {
	return s.update(ctx, userID, func(list []*domain.Notification) ([]*domain.Notification, error) {
		for _, n := range list {
			if n.ID == id {
				n.IsRead = true
				return list, nil
			}
		}
		return nil, errs.ErrNotificationNotFound
	})
}

func (s *Service) MarkAllAsRead(ctx context.Context, userID uuid.UUID) error {
	return s.update(ctx, userID, func(list []*domain.Notification) ([]*domain.Notification, error) {
		for _, n := range list {
			n.IsRead = true
		}
		return list, nil
	})
}

func (s *Service) Delete(ctx context.Context, userID uuid.UUID, id string) error {
	return s.update(ctx, userID, func(list []*domain.Notification) ([]*domain.Notification, error) {
		for i, n := range list {
			if n.ID == id {
				return append(list[:i], list[i+1:]...), nil
			}
		}
		return nil, errs.ErrNotificationNotFound
	})
}

// Add prepends a new unread notification and publishes it.
func (s *Service) Add(ctx context.Context, userID uuid.UUID, in domain.NewNotification) (*domain.Notification, error) {
	if err := s.validator.Check(&in); err != nil {
		return nil, err
	}
	if !in.Type.Valid() {
		return nil, validator.FieldErrors{"type": "Unknown notification type"}
	}

	n := &domain.Notification{
		ID:        uuid.New().String(),
		Type:      in.Type,
		Title:     in.Title,
		Message:   in.Message,
		Timestamp: s.now(),
		OrderID:   in.OrderID,
		Amount:    in.Amount,
	}
	err := s.update(ctx, userID, func(list []*domain.Notification) ([]*domain.Notification, error) {
		return append([]*domain.Notification{n}, list...), nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Notification Sent", map[string]interface{}{
		"notification_id": n.ID,
		"user_id":         userID.String(),
		"type":            string(n.Type),
	})
	if s.publisher != nil {
		s.publisher.Publish(userID, n)
	}
	return n, nil
}

func (s *Service) update(ctx context.Context, userID uuid.UUID, fn func([]*domain.Notification) ([]*domain.Notification, error)) error {
	unlock := s.lock(userID)
	defer unlock()

	list, err := s.load(ctx, userID)
	if err != nil {
		return err
	}
	list, err = fn(list)
	if err != nil {
		return err
	}
	return s.save(ctx, userID, list)
}
