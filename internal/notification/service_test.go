package notification

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskhub/internal/catalog"
	"taskhub/internal/domain"
	"taskhub/internal/kvstore"
	errs "taskhub/pkg/errors"
	"taskhub/pkg/logger"
	"taskhub/pkg/validator"
)

type recordingPublisher struct {
	mu   sync.Mutex
	sent []*domain.Notification
}

func (p *recordingPublisher) Publish(_ uuid.UUID, n *domain.Notification) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sent = append(p.sent, n)
}

func newTestService(t *testing.T) (*Service, *kvstore.Memory, *recordingPublisher) {
	t.Helper()
	store := kvstore.NewMemory()
	pub := &recordingPublisher{}
	svc := NewService(store, catalog.MustLoad(), pub, logger.NewNop())
	fixed := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return fixed }
	return svc, store, pub
}

func TestList_SeedsDemoOnFirstLoad(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	user := uuid.New()

	list, err := svc.List(ctx, user)
	require.NoError(t, err)
	require.Len(t, list, len(catalog.MustLoad().DemoNotifications))

	for _, n := range list {
		assert.True(t, n.Type.Valid(), n.Type)
		assert.False(t, n.IsRead)
		assert.True(t, n.Timestamp.Before(svc.now()))
	}

	// Deleting every entry must not bring the demo feed back.
	for _, n := range list {
		require.NoError(t, svc.Delete(ctx, user, n.ID))
	}
	list, err = svc.List(ctx, user)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestList_CorruptFeedIsEmpty(t *testing.T) {
	svc, store, _ := newTestService(t)
	user := uuid.New()
	require.NoError(t, kvstore.Scoped(store, user).Set(context.Background(), storageKey, "{nope"))

	list, err := svc.List(context.Background(), user)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestMarkAsRead(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	user := uuid.New()

	list, err := svc.List(ctx, user)
	require.NoError(t, err)
	total := len(list)

	require.NoError(t, svc.MarkAsRead(ctx, user, list[0].ID))
	count, err := svc.UnreadCount(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, total-1, count)

	err = svc.MarkAsRead(ctx, user, "missing")
	assert.ErrorIs(t, err, errs.ErrNotificationNotFound)

	require.NoError(t, svc.MarkAllAsRead(ctx, user))
	count, err = svc.UnreadCount(ctx, user)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestDelete_Unknown(t *testing.T) {
	svc, _, _ := newTestService(t)
	err := svc.Delete(context.Background(), uuid.New(), "missing")
	assert.ErrorIs(t, err, errs.ErrNotificationNotFound)
}

func TestAdd_PrependsAndPublishes(t *testing.T) {
	svc, _, pub := newTestService(t)
	ctx := context.Background()
	user := uuid.New()
	amount := decimal.NewFromInt(2500)

	n, err := svc.Add(ctx, user, domain.NewNotification{
		Type:    domain.NotificationAccepted,
		Title:   "Delivery Accepted",
		Message: "You accepted ORD-2025-0042",
		OrderID: "ORD-2025-0042",
		Amount:  &amount,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, n.ID)
	assert.False(t, n.IsRead)
	assert.Equal(t, svc.now(), n.Timestamp)

	list, err := svc.List(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, n.ID, list[0].ID)
	require.NotNil(t, list[0].Amount)
	assert.True(t, amount.Equal(*list[0].Amount))

	require.Len(t, pub.sent, 1)
	assert.Equal(t, n.ID, pub.sent[0].ID)
}

func TestAdd_Validation(t *testing.T) {
	svc, _, pub := newTestService(t)
	ctx := context.Background()

	_, err := svc.Add(ctx, uuid.New(), domain.NewNotification{Type: domain.NotificationCompleted})
	var fe validator.FieldErrors
	require.ErrorAs(t, err, &fe)
	assert.Contains(t, fe, "title")
	assert.Contains(t, fe, "message")

	_, err = svc.Add(ctx, uuid.New(), domain.NewNotification{Type: "promo", Title: "t", Message: "m"})
	require.ErrorAs(t, err, &fe)
	assert.Contains(t, fe, "type")

	assert.Empty(t, pub.sent)
}
