package notification

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskhub/internal/domain"
	"taskhub/pkg/logger"
)

func startHubServer(t *testing.T, hub *Hub, userID uuid.UUID) *websocket.Conn {
	t.Helper()
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		hub.Serve(context.Background(), userID, conn)
	}))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func TestHub_PublishReachesConnectedUser(t *testing.T) {
	hub := NewHub(logger.NewNop())
	user := uuid.New()
	conn := startHubServer(t, hub, user)

	require.Eventually(t, func() bool { return hub.Connections(user) == 1 }, time.Second, 5*time.Millisecond)

	hub.Publish(uuid.New(), &domain.Notification{ID: "other"})
	hub.Publish(user, &domain.Notification{ID: "n-1", Type: domain.NotificationCompleted, Title: "Done"})

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg Message
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "notification", msg.Type)
	require.NotNil(t, msg.Notification)
	assert.Equal(t, "n-1", msg.Notification.ID)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, hub.Shutdown(ctx))
	assert.Zero(t, hub.Connections(user))
}

func TestHub_ClientDisconnectUnregisters(t *testing.T) {
	hub := NewHub(logger.NewNop())
	user := uuid.New()
	conn := startHubServer(t, hub, user)

	require.Eventually(t, func() bool { return hub.Connections(user) == 1 }, time.Second, 5*time.Millisecond)
	require.NoError(t, conn.Close())
	assert.Eventually(t, func() bool { return hub.Connections(user) == 0 }, time.Second, 5*time.Millisecond)
}
