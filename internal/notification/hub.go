package notification

import (
	"context"
	"sync"
	"time"

	"taskhub/internal/domain"
	"taskhub/pkg/logger"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pingPeriod = 30 * time.Second
	sendBuffer = 16
)

// Message is the frame pushed to websocket clients.
type Message struct {
	Type         string               `json:"type"`
	Notification *domain.Notification `json:"notification"`
}

type client struct {
	conn *websocket.Conn
	send chan *domain.Notification
	done chan struct{}
	once sync.Once
}

func (c *client) stop() {
	c.once.Do(func() { close(c.done) })
}

// Hub tracks live websocket connections per user.
type Hub struct {
	mu      sync.RWMutex
	clients map[uuid.UUID]map[*client]struct{}
	closed  bool
	wg      sync.WaitGroup
	logger  logger.Logger
}

func NewHub(log logger.Logger) *Hub {
	return &Hub{
		clients: make(map[uuid.UUID]map[*client]struct{}),
		logger:  log,
	}
}

// Publish never blocks; a client whose buffer is full misses the message.
func (h *Hub) Publish(userID uuid.UUID, n *domain.Notification) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients[userID] {
		select {
		case c.send <- n:
		default:
			h.logger.Warn("Dropping notification for slow client", map[string]interface{}{
				"user_id":         userID.String(),
				"notification_id": n.ID,
			})
		}
	}
}

// Connections reports how many sockets a user has open.
func (h *Hub) Connections(userID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID])
}

// Serve pumps notifications to conn until the peer goes away, ctx ends or
// the hub shuts down. It closes conn before returning.
func (h *Hub) Serve(ctx context.Context, userID uuid.UUID, conn *websocket.Conn) {
	c := &client{
		conn: conn,
		send: make(chan *domain.Notification, sendBuffer),
		done: make(chan struct{}),
	}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		_ = conn.Close()
		return
	}
	if h.clients[userID] == nil {
		h.clients[userID] = make(map[*client]struct{})
	}
	h.clients[userID][c] = struct{}{}
	h.wg.Add(1)
	h.mu.Unlock()

	defer func() {
		h.mu.Lock()
		delete(h.clients[userID], c)
		if len(h.clients[userID]) == 0 {
			delete(h.clients, userID)
		}
		h.mu.Unlock()
		_ = conn.Close()
		h.wg.Done()
	}()

	h.logger.Info("WebSocket client connected", map[string]interface{}{"user_id": userID.String()})

	// Reads only detect the peer closing.
	go func() {
		defer c.stop()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case n := <-c.send:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(Message{Type: "notification", Notification: n}); err != nil {
				h.logger.Error("Failed to push notification", map[string]interface{}{"error": err})
				return
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		case <-c.done:
			return
		case <-ctx.Done():
			return
		}
	}
}

// Shutdown disconnects every client and waits for their loops to exit.
func (h *Hub) Shutdown(ctx context.Context) error {
	h.mu.Lock()
	h.closed = true
	for _, set := range h.clients {
		for c := range set {
			_ = c.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
				time.Now().Add(time.Second))
			c.stop()
		}
	}
	h.mu.Unlock()

	done := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
