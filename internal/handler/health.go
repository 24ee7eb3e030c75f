package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
)

// Pinger is satisfied by *sqlx.DB and *sql.DB.
type Pinger interface {
	PingContext(ctx context.Context) error
}

type componentStatus struct {
	Status    string `json:"status"`
	LatencyMs int64  `json:"latency_ms"`
	Error     string `json:"error,omitempty"`
}

// HealthHandler reports dependency health. Redis is optional.
type HealthHandler struct {
	db        Pinger
	redis     redis.Cmdable
	startTime time.Time
}

func NewHealthHandler(db Pinger, redisClient redis.Cmdable) *HealthHandler {
	return &HealthHandler{db: db, redis: redisClient, startTime: time.Now()}
}

// Health answers 200 when every configured dependency responds, 503 otherwise.
// GET /health
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	components := map[string]componentStatus{}
	healthy := true
	check := func(name string, ping func(context.Context) error) {
		start := time.Now()
		err := ping(ctx)
		st := componentStatus{Status: "operational", LatencyMs: time.Since(start).Milliseconds()}
		if err != nil {
			st.Status = "outage"
			st.Error = err.Error()
			healthy = false
		}
		components[name] = st
	}

	if h.db != nil {
		check("database", h.db.PingContext)
	}
	if h.redis != nil {
		check("redis", func(ctx context.Context) error { return h.redis.Ping(ctx).Err() })
	}

	status, code := "healthy", http.StatusOK
	if !healthy {
		status, code = "degraded", http.StatusServiceUnavailable
	}
	respondJSON(w, code, map[string]interface{}{
		"status":         status,
		"service":        "taskhub",
		"uptime_seconds": int64(time.Since(h.startTime).Seconds()),
		"components":     components,
	})
}
