package rest

import (
	"context"
	"net/http"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
)

const probeTimeout = 3 * time.Second

// Pinger is the connectivity probe exposed by the media storage adapter.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler serves liveness and dependency-connectivity probes. Any of
// the dependencies may be nil when the component is not configured; it is
// then skipped rather than reported as down.
type HealthHandler struct {
	mongo  *mongo.Client
	media  Pinger
	redis  *redis.Client
	nats   *nats.Conn
	logger *zap.Logger
}

func NewHealthHandler(mongoClient *mongo.Client, media Pinger, redisClient *redis.Client, natsConn *nats.Conn, logger *zap.Logger) *HealthHandler {
	return &HealthHandler{
		mongo:  mongoClient,
		media:  media,
		redis:  redisClient,
		nats:   natsConn,
		logger: logger,
	}
}

// HandleLive reports process liveness only.
func (h *HealthHandler) HandleLive(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// HandleDeep probes each configured dependency and reports per-component
// status. Any failing component turns the overall response into a 503.
func (h *HealthHandler) HandleDeep(w http.ResponseWriter, r *http.Request) {
	components := map[string]string{}
	healthy := true

	check := func(name string, probe func(ctx context.Context) error) {
		ctx, cancel := context.WithTimeout(r.Context(), probeTimeout)
		defer cancel()
		if err := probe(ctx); err != nil {
			h.logger.Warn("health probe failed", zap.String("component", name), zap.Error(err))
			components[name] = "down: " + err.Error()
			healthy = false
			return
		}
		components[name] = "up"
	}

	if h.mongo != nil {
		check("mongodb", func(ctx context.Context) error {
			return h.mongo.Ping(ctx, readpref.Primary())
		})
	}
	if h.media != nil {
		check("media_storage", h.media.Ping)
	}
	if h.redis != nil {
		check("redis", func(ctx context.Context) error {
			return h.redis.Ping(ctx).Err()
		})
	}
	if h.nats != nil {
		check("nats", func(ctx context.Context) error {
			if !h.nats.IsConnected() {
				return nats.ErrConnectionClosed
			}
			return nil
		})
	}

	status := http.StatusOK
	overall := "ok"
	if !healthy {
		status = http.StatusServiceUnavailable
		overall = "degraded"
	}
	writeJSON(w, status, map[string]any{
		"status":     overall,
		"components": components,
	})
}
