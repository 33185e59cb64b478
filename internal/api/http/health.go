package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Service   string    `json:"service"`
	Version   string    `json:"version"`
	DB        string    `json:"db,omitempty"`
	Redis     string    `json:"redis,omitempty"`
}

// pingFunc returns nil when the dependency is reachable.
type pingFunc func(ctx context.Context) error

type HealthHandler struct {
	serviceName string
	version     string
	db          pingFunc
	redis       pingFunc
}

// NewHealthHandler accepts nil for dependencies that are not configured.
func NewHealthHandler(serviceName, version string, db *pgxpool.Pool, rdb *redis.Client) *HealthHandler {
	h := &HealthHandler{serviceName: serviceName, version: version}
	if db != nil {
		h.db = db.Ping
	}
	if rdb != nil {
		h.redis = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
	}
	return h
}

func (h *HealthHandler) HealthCheck(c *gin.Context) {
	dbStatus := dependencyStatus(c.Request.Context(), h.db)
	redisStatus := dependencyStatus(c.Request.Context(), h.redis)

	// sessions live in Redis, without it nobody can sign in
	status, code := "healthy", http.StatusOK
	if redisStatus == "down" {
		status, code = "degraded", http.StatusServiceUnavailable
	}

	c.JSON(code, HealthResponse{
		Status:    status,
		Timestamp: time.Now().UTC(),
		Service:   h.serviceName,
		Version:   h.version,
		DB:        dbStatus,
		Redis:     redisStatus,
	})
}

func dependencyStatus(ctx context.Context, ping pingFunc) string {
	if ping == nil {
		return "disabled"
	}
	pingCtx, cancel := context.WithTimeout(ctx, 1*time.Second)
	defer cancel()

	if err := ping(pingCtx); err != nil {
		return "down"
	}
	return "up"
}

func (h *HealthHandler) RegisterRoutes(r gin.IRouter) {
	r.GET("/health", h.HealthCheck)
	r.GET("/healthz", h.HealthCheck)
}
