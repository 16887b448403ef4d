// Package api exposes the wallet engine over HTTP.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/NgigiN/paywallet/internal/engine"
	"github.com/NgigiN/paywallet/internal/history"
	"github.com/NgigiN/paywallet/internal/idempotency"
	"github.com/NgigiN/paywallet/internal/logger"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Handler struct {
	Engine  *engine.Engine
	History *history.Service
	Guard   *idempotency.Guard
	DB      Pinger
	Timeout time.Duration
	Log     *zap.Logger
}

// NewRouter wires every route onto a fresh gin engine.
func NewRouter(h *Handler) *gin.Engine {
	if h.Log == nil {
		h.Log = zap.NewNop()
	}
	if h.Timeout <= 0 {
		h.Timeout = 5 * time.Second
	}

	r := gin.New()
	r.Use(gin.Recovery(), h.requestContext())

	r.GET("/health", h.health)

	accounts := r.Group("/accounts")
	accounts.POST("", h.register)
	accounts.GET("/:id", h.account)
	accounts.POST("/:id/deposit", h.deposit)
	accounts.POST("/:id/transfer", h.transfer)
	accounts.GET("/:id/history", h.history)

	return r
}

// requestContext bounds every request with the caller-level timeout and
// attaches a request-scoped logger.
func (h *Handler) requestContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Header("X-Request-ID", requestID)

		log := h.Log.With(zap.String("request_id", requestID))
		ctx, cancel := context.WithTimeout(logger.WithContext(c.Request.Context(), log), h.Timeout)
		defer cancel()
		c.Request = c.Request.WithContext(ctx)

		start := time.Now()
		c.Next()
		log.Debug("request handled",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("elapsed", time.Since(start)),
		)
	}
}

func (h *Handler) health(c *gin.Context) {
	status := http.StatusOK
	state := "healthy"
	if h.DB != nil {
		if err := h.DB.Ping(c.Request.Context()); err != nil {
			status = http.StatusServiceUnavailable
			state = "unhealthy"
		}
	}
	c.JSON(status, gin.H{
		"status":    state,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
