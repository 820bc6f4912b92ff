package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/medplatform/orders/internal/cache"
	mongostore "github.com/medplatform/orders/internal/store/mongo"
)

// HealthHandlers implements the §5 supplemented liveness/readiness split:
// the teacher's single `/health` generalized into a liveness check plus a
// dependency-aware readiness probe.
type HealthHandlers struct {
	store *mongostore.Store
	cache *cache.Client
}

func NewHealthHandlers(store *mongostore.Store, cacheClient *cache.Client) *HealthHandlers {
	return &HealthHandlers{store: store, cache: cacheClient}
}

func (h *HealthHandlers) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

func (h *HealthHandlers) Ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	if err := h.store.Ping(ctx); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not_ready", "reason": "document store unreachable"})
		return
	}
	if err := h.cache.Ping(ctx); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not_ready", "reason": "kv store unreachable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}
