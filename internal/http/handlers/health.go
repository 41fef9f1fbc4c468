package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/fleet-backend/internal/data/docstore"
	"github.com/yungbote/fleet-backend/internal/http/response"
	"github.com/yungbote/fleet-backend/internal/platform/logger"
)

type HealthHandler struct {
	store docstore.Pinger
	log   *logger.Logger
}

// NewHealthHandler reports healthy without a store check when store is nil.
func NewHealthHandler(store docstore.Pinger, log *logger.Logger) *HealthHandler {
	return &HealthHandler{store: store, log: log}
}

func (h *HealthHandler) HealthCheck(c *gin.Context) {
	if h.store != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := h.store.Ping(ctx); err != nil {
			if h.log != nil {
				h.log.Warn("healthcheck: store ping failed", "error", err)
			}
			response.RespondError(c, http.StatusServiceUnavailable, "store unavailable")
			return
		}
	}
	c.String(http.StatusOK, "ok")
}
