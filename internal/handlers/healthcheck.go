package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/lecternfm/lectern-backend/internal/db"
	"github.com/lecternfm/lectern-backend/internal/platform/logger"
)

type HealthHandler struct {
	log *logger.Logger
	db  *db.Service
}

func NewHealthHandler(baseLog *logger.Logger, dbService *db.Service) *HealthHandler {
	return &HealthHandler{
		log: baseLog.With("handler", "HealthHandler"),
		db:  dbService,
	}
}

func (h *HealthHandler) Check(c *gin.Context) {
	if err := h.db.Ping(c.Request.Context()); err != nil {
		h.log.Error("health check db ping failed", "error", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
