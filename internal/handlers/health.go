package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"ideaforge/internal/db"
)

// HealthHandler reports service liveness and database reachability.
type HealthHandler struct {
	database *db.Database
}

// NewHealthHandler wires the health endpoint. database may be nil for
// services that run without one.
func NewHealthHandler(database *db.Database) *HealthHandler {
	return &HealthHandler{database: database}
}

// Handle serves GET /health.
func (h *HealthHandler) Handle(c *gin.Context) {
	status := gin.H{"status": "ok"}
	if h.database != nil {
		if err := h.database.Health(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "database": err.Error()})
			return
		}
		status["database"] = "ok"
	}
	c.JSON(http.StatusOK, status)
}
