package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"dashboard-service/internal/repository"
)

// HealthCheck returns service health status (basic)
func HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "dashboard-service",
	})
}

type ReadinessHandler struct {
	importRepo *repository.ImportRepository
}

func NewReadinessHandler(importRepo *repository.ImportRepository) *ReadinessHandler {
	return &ReadinessHandler{importRepo: importRepo}
}

// ReadinessCheck reports dependency health. The database is required;
// Redis is optional, so its failure only degrades the status.
func (h *ReadinessHandler) ReadinessCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	health := gin.H{
		"status":  "healthy",
		"service": "dashboard-service",
		"checks":  gin.H{},
	}
	checks := health["checks"].(gin.H)
	code := http.StatusOK

	if err := h.importRepo.DBHealth(ctx); err != nil {
		checks["database"] = gin.H{"status": "unhealthy", "error": err.Error()}
		health["status"] = "unhealthy"
		code = http.StatusServiceUnavailable
	} else {
		checks["database"] = gin.H{"status": "healthy"}
	}

	switch {
	case !h.importRepo.RedisEnabled():
		checks["redis"] = gin.H{"status": "disabled"}
	default:
		if err := h.importRepo.RedisHealth(ctx); err != nil {
			checks["redis"] = gin.H{"status": "unhealthy", "error": err.Error()}
			if health["status"] == "healthy" {
				health["status"] = "degraded"
			}
		} else {
			checks["redis"] = gin.H{"status": "healthy"}
		}
	}

	c.JSON(code, health)
}
