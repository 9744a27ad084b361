package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mailbridge/syncstack/interfaces"
)

// HealthCheck provides a simple liveness probe.
func HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
	})
}

// Status reports per-account connection and sync state for every account
// this worker currently runs.
func Status(syncEngine interfaces.SyncEngine) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, syncEngine.Status())
	}
}
