package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// HealthHandler reports liveness plus which collaborators are wired
type HealthHandler struct {
	oracleModel  string
	analyzerName string
}

// NewHealthHandler creates a health handler. An empty oracleModel means every segment uses the fallback.
func NewHealthHandler(oracleModel, analyzerName string) *HealthHandler {
	return &HealthHandler{oracleModel: oracleModel, analyzerName: analyzerName}
}

// HealthCheck returns the health status of the API
func (h *HealthHandler) HealthCheck(c *gin.Context) {
	oracleStatus := "disabled"
	if h.oracleModel != "" {
		oracleStatus = "enabled"
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"oracle": gin.H{
			"status": oracleStatus,
			"model":  h.oracleModel,
		},
		"analyzer": h.analyzerName,
	})
}
