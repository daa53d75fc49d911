package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// HealthResponse represents the response for health check endpoints.
type HealthResponse struct {
	Status   string            `json:"status"`
	Services map[string]string `json:"services,omitempty"`
}

// Health handles GET /health.
func (a *API) Health(c *gin.Context) {
	services := map[string]string{"database": "healthy"}

	if err := a.store.Ping(c.Request.Context()); err != nil {
		c.Error(err)
		services["database"] = "unhealthy"
		c.JSON(http.StatusServiceUnavailable, HealthResponse{Status: "unhealthy", Services: services})
		return
	}

	c.JSON(http.StatusOK, HealthResponse{Status: "healthy", Services: services})
}

// Ready handles GET /ready.
func (a *API) Ready(c *gin.Context) {
	if err := a.store.Ping(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not ready"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}

// Live handles GET /live.
func (a *API) Live(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "alive"})
}
