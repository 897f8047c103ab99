package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/chipflow/command-proxy/internal/domain/policy"
	"github.com/chipflow/command-proxy/internal/infrastructure/monitoring"
)

// AdminHandlers serve the operator endpoints on the admin listener.
type AdminHandlers struct {
	backendAddr string
	lists       *policy.AllowLists
	metrics     *monitoring.Metrics
}

// NewAdminHandlers creates the admin handler set
func NewAdminHandlers(backendAddr string, lists *policy.AllowLists, metrics *monitoring.Metrics) *AdminHandlers {
	return &AdminHandlers{
		backendAddr: backendAddr,
		lists:       lists,
		metrics:     metrics,
	}
}

// Health handles health check
func (h *AdminHandlers) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"backend": h.backendAddr,
	})
}

// Policy returns the active allow-lists
func (h *AdminHandlers) Policy(c *gin.Context) {
	c.JSON(http.StatusOK, h.lists.Spec())
}

// Metrics serves the Prometheus registry
func (h *AdminHandlers) Metrics(c *gin.Context) {
	h.metrics.Handler().ServeHTTP(c.Writer, c.Request)
}
