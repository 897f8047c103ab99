package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// RegisterRoutes wires the proxy surface. Every path and method other than
// POST /execute falls through to MethodNotAllowed; gin's own 404, trailing
// slash redirect and path fixing are turned off so nothing else answers.
func RegisterRoutes(router *gin.Engine, h *Handlers) {
	router.RedirectTrailingSlash = false
	router.RedirectFixedPath = false
	router.HandleMethodNotAllowed = true

	router.POST(ExecutePath, h.Execute)
	router.NoRoute(h.MethodNotAllowed)
	router.NoMethod(h.MethodNotAllowed)
}

// RegisterAdminRoutes wires the operator endpoints.
func RegisterAdminRoutes(router *gin.Engine, h *AdminHandlers) {
	router.GET("/health", h.Health)
	router.GET("/metrics", h.Metrics)
	router.GET("/policy", h.Policy)
	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "Not found"})
	})
}
