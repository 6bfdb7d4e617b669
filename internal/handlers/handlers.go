package handlers

import (
	"net/http"

	"github.com/chirpfeed/backend/internal/views"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handlers holds dependencies for HTTP handlers
type Handlers struct {
	views *views.Manager
	store views.Store
}

// NewHandlers creates a new handlers instance
func NewHandlers(manager *views.Manager, store views.Store) *Handlers {
	return &Handlers{
		views: manager,
		store: store,
	}
}

// RegisterRoutes wires all routes onto the router. The auth middlewares are
// injected so tests can substitute header-based fakes.
func (h *Handlers) RegisterRoutes(r *gin.Engine, optionalAuth, requireAuth gin.HandlerFunc) {
	r.GET("/health", h.HealthCheck)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api/v1")

	// View tracking is best-effort: unauthenticated calls no-op rather
	// than fail, so these take the optional middleware.
	tracked := api.Group("", optionalAuth)
	tracked.POST("/views/observe", h.ObserveView)
	tracked.DELETE("/views/observe/:handle", h.UnobserveView)
	tracked.POST("/views/visibility", h.ReportVisibility)
	tracked.POST("/views/flush", h.FlushViews)
	tracked.POST("/posts/:id/view", h.RecordPostView)

	authed := api.Group("", requireAuth)
	authed.GET("/users/me/views", h.GetMyViews)
}

// HealthCheck reports service liveness
// GET /health
func (h *Handlers) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
