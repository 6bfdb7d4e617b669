package handlers

import (
	"net/http"
	"time"

	"github.com/chirpfeed/backend/internal/util"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// ObserveView starts visibility tracking for a post rendered in the feed.
// The returned handle identifies this placement for later visibility events
// and unobserve calls. Already-viewed posts return observed=false and no
// tracking is registered.
// POST /api/v1/views/observe
func (h *Handlers) ObserveView(c *gin.Context) {
	userID, ok := util.OptionalUserID(c)
	if !ok {
		// Unauthenticated: view tracking silently skipped
		c.Status(http.StatusNoContent)
		return
	}

	var req struct {
		PostID string `json:"post_id" binding:"required"`
		Handle string `json:"handle"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if req.Handle == "" {
		req.Handle = uuid.New().String()
	}

	s := h.views.Session(c.Request.Context(), userID)
	if s.Recorder.HasViewed(req.PostID) {
		c.JSON(http.StatusOK, gin.H{
			"observed": false,
			"viewed":   true,
		})
		return
	}

	s.Recorder.Observe(req.Handle, req.PostID)

	c.JSON(http.StatusOK, gin.H{
		"observed": true,
		"handle":   req.Handle,
	})
}

// UnobserveView stops visibility tracking for a handle (card scrolled out
// of the virtualized list) and cancels its dwell countdown.
// DELETE /api/v1/views/observe/:handle
func (h *Handlers) UnobserveView(c *gin.Context) {
	userID, ok := util.OptionalUserID(c)
	if !ok {
		c.Status(http.StatusNoContent)
		return
	}

	handle := c.Param("handle")
	if handle == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "handle is required"})
		return
	}

	s := h.views.Session(c.Request.Context(), userID)
	s.Recorder.Unobserve(handle)
	c.Status(http.StatusNoContent)
}

// ReportVisibility feeds a client-reported visibility change into the
// user's watcher. Visible for the full dwell period confirms the view.
// POST /api/v1/views/visibility
func (h *Handlers) ReportVisibility(c *gin.Context) {
	userID, ok := util.OptionalUserID(c)
	if !ok {
		c.Status(http.StatusNoContent)
		return
	}

	var req struct {
		PostID  string `json:"post_id" binding:"required"`
		Visible *bool  `json:"visible" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	s := h.views.Session(c.Request.Context(), userID)
	delivered := s.Watcher.Deliver(req.PostID, *req.Visible)

	c.JSON(http.StatusAccepted, gin.H{"delivered": delivered})
}

// RecordPostView records a view immediately, bypassing the dwell timer.
// Used when the user opens a post's detail page.
// POST /api/v1/posts/:id/view
func (h *Handlers) RecordPostView(c *gin.Context) {
	userID, ok := util.OptionalUserID(c)
	if !ok {
		c.Status(http.StatusNoContent)
		return
	}

	postID := c.Param("id")
	if postID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "post ID is required"})
		return
	}

	s := h.views.Session(c.Request.Context(), userID)
	s.Recorder.RecordNow(postID)

	c.JSON(http.StatusAccepted, gin.H{"queued": true})
}

// FlushViews forces the user's pending views out immediately instead of
// waiting for the batch window (client about to navigate away).
// POST /api/v1/views/flush
func (h *Handlers) FlushViews(c *gin.Context) {
	userID, ok := util.OptionalUserID(c)
	if !ok {
		c.Status(http.StatusNoContent)
		return
	}

	s := h.views.Session(c.Request.Context(), userID)
	s.Recorder.Flush(c.Request.Context())
	c.Status(http.StatusNoContent)
}

// GetMyViews returns the current user's recently viewed post IDs, the same
// query the recorder seeds from.
// GET /api/v1/users/me/views
func (h *Handlers) GetMyViews(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}

	limit := util.ParseInt(c.DefaultQuery("limit", "100"), 100)
	if limit > 100 {
		limit = 100
	}
	windowHours := util.ParseInt(c.DefaultQuery("window_hours", "24"), 24)
	since := time.Now().Add(-time.Duration(windowHours) * time.Hour)

	postIDs, err := h.store.RecentlyViewed(c.Request.Context(), userID, since, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get view history"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"post_ids": postIDs,
		"count":    len(postIDs),
	})
}
