package api

import (
	"github.com/gin-gonic/gin"

	"TeamWork/middleware"
	"TeamWork/module/presence"
)

type presenceHandler struct {
	tracker *presence.Tracker
}

// POST /api/presence/heartbeat
func (h *presenceHandler) heartbeat(c *gin.Context) {
	if err := h.tracker.Heartbeat(c.Request.Context(), middleware.CallerID(c)); err != nil {
		fail(c, err)
		return
	}
	ok(c, gin.H{"alive": true})
}

// GET /api/presence/online
func (h *presenceHandler) online(c *gin.Context) {
	ids, err := h.tracker.ListOnline(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, gin.H{"online": ids})
}
