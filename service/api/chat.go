package api

import (
	"github.com/gin-gonic/gin"

	"TeamWork/middleware"
	"TeamWork/module/chat"
	"TeamWork/tools/errs"
)

type chatHandler struct {
	rooms  *chat.Rooms
	unread *chat.Unread
}

// GET /api/chat/:roomId/messages?limit=
func (h *chatHandler) listMessages(c *gin.Context) {
	limit := parseInt64(c.Query("limit"), 0)
	msgs, err := h.rooms.ListMessages(c.Request.Context(), c.Param("roomId"), limit)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, gin.H{"messages": msgs})
}

// POST /api/chat/:roomId/messages {text}
func (h *chatHandler) postMessage(c *gin.Context) {
	var body struct {
		Text string `json:"text"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		fail(c, errs.ErrValidation.WithDetail(err.Error()))
		return
	}
	msg, err := h.rooms.PostMessage(c.Request.Context(), c.Param("roomId"), middleware.CallerID(c), body.Text)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, gin.H{"message": msg})
}

// GET /api/chat/dm/:a/:b
func (h *chatHandler) resolveDm(c *gin.Context) {
	roomID, err := h.rooms.ResolveDmRoom(c.Param("a"), c.Param("b"))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, gin.H{"roomId": roomID})
}

// GET /api/chat/unread
func (h *chatHandler) unreadMap(c *gin.Context) {
	m, err := h.unread.Map(c.Request.Context(), middleware.CallerID(c))
	if err != nil {
		fail(c, err)
		return
	}
	total := int64(0)
	for _, n := range m {
		total += n
	}
	ok(c, gin.H{"unread": m, "total": total})
}

// POST /api/chat/unread/clear {roomId}
func (h *chatHandler) clearUnread(c *gin.Context) {
	var body struct {
		RoomID string `json:"roomId"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		fail(c, errs.ErrValidation.WithDetail(err.Error()))
		return
	}
	if err := h.unread.Clear(c.Request.Context(), middleware.CallerID(c), body.RoomID); err != nil {
		fail(c, err)
		return
	}
	ok(c, gin.H{"cleared": body.RoomID})
}

// POST /api/chat/unread/clear-all
func (h *chatHandler) clearAllUnread(c *gin.Context) {
	if err := h.unread.ClearAll(c.Request.Context(), middleware.CallerID(c)); err != nil {
		fail(c, err)
		return
	}
	ok(c, gin.H{"cleared": "all"})
}
