package api

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"TeamWork/middleware"
	"TeamWork/service/gateway"
	"TeamWork/service/gateway/event"
	"TeamWork/tools/errs"
)

// rtHandler is the REST mirror of the push channel for clients whose
// websocket dial failed. Sessions live in the gateway's poll manager.
type rtHandler struct {
	gw       *gateway.Server
	resolver middleware.UserResolver
}

// POST /api/rt/connect
func (h *rtHandler) connect(c *gin.Context) {
	userID := h.resolver.ResolveUser(c.Request)
	if userID == "" {
		userID = c.Query("userId")
	}
	if userID == "" {
		fail(c, errs.ErrNotAuthenticated)
		return
	}
	sessionID := h.gw.Polls().Connect(c.Request.Context(), userID)
	ok(c, gin.H{"sessionId": sessionID, "userId": userID})
}

// GET /api/rt/events?session=&cursor=
func (h *rtHandler) events(c *gin.Context) {
	cursor := parseInt64(c.Query("cursor"), 0)
	evs, next, err := h.gw.Polls().Events(c.Request.Context(), c.Query("session"), cursor)
	if err != nil {
		fail(c, err)
		return
	}
	if evs == nil {
		evs = []gateway.BufferedEvent{}
	}
	ok(c, gin.H{"events": evs, "cursor": next})
}

// POST /api/rt/send?session=  (body is one wire frame)
func (h *rtHandler) send(c *gin.Context) {
	connID, userID, found := h.gw.Polls().Session(c.Query("session"))
	if !found {
		fail(c, errs.ErrValidation.WithDetail("unknown session"))
		return
	}
	raw, err := io.ReadAll(io.LimitReader(c.Request.Body, maxFrameBytes))
	if err != nil {
		fail(c, errs.ErrValidation.WithDetail(err.Error()))
		return
	}
	in, err := event.DecodeInbound(raw)
	if err != nil {
		fail(c, errs.ErrValidation.WithDetail(err.Error()))
		return
	}
	if err := h.gw.DispatchInbound(c.Request.Context(), userID, connID, in); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// POST /api/rt/disconnect?session=
func (h *rtHandler) disconnect(c *gin.Context) {
	h.gw.Polls().Disconnect(c.Request.Context(), c.Query("session"))
	c.Status(http.StatusNoContent)
}

const maxFrameBytes = 32 << 10
