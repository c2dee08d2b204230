package api

import (
	"github.com/gin-gonic/gin"

	"TeamWork/middleware"
	"TeamWork/module/sorter"
	"TeamWork/tools/errs"
)

type sorterHandler struct {
	queue       *sorter.Queue
	distributor *sorter.Distributor
	claims      *sorter.Claims
}

// GET /api/sorter/pending
func (h *sorterHandler) pending(c *gin.Context) {
	values, err := h.queue.ListPending(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, gin.H{"pending": values})
}

// POST /api/sorter/add {lines}
func (h *sorterHandler) add(c *gin.Context) {
	var body struct {
		Lines []string `json:"lines"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		fail(c, errs.ErrValidation.WithDetail(err.Error()))
		return
	}
	values, err := h.queue.Enqueue(c.Request.Context(), body.Lines)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, gin.H{"pending": values})
}

// POST /api/sorter/clear
func (h *sorterHandler) clear(c *gin.Context) {
	if err := h.queue.ClearPending(c.Request.Context()); err != nil {
		fail(c, err)
		return
	}
	ok(c, gin.H{"pending": []string{}})
}

// POST /api/sorter/distribute {perUser, target, roles?, userIds?}
func (h *sorterHandler) distribute(c *gin.Context) {
	var body struct {
		PerUser int      `json:"perUser"`
		Target  string   `json:"target"`
		Roles   []string `json:"roles"`
		UserIDs []string `json:"userIds"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		fail(c, errs.ErrValidation.WithDetail(err.Error()))
		return
	}
	batches, remaining, err := h.distributor.Distribute(
		c.Request.Context(), body.PerUser, body.Target, body.Roles, body.UserIDs)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, gin.H{"batches": batches, "remaining": remaining})
}

// GET /api/sorter/assignments
func (h *sorterHandler) assignments(c *gin.Context) {
	list, err := h.claims.ListAssignments(c.Request.Context(), middleware.CallerID(c))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, gin.H{"assignments": list})
}

// POST /api/sorter/claim
func (h *sorterHandler) claim(c *gin.Context) {
	values, err := h.claims.Claim(c.Request.Context(), middleware.CallerID(c))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, gin.H{"values": values})
}

// POST /api/sorter/assign-direct {userId, count}
func (h *sorterHandler) assignDirect(c *gin.Context) {
	var body struct {
		UserID string `json:"userId"`
		Count  int    `json:"count"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		fail(c, errs.ErrValidation.WithDetail(err.Error()))
		return
	}
	values, err := h.claims.AssignDirect(c.Request.Context(), body.UserID, body.Count)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, gin.H{"userId": body.UserID, "values": values})
}
