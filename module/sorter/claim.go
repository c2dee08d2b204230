package sorter

import (
	"context"
	"strings"
	"time"

	"TeamWork/global/config"
	"TeamWork/logger"
	"TeamWork/module/chat"
	chatmodel "TeamWork/module/chat/model"
	"TeamWork/module/sorter/model"
	"TeamWork/tools/errs"
)

// Claims drives the two-phase handoff: a pending Assignment flips to
// sent exactly once, its values are finalized in the queue, and the
// batch lands as a system-authored direct message.
type Claims struct {
	queue  *Queue
	qstore QueueStore
	astore AssignmentStore
	rooms  *chat.Rooms
	clock  func() time.Time
}

func NewClaims(queue *Queue, qstore QueueStore, astore AssignmentStore, rooms *chat.Rooms) *Claims {
	return &Claims{queue: queue, qstore: qstore, astore: astore, rooms: rooms, clock: time.Now}
}

func (c *Claims) WithClock(clock func() time.Time) *Claims {
	c.clock = clock
	return c
}

// Claim atomically takes the user's oldest pending assignment. Under
// concurrent claims the store guarantees a single winner; the loser gets
// ErrNoAssignment.
func (c *Claims) Claim(ctx context.Context, userID string) ([]string, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, errs.ErrValidation.WithDetail("userId is required")
	}
	now := c.clock().UnixMilli()
	a, err := c.astore.ClaimOne(ctx, userID, now)
	if err != nil {
		return nil, err
	}
	if a == nil {
		return nil, errs.ErrNoAssignment.WithDetail("user=" + userID)
	}

	c.finalize(ctx, userID, a.Values, now)
	return a.Values, nil
}

// AssignDirect bypasses the reservation handshake: it takes count oldest
// pending items straight to sent, delivers them immediately, and records
// a sent assignment for audit history.
func (c *Claims) AssignDirect(ctx context.Context, userID string, count int) ([]string, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, errs.ErrValidation.WithDetail("userId is required")
	}
	if count < 1 {
		return nil, errs.ErrValidation.WithDetail("count must be positive")
	}
	now := c.clock().UnixMilli()
	values, err := c.qstore.TakePending(ctx, count, model.StatusSent, now)
	if err != nil {
		return nil, err
	}
	if len(values) == 0 {
		return nil, errs.ErrNoAssignment.WithDetail("queue has no pending items")
	}

	if err := c.astore.Insert(ctx, &model.Assignment{
		UserID:    userID,
		Values:    values,
		Status:    model.StatusSent,
		CreatedAt: now,
		SentAt:    now,
	}); err != nil {
		// audit row lost; delivery still proceeds
		logger.Warnf("[sorter] audit assignment insert failed user=%s: %v", userID, err)
	}

	c.deliver(ctx, userID, values)
	c.queue.BroadcastSnapshot(ctx)
	return values, nil
}

// ListAssignments returns the user's claimable batches, oldest first.
func (c *Claims) ListAssignments(ctx context.Context, userID string) ([]model.Assignment, error) {
	out, err := c.astore.ListPending(ctx, userID)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []model.Assignment{}
	}
	return out, nil
}

func (c *Claims) finalize(ctx context.Context, userID string, values []string, nowMS int64) {
	if err := c.qstore.MarkSent(ctx, values, nowMS); err != nil {
		// items stay assigned; they are already excluded from re-taking
		logger.Warnf("[sorter] mark sent failed user=%s: %v", userID, err)
	}
	c.deliver(ctx, userID, values)
	c.queue.BroadcastSnapshot(ctx)
}

// deliver posts the batch as one DM from the system user; PostMessage
// broadcasts it and bumps the recipient's unread counter.
func (c *Claims) deliver(ctx context.Context, userID string, values []string) {
	roomID := chatmodel.DMRoomID(config.SystemUserID, userID)
	text := strings.Join(values, "\n")
	if _, err := c.rooms.PostMessage(ctx, roomID, config.SystemUserID, text); err != nil {
		logger.Errorf("[sorter] batch delivery failed user=%s: %v", userID, err)
	}
}
