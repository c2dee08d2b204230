package chat

import (
	"context"
	"strings"

	"TeamWork/logger"
	"TeamWork/tools/errs"
)

// Unread tracks per-user per-room unread counters.
type Unread struct {
	store UnreadStore
}

func NewUnread(store UnreadStore) *Unread {
	return &Unread{store: store}
}

// Inc is called from message fan-out. Store errors are swallowed: a lost
// increment costs a badge count, never the message.
func (u *Unread) Inc(ctx context.Context, userID, roomID string) {
	if err := u.store.Inc(ctx, userID, roomID); err != nil {
		logger.Warnf("[unread] inc failed user=%s room=%s: %v", userID, roomID, err)
	}
}

// Clear zeroes the counter when the user opens the room.
func (u *Unread) Clear(ctx context.Context, userID, roomID string) error {
	if strings.TrimSpace(roomID) == "" {
		return errs.ErrValidation.WithDetail("roomId is required")
	}
	return u.store.Clear(ctx, userID, roomID)
}

func (u *Unread) ClearAll(ctx context.Context, userID string) error {
	return u.store.ClearAll(ctx, userID)
}

// Map returns roomID -> count for the badge UI.
func (u *Unread) Map(ctx context.Context, userID string) (map[string]int64, error) {
	m, err := u.store.Map(ctx, userID)
	if err != nil {
		return nil, err
	}
	if m == nil {
		m = map[string]int64{}
	}
	return m, nil
}

// GetTotal sums counts across rooms.
func (u *Unread) GetTotal(ctx context.Context, userID string) (int64, error) {
	m, err := u.store.Map(ctx, userID)
	if err != nil {
		return 0, err
	}
	var total int64
	for _, n := range m {
		total += n
	}
	return total, nil
}
