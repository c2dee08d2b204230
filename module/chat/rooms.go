package chat

import (
	"context"
	"strings"
	"time"

	"TeamWork/global/config"
	"TeamWork/logger"
	"TeamWork/module/chat/model"
	dir "TeamWork/module/directory/service"
	"TeamWork/service/gateway/event"
	"TeamWork/tools/errs"
	"TeamWork/tools/safe"
)

// Broadcaster is the slice of the transport hub the room service needs.
type Broadcaster interface {
	BroadcastRoom(roomID string, ev event.Frame)
}

// ViewerRegistry reports whether a user currently has a room open on any
// connection; viewers do not accrue unread counts.
type ViewerRegistry interface {
	IsViewing(userID, roomID string) bool
}

// Rooms is the room messaging channel: durable append-only log per room
// with bounded-history reads and subscriber broadcast.
type Rooms struct {
	store   MessageStore
	unread  *Unread
	dir     *dir.Directory
	bus     Broadcaster
	viewers ViewerRegistry
	clock   func() time.Time
}

func NewRooms(store MessageStore, unread *Unread, directory *dir.Directory, bus Broadcaster, viewers ViewerRegistry) *Rooms {
	return &Rooms{
		store:   store,
		unread:  unread,
		dir:     directory,
		bus:     bus,
		viewers: viewers,
		clock:   time.Now,
	}
}

func (r *Rooms) WithClock(clock func() time.Time) *Rooms {
	r.clock = clock
	return r
}

// PostMessage validates, appends, broadcasts to room subscribers, and
// fans out unread increments to recipients not viewing the room.
func (r *Rooms) PostMessage(ctx context.Context, roomID, senderID, text string) (*model.Message, error) {
	senderID = strings.TrimSpace(senderID)
	text = strings.TrimSpace(text)
	if roomID == "" {
		return nil, errs.ErrValidation.WithDetail("roomId is required")
	}
	if senderID == "" {
		return nil, errs.ErrValidation.WithDetail("senderId is required")
	}
	if text == "" {
		return nil, errs.ErrValidation.WithDetail("text is required")
	}

	msg := &model.Message{
		RoomID:    roomID,
		SenderID:  senderID,
		Text:      text,
		CreatedAt: r.clock().UnixMilli(),
	}
	if err := r.store.Insert(ctx, msg); err != nil {
		return nil, err
	}

	if r.bus != nil {
		r.bus.BroadcastRoom(roomID, event.ChatMessage(msg))
	}

	// Fan-out is tolerable-loss and must not delay the sender.
	safe.Go(func() {
		r.fanOutUnread(context.Background(), msg)
	})

	return msg, nil
}

// ListMessages returns the room history oldest-first, truncated to limit
// (default 100).
func (r *Rooms) ListMessages(ctx context.Context, roomID string, limit int64) ([]model.Message, error) {
	if roomID == "" {
		return nil, errs.ErrValidation.WithDetail("roomId is required")
	}
	if limit <= 0 {
		limit = config.DefaultHistoryLimit
	}
	msgs, err := r.store.List(ctx, roomID, limit)
	if err != nil {
		return nil, err
	}
	if msgs == nil {
		msgs = []model.Message{}
	}
	return msgs, nil
}

// ResolveDmRoom is symmetric in its arguments.
func (r *Rooms) ResolveDmRoom(a, b string) (string, error) {
	a, b = strings.TrimSpace(a), strings.TrimSpace(b)
	if a == "" || b == "" {
		return "", errs.ErrValidation.WithDetail("both user ids are required")
	}
	return model.DMRoomID(a, b), nil
}

// recipients resolves who a room's messages are intended for.
func (r *Rooms) recipients(ctx context.Context, roomID string) []string {
	if a, b, ok := model.IsDMRoom(roomID); ok {
		return []string{a, b}
	}
	switch roomID {
	case model.RoomTeam:
		ids, err := r.dir.ListTeamIDs(ctx)
		if err != nil {
			logger.Warnf("[chat] team recipients lookup failed: %v", err)
			return nil
		}
		return ids
	case model.RoomSorter:
		admins, err := r.dir.ListUsersByRole(ctx, []string{"admin"}, "")
		if err != nil {
			logger.Warnf("[chat] sorter recipients lookup failed: %v", err)
			return nil
		}
		ids := make([]string, 0, len(admins))
		for _, u := range admins {
			ids = append(ids, u.ID)
		}
		return ids
	default:
		return nil
	}
}

func (r *Rooms) fanOutUnread(ctx context.Context, msg *model.Message) {
	if r.unread == nil {
		return
	}
	for _, uid := range r.recipients(ctx, msg.RoomID) {
		if uid == msg.SenderID {
			continue
		}
		if uid == config.SystemUserID {
			continue
		}
		if r.viewers != nil && r.viewers.IsViewing(uid, msg.RoomID) {
			continue
		}
		r.unread.Inc(ctx, uid, msg.RoomID)
	}
}
