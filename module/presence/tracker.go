package presence

import (
	"context"
	"time"

	"TeamWork/global/config"
	"TeamWork/logger"
	"TeamWork/service/gateway/event"
	"TeamWork/service/storage"
)

// Broadcaster is the slice of the transport hub the tracker needs.
type Broadcaster interface {
	BroadcastAll(ev event.Frame)
}

// Tracker maintains last-seen timestamps and answers "who is online".
type Tracker struct {
	store  Store
	bus    Broadcaster
	mirror bool             // mirror heartbeats into redis (best-effort)
	clock  func() time.Time // injectable for tests
}

func NewTracker(store Store, bus Broadcaster, mirror bool) *Tracker {
	return &Tracker{store: store, bus: bus, mirror: mirror, clock: time.Now}
}

// WithClock overrides the clock; test hook.
func (t *Tracker) WithClock(clock func() time.Time) *Tracker {
	t.clock = clock
	return t
}

// Heartbeat upserts lastSeen=now and pushes a fresh online list to every
// connected client.
func (t *Tracker) Heartbeat(ctx context.Context, userID string) error {
	now := t.clock().UnixMilli()
	if err := t.store.Upsert(ctx, userID, now); err != nil {
		return err
	}
	t.mirrorTouch(ctx, userID)
	t.broadcastOnline(ctx)
	return nil
}

// MarkDisconnected rewinds lastSeen so the user classifies offline within
// one window, keeping last-seen history intact.
func (t *Tracker) MarkDisconnected(ctx context.Context, userID string) {
	rewound := t.clock().Add(-config.DisconnectSkew).UnixMilli()
	if err := t.store.Upsert(ctx, userID, rewound); err != nil {
		// tolerable loss: staleness will catch up within the window
		logger.Warnf("[presence] disconnect write failed user=%s: %v", userID, err)
	}
	if t.mirror {
		if err := storage.PresenceDrop(ctx, userID); err != nil {
			logger.Debug("[presence] redis drop failed")
		}
	}
	t.broadcastOnline(ctx)
}

// ListOnline returns ids seen within the online window. Pure read.
func (t *Tracker) ListOnline(ctx context.Context) ([]string, error) {
	cutoff := t.clock().Add(-config.OnlineWindow).UnixMilli()
	ids, err := t.store.ListSince(ctx, cutoff)
	if err == nil {
		return ids, nil
	}
	if t.mirror {
		// redis mirror answers when the durable store is down
		if cached, cerr := storage.PresenceOnlineIDs(ctx); cerr == nil {
			return cached, nil
		}
	}
	return nil, err
}

func (t *Tracker) mirrorTouch(ctx context.Context, userID string) {
	if !t.mirror {
		return
	}
	if err := storage.PresenceTouch(ctx, userID, config.OnlineWindow); err != nil {
		logger.Debug("[presence] redis touch failed")
	}
}

func (t *Tracker) broadcastOnline(ctx context.Context) {
	if t.bus == nil {
		return
	}
	ids, err := t.ListOnline(ctx)
	if err != nil {
		logger.Warnf("[presence] online list failed: %v", err)
		return
	}
	t.bus.BroadcastAll(event.PresenceUpdate(ids))
}
