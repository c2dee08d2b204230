package sorter

import (
	"context"
	"strings"
	"time"

	"TeamWork/logger"
	"TeamWork/service/gateway/event"
	"TeamWork/tools/errs"
)

// Broadcaster is the slice of the transport hub the sorter needs.
type Broadcaster interface {
	BroadcastAll(ev event.Frame)
	BroadcastRoom(roomID string, ev event.Frame)
}

// Queue is the deduplicated FIFO of distributable lines.
type Queue struct {
	store QueueStore
	bus   Broadcaster
	clock func() time.Time
}

func NewQueue(store QueueStore, bus Broadcaster) *Queue {
	return &Queue{store: store, bus: bus, clock: time.Now}
}

func (q *Queue) WithClock(clock func() time.Time) *Queue {
	q.clock = clock
	return q
}

// Enqueue trims and dedupes lines (first-seen order, exact match) and
// inserts the new ones as pending; lines already in the queue are
// no-ops. Broadcasts the refreshed pending snapshot.
func (q *Queue) Enqueue(ctx context.Context, lines []string) ([]string, error) {
	norm := normalizeLines(lines)
	if len(norm) == 0 {
		return nil, errs.ErrValidation.WithDetail("no usable lines")
	}
	if err := q.store.Add(ctx, norm, q.clock().UnixMilli()); err != nil {
		return nil, err
	}
	return q.BroadcastSnapshot(ctx), nil
}

// ListPending returns all not-yet-sent values, oldest first.
func (q *Queue) ListPending(ctx context.Context) ([]string, error) {
	values, err := q.store.ListPending(ctx)
	if err != nil {
		return nil, err
	}
	if values == nil {
		values = []string{}
	}
	return values, nil
}

// ClearPending drops every non-sent item. Irreversible.
func (q *Queue) ClearPending(ctx context.Context) error {
	if err := q.store.ClearPending(ctx); err != nil {
		return err
	}
	q.BroadcastSnapshot(ctx)
	return nil
}

// BroadcastSnapshot pushes the current pending list to all clients and
// returns it. Broadcast failures only cost freshness.
func (q *Queue) BroadcastSnapshot(ctx context.Context) []string {
	values, err := q.store.ListPending(ctx)
	if err != nil {
		logger.Warnf("[sorter] snapshot read failed: %v", err)
		return nil
	}
	if values == nil {
		values = []string{}
	}
	if q.bus != nil {
		q.bus.BroadcastAll(event.SorterUpdate(values))
	}
	return values
}

// normalizeLines trims, drops empties, and dedupes preserving first-seen
// order. Matching is exact and case-sensitive.
func normalizeLines(lines []string) []string {
	seen := make(map[string]struct{}, len(lines))
	out := make([]string, 0, len(lines))
	for _, l := range lines {
		l = strings.TrimSpace(l)
		if l == "" {
			continue
		}
		if _, dup := seen[l]; dup {
			continue
		}
		seen[l] = struct{}{}
		out = append(out, l)
	}
	return out
}
