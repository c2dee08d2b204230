package presence

import (
	"context"
	"reflect"
	"sync"
	"testing"
	"time"

	"TeamWork/service/gateway/event"
)

type busLog struct {
	mu     sync.Mutex
	frames []event.Frame
}

func (b *busLog) BroadcastAll(ev event.Frame) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.frames = append(b.frames, ev)
}

func (b *busLog) last() (event.Frame, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.frames) == 0 {
		return event.Frame{}, false
	}
	return b.frames[len(b.frames)-1], true
}

func newTestTracker(bus Broadcaster) (*Tracker, *time.Time) {
	now := time.Unix(1_700_000_000, 0)
	tr := NewTracker(NewMemStore(), bus, false).WithClock(func() time.Time { return now })
	return tr, &now
}

func TestHeartbeatKeepsUserOnlineWithinWindow(t *testing.T) {
	ctx := context.Background()
	tr, now := newTestTracker(nil)

	if err := tr.Heartbeat(ctx, "u1"); err != nil {
		t.Fatalf("heartbeat: %v", err)
	}

	*now = now.Add(29 * time.Second)
	online, err := tr.ListOnline(ctx)
	if err != nil {
		t.Fatalf("list online: %v", err)
	}
	if !reflect.DeepEqual(online, []string{"u1"}) {
		t.Fatalf("online = %v, want [u1]", online)
	}
}

func TestStaleHeartbeatGoesOffline(t *testing.T) {
	ctx := context.Background()
	tr, now := newTestTracker(nil)

	if err := tr.Heartbeat(ctx, "u1"); err != nil {
		t.Fatalf("heartbeat: %v", err)
	}

	*now = now.Add(31 * time.Second)
	online, err := tr.ListOnline(ctx)
	if err != nil {
		t.Fatalf("list online: %v", err)
	}
	if len(online) != 0 {
		t.Fatalf("online = %v, want empty", online)
	}
}

func TestMarkDisconnectedDropsUserImmediately(t *testing.T) {
	ctx := context.Background()
	tr, _ := newTestTracker(nil)

	if err := tr.Heartbeat(ctx, "u1"); err != nil {
		t.Fatalf("heartbeat: %v", err)
	}
	if err := tr.Heartbeat(ctx, "u2"); err != nil {
		t.Fatalf("heartbeat: %v", err)
	}

	tr.MarkDisconnected(ctx, "u1")

	online, err := tr.ListOnline(ctx)
	if err != nil {
		t.Fatalf("list online: %v", err)
	}
	if !reflect.DeepEqual(online, []string{"u2"}) {
		t.Fatalf("online = %v, want [u2]", online)
	}
}

func TestHeartbeatBroadcastsPresenceUpdate(t *testing.T) {
	ctx := context.Background()
	bus := &busLog{}
	tr, _ := newTestTracker(bus)

	if err := tr.Heartbeat(ctx, "u1"); err != nil {
		t.Fatalf("heartbeat: %v", err)
	}

	frame, found := bus.last()
	if !found {
		t.Fatal("no broadcast")
	}
	if frame.Kind != event.KindPresenceUpdate {
		t.Fatalf("kind = %s", frame.Kind)
	}
	online, ok := frame.Payload.([]string)
	if !ok || !reflect.DeepEqual(online, []string{"u1"}) {
		t.Fatalf("payload = %#v", frame.Payload)
	}
}
