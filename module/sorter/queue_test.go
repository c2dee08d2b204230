package sorter

import (
	"context"
	"reflect"
	"sync"
	"testing"

	"github.com/pkg/errors"

	"TeamWork/service/gateway/event"
	"TeamWork/tools/errs"
)

// recordingBus captures broadcasts for assertions.
type recordingBus struct {
	mu    sync.Mutex
	all   []event.Frame
	rooms map[string][]event.Frame
}

func newRecordingBus() *recordingBus {
	return &recordingBus{rooms: make(map[string][]event.Frame)}
}

func (b *recordingBus) BroadcastAll(ev event.Frame) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.all = append(b.all, ev)
}

func (b *recordingBus) BroadcastRoom(roomID string, ev event.Frame) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.rooms[roomID] = append(b.rooms[roomID], ev)
}

func (b *recordingBus) roomFrames(roomID string) []event.Frame {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]event.Frame(nil), b.rooms[roomID]...)
}

func (b *recordingBus) allFrames() []event.Frame {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]event.Frame(nil), b.all...)
}

func TestEnqueueDedupesAndKeepsFirstSeenOrder(t *testing.T) {
	ctx := context.Background()
	q := NewQueue(NewMemQueueStore(), newRecordingBus())

	pending, err := q.Enqueue(ctx, []string{"b", "a", "a", "c"})
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	want := []string{"b", "a", "c"}
	if !reflect.DeepEqual(pending, want) {
		t.Fatalf("pending = %v, want %v", pending, want)
	}

	// re-adding an existing value is a no-op
	pending, err = q.Enqueue(ctx, []string{"a", "d"})
	if err != nil {
		t.Fatalf("enqueue again: %v", err)
	}
	want = []string{"b", "a", "c", "d"}
	if !reflect.DeepEqual(pending, want) {
		t.Fatalf("pending after re-add = %v, want %v", pending, want)
	}
}

func TestEnqueueTrimsAndRejectsEmpty(t *testing.T) {
	ctx := context.Background()
	q := NewQueue(NewMemQueueStore(), nil)

	pending, err := q.Enqueue(ctx, []string{"  x  ", "x", ""})
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if !reflect.DeepEqual(pending, []string{"x"}) {
		t.Fatalf("pending = %v, want [x]", pending)
	}

	if _, err := q.Enqueue(ctx, []string{"  ", ""}); !errors.Is(err, errs.ErrValidation) {
		t.Fatalf("want validation error, got %v", err)
	}
	if _, err := q.Enqueue(ctx, nil); !errors.Is(err, errs.ErrValidation) {
		t.Fatalf("want validation error for nil lines, got %v", err)
	}
}

func TestClearPendingBroadcastsEmptySnapshot(t *testing.T) {
	ctx := context.Background()
	bus := newRecordingBus()
	q := NewQueue(NewMemQueueStore(), bus)

	if _, err := q.Enqueue(ctx, []string{"a", "b"}); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if err := q.ClearPending(ctx); err != nil {
		t.Fatalf("clear: %v", err)
	}

	pending, err := q.ListPending(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(pending) != 0 {
		t.Fatalf("pending after clear = %v", pending)
	}

	frames := bus.allFrames()
	if len(frames) == 0 {
		t.Fatal("no snapshot broadcast")
	}
	last := frames[len(frames)-1]
	if last.Kind != event.KindSorterUpdate {
		t.Fatalf("last frame kind = %s", last.Kind)
	}
	if vals, ok := last.Payload.([]string); !ok || len(vals) != 0 {
		t.Fatalf("last snapshot payload = %#v", last.Payload)
	}
}
