package chat

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"

	"TeamWork/module/chat/model"
	dirmodel "TeamWork/module/directory/model"
	dir "TeamWork/module/directory/service"
	"TeamWork/service/gateway/event"
	"TeamWork/tools/errs"
)

type roomBus struct {
	mu     sync.Mutex
	frames map[string][]event.Frame
}

func (b *roomBus) BroadcastRoom(roomID string, ev event.Frame) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.frames == nil {
		b.frames = make(map[string][]event.Frame)
	}
	b.frames[roomID] = append(b.frames[roomID], ev)
}

func (b *roomBus) count(roomID string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.frames[roomID])
}

type fixedViewers map[string]string // userID -> roomID being viewed

func (v fixedViewers) IsViewing(userID, roomID string) bool {
	return v[userID] == roomID
}

func teamDirectory(ids ...string) *dir.Directory {
	ms := dir.NewMemStore()
	for i, id := range ids {
		ms.PutUser(dirmodel.User{ID: id, Name: id, Role: dirmodel.RoleSeller, CreatedAt: int64(i + 1)})
	}
	return dir.NewDirectory(ms)
}

// waitUnread polls until the async fan-out lands or the deadline passes.
func waitUnread(t *testing.T, u *Unread, userID string, want int64) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		total, err := u.GetTotal(context.Background(), userID)
		if err == nil && total == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	total, _ := u.GetTotal(context.Background(), userID)
	t.Fatalf("unread total for %s = %d, want %d", userID, total, want)
}

func TestPostMessageValidation(t *testing.T) {
	ctx := context.Background()
	r := NewRooms(NewMemMessageStore(), nil, teamDirectory("u1"), nil, nil)

	cases := []struct{ room, sender, text string }{
		{"", "u1", "hi"},
		{model.RoomTeam, "", "hi"},
		{model.RoomTeam, "u1", "   "},
	}
	for _, c := range cases {
		if _, err := r.PostMessage(ctx, c.room, c.sender, c.text); !errors.Is(err, errs.ErrValidation) {
			t.Fatalf("post(%q,%q,%q): %v", c.room, c.sender, c.text, err)
		}
	}
}

func TestPostMessageBroadcastsToRoom(t *testing.T) {
	ctx := context.Background()
	bus := &roomBus{}
	r := NewRooms(NewMemMessageStore(), nil, teamDirectory("u1", "u2"), bus, nil)

	msg, err := r.PostMessage(ctx, model.RoomTeam, "u1", "  hello  ")
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	if msg.Text != "hello" {
		t.Fatalf("text = %q, want trimmed", msg.Text)
	}
	if bus.count(model.RoomTeam) != 1 {
		t.Fatalf("broadcasts = %d, want 1", bus.count(model.RoomTeam))
	}

	msgs, err := r.ListMessages(ctx, model.RoomTeam, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(msgs) != 1 || msgs[0].SenderID != "u1" {
		t.Fatalf("history = %+v", msgs)
	}
}

func TestTeamMessageBumpsUnreadExceptSenderAndViewers(t *testing.T) {
	ctx := context.Background()
	unread := NewUnread(NewMemUnreadStore())
	viewers := fixedViewers{"u3": model.RoomTeam}
	r := NewRooms(NewMemMessageStore(), unread, teamDirectory("u1", "u2", "u3"), nil, viewers)

	if _, err := r.PostMessage(ctx, model.RoomTeam, "u1", "hello"); err != nil {
		t.Fatalf("post: %v", err)
	}

	waitUnread(t, unread, "u2", 1)
	// sender and the active viewer stay at zero
	if total, _ := unread.GetTotal(ctx, "u1"); total != 0 {
		t.Fatalf("sender unread = %d", total)
	}
	if total, _ := unread.GetTotal(ctx, "u3"); total != 0 {
		t.Fatalf("viewer unread = %d", total)
	}
}

func TestDMMessageBumpsOnlyPeer(t *testing.T) {
	ctx := context.Background()
	unread := NewUnread(NewMemUnreadStore())
	r := NewRooms(NewMemMessageStore(), unread, teamDirectory("u1", "u2", "u3"), nil, nil)

	roomID, err := r.ResolveDmRoom("u2", "u1")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if _, err := r.PostMessage(ctx, roomID, "u1", "psst"); err != nil {
		t.Fatalf("post: %v", err)
	}

	waitUnread(t, unread, "u2", 1)
	if total, _ := unread.GetTotal(ctx, "u3"); total != 0 {
		t.Fatalf("bystander unread = %d", total)
	}

	m, err := unread.Map(ctx, "u2")
	if err != nil {
		t.Fatalf("map: %v", err)
	}
	if m[roomID] != 1 {
		t.Fatalf("unread map = %v", m)
	}
}

func TestUnreadClearAndClearAll(t *testing.T) {
	ctx := context.Background()
	store := NewMemUnreadStore()
	unread := NewUnread(store)

	unread.Inc(ctx, "u1", "team")
	unread.Inc(ctx, "u1", "team")
	unread.Inc(ctx, "u1", "dm:a:b")

	if total, _ := unread.GetTotal(ctx, "u1"); total != 3 {
		t.Fatalf("total = %d, want 3", total)
	}

	if err := unread.Clear(ctx, "u1", "team"); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if total, _ := unread.GetTotal(ctx, "u1"); total != 1 {
		t.Fatalf("total after clear = %d, want 1", total)
	}

	if err := unread.Clear(ctx, "u1", " "); !errors.Is(err, errs.ErrValidation) {
		t.Fatalf("blank room: %v", err)
	}

	if err := unread.ClearAll(ctx, "u1"); err != nil {
		t.Fatalf("clear all: %v", err)
	}
	if total, _ := unread.GetTotal(ctx, "u1"); total != 0 {
		t.Fatalf("total after clear all = %d", total)
	}
}
