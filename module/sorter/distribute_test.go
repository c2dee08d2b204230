package sorter

import (
	"context"
	"fmt"
	"reflect"
	"testing"

	"github.com/pkg/errors"

	chatmodel "TeamWork/module/chat/model"
	dirmodel "TeamWork/module/directory/model"
	dir "TeamWork/module/directory/service"
	"TeamWork/module/sorter/model"
	"TeamWork/service/gateway/event"
	"TeamWork/tools/errs"
)

type staticOnline []string

func (s staticOnline) ListOnline(ctx context.Context) ([]string, error) {
	return s, nil
}

func seedDirectory(users ...dirmodel.User) *dir.Directory {
	ms := dir.NewMemStore()
	for _, u := range users {
		ms.PutUser(u)
	}
	return dir.NewDirectory(ms)
}

func seller(id string, createdAt int64) dirmodel.User {
	return dirmodel.User{ID: id, Name: "name-" + id, Role: dirmodel.RoleSeller, CreatedAt: createdAt}
}

func enqueueN(t *testing.T, q *Queue, n int) []string {
	t.Helper()
	lines := make([]string, n)
	for i := range lines {
		lines[i] = fmt.Sprintf("v%02d", i)
	}
	if _, err := q.Enqueue(context.Background(), lines); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	return lines
}

func TestDistributeRoundRobin(t *testing.T) {
	ctx := context.Background()
	qs := NewMemQueueStore()
	as := NewMemAssignmentStore()
	bus := newRecordingBus()
	q := NewQueue(qs, bus)
	directory := seedDirectory(seller("u1", 1), seller("u2", 2))

	d := NewDistributor(q, qs, as, directory, staticOnline{"u1", "u2"}, bus)
	lines := enqueueN(t, q, 7)

	batches, remaining, err := d.Distribute(ctx, 4, "online", nil, nil)
	if err != nil {
		t.Fatalf("distribute: %v", err)
	}
	if remaining != 0 {
		t.Fatalf("remaining = %d, want 0", remaining)
	}
	if len(batches) != 2 {
		t.Fatalf("batches = %d, want 2", len(batches))
	}

	// item i goes to recipient i mod 2, FIFO preserved inside a batch
	wantFirst := []string{lines[0], lines[2], lines[4], lines[6]}
	wantSecond := []string{lines[1], lines[3], lines[5]}
	if !reflect.DeepEqual(batches[0].Values, wantFirst) {
		t.Fatalf("batch[0] = %v, want %v", batches[0].Values, wantFirst)
	}
	if !reflect.DeepEqual(batches[1].Values, wantSecond) {
		t.Fatalf("batch[1] = %v, want %v", batches[1].Values, wantSecond)
	}

	// every taken item is now assigned; none pending
	for _, v := range lines {
		status, found := qs.(*memQueueStore).Status(v)
		if !found || status != model.StatusAssigned {
			t.Fatalf("item %s status = %s, want assigned", v, status)
		}
	}

	// one claimable assignment per recipient
	for _, b := range batches {
		pendingAssignments, err := as.ListPending(ctx, b.UserID)
		if err != nil {
			t.Fatalf("list assignments: %v", err)
		}
		if len(pendingAssignments) != 1 {
			t.Fatalf("user %s assignments = %d, want 1", b.UserID, len(pendingAssignments))
		}
		if !reflect.DeepEqual(pendingAssignments[0].Values, b.Values) {
			t.Fatalf("assignment values = %v, want %v", pendingAssignments[0].Values, b.Values)
		}
	}

	// announce lands in the sorter room once
	announce := bus.roomFrames(chatmodel.RoomSorter)
	if len(announce) != 1 || announce[0].Kind != event.KindSorterAnnounce {
		t.Fatalf("announce frames = %v", announce)
	}
	pay, ok := announce[0].Payload.(event.AnnouncePayload)
	if !ok || pay.Total != 7 || pay.PerUser != 4 {
		t.Fatalf("announce payload = %#v", announce[0].Payload)
	}
}

func TestDistributeLeavesSurplusPending(t *testing.T) {
	ctx := context.Background()
	qs := NewMemQueueStore()
	q := NewQueue(qs, nil)
	directory := seedDirectory(seller("u1", 1), seller("u2", 2))
	d := NewDistributor(q, qs, NewMemAssignmentStore(), directory, staticOnline{"u1", "u2"}, nil)

	enqueueN(t, q, 10)
	batches, remaining, err := d.Distribute(ctx, 3, "online", nil, nil)
	if err != nil {
		t.Fatalf("distribute: %v", err)
	}
	if remaining != 4 {
		t.Fatalf("remaining = %d, want 4", remaining)
	}
	got := len(batches[0].Values) + len(batches[1].Values)
	if got != 6 {
		t.Fatalf("distributed %d items, want 6", got)
	}
	// fairness: batch sizes differ by at most one
	diff := len(batches[0].Values) - len(batches[1].Values)
	if diff < -1 || diff > 1 {
		t.Fatalf("unfair split: %d vs %d", len(batches[0].Values), len(batches[1].Values))
	}
}

func TestDistributeTargetAndSelection(t *testing.T) {
	ctx := context.Background()
	qs := NewMemQueueStore()
	q := NewQueue(qs, nil)
	directory := seedDirectory(seller("u1", 1), seller("u2", 2), seller("u3", 3))
	d := NewDistributor(q, qs, NewMemAssignmentStore(), directory, staticOnline{"u1"}, nil)
	enqueueN(t, q, 4)

	// target=online keeps only u1
	batches, _, err := d.Distribute(ctx, 1, "online", nil, nil)
	if err != nil {
		t.Fatalf("distribute online: %v", err)
	}
	if len(batches) != 1 || batches[0].UserID != "u1" {
		t.Fatalf("online pool = %v", batches)
	}

	// target=all ignores presence; selectedIds narrows further
	batches, _, err = d.Distribute(ctx, 1, "all", nil, []string{"u3"})
	if err != nil {
		t.Fatalf("distribute all: %v", err)
	}
	if len(batches) != 1 || batches[0].UserID != "u3" {
		t.Fatalf("selected pool = %v", batches)
	}
}

func TestDistributeRejectsBadInput(t *testing.T) {
	ctx := context.Background()
	qs := NewMemQueueStore()
	q := NewQueue(qs, nil)
	directory := seedDirectory(seller("u1", 1))
	d := NewDistributor(q, qs, NewMemAssignmentStore(), directory, staticOnline{"u1"}, nil)

	if _, _, err := d.Distribute(ctx, 0, "online", nil, nil); !errors.Is(err, errs.ErrValidation) {
		t.Fatalf("perUser=0: %v", err)
	}
	if _, _, err := d.Distribute(ctx, 1, "nearby", nil, nil); !errors.Is(err, errs.ErrValidation) {
		t.Fatalf("bad target: %v", err)
	}
	if _, _, err := d.Distribute(ctx, 1, "online", []string{"admin"}, nil); !errors.Is(err, errs.ErrValidation) {
		t.Fatalf("admin is not distributable: %v", err)
	}
}

func TestDistributeNoRecipients(t *testing.T) {
	ctx := context.Background()
	qs := NewMemQueueStore()
	q := NewQueue(qs, nil)
	directory := seedDirectory(seller("u1", 1))
	d := NewDistributor(q, qs, NewMemAssignmentStore(), directory, staticOnline{}, nil)
	enqueueN(t, q, 2)

	if _, _, err := d.Distribute(ctx, 1, "online", nil, nil); !errors.Is(err, errs.ErrNoRecipients) {
		t.Fatalf("want no-recipients error, got %v", err)
	}
	// nothing was taken
	pending, _ := q.ListPending(ctx)
	if len(pending) != 2 {
		t.Fatalf("pending = %v, want untouched", pending)
	}
}

// failingAssignments rejects every insert but keeps the rest of the
// store working.
type failingAssignments struct {
	AssignmentStore
}

func (f *failingAssignments) Insert(ctx context.Context, a *model.Assignment) error {
	return errors.New("insert refused")
}

func TestDistributeInsertFailureReleasesItems(t *testing.T) {
	ctx := context.Background()
	qs := NewMemQueueStore()
	q := NewQueue(qs, nil)
	directory := seedDirectory(seller("u1", 1))
	broken := &failingAssignments{AssignmentStore: NewMemAssignmentStore()}
	d := NewDistributor(q, qs, broken, directory, staticOnline{"u1"}, nil)

	if _, err := q.Enqueue(ctx, []string{"a", "b"}); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	batches, remaining, err := d.Distribute(ctx, 5, "online", nil, nil)
	if err != nil {
		t.Fatalf("distribute: %v", err)
	}
	if len(batches) != 0 {
		t.Fatalf("batches = %v, want none persisted", batches)
	}
	if remaining != 2 {
		t.Fatalf("remaining = %d, want 2", remaining)
	}

	// the failed batch went back to pending, not stuck assigned
	for _, v := range []string{"a", "b"} {
		status, found := qs.(*memQueueStore).Status(v)
		if !found || status != model.StatusPending {
			t.Fatalf("item %s status = %s, want pending", v, status)
		}
	}

	// a later pass with a healthy store picks them up
	healthy := NewMemAssignmentStore()
	d2 := NewDistributor(q, qs, healthy, directory, staticOnline{"u1"}, nil)
	batches, _, err = d2.Distribute(ctx, 5, "online", nil, nil)
	if err != nil {
		t.Fatalf("retry distribute: %v", err)
	}
	if len(batches) != 1 || !reflect.DeepEqual(batches[0].Values, []string{"a", "b"}) {
		t.Fatalf("retry batches = %v", batches)
	}
}

func TestDistributeEmptyQueueAnnouncesNothing(t *testing.T) {
	ctx := context.Background()
	qs := NewMemQueueStore()
	as := NewMemAssignmentStore()
	bus := newRecordingBus()
	q := NewQueue(qs, bus)
	directory := seedDirectory(seller("u1", 1))
	d := NewDistributor(q, qs, as, directory, staticOnline{"u1"}, bus)

	batches, remaining, err := d.Distribute(ctx, 5, "online", nil, nil)
	if err != nil {
		t.Fatalf("distribute: %v", err)
	}
	if remaining != 0 || len(batches) != 0 {
		t.Fatalf("batches = %v remaining = %d", batches, remaining)
	}
	if got := bus.roomFrames(chatmodel.RoomSorter); len(got) != 0 {
		t.Fatalf("unexpected announce: %v", got)
	}
	if list, _ := as.ListPending(ctx, "u1"); len(list) != 0 {
		t.Fatalf("empty batch persisted: %v", list)
	}
}
