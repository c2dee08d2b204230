package sorter

import (
	"context"
	"time"

	"TeamWork/logger"
	chatmodel "TeamWork/module/chat/model"
	dirmodel "TeamWork/module/directory/model"
	dir "TeamWork/module/directory/service"
	"TeamWork/module/sorter/model"
	"TeamWork/service/gateway/event"
	"TeamWork/tools/errs"
)

// Distribution targets.
const (
	TargetOnline = "online"
	TargetAll    = "all"
)

// OnlineLister is the slice of the presence tracker the engine needs.
type OnlineLister interface {
	ListOnline(ctx context.Context) ([]string, error)
}

// Batch is one recipient's share of a distribution pass, in queue FIFO
// order.
type Batch struct {
	UserID   string   `json:"userId"`
	UserName string   `json:"userName"`
	Values   []string `json:"values"`
}

// Distributor partitions pending queue items across a recipient pool.
type Distributor struct {
	queue    *Queue
	qstore   QueueStore
	astore   AssignmentStore
	dir      *dir.Directory
	presence OnlineLister
	bus      Broadcaster
	clock    func() time.Time
}

func NewDistributor(queue *Queue, qstore QueueStore, astore AssignmentStore, directory *dir.Directory, presence OnlineLister, bus Broadcaster) *Distributor {
	return &Distributor{
		queue:    queue,
		qstore:   qstore,
		astore:   astore,
		dir:      directory,
		presence: presence,
		bus:      bus,
		clock:    time.Now,
	}
}

func (d *Distributor) WithClock(clock func() time.Time) *Distributor {
	d.clock = clock
	return d
}

// Distribute reserves up to perUser items for every user in the resolved
// pool. Items move pending -> assigned one conditional update at a time,
// so repeated or concurrent passes never double-assign. Each non-empty
// batch is persisted as a pending Assignment for the claim protocol.
func (d *Distributor) Distribute(ctx context.Context, perUser int, target string, roles []string, selectedIDs []string) ([]Batch, int64, error) {
	if perUser < 1 {
		return nil, 0, errs.ErrValidation.WithDetail("perUser must be positive")
	}
	switch target {
	case "":
		target = TargetOnline
	case TargetOnline, TargetAll:
	default:
		return nil, 0, errs.ErrValidation.WithDetail("target must be online or all")
	}
	if len(roles) == 0 {
		roles = []string{dirmodel.RoleSeller}
	}
	for _, r := range roles {
		switch r {
		case dirmodel.RoleScraper, dirmodel.RoleSeller, dirmodel.RoleSalesman:
		default:
			return nil, 0, errs.ErrValidation.WithDetail("role " + r + " is not distributable")
		}
	}

	pool, err := d.resolvePool(ctx, target, roles, selectedIDs)
	if err != nil {
		return nil, 0, err
	}
	if len(pool) == 0 {
		return nil, 0, errs.ErrNoRecipients.WithDetail("target=" + target)
	}

	now := d.clock().UnixMilli()
	take := perUser * len(pool)
	values, takeErr := d.qstore.TakePending(ctx, take, model.StatusAssigned, now)
	if takeErr != nil {
		// items flipped before the failure are already reserved and must
		// end up in claimable assignments; only an empty take aborts
		if len(values) == 0 {
			return nil, 0, takeErr
		}
		logger.Warnf("[sorter] partial take (%d of %d): %v", len(values), take, takeErr)
	}

	full := make([]Batch, len(pool))
	for i, u := range pool {
		full[i] = Batch{UserID: u.ID, UserName: u.Name}
	}
	// round-robin in original pending order: item i -> recipient i mod n
	for i, v := range values {
		b := &full[i%len(full)]
		b.Values = append(b.Values, v)
	}

	batches := make([]Batch, 0, len(full))
	for i := range full {
		if len(full[i].Values) == 0 {
			continue
		}
		err := d.astore.Insert(ctx, &model.Assignment{
			UserID:    full[i].UserID,
			Values:    full[i].Values,
			Status:    model.StatusPending,
			CreatedAt: now,
		})
		if err != nil {
			// an assigned item without an assignment row would be
			// unreachable: hand the batch back to the queue instead
			logger.Warnf("[sorter] assignment insert failed user=%s: %v", full[i].UserID, err)
			if rerr := d.qstore.ReleasePending(ctx, full[i].Values); rerr != nil {
				logger.Errorf("[sorter] release failed, items stuck assigned values=%v: %v", full[i].Values, rerr)
			}
			continue
		}
		batches = append(batches, full[i])
	}

	if len(batches) > 0 && d.bus != nil {
		total := 0
		for _, b := range batches {
			total += len(b.Values)
		}
		d.bus.BroadcastRoom(chatmodel.RoomSorter, event.SorterAnnounce(perUser, total, now))
	}
	d.queue.BroadcastSnapshot(ctx)

	remaining, err := d.qstore.CountPending(ctx)
	if err != nil {
		remaining = 0
	}
	return batches, remaining, nil
}

func (d *Distributor) resolvePool(ctx context.Context, target string, roles []string, selectedIDs []string) ([]dirmodel.User, error) {
	users, err := d.dir.ListUsersByRole(ctx, roles, "")
	if err != nil {
		return nil, err
	}
	if target == TargetOnline {
		online, err := d.presence.ListOnline(ctx)
		if err != nil {
			return nil, err
		}
		set := make(map[string]struct{}, len(online))
		for _, id := range online {
			set[id] = struct{}{}
		}
		users = filterUsers(users, func(u dirmodel.User) bool {
			_, ok := set[u.ID]
			return ok
		})
	}
	if len(selectedIDs) > 0 {
		set := make(map[string]struct{}, len(selectedIDs))
		for _, id := range selectedIDs {
			set[id] = struct{}{}
		}
		users = filterUsers(users, func(u dirmodel.User) bool {
			_, ok := set[u.ID]
			return ok
		})
	}
	return users, nil
}

func filterUsers(users []dirmodel.User, keep func(dirmodel.User) bool) []dirmodel.User {
	out := users[:0]
	for _, u := range users {
		if keep(u) {
			out = append(out, u)
		}
	}
	return out
}
