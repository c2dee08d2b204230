package presence

import (
	"context"
	"sort"
	"sync"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"

	"TeamWork/module/presence/model"
	mgo "TeamWork/service/mgo"
	"TeamWork/tools/errs"
)

// Store abstracts the presence collection. Mongo is the production
// implementation; the memory one doubles as the degraded-mode fallback
// and the test double.
type Store interface {
	Upsert(ctx context.Context, userID string, lastSeenMS int64) error
	ListSince(ctx context.Context, cutoffMS int64) ([]string, error)
}

// ---- Mongo ----

type mongoStore struct{}

func NewMongoStore() Store { return &mongoStore{} }

func (s *mongoStore) Upsert(ctx context.Context, userID string, lastSeenMS int64) error {
	db, ok := mgo.TryGetDB()
	if !ok {
		return errs.ErrStoreUnavailable.WithDetail("presence")
	}
	_, err := db.Collection((&model.PresenceRecord{}).GetTableName()).UpdateOne(ctx,
		bson.M{"user_id": userID},
		bson.M{"$set": bson.M{"user_id": userID, "last_seen": lastSeenMS}},
		options.Update().SetUpsert(true),
	)
	return errs.Wrap(err)
}

func (s *mongoStore) ListSince(ctx context.Context, cutoffMS int64) ([]string, error) {
	db, ok := mgo.TryGetDB()
	if !ok {
		return nil, errs.ErrStoreUnavailable.WithDetail("presence")
	}
	cur, err := db.Collection((&model.PresenceRecord{}).GetTableName()).
		Find(ctx, bson.M{"last_seen": bson.M{"$gt": cutoffMS}})
	if err != nil {
		return nil, errs.Wrap(err)
	}
	defer cur.Close(ctx)
	var recs []model.PresenceRecord
	if err := cur.All(ctx, &recs); err != nil {
		return nil, errs.Wrap(err)
	}
	ids := make([]string, 0, len(recs))
	for _, r := range recs {
		ids = append(ids, r.UserID)
	}
	sort.Strings(ids)
	return ids, nil
}

// ---- Memory ----

type memStore struct {
	mu   sync.RWMutex
	seen map[string]int64
}

func NewMemStore() Store {
	return &memStore{seen: make(map[string]int64)}
}

func (s *memStore) Upsert(ctx context.Context, userID string, lastSeenMS int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seen[userID] = lastSeenMS
	return nil
}

func (s *memStore) ListSince(ctx context.Context, cutoffMS int64) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var ids []string
	for id, ts := range s.seen {
		if ts > cutoffMS {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

// ---- Failover ----

// failoverStore writes through to primary and falls back to the memory
// store when the primary is unreachable. Best-effort: the two copies are
// not reconciled.
type failoverStore struct {
	primary  Store
	fallback Store
}

func NewFailoverStore(primary, fallback Store) Store {
	return &failoverStore{primary: primary, fallback: fallback}
}

func (s *failoverStore) Upsert(ctx context.Context, userID string, lastSeenMS int64) error {
	if err := s.primary.Upsert(ctx, userID, lastSeenMS); err != nil {
		return s.fallback.Upsert(ctx, userID, lastSeenMS)
	}
	// keep the fallback warm so a primary outage does not blank presence
	_ = s.fallback.Upsert(ctx, userID, lastSeenMS)
	return nil
}

func (s *failoverStore) ListSince(ctx context.Context, cutoffMS int64) ([]string, error) {
	ids, err := s.primary.ListSince(ctx, cutoffMS)
	if err != nil {
		return s.fallback.ListSince(ctx, cutoffMS)
	}
	return ids, nil
}
