package chat

import (
	"context"
	"sync"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"

	"TeamWork/module/chat/model"
	mgo "TeamWork/service/mgo"
	"TeamWork/tools/errs"
)

// UnreadStore holds per-user per-room unread counters. Increments must
// be atomic at the store level (concurrent fan-outs never lose updates).
type UnreadStore interface {
	Inc(ctx context.Context, userID, roomID string) error
	Clear(ctx context.Context, userID, roomID string) error
	ClearAll(ctx context.Context, userID string) error
	Map(ctx context.Context, userID string) (map[string]int64, error)
}

// ---- Mongo ----

type mongoUnreadStore struct{}

func NewMongoUnreadStore() UnreadStore { return &mongoUnreadStore{} }

func (s *mongoUnreadStore) Inc(ctx context.Context, userID, roomID string) error {
	db, ok := mgo.TryGetDB()
	if !ok {
		return errs.ErrStoreUnavailable.WithDetail("unread")
	}
	// $inc upsert: commutative, no read-modify-write
	_, err := db.Collection((&model.UnreadCounter{}).GetTableName()).UpdateOne(ctx,
		bson.M{"user_id": userID, "room_id": roomID},
		bson.M{
			"$inc":         bson.M{"count": 1},
			"$setOnInsert": bson.M{"user_id": userID, "room_id": roomID},
		},
		options.Update().SetUpsert(true),
	)
	return errs.Wrap(err)
}

func (s *mongoUnreadStore) Clear(ctx context.Context, userID, roomID string) error {
	db, ok := mgo.TryGetDB()
	if !ok {
		return errs.ErrStoreUnavailable.WithDetail("unread")
	}
	_, err := db.Collection((&model.UnreadCounter{}).GetTableName()).
		DeleteOne(ctx, bson.M{"user_id": userID, "room_id": roomID})
	return errs.Wrap(err)
}

func (s *mongoUnreadStore) ClearAll(ctx context.Context, userID string) error {
	db, ok := mgo.TryGetDB()
	if !ok {
		return errs.ErrStoreUnavailable.WithDetail("unread")
	}
	_, err := db.Collection((&model.UnreadCounter{}).GetTableName()).
		DeleteMany(ctx, bson.M{"user_id": userID})
	return errs.Wrap(err)
}

func (s *mongoUnreadStore) Map(ctx context.Context, userID string) (map[string]int64, error) {
	db, ok := mgo.TryGetDB()
	if !ok {
		return nil, errs.ErrStoreUnavailable.WithDetail("unread")
	}
	cur, err := db.Collection((&model.UnreadCounter{}).GetTableName()).
		Find(ctx, bson.M{"user_id": userID})
	if err != nil {
		return nil, errs.Wrap(err)
	}
	defer cur.Close(ctx)
	var rows []model.UnreadCounter
	if err := cur.All(ctx, &rows); err != nil {
		return nil, errs.Wrap(err)
	}
	out := make(map[string]int64, len(rows))
	for _, r := range rows {
		out[r.RoomID] = r.Count
	}
	return out, nil
}

// ---- Memory ----

type memUnreadStore struct {
	mu     sync.Mutex
	counts map[string]map[string]int64 // userID -> roomID -> count
}

func NewMemUnreadStore() UnreadStore {
	return &memUnreadStore{counts: make(map[string]map[string]int64)}
}

func (s *memUnreadStore) Inc(ctx context.Context, userID, roomID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.counts[userID] == nil {
		s.counts[userID] = make(map[string]int64)
	}
	s.counts[userID][roomID]++
	return nil
}

func (s *memUnreadStore) Clear(ctx context.Context, userID, roomID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rooms, ok := s.counts[userID]; ok {
		delete(rooms, roomID)
	}
	return nil
}

func (s *memUnreadStore) ClearAll(ctx context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.counts, userID)
	return nil
}

func (s *memUnreadStore) Map(ctx context.Context, userID string) (map[string]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]int64, len(s.counts[userID]))
	for room, n := range s.counts[userID] {
		out[room] = n
	}
	return out, nil
}
