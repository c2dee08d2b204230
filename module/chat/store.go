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

// memMessageCap bounds the in-memory fallback log.
const memMessageCap = 1000

// MessageStore is the durable message log per room.
type MessageStore interface {
	Insert(ctx context.Context, m *model.Message) error
	List(ctx context.Context, roomID string, limit int64) ([]model.Message, error)
}

// ---- Mongo ----

type mongoMessageStore struct{}

func NewMongoMessageStore() MessageStore { return &mongoMessageStore{} }

func (s *mongoMessageStore) Insert(ctx context.Context, m *model.Message) error {
	db, ok := mgo.TryGetDB()
	if !ok {
		return errs.ErrStoreUnavailable.WithDetail("messages")
	}
	_, err := db.Collection(m.GetTableName()).InsertOne(ctx, m)
	return errs.Wrap(err)
}

func (s *mongoMessageStore) List(ctx context.Context, roomID string, limit int64) ([]model.Message, error) {
	db, ok := mgo.TryGetDB()
	if !ok {
		return nil, errs.ErrStoreUnavailable.WithDetail("messages")
	}
	cur, err := db.Collection((&model.Message{}).GetTableName()).Find(ctx,
		bson.M{"room_id": roomID},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}}).SetLimit(limit),
	)
	if err != nil {
		return nil, errs.Wrap(err)
	}
	defer cur.Close(ctx)
	var out []model.Message
	if err := cur.All(ctx, &out); err != nil {
		return nil, errs.Wrap(err)
	}
	return out, nil
}

// ---- Memory (fallback / tests) ----

type memMessageStore struct {
	mu   sync.RWMutex
	msgs []model.Message
}

func NewMemMessageStore() MessageStore {
	return &memMessageStore{}
}

func (s *memMessageStore) Insert(ctx context.Context, m *model.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.msgs = append(s.msgs, *m)
	if len(s.msgs) > memMessageCap {
		s.msgs = s.msgs[len(s.msgs)-memMessageCap:]
	}
	return nil
}

func (s *memMessageStore) List(ctx context.Context, roomID string, limit int64) ([]model.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []model.Message
	for _, m := range s.msgs {
		if m.RoomID == roomID {
			out = append(out, m)
			if limit > 0 && int64(len(out)) >= limit {
				break
			}
		}
	}
	return out, nil
}

// ---- Failover ----

type failoverMessageStore struct {
	primary  MessageStore
	fallback MessageStore
}

// NewFailoverMessageStore degrades to the memory log when Mongo is
// unreachable; history written there does not survive a restart.
func NewFailoverMessageStore(primary, fallback MessageStore) MessageStore {
	return &failoverMessageStore{primary: primary, fallback: fallback}
}

func (s *failoverMessageStore) Insert(ctx context.Context, m *model.Message) error {
	if err := s.primary.Insert(ctx, m); err != nil {
		return s.fallback.Insert(ctx, m)
	}
	return nil
}

func (s *failoverMessageStore) List(ctx context.Context, roomID string, limit int64) ([]model.Message, error) {
	out, err := s.primary.List(ctx, roomID, limit)
	if err != nil {
		return s.fallback.List(ctx, roomID, limit)
	}
	return out, nil
}
