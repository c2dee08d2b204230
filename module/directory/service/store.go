package service

import (
	"context"
	"errors"
	"sort"
	"sync"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"TeamWork/module/directory/model"
	mgo "TeamWork/service/mgo"
	"TeamWork/tools/errs"
)

// Store is the read-only view of the user directory and the session
// table. Production runs the Mongo implementation; tests run the memory
// one.
type Store interface {
	FindUser(ctx context.Context, id string) (*model.User, error)
	FindUsersByRoles(ctx context.Context, roles []string, ownerID string) ([]model.User, error)
	FindSession(ctx context.Context, token string) (*model.Session, error)
}

// ---- Mongo ----

type mongoStore struct{}

func NewMongoStore() Store { return &mongoStore{} }

func (s *mongoStore) FindUser(ctx context.Context, id string) (*model.User, error) {
	db, ok := mgo.TryGetDB()
	if !ok {
		return nil, errs.ErrStoreUnavailable.WithDetail("directory")
	}
	var u model.User
	err := db.Collection((&model.User{}).GetTableName()).
		FindOne(ctx, bson.M{"id": id}).Decode(&u)
	if err != nil {
		if isNoDocuments(err) {
			return nil, nil
		}
		return nil, errs.Wrap(err)
	}
	return &u, nil
}

func (s *mongoStore) FindUsersByRoles(ctx context.Context, roles []string, ownerID string) ([]model.User, error) {
	db, ok := mgo.TryGetDB()
	if !ok {
		return nil, errs.ErrStoreUnavailable.WithDetail("directory")
	}
	filter := bson.M{
		"role":    bson.M{"$in": roles},
		"blocked": bson.M{"$ne": true},
	}
	if ownerID != "" {
		filter["owner_id"] = ownerID
	}
	cur, err := db.Collection((&model.User{}).GetTableName()).
		Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}}))
	if err != nil {
		return nil, errs.Wrap(err)
	}
	defer cur.Close(ctx)
	var out []model.User
	if err := cur.All(ctx, &out); err != nil {
		return nil, errs.Wrap(err)
	}
	return out, nil
}

func (s *mongoStore) FindSession(ctx context.Context, token string) (*model.Session, error) {
	db, ok := mgo.TryGetDB()
	if !ok {
		return nil, errs.ErrStoreUnavailable.WithDetail("sessions")
	}
	var sess model.Session
	err := db.Collection((&model.Session{}).GetTableName()).
		FindOne(ctx, bson.M{"token": token}).Decode(&sess)
	if err != nil {
		if isNoDocuments(err) {
			return nil, nil
		}
		return nil, errs.Wrap(err)
	}
	return &sess, nil
}

// ---- Memory (tests, degraded mode) ----

type memStore struct {
	mu       sync.RWMutex
	users    map[string]model.User
	sessions map[string]model.Session
}

func NewMemStore() *memStore {
	return &memStore{
		users:    make(map[string]model.User),
		sessions: make(map[string]model.Session),
	}
}

func (s *memStore) PutUser(u model.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[u.ID] = u
}

func (s *memStore) PutSession(sess model.Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sess.Token] = sess
}

func (s *memStore) FindUser(ctx context.Context, id string) (*model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if u, ok := s.users[id]; ok {
		cp := u
		return &cp, nil
	}
	return nil, nil
}

func (s *memStore) FindUsersByRoles(ctx context.Context, roles []string, ownerID string) ([]model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	want := make(map[string]struct{}, len(roles))
	for _, r := range roles {
		want[r] = struct{}{}
	}
	var out []model.User
	for _, u := range s.users {
		if _, ok := want[u.Role]; !ok || u.Blocked {
			continue
		}
		if ownerID != "" && u.OwnerID != ownerID {
			continue
		}
		out = append(out, u)
	}
	// deterministic order for round-robin fairness
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt != out[j].CreatedAt {
			return out[i].CreatedAt < out[j].CreatedAt
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *memStore) FindSession(ctx context.Context, token string) (*model.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if sess, ok := s.sessions[token]; ok {
		cp := sess
		return &cp, nil
	}
	return nil, nil
}

func isNoDocuments(err error) bool {
	return errors.Is(err, mongo.ErrNoDocuments)
}
