package sorter

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"TeamWork/module/sorter/model"
	mgo "TeamWork/service/mgo"
	"TeamWork/tools/errs"
)

// QueueStore is the deduplicated FIFO queue. Every status transition is
// a single conditional update against the store: TakePending moves items
// out of pending one document at a time, so two concurrent distribute
// calls can never take the same item.
type QueueStore interface {
	// Add inserts values as pending; values already present (any status)
	// are left untouched.
	Add(ctx context.Context, values []string, nowMS int64) error
	// ListPending returns values with status != sent, oldest first.
	ListPending(ctx context.Context) ([]string, error)
	// CountPending counts strictly-pending items, not assigned ones.
	CountPending(ctx context.Context) (int64, error)
	// ClearPending deletes all non-sent items. Irreversible.
	ClearPending(ctx context.Context) error
	// TakePending atomically flips up to n oldest strictly-pending items
	// to toStatus and returns their values in FIFO order.
	TakePending(ctx context.Context, n int, toStatus string, nowMS int64) ([]string, error)
	// ReleasePending returns assigned items to pending when their
	// reservation could not be recorded.
	ReleasePending(ctx context.Context, values []string) error
	// MarkSent finalizes items whose values were delivered.
	MarkSent(ctx context.Context, values []string, nowMS int64) error
}

// AssignmentStore persists reserved batches.
type AssignmentStore interface {
	Insert(ctx context.Context, a *model.Assignment) error
	// ClaimOne atomically flips the oldest pending assignment for the
	// user to sent; returns nil when there is none. At most one caller
	// can win a given assignment.
	ClaimOne(ctx context.Context, userID string, nowMS int64) (*model.Assignment, error)
	ListPending(ctx context.Context, userID string) ([]model.Assignment, error)
}

// ---- Mongo ----

type mongoQueueStore struct{}

func NewMongoQueueStore() QueueStore { return &mongoQueueStore{} }

// EnsureQueueIndexes creates the unique index backing global value
// dedup. Call once at boot after the store is ready.
func EnsureQueueIndexes(ctx context.Context) error {
	db, ok := mgo.TryGetDB()
	if !ok {
		return errs.ErrStoreUnavailable.WithDetail("sorter_queue")
	}
	_, err := db.Collection((&model.QueueItem{}).GetTableName()).Indexes().CreateOne(ctx,
		mongo.IndexModel{
			Keys:    bson.D{{Key: "value", Value: 1}},
			Options: options.Index().SetUnique(true),
		})
	return errs.Wrap(err)
}

func (s *mongoQueueStore) Add(ctx context.Context, values []string, nowMS int64) error {
	if len(values) == 0 {
		return nil
	}
	db, ok := mgo.TryGetDB()
	if !ok {
		return errs.ErrStoreUnavailable.WithDetail("sorter_queue")
	}
	models := make([]mongo.WriteModel, 0, len(values))
	for _, v := range values {
		models = append(models, mongo.NewUpdateOneModel().
			SetFilter(bson.M{"value": v}).
			SetUpdate(bson.M{"$setOnInsert": bson.M{
				"value":      v,
				"status":     model.StatusPending,
				"created_at": nowMS,
			}}).
			SetUpsert(true))
	}
	_, err := db.Collection((&model.QueueItem{}).GetTableName()).
		BulkWrite(ctx, models, options.BulkWrite().SetOrdered(false))
	return errs.Wrap(err)
}

func (s *mongoQueueStore) ListPending(ctx context.Context) ([]string, error) {
	db, ok := mgo.TryGetDB()
	if !ok {
		return nil, errs.ErrStoreUnavailable.WithDetail("sorter_queue")
	}
	cur, err := db.Collection((&model.QueueItem{}).GetTableName()).Find(ctx,
		bson.M{"status": bson.M{"$ne": model.StatusSent}},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}}),
	)
	if err != nil {
		return nil, errs.Wrap(err)
	}
	defer cur.Close(ctx)
	var items []model.QueueItem
	if err := cur.All(ctx, &items); err != nil {
		return nil, errs.Wrap(err)
	}
	values := make([]string, 0, len(items))
	for _, it := range items {
		values = append(values, it.Value)
	}
	return values, nil
}

func (s *mongoQueueStore) CountPending(ctx context.Context) (int64, error) {
	db, ok := mgo.TryGetDB()
	if !ok {
		return 0, errs.ErrStoreUnavailable.WithDetail("sorter_queue")
	}
	n, err := db.Collection((&model.QueueItem{}).GetTableName()).
		CountDocuments(ctx, bson.M{"status": model.StatusPending})
	return n, errs.Wrap(err)
}

func (s *mongoQueueStore) ClearPending(ctx context.Context) error {
	db, ok := mgo.TryGetDB()
	if !ok {
		return errs.ErrStoreUnavailable.WithDetail("sorter_queue")
	}
	_, err := db.Collection((&model.QueueItem{}).GetTableName()).
		DeleteMany(ctx, bson.M{"status": bson.M{"$ne": model.StatusSent}})
	return errs.Wrap(err)
}

func (s *mongoQueueStore) TakePending(ctx context.Context, n int, toStatus string, nowMS int64) ([]string, error) {
	db, ok := mgo.TryGetDB()
	if !ok {
		return nil, errs.ErrStoreUnavailable.WithDetail("sorter_queue")
	}
	set := bson.M{"status": toStatus}
	switch toStatus {
	case model.StatusAssigned:
		set["assigned_at"] = nowMS
	case model.StatusSent:
		set["sent_at"] = nowMS
	}
	col := db.Collection((&model.QueueItem{}).GetTableName())
	opts := options.FindOneAndUpdate().
		SetSort(bson.D{{Key: "created_at", Value: 1}}).
		SetReturnDocument(options.Before)

	values := make([]string, 0, n)
	for i := 0; i < n; i++ {
		var it model.QueueItem
		err := col.FindOneAndUpdate(ctx,
			bson.M{"status": model.StatusPending},
			bson.M{"$set": set},
			opts,
		).Decode(&it)
		if err != nil {
			if err == mongo.ErrNoDocuments {
				break // queue drained; partial take is fine
			}
			return values, errs.Wrap(err)
		}
		values = append(values, it.Value)
	}
	return values, nil
}

func (s *mongoQueueStore) ReleasePending(ctx context.Context, values []string) error {
	if len(values) == 0 {
		return nil
	}
	db, ok := mgo.TryGetDB()
	if !ok {
		return errs.ErrStoreUnavailable.WithDetail("sorter_queue")
	}
	_, err := db.Collection((&model.QueueItem{}).GetTableName()).UpdateMany(ctx,
		bson.M{"value": bson.M{"$in": values}, "status": model.StatusAssigned},
		bson.M{"$set": bson.M{"status": model.StatusPending, "assigned_at": int64(0)}},
	)
	return errs.Wrap(err)
}

func (s *mongoQueueStore) MarkSent(ctx context.Context, values []string, nowMS int64) error {
	if len(values) == 0 {
		return nil
	}
	db, ok := mgo.TryGetDB()
	if !ok {
		return errs.ErrStoreUnavailable.WithDetail("sorter_queue")
	}
	_, err := db.Collection((&model.QueueItem{}).GetTableName()).UpdateMany(ctx,
		bson.M{"value": bson.M{"$in": values}},
		bson.M{"$set": bson.M{"status": model.StatusSent, "sent_at": nowMS}},
	)
	return errs.Wrap(err)
}

type mongoAssignmentStore struct{}

func NewMongoAssignmentStore() AssignmentStore { return &mongoAssignmentStore{} }

func (s *mongoAssignmentStore) Insert(ctx context.Context, a *model.Assignment) error {
	db, ok := mgo.TryGetDB()
	if !ok {
		return errs.ErrStoreUnavailable.WithDetail("sorter_assignments")
	}
	_, err := db.Collection(a.GetTableName()).InsertOne(ctx, a)
	return errs.Wrap(err)
}

func (s *mongoAssignmentStore) ClaimOne(ctx context.Context, userID string, nowMS int64) (*model.Assignment, error) {
	db, ok := mgo.TryGetDB()
	if !ok {
		return nil, errs.ErrStoreUnavailable.WithDetail("sorter_assignments")
	}
	// find + transition is one conditional update; the losing concurrent
	// caller sees ErrNoDocuments
	var a model.Assignment
	err := db.Collection((&model.Assignment{}).GetTableName()).FindOneAndUpdate(ctx,
		bson.M{"user_id": userID, "status": model.StatusPending},
		bson.M{"$set": bson.M{"status": model.StatusSent, "sent_at": nowMS}},
		options.FindOneAndUpdate().
			SetSort(bson.D{{Key: "created_at", Value: 1}}).
			SetReturnDocument(options.After),
	).Decode(&a)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, errs.Wrap(err)
	}
	return &a, nil
}

func (s *mongoAssignmentStore) ListPending(ctx context.Context, userID string) ([]model.Assignment, error) {
	db, ok := mgo.TryGetDB()
	if !ok {
		return nil, errs.ErrStoreUnavailable.WithDetail("sorter_assignments")
	}
	cur, err := db.Collection((&model.Assignment{}).GetTableName()).Find(ctx,
		bson.M{"user_id": userID, "status": model.StatusPending},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}}),
	)
	if err != nil {
		return nil, errs.Wrap(err)
	}
	defer cur.Close(ctx)
	var out []model.Assignment
	if err := cur.All(ctx, &out); err != nil {
		return nil, errs.Wrap(err)
	}
	return out, nil
}
