package model

import (
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	mgo "TeamWork/service/mgo"
)

// QueueItem lifecycle: pending -> assigned -> sent; sent is terminal and
// items never revert. Value is globally unique (re-adding is a no-op).
const (
	StatusPending  = "pending"
	StatusAssigned = "assigned"
	StatusSent     = "sent"
)

type QueueItem struct {
	Value      string `bson:"value" json:"value"`
	Status     string `bson:"status" json:"status"`
	CreatedAt  int64  `bson:"created_at" json:"createdAt"`
	AssignedAt int64  `bson:"assigned_at,omitempty" json:"assignedAt,omitempty"`
	SentAt     int64  `bson:"sent_at,omitempty" json:"sentAt,omitempty"`
}

func (q *QueueItem) GetTableName() string {
	return "sorter_queue"
}

func (q *QueueItem) Collection() *mongo.Collection {
	return mgo.GetDB().Collection(q.GetTableName())
}

// Assignment is a reserved batch of queue item values earmarked for one
// recipient. A pending assignment is claimable at most once.
type Assignment struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"-"`
	UserID    string             `bson:"user_id" json:"userId"`
	Values    []string           `bson:"values" json:"values"`
	Status    string             `bson:"status" json:"status"` // pending | sent
	CreatedAt int64              `bson:"created_at" json:"createdAt"`
	SentAt    int64              `bson:"sent_at,omitempty" json:"sentAt,omitempty"`
}

func (a *Assignment) GetTableName() string {
	return "sorter_assignments"
}

func (a *Assignment) Collection() *mongo.Collection {
	return mgo.GetDB().Collection(a.GetTableName())
}
