package model

import (
	"go.mongodb.org/mongo-driver/mongo"

	mgo "TeamWork/service/mgo"
)

// PresenceRecord is upserted on every heartbeat. Staleness implies
// offline; records are never deleted.
type PresenceRecord struct {
	UserID   string `bson:"user_id" json:"userId"`
	LastSeen int64  `bson:"last_seen" json:"lastSeen"` // unix millis
}

func (p *PresenceRecord) GetTableName() string {
	return "presence"
}

func (p *PresenceRecord) Collection() *mongo.Collection {
	return mgo.GetDB().Collection(p.GetTableName())
}
