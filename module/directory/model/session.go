package model

import (
	"go.mongodb.org/mongo-driver/mongo"

	mgo "TeamWork/service/mgo"
)

// Session is issued by the auth collaborator; the core only resolves
// tokens back to user ids.
type Session struct {
	Token     string `bson:"token" json:"token"`
	UserID    string `bson:"user_id" json:"userId"`
	CreatedAt int64  `bson:"created_at" json:"createdAt"`
}

func (s *Session) GetTableName() string {
	return "sessions"
}

func (s *Session) Collection() *mongo.Collection {
	return mgo.GetDB().Collection(s.GetTableName())
}
