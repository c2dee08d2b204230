package model

import (
	"go.mongodb.org/mongo-driver/mongo"

	mgo "TeamWork/service/mgo"
)

// UnreadCounter counts messages the user has not seen in one room.
// Invariant: Count >= 0; the row is deleted when the room is opened.
type UnreadCounter struct {
	UserID string `bson:"user_id" json:"userId"`
	RoomID string `bson:"room_id" json:"roomId"`
	Count  int64  `bson:"count" json:"count"`
}

func (u *UnreadCounter) GetTableName() string {
	return "unread"
}

func (u *UnreadCounter) Collection() *mongo.Collection {
	return mgo.GetDB().Collection(u.GetTableName())
}
