package model

import (
	"go.mongodb.org/mongo-driver/mongo"

	mgo "TeamWork/service/mgo"
)

// Role values
const (
	RoleAdmin    = "admin"
	RoleScraper  = "scraper"
	RoleSeller   = "seller"
	RoleSalesman = "salesman"
)

// User is the directory record. The realtime core only reads it; account
// lifecycle (signup, block/unblock, sales counters) is owned elsewhere.
type User struct {
	ID        string `bson:"id" json:"id"`
	OwnerID   string `bson:"owner_id" json:"ownerId"` // team owner; for admins OwnerID == ID
	Name      string `bson:"name" json:"name"`
	Role      string `bson:"role" json:"role"`
	Blocked   bool   `bson:"blocked,omitempty" json:"blocked,omitempty"`
	CreatedAt int64  `bson:"created_at" json:"createdAt"`
}

func (u *User) GetTableName() string {
	return "users"
}

func (u *User) Collection() *mongo.Collection {
	return mgo.GetDB().Collection(u.GetTableName())
}
