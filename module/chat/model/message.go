package model

import (
	"sort"
	"strings"

	"go.mongodb.org/mongo-driver/mongo"

	mgo "TeamWork/service/mgo"
)

// Well-known rooms.
const (
	RoomTeam   = "team"
	RoomSorter = "sorter"

	dmPrefix    = "dm:"
	dmSeparator = ":"
)

// Message is immutable once created; room order is createdAt ascending.
type Message struct {
	RoomID    string `bson:"room_id" json:"roomId"`
	SenderID  string `bson:"sender_id" json:"senderId"`
	Text      string `bson:"text" json:"text"`
	CreatedAt int64  `bson:"created_at" json:"createdAt"` // unix millis
}

func (m *Message) GetTableName() string {
	return "messages"
}

func (m *Message) Collection() *mongo.Collection {
	return mgo.GetDB().Collection(m.GetTableName())
}

// DMRoomID derives the direct-message room id deterministically: both
// participants compute the identical id without any lookup table.
func DMRoomID(a, b string) string {
	p := []string{a, b}
	sort.Strings(p)
	return dmPrefix + strings.Join(p, dmSeparator)
}

// IsDMRoom reports whether roomID names a direct-message room, returning
// its two participants.
func IsDMRoom(roomID string) (a, b string, ok bool) {
	if !strings.HasPrefix(roomID, dmPrefix) {
		return "", "", false
	}
	parts := strings.SplitN(roomID[len(dmPrefix):], dmSeparator, 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", false
	}
	return parts[0], parts[1], true
}
