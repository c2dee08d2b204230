package gateway

import (
	"sync"

	"TeamWork/logger"
	chatmodel "TeamWork/module/chat/model"
	"TeamWork/service/gateway/event"
)

// subscriber is one delivery target, regardless of transport. deliver
// must not block; it reports whether the frame was accepted.
type subscriber interface {
	ID() string
	UserID() string
	deliver(payload []byte) bool
}

// Hub is the per-process connection registry: every live subscriber and
// the set of rooms each one has joined. It is the only cross-request
// mutable state outside the durable store.
type Hub struct {
	mu     sync.RWMutex
	subs   map[string]subscriber            // connID -> subscriber
	rooms  map[string]map[string]subscriber // roomID -> connID -> subscriber
	joined map[string]map[string]struct{}   // connID -> roomIDs

	fanout *Fanout
}

func NewHub() *Hub {
	return &Hub{
		subs:   make(map[string]subscriber),
		rooms:  make(map[string]map[string]subscriber),
		joined: make(map[string]map[string]struct{}),
		fanout: NewFanout(4, 256),
	}
}

// Register adds the subscriber; every connection starts in the team room.
func (h *Hub) Register(s subscriber) {
	h.mu.Lock()
	h.subs[s.ID()] = s
	h.joined[s.ID()] = make(map[string]struct{})
	h.mu.Unlock()
	h.Join(s.ID(), chatmodel.RoomTeam)
}

func (h *Hub) Unregister(connID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for roomID := range h.joined[connID] {
		delete(h.rooms[roomID], connID)
		if len(h.rooms[roomID]) == 0 {
			delete(h.rooms, roomID)
		}
	}
	delete(h.joined, connID)
	delete(h.subs, connID)
}

// Join subscribes the connection to future broadcasts for the room. No
// history replay; clients fetch history explicitly.
func (h *Hub) Join(connID, roomID string) {
	if roomID == "" {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	s, ok := h.subs[connID]
	if !ok {
		return
	}
	if h.rooms[roomID] == nil {
		h.rooms[roomID] = make(map[string]subscriber)
	}
	h.rooms[roomID][connID] = s
	h.joined[connID][roomID] = struct{}{}
}

func (h *Hub) Leave(connID, roomID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.rooms[roomID], connID)
	if len(h.rooms[roomID]) == 0 {
		delete(h.rooms, roomID)
	}
	delete(h.joined[connID], roomID)
}

// IsViewing reports whether any of the user's connections has the room
// open; viewers do not accrue unread counts.
func (h *Hub) IsViewing(userID, roomID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, s := range h.rooms[roomID] {
		if s.UserID() == userID {
			return true
		}
	}
	return false
}

// BroadcastAll pushes the frame to every subscriber.
func (h *Hub) BroadcastAll(ev event.Frame) {
	payload, err := ev.Encode()
	if err != nil {
		logger.Errorf("[hub] encode %s failed: %v", ev.Kind, err)
		return
	}
	h.mu.RLock()
	subs := make([]subscriber, 0, len(h.subs))
	for _, s := range h.subs {
		subs = append(subs, s)
	}
	h.mu.RUnlock()
	h.fanout.broadcast(subs, payload)
}

// BroadcastRoom pushes the frame to the room's subscribers.
func (h *Hub) BroadcastRoom(roomID string, ev event.Frame) {
	payload, err := ev.Encode()
	if err != nil {
		logger.Errorf("[hub] encode %s failed: %v", ev.Kind, err)
		return
	}
	h.mu.RLock()
	subs := make([]subscriber, 0, len(h.rooms[roomID]))
	for _, s := range h.rooms[roomID] {
		subs = append(subs, s)
	}
	h.mu.RUnlock()
	h.fanout.broadcast(subs, payload)
}
