package gateway

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"TeamWork/global/config"
	"TeamWork/logger"
	"TeamWork/module/presence"
	"TeamWork/tools/errs"
	"TeamWork/tools/ids"
)

// pollEventCap bounds a session's buffer; overflow drops the oldest
// frames (the next snapshot broadcast repairs queue/presence views).
const pollEventCap = 256

// BufferedEvent is one frame held for a polling client, tagged with a
// monotonic per-session sequence the client uses as its cursor.
type BufferedEvent struct {
	Seq  int64           `json:"seq"`
	Data json.RawMessage `json:"data"`
}

// pollSession emulates a push connection for clients stuck on the REST
// fallback: broadcasts land in a ring buffer drained by cursor fetches.
type pollSession struct {
	id     string
	userID string

	mu         sync.Mutex
	buf        []BufferedEvent
	nextSeq    int64
	lastActive time.Time
}

func (p *pollSession) ID() string     { return p.id }
func (p *pollSession) UserID() string { return p.userID }

func (p *pollSession) deliver(payload []byte) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.nextSeq++
	p.buf = append(p.buf, BufferedEvent{Seq: p.nextSeq, Data: append(json.RawMessage(nil), payload...)})
	if len(p.buf) > pollEventCap {
		p.buf = p.buf[len(p.buf)-pollEventCap:]
	}
	return true
}

func (p *pollSession) fetch(cursor int64, now time.Time) ([]BufferedEvent, int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.lastActive = now
	var out []BufferedEvent
	for _, ev := range p.buf {
		if ev.Seq > cursor {
			out = append(out, ev)
		}
	}
	if out == nil {
		out = []BufferedEvent{}
	}
	return out, p.nextSeq
}

// PollManager owns the poll sessions and their expiry sweeper.
type PollManager struct {
	hub     *Hub
	tracker *presence.Tracker

	mu       sync.Mutex
	sessions map[string]*pollSession

	stopOnce sync.Once
	stopCh   chan struct{}
}

func newPollManager(hub *Hub, tracker *presence.Tracker) *PollManager {
	m := &PollManager{
		hub:      hub,
		tracker:  tracker,
		sessions: make(map[string]*pollSession),
		stopCh:   make(chan struct{}),
	}
	go m.sweeper()
	return m
}

// Connect opens a poll session; the session subscribes like any push
// connection (team room by default) and counts as a heartbeat.
func (m *PollManager) Connect(ctx context.Context, userID string) string {
	sess := &pollSession{
		id:         ids.GenerateString(),
		userID:     userID,
		lastActive: time.Now(),
	}
	m.mu.Lock()
	m.sessions[sess.id] = sess
	m.mu.Unlock()
	m.hub.Register(sess)

	if err := m.tracker.Heartbeat(ctx, userID); err != nil {
		logger.Warnf("[poll] connect heartbeat failed user=%s: %v", userID, err)
	}
	return sess.id
}

// Events drains frames past the cursor. Fetching keeps the session (and
// the user's presence) alive.
func (m *PollManager) Events(ctx context.Context, sessionID string, cursor int64) ([]BufferedEvent, int64, error) {
	m.mu.Lock()
	sess, ok := m.sessions[sessionID]
	m.mu.Unlock()
	if !ok {
		return nil, 0, errs.ErrValidation.WithDetail("unknown session")
	}
	evs, next := sess.fetch(cursor, time.Now())
	if err := m.tracker.Heartbeat(ctx, sess.userID); err != nil {
		logger.Debug("[poll] heartbeat failed")
	}
	return evs, next, nil
}

// Session resolves a session id to its connection and user ids.
func (m *PollManager) Session(sessionID string) (connID, userID string, ok bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sess, ok := m.sessions[sessionID]
	if !ok {
		return "", "", false
	}
	return sess.id, sess.userID, true
}

// Disconnect closes the session explicitly.
func (m *PollManager) Disconnect(ctx context.Context, sessionID string) {
	m.mu.Lock()
	sess, ok := m.sessions[sessionID]
	delete(m.sessions, sessionID)
	m.mu.Unlock()
	if !ok {
		return
	}
	m.hub.Unregister(sess.id)
	m.tracker.MarkDisconnected(ctx, sess.userID)
}

func (m *PollManager) Close() {
	m.stopOnce.Do(func() { close(m.stopCh) })
}

// sweeper drops sessions with no fetch inside the TTL; an abandoned
// fallback client is a disconnect like any other.
func (m *PollManager) sweeper() {
	ticker := time.NewTicker(config.PollSessionTTL / 3)
	defer ticker.Stop()
	for {
		select {
		case <-m.stopCh:
			return
		case now := <-ticker.C:
			var stale []*pollSession
			m.mu.Lock()
			for id, sess := range m.sessions {
				sess.mu.Lock()
				idle := now.Sub(sess.lastActive)
				sess.mu.Unlock()
				if idle > config.PollSessionTTL {
					delete(m.sessions, id)
					stale = append(stale, sess)
				}
			}
			m.mu.Unlock()
			for _, sess := range stale {
				m.hub.Unregister(sess.id)
				ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
				m.tracker.MarkDisconnected(ctx, sess.userID)
				cancel()
				logger.Infof("[poll] swept idle session=%s user=%s", sess.id, sess.userID)
			}
		}
	}
}
