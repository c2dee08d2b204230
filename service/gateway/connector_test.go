package gateway

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	chatmodel "TeamWork/module/chat/model"
	"TeamWork/service/gateway/event"
)

// anonResolver defers identification to the ?userId= handshake.
type anonResolver struct{}

func (anonResolver) ResolveUser(req *http.Request) string { return "" }

func newLoopbackServer(t *testing.T) (*Server, *httptest.Server) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	s, _, _ := newTestServer(t)
	r := gin.New()
	r.GET("/ws", s.HandleWS(anonResolver{}))
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return s, srv
}

func waitJoined(t *testing.T, s *Server, userID string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if s.Hub().IsViewing(userID, chatmodel.RoomTeam) {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("user %s never joined the team room", userID)
}

func recvFrame(t *testing.T, c *Connector) event.Outbound {
	t.Helper()
	select {
	case f, ok := <-c.Frames():
		if !ok {
			t.Fatal("frames channel closed early")
		}
		return f
	case <-time.After(2 * time.Second):
		t.Fatal("no frame arrived")
	}
	return event.Outbound{}
}

func TestConnectorPushDeliversArrayAndObjectFrames(t *testing.T) {
	s, srv := newLoopbackServer(t)

	c := NewConnector(srv.URL, "u1")
	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer c.Close()
	if c.State() != StatePushActive {
		t.Fatalf("state = %s, want pushActive", c.State())
	}
	waitJoined(t, s, "u1")

	s.Hub().BroadcastAll(event.PresenceUpdate([]string{"u1", "u2"}))
	f := recvFrame(t, c)
	if f.Kind != event.KindPresenceUpdate {
		t.Fatalf("kind = %s", f.Kind)
	}
	var online []string
	if err := f.DecodePayload(&online); err != nil {
		t.Fatalf("narrow presence payload: %v", err)
	}
	if len(online) != 2 || online[0] != "u1" || online[1] != "u2" {
		t.Fatalf("online = %v", online)
	}

	s.Hub().BroadcastAll(event.SorterAnnounce(2, 6, 1700000000000))
	f = recvFrame(t, c)
	if f.Kind != event.KindSorterAnnounce {
		t.Fatalf("kind = %s", f.Kind)
	}
	var ann event.AnnouncePayload
	if err := f.DecodePayload(&ann); err != nil {
		t.Fatalf("narrow announce payload: %v", err)
	}
	if ann.PerUser != 2 || ann.Total != 6 {
		t.Fatalf("announce = %#v", ann)
	}
}

func TestConnectorCloseDrainsCleanly(t *testing.T) {
	s, srv := newLoopbackServer(t)

	c := NewConnector(srv.URL, "u1")
	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	waitJoined(t, s, "u1")

	// keep the server pushing while the connector shuts down
	stop := make(chan struct{})
	go func() {
		for {
			select {
			case <-stop:
				return
			default:
				s.Hub().BroadcastAll(event.SorterUpdate([]string{"x"}))
				time.Sleep(time.Millisecond)
			}
		}
	}()
	defer close(stop)

	time.Sleep(20 * time.Millisecond)
	c.Close()
	if c.State() != StateClosed {
		t.Fatalf("state = %s, want closed", c.State())
	}

	// the read loop owns the channel; it must close without panicking
	// even with frames still in flight
	deadline := time.After(2 * time.Second)
	for {
		select {
		case _, ok := <-c.Frames():
			if !ok {
				return
			}
		case <-deadline:
			t.Fatal("frames channel never closed after Close")
		}
	}
}
