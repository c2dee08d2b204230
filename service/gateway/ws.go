package gateway

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"TeamWork/logger"
	"TeamWork/service/gateway/event"
	"TeamWork/tools/ids"
	"TeamWork/tools/safe"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// UserResolver identifies the user behind the upgrade request.
type UserResolver interface {
	ResolveUser(req *http.Request) string
}

// HandleWS upgrades the connection and runs the read loop until the
// peer goes away. userId may come from the session or, for the
// dashboard's query-based handshake, from ?userId=.
func (s *Server) HandleWS(resolver UserResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := resolver.ResolveUser(c.Request)
		if userID == "" {
			userID = c.Query("userId")
		}
		if userID == "" {
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}

		ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			logger.Infof("[ws] upgrade error user=%s: %v", userID, err)
			return
		}

		client := newWSClient(ids.GenerateString(), userID, ws)
		s.hub.Register(client)
		safe.Go(client.writePump)

		ws.SetReadLimit(maxMessageSize)
		_ = ws.SetReadDeadline(time.Now().Add(pongWait))
		ws.SetPongHandler(func(string) error {
			return ws.SetReadDeadline(time.Now().Add(pongWait))
		})

		// the connection itself counts as a heartbeat
		if err := s.tracker.Heartbeat(c.Request.Context(), userID); err != nil {
			logger.Warnf("[ws] connect heartbeat failed user=%s: %v", userID, err)
		}

		s.readLoop(client)

		// exit: unsubscribe and classify offline within one window
		s.hub.Unregister(client.ID())
		client.close()
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		s.tracker.MarkDisconnected(ctx, userID)
	}
}

func (s *Server) readLoop(client *wsClient) {
	for {
		mt, data, err := client.conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err,
				websocket.CloseNormalClosure,
				websocket.CloseGoingAway,
				websocket.CloseNoStatusReceived,
			) {
				logger.Infof("[ws] peer closed conn=%s", client.ID())
			} else if ne, ok := err.(net.Error); ok && ne.Timeout() {
				logger.Infof("[ws] read timeout conn=%s", client.ID())
			} else {
				logger.Infof("[ws] read err conn=%s: %v", client.ID(), err)
			}
			return
		}
		if mt != websocket.TextMessage && mt != websocket.BinaryMessage {
			continue
		}

		in, perr := event.DecodeInbound(data)
		if perr != nil {
			sample := data
			if len(sample) > 256 {
				sample = sample[:256]
			}
			logger.Infof("[ws] bad frame conn=%s err=%v sample=%q", client.ID(), perr, sample)
			continue
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := s.DispatchInbound(ctx, client.UserID(), client.ID(), in); err != nil {
			logger.Infof("[ws] dispatch %s failed user=%s: %v", in.Kind, client.UserID(), err)
		}
		cancel()
	}
}
