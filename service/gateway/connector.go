package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"TeamWork/global/config"
	"TeamWork/logger"
	"TeamWork/service/gateway/event"
	"TeamWork/tools/safe"
)

// ConnState is the connection-establishment state machine. The fallback
// from push to polling is explicit: dial fails fast, the strategy flips,
// and the event surface stays identical.
type ConnState int32

const (
	StateConnecting ConnState = iota
	StatePushActive
	StatePollActive
	StateClosed
)

func (s ConnState) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StatePushActive:
		return "pushActive"
	case StatePollActive:
		return "pollActive"
	case StateClosed:
		return "closed"
	}
	return "unknown"
}

// dialTimeout bounds the websocket attempt before falling back.
const dialTimeout = 3 * time.Second

// Connector is the client side of the transport layer: it prefers the
// push channel and transparently degrades to the REST poll mirror.
type Connector struct {
	baseURL string // http://host:port
	userID  string
	httpc   *http.Client

	state  atomic.Int32
	frames chan event.Outbound

	mu        sync.Mutex // guards ws writes and sessionID
	ws        *websocket.Conn
	sessionID string
	cursor    int64

	cancel context.CancelFunc
}

func NewConnector(baseURL, userID string) *Connector {
	return &Connector{
		baseURL: strings.TrimRight(baseURL, "/"),
		userID:  userID,
		httpc:   &http.Client{Timeout: 10 * time.Second},
		frames:  make(chan event.Outbound, 64),
	}
}

func (c *Connector) State() ConnState {
	return ConnState(c.state.Load())
}

// Frames yields decoded server frames, whichever transport is active.
// The active read loop closes the channel when it exits; only the read
// loop ever closes it, so a late delivery cannot race a Close call.
func (c *Connector) Frames() <-chan event.Outbound {
	return c.frames
}

// Start establishes the transport: websocket first, poll on failure.
func (c *Connector) Start(ctx context.Context) error {
	ctx, c.cancel = context.WithCancel(ctx)
	c.state.Store(int32(StateConnecting))

	wsURL := "ws" + strings.TrimPrefix(c.baseURL, "http") + "/ws?userId=" + c.userID
	dialer := websocket.Dialer{HandshakeTimeout: dialTimeout}
	conn, _, err := dialer.DialContext(ctx, wsURL, nil)
	if err == nil {
		c.mu.Lock()
		c.ws = conn
		c.mu.Unlock()
		c.state.Store(int32(StatePushActive))
		safe.Go(func() { c.pushLoop(ctx, conn) })
		safe.Go(func() { c.heartbeatLoop(ctx) })
		return nil
	}
	logger.Infof("[connector] push dial failed (%v), falling back to polling", err)

	sessionID, err := c.pollConnect(ctx)
	if err != nil {
		c.state.Store(int32(StateClosed))
		close(c.frames)
		return err
	}
	c.mu.Lock()
	c.sessionID = sessionID
	c.mu.Unlock()
	c.state.Store(int32(StatePollActive))
	safe.Go(func() { c.pollLoop(ctx) })
	return nil
}

// Send submits one inbound frame over the active transport.
func (c *Connector) Send(f event.Frame) error {
	switch c.State() {
	case StatePushActive:
		c.mu.Lock()
		defer c.mu.Unlock()
		_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
		return c.ws.WriteJSON(f)
	case StatePollActive:
		c.mu.Lock()
		sessionID := c.sessionID
		c.mu.Unlock()
		body, err := json.Marshal(f)
		if err != nil {
			return err
		}
		return c.postJSON(context.Background(),
			"/api/rt/send?session="+sessionID, body, nil)
	default:
		return fmt.Errorf("connector is %s", c.State())
	}
}

func (c *Connector) Close() {
	if c.State() == StateClosed {
		return
	}
	c.state.Store(int32(StateClosed))
	if c.cancel != nil {
		c.cancel()
	}
	c.mu.Lock()
	ws := c.ws
	sessionID := c.sessionID
	c.mu.Unlock()
	if ws != nil {
		_ = ws.Close()
	}
	if sessionID != "" {
		_ = c.postJSON(context.Background(), "/api/rt/disconnect?session="+sessionID, nil, nil)
	}
}

func (c *Connector) pushLoop(ctx context.Context, conn *websocket.Conn) {
	defer close(c.frames)
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() == nil && c.State() != StateClosed {
				logger.Infof("[connector] push read err: %v", err)
			}
			return
		}
		out, perr := event.DecodeOutbound(data)
		if perr != nil {
			logger.Infof("[connector] bad push frame: %v", perr)
			continue
		}
		select {
		case c.frames <- *out:
		case <-ctx.Done():
			return
		}
	}
}

func (c *Connector) heartbeatLoop(ctx context.Context) {
	ticker := time.NewTicker(config.HeartbeatInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := c.Send(event.Frame{Kind: event.KindHeartbeat}); err != nil {
				return
			}
		}
	}
}

func (c *Connector) pollLoop(ctx context.Context) {
	defer close(c.frames)
	for {
		interval := config.PollIntervalMin +
			time.Duration(rand.Int63n(int64(config.PollIntervalMax-config.PollIntervalMin)))
		select {
		case <-ctx.Done():
			return
		case <-time.After(interval):
		}

		c.mu.Lock()
		sessionID := c.sessionID
		cursor := c.cursor
		c.mu.Unlock()

		var resp struct {
			Events []BufferedEvent `json:"events"`
			Cursor int64           `json:"cursor"`
		}
		url := fmt.Sprintf("/api/rt/events?session=%s&cursor=%d", sessionID, cursor)
		if err := c.getJSON(ctx, url, &resp); err != nil {
			logger.Infof("[connector] poll fetch failed: %v", err)
			continue
		}
		c.mu.Lock()
		c.cursor = resp.Cursor
		c.mu.Unlock()

		for _, ev := range resp.Events {
			out, perr := event.DecodeOutbound(ev.Data)
			if perr != nil {
				logger.Infof("[connector] bad poll frame: %v", perr)
				continue
			}
			select {
			case c.frames <- *out:
			case <-ctx.Done():
				return
			}
		}
	}
}

func (c *Connector) pollConnect(ctx context.Context) (string, error) {
	var resp struct {
		SessionID string `json:"sessionId"`
	}
	if err := c.postJSON(ctx, "/api/rt/connect?userId="+c.userID, nil, &resp); err != nil {
		return "", err
	}
	if resp.SessionID == "" {
		return "", fmt.Errorf("rt connect returned no session")
	}
	return resp.SessionID, nil
}

func (c *Connector) postJSON(ctx context.Context, path string, body []byte, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.doJSON(req, out)
}

func (c *Connector) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	return c.doJSON(req, out)
}

func (c *Connector) doJSON(req *http.Request, out any) error {
	resp, err := c.httpc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return fmt.Errorf("http %d: %s", resp.StatusCode, b)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
