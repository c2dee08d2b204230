package api

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"TeamWork/middleware"
	"TeamWork/module/chat"
	"TeamWork/module/presence"
	"TeamWork/module/sorter"
	"TeamWork/service/gateway"
)

// Deps carries everything the HTTP surface needs.
type Deps struct {
	Rooms       *chat.Rooms
	Unread      *chat.Unread
	Queue       *sorter.Queue
	Distributor *sorter.Distributor
	Claims      *sorter.Claims
	Tracker     *presence.Tracker
	Gateway     *gateway.Server
	Resolver    middleware.UserResolver
}

// Setup assembles the gin engine: REST mirror of every push operation
// plus the websocket upgrade.
func Setup(d *Deps) *gin.Engine {
	r := gin.Default()
	r.Use(middleware.CORS())

	ch := &chatHandler{rooms: d.Rooms, unread: d.Unread}
	ph := &presenceHandler{tracker: d.Tracker}
	sh := &sorterHandler{queue: d.Queue, distributor: d.Distributor, claims: d.Claims}
	rh := &rtHandler{gw: d.Gateway, resolver: d.Resolver}
	auth := middleware.Auth(d.Resolver)

	r.GET("/api/ping", func(c *gin.Context) {
		ok(c, gin.H{"pong": true})
	})
	r.GET("/ws", d.Gateway.HandleWS(d.Resolver))

	chatGroup := r.Group("/api/chat")
	{
		chatGroup.GET("/dm/:a/:b", ch.resolveDm)
		chatGroup.GET("/unread", auth, ch.unreadMap)
		chatGroup.POST("/unread/clear", auth, ch.clearUnread)
		chatGroup.POST("/unread/clear-all", auth, ch.clearAllUnread)
		chatGroup.GET("/:roomId/messages", ch.listMessages)
		chatGroup.POST("/:roomId/messages", auth, ch.postMessage)
	}

	pres := r.Group("/api/presence")
	{
		pres.POST("/heartbeat", auth, ph.heartbeat)
		pres.GET("/online", ph.online)
	}

	sort := r.Group("/api/sorter")
	{
		sort.GET("/pending", sh.pending)
		sort.POST("/add", sh.add)
		sort.POST("/clear", sh.clear)
		sort.POST("/distribute", sh.distribute)
		sort.GET("/assignments", auth, sh.assignments)
		sort.POST("/claim", auth, sh.claim)
		sort.POST("/assign-direct", sh.assignDirect)
	}

	rt := r.Group("/api/rt")
	{
		rt.POST("/connect", rh.connect)
		rt.GET("/events", rh.events)
		rt.POST("/send", rh.send)
		rt.POST("/disconnect", rh.disconnect)
	}

	return r
}

func parseInt64(s string, def int64) int64 {
	if s == "" {
		return def
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return def
	}
	return v
}
