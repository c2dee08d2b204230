package main

import (
	"context"
	"fmt"
	"time"

	"TeamWork/data/database/mgo/mongoutil"
	"TeamWork/global/config"
	"TeamWork/logger"
	"TeamWork/module/chat"
	dir "TeamWork/module/directory/service"
	"TeamWork/module/presence"
	"TeamWork/module/sorter"
	"TeamWork/service/api"
	"TeamWork/service/gateway"
	mgosvc "TeamWork/service/mgo"
	"TeamWork/service/storage/redis"
	"TeamWork/tools/ids"
	"TeamWork/tools/security"
)

func main() {
	config.Load()
	ids.SetNodeID(config.Global.NodeID)

	if err := redis.InitRedis(redis.Config{
		Addr:     config.Global.RedisAddr,
		Password: config.Global.RedisPass,
		DB:       config.Global.RedisDB,
	}); err != nil {
		logger.Warnf("[boot] redis unavailable, presence mirror disabled: %v", err)
	}

	ctx := context.Background()
	mgosvc.StartAsync(ctx, &mongoutil.Config{
		Uri:         config.Global.MongoURI,
		Database:    config.Global.MongoDB,
		MaxPoolSize: 100,
		MaxRetry:    5,
	})
	waitCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	if err := mgosvc.WaitReady(waitCtx); err != nil {
		logger.Warnf("[boot] mongo not ready yet, running degraded: %v", err)
	} else if err := sorter.EnsureQueueIndexes(ctx); err != nil {
		logger.Warnf("[boot] queue index: %v", err)
	}
	cancel()

	// directory + sessions
	dirStore := dir.NewMongoStore()
	directory := dir.NewDirectory(dirStore)
	resolver := dir.NewSessionResolver(dirStore, security.DefaultOptions(config.Global.JWTSecret))

	// stores; presence and messages keep a warm memory fallback
	presenceStore := presence.NewFailoverStore(presence.NewMongoStore(), presence.NewMemStore())
	msgStore := chat.NewFailoverMessageStore(chat.NewMongoMessageStore(), chat.NewMemMessageStore())
	unreadStore := chat.NewMongoUnreadStore()
	queueStore := sorter.NewMongoQueueStore()
	assignStore := sorter.NewMongoAssignmentStore()

	hub := gateway.NewHub()

	tracker := presence.NewTracker(presenceStore, hub, true)
	unread := chat.NewUnread(unreadStore)
	rooms := chat.NewRooms(msgStore, unread, directory, hub, hub)
	queue := sorter.NewQueue(queueStore, hub)
	distributor := sorter.NewDistributor(queue, queueStore, assignStore, directory, tracker, hub)
	claims := sorter.NewClaims(queue, queueStore, assignStore, rooms)

	gw := gateway.NewServer(hub, tracker, rooms)

	r := api.Setup(&api.Deps{
		Rooms:       rooms,
		Unread:      unread,
		Queue:       queue,
		Distributor: distributor,
		Claims:      claims,
		Tracker:     tracker,
		Gateway:     gw,
		Resolver:    resolver,
	})

	addr := fmt.Sprintf(":%d", config.Global.Port)
	logger.Infof("[boot] listening on %s", addr)
	if err := r.Run(addr); err != nil {
		logger.Errorf("[boot] server exited: %v", err)
	}
}
