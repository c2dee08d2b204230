package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"TeamWork/logger"
)

// Presence and transport timing. The client heartbeats every
// HeartbeatInterval; a user counts as online while the last heartbeat is
// younger than OnlineWindow. A disconnect rewinds lastSeen by
// DisconnectSkew so the user drops out of the online set immediately.
const (
	OnlineWindow      = 30 * time.Second
	HeartbeatInterval = 10 * time.Second
	DisconnectSkew    = 60 * time.Second

	PollIntervalMin = 2 * time.Second
	PollIntervalMax = 5 * time.Second

	// Poll sessions with no fetch for this long are swept.
	PollSessionTTL = 90 * time.Second

	DefaultHistoryLimit = 100
)

// SystemUserID authors server-generated messages (distribution payloads,
// announcements).
const SystemUserID = "system"

// AppConfig holds process-level settings, loaded from the environment.
type AppConfig struct {
	Port      int
	MongoURI  string
	MongoDB   string
	RedisAddr string
	RedisPass string
	RedisDB   int
	JWTSecret []byte
	NodeID    int64
}

var Global AppConfig

// Load reads .env (if present) and fills Global. Missing values fall back
// to local-dev defaults.
func Load() {
	if err := godotenv.Load(); err != nil {
		logger.Infof("[config] no .env file, using environment as-is")
	}

	Global = AppConfig{
		Port:      envInt("PORT", 8080),
		MongoURI:  envStr("MONGODB_URI", "mongodb://localhost:27017"),
		MongoDB:   envStr("MONGODB_DB", "teamwork"),
		RedisAddr: envStr("REDIS_ADDR", "127.0.0.1:6379"),
		RedisPass: envStr("REDIS_PASSWORD", ""),
		RedisDB:   envInt("REDIS_DB", 0),
		JWTSecret: []byte(envStr("JWT_SECRET", "dev-secret-change-me")),
		NodeID:    int64(envInt("NODE_ID", 1)),
	}
}

func envStr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		logger.Warnf("[config] bad %s=%q, using %d", key, v, def)
		return def
	}
	return n
}
