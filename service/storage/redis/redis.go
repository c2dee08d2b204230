package redis

import (
	"context"

	"github.com/redis/go-redis/v9"
)

type Config struct {
	Addr     string
	Password string
	DB       int
}

var rdb *redis.Client

func InitRedis(c Config) error {
	rdb = redis.NewClient(&redis.Options{Addr: c.Addr, Password: c.Password, DB: c.DB})
	return rdb.Ping(context.Background()).Err()
}

// Client returns the shared client, or nil when InitRedis has not
// succeeded. Callers on best-effort paths must tolerate nil.
func Client() *redis.Client {
	return rdb
}
