package storage

import (
	"context"
	"fmt"
	"time"

	rds "TeamWork/service/storage/redis"
)

// Best-effort presence mirror in redis. The durable store stays the
// source of truth; this cache answers "who is online" when Mongo is
// unreachable. Key TTL doubles as the online window.

func presenceKey(user string) string { return "team:presence:" + user }

const presenceScanPrefix = "team:presence:*"

// PresenceTouch marks the user online and renews the TTL.
func PresenceTouch(ctx context.Context, user string, ttl time.Duration) error {
	rdb := rds.Client()
	if rdb == nil {
		return fmt.Errorf("redis not initialized")
	}
	return rdb.Set(ctx, presenceKey(user), time.Now().UnixMilli(), ttl).Err()
}

// PresenceDrop removes the user from the mirror (explicit disconnect).
func PresenceDrop(ctx context.Context, user string) error {
	rdb := rds.Client()
	if rdb == nil {
		return fmt.Errorf("redis not initialized")
	}
	return rdb.Del(ctx, presenceKey(user)).Err()
}

// PresenceOnlineIDs scans the mirror for all currently-online users.
func PresenceOnlineIDs(ctx context.Context) ([]string, error) {
	rdb := rds.Client()
	if rdb == nil {
		return nil, fmt.Errorf("redis not initialized")
	}
	var (
		out    []string
		cursor uint64
	)
	prefixLen := len(presenceScanPrefix) - 1
	for {
		keys, next, err := rdb.Scan(ctx, cursor, presenceScanPrefix, 200).Result()
		if err != nil {
			return nil, err
		}
		for _, k := range keys {
			out = append(out, k[prefixLen:])
		}
		if next == 0 {
			return out, nil
		}
		cursor = next
	}
}
