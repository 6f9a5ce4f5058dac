package worker

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Locker grants exclusive, expiring run locks
type Locker interface {
	// Acquire returns ok=false when another holder owns key
	Acquire(ctx context.Context, key string, ttl time.Duration) (release func(), ok bool, err error)
}

// releaseScript deletes the key only if it still carries our token
var releaseScript = redis.NewScript(`
	if redis.call('GET', KEYS[1]) == ARGV[1] then
		return redis.call('DEL', KEYS[1])
	end
	return 0
`)

// RedisLock is a SET NX PX lock on a single Redis instance
type RedisLock struct {
	client redis.UniversalClient
}

func NewRedisLock(client redis.UniversalClient) *RedisLock {
	return &RedisLock{client: client}
}

func (l *RedisLock) Acquire(ctx context.Context, key string, ttl time.Duration) (func(), bool, error) {
	token := uuid.New().String()
	ok, err := l.client.SetNX(ctx, key, token, ttl).Result()
	if err != nil || !ok {
		return nil, false, err
	}
	release := func() {
		// the run context may already be cancelled
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = releaseScript.Run(ctx, l.client, []string{key}, token).Err()
	}
	return release, true, nil
}
