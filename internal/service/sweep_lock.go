package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// SweepLock keeps monitor sweeps from overlapping across instances.
type SweepLock interface {
	// Acquire reports whether the lock was taken. release must be called when ok is true.
	Acquire(ctx context.Context) (release func(), ok bool, err error)
}

// releaseScript deletes the key only when it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call('GET', KEYS[1]) == ARGV[1] then
    return redis.call('DEL', KEYS[1])
end
return 0
`)

type RedisSweepLock struct {
	client *redis.Client
	key    string
	ttl    time.Duration
}

func NewRedisSweepLock(client *redis.Client, key string, ttl time.Duration) *RedisSweepLock {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &RedisSweepLock{client: client, key: key, ttl: ttl}
}

func (l *RedisSweepLock) Acquire(ctx context.Context) (func(), bool, error) {
	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, l.key, token, l.ttl).Result()
	if err != nil || !ok {
		return nil, false, err
	}
	return func() {
		_ = releaseScript.Run(context.Background(), l.client, []string{l.key}, token).Err()
	}, true, nil
}

// localSweepLock is used when no Redis is configured; a single instance never overlaps itself.
type localSweepLock struct{}

func NewLocalSweepLock() SweepLock { return localSweepLock{} }

func (localSweepLock) Acquire(context.Context) (func(), bool, error) {
	return func() {}, true, nil
}
