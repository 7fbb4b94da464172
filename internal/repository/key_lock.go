package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrLockBusy is returned when another request holds the key.
var ErrLockBusy = errors.New("resource is busy, retry shortly")

const defaultLockTTL = 5 * time.Second

var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
  return redis.call("del", KEYS[1])
else
  return 0
end`)

// KeyLock is a short lived redis lock used to serialise writes on a single key.
// A nil client turns every acquisition into a no-op.
type KeyLock struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewKeyLock constructs a lock namespace.
func NewKeyLock(client *redis.Client, prefix string, ttl time.Duration) *KeyLock {
	if ttl <= 0 {
		ttl = defaultLockTTL
	}
	return &KeyLock{client: client, prefix: prefix, ttl: ttl}
}

// Acquire takes the lock for key and returns its release func. ErrLockBusy means someone
// else holds it.
func (l *KeyLock) Acquire(ctx context.Context, key string) (func(), error) {
	if l == nil || l.client == nil {
		return func() {}, nil
	}

	fullKey := l.prefix + ":" + key
	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, fullKey, token, l.ttl).Result()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrLockBusy
	}

	return func() {
		// released with a fresh context so a cancelled request still frees the key
		releaseCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = releaseScript.Run(releaseCtx, l.client, []string{fullKey}, token).Err()
	}, nil
}
