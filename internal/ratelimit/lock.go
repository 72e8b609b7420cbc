package ratelimit

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	redis "github.com/redis/go-redis/v9"
)

// unlockScript deletes the key only while it still holds the caller's token,
// so an expired lease never frees a lock another request now owns.
const unlockScript = `
if redis.call("GET", KEYS[1]) ~= ARGV[1] then
  return 0
end
return redis.call("DEL", KEYS[1])
`

// Lease is a held document lock.
type Lease struct {
	Key   string
	Token string
}

type Locker struct {
	client redis.Cmdable
	unlock *redis.Script
}

func NewLocker(client redis.Cmdable) *Locker {
	if client == nil {
		return nil
	}
	return &Locker{client: client, unlock: redis.NewScript(unlockScript)}
}

// TryLock returns a nil lease without error when another holder owns key.
func (l *Locker) TryLock(ctx context.Context, key string, ttl time.Duration) (*Lease, error) {
	switch {
	case l == nil || l.client == nil:
		return nil, ErrNotConfigured
	case key == "":
		return nil, errors.New("lock key is empty")
	case ttl <= 0:
		return nil, errors.New("lock ttl must be positive")
	}

	lease := &Lease{Key: key, Token: uuid.NewString()}
	acquired, err := l.client.SetNX(ctx, key, lease.Token, ttl).Result()
	if err != nil {
		return nil, err
	}
	if !acquired {
		return nil, nil
	}
	return lease, nil
}

func (l *Locker) Release(ctx context.Context, lease *Lease) error {
	if l == nil || l.client == nil || lease == nil || lease.Token == "" {
		return nil
	}
	return l.unlock.Run(ctx, l.client, []string{lease.Key}, lease.Token).Err()
}
