package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"evidex/pkg/platform/sentinel"
)

const (
	leaseKeyPrefix    = "evidex:lease:"
	defaultLeaseTTL   = 10 * time.Second
	defaultRetryDelay = 25 * time.Millisecond
	maxRetryDelay     = 250 * time.Millisecond
)

// releaseScript deletes the lease only if we still own it.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Redis is a lease shared by every instance. The TTL bounds how long a
// crashed holder can block the series.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
}

type RedisOption func(*Redis)

func WithLeaseTTL(ttl time.Duration) RedisOption {
	return func(r *Redis) {
		if ttl > 0 {
			r.ttl = ttl
		}
	}
}

func NewRedis(client *redis.Client, opts ...RedisOption) *Redis {
	r := &Redis{client: client, ttl: defaultLeaseTTL}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Redis) Acquire(ctx context.Context, key string) (func(), error) {
	leaseKey := leaseKeyPrefix + key
	token := uuid.NewString()
	delay := defaultRetryDelay

	for {
		ok, err := r.client.SetNX(ctx, leaseKey, token, r.ttl).Result()
		if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("acquire lease %s: %w: %w", key, sentinel.ErrUnavailable, err)
		}
		if ok {
			return func() {
				// Release must run even when the request ctx is already done.
				releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
				defer cancel()
				_ = releaseScript.Run(releaseCtx, r.client, []string{leaseKey}, token).Err()
			}, nil
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, fmt.Errorf("acquire lease %s: %w: %w", key, sentinel.ErrLockNotAcquired, ctx.Err())
		case <-timer.C:
		}
		delay = min(delay*2, maxRetryDelay)
	}
}
