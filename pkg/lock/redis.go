package lock

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/redis/go-redis/v9"
)

const (
	keyPrefix    = "lock:account:"
	retryBackoff = 25 * time.Millisecond
)

var ErrNotOwner = errors.New("lock is not owned by this token")

var releaseLua = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Redis is a distributed lock built on SET NX PX. The TTL bounds how long a
// crashed holder can block the key.
type Redis struct {
	client redis.UniversalClient
	ttl    time.Duration
}

func NewRedis(client redis.UniversalClient, ttl time.Duration) *Redis {
	return &Redis{
		client: client,
		ttl:    ttl,
	}
}

func (r *Redis) Lock(ctx context.Context, key string) (func(), error) {
	redisKey := keyPrefix + key
	token := uuid.Must(uuid.NewV4()).String()

	for {
		ok, err := r.client.SetNX(ctx, redisKey, token, r.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("acquire lock: %w", err)
		}

		if ok {
			break
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(retryBackoff):
		}
	}

	unlock := func() {
		// release must survive a cancelled request context
		err := r.release(context.WithoutCancel(ctx), redisKey, token)
		if err != nil {
			slog.WarnContext(ctx, "release account lock", "key", key, "error", err)
		}
	}

	return unlock, nil
}

func (r *Redis) release(ctx context.Context, key, token string) error {
	n, err := releaseLua.Run(ctx, r.client, []string{key}, token).Int()
	if err != nil {
		return fmt.Errorf("release lock: %w", err)
	}

	if n == 0 {
		return ErrNotOwner
	}

	return nil
}
