package lease

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// releaseScript deletes the key only while it still holds our token.
var releaseScript = goredis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Redis is a Locker shared by every process talking to one Redis.
type Redis struct {
	rdb       *goredis.Client
	keyPrefix string
}

// NewRedis connects to addr and checks the connection.
func NewRedis(ctx context.Context, addr, password string) (*Redis, error) {
	if addr == "" {
		return nil, fmt.Errorf("missing REDIS_ADDR")
	}
	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		Password:    password,
		DialTimeout: 5 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &Redis{rdb: rdb, keyPrefix: "ohsched:lease:"}, nil
}

func (r *Redis) Close() error { return r.rdb.Close() }

func (r *Redis) Acquire(ctx context.Context, name string, ttl time.Duration) (*Lease, error) {
	key := r.keyPrefix + name
	l := newLease(name, ttl, func(ctx context.Context, token string) error {
		n, err := releaseScript.Run(ctx, r.rdb, []string{key}, token).Int()
		if err != nil {
			return fmt.Errorf("redis release %s: %w", name, err)
		}
		if n == 0 {
			return fmt.Errorf("%w: %s", ErrLeaseLost, name)
		}
		return nil
	})
	ok, err := r.rdb.SetNX(ctx, key, l.Token, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("redis acquire %s: %w", name, err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrLeaseHeld, name)
	}
	return l, nil
}
