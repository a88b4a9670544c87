package deduplication

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RedisLockConfig configures the Redis-backed run lock.
type RedisLockConfig struct {
	Addr     string // e.g. localhost:6379
	Password string
	DB       int
	Key      string // redis key holding the lock token
	// TTL bounds how long a crashed run can block the next one.
	TTL time.Duration
}

// releaseScript deletes the key only if it still holds our token, so a run
// whose lock expired cannot release a lock taken by the next run.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLock is a SET NX lock shared by every host pointing at the same state.
type RedisLock struct {
	client *redis.Client
	key    string
	ttl    time.Duration
}

// NewRedisLock creates the client and verifies connectivity.
func NewRedisLock(cfg RedisLockConfig) (*RedisLock, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	// Ping to verify
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.Addr, err)
	}

	return newRedisLockWithClient(client, cfg), nil
}

func newRedisLockWithClient(client *redis.Client, cfg RedisLockConfig) *RedisLock {
	key := cfg.Key
	if key == "" {
		key = "warnmonitor:lock"
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &RedisLock{client: client, key: key, ttl: ttl}
}

func (r *RedisLock) Lock(ctx context.Context) (func() error, error) {
	token := uuid.NewString()

	ok, err := r.client.SetNX(ctx, r.key, token, r.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("redis lock %s: %w", r.key, err)
	}
	if !ok {
		return nil, ErrLocked
	}

	return func() error {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return releaseScript.Run(ctx, r.client, []string{r.key}, token).Err()
	}, nil
}

// Close closes the underlying Redis client
func (r *RedisLock) Close() error {
	return r.client.Close()
}
