package rdx

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrMiss is returned by Get when the key does not exist or has expired.
var ErrMiss = errors.New("rdx: key not found")

// KV is the slice of Redis the handlers use: short-lived codes and cached
// display names.
type KV interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
	// Incr adds one to the counter at key. ttl is applied when the counter is created.
	Incr(ctx context.Context, key string, ttl time.Duration) (int64, error)
}

// Connect opens a client and pings it.
func Connect(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	conn := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := conn.Ping(ctx).Err(); err != nil {
		_ = conn.Close()
		return nil, err
	}
	return conn, nil
}

// Redis adapts a go-redis client to KV.
type Redis struct {
	Conn *redis.Client
}

func (r Redis) Get(ctx context.Context, key string) (string, error) {
	val, err := r.Conn.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrMiss
	}
	return val, err
}

func (r Redis) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return r.Conn.Set(ctx, key, value, ttl).Err()
}

func (r Redis) Del(ctx context.Context, keys ...string) error {
	return r.Conn.Del(ctx, keys...).Err()
}

func (r Redis) Incr(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	n, err := r.Conn.Incr(ctx, key).Result()
	if err != nil {
		return 0, err
	}
	if n == 1 && ttl > 0 {
		if err := r.Conn.Expire(ctx, key, ttl).Err(); err != nil {
			return n, err
		}
	}
	return n, nil
}
