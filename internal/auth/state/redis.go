package state

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrStateNotFound is returned when a callback presents a state that was
// never issued, already redeemed, or expired.
var ErrStateNotFound = errors.New("oauth state not found")

// Redis stores single-use anti-CSRF states for the OAuth authorization
// round-trip. Each state lives for one TTL and is consumed on redeem, so a
// replayed callback fails.
type Redis struct {
	rdb *redis.Client
	ttl time.Duration
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	TTL      time.Duration
}

func NewRedis(cfg RedisConfig) *Redis {
	rdb := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	return &Redis{
		rdb: rdb,
		ttl: cfg.TTL,
	}
}

const keyPrefix = "oauth_state:"

func (r *Redis) Issue(ctx context.Context) (string, error) {
	for range 3 {
		state := randState(32)
		ok, err := r.rdb.SetNX(ctx, keyPrefix+state, "1", r.ttl).Result()
		if err != nil {
			return "", fmt.Errorf("store state in redis: %w", err)
		}
		if ok {
			return state, nil
		}
	}

	return "", fmt.Errorf("failed to generate unique state")
}

func (r *Redis) Redeem(ctx context.Context, state string) error {
	_, err := r.rdb.GetDel(ctx, keyPrefix+state).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return ErrStateNotFound
		}

		return fmt.Errorf("retrieve state from redis: %w", err)
	}

	return nil
}

func (r *Redis) Close() error {
	return r.rdb.Close()
}

func randState(size int) string {
	b := make([]byte, size)

	// rand.Read never returns an error
	_, _ = rand.Read(b)
	return base64.RawURLEncoding.EncodeToString(b)
}
