// Package lock trava distribuída por minuto em Redis, para várias réplicas
// não executarem o mesmo tick.
package lock

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/go-redis/redis/v8"
)

// NewRedisClient cria o cliente Redis
func NewRedisClient(addr, password string, db int) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
}

// Ping testa a conexão
func Ping(ctx context.Context, client *redis.Client) error {
	return client.Ping(ctx).Err()
}

type MinuteLock struct {
	client redis.Cmdable
	prefix string
	ttl    time.Duration
	owner  string
}

// NewMinuteLock ttl deve cobrir a duração máxima de uma execução
func NewMinuteLock(client redis.Cmdable, prefix string, ttl time.Duration) *MinuteLock {
	owner, _ := os.Hostname()
	return &MinuteLock{client: client, prefix: prefix, ttl: ttl, owner: owner}
}

// Acquire tenta reservar (name, minuto). false = outra réplica já reservou.
func (l *MinuteLock) Acquire(ctx context.Context, name string, minute time.Time) (bool, error) {
	key := fmt.Sprintf("%s:%s:%s", l.prefix, name, minute.UTC().Format("200601021504"))

	ok, err := l.client.SetNX(ctx, key, l.owner, l.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to acquire lock %s: %w", key, err)
	}
	return ok, nil
}
