package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/johnquangdev/meeting-rag/internal/domain/repositories"
	"github.com/johnquangdev/meeting-rag/pkg/config"
)

const reservationKeyPrefix = "meeting-rag:reserve:"

// MemoryReserver holds reservations in process memory.
type MemoryReserver struct {
	store *MemoryStore[struct{}]
}

// NewMemoryReserver creates an in-process reserver.
func NewMemoryReserver() *MemoryReserver {
	return &MemoryReserver{store: NewMemoryStore[struct{}](Options{})}
}

// Reserve implements repositories.IDReserver.
func (r *MemoryReserver) Reserve(_ context.Context, id string, ttl time.Duration) (bool, error) {
	return r.store.SetIfAbsent(id, struct{}{}, ttl), nil
}

// Release implements repositories.IDReserver.
func (r *MemoryReserver) Release(_ context.Context, id string) error {
	r.store.Delete(id)
	return nil
}

// RedisReserver holds reservations in Redis so several API instances share
// them.
type RedisReserver struct {
	client redis.UniversalClient
}

// NewRedisReserver wraps an existing client.
func NewRedisReserver(client redis.UniversalClient) *RedisReserver {
	return &RedisReserver{client: client}
}

// Reserve implements repositories.IDReserver with SET NX.
func (r *RedisReserver) Reserve(ctx context.Context, id string, ttl time.Duration) (bool, error) {
	ok, err := r.client.SetNX(ctx, reservationKeyPrefix+id, time.Now().UTC().Format(time.RFC3339), ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to reserve meeting id: %w", err)
	}
	return ok, nil
}

// Release implements repositories.IDReserver.
func (r *RedisReserver) Release(ctx context.Context, id string) error {
	if err := r.client.Del(ctx, reservationKeyPrefix+id).Err(); err != nil {
		return fmt.Errorf("failed to release meeting id: %w", err)
	}
	return nil
}

// NewRedisClient connects to Redis and verifies the connection.
func NewRedisClient(ctx context.Context, cfg *config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return client, nil
}

var (
	_ repositories.IDReserver = (*MemoryReserver)(nil)
	_ repositories.IDReserver = (*RedisReserver)(nil)
)
