// Package prefs persists per-user UI preferences.
package prefs

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	keyPrefix     = "invent:prefs:" // hash per user: invent:prefs:{user}
	fieldPageSize = "page_size"
	prefsTTL      = 90 * 24 * time.Hour
)

// Store reads and writes preferences. ok is false when the user never set
// a value.
type Store interface {
	PageSize(ctx context.Context, user string) (size int, ok bool, err error)
	SetPageSize(ctx context.Context, user string, size int) error
}

// Redis keeps preferences in a Redis hash per user.
type Redis struct {
	client *redis.Client
}

// NewRedis creates a Redis backed store.
func NewRedis(client *redis.Client) *Redis {
	return &Redis{client: client}
}

// Dial parses a redis:// URL and checks the connection.
func Dial(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return client, nil
}

func (r *Redis) PageSize(ctx context.Context, user string) (int, bool, error) {
	v, err := r.client.HGet(ctx, key(user), fieldPageSize).Result()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to get page size: %w", err)
	}
	size, err := strconv.Atoi(v)
	if err != nil || size <= 0 {
		return 0, false, nil
	}
	return size, true, nil
}

func (r *Redis) SetPageSize(ctx context.Context, user string, size int) error {
	if size <= 0 {
		return fmt.Errorf("page size must be positive, got %d", size)
	}
	k := key(user)
	pipe := r.client.TxPipeline()
	pipe.HSet(ctx, k, fieldPageSize, size)
	pipe.Expire(ctx, k, prefsTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to set page size: %w", err)
	}
	return nil
}

// Ping checks the connection.
func (r *Redis) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func key(user string) string {
	return keyPrefix + user
}

// Memory keeps preferences for the life of the process.
type Memory struct {
	mu    sync.Mutex
	sizes map[string]int
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{sizes: make(map[string]int)}
}

func (m *Memory) PageSize(_ context.Context, user string) (int, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	size, ok := m.sizes[user]
	return size, ok, nil
}

func (m *Memory) SetPageSize(_ context.Context, user string, size int) error {
	if size <= 0 {
		return fmt.Errorf("page size must be positive, got %d", size)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sizes[user] = size
	return nil
}
