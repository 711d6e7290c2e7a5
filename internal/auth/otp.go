package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Pending is a registration waiting for its one-time code.
type Pending struct {
	UUID     string `json:"uuid"`
	Code     string `json:"code"`
	Attempts int    `json:"attempts"`
	User     User   `json:"user"`
}

type OTPStore interface {
	Save(ctx context.Context, pending Pending, ttl time.Duration) error
	// Load returns the registration and its remaining lifetime, or
	// ErrRegistrationNotFound once it expired.
	Load(ctx context.Context, id string) (Pending, time.Duration, error)
	Delete(ctx context.Context, id string) error
}

type memoryEntry struct {
	pending   Pending
	expiresAt time.Time
}

type MemoryOTPStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

func NewMemoryOTPStore() *MemoryOTPStore {
	return &MemoryOTPStore{entries: make(map[string]memoryEntry), now: time.Now}
}

func (m *MemoryOTPStore) Save(_ context.Context, pending Pending, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[pending.UUID] = memoryEntry{pending: pending, expiresAt: m.now().Add(ttl)}
	return nil
}

func (m *MemoryOTPStore) Load(_ context.Context, id string) (Pending, time.Duration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry, ok := m.entries[id]
	if !ok {
		return Pending{}, 0, ErrRegistrationNotFound
	}
	left := entry.expiresAt.Sub(m.now())
	if left <= 0 {
		delete(m.entries, id)
		return Pending{}, 0, ErrRegistrationNotFound
	}
	return entry.pending, left, nil
}

func (m *MemoryOTPStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, id)
	return nil
}

const redisKeyPrefix = "lesson:registration:"

// RedisOTPStore keeps registrations in Redis and lets key expiry handle the
// code lifetime.
type RedisOTPStore struct {
	client *redis.Client
}

func NewRedisOTPStore(client *redis.Client) *RedisOTPStore {
	return &RedisOTPStore{client: client}
}

// NewRedisClient connects to url and pings the server.
func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}
	return client, nil
}

func (r *RedisOTPStore) Save(ctx context.Context, pending Pending, ttl time.Duration) error {
	raw, err := json.Marshal(pending)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, redisKeyPrefix+pending.UUID, raw, ttl).Err()
}

func (r *RedisOTPStore) Load(ctx context.Context, id string) (Pending, time.Duration, error) {
	key := redisKeyPrefix + id
	pipe := r.client.TxPipeline()
	get := pipe.Get(ctx, key)
	ttl := pipe.PTTL(ctx, key)
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return Pending{}, 0, err
	}

	raw, err := get.Bytes()
	if errors.Is(err, redis.Nil) {
		return Pending{}, 0, ErrRegistrationNotFound
	}
	if err != nil {
		return Pending{}, 0, err
	}
	left := ttl.Val()
	if left <= 0 {
		return Pending{}, 0, ErrRegistrationNotFound
	}

	var pending Pending
	if err := json.Unmarshal(raw, &pending); err != nil {
		return Pending{}, 0, err
	}
	return pending, left, nil
}

func (r *RedisOTPStore) Delete(ctx context.Context, id string) error {
	return r.client.Del(ctx, redisKeyPrefix+id).Err()
}
