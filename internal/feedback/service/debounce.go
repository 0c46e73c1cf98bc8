package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"jury_portal_backend/internal/scheduler"
	"jury_portal_backend/platform/config"

	"github.com/redis/go-redis/v9"
)

const debounceKeyPrefix = "feedback:enhance:"

// Debouncer admits at most one call per key within its window.
type Debouncer interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// RedisDebouncer keeps the window in Redis so every API replica shares it.
type RedisDebouncer struct {
	client redis.Cmdable
	window time.Duration
}

func NewRedisDebouncer(client redis.Cmdable, window time.Duration) *RedisDebouncer {
	return &RedisDebouncer{client: client, window: window}
}

// Allow sets the key with SET NX PX; an existing key means the window is open.
func (d *RedisDebouncer) Allow(ctx context.Context, key string) (bool, error) {
	ok, err := d.client.SetNX(ctx, debounceKeyPrefix+key, time.Now().UnixMilli(), d.window).Result()
	if err != nil {
		return false, fmt.Errorf("debounce %s: %w", key, err)
	}
	return ok, nil
}

// MemoryDebouncer is the single-process fallback.
type MemoryDebouncer struct {
	mu     sync.Mutex
	last   map[string]time.Time
	window time.Duration
	now    func() time.Time
}

func NewMemoryDebouncer(window time.Duration) *MemoryDebouncer {
	return &MemoryDebouncer{last: make(map[string]time.Time), window: window, now: time.Now}
}

func (d *MemoryDebouncer) Allow(_ context.Context, key string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()
	if prev, ok := d.last[key]; ok && now.Sub(prev) < d.window {
		return false, nil
	}
	d.last[key] = now
	// drop expired entries so the map stays bounded by active keys
	for k, t := range d.last {
		if now.Sub(t) >= d.window {
			delete(d.last, k)
		}
	}
	return true, nil
}

// NewDebouncer uses Redis when a URL is configured and memory otherwise. The
// returned close func releases the Redis client.
func NewDebouncer(sched config.SchedulerConfig, window time.Duration) (Debouncer, func() error, error) {
	if sched.GetRedisURL() == "" {
		return NewMemoryDebouncer(window), func() error { return nil }, nil
	}
	opt, err := scheduler.RedisOptions(sched.GetRedisURL(), sched.GetRedisTLSInsecure())
	if err != nil {
		return nil, nil, err
	}
	client := redis.NewClient(opt)
	return NewRedisDebouncer(client, window), client.Close, nil
}
