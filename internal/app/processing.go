/**
 * @description
 * This file implements the per-customer "processing" flag that gates
 * resubmission. While the flag is held, a second submit for the same customer
 * is rejected instead of creating a duplicate pending order. The Redis
 * implementation makes the guard hold across service instances; the in-memory
 * implementation is the fallback when Redis is not configured.
 */

package app

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// ProcessingFlag is the one-per-customer submission gate. Acquire reports
// whether the caller now holds the flag; a false result means another attempt
// is already in flight.
type ProcessingFlag interface {
	Acquire(ctx context.Context, customerID string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, customerID string) error
}

// RedisProcessingFlag implements the flag with SET NX + TTL so the guard holds
// across instances. The TTL is a backstop: the flow releases the flag at every
// terminal state, the TTL only covers a crashed instance.
type RedisProcessingFlag struct {
	client redis.UniversalClient
	prefix string
}

// NewRedisProcessingFlag creates a Redis-backed processing flag.
func NewRedisProcessingFlag(client redis.UniversalClient, prefix string) *RedisProcessingFlag {
	trimmedPrefix := strings.TrimSpace(prefix)
	if trimmedPrefix == "" {
		trimmedPrefix = "stayfront:checkout_processing"
	}
	trimmedPrefix = strings.TrimSuffix(trimmedPrefix, ":")

	return &RedisProcessingFlag{client: client, prefix: trimmedPrefix}
}

func (r *RedisProcessingFlag) key(customerID string) string {
	return fmt.Sprintf("%s:%s", r.prefix, strings.TrimSpace(customerID))
}

func (r *RedisProcessingFlag) Acquire(ctx context.Context, customerID string, ttl time.Duration) (bool, error) {
	if r == nil || r.client == nil {
		return true, nil
	}
	return r.client.SetNX(ctx, r.key(customerID), "1", ttl).Result()
}

func (r *RedisProcessingFlag) Release(ctx context.Context, customerID string) error {
	if r == nil || r.client == nil {
		return nil
	}
	return r.client.Del(ctx, r.key(customerID)).Err()
}

// MemoryProcessingFlag is a single-instance flag used when Redis is absent.
type MemoryProcessingFlag struct {
	mu   sync.Mutex
	held map[string]time.Time
}

// NewMemoryProcessingFlag creates an in-memory processing flag.
func NewMemoryProcessingFlag() *MemoryProcessingFlag {
	return &MemoryProcessingFlag{held: make(map[string]time.Time)}
}

func (m *MemoryProcessingFlag) Acquire(ctx context.Context, customerID string, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	if until, ok := m.held[customerID]; ok && until.After(now) {
		return false, nil
	}
	m.held[customerID] = now.Add(ttl)
	return true, nil
}

func (m *MemoryProcessingFlag) Release(ctx context.Context, customerID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.held, customerID)
	return nil
}
