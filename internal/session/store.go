package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"clipscribe/internal/models"
	"clipscribe/internal/redis"
)

// ErrNotFound reports that no session record exists for an identifier.
var ErrNotFound = errors.New("session not found")

// Store maps a session identifier to an authenticated-user record.
// Implementations must tolerate concurrent access for different identifiers;
// for the same identifier the last write wins.
type Store interface {
	Get(ctx context.Context, id string) (*models.SessionRecord, error)
	Set(ctx context.Context, id string, rec models.SessionRecord) error
	Delete(ctx context.Context, id string) error
}

type memoryEntry struct {
	rec       models.SessionRecord
	expiresAt time.Time
}

// MemoryStore is the in-process Store used for single-instance deployments.
type MemoryStore struct {
	mu      sync.RWMutex
	ttl     time.Duration
	entries map[string]memoryEntry
}

// NewMemoryStore builds a MemoryStore whose records expire after ttl.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &MemoryStore{
		ttl:     ttl,
		entries: make(map[string]memoryEntry),
	}
}

func (s *MemoryStore) Get(_ context.Context, id string) (*models.SessionRecord, error) {
	s.mu.RLock()
	entry, ok := s.entries[id]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	if time.Now().After(entry.expiresAt) {
		s.mu.Lock()
		delete(s.entries, id)
		s.mu.Unlock()
		return nil, ErrNotFound
	}
	rec := entry.rec
	return &rec, nil
}

func (s *MemoryStore) Set(_ context.Context, id string, rec models.SessionRecord) error {
	if id == "" {
		return errors.New("session id required")
	}
	now := time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()
	// Sweep anything already expired while we hold the lock.
	for key, entry := range s.entries {
		if now.After(entry.expiresAt) {
			delete(s.entries, key)
		}
	}
	s.entries[id] = memoryEntry{rec: rec, expiresAt: now.Add(s.ttl)}
	return nil
}

// Delete is idempotent: removing an absent session succeeds.
func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	delete(s.entries, id)
	s.mu.Unlock()
	return nil
}

// RedisStore keeps session records in redis so multiple instances can share
// them. Records are stored as JSON under a session: prefix with the store TTL.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore builds a RedisStore over an already-connected client.
func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &RedisStore{client: client, ttl: ttl}
}

func redisKey(id string) string { return "session:" + id }

func (s *RedisStore) Get(ctx context.Context, id string) (*models.SessionRecord, error) {
	raw, err := s.client.Get(ctx, redisKey(id))
	if err != nil {
		if errors.Is(err, redis.ErrCacheMiss) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("lookup session: %w", err)
	}
	var rec models.SessionRecord
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		// A record we cannot decode is treated as absent, not a crash.
		return nil, ErrNotFound
	}
	return &rec, nil
}

func (s *RedisStore) Set(ctx context.Context, id string, rec models.SessionRecord) error {
	if id == "" {
		return errors.New("session id required")
	}
	raw, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := s.client.Set(ctx, redisKey(id), raw, s.ttl); err != nil {
		return fmt.Errorf("store session: %w", err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, id string) error {
	if err := s.client.Del(ctx, redisKey(id)); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}
