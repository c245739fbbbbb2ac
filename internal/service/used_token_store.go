package service

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// UsedTokenStore registra jti de tokens de un solo uso (verificacion y reseteo).
type UsedTokenStore interface {
	// MarkUsed devuelve true solo la primera vez que se marca el jti.
	MarkUsed(jti string, ttl time.Duration) (bool, error)
	// IsUsed consulta sin marcar.
	IsUsed(jti string) (bool, error)
}

type memoryUsedTokenStore struct {
	mu    sync.Mutex
	items map[string]time.Time
}

func NewMemoryUsedTokenStore() UsedTokenStore {
	return &memoryUsedTokenStore{
		items: make(map[string]time.Time),
	}
}

func (s *memoryUsedTokenStore) MarkUsed(jti string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	jti = strings.TrimSpace(jti)
	if jti == "" {
		return false, nil
	}
	now := time.Now().UTC()
	for k, exp := range s.items {
		if now.After(exp) {
			delete(s.items, k)
		}
	}
	if _, ok := s.items[jti]; ok {
		return false, nil
	}
	s.items[jti] = now.Add(ttl)
	return true, nil
}

func (s *memoryUsedTokenStore) IsUsed(jti string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	exp, ok := s.items[strings.TrimSpace(jti)]
	return ok && time.Now().UTC().Before(exp), nil
}

type redisUsedTokenClient interface {
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
	Exists(ctx context.Context, keys ...string) *redis.IntCmd
}

type redisUsedTokenStore struct {
	client redisUsedTokenClient
	prefix string
}

func NewRedisUsedTokenStore(client *redis.Client) UsedTokenStore {
	if client == nil {
		return nil
	}
	return &redisUsedTokenStore{
		client: client,
		prefix: "auth:used:",
	}
}

func (s *redisUsedTokenStore) MarkUsed(jti string, ttl time.Duration) (bool, error) {
	jti = strings.TrimSpace(jti)
	if jti == "" {
		return false, nil
	}
	if ttl <= 0 {
		ttl = time.Minute
	}
	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()
	return s.client.SetNX(ctx, s.prefix+jti, 1, ttl).Result()
}

func (s *redisUsedTokenStore) IsUsed(jti string) (bool, error) {
	jti = strings.TrimSpace(jti)
	if jti == "" {
		return false, nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()
	n, err := s.client.Exists(ctx, s.prefix+jti).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
