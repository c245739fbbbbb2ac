package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

type mockRedisSetNX struct {
	lastKey string
	lastTTL time.Duration
	seen    map[string]bool
	err     error
}

func (m *mockRedisSetNX) SetNX(ctx context.Context, key string, _ interface{}, expiration time.Duration) *redis.BoolCmd {
	m.lastKey = key
	m.lastTTL = expiration
	cmd := redis.NewBoolCmd(ctx)
	if m.err != nil {
		cmd.SetErr(m.err)
		return cmd
	}
	if m.seen == nil {
		m.seen = make(map[string]bool)
	}
	cmd.SetVal(!m.seen[key])
	m.seen[key] = true
	return cmd
}

func (m *mockRedisSetNX) Exists(ctx context.Context, keys ...string) *redis.IntCmd {
	cmd := redis.NewIntCmd(ctx)
	if m.err != nil {
		cmd.SetErr(m.err)
		return cmd
	}
	var n int64
	for _, k := range keys {
		if m.seen[k] {
			n++
		}
	}
	cmd.SetVal(n)
	return cmd
}

func TestMemoryUsedTokenStore(t *testing.T) {
	store := NewMemoryUsedTokenStore()

	first, err := store.MarkUsed("jti-1", time.Minute)
	if err != nil || !first {
		t.Fatalf("expected first mark true,nil; got %v,%v", first, err)
	}
	again, err := store.MarkUsed("jti-1", time.Minute)
	if err != nil || again {
		t.Fatalf("expected second mark false,nil; got %v,%v", again, err)
	}
	empty, err := store.MarkUsed("  ", time.Minute)
	if err != nil || empty {
		t.Fatalf("empty jti must never count as first use")
	}
}

func TestMemoryUsedTokenStore_Expiry(t *testing.T) {
	store := NewMemoryUsedTokenStore()
	if ok, _ := store.MarkUsed("jti-2", 30*time.Millisecond); !ok {
		t.Fatalf("expected first mark")
	}
	time.Sleep(50 * time.Millisecond)
	if ok, _ := store.MarkUsed("jti-2", time.Minute); !ok {
		t.Fatalf("expired entry should be purged")
	}
}

func TestRedisUsedTokenStore(t *testing.T) {
	mock := &mockRedisSetNX{}
	store := &redisUsedTokenStore{client: mock, prefix: "auth:used:"}

	first, err := store.MarkUsed(" j1 ", 0)
	if err != nil || !first {
		t.Fatalf("expected first mark true,nil; got %v,%v", first, err)
	}
	if mock.lastKey != "auth:used:j1" {
		t.Fatalf("unexpected key %q", mock.lastKey)
	}
	if mock.lastTTL <= 0 {
		t.Fatalf("expected positive TTL fallback, got %v", mock.lastTTL)
	}
	again, err := store.MarkUsed("j1", time.Minute)
	if err != nil || again {
		t.Fatalf("expected second mark false,nil; got %v,%v", again, err)
	}

	failing := &redisUsedTokenStore{client: &mockRedisSetNX{err: errors.New("redis down")}, prefix: "auth:used:"}
	if _, err := failing.MarkUsed("j2", time.Minute); err == nil {
		t.Fatalf("expected redis error to surface")
	}
}

func TestUsedTokenStore_IsUsedDoesNotMark(t *testing.T) {
	mock := &mockRedisSetNX{}
	stores := map[string]UsedTokenStore{
		"memory": NewMemoryUsedTokenStore(),
		"redis":  &redisUsedTokenStore{client: mock, prefix: "auth:used:"},
	}
	for name, store := range stores {
		t.Run(name, func(t *testing.T) {
			used, err := store.IsUsed("j3")
			if err != nil || used {
				t.Fatalf("expected unused, got %v,%v", used, err)
			}
			if first, _ := store.MarkUsed("j3", time.Minute); !first {
				t.Fatalf("IsUsed must not mark the jti")
			}
			used, err = store.IsUsed("j3")
			if err != nil || !used {
				t.Fatalf("expected used after mark, got %v,%v", used, err)
			}
		})
	}

	failing := &redisUsedTokenStore{client: &mockRedisSetNX{err: errors.New("redis down")}, prefix: "auth:used:"}
	if _, err := failing.IsUsed("j4"); err == nil {
		t.Fatalf("expected redis error to surface")
	}
}
