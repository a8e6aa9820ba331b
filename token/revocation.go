package token

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	goredis "github.com/redis/go-redis/v9"
)

// RevocationList remembers token ids (jti) that were signed out before their expiry.
// An entry only needs to outlive the token it blocks.
type RevocationList interface {
	Revoke(ctx context.Context, jti string, expiresAt time.Time) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
	Cleanup(ctx context.Context) error
}

var (
	_ RevocationList = (*MemoryRevocationList)(nil)
	_ RevocationList = (*RedisRevocationList)(nil)
)

// MemoryRevocationList keeps revocations in process memory.
type MemoryRevocationList struct {
	revoked map[string]time.Time
	nowFunc func() time.Time
	mu      sync.RWMutex
}

func NewMemoryRevocationList(now func() time.Time) *MemoryRevocationList {
	if now == nil {
		now = time.Now
	}
	return &MemoryRevocationList{
		revoked: make(map[string]time.Time),
		nowFunc: now,
	}
}

func (m *MemoryRevocationList) Revoke(_ context.Context, jti string, expiresAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.revoked[jti] = expiresAt
	return nil
}

func (m *MemoryRevocationList) IsRevoked(_ context.Context, jti string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.revoked[jti]
	return ok, nil
}

// Cleanup forgets revocations whose token has expired anyway.
func (m *MemoryRevocationList) Cleanup(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.nowFunc()
	for jti, exp := range m.revoked {
		if !exp.After(now) {
			delete(m.revoked, jti)
		}
	}
	return nil
}

// Len is the number of revocations held.
func (m *MemoryRevocationList) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.revoked)
}

const revokedPrefix = "revoked:"

// RedisRevocationList shares revocations between backend instances. Each entry carries a TTL
// equal to the remaining lifetime of its token, so Redis does the cleanup.
type RedisRevocationList struct {
	client  *goredis.Client
	prefix  string
	nowFunc func() time.Time
}

func NewRedisRevocationList(client *goredis.Client, prefix string, now func() time.Time) *RedisRevocationList {
	if now == nil {
		now = time.Now
	}
	return &RedisRevocationList{client: client, prefix: prefix, nowFunc: now}
}

func (r *RedisRevocationList) Revoke(ctx context.Context, jti string, expiresAt time.Time) error {
	if r.client == nil {
		return errors.New("[RedisRevocationList.Revoke] redis client is nil")
	}
	if strings.TrimSpace(jti) == "" {
		return errors.New("[RedisRevocationList.Revoke] empty jti")
	}
	ttl := expiresAt.Sub(r.nowFunc())
	if ttl <= 0 {
		return nil
	}
	if err := r.client.Set(ctx, r.key(jti), expiresAt.Unix(), ttl).Err(); err != nil {
		return errors.Wrapf(err, "[RedisRevocationList.Revoke] %s", jti)
	}
	return nil
}

func (r *RedisRevocationList) IsRevoked(ctx context.Context, jti string) (bool, error) {
	if r.client == nil {
		return false, errors.New("[RedisRevocationList.IsRevoked] redis client is nil")
	}
	n, err := r.client.Exists(ctx, r.key(jti)).Result()
	if err != nil {
		return false, errors.Wrapf(err, "[RedisRevocationList.IsRevoked] %s", jti)
	}
	return n > 0, nil
}

// Cleanup is a no-op; keys expire on their own.
func (r *RedisRevocationList) Cleanup(context.Context) error {
	return nil
}

func (r *RedisRevocationList) key(jti string) string {
	return r.prefix + revokedPrefix + jti
}
