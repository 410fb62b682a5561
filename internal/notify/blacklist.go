package notify

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"github.com/redis/go-redis/v9"
)

// BlacklistKey is the redis set holding blacklisted addresses (lower-cased).
const BlacklistKey = "notify:blacklist"

// Blacklist reports whether an address must never receive mail.
type Blacklist interface {
	Contains(ctx context.Context, email string) bool
}

// StaticBlacklist is an in-memory, case-insensitive address set. Update
// replaces its contents so a config reload takes effect without a restart.
type StaticBlacklist struct {
	mu    sync.RWMutex
	addrs map[string]struct{}
}

// NewStaticBlacklist creates a StaticBlacklist holding addrs.
func NewStaticBlacklist(addrs []string) *StaticBlacklist {
	b := &StaticBlacklist{}
	b.Update(addrs)
	return b
}

// Update replaces the blacklisted addresses.
func (b *StaticBlacklist) Update(addrs []string) {
	set := make(map[string]struct{}, len(addrs))
	for _, a := range addrs {
		if a = normalizeEmail(a); a != "" {
			set[a] = struct{}{}
		}
	}
	b.mu.Lock()
	b.addrs = set
	b.mu.Unlock()
}

func (b *StaticBlacklist) Contains(_ context.Context, email string) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	_, ok := b.addrs[normalizeEmail(email)]
	return ok
}

// setMembership is the subset of redis.Cmdable used by RedisBlacklist.
type setMembership interface {
	SIsMember(ctx context.Context, key string, member interface{}) *redis.BoolCmd
}

// RedisBlacklist checks a shared redis set in addition to a static list so
// operators can blacklist addresses across replicas at runtime. A redis error
// is logged and the address is treated as not blacklisted.
type RedisBlacklist struct {
	client setMembership
	static Blacklist
}

// NewRedisBlacklist creates a RedisBlacklist. static may be nil.
func NewRedisBlacklist(client setMembership, static Blacklist) *RedisBlacklist {
	return &RedisBlacklist{client: client, static: static}
}

func (b *RedisBlacklist) Contains(ctx context.Context, email string) bool {
	if b.static != nil && b.static.Contains(ctx, email) {
		return true
	}
	ok, err := b.client.SIsMember(ctx, BlacklistKey, normalizeEmail(email)).Result()
	if err != nil {
		slog.Error("blacklist lookup failed", "error", err)
		return false
	}
	return ok
}

func normalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
