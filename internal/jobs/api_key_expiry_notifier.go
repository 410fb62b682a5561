// Package jobs holds the goal tracker's background jobs.
//
// api_key_expiry_notifier.go implements APIKeyExpiryNotifier, which emails the
// owner of an API key shortly before the key stops validating. The reminder is
// informational: key validity is always decided at request time from the key
// log, and the job never writes to credential tables. Each key is reminded at
// most once, deduplicated through redis when it is enabled and in process
// otherwise.
package jobs

import (
	"context"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/goaltracker/goaltracker/internal/auth"
	"github.com/goaltracker/goaltracker/internal/config"
	"github.com/goaltracker/goaltracker/internal/db/models"
	"github.com/goaltracker/goaltracker/internal/telemetry"
)

// ExpiringKeys lists current VALID key rows whose expiry is in (now, now+window].
type ExpiringKeys interface {
	FindExpiring(ctx context.Context, now, window int64) ([]models.APIKey, error)
}

// UserLookup resolves the owner of a key. A nil user means the user is gone.
type UserLookup interface {
	GetByID(ctx context.Context, userID int64) (*models.User, error)
}

// ExpiryMailer is implemented by *notify.Notifier.
type ExpiryMailer interface {
	SendAPIKeyExpiry(ctx context.Context, email, name string, createdAt, expiresAt time.Time) error
}

// Deduper reports whether key is being seen for the first time within ttl.
type Deduper interface {
	FirstTime(ctx context.Context, key string, ttl time.Duration) bool
}

// APIKeyExpiryNotifier periodically emails users whose API keys are about to expire.
type APIKeyExpiryNotifier struct {
	keys     ExpiringKeys
	users    UserLookup
	mailer   ExpiryMailer
	dedupe   Deduper
	now      auth.Clock
	interval time.Duration
	warning  time.Duration
	stopOnce sync.Once
	stopChan chan struct{}
}

// NewAPIKeyExpiryNotifier creates the job. Zero intervals in cfg fall back to
// hourly checks and a 72 hour warning window.
func NewAPIKeyExpiryNotifier(
	keys ExpiringKeys,
	users UserLookup,
	mailer ExpiryMailer,
	dedupe Deduper,
	cfg *config.NotificationsConfig,
	now auth.Clock,
) *APIKeyExpiryNotifier {
	interval := cfg.APIKeyExpiryCheckInterval
	if interval <= 0 {
		interval = time.Hour
	}
	warning := cfg.APIKeyExpiryWarning
	if warning <= 0 {
		warning = 72 * time.Hour
	}
	return &APIKeyExpiryNotifier{
		keys:     keys,
		users:    users,
		mailer:   mailer,
		dedupe:   dedupe,
		now:      now,
		interval: interval,
		warning:  warning,
		stopChan: make(chan struct{}),
	}
}

// Start runs a check immediately and then on every interval until ctx is
// cancelled or Stop is called. It blocks; launch it with safego.Go.
func (n *APIKeyExpiryNotifier) Start(ctx context.Context) {
	ticker := time.NewTicker(n.interval)
	defer ticker.Stop()

	slog.Info("api key expiry notifier started", "interval", n.interval, "warning", n.warning)

	n.RunCheck(ctx)

	for {
		select {
		case <-ticker.C:
			n.RunCheck(ctx)
		case <-n.stopChan:
			slog.Info("api key expiry notifier stopped")
			return
		case <-ctx.Done():
			slog.Info("api key expiry notifier context cancelled")
			return
		}
	}
}

// Stop signals the loop to exit. It is safe to call more than once.
func (n *APIKeyExpiryNotifier) Stop() {
	n.stopOnce.Do(func() { close(n.stopChan) })
}

// RunCheck sends one reminder for every key entering the warning window and
// returns how many were sent.
func (n *APIKeyExpiryNotifier) RunCheck(ctx context.Context) int {
	now := n.now()
	keys, err := n.keys.FindExpiring(ctx, now, n.warning.Milliseconds())
	if err != nil {
		slog.ErrorContext(ctx, "api key expiry notifier: failed to query expiring keys", "error", err)
		return 0
	}

	sent := 0
	for _, key := range keys {
		dedupeKey := "notify:expiry:" + strconv.FormatInt(key.APIKeyID, 10)
		if !n.dedupe.FirstTime(ctx, dedupeKey, n.warning+n.interval) {
			continue
		}

		user, err := n.users.GetByID(ctx, key.CreatorUserID)
		if err != nil {
			slog.ErrorContext(ctx, "api key expiry notifier: failed to load key owner",
				"api_key_id", key.APIKeyID, "user_id", key.CreatorUserID, "error", err)
			continue
		}
		if user == nil || user.Email == "" {
			continue
		}

		err = n.mailer.SendAPIKeyExpiry(ctx, user.Email, user.Name,
			time.UnixMilli(key.CreationTime), time.UnixMilli(key.ExpiresAt()))
		if err != nil {
			slog.ErrorContext(ctx, "api key expiry notifier: failed to send reminder",
				"api_key_id", key.APIKeyID, "error", err)
			continue
		}
		telemetry.APIKeyExpiryRemindersSentTotal.Inc()
		sent++
	}

	if sent > 0 {
		slog.InfoContext(ctx, "api key expiry reminders sent", "count", sent)
	}
	return sent
}

type setNX interface {
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
}

// RedisDeduper shares reminder state across replicas with SETNX.
type RedisDeduper struct {
	client setNX
}

func NewRedisDeduper(client setNX) *RedisDeduper {
	return &RedisDeduper{client: client}
}

// FirstTime claims key in redis. When redis is unreachable the reminder is
// skipped and retried on the next run.
func (d *RedisDeduper) FirstTime(ctx context.Context, key string, ttl time.Duration) bool {
	ok, err := d.client.SetNX(ctx, key, 1, ttl).Result()
	if err != nil {
		slog.WarnContext(ctx, "expiry reminder dedupe unavailable", "key", key, "error", err)
		return false
	}
	return ok
}

// MemoryDeduper remembers claimed keys in process. Reminders may repeat after
// a restart.
type MemoryDeduper struct {
	mu   sync.Mutex
	seen map[string]time.Time
	now  func() time.Time
}

func NewMemoryDeduper() *MemoryDeduper {
	return &MemoryDeduper{seen: make(map[string]time.Time), now: time.Now}
}

func (d *MemoryDeduper) FirstTime(_ context.Context, key string, ttl time.Duration) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()
	for k, until := range d.seen {
		if now.After(until) {
			delete(d.seen, k)
		}
	}
	if _, ok := d.seen[key]; ok {
		return false
	}
	d.seen[key] = now.Add(ttl)
	return true
}
