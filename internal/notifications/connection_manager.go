package notifications

import (
	"context"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"nodeback/internal/middleware"

	"github.com/redis/go-redis/v9"
)

const (
	defaultOnlineSetKey   = "presence:online_users"
	defaultLastSeenPrefix = "presence:last_seen:"
	defaultLastSeenTTL    = 90 * time.Second
	defaultOfflineGrace   = 5 * time.Second
	defaultReaperInterval = 60 * time.Second
)

// ConnectionManagerConfig overrides presence keys and timings. Zero values
// keep the defaults.
type ConnectionManagerConfig struct {
	OnlineSetKey       string
	LastSeenKeyPrefix  string
	LastSeenTTL        time.Duration
	OfflineGracePeriod time.Duration
	ReaperInterval     time.Duration
}

// ConnectionManager turns connection counts into online/offline transitions.
// A user goes offline only after the last connection has been gone for the
// grace period, so a page reload does not flap presence.
type ConnectionManager struct {
	rdb *redis.Client

	mu            sync.RWMutex
	local         map[uint]int
	offlineTimers map[uint]*time.Timer
	reportedOff   map[uint]bool
	onOnline      func(userID uint)
	onOffline     func(userID uint)

	onlineSetKey   string
	lastSeenPrefix string
	lastSeenTTL    time.Duration
	offlineGrace   time.Duration
	reaperInterval time.Duration

	stopOnce sync.Once
	stopCh   chan struct{}
}

// NewConnectionManager creates a manager. With Redis it also starts a reaper
// that expires users whose last-seen key lapsed on another instance.
func NewConnectionManager(rdb *redis.Client, cfg ConnectionManagerConfig) *ConnectionManager {
	m := &ConnectionManager{
		rdb:            rdb,
		local:          make(map[uint]int),
		offlineTimers:  make(map[uint]*time.Timer),
		reportedOff:    make(map[uint]bool),
		onlineSetKey:   defaultOnlineSetKey,
		lastSeenPrefix: defaultLastSeenPrefix,
		lastSeenTTL:    defaultLastSeenTTL,
		offlineGrace:   defaultOfflineGrace,
		reaperInterval: defaultReaperInterval,
		stopCh:         make(chan struct{}),
	}
	if cfg.OnlineSetKey != "" {
		m.onlineSetKey = cfg.OnlineSetKey
	}
	if cfg.LastSeenKeyPrefix != "" {
		m.lastSeenPrefix = cfg.LastSeenKeyPrefix
	}
	if cfg.LastSeenTTL > 0 {
		m.lastSeenTTL = cfg.LastSeenTTL
	}
	if cfg.OfflineGracePeriod > 0 {
		m.offlineGrace = cfg.OfflineGracePeriod
	}
	if cfg.ReaperInterval > 0 {
		m.reaperInterval = cfg.ReaperInterval
	}
	if m.rdb != nil {
		go m.reaperLoop()
	}
	return m
}

func (m *ConnectionManager) SetCallbacks(onOnline, onOffline func(userID uint)) {
	m.mu.Lock()
	m.onOnline = onOnline
	m.onOffline = onOffline
	m.mu.Unlock()
}

func (m *ConnectionManager) SetOfflineGracePeriod(d time.Duration) {
	if d <= 0 {
		return
	}
	m.mu.Lock()
	m.offlineGrace = d
	m.mu.Unlock()
}

// Stop ends the reaper and cancels pending offline transitions.
func (m *ConnectionManager) Stop() {
	m.stopOnce.Do(func() {
		close(m.stopCh)
		m.mu.Lock()
		for userID, t := range m.offlineTimers {
			t.Stop()
			delete(m.offlineTimers, userID)
		}
		m.mu.Unlock()
	})
}

// Register counts a new connection and fires onOnline if the user was
// offline. A reconnect while the offline timer is pending continues the
// previous session.
func (m *ConnectionManager) Register(ctx context.Context, userID uint) {
	m.mu.Lock()
	wasOnline := m.onlineLocked(userID)
	if t, ok := m.offlineTimers[userID]; ok {
		t.Stop()
		delete(m.offlineTimers, userID)
	}
	m.local[userID]++
	m.reportedOff[userID] = false
	cb := m.onOnline
	m.mu.Unlock()

	if !wasOnline {
		wasOnline = m.seenElsewhere(ctx, userID)
	}
	m.Touch(ctx, userID)
	if !wasOnline && cb != nil {
		cb(userID)
	}
}

// Touch refreshes the user's last-seen mark in Redis.
func (m *ConnectionManager) Touch(ctx context.Context, userID uint) {
	if m.rdb == nil {
		return
	}
	uid := strconv.FormatUint(uint64(userID), 10)
	_, err := m.rdb.Pipelined(ctx, func(p redis.Pipeliner) error {
		p.SAdd(ctx, m.onlineSetKey, uid)
		p.SetEx(ctx, m.lastSeenKey(userID), strconv.FormatInt(time.Now().Unix(), 10), m.lastSeenTTL)
		return nil
	})
	if err != nil {
		middleware.RedisErrors.WithLabelValues("presence_touch").Inc()
		middleware.Logger.Warn("presence touch failed",
			slog.Uint64("user_id", uint64(userID)),
			slog.String("error", err.Error()),
		)
	}
}

// Unregister drops one connection. The last one arms the offline timer.
func (m *ConnectionManager) Unregister(_ context.Context, userID uint) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if n := m.local[userID] - 1; n > 0 {
		m.local[userID] = n
		return
	}
	delete(m.local, userID)

	if t, ok := m.offlineTimers[userID]; ok {
		t.Stop()
	}
	m.offlineTimers[userID] = time.AfterFunc(m.offlineGrace, func() {
		m.finalizeOffline(context.Background(), userID)
	})
}

// IsOnline checks local connections and pending offline timers first, then
// the Redis last-seen key.
func (m *ConnectionManager) IsOnline(ctx context.Context, userID uint) bool {
	m.mu.RLock()
	online := m.onlineLocked(userID)
	m.mu.RUnlock()
	return online || m.seenElsewhere(ctx, userID)
}

// onlineLocked requires m.mu.
func (m *ConnectionManager) onlineLocked(userID uint) bool {
	if m.local[userID] > 0 {
		return true
	}
	_, pending := m.offlineTimers[userID]
	return pending
}

func (m *ConnectionManager) seenElsewhere(ctx context.Context, userID uint) bool {
	if m.rdb == nil {
		return false
	}
	exists, err := m.rdb.Exists(ctx, m.lastSeenKey(userID)).Result()
	return err == nil && exists > 0
}

func (m *ConnectionManager) reaperLoop() {
	ticker := time.NewTicker(m.reaperInterval)
	defer ticker.Stop()
	for {
		select {
		case <-m.stopCh:
			return
		case <-ticker.C:
			m.reapOnce(context.Background())
		}
	}
}

// reapOnce removes online-set members whose last-seen key has expired.
func (m *ConnectionManager) reapOnce(ctx context.Context) {
	members, err := m.rdb.SMembers(ctx, m.onlineSetKey).Result()
	if err != nil {
		middleware.RedisErrors.WithLabelValues("smembers").Inc()
		return
	}
	for _, raw := range members {
		id, err := strconv.ParseUint(raw, 10, 32)
		if err != nil {
			continue
		}
		userID := uint(id)
		exists, err := m.rdb.Exists(ctx, m.lastSeenKey(userID)).Result()
		if err != nil || exists > 0 {
			continue
		}
		_ = m.rdb.SRem(ctx, m.onlineSetKey, raw).Err()

		m.mu.RLock()
		hasLocal := m.onlineLocked(userID)
		m.mu.RUnlock()
		if !hasLocal {
			m.emitOffline(userID)
		}
	}
}

func (m *ConnectionManager) finalizeOffline(ctx context.Context, userID uint) {
	m.mu.Lock()
	delete(m.offlineTimers, userID)
	reconnected := m.local[userID] > 0
	m.mu.Unlock()
	if reconnected {
		return
	}

	if m.rdb != nil {
		// Another instance may still hold a connection for this user.
		exists, err := m.rdb.Exists(ctx, m.lastSeenKey(userID)).Result()
		if err == nil && exists > 0 {
			return
		}
		_ = m.rdb.SRem(ctx, m.onlineSetKey, strconv.FormatUint(uint64(userID), 10)).Err()
	}
	m.emitOffline(userID)
}

func (m *ConnectionManager) emitOffline(userID uint) {
	m.mu.Lock()
	if m.reportedOff[userID] {
		m.mu.Unlock()
		return
	}
	m.reportedOff[userID] = true
	cb := m.onOffline
	m.mu.Unlock()
	if cb != nil {
		cb(userID)
	}
}

func (m *ConnectionManager) lastSeenKey(userID uint) string {
	return m.lastSeenPrefix + strconv.FormatUint(uint64(userID), 10)
}
