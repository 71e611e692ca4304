// Package cache holds the shared Redis client used for the user and tag
// caches, WebSocket tickets, token revocation and presence.
package cache

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"nodeback/internal/middleware"

	"github.com/redis/go-redis/v9"
)

// ClientName is reported by CLIENT LIST so operators can spot API connections.
const ClientName = "nodeback-api"

const pingTimeout = 5 * time.Second

var client *redis.Client

// errorCountingHook feeds nodeback_redis_errors_total. A cache miss
// (redis.Nil) is not an error.
type errorCountingHook struct{}

func (errorCountingHook) DialHook(next redis.DialHook) redis.DialHook {
	return next
}

func (errorCountingHook) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		err := next(ctx, cmd)
		if err != nil && !errors.Is(err, redis.Nil) {
			middleware.RedisErrors.WithLabelValues(cmd.Name()).Inc()
		}
		return err
	}
}

func (errorCountingHook) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return func(ctx context.Context, cmds []redis.Cmder) error {
		err := next(ctx, cmds)
		if err != nil && !errors.Is(err, redis.Nil) {
			middleware.RedisErrors.WithLabelValues("pipeline").Inc()
		}
		return err
	}
}

// parseRedisAddr accepts host:port or a redis:// / rediss:// URL.
func parseRedisAddr(addr string) (*redis.Options, error) {
	addr = strings.TrimSpace(addr)
	if !strings.Contains(addr, "://") {
		return &redis.Options{Addr: addr}, nil
	}
	return redis.ParseURL(addr)
}

// InitRedis connects to REDIS_URL. Redis is optional for the API: on failure
// the client stays nil, caches are bypassed, WebSocket tickets are refused
// and presence is tracked per instance.
func InitRedis(addr string) {
	opts, err := parseRedisAddr(addr)
	if err != nil {
		middleware.Logger.Warn("invalid REDIS_URL, continuing without redis",
			slog.String("error", err.Error()))
		client = nil
		return
	}
	opts.ClientName = ClientName

	c := redis.NewClient(opts)
	c.AddHook(errorCountingHook{})

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	if err := c.Ping(ctx).Err(); err != nil {
		middleware.Logger.Warn("redis unavailable, continuing without redis",
			slog.String("addr", opts.Addr),
			slog.String("error", err.Error()))
		_ = c.Close()
		client = nil
		return
	}
	client = c
	middleware.Logger.Info("redis connected", slog.String("addr", opts.Addr), slog.Int("db", opts.DB))
}

// SetClient replaces the shared client. Passing nil disables caching.
func SetClient(c *redis.Client) {
	client = c
}

// GetClient returns the shared client, or nil when Redis is disabled.
func GetClient() *redis.Client {
	return client
}
