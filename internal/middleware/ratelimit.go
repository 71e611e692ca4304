package middleware

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"nodeback/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

// FailPolicy decides what happens to a request when Redis cannot count it.
type FailPolicy int

const (
	// FailOpen lets the request through.
	FailOpen FailPolicy = iota
	// FailClosed answers 503 UNAVAILABLE.
	FailClosed
)

const rateLimitKeyPrefix = "ratelimit:"

var errNoLimiterStore = errors.New("rate limiter has no redis client")

// Limit is a fixed-window budget for one write action.
type Limit struct {
	Action   string
	Requests int
	Window   time.Duration
	Policy   FailPolicy
}

// Budgets for the endpoints that create accounts, sessions or content.
var (
	RegisterLimit = Limit{Action: "register", Requests: 5, Window: 10 * time.Minute}
	LoginLimit    = Limit{Action: "login", Requests: 10, Window: 5 * time.Minute}
	PostLimit     = Limit{Action: "create_post", Requests: 10, Window: time.Minute}
	CommentLimit  = Limit{Action: "create_comment", Requests: 20, Window: time.Minute}
)

// rateLimitsEnforced is false in test and development, where APP_ENV
// defaults to development.
func rateLimitsEnforced() bool {
	switch os.Getenv("APP_ENV") {
	case "", "test", "development":
		return false
	}
	return true
}

// CheckRateLimit counts one hit for subject against lim and returns how many
// hits remain in the window. The window starts at the first hit.
func CheckRateLimit(ctx context.Context, rdb *redis.Client, lim Limit, subject string) (remaining int, allowed bool, err error) {
	if !rateLimitsEnforced() {
		return lim.Requests, true, nil
	}
	if rdb == nil {
		return 0, false, errNoLimiterStore
	}

	key := rateLimitKeyPrefix + lim.Action + ":" + subject
	cnt, err := rdb.Incr(ctx, key).Result()
	if err != nil {
		return 0, false, err
	}
	if cnt == 1 {
		if err := rdb.Expire(ctx, key, lim.Window).Err(); err != nil {
			return 0, false, err
		}
	}
	remaining = lim.Requests - int(cnt)
	if remaining < 0 {
		remaining = 0
	}
	return remaining, cnt <= int64(lim.Requests), nil
}

// rateLimitSubject keys signed-in callers by account and everyone else by IP.
func rateLimitSubject(c *fiber.Ctx) string {
	if uid, ok := c.Locals("userID").(uint); ok && uid != 0 {
		return "user:" + strconv.FormatUint(uint64(uid), 10)
	}
	return "ip:" + c.IP()
}

// RateLimit enforces lim per caller and reports the budget in
// X-RateLimit-Limit and X-RateLimit-Remaining.
func RateLimit(rdb *redis.Client, lim Limit) fiber.Handler {
	return func(c *fiber.Ctx) error {
		remaining, allowed, err := CheckRateLimit(c.UserContext(), rdb, lim, rateLimitSubject(c))
		if err != nil {
			RedisErrors.WithLabelValues("rate_limit").Inc()
			if lim.Policy == FailClosed {
				Logger.WarnContext(c.UserContext(), "rate limit store unavailable, failing closed",
					slog.String("action", lim.Action),
					slog.String("error", err.Error()),
				)
				return models.RespondWithError(c, fiber.StatusServiceUnavailable,
					models.NewUnavailableError(err))
			}
			return c.Next()
		}

		c.Set("X-RateLimit-Limit", strconv.Itoa(lim.Requests))
		c.Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
		if !allowed {
			c.Set(fiber.HeaderRetryAfter, strconv.Itoa(int(lim.Window.Seconds())))
			return models.RespondWithError(c, fiber.StatusTooManyRequests, &models.AppError{
				Code:    models.CodeRateLimited,
				Message: fmt.Sprintf("Too many %s requests, try again later", lim.Action),
			})
		}
		return c.Next()
	}
}
