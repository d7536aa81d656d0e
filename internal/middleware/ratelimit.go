package middleware

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"strconv"
	"time"

	"chirp/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

// ErrNoLimiterStore is returned when a quota is checked without Redis.
var ErrNoLimiterStore = errors.New("rate limit store unavailable")

// FailPolicy decides what happens to a request when Redis cannot be reached.
type FailPolicy int

const (
	// FailOpen lets the request through.
	FailOpen FailPolicy = iota
	// FailClosed answers 503.
	FailClosed
)

// Quota is a fixed-window budget of Limit hits per Window for one action.
type Quota struct {
	Action string
	Limit  int
	Window time.Duration
}

// Key is the Redis counter for actor within this quota.
func (q Quota) Key(actor string) string {
	return "rl:" + q.Action + ":" + actor
}

// Take records one hit for actor. It reports whether the hit fits the budget
// and, when it does not, how long until the window resets. The counter and its
// TTL are read in one MULTI/EXEC; a counter without a TTL, left behind by a
// failed EXPIRE, gets one here so it cannot block the actor forever.
func (q Quota) Take(ctx context.Context, rdb *redis.Client, actor string) (bool, time.Duration, error) {
	if rdb == nil {
		return false, 0, ErrNoLimiterStore
	}

	key := q.Key(actor)
	var incr *redis.IntCmd
	var pttl *redis.DurationCmd
	if _, err := rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, key)
		pttl = pipe.PTTL(ctx, key)
		return nil
	}); err != nil {
		return false, 0, err
	}

	ttl := pttl.Val()
	if ttl < 0 {
		if err := rdb.Expire(ctx, key, q.Window).Err(); err != nil {
			return false, 0, err
		}
		ttl = q.Window
	}
	if incr.Val() <= int64(q.Limit) {
		return true, 0, nil
	}
	return false, ttl, nil
}

// RateLimit enforces q per viewer, or per client IP for anonymous requests,
// letting requests through when Redis is down.
func RateLimit(rdb *redis.Client, q Quota) fiber.Handler {
	return RateLimitWithPolicy(rdb, q, FailOpen)
}

// RateLimitWithPolicy is RateLimit with an explicit failure policy.
func RateLimitWithPolicy(rdb *redis.Client, q Quota, policy FailPolicy) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor := "ip:" + c.IP()
		if uid := ViewerID(c); uid != 0 {
			actor = "user:" + strconv.FormatUint(uint64(uid), 10)
		}

		allowed, retryAfter, err := q.Take(c.UserContext(), rdb, actor)
		if err != nil {
			if policy == FailOpen {
				return c.Next()
			}
			Logger.WarnContext(c.UserContext(), "rate limiter unavailable",
				slog.String("action", q.Action),
				slog.String("error", err.Error()),
			)
			return models.RespondWithError(c, fiber.StatusServiceUnavailable, &models.AppError{
				Code:    models.CodeUnavailable,
				Message: "Rate limiter unavailable",
			})
		}

		if !allowed {
			c.Set(fiber.HeaderRetryAfter, strconv.Itoa(int(math.Ceil(retryAfter.Seconds()))))
			return models.RespondWithError(c, fiber.StatusTooManyRequests, &models.AppError{
				Code:    models.CodeRateLimited,
				Message: "Too many requests, try again later",
			})
		}
		return c.Next()
	}
}
