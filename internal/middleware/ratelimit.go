package middleware

import (
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/Mateusbmelzi/hub-entidades/internal/config"
)

// takeToken refills the bucket at KEYS[1] for the elapsed whole intervals
// and takes one token.  ARGV: now_ms, capacity, refill, interval_ms,
// ttl_s.  Returns {allowed, remaining, retry_after_ms}.
var takeToken = redis.NewScript(`
	local now, cap, refill, every, ttl = tonumber(ARGV[1]), tonumber(ARGV[2]), tonumber(ARGV[3]), tonumber(ARGV[4]), tonumber(ARGV[5])
	local tokens = tonumber(redis.call('HGET', KEYS[1], 'tokens'))
	local stamp = tonumber(redis.call('HGET', KEYS[1], 'stamp'))
	if tokens == nil or stamp == nil then
		tokens, stamp = cap, now
	end
	local steps = math.floor(math.max(0, now - stamp) / every)
	if steps > 0 then
		tokens = math.min(cap, tokens + steps * refill)
		stamp = stamp + steps * every
	end
	local wait = 0
	if tokens > 0 then
		tokens = tokens - 1
	else
		wait = math.max(0, every - (now - stamp))
	end
	redis.call('HSET', KEYS[1], 'tokens', tokens, 'stamp', stamp)
	redis.call('EXPIRE', KEYS[1], ttl)
	if wait > 0 then
		return { 0, tokens, wait }
	end
	return { 1, tokens, 0 }
`)

// NewTokenBucket limits each caller per route with a Redis token bucket.
// With rate limiting disabled or no Redis client it is a pass-through; a
// Redis error lets the request through.
func NewTokenBucket(cfg config.RateLimitConfig, rdb *redis.Client, log *slog.Logger) echo.MiddlewareFunc {
	if !cfg.Enabled || rdb == nil {
		return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}
	if log == nil {
		log = slog.Default()
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			key := rateKey(cfg.Prefix, c)
			res, err := takeToken.Run(c.Request().Context(), rdb, []string{key},
				time.Now().UnixMilli(),
				cfg.Capacity,
				cfg.RefillTokens,
				max(cfg.RefillInterval.Milliseconds(), 1),
				int64(cfg.TTL/time.Second),
			).Int64Slice()
			if err != nil || len(res) != 3 {
				log.Warn("rate limit check skipped", slog.String("key", key), slog.Any("err", err), slog.Int("fields", len(res)))
				return next(c)
			}

			h := c.Response().Header()
			h.Set("X-RateLimit-Limit", strconv.Itoa(cfg.Capacity))
			h.Set("X-RateLimit-Remaining", strconv.FormatInt(res[1], 10))
			if cfg.Debug {
				h.Set("X-RateLimit-Key", key)
			}
			if res[0] == 1 {
				return next(c)
			}

			secs := int(math.Ceil(float64(res[2]) / 1000))
			h.Set("Retry-After", strconv.Itoa(secs))
			if cfg.Debug {
				log.Info("rate limited", slog.String("key", key), slog.Int64("retry_ms", res[2]))
			}
			return c.JSON(http.StatusTooManyRequests, echo.Map{
				"error":       "too_many_requests",
				"message":     "rate limit exceeded",
				"retry_after": secs,
			})
		}
	}
}

// rateKey buckets authenticated callers by actor and anonymous ones by
// client IP, both scoped to the route pattern.
func rateKey(prefix string, c echo.Context) string {
	who := "user:" + Actor(c)
	if Actor(c) == "" {
		ip := c.RealIP()
		if ip == "" {
			ip = "unknown"
		}
		who = "ip:" + ip
	}
	return prefix + ":" + who + ":" + c.Request().Method + " " + c.Path()
}
