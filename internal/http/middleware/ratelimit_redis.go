package middleware

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/SINTT/TODO/internal/domain"
	"github.com/SINTT/TODO/internal/logger"

	"github.com/gin-gonic/gin"
	redis "github.com/redis/go-redis/v9"
)

var redisClient *redis.Client

// InitRedisRateLimiter initializes a shared Redis client used by the middleware.
// Provide addr (host:port), password and db index. An empty addr keeps the
// in-process limiter; a failed ping disables Redis and returns the error.
func InitRedisRateLimiter(addr, password string, db int) error {
	if addr == "" {
		return nil
	}
	client := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		redisClient = nil
		return err
	}
	redisClient = client
	return nil
}

func CloseRedisRateLimiter() {
	if redisClient != nil {
		_ = redisClient.Close()
		redisClient = nil
	}
}

// RedisPinger exposes the limiter's Redis connection to the readiness probe.
type RedisPinger struct{}

func (RedisPinger) Ping(ctx context.Context) error {
	if redisClient == nil {
		return nil
	}
	return redisClient.Ping(ctx).Err()
}

// RedisRateLimit implements a fixed-window rate limiter per client IP
// using Redis INCR/EXPIRE. key format: rl:<window_seconds>:<ip>
func RedisRateLimit(maxRequests int, window time.Duration) gin.HandlerFunc {
	local := newLocalLimiter(window)
	return func(c *gin.Context) {
		key := "rl:" + strconv.FormatInt(int64(window.Seconds()), 10) + ":" + c.ClientIP()
		if !limit(c, "ip", key, maxRequests, window, local) {
			return
		}
		c.Next()
	}
}

// ActorRateLimit limits mutations per authenticated account (not per IP).
// Requires Auth to run before it.
func ActorRateLimit(maxRequests int, window time.Duration) gin.HandlerFunc {
	local := newLocalLimiter(window)
	return func(c *gin.Context) {
		actor, ok := actorNickname(c)
		if !ok {
			abort(c, http.StatusUnauthorized, "Unauthenticated", "authentication required")
			return
		}
		key := "actor_rl:" + actor + ":" + strconv.FormatInt(int64(window.Seconds()), 10)
		if !limit(c, "actor", key, maxRequests, window, local) {
			return
		}
		c.Next()
	}
}

// limit counts the request in Redis, or in local when Redis is not
// configured. Redis errors fail open.
func limit(c *gin.Context, scope, key string, maxRequests int, window time.Duration, local *localLimiter) bool {
	if redisClient == nil {
		return allow(c, scope, local.hit(key, time.Now()), maxRequests, window)
	}

	ctx := c.Request.Context()
	val, err := redisClient.Incr(ctx, key).Result()
	if err != nil {
		logger.WithContext(ctx).Warn("rate limiter redis error", "scope", scope, "error", err)
		c.Header("X-RateLimit-Error", "redis-error")
		return true
	}
	if val == 1 {
		// first increment, set expiry
		redisClient.Expire(ctx, key, window)
	}
	return allow(c, scope, int(val), maxRequests, window)
}

func allow(c *gin.Context, scope string, count, maxRequests int, window time.Duration) bool {
	endpoint := scope + ":" + c.FullPath()

	c.Header("X-RateLimit-Limit", strconv.Itoa(maxRequests))
	c.Header("X-RateLimit-Remaining", strconv.Itoa(max(0, maxRequests-count)))

	if count > maxRequests {
		RLBlocked.WithLabelValues(endpoint).Inc()
		c.Header("Retry-After", strconv.Itoa(int(window.Seconds())))
		abort(c, http.StatusTooManyRequests, "RateLimited", "rate limit exceeded")
		return false
	}

	RLRequests.WithLabelValues(endpoint).Inc()
	return true
}

func actorNickname(c *gin.Context) (string, bool) {
	v, ok := c.Get("actor")
	if !ok {
		return "", false
	}
	actor, ok := v.(domain.Actor)
	if !ok || actor.Nickname == "" {
		return "", false
	}
	return actor.Nickname, true
}
