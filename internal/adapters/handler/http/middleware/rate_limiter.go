package middleware

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

const rateLimitPrefix = "rate_limit:"

// hitScript counts a request and starts the window on the first one.
// It returns the count and the remaining window in milliseconds.
var hitScript = redis.NewScript(`
local n = redis.call("INCR", KEYS[1])
if n == 1 then
    redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return {n, redis.call("PTTL", KEYS[1])}
`)

// RateLimit configures one fixed-window budget. Each Scope counts
// separately, so route groups never spend each other's requests.
type RateLimit struct {
	Scope  string
	Limit  int
	Window time.Duration
}

func (rl RateLimit) key(clientIP string) string {
	return rateLimitPrefix + rl.Scope + ":" + clientIP
}

// RateLimiterMiddleware allows rl.Limit requests per client IP and scope in
// each window. It fails open when Redis is unavailable.
func RateLimiterMiddleware(rdb *redis.Client, rl RateLimit, logger *slog.Logger) gin.HandlerFunc {
	logger = logger.With("component", "rate_limiter", "scope", rl.Scope)

	return func(c *gin.Context) {
		ctx := c.Request.Context()
		key := rl.key(c.ClientIP())

		res, err := hitScript.Run(ctx, rdb, []string{key}, rl.Window.Milliseconds()).Int64Slice()
		if err != nil || len(res) != 2 {
			logger.Warn("Rate limiter skipped", "error", err)
			c.Next()
			return
		}

		count := res[0]
		ttl := time.Duration(res[1]) * time.Millisecond
		if ttl <= 0 {
			ttl = rl.Window
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(rl.Limit))
		c.Header("X-RateLimit-Remaining", strconv.FormatInt(max(0, int64(rl.Limit)-count), 10))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(time.Now().Add(ttl).Unix(), 10))

		if count > int64(rl.Limit) {
			logger.Info("Rate limit exceeded", "ip", c.ClientIP(), "count", count)
			c.Header("Retry-After", strconv.Itoa(int(ttl.Round(time.Second).Seconds())))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":      "too many requests",
				"retry_in_s": int(ttl.Seconds()),
			})
			return
		}

		c.Next()
	}
}
