package middleware

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"golang.org/x/time/rate"
)

// RateLimitConfig содержит настройки rate limiting
type RateLimitConfig struct {
	// MaxRequests - максимальное количество запросов за Window
	MaxRequests int
	// Window - временное окно для подсчёта запросов
	Window time.Duration
	// KeyPrefix - префикс для ключей в Redis
	KeyPrefix string
}

// SessionStartRateLimitConfig - лимит на запуск практических сессий
func SessionStartRateLimitConfig(perMinute int) RateLimitConfig {
	return RateLimitConfig{
		MaxRequests: perMinute,
		Window:      time.Minute,
		KeyPrefix:   "rl:session_start",
	}
}

// AnswerRateLimitConfig - лимит на отправку ответов
func AnswerRateLimitConfig(perMinute int) RateLimitConfig {
	return RateLimitConfig{
		MaxRequests: perMinute,
		Window:      time.Minute,
		KeyPrefix:   "rl:answer",
	}
}

// visitor - локальный лимитер ключа и время последнего запроса
type visitor struct {
	limiter  *rate.Limiter
	window   time.Duration
	lastSeen time.Time
}

// RateLimiter - fixed window на Redis. При недоступности Redis
// используется локальный token bucket на ключ.
type RateLimiter struct {
	redisClient redis.UniversalClient // может быть nil

	mu        sync.Mutex
	fallback  map[string]*visitor
	lastSweep time.Time
	now       func() time.Time
}

// NewRateLimiter создает новый RateLimiter. redisClient может быть nil.
func NewRateLimiter(redisClient redis.UniversalClient) *RateLimiter {
	return &RateLimiter{
		redisClient: redisClient,
		fallback:    make(map[string]*visitor),
		now:         time.Now,
	}
}

// Limit возвращает Gin middleware с заданной конфигурацией.
// Ключ формируется из пользователя (или IP) и route pattern.
func (rl *RateLimiter) Limit(cfg RateLimitConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		if cfg.MaxRequests <= 0 {
			c.Next()
			return
		}

		subject := c.ClientIP()
		if userID, ok := GetUserID(c); ok {
			subject = userID.String()
		}
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		key := fmt.Sprintf("%s:%s:%s", cfg.KeyPrefix, subject, path)

		if rl.redisClient == nil {
			rl.limitLocally(c, key, cfg)
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()

		count, err := rl.redisClient.Incr(ctx, key).Result()
		if err != nil {
			log.Printf("[RateLimiter] Redis error for key %s: %v. Using local limiter.", key, err)
			rl.limitLocally(c, key, cfg)
			return
		}

		// Если это первый запрос в окне - устанавливаем TTL
		if count == 1 {
			if err := rl.redisClient.Expire(ctx, key, cfg.Window).Err(); err != nil {
				log.Printf("[RateLimiter] Failed to set TTL for key %s: %v", key, err)
			}
		}

		remaining := cfg.MaxRequests - int(count)
		if remaining < 0 {
			remaining = 0
		}

		ttl, _ := rl.redisClient.TTL(ctx, key).Result()
		retryAfter := int(ttl.Seconds())
		if retryAfter < 0 {
			retryAfter = int(cfg.Window.Seconds())
		}

		c.Header("X-RateLimit-Limit", fmt.Sprintf("%d", cfg.MaxRequests))
		c.Header("X-RateLimit-Remaining", fmt.Sprintf("%d", remaining))
		c.Header("X-RateLimit-Reset", fmt.Sprintf("%d", retryAfter))

		if int(count) > cfg.MaxRequests {
			log.Printf("[RateLimiter] Rate limit exceeded for %s path=%s. Count=%d, Limit=%d",
				subject, path, count, cfg.MaxRequests)
			abortRateLimited(c, retryAfter)
			return
		}

		c.Next()
	}
}

func (rl *RateLimiter) limitLocally(c *gin.Context, key string, cfg RateLimitConfig) {
	now := rl.now()

	rl.mu.Lock()
	if now.Sub(rl.lastSweep) >= cfg.Window {
		rl.sweepLocked(now)
	}
	v, ok := rl.fallback[key]
	if !ok {
		v = &visitor{
			limiter: rate.NewLimiter(rate.Every(cfg.Window/time.Duration(cfg.MaxRequests)), cfg.MaxRequests),
			window:  cfg.Window,
		}
		rl.fallback[key] = v
	}
	v.lastSeen = now
	rl.mu.Unlock()

	c.Header("X-RateLimit-Limit", fmt.Sprintf("%d", cfg.MaxRequests))
	if !v.limiter.AllowN(now, 1) {
		retryAfter := int(cfg.Window.Seconds()) / cfg.MaxRequests
		if retryAfter < 1 {
			retryAfter = 1
		}
		abortRateLimited(c, retryAfter)
		return
	}
	c.Next()
}

// sweepLocked удаляет лимитеры, простаивающие дольше своего окна.
// За окно простоя bucket полностью восстанавливается, так что новый лимитер ведет себя так же.
func (rl *RateLimiter) sweepLocked(now time.Time) {
	for key, v := range rl.fallback {
		if now.Sub(v.lastSeen) > v.window {
			delete(rl.fallback, key)
		}
	}
	rl.lastSweep = now
}

func abortRateLimited(c *gin.Context, retryAfter int) {
	c.Header("Retry-After", fmt.Sprintf("%d", retryAfter))
	c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
		"error":       "Too many requests. Please try again later.",
		"error_type":  "rate_limited",
		"retry_after": retryAfter,
	})
}
