package middleware

import (
	"chapter_tracker_backend/internal/util"
	"chapter_tracker_backend/pkg/database"
	"chapter_tracker_backend/pkg/logger"
	"chapter_tracker_backend/pkg/monitoring"
	"context"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	rateKeyPrefix   = "rate:"
	defaultClientID = "127.0.0.1"
)

type RateDecision struct {
	Allowed   bool
	Count     int64
	Limit     int64
	Remaining int64
}

// FixedWindowLimiter 基于 KVStore 的固定窗口计数限流。
// INCR 与 EXPIRE 非原子，并发首请求可能重复设置过期时间，结果相同可以接受
type FixedWindowLimiter struct {
	Store  database.KVStore
	limit  atomic.Int64
	window atomic.Int64
}

func NewFixedWindowLimiter(store database.KVStore, limit int, window time.Duration) *FixedWindowLimiter {
	l := &FixedWindowLimiter{Store: store}
	l.SetPolicy(limit, window)
	return l
}

// SetPolicy 配置热加载时调用，对之后的请求生效
func (l *FixedWindowLimiter) SetPolicy(limit int, window time.Duration) {
	l.limit.Store(int64(limit))
	l.window.Store(int64(window))
}

func (l *FixedWindowLimiter) Policy() (int, time.Duration) {
	return int(l.limit.Load()), time.Duration(l.window.Load())
}

// Allow 存储不可用时放行，并把错误返回给调用方记录
func (l *FixedWindowLimiter) Allow(ctx context.Context, clientID string) (RateDecision, error) {
	limit, window := l.Policy()
	decision := RateDecision{Allowed: true, Limit: int64(limit), Remaining: int64(limit)}

	if clientID == "" {
		clientID = defaultClientID
	}
	key := rateKeyPrefix + clientID

	count, err := l.Store.Incr(ctx, key)
	if err != nil {
		return decision, err
	}
	decision.Count = count

	var expireErr error
	if count == 1 {
		expireErr = l.Store.Expire(ctx, key, window)
	}

	decision.Remaining = int64(limit) - count
	if decision.Remaining < 0 {
		decision.Remaining = 0
	}
	decision.Allowed = count <= int64(limit)
	return decision, expireErr
}

func (l *FixedWindowLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		clientID := c.ClientIP()
		decision, err := l.Allow(c.Request.Context(), clientID)
		if err != nil {
			logger.Log.Warn("rate limiter store error, failing open",
				zap.String("client", clientID),
				zap.Error(err),
			)
			monitoring.RateLimitDecisions.WithLabelValues("fail_open").Inc()
			if decision.Count == 0 {
				c.Next()
				return
			}
		}

		c.Header("X-RateLimit-Limit", strconv.FormatInt(decision.Limit, 10))
		c.Header("X-RateLimit-Remaining", strconv.FormatInt(decision.Remaining, 10))

		if !decision.Allowed {
			monitoring.RateLimitDecisions.WithLabelValues("rejected").Inc()
			util.TooManyRequests(c)
			return
		}
		monitoring.RateLimitDecisions.WithLabelValues("allowed").Inc()
		c.Next()
	}
}
