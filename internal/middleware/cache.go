package middleware

import (
	"chapter_tracker_backend/internal/util"
	"chapter_tracker_backend/pkg/database"
	"chapter_tracker_backend/pkg/logger"
	"chapter_tracker_backend/pkg/monitoring"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const cacheKeyPrefix = "cache:"

// ReadFunc 幂等读操作，返回值会被包装成统一响应结构
type ReadFunc func(c *gin.Context) (interface{}, error)

// ResponseCache 读穿透响应缓存，Redis 不可用时直接透传
type ResponseCache struct {
	Store database.KVStore
}

func NewResponseCache(store database.KVStore) *ResponseCache {
	return &ResponseCache{Store: store}
}

// CacheKey 由路径和排序后的查询参数组成
func CacheKey(r *http.Request) string {
	key := cacheKeyPrefix + r.URL.Path
	if q := r.URL.Query(); len(q) > 0 {
		key += "?" + q.Encode()
	}
	return key
}

// Fetch 命中直接返回缓存内容；未命中调用 compute，只有成功结果会写入缓存
func (rc *ResponseCache) Fetch(ctx context.Context, key string, ttl time.Duration, compute func() ([]byte, error)) ([]byte, bool, error) {
	body, ok, err := rc.Store.Get(ctx, key)
	switch {
	case err != nil:
		logger.Log.Warn("cache lookup failed, bypassing cache", zap.String("key", key), zap.Error(err))
		monitoring.CacheEvents.WithLabelValues("error").Inc()
	case ok:
		monitoring.CacheEvents.WithLabelValues("hit").Inc()
		return body, true, nil
	}

	body, err = compute()
	if err != nil {
		return nil, false, err
	}
	monitoring.CacheEvents.WithLabelValues("miss").Inc()

	if err := rc.Store.SetWithTTL(ctx, key, body, ttl); err != nil {
		logger.Log.Warn("cache store failed", zap.String("key", key), zap.Error(err))
	}
	return body, false, nil
}

// Cached 在路由注册时包装读操作
func (rc *ResponseCache) Cached(ttl time.Duration, read ReadFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := CacheKey(c.Request)
		body, hit, err := rc.Fetch(c.Request.Context(), key, ttl, func() ([]byte, error) {
			data, err := read(c)
			if err != nil {
				return nil, err
			}
			return json.Marshal(util.SuccessBody(data))
		})
		if err != nil {
			util.HandleError(c, err)
			return
		}

		if hit {
			c.Header("X-Cache", "HIT")
		} else {
			c.Header("X-Cache", "MISS")
		}
		c.Data(http.StatusOK, "application/json; charset=utf-8", body)
	}
}

// InvalidatePrefix 删除路径以 prefix 开头的全部缓存，失败只记录日志
func (rc *ResponseCache) InvalidatePrefix(ctx context.Context, prefix string) int {
	keys, err := rc.Store.KeysMatching(ctx, cacheKeyPrefix+prefix+"*")
	if err != nil {
		logger.Log.Warn("cache invalidation scan failed", zap.String("prefix", prefix), zap.Error(err))
		return 0
	}
	if len(keys) == 0 {
		return 0
	}
	if err := rc.Store.DeleteMany(ctx, keys...); err != nil {
		logger.Log.Warn("cache invalidation delete failed", zap.String("prefix", prefix), zap.Error(err))
		return 0
	}
	monitoring.CacheEvents.WithLabelValues("invalidated").Add(float64(len(keys)))
	return len(keys)
}
