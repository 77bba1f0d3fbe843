package security

import (
	"chapter_tracker_backend/pkg/monitoring"
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// CORS 中间件 白名单为空时允许任意 Origin（不携带 Credentials）
func CORS(allowedOrigins []string) gin.HandlerFunc {
	originSet := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		originSet[o] = true
	}

	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")

		switch {
		case origin != "" && originSet[origin]:
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
			c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		case len(originSet) == 0:
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		}

		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, PATCH")
		c.Writer.Header().Set("Access-Control-Expose-Headers", "X-Cache, X-RateLimit-Limit, X-RateLimit-Remaining")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// Secure 中间件
func Secure() gin.HandlerFunc {
	return func(c *gin.Context) {
		// 防止MIME嗅探
		c.Header("X-Content-Type-Options", "nosniff")
		// 防止点击劫持
		c.Header("X-Frame-Options", "DENY")
		// HSTS
		if c.Request.TLS != nil {
			c.Header("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}

		c.Next()
	}
}

// visitor 包装限流器和最后活跃时间，用于定期清理
type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// FloodGuard 进程内按 IP 的令牌桶，不依赖 Redis
type FloodGuard struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	limit    rate.Limit
	burst    int
	expiry   time.Duration
}

func NewFloodGuard(maxRequests int, window time.Duration) *FloodGuard {
	expiry := window * 3
	if expiry < time.Minute {
		expiry = time.Minute
	}
	return &FloodGuard{
		visitors: make(map[string]*visitor),
		limit:    rate.Every(window / time.Duration(maxRequests)),
		burst:    maxRequests,
		expiry:   expiry,
	}
}

func (g *FloodGuard) Allow(key string) bool {
	g.mu.Lock()
	v, exists := g.visitors[key]
	if !exists {
		v = &visitor{limiter: rate.NewLimiter(g.limit, g.burst)}
		g.visitors[key] = v
	}
	v.lastSeen = time.Now()
	g.mu.Unlock()

	return v.limiter.Allow()
}

// Sweep 删除超过 expiry 未活跃的条目，返回删除数量
func (g *FloodGuard) Sweep(now time.Time) int {
	g.mu.Lock()
	defer g.mu.Unlock()

	removed := 0
	for ip, v := range g.visitors {
		if now.Sub(v.lastSeen) > g.expiry {
			delete(g.visitors, ip)
			removed++
		}
	}
	return removed
}

// RunCleanup 每分钟清理一次，直到 ctx 取消
func (g *FloodGuard) RunCleanup(ctx context.Context) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			g.Sweep(now)
		}
	}
}

func (g *FloodGuard) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !g.Allow(c.ClientIP()) {
			monitoring.RateLimitDecisions.WithLabelValues("flood_guard").Inc()
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"code":      http.StatusTooManyRequests,
				"message":   "Too many requests. Try again in a minute.",
				"errorCode": "TOO_MANY_REQUESTS",
			})
			return
		}

		c.Next()
	}
}
