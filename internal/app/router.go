package app

import (
	"chapter_tracker_backend/internal/middleware"
	"chapter_tracker_backend/pkg/monitoring"

	"github.com/gin-gonic/gin"
)

func (a *App) registerRoutes(router *gin.Engine, c *controllers) {
	router.GET("/", c.health.Index)
	router.GET("/metrics", monitoring.PrometheusHandler())

	// 1. 公共路由(无需登录)
	a.registerPublicRoutes(router, c)

	// 2. 章节模块
	a.registerChapterRoutes(router, c)
}

func (a *App) registerPublicRoutes(router *gin.Engine, c *controllers) {
	public := router.Group("/api")
	{
		public.GET("/health", c.health.HealthCheck)

		auth := public.Group("/auth")
		auth.POST("/register", c.auth.Register)
		auth.POST("/login", c.auth.Login)
	}
}

// 章节接口全部经过限流；读接口走响应缓存，写接口需要登录并在成功后清空缓存
func (a *App) registerChapterRoutes(router *gin.Engine, c *controllers) {
	listTTL := a.Config.Cache.ListTTL()
	itemTTL := a.Config.Cache.ItemTTL()
	requireAuth := middleware.AuthMiddleware(a.services.auth)

	chapters := router.Group("/api/chapters")
	chapters.Use(a.Limiter.Middleware())
	{
		chapters.GET("", a.Cache.Cached(listTTL, c.chapter.List))
		chapters.GET("/weak", a.Cache.Cached(listTTL, c.chapter.Weak))
		chapters.GET("/summary", a.Cache.Cached(listTTL, c.chapter.Summary))
		chapters.GET("/:id", a.Cache.Cached(itemTTL, c.chapter.GetByID))

		chapters.POST("", requireAuth, c.chapter.Create)
		chapters.PATCH("/:id/progress", requireAuth, c.chapter.UpdateProgress)
		chapters.PUT("/:id/years/:year", requireAuth, c.chapter.SetYearCount)
		chapters.PATCH("/:id/status", requireAuth, c.chapter.SetStatus)
	}
}
