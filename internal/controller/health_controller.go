package controller

import (
	"chapter_tracker_backend/internal/util"
	"chapter_tracker_backend/pkg/database"
	"chapter_tracker_backend/pkg/logger"
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type HealthController struct {
	DB    *gorm.DB
	Store database.KVStore
}

func NewHealthController(db *gorm.DB, store database.KVStore) *HealthController {
	return &HealthController{DB: db, Store: store}
}

// @Summary 健康检查
// @Description 检查数据库与 Redis 状态，Redis 不可用时返回 degraded
// @Tags 系统
// @Produce json
// @Success 200 {object} util.Response
// @Failure 503 {object} util.Response "数据库不可用"
// @Router /api/health [get]
func (c *HealthController) HealthCheck(ctx *gin.Context) {
	pingCtx, cancel := context.WithTimeout(ctx.Request.Context(), 2*time.Second)
	defer cancel()

	// 检查数据库连接
	sqlDB, err := c.DB.DB()
	if err != nil {
		util.InternalServerError(ctx)
		return
	}
	if err := sqlDB.PingContext(pingCtx); err != nil {
		logger.Log.Error("database ping failed", zap.Error(err))
		util.Error(ctx, http.StatusServiceUnavailable, "Database unavailable")
		return
	}

	// Redis 只影响限流和缓存，不可用时服务降级运行
	status, redisState := "ok", "up"
	if err := c.Store.Ping(pingCtx); err != nil {
		logger.Log.Warn("redis ping failed", zap.Error(err))
		status, redisState = "degraded", "down"
	}

	util.Success(ctx, gin.H{
		"status": status,
		"components": gin.H{
			"database": "up",
			"redis":    redisState,
		},
	})
}

// Index 服务信息
func (c *HealthController) Index(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, gin.H{
		"message": "Chapter Tracker API",
		"version": "1.0.0",
		"endpoints": gin.H{
			"auth":     "/api/auth",
			"chapters": "/api/chapters",
		},
	})
}
