package app

import (
	"chapter_tracker_backend/internal/config"
	"chapter_tracker_backend/internal/controller"
	"chapter_tracker_backend/internal/middleware"
	"chapter_tracker_backend/internal/repository"
	"chapter_tracker_backend/internal/service"
	"chapter_tracker_backend/pkg/configwatcher"
	"chapter_tracker_backend/pkg/database"
	"chapter_tracker_backend/pkg/logger"
	"chapter_tracker_backend/pkg/monitoring"
	"chapter_tracker_backend/pkg/security"
	"chapter_tracker_backend/pkg/tracing"
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const shutdownTimeout = 5 * time.Second

type App struct {
	Config  *config.Config
	Router  *gin.Engine
	DB      *gorm.DB
	Redis   *redis.Client
	Store   database.KVStore
	Limiter *middleware.FixedWindowLimiter
	Cache   *middleware.ResponseCache

	services        *services
	floodGuard      *security.FloodGuard
	tracerProvider  *sdktrace.TracerProvider
	configCallbacks []func(*config.Config)
}

type repositories struct {
	admin   *repository.AdminRepository
	chapter *repository.ChapterRepository
}

type services struct {
	auth    *service.AuthService
	chapter *service.ChapterService
}

type controllers struct {
	auth    *controller.AuthController
	chapter *controller.ChapterController
	health  *controller.HealthController
}

func (a *App) RegisterConfigCallback(callback func(*config.Config)) {
	a.configCallbacks = append(a.configCallbacks, callback)
}

// ApplyConfig 配置热加载后依次执行回调
func (a *App) ApplyConfig(cfg *config.Config) {
	for _, cb := range a.configCallbacks {
		cb(cfg)
	}
}

func (a *App) initRepositories(db *gorm.DB) *repositories {
	return &repositories{
		admin:   repository.NewAdminRepository(db),
		chapter: repository.NewChapterRepository(db),
	}
}

func (a *App) initServices(repos *repositories, cfg *config.Config) *services {
	return &services{
		auth:    service.NewAuthService(repos.admin, cfg),
		chapter: service.NewChapterService(repos.chapter, a.Cache),
	}
}

func (a *App) initControllers(s *services, db *gorm.DB) *controllers {
	return &controllers{
		auth:    controller.NewAuthController(s.auth),
		chapter: controller.NewChapterController(s.chapter),
		health:  controller.NewHealthController(db, a.Store),
	}
}

func (a *App) setupMiddlewares(router *gin.Engine, cfg *config.Config) {
	router.Use(gin.Recovery())
	router.Use(logger.GinLogger())
	router.Use(security.CORS(cfg.CORS.AllowedOrigins))
	router.Use(security.Secure())

	// 进程内兜底限流，Redis 不可用时仍然生效
	if a.floodGuard != nil {
		router.Use(a.floodGuard.Middleware())
	}

	// 分布式追踪中间件
	if cfg.Tracing.Enabled {
		router.Use(tracing.GinMiddleware())
	}

	router.Use(monitoring.MetricsMiddleware())
}

// New 使用已建立的连接组装应用，测试中直接传入 sqlite 与 miniredis
func New(cfg *config.Config, db *gorm.DB, rdb *redis.Client) *App {
	store := database.NewRedisStore(rdb)
	app := &App{
		Config:  cfg,
		DB:      db,
		Redis:   rdb,
		Store:   store,
		Limiter: middleware.NewFixedWindowLimiter(store, cfg.RateLimit.MaxRequests, cfg.RateLimit.Window()),
		Cache:   middleware.NewResponseCache(store),
	}
	if cfg.RateLimit.ProcessMaxRequests > 0 {
		app.floodGuard = security.NewFloodGuard(cfg.RateLimit.ProcessMaxRequests, time.Minute)
	}

	repos := app.initRepositories(db)
	app.services = app.initServices(repos, cfg)
	controllers := app.initControllers(app.services, db)

	router := gin.New()
	if err := router.SetTrustedProxies(cfg.Server.TrustedProxies); err != nil {
		logger.Log.Warn("Invalid trusted proxies, trusting none", zap.Error(err))
		_ = router.SetTrustedProxies(nil)
	}
	app.Router = router

	app.setupMiddlewares(router, cfg)
	app.registerRoutes(router, controllers)

	app.RegisterConfigCallback(func(newCfg *config.Config) {
		app.Limiter.SetPolicy(newCfg.RateLimit.MaxRequests, newCfg.RateLimit.Window())
		logger.Log.Info("Rate limit policy updated",
			zap.Int("max_requests", newCfg.RateLimit.MaxRequests),
			zap.Duration("window", newCfg.RateLimit.Window()),
		)
	})
	app.RegisterConfigCallback(logger.ApplyConfig)

	return app
}

func NewApp(cfg *config.Config) *App {
	logger.InitLogger(cfg)
	logger.Log.Info("Logger initialized successfully")

	gin.SetMode(cfg.Server.Mode)

	db, err := database.InitDB(&cfg.Database, cfg.Server.Mode, cfg.ForceMigrate)
	if err != nil {
		logger.Log.Fatal("Failed to initialize database", zap.Error(err))
	}
	if cfg.MigrateOnly {
		return &App{Config: cfg, DB: db}
	}

	rdb := database.InitRedis(&cfg.Redis)

	// 监控初始化
	monitoring.Init()

	var tp *sdktrace.TracerProvider
	if cfg.Tracing.Enabled {
		tp, err = tracing.InitTracer(tracing.ServiceName, cfg.Tracing.CollectorEndpoint)
		if err != nil {
			logger.Log.Fatal("Failed to initialize tracing", zap.Error(err))
		}
	}

	app := New(cfg, db, rdb)
	app.tracerProvider = tp
	return app
}

func (a *App) Run() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if a.floodGuard != nil {
		go a.floodGuard.RunCleanup(ctx)
	}

	if a.Config.FilePath != "" {
		go func() {
			if err := configwatcher.WatchConfig(ctx, a.Config.FilePath, a.ApplyConfig); err != nil {
				logger.Log.Error("Config watcher stopped", zap.Error(err))
			}
		}()
	}

	srv := &http.Server{
		Addr:    ":" + a.Config.Server.Port,
		Handler: a.Router,
	}

	// 启动服务器
	go func() {
		logger.Log.Info("Server running", zap.String("port", a.Config.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Log.Fatal("listen failed", zap.Error(err))
		}
	}()

	// 等待中断信号优雅地关闭服务器（设置5秒的超时时间）
	<-ctx.Done()
	logger.Log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Log.Error("Server forced to shutdown", zap.Error(err))
	}

	if err := tracing.Shutdown(shutdownCtx, a.tracerProvider); err != nil {
		logger.Log.Error("Failed to shutdown tracer provider", zap.Error(err))
	}
	if a.Redis != nil {
		_ = a.Redis.Close()
	}
	if sqlDB, err := a.DB.DB(); err == nil {
		_ = sqlDB.Close()
	}

	logger.Log.Info("Server exiting")
}
