package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/bitfantasy/nimo-qis/internal/config"
	"github.com/bitfantasy/nimo-qis/internal/middleware"
	"github.com/bitfantasy/nimo-qis/internal/notify"
	"github.com/bitfantasy/nimo-qis/internal/qis/handler"
	"github.com/bitfantasy/nimo-qis/internal/qis/service"
	"github.com/bitfantasy/nimo-qis/internal/qis/store"
	"github.com/bitfantasy/nimo-qis/internal/qis/upstream"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	// 加载 .env 文件
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found, using environment variables")
	}

	// 加载配置
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// 初始化日志
	zapLogger, err := initLogger(cfg.Log)
	if err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	defer zapLogger.Sync()

	zapLogger.Info("Starting nimo-qis service",
		zap.String("version", Version),
		zap.String("build_time", BuildTime),
	)

	// 初始化Redis（参考数据缓存，可选）
	var rdb *redis.Client
	if cfg.Redis.Host != "" {
		rdb = initRedis(cfg.Redis)
	}

	// 初始化MinIO（导出文件上传，可选）
	var mc *minio.Client
	if cfg.MinIO.Endpoint != "" {
		mc, err = minio.New(cfg.MinIO.Endpoint, &minio.Options{
			Creds:  credentials.NewStaticV4(cfg.MinIO.AccessKey, cfg.MinIO.SecretKey, ""),
			Secure: cfg.MinIO.UseSSL,
		})
		if err != nil {
			zapLogger.Warn("Failed to init MinIO client, export upload disabled", zap.Error(err))
			mc = nil
		}
	}

	// 通知器：配置了webhook才发通知
	var notifier notify.Notifier = notify.Nop{}
	if cfg.Notify.WebhookURL != "" {
		notifier = notify.NewWebhookNotifier(cfg.Notify.WebhookURL, zapLogger)
	}

	// 上游客户端 + 内存记录集合
	up := upstream.NewClient(cfg.Upstream.BaseURL, cfg.Upstream.Token, cfg.Upstream.Timeout)
	recordStore := store.NewRecordStore()

	services := service.NewServices(recordStore, up, rdb, mc, cfg, notifier, zapLogger)
	handlers := handler.NewHandlers(services)

	// 启动时做一次全量同步；失败不阻塞启动，集合留空等待手动刷新
	{
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		if count, err := services.Record.Refresh(ctx); err != nil {
			zapLogger.Warn("Initial record sync failed, starting with empty collection", zap.Error(err))
		} else {
			zapLogger.Info("Initial record sync completed", zap.Int("count", count))
		}
		cancel()
	}

	// 设置Gin模式
	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	// 创建路由
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.Logger(zapLogger))
	router.Use(middleware.CORS())
	router.Use(middleware.RequestID())
	router.Use(gzip.Gzip(gzip.DefaultCompression))

	registerRoutes(router, handlers, cfg)

	// 创建HTTP服务器
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// 启动服务器
	go func() {
		zapLogger.Info("Server starting", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLogger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// 优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zapLogger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		zapLogger.Error("Server forced to shutdown", zap.Error(err))
	}

	zapLogger.Info("Server exited")
}

func initLogger(cfg config.LogConfig) (*zap.Logger, error) {
	var zapCfg zap.Config

	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
	}

	switch cfg.Level {
	case "debug":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	case "info":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	case "warn":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	case "error":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.ErrorLevel)
	}

	return zapCfg.Build()
}

func initRedis(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})
}

func registerRoutes(r *gin.Engine, h *handler.Handlers, cfg *config.Config) {
	// 健康检查
	r.GET("/health/live", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/health/ready", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// 版本信息
	r.GET("/version", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"version":    Version,
			"build_time": BuildTime,
		})
	})

	api := r.Group("/api/v1/qis", middleware.JWTAuth(cfg.JWT.Secret))

	api.GET("/records", h.Record.ListRecords)
	api.POST("/records", h.Record.CreateRecord)
	api.POST("/records/refresh", h.Record.RefreshRecords)
	api.GET("/records/export", middleware.RequirePermission("qis:record:export"), h.Export.ExportRecords)
	api.GET("/records/:id", h.Record.GetRecord)
	api.PUT("/records/:id", h.Record.UpdateRecord)
	api.PATCH("/records/:id/status", h.Record.UpdateRecordStatus)
	api.DELETE("/records/:id", middleware.RequireRole("qis_admin"), h.Record.DeleteRecord)

	api.GET("/references", h.Reference.GetReferences)
}
