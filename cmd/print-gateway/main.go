package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/secure-print-api/api/swagger"
	"github.com/noah-isme/secure-print-api/internal/handler"
	"github.com/noah-isme/secure-print-api/internal/middleware"
	"github.com/noah-isme/secure-print-api/internal/models"
	"github.com/noah-isme/secure-print-api/internal/printcore/bus"
	"github.com/noah-isme/secure-print-api/internal/printcore/capability"
	"github.com/noah-isme/secure-print-api/internal/printcore/deterrence"
	"github.com/noah-isme/secure-print-api/internal/printcore/session"
	"github.com/noah-isme/secure-print-api/internal/printcore/surface"
	"github.com/noah-isme/secure-print-api/internal/repository"
	"github.com/noah-isme/secure-print-api/internal/service"
	"github.com/noah-isme/secure-print-api/pkg/cache"
	"github.com/noah-isme/secure-print-api/pkg/config"
	"github.com/noah-isme/secure-print-api/pkg/database"
	"github.com/noah-isme/secure-print-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/secure-print-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/secure-print-api/pkg/middleware/requestid"
)

// @title Secure Print API
// @version 1.0.0
// @description Watermarked document printing with session tracking and capture deterrence
// @BasePath /
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to redis", "error", err)
	}
	defer redisClient.Close()

	validate := validator.New()
	metricsSvc := service.NewMetricsService()

	userRepo := repository.NewUserRepository(db)
	fileRepo := repository.NewFileRepository(db)
	printLogRepo := repository.NewPrintLogRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Print.DescriptorCacheTTL, logr, true)
	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             "secure-print-api",
	})
	fileSvc := service.NewFileService(fileRepo, cacheSvc, cfg.Print.DescriptorCacheTTL, logr)
	printLogSvc := service.NewPrintLogService(printLogRepo, metricsSvc, logr)

	eventBus := bus.New(64, bus.WithDropHook(func(bus.Message) {
		metricsSvc.RecordBusRejection("dropped")
	}))

	factory, closeFactory := newSurfaceFactory(cfg, logr)
	strategy := surface.SelectStrategy(cfg.Print.Strategy)

	controller := session.NewController(session.Config{
		ProbeTimeout:      cfg.Print.ProbeTimeout,
		CompletionTimeout: cfg.Print.CompletionTimeout,
		WatermarkText:     cfg.Print.WatermarkText,
		NewDetectors:      newDetectorSet(cfg.Print.Deterrence),
		OnOutcome: func(state session.State, code string) {
			metricsSvc.RecordSessionOutcome(string(state), code)
		},
		OnDeterrence: func(kind deterrence.EventKind) {
			metricsSvc.RecordDeterrenceEvent(string(kind))
		},
		OnStale: func() {
			metricsSvc.RecordBusRejection("stale")
		},
	},
		service.NewDescriptorSource(fileSvc),
		service.NewAuditSink(printLogSvc),
		factory,
		strategy,
		eventBus,
		logr,
	)

	authHandler := handler.NewAuthHandler(authSvc)
	printHandler := handler.NewPrintHandler(fileSvc, printLogSvc)
	sessionHandler := handler.NewSessionHandler(controller)
	adminHandler := handler.NewAdminHandler(printLogSvc, fileSvc, metricsSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	auth := api.Group("/auth")
	{
		auth.POST("/login", authHandler.Login)
		auth.POST("/refresh", authHandler.Refresh)
		auth.POST("/logout", middleware.JWT(authSvc), authHandler.Logout)
		auth.GET("/me", middleware.JWT(authSvc), authHandler.Me)
	}

	printGroup := api.Group("/print", middleware.JWT(authSvc))
	{
		printGroup.GET("/:fileId", printHandler.GetFile)
		printGroup.POST("/log/:fileId", printHandler.LogPrint)

		sessions := printGroup.Group("/sessions")
		sessions.POST("/:fileId", sessionHandler.Start)
		sessions.GET("/current", sessionHandler.Current)
		sessions.DELETE("/current", sessionHandler.Cancel)
		sessions.POST("/current/events", sessionHandler.Deliver)
		sessions.POST("/current/signals", sessionHandler.Signal)
		sessions.GET("/current/document", sessionHandler.Document)
	}

	admin := api.Group("/admin", middleware.JWT(authSvc), middleware.RBAC(string(models.RoleAdmin)))
	{
		admin.GET("/print-logs", adminHandler.ListPrintLogs)
		admin.GET("/print-logs/file/:fileId", adminHandler.ListPrintLogsByFile)
		admin.GET("/files", adminHandler.ListFiles)
		admin.GET("/metrics", adminHandler.SystemMetrics)
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{Addr: addr, Handler: r}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env, "strategy", strategy.Name())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("server shutdown failed", "error", err)
	}

	controller.Close()
	closeFactory()
}

// newSurfaceFactory picks the rendering backend. The chrome strategy needs a
// real browser; everything else runs on the in-memory surface seeded with a
// print-capable report.
func newSurfaceFactory(cfg *config.Config, logr *zap.Logger) (surface.Factory, func()) {
	if cfg.Print.Strategy == config.StrategyChrome {
		f := surface.NewChromeFactory(surface.ChromeConfig{
			RemoteURL: cfg.Print.Chrome.RemoteURL,
			Headless:  cfg.Print.Chrome.Headless,
			NoSandbox: cfg.Print.Chrome.NoSandbox,
			Timeout:   cfg.Print.Chrome.Timeout,
		}, logr)
		return f, func() {
			if err := f.Close(); err != nil {
				logr.Sugar().Warnw("browser factory close failed", "error", err)
			}
		}
	}
	f := &surface.MemoryFactory{Report: capability.Report{
		PointerFine:     true,
		Platform:        "Win32",
		PrintMediaQuery: true,
	}}
	return f, func() {}
}

func newDetectorSet(cfg config.DeterrenceConfig) func() []deterrence.Detector {
	return func() []deterrence.Detector {
		return []deterrence.Detector{
			&deterrence.DevToolsDetector{Every: cfg.DevToolsInterval},
			&deterrence.CanvasDetector{Every: cfg.CanvasInterval},
			&deterrence.StyleDetector{Every: cfg.StyleInterval},
			&deterrence.ClipboardDetector{Every: cfg.ClipboardInterval},
			&deterrence.MemoryDetector{Every: cfg.MemoryInterval},
		}
	}
}
