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

	_ "github.com/klil-music/conservatory-api/api/swagger"
	"github.com/klil-music/conservatory-api/internal/handler"
	"github.com/klil-music/conservatory-api/internal/middleware"
	"github.com/klil-music/conservatory-api/internal/repository"
	"github.com/klil-music/conservatory-api/internal/service"
	"github.com/klil-music/conservatory-api/pkg/cache"
	"github.com/klil-music/conservatory-api/pkg/config"
	"github.com/klil-music/conservatory-api/pkg/database"
	"github.com/klil-music/conservatory-api/pkg/jobs"
	"github.com/klil-music/conservatory-api/pkg/logger"
	corsmiddleware "github.com/klil-music/conservatory-api/pkg/middleware/cors"
	reqidmiddleware "github.com/klil-music/conservatory-api/pkg/middleware/requestid"
	"github.com/klil-music/conservatory-api/pkg/storage"
)

// @title Conservatory API
// @version 1.0.0
// @description Scheduling and administration API for a music conservatory
// @BasePath /api/v1
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

	userRepo := repository.NewUserRepository(db)
	teacherRepo := repository.NewTeacherRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	slotRepo := repository.NewSlotRepository(db)
	blockRepo := repository.NewTimeBlockRepository(db)
	theoryRepo := repository.NewTheoryRepository(db)
	orchestraRepo := repository.NewOrchestraRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	metricsSvc := service.NewMetricsService()
	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Cache.ScheduleTTL, logr, cfg.Cache.Enabled)

	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             "conservatory-api",
		SingleSession:      cfg.JWT.SingleSession,
	})

	userSvc := service.NewUserService(userRepo, validate, logr)
	teacherSvc := service.NewTeacherService(teacherRepo, validate, logr)
	studentSvc := service.NewStudentService(studentRepo, validate, logr)
	slotSvc := service.NewSlotService(slotRepo, studentRepo, cacheSvc, metricsSvc, validate, logr)
	blockSvc := service.NewTimeBlockService(blockRepo, studentRepo, slotRepo, cacheSvc, metricsSvc, validate, logr)
	theorySvc := service.NewTheoryService(theoryRepo, validate, logr)
	orchestraSvc := service.NewOrchestraService(orchestraRepo, studentRepo, validate, logr)
	availabilitySvc := service.NewAvailabilityService(slotRepo, teacherRepo, studentRepo, cacheSvc, logr)
	exportSvc := service.NewExportService(availabilitySvc, teacherRepo, nil, nil, logr)

	store, err := storage.NewLocalStorage(cfg.Export.Dir)
	if err != nil {
		logr.Sugar().Fatalw("failed to prepare export directory", "error", err)
	}
	signer := storage.NewSignedURLSigner(cfg.JWT.Secret, cfg.Export.DownloadTTL)
	exportJobSvc := service.NewExportJobService(exportSvc, store, signer, jobs.QueueConfig{Workers: cfg.Export.Workers}, logr)

	handlers := handler.Handlers{
		Auth:       handler.NewAuthHandler(authSvc),
		Teachers:   handler.NewTeacherHandler(teacherSvc),
		Students:   handler.NewStudentHandler(studentSvc, orchestraSvc),
		Slots:      handler.NewSlotHandler(slotSvc),
		Blocks:     handler.NewTimeBlockHandler(blockSvc),
		Schedule:   handler.NewScheduleHandler(availabilitySvc),
		Theory:     handler.NewTheoryHandler(theorySvc),
		Orchestras: handler.NewOrchestraHandler(orchestraSvc),
		Users:      handler.NewUserHandler(userSvc),
		Exports:    handler.NewExportHandler(exportSvc, exportJobSvc),
		Metrics:    handler.NewMetricsHandler(metricsSvc),
	}

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))
	r.Use(middleware.WithResponseMeta())

	handler.RegisterRoutes(r, cfg.APIPrefix, middleware.JWT(authSvc), handlers)

	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "postgres": err.Error()})
			return
		}
		if err := redisClient.Ping(c.Request.Context()).Err(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "redis": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	exportJobSvc.Start(ctx)
	defer exportJobSvc.Stop()

	go func() {
		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if _, err := exportJobSvc.CleanupExpired(cfg.Export.Retention); err != nil {
					logr.Sugar().Warnw("export cleanup failed", "error", err)
				}
			}
		}
	}()

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{Addr: addr, Handler: r}

	go func() {
		logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Sugar().Infow("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("graceful shutdown failed", "error", err)
	}
}
