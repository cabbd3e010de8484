package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/sma-results-api/api/swagger"
	"github.com/noah-isme/sma-results-api/internal/handler"
	internalmiddleware "github.com/noah-isme/sma-results-api/internal/middleware"
	"github.com/noah-isme/sma-results-api/internal/models"
	"github.com/noah-isme/sma-results-api/internal/repository"
	"github.com/noah-isme/sma-results-api/internal/service"
	"github.com/noah-isme/sma-results-api/pkg/cache"
	"github.com/noah-isme/sma-results-api/pkg/config"
	"github.com/noah-isme/sma-results-api/pkg/database"
	"github.com/noah-isme/sma-results-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/sma-results-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/sma-results-api/pkg/middleware/requestid"
)

// @title SMA Results API
// @version 1.0.0
// @description Per-subject result recording, class compilation and complaint resolution.
// @BasePath /api/v1
// @schemes http https
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

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer db.Close() //nolint:errcheck

	var redisClient *redis.Client
	if cfg.Roster.CacheEnabled {
		redisClient, err = cache.NewRedis(ctx, cfg.Redis)
		if err != nil {
			logr.Warn("roster cache disabled, redis unavailable", zap.Error(err))
		} else {
			defer redisClient.Close() //nolint:errcheck
		}
	}

	r := buildRouter(cfg, logr, db, redisClient)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
	logr.Info("server stopped")
}

func buildRouter(cfg *config.Config, logr *zap.Logger, db *sqlx.DB, redisClient *redis.Client) *gin.Engine {
	validate := validator.New()

	var metricsSvc *service.MetricsService
	if cfg.Metrics.Enabled {
		metricsSvc = service.NewMetricsService()
	}

	resultRepo := repository.NewResultRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	assignmentRepo := repository.NewTeacherAssignmentRepository(db)
	complaintRepo := repository.NewComplaintRepository(db)

	var cacheSvc *service.CacheService
	dependencies := map[string]handler.Pinger{"postgres": db}
	if redisClient != nil {
		cacheRepo := repository.NewCacheRepository(redisClient, "results-api")
		cacheSvc = service.NewCacheService(cacheRepo, metricsSvc, cfg.Roster.CacheTTL, logr, cfg.Roster.CacheEnabled)
		dependencies["redis"] = handler.PingFunc(cacheRepo.Ping)
	}

	tokens := service.NewTokenService(service.TokenConfig{Secret: cfg.JWT.Secret, Issuer: cfg.JWT.Issuer, Expiry: cfg.JWT.Expiration})
	roster := service.NewRosterService(assignmentRepo, cacheSvc, cfg.Roster.CacheTTL, logr)
	resultSvc := service.NewResultService(resultRepo, studentRepo, roster, metricsSvc, validate, logr)
	compilationSvc := service.NewCompilationService(resultRepo, studentRepo, roster, validate, logr)
	complaintSvc := service.NewComplaintService(complaintRepo, roster, metricsSvc, validate, logr)

	resultHandler := handler.NewResultHandler(resultSvc, compilationSvc, complaintSvc)
	complaintHandler := handler.NewComplaintHandler(complaintSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc, dependencies)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	if metricsSvc != nil {
		r.Use(internalmiddleware.Metrics(metricsSvc))
	}

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	if metricsSvc != nil {
		r.GET("/metrics", metricsHandler.Prometheus)
	}
	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.Use(internalmiddleware.JWT(tokens))
	api.Use(internalmiddleware.WithResponseMeta())
	if cfg.Audit.Enabled {
		api.Use(internalmiddleware.Audit(repository.NewAuditRepository(db), logr))
	}
	api.Use(internalmiddleware.RequireRoles(models.RoleTeacher, models.RoleAdmin, models.RoleSuperAdmin))

	api.POST("/results/actions", resultHandler.Submit)
	api.GET("/results", resultHandler.List)
	api.GET("/results/compiled", resultHandler.Compiled)
	api.GET("/complaints", complaintHandler.List)
	api.POST("/complaints/:id/resolve", complaintHandler.Resolve)

	return r
}
