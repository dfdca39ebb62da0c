package main

import (
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/ims-core-api/api/swagger"
	"github.com/noah-isme/ims-core-api/internal/handler"
	"github.com/noah-isme/ims-core-api/internal/middleware"
	"github.com/noah-isme/ims-core-api/internal/repository"
	"github.com/noah-isme/ims-core-api/internal/service"
	"github.com/noah-isme/ims-core-api/pkg/cache"
	"github.com/noah-isme/ims-core-api/pkg/config"
	"github.com/noah-isme/ims-core-api/pkg/database"
	"github.com/noah-isme/ims-core-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/ims-core-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/ims-core-api/pkg/middleware/requestid"
)

// @title IMS Core API
// @version 0.1.0
// @description Attendance marking and analytics aggregation core
// @BasePath /
// @schemes http

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

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer db.Close() //nolint:errcheck

	metricsSvc := service.NewMetricsService()

	// Redis is optional: reports fall back to building on every request.
	var cacheRepo service.CacheRepository
	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Warn("redis unavailable, running without report cache", zap.Error(err))
	} else {
		defer redisClient.Close() //nolint:errcheck
		cacheRepo = repository.NewCacheRepository(redisClient, logr)
	}
	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Reports.CacheTTL, logr, cfg.Reports.CacheEnabled)

	studentRepo := repository.NewStudentRepository(db)
	enrollmentRepo := repository.NewEnrollmentRepository(db)
	attendanceRepo := repository.NewAttendanceRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)
	gradeRepo := repository.NewGradeRepository(db)

	identitySvc := service.NewIdentityService(studentRepo, enrollmentRepo, logr)
	attendanceSvc := service.NewAttendanceService(attendanceRepo, identitySvc, cacheSvc, nil, logr)
	reportSvc := service.NewReportService(service.ReportServiceParams{
		Attendance:  attendanceRepo,
		Payments:    paymentRepo,
		Grades:      gradeRepo,
		Enrollments: enrollmentRepo,
		Cache:       cacheSvc,
		Metrics:     metricsSvc,
		Logger:      logr,
		Config: service.ReportServiceConfig{
			RiskThreshold:        cfg.Reports.RiskThreshold,
			DefaulterLimit:       cfg.Reports.DefaulterLimit,
			DailyStatsLimit:      cfg.Reports.DailyStatsLimit,
			AttendanceWindowDays: cfg.Reports.AttendanceWindowDays,
			TopPerformerLimit:    cfg.Reports.TopPerformerLimit,
			MinGradedAssessments: cfg.Reports.MinGradedAssessments,
			CacheTTL:             cfg.Reports.CacheTTL,
		},
	})

	attendanceHandler := handler.NewAttendanceHandler(attendanceSvc)
	reportHandler := handler.NewReportHandler(reportSvc)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.GET("/ready", func(c *gin.Context) {
		if err := db.Ping(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	r.GET("/metrics", gin.WrapH(metricsSvc.Handler()))

	api := r.Group(cfg.APIPrefix)
	{
		attendance := api.Group("/attendance")
		{
			attendance.POST("/mark", attendanceHandler.Mark)
			attendance.POST("/scan", attendanceHandler.Scan)
			attendance.DELETE("/:id", attendanceHandler.Delete)
		}

		reports := api.Group("/reports")
		{
			reports.GET("/financial", reportHandler.Financial)
			reports.GET("/attendance", reportHandler.Attendance)
			reports.GET("/academic", reportHandler.Academic)
		}
	}

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
