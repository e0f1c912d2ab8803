package main

import (
	"fmt"
	"log"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/maktab-fin-api/api/swagger"
	"github.com/noah-isme/maktab-fin-api/internal/handler"
	"github.com/noah-isme/maktab-fin-api/internal/middleware"
	"github.com/noah-isme/maktab-fin-api/internal/models"
	"github.com/noah-isme/maktab-fin-api/internal/repository"
	"github.com/noah-isme/maktab-fin-api/internal/service"
	"github.com/noah-isme/maktab-fin-api/pkg/cache"
	"github.com/noah-isme/maktab-fin-api/pkg/config"
	"github.com/noah-isme/maktab-fin-api/pkg/database"
	"github.com/noah-isme/maktab-fin-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/maktab-fin-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/maktab-fin-api/pkg/middleware/requestid"
)

// @title Maktab Finance API
// @version 1.0.0
// @description Tuition billing and teacher payroll ledgers
// @BasePath /api/v1
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

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Warn("redis unavailable, finance view cache disabled", zap.Error(err))
		redisClient = nil
	}

	validate := validator.New()
	metricsService := service.NewMetricsService()

	// Repositories.
	userRepo := repository.NewUserRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)
	discountRepo := repository.NewDiscountRepository(db)
	tariffRepo := repository.NewTariffRepository(db)
	rateRepo := repository.NewRateRepository(db)
	lessonRepo := repository.NewLessonRepository(db)
	payrollRepo := repository.NewPayrollRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	// Services.
	cacheService := service.NewCacheService(cacheRepo, metricsService, cfg.Billing.FinanceCacheTTL, logr, redisClient != nil)
	authService := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             "maktab-fin-api",
	})
	debtService := service.NewDebtService(paymentRepo, logr)
	paymentService := service.NewPaymentService(paymentRepo, studentRepo, cacheService, metricsService, validate, logr)
	discountService := service.NewDiscountService(discountRepo, studentRepo, cacheService, validate, logr)
	tariffService := service.NewTariffService(tariffRepo, service.TariffConfig{
		MaxMonthlyAmount:     cfg.Billing.MaxMonthlyAmount,
		ChargeableMonthCount: cfg.Billing.ChargeableMonthCount,
	}, validate, logr)
	rateService := service.NewRateService(rateRepo, validate, logr)
	lessonService := service.NewLessonService(lessonRepo, validate, logr)
	payrollService := service.NewPayrollService(payrollRepo, lessonRepo, rateService, metricsService, cfg.Payroll.RoundingUnit, validate, logr)
	studentService := service.NewStudentService(studentRepo, validate, logr)
	exportService := service.NewExportService(paymentRepo, studentRepo, payrollRepo, logr)

	// Handlers.
	authHandler := handler.NewAuthHandler(authService)
	studentHandler := handler.NewStudentHandler(studentService)
	paymentHandler := handler.NewPaymentHandler(paymentService, debtService, exportService)
	discountHandler := handler.NewDiscountHandler(discountService)
	tariffHandler := handler.NewTariffHandler(tariffService)
	rateHandler := handler.NewRateHandler(rateService)
	lessonHandler := handler.NewLessonHandler(lessonService)
	payrollHandler := handler.NewPayrollHandler(payrollService, exportService)
	metricsHandler := handler.NewMetricsHandler(metricsService)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsService))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Health)
	r.GET("/metrics", metricsHandler.Prometheus)
	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	auth := api.Group("/auth")
	{
		auth.POST("/login", authHandler.Login)
		auth.POST("/refresh", authHandler.Refresh)
		auth.GET("/me", middleware.JWT(authService), authHandler.Me)
		auth.POST("/logout", middleware.JWT(authService), authHandler.Logout)
	}

	protected := api.Group("")
	protected.Use(middleware.JWT(authService))

	staff := middleware.RequireRoles(models.RoleAdmin, models.RoleAccountant)
	adminOnly := middleware.RequireRoles(models.RoleAdmin)
	anyRole := middleware.RequireRoles(models.RoleAdmin, models.RoleAccountant, models.RoleTeacher)

	students := protected.Group("/students")
	{
		students.GET("", staff, studentHandler.List)
		students.POST("", staff, studentHandler.Create)
		students.GET("/:id", staff, studentHandler.Get)
		students.GET("/:id/finance", staff, paymentHandler.FinanceDetail)
		students.GET("/:id/debt", staff, paymentHandler.Debt)
		students.POST("/:id/payments/preview", staff, paymentHandler.Preview)
		students.POST("/:id/payments", staff,
			middleware.Audit(userRepo, models.AuditActionPaymentCreate, "payment"), paymentHandler.Create)
		students.POST("/:id/discounts", staff,
			middleware.Audit(userRepo, models.AuditActionDiscountCreate, "discount"), discountHandler.Create)
	}

	payments := protected.Group("/payments")
	{
		payments.POST("/:id/revert", staff,
			middleware.Audit(userRepo, models.AuditActionPaymentRevert, "payment"), paymentHandler.Revert)
		payments.GET("/:id/receipt", staff, paymentHandler.Receipt)
	}

	discounts := protected.Group("/discounts")
	{
		discounts.POST("/:id/deactivate", staff,
			middleware.Audit(userRepo, models.AuditActionDiscountDisable, "discount"), discountHandler.Deactivate)
	}

	tariffs := protected.Group("/tariffs")
	{
		tariffs.GET("", staff, tariffHandler.List)
		tariffs.POST("", adminOnly,
			middleware.Audit(userRepo, models.AuditActionTariffUpdate, "tariff"), tariffHandler.Update)
		tariffs.POST("/:id/rollback", adminOnly,
			middleware.Audit(userRepo, models.AuditActionTariffRollback, "tariff"), tariffHandler.Rollback)
	}

	rates := protected.Group("/rates")
	{
		rates.POST("/teacher", adminOnly,
			middleware.Audit(userRepo, models.AuditActionRateCreate, "rate"), rateHandler.CreateTeacherRate)
		rates.POST("/subject", adminOnly,
			middleware.Audit(userRepo, models.AuditActionRateCreate, "rate"), rateHandler.CreateSubjectDefaultRate)
		rates.GET("/resolve", staff, rateHandler.Resolve)
	}

	lessons := protected.Group("/lessons")
	{
		lessons.GET("", anyRole, lessonHandler.List)
		lessons.POST("", staff,
			middleware.Audit(userRepo, models.AuditActionLessonRecord, "lesson"), lessonHandler.Record)
	}

	payroll := protected.Group("/payroll/runs")
	{
		payroll.POST("", staff,
			middleware.Audit(userRepo, models.AuditActionRunGenerate, "payroll_run"), payrollHandler.Generate)
		payroll.GET("/:id", staff, payrollHandler.Get)
		payroll.POST("/:id/lines", staff,
			middleware.Audit(userRepo, models.AuditActionRunAdjustment, "payroll_run"), payrollHandler.AddLine)
		payroll.POST("/:id/transition", adminOnly,
			middleware.Audit(userRepo, models.AuditActionRunTransition, "payroll_run"), payrollHandler.Transition)
		payroll.GET("/:id/export", staff, payrollHandler.Export)
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
