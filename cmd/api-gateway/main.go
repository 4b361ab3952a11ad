package main

import (
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/sekola/sekola-api/internal/handler"
	"github.com/sekola/sekola-api/internal/middleware"
	"github.com/sekola/sekola-api/internal/models"
	"github.com/sekola/sekola-api/internal/repository"
	"github.com/sekola/sekola-api/internal/service"
	"github.com/sekola/sekola-api/pkg/cache"
	"github.com/sekola/sekola-api/pkg/config"
	"github.com/sekola/sekola-api/pkg/database"
	"github.com/sekola/sekola-api/pkg/logger"
	corsmiddleware "github.com/sekola/sekola-api/pkg/middleware/cors"
	reqidmiddleware "github.com/sekola/sekola-api/pkg/middleware/requestid"
)

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
		// Tenant resolution falls back to the database on every request.
		logr.Sugar().Warnw("redis unavailable, tenant cache disabled", "error", err)
		redisClient = nil
	}

	// Repositories.
	tenantRepo := repository.NewTenantRepository(db)
	yearRepo := repository.NewAcademicYearRepository(db)
	classRepo := repository.NewClassRepository(db)
	sectionRepo := repository.NewSectionRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	userRepo := repository.NewUserRepository(db)
	counterRepo := repository.NewCounterRepository(db)
	enrollmentRepo := repository.NewEnrollmentRepository(db)
	auditRepo := repository.NewEnrollmentAuditRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient)

	// Services.
	metricsSvc := service.NewMetricsService()
	tenantSvc := service.NewTenantService(tenantRepo, cacheRepo, cfg.Tenancy.ResolverCacheTTL, metricsSvc, nil, logr)
	yearSvc := service.NewAcademicYearService(yearRepo, nil, logr)
	classSvc := service.NewClassService(classRepo, yearRepo, userRepo, nil, logr)
	sectionSvc := service.NewSectionService(sectionRepo, classRepo, nil, logr)
	studentSvc := service.NewStudentService(studentRepo, counterRepo, cfg.Students.CodePrefix, cfg.Students.CodeWidth, nil, logr)
	enrollmentSvc := service.NewEnrollmentService(enrollmentRepo, auditRepo, studentRepo, userRepo, yearRepo, classRepo, sectionRepo, metricsSvc, nil, logr)

	// Handlers.
	tenantHandler := handler.NewTenantHandler(tenantSvc)
	yearHandler := handler.NewAcademicYearHandler(yearSvc)
	classHandler := handler.NewClassHandler(classSvc)
	sectionHandler := handler.NewSectionHandler(sectionSvc)
	studentHandler := handler.NewStudentHandler(studentSvc, enrollmentSvc)
	enrollmentHandler := handler.NewEnrollmentHandler(enrollmentSvc)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

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

	staff := middleware.RequireRoles(models.RoleSuperAdmin, models.RoleAdmin, models.RoleRegistrar)

	api := r.Group(cfg.APIPrefix)
	api.Use(middleware.JWT(cfg.JWT.Secret))

	// Tenant administration stays outside the tenant scope.
	tenants := api.Group("/tenants")
	tenants.Use(middleware.RequireRoles(models.RoleSuperAdmin))
	{
		tenants.GET("", tenantHandler.List)
		tenants.POST("", tenantHandler.Create)
		tenants.PUT("/:id", tenantHandler.Update)
	}

	scoped := api.Group("")
	scoped.Use(middleware.TenantContext(tenantSvc, cfg.Tenancy.Header))
	{
		years := scoped.Group("/academic-years")
		{
			years.GET("", yearHandler.List)
			years.GET("/current", yearHandler.Current)
			years.GET("/:id", yearHandler.Get)
			years.POST("", staff, yearHandler.Create)
			years.PUT("/:id", staff, yearHandler.Update)
			years.POST("/:id/current", staff, yearHandler.SetCurrent)
			years.DELETE("/:id", staff, yearHandler.Delete)
		}

		classes := scoped.Group("/classes")
		{
			classes.GET("", classHandler.List)
			classes.GET("/:id", classHandler.Get)
			classes.POST("", staff, classHandler.Create)
			classes.PUT("/:id", staff, classHandler.Update)
			classes.DELETE("/:id", staff, classHandler.Delete)
		}

		sections := scoped.Group("/sections")
		{
			sections.GET("", sectionHandler.List)
			sections.GET("/:id", sectionHandler.Get)
			sections.POST("", staff, sectionHandler.Create)
			sections.PUT("/:id", staff, sectionHandler.Update)
			sections.DELETE("/:id", staff, sectionHandler.Delete)
		}

		students := scoped.Group("/students")
		{
			students.GET("", studentHandler.List)
			students.GET("/:id", studentHandler.Get)
			students.GET("/:id/enrollments", studentHandler.EnrollmentHistory)
			students.POST("", staff, studentHandler.Create)
			students.PUT("/:id", staff, studentHandler.Update)
		}

		enrollments := scoped.Group("/enrollments")
		{
			enrollments.GET("", enrollmentHandler.List)
			enrollments.POST("", staff, enrollmentHandler.Assign)
			enrollments.POST("/transfer", staff, enrollmentHandler.Transfer)
			enrollments.POST("/promote", staff, enrollmentHandler.Promote)
			enrollments.POST("/withdraw", staff, enrollmentHandler.Withdraw)
		}

		scoped.GET("/enrollment-audits", enrollmentHandler.Audits)
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
