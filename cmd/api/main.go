package main

import (
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/annelaughry/FFYM/api/swagger"
	"github.com/annelaughry/FFYM/internal/handler"
	"github.com/annelaughry/FFYM/internal/middleware"
	"github.com/annelaughry/FFYM/internal/models"
	"github.com/annelaughry/FFYM/internal/repository"
	"github.com/annelaughry/FFYM/internal/service"
	"github.com/annelaughry/FFYM/pkg/cache"
	"github.com/annelaughry/FFYM/pkg/config"
	"github.com/annelaughry/FFYM/pkg/database"
	"github.com/annelaughry/FFYM/pkg/export"
	"github.com/annelaughry/FFYM/pkg/logger"
	corsmiddleware "github.com/annelaughry/FFYM/pkg/middleware/cors"
	reqidmiddleware "github.com/annelaughry/FFYM/pkg/middleware/requestid"
)

// @title Classroom Planner API
// @version 0.1.0
// @description Classroom workflow and research-project planner
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

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	validate := validator.New()
	metricsSvc := service.NewMetricsService()

	var cacheSvc *service.CacheService
	if cfg.Dashboard.CacheEnabled {
		redisClient, err := cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Sugar().Fatalw("failed to connect to redis", "error", err)
		}
		defer redisClient.Close()
		cacheRepo := repository.NewCacheRepository(redisClient, logr)
		cacheSvc = service.NewCacheService(cacheRepo, metricsSvc, cfg.Dashboard.CacheTTL, logr, true)
	}

	userRepo := repository.NewUserRepository(db)
	classroomRepo := repository.NewClassroomRepository(db)
	articleRepo := repository.NewArticleRepository(db)
	assignmentRepo := repository.NewAssignmentRepository(db)
	responseRepo := repository.NewResponseRepository(db)
	plannerRepo := repository.NewPlannerRepository(db)

	classroomSvc := service.NewClassroomService(classroomRepo, cacheSvc, validate, logr, cfg.Classroom.CodeLength)
	authSvc := service.NewAuthService(userRepo, classroomSvc, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             "classroom-planner",
	})
	dashboardSvc := service.NewDashboardService(classroomRepo, assignmentRepo, cacheSvc, cfg.Dashboard.CacheTTL, cfg.Dashboard.DueWindow, logr)
	articleSvc := service.NewArticleService(articleRepo, classroomSvc, validate, logr)
	assignmentSvc := service.NewAssignmentService(assignmentRepo, classroomRepo, classroomSvc, responseRepo, validate, logr)
	responseSvc := service.NewResponseService(responseRepo, assignmentRepo, classroomRepo, classroomSvc, validate, logr)
	plannerSvc := service.NewPlannerService(plannerRepo, export.NewPDFExporter(), validate, logr)

	authHandler := handler.NewAuthHandler(authSvc)
	dashboardHandler := handler.NewDashboardHandler(dashboardSvc)
	classroomHandler := handler.NewClassroomHandler(classroomSvc)
	articleHandler := handler.NewArticleHandler(articleSvc)
	assignmentHandler := handler.NewAssignmentHandler(assignmentSvc)
	responseHandler := handler.NewResponseHandler(responseSvc, export.NewCSVExporter())
	plannerHandler := handler.NewPlannerHandler(plannerSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not ready"})
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
	auth.POST("/register", authHandler.Register)
	auth.POST("/login", authHandler.Login)
	auth.POST("/refresh", authHandler.Refresh)
	auth.POST("/logout", middleware.JWT(authSvc), authHandler.Logout)

	authed := api.Group("")
	authed.Use(middleware.JWT(authSvc))

	authed.GET("/dashboard", dashboardHandler.Dashboard)
	authed.POST("/classrooms/join", classroomHandler.Join)
	authed.GET("/assignments/:id", assignmentHandler.StudentView)
	authed.POST("/assignments/:id/responses", responseHandler.Submit)
	authed.GET("/articles", articleHandler.List)
	authed.GET("/articles/:id", articleHandler.Get)

	teacher := authed.Group("/teacher")
	teacher.GET("/classrooms", classroomHandler.My)
	teacher.POST("/classrooms", classroomHandler.Create)
	teacher.GET("/classrooms/:id", classroomHandler.Detail)
	teacher.POST("/classrooms/:id/assignments", assignmentHandler.Create)
	teacher.GET("/assignments/:id", responseHandler.Dashboard)
	teacher.GET("/assignments/:id/detail", assignmentHandler.TeacherDetail)
	teacher.GET("/assignments/:id/export", responseHandler.Export)
	teacher.PUT("/assignments/:id", assignmentHandler.Update)
	teacher.POST("/articles", articleHandler.Create)

	authed.PUT("/responses/:id/feedback", responseHandler.Feedback)

	planner := authed.Group("/planner")
	planner.GET("", plannerHandler.Home)
	planner.POST("/projects", plannerHandler.StartProject)
	planner.GET("/background-research", plannerHandler.BackgroundResearch)
	planner.PUT("/background-research", plannerHandler.SaveBackgroundResearch)
	planner.GET("/research-questions", plannerHandler.ResearchQuestions)
	planner.PUT("/research-questions", plannerHandler.SaveResearchQuestions)
	planner.GET("/hypothesis", plannerHandler.Hypothesis)
	planner.PUT("/hypothesis", plannerHandler.SaveHypothesis)

	staff := planner.Group("/projects/:id", middleware.RequireRoles(models.RoleAdmin))
	staff.GET("/document", plannerHandler.Document)
	staff.GET("/document/pdf", plannerHandler.DocumentPDF)

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
