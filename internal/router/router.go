package router

import (
	"time"

	"tillpoint/internal/config"
	"tillpoint/internal/handler"
	"tillpoint/internal/middleware"
	"tillpoint/internal/model"
	"tillpoint/internal/repository"
	"tillpoint/internal/service"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// New wires all dependencies and returns a configured Gin engine.
// Dependency graph: Handler ← Service ← Repository ← DB/Redis
// The event sink is injected from main because the worker pool that drains
// its queues shares the same dispatcher.
func New(cfg *config.Config, db *gorm.DB, rdb *redis.Client, sink service.EventSink) *gin.Engine {
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// Global middleware chain (order matters)
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.Recovery())
	r.Use(middleware.CORS())
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.RateLimiter(1000, time.Minute)) // 1000 req/min per IP

	// ── Repositories ─────────────────────────────────────────────────────────
	userRepo := repository.NewUserRepository(db)
	branchRepo := repository.NewBranchRepository(db)
	denominationRepo := repository.NewDenominationRepository(db)
	sessionRepo := repository.NewSessionRepository(db)
	ledgerRepo := repository.NewLedgerReader(db)

	// ── Services ─────────────────────────────────────────────────────────────
	authSvc := service.NewAuthService(userRepo, cfg)
	denominationSvc := service.NewDenominationService(denominationRepo)
	sessionSvc := service.NewSessionService(
		sessionRepo, ledgerRepo, branchRepo, denominationSvc, authSvc, sink, cfg.PDFStoragePath)

	// ── Handlers ─────────────────────────────────────────────────────────────
	authH := handler.NewAuthHandler(authSvc)
	denominationsH := handler.NewDenominationHandler(denominationSvc)
	sessionsH := handler.NewSessionHandler(sessionSvc)

	// ── Routes ───────────────────────────────────────────────────────────────

	// Public
	r.GET("/health", handler.Health(db, rdb))

	// Auth (public)
	auth := r.Group("/v1/auth")
	{
		auth.POST("/login", middleware.LoginRateLimiter(), authH.Login)
		auth.POST("/refresh", authH.Refresh)
	}

	// Protected routes
	jwtMW := middleware.JWTAuth(cfg.JWTSecret)
	anyRole := middleware.RequireRole(model.RoleCashier, model.RoleManager, model.RoleOwner)
	managerUp := middleware.RequireRole(model.RoleManager, model.RoleOwner)

	v1 := r.Group("/v1", jwtMW)
	{
		sessions := v1.Group("/sessions")
		{
			sessions.POST("", anyRole, sessionsH.Open)
			sessions.GET("/active", anyRole, sessionsH.Active)
			sessions.GET("", managerUp, sessionsH.List)
			sessions.GET("/:id", anyRole, sessionsH.Get)
			sessions.POST("/:id/close", anyRole, sessionsH.Close)
			sessions.POST("/:id/force-close", managerUp, sessionsH.ForceClose)
			sessions.POST("/:id/reopen", anyRole, sessionsH.Reopen)
			sessions.GET("/:id/unapproved-voids", anyRole, sessionsH.UnapprovedVoids)
			sessions.GET("/:id/report.pdf", anyRole, sessionsH.ReportPDF)
		}

		// Denominations — catalog reads for everyone, writes for manager/owner
		v1.GET("/denominations", anyRole, denominationsH.List)
		denominations := v1.Group("/denominations", managerUp)
		{
			denominations.POST("", denominationsH.Create)
			denominations.PUT("/reorder", denominationsH.Reorder)
			denominations.PATCH("/:id", denominationsH.Update)
			denominations.DELETE("/:id", denominationsH.Deactivate)
		}

		v1.POST("/registers/:id/deactivate", middleware.RequireRole(model.RoleOwner), sessionsH.DeactivateRegister)
	}

	// Swagger UI — only enabled outside production
	if cfg.Env != "production" {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	return r
}
