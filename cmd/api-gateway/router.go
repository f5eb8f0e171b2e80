package main

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/noah-isme/hr-workflow-api/internal/handler"
	"github.com/noah-isme/hr-workflow-api/internal/middleware"
	"github.com/noah-isme/hr-workflow-api/internal/models"
	"github.com/noah-isme/hr-workflow-api/internal/service"
	"github.com/noah-isme/hr-workflow-api/pkg/config"
	"github.com/noah-isme/hr-workflow-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/hr-workflow-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/hr-workflow-api/pkg/middleware/requestid"
)

type routerDeps struct {
	tokens   middleware.TokenValidator
	metrics  *service.MetricsService
	sessions *handler.SessionHandler
	requests *handler.RequestHandler
	audit    *handler.AuditHandler
	ops      *handler.MetricsHandler
}

func newRouter(cfg *config.Config, logr *zap.Logger, deps routerDeps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(deps.metrics))

	r.GET("/health", deps.ops.Health)
	r.GET("/ready", deps.ops.Ready)
	r.GET("/metrics", deps.ops.Prometheus)
	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	// Previews are embedded by the browser, so the signed token replaces the bearer token.
	api.GET("/sessions/:id/previews/:field", deps.sessions.Preview)

	secured := api.Group("")
	secured.Use(middleware.JWT(deps.tokens))

	editors := secured.Group("/sessions")
	editors.Use(middleware.RequireRoles(models.RoleHR, models.RoleManager, models.RoleEmployee))
	editors.POST("", deps.sessions.Open)
	editors.GET("/:id", deps.sessions.Get)
	editors.POST("/:id/edit", deps.sessions.BeginEdit)
	editors.PATCH("/:id/fields", deps.sessions.SetFields)
	editors.POST("/:id/files/:field", deps.sessions.AttachFile)
	editors.POST("/:id/cancel", deps.sessions.Cancel)
	editors.POST("/:id/submit", deps.sessions.Submit)
	editors.DELETE("/:id", deps.sessions.Close)

	requests := secured.Group("/requests/:kind")
	requests.Use(middleware.RequireRoles(models.RoleHR, models.RoleManager, models.RoleEmployee))
	requests.GET("/pending", deps.requests.Pending)
	requests.GET("/history", deps.requests.History)
	requests.GET("/export", deps.requests.Export)
	requests.GET("/:requestId", deps.requests.Get)

	reviewers := requests.Group("")
	reviewers.Use(middleware.RequireRoles(models.RoleHR, models.RoleManager))
	reviewers.POST("/:requestId/approve", deps.requests.Approve)
	reviewers.POST("/:requestId/reject", deps.requests.Reject)

	secured.GET("/audit", middleware.RequireRoles(models.RoleHR), deps.audit.List)
	return r
}
