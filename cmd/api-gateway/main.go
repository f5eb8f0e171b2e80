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
	"go.uber.org/zap"

	_ "github.com/noah-isme/hr-workflow-api/api/swagger"
	"github.com/noah-isme/hr-workflow-api/internal/handler"
	"github.com/noah-isme/hr-workflow-api/internal/repository"
	"github.com/noah-isme/hr-workflow-api/internal/service"
	"github.com/noah-isme/hr-workflow-api/pkg/cache"
	"github.com/noah-isme/hr-workflow-api/pkg/config"
	"github.com/noah-isme/hr-workflow-api/pkg/database"
	"github.com/noah-isme/hr-workflow-api/pkg/jobs"
	"github.com/noah-isme/hr-workflow-api/pkg/logger"
	"github.com/noah-isme/hr-workflow-api/pkg/recordstore"
	"github.com/noah-isme/hr-workflow-api/pkg/storage"
)

// @title HR Workflow API
// @version 1.0.0
// @description Edit sessions and approval queue for employee record change requests.
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

	if err := run(cfg, logr); err != nil {
		logr.Fatal("server stopped", zap.Error(err))
	}
}

func run(cfg *config.Config, logr *zap.Logger) error {
	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}
	if cfg.RecordStore.BaseURL == "" {
		return errors.New("RECORD_STORE_BASE_URL is required")
	}
	if cfg.JWT.Secret == "" {
		return errors.New("JWT_SECRET is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metrics := service.NewMetricsService()
	checks := map[string]handler.Pinger{}

	var auditSvc *service.AuditService
	var auditQueue *jobs.Queue
	if cfg.Audit.Enabled {
		db, err := database.NewPostgres(cfg.Database)
		if err != nil {
			return err
		}
		defer db.Close()
		if err := database.Migrate(ctx, db, logr); err != nil {
			return err
		}
		auditRepo := repository.NewAuditRepository(db)
		checks["postgres"] = auditRepo
		auditSvc = service.NewAuditService(auditRepo, metrics, logr.Named("audit"))
		auditQueue = jobs.NewQueue("audit", auditSvc.HandleJob, jobs.QueueConfig{
			Workers:    cfg.Audit.Workers,
			MaxRetries: cfg.Audit.Retries,
			RetryDelay: 2 * time.Second,
			Logger:     logr,
		})
		auditQueue.Start(ctx)
		auditSvc.UseQueue(auditQueue)
	}

	var cacheSvc *service.CacheService
	if cfg.RecordCache.Enabled {
		rdb, err := cache.NewRedis(cfg.Redis)
		if err != nil {
			return err
		}
		defer rdb.Close()
		cacheRepo := repository.NewCacheRepository(rdb, logr)
		checks["redis"] = cacheRepo
		cacheSvc = service.NewCacheService(cacheRepo, metrics, cfg.RecordCache.TTL, logr.Named("cache"), true)
	}

	files, err := storage.NewLocalStorage(cfg.Previews.StorageDir)
	if err != nil {
		return err
	}
	// Sessions live in memory, so anything staged before a restart is orphaned.
	if purged, err := files.CleanupOlderThan(0); err != nil {
		logr.Warn("failed to purge stale previews", zap.Error(err))
	} else if len(purged) > 0 {
		logr.Info("purged stale previews", zap.Int("count", len(purged)))
	}
	previews := service.NewPreviewStore(files, storage.NewSignedURLSigner(cfg.Previews.SignedURLSecret, cfg.Previews.SignedURLTTL), cfg.APIPrefix, logr)

	client := recordstore.New(cfg.RecordStore.BaseURL,
		recordstore.WithTimeout(cfg.RecordStore.Timeout),
		recordstore.WithObserver(metrics.ObserveRecordStore),
		recordstore.WithUserAgent("hr-workflow-api"),
	)
	records := repository.NewRecordStoreRepository(client)

	sessionOpts := []service.SessionServiceOption{service.WithSessionMetrics(metrics), service.WithSessionCache(cacheSvc)}
	approvalOpts := []service.ApprovalServiceOption{service.WithApprovalMetrics(metrics), service.WithApprovalCache(cacheSvc)}
	if auditSvc != nil {
		sessionOpts = append(sessionOpts, service.WithSessionAudit(auditSvc))
		approvalOpts = append(approvalOpts, service.WithApprovalAudit(auditSvc))
	}
	sessions := service.NewSessionService(records, previews, nil, service.SessionConfig{
		IdleTTL:            cfg.Sessions.IdleTTL,
		MaxFileBytes:       cfg.Previews.MaxFileSizeBytes,
		DefaultCountryCode: cfg.Sessions.DefaultCountryCode,
	}, logr.Named("sessions"), sessionOpts...)
	approvals := service.NewApprovalService(records, logr.Named("approvals"), approvalOpts...)
	exports := service.NewExportService(approvals, logr.Named("exports"), nil, nil)

	auditHandler := handler.NewAuditHandler(nil)
	if auditSvc != nil {
		auditHandler = handler.NewAuditHandler(auditSvc)
	}

	router := newRouter(cfg, logr, routerDeps{
		tokens:   service.NewTokenService(cfg.JWT.Secret, cfg.JWT.Issuer),
		metrics:  metrics,
		sessions: handler.NewSessionHandler(sessions, cfg.Previews.MaxFileSizeBytes),
		requests: handler.NewRequestHandler(approvals, exports),
		audit:    auditHandler,
		ops:      handler.NewMetricsHandler(metrics, checks),
	})

	go sessions.Run(ctx, cfg.Sessions.SweepInterval)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	serveErr := make(chan error, 1)
	go func() {
		logr.Info("server starting", zap.String("addr", srv.Addr), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return err
		}
	case <-ctx.Done():
	}

	logr.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Warn("http shutdown", zap.Error(err))
	}
	sessions.Shutdown()
	if auditQueue != nil {
		auditQueue.Stop()
	}
	return nil
}
