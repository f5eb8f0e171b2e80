package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/hr-workflow-api/internal/models"
	appErrors "github.com/noah-isme/hr-workflow-api/pkg/errors"
)

// CacheRepository abstracts persistence for cached payloads.
type CacheRepository interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	DeleteByPattern(ctx context.Context, pattern string) error
}

// CacheService caches approved records fetched from the Record Store.
type CacheService struct {
	repo       CacheRepository
	metrics    *MetricsService
	defaultTTL time.Duration
	logger     *zap.Logger
	enabled    bool
}

// NewCacheService constructs a cache service.
func NewCacheService(repo CacheRepository, metrics *MetricsService, defaultTTL time.Duration, logger *zap.Logger, enabled bool) *CacheService {
	if defaultTTL <= 0 {
		defaultTTL = 5 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CacheService{repo: repo, metrics: metrics, defaultTTL: defaultTTL, logger: logger, enabled: enabled}
}

// Enabled indicates whether caching is active.
func (s *CacheService) Enabled() bool {
	return s != nil && s.enabled && s.repo != nil
}

// RecordKey is the cache key of one record.
func RecordKey(kind models.RecordKind, ownerID, recordID string) string {
	if recordID == "" {
		recordID = "-"
	}
	return fmt.Sprintf("record:%s:%s:%s", kind, ownerID, recordID)
}

// OwnerPattern matches every cached record of a kind for one owner.
func OwnerPattern(kind models.RecordKind, ownerID string) string {
	return fmt.Sprintf("record:%s:%s:*", kind, ownerID)
}

// GetRecord returns a cached record. Cache failures count as misses.
func (s *CacheService) GetRecord(ctx context.Context, kind models.RecordKind, ownerID, recordID string) (*models.Record, bool) {
	if !s.Enabled() {
		return nil, false
	}
	key := RecordKey(kind, ownerID, recordID)
	var record models.Record
	start := time.Now()
	err := s.repo.Get(ctx, key, &record)
	s.metrics.RecordCacheOperation(err == nil, time.Since(start))
	if err != nil {
		if !errors.Is(err, appErrors.ErrCacheMiss) {
			s.logger.Warn("cache get failed", zap.String("key", key), zap.Error(err))
		}
		return nil, false
	}
	return &record, true
}

// PutRecord stores a record under its key.
func (s *CacheService) PutRecord(ctx context.Context, record models.Record) {
	if !s.Enabled() {
		return
	}
	key := RecordKey(record.Kind, record.OwnerID, record.RecordID)
	start := time.Now()
	err := s.repo.Set(ctx, key, record, s.defaultTTL)
	s.metrics.ObserveCacheWrite(time.Since(start))
	if err != nil {
		s.logger.Warn("cache set failed", zap.String("key", key), zap.Error(err))
	}
}

// InvalidateOwner drops every cached record of a kind for one owner.
func (s *CacheService) InvalidateOwner(ctx context.Context, kind models.RecordKind, ownerID string) error {
	if !s.Enabled() {
		return nil
	}
	pattern := OwnerPattern(kind, ownerID)
	if err := s.repo.DeleteByPattern(ctx, pattern); err != nil {
		s.logger.Warn("cache invalidate failed", zap.String("pattern", pattern), zap.Error(err))
		return err
	}
	return nil
}
