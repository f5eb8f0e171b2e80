package service

import (
	"context"
	"fmt"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/hr-workflow-api/internal/dto"
	"github.com/noah-isme/hr-workflow-api/internal/models"
	appErrors "github.com/noah-isme/hr-workflow-api/pkg/errors"
	"github.com/noah-isme/hr-workflow-api/pkg/jobs"
)

const auditJobType = "audit_log"

type auditStore interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
	List(ctx context.Context, filter models.AuditFilter) ([]models.AuditLog, int, error)
}

type jobEnqueuer interface {
	Enqueue(job jobs.Job) error
}

// AuditService records workflow actions. With a queue attached, writes happen
// off the request path; otherwise they are written inline.
type AuditService struct {
	store     auditStore
	queue     jobEnqueuer
	validator *validator.Validate
	metrics   *MetricsService
	logger    *zap.Logger
}

// NewAuditService constructs the service.
func NewAuditService(store auditStore, metrics *MetricsService, logger *zap.Logger) *AuditService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuditService{store: store, validator: validator.New(), metrics: metrics, logger: logger}
}

// UseQueue routes future writes through q.
func (s *AuditService) UseQueue(q jobEnqueuer) {
	s.queue = q
}

// CreateAuditLog records log, asynchronously when a queue is attached.
func (s *AuditService) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	if s == nil || s.store == nil || log == nil {
		return nil
	}
	if s.queue != nil {
		err := s.queue.Enqueue(jobs.Job{ID: log.Action + ":" + deref(log.ResourceID), Type: auditJobType, Payload: log})
		if err == nil {
			return nil
		}
		s.logger.Warn("audit queue unavailable, writing inline", zap.Error(err))
	}
	err := s.store.CreateAuditLog(ctx, log)
	s.metrics.RecordAuditWrite(err)
	return err
}

// HandleJob is the queue handler persisting queued entries.
func (s *AuditService) HandleJob(ctx context.Context, job jobs.Job) error {
	log, ok := job.Payload.(*models.AuditLog)
	if !ok {
		s.logger.Error("unexpected audit payload", zap.String("type", fmt.Sprintf("%T", job.Payload)))
		return nil
	}
	err := s.store.CreateAuditLog(ctx, log)
	s.metrics.RecordAuditWrite(err)
	return err
}

// List returns the audit trail to HR staff.
func (s *AuditService) List(ctx context.Context, query dto.AuditQuery, actor *models.JWTClaims) ([]models.AuditLog, *models.Pagination, error) {
	if actor == nil {
		return nil, nil, appErrors.ErrUnauthorized
	}
	if actor.Role != models.RoleHR {
		return nil, nil, appErrors.ErrForbidden
	}
	if err := s.validator.Struct(query); err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid audit query")
	}
	page := query.Page
	if page <= 0 {
		page = 1
	}
	size := query.PageSize
	if size <= 0 {
		size = 50
	}
	logs, total, err := s.store.List(ctx, models.AuditFilter{
		Resource: query.Resource,
		OwnerID:  query.OwnerID,
		Action:   query.Action,
		Limit:    size,
		Offset:   (page - 1) * size,
	})
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list audit logs")
	}
	return logs, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
