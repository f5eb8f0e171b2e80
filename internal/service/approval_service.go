package service

import (
	"context"
	"fmt"
	"iter"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/hr-workflow-api/internal/dto"
	"github.com/noah-isme/hr-workflow-api/internal/models"
	appErrors "github.com/noah-isme/hr-workflow-api/pkg/errors"
)

type requestGateway interface {
	ListChangeRequests(ctx context.Context, token string, spec models.RecordKindSpec) ([]models.ChangeRequest, error)
	Decide(ctx context.Context, token string, spec models.RecordKindSpec, request models.ChangeRequest, approvalStatus, description string) error
}

type recordInvalidator interface {
	InvalidateOwner(ctx context.Context, kind models.RecordKind, ownerID string) error
}

const (
	decisionApprove = "approve"
	decisionReject  = "reject"

	defaultDecisionRetention = 24 * time.Hour
)

// ApprovalService drives the review queue. Decisions recorded here are final:
// later refreshes never move a request out of a terminal state.
type ApprovalService struct {
	gateway   requestGateway
	validator *validator.Validate
	cache     recordInvalidator
	audit     auditLogger
	metrics   *MetricsService
	logger    *zap.Logger
	now       func() time.Time
	retention time.Duration

	mu       sync.Mutex
	index    map[string]*models.ChangeRequest
	inFlight map[string]struct{}
}

// ApprovalServiceOption configures the service.
type ApprovalServiceOption func(*ApprovalService)

// WithApprovalCache invalidates cached records once a decision lands.
func WithApprovalCache(cache recordInvalidator) ApprovalServiceOption {
	return func(s *ApprovalService) { s.cache = cache }
}

// WithApprovalAudit records decisions in the audit trail.
func WithApprovalAudit(audit auditLogger) ApprovalServiceOption {
	return func(s *ApprovalService) { s.audit = audit }
}

// WithApprovalMetrics counts decisions.
func WithApprovalMetrics(metrics *MetricsService) ApprovalServiceOption {
	return func(s *ApprovalService) { s.metrics = metrics }
}

// WithApprovalClock overrides the review timestamp source.
func WithApprovalClock(now func() time.Time) ApprovalServiceOption {
	return func(s *ApprovalService) {
		if now != nil {
			s.now = now
		}
	}
}

// WithApprovalRetention sets how long a locally decided request outlives its
// disappearance from the backend queue.
func WithApprovalRetention(d time.Duration) ApprovalServiceOption {
	return func(s *ApprovalService) {
		if d > 0 {
			s.retention = d
		}
	}
}

// NewApprovalService constructs the service.
func NewApprovalService(gateway requestGateway, logger *zap.Logger, opts ...ApprovalServiceOption) *ApprovalService {
	if logger == nil {
		logger = zap.NewNop()
	}
	svc := &ApprovalService{
		gateway:   gateway,
		validator: validator.New(),
		logger:    logger,
		now:       time.Now,
		retention: defaultDecisionRetention,
		index:     make(map[string]*models.ChangeRequest),
		inFlight:  make(map[string]struct{}),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(svc)
		}
	}
	return svc
}

// ListPending returns the non-terminal requests of a kind visible to actor.
// Each iteration fetches the backend once, so ranging again yields a fresh
// queue. A fetch failure is yielded once as the only element.
func (s *ApprovalService) ListPending(ctx context.Context, kind models.RecordKind, actor *models.JWTClaims) (iter.Seq2[models.QueueEntry, error], error) {
	spec, err := s.authorize(kind, actor, false)
	if err != nil {
		return nil, err
	}
	return func(yield func(models.QueueEntry, error) bool) {
		requests, err := s.refresh(ctx, actor.Token, spec)
		if err != nil {
			yield(models.QueueEntry{}, err)
			return
		}
		for _, req := range requests {
			if req.Status.Terminal() || !inScope(actor, req) {
				continue
			}
			entry := models.QueueEntry{ChangeRequest: req, Diff: DiffRecords(req.PreviousData, req.RequestedData)}
			if !yield(entry, nil) {
				return
			}
		}
	}, nil
}

// CollectPending drains ListPending into a slice.
func (s *ApprovalService) CollectPending(ctx context.Context, kind models.RecordKind, actor *models.JWTClaims) ([]models.QueueEntry, error) {
	seq, err := s.ListPending(ctx, kind, actor)
	if err != nil {
		return nil, err
	}
	entries := make([]models.QueueEntry, 0)
	for entry, err := range seq {
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// History lists every request the actor filed for a kind, newest first.
func (s *ApprovalService) History(ctx context.Context, kind models.RecordKind, actor *models.JWTClaims) ([]models.QueueEntry, error) {
	spec, err := s.authorize(kind, actor, false)
	if err != nil {
		return nil, err
	}
	requests, err := s.refresh(ctx, actor.Token, spec)
	if err != nil {
		return nil, err
	}
	subject := actor.Subject()
	entries := make([]models.QueueEntry, 0)
	for _, req := range requests {
		if req.EmployeeID != subject {
			continue
		}
		entries = append(entries, models.QueueEntry{ChangeRequest: req, Diff: DiffRecords(req.PreviousData, req.RequestedData)})
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].RequestedDate > entries[j].RequestedDate
	})
	return entries, nil
}

// Get returns one request with its diff.
func (s *ApprovalService) Get(ctx context.Context, kind models.RecordKind, requestID string, actor *models.JWTClaims) (*models.QueueEntry, error) {
	spec, err := s.authorize(kind, actor, false)
	if err != nil {
		return nil, err
	}
	req, err := s.lookup(ctx, actor.Token, spec, requestID)
	if err != nil {
		return nil, err
	}
	if !inScope(actor, *req) {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "change request not found")
	}
	return &models.QueueEntry{ChangeRequest: *req, Diff: DiffRecords(req.PreviousData, req.RequestedData)}, nil
}

// Approve accepts a pending request.
func (s *ApprovalService) Approve(ctx context.Context, kind models.RecordKind, requestID string, actor *models.JWTClaims) (*models.ChangeRequest, error) {
	spec, err := s.authorize(kind, actor, true)
	if err != nil {
		return nil, err
	}
	return s.decide(ctx, spec, requestID, actor, decisionApprove, "")
}

// Reject declines a pending request. A reason is mandatory.
func (s *ApprovalService) Reject(ctx context.Context, kind models.RecordKind, requestID, reason string, actor *models.JWTClaims) (*models.ChangeRequest, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		s.metrics.RecordReview(string(kind), decisionReject, OutcomeValidation)
		return nil, appErrors.MissingFields([]string{"reason"})
	}
	if err := s.validator.Struct(dto.RejectRequest{Reason: reason}); err != nil {
		s.metrics.RecordReview(string(kind), decisionReject, OutcomeValidation)
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "rejection reason is too long")
	}
	spec, err := s.authorize(kind, actor, true)
	if err != nil {
		return nil, err
	}
	return s.decide(ctx, spec, requestID, actor, decisionReject, reason)
}

func (s *ApprovalService) decide(ctx context.Context, spec models.RecordKindSpec, requestID string, actor *models.JWTClaims, decision, reason string) (*models.ChangeRequest, error) {
	req, err := s.lookup(ctx, actor.Token, spec, requestID)
	if err != nil {
		return nil, err
	}
	key := indexKey(spec.Kind, requestID)

	s.mu.Lock()
	if req = s.index[key]; req == nil {
		s.mu.Unlock()
		return nil, appErrors.Clone(appErrors.ErrNotFound, "change request not found")
	}
	if req.Status != models.RequestStatusPending {
		status := req.Status
		s.mu.Unlock()
		s.metrics.RecordReview(string(spec.Kind), decision, OutcomeConflict)
		return nil, appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("change request is %s", status))
	}
	if _, busy := s.inFlight[key]; busy {
		s.mu.Unlock()
		s.metrics.RecordReview(string(spec.Kind), decision, OutcomeConflict)
		return nil, appErrors.Clone(appErrors.ErrConflict, "change request is already being decided")
	}
	s.inFlight[key] = struct{}{}
	snapshot := *req
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		delete(s.inFlight, key)
		s.mu.Unlock()
	}()

	status := spec.ApproveStatus
	next := models.RequestStatusApproved
	if decision == decisionReject {
		status = spec.RejectStatus
		next = models.RequestStatusRejected
	}

	if err := s.gateway.Decide(ctx, actor.Token, spec, snapshot, status, reason); err != nil {
		s.metrics.RecordReview(string(spec.Kind), decision, outcomeOf(err))
		s.logger.Warn("change request decision failed",
			zap.String("kind", string(spec.Kind)),
			zap.String("request_id", requestID),
			zap.String("decision", decision),
			zap.Error(err),
		)
		return nil, err
	}

	reviewedAt := s.now().UTC()
	s.mu.Lock()
	current := s.index[key]
	if current == nil {
		current = &snapshot
		s.index[key] = current
	}
	current.Status = next
	current.ReviewedBy = actor.UserID
	current.ReviewedAt = &reviewedAt
	if decision == decisionReject {
		current.RejectionReason = reason
	}
	result := *current
	s.mu.Unlock()

	s.metrics.RecordReview(string(spec.Kind), decision, OutcomeSuccess)
	s.invalidate(ctx, spec.Kind, result.EmployeeID)
	s.emitAudit(ctx, actor, result, decision)
	s.logger.Info("change request decided",
		zap.String("kind", string(spec.Kind)),
		zap.String("request_id", requestID),
		zap.String("decision", decision),
		zap.String("reviewer_id", actor.UserID),
	)
	return &result, nil
}

// refresh fetches the backend queue and merges it into the index. Entries
// already decided locally keep their terminal state. Entries the backend no
// longer returns are evicted, except in-flight ones and decisions younger than
// the retention window.
func (s *ApprovalService) refresh(ctx context.Context, token string, spec models.RecordKindSpec) ([]models.ChangeRequest, error) {
	fetched, err := s.gateway.ListChangeRequests(ctx, token, spec)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	merged := make([]models.ChangeRequest, 0, len(fetched))
	seen := make(map[string]struct{}, len(fetched))
	for _, req := range fetched {
		req.Kind = spec.Kind
		key := indexKey(spec.Kind, req.RequestID)
		seen[key] = struct{}{}
		if existing, ok := s.index[key]; ok && existing.Status.Terminal() {
			merged = append(merged, *existing)
			continue
		}
		stored := req
		s.index[key] = &stored
		merged = append(merged, req)
	}
	s.evictLocked(spec.Kind, seen)
	return merged, nil
}

// evictLocked drops index entries of kind missing from seen. Callers hold mu.
func (s *ApprovalService) evictLocked(kind models.RecordKind, seen map[string]struct{}) {
	cutoff := s.now().UTC().Add(-s.retention)
	for key, req := range s.index {
		if req.Kind != kind {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		if _, busy := s.inFlight[key]; busy {
			continue
		}
		if req.Status.Terminal() && req.ReviewedAt != nil && req.ReviewedAt.After(cutoff) {
			continue
		}
		delete(s.index, key)
	}
}

// lookup finds a request in the index, refreshing once on a miss.
func (s *ApprovalService) lookup(ctx context.Context, token string, spec models.RecordKindSpec, requestID string) (*models.ChangeRequest, error) {
	if strings.TrimSpace(requestID) == "" {
		return nil, appErrors.MissingFields([]string{"requestId"})
	}
	key := indexKey(spec.Kind, requestID)
	s.mu.Lock()
	req, ok := s.index[key]
	if ok {
		copied := *req
		s.mu.Unlock()
		return &copied, nil
	}
	s.mu.Unlock()

	if _, err := s.refresh(ctx, token, spec); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if req, ok = s.index[key]; !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "change request not found")
	}
	copied := *req
	return &copied, nil
}

func (s *ApprovalService) authorize(kind models.RecordKind, actor *models.JWTClaims, reviewer bool) (models.RecordKindSpec, error) {
	if actor == nil {
		return models.RecordKindSpec{}, appErrors.ErrUnauthorized
	}
	spec, ok := models.LookupKind(string(kind))
	if !ok {
		return models.RecordKindSpec{}, appErrors.Clone(appErrors.ErrNotFound, "unknown record kind")
	}
	if reviewer && !actor.IsReviewer() {
		return models.RecordKindSpec{}, appErrors.ErrForbidden
	}
	switch actor.Role {
	case models.RoleHR, models.RoleManager, models.RoleEmployee:
		return spec, nil
	default:
		return models.RecordKindSpec{}, appErrors.ErrForbidden
	}
}

func (s *ApprovalService) invalidate(ctx context.Context, kind models.RecordKind, ownerID string) {
	if s.cache == nil || ownerID == "" {
		return
	}
	if err := s.cache.InvalidateOwner(ctx, kind, ownerID); err != nil {
		s.logger.Warn("failed to invalidate record cache", zap.String("kind", string(kind)), zap.String("owner_id", ownerID), zap.Error(err))
	}
}

func (s *ApprovalService) emitAudit(ctx context.Context, actor *models.JWTClaims, req models.ChangeRequest, decision string) {
	if s.audit == nil {
		return
	}
	action := models.AuditActionChangeRequestApprove
	if decision == decisionReject {
		action = models.AuditActionChangeRequestReject
	}
	oldValues, _ := models.Canonical(req.PreviousData)
	newValues, _ := models.Canonical(req.RequestedData)
	requestID := req.RequestID
	owner := req.EmployeeID
	log := &models.AuditLog{
		UserID:     &actor.UserID,
		Action:     action,
		Resource:   string(req.Kind),
		ResourceID: &requestID,
		OwnerID:    &owner,
		OldValues:  oldValues,
		NewValues:  newValues,
		IPAddress:  "system",
		UserAgent:  "approval-service",
	}
	if req.RejectionReason != "" {
		reason := req.RejectionReason
		log.Note = &reason
	}
	if err := s.audit.CreateAuditLog(ctx, log); err != nil {
		s.logger.Warn("failed to persist audit log", zap.Error(err))
	}
}

// inScope hides other employees' requests from employees.
func inScope(actor *models.JWTClaims, req models.ChangeRequest) bool {
	switch actor.Role {
	case models.RoleHR, models.RoleManager:
		return true
	default:
		return req.EmployeeID == actor.Subject()
	}
}

func indexKey(kind models.RecordKind, requestID string) string {
	return string(kind) + "/" + requestID
}
