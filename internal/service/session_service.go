package service

import (
	"context"
	"encoding/json"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/hr-workflow-api/internal/dto"
	"github.com/noah-isme/hr-workflow-api/internal/models"
	appErrors "github.com/noah-isme/hr-workflow-api/pkg/errors"
)

type recordGateway interface {
	FetchRecord(ctx context.Context, token string, spec models.RecordKindSpec, ownerID, recordID string) (*models.Record, error)
	SubmitChange(ctx context.Context, sub models.ChangeSubmission) (json.RawMessage, error)
}

type auditLogger interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// SessionConfig tunes the session registry.
type SessionConfig struct {
	IdleTTL            time.Duration
	MaxFileBytes       int64
	DefaultCountryCode string
}

type sessionEntry struct {
	mu      sync.Mutex
	userID  string
	session *EditSession
	closed  bool
}

// SessionService keeps one edit session per open editor. Calls on a session
// are serialised; distinct sessions proceed independently.
type SessionService struct {
	gateway   recordGateway
	previews  previewManager
	cache     *CacheService
	audit     auditLogger
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	cfg       SessionConfig
	now       func() time.Time

	mu       sync.Mutex
	sessions map[string]*sessionEntry
}

// SessionServiceOption configures the service.
type SessionServiceOption func(*SessionService)

// WithSessionCache serves record fetches from the record cache when possible.
func WithSessionCache(cache *CacheService) SessionServiceOption {
	return func(s *SessionService) { s.cache = cache }
}

// WithSessionAudit records submissions in the audit trail.
func WithSessionAudit(audit auditLogger) SessionServiceOption {
	return func(s *SessionService) { s.audit = audit }
}

// WithSessionMetrics counts submissions and tracks registry size.
func WithSessionMetrics(metrics *MetricsService) SessionServiceOption {
	return func(s *SessionService) { s.metrics = metrics }
}

// WithSessionClock overrides the clock used for idle sweeping.
func WithSessionClock(now func() time.Time) SessionServiceOption {
	return func(s *SessionService) {
		if now != nil {
			s.now = now
		}
	}
}

// NewSessionService constructs the service.
func NewSessionService(gateway recordGateway, previews previewManager, validate *validator.Validate, cfg SessionConfig, logger *zap.Logger, opts ...SessionServiceOption) *SessionService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.IdleTTL <= 0 {
		cfg.IdleTTL = 2 * time.Hour
	}
	if cfg.MaxFileBytes <= 0 {
		cfg.MaxFileBytes = models.DefaultMaxFileBytes
	}
	if cfg.DefaultCountryCode == "" {
		cfg.DefaultCountryCode = "+91"
	}
	svc := &SessionService{
		gateway:   gateway,
		previews:  previews,
		validator: validate,
		logger:    logger,
		cfg:       cfg,
		now:       time.Now,
		sessions:  make(map[string]*sessionEntry),
	}
	svc.validator.RegisterValidation("record_kind", func(fl validator.FieldLevel) bool {
		_, ok := models.LookupKind(fl.Field().String())
		return ok
	})
	svc.validator.RegisterValidation("field_path", func(fl validator.FieldLevel) bool {
		return ValidFieldPath(fl.Field().String())
	})
	for _, opt := range opts {
		if opt != nil {
			opt(svc)
		}
	}
	return svc
}

// Open loads the record and returns a new session already in editing mode.
func (s *SessionService) Open(ctx context.Context, req dto.OpenSessionRequest, actor *models.JWTClaims) (*models.SessionView, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid session payload")
	}
	spec, ok := models.LookupKind(string(req.Kind))
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown record kind")
	}
	ownerID := req.OwnerID
	if ownerID == "" {
		ownerID = actor.Subject()
	}
	if err := authorizeEditor(actor, ownerID); err != nil {
		return nil, err
	}

	record, err := s.loadRecord(ctx, actor.Token, spec, ownerID, req.RecordID)
	if err != nil {
		return nil, err
	}
	session := NewEditSession(uuid.NewString(), spec, ownerID, s.previews, s.cfg.MaxFileBytes)
	session.now = s.now
	if err := session.BeginEdit(*record); err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.sessions[session.ID()] = &sessionEntry{userID: actor.UserID, session: session}
	active := len(s.sessions)
	s.mu.Unlock()
	s.metrics.SetActiveSessions(active)

	s.logger.Info("edit session opened",
		zap.String("session_id", session.ID()),
		zap.String("kind", string(spec.Kind)),
		zap.String("owner_id", ownerID),
		zap.String("user_id", actor.UserID),
	)
	view := session.View()
	return &view, nil
}

// Get returns the current session state.
func (s *SessionService) Get(ctx context.Context, id string, actor *models.JWTClaims) (*models.SessionView, error) {
	var view models.SessionView
	err := s.withSession(id, actor, func(session *EditSession) error {
		view = session.View()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &view, nil
}

// BeginEdit re-enters editing mode with a freshly loaded record.
func (s *SessionService) BeginEdit(ctx context.Context, id string, actor *models.JWTClaims) (*models.SessionView, error) {
	var view models.SessionView
	err := s.withSession(id, actor, func(session *EditSession) error {
		if session.Mode() != models.SessionModeViewing {
			return appErrors.Clone(appErrors.ErrConflict, "session is editing")
		}
		record, err := s.loadRecord(ctx, actor.Token, session.spec, session.ownerID, session.recordID)
		if err != nil {
			return err
		}
		if err := session.BeginEdit(*record); err != nil {
			return err
		}
		view = session.View()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &view, nil
}

// SetFields writes draft values.
func (s *SessionService) SetFields(ctx context.Context, id string, req dto.SetFieldsRequest, actor *models.JWTClaims) (*models.SessionView, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid fields payload")
	}
	var view models.SessionView
	err := s.withSession(id, actor, func(session *EditSession) error {
		if err := session.SetFields(req.Fields); err != nil {
			return err
		}
		view = session.View()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &view, nil
}

// AttachFile stages a file for a field of the session's record.
func (s *SessionService) AttachFile(ctx context.Context, id string, upload FileUpload, actor *models.JWTClaims) (*models.PendingFile, error) {
	var staged models.PendingFile
	err := s.withSession(id, actor, func(session *EditSession) error {
		file, err := session.AttachFile(upload)
		if err != nil {
			return err
		}
		staged = file
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &staged, nil
}

// Preview opens a staged file. The signed token stands in for the bearer token
// so previews can be embedded directly.
func (s *SessionService) Preview(ctx context.Context, id, field, token string) (*models.PendingFile, io.ReadCloser, error) {
	if err := s.previews.Verify(id, field, token); err != nil {
		return nil, nil, err
	}
	entry := s.lookup(id)
	if entry == nil {
		return nil, nil, appErrors.Clone(appErrors.ErrNotFound, "preview not found")
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()
	if entry.closed {
		return nil, nil, appErrors.Clone(appErrors.ErrNotFound, "preview not found")
	}
	file, rc, err := entry.session.OpenPreview(field, token)
	if err != nil {
		return nil, nil, err
	}
	return &file, rc, nil
}

// Cancel discards the draft.
func (s *SessionService) Cancel(ctx context.Context, id string, actor *models.JWTClaims) (*models.SessionView, error) {
	var view models.SessionView
	err := s.withSession(id, actor, func(session *EditSession) error {
		if err := session.CancelEdit(); err != nil {
			return err
		}
		view = session.View()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &view, nil
}

// Submit files the session's draft as a change request.
func (s *SessionService) Submit(ctx context.Context, id string, actor *models.JWTClaims) (*models.SessionView, error) {
	var view models.SessionView
	err := s.withSession(id, actor, func(session *EditSession) error {
		previous := session.original.Clone()
		_, err := session.Submit(ctx, actor.Token, s.gateway, s.cfg.DefaultCountryCode)
		s.metrics.RecordSubmission(string(session.spec.Kind), outcomeOf(err))
		if err != nil {
			s.logger.Warn("change request submission failed",
				zap.String("session_id", id),
				zap.String("kind", string(session.spec.Kind)),
				zap.Error(err),
			)
			return err
		}
		view = session.View()
		s.emitAudit(ctx, actor, session, previous)
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("change request submitted", zap.String("session_id", id), zap.String("kind", string(view.Kind)), zap.String("owner_id", view.OwnerID))
	return &view, nil
}

// Close ends a session and releases its staged files.
func (s *SessionService) Close(ctx context.Context, id string, actor *models.JWTClaims) error {
	entry, err := s.acquire(id, actor)
	if err != nil {
		return err
	}
	defer entry.mu.Unlock()
	s.remove(id, entry)
	return nil
}

// Sweep closes sessions idle for longer than the configured TTL. Sessions
// busy with a call are skipped and picked up by a later sweep.
func (s *SessionService) Sweep() int {
	cutoff := s.now().UTC().Add(-s.cfg.IdleTTL)

	s.mu.Lock()
	candidates := make(map[string]*sessionEntry)
	for id, entry := range s.sessions {
		candidates[id] = entry
	}
	s.mu.Unlock()

	swept := 0
	for id, entry := range candidates {
		if !entry.mu.TryLock() {
			continue
		}
		if !entry.closed && entry.session.LastActivity().Before(cutoff) {
			s.remove(id, entry)
			swept++
		}
		entry.mu.Unlock()
	}
	if swept > 0 {
		s.logger.Info("idle edit sessions swept", zap.Int("count", swept))
	}
	return swept
}

// Run sweeps idle sessions every interval until ctx is done.
func (s *SessionService) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep()
		}
	}
}

// Shutdown closes every session.
func (s *SessionService) Shutdown() {
	s.mu.Lock()
	ids := make([]string, 0, len(s.sessions))
	for id := range s.sessions {
		ids = append(ids, id)
	}
	s.mu.Unlock()
	sort.Strings(ids)
	for _, id := range ids {
		if entry := s.lookup(id); entry != nil {
			entry.mu.Lock()
			s.remove(id, entry)
			entry.mu.Unlock()
		}
	}
}

// Active reports how many sessions are open.
func (s *SessionService) Active() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

func (s *SessionService) withSession(id string, actor *models.JWTClaims, fn func(*EditSession) error) error {
	entry, err := s.acquire(id, actor)
	if err != nil {
		return err
	}
	defer entry.mu.Unlock()
	return fn(entry.session)
}

// acquire returns the entry locked. Sessions of other users read as not found.
func (s *SessionService) acquire(id string, actor *models.JWTClaims) (*sessionEntry, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	entry := s.lookup(id)
	if entry == nil || entry.userID != actor.UserID {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "session not found")
	}
	entry.mu.Lock()
	if entry.closed {
		entry.mu.Unlock()
		return nil, appErrors.Clone(appErrors.ErrNotFound, "session not found")
	}
	return entry, nil
}

func (s *SessionService) lookup(id string) *sessionEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessions[id]
}

// remove must be called with entry.mu held.
func (s *SessionService) remove(id string, entry *sessionEntry) {
	entry.closed = true
	entry.session.Close()
	s.mu.Lock()
	delete(s.sessions, id)
	active := len(s.sessions)
	s.mu.Unlock()
	s.metrics.SetActiveSessions(active)
}

func (s *SessionService) loadRecord(ctx context.Context, token string, spec models.RecordKindSpec, ownerID, recordID string) (*models.Record, error) {
	if record, ok := s.cache.GetRecord(ctx, spec.Kind, ownerID, recordID); ok {
		return record, nil
	}
	record, err := s.gateway.FetchRecord(ctx, token, spec, ownerID, recordID)
	if err != nil {
		return nil, err
	}
	s.cache.PutRecord(ctx, *record)
	return record, nil
}

func (s *SessionService) emitAudit(ctx context.Context, actor *models.JWTClaims, session *EditSession, previous models.Fields) {
	if s.audit == nil {
		return
	}
	oldValues, _ := models.Canonical(previous)
	newValues, _ := models.Canonical(session.original)
	kind := string(session.spec.Kind)
	owner := session.ownerID
	log := &models.AuditLog{
		UserID:    &actor.UserID,
		Action:    models.AuditActionChangeRequestSubmit,
		Resource:  kind,
		OwnerID:   &owner,
		OldValues: oldValues,
		NewValues: newValues,
		IPAddress: "system",
		UserAgent: "session-service",
	}
	if session.recordID != "" {
		recordID := session.recordID
		log.ResourceID = &recordID
	}
	if err := s.audit.CreateAuditLog(ctx, log); err != nil {
		s.logger.Warn("failed to persist audit log", zap.Error(err))
	}
}

// authorizeEditor lets reviewers edit any record and employees only their own.
func authorizeEditor(actor *models.JWTClaims, ownerID string) error {
	switch actor.Role {
	case models.RoleHR, models.RoleManager:
		return nil
	case models.RoleEmployee:
		if ownerID == actor.Subject() {
			return nil
		}
	}
	return appErrors.ErrForbidden
}
