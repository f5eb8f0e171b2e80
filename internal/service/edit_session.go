package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/noah-isme/hr-workflow-api/internal/models"
	appErrors "github.com/noah-isme/hr-workflow-api/pkg/errors"
)

type previewManager interface {
	Stage(sessionID string, upload FileUpload, contentType string, limit int64) (models.PendingFile, error)
	Open(file models.PendingFile) (io.ReadCloser, error)
	Verify(sessionID, field, token string) error
	Release(file models.PendingFile)
	ReleaseSession(sessionID string)
}

type changeSubmitter interface {
	SubmitChange(ctx context.Context, sub models.ChangeSubmission) (json.RawMessage, error)
}

// EditSession holds the draft and original of one record. It is not safe for
// concurrent use; SessionService serialises access per session.
type EditSession struct {
	id       string
	ownerID  string
	recordID string
	spec     models.RecordKindSpec

	mode        models.SessionMode
	original    models.Fields
	draft       models.Fields
	attachments map[string]models.Attachment
	pending     map[string]models.PendingFile
	lastSubmit  *models.SubmitReceipt

	previews     previewManager
	maxFileBytes int64

	createdAt    time.Time
	lastActivity time.Time
	now          func() time.Time
}

// NewEditSession creates a session in viewing mode with no record loaded.
func NewEditSession(id string, spec models.RecordKindSpec, ownerID string, previews previewManager, maxFileBytes int64) *EditSession {
	now := time.Now().UTC()
	return &EditSession{
		id:           id,
		ownerID:      ownerID,
		spec:         spec,
		mode:         models.SessionModeViewing,
		original:     models.Fields{},
		draft:        models.Fields{},
		pending:      map[string]models.PendingFile{},
		previews:     previews,
		maxFileBytes: maxFileBytes,
		createdAt:    now,
		lastActivity: now,
		now:          time.Now,
	}
}

func (s *EditSession) ID() string { return s.id }

func (s *EditSession) Mode() models.SessionMode { return s.mode }

func (s *EditSession) LastActivity() time.Time { return s.lastActivity }

// BeginEdit snapshots record as both original and draft.
func (s *EditSession) BeginEdit(record models.Record) error {
	if err := s.requireMode(models.SessionModeViewing); err != nil {
		return err
	}
	if record.Kind != "" && record.Kind != s.spec.Kind {
		return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("record kind %s does not match session kind %s", record.Kind, s.spec.Kind))
	}
	snapshot := record.Clone()
	s.original = snapshot.Data
	s.draft = snapshot.Data.Clone()
	s.attachments = snapshot.Attachments
	if record.RecordID != "" {
		s.recordID = record.RecordID
	}
	s.mode = models.SessionModeEditing
	s.touch()
	return nil
}

// SetField assigns one draft value. No validation is performed on the value.
func (s *EditSession) SetField(path string, value any) error {
	return s.SetFields(map[string]any{path: value})
}

// SetFields assigns several draft values; either all paths are applied or none.
func (s *EditSession) SetFields(values map[string]any) error {
	if err := s.requireMode(models.SessionModeEditing); err != nil {
		return err
	}
	paths := make([]string, 0, len(values))
	for path := range values {
		if !ValidFieldPath(path) {
			return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("invalid field path %q", path))
		}
		paths = append(paths, path)
	}
	sort.Strings(paths)
	for _, path := range paths {
		s.draft.Set(path, models.CloneValue(values[path]))
	}
	s.touch()
	return nil
}

// AttachFile validates and stages a file for the field, replacing any
// previous file for the same field. Nothing changes when validation fails.
func (s *EditSession) AttachFile(upload FileUpload) (models.PendingFile, error) {
	if err := s.requireMode(models.SessionModeEditing); err != nil {
		return models.PendingFile{}, err
	}
	rule, ok := s.spec.FileRule(upload.Field, s.maxFileBytes)
	if !ok {
		return models.PendingFile{}, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("%s does not accept files on %s records", upload.Field, s.spec.Kind))
	}
	if upload.Content == nil || upload.Size <= 0 {
		return models.PendingFile{}, appErrors.Clone(appErrors.ErrValidation, "file is required")
	}
	if upload.Size > rule.MaxBytes {
		return models.PendingFile{}, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("file exceeds %d bytes limit", rule.MaxBytes))
	}
	contentType, err := uploadContentType(upload)
	if err != nil {
		return models.PendingFile{}, err
	}
	if !rule.Allows(contentType) {
		return models.PendingFile{}, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("file type %s not allowed for %s", contentType, upload.Field))
	}

	staged, err := s.previews.Stage(s.id, upload, contentType, rule.MaxBytes)
	if err != nil {
		return models.PendingFile{}, err
	}
	if prior, ok := s.pending[upload.Field]; ok {
		s.previews.Release(prior)
	}
	s.pending[upload.Field] = staged
	s.touch()
	return staged, nil
}

// CancelEdit discards the draft and every pending file.
func (s *EditSession) CancelEdit() error {
	if err := s.requireMode(models.SessionModeEditing); err != nil {
		return err
	}
	s.draft = s.original.Clone()
	s.releasePending()
	s.mode = models.SessionModeViewing
	s.touch()
	return nil
}

// HasChanges reports whether the draft differs from the original or files are
// pending. Reordering an array is not a change.
func (s *EditSession) HasChanges() bool {
	return len(s.pending) > 0 || FieldsDiffer(s.original, s.draft)
}

// MissingRequired lists blank required fields in declaration order.
func (s *EditSession) MissingRequired() []string {
	missing := make([]string, 0)
	for _, field := range s.spec.RequiredFields {
		v, _ := s.draft.Get(field)
		if models.IsBlank(v) {
			missing = append(missing, field)
		}
	}
	return missing
}

// Submit files the draft as a change request. Validation happens before any
// I/O; on transport failure the session is left exactly as it was.
func (s *EditSession) Submit(ctx context.Context, token string, gateway changeSubmitter, defaultCountryCode string) (*models.SubmitReceipt, error) {
	if err := s.requireMode(models.SessionModeEditing); err != nil {
		return nil, err
	}
	if missing := s.MissingRequired(); len(missing) > 0 {
		return nil, appErrors.MissingFields(missing)
	}
	if !s.HasChanges() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "no changes to submit")
	}

	files, closeAll, err := s.openPending()
	if err != nil {
		return nil, err
	}
	defer closeAll()

	raw, err := gateway.SubmitChange(ctx, models.ChangeSubmission{
		Spec:     s.spec,
		OwnerID:  s.ownerID,
		RecordID: s.recordID,
		Token:    token,
		Data:     decomposePhones(s.draft.Clone(), s.spec.PhoneFields, defaultCountryCode),
		Files:    files,
	})
	if err != nil {
		if appErrors.HasCode(err, appErrors.ErrIntegration.Code) {
			return nil, err
		}
		return nil, appErrors.Integration(err, "")
	}

	s.original = s.draft.Clone()
	s.releasePending()
	s.mode = models.SessionModeViewing
	s.lastSubmit = &models.SubmitReceipt{SubmittedAt: s.now().UTC(), Response: raw}
	s.touch()
	return s.lastSubmit, nil
}

// OpenPreview returns a pending file when token is the one issued for its current preview.
func (s *EditSession) OpenPreview(field, token string) (models.PendingFile, io.ReadCloser, error) {
	file, ok := s.pending[field]
	if !ok || file.PreviewToken != token {
		return models.PendingFile{}, nil, appErrors.Clone(appErrors.ErrNotFound, "preview not found")
	}
	rc, err := s.previews.Open(file)
	if err != nil {
		return models.PendingFile{}, nil, appErrors.Clone(appErrors.ErrNotFound, "preview not found")
	}
	return file, rc, nil
}

// Close releases every staged file of the session.
func (s *EditSession) Close() {
	s.pending = map[string]models.PendingFile{}
	s.previews.ReleaseSession(s.id)
}

// View renders the session state. Maps are copied so callers cannot mutate the session.
func (s *EditSession) View() models.SessionView {
	view := models.SessionView{
		ID:           s.id,
		OwnerID:      s.ownerID,
		Kind:         s.spec.Kind,
		RecordID:     s.recordID,
		Mode:         s.mode,
		Original:     s.original.Clone(),
		Draft:        s.draft.Clone(),
		Attachments:  s.attachments,
		PendingFiles: s.pendingList(),
		HasChanges:   s.HasChanges(),
		LastSubmit:   s.lastSubmit,
		CreatedAt:    s.createdAt,
		LastActivity: s.lastActivity,
	}
	if s.mode == models.SessionModeEditing {
		view.Diff = DiffRecords(s.original, s.draft)
	}
	return view
}

func (s *EditSession) pendingList() []models.PendingFile {
	out := make([]models.PendingFile, 0, len(s.pending))
	for _, f := range s.pending {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Field < out[j].Field })
	return out
}

func (s *EditSession) openPending() ([]models.SubmissionFile, func(), error) {
	pending := s.pendingList()
	files := make([]models.SubmissionFile, 0, len(pending))
	closers := make([]io.Closer, 0, len(pending))
	closeAll := func() {
		for _, c := range closers {
			_ = c.Close()
		}
	}
	for _, f := range pending {
		rc, err := s.previews.Open(f)
		if err != nil {
			closeAll()
			return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, fmt.Sprintf("staged file for %s is unavailable", f.Field))
		}
		closers = append(closers, rc)
		files = append(files, models.SubmissionFile{Part: f.Field, Filename: f.Filename, ContentType: f.ContentType, Body: rc})
	}
	return files, closeAll, nil
}

func (s *EditSession) releasePending() {
	for field, f := range s.pending {
		s.previews.Release(f)
		delete(s.pending, field)
	}
}

func (s *EditSession) requireMode(mode models.SessionMode) error {
	if s.mode == mode {
		return nil
	}
	return appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("session is %s", s.mode))
}

func (s *EditSession) touch() {
	s.lastActivity = s.now().UTC()
}

// ValidFieldPath reports whether path is a dotted path of non-empty segments.
func ValidFieldPath(path string) bool {
	if path == "" || len(path) > 256 {
		return false
	}
	for _, segment := range strings.Split(path, ".") {
		if strings.TrimSpace(segment) == "" {
			return false
		}
	}
	return true
}

// uploadContentType trusts the declared type unless it is missing or generic,
// in which case the leading bytes are sniffed.
func uploadContentType(upload FileUpload) (string, error) {
	declared := strings.ToLower(strings.TrimSpace(upload.ContentType))
	if declared != "" && declared != "application/octet-stream" {
		return declared, nil
	}
	header := make([]byte, 512)
	n, err := upload.Content.Read(header)
	if err != nil && err != io.EOF {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to inspect file")
	}
	if _, err := upload.Content.Seek(0, io.SeekStart); err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reset upload stream")
	}
	if n == 0 {
		return "", appErrors.Clone(appErrors.ErrValidation, "empty file")
	}
	return http.DetectContentType(header[:n]), nil
}
