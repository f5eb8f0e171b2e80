package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/noah-isme/hr-workflow-api/internal/models"
	appErrors "github.com/noah-isme/hr-workflow-api/pkg/errors"
)

type stubPreviews struct {
	mu       sync.Mutex
	seq      int
	staged   map[string][]byte
	released []string
	sessions []string
	stageErr error
}

func newStubPreviews() *stubPreviews {
	return &stubPreviews{staged: map[string][]byte{}}
}

func (p *stubPreviews) Stage(sessionID string, upload FileUpload, contentType string, limit int64) (models.PendingFile, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stageErr != nil {
		return models.PendingFile{}, p.stageErr
	}
	body, err := io.ReadAll(upload.Content)
	if err != nil {
		return models.PendingFile{}, err
	}
	p.seq++
	path := fmt.Sprintf("%s/%s/%d", sessionID, upload.Field, p.seq)
	p.staged[path] = body
	return models.PendingFile{
		Field:        upload.Field,
		Filename:     upload.Filename,
		ContentType:  contentType,
		Size:         int64(len(body)),
		StoragePath:  path,
		PreviewToken: fmt.Sprintf("token-%d", p.seq),
	}, nil
}

func (p *stubPreviews) Open(file models.PendingFile) (io.ReadCloser, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	body, ok := p.staged[file.StoragePath]
	if !ok {
		return nil, errors.New("missing")
	}
	return io.NopCloser(bytes.NewReader(body)), nil
}

func (p *stubPreviews) Verify(sessionID, field, token string) error {
	if token == "" {
		return appErrors.ErrForbidden
	}
	return nil
}

func (p *stubPreviews) Release(file models.PendingFile) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.staged, file.StoragePath)
	p.released = append(p.released, file.StoragePath)
}

func (p *stubPreviews) ReleaseSession(sessionID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sessions = append(p.sessions, sessionID)
}

type stubRecordGateway struct {
	mu          sync.Mutex
	record      *models.Record
	fetchErr    error
	submitErr   error
	fetchCalls  int
	submissions []models.ChangeSubmission
	parts       map[string][]byte
}

func (g *stubRecordGateway) FetchRecord(ctx context.Context, token string, spec models.RecordKindSpec, ownerID, recordID string) (*models.Record, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.fetchCalls++
	if g.fetchErr != nil {
		return nil, g.fetchErr
	}
	record := g.record.Clone()
	record.OwnerID = ownerID
	record.Kind = spec.Kind
	return &record, nil
}

func (g *stubRecordGateway) SubmitChange(ctx context.Context, sub models.ChangeSubmission) (json.RawMessage, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.submissions = append(g.submissions, sub)
	if g.submitErr != nil {
		return nil, g.submitErr
	}
	g.parts = map[string][]byte{}
	for _, f := range sub.Files {
		body, _ := io.ReadAll(f.Body)
		g.parts[f.Part] = body
	}
	return json.RawMessage(`{"requestId":"77"}`), nil
}

type stubAuditLogger struct {
	mu   sync.Mutex
	logs []*models.AuditLog
}

func (a *stubAuditLogger) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.logs = append(a.logs, log)
	return nil
}

type decideCall struct {
	RequestID   string
	Status      string
	Description string
}

type stubRequestGateway struct {
	mu        sync.Mutex
	requests  []models.ChangeRequest
	listErr   error
	decideErr error
	listCalls int
	decisions []decideCall
	block     chan struct{}
}

func (g *stubRequestGateway) ListChangeRequests(ctx context.Context, token string, spec models.RecordKindSpec) ([]models.ChangeRequest, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.listCalls++
	if g.listErr != nil {
		return nil, g.listErr
	}
	out := make([]models.ChangeRequest, len(g.requests))
	copy(out, g.requests)
	return out, nil
}

func (g *stubRequestGateway) Decide(ctx context.Context, token string, spec models.RecordKindSpec, request models.ChangeRequest, approvalStatus, description string) error {
	if g.block != nil {
		<-g.block
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.decisions = append(g.decisions, decideCall{RequestID: request.RequestID, Status: approvalStatus, Description: description})
	return g.decideErr
}

type stubInvalidator struct {
	calls []string
}

func (s *stubInvalidator) InvalidateOwner(ctx context.Context, kind models.RecordKind, ownerID string) error {
	s.calls = append(s.calls, string(kind)+":"+ownerID)
	return nil
}

func bankRecord() *models.Record {
	return &models.Record{
		Kind: models.KindBankDetail,
		Data: models.Fields{
			"accountHolderName": "Asha Rao",
			"accountNumber":     "000111222",
			"ifscCode":          "HDFC0001",
			"bankName":          "HDFC",
			"branchName":        "Indiranagar",
		},
	}
}

func pdfUpload(field string, size int) FileUpload {
	body := append([]byte("%PDF-1.4\n"), bytes.Repeat([]byte("x"), max(size-9, 0))...)
	return FileUpload{Field: field, Filename: field + ".pdf", ContentType: "application/pdf", Size: int64(len(body)), Content: bytes.NewReader(body)}
}

func employee(id string) *models.JWTClaims {
	return &models.JWTClaims{UserID: "u-" + id, EmployeeID: id, Role: models.RoleEmployee, Token: "tok-" + id}
}

func reviewer(role models.UserRole) *models.JWTClaims {
	return &models.JWTClaims{UserID: "u-rev", EmployeeID: "E-REV", Role: role, Token: "tok-rev"}
}
