package service

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/hr-workflow-api/internal/dto"
	"github.com/noah-isme/hr-workflow-api/internal/models"
	appErrors "github.com/noah-isme/hr-workflow-api/pkg/errors"
)

type sessionFixture struct {
	svc      *SessionService
	gateway  *stubRecordGateway
	previews *stubPreviews
	audit    *stubAuditLogger
	clock    *time.Time
}

func newSessionFixture(t *testing.T) *sessionFixture {
	t.Helper()
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	f := &sessionFixture{
		gateway:  &stubRecordGateway{record: bankRecord()},
		previews: newStubPreviews(),
		audit:    &stubAuditLogger{},
		clock:    &now,
	}
	f.svc = NewSessionService(f.gateway, f.previews, nil, SessionConfig{IdleTTL: time.Hour}, zap.NewNop(),
		WithSessionAudit(f.audit),
		WithSessionClock(func() time.Time { return *f.clock }),
	)
	return f
}

func TestSessionServiceOpenDefaultsOwnerToActor(t *testing.T) {
	f := newSessionFixture(t)
	view, err := f.svc.Open(context.Background(), dto.OpenSessionRequest{Kind: models.KindBankDetail}, employee("E1"))
	require.NoError(t, err)

	assert.Equal(t, "E1", view.OwnerID)
	assert.Equal(t, models.SessionModeEditing, view.Mode)
	assert.Equal(t, "HDFC", view.Draft["bankName"])
	assert.Equal(t, 1, f.svc.Active())
}

func TestSessionServiceOpenAuthorization(t *testing.T) {
	f := newSessionFixture(t)
	ctx := context.Background()

	_, err := f.svc.Open(ctx, dto.OpenSessionRequest{Kind: models.KindBankDetail, OwnerID: "E2"}, employee("E1"))
	assert.ErrorIs(t, err, appErrors.ErrForbidden)

	_, err = f.svc.Open(ctx, dto.OpenSessionRequest{Kind: models.KindBankDetail}, reviewer(models.RoleRecruiter))
	assert.ErrorIs(t, err, appErrors.ErrForbidden)

	_, err = f.svc.Open(ctx, dto.OpenSessionRequest{Kind: models.KindBankDetail, OwnerID: "E2"}, reviewer(models.RoleHR))
	require.NoError(t, err)

	_, err = f.svc.Open(ctx, dto.OpenSessionRequest{Kind: "payroll"}, employee("E1"))
	assert.True(t, appErrors.HasCode(err, appErrors.ErrValidation.Code))
	assert.Equal(t, 1, f.gateway.fetchCalls)
}

func TestSessionServiceHidesOtherUsersSessions(t *testing.T) {
	f := newSessionFixture(t)
	view, err := f.svc.Open(context.Background(), dto.OpenSessionRequest{Kind: models.KindBankDetail}, employee("E1"))
	require.NoError(t, err)

	_, err = f.svc.Get(context.Background(), view.ID, employee("E2"))
	assert.True(t, appErrors.HasCode(err, appErrors.ErrNotFound.Code))
}

func TestSessionServiceSubmitFlow(t *testing.T) {
	f := newSessionFixture(t)
	ctx := context.Background()
	actor := employee("E1")
	view, err := f.svc.Open(ctx, dto.OpenSessionRequest{Kind: models.KindBankDetail}, actor)
	require.NoError(t, err)

	_, err = f.svc.SetFields(ctx, view.ID, dto.SetFieldsRequest{Fields: map[string]any{"bankName": "ICICI"}}, actor)
	require.NoError(t, err)
	_, err = f.svc.AttachFile(ctx, view.ID, pdfUpload("chequeLeaf", 512), actor)
	require.NoError(t, err)

	submitted, err := f.svc.Submit(ctx, view.ID, actor)
	require.NoError(t, err)
	assert.Equal(t, models.SessionModeViewing, submitted.Mode)
	require.Len(t, f.gateway.submissions, 1)

	require.Len(t, f.audit.logs, 1)
	log := f.audit.logs[0]
	assert.Equal(t, models.AuditActionChangeRequestSubmit, log.Action)
	assert.Equal(t, "bank-detail", log.Resource)
	assert.Equal(t, "E1", *log.OwnerID)
	assert.JSONEq(t, `{"accountHolderName":"Asha Rao","accountNumber":"000111222","ifscCode":"HDFC0001","bankName":"HDFC","branchName":"Indiranagar"}`, string(log.OldValues))

	reopened, err := f.svc.BeginEdit(ctx, view.ID, actor)
	require.NoError(t, err)
	assert.Equal(t, models.SessionModeEditing, reopened.Mode)
	assert.Equal(t, 2, f.gateway.fetchCalls)
}

func TestSessionServiceSetFieldsValidatesPayload(t *testing.T) {
	f := newSessionFixture(t)
	actor := employee("E1")
	view, err := f.svc.Open(context.Background(), dto.OpenSessionRequest{Kind: models.KindBankDetail}, actor)
	require.NoError(t, err)

	_, err = f.svc.SetFields(context.Background(), view.ID, dto.SetFieldsRequest{}, actor)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrValidation.Code))
	_, err = f.svc.SetFields(context.Background(), view.ID, dto.SetFieldsRequest{Fields: map[string]any{".bad": 1}}, actor)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrValidation.Code))
}

func TestSessionServicePreviewRequiresCurrentToken(t *testing.T) {
	f := newSessionFixture(t)
	actor := employee("E1")
	view, err := f.svc.Open(context.Background(), dto.OpenSessionRequest{Kind: models.KindBankDetail}, actor)
	require.NoError(t, err)
	staged, err := f.svc.AttachFile(context.Background(), view.ID, pdfUpload("chequeLeaf", 256), actor)
	require.NoError(t, err)

	file, rc, err := f.svc.Preview(context.Background(), view.ID, "chequeLeaf", staged.PreviewToken)
	require.NoError(t, err)
	body, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.NoError(t, rc.Close())
	assert.Len(t, body, 256)
	assert.Equal(t, "application/pdf", file.ContentType)

	_, _, err = f.svc.Preview(context.Background(), view.ID, "chequeLeaf", "token-stale")
	assert.True(t, appErrors.HasCode(err, appErrors.ErrNotFound.Code))
	_, _, err = f.svc.Preview(context.Background(), view.ID, "chequeLeaf", "")
	assert.True(t, appErrors.HasCode(err, appErrors.ErrForbidden.Code))
}

func TestSessionServiceSweepClosesIdleSessions(t *testing.T) {
	f := newSessionFixture(t)
	actor := employee("E1")
	view, err := f.svc.Open(context.Background(), dto.OpenSessionRequest{Kind: models.KindBankDetail}, actor)
	require.NoError(t, err)

	assert.Equal(t, 0, f.svc.Sweep())
	*f.clock = f.clock.Add(2 * time.Hour)
	assert.Equal(t, 1, f.svc.Sweep())
	assert.Equal(t, 0, f.svc.Active())
	assert.Equal(t, []string{view.ID}, f.previews.sessions)

	_, err = f.svc.Get(context.Background(), view.ID, actor)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrNotFound.Code))
}

func TestSessionServiceCloseAndShutdown(t *testing.T) {
	f := newSessionFixture(t)
	actor := employee("E1")
	first, err := f.svc.Open(context.Background(), dto.OpenSessionRequest{Kind: models.KindBankDetail}, actor)
	require.NoError(t, err)
	_, err = f.svc.Open(context.Background(), dto.OpenSessionRequest{Kind: models.KindBankDetail}, actor)
	require.NoError(t, err)

	require.NoError(t, f.svc.Close(context.Background(), first.ID, actor))
	assert.True(t, appErrors.HasCode(f.svc.Close(context.Background(), first.ID, actor), appErrors.ErrNotFound.Code))
	assert.Equal(t, 1, f.svc.Active())

	f.svc.Shutdown()
	assert.Equal(t, 0, f.svc.Active())
}
