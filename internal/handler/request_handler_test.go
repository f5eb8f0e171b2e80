package handler

import (
	"context"
	"encoding/json"
	"iter"
	"net/http"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/hr-workflow-api/internal/dto"
	"github.com/noah-isme/hr-workflow-api/internal/middleware"
	"github.com/noah-isme/hr-workflow-api/internal/models"
	"github.com/noah-isme/hr-workflow-api/internal/service"
	appErrors "github.com/noah-isme/hr-workflow-api/pkg/errors"
)

type fakeApprovalSrv struct {
	entries    []models.QueueEntry
	streamErr  error
	rejectArgs []string
	exportReq  dto.ExportRequest
}

func (f *fakeApprovalSrv) ListPending(_ context.Context, kind models.RecordKind, _ *models.JWTClaims) (iter.Seq2[models.QueueEntry, error], error) {
	if kind == "payroll" {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "unknown record kind")
	}
	return func(yield func(models.QueueEntry, error) bool) {
		if f.streamErr != nil {
			yield(models.QueueEntry{}, f.streamErr)
			return
		}
		for _, e := range f.entries {
			if !yield(e, nil) {
				return
			}
		}
	}, nil
}

func (f *fakeApprovalSrv) History(context.Context, models.RecordKind, *models.JWTClaims) ([]models.QueueEntry, error) {
	return f.entries, nil
}

func (f *fakeApprovalSrv) Get(_ context.Context, _ models.RecordKind, requestID string, _ *models.JWTClaims) (*models.QueueEntry, error) {
	return &models.QueueEntry{ChangeRequest: models.ChangeRequest{RequestID: requestID}}, nil
}

func (f *fakeApprovalSrv) Approve(_ context.Context, kind models.RecordKind, requestID string, _ *models.JWTClaims) (*models.ChangeRequest, error) {
	return &models.ChangeRequest{RequestID: requestID, Kind: kind, Status: models.RequestStatusApproved}, nil
}

func (f *fakeApprovalSrv) Reject(_ context.Context, _ models.RecordKind, requestID, reason string, _ *models.JWTClaims) (*models.ChangeRequest, error) {
	f.rejectArgs = []string{requestID, reason}
	if strings.TrimSpace(reason) == "" {
		return nil, appErrors.MissingFields([]string{"reason"})
	}
	return &models.ChangeRequest{RequestID: requestID, Status: models.RequestStatusRejected, RejectionReason: reason}, nil
}

func (f *fakeApprovalSrv) Export(_ context.Context, kind models.RecordKind, req dto.ExportRequest, _ *models.JWTClaims) (*service.ExportResult, error) {
	f.exportReq = req
	return &service.ExportResult{Filename: string(kind) + ".csv", ContentType: "text/csv; charset=utf-8", Data: []byte("requestId\n1\n")}, nil
}

func newRequestRouter(srv *fakeApprovalSrv) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewRequestHandler(srv, srv)
	router := gin.New()
	router.Use(func(c *gin.Context) {
		c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "u-rev", Role: models.RoleHR})
	})
	router.GET("/requests/:kind/pending", h.Pending)
	router.GET("/requests/:kind/history", h.History)
	router.GET("/requests/:kind/export", h.Export)
	router.GET("/requests/:kind/:requestId", h.Get)
	router.POST("/requests/:kind/:requestId/approve", h.Approve)
	router.POST("/requests/:kind/:requestId/reject", h.Reject)
	return router
}

func TestRequestHandlerPending(t *testing.T) {
	srv := &fakeApprovalSrv{entries: []models.QueueEntry{{ChangeRequest: models.ChangeRequest{RequestID: "1"}}, {ChangeRequest: models.ChangeRequest{RequestID: "2"}}}}
	rec := doRequest(newRequestRouter(srv), http.MethodGet, "/requests/bank-detail/pending", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Data []models.QueueEntry `json:"data"`
		Meta map[string]any      `json:"meta"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Len(t, body.Data, 2)
	assert.Equal(t, float64(2), body.Meta["count"])
}

func TestRequestHandlerPendingSurfacesStreamError(t *testing.T) {
	srv := &fakeApprovalSrv{streamErr: appErrors.Integration(nil, "record store down")}
	rec := doRequest(newRequestRouter(srv), http.MethodGet, "/requests/bank-detail/pending", nil, "")
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Contains(t, rec.Body.String(), "record store down")

	rec = doRequest(newRequestRouter(srv), http.MethodGet, "/requests/payroll/pending", nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRequestHandlerRoutesStaticSegments(t *testing.T) {
	srv := &fakeApprovalSrv{}
	router := newRequestRouter(srv)

	rec := doRequest(router, http.MethodGet, "/requests/profile/export?format=csv&scope=history", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, dto.ExportRequest{Format: "csv", Scope: "history"}, srv.exportReq)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), `attachment; filename="profile.csv"`)

	rec = doRequest(router, http.MethodGet, "/requests/profile/42", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"requestId":"42"`)
}

func TestRequestHandlerApproveAndReject(t *testing.T) {
	srv := &fakeApprovalSrv{}
	router := newRequestRouter(srv)

	rec := doRequest(router, http.MethodPost, "/requests/certificate/9/approve", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"APPROVED"`)

	rec = doRequest(router, http.MethodPost, "/requests/certificate/9/reject", strings.NewReader(`{"reason":"expired"}`), "application/json")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"9", "expired"}, srv.rejectArgs)

	rec = doRequest(router, http.MethodPost, "/requests/certificate/9/reject", strings.NewReader(`{}`), "application/json")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
