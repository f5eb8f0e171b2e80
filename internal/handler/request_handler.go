package handler

import (
	"bytes"
	"context"
	"iter"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/hr-workflow-api/internal/dto"
	"github.com/noah-isme/hr-workflow-api/internal/models"
	"github.com/noah-isme/hr-workflow-api/internal/service"
	appErrors "github.com/noah-isme/hr-workflow-api/pkg/errors"
	"github.com/noah-isme/hr-workflow-api/pkg/response"
)

type approvalService interface {
	ListPending(ctx context.Context, kind models.RecordKind, actor *models.JWTClaims) (iter.Seq2[models.QueueEntry, error], error)
	History(ctx context.Context, kind models.RecordKind, actor *models.JWTClaims) ([]models.QueueEntry, error)
	Get(ctx context.Context, kind models.RecordKind, requestID string, actor *models.JWTClaims) (*models.QueueEntry, error)
	Approve(ctx context.Context, kind models.RecordKind, requestID string, actor *models.JWTClaims) (*models.ChangeRequest, error)
	Reject(ctx context.Context, kind models.RecordKind, requestID, reason string, actor *models.JWTClaims) (*models.ChangeRequest, error)
}

type exportService interface {
	Export(ctx context.Context, kind models.RecordKind, req dto.ExportRequest, actor *models.JWTClaims) (*service.ExportResult, error)
}

// RequestHandler exposes the change request review queue.
type RequestHandler struct {
	service approvalService
	export  exportService
}

// NewRequestHandler constructs the handler.
func NewRequestHandler(service approvalService, export exportService) *RequestHandler {
	return &RequestHandler{service: service, export: export}
}

// Pending godoc
// @Summary List pending change requests
// @Tags Requests
// @Produce json
// @Param kind path string true "Record kind" Enums(profile, bank-detail, document-set, certificate)
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 502 {object} response.Envelope
// @Router /requests/{kind}/pending [get]
func (h *RequestHandler) Pending(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.ErrInternal)
		return
	}
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	seq, err := h.service.ListPending(c.Request.Context(), kindParam(c), claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	entries := make([]models.QueueEntry, 0)
	for entry, err := range seq {
		if err != nil {
			response.Error(c, err)
			return
		}
		entries = append(entries, entry)
	}
	response.JSON(c, http.StatusOK, entries, nil, map[string]interface{}{"count": len(entries)})
}

// History godoc
// @Summary List the caller's own change requests
// @Tags Requests
// @Produce json
// @Param kind path string true "Record kind"
// @Success 200 {object} response.Envelope
// @Router /requests/{kind}/history [get]
func (h *RequestHandler) History(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.ErrInternal)
		return
	}
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	entries, err := h.service.History(c.Request.Context(), kindParam(c), claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entries, nil, map[string]interface{}{"count": len(entries)})
}

// Get godoc
// @Summary Get a change request with its field diff
// @Tags Requests
// @Produce json
// @Param kind path string true "Record kind"
// @Param requestId path string true "Request ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /requests/{kind}/{requestId} [get]
func (h *RequestHandler) Get(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.ErrInternal)
		return
	}
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	entry, err := h.service.Get(c.Request.Context(), kindParam(c), c.Param("requestId"), claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entry, nil)
}

// Approve godoc
// @Summary Approve a pending change request
// @Tags Requests
// @Produce json
// @Param kind path string true "Record kind"
// @Param requestId path string true "Request ID"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Failure 502 {object} response.Envelope
// @Router /requests/{kind}/{requestId}/approve [post]
func (h *RequestHandler) Approve(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.ErrInternal)
		return
	}
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	result, err := h.service.Approve(c.Request.Context(), kindParam(c), c.Param("requestId"), claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Reject godoc
// @Summary Reject a pending change request
// @Tags Requests
// @Accept json
// @Produce json
// @Param kind path string true "Record kind"
// @Param requestId path string true "Request ID"
// @Param payload body dto.RejectRequest true "Rejection reason"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /requests/{kind}/{requestId}/reject [post]
func (h *RequestHandler) Reject(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.ErrInternal)
		return
	}
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.RejectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid reject payload"))
		return
	}
	result, err := h.service.Reject(c.Request.Context(), kindParam(c), c.Param("requestId"), req.Reason, claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Export godoc
// @Summary Export a request table
// @Tags Requests
// @Produce text/csv
// @Produce application/pdf
// @Param kind path string true "Record kind"
// @Param format query string false "csv or pdf"
// @Param scope query string false "pending or history"
// @Success 200 {file} binary
// @Router /requests/{kind}/export [get]
func (h *RequestHandler) Export(c *gin.Context) {
	if h.export == nil {
		response.Error(c, appErrors.ErrInternal)
		return
	}
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.ExportRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid export query"))
		return
	}
	result, err := h.export.Export(c.Request.Context(), kindParam(c), req, claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, result.Filename, result.ContentType, int64(len(result.Data)), bytes.NewReader(result.Data), false)
}

func kindParam(c *gin.Context) models.RecordKind {
	return models.RecordKind(c.Param("kind"))
}
