package handler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/hr-workflow-api/internal/dto"
	"github.com/noah-isme/hr-workflow-api/internal/models"
	"github.com/noah-isme/hr-workflow-api/internal/service"
	appErrors "github.com/noah-isme/hr-workflow-api/pkg/errors"
	"github.com/noah-isme/hr-workflow-api/pkg/response"
)

type sessionService interface {
	Open(ctx context.Context, req dto.OpenSessionRequest, actor *models.JWTClaims) (*models.SessionView, error)
	Get(ctx context.Context, id string, actor *models.JWTClaims) (*models.SessionView, error)
	BeginEdit(ctx context.Context, id string, actor *models.JWTClaims) (*models.SessionView, error)
	SetFields(ctx context.Context, id string, req dto.SetFieldsRequest, actor *models.JWTClaims) (*models.SessionView, error)
	AttachFile(ctx context.Context, id string, upload service.FileUpload, actor *models.JWTClaims) (*models.PendingFile, error)
	Preview(ctx context.Context, id, field, token string) (*models.PendingFile, io.ReadCloser, error)
	Cancel(ctx context.Context, id string, actor *models.JWTClaims) (*models.SessionView, error)
	Submit(ctx context.Context, id string, actor *models.JWTClaims) (*models.SessionView, error)
	Close(ctx context.Context, id string, actor *models.JWTClaims) error
}

// multipartOverhead is added to the file ceiling when capping upload bodies.
const multipartOverhead = 1 << 20

// SessionHandler exposes edit session endpoints.
type SessionHandler struct {
	service      sessionService
	maxFileBytes int64
}

// NewSessionHandler constructs the handler.
func NewSessionHandler(service sessionService, maxFileBytes int64) *SessionHandler {
	if maxFileBytes <= 0 {
		maxFileBytes = models.DefaultMaxFileBytes
	}
	return &SessionHandler{service: service, maxFileBytes: maxFileBytes}
}

// Open godoc
// @Summary Open an edit session
// @Description Loads the approved record and starts editing it.
// @Tags Sessions
// @Accept json
// @Produce json
// @Param payload body dto.OpenSessionRequest true "Record to edit"
// @Success 201 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 502 {object} response.Envelope
// @Router /sessions [post]
func (h *SessionHandler) Open(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.ErrInternal)
		return
	}
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.OpenSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid session payload"))
		return
	}
	view, err := h.service.Open(c.Request.Context(), req, claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, view)
}

// Get godoc
// @Summary Get session state
// @Tags Sessions
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /sessions/{id} [get]
func (h *SessionHandler) Get(c *gin.Context) {
	h.respondView(c, sessionService.Get)
}

// BeginEdit godoc
// @Summary Re-enter editing mode
// @Description Refetches the approved record and snapshots it as the new draft.
// @Tags Sessions
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /sessions/{id}/edit [post]
func (h *SessionHandler) BeginEdit(c *gin.Context) {
	h.respondView(c, sessionService.BeginEdit)
}

// SetFields godoc
// @Summary Update draft fields
// @Tags Sessions
// @Accept json
// @Produce json
// @Param id path string true "Session ID"
// @Param payload body dto.SetFieldsRequest true "Dotted paths and values"
// @Success 200 {object} response.Envelope
// @Router /sessions/{id}/fields [patch]
func (h *SessionHandler) SetFields(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.ErrInternal)
		return
	}
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.SetFieldsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid fields payload"))
		return
	}
	view, err := h.service.SetFields(c.Request.Context(), c.Param("id"), req, claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, view, nil)
}

// AttachFile godoc
// @Summary Attach a file to a draft field
// @Tags Sessions
// @Accept multipart/form-data
// @Produce json
// @Param id path string true "Session ID"
// @Param field path string true "File field"
// @Param file formData file true "File"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /sessions/{id}/files/{field} [post]
func (h *SessionHandler) AttachFile(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.ErrInternal)
		return
	}
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxFileBytes+multipartOverhead)
	header, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("file exceeds %d bytes", h.maxFileBytes)))
			return
		}
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "file is required"))
		return
	}
	file, err := header.Open()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read upload"))
		return
	}
	defer file.Close()

	staged, err := h.service.AttachFile(c.Request.Context(), c.Param("id"), service.FileUpload{
		Field:       c.Param("field"),
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
		Content:     file,
	}, claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, staged)
}

// Preview godoc
// @Summary Stream a staged file
// @Description Authorised by the signed token embedded in the preview URL.
// @Tags Sessions
// @Produce octet-stream
// @Param id path string true "Session ID"
// @Param field path string true "File field"
// @Param token query string true "Preview token"
// @Success 200 {file} binary
// @Failure 403 {object} response.Envelope
// @Router /sessions/{id}/previews/{field} [get]
func (h *SessionHandler) Preview(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.ErrInternal)
		return
	}
	token := c.Query("token")
	if token == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "preview token required"))
		return
	}
	file, body, err := h.service.Preview(c.Request.Context(), c.Param("id"), c.Param("field"), token)
	if err != nil {
		response.Error(c, err)
		return
	}
	defer body.Close()
	response.Attachment(c, file.Filename, file.ContentType, file.Size, body, true)
}

// Cancel godoc
// @Summary Discard the draft
// @Tags Sessions
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} response.Envelope
// @Router /sessions/{id}/cancel [post]
func (h *SessionHandler) Cancel(c *gin.Context) {
	h.respondView(c, sessionService.Cancel)
}

// Submit godoc
// @Summary Submit the draft as a change request
// @Tags Sessions
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 502 {object} response.Envelope
// @Router /sessions/{id}/submit [post]
func (h *SessionHandler) Submit(c *gin.Context) {
	h.respondView(c, sessionService.Submit)
}

// Close godoc
// @Summary Close the session
// @Tags Sessions
// @Param id path string true "Session ID"
// @Success 204
// @Router /sessions/{id} [delete]
func (h *SessionHandler) Close(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.ErrInternal)
		return
	}
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	if err := h.service.Close(c.Request.Context(), c.Param("id"), claims); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

func (h *SessionHandler) respondView(c *gin.Context, call func(sessionService, context.Context, string, *models.JWTClaims) (*models.SessionView, error)) {
	if h.service == nil {
		response.Error(c, appErrors.ErrInternal)
		return
	}
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	view, err := call(h.service, c.Request.Context(), c.Param("id"), claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, view, nil)
}
