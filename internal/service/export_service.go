package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/hr-workflow-api/internal/dto"
	"github.com/noah-isme/hr-workflow-api/internal/models"
	appErrors "github.com/noah-isme/hr-workflow-api/pkg/errors"
	"github.com/noah-isme/hr-workflow-api/pkg/export"
)

type exporter interface {
	Render(data export.Dataset) ([]byte, error)
	ContentType() string
	Extension() string
}

type requestSource interface {
	CollectPending(ctx context.Context, kind models.RecordKind, actor *models.JWTClaims) ([]models.QueueEntry, error)
	History(ctx context.Context, kind models.RecordKind, actor *models.JWTClaims) ([]models.QueueEntry, error)
}

var exportHeaders = []string{"requestId", "employeeId", "status", "requestedDate", "changedFields", "rejectionReason"}

// ExportResult is a rendered request table.
type ExportResult struct {
	Filename    string
	ContentType string
	Data        []byte
}

// ExportService renders request tables as CSV or PDF downloads.
type ExportService struct {
	requests  requestSource
	validator *validator.Validate
	exporters map[string]exporter
	logger    *zap.Logger
	now       func() time.Time
}

// NewExportService constructs an ExportService. Nil exporters fall back to the defaults.
func NewExportService(requests requestSource, logger *zap.Logger, csv, pdf exporter) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	return &ExportService{
		requests:  requests,
		validator: validator.New(),
		exporters: map[string]exporter{"csv": csv, "pdf": pdf},
		logger:    logger,
		now:       time.Now,
	}
}

// Export renders the pending queue or the actor's history for a kind.
func (s *ExportService) Export(ctx context.Context, kind models.RecordKind, req dto.ExportRequest, actor *models.JWTClaims) (*ExportResult, error) {
	format := strings.ToLower(strings.TrimSpace(req.Format))
	if format == "" {
		format = "csv"
	}
	scope := strings.ToLower(strings.TrimSpace(req.Scope))
	if scope == "" {
		scope = "pending"
	}
	if err := s.validator.Struct(dto.ExportRequest{Format: format, Scope: scope}); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, fmt.Sprintf("unsupported export %s/%s", req.Format, req.Scope))
	}
	renderer, ok := s.exporters[format]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export format %s", req.Format))
	}

	var (
		entries []models.QueueEntry
		err     error
		title   string
	)
	switch scope {
	case "pending":
		entries, err = s.requests.CollectPending(ctx, kind, actor)
		title = "Pending change requests"
	case "history":
		entries, err = s.requests.History(ctx, kind, actor)
		title = "Change request history"
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export scope %s", req.Scope))
	}
	if err != nil {
		return nil, err
	}

	spec, _ := models.LookupKind(string(kind))
	dataset := export.Dataset{
		Title:   fmt.Sprintf("%s: %s", title, spec.Label),
		Headers: exportHeaders,
		Rows:    make([]map[string]string, 0, len(entries)),
	}
	for _, entry := range entries {
		dataset.Rows = append(dataset.Rows, map[string]string{
			"requestId":       entry.RequestID,
			"employeeId":      entry.EmployeeID,
			"status":          string(entry.Status),
			"requestedDate":   entry.RequestedDate,
			"changedFields":   strings.Join(ChangedPaths(entry.Diff), "; "),
			"rejectionReason": entry.RejectionReason,
		})
	}

	payload, err := renderer.Render(dataset)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export")
	}
	filename := fmt.Sprintf("%s_%s_%s.%s", kind, scope, s.now().UTC().Format("20060102_150405"), renderer.Extension())
	s.logger.Info("change requests exported",
		zap.String("kind", string(kind)),
		zap.String("scope", scope),
		zap.String("format", format),
		zap.Int("rows", len(dataset.Rows)),
	)
	return &ExportResult{Filename: filename, ContentType: renderer.ContentType(), Data: payload}, nil
}
