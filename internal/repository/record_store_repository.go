package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/noah-isme/hr-workflow-api/internal/models"
	appErrors "github.com/noah-isme/hr-workflow-api/pkg/errors"
	"github.com/noah-isme/hr-workflow-api/pkg/recordstore"
)

type recordStoreClient interface {
	Fetch(ctx context.Context, token, path string) (json.RawMessage, error)
	ListRequests(ctx context.Context, token, path string) ([]recordstore.ChangeRequest, error)
	Submit(ctx context.Context, token, method, path string, form recordstore.SubmitForm) (json.RawMessage, error)
	Decide(ctx context.Context, token, path string, decision recordstore.Decision) error
}

// RecordStoreRepository maps the record kind catalogue onto Record Store calls.
type RecordStoreRepository struct {
	client recordStoreClient
}

// NewRecordStoreRepository constructs the repository.
func NewRecordStoreRepository(client recordStoreClient) *RecordStoreRepository {
	return &RecordStoreRepository{client: client}
}

// FetchRecord loads the approved record. For kinds whose fetch returns a list
// the element matching recordID is used; an empty recordID yields an empty record.
func (r *RecordStoreRepository) FetchRecord(ctx context.Context, token string, spec models.RecordKindSpec, ownerID, recordID string) (*models.Record, error) {
	record := &models.Record{OwnerID: ownerID, Kind: spec.Kind, RecordID: recordID, Data: models.Fields{}}
	if spec.ItemKey != "" && recordID == "" {
		return record, nil
	}
	raw, err := r.client.Fetch(ctx, token, spec.FetchURL(ownerID))
	if err != nil {
		if recordstore.IsNotFound(err) && spec.ItemKey == "" {
			return record, nil
		}
		return nil, integrationError(err, fmt.Sprintf("failed to load %s record", spec.Kind))
	}

	if spec.ItemKey != "" {
		item, err := pickItem(raw, spec.ItemKey, recordID)
		if err != nil {
			return nil, err
		}
		record.Data = item
	} else {
		data, err := models.DecodeFields(raw)
		if err != nil {
			return nil, appErrors.Integration(err, fmt.Sprintf("unexpected %s record shape", spec.Kind))
		}
		record.Data = data
	}
	record.Attachments = models.AttachmentsFor(spec, record.Data)
	return record, nil
}

// SubmitChange files a change request as a multipart body.
func (r *RecordStoreRepository) SubmitChange(ctx context.Context, sub models.ChangeSubmission) (json.RawMessage, error) {
	data := sub.Data
	if sub.Spec.ItemKey != "" && sub.RecordID != "" {
		data = data.Clone()
		data[sub.Spec.ItemKey] = sub.RecordID
	}
	files := make([]recordstore.FilePart, 0, len(sub.Files))
	for _, f := range sub.Files {
		files = append(files, recordstore.FilePart{Field: f.Part, Filename: f.Filename, ContentType: f.ContentType, Body: f.Body})
	}
	method := sub.Spec.SubmitMethod
	if method == "" {
		method = http.MethodPut
	}
	raw, err := r.client.Submit(ctx, sub.Token, method, sub.Spec.SubmitURL(sub.OwnerID), recordstore.SubmitForm{
		JSONPart: sub.Spec.JSONPart,
		Data:     data,
		Files:    files,
	})
	if err != nil {
		return nil, integrationError(err, "failed to submit change request")
	}
	return raw, nil
}

// ListChangeRequests returns every change request of a kind visible to the token.
func (r *RecordStoreRepository) ListChangeRequests(ctx context.Context, token string, spec models.RecordKindSpec) ([]models.ChangeRequest, error) {
	items, err := r.client.ListRequests(ctx, token, spec.RequestsPath)
	if err != nil {
		return nil, integrationError(err, fmt.Sprintf("failed to list %s change requests", spec.Kind))
	}
	out := make([]models.ChangeRequest, 0, len(items))
	for _, item := range items {
		if item.RequestID == "" {
			continue
		}
		previous, err := models.DecodeFields(item.PreviousData)
		if err != nil {
			previous = models.Fields{}
		}
		requested, err := models.DecodeFields(item.RequestedData)
		if err != nil {
			requested = models.Fields{}
		}
		cr := models.ChangeRequest{
			RequestID:     item.RequestID.String(),
			EmployeeID:    item.EmployeeID.String(),
			Kind:          spec.Kind,
			PreviousData:  previous,
			RequestedData: requested,
			Status:        models.ParseRequestStatus(item.RequestStatus),
			RequestedDate: item.RequestedDate,
		}
		if cr.Status == models.RequestStatusRejected {
			cr.RejectionReason = item.Description
		}
		out = append(out, cr)
	}
	return out, nil
}

// Decide posts an approve or reject decision for request.
func (r *RecordStoreRepository) Decide(ctx context.Context, token string, spec models.RecordKindSpec, request models.ChangeRequest, approvalStatus, description string) error {
	extra := make(map[string]any, len(spec.DecisionKeys))
	for _, key := range spec.DecisionKeys {
		if v, ok := request.RequestedData[key]; ok && v != nil {
			extra[key] = v
		} else if v, ok := request.PreviousData[key]; ok && v != nil {
			extra[key] = v
		}
	}
	err := r.client.Decide(ctx, token, spec.ApprovePath, recordstore.Decision{
		RequestID:      request.RequestID,
		ApprovalStatus: approvalStatus,
		Description:    description,
		EmployeeID:     request.EmployeeID,
		Extra:          extra,
	})
	if err != nil {
		return integrationError(err, fmt.Sprintf("failed to %s change request", strings.ToLower(approvalStatus)))
	}
	return nil
}

func pickItem(raw json.RawMessage, key, id string) (models.Fields, error) {
	var items []models.Fields
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, appErrors.Integration(err, "unexpected record list shape")
	}
	for _, item := range items {
		if fmt.Sprint(item[key]) == id {
			return item, nil
		}
	}
	return nil, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("record %s not found", id))
}

// integrationError keeps the backend's message when it sent one and maps a
// refused token to Unauthorized.
func integrationError(err error, fallback string) error {
	if recordstore.IsUnauthorized(err) {
		return appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "record store rejected the session token")
	}
	message := recordstore.Message(err)
	if message == "" {
		message = fallback
	}
	return appErrors.Integration(err, message)
}
