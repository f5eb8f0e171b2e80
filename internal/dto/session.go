package dto

import "github.com/noah-isme/hr-workflow-api/internal/models"

// OpenSessionRequest opens an edit session on one record.
type OpenSessionRequest struct {
	Kind     models.RecordKind `json:"kind" validate:"required,record_kind"`
	OwnerID  string            `json:"ownerId" validate:"omitempty,max=64"`
	RecordID string            `json:"recordId" validate:"omitempty,max=64"`
}

// SetFieldsRequest updates draft values by dotted path. Numbers decode exactly.
type SetFieldsRequest struct {
	Fields models.Fields `json:"fields" validate:"required,min=1,dive,keys,required,field_path,endkeys"`
}

