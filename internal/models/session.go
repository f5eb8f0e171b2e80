package models

import (
	"encoding/json"
	"time"
)

// SessionMode is the viewing/editing state of an edit session.
type SessionMode string

const (
	SessionModeViewing SessionMode = "viewing"
	SessionModeEditing SessionMode = "editing"
)

// PendingFile is a staged upload waiting for submission.
type PendingFile struct {
	Field        string    `json:"field"`
	Filename     string    `json:"filename"`
	ContentType  string    `json:"contentType"`
	Size         int64     `json:"size"`
	PreviewURL   string    `json:"previewUrl"`
	ExpiresAt    time.Time `json:"previewExpiresAt"`
	AttachedAt   time.Time `json:"attachedAt"`
	StoragePath  string    `json:"-"`
	PreviewToken string    `json:"-"`
}

// SubmitReceipt records the last accepted submission of a session.
type SubmitReceipt struct {
	SubmittedAt time.Time       `json:"submittedAt"`
	Response    json.RawMessage `json:"response,omitempty"`
}

// SessionView is the externally visible state of an edit session.
type SessionView struct {
	ID           string                `json:"id"`
	OwnerID      string                `json:"ownerId"`
	Kind         RecordKind            `json:"kind"`
	RecordID     string                `json:"recordId,omitempty"`
	Mode         SessionMode           `json:"mode"`
	Original     Fields                `json:"original"`
	Draft        Fields                `json:"draft"`
	Attachments  map[string]Attachment `json:"attachments,omitempty"`
	PendingFiles []PendingFile         `json:"pendingFiles"`
	HasChanges   bool                  `json:"hasChanges"`
	Diff         []FieldDiff           `json:"diff,omitempty"`
	LastSubmit   *SubmitReceipt        `json:"lastSubmit,omitempty"`
	CreatedAt    time.Time             `json:"createdAt"`
	LastActivity time.Time             `json:"lastActivity"`
}
