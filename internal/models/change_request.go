package models

import (
	"strings"
	"time"
)

// RequestStatus captures change request workflow states.
type RequestStatus string

const (
	RequestStatusPending    RequestStatus = "PENDING"
	RequestStatusInProgress RequestStatus = "INPROGRESS"
	RequestStatusApproved   RequestStatus = "APPROVED"
	RequestStatusRejected   RequestStatus = "REJECTED"
)

// Terminal reports whether no further transition is allowed.
func (s RequestStatus) Terminal() bool {
	return s == RequestStatusApproved || s == RequestStatusRejected
}

// ParseRequestStatus normalises the backend's status spellings
// ("Pending", "In Progress", "IN_PROGRESS", "Accepted", ...).
func ParseRequestStatus(raw string) RequestStatus {
	normalised := strings.ToUpper(strings.NewReplacer(" ", "", "_", "", "-", "").Replace(strings.TrimSpace(raw)))
	switch normalised {
	case "APPROVED", "ACCEPTED":
		return RequestStatusApproved
	case "REJECTED", "DECLINED":
		return RequestStatusRejected
	case "INPROGRESS":
		return RequestStatusInProgress
	default:
		return RequestStatusPending
	}
}

// ChangeRequest is a submitted proposal to replace a record's fields.
type ChangeRequest struct {
	RequestID       string        `json:"requestId"`
	EmployeeID      string        `json:"employeeId"`
	Kind            RecordKind    `json:"recordKind"`
	PreviousData    Fields        `json:"previousData"`
	RequestedData   Fields        `json:"requestedData"`
	Status          RequestStatus `json:"status"`
	RequestedDate   string        `json:"requestedDate,omitempty"`
	RejectionReason string        `json:"rejectionReason,omitempty"`
	ReviewedBy      string        `json:"reviewedBy,omitempty"`
	ReviewedAt      *time.Time    `json:"reviewedAt,omitempty"`
}

// FieldDiff compares one field of a change request.
type FieldDiff struct {
	Path           string `json:"path"`
	Changed        bool   `json:"changed"`
	PreviousValue  any    `json:"previousValue"`
	RequestedValue any    `json:"requestedValue"`
}

// QueueEntry is a change request with its per-field diff.
type QueueEntry struct {
	ChangeRequest
	Diff []FieldDiff `json:"diff"`
}
