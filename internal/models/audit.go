package models

import "time"

// AuditAction constants represent actions to be logged.
const (
	AuditActionChangeRequestSubmit  = "CHANGE_REQUEST_SUBMIT"
	AuditActionChangeRequestApprove = "CHANGE_REQUEST_APPROVE"
	AuditActionChangeRequestReject  = "CHANGE_REQUEST_REJECT"
)

// AuditLog represents an audit trail record.
type AuditLog struct {
	ID         string    `db:"id" json:"id"`
	UserID     *string   `db:"user_id" json:"user_id,omitempty"`
	Action     string    `db:"action" json:"action"`
	Resource   string    `db:"resource" json:"resource"`
	ResourceID *string   `db:"resource_id" json:"resource_id,omitempty"`
	OwnerID    *string   `db:"owner_id" json:"owner_id,omitempty"`
	OldValues  []byte    `db:"old_values" json:"old_values,omitempty"`
	NewValues  []byte    `db:"new_values" json:"new_values,omitempty"`
	Note       *string   `db:"note" json:"note,omitempty"`
	IPAddress  string    `db:"ip_address" json:"ip_address"`
	UserAgent  string    `db:"user_agent" json:"user_agent"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// AuditFilter constrains audit trail listings.
type AuditFilter struct {
	Resource string
	OwnerID  string
	Action   string
	Limit    int
	Offset   int
}
