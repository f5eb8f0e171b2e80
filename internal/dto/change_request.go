package dto

// RejectRequest carries the reviewer's reason.
type RejectRequest struct {
	Reason string `json:"reason" validate:"max=1000"`
}

// ExportRequest selects the export format of a request table.
type ExportRequest struct {
	Format string `form:"format" validate:"omitempty,oneof=csv pdf"`
	Scope  string `form:"scope" validate:"omitempty,oneof=pending history"`
}

// AuditQuery filters the audit trail.
type AuditQuery struct {
	Resource string `form:"resource"`
	OwnerID  string `form:"ownerId"`
	Action   string `form:"action"`
	Page     int    `form:"page" validate:"omitempty,min=1"`
	PageSize int    `form:"page_size" validate:"omitempty,min=1,max=200"`
}
