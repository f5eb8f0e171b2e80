package models

import "io"

// ChangeSubmission is everything needed to file one change request.
type ChangeSubmission struct {
	Spec     RecordKindSpec
	OwnerID  string
	RecordID string
	Token    string
	Data     Fields
	Files    []SubmissionFile
}

// SubmissionFile is one multipart file part of a submission.
type SubmissionFile struct {
	Part        string
	Filename    string
	ContentType string
	Body        io.Reader
}
