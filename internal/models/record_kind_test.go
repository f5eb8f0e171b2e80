package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookupKind(t *testing.T) {
	spec, ok := LookupKind(" Certificate ")
	require.True(t, ok)
	assert.Equal(t, KindCertificate, spec.Kind)
	assert.Equal(t, "Accepted", spec.ApproveStatus)

	_, ok = LookupKind("payroll")
	assert.False(t, ok)
	assert.Len(t, Kinds(), 4)
}

func TestRecordKindURLsEscapeOwner(t *testing.T) {
	spec, _ := LookupKind("profile")
	assert.Equal(t, "/employees/E%2F1/profile", spec.FetchURL("E/1"))
	assert.Equal(t, "/employees/E1/profile/update-request", spec.SubmitURL("E1"))
}

func TestFileRules(t *testing.T) {
	spec, _ := LookupKind("bank-detail")
	rule, ok := spec.FileRule("chequeLeaf", 0)
	require.True(t, ok)
	assert.Equal(t, DefaultMaxFileBytes, rule.MaxBytes)
	assert.True(t, rule.Allows("application/pdf"))
	assert.True(t, rule.Allows("IMAGE/PNG; charset=binary"))
	assert.False(t, rule.Allows("text/plain"))

	rule, _ = spec.FileRule("chequeLeaf", 1024)
	assert.Equal(t, int64(1024), rule.MaxBytes)
	assert.Equal(t, DefaultMaxFileBytes, ImageOrPDFRule.MaxBytes)

	_, ok = spec.FileRule("aadharPdf", 0)
	assert.False(t, ok)
}

func TestAttachmentsFor(t *testing.T) {
	spec, _ := LookupKind("document-set")
	data := Fields{"aadharPdf": "https://cdn.example.com/a/aadhar.pdf", "panCardPdfUrl": "https://cdn.example.com/pan.pdf", "passPortPdf": "not-a-url"}
	attachments := AttachmentsFor(spec, data)
	assert.Equal(t, map[string]Attachment{
		"aadharPdf":  {URL: "https://cdn.example.com/a/aadhar.pdf", Name: "aadhar.pdf"},
		"panCardPdf": {URL: "https://cdn.example.com/pan.pdf", Name: "pan.pdf"},
	}, attachments)
	assert.Nil(t, AttachmentsFor(spec, Fields{}))
}
