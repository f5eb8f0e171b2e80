package models

import (
	"net/http"
	"net/url"
	"slices"
	"strings"
)

// RecordKind names a family of records under change control.
type RecordKind string

const (
	KindProfile     RecordKind = "profile"
	KindBankDetail  RecordKind = "bank-detail"
	KindDocumentSet RecordKind = "document-set"
	KindCertificate RecordKind = "certificate"
)

// DefaultMaxFileBytes is the upload ceiling applied when no override is configured.
const DefaultMaxFileBytes int64 = 5 << 20

// FileRule restricts the files a field accepts.
type FileRule struct {
	AllowedTypes []string
	MaxBytes     int64
}

var (
	imageTypes = []string{"image/jpeg", "image/png", "image/gif"}
	pdfTypes   = []string{"application/pdf"}

	ImageRule      = FileRule{AllowedTypes: imageTypes, MaxBytes: DefaultMaxFileBytes}
	PDFRule        = FileRule{AllowedTypes: pdfTypes, MaxBytes: DefaultMaxFileBytes}
	ImageOrPDFRule = FileRule{AllowedTypes: append(slices.Clone(imageTypes), pdfTypes...), MaxBytes: DefaultMaxFileBytes}
)

// Allows reports whether contentType matches exactly one of the allowed types.
// Parameters such as charset are ignored.
func (r FileRule) Allows(contentType string) bool {
	mediaType, _, _ := strings.Cut(contentType, ";")
	return slices.Contains(r.AllowedTypes, strings.ToLower(strings.TrimSpace(mediaType)))
}

// WithMax returns a copy of the rule with the size ceiling replaced when max is positive.
func (r FileRule) WithMax(max int64) FileRule {
	if max > 0 {
		r.MaxBytes = max
	}
	return r
}

// RecordKindSpec is the catalogue entry for one record kind. Paths carry an
// {employeeId} placeholder.
type RecordKindSpec struct {
	Kind  RecordKind
	Label string

	FetchPath string
	// ItemKey is set when FetchPath returns an array; the record is the element whose ItemKey matches.
	ItemKey string

	SubmitMethod string
	SubmitPath   string
	JSONPart     string
	// Files maps multipart part names to the rule for that part.
	Files map[string]FileRule

	RequiredFields []string
	PhoneFields    []string

	RequestsPath  string
	ApprovePath   string
	ApproveStatus string
	RejectStatus  string
	// DecisionKeys are identifiers copied from the request data into approve and reject bodies.
	DecisionKeys []string
}

var addressLeaves = []string{"addressLine1", "city", "state", "country", "pincode"}

func prefixed(prefix string, leaves []string) []string {
	out := make([]string, len(leaves))
	for i, leaf := range leaves {
		out[i] = prefix + "." + leaf
	}
	return out
}

var catalogue = []RecordKindSpec{
	{
		Kind:         KindProfile,
		Label:        "Profile",
		FetchPath:    "/employees/{employeeId}/profile",
		SubmitMethod: http.MethodPut,
		SubmitPath:   "/employees/{employeeId}/profile/update-request",
		JSONPart:     "requestedData",
		Files:        map[string]FileRule{"profileImage": ImageRule},
		RequiredFields: slices.Concat(
			[]string{"firstName", "lastName", "dateOfBirth", "gender", "mobileNumber", "alternateMobileNumber"},
			prefixed("currentAddress", addressLeaves),
			prefixed("permanentAddress", addressLeaves),
		),
		PhoneFields:   []string{"mobileNumber", "alternateMobileNumber"},
		RequestsPath:  "/profile-update-requests",
		ApprovePath:   "/profile-update-requests/approval",
		ApproveStatus: "Approved",
		RejectStatus:  "Rejected",
	},
	{
		Kind:           KindBankDetail,
		Label:          "Bank details",
		FetchPath:      "/bank-details/{employeeId}",
		SubmitMethod:   http.MethodPut,
		SubmitPath:     "/bank-details/{employeeId}/update-request",
		JSONPart:       "updateDetails",
		Files:          map[string]FileRule{"chequeLeaf": ImageOrPDFRule},
		RequiredFields: []string{"accountHolderName", "accountNumber", "ifscCode", "bankName", "branchName"},
		RequestsPath:   "/bank-details/update-requests",
		ApprovePath:    "/bank-details/update-requests/approval",
		ApproveStatus:  "Approved",
		RejectStatus:   "Rejected",
	},
	{
		Kind:         KindDocumentSet,
		Label:        "Documents",
		FetchPath:    "/documents/{employeeId}",
		SubmitMethod: http.MethodPut,
		SubmitPath:   "/documents/{employeeId}/update-request",
		JSONPart:     "requestedData",
		Files: map[string]FileRule{
			"aadharPdf":   PDFRule,
			"panCardPdf":  PDFRule,
			"passPortPdf": PDFRule,
		},
		RequiredFields: []string{"aadharNumber", "panNumber"},
		RequestsPath:   "/documents/update-requests",
		ApprovePath:    "/documents/update-requests/approval",
		ApproveStatus:  "Approved",
		RejectStatus:   "Rejected",
	},
	{
		Kind:           KindCertificate,
		Label:          "Certificates",
		FetchPath:      "/certificates/{employeeId}",
		ItemKey:        "certificateId",
		SubmitMethod:   http.MethodPost,
		SubmitPath:     "/certificates/{employeeId}/update-request",
		JSONPart:       "requestedData",
		Files:          map[string]FileRule{"certificateFile": PDFRule},
		RequiredFields: []string{"certificateName", "issuingAuthority", "issueDate"},
		RequestsPath:   "/certificates/update-requests",
		ApprovePath:    "/certificates/update-requests/approval",
		ApproveStatus:  "Accepted",
		RejectStatus:   "Rejected",
		DecisionKeys:   []string{"certificateId"},
	},
}

// LookupKind returns the catalogue entry for kind.
func LookupKind(kind string) (RecordKindSpec, bool) {
	for _, spec := range catalogue {
		if string(spec.Kind) == strings.ToLower(strings.TrimSpace(kind)) {
			return spec, true
		}
	}
	return RecordKindSpec{}, false
}

// Kinds lists every supported record kind in catalogue order.
func Kinds() []RecordKindSpec {
	return slices.Clone(catalogue)
}

// FetchURL renders FetchPath for an owner.
func (s RecordKindSpec) FetchURL(ownerID string) string {
	return expand(s.FetchPath, ownerID)
}

// SubmitURL renders SubmitPath for an owner.
func (s RecordKindSpec) SubmitURL(ownerID string) string {
	return expand(s.SubmitPath, ownerID)
}

// FileRule returns the rule for a file field, with the size ceiling overridden when max is positive.
func (s RecordKindSpec) FileRule(field string, max int64) (FileRule, bool) {
	rule, ok := s.Files[field]
	if !ok {
		return FileRule{}, false
	}
	return rule.WithMax(max), true
}

func expand(path, ownerID string) string {
	return strings.ReplaceAll(path, "{employeeId}", url.PathEscape(ownerID))
}
