package recordstore

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// Envelope is the response wrapper used by every Record Store endpoint.
type Envelope struct {
	Status   string `json:"status"`
	Message  string `json:"message,omitempty"`
	Error    string `json:"error,omitempty"`
	Response struct {
		Data    json.RawMessage `json:"data"`
		Message string          `json:"message,omitempty"`
	} `json:"response"`
}

func (e *Envelope) ok() bool {
	return e.Status == "" || strings.EqualFold(e.Status, "OK") || strings.EqualFold(e.Status, "SUCCESS")
}

func (e *Envelope) message() string {
	for _, m := range []string{e.Response.Message, e.Message, e.Error} {
		if strings.TrimSpace(m) != "" {
			return strings.TrimSpace(m)
		}
	}
	return ""
}

// FlexString accepts both JSON strings and numbers; the backend is not consistent about ids.
type FlexString string

func (f *FlexString) UnmarshalJSON(raw []byte) error {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		*f = ""
		return nil
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return err
		}
		*f = FlexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return err
	}
	*f = FlexString(n.String())
	return nil
}

func (f FlexString) String() string { return string(f) }

// ChangeRequest is a change request as listed by the backend.
type ChangeRequest struct {
	RequestID     FlexString      `json:"requestId"`
	EmployeeID    FlexString      `json:"employeeId"`
	RequestedDate string          `json:"requestedDate"`
	RequestStatus string          `json:"requestStatus"`
	PreviousData  json.RawMessage `json:"previousData"`
	RequestedData json.RawMessage `json:"requestedData"`
	Description   string          `json:"description,omitempty"`
}

// Decision is the body of an approve or reject call. Extra carries
// kind specific identifiers and is merged into the top level object.
type Decision struct {
	RequestID      string
	ApprovalStatus string
	Description    string
	EmployeeID     string
	Extra          map[string]any
}

func (d Decision) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(d.Extra)+4)
	for k, v := range d.Extra {
		out[k] = v
	}
	out["requestId"] = numericOrString(d.RequestID)
	out["approvalStatus"] = d.ApprovalStatus
	if d.Description != "" {
		out["description"] = d.Description
	}
	if d.EmployeeID != "" {
		out["employeeId"] = d.EmployeeID
	}
	return json.Marshal(out)
}

// numericOrString echoes ids back in the shape the backend issued them.
func numericOrString(id string) any {
	if n, err := strconv.ParseInt(id, 10, 64); err == nil && strconv.FormatInt(n, 10) == id {
		return n
	}
	return id
}
