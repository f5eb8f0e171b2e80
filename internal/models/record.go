package models

import "strings"

// Attachment references a file already held by the Record Store.
type Attachment struct {
	URL  string `json:"url"`
	Name string `json:"name,omitempty"`
}

// Record is the approved state of one entity as held by the Record Store.
type Record struct {
	OwnerID     string                `json:"ownerId"`
	Kind        RecordKind            `json:"kind"`
	RecordID    string                `json:"recordId,omitempty"`
	Data        Fields                `json:"data"`
	Attachments map[string]Attachment `json:"attachments,omitempty"`
}

// Clone returns a deep copy of the record.
func (r Record) Clone() Record {
	out := r
	out.Data = r.Data.Clone()
	if r.Attachments != nil {
		out.Attachments = make(map[string]Attachment, len(r.Attachments))
		for k, v := range r.Attachments {
			out.Attachments[k] = v
		}
	}
	return out
}

// AttachmentsFor collects file references for the kind's file fields. The
// backend stores them either under the part name or with a "Url" suffix.
func AttachmentsFor(spec RecordKindSpec, data Fields) map[string]Attachment {
	out := map[string]Attachment{}
	for field := range spec.Files {
		for _, key := range []string{field, field + "Url", field + "URL"} {
			v, ok := data[key].(string)
			if !ok || !strings.HasPrefix(v, "http") {
				continue
			}
			name := v
			if i := strings.LastIndex(v, "/"); i >= 0 && i < len(v)-1 {
				name = v[i+1:]
			}
			if q := strings.IndexByte(name, '?'); q >= 0 {
				name = name[:q]
			}
			out[field] = Attachment{URL: v, Name: name}
			break
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
