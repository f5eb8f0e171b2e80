package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math/big"
	"sort"
	"strconv"
	"strings"
)

// Fields is a JSON object holding record data. Nested objects are addressed
// with dotted paths such as "currentAddress.city".
type Fields map[string]any

// DecodeFields parses a JSON object. null and empty input decode to an empty set.
// Numbers are kept as json.Number so ids and account numbers survive untouched.
func DecodeFields(raw []byte) (Fields, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return Fields{}, nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var out map[string]any
	if err := dec.Decode(&out); err != nil {
		return nil, fmt.Errorf("decode fields: %w", err)
	}
	if dec.More() {
		return nil, fmt.Errorf("decode fields: trailing data after object")
	}
	if out == nil {
		out = map[string]any{}
	}
	return Fields(out), nil
}

// UnmarshalJSON decodes through DecodeFields. null leaves f untouched.
func (f *Fields) UnmarshalJSON(raw []byte) error {
	if bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return nil
	}
	decoded, err := DecodeFields(raw)
	if err != nil {
		return err
	}
	*f = decoded
	return nil
}

// Clone returns a deep copy.
func (f Fields) Clone() Fields {
	if f == nil {
		return Fields{}
	}
	return cloneValue(map[string]any(f)).(map[string]any)
}

// CloneValue deep-copies a JSON value.
func CloneValue(v any) any {
	return cloneValue(v)
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case Fields:
		return Fields(cloneValue(map[string]any(t)).(map[string]any))
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, item := range t {
			out[k] = cloneValue(item)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = cloneValue(item)
		}
		return out
	default:
		return v
	}
}

// Get resolves a dotted path.
func (f Fields) Get(path string) (any, bool) {
	var cur any = map[string]any(f)
	for _, key := range strings.Split(path, ".") {
		m, ok := asObject(cur)
		if !ok {
			return nil, false
		}
		cur, ok = m[key]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

// Set assigns value at a dotted path, creating intermediate objects. A
// non-object found on the way is replaced.
func (f Fields) Set(path string, value any) {
	keys := strings.Split(path, ".")
	cur := map[string]any(f)
	for _, key := range keys[:len(keys)-1] {
		next, ok := asObject(cur[key])
		if !ok {
			next = map[string]any{}
			cur[key] = next
		}
		cur = next
	}
	cur[keys[len(keys)-1]] = value
}

// Leaves lists the dotted paths of every non-object value, sorted.
// Arrays are leaves.
func (f Fields) Leaves() []string {
	out := make([]string, 0, len(f))
	collectLeaves("", map[string]any(f), &out)
	sort.Strings(out)
	return out
}

func collectLeaves(prefix string, m map[string]any, out *[]string) {
	for k, v := range m {
		path := k
		if prefix != "" {
			path = prefix + "." + k
		}
		if child, ok := asObject(v); ok && len(child) > 0 {
			collectLeaves(path, child, out)
			continue
		}
		*out = append(*out, path)
	}
}

func asObject(v any) (map[string]any, bool) {
	switch t := v.(type) {
	case map[string]any:
		return t, true
	case Fields:
		return map[string]any(t), true
	default:
		return nil, false
	}
}

// Canonical encodes v with sorted object keys. Numbers are normalised so
// that 30, 30.0 and 3e1 encode alike; integers keep every digit.
func Canonical(v any) ([]byte, error) {
	return json.Marshal(normalizeNumbers(v))
}

func normalizeNumbers(v any) any {
	switch t := v.(type) {
	case Fields:
		return normalizeNumbers(map[string]any(t))
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, item := range t {
			out[k] = normalizeNumbers(item)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = normalizeNumbers(item)
		}
		return out
	case json.Number:
		return canonicalNumber(t.String())
	case float64:
		return canonicalNumber(strconv.FormatFloat(t, 'g', -1, 64))
	case float32:
		return canonicalNumber(strconv.FormatFloat(float64(t), 'g', -1, 32))
	case int:
		return json.Number(strconv.Itoa(t))
	case int64:
		return json.Number(strconv.FormatInt(t, 10))
	default:
		return v
	}
}

func canonicalNumber(s string) any {
	if strings.ContainsAny(s, "eE") {
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return s
		}
		s = strconv.FormatFloat(f, 'f', -1, 64)
	}
	r, ok := new(big.Rat).SetString(s)
	if !ok {
		return s
	}
	if r.IsInt() {
		return json.Number(r.Num().String())
	}
	f, _ := r.Float64()
	return json.Number(strconv.FormatFloat(f, 'g', -1, 64))
}

// CanonicalEqual reports whether a and b encode to identical canonical JSON.
func CanonicalEqual(a, b any) bool {
	ra, errA := Canonical(a)
	rb, errB := Canonical(b)
	if errA != nil || errB != nil {
		return false
	}
	return bytes.Equal(ra, rb)
}

// IsBlank reports whether a required value is effectively absent.
func IsBlank(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(t) == ""
	case json.Number:
		return strings.TrimSpace(t.String()) == ""
	case []any:
		return len(t) == 0
	case map[string]any:
		return len(t) == 0
	case Fields:
		return len(t) == 0
	default:
		return false
	}
}
