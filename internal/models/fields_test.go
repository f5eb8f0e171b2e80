package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeFields(t *testing.T) {
	for _, raw := range []string{"", "null", "  "} {
		f, err := DecodeFields([]byte(raw))
		require.NoError(t, err)
		assert.Equal(t, Fields{}, f)
	}
	f, err := DecodeFields([]byte(`{"a":{"b":1}}`))
	require.NoError(t, err)
	v, ok := f.Get("a.b")
	require.True(t, ok)
	assert.Equal(t, json.Number("1"), v)

	_, err = DecodeFields([]byte(`[1,2]`))
	assert.Error(t, err)
}

func TestFieldsSetCreatesIntermediateObjects(t *testing.T) {
	f := Fields{"address": "flat"}
	f.Set("address.city", "Pune")
	f.Set("bank.branch.code", "X1")

	city, ok := f.Get("address.city")
	require.True(t, ok)
	assert.Equal(t, "Pune", city)
	_, ok = f.Get("bank.branch.missing")
	assert.False(t, ok)
	assert.Equal(t, []string{"address.city", "bank.branch.code"}, f.Leaves())
}

func TestFieldsCloneIsDeep(t *testing.T) {
	original := Fields{"tags": []any{"a"}, "nested": map[string]any{"k": "v"}}
	clone := original.Clone()
	clone["tags"].([]any)[0] = "changed"
	clone["nested"].(map[string]any)["k"] = "changed"

	assert.Equal(t, "a", original["tags"].([]any)[0])
	assert.Equal(t, "v", original["nested"].(map[string]any)["k"])
	assert.Equal(t, Fields{}, Fields(nil).Clone())
}

func TestCanonicalEqualIgnoresKeyOrder(t *testing.T) {
	a := Fields{"x": 1, "y": map[string]any{"p": 1, "q": 2}}
	b := Fields{"y": map[string]any{"q": 2, "p": 1}, "x": 1}
	assert.True(t, CanonicalEqual(a, b))
	assert.False(t, CanonicalEqual(a, Fields{"x": 2}))
}

func TestCanonicalEqualComparesNumbersByValue(t *testing.T) {
	assert.True(t, CanonicalEqual(json.Number("30"), float64(30)))
	assert.True(t, CanonicalEqual(json.Number("30.0"), 30))
	assert.True(t, CanonicalEqual(json.Number("3e1"), json.Number("30")))
	assert.True(t, CanonicalEqual(json.Number("0.1"), 0.1))
	assert.False(t, CanonicalEqual(json.Number("9007199254740993"), json.Number("9007199254740992")))
	assert.False(t, CanonicalEqual(json.Number("30"), "30"))
}

func TestDecodeFieldsKeepsLargeNumbersExact(t *testing.T) {
	raw := []byte(`{"accountNumber":12345678901234567891,"employeeId":9007199254740993,"bank":{"branchCode":42}}`)
	f, err := DecodeFields(raw)
	require.NoError(t, err)

	out, err := json.Marshal(f)
	require.NoError(t, err)
	assert.JSONEq(t, string(raw), string(out))
	assert.Contains(t, string(out), "9007199254740993")
	assert.Contains(t, string(out), "12345678901234567891")

	canonical, err := Canonical(f)
	require.NoError(t, err)
	assert.Contains(t, string(canonical), "12345678901234567891")
}

func TestFieldsUnmarshalUsesExactNumbers(t *testing.T) {
	var record struct {
		Data Fields `json:"data"`
		Skip Fields `json:"skip"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"data":{"ids":[9007199254740993]},"skip":null}`), &record))
	assert.Equal(t, []any{json.Number("9007199254740993")}, record.Data["ids"])
	assert.Nil(t, record.Skip)

	var list []Fields
	require.NoError(t, json.Unmarshal([]byte(`[{"certificateId":9007199254740993}]`), &list))
	assert.Equal(t, json.Number("9007199254740993"), list[0]["certificateId"])
}

func TestDecodeFieldsRejectsTrailingData(t *testing.T) {
	_, err := DecodeFields([]byte(`{"a":1} {"b":2}`))
	assert.Error(t, err)
}

func TestLeavesTreatsArraysAndEmptyObjectsAsLeaves(t *testing.T) {
	f := Fields{"skills": []any{map[string]any{"a": 1}}, "meta": map[string]any{}, "name": "x"}
	assert.Equal(t, []string{"meta", "name", "skills"}, f.Leaves())
}

func TestIsBlank(t *testing.T) {
	assert.True(t, IsBlank(nil))
	assert.True(t, IsBlank("  "))
	assert.True(t, IsBlank([]any{}))
	assert.True(t, IsBlank(map[string]any{}))
	assert.False(t, IsBlank("x"))
	assert.False(t, IsBlank(float64(0)))
	assert.False(t, IsBlank(json.Number("0")))
	assert.False(t, IsBlank(false))
}
