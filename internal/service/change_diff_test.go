package service

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/hr-workflow-api/internal/models"
)

func TestComputeFieldDiffScalars(t *testing.T) {
	prev := models.Fields{"bankName": "HDFC", "age": float64(30)}
	req := models.Fields{"bankName": "ICICI", "age": float64(30)}

	assert.True(t, ComputeFieldDiff(prev, req, "bankName").Changed)
	assert.False(t, ComputeFieldDiff(prev, req, "age").Changed)
}

func TestComputeFieldDiffIsSymmetric(t *testing.T) {
	a := models.Fields{"x": "1", "tags": []any{"a", "b"}}
	b := models.Fields{"x": "2", "tags": []any{"b", "a", "a"}}
	for _, path := range []string{"x", "tags"} {
		assert.Equal(t, ComputeFieldDiff(a, b, path).Changed, ComputeFieldDiff(b, a, path).Changed, path)
	}
}

func TestComputeFieldDiffNullRequestedIsUnchanged(t *testing.T) {
	prev := models.Fields{"bankName": "HDFC"}
	assert.False(t, ComputeFieldDiff(prev, models.Fields{"bankName": nil}, "bankName").Changed)
	assert.False(t, ComputeFieldDiff(prev, models.Fields{}, "bankName").Changed)
	assert.False(t, ComputeFieldDiff(nil, nil, "bankName").Changed)
}

func TestComputeFieldDiffArraysAsSets(t *testing.T) {
	prev := models.Fields{"skills": []any{"go", "sql"}}
	assert.False(t, ComputeFieldDiff(prev, models.Fields{"skills": []any{"sql", "go", "go"}}, "skills").Changed)
	assert.True(t, ComputeFieldDiff(prev, models.Fields{"skills": []any{"go"}}, "skills").Changed)
	assert.True(t, ComputeFieldDiff(prev, models.Fields{"skills": []any{"go", "rust"}}, "skills").Changed)
}

func TestDiffRecordsNestedLeaves(t *testing.T) {
	prev := models.Fields{
		"firstName":      "Asha",
		"currentAddress": map[string]any{"city": "Pune", "pincode": "411001"},
	}
	req := models.Fields{
		"firstName":      "Asha",
		"currentAddress": map[string]any{"city": "Mumbai", "pincode": "411001"},
		"nickname":       "A",
	}

	diffs := DiffRecords(prev, req)
	paths := make([]string, 0, len(diffs))
	for _, d := range diffs {
		paths = append(paths, d.Path)
	}
	require.Equal(t, []string{"currentAddress.city", "currentAddress.pincode", "firstName", "nickname"}, paths)
	assert.Equal(t, []string{"currentAddress.city", "nickname"}, ChangedPaths(diffs))
}

func TestFieldsDifferUsesSetSemantics(t *testing.T) {
	prev := models.Fields{"skills": []any{"a", "b"}, "accountNumber": json.Number("9007199254740993")}

	assert.False(t, FieldsDiffer(prev, models.Fields{"skills": []any{"b", "a"}, "accountNumber": json.Number("9007199254740993")}))
	assert.True(t, FieldsDiffer(prev, models.Fields{"skills": []any{"a"}, "accountNumber": json.Number("9007199254740993")}))
	assert.True(t, FieldsDiffer(prev, models.Fields{"skills": []any{"a", "b"}, "accountNumber": json.Number("9007199254740992")}))
	assert.True(t, FieldsDiffer(prev, models.Fields{"skills": []any{"a", "b"}, "accountNumber": nil}))
	assert.False(t, FieldsDiffer(models.Fields{"age": json.Number("30")}, models.Fields{"age": float64(30)}))
	assert.False(t, FieldsDiffer(nil, models.Fields{}))
}
