package service

import (
	"sort"

	"github.com/noah-isme/hr-workflow-api/internal/models"
)

// ComputeFieldDiff compares one dotted path of two field sets. Arrays compare
// as sets. A nil or absent requested value is never reported as changed.
func ComputeFieldDiff(previous, requested models.Fields, path string) models.FieldDiff {
	prev, _ := previous.Get(path)
	req, present := requested.Get(path)
	diff := models.FieldDiff{Path: path, PreviousValue: prev, RequestedValue: req}
	if !present || req == nil {
		return diff
	}
	diff.Changed = !valuesEqual(prev, req)
	return diff
}

// DiffRecords flattens both sides to leaf paths and diffs each leaf.
func DiffRecords(previous, requested models.Fields) []models.FieldDiff {
	paths := leafUnion(previous, requested)
	out := make([]models.FieldDiff, 0, len(paths))
	for _, p := range paths {
		out = append(out, ComputeFieldDiff(previous, requested, p))
	}
	return out
}

// FieldsDiffer reports whether any leaf differs, with arrays compared as sets.
// Unlike ComputeFieldDiff, clearing a value to null counts as a change.
func FieldsDiffer(previous, requested models.Fields) bool {
	for _, p := range leafUnion(previous, requested) {
		prev, _ := previous.Get(p)
		req, _ := requested.Get(p)
		if !valuesEqual(prev, req) {
			return true
		}
	}
	return false
}

func leafUnion(previous, requested models.Fields) []string {
	seen := make(map[string]struct{})
	paths := make([]string, 0)
	for _, side := range []models.Fields{previous, requested} {
		for _, p := range side.Leaves() {
			if _, ok := seen[p]; ok {
				continue
			}
			seen[p] = struct{}{}
			paths = append(paths, p)
		}
	}
	sort.Strings(paths)
	return paths
}

// ChangedPaths returns the paths flagged as changed.
func ChangedPaths(diffs []models.FieldDiff) []string {
	out := make([]string, 0)
	for _, d := range diffs {
		if d.Changed {
			out = append(out, d.Path)
		}
	}
	return out
}

func valuesEqual(a, b any) bool {
	as, aIsList := a.([]any)
	bs, bIsList := b.([]any)
	if aIsList && bIsList {
		return sameMembers(as, bs)
	}
	return models.CanonicalEqual(a, b)
}

func sameMembers(a, b []any) bool {
	left := memberSet(a)
	right := memberSet(b)
	if len(left) != len(right) {
		return false
	}
	for k := range left {
		if _, ok := right[k]; !ok {
			return false
		}
	}
	return true
}

func memberSet(items []any) map[string]struct{} {
	set := make(map[string]struct{}, len(items))
	for _, item := range items {
		raw, err := models.Canonical(item)
		if err != nil {
			continue
		}
		set[string(raw)] = struct{}{}
	}
	return set
}
