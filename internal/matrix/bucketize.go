package matrix

import (
	"sort"

	"github.com/quadtask/quadtask/internal/models"
)

// ComputeBuckets partitions tasks into the four quadrant buckets. Membership
// follows Task.Bucket precedence (override, then effective, then AI, then
// Q4). Within a bucket ids sort by manual order ascending with unordered
// tasks last, tie-broken by creation time descending, then by id so the
// result is fully deterministic.
//
// The function is pure: it never mutates its input and two calls over
// structurally equal task lists yield Equal buckets, so callers can compare
// against the previous result to skip redundant downstream work. Callers must
// not invoke it to replace a live working copy while a drag session is active
// for the same user; the session owns the arrangement until it ends.
func ComputeBuckets(tasks []*models.Task) Buckets {
	var byQuadrant [models.NumQuadrants][]*models.Task
	for _, t := range tasks {
		if t == nil || !t.Active() {
			continue
		}
		q := t.Bucket()
		byQuadrant[q] = append(byQuadrant[q], t)
	}

	var out Buckets
	for q := range byQuadrant {
		group := byQuadrant[q]
		sort.SliceStable(group, func(i, j int) bool {
			return taskLess(group[i], group[j])
		})
		ids := make([]string, len(group))
		for i, t := range group {
			ids[i] = t.ID
		}
		out[q] = ids
	}
	return out
}

// taskLess orders tasks within a bucket: manual order ascending, nil manual
// order after any explicit order, then newest first, then id.
func taskLess(a, b *models.Task) bool {
	switch {
	case a.ManualOrder != nil && b.ManualOrder != nil:
		if *a.ManualOrder != *b.ManualOrder {
			return *a.ManualOrder < *b.ManualOrder
		}
	case a.ManualOrder != nil:
		return true
	case b.ManualOrder != nil:
		return false
	}
	if !a.DateCreated.Equal(b.DateCreated) {
		return a.DateCreated.After(b.DateCreated)
	}
	return a.ID < b.ID
}
