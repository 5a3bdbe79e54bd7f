// Package matrix implements the drag-and-drop reclassification engine for the
// four-quadrant task matrix: partitioning tasks into ordered buckets,
// maintaining a working copy of that partition during an in-progress drag,
// resolving pointer geometry into insertion points, and synchronizing the
// result back to the task store.
package matrix

import (
	"errors"
	"fmt"

	"github.com/quadtask/quadtask/internal/models"
)

// ErrInvariant is returned when a bucket operation would violate the
// partition invariant (a task id duplicated or missing across buckets). It
// signals a programming defect, not a recoverable condition.
var ErrInvariant = errors.New("bucket partition invariant violated")

// Buckets holds the ordered task ids of all four quadrants, indexed by
// models.Quadrant. The fixed-size array keeps the partition closed by
// construction: there is nowhere for an id to live outside the four buckets.
type Buckets [models.NumQuadrants][]string

// Clone returns a deep copy of the buckets.
func (b Buckets) Clone() Buckets {
	var out Buckets
	for q := range b {
		if b[q] != nil {
			out[q] = append([]string(nil), b[q]...)
		} else {
			out[q] = []string{}
		}
	}
	return out
}

// Equal reports element-wise structural equality with other. Callers use it
// to suppress redundant updates when a recomputation or a resolver call
// produced an identical arrangement.
func (b Buckets) Equal(other Buckets) bool {
	for q := range b {
		if len(b[q]) != len(other[q]) {
			return false
		}
		for i := range b[q] {
			if b[q][i] != other[q][i] {
				return false
			}
		}
	}
	return true
}

// IndexOf returns the quadrant and position of id, or (0, -1) if absent.
func (b Buckets) IndexOf(id string) (models.Quadrant, int) {
	for q := range b {
		for i, got := range b[q] {
			if got == id {
				return models.Quadrant(q), i
			}
		}
	}
	return 0, -1
}

// Contains reports whether id is present in any bucket.
func (b Buckets) Contains(id string) bool {
	_, i := b.IndexOf(id)
	return i >= 0
}

// Len returns the total number of ids across all buckets.
func (b Buckets) Len() int {
	n := 0
	for q := range b {
		n += len(b[q])
	}
	return n
}

// CheckPartition verifies the partition invariant against the given id set:
// every id appears in exactly one bucket and no bucket holds an unknown or
// duplicated id.
func (b Buckets) CheckPartition(ids map[string]bool) error {
	seen := make(map[string]models.Quadrant, len(ids))
	for q := range b {
		for _, id := range b[q] {
			if prev, dup := seen[id]; dup {
				return fmt.Errorf("%w: id %s in both %s and %s", ErrInvariant, id, prev, models.Quadrant(q))
			}
			if !ids[id] {
				return fmt.Errorf("%w: unknown id %s in %s", ErrInvariant, id, models.Quadrant(q))
			}
			seen[id] = models.Quadrant(q)
		}
	}
	for id := range ids {
		if _, ok := seen[id]; !ok {
			return fmt.Errorf("%w: id %s missing from all buckets", ErrInvariant, id)
		}
	}
	return nil
}
