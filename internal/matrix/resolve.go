package matrix

import (
	"fmt"

	"github.com/quadtask/quadtask/internal/models"
)

// Rect is the bounding box of a dragged pointer overlay or a hovered item,
// in the client coordinate space reported by the input layer.
type Rect struct {
	Top    float64 `json:"top"`
	Left   float64 `json:"left"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Midpoint returns the vertical midpoint of the rect.
func (r Rect) Midpoint() float64 {
	return r.Top + r.Height/2
}

// Resolve computes the new bucket arrangement for a single drag-over event.
// It moves activeID into target at the index implied by pointer geometry:
//
//   - overItem empty (hovering the container body or below all items): the id
//     is appended at the end of the target bucket.
//   - otherwise: the id lands before overItem when the pointer sits above the
//     hovered item's vertical midpoint, after it when below. The index is
//     clamped to the bucket bounds.
//
// A move within the id's current bucket uses standard array-move semantics
// (remove, then insert, with the insertion index adjusted for the removal
// shift). Resolve never mutates its input; the returned copy is guaranteed to
// hold exactly the same id set as the input, and an ErrInvariant error marks
// a defect rather than a recoverable condition.
func Resolve(b Buckets, activeID string, target models.Quadrant, overItem string, pointer Rect, overRect *Rect) (Buckets, error) {
	if !target.Valid() {
		return b, fmt.Errorf("resolve: invalid target quadrant %d", int(target))
	}
	source, sourceIdx := b.IndexOf(activeID)
	if sourceIdx < 0 {
		return b, fmt.Errorf("resolve: active id %s not in any bucket", activeID)
	}

	out := b.Clone()

	// Remove from source first; insertion indexes below are computed against
	// the post-removal target bucket.
	out[source] = append(out[source][:sourceIdx], out[source][sourceIdx+1:]...)

	idx := len(out[target])
	if overItem != "" && overItem != activeID {
		if overIdx := indexIn(out[target], overItem); overIdx >= 0 {
			idx = overIdx
			if overRect != nil && pointer.Top > overRect.Midpoint() {
				idx++
			}
		}
	} else if overItem == activeID && source == target {
		// Hovering the dragged item itself is a no-op: put it back.
		idx = sourceIdx
	}
	if idx < 0 {
		idx = 0
	}
	if idx > len(out[target]) {
		idx = len(out[target])
	}

	out[target] = append(out[target], "")
	copy(out[target][idx+1:], out[target][idx:])
	out[target][idx] = activeID

	if out.Len() != b.Len() {
		return b, fmt.Errorf("%w: resolve changed id count from %d to %d", ErrInvariant, b.Len(), out.Len())
	}
	return out, nil
}

func indexIn(ids []string, id string) int {
	for i, got := range ids {
		if got == id {
			return i
		}
	}
	return -1
}
