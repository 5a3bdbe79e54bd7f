package matrix

import (
	"errors"
	"fmt"

	"github.com/quadtask/quadtask/internal/models"
)

// State is the lifecycle state of a drag session.
type State int

const (
	// StateIdle means no drag is in progress.
	StateIdle State = iota
	// StateDragging means a drag has started but the pointer has not yet
	// produced a hover position.
	StateDragging
	// StateHovering means drag-over events are flowing and the working copy
	// may diverge from the snapshot.
	StateHovering
)

// ErrNoSession is returned for drag events that arrive without an active
// session, e.g. a drag-over after the drop was already committed.
var ErrNoSession = errors.New("no active drag session")

// OverEvent is one drag-over notification from the input layer. OverItem is
// the id of the hovered task, or empty when the pointer is over the container
// body (or below all items). OverRect is nil whenever OverItem is empty.
type OverEvent struct {
	Target   models.Quadrant
	OverItem string
	Pointer  Rect
	OverRect *Rect
}

// OutcomeKind classifies what a finished drag changed.
type OutcomeKind int

const (
	// OutcomeNone means the task ended up exactly where it started; nothing
	// is persisted.
	OutcomeNone OutcomeKind = iota
	// OutcomeReorder means the task moved within its original bucket.
	OutcomeReorder
	// OutcomeMove means the task changed buckets.
	OutcomeMove
)

// Outcome describes the result of a completed drag: the destination bucket
// and its final ordered id list, as the synchronizer must persist them.
type Outcome struct {
	Kind       OutcomeKind
	TaskID     string
	Quadrant   models.Quadrant
	OrderedIDs []string
}

// Session owns the working copy of the four bucket arrays for one in-progress
// drag. It is a plain state machine with no locking of its own; the
// SessionManager serializes access.
type Session struct {
	state    State
	activeID string
	source   models.Quadrant
	snapshot Buckets
	working  Buckets
	ids      map[string]bool
}

// NewSession snapshots the committed bucket state and enters Dragging for
// activeID. The id must be present in the committed arrangement.
func NewSession(activeID string, committed Buckets) (*Session, error) {
	source, idx := committed.IndexOf(activeID)
	if idx < 0 {
		return nil, fmt.Errorf("drag start: task %s not in any bucket", activeID)
	}
	ids := make(map[string]bool, committed.Len())
	for q := range committed {
		for _, id := range committed[q] {
			ids[id] = true
		}
	}
	return &Session{
		state:    StateDragging,
		activeID: activeID,
		source:   source,
		snapshot: committed.Clone(),
		working:  committed.Clone(),
		ids:      ids,
	}, nil
}

// ActiveID returns the id being dragged.
func (s *Session) ActiveID() string { return s.activeID }

// Source returns the bucket the dragged task started in.
func (s *Session) Source() models.Quadrant { return s.source }

// State returns the current lifecycle state.
func (s *Session) State() State { return s.state }

// Working returns the current working copy. While the session is live this
// arrangement replaces the bucketizer's output entirely.
func (s *Session) Working() Buckets { return s.working.Clone() }

// Over applies one drag-over event through the resolver. It reports whether
// the working copy actually changed, so callers can skip redundant updates
// when the pointer moved without crossing an insertion boundary. A partition
// violation is surfaced as an ErrInvariant error with the working copy left
// untouched.
func (s *Session) Over(ev OverEvent) (bool, error) {
	if s.state == StateIdle {
		return false, ErrNoSession
	}
	next, err := Resolve(s.working, s.activeID, ev.Target, ev.OverItem, ev.Pointer, ev.OverRect)
	if err != nil {
		return false, err
	}
	if err := next.CheckPartition(s.ids); err != nil {
		return false, err
	}
	s.state = StateHovering
	if next.Equal(s.working) {
		return false, nil
	}
	s.working = next
	return true, nil
}

// End finishes the drag and diffs the working copy against the snapshot taken
// at drag start. A task back at its original container and index is a no-op;
// a container change yields OutcomeMove; an index change within the source
// container yields OutcomeReorder. The session is Idle afterwards either way
// and the working copy is discarded.
func (s *Session) End() (Outcome, error) {
	if s.state == StateIdle {
		return Outcome{}, ErrNoSession
	}
	defer func() { s.state = StateIdle }()

	curQ, curIdx := s.working.IndexOf(s.activeID)
	oldQ, oldIdx := s.snapshot.IndexOf(s.activeID)
	if curIdx < 0 {
		return Outcome{}, fmt.Errorf("%w: dragged id %s lost from working copy", ErrInvariant, s.activeID)
	}

	out := Outcome{Kind: OutcomeNone, TaskID: s.activeID}
	switch {
	case curQ != oldQ:
		out.Kind = OutcomeMove
		out.Quadrant = curQ
		out.OrderedIDs = append([]string(nil), s.working[curQ]...)
	case curIdx != oldIdx:
		out.Kind = OutcomeReorder
		out.Quadrant = curQ
		out.OrderedIDs = append([]string(nil), s.working[curQ]...)
	}
	return out, nil
}

// Cancel discards the working copy with no persistence effect. Releasing the
// pointer outside any container and pressing escape both land here.
func (s *Session) Cancel() {
	s.state = StateIdle
}
