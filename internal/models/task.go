package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Quadrant is one of the four fixed Eisenhower priority buckets.
type Quadrant int

const (
	// QuadrantQ1 is urgent and important.
	QuadrantQ1 Quadrant = iota
	// QuadrantQ2 is important but not urgent.
	QuadrantQ2
	// QuadrantQ3 is urgent but not important.
	QuadrantQ3
	// QuadrantQ4 is neither urgent nor important; also the default bucket
	// for tasks that carry no classification at all.
	QuadrantQ4

	// NumQuadrants is the number of buckets in the matrix.
	NumQuadrants = 4
)

var quadrantNames = [NumQuadrants]string{"Q1", "Q2", "Q3", "Q4"}

// String returns the wire name of the quadrant ("Q1".."Q4").
func (q Quadrant) String() string {
	if !q.Valid() {
		return fmt.Sprintf("Quadrant(%d)", int(q))
	}
	return quadrantNames[q]
}

// Valid reports whether q is one of the four defined quadrants.
func (q Quadrant) Valid() bool {
	return q >= QuadrantQ1 && q <= QuadrantQ4
}

// ParseQuadrant parses a wire name ("Q1".."Q4") into a Quadrant.
func ParseQuadrant(s string) (Quadrant, error) {
	for i, name := range quadrantNames {
		if s == name {
			return Quadrant(i), nil
		}
	}
	return 0, fmt.Errorf("invalid quadrant %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (q Quadrant) MarshalText() ([]byte, error) {
	if !q.Valid() {
		return nil, fmt.Errorf("invalid quadrant %d", int(q))
	}
	return []byte(quadrantNames[q]), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (q *Quadrant) UnmarshalText(text []byte) error {
	parsed, err := ParseQuadrant(string(text))
	if err != nil {
		return err
	}
	*q = parsed
	return nil
}

// TaskStatus represents the status of a task in the external store.
type TaskStatus string

const (
	TaskStatusOpen      TaskStatus = "open"
	TaskStatusCompleted TaskStatus = "completed"
)

// Override is a user-set quadrant that takes precedence over AI-derived
// classification.
type Override struct {
	Quadrant     Quadrant  `json:"quadrant"`
	Reason       string    `json:"reason,omitempty"`
	OverriddenAt time.Time `json:"overridden_at"`
}

// Task represents a task item owned by the external store. The cache holds a
// read/write-through copy.
type Task struct {
	ID                string     `json:"id"`
	UserID            uuid.UUID  `json:"user_id"`
	Title             string     `json:"title"`
	Status            TaskStatus `json:"status"`
	AIQuadrant        *Quadrant  `json:"ai_quadrant,omitempty"`
	EffectiveQuadrant *Quadrant  `json:"effective_quadrant,omitempty"`
	Override          *Override  `json:"manual_override,omitempty"`
	ManualOrder       *int       `json:"manual_order,omitempty"`
	DueDate           *time.Time `json:"due_date,omitempty"`
	DateCreated       time.Time  `json:"date_created"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

// Bucket returns the quadrant the task belongs to: the manual override wins,
// then the server-derived effective quadrant, then the AI assignment, and
// finally Q4 for unclassified tasks.
func (t *Task) Bucket() Quadrant {
	switch {
	case t.Override != nil:
		return t.Override.Quadrant
	case t.EffectiveQuadrant != nil:
		return *t.EffectiveQuadrant
	case t.AIQuadrant != nil:
		return *t.AIQuadrant
	default:
		return QuadrantQ4
	}
}

// Active reports whether the task participates in the matrix. Completed tasks
// are filtered out upstream; the engine only reacts to their absence.
func (t *Task) Active() bool {
	return t.Status != TaskStatusCompleted
}

// Clone returns a deep copy of the task.
func (t *Task) Clone() *Task {
	out := *t
	if t.AIQuadrant != nil {
		q := *t.AIQuadrant
		out.AIQuadrant = &q
	}
	if t.EffectiveQuadrant != nil {
		q := *t.EffectiveQuadrant
		out.EffectiveQuadrant = &q
	}
	if t.Override != nil {
		o := *t.Override
		out.Override = &o
	}
	if t.ManualOrder != nil {
		n := *t.ManualOrder
		out.ManualOrder = &n
	}
	if t.DueDate != nil {
		d := *t.DueDate
		out.DueDate = &d
	}
	return &out
}
