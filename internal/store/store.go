// Package store defines the task store contract the matrix engine consumes
// and provides the HTTP client for the TickTick-backed task service.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/quadtask/quadtask/internal/models"
)

// ErrNotFound is returned when the store does not know the requested task.
var ErrNotFound = errors.New("task not found")

// TaskStore is the narrow surface of the external task store. The engine
// treats the store as last-write-wins: no versioning, no conflict detection.
type TaskStore interface {
	// Fetch returns the user's open tasks with their current classification.
	Fetch(ctx context.Context, userID uuid.UUID) ([]*models.Task, error)

	// SetQuadrant sets the manual override quadrant on a task. source
	// distinguishes matrix-driven changes from other UI paths for auditing.
	// The updated task is returned.
	SetQuadrant(ctx context.Context, userID uuid.UUID, taskID string, q models.Quadrant, reason, source string) (*models.Task, error)

	// ResetQuadrant clears the manual override, restoring the AI-derived
	// classification, and returns the full updated task.
	ResetQuadrant(ctx context.Context, userID uuid.UUID, taskID string) (*models.Task, error)

	// Reorder persists the full ordered id list for one bucket.
	Reorder(ctx context.Context, userID uuid.UUID, q models.Quadrant, orderedIDs []string) error
}

// HTTPError is a non-2xx response from the task service.
type HTTPError struct {
	StatusCode int
	Message    string
}

func (e *HTTPError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("task store: http %d", e.StatusCode)
	}
	return fmt.Sprintf("task store: http %d: %s", e.StatusCode, e.Message)
}
