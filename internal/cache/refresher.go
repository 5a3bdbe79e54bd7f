package cache

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/quadtask/quadtask/internal/models"
	"github.com/quadtask/quadtask/internal/store"
	"go.uber.org/zap"
)

// DragGate reports whether a drag session is in progress for a user. The
// refresher must not apply a fetched snapshot while one is: overwriting the
// cache mid-drag would hand the bucketizer a task set that silently discards
// the drag-in-progress arrangement.
type DragGate interface {
	Active(userID uuid.UUID) bool
}

// Refresher polls the task store and replaces each known user's cached task
// set. Refresh is suppressed per user while that user is dragging; a pending
// remote write never suppresses it, divergence from a failed write is
// repaired by whichever refresh lands next.
type Refresher struct {
	cache     *Cache
	store     store.TaskStore
	gate      DragGate
	interval  time.Duration
	logger    *zap.Logger
	onRefresh func(ctx context.Context, userID uuid.UUID, tasks []*models.Task)
}

// NewRefresher creates a refresher. gate may be nil, disabling suppression.
func NewRefresher(c *Cache, st store.TaskStore, gate DragGate, interval time.Duration, logger *zap.Logger) *Refresher {
	return &Refresher{cache: c, store: st, gate: gate, interval: interval, logger: logger}
}

// SetRefreshHandler registers a callback invoked with each applied snapshot.
// The server uses it to enqueue classification jobs for tasks that arrive
// without an AI quadrant.
func (r *Refresher) SetRefreshHandler(fn func(ctx context.Context, userID uuid.UUID, tasks []*models.Task)) {
	r.onRefresh = fn
}

// Run polls until ctx is cancelled.
func (r *Refresher) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.RefreshAll(ctx)
		}
	}
}

// RefreshAll refreshes every known user once, skipping users mid-drag.
func (r *Refresher) RefreshAll(ctx context.Context) {
	for _, userID := range r.cache.Users() {
		if err := r.RefreshUser(ctx, userID); err != nil {
			r.logger.Warn("task_refresh_failed",
				zap.String("user_id", userID.String()),
				zap.Error(err),
			)
		}
	}
}

// RefreshUser fetches the user's tasks and applies them unless the user has
// an active drag session, in which case the fetch is skipped entirely and
// retried on the next tick.
func (r *Refresher) RefreshUser(ctx context.Context, userID uuid.UUID) error {
	if r.gate != nil && r.gate.Active(userID) {
		r.logger.Debug("task_refresh_suppressed_drag_active",
			zap.String("user_id", userID.String()),
		)
		return nil
	}

	tasks, err := r.store.Fetch(ctx, userID)
	if err != nil {
		return err
	}

	// Re-check after the fetch: a drag may have started while it was in
	// flight, and applying a stale snapshot now would snap the drag visuals.
	if r.gate != nil && r.gate.Active(userID) {
		r.logger.Debug("task_refresh_discarded_drag_started",
			zap.String("user_id", userID.String()),
		)
		return nil
	}

	r.cache.SetAll(userID, tasks)
	r.logger.Debug("task_refresh_applied",
		zap.String("user_id", userID.String()),
		zap.Int("tasks", len(tasks)),
	)

	if r.onRefresh != nil {
		r.onRefresh(ctx, userID, tasks)
	}
	return nil
}
