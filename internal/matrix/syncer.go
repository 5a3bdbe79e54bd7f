package matrix

import (
	"context"

	"github.com/google/uuid"
	"github.com/quadtask/quadtask/internal/models"
	"github.com/quadtask/quadtask/internal/store"
	"go.uber.org/zap"
)

const (
	// OverrideReasonMatrixMove is the reason recorded on overrides created by
	// dragging a task between quadrants.
	OverrideReasonMatrixMove = "moved in matrix"
	// SourceUser tags override writes made directly through the task UI
	// rather than by dragging in the matrix.
	SourceUser = "user"
	// SourceMatrix tags store writes that originate from the matrix, so the
	// audit trail can tell them apart from other UI paths.
	SourceMatrix = "matrix"
)

// TaskCache is the slice of the cache the engine needs: reading a user's
// tasks and applying optimistic updates ahead of the remote write.
type TaskCache interface {
	List(userID uuid.UUID) []*models.Task
	ApplyOverride(userID uuid.UUID, taskID string, q models.Quadrant, reason string) bool
	ApplyOrder(userID uuid.UUID, q models.Quadrant, orderedIDs []string) int
	Replace(userID uuid.UUID, task *models.Task)
}

// AuditRecorder receives a record of every quadrant override write. Optional;
// a nil recorder disables auditing.
type AuditRecorder interface {
	RecordOverride(ctx context.Context, userID uuid.UUID, taskID string, q models.Quadrant, reason, source string) error
}

// Syncer pushes finished drag results to the task store. Local cache state is
// updated optimistically before each write; remote failures are logged and
// deliberately not rolled back, leaving the poller to reconcile local and
// remote state on the next refresh.
type Syncer struct {
	store  store.TaskStore
	cache  TaskCache
	audit  AuditRecorder
	logger *zap.Logger
}

// NewSyncer creates a synchronizer. audit may be nil.
func NewSyncer(st store.TaskStore, cache TaskCache, audit AuditRecorder, logger *zap.Logger) *Syncer {
	return &Syncer{store: st, cache: cache, audit: audit, logger: logger}
}

// ApplyQuadrantChange sets a manual override on the cached task and issues
// the classification write to the store. For a cross-container drop this must
// run before ApplyReorder for the destination bucket: the reorder write is
// defined over "all ids currently in that bucket" and has to see the moved
// id's new membership. source tags the write's origin for the audit trail.
func (s *Syncer) ApplyQuadrantChange(ctx context.Context, userID uuid.UUID, taskID string, q models.Quadrant, reason, source string) {
	if reason == "" {
		reason = OverrideReasonMatrixMove
	}
	s.StageQuadrantChange(userID, taskID, q, reason)
	s.PersistQuadrantChange(ctx, userID, taskID, q, reason, source)
}

// StageQuadrantChange applies only the optimistic cache side of a quadrant
// change. The drag path runs this synchronously so the committed buckets
// already reflect the drop when the session releases the working copy; the
// remote write follows via PersistQuadrantChange.
func (s *Syncer) StageQuadrantChange(userID uuid.UUID, taskID string, q models.Quadrant, reason string) {
	if !s.cache.ApplyOverride(userID, taskID, q, reason) {
		s.logger.Warn("quadrant_change_task_not_cached",
			zap.String("task_id", taskID),
			zap.String("quadrant", q.String()),
		)
	}
}

// PersistQuadrantChange issues the override write to the store and records
// the audit entry. Failures are logged, never rolled back.
func (s *Syncer) PersistQuadrantChange(ctx context.Context, userID uuid.UUID, taskID string, q models.Quadrant, reason, source string) {
	if _, err := s.store.SetQuadrant(ctx, userID, taskID, q, reason, source); err != nil {
		s.logger.Error("quadrant_change_write_failed",
			zap.String("task_id", taskID),
			zap.String("quadrant", q.String()),
			zap.Error(err),
		)
		return
	}

	if s.audit != nil {
		if err := s.audit.RecordOverride(ctx, userID, taskID, q, reason, source); err != nil {
			s.logger.Warn("override_audit_failed",
				zap.String("task_id", taskID),
				zap.Error(err),
			)
		}
	}

	s.logger.Info("quadrant_change_applied",
		zap.String("task_id", taskID),
		zap.String("quadrant", q.String()),
	)
}

// ApplyReorder assigns each cached task in quadrant q the manual order given
// by its position in orderedIDs, then writes the full ordered id list for
// that bucket to the store. Ids in orderedIDs that are not currently cached
// in q are skipped locally but still sent, the store owns membership.
func (s *Syncer) ApplyReorder(ctx context.Context, userID uuid.UUID, q models.Quadrant, orderedIDs []string) {
	s.StageReorder(userID, q, orderedIDs)
	s.PersistReorder(ctx, userID, q, orderedIDs)
}

// StageReorder applies only the optimistic manual-order assignment to the
// cache, returning the number of cached tasks updated.
func (s *Syncer) StageReorder(userID uuid.UUID, q models.Quadrant, orderedIDs []string) int {
	applied := s.cache.ApplyOrder(userID, q, orderedIDs)
	s.logger.Debug("reorder_staged",
		zap.String("quadrant", q.String()),
		zap.Int("ids", len(orderedIDs)),
		zap.Int("cached_updates", applied),
	)
	return applied
}

// PersistReorder writes the full ordered id list for the bucket to the store.
func (s *Syncer) PersistReorder(ctx context.Context, userID uuid.UUID, q models.Quadrant, orderedIDs []string) {
	if err := s.store.Reorder(ctx, userID, q, orderedIDs); err != nil {
		s.logger.Error("reorder_write_failed",
			zap.String("quadrant", q.String()),
			zap.Int("ids", len(orderedIDs)),
			zap.Error(err),
		)
		return
	}

	s.logger.Info("reorder_applied",
		zap.String("quadrant", q.String()),
		zap.Int("ids", len(orderedIDs)),
	)
}

// ResetToAI discards a task's manual classification and restores the
// AI-assigned one. The store is authoritative here: no optimistic update is
// possible because the restored bucket and order cannot be predicted locally,
// so the cache entry is replaced wholesale with the store's response.
func (s *Syncer) ResetToAI(ctx context.Context, userID uuid.UUID, taskID string) (*models.Task, error) {
	task, err := s.store.ResetQuadrant(ctx, userID, taskID)
	if err != nil {
		return nil, err
	}
	s.cache.Replace(userID, task)

	if s.audit != nil {
		if err := s.audit.RecordOverride(ctx, userID, taskID, task.Bucket(), "reset to AI classification", SourceMatrix); err != nil {
			s.logger.Warn("override_audit_failed",
				zap.String("task_id", taskID),
				zap.Error(err),
			)
		}
	}

	s.logger.Info("override_reset",
		zap.String("task_id", taskID),
		zap.String("quadrant", task.Bucket().String()),
	)
	return task, nil
}
