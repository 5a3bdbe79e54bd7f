package matrix

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Manager owns at most one drag session per user and serializes all session
// mutation behind a single lock, standing in for the one-thread event loop of
// a browser front end. It is also the drag-active gate: the cache poller and
// the matrix read path both consult Active before trusting recomputed
// buckets over a live working copy.
type Manager struct {
	mu       sync.Mutex
	sessions map[uuid.UUID]*Session

	cache  TaskCache
	syncer *Syncer
	logger *zap.Logger

	// wg tracks fire-and-forget persistence goroutines so shutdown and tests
	// can drain them.
	wg sync.WaitGroup
}

// NewManager creates a session manager.
func NewManager(cache TaskCache, syncer *Syncer, logger *zap.Logger) *Manager {
	return &Manager{
		sessions: make(map[uuid.UUID]*Session),
		cache:    cache,
		syncer:   syncer,
		logger:   logger,
	}
}

// Active reports whether a drag session is in progress for the user. While
// true, background refresh results must not be applied and the bucketizer's
// output must not replace the working copy.
func (m *Manager) Active(userID uuid.UUID) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.sessions[userID]
	return ok
}

// Start begins a drag for taskID, snapshotting the committed bucket state
// computed from the cache. A session already in progress for the user is
// cancelled first; pointer input layers can emit a new drag-start before the
// previous drag's end event was delivered.
func (m *Manager) Start(userID uuid.UUID, taskID string) (Buckets, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.sessions[userID]; ok {
		m.logger.Warn("drag_start_replacing_live_session",
			zap.String("user_id", userID.String()),
			zap.String("task_id", taskID),
		)
		delete(m.sessions, userID)
	}

	committed := ComputeBuckets(m.cache.List(userID))
	session, err := NewSession(taskID, committed)
	if err != nil {
		return Buckets{}, err
	}
	m.sessions[userID] = session

	m.logger.Debug("drag_started",
		zap.String("user_id", userID.String()),
		zap.String("task_id", taskID),
		zap.String("source", session.Source().String()),
	)
	return session.Working(), nil
}

// Over applies one drag-over event to the user's session and returns the
// resulting working copy plus whether it changed. An invariant violation from
// the resolver cancels the session so the canonical bucketizer output takes
// over again; the defect is logged, never propagated as broken state.
func (m *Manager) Over(userID uuid.UUID, ev OverEvent) (Buckets, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	session, ok := m.sessions[userID]
	if !ok {
		return Buckets{}, false, ErrNoSession
	}

	changed, err := session.Over(ev)
	if err != nil {
		if errors.Is(err, ErrInvariant) {
			m.logger.Error("drag_over_invariant_violation",
				zap.String("user_id", userID.String()),
				zap.String("task_id", session.ActiveID()),
				zap.Error(err),
			)
			delete(m.sessions, userID)
		}
		return Buckets{}, false, err
	}
	return session.Working(), changed, nil
}

// End completes the user's drag. The optimistic cache updates are applied
// synchronously before the session is released, so the committed bucket
// arrangement already reflects the drop by the time Active turns false and a
// read recomputes from the cache. Only the remote writes run on a background
// goroutine, in the contract order (quadrant change before destination
// reorder), and never block the caller.
func (m *Manager) End(userID uuid.UUID) (Outcome, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	session, ok := m.sessions[userID]
	if !ok {
		return Outcome{}, ErrNoSession
	}
	delete(m.sessions, userID)

	outcome, err := session.End()
	if err != nil {
		m.logger.Error("drag_end_failed",
			zap.String("user_id", userID.String()),
			zap.Error(err),
		)
		return Outcome{}, err
	}

	switch outcome.Kind {
	case OutcomeNone:
		m.logger.Debug("drag_ended_no_change",
			zap.String("user_id", userID.String()),
			zap.String("task_id", outcome.TaskID),
		)
	case OutcomeMove:
		m.syncer.StageQuadrantChange(userID, outcome.TaskID, outcome.Quadrant, OverrideReasonMatrixMove)
		m.syncer.StageReorder(userID, outcome.Quadrant, outcome.OrderedIDs)
		m.dispatch(func(ctx context.Context) {
			m.syncer.PersistQuadrantChange(ctx, userID, outcome.TaskID, outcome.Quadrant, OverrideReasonMatrixMove, SourceMatrix)
			m.syncer.PersistReorder(ctx, userID, outcome.Quadrant, outcome.OrderedIDs)
		})
	case OutcomeReorder:
		m.syncer.StageReorder(userID, outcome.Quadrant, outcome.OrderedIDs)
		m.dispatch(func(ctx context.Context) {
			m.syncer.PersistReorder(ctx, userID, outcome.Quadrant, outcome.OrderedIDs)
		})
	}
	return outcome, nil
}

// Cancel discards the user's session, if any, with no persistence effect.
func (m *Manager) Cancel(userID uuid.UUID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if session, ok := m.sessions[userID]; ok {
		session.Cancel()
		delete(m.sessions, userID)
		m.logger.Debug("drag_cancelled", zap.String("user_id", userID.String()))
	}
}

// Working returns the live working copy for the user, if a drag is active.
func (m *Manager) Working(userID uuid.UUID) (Buckets, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	session, ok := m.sessions[userID]
	if !ok {
		return Buckets{}, false
	}
	return session.Working(), true
}

// Wait blocks until all dispatched persistence goroutines have finished.
// Used by graceful shutdown and tests; the drag path never calls it.
func (m *Manager) Wait() {
	m.wg.Wait()
}

func (m *Manager) dispatch(fn func(ctx context.Context)) {
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		// Deliberately detached from any request context: in-flight writes
		// are not cancelled or timed out, matching last-write-wins handling
		// at the store.
		fn(context.Background())
	}()
}
