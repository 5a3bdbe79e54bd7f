package cache

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/quadtask/quadtask/internal/models"
	"go.uber.org/zap"
)

type fetchStore struct {
	mu      sync.Mutex
	tasks   []*models.Task
	fetches int
}

func (f *fetchStore) Fetch(ctx context.Context, userID uuid.UUID) ([]*models.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetches++
	return f.tasks, nil
}

func (f *fetchStore) SetQuadrant(ctx context.Context, userID uuid.UUID, taskID string, q models.Quadrant, reason, source string) (*models.Task, error) {
	return nil, nil
}

func (f *fetchStore) ResetQuadrant(ctx context.Context, userID uuid.UUID, taskID string) (*models.Task, error) {
	return nil, nil
}

func (f *fetchStore) Reorder(ctx context.Context, userID uuid.UUID, q models.Quadrant, orderedIDs []string) error {
	return nil
}

func (f *fetchStore) fetchCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fetches
}

type staticGate struct {
	mu     sync.Mutex
	active bool
}

func (g *staticGate) Active(userID uuid.UUID) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.active
}

func (g *staticGate) set(active bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.active = active
}

func TestRefresher_AppliesSnapshot(t *testing.T) {
	t.Parallel()

	userID := uuid.New()
	c := New()
	c.SetAll(userID, nil)

	st := &fetchStore{tasks: sampleTasks()}
	r := NewRefresher(c, st, nil, time.Minute, zap.NewNop())

	if err := r.RefreshUser(context.Background(), userID); err != nil {
		t.Fatalf("RefreshUser: %v", err)
	}
	if got := c.List(userID); len(got) != 2 {
		t.Errorf("expected snapshot applied, got %d tasks", len(got))
	}
	if st.fetchCount() != 1 {
		t.Errorf("expected 1 fetch, got %d", st.fetchCount())
	}
}

func TestRefresher_SuppressedWhileDragActive(t *testing.T) {
	t.Parallel()

	userID := uuid.New()
	c := New()
	c.SetAll(userID, sampleTasks())

	gate := &staticGate{active: true}
	st := &fetchStore{tasks: nil} // a fetch would wipe the cached tasks
	r := NewRefresher(c, st, gate, time.Minute, zap.NewNop())

	if err := r.RefreshUser(context.Background(), userID); err != nil {
		t.Fatalf("RefreshUser: %v", err)
	}
	if st.fetchCount() != 0 {
		t.Errorf("refresh must not even fetch while drag active, got %d fetches", st.fetchCount())
	}
	if got := c.List(userID); len(got) != 2 {
		t.Errorf("cached tasks must survive a suppressed refresh, got %d", len(got))
	}

	// Drag ends: the next tick applies normally.
	gate.set(false)
	if err := r.RefreshUser(context.Background(), userID); err != nil {
		t.Fatalf("RefreshUser after drag: %v", err)
	}
	if got := c.List(userID); len(got) != 0 {
		t.Errorf("expected fresh empty snapshot applied after drag, got %d", len(got))
	}
}

func TestRefresher_RefreshAllCoversKnownUsers(t *testing.T) {
	t.Parallel()

	c := New()
	userA := uuid.New()
	userB := uuid.New()
	c.SetAll(userA, nil)
	c.SetAll(userB, nil)

	st := &fetchStore{tasks: sampleTasks()}
	r := NewRefresher(c, st, nil, time.Minute, zap.NewNop())
	r.RefreshAll(context.Background())

	if st.fetchCount() != 2 {
		t.Errorf("expected one fetch per known user, got %d", st.fetchCount())
	}
	if len(c.List(userA)) != 2 || len(c.List(userB)) != 2 {
		t.Error("expected snapshots applied for both users")
	}
}
