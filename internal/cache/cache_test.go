package cache

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/quadtask/quadtask/internal/models"
)

func quadrantPtr(q models.Quadrant) *models.Quadrant { return &q }

func sampleTasks() []*models.Task {
	created := time.Date(2026, 8, 10, 9, 0, 0, 0, time.UTC)
	return []*models.Task{
		{ID: "t1", Title: "write report", Status: models.TaskStatusOpen, AIQuadrant: quadrantPtr(models.QuadrantQ1), DateCreated: created},
		{ID: "t2", Title: "file expenses", Status: models.TaskStatusOpen, AIQuadrant: quadrantPtr(models.QuadrantQ3), DateCreated: created},
	}
}

func TestCache_SetAllAndList(t *testing.T) {
	t.Parallel()

	userID := uuid.New()
	c := New()
	c.SetAll(userID, sampleTasks())

	got := c.List(userID)
	if len(got) != 2 {
		t.Fatalf("expected 2 tasks, got %d", len(got))
	}
	if !c.Known(userID) {
		t.Error("user should be known after SetAll")
	}

	// A later snapshot replaces the whole set; absent tasks leave the cache.
	c.SetAll(userID, sampleTasks()[:1])
	if got := c.List(userID); len(got) != 1 || got[0].ID != "t1" {
		t.Errorf("expected only t1 after replacement, got %v", got)
	}
}

func TestCache_ReturnsCopies(t *testing.T) {
	t.Parallel()

	userID := uuid.New()
	c := New()
	c.SetAll(userID, sampleTasks())

	got := c.Get(userID, "t1")
	got.Title = "mutated"
	*got.AIQuadrant = models.QuadrantQ4

	again := c.Get(userID, "t1")
	if again.Title != "write report" {
		t.Error("cache entry shared memory with an accessor result")
	}
	if *again.AIQuadrant != models.QuadrantQ1 {
		t.Error("cache entry quadrant shared memory with an accessor result")
	}
}

func TestCache_ApplyOverride(t *testing.T) {
	t.Parallel()

	userID := uuid.New()
	c := New()
	c.SetAll(userID, sampleTasks())

	if !c.ApplyOverride(userID, "t2", models.QuadrantQ1, "moved in matrix") {
		t.Fatal("expected override to apply to cached task")
	}
	got := c.Get(userID, "t2")
	if got.Override == nil || got.Override.Quadrant != models.QuadrantQ1 {
		t.Errorf("expected Q1 override, got %+v", got.Override)
	}
	if got.Override.OverriddenAt.IsZero() {
		t.Error("override timestamp not set")
	}

	if c.ApplyOverride(userID, "missing", models.QuadrantQ1, "x") {
		t.Error("override on unknown task must report false")
	}
}

func TestCache_ApplyOrderFiltersByBucket(t *testing.T) {
	t.Parallel()

	userID := uuid.New()
	c := New()
	c.SetAll(userID, sampleTasks())

	// t2 lives in Q3; a Q1 reorder listing it must skip it.
	applied := c.ApplyOrder(userID, models.QuadrantQ1, []string{"t1", "t2", "ghost"})
	if applied != 1 {
		t.Fatalf("expected 1 applied update, got %d", applied)
	}
	if got := c.Get(userID, "t1"); got.ManualOrder == nil || *got.ManualOrder != 0 {
		t.Errorf("expected t1 order 0, got %v", got.ManualOrder)
	}
	if got := c.Get(userID, "t2"); got.ManualOrder != nil {
		t.Errorf("t2 outside the bucket must keep nil order, got %v", got.ManualOrder)
	}
}

func TestCache_Replace(t *testing.T) {
	t.Parallel()

	userID := uuid.New()
	c := New()
	c.SetAll(userID, sampleTasks())

	updated := &models.Task{ID: "t1", Title: "write report v2", Status: models.TaskStatusOpen}
	c.Replace(userID, updated)

	if got := c.Get(userID, "t1"); got.Title != "write report v2" {
		t.Errorf("expected replaced entry, got %q", got.Title)
	}
	if got := c.List(userID); len(got) != 2 {
		t.Errorf("replace must not drop other entries, got %d", len(got))
	}
}
