package matrix

import (
	"testing"
	"time"

	"github.com/quadtask/quadtask/internal/models"
)

func quadrantPtr(q models.Quadrant) *models.Quadrant { return &q }
func intPtr(n int) *int                              { return &n }

func task(id string, opts ...func(*models.Task)) *models.Task {
	t := &models.Task{
		ID:          id,
		Title:       "task " + id,
		Status:      models.TaskStatusOpen,
		DateCreated: time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func withAI(q models.Quadrant) func(*models.Task) {
	return func(t *models.Task) { t.AIQuadrant = quadrantPtr(q) }
}

func withEffective(q models.Quadrant) func(*models.Task) {
	return func(t *models.Task) { t.EffectiveQuadrant = quadrantPtr(q) }
}

func withOverride(q models.Quadrant) func(*models.Task) {
	return func(t *models.Task) {
		t.Override = &models.Override{Quadrant: q, OverriddenAt: time.Now()}
	}
}

func withOrder(n int) func(*models.Task) {
	return func(t *models.Task) { t.ManualOrder = intPtr(n) }
}

func withCreated(ts time.Time) func(*models.Task) {
	return func(t *models.Task) { t.DateCreated = ts }
}

func TestComputeBuckets_Precedence(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		task *models.Task
		want models.Quadrant
	}{
		{
			name: "override beats effective and ai",
			task: task("t1", withOverride(models.QuadrantQ3), withEffective(models.QuadrantQ1), withAI(models.QuadrantQ2)),
			want: models.QuadrantQ3,
		},
		{
			name: "effective beats ai",
			task: task("t1", withEffective(models.QuadrantQ1), withAI(models.QuadrantQ2)),
			want: models.QuadrantQ1,
		},
		{
			name: "ai alone",
			task: task("t1", withAI(models.QuadrantQ2)),
			want: models.QuadrantQ2,
		},
		{
			name: "unclassified defaults to Q4",
			task: task("t1"),
			want: models.QuadrantQ4,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			buckets := ComputeBuckets([]*models.Task{tt.task})
			gotQ, idx := buckets.IndexOf("t1")
			if idx < 0 {
				t.Fatalf("task missing from all buckets")
			}
			if gotQ != tt.want {
				t.Errorf("expected bucket %s, got %s", tt.want, gotQ)
			}
		})
	}
}

func TestComputeBuckets_Ordering(t *testing.T) {
	t.Parallel()

	older := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)
	newer := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)

	tasks := []*models.Task{
		task("unordered-old", withAI(models.QuadrantQ1), withCreated(older)),
		task("second", withAI(models.QuadrantQ1), withOrder(1)),
		task("first", withAI(models.QuadrantQ1), withOrder(0)),
		task("unordered-new", withAI(models.QuadrantQ1), withCreated(newer)),
	}

	buckets := ComputeBuckets(tasks)
	want := []string{"first", "second", "unordered-new", "unordered-old"}
	got := buckets[models.QuadrantQ1]
	if len(got) != len(want) {
		t.Fatalf("expected %d ids in Q1, got %d (%v)", len(want), len(got), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("position %d: expected %s, got %s (full: %v)", i, want[i], got[i], got)
		}
	}
}

func TestComputeBuckets_Scenario(t *testing.T) {
	t.Parallel()

	tasks := []*models.Task{
		task("1", withAI(models.QuadrantQ1)),
		task("2", withOverride(models.QuadrantQ4), withOrder(0)),
		task("3", withAI(models.QuadrantQ4), withOrder(1)),
	}

	buckets := ComputeBuckets(tasks)

	want := Buckets{
		{"1"},
		{},
		{},
		{"2", "3"},
	}
	if !buckets.Equal(want) {
		t.Errorf("expected %v, got %v", want, buckets)
	}
}

func TestComputeBuckets_Deterministic(t *testing.T) {
	t.Parallel()

	tasks := []*models.Task{
		task("a", withAI(models.QuadrantQ2)),
		task("b", withAI(models.QuadrantQ2)),
		task("c"),
	}

	first := ComputeBuckets(tasks)
	second := ComputeBuckets(tasks)
	if !first.Equal(second) {
		t.Errorf("two runs over the same input differ: %v vs %v", first, second)
	}
}

func TestComputeBuckets_SkipsCompleted(t *testing.T) {
	t.Parallel()

	done := task("done", withAI(models.QuadrantQ1))
	done.Status = models.TaskStatusCompleted

	buckets := ComputeBuckets([]*models.Task{done, task("open", withAI(models.QuadrantQ1))})
	if buckets.Contains("done") {
		t.Errorf("completed task should not appear in any bucket: %v", buckets)
	}
	if !buckets.Contains("open") {
		t.Errorf("open task missing: %v", buckets)
	}
}

func TestBuckets_CheckPartition(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		buckets Buckets
		ids     map[string]bool
		wantErr bool
	}{
		{
			name:    "valid partition",
			buckets: Buckets{{"a"}, {}, {"b"}, {}},
			ids:     map[string]bool{"a": true, "b": true},
			wantErr: false,
		},
		{
			name:    "duplicate id",
			buckets: Buckets{{"a"}, {"a"}, {}, {}},
			ids:     map[string]bool{"a": true},
			wantErr: true,
		},
		{
			name:    "missing id",
			buckets: Buckets{{"a"}, {}, {}, {}},
			ids:     map[string]bool{"a": true, "b": true},
			wantErr: true,
		},
		{
			name:    "unknown id",
			buckets: Buckets{{"a", "ghost"}, {}, {}, {}},
			ids:     map[string]bool{"a": true},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := tt.buckets.CheckPartition(tt.ids)
			if (err != nil) != tt.wantErr {
				t.Errorf("expected error=%v, got %v", tt.wantErr, err)
			}
		})
	}
}
