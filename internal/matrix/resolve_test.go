package matrix

import (
	"errors"
	"testing"

	"github.com/quadtask/quadtask/internal/models"
)

func rectPtr(top, height float64) *Rect {
	return &Rect{Top: top, Height: height}
}

func TestResolve_InsertionGeometry(t *testing.T) {
	t.Parallel()

	// Hovered item at top=100, height=40; midpoint 120.
	base := Buckets{
		{"t3", "t9"},
		{"t7"},
		{},
		{},
	}

	tests := []struct {
		name       string
		pointerTop float64
		want       []string
	}{
		{
			name:       "pointer above midpoint inserts before hovered item",
			pointerTop: 115,
			want:       []string{"t7", "t3", "t9"},
		},
		{
			name:       "pointer below midpoint inserts after hovered item",
			pointerTop: 125,
			want:       []string{"t3", "t7", "t9"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := Resolve(base, "t7", models.QuadrantQ1, "t3",
				Rect{Top: tt.pointerTop, Height: 40}, rectPtr(100, 40))
			if err != nil {
				t.Fatalf("Resolve: %v", err)
			}
			assertBucket(t, got, models.QuadrantQ1, tt.want)
			assertBucket(t, got, models.QuadrantQ2, nil)
		})
	}
}

func TestResolve_CrossContainer(t *testing.T) {
	t.Parallel()

	base := Buckets{
		{"a", "b"},
		{"x", "y"},
		{},
		{},
	}

	t.Run("hover over empty container body appends", func(t *testing.T) {
		t.Parallel()
		got, err := Resolve(base, "a", models.QuadrantQ3, "", Rect{Top: 10}, nil)
		if err != nil {
			t.Fatalf("Resolve: %v", err)
		}
		assertBucket(t, got, models.QuadrantQ1, []string{"b"})
		assertBucket(t, got, models.QuadrantQ3, []string{"a"})
	})

	t.Run("hover below all items appends at end", func(t *testing.T) {
		t.Parallel()
		got, err := Resolve(base, "a", models.QuadrantQ2, "", Rect{Top: 500}, nil)
		if err != nil {
			t.Fatalf("Resolve: %v", err)
		}
		assertBucket(t, got, models.QuadrantQ2, []string{"x", "y", "a"})
	})

	t.Run("hover over item drops between items", func(t *testing.T) {
		t.Parallel()
		// Over "y" at top=200 height=40, pointer above midpoint 220.
		got, err := Resolve(base, "b", models.QuadrantQ2, "y", Rect{Top: 205}, rectPtr(200, 40))
		if err != nil {
			t.Fatalf("Resolve: %v", err)
		}
		assertBucket(t, got, models.QuadrantQ1, []string{"a"})
		assertBucket(t, got, models.QuadrantQ2, []string{"x", "b", "y"})
	})
}

func TestResolve_SameContainer(t *testing.T) {
	t.Parallel()

	base := Buckets{
		{"a", "b", "c", "d"},
		{},
		{},
		{},
	}

	tests := []struct {
		name     string
		active   string
		overItem string
		pointer  Rect
		overRect *Rect
		want     []string
	}{
		{
			name:     "move down past removal point",
			active:   "a",
			overItem: "c",
			pointer:  Rect{Top: 130}, // below midpoint 120
			overRect: rectPtr(100, 40),
			want:     []string{"b", "c", "a", "d"},
		},
		{
			name:     "move up before hovered item",
			active:   "d",
			overItem: "b",
			pointer:  Rect{Top: 105}, // above midpoint 120
			overRect: rectPtr(100, 40),
			want:     []string{"a", "d", "b", "c"},
		},
		{
			name:     "hover own position is a no-op",
			active:   "b",
			overItem: "b",
			pointer:  Rect{Top: 100},
			overRect: rectPtr(100, 40),
			want:     []string{"a", "b", "c", "d"},
		},
		{
			name:     "hover container body moves to end",
			active:   "a",
			overItem: "",
			pointer:  Rect{Top: 400},
			want:     []string{"b", "c", "d", "a"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := Resolve(base, tt.active, models.QuadrantQ1, tt.overItem, tt.pointer, tt.overRect)
			if err != nil {
				t.Fatalf("Resolve: %v", err)
			}
			assertBucket(t, got, models.QuadrantQ1, tt.want)
		})
	}
}

func TestResolve_PreservesPartition(t *testing.T) {
	t.Parallel()

	base := Buckets{
		{"a", "b"},
		{"c"},
		{"d", "e", "f"},
		{},
	}
	ids := map[string]bool{"a": true, "b": true, "c": true, "d": true, "e": true, "f": true}

	moves := []struct {
		active   string
		target   models.Quadrant
		overItem string
	}{
		{"a", models.QuadrantQ2, "c"},
		{"f", models.QuadrantQ4, ""},
		{"c", models.QuadrantQ3, "e"},
		{"b", models.QuadrantQ1, ""},
	}

	working := base
	for _, mv := range moves {
		next, err := Resolve(working, mv.active, mv.target, mv.overItem, Rect{Top: 50}, rectPtr(40, 40))
		if err != nil {
			t.Fatalf("Resolve(%s → %s): %v", mv.active, mv.target, err)
		}
		if err := next.CheckPartition(ids); err != nil {
			t.Fatalf("partition violated after moving %s: %v", mv.active, err)
		}
		working = next
	}
}

func TestResolve_UnknownActiveID(t *testing.T) {
	t.Parallel()

	base := Buckets{{"a"}, {}, {}, {}}
	if _, err := Resolve(base, "ghost", models.QuadrantQ1, "", Rect{}, nil); err == nil {
		t.Fatal("expected error for unknown active id")
	}
}

func TestResolve_DoesNotMutateInput(t *testing.T) {
	t.Parallel()

	base := Buckets{{"a", "b"}, {}, {}, {}}
	snapshot := base.Clone()

	if _, err := Resolve(base, "a", models.QuadrantQ2, "", Rect{}, nil); err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if !base.Equal(snapshot) {
		t.Errorf("input mutated: before %v, after %v", snapshot, base)
	}
}

func TestErrInvariantIdentity(t *testing.T) {
	t.Parallel()

	buckets := Buckets{{"a", "a"}, {}, {}, {}}
	err := buckets.CheckPartition(map[string]bool{"a": true})
	if !errors.Is(err, ErrInvariant) {
		t.Errorf("expected ErrInvariant, got %v", err)
	}
}

func assertBucket(t *testing.T, b Buckets, q models.Quadrant, want []string) {
	t.Helper()
	got := b[q]
	if len(got) != len(want) {
		t.Fatalf("bucket %s: expected %v, got %v", q, want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("bucket %s: expected %v, got %v", q, want, got)
		}
	}
}
