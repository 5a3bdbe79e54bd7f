package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	"github.com/quadtask/quadtask/internal/models"
)

func TestClient_Fetch(t *testing.T) {
	t.Parallel()

	userID := uuid.New()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		wantPath := fmt.Sprintf("/api/v1/users/%s/tasks", userID)
		if r.URL.Path != wantPath {
			t.Errorf("path = %q, want %q", r.URL.Path, wantPath)
		}
		if got := r.URL.Query().Get("status"); got != "open" {
			t.Errorf("status query = %q, want open", got)
		}
		if r.Method != http.MethodGet {
			t.Errorf("method = %s, want GET", r.Method)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"tasks": []map[string]any{
				{"id": "t1", "title": "first"},
				{"id": "t2", "title": "second"},
			},
		})
	}))
	defer srv.Close()

	c := NewClientWithHTTP(srv.URL, srv.Client())
	tasks, err := c.Fetch(context.Background(), userID)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(tasks) != 2 || tasks[0].ID != "t1" || tasks[1].ID != "t2" {
		t.Errorf("tasks = %+v", tasks)
	}
}

func TestClient_SetQuadrant(t *testing.T) {
	t.Parallel()

	userID := uuid.New()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPatch {
			t.Errorf("method = %s, want PATCH", r.Method)
		}
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		if body["quadrant"] != "Q1" {
			t.Errorf("quadrant = %v, want Q1", body["quadrant"])
		}
		if body["source"] != "matrix" {
			t.Errorf("source = %v, want matrix", body["source"])
		}
		if _, ok := body["reset_to_ai"]; ok {
			t.Error("reset_to_ai must be omitted on a set")
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"id": "t1"})
	}))
	defer srv.Close()

	c := NewClientWithHTTP(srv.URL, srv.Client())
	task, err := c.SetQuadrant(context.Background(), userID, "t1", models.QuadrantQ1, "moved in matrix", "matrix")
	if err != nil {
		t.Fatalf("SetQuadrant: %v", err)
	}
	if task.ID != "t1" {
		t.Errorf("task id = %q, want t1", task.ID)
	}
}

func TestClient_ResetQuadrant(t *testing.T) {
	t.Parallel()

	userID := uuid.New()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		if body["reset_to_ai"] != true {
			t.Errorf("reset_to_ai = %v, want true", body["reset_to_ai"])
		}
		if _, ok := body["quadrant"]; ok {
			t.Error("quadrant must be omitted on a reset")
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":         "t1",
			"ai_quadrant": "Q2",
		})
	}))
	defer srv.Close()

	c := NewClientWithHTTP(srv.URL, srv.Client())
	task, err := c.ResetQuadrant(context.Background(), userID, "t1")
	if err != nil {
		t.Fatalf("ResetQuadrant: %v", err)
	}
	if task.AIQuadrant == nil || *task.AIQuadrant != models.QuadrantQ2 {
		t.Errorf("aiQuadrant = %v, want Q2", task.AIQuadrant)
	}
}

func TestClient_Reorder(t *testing.T) {
	t.Parallel()

	userID := uuid.New()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		wantPath := fmt.Sprintf("/api/v1/users/%s/quadrants/Q1/order", userID)
		if r.URL.Path != wantPath {
			t.Errorf("path = %q, want %q", r.URL.Path, wantPath)
		}
		if r.Method != http.MethodPut {
			t.Errorf("method = %s, want PUT", r.Method)
		}
		var body struct {
			TaskIDs []string `json:"task_ids"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		if len(body.TaskIDs) != 3 || body.TaskIDs[1] != "b" {
			t.Errorf("task_ids = %v, want [a b c]", body.TaskIDs)
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	c := NewClientWithHTTP(srv.URL, srv.Client())
	if err := c.Reorder(context.Background(), userID, models.QuadrantQ1, []string{"a", "b", "c"}); err != nil {
		t.Fatalf("Reorder: %v", err)
	}
}

func TestClient_SetAIQuadrant(t *testing.T) {
	t.Parallel()

	userID := uuid.New()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		wantPath := fmt.Sprintf("/api/v1/users/%s/tasks/t1/ai-quadrant", userID)
		if r.URL.Path != wantPath {
			t.Errorf("path = %q, want %q", r.URL.Path, wantPath)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"id": "t1", "ai_quadrant": "Q3"})
	}))
	defer srv.Close()

	c := NewClientWithHTTP(srv.URL, srv.Client())
	task, err := c.SetAIQuadrant(context.Background(), userID, "t1", models.QuadrantQ3)
	if err != nil {
		t.Fatalf("SetAIQuadrant: %v", err)
	}
	if task.AIQuadrant == nil || *task.AIQuadrant != models.QuadrantQ3 {
		t.Errorf("aiQuadrant = %v, want Q3", task.AIQuadrant)
	}
}

func TestClient_NotFound(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "no such task", http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewClientWithHTTP(srv.URL, srv.Client())
	_, err := c.FetchTask(context.Background(), uuid.New(), "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestClient_ServerError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "backend exploded", http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewClientWithHTTP(srv.URL, srv.Client())
	_, err := c.Fetch(context.Background(), uuid.New())
	if err == nil {
		t.Fatal("expected an error")
	}

	var httpErr *HTTPError
	if !errors.As(err, &httpErr) {
		t.Fatalf("err = %T, want *HTTPError", err)
	}
	if httpErr.StatusCode != http.StatusBadGateway {
		t.Errorf("status = %d, want 502", httpErr.StatusCode)
	}
	if httpErr.Message != "backend exploded" {
		t.Errorf("message = %q", httpErr.Message)
	}
}
