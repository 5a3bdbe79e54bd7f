package ai

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/quadtask/quadtask/internal/models"
)

func TestBuildClassificationPrompt(t *testing.T) {
	t.Parallel()

	created := time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)
	due := time.Date(2024, 3, 20, 18, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		task     *models.Task
		validate func(*testing.T, string)
	}{
		{
			name: "includes title and time context",
			task: &models.Task{ID: "t1", Title: "File taxes", DateCreated: created},
			validate: func(t *testing.T, prompt string) {
				if !strings.Contains(prompt, `"File taxes"`) {
					t.Error("expected prompt to include the task title")
				}
				if !strings.Contains(prompt, "Time context:") {
					t.Error("expected prompt to include 'Time context:'")
				}
				if !strings.Contains(prompt, created.Format(time.RFC3339)) {
					t.Error("expected prompt to include creation time in RFC3339 format")
				}
			},
		},
		{
			name: "notes missing due date",
			task: &models.Task{ID: "t1", Title: "Read book", DateCreated: created},
			validate: func(t *testing.T, prompt string) {
				if !strings.Contains(prompt, "No due date set") {
					t.Error("expected prompt to note the absent due date")
				}
			},
		},
		{
			name: "includes due date when present",
			task: &models.Task{ID: "t1", Title: "Submit report", DateCreated: created, DueDate: &due},
			validate: func(t *testing.T, prompt string) {
				if !strings.Contains(prompt, due.Format(time.RFC3339)) {
					t.Error("expected prompt to include due date")
				}
				if !strings.Contains(prompt, "Days until due:") {
					t.Error("expected prompt to include days until due")
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			tt.validate(t, buildClassificationPrompt(tt.task))
		})
	}
}

func TestParseClassificationResponse(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		content string
		want    models.Quadrant
		wantErr bool
	}{
		{
			name:    "urgent and important",
			content: `{"urgent": true, "important": true, "rationale": "due tomorrow"}`,
			want:    models.QuadrantQ1,
		},
		{
			name:    "important only",
			content: `{"urgent": false, "important": true}`,
			want:    models.QuadrantQ2,
		},
		{
			name:    "urgent only",
			content: `{"urgent": true, "important": false}`,
			want:    models.QuadrantQ3,
		},
		{
			name:    "neither",
			content: `{"urgent": false, "important": false}`,
			want:    models.QuadrantQ4,
		},
		{
			name:    "json wrapped in prose",
			content: "Here is my answer:\n{\"urgent\": true, \"important\": true}\nHope that helps.",
			want:    models.QuadrantQ1,
		},
		{
			name:    "malformed response",
			content: "not json at all",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := parseClassificationResponse(tt.content)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected an error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got.Quadrant != tt.want {
				t.Errorf("quadrant = %v, want %v", got.Quadrant, tt.want)
			}
		})
	}
}

func TestQuadrantFor(t *testing.T) {
	t.Parallel()

	tests := []struct {
		urgent    bool
		important bool
		want      models.Quadrant
	}{
		{true, true, models.QuadrantQ1},
		{false, true, models.QuadrantQ2},
		{true, false, models.QuadrantQ3},
		{false, false, models.QuadrantQ4},
	}

	for _, tt := range tests {
		if got := QuadrantFor(tt.urgent, tt.important); got != tt.want {
			t.Errorf("QuadrantFor(%v, %v) = %v, want %v", tt.urgent, tt.important, got, tt.want)
		}
	}
}

func TestProviderRegistry(t *testing.T) {
	t.Parallel()

	registry := NewProviderRegistry()
	registry.Register("openai", func(config map[string]string) (Provider, error) {
		return NewOpenAIProvider(config["api_key"], config["model"]), nil
	})

	provider, err := registry.GetProvider("openai", map[string]string{
		"api_key": "sk-test",
		"model":   "gpt-4o-mini",
	})
	if err != nil {
		t.Fatalf("GetProvider: %v", err)
	}
	if provider == nil {
		t.Fatal("expected a provider")
	}

	_, err = registry.GetProvider("anthropic", nil)
	var notFound *ErrProviderNotFound
	if !errors.As(err, &notFound) {
		t.Fatalf("expected ErrProviderNotFound, got %v", err)
	}
	if notFound.Name != "anthropic" {
		t.Errorf("expected missing provider name in error, got %q", notFound.Name)
	}
}

func TestSanitizeAPIKey(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		key  string
		want string
	}{
		{"empty", "", ""},
		{"short key fully redacted", "sk-short", RedactedValue},
		{"long key keeps edges", "sk-abcdefghijklmnop", "sk-a" + RedactedValue + "mnop"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := SanitizeAPIKey(tt.key); got != tt.want {
				t.Errorf("SanitizeAPIKey(%q) = %q, want %q", tt.key, got, tt.want)
			}
		})
	}
}
