// Package ai classifies tasks into Eisenhower quadrants using an LLM.
package ai

import (
	"context"

	"github.com/quadtask/quadtask/internal/models"
)

// Classification is the result of classifying one task.
type Classification struct {
	Quadrant  models.Quadrant `json:"quadrant"`
	Urgent    bool            `json:"urgent"`
	Important bool            `json:"important"`
	Rationale string          `json:"rationale,omitempty"`
}

// Provider is the interface for AI classification providers
type Provider interface {
	// ClassifyTask classifies a task into a quadrant based on its title and
	// due date.
	ClassifyTask(ctx context.Context, task *models.Task) (*Classification, error)
}

// ProviderFactory creates an AI provider based on the provider type
type ProviderFactory func(config map[string]string) (Provider, error)

// ProviderRegistry stores available AI providers
type ProviderRegistry struct {
	providers map[string]ProviderFactory
}

// NewProviderRegistry creates a new provider registry
func NewProviderRegistry() *ProviderRegistry {
	return &ProviderRegistry{
		providers: make(map[string]ProviderFactory),
	}
}

// Register registers a provider factory
func (r *ProviderRegistry) Register(name string, factory ProviderFactory) {
	r.providers[name] = factory
}

// GetProvider gets a provider by name
func (r *ProviderRegistry) GetProvider(name string, config map[string]string) (Provider, error) {
	factory, ok := r.providers[name]
	if !ok {
		return nil, &ErrProviderNotFound{Name: name}
	}

	return factory(config)
}

// ErrProviderNotFound is returned when a provider is not found
type ErrProviderNotFound struct {
	Name string
}

func (e *ErrProviderNotFound) Error() string {
	return "AI provider not found: " + e.Name
}
