// Package queue carries classification jobs from the API to the worker.
package queue

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// JobType represents the type of job
type JobType string

const (
	// JobTypeClassifyTask asks the worker to classify one task into a
	// quadrant.
	JobTypeClassifyTask JobType = "classify_task"
	// JobTypeReclassifyUser asks the worker to re-run classification over
	// every unclassified task of one user.
	JobTypeReclassifyUser JobType = "reclassify_user"
)

// Job represents a job in the queue
type Job struct {
	ID         uuid.UUID `json:"id"`
	Type       JobType   `json:"type"`
	UserID     uuid.UUID `json:"user_id"`
	TaskID     string    `json:"task_id,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	RetryCount int       `json:"retry_count"`
	MaxRetries int       `json:"max_retries"`
}

// NewJob creates a new job
func NewJob(jobType JobType, userID uuid.UUID, taskID string) *Job {
	return &Job{
		ID:         uuid.New(),
		Type:       jobType,
		UserID:     userID,
		TaskID:     taskID,
		CreatedAt:  time.Now(),
		MaxRetries: 3,
	}
}

// CanRetry checks if the job can be retried
func (j *Job) CanRetry() bool {
	return j.RetryCount < j.MaxRetries
}

// Message is a delivered job plus its acknowledgement handle.
type Message struct {
	Job  *Job
	ack  func() error
	nack func(requeue bool) error
}

// Ack acknowledges the message.
func (m *Message) Ack() error {
	if m.ack == nil {
		return nil
	}
	return m.ack()
}

// Nack rejects the message, optionally requeueing it.
func (m *Message) Nack(requeue bool) error {
	if m.nack == nil {
		return nil
	}
	return m.nack(requeue)
}

// NewMessage builds a message with explicit ack handlers; tests use this to
// fabricate deliveries.
func NewMessage(job *Job, ack func() error, nack func(requeue bool) error) *Message {
	return &Message{Job: job, ack: ack, nack: nack}
}

// JobQueue is the interface for job queues
type JobQueue interface {
	// Enqueue adds a job to the queue
	Enqueue(ctx context.Context, job *Job) error

	// Consume returns a channel of messages from the queue. The caller must
	// acknowledge each message. The channel closes when ctx is cancelled or
	// the connection drops.
	Consume(ctx context.Context, prefetchCount int) (<-chan *Message, <-chan error, error)

	// Close closes the queue connection
	Close() error

	// HealthCheck verifies the queue connection is healthy
	HealthCheck(ctx context.Context) error
}
