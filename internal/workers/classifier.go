// Package workers consumes classification jobs and writes results back to
// the task store.
package workers

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/quadtask/quadtask/internal/models"
	"github.com/quadtask/quadtask/internal/queue"
	"github.com/quadtask/quadtask/internal/services/ai"
)

// ClassifierStore is the slice of the task store the classifier needs.
type ClassifierStore interface {
	Fetch(ctx context.Context, userID uuid.UUID) ([]*models.Task, error)
	FetchTask(ctx context.Context, userID uuid.UUID, taskID string) (*models.Task, error)
	SetAIQuadrant(ctx context.Context, userID uuid.UUID, taskID string, q models.Quadrant) (*models.Task, error)
}

// Classifier processes classification jobs
type Classifier struct {
	provider ai.Provider
	store    ClassifierStore
	jobQueue queue.JobQueue // for re-enqueueing retryable jobs
	logger   *zap.Logger

	// retryDelay computes the backoff before a retryable job is
	// re-enqueued. Tests shorten it.
	retryDelay func(err error, attempt int) time.Duration
}

// NewClassifier creates a new classifier
func NewClassifier(provider ai.Provider, store ClassifierStore, jobQueue queue.JobQueue, logger *zap.Logger) *Classifier {
	return &Classifier{
		provider:   provider,
		store:      store,
		jobQueue:   jobQueue,
		logger:     logger,
		retryDelay: ai.GetRetryDelay,
	}
}

// Run consumes jobs until ctx is cancelled or the queue closes.
func (c *Classifier) Run(ctx context.Context, prefetchCount int) error {
	msgs, errs, err := c.jobQueue.Consume(ctx, prefetchCount)
	if err != nil {
		return fmt.Errorf("failed to start consuming: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case consumeErr, ok := <-errs:
			if ok && consumeErr != nil {
				return fmt.Errorf("consumer failed: %w", consumeErr)
			}
		case msg, ok := <-msgs:
			if !ok {
				return nil
			}
			if err := c.ProcessJob(ctx, msg); err != nil {
				c.logger.Warn("job processing failed",
					zap.String("job_id", msg.Job.ID.String()),
					zap.String("job_type", string(msg.Job.Type)),
					zap.Error(err))
			}
		}
	}
}

// ProcessJob processes a job based on its type
func (c *Classifier) ProcessJob(ctx context.Context, msg *queue.Message) error {
	job := msg.Job

	switch job.Type {
	case queue.JobTypeClassifyTask:
		if err := c.processClassifyTaskJob(ctx, job); err != nil {
			return c.handleJobError(ctx, msg, job, err)
		}
		if ackErr := msg.Ack(); ackErr != nil {
			return fmt.Errorf("failed to ack job: %w", ackErr)
		}
		return nil

	case queue.JobTypeReclassifyUser:
		if err := c.processReclassifyUserJob(ctx, job); err != nil {
			// Reclassification sweeps are best-effort; dead-letter on failure.
			if nackErr := msg.Nack(false); nackErr != nil {
				c.logger.Warn("failed to nack reclassify job", zap.Error(nackErr))
			}
			return fmt.Errorf("reclassification failed: %w", err)
		}
		if ackErr := msg.Ack(); ackErr != nil {
			return fmt.Errorf("failed to ack reclassify job: %w", ackErr)
		}
		return nil

	default:
		if nackErr := msg.Nack(false); nackErr != nil {
			c.logger.Warn("failed to nack unknown job type", zap.Error(nackErr))
		}
		return fmt.Errorf("unknown job type: %s", job.Type)
	}
}

// processClassifyTaskJob classifies a single task and records the result.
func (c *Classifier) processClassifyTaskJob(ctx context.Context, job *queue.Job) error {
	if job.TaskID == "" {
		return fmt.Errorf("task_id is required for classify job")
	}

	task, err := c.store.FetchTask(ctx, job.UserID, job.TaskID)
	if err != nil {
		return fmt.Errorf("failed to get task: %w", err)
	}

	if task.Status == models.TaskStatusCompleted {
		c.logger.Debug("skipping completed task",
			zap.String("task_id", task.ID))
		return nil
	}

	result, err := c.provider.ClassifyTask(ctx, task)
	if err != nil {
		return fmt.Errorf("failed to classify task: %w", err)
	}

	if _, err := c.store.SetAIQuadrant(ctx, job.UserID, task.ID, result.Quadrant); err != nil {
		return fmt.Errorf("failed to save classification: %w", err)
	}

	c.logger.Info("classified task",
		zap.String("task_id", task.ID),
		zap.String("user_id", job.UserID.String()),
		zap.String("quadrant", result.Quadrant.String()),
		zap.Bool("urgent", result.Urgent),
		zap.Bool("important", result.Important))
	return nil
}

// processReclassifyUserJob classifies every open task of one user that has
// no AI quadrant yet.
func (c *Classifier) processReclassifyUserJob(ctx context.Context, job *queue.Job) error {
	tasks, err := c.store.Fetch(ctx, job.UserID)
	if err != nil {
		return fmt.Errorf("failed to get tasks: %w", err)
	}

	classified := 0
	for _, task := range tasks {
		if !task.Active() || task.AIQuadrant != nil {
			continue
		}

		result, err := c.provider.ClassifyTask(ctx, task)
		if err != nil {
			c.logger.Warn("failed to classify task during sweep",
				zap.String("task_id", task.ID),
				zap.Error(err))
			if ai.IsQuotaError(err) || ai.IsRateLimitError(err) {
				// No point hammering the provider for the rest of the sweep.
				return fmt.Errorf("classification sweep aborted: %w", err)
			}
			continue
		}

		if _, err := c.store.SetAIQuadrant(ctx, job.UserID, task.ID, result.Quadrant); err != nil {
			c.logger.Warn("failed to save classification during sweep",
				zap.String("task_id", task.ID),
				zap.Error(err))
			continue
		}
		classified++
	}

	c.logger.Info("classification sweep complete",
		zap.String("user_id", job.UserID.String()),
		zap.Int("classified", classified),
		zap.Int("total", len(tasks)))
	return nil
}

// handleJobError decides between retry and dead-letter for a failed job.
func (c *Classifier) handleJobError(ctx context.Context, msg *queue.Message, job *queue.Job, err error) error {
	if ai.IsQuotaError(err) {
		// Quota exhaustion won't clear in any useful retry window.
		c.logger.Error("quota exceeded, dead-lettering job",
			zap.String("job_id", job.ID.String()),
			zap.Error(err))
		if nackErr := msg.Nack(false); nackErr != nil {
			c.logger.Warn("failed to nack job", zap.Error(nackErr))
		}
		return fmt.Errorf("quota exhausted: %w", err)
	}

	if job.CanRetry() {
		// Rate limits want a longer pause than ordinary transient failures;
		// the delay grows with the attempt count. Blocking the consumer here
		// is deliberate backpressure against the provider.
		delay := c.retryDelay(err, job.RetryCount)
		if delay > 0 {
			c.logger.Info("backing off before retry",
				zap.String("job_id", job.ID.String()),
				zap.Duration("delay", delay))
			select {
			case <-ctx.Done():
				if nackErr := msg.Nack(true); nackErr != nil {
					c.logger.Warn("failed to requeue job on shutdown", zap.Error(nackErr))
				}
				return ctx.Err()
			case <-time.After(delay):
			}
		}

		// Re-publish with an incremented count so the retry budget survives
		// redelivery.
		retry := *job
		retry.RetryCount++

		if ackErr := msg.Ack(); ackErr != nil {
			c.logger.Warn("failed to ack job before retry", zap.Error(ackErr))
		}
		if enqueueErr := c.jobQueue.Enqueue(ctx, &retry); enqueueErr != nil {
			c.logger.Error("failed to re-enqueue job",
				zap.String("job_id", job.ID.String()),
				zap.Error(enqueueErr))
			return fmt.Errorf("failed to re-enqueue: %w", enqueueErr)
		}

		c.logger.Info("re-enqueued failed job",
			zap.String("job_id", job.ID.String()),
			zap.Int("retry_count", retry.RetryCount),
			zap.Int("max_retries", job.MaxRetries))
		return fmt.Errorf("job failed (will retry): %w", err)
	}

	c.logger.Error("job failed after max retries, dead-lettering",
		zap.String("job_id", job.ID.String()),
		zap.Int("max_retries", job.MaxRetries),
		zap.Error(err))
	if nackErr := msg.Nack(false); nackErr != nil {
		c.logger.Warn("failed to nack job", zap.Error(nackErr))
	}
	return fmt.Errorf("job failed (max retries): %w", err)
}
