package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/quadtask/quadtask/internal/models"
)

// OverrideRecord is one row of the quadrant override audit log.
type OverrideRecord struct {
	ID        uuid.UUID       `json:"id"`
	UserID    uuid.UUID       `json:"user_id"`
	TaskID    string          `json:"task_id"`
	Quadrant  models.Quadrant `json:"quadrant"`
	Reason    string          `json:"reason"`
	Source    string          `json:"source"`
	CreatedAt time.Time       `json:"created_at"`
}

// AuditRepository records quadrant override writes for later inspection.
type AuditRepository struct {
	db *DB
}

// NewAuditRepository creates a new audit repository
func NewAuditRepository(db *DB) *AuditRepository {
	return &AuditRepository{db: db}
}

// RecordOverride appends one override record to the audit log.
func (r *AuditRepository) RecordOverride(ctx context.Context, userID uuid.UUID, taskID string, q models.Quadrant, reason, source string) error {
	query := `
		INSERT INTO quadrant_overrides (id, user_id, task_id, quadrant, reason, source, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.db.ExecContext(ctx, query,
		uuid.New(),
		userID,
		taskID,
		q.String(),
		reason,
		source,
		time.Now(),
	)
	if err != nil {
		return fmt.Errorf("failed to record override: %w", err)
	}

	return nil
}

// ListByUser returns the most recent override records for a user, newest
// first, up to limit rows.
func (r *AuditRepository) ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]*OverrideRecord, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT id, user_id, task_id, quadrant, reason, source, created_at
		FROM quadrant_overrides
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	rows, err := r.db.QueryContext(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list overrides: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var records []*OverrideRecord
	for rows.Next() {
		record := &OverrideRecord{}
		var quadrant string
		if err := rows.Scan(
			&record.ID,
			&record.UserID,
			&record.TaskID,
			&quadrant,
			&record.Reason,
			&record.Source,
			&record.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan override: %w", err)
		}
		q, err := models.ParseQuadrant(quadrant)
		if err != nil {
			return nil, fmt.Errorf("failed to parse stored quadrant: %w", err)
		}
		record.Quadrant = q
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate overrides: %w", err)
	}

	return records, nil
}

// CountBySource returns override counts grouped by source for a user.
func (r *AuditRepository) CountBySource(ctx context.Context, userID uuid.UUID) (map[string]int, error) {
	query := `
		SELECT source, COUNT(*)
		FROM quadrant_overrides
		WHERE user_id = $1
		GROUP BY source
	`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		if err == sql.ErrNoRows {
			return map[string]int{}, nil
		}
		return nil, fmt.Errorf("failed to count overrides: %w", err)
	}
	defer func() { _ = rows.Close() }()

	counts := make(map[string]int)
	for rows.Next() {
		var source string
		var n int
		if err := rows.Scan(&source, &n); err != nil {
			return nil, fmt.Errorf("failed to scan count: %w", err)
		}
		counts[source] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate counts: %w", err)
	}

	return counts, nil
}
