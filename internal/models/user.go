package models

import (
	"time"

	"github.com/google/uuid"
)

// User represents an authenticated user of the matrix.
type User struct {
	ID        uuid.UUID `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
