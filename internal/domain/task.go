package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Task is a unit of work owned by exactly one user. OwnerID is fixed at
// creation and never changes.
type Task struct {
	ID          uuid.UUID `json:"id"`
	Description string    `json:"description"`
	Completed   bool      `json:"completed"`
	OwnerID     uuid.UUID `json:"owner"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// NewTask creates a task for ownerID.
func NewTask(ownerID uuid.UUID, description string, completed bool) (*Task, error) {
	now := time.Now().UTC()
	task := &Task{
		ID:          uuid.New(),
		Description: strings.TrimSpace(description),
		Completed:   completed,
		OwnerID:     ownerID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := task.Validate(); err != nil {
		return nil, err
	}

	return task, nil
}

// Validate checks that the task has an owner and a description.
func (t *Task) Validate() error {
	if t.ID == uuid.Nil {
		return NewValidationError("id", "is required", ErrInvalidID)
	}
	if t.OwnerID == uuid.Nil {
		return NewValidationError("owner", "is required", ErrEmptyUserID)
	}
	if strings.TrimSpace(t.Description) == "" {
		return NewValidationError("description", "is required", nil)
	}
	return nil
}
