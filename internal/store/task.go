package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/phrazzld/taskd/internal/domain"
)

// TaskPatch holds the allow-listed task fields of an update. Nil fields are
// left unchanged.
type TaskPatch struct {
	Description *string
	Completed   *bool
}

// IsEmpty reports whether the patch changes nothing.
func (p TaskPatch) IsEmpty() bool {
	return p.Description == nil && p.Completed == nil
}

// TaskStore defines the interface for task persistence. Every read and
// mutation of a single task is keyed by both task ID and owner ID, so a task
// belonging to someone else is indistinguishable from a missing one.
type TaskStore interface {
	// Create saves a new task. Returns ErrInvalidEntity if the owner does not exist.
	Create(ctx context.Context, task *domain.Task) error

	// GetForOwner retrieves a task owned by ownerID.
	// Returns ErrTaskNotFound if it does not exist or belongs to another user.
	GetForOwner(ctx context.Context, id, ownerID uuid.UUID) (*domain.Task, error)

	// List returns the tasks matching q. Only tasks owned by q.OwnerID are returned.
	List(ctx context.Context, q TaskQuery) ([]*domain.Task, error)

	// Update applies patch to the task in one conditional statement matching
	// both id and ownerID, returning the updated task.
	// Returns ErrTaskNotFound if no such owned task exists.
	Update(ctx context.Context, id, ownerID uuid.UUID, patch TaskPatch) (*domain.Task, error)

	// Delete removes an owned task and returns it.
	// Returns ErrTaskNotFound if no such owned task exists.
	Delete(ctx context.Context, id, ownerID uuid.UUID) (*domain.Task, error)

	// DeleteByOwner removes every task of ownerID and reports how many were removed.
	DeleteByOwner(ctx context.Context, ownerID uuid.UUID) (int64, error)

	// WithTx returns a TaskStore bound to the given transaction.
	WithTx(tx *sql.Tx) TaskStore
}
