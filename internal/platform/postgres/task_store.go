package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/taskd/internal/domain"
	"github.com/phrazzld/taskd/internal/platform/logger"
	"github.com/phrazzld/taskd/internal/store"
)

const taskColumns = `id, description, completed, owner_id, created_at, updated_at`

// taskSortColumns maps sortable fields onto their columns. Only these
// identifiers ever reach an ORDER BY clause.
var taskSortColumns = map[store.TaskField]string{
	store.TaskFieldCreatedAt:   "created_at",
	store.TaskFieldUpdatedAt:   "updated_at",
	store.TaskFieldDescription: "description",
	store.TaskFieldCompleted:   "completed",
}

// PostgresTaskStore implements the store.TaskStore interface
// using a PostgreSQL database as the storage backend.
type PostgresTaskStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresTaskStore creates a new PostgreSQL implementation of the TaskStore interface.
// If logger is nil, a default logger will be used.
func NewPostgresTaskStore(db store.DBTX, logger *slog.Logger) *PostgresTaskStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresTaskStore{
		db:     db,
		logger: logger.With(slog.String("component", "task_store")),
	}
}

// Ensure PostgresTaskStore implements store.TaskStore interface
var _ store.TaskStore = (*PostgresTaskStore)(nil)

// WithTx implements store.TaskStore.WithTx
func (s *PostgresTaskStore) WithTx(tx *sql.Tx) store.TaskStore {
	return &PostgresTaskStore{
		db:     tx,
		logger: s.logger,
	}
}

// Create implements store.TaskStore.Create
// Returns store.ErrInvalidEntity if the owner does not exist.
func (s *PostgresTaskStore) Create(ctx context.Context, task *domain.Task) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := task.Validate(); err != nil {
		log.Warn("task validation failed during create",
			slog.String("error", err.Error()),
			slog.String("task_id", task.ID.String()))
		return err
	}

	query := `
		INSERT INTO tasks (id, description, completed, owner_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := s.db.ExecContext(ctx, query,
		task.ID,
		task.Description,
		task.Completed,
		task.OwnerID,
		task.CreatedAt,
		task.UpdatedAt,
	)
	if err != nil {
		if IsForeignKeyViolation(err) {
			log.Warn("task owner does not exist",
				slog.String("task_id", task.ID.String()),
				slog.String("owner_id", task.OwnerID.String()))
			return fmt.Errorf("%w: user with ID %s not found", store.ErrInvalidEntity, task.OwnerID)
		}
		log.Error("failed to create task",
			slog.String("error", err.Error()),
			slog.String("task_id", task.ID.String()),
			slog.String("owner_id", task.OwnerID.String()))
		return MapError(err)
	}

	log.Debug("task created",
		slog.String("task_id", task.ID.String()),
		slog.String("owner_id", task.OwnerID.String()))
	return nil
}

// GetForOwner implements store.TaskStore.GetForOwner
func (s *PostgresTaskStore) GetForOwner(ctx context.Context, id, ownerID uuid.UUID) (*domain.Task, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	task, err := scanTask(s.db.QueryRowContext(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE id = $1 AND owner_id = $2`, id, ownerID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Debug("task not found for owner",
				slog.String("task_id", id.String()),
				slog.String("owner_id", ownerID.String()))
			return nil, store.ErrTaskNotFound
		}
		log.Error("failed to get task",
			slog.String("error", err.Error()),
			slog.String("task_id", id.String()))
		return nil, MapError(err)
	}
	return task, nil
}

// List implements store.TaskStore.List
func (s *PostgresTaskStore) List(ctx context.Context, q store.TaskQuery) ([]*domain.Task, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if q.OwnerID == uuid.Nil {
		return nil, domain.ErrEmptyUserID
	}

	query, args := buildListQuery(q)
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		log.Error("failed to list tasks",
			slog.String("error", err.Error()),
			slog.String("owner_id", q.OwnerID.String()))
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	tasks := []*domain.Task{}
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			log.Error("failed to scan task row", slog.String("error", err.Error()))
			return nil, store.NewStoreError("task", "list", "failed to scan row", err)
		}
		tasks = append(tasks, task)
	}
	if err := rows.Err(); err != nil {
		log.Error("error iterating task rows", slog.String("error", err.Error()))
		return nil, store.NewStoreError("task", "list", "failed to iterate rows", err)
	}

	log.Debug("tasks listed",
		slog.String("owner_id", q.OwnerID.String()),
		slog.Int("count", len(tasks)))
	return tasks, nil
}

// buildListQuery renders q as a parameterized SELECT. The owner predicate is
// always the first condition; values are bound, never interpolated.
func buildListQuery(q store.TaskQuery) (string, []any) {
	var b strings.Builder
	args := []any{q.OwnerID}

	b.WriteString(`SELECT ` + taskColumns + ` FROM tasks WHERE owner_id = $1`)

	if q.Completed != nil {
		args = append(args, *q.Completed)
		fmt.Fprintf(&b, ` AND completed = $%d`, len(args))
	}

	if column, ok := taskSortColumns[q.SortField]; ok {
		direction := "ASC"
		if q.SortDesc {
			direction = "DESC"
		}
		fmt.Fprintf(&b, ` ORDER BY %s %s`, column, direction)
	}

	if q.Limit > 0 {
		args = append(args, q.Limit)
		fmt.Fprintf(&b, ` LIMIT $%d`, len(args))
	}
	if q.Skip > 0 {
		args = append(args, q.Skip)
		fmt.Fprintf(&b, ` OFFSET $%d`, len(args))
	}

	return b.String(), args
}

// Update implements store.TaskStore.Update
// Unset patch fields keep their stored value.
func (s *PostgresTaskStore) Update(
	ctx context.Context,
	id, ownerID uuid.UUID,
	patch store.TaskPatch,
) (*domain.Task, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		UPDATE tasks
		SET description = COALESCE($1, description),
			completed = COALESCE($2, completed),
			updated_at = $3
		WHERE id = $4 AND owner_id = $5
		RETURNING ` + taskColumns

	task, err := scanTask(s.db.QueryRowContext(ctx, query,
		patch.Description,
		patch.Completed,
		time.Now().UTC(),
		id,
		ownerID,
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Debug("no owned task to update",
				slog.String("task_id", id.String()),
				slog.String("owner_id", ownerID.String()))
			return nil, store.ErrTaskNotFound
		}
		log.Error("failed to update task",
			slog.String("error", err.Error()),
			slog.String("task_id", id.String()))
		return nil, MapError(err)
	}

	log.Debug("task updated", slog.String("task_id", id.String()))
	return task, nil
}

// Delete implements store.TaskStore.Delete
func (s *PostgresTaskStore) Delete(ctx context.Context, id, ownerID uuid.UUID) (*domain.Task, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	task, err := scanTask(s.db.QueryRowContext(ctx,
		`DELETE FROM tasks WHERE id = $1 AND owner_id = $2 RETURNING `+taskColumns, id, ownerID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Debug("no owned task to delete",
				slog.String("task_id", id.String()),
				slog.String("owner_id", ownerID.String()))
			return nil, store.ErrTaskNotFound
		}
		log.Error("failed to delete task",
			slog.String("error", err.Error()),
			slog.String("task_id", id.String()))
		return nil, MapError(err)
	}

	log.Debug("task deleted", slog.String("task_id", id.String()))
	return task, nil
}

// DeleteByOwner implements store.TaskStore.DeleteByOwner
func (s *PostgresTaskStore) DeleteByOwner(ctx context.Context, ownerID uuid.UUID) (int64, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	result, err := s.db.ExecContext(ctx, `DELETE FROM tasks WHERE owner_id = $1`, ownerID)
	if err != nil {
		log.Error("failed to delete tasks for owner",
			slog.String("error", err.Error()),
			slog.String("owner_id", ownerID.String()))
		return 0, MapError(err)
	}

	removed, err := result.RowsAffected()
	if err != nil {
		return 0, store.NewStoreError("task", "delete by owner", "failed to get rows affected", err)
	}

	log.Info("tasks deleted for owner",
		slog.String("owner_id", ownerID.String()),
		slog.Int64("count", removed))
	return removed, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (*domain.Task, error) {
	var task domain.Task
	err := row.Scan(
		&task.ID,
		&task.Description,
		&task.Completed,
		&task.OwnerID,
		&task.CreatedAt,
		&task.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &task, nil
}
