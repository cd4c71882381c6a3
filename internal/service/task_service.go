package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/phrazzld/taskd/internal/domain"
	"github.com/phrazzld/taskd/internal/platform/logger"
	"github.com/phrazzld/taskd/internal/store"
)

// Fields a task update may name.
var updatableTaskFields = map[string]bool{
	"description": true,
	"completed":   true,
}

// TaskService manages tasks on behalf of their owner. Every method takes the
// owner's ID; a task owned by someone else is reported as store.ErrTaskNotFound.
type TaskService interface {
	// CreateTask creates a task owned by ownerID.
	CreateTask(ctx context.Context, ownerID uuid.UUID, description string, completed bool) (*domain.Task, error)

	// ListTasks returns the tasks selected by q, which is always owner-scoped.
	ListTasks(ctx context.Context, q store.TaskQuery) ([]*domain.Task, error)

	// GetTask returns one owned task.
	GetTask(ctx context.Context, ownerID, taskID uuid.UUID) (*domain.Task, error)

	// UpdateTask applies allow-listed field updates. Any key outside
	// {description, completed} fails with ErrInvalidUpdateFields and nothing
	// is applied.
	UpdateTask(ctx context.Context, ownerID, taskID uuid.UUID, updates map[string]json.RawMessage) (*domain.Task, error)

	// DeleteTask removes one owned task and returns it.
	DeleteTask(ctx context.Context, ownerID, taskID uuid.UUID) (*domain.Task, error)
}

// TaskServiceImpl implements the TaskService interface
type TaskServiceImpl struct {
	tasks  store.TaskStore
	logger *slog.Logger
}

// NewTaskService creates a new TaskService
func NewTaskService(tasks store.TaskStore, logger *slog.Logger) (TaskService, error) {
	if tasks == nil {
		return nil, fmt.Errorf("task store cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &TaskServiceImpl{
		tasks:  tasks,
		logger: logger.With("component", "task_service"),
	}, nil
}

// CreateTask implements TaskService.
func (s *TaskServiceImpl) CreateTask(
	ctx context.Context,
	ownerID uuid.UUID,
	description string,
	completed bool,
) (*domain.Task, error) {
	task, err := domain.NewTask(ownerID, description, completed)
	if err != nil {
		return nil, err
	}

	if err := s.tasks.Create(ctx, task); err != nil {
		return nil, s.wrap("create", err)
	}

	logger.FromContextOrDefault(ctx, s.logger).Debug("task created",
		"task_id", task.ID,
		"owner_id", ownerID)
	return task, nil
}

// ListTasks implements TaskService.
func (s *TaskServiceImpl) ListTasks(ctx context.Context, q store.TaskQuery) ([]*domain.Task, error) {
	if q.OwnerID == uuid.Nil {
		return nil, domain.ErrEmptyUserID
	}

	tasks, err := s.tasks.List(ctx, q)
	if err != nil {
		return nil, s.wrap("list", err)
	}
	return tasks, nil
}

// GetTask implements TaskService.
func (s *TaskServiceImpl) GetTask(ctx context.Context, ownerID, taskID uuid.UUID) (*domain.Task, error) {
	task, err := s.tasks.GetForOwner(ctx, taskID, ownerID)
	if err != nil {
		return nil, s.wrap("get", err)
	}
	return task, nil
}

// UpdateTask implements TaskService. An empty update returns the task
// unchanged.
func (s *TaskServiceImpl) UpdateTask(
	ctx context.Context,
	ownerID, taskID uuid.UUID,
	updates map[string]json.RawMessage,
) (*domain.Task, error) {
	patch, err := parseTaskPatch(updates)
	if err != nil {
		return nil, err
	}

	if patch.IsEmpty() {
		return s.GetTask(ctx, ownerID, taskID)
	}

	task, err := s.tasks.Update(ctx, taskID, ownerID, patch)
	if err != nil {
		return nil, s.wrap("update", err)
	}

	logger.FromContextOrDefault(ctx, s.logger).Debug("task updated",
		"task_id", taskID,
		"owner_id", ownerID)
	return task, nil
}

// DeleteTask implements TaskService.
func (s *TaskServiceImpl) DeleteTask(ctx context.Context, ownerID, taskID uuid.UUID) (*domain.Task, error) {
	task, err := s.tasks.Delete(ctx, taskID, ownerID)
	if err != nil {
		return nil, s.wrap("delete", err)
	}

	logger.FromContextOrDefault(ctx, s.logger).Debug("task deleted",
		"task_id", taskID,
		"owner_id", ownerID)
	return task, nil
}

// parseTaskPatch checks the allow-list before decoding any value.
func parseTaskPatch(updates map[string]json.RawMessage) (store.TaskPatch, error) {
	for key := range updates {
		if !updatableTaskFields[key] {
			return store.TaskPatch{}, ErrInvalidUpdateFields
		}
	}

	var patch store.TaskPatch
	if raw, ok := updates["description"]; ok {
		var description string
		if err := json.Unmarshal(raw, &description); err != nil {
			return store.TaskPatch{}, domain.NewValidationError("description", "must be a string", nil)
		}
		description = strings.TrimSpace(description)
		if description == "" {
			return store.TaskPatch{}, domain.NewValidationError("description", "is required", nil)
		}
		patch.Description = &description
	}
	if raw, ok := updates["completed"]; ok {
		var completed bool
		if err := json.Unmarshal(raw, &completed); err != nil || string(raw) == "null" {
			return store.TaskPatch{}, domain.NewValidationError("completed", "must be a boolean", nil)
		}
		patch.Completed = &completed
	}
	return patch, nil
}

// wrap passes expected store conditions through and wraps everything else.
func (s *TaskServiceImpl) wrap(op string, err error) error {
	if store.IsNotFoundError(err) || errors.Is(err, domain.ErrValidation) ||
		errors.Is(err, domain.ErrEmptyUserID) || errors.Is(err, store.ErrInvalidEntity) {
		return err
	}
	return NewServiceError("task", op, err)
}
