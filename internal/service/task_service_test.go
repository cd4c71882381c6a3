package service

import (
	"context"
	"errors"
	"net/url"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/taskd/internal/domain"
	"github.com/phrazzld/taskd/internal/mocks"
	"github.com/phrazzld/taskd/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type taskFixture struct {
	mem   *mocks.MemoryStore
	tasks *mocks.MemoryTaskStore
	svc   TaskService
	alice uuid.UUID
	bob   uuid.UUID
}

func newTaskFixture(t *testing.T) *taskFixture {
	t.Helper()

	mem := mocks.NewMemoryStore()
	f := &taskFixture{mem: mem, tasks: mem.Tasks()}

	for _, id := range []*uuid.UUID{&f.alice, &f.bob} {
		user, err := domain.NewUser("U", uuid.NewString()+"@example.com", "secret1", 0)
		require.NoError(t, err)
		user.HashedPassword, user.Password = "hash", ""
		require.NoError(t, mem.Users().Create(context.Background(), user))
		*id = user.ID
	}

	svc, err := NewTaskService(f.tasks, nil)
	require.NoError(t, err)
	f.svc = svc
	return f
}

func (f *taskFixture) create(t *testing.T, owner uuid.UUID, description string, completed bool) *domain.Task {
	t.Helper()
	task, err := f.svc.CreateTask(context.Background(), owner, description, completed)
	require.NoError(t, err)
	// Distinct creation times keep list order deterministic.
	time.Sleep(time.Millisecond)
	return task
}

func TestNewTaskService_RequiresStore(t *testing.T) {
	_, err := NewTaskService(nil, nil)
	assert.Error(t, err)
}

func TestCreateTask(t *testing.T) {
	f := newTaskFixture(t)

	task := f.create(t, f.alice, "  buy milk ", false)
	assert.Equal(t, "buy milk", task.Description)
	assert.Equal(t, f.alice, task.OwnerID)
	assert.False(t, task.Completed)

	_, err := f.svc.CreateTask(context.Background(), f.alice, "   ", false)
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestListTasks_ScopedToOwner(t *testing.T) {
	f := newTaskFixture(t)
	ctx := context.Background()

	f.create(t, f.alice, "a1", false)
	f.create(t, f.alice, "a2", true)
	f.create(t, f.bob, "b1", true)

	all, err := f.svc.ListTasks(ctx, store.ParseTaskQuery(f.alice, url.Values{}))
	require.NoError(t, err)
	assert.Len(t, all, 2)
	for _, task := range all {
		assert.Equal(t, f.alice, task.OwnerID)
	}

	done, err := f.svc.ListTasks(ctx, store.ParseTaskQuery(f.alice, url.Values{"completed": {"true"}}))
	require.NoError(t, err)
	require.Len(t, done, 1)
	assert.Equal(t, "a2", done[0].Description)

	open, err := f.svc.ListTasks(ctx, store.ParseTaskQuery(f.alice, url.Values{"completed": {""}}))
	require.NoError(t, err)
	require.Len(t, open, 1)
	assert.Equal(t, "a1", open[0].Description)

	_, err = f.svc.ListTasks(ctx, store.TaskQuery{})
	assert.ErrorIs(t, err, domain.ErrEmptyUserID)
}

func TestListTasks_SortAndPage(t *testing.T) {
	f := newTaskFixture(t)

	for _, d := range []string{"one", "two", "three", "four"} {
		f.create(t, f.alice, d, false)
	}

	q := store.ParseTaskQuery(f.alice, url.Values{
		"sortBy": {"createdAt_desc"},
		"limit":  {"2"},
		"skip":   {"1"},
	})
	page, err := f.svc.ListTasks(context.Background(), q)
	require.NoError(t, err)

	var got []string
	for _, task := range page {
		got = append(got, task.Description)
	}
	assert.Equal(t, []string{"three", "two"}, got)
}

func TestGetTask_OtherOwnerIsNotFound(t *testing.T) {
	f := newTaskFixture(t)
	ctx := context.Background()
	task := f.create(t, f.alice, "private", false)

	got, err := f.svc.GetTask(ctx, f.alice, task.ID)
	require.NoError(t, err)
	assert.Equal(t, task.ID, got.ID)

	_, err = f.svc.GetTask(ctx, f.bob, task.ID)
	assert.ErrorIs(t, err, store.ErrTaskNotFound)
}

func TestUpdateTask(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name        string
		body        string
		asBob       bool
		wantErr     error
		description string
		completed   bool
	}{
		{name: "description and completed", body: `{"description":"walk dog","completed":true}`, description: "walk dog", completed: true},
		{name: "completed only", body: `{"completed":true}`, description: "chore", completed: true},
		{name: "empty update", body: `{}`, description: "chore"},
		{name: "disallowed field", body: `{"completed":true,"owner":"x"}`, wantErr: ErrInvalidUpdateFields, description: "chore"},
		{name: "empty description", body: `{"description":"  "}`, wantErr: domain.ErrValidation, description: "chore"},
		{name: "non-boolean completed", body: `{"completed":"yes"}`, wantErr: domain.ErrValidation, description: "chore"},
		{name: "null completed", body: `{"completed":null}`, wantErr: domain.ErrValidation, description: "chore"},
		{name: "another owner's task", body: `{"completed":true}`, asBob: true, wantErr: store.ErrTaskNotFound, description: "chore"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			f := newTaskFixture(t)
			task := f.create(t, f.alice, "chore", false)

			owner := f.alice
			if tc.asBob {
				owner = f.bob
			}

			updated, err := f.svc.UpdateTask(ctx, owner, task.ID, rawUpdates(t, tc.body))
			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tc.description, updated.Description)
				assert.Equal(t, tc.completed, updated.Completed)
			}

			stored, err := f.svc.GetTask(ctx, f.alice, task.ID)
			require.NoError(t, err)
			assert.Equal(t, tc.description, stored.Description)
			assert.Equal(t, tc.completed, stored.Completed)
		})
	}
}

func TestDeleteTask(t *testing.T) {
	f := newTaskFixture(t)
	ctx := context.Background()
	task := f.create(t, f.alice, "chore", false)

	_, err := f.svc.DeleteTask(ctx, f.bob, task.ID)
	assert.ErrorIs(t, err, store.ErrTaskNotFound)

	deleted, err := f.svc.DeleteTask(ctx, f.alice, task.ID)
	require.NoError(t, err)
	assert.Equal(t, task.ID, deleted.ID)

	_, err = f.svc.DeleteTask(ctx, f.alice, task.ID)
	assert.ErrorIs(t, err, store.ErrTaskNotFound)
}

func TestTaskService_WrapsUnexpectedErrors(t *testing.T) {
	f := newTaskFixture(t)
	f.tasks.Err = errors.New("connection reset")

	_, err := f.svc.GetTask(context.Background(), f.alice, uuid.New())

	var serviceErr *ServiceError
	require.True(t, errors.As(err, &serviceErr))
	assert.Equal(t, "task", serviceErr.Service)
	assert.Equal(t, "get", serviceErr.Op)
}
