package mocks

import (
	"bytes"
	"context"
	"database/sql"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/taskd/internal/domain"
	"github.com/phrazzld/taskd/internal/store"
)

// MemoryStore is an in-memory backend shared by MemoryUserStore,
// MemoryTaskStore and MemoryTransactor. Entities are copied on the way in
// and out, so callers never alias stored state.
type MemoryStore struct {
	mu    sync.Mutex
	users map[uuid.UUID]*domain.User
	tasks map[uuid.UUID]*domain.Task
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users: make(map[uuid.UUID]*domain.User),
		tasks: make(map[uuid.UUID]*domain.Task),
	}
}

// Users returns a UserStore over the shared state.
func (s *MemoryStore) Users() *MemoryUserStore {
	return &MemoryUserStore{s: s}
}

// Tasks returns a TaskStore over the shared state.
func (s *MemoryStore) Tasks() *MemoryTaskStore {
	return &MemoryTaskStore{s: s}
}

// TaskCount returns the number of stored tasks owned by ownerID.
func (s *MemoryStore) TaskCount(ownerID uuid.UUID) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for _, t := range s.tasks {
		if t.OwnerID == ownerID {
			n++
		}
	}
	return n
}

func copyUser(u *domain.User) *domain.User {
	c := *u
	c.Password = ""
	c.Tokens = append([]string(nil), u.Tokens...)
	c.Avatar = append([]byte(nil), u.Avatar...)
	return &c
}

func copyTask(t *domain.Task) *domain.Task {
	c := *t
	return &c
}

// MemoryUserStore implements store.UserStore in memory.
type MemoryUserStore struct {
	s *MemoryStore

	// Err, when set, is returned by every method
	Err error
}

var _ store.UserStore = (*MemoryUserStore)(nil)

// Create implements the UserStore interface
func (m *MemoryUserStore) Create(ctx context.Context, user *domain.User) error {
	if m.Err != nil {
		return m.Err
	}
	if err := user.Validate(); err != nil {
		return err
	}

	m.s.mu.Lock()
	defer m.s.mu.Unlock()

	for _, u := range m.s.users {
		if u.Email == user.Email {
			return store.ErrEmailExists
		}
	}
	m.s.users[user.ID] = copyUser(user)
	return nil
}

// GetByID implements the UserStore interface
func (m *MemoryUserStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	if m.Err != nil {
		return nil, m.Err
	}

	m.s.mu.Lock()
	defer m.s.mu.Unlock()

	u, ok := m.s.users[id]
	if !ok {
		return nil, store.ErrUserNotFound
	}
	return copyUser(u), nil
}

// GetByEmail implements the UserStore interface
func (m *MemoryUserStore) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	if m.Err != nil {
		return nil, m.Err
	}

	m.s.mu.Lock()
	defer m.s.mu.Unlock()

	for _, u := range m.s.users {
		if u.Email == email {
			return copyUser(u), nil
		}
	}
	return nil, store.ErrUserNotFound
}

// GetByToken implements the UserStore interface
func (m *MemoryUserStore) GetByToken(ctx context.Context, id uuid.UUID, token string) (*domain.User, error) {
	if m.Err != nil {
		return nil, m.Err
	}

	m.s.mu.Lock()
	defer m.s.mu.Unlock()

	u, ok := m.s.users[id]
	if !ok || !u.HasToken(token) {
		return nil, store.ErrTokenNotFound
	}
	return copyUser(u), nil
}

// Update implements the UserStore interface
func (m *MemoryUserStore) Update(ctx context.Context, user *domain.User) error {
	if m.Err != nil {
		return m.Err
	}

	m.s.mu.Lock()
	defer m.s.mu.Unlock()

	existing, ok := m.s.users[user.ID]
	if !ok {
		return store.ErrUserNotFound
	}
	for id, u := range m.s.users {
		if id != user.ID && u.Email == user.Email {
			return store.ErrEmailExists
		}
	}

	user.UpdatedAt = time.Now().UTC()
	existing.Name = user.Name
	existing.Email = user.Email
	existing.Age = user.Age
	existing.HashedPassword = user.HashedPassword
	existing.UpdatedAt = user.UpdatedAt
	return nil
}

// Delete implements the UserStore interface
func (m *MemoryUserStore) Delete(ctx context.Context, id uuid.UUID) error {
	if m.Err != nil {
		return m.Err
	}

	m.s.mu.Lock()
	defer m.s.mu.Unlock()

	if _, ok := m.s.users[id]; !ok {
		return store.ErrUserNotFound
	}
	delete(m.s.users, id)
	for taskID, t := range m.s.tasks {
		if t.OwnerID == id {
			delete(m.s.tasks, taskID)
		}
	}
	return nil
}

// AddToken implements the UserStore interface
func (m *MemoryUserStore) AddToken(ctx context.Context, id uuid.UUID, token string) error {
	if m.Err != nil {
		return m.Err
	}

	m.s.mu.Lock()
	defer m.s.mu.Unlock()

	u, ok := m.s.users[id]
	if !ok {
		return store.ErrUserNotFound
	}
	if !u.HasToken(token) {
		u.Tokens = append(u.Tokens, token)
	}
	return nil
}

// RemoveToken implements the UserStore interface
func (m *MemoryUserStore) RemoveToken(ctx context.Context, id uuid.UUID, token string) error {
	if m.Err != nil {
		return m.Err
	}

	m.s.mu.Lock()
	defer m.s.mu.Unlock()

	u, ok := m.s.users[id]
	if !ok {
		return nil
	}
	kept := u.Tokens[:0]
	for _, t := range u.Tokens {
		if t != token {
			kept = append(kept, t)
		}
	}
	u.Tokens = kept
	return nil
}

// RemoveAllTokens implements the UserStore interface
func (m *MemoryUserStore) RemoveAllTokens(ctx context.Context, id uuid.UUID) error {
	if m.Err != nil {
		return m.Err
	}

	m.s.mu.Lock()
	defer m.s.mu.Unlock()

	if u, ok := m.s.users[id]; ok {
		u.Tokens = nil
	}
	return nil
}

// SetAvatar implements the UserStore interface
func (m *MemoryUserStore) SetAvatar(ctx context.Context, id uuid.UUID, avatar []byte) error {
	if m.Err != nil {
		return m.Err
	}

	m.s.mu.Lock()
	defer m.s.mu.Unlock()

	u, ok := m.s.users[id]
	if !ok {
		return store.ErrUserNotFound
	}
	u.Avatar = bytes.Clone(avatar)
	return nil
}

// GetAvatar implements the UserStore interface
func (m *MemoryUserStore) GetAvatar(ctx context.Context, id uuid.UUID) ([]byte, error) {
	if m.Err != nil {
		return nil, m.Err
	}

	m.s.mu.Lock()
	defer m.s.mu.Unlock()

	u, ok := m.s.users[id]
	if !ok {
		return nil, store.ErrUserNotFound
	}
	if len(u.Avatar) == 0 {
		return nil, store.ErrAvatarNotFound
	}
	return bytes.Clone(u.Avatar), nil
}

// WithTx implements the UserStore interface; the memory store has no transactions
func (m *MemoryUserStore) WithTx(tx *sql.Tx) store.UserStore {
	return m
}

// MemoryTaskStore implements store.TaskStore in memory.
type MemoryTaskStore struct {
	s *MemoryStore

	// Err, when set, is returned by every method
	Err error
}

var _ store.TaskStore = (*MemoryTaskStore)(nil)

// Create implements the TaskStore interface
func (m *MemoryTaskStore) Create(ctx context.Context, task *domain.Task) error {
	if m.Err != nil {
		return m.Err
	}
	if err := task.Validate(); err != nil {
		return err
	}

	m.s.mu.Lock()
	defer m.s.mu.Unlock()

	if _, ok := m.s.users[task.OwnerID]; !ok {
		return store.ErrInvalidEntity
	}
	m.s.tasks[task.ID] = copyTask(task)
	return nil
}

// GetForOwner implements the TaskStore interface
func (m *MemoryTaskStore) GetForOwner(ctx context.Context, id, ownerID uuid.UUID) (*domain.Task, error) {
	if m.Err != nil {
		return nil, m.Err
	}

	m.s.mu.Lock()
	defer m.s.mu.Unlock()

	t, ok := m.s.tasks[id]
	if !ok || t.OwnerID != ownerID {
		return nil, store.ErrTaskNotFound
	}
	return copyTask(t), nil
}

// List implements the TaskStore interface, applying q the way the SQL store does
func (m *MemoryTaskStore) List(ctx context.Context, q store.TaskQuery) ([]*domain.Task, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	if q.OwnerID == uuid.Nil {
		return nil, domain.ErrEmptyUserID
	}

	m.s.mu.Lock()
	tasks := make([]*domain.Task, 0)
	for _, t := range m.s.tasks {
		if t.OwnerID != q.OwnerID {
			continue
		}
		if q.Completed != nil && t.Completed != *q.Completed {
			continue
		}
		tasks = append(tasks, copyTask(t))
	}
	m.s.mu.Unlock()

	// Map order is random; creation order stands in for insertion order.
	sort.SliceStable(tasks, func(i, j int) bool {
		return tasks[i].CreatedAt.Before(tasks[j].CreatedAt)
	})
	if q.SortField != "" {
		sort.SliceStable(tasks, func(i, j int) bool {
			c := compareTasks(tasks[i], tasks[j], q.SortField)
			if q.SortDesc {
				return c > 0
			}
			return c < 0
		})
	}

	if q.Skip > 0 {
		if q.Skip >= len(tasks) {
			return []*domain.Task{}, nil
		}
		tasks = tasks[q.Skip:]
	}
	if q.Limit > 0 && q.Limit < len(tasks) {
		tasks = tasks[:q.Limit]
	}
	return tasks, nil
}

func compareTasks(a, b *domain.Task, field store.TaskField) int {
	switch field {
	case store.TaskFieldCreatedAt:
		return a.CreatedAt.Compare(b.CreatedAt)
	case store.TaskFieldUpdatedAt:
		return a.UpdatedAt.Compare(b.UpdatedAt)
	case store.TaskFieldDescription:
		return strings.Compare(a.Description, b.Description)
	case store.TaskFieldCompleted:
		switch {
		case a.Completed == b.Completed:
			return 0
		case b.Completed:
			return -1
		default:
			return 1
		}
	}
	return 0
}

// Update implements the TaskStore interface
func (m *MemoryTaskStore) Update(
	ctx context.Context,
	id, ownerID uuid.UUID,
	patch store.TaskPatch,
) (*domain.Task, error) {
	if m.Err != nil {
		return nil, m.Err
	}

	m.s.mu.Lock()
	defer m.s.mu.Unlock()

	t, ok := m.s.tasks[id]
	if !ok || t.OwnerID != ownerID {
		return nil, store.ErrTaskNotFound
	}
	if patch.Description != nil {
		t.Description = *patch.Description
	}
	if patch.Completed != nil {
		t.Completed = *patch.Completed
	}
	t.UpdatedAt = time.Now().UTC()
	return copyTask(t), nil
}

// Delete implements the TaskStore interface
func (m *MemoryTaskStore) Delete(ctx context.Context, id, ownerID uuid.UUID) (*domain.Task, error) {
	if m.Err != nil {
		return nil, m.Err
	}

	m.s.mu.Lock()
	defer m.s.mu.Unlock()

	t, ok := m.s.tasks[id]
	if !ok || t.OwnerID != ownerID {
		return nil, store.ErrTaskNotFound
	}
	delete(m.s.tasks, id)
	return t, nil
}

// DeleteByOwner implements the TaskStore interface
func (m *MemoryTaskStore) DeleteByOwner(ctx context.Context, ownerID uuid.UUID) (int64, error) {
	if m.Err != nil {
		return 0, m.Err
	}

	m.s.mu.Lock()
	defer m.s.mu.Unlock()

	var n int64
	for id, t := range m.s.tasks {
		if t.OwnerID == ownerID {
			delete(m.s.tasks, id)
			n++
		}
	}
	return n, nil
}

// WithTx implements the TaskStore interface; the memory store has no transactions
func (m *MemoryTaskStore) WithTx(tx *sql.Tx) store.TaskStore {
	return m
}

// MemoryTransactor implements store.Transactor over a MemoryStore. It does
// not roll back; tests that need rollback semantics use sqlmock instead.
type MemoryTransactor struct {
	Users store.UserStore
	Tasks store.TaskStore

	// Err, when set, is returned without calling fn
	Err error
}

var _ store.Transactor = (*MemoryTransactor)(nil)

// WithinTx implements the Transactor interface
func (t *MemoryTransactor) WithinTx(
	ctx context.Context,
	fn func(ctx context.Context, stores store.Stores) error,
) error {
	if t.Err != nil {
		return t.Err
	}
	return fn(ctx, store.Stores{Users: t.Users, Tasks: t.Tasks})
}
