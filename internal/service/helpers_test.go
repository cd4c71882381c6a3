package service

import (
	"context"
	"fmt"
	"io"
	"sync/atomic"
	"testing"

	"github.com/google/uuid"
	"github.com/phrazzld/taskd/internal/mocks"
	"github.com/stretchr/testify/require"
)

type avatarFunc func(filename string, r io.Reader) ([]byte, error)

func (f avatarFunc) Process(filename string, r io.Reader) ([]byte, error) { return f(filename, r) }

type userFixture struct {
	mem      *mocks.MemoryStore
	users    *mocks.MemoryUserStore
	tasks    *mocks.MemoryTaskStore
	tx       *mocks.MemoryTransactor
	hasher   *mocks.MockPasswordHasher
	jwt      *mocks.MockJWTService
	notifier *mocks.RecordingNotifier
	avatars  avatarFunc
	svc      UserService
}

func newUserFixture(t *testing.T) *userFixture {
	t.Helper()

	mem := mocks.NewMemoryStore()
	var seq atomic.Int64
	f := &userFixture{
		mem:    mem,
		users:  mem.Users(),
		tasks:  mem.Tasks(),
		hasher: &mocks.MockPasswordHasher{},
		jwt: &mocks.MockJWTService{
			GenerateTokenFn: func(ctx context.Context, userID uuid.UUID) (string, error) {
				return fmt.Sprintf("token-%d", seq.Add(1)), nil
			},
		},
		notifier: &mocks.RecordingNotifier{},
		avatars: func(filename string, r io.Reader) ([]byte, error) {
			return io.ReadAll(r)
		},
	}
	f.tx = &mocks.MemoryTransactor{Users: f.users, Tasks: f.tasks}

	svc, err := NewUserService(UserServiceDeps{
		Users:      f.users,
		Transactor: f.tx,
		Hasher:     f.hasher,
		Tokens:     f.jwt,
		Avatars:    avatarFunc(func(name string, r io.Reader) ([]byte, error) { return f.avatars(name, r) }),
		Notifier:   f.notifier,
	})
	require.NoError(t, err)
	f.svc = svc
	return f
}
