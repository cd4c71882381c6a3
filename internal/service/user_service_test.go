package service

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/phrazzld/taskd/internal/domain"
	"github.com/phrazzld/taskd/internal/mocks"
	"github.com/phrazzld/taskd/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewUserService_RequiresDependencies(t *testing.T) {
	_, err := NewUserService(UserServiceDeps{})
	assert.Error(t, err)
}

func TestRegister(t *testing.T) {
	f := newUserFixture(t)
	ctx := context.Background()

	user, token, err := f.svc.Register(ctx, "  Sami  ", " Sami@Example.COM ", "ramisamikooko!", 28)
	require.NoError(t, err)

	assert.Equal(t, "Sami", user.Name)
	assert.Equal(t, "sami@example.com", user.Email)
	assert.Equal(t, 28, user.Age)
	assert.Empty(t, user.Password)
	assert.NotEqual(t, "ramisamikooko!", user.HashedPassword)
	assert.Equal(t, "token-1", token)

	stored, err := f.users.GetByToken(ctx, user.ID, token)
	require.NoError(t, err)
	assert.Equal(t, user.HashedPassword, stored.HashedPassword)

	assert.Equal(t, []mocks.Notification{
		{Kind: "welcome", Name: "Sami", Address: "sami@example.com"},
	}, f.notifier.Calls())
}

func TestRegister_ValidationFailures(t *testing.T) {
	tests := []struct {
		name     string
		userName string
		email    string
		password string
		age      int
		field    string
	}{
		{"missing name", "  ", "a@b.co", "secret1", 0, "name"},
		{"invalid email", "A", "not-an-email", "secret1", 0, "email"},
		{"short password", "A", "a@b.co", "12345", 0, "password"},
		{"password containing password", "A", "a@b.co", "myPassWord1", 0, "password"},
		{"negative age", "A", "a@b.co", "secret1", -1, "age"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			f := newUserFixture(t)

			_, _, err := f.svc.Register(context.Background(), tc.userName, tc.email, tc.password, tc.age)
			require.ErrorIs(t, err, domain.ErrValidation)

			var verr *domain.ValidationError
			require.True(t, errors.As(err, &verr))
			assert.Equal(t, tc.field, verr.Field)
			assert.Empty(t, f.notifier.Calls())
			assert.Zero(t, f.hasher.HashCallCount)
		})
	}
}

func TestRegister_DuplicateEmail(t *testing.T) {
	f := newUserFixture(t)
	ctx := context.Background()

	_, _, err := f.svc.Register(ctx, "A", "dup@example.com", "secret1", 0)
	require.NoError(t, err)

	_, _, err = f.svc.Register(ctx, "B", "DUP@example.com", "secret2", 0)
	assert.ErrorIs(t, err, store.ErrEmailExists)
	assert.Len(t, f.notifier.Calls(), 1)
}

func TestRegister_HashFailure(t *testing.T) {
	f := newUserFixture(t)
	f.hasher.HashFn = func(string) (string, error) { return "", errors.New("boom") }

	_, _, err := f.svc.Register(context.Background(), "A", "a@example.com", "secret1", 0)

	var serviceErr *ServiceError
	require.True(t, errors.As(err, &serviceErr))
	assert.Equal(t, "register", serviceErr.Op)
}

func TestLogin(t *testing.T) {
	f := newUserFixture(t)
	ctx := context.Background()

	registered, _, err := f.svc.Register(ctx, "A", "a@example.com", "secret1", 0)
	require.NoError(t, err)

	t.Run("success issues an additional token", func(t *testing.T) {
		user, token, err := f.svc.Login(ctx, " A@EXAMPLE.com", "secret1")
		require.NoError(t, err)
		assert.Equal(t, registered.ID, user.ID)
		assert.Equal(t, "token-2", token)

		stored, err := f.users.GetByID(ctx, registered.ID)
		require.NoError(t, err)
		assert.Equal(t, []string{"token-1", "token-2"}, stored.Tokens)
	})

	t.Run("wrong password", func(t *testing.T) {
		_, _, err := f.svc.Login(ctx, "a@example.com", "nope")
		assert.ErrorIs(t, err, ErrInvalidLogin)
	})

	t.Run("unknown email", func(t *testing.T) {
		_, _, err := f.svc.Login(ctx, "ghost@example.com", "secret1")
		assert.ErrorIs(t, err, ErrInvalidLogin)
	})

	t.Run("store failure is not a login failure", func(t *testing.T) {
		broken := mocks.NewMemoryStore().Users()
		broken.Err = errors.New("connection reset")
		svc, err := NewUserService(UserServiceDeps{
			Users:      broken,
			Transactor: f.tx,
			Hasher:     f.hasher,
			Tokens:     f.jwt,
			Avatars:    avatarFunc(func(string, io.Reader) ([]byte, error) { return nil, nil }),
			Notifier:   f.notifier,
		})
		require.NoError(t, err)

		_, _, err = svc.Login(ctx, "a@example.com", "secret1")
		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrInvalidLogin)
	})
}

func TestLogoutAndLogoutAll(t *testing.T) {
	f := newUserFixture(t)
	ctx := context.Background()

	user, first, err := f.svc.Register(ctx, "A", "a@example.com", "secret1", 0)
	require.NoError(t, err)
	_, second, err := f.svc.Login(ctx, "a@example.com", "secret1")
	require.NoError(t, err)
	_, third, err := f.svc.Login(ctx, "a@example.com", "secret1")
	require.NoError(t, err)

	require.NoError(t, f.svc.Logout(ctx, user.ID, second))

	_, err = f.users.GetByToken(ctx, user.ID, second)
	assert.ErrorIs(t, err, store.ErrTokenNotFound)
	_, err = f.users.GetByToken(ctx, user.ID, first)
	assert.NoError(t, err)

	require.NoError(t, f.svc.LogoutAll(ctx, user.ID))
	for _, token := range []string{first, third} {
		_, err = f.users.GetByToken(ctx, user.ID, token)
		assert.ErrorIs(t, err, store.ErrTokenNotFound)
	}
}

func rawUpdates(t *testing.T, body string) map[string]json.RawMessage {
	t.Helper()
	var updates map[string]json.RawMessage
	require.NoError(t, json.Unmarshal([]byte(body), &updates))
	return updates
}

func TestUpdateProfile(t *testing.T) {
	ctx := context.Background()

	t.Run("applies allowed fields and rehashes the password", func(t *testing.T) {
		f := newUserFixture(t)
		user, _, err := f.svc.Register(ctx, "A", "a@example.com", "secret1", 1)
		require.NoError(t, err)

		updated, err := f.svc.UpdateProfile(ctx, user,
			rawUpdates(t, `{"name":" Bea ","email":"BEA@example.com","age":40,"password":"newsecret"}`))
		require.NoError(t, err)

		assert.Equal(t, "Bea", updated.Name)
		assert.Equal(t, "bea@example.com", updated.Email)
		assert.Equal(t, 40, updated.Age)
		assert.Empty(t, updated.Password)

		_, _, err = f.svc.Login(ctx, "bea@example.com", "newsecret")
		assert.NoError(t, err)
		_, _, err = f.svc.Login(ctx, "bea@example.com", "secret1")
		assert.ErrorIs(t, err, ErrInvalidLogin)
	})

	t.Run("unknown field rejects the whole update", func(t *testing.T) {
		f := newUserFixture(t)
		user, _, err := f.svc.Register(ctx, "A", "a@example.com", "secret1", 1)
		require.NoError(t, err)

		_, err = f.svc.UpdateProfile(ctx, user, rawUpdates(t, `{"name":"B","tokens":[]}`))
		assert.ErrorIs(t, err, ErrInvalidUpdateFields)

		stored, err := f.users.GetByID(ctx, user.ID)
		require.NoError(t, err)
		assert.Equal(t, "A", stored.Name)
	})

	t.Run("invalid values", func(t *testing.T) {
		f := newUserFixture(t)
		user, _, err := f.svc.Register(ctx, "A", "a@example.com", "secret1", 1)
		require.NoError(t, err)

		for _, body := range []string{
			`{"age":-3}`,
			`{"age":"old"}`,
			`{"email":"nope"}`,
			`{"password":"password123"}`,
			`{"password":"   "}`,
			`{"name":""}`,
		} {
			_, err := f.svc.UpdateProfile(ctx, user, rawUpdates(t, body))
			assert.ErrorIs(t, err, domain.ErrValidation, body)
		}
	})

	t.Run("email taken by another user", func(t *testing.T) {
		f := newUserFixture(t)
		_, _, err := f.svc.Register(ctx, "A", "a@example.com", "secret1", 1)
		require.NoError(t, err)
		b, _, err := f.svc.Register(ctx, "B", "b@example.com", "secret1", 1)
		require.NoError(t, err)

		_, err = f.svc.UpdateProfile(ctx, b, rawUpdates(t, `{"email":"a@example.com"}`))
		assert.ErrorIs(t, err, store.ErrDuplicate)
	})
}

func TestCloseAccount(t *testing.T) {
	f := newUserFixture(t)
	ctx := context.Background()

	user, _, err := f.svc.Register(ctx, "A", "a@example.com", "secret1", 1)
	require.NoError(t, err)
	other, _, err := f.svc.Register(ctx, "B", "b@example.com", "secret1", 1)
	require.NoError(t, err)

	for _, owner := range []uuid.UUID{user.ID, user.ID, other.ID} {
		task, err := domain.NewTask(owner, "chore", false)
		require.NoError(t, err)
		require.NoError(t, f.tasks.Create(ctx, task))
	}

	require.NoError(t, f.svc.CloseAccount(ctx, user))

	_, err = f.users.GetByID(ctx, user.ID)
	assert.ErrorIs(t, err, store.ErrUserNotFound)
	assert.Zero(t, f.mem.TaskCount(user.ID))
	assert.Equal(t, 1, f.mem.TaskCount(other.ID))

	calls := f.notifier.Calls()
	assert.Equal(t, mocks.Notification{Kind: "farewell", Name: "A", Address: "a@example.com"}, calls[len(calls)-1])
}

func TestCloseAccount_TransactionFailure(t *testing.T) {
	f := newUserFixture(t)
	ctx := context.Background()

	user, _, err := f.svc.Register(ctx, "A", "a@example.com", "secret1", 1)
	require.NoError(t, err)
	f.tx.Err = store.ErrTransactionFailed

	err = f.svc.CloseAccount(ctx, user)
	assert.ErrorIs(t, err, store.ErrTransactionFailed)

	_, err = f.users.GetByID(ctx, user.ID)
	assert.NoError(t, err)
	assert.Len(t, f.notifier.Calls(), 1, "no farewell after a failed close")
}

func TestAvatarLifecycle(t *testing.T) {
	f := newUserFixture(t)
	ctx := context.Background()

	user, _, err := f.svc.Register(ctx, "A", "a@example.com", "secret1", 1)
	require.NoError(t, err)

	_, err = f.svc.GetAvatar(ctx, user.ID)
	assert.ErrorIs(t, err, store.ErrAvatarNotFound)

	require.NoError(t, f.svc.SetAvatar(ctx, user.ID, "me.png", strings.NewReader("png-bytes")))
	data, err := f.svc.GetAvatar(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, []byte("png-bytes"), data)

	require.NoError(t, f.svc.ClearAvatar(ctx, user.ID))
	_, err = f.svc.GetAvatar(ctx, user.ID)
	assert.ErrorIs(t, err, store.ErrAvatarNotFound)

	_, err = f.svc.GetAvatar(ctx, uuid.New())
	assert.ErrorIs(t, err, store.ErrUserNotFound)
}

func TestSetAvatar_ProcessingErrorIsReturnedAsIs(t *testing.T) {
	f := newUserFixture(t)
	ctx := context.Background()
	user, _, err := f.svc.Register(ctx, "A", "a@example.com", "secret1", 1)
	require.NoError(t, err)

	rejected := errors.New("Please upload an image")
	f.avatars = func(string, io.Reader) ([]byte, error) { return nil, rejected }

	err = f.svc.SetAvatar(ctx, user.ID, "doc.pdf", strings.NewReader("x"))
	assert.Same(t, rejected, err)
}
