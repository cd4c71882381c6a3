package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/google/uuid"
	"github.com/phrazzld/taskd/internal/domain"
	"github.com/phrazzld/taskd/internal/platform/logger"
	"github.com/phrazzld/taskd/internal/service/auth"
	"github.com/phrazzld/taskd/internal/store"
)

// Fields a user may change through UpdateProfile.
var updatableUserFields = map[string]bool{
	"name":     true,
	"email":    true,
	"password": true,
	"age":      true,
}

// UserService provides account lifecycle, session and avatar operations.
type UserService interface {
	// Register creates an account and its first session token, then
	// enqueues the welcome mail.
	Register(ctx context.Context, name, email, password string, age int) (*domain.User, string, error)

	// Login verifies credentials and issues a new session token.
	// Every failure is reported as ErrInvalidLogin.
	Login(ctx context.Context, email, password string) (*domain.User, string, error)

	// Logout revokes one session token.
	Logout(ctx context.Context, userID uuid.UUID, token string) error

	// LogoutAll revokes every session token of the user.
	LogoutAll(ctx context.Context, userID uuid.UUID) error

	// UpdateProfile applies allow-listed field updates. Any key outside
	// {name, email, password, age} fails with ErrInvalidUpdateFields and
	// nothing is applied.
	UpdateProfile(ctx context.Context, user *domain.User, updates map[string]json.RawMessage) (*domain.User, error)

	// CloseAccount deletes the user's tasks and then the user in one
	// transaction, then enqueues the farewell mail.
	CloseAccount(ctx context.Context, user *domain.User) error

	// SetAvatar normalizes an uploaded image and stores it.
	SetAvatar(ctx context.Context, userID uuid.UUID, filename string, upload io.Reader) error

	// ClearAvatar removes the stored avatar.
	ClearAvatar(ctx context.Context, userID uuid.UUID) error

	// GetAvatar returns the stored avatar bytes.
	GetAvatar(ctx context.Context, userID uuid.UUID) ([]byte, error)
}

// UserServiceImpl implements the UserService interface
type UserServiceImpl struct {
	users      store.UserStore
	transactor store.Transactor
	hasher     auth.PasswordHasher
	tokens     auth.JWTService
	avatars    AvatarProcessor
	notifier   Notifier
	logger     *slog.Logger
}

// UserServiceDeps groups the collaborators of UserServiceImpl.
type UserServiceDeps struct {
	Users      store.UserStore
	Transactor store.Transactor
	Hasher     auth.PasswordHasher
	Tokens     auth.JWTService
	Avatars    AvatarProcessor
	Notifier   Notifier
	Logger     *slog.Logger
}

// NewUserService creates a new UserService
func NewUserService(deps UserServiceDeps) (UserService, error) {
	switch {
	case deps.Users == nil:
		return nil, fmt.Errorf("user store cannot be nil")
	case deps.Transactor == nil:
		return nil, fmt.Errorf("transactor cannot be nil")
	case deps.Hasher == nil:
		return nil, fmt.Errorf("password hasher cannot be nil")
	case deps.Tokens == nil:
		return nil, fmt.Errorf("jwt service cannot be nil")
	case deps.Avatars == nil:
		return nil, fmt.Errorf("avatar processor cannot be nil")
	case deps.Notifier == nil:
		return nil, fmt.Errorf("notifier cannot be nil")
	}

	log := deps.Logger
	if log == nil {
		log = slog.Default()
	}

	return &UserServiceImpl{
		users:      deps.Users,
		transactor: deps.Transactor,
		hasher:     deps.Hasher,
		tokens:     deps.Tokens,
		avatars:    deps.Avatars,
		notifier:   deps.Notifier,
		logger:     log.With("component", "user_service"),
	}, nil
}

func (s *UserServiceImpl) log(ctx context.Context) *slog.Logger {
	return logger.FromContextOrDefault(ctx, s.logger)
}

// Register creates the user and stores its first token atomically.
func (s *UserServiceImpl) Register(
	ctx context.Context,
	name, email, password string,
	age int,
) (*domain.User, string, error) {
	log := s.log(ctx)

	user, err := domain.NewUser(name, email, password, age)
	if err != nil {
		log.Debug("registration rejected by validation", "error", err)
		return nil, "", err
	}

	hash, err := s.hasher.Hash(user.Password)
	if err != nil {
		return nil, "", NewServiceError("user", "register", err)
	}
	user.HashedPassword = hash
	user.Password = ""

	token, err := s.tokens.GenerateToken(ctx, user.ID)
	if err != nil {
		return nil, "", NewServiceError("user", "register", err)
	}

	err = s.transactor.WithinTx(ctx, func(ctx context.Context, stores store.Stores) error {
		if err := stores.Users.Create(ctx, user); err != nil {
			return err
		}
		return stores.Users.AddToken(ctx, user.ID, token)
	})
	if err != nil {
		if store.IsDuplicateError(err) {
			log.Debug("registration with an existing email")
			return nil, "", err
		}
		return nil, "", NewServiceError("user", "register", err)
	}
	user.Tokens = []string{token}

	log.Info("user registered", "user_id", user.ID)
	s.notifier.Welcome(ctx, user.Name, user.Email)

	return user, token, nil
}

// Login looks the user up by normalized email and compares the password.
func (s *UserServiceImpl) Login(ctx context.Context, email, password string) (*domain.User, string, error) {
	log := s.log(ctx)

	user, err := s.users.GetByEmail(ctx, domain.NormalizeEmail(email))
	if err != nil {
		if store.IsNotFoundError(err) {
			log.Debug("login for unknown email")
			return nil, "", ErrInvalidLogin
		}
		return nil, "", NewServiceError("user", "login", err)
	}

	if err := s.hasher.Compare(user.HashedPassword, password); err != nil {
		log.Debug("login with wrong password", "user_id", user.ID)
		return nil, "", ErrInvalidLogin
	}

	token, err := s.tokens.GenerateToken(ctx, user.ID)
	if err != nil {
		return nil, "", NewServiceError("user", "login", err)
	}
	if err := s.users.AddToken(ctx, user.ID, token); err != nil {
		return nil, "", NewServiceError("user", "login", err)
	}
	user.Tokens = append(user.Tokens, token)

	log.Info("user logged in", "user_id", user.ID)
	return user, token, nil
}

// Logout implements UserService.
func (s *UserServiceImpl) Logout(ctx context.Context, userID uuid.UUID, token string) error {
	if err := s.users.RemoveToken(ctx, userID, token); err != nil {
		return NewServiceError("user", "logout", err)
	}
	s.log(ctx).Debug("session token revoked", "user_id", userID)
	return nil
}

// LogoutAll implements UserService.
func (s *UserServiceImpl) LogoutAll(ctx context.Context, userID uuid.UUID) error {
	if err := s.users.RemoveAllTokens(ctx, userID); err != nil {
		return NewServiceError("user", "logout_all", err)
	}
	s.log(ctx).Debug("all session tokens revoked", "user_id", userID)
	return nil
}

// UpdateProfile validates the whole update before touching the store.
func (s *UserServiceImpl) UpdateProfile(
	ctx context.Context,
	user *domain.User,
	updates map[string]json.RawMessage,
) (*domain.User, error) {
	for key := range updates {
		if !updatableUserFields[key] {
			return nil, ErrInvalidUpdateFields
		}
	}

	updated := *user
	updated.Password = ""

	if raw, ok := updates["name"]; ok {
		if err := json.Unmarshal(raw, &updated.Name); err != nil {
			return nil, domain.NewValidationError("name", "must be a string", nil)
		}
	}
	if raw, ok := updates["email"]; ok {
		if err := json.Unmarshal(raw, &updated.Email); err != nil {
			return nil, domain.NewValidationError("email", "must be a string", nil)
		}
	}
	if raw, ok := updates["age"]; ok {
		if err := json.Unmarshal(raw, &updated.Age); err != nil {
			return nil, domain.NewValidationError("age", "must be a number", nil)
		}
	}
	passwordChanged := false
	if raw, ok := updates["password"]; ok {
		if err := json.Unmarshal(raw, &updated.Password); err != nil {
			return nil, domain.NewValidationError("password", "must be a string", nil)
		}
		passwordChanged = true
	}

	updated.Normalize()
	if passwordChanged && updated.Password == "" {
		return nil, domain.NewValidationError("password", "is required", nil)
	}
	if err := updated.Validate(); err != nil {
		return nil, err
	}

	if passwordChanged {
		hash, err := s.hasher.Hash(updated.Password)
		if err != nil {
			return nil, NewServiceError("user", "update_profile", err)
		}
		updated.HashedPassword = hash
		updated.Password = ""
	}

	if err := s.users.Update(ctx, &updated); err != nil {
		if store.IsDuplicateError(err) || store.IsNotFoundError(err) || errors.Is(err, domain.ErrValidation) {
			return nil, err
		}
		return nil, NewServiceError("user", "update_profile", err)
	}

	s.log(ctx).Info("user profile updated",
		"user_id", updated.ID,
		"password_changed", passwordChanged)
	return &updated, nil
}

// CloseAccount removes tasks explicitly before the user; the foreign key
// cascade only backs this up.
func (s *UserServiceImpl) CloseAccount(ctx context.Context, user *domain.User) error {
	var removed int64
	err := s.transactor.WithinTx(ctx, func(ctx context.Context, stores store.Stores) error {
		n, err := stores.Tasks.DeleteByOwner(ctx, user.ID)
		if err != nil {
			return err
		}
		removed = n
		return stores.Users.Delete(ctx, user.ID)
	})
	if err != nil {
		if store.IsNotFoundError(err) {
			return err
		}
		return NewServiceError("user", "close_account", err)
	}

	s.log(ctx).Info("account closed",
		"user_id", user.ID,
		"tasks_removed", removed)
	s.notifier.Farewell(ctx, user.Name, user.Email)
	return nil
}

// SetAvatar implements UserService. Processing errors are returned
// unwrapped so the caller can report them to the client.
func (s *UserServiceImpl) SetAvatar(ctx context.Context, userID uuid.UUID, filename string, upload io.Reader) error {
	data, err := s.avatars.Process(filename, upload)
	if err != nil {
		s.log(ctx).Debug("avatar upload rejected", "user_id", userID, "error", err)
		return err
	}

	if err := s.users.SetAvatar(ctx, userID, data); err != nil {
		if store.IsNotFoundError(err) {
			return err
		}
		return NewServiceError("user", "set_avatar", err)
	}

	s.log(ctx).Debug("avatar stored", "user_id", userID, "bytes", len(data))
	return nil
}

// ClearAvatar implements UserService.
func (s *UserServiceImpl) ClearAvatar(ctx context.Context, userID uuid.UUID) error {
	if err := s.users.SetAvatar(ctx, userID, nil); err != nil {
		if store.IsNotFoundError(err) {
			return err
		}
		return NewServiceError("user", "clear_avatar", err)
	}
	return nil
}

// GetAvatar implements UserService.
func (s *UserServiceImpl) GetAvatar(ctx context.Context, userID uuid.UUID) ([]byte, error) {
	data, err := s.users.GetAvatar(ctx, userID)
	if err != nil {
		if store.IsNotFoundError(err) {
			return nil, err
		}
		return nil, NewServiceError("user", "get_avatar", err)
	}
	return data, nil
}
