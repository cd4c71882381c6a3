package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/taskd/internal/domain"
	"github.com/phrazzld/taskd/internal/platform/logger"
	"github.com/phrazzld/taskd/internal/store"
)

const userColumns = `id, name, email, age, hashed_password, created_at, updated_at`

// PostgresUserStore implements the store.UserStore interface
// using a PostgreSQL database as the storage backend.
type PostgresUserStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresUserStore creates a new PostgreSQL implementation of the UserStore interface.
// It accepts a database connection or transaction that should be initialized and managed by the caller.
// If logger is nil, a default logger will be used.
func NewPostgresUserStore(db store.DBTX, logger *slog.Logger) *PostgresUserStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresUserStore{
		db:     db,
		logger: logger.With(slog.String("component", "user_store")),
	}
}

// Ensure PostgresUserStore implements store.UserStore interface
var _ store.UserStore = (*PostgresUserStore)(nil)

// WithTx implements store.UserStore.WithTx
func (s *PostgresUserStore) WithTx(tx *sql.Tx) store.UserStore {
	return &PostgresUserStore{
		db:     tx,
		logger: s.logger,
	}
}

// Create implements store.UserStore.Create
// Returns store.ErrEmailExists when the normalized email is already registered.
func (s *PostgresUserStore) Create(ctx context.Context, user *domain.User) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := user.Validate(); err != nil {
		log.Warn("user validation failed during create",
			slog.String("error", err.Error()),
			slog.String("user_id", user.ID.String()))
		return err
	}

	query := `
		INSERT INTO users (id, name, email, age, hashed_password, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := s.db.ExecContext(ctx, query,
		user.ID,
		user.Name,
		user.Email,
		user.Age,
		user.HashedPassword,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			log.Warn("email already registered",
				slog.String("user_id", user.ID.String()))
			return store.ErrEmailExists
		}
		log.Error("failed to create user",
			slog.String("error", err.Error()),
			slog.String("user_id", user.ID.String()))
		return MapError(err)
	}

	log.Info("user created", slog.String("user_id", user.ID.String()))
	return nil
}

// GetByID implements store.UserStore.GetByID
func (s *PostgresUserStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	user, err := s.scanUser(s.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Debug("user not found", slog.String("user_id", id.String()))
			return nil, store.ErrUserNotFound
		}
		log.Error("failed to get user by ID",
			slog.String("error", err.Error()),
			slog.String("user_id", id.String()))
		return nil, MapError(err)
	}

	if user.Tokens, err = s.loadTokens(ctx, id); err != nil {
		return nil, err
	}
	return user, nil
}

// GetByEmail implements store.UserStore.GetByEmail
func (s *PostgresUserStore) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	user, err := s.scanUser(s.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = $1`, domain.NormalizeEmail(email)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Debug("user not found by email")
			return nil, store.ErrUserNotFound
		}
		log.Error("failed to get user by email", slog.String("error", err.Error()))
		return nil, MapError(err)
	}

	if user.Tokens, err = s.loadTokens(ctx, user.ID); err != nil {
		return nil, err
	}
	return user, nil
}

// GetByToken implements store.UserStore.GetByToken
// The user row is only returned when the token is still on record for it.
func (s *PostgresUserStore) GetByToken(ctx context.Context, id uuid.UUID, token string) (*domain.User, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT u.id, u.name, u.email, u.age, u.hashed_password, u.created_at, u.updated_at
		FROM users u
		JOIN user_tokens t ON t.user_id = u.id
		WHERE u.id = $1 AND t.token = $2
	`
	user, err := s.scanUser(s.db.QueryRowContext(ctx, query, id, token))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Debug("no user holds token", slog.String("user_id", id.String()))
			return nil, store.ErrTokenNotFound
		}
		log.Error("failed to get user by token",
			slog.String("error", err.Error()),
			slog.String("user_id", id.String()))
		return nil, MapError(err)
	}

	if user.Tokens, err = s.loadTokens(ctx, id); err != nil {
		return nil, err
	}
	return user, nil
}

// Update implements store.UserStore.Update
func (s *PostgresUserStore) Update(ctx context.Context, user *domain.User) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := user.Validate(); err != nil {
		log.Warn("user validation failed during update",
			slog.String("error", err.Error()),
			slog.String("user_id", user.ID.String()))
		return err
	}

	user.UpdatedAt = time.Now().UTC()
	query := `
		UPDATE users
		SET name = $1, email = $2, age = $3, hashed_password = $4, updated_at = $5
		WHERE id = $6
	`
	result, err := s.db.ExecContext(ctx, query,
		user.Name,
		user.Email,
		user.Age,
		user.HashedPassword,
		user.UpdatedAt,
		user.ID,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			log.Warn("email already registered",
				slog.String("user_id", user.ID.String()))
			return store.ErrEmailExists
		}
		log.Error("failed to update user",
			slog.String("error", err.Error()),
			slog.String("user_id", user.ID.String()))
		return MapError(err)
	}

	if err := CheckRowsAffected(result, store.ErrUserNotFound); err != nil {
		return err
	}

	log.Debug("user updated", slog.String("user_id", user.ID.String()))
	return nil
}

// Delete implements store.UserStore.Delete
// Session tokens and tasks are removed by the ON DELETE CASCADE constraints.
func (s *PostgresUserStore) Delete(ctx context.Context, id uuid.UUID) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	result, err := s.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		log.Error("failed to delete user",
			slog.String("error", err.Error()),
			slog.String("user_id", id.String()))
		return MapError(err)
	}

	if err := CheckRowsAffected(result, store.ErrUserNotFound); err != nil {
		return err
	}

	log.Info("user deleted", slog.String("user_id", id.String()))
	return nil
}

// AddToken implements store.UserStore.AddToken
func (s *PostgresUserStore) AddToken(ctx context.Context, id uuid.UUID, token string) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		INSERT INTO user_tokens (user_id, token, created_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, token) DO NOTHING
	`
	if _, err := s.db.ExecContext(ctx, query, id, token, time.Now().UTC()); err != nil {
		if IsForeignKeyViolation(err) {
			return store.ErrUserNotFound
		}
		log.Error("failed to store session token",
			slog.String("error", err.Error()),
			slog.String("user_id", id.String()))
		return MapError(err)
	}
	return nil
}

// RemoveToken implements store.UserStore.RemoveToken
func (s *PostgresUserStore) RemoveToken(ctx context.Context, id uuid.UUID, token string) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	_, err := s.db.ExecContext(ctx,
		`DELETE FROM user_tokens WHERE user_id = $1 AND token = $2`, id, token)
	if err != nil {
		log.Error("failed to remove session token",
			slog.String("error", err.Error()),
			slog.String("user_id", id.String()))
		return MapError(err)
	}
	return nil
}

// RemoveAllTokens implements store.UserStore.RemoveAllTokens
func (s *PostgresUserStore) RemoveAllTokens(ctx context.Context, id uuid.UUID) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	result, err := s.db.ExecContext(ctx, `DELETE FROM user_tokens WHERE user_id = $1`, id)
	if err != nil {
		log.Error("failed to remove session tokens",
			slog.String("error", err.Error()),
			slog.String("user_id", id.String()))
		return MapError(err)
	}

	removed, _ := result.RowsAffected()
	log.Debug("session tokens removed",
		slog.String("user_id", id.String()),
		slog.Int64("count", removed))
	return nil
}

// SetAvatar implements store.UserStore.SetAvatar
func (s *PostgresUserStore) SetAvatar(ctx context.Context, id uuid.UUID, avatar []byte) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	result, err := s.db.ExecContext(ctx,
		`UPDATE users SET avatar = $1, updated_at = $2 WHERE id = $3`,
		avatar, time.Now().UTC(), id)
	if err != nil {
		log.Error("failed to store avatar",
			slog.String("error", err.Error()),
			slog.String("user_id", id.String()))
		return MapError(err)
	}

	return CheckRowsAffected(result, store.ErrUserNotFound)
}

// GetAvatar implements store.UserStore.GetAvatar
func (s *PostgresUserStore) GetAvatar(ctx context.Context, id uuid.UUID) ([]byte, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	var avatar []byte
	err := s.db.QueryRowContext(ctx, `SELECT avatar FROM users WHERE id = $1`, id).Scan(&avatar)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrUserNotFound
		}
		log.Error("failed to load avatar",
			slog.String("error", err.Error()),
			slog.String("user_id", id.String()))
		return nil, MapError(err)
	}
	if len(avatar) == 0 {
		return nil, store.ErrAvatarNotFound
	}
	return avatar, nil
}

func (s *PostgresUserStore) scanUser(row *sql.Row) (*domain.User, error) {
	var user domain.User
	err := row.Scan(
		&user.ID,
		&user.Name,
		&user.Email,
		&user.Age,
		&user.HashedPassword,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *PostgresUserStore) loadTokens(ctx context.Context, id uuid.UUID) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT token FROM user_tokens WHERE user_id = $1 ORDER BY created_at`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load session tokens: %w", MapError(err))
	}
	defer func() { _ = rows.Close() }()

	tokens := []string{}
	for rows.Next() {
		var token string
		if err := rows.Scan(&token); err != nil {
			return nil, store.NewStoreError("user", "load tokens", "failed to scan row", err)
		}
		tokens = append(tokens, token)
	}
	if err := rows.Err(); err != nil {
		return nil, store.NewStoreError("user", "load tokens", "failed to iterate rows", err)
	}
	return tokens, nil
}
