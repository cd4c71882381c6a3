package postgres

import (
	"context"
	"database/sql"

	"github.com/phrazzld/taskd/internal/store"
)

// Transactor runs units of work in a single database transaction, handing
// them user and task stores bound to that transaction.
type Transactor struct {
	db    *sql.DB
	users store.UserStore
	tasks store.TaskStore
}

// Ensure Transactor implements store.Transactor interface
var _ store.Transactor = (*Transactor)(nil)

// NewTransactor creates a Transactor over db using the given stores as
// templates for their transaction-bound copies.
func NewTransactor(db *sql.DB, users store.UserStore, tasks store.TaskStore) *Transactor {
	return &Transactor{
		db:    db,
		users: users,
		tasks: tasks,
	}
}

// WithinTx implements store.Transactor.WithinTx
func (t *Transactor) WithinTx(ctx context.Context, fn func(ctx context.Context, stores store.Stores) error) error {
	return store.RunInTransaction(ctx, t.db, func(ctx context.Context, tx *sql.Tx) error {
		return fn(ctx, store.Stores{
			Users: t.users.WithTx(tx),
			Tasks: t.tasks.WithTx(tx),
		})
	})
}
