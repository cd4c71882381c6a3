// Package postgres provides the PostgreSQL implementations of the store
// interfaces: users with their session tokens and avatars, owner-scoped
// tasks, the transactor used for multi-store units of work, and the embedded
// goose migrations that create the schema.
package postgres
