// Package store defines the persistence interfaces of the task service and the
// storage-independent parts of querying: error values, transaction helpers
// and TaskQuery, which turns raw listing parameters into an owner-scoped
// filter, ordering and page. Concrete implementations live under
// internal/platform.
package store
