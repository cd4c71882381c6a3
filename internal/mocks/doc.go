// Package mocks provides centralized test doubles for the task service.
//
// MemoryStore backs MemoryUserStore, MemoryTaskStore and MemoryTransactor
// with one shared in-memory state, so handler and service tests can exercise
// ownership and cascade behavior without a database. Function-field mocks
// such as MockJWTService and MockPasswordHasher cover single-method seams,
// and TestifyMockUserStore is available where a test needs call assertions.
//
// Usage:
//
//	mem := mocks.NewMemoryStore()
//	users, tasks := mem.Users(), mem.Tasks()
//	tx := &mocks.MemoryTransactor{Users: users, Tasks: tasks}
package mocks
