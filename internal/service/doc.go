// Package service contains the application's use cases: account lifecycle,
// sessions and avatars in UserService, and owner-scoped task management in
// TaskService. It orchestrates the stores defined in internal/store, password
// hashing and token issuing from internal/service/auth, and lifecycle mail
// through the Notifier interface.
//
// Steps that a document database would run as hooks (hashing a changed
// password, removing a closed account's tasks) are explicit here so every
// side effect of an operation is visible at its call site.
//
// Services return domain and store sentinels for expected conditions and
// wrap unexpected failures in *ServiceError. The API layer maps them to
// status codes.
package service
