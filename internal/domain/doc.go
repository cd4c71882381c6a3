// Package domain contains the core business entities of the task service:
// users, their session tokens and the tasks they own. Entities validate
// themselves; normalization and hashing are performed by the service layer
// before anything reaches a store.
package domain
