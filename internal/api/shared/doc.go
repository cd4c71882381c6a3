// Package shared holds the request-context keys and response helpers used by
// both the API handlers and their middleware.
package shared
