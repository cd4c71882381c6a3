// Package config handles configuration loading, parsing, and validation
// from environment variables and an optional config.yaml. It provides
// type-safe access to settings needed by the server, the stores, the token
// service and the mail dispatcher while keeping configuration details
// separate from business logic.
package config
