package service

import (
	"errors"
	"testing"

	"github.com/phrazzld/taskd/internal/store"
	"github.com/stretchr/testify/assert"
)

func TestSentinelErrors(t *testing.T) {
	assert.False(t, errors.Is(ErrInvalidUpdateFields, ErrInvalidLogin))
	assert.False(t, errors.Is(ErrInvalidLogin, ErrInvalidUpdateFields))
}

func TestServiceError_Error(t *testing.T) {
	tests := []struct {
		name     string
		service  string
		op       string
		err      error
		expected string
	}{
		{
			name:     "with underlying error",
			service:  "user",
			op:       "register",
			err:      errors.New("database connection failed"),
			expected: "user service register operation failed: database connection failed",
		},
		{
			name:     "without underlying error",
			service:  "task",
			op:       "delete",
			expected: "task service delete operation failed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, NewServiceError(tt.service, tt.op, tt.err).Error())
		})
	}
}

func TestServiceError_Unwrap(t *testing.T) {
	err := NewServiceError("task", "list", store.ErrTransactionFailed)

	assert.ErrorIs(t, err, store.ErrTransactionFailed)

	var serviceErr *ServiceError
	wrapped := NewServiceError("user", "close_account", err)
	assert.True(t, errors.As(wrapped.Err, &serviceErr))
	assert.Equal(t, "task", serviceErr.Service)
	assert.Equal(t, "list", serviceErr.Op)
}
