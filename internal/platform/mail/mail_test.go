package mail

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"testing"

	"github.com/phrazzld/taskd/internal/config"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSendGridSender_Send(t *testing.T) {
	t.Parallel()

	var captured *sgmail.SGMailV3
	sender := newSendGridSender("noreply@example.com", "Task App", nil,
		func(ctx context.Context, msg *sgmail.SGMailV3) (int, error) {
			captured = msg
			return http.StatusAccepted, nil
		})

	err := sender.Send(context.Background(), Message{
		ToName:    "Ada",
		ToAddress: "ada@example.com",
		Subject:   "Welcome to the Task App!",
		Body:      "Welcome to the app, Ada.",
	})
	require.NoError(t, err)
	require.NotNil(t, captured)

	assert.Equal(t, "noreply@example.com", captured.From.Address)
	assert.Equal(t, "Task App", captured.From.Name)
	assert.Equal(t, "Welcome to the Task App!", captured.Subject)
	require.Len(t, captured.Personalizations, 1)
	require.Len(t, captured.Personalizations[0].To, 1)
	assert.Equal(t, "ada@example.com", captured.Personalizations[0].To[0].Address)
	require.NotEmpty(t, captured.Content)
	assert.Equal(t, "text/plain", captured.Content[0].Type)
	assert.Equal(t, "Welcome to the app, Ada.", captured.Content[0].Value)
}

func TestSendGridSender_Failures(t *testing.T) {
	t.Parallel()

	t.Run("transport error", func(t *testing.T) {
		sender := newSendGridSender("noreply@example.com", "", nil,
			func(ctx context.Context, msg *sgmail.SGMailV3) (int, error) {
				return 0, errors.New("dial tcp: refused")
			})
		assert.ErrorIs(t, sender.Send(context.Background(), Message{ToAddress: "a@b.c"}), ErrDeliveryFailed)
	})

	t.Run("rejected", func(t *testing.T) {
		sender := newSendGridSender("noreply@example.com", "", nil,
			func(ctx context.Context, msg *sgmail.SGMailV3) (int, error) {
				return http.StatusUnauthorized, nil
			})
		err := sender.Send(context.Background(), Message{ToAddress: "a@b.c"})
		assert.ErrorIs(t, err, ErrDeliveryFailed)
		assert.Contains(t, err.Error(), "401")
	})
}

func TestLogSender_DoesNotLogRecipient(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	sender := NewLogSender(slog.New(slog.NewJSONHandler(&buf, nil)))

	require.NoError(t, sender.Send(context.Background(), Message{
		ToAddress: "secret@example.com",
		Subject:   "Sorry to see you go!",
		Body:      "Goodbye",
	}))

	assert.Contains(t, buf.String(), "Sorry to see you go!")
	assert.NotContains(t, buf.String(), "secret@example.com")
}

func TestNewSender(t *testing.T) {
	t.Parallel()

	_, isLog := NewSender(config.MailConfig{}, nil).(*LogSender)
	assert.True(t, isLog)

	_, isSendGrid := NewSender(config.MailConfig{
		SendGridAPIKey: "SG.key",
		FromAddress:    "noreply@example.com",
	}, nil).(*SendGridSender)
	assert.True(t, isSendGrid)
}
