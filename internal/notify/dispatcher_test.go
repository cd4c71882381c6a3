package notify

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/phrazzld/taskd/internal/platform/mail"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSender struct {
	mu       sync.Mutex
	messages []mail.Message
	err      error
	block    chan struct{}
}

func (s *recordingSender) Send(ctx context.Context, msg mail.Message) error {
	if s.block != nil {
		<-s.block
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, msg)
	return s.err
}

func (s *recordingSender) sent() []mail.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]mail.Message(nil), s.messages...)
}

type countingRecorder struct {
	mu     sync.Mutex
	counts map[string]int
}

func (r *countingRecorder) MailOutcome(kind, outcome string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.counts == nil {
		r.counts = map[string]int{}
	}
	r.counts[kind+"/"+outcome]++
}

func (r *countingRecorder) count(kind, outcome string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.counts[kind+"/"+outcome]
}

func TestDispatcher_DeliversLifecycleMail(t *testing.T) {
	t.Parallel()

	sender := &recordingSender{}
	rec := &countingRecorder{}
	d := NewDispatcher(Config{QueueSize: 4, WorkerCount: 2}, sender, rec, nil)
	d.Start()

	d.Welcome(context.Background(), "Ada", "ada@example.com")
	d.Farewell(context.Background(), "Ada", "ada@example.com")

	require.NoError(t, d.Stop(context.Background()))

	sent := sender.sent()
	require.Len(t, sent, 2)

	subjects := map[string]mail.Message{}
	for _, m := range sent {
		subjects[m.Subject] = m
	}
	require.Contains(t, subjects, WelcomeSubject)
	require.Contains(t, subjects, FarewellSubject)
	assert.Equal(t, "ada@example.com", subjects[WelcomeSubject].ToAddress)
	assert.Contains(t, subjects[WelcomeSubject].Body, "Ada")
	assert.Contains(t, subjects[FarewellSubject].Body, "Ada")

	assert.Equal(t, 1, rec.count(KindWelcome, OutcomeSent))
	assert.Equal(t, 1, rec.count(KindFarewell, OutcomeSent))
}

func TestDispatcher_DropsWhenFull(t *testing.T) {
	t.Parallel()

	sender := &recordingSender{}
	rec := &countingRecorder{}
	d := NewDispatcher(Config{QueueSize: 1, WorkerCount: 1}, sender, rec, nil)

	d.Welcome(context.Background(), "A", "a@example.com")
	d.Welcome(context.Background(), "B", "b@example.com")
	assert.Equal(t, 1, rec.count(KindWelcome, OutcomeDropped))

	d.Start()
	require.NoError(t, d.Stop(context.Background()))
	require.Len(t, sender.sent(), 1)
	assert.Equal(t, "a@example.com", sender.sent()[0].ToAddress)
}

func TestDispatcher_DropsAfterStop(t *testing.T) {
	t.Parallel()

	rec := &countingRecorder{}
	d := NewDispatcher(Config{QueueSize: 2, WorkerCount: 1}, &recordingSender{}, rec, nil)
	d.Start()
	require.NoError(t, d.Stop(context.Background()))

	assert.NotPanics(t, func() {
		d.Farewell(context.Background(), "A", "a@example.com")
	})
	assert.Equal(t, 1, rec.count(KindFarewell, OutcomeDropped))
}

func TestDispatcher_SenderFailureIsCounted(t *testing.T) {
	t.Parallel()

	rec := &countingRecorder{}
	sender := &recordingSender{err: errors.New("provider down")}
	d := NewDispatcher(Config{QueueSize: 2, WorkerCount: 1}, sender, rec, nil)
	d.Start()

	d.Welcome(context.Background(), "A", "a@example.com")
	require.NoError(t, d.Stop(context.Background()))

	assert.Equal(t, 1, rec.count(KindWelcome, OutcomeFailed))
}

func TestDispatcher_StopHonoursDeadline(t *testing.T) {
	t.Parallel()

	sender := &recordingSender{block: make(chan struct{})}
	defer close(sender.block)

	d := NewDispatcher(Config{QueueSize: 2, WorkerCount: 1}, sender, nil, nil)
	d.Start()
	d.Welcome(context.Background(), "A", "a@example.com")

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := d.Stop(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestQueue(t *testing.T) {
	t.Parallel()

	q := NewQueue(1, nil)
	require.NoError(t, q.Enqueue(Job{Kind: KindWelcome}))
	assert.ErrorIs(t, q.Enqueue(Job{Kind: KindWelcome}), ErrQueueFull)

	q.Close()
	q.Close()
	assert.ErrorIs(t, q.Enqueue(Job{Kind: KindWelcome}), ErrQueueClosed)

	job, ok := <-q.Jobs()
	assert.True(t, ok)
	assert.Equal(t, KindWelcome, job.Kind)
}
