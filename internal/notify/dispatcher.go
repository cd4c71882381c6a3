package notify

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/phrazzld/taskd/internal/platform/mail"
)

// Notification kinds.
const (
	KindWelcome  = "welcome"
	KindFarewell = "farewell"
)

// Subjects of the lifecycle emails.
const (
	WelcomeSubject  = "Welcome to the Task App!"
	FarewellSubject = "Sorry to see you go!"
)

// Outcomes reported to a Recorder.
const (
	OutcomeSent    = "sent"
	OutcomeFailed  = "failed"
	OutcomeDropped = "dropped"
)

// sendTimeout bounds a single delivery attempt.
const sendTimeout = 10 * time.Second

// Job is one queued email.
type Job struct {
	Kind    string
	Message mail.Message
}

// Recorder receives one outcome per job.
type Recorder interface {
	MailOutcome(kind, outcome string)
}

// Config holds the dispatcher sizing.
type Config struct {
	// QueueSize is the number of jobs that may wait for a worker.
	QueueSize int
	// WorkerCount is the number of concurrent senders. Defaults to 1.
	WorkerCount int
}

// Dispatcher queues lifecycle emails and delivers them from a worker pool.
type Dispatcher struct {
	queue    *Queue
	sender   mail.Sender
	recorder Recorder
	workers  int
	logger   *slog.Logger

	startOnce sync.Once
	stopOnce  sync.Once
	wg        sync.WaitGroup
}

// NewDispatcher creates a dispatcher. recorder may be nil.
func NewDispatcher(cfg Config, sender mail.Sender, recorder Recorder, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With(slog.String("component", "notify_dispatcher"))

	workers := cfg.WorkerCount
	if workers <= 0 {
		logger.Warn("invalid worker count specified, using default",
			"specified_count", cfg.WorkerCount,
			"default_count", 1)
		workers = 1
	}

	return &Dispatcher{
		queue:    NewQueue(cfg.QueueSize, logger),
		sender:   sender,
		recorder: recorder,
		workers:  workers,
		logger:   logger,
	}
}

// Start launches the workers. Calling it more than once has no effect.
func (d *Dispatcher) Start() {
	d.startOnce.Do(func() {
		d.logger.Info("starting notification workers", "worker_count", d.workers)
		for i := 0; i < d.workers; i++ {
			d.wg.Add(1)
			go d.worker(i)
		}
	})
}

// Stop closes the queue and waits for queued jobs to be delivered or for
// ctx to end, whichever comes first.
func (d *Dispatcher) Stop(ctx context.Context) error {
	var err error
	d.stopOnce.Do(func() {
		d.queue.Close()

		done := make(chan struct{})
		go func() {
			d.wg.Wait()
			close(done)
		}()

		select {
		case <-done:
			d.logger.Info("notification workers stopped")
		case <-ctx.Done():
			err = fmt.Errorf("notification workers did not drain: %w", ctx.Err())
			d.logger.Warn("notification workers did not drain before shutdown deadline")
		}
	})
	return err
}

// Welcome queues the registration email for name at address.
func (d *Dispatcher) Welcome(ctx context.Context, name, address string) {
	d.enqueue(ctx, Job{
		Kind: KindWelcome,
		Message: mail.Message{
			ToName:    name,
			ToAddress: address,
			Subject:   WelcomeSubject,
			Body:      fmt.Sprintf("Welcome to the app, %s. Let me know how you get along with the app.", name),
		},
	})
}

// Farewell queues the account-closure email for name at address.
func (d *Dispatcher) Farewell(ctx context.Context, name, address string) {
	d.enqueue(ctx, Job{
		Kind: KindFarewell,
		Message: mail.Message{
			ToName:    name,
			ToAddress: address,
			Subject:   FarewellSubject,
			Body:      fmt.Sprintf("Goodbye, %s. I hope to see you back sometime soon.", name),
		},
	})
}

func (d *Dispatcher) enqueue(ctx context.Context, job Job) {
	if err := d.queue.Enqueue(job); err != nil {
		d.logger.WarnContext(ctx, "dropping notification",
			"kind", job.Kind,
			"error", err)
		d.record(job.Kind, OutcomeDropped)
	}
}

func (d *Dispatcher) worker(id int) {
	defer d.wg.Done()
	log := d.logger.With("worker_id", id)

	for job := range d.queue.Jobs() {
		d.deliver(log, job)
	}
}

func (d *Dispatcher) deliver(log *slog.Logger, job Job) {
	defer func() {
		if p := recover(); p != nil {
			log.Error("notification sender panicked", "kind", job.Kind, "panic", p)
			d.record(job.Kind, OutcomeFailed)
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
	defer cancel()

	if err := d.sender.Send(ctx, job.Message); err != nil {
		log.Error("notification delivery failed", "kind", job.Kind, "error", err)
		d.record(job.Kind, OutcomeFailed)
		return
	}

	log.Debug("notification delivered", "kind", job.Kind)
	d.record(job.Kind, OutcomeSent)
}

func (d *Dispatcher) record(kind, outcome string) {
	if d.recorder != nil {
		d.recorder.MailOutcome(kind, outcome)
	}
}
