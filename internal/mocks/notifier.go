package mocks

import (
	"context"
	"sync"
)

// Notification is one lifecycle message captured by RecordingNotifier.
type Notification struct {
	Kind    string
	Name    string
	Address string
}

// RecordingNotifier implements service.Notifier by recording every call.
type RecordingNotifier struct {
	mu    sync.Mutex
	calls []Notification
}

// Welcome implements the service.Notifier interface
func (n *RecordingNotifier) Welcome(ctx context.Context, name, address string) {
	n.record("welcome", name, address)
}

// Farewell implements the service.Notifier interface
func (n *RecordingNotifier) Farewell(ctx context.Context, name, address string) {
	n.record("farewell", name, address)
}

func (n *RecordingNotifier) record(kind, name, address string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls = append(n.calls, Notification{Kind: kind, Name: name, Address: address})
}

// Calls returns a copy of the recorded notifications in call order.
func (n *RecordingNotifier) Calls() []Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]Notification(nil), n.calls...)
}
