package notify

import (
	"context"
	"sync"

	"homematch/internal/domain/marketplace"
	"homematch/internal/ports"
)

// Recorder keeps published events in memory. Used by tests and the board
// to show recent activity.
type Recorder struct {
	mu     sync.Mutex
	events []marketplace.Event
	next   ports.Notifier
}

var _ ports.Notifier = (*Recorder)(nil)

// NewRecorder wraps next (may be nil) and remembers every event.
func NewRecorder(next ports.Notifier) *Recorder {
	return &Recorder{next: next}
}

func (r *Recorder) Publish(ctx context.Context, event marketplace.Event) error {
	r.mu.Lock()
	r.events = append(r.events, event)
	r.mu.Unlock()

	if r.next == nil {
		return nil
	}
	return r.next.Publish(ctx, event)
}

func (r *Recorder) Events() []marketplace.Event {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]marketplace.Event, len(r.events))
	copy(out, r.events)
	return out
}

// Names returns event names in publish order.
func (r *Recorder) Names() []string {
	events := r.Events()
	out := make([]string, 0, len(events))
	for _, e := range events {
		out = append(out, e.Name)
	}
	return out
}
