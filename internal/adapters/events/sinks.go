package events

import (
	"context"
	"log/slog"
	"sync"

	"github.com/trebuchet-org/govlock/internal/domain"
	"github.com/trebuchet-org/govlock/internal/usecase"
)

// LogSink writes every event to the logger
type LogSink struct {
	log *slog.Logger
}

// NewLogSink creates a sink logging at info level
func NewLogSink(log *slog.Logger) *LogSink {
	return &LogSink{log: log.With("component", "Events")}
}

// OnEvent implements usecase.EventSink
func (s *LogSink) OnEvent(ctx context.Context, event domain.GovernanceEvent) {
	s.log.InfoContext(ctx, event.String(), "event", event.ContractEventName())
}

// Recorder keeps events in memory in the order they were emitted
type Recorder struct {
	mu     sync.Mutex
	events []domain.GovernanceEvent
}

// NewRecorder creates an empty recorder
func NewRecorder() *Recorder {
	return &Recorder{}
}

// OnEvent implements usecase.EventSink
func (r *Recorder) OnEvent(_ context.Context, event domain.GovernanceEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

// Events returns a copy of the recorded events
func (r *Recorder) Events() []domain.GovernanceEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.GovernanceEvent, len(r.events))
	copy(out, r.events)
	return out
}

// Names returns the contract event names in order
func (r *Recorder) Names() []string {
	events := r.Events()
	names := make([]string, len(events))
	for i, e := range events {
		names[i] = e.ContractEventName()
	}
	return names
}

// Reset drops the recorded events
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}

// Multi fans an event out to several sinks
type Multi []usecase.EventSink

// OnEvent implements usecase.EventSink
func (m Multi) OnEvent(ctx context.Context, event domain.GovernanceEvent) {
	for _, s := range m {
		s.OnEvent(ctx, event)
	}
}
