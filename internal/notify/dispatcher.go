package notify

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"queuesmart/backend/internal/domain"
	"queuesmart/backend/internal/metrics"
)

// Emitter is a single delivery channel.
type Emitter interface {
	Emit(ctx context.Context, ev domain.NotificationEvent) error
}

// EmitterFunc adapts a function to Emitter.
type EmitterFunc func(ctx context.Context, ev domain.NotificationEvent) error

func (f EmitterFunc) Emit(ctx context.Context, ev domain.NotificationEvent) error {
	return f(ctx, ev)
}

// Dispatcher fans one event out to every registered sink synchronously.
// A failing sink does not stop the others; failures are joined.
type Dispatcher struct {
	mu    sync.RWMutex
	sinks []namedSink
}

type namedSink struct {
	name    string
	emitter Emitter
}

func NewDispatcher() *Dispatcher {
	return &Dispatcher{}
}

func (d *Dispatcher) Register(name string, e Emitter) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.sinks = append(d.sinks, namedSink{name: name, emitter: e})
}

func (d *Dispatcher) Sinks() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]string, 0, len(d.sinks))
	for _, s := range d.sinks {
		out = append(out, s.name)
	}
	return out
}

func (d *Dispatcher) Emit(ctx context.Context, ev domain.NotificationEvent) error {
	d.mu.RLock()
	sinks := append([]namedSink{}, d.sinks...)
	d.mu.RUnlock()

	var errs []error
	for _, s := range sinks {
		if err := s.emitter.Emit(ctx, ev); err != nil {
			metrics.RecordNotification(string(ev.Kind), s.name, "error")
			errs = append(errs, fmt.Errorf("%s: %w", s.name, err))
			continue
		}
		metrics.RecordNotification(string(ev.Kind), s.name, "ok")
	}
	return errors.Join(errs...)
}
