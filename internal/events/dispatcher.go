// Package events delivers in-process notifications about stored content.
package events

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"news_maker/internal/domain"
)

type Handler func(ctx context.Context, evt domain.ContentCreated) error

type subscriber struct {
	name    string
	handler Handler
}

// Dispatcher runs subscribers synchronously in subscription order. A failing
// subscriber does not stop the ones after it.
type Dispatcher struct {
	mu          sync.RWMutex
	subscribers []subscriber
	logger      *slog.Logger
}

func NewDispatcher(logger *slog.Logger) *Dispatcher {
	return &Dispatcher{logger: logger.With("component", "events")}
}

func (d *Dispatcher) Subscribe(name string, handler Handler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.subscribers = append(d.subscribers, subscriber{name: name, handler: handler})
}

func (d *Dispatcher) Dispatch(ctx context.Context, evt domain.ContentCreated) error {
	d.mu.RLock()
	subs := make([]subscriber, len(d.subscribers))
	copy(subs, d.subscribers)
	d.mu.RUnlock()

	var errs []error
	for _, sub := range subs {
		if err := sub.handler(ctx, evt); err != nil {
			d.logger.Error("subscriber failed", "subscriber", sub.name, "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", sub.name, err))
		}
	}

	return errors.Join(errs...)
}
