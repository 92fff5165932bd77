package engine

import (
	"context"
	"errors"

	"github.com/mcdev12/campdraft/go/internal/draft/events"
)

// Publisher delivers committed draft events to collaborators.
type Publisher interface {
	Publish(ctx context.Context, env events.Envelope) error
}

// PublisherFunc adapts a function to a Publisher.
type PublisherFunc func(ctx context.Context, env events.Envelope) error

func (f PublisherFunc) Publish(ctx context.Context, env events.Envelope) error {
	return f(ctx, env)
}

// NoOpPublisher drops every event.
type NoOpPublisher struct{}

func (NoOpPublisher) Publish(context.Context, events.Envelope) error { return nil }

// MultiPublisher fans an event out to every publisher, in order. One failing
// publisher does not stop the rest.
type MultiPublisher []Publisher

func (m MultiPublisher) Publish(ctx context.Context, env events.Envelope) error {
	var errs []error
	for _, p := range m {
		if p == nil {
			continue
		}
		if err := p.Publish(ctx, env); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
