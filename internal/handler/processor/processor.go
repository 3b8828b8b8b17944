// Package processor provides the stages a webhook goes through, run in order over a shared relay.Bus.
package processor

import (
	"context"
	"log/slog"

	"github.com/isometry/sms-relay-app/internal/relay"
)

// Option is a function that applies an option to a Processor.
type Option = func(Processor)

// Processor is a single pipeline stage.
type Processor interface {
	SetLogger(logger *slog.Logger)
	Process(ctx context.Context, bus *relay.Bus) error
}

// Process runs the processors in order until one fails or marks the bus as done.
// Processors are shared between concurrent requests and must not be mutated here.
func Process(ctx context.Context, bus *relay.Bus, processors ...Processor) error {
	for _, p := range processors {
		if bus.Done {
			return nil
		}
		if err := p.Process(ctx, bus); err != nil {
			return err
		}
	}
	return nil
}

// WithLogger sets the processor logger. It is applied once, when the processor is built.
func WithLogger(logger *slog.Logger) Option {
	return func(p Processor) {
		p.SetLogger(logger)
	}
}

func applyOpts(m Processor, opts ...Option) {
	for _, opt := range opts {
		opt(m)
	}
}
