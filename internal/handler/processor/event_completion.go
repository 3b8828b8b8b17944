package processor

import (
	"context"
	"log/slog"
	"time"

	"github.com/isometry/sms-relay-app/internal/controllers/completion"
	"github.com/isometry/sms-relay-app/internal/helpers"
	"github.com/isometry/sms-relay-app/internal/metrics"
	"github.com/isometry/sms-relay-app/internal/relay"
)

// Completer produces a reply for a message.
type Completer interface {
	Complete(ctx context.Context, text string) completion.Result
}

type completionProcessor struct {
	logger    *slog.Logger
	completer Completer
	fallback  string
}

// NewCompletionProcessor returns the stage that asks the completion API for a reply.
// Any failure is replaced by the fallback text.
func NewCompletionProcessor(completer Completer, fallback string, opts ...Option) Processor {
	_inst := &completionProcessor{completer: completer, fallback: fallback, logger: helpers.NewNoopLogger()}
	applyOpts(_inst, opts...)
	return _inst
}

func (p *completionProcessor) SetLogger(logger *slog.Logger) {
	p.logger = logger.WithGroup("event:completion")
}

func (p *completionProcessor) Process(ctx context.Context, bus *relay.Bus) error {
	if bus.Event == nil {
		return relay.NewInternalError("missing event")
	}
	if p.completer == nil {
		return relay.NewInternalError("no completer configured")
	}

	start := time.Now()
	result := p.completer.Complete(ctx, bus.Event.Text)
	metrics.RecordUpstreamCall(metrics.UpstreamCompletion, result.Err, time.Since(start))
	if !result.OK() {
		p.logger.Error("completion failed, using fallback reply", slog.Any("error", result.Err))
		metrics.RecordFallbackReply()
		bus.Reply, bus.ReplySource = p.fallback, relay.ReplyFromFallback
		return nil
	}

	p.logger.Debug("completion succeeded", slog.Int("replyLength", len(result.Reply)))
	bus.Reply, bus.ReplySource = result.Reply, relay.ReplyFromCompletion
	return nil
}
