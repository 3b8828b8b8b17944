package processor

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/isometry/sms-relay-app/internal/helpers"
	"github.com/isometry/sms-relay-app/internal/metrics"
	"github.com/isometry/sms-relay-app/internal/models"
	"github.com/isometry/sms-relay-app/internal/relay"
)

type directionFilterProcessor struct {
	logger *slog.Logger
}

// NewDirectionFilterProcessor returns the stage that acknowledges and drops non-inbound messages.
func NewDirectionFilterProcessor(opts ...Option) Processor {
	_inst := &directionFilterProcessor{logger: helpers.NewNoopLogger()}
	applyOpts(_inst, opts...)
	return _inst
}

func (p *directionFilterProcessor) SetLogger(logger *slog.Logger) {
	p.logger = logger.WithGroup("event:direction")
}

func (p *directionFilterProcessor) Process(_ context.Context, bus *relay.Bus) error {
	if bus.Event == nil {
		return relay.NewInternalError("missing event")
	}
	if !bus.Event.IsInbound() {
		p.logger.Info("ignoring non-inbound message", slog.String("direction", bus.Event.Direction), slog.String("eventType", bus.Event.EventType))
		metrics.RecordWebhook("ignored")
		bus.Finish(models.Response{Body: "ignored " + bus.Event.Direction + " message", StatusCode: http.StatusOK}, nil)
	}
	return nil
}
