package processor

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/isometry/sms-relay-app/internal/helpers"
	"github.com/isometry/sms-relay-app/internal/metrics"
	"github.com/isometry/sms-relay-app/internal/models"
	"github.com/isometry/sms-relay-app/internal/relay"
	"github.com/isometry/sms-relay-app/internal/validation"
)

type authValidatorProcessor struct {
	logger    *slog.Logger
	validator *validation.Validator
}

// NewAuthValidatorProcessor returns the stage that authenticates the request and parses the message event.
// Unauthenticated requests finish with 403. Malformed requests finish with 200 so the provider does not retry.
func NewAuthValidatorProcessor(validator *validation.Validator, opts ...Option) Processor {
	_inst := &authValidatorProcessor{validator: validator, logger: helpers.NewNoopLogger()}
	applyOpts(_inst, opts...)
	return _inst
}

func (p *authValidatorProcessor) SetLogger(logger *slog.Logger) {
	p.logger = logger.WithGroup("pre-processor:validator")
}

func (p *authValidatorProcessor) Process(_ context.Context, bus *relay.Bus) error {
	if p.validator == nil {
		return relay.NewInternalError("no validator configured")
	}

	result := p.validator.Validate(bus.Request.Body, bus.Request.Headers)
	metrics.RecordWebhook(result.Outcome.String())

	switch result.Outcome {
	case validation.Authentic:
		bus.Event = result.Event
		p.logger.Debug("request is authentic", slog.Any("event", bus.Event))
		return nil
	case validation.Unauthenticated:
		p.logger.Warn("rejecting unauthenticated request", slog.Any("error", result.Err))
		bus.Finish(models.Response{StatusCode: http.StatusForbidden}, result.Err)
		return nil
	case validation.Malformed:
		p.logger.Warn("ignoring malformed payload", slog.Any("error", result.Err))
		bus.Finish(models.Response{Body: "ignored malformed payload", StatusCode: http.StatusOK}, nil)
		return nil
	default:
		return relay.NewInternalError("unexpected validation outcome: %v", result.Outcome)
	}
}
