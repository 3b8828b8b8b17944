package processor

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/isometry/sms-relay-app/internal/controllers/telnyx"
	"github.com/isometry/sms-relay-app/internal/helpers"
	"github.com/isometry/sms-relay-app/internal/metrics"
	"github.com/isometry/sms-relay-app/internal/models"
	"github.com/isometry/sms-relay-app/internal/relay"
)

// Sender delivers an SMS.
type Sender interface {
	Send(ctx context.Context, msg telnyx.Message) telnyx.Result
}

type replyPostProcessor struct {
	logger      *slog.Logger
	sender      Sender
	defaultFrom string
}

// NewReplyPostProcessor returns the stage that sends the reply back to the original sender.
// The reply goes out from the number the message was addressed to, or defaultFrom when that is blank.
// Send failures are logged and the request is still acknowledged.
func NewReplyPostProcessor(sender Sender, defaultFrom string, opts ...Option) Processor {
	_inst := &replyPostProcessor{sender: sender, defaultFrom: defaultFrom, logger: helpers.NewNoopLogger()}
	applyOpts(_inst, opts...)
	return _inst
}

func (p *replyPostProcessor) SetLogger(logger *slog.Logger) {
	p.logger = logger.WithGroup("post-processor:reply")
}

func (p *replyPostProcessor) Process(ctx context.Context, bus *relay.Bus) error {
	if bus.Event == nil {
		return relay.NewInternalError("missing event")
	}
	if p.sender == nil {
		return relay.NewInternalError("no sender configured")
	}

	from := bus.Event.To
	if from == "" {
		from = p.defaultFrom
	}
	msg := telnyx.Message{From: from, To: bus.Event.From, Text: bus.Reply}

	start := time.Now()
	result := p.sender.Send(ctx, msg)
	metrics.RecordUpstreamCall(metrics.UpstreamTelnyx, result.Err, time.Since(start))
	if !result.OK() {
		p.logger.Error("failed to send reply", slog.Any("error", result.Err), slog.String("to", msg.To))
		bus.Response = models.Response{Body: "reply not delivered", StatusCode: http.StatusOK}
		return nil
	}

	bus.MessageID = result.MessageID
	p.logger.Info("reply sent", slog.String("to", msg.To), slog.String("messageID", result.MessageID), slog.String("replySource", string(bus.ReplySource)))
	bus.Response = models.Response{Body: "reply sent", StatusCode: http.StatusOK}
	return nil
}
