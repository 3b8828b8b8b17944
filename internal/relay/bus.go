// Package relay holds the per-request state passed along the webhook processing pipeline.
package relay

import (
	"log/slog"

	"github.com/isometry/sms-relay-app/internal/models"
)

// ReplySource records where the outbound reply text came from.
type ReplySource string

const (
	// ReplyFromCompletion is a reply generated by the completion API.
	ReplyFromCompletion ReplySource = "completion"
	// ReplyFromFallback is the configured fallback text, used when the completion call failed.
	ReplyFromFallback ReplySource = "fallback"
)

// Bus carries one request through the processors. It is created per request and never shared.
type Bus struct {
	Request  models.Request
	Response models.Response
	// Done stops the pipeline; Response is returned as is.
	Done bool
	// Error is reported to the caller alongside Response.
	Error error

	Event *models.InboundMessageEvent

	ArchiveKey  string
	Reply       string
	ReplySource ReplySource
	MessageID   string
}

// NewBus creates a Bus for req with a default 200 response.
func NewBus(req models.Request) *Bus {
	return &Bus{
		Request:  req,
		Response: models.Response{StatusCode: 200},
	}
}

// Finish sets the response and stops the pipeline.
func (b *Bus) Finish(response models.Response, err error) {
	b.Response = response
	b.Error = err
	b.Done = true
}

// LogValue returns the structured attributes describing the request's progress.
func (b *Bus) LogValue() slog.Value {
	logAttr := make([]slog.Attr, 0, 5)
	if b.Event != nil {
		logAttr = append(logAttr, slog.Any("event", b.Event))
	}
	if b.ArchiveKey != "" {
		logAttr = append(logAttr, slog.String("archiveKey", b.ArchiveKey))
	}
	if b.ReplySource != "" {
		logAttr = append(logAttr, slog.String("replySource", string(b.ReplySource)))
	}
	if b.MessageID != "" {
		logAttr = append(logAttr, slog.String("messageID", b.MessageID))
	}
	logAttr = append(logAttr, slog.Int("statusCode", b.Response.StatusCode))
	return slog.GroupValue(logAttr...)
}
