package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	awsctl "github.com/isometry/sms-relay-app/internal/controllers/aws"
	"github.com/isometry/sms-relay-app/internal/handler/processor"
)

// WithLogger sets the logger instance for the handler.
func WithLogger(logger *slog.Logger) Option {
	return func(h *Handler) {
		h.logger = logger
	}
}

// WithContext sets the context used during initialization, e.g. when fetching secrets.
func WithContext(ctx context.Context) Option {
	return func(h *Handler) {
		h.ctx = ctx
	}
}

// WithLambdaPayloadType sets the lambda payload type for a Handler instance.
func WithLambdaPayloadType(payloadType string) Option {
	return func(h *Handler) {
		h.lambdaPayloadType = payloadType
	}
}

// WithVerificationMode sets how webhook signatures are verified: hmac, ed25519 or none.
func WithVerificationMode(mode string) Option {
	return func(h *Handler) {
		h.mode = mode
	}
}

// WithWebhookSecret configures the handler with a shared secret for HMAC request validation.
func WithWebhookSecret(secret string) Option {
	return func(h *Handler) {
		h.secrets.WebhookSecret = secret
	}
}

// WithPublicKey configures the handler with the provider's base64 encoded Ed25519 public key.
func WithPublicKey(key string) Option {
	return func(h *Handler) {
		h.secrets.PublicKey = key
	}
}

// WithSignatureHeader overrides the header carrying the request signature.
func WithSignatureHeader(name string) Option {
	return func(h *Handler) {
		h.signatureHeader = name
	}
}

// WithTimestampHeader overrides the header carrying the signed timestamp.
func WithTimestampHeader(name string) Option {
	return func(h *Handler) {
		h.timestampHeader = name
	}
}

// WithSignatureTolerance bounds the accepted age of signed timestamps.
func WithSignatureTolerance(tolerance time.Duration) Option {
	return func(h *Handler) {
		h.tolerance = tolerance
	}
}

// WithTelnyxAPIKey sets the key used to send replies.
func WithTelnyxAPIKey(key string) Option {
	return func(h *Handler) {
		h.secrets.TelnyxAPIKey = key
	}
}

// WithTelnyxURL overrides the messages endpoint.
func WithTelnyxURL(url string) Option {
	return func(h *Handler) {
		h.telnyxURL = url
	}
}

// WithSendingNumber sets the number replies are sent from when the inbound event has no recipient.
func WithSendingNumber(number string) Option {
	return func(h *Handler) {
		h.sendingNumber = number
	}
}

// WithCompletionAPIKey sets the completion API bearer token.
func WithCompletionAPIKey(key string) Option {
	return func(h *Handler) {
		h.secrets.CompletionAPIKey = key
	}
}

// WithCompletionURL overrides the chat-completions endpoint.
func WithCompletionURL(url string) Option {
	return func(h *Handler) {
		h.completionURL = url
	}
}

// WithCompletionModel sets the requested model.
func WithCompletionModel(model string) Option {
	return func(h *Handler) {
		h.completionModel = model
	}
}

// WithOutboundTimeout bounds each call to the completion and messaging APIs.
func WithOutboundTimeout(timeout time.Duration) Option {
	return func(h *Handler) {
		h.outboundTimeout = timeout
	}
}

// WithFallbackReply sets the text sent when the completion call fails.
func WithFallbackReply(text string) Option {
	return func(h *Handler) {
		if text != "" {
			h.fallbackReply = text
		}
	}
}

// WithSecretsSSMKey loads a JSON Secrets bundle from this SSM parameter at startup.
func WithSecretsSSMKey(key string) Option {
	return func(h *Handler) {
		h.secretsSSMKey = key
	}
}

// WithArchive stores authenticated inbound payloads in the S3 bucket under prefix.
func WithArchive(bucket, prefix string) Option {
	return func(h *Handler) {
		h.archiveBucket = bucket
		h.archivePrefix = prefix
	}
}

// WithHTTPClient sets the base HTTP client for outbound API calls.
func WithHTTPClient(client *http.Client) Option {
	return func(h *Handler) {
		h.httpClient = client
	}
}

// WithAWSController injects a preconfigured AWS controller.
func WithAWSController(ctl *awsctl.Controller) Option {
	return func(h *Handler) {
		h.awsController = ctl
	}
}

// WithCompleter replaces the completion API controller.
func WithCompleter(completer processor.Completer) Option {
	return func(h *Handler) {
		h.completer = completer
	}
}

// WithSender replaces the messaging API controller.
func WithSender(sender processor.Sender) Option {
	return func(h *Handler) {
		h.sender = sender
	}
}
