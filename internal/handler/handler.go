// Package handler turns an inbound SMS webhook into a generated reply sent back to the sender.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	awsctl "github.com/isometry/sms-relay-app/internal/controllers/aws"
	"github.com/isometry/sms-relay-app/internal/controllers/completion"
	"github.com/isometry/sms-relay-app/internal/controllers/telnyx"
	"github.com/isometry/sms-relay-app/internal/handler/processor"
	"github.com/isometry/sms-relay-app/internal/helpers"
	"github.com/isometry/sms-relay-app/internal/models"
	"github.com/isometry/sms-relay-app/internal/relay"
	"github.com/isometry/sms-relay-app/internal/validation"
	pkgerrors "github.com/pkg/errors"
)

// DefaultFallbackReply is sent when the completion API cannot produce a reply.
const DefaultFallbackReply = "Sorry, I couldn't come up with a reply right now. Please try again later."

// Option is a functional option applied by NewRelayHandler.
type Option func(*Handler)

// Secrets is the JSON document optionally stored in SSM. Non-empty values override the configured ones.
type Secrets struct {
	TelnyxAPIKey     string `json:"telnyx_api_key,omitempty"`
	CompletionAPIKey string `json:"completion_api_key,omitempty"`
	WebhookSecret    string `json:"webhook_secret,omitempty"`
	PublicKey        string `json:"public_key,omitempty"`
}

// Handler holds read-only configuration and the collaborators shared by all requests.
type Handler struct {
	ctx    context.Context
	logger *slog.Logger

	secrets         Secrets
	secretsSSMKey   string
	mode            string
	signatureHeader string
	timestampHeader string
	tolerance       time.Duration

	sendingNumber     string
	completionURL     string
	completionModel   string
	telnyxURL         string
	outboundTimeout   time.Duration
	fallbackReply     string
	archiveBucket     string
	archivePrefix     string
	lambdaPayloadType string
	httpClient        *http.Client

	awsController *awsctl.Controller
	validator     *validation.Validator
	completer     processor.Completer
	sender        processor.Sender
	archiver      processor.Archiver
	processors    []processor.Processor
}

// NewRelayHandler builds a Handler. Missing keys and secrets do not fail construction: the affected stage
// degrades at request time. Only values that cannot be interpreted at all, such as an unknown verification
// mode, are returned as a ConfigurationError.
func NewRelayHandler(options ...Option) (*Handler, error) {
	_inst := &Handler{
		logger:          helpers.NewNoopLogger(),
		fallbackReply:   DefaultFallbackReply,
		outboundTimeout: completion.DefaultTimeout,
	}
	for _, opt := range options {
		opt(_inst)
	}
	if _inst.ctx == nil {
		_inst.ctx = context.Background()
	}

	mode, err := validation.ParseMode(_inst.mode)
	if err != nil {
		return nil, &ConfigurationError{Key: "verification-mode", Cause: err}
	}

	if err = _inst.setupAWS(); err != nil {
		return nil, err
	}
	_inst.loadSecrets()

	if _inst.validator == nil {
		validatorOpts := []validation.Option{
			validation.WithLogger(_inst.logger.With("component", "validator")),
			validation.WithMode(mode),
			validation.WithSignatureHeader(_inst.signatureHeader),
			validation.WithTimestampHeader(_inst.timestampHeader),
			validation.WithTolerance(_inst.tolerance),
		}
		switch mode {
		case validation.ModeHMAC:
			validatorOpts = append(validatorOpts, validation.WithWebhookSecret(_inst.secrets.WebhookSecret))
		case validation.ModeEd25519:
			validatorOpts = append(validatorOpts, validation.WithPublicKey(_inst.secrets.PublicKey))
		}
		_inst.validator = validation.NewValidator(validatorOpts...)
	}

	if _inst.completer == nil {
		_inst.completer = completion.NewController(
			completion.WithLogger(_inst.logger.With("component", "completion-controller")),
			completion.WithAPIKey(_inst.secrets.CompletionAPIKey),
			completion.WithURL(_inst.completionURL),
			completion.WithModel(_inst.completionModel),
			completion.WithTimeout(_inst.outboundTimeout),
			completion.WithHTTPClient(_inst.httpClient))
	}
	if _inst.sender == nil {
		_inst.sender = telnyx.NewController(
			telnyx.WithLogger(_inst.logger.With("component", "telnyx-controller")),
			telnyx.WithAPIKey(_inst.secrets.TelnyxAPIKey),
			telnyx.WithURL(_inst.telnyxURL),
			telnyx.WithTimeout(_inst.outboundTimeout),
			telnyx.WithHTTPClient(_inst.httpClient))
	}
	if _inst.archiver == nil && _inst.awsController != nil {
		_inst.archiver = _inst.awsController
	}

	_inst.warnMissingConfiguration(mode)

	withLogger := processor.WithLogger(_inst.logger)
	_inst.processors = []processor.Processor{
		processor.NewAuthValidatorProcessor(_inst.validator, withLogger),
		processor.NewDirectionFilterProcessor(withLogger),
		processor.NewArchivePreProcessor(_inst.archiver, _inst.archiveBucket, _inst.archivePrefix, withLogger),
		processor.NewCompletionProcessor(_inst.completer, _inst.fallbackReply, withLogger),
		processor.NewReplyPostProcessor(_inst.sender, _inst.sendingNumber, withLogger),
	}
	return _inst, nil
}

// setupAWS creates the AWS controller when SSM secrets or the S3 archive need it.
func (h *Handler) setupAWS() error {
	if h.awsController != nil || (h.secretsSSMKey == "" && (h.archiveBucket == "" || h.archiver != nil)) {
		return nil
	}
	ctl, err := awsctl.NewController(
		awsctl.WithLogger(h.logger.With("component", "aws-controller")),
		awsctl.WithContext(h.ctx))
	if err != nil {
		return pkgerrors.Wrap(err, "failed to create AWS controller")
	}
	h.awsController = ctl
	return nil
}

// loadSecrets overlays the SSM secrets bundle on the configured secrets. Failures are logged and the
// configured values are kept.
func (h *Handler) loadSecrets() {
	if h.secretsSSMKey == "" || h.awsController == nil {
		return
	}
	raw, err := h.awsController.GetSecret(h.ctx, h.secretsSSMKey, true)
	if err != nil {
		h.logger.Error("failed to fetch secrets from SSM", slog.Any("error", err))
		return
	}
	var fetched Secrets
	if err = json.Unmarshal([]byte(raw), &fetched); err != nil {
		h.logger.Error("failed to unmarshal secrets", slog.Any("error", err))
		return
	}
	h.secrets = h.secrets.merge(fetched)
	h.logger.Debug("loaded secrets from SSM")
}

func (s Secrets) merge(o Secrets) Secrets {
	if o.TelnyxAPIKey != "" {
		s.TelnyxAPIKey = o.TelnyxAPIKey
	}
	if o.CompletionAPIKey != "" {
		s.CompletionAPIKey = o.CompletionAPIKey
	}
	if o.WebhookSecret != "" {
		s.WebhookSecret = o.WebhookSecret
	}
	if o.PublicKey != "" {
		s.PublicKey = o.PublicKey
	}
	return s
}

func (h *Handler) warnMissingConfiguration(mode validation.Mode) {
	if mode == validation.ModeHMAC && h.secrets.WebhookSecret == "" {
		h.logger.Warn("no webhook secret configured: every request will be rejected")
	}
	if mode == validation.ModeEd25519 && h.secrets.PublicKey == "" {
		h.logger.Warn("no public key configured: every request will be rejected")
	}
	if h.secrets.CompletionAPIKey == "" {
		h.logger.Warn("no completion API key configured: replies will use the fallback text")
	}
	if h.secrets.TelnyxAPIKey == "" {
		h.logger.Warn("no telnyx API key configured: replies will not be delivered")
	}
}

// Process runs one webhook through the pipeline. The returned error, if any, is meant for the caller's
// response body; the status code in the response is authoritative.
func (h *Handler) Process(ctx context.Context, req models.Request) (models.Response, error) {
	logger := h.logger
	logger.Info("processing request...")

	req.Headers = helpers.LowerKeys(req.Headers)
	bus := relay.NewBus(req)
	if err := processor.Process(ctx, bus, h.processors...); err != nil {
		logger.Error("failed to process request", slog.Any("error", err))
		var internalErr *relay.InternalError
		if errors.As(err, &internalErr) {
			return models.Response{StatusCode: http.StatusInternalServerError}, err
		}
		return models.Response{StatusCode: http.StatusInternalServerError}, relay.NewInternalError("%v", err)
	}

	logger.Info("request processed", slog.Any("bus", bus))
	return bus.Response, bus.Error
}

// GetLambdaPayloadType returns the configured Lambda payload type.
func (h *Handler) GetLambdaPayloadType() string {
	return h.lambdaPayloadType
}
