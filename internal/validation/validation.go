// Package validation authenticates inbound webhook requests and parses them into trusted message events.
// It performs no I/O: a Validator only reads its inputs and classifies them.
package validation

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"mime"
	"strings"
	"time"

	"github.com/isometry/sms-relay-app/internal/helpers"
	"github.com/isometry/sms-relay-app/internal/models"
	"github.com/pkg/errors"
	"golang.org/x/time/rate"
)

// Mode selects how request signatures are verified.
type Mode string

const (
	// ModeHMAC verifies an HMAC-SHA256 of the raw body with a shared secret.
	ModeHMAC Mode = "hmac"
	// ModeEd25519 verifies the provider's Ed25519 signature over "<timestamp>|<body>".
	ModeEd25519 Mode = "ed25519"
	// ModeNone disables verification. Requests are accepted unauthenticated.
	ModeNone Mode = "none"
)

const (
	// DefaultHMACSignatureHeader carries the hex HMAC in ModeHMAC.
	DefaultHMACSignatureHeader = "telnyx-signature"
	// DefaultEd25519SignatureHeader carries the base64 signature in ModeEd25519.
	DefaultEd25519SignatureHeader = "telnyx-signature-ed25519"
	// DefaultTimestampHeader carries the signed unix timestamp in ModeEd25519.
	DefaultTimestampHeader = "telnyx-timestamp"
)

// ParseMode normalises a configured mode string.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case ModeHMAC, ModeEd25519, ModeNone:
		return m, nil
	case "":
		return ModeHMAC, nil
	default:
		return "", errors.Errorf("unsupported verification mode: %s", s)
	}
}

// Outcome classifies a validated request.
type Outcome int

const (
	// Authentic requests carry a verified, well-formed event.
	Authentic Outcome = iota
	// Unauthenticated requests failed signature verification.
	Unauthenticated
	// Malformed requests were authenticated but do not carry a usable event.
	Malformed
)

func (o Outcome) String() string {
	switch o {
	case Authentic:
		return "authentic"
	case Unauthenticated:
		return "unauthenticated"
	case Malformed:
		return "malformed"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// Result is the classification of a single request. Event is only set when Outcome is Authentic.
type Result struct {
	Outcome Outcome
	Event   *models.InboundMessageEvent
	Err     error
}

// Option configures a Validator.
type Option func(*Validator)

// Validator decides whether a request is an authentic, well-formed message event.
type Validator struct {
	logger          *slog.Logger
	mode            Mode
	secret          *WebhookSecret
	publicKey       PublicKey
	publicKeyErr    error
	signatureHeader string
	timestampHeader string
	tolerance       time.Duration
	now             func() time.Time
	failOpenWarning *rate.Sometimes
}

// NewValidator creates a Validator. Configuration problems such as an undecodable public key do not fail
// construction: they surface as Unauthenticated results so that the process keeps serving.
func NewValidator(opts ...Option) *Validator {
	_inst := &Validator{
		logger:          helpers.NewNoopLogger(),
		mode:            ModeHMAC,
		timestampHeader: DefaultTimestampHeader,
		now:             time.Now,
		failOpenWarning: helpers.OnceAMinute(),
	}
	for _, opt := range opts {
		opt(_inst)
	}
	if _inst.signatureHeader == "" {
		_inst.signatureHeader = DefaultHMACSignatureHeader
		if _inst.mode == ModeEd25519 {
			_inst.signatureHeader = DefaultEd25519SignatureHeader
		}
	}
	_inst.signatureHeader = strings.ToLower(_inst.signatureHeader)
	_inst.timestampHeader = strings.ToLower(_inst.timestampHeader)
	return _inst
}

// Mode returns the configured verification mode.
func (v *Validator) Mode() Mode {
	return v.mode
}

// Validate authenticates and parses a request. Header keys must be lower-cased.
func (v *Validator) Validate(body []byte, headers map[string]string) Result {
	if err := v.authenticate(body, headers); err != nil {
		return Result{Outcome: Unauthenticated, Err: &UnauthenticatedError{Cause: err}}
	}

	if contentType, found := headers["content-type"]; found && contentType != "" {
		mediaType, _, err := mime.ParseMediaType(contentType)
		if err != nil || mediaType != "application/json" {
			return Result{Outcome: Malformed, Err: NewMalformedError("unsupported content type: %s", contentType)}
		}
	}

	event, err := ParseEvent(body)
	if err != nil {
		return Result{Outcome: Malformed, Err: err}
	}
	return Result{Outcome: Authentic, Event: event}
}

func (v *Validator) authenticate(body []byte, headers map[string]string) error {
	switch v.mode {
	case ModeNone:
		v.failOpenWarning.Do(func() {
			v.logger.Warn("webhook signature verification is disabled")
		})
		return nil
	case ModeHMAC:
		if v.secret == nil {
			return errors.New("webhook secret is not configured")
		}
		signature, found := headers[v.signatureHeader]
		if !found {
			return errors.Errorf("missing %s header", v.signatureHeader)
		}
		return v.secret.ValidateSignature(signature, body)
	case ModeEd25519:
		if v.publicKeyErr != nil {
			return errors.Wrap(v.publicKeyErr, "public key is not usable")
		}
		signature, found := headers[v.signatureHeader]
		if !found {
			return errors.Errorf("missing %s header", v.signatureHeader)
		}
		return v.publicKey.ValidateSignature(signature, headers[v.timestampHeader], body, v.now(), v.tolerance)
	default:
		return errors.Errorf("unsupported verification mode: %s", v.mode)
	}
}

// ParseEvent decodes a provider envelope into an InboundMessageEvent. Missing keys and wrong shapes are
// reported as MalformedError.
func ParseEvent(body []byte) (*models.InboundMessageEvent, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, NewMalformedError("empty body")
	}
	var envelope models.Envelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, NewMalformedError("invalid JSON: %v", err)
	}

	data := envelope.Data
	switch {
	case data == nil:
		return nil, NewMalformedError("missing data")
	case data.EventType == nil:
		return nil, NewMalformedError("missing data.event_type")
	case data.Payload == nil:
		return nil, NewMalformedError("missing data.payload")
	}

	payload := data.Payload
	switch {
	case payload.Direction == nil:
		return nil, NewMalformedError("missing data.payload.direction")
	case payload.From == nil || payload.From.PhoneNumber == nil:
		return nil, NewMalformedError("missing data.payload.from.phone_number")
	case len(payload.To) == 0 || payload.To[0] == nil || payload.To[0].PhoneNumber == nil:
		return nil, NewMalformedError("missing data.payload.to[0].phone_number")
	case payload.Text == nil:
		return nil, NewMalformedError("missing data.payload.text")
	}

	messageID := helpers.String(payload.ID)
	if messageID == "" {
		messageID = helpers.String(data.ID)
	}
	return &models.InboundMessageEvent{
		EventType: *data.EventType,
		MessageID: messageID,
		Direction: *payload.Direction,
		From:      *payload.From.PhoneNumber,
		To:        *payload.To[0].PhoneNumber,
		Text:      *payload.Text,
	}, nil
}
