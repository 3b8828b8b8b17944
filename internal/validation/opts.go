package validation

import (
	"log/slog"
	"time"
)

// WithLogger sets the logger used for configuration warnings.
func WithLogger(logger *slog.Logger) Option {
	return func(v *Validator) {
		v.logger = logger
	}
}

// WithMode sets the verification mode.
func WithMode(mode Mode) Option {
	return func(v *Validator) {
		v.mode = mode
	}
}

// WithWebhookSecret sets the shared HMAC secret. An empty secret leaves HMAC verification failing closed.
func WithWebhookSecret(secret string) Option {
	return func(v *Validator) {
		v.secret = NewWebhookSecret(secret)
	}
}

// WithPublicKey sets the base64 encoded Ed25519 public key.
func WithPublicKey(encoded string) Option {
	return func(v *Validator) {
		v.publicKey, v.publicKeyErr = ParsePublicKey(encoded)
	}
}

// WithSignatureHeader overrides the header carrying the signature.
func WithSignatureHeader(name string) Option {
	return func(v *Validator) {
		v.signatureHeader = name
	}
}

// WithTimestampHeader overrides the header carrying the signed timestamp.
func WithTimestampHeader(name string) Option {
	return func(v *Validator) {
		if name != "" {
			v.timestampHeader = name
		}
	}
}

// WithTolerance bounds how far a signed timestamp may drift from the local clock. Zero disables the check.
func WithTolerance(tolerance time.Duration) Option {
	return func(v *Validator) {
		v.tolerance = tolerance
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(v *Validator) {
		v.now = now
	}
}
