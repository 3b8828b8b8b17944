package validation

import (
	"crypto/ed25519"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

const sha256Prefix = "sha256="

// WebhookSecret represents a shared secret used to validate HMAC-SHA256 webhook signatures.
type WebhookSecret string

// NewWebhookSecret returns nil for an empty secret so that callers can tell "unset" from "set".
func NewWebhookSecret(secret string) *WebhookSecret {
	if secret == "" {
		return nil
	}
	s := WebhookSecret(secret)
	return &s
}

// Sign computes the hex encoded HMAC-SHA256 of body.
func (s *WebhookSecret) Sign(body []byte) string {
	mac := hmac.New(sha256.New, []byte(*s))
	_, _ = mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// ValidateSignature checks a hex encoded HMAC-SHA256 signature, optionally prefixed with "sha256=", against body.
func (s *WebhookSecret) ValidateSignature(signature string, body []byte) error {
	if s == nil || *s == "" {
		return errors.New("missing webhook secret")
	}
	signature = strings.TrimPrefix(strings.TrimSpace(signature), sha256Prefix)
	if signature == "" {
		return errors.New("missing signature")
	}
	provided, err := hex.DecodeString(signature)
	if err != nil {
		return errors.Wrap(err, "signature is not hex encoded")
	}

	mac := hmac.New(sha256.New, []byte(*s))
	_, _ = mac.Write(body)
	if !hmac.Equal(mac.Sum(nil), provided) {
		return errors.New("signature mismatch")
	}
	return nil
}

// PublicKey is the provider's Ed25519 verification key.
type PublicKey ed25519.PublicKey

// ParsePublicKey decodes a base64 (standard or raw) encoded Ed25519 public key.
func ParsePublicKey(encoded string) (PublicKey, error) {
	encoded = strings.TrimSpace(encoded)
	if encoded == "" {
		return nil, errors.New("empty public key")
	}
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		if raw, err = base64.RawStdEncoding.DecodeString(encoded); err != nil {
			return nil, errors.Wrap(err, "public key is not base64 encoded")
		}
	}
	if len(raw) != ed25519.PublicKeySize {
		return nil, errors.Errorf("invalid public key size: %d", len(raw))
	}
	return PublicKey(raw), nil
}

// ValidateSignature verifies a base64 encoded Ed25519 signature over "<timestamp>|<body>".
// A non-zero tolerance rejects timestamps further than tolerance away from now.
func (k PublicKey) ValidateSignature(signature, timestamp string, body []byte, now time.Time, tolerance time.Duration) error {
	if len(k) != ed25519.PublicKeySize {
		return errors.New("missing public key")
	}
	if signature == "" {
		return errors.New("missing signature")
	}
	if timestamp == "" {
		return errors.New("missing signature timestamp")
	}
	sig, err := base64.StdEncoding.DecodeString(strings.TrimSpace(signature))
	if err != nil {
		return errors.Wrap(err, "signature is not base64 encoded")
	}
	if tolerance > 0 {
		seconds, err := strconv.ParseInt(strings.TrimSpace(timestamp), 10, 64)
		if err != nil {
			return errors.Wrap(err, "invalid signature timestamp")
		}
		if skew := now.Sub(time.Unix(seconds, 0)).Abs(); skew > tolerance {
			return errors.Errorf("signature timestamp outside tolerance: %s", skew)
		}
	}

	message := make([]byte, 0, len(timestamp)+1+len(body))
	message = append(message, timestamp...)
	message = append(message, '|')
	message = append(message, body...)
	if !ed25519.Verify(ed25519.PublicKey(k), message, sig) {
		return errors.New("signature mismatch")
	}
	return nil
}
