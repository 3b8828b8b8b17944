package cmd

import (
	"time"

	"github.com/isometry/sms-relay-app/internal/config"
	"github.com/isometry/sms-relay-app/internal/helpers"
)

var envMapString = map[*string]boundEnvVar[string]{
	&config.Global.Mode: {
		Name:        "mode",
		Description: "The application runtime mode. Possible values are 'lambda' and 'service'",
		Short:       helpers.Ptr("m"),
	},
	&config.Global.SecretsSSMKey: {
		Name:        "secrets-ssm-key",
		Description: "The SSM parameter holding a JSON secrets bundle. Its values override the ones configured here",
	},
	&config.Webhook.Mode: {
		Name:        "verification-mode",
		Description: "How webhook signatures are verified. Supported values are 'hmac', 'ed25519' and 'none'",
	},
	&config.Webhook.Secret: {
		Name:        "webhook-secret",
		Description: "The shared secret used to verify HMAC-SHA256 webhook signatures",
		Hidden:      true,
	},
	&config.Webhook.PublicKey: {
		Name:        "webhook-public-key",
		Description: "The base64 encoded Ed25519 public key used to verify webhook signatures",
		Env:         helpers.Ptr("TELNYX_PUBLIC_KEY"),
	},
	&config.Webhook.SignatureHeader: {
		Name:        "signature-header",
		Description: "The request header carrying the webhook signature (default 'telnyx-signature', or 'telnyx-signature-ed25519' in ed25519 mode)",
	},
	&config.Webhook.TimestampHeader: {
		Name:        "timestamp-header",
		Description: "The request header carrying the signed timestamp (ed25519 mode)",
	},
	&config.Telnyx.APIKey: {
		Name:        "telnyx-api-key",
		Description: "The messaging API key used to send replies",
		Hidden:      true,
	},
	&config.Telnyx.URL: {
		Name:        "telnyx-url",
		Description: "The messaging API endpoint",
	},
	&config.Telnyx.SendingNumber: {
		Name:        "telnyx-sending-number",
		Description: "The number replies are sent from when the inbound message has no recipient",
	},
	&config.Completion.APIKey: {
		Name:        "completion-api-key",
		Description: "The chat-completion API key",
		Env:         helpers.Ptr("OPENAI_API_KEY"),
		Hidden:      true,
	},
	&config.Completion.URL: {
		Name:        "completion-url",
		Description: "The chat-completion API endpoint",
	},
	&config.Completion.Model: {
		Name:        "completion-model",
		Description: "The chat-completion model identifier",
		Env:         helpers.Ptr("OPENAI_MODEL"),
	},
	&config.Completion.FallbackReply: {
		Name:        "fallback-reply",
		Description: "The reply sent when no completion could be obtained",
	},
	&config.Archive.Bucket: {
		Name:        "archive-s3-bucket",
		Description: "The S3 bucket inbound messages are archived to. Archiving is disabled when empty",
	},
	&config.Archive.Prefix: {
		Name:        "archive-s3-prefix",
		Description: "The key prefix used for archived inbound messages",
	},
}

var envMapBool = map[*bool]boundEnvVar[bool]{
	&config.Global.Logging.CallerTrace: {
		Name:        "verbosity-caller-trace",
		Description: "Enable caller trace in logs",
		Short:       helpers.Ptr("V"),
	},
}

var envMapCount = map[*int]boundEnvVar[int]{
	&config.Global.Logging.Verbosity: {
		Name:        "verbosity",
		Description: "Increase logger verbosity (default WarnLevel)",
		Short:       helpers.Ptr("v"),
	},
}

var envMapDuration = map[*time.Duration]boundEnvVar[time.Duration]{
	&config.Global.OutboundTimeout: {
		Name:        "outbound-timeout",
		Description: "The timeout applied to each completion and messaging API call",
	},
	&config.Webhook.Tolerance: {
		Name:        "signature-tolerance",
		Description: "The maximum accepted age of signed timestamps (ed25519 mode). Zero disables the check",
	},
}
