// Package config provides a centralized entrypoint for the application parameters.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/creasty/defaults"
	"go.yaml.in/yaml/v3"
)

// Runtime modes accepted by Global.Mode.
const (
	ModeService    = "service"
	ModeLambdaHTTP = "lambda"
)

var (
	// Global is a struct that contains the global configuration.
	Global global
	// Webhook is a struct that contains the inbound webhook verification configuration.
	Webhook webhook
	// Telnyx is a struct that contains the configuration for the messaging API.
	Telnyx telnyx
	// Completion is a struct that contains the configuration for the chat-completion API.
	Completion completion
	// Archive is a struct that contains the configuration for archiving inbound payloads to S3.
	Archive archive
	// Service is a struct that contains the configuration for the service mode.
	Service service
	// Lambda is a struct that contains the configuration for the lambda mode.
	Lambda lambda
)

type global struct {
	// Mode is the runtime mode of the application.
	Mode string `yaml:"mode,omitempty" default:"lambda"`
	// Logging is a struct that contains the logging configuration.
	Logging struct {
		// Verbosity is the verbosity level of the application. It represents slog levels.
		Verbosity int `yaml:"verbosity,omitempty"`
		// CallerTrace is a flag that enables the caller trace in the logger.
		CallerTrace bool `yaml:"callerTrace,omitempty"`
	} `yaml:"logging,omitempty"`
	// SecretsSSMKey is the SSM parameter holding a JSON secrets bundle. Values found there override the
	// configured ones.
	SecretsSSMKey string `yaml:"secretsSsmKey,omitempty"`
	// OutboundTimeout bounds each call to the completion and messaging APIs.
	OutboundTimeout time.Duration `yaml:"outboundTimeout,omitempty" default:"15s"`
}

type webhook struct {
	// Mode is the signature verification mode: hmac, ed25519 or none.
	Mode      string `yaml:"mode,omitempty" default:"hmac"`
	Secret    string `yaml:"secret,omitempty"`
	PublicKey string `yaml:"publicKey,omitempty"`
	// SignatureHeader defaults to the provider header for the selected mode when empty.
	SignatureHeader string        `yaml:"signatureHeader,omitempty"`
	TimestampHeader string        `yaml:"timestampHeader,omitempty" default:"telnyx-timestamp"`
	Tolerance       time.Duration `yaml:"tolerance,omitempty"`
}

type telnyx struct {
	APIKey string `yaml:"apiKey,omitempty"`
	URL    string `yaml:"url,omitempty" default:"https://api.telnyx.com/v2/messages"`
	// SendingNumber is used as the reply sender when the inbound event carries no recipient.
	SendingNumber string `yaml:"sendingNumber,omitempty"`
}

type completion struct {
	APIKey string `yaml:"apiKey,omitempty"`
	URL    string `yaml:"url,omitempty" default:"https://api.openai.com/v1/chat/completions"`
	Model  string `yaml:"model,omitempty" default:"gpt-4o-mini"`
	// FallbackReply is sent when no completion could be obtained.
	FallbackReply string `yaml:"fallbackReply,omitempty" default:"Sorry, I couldn't come up with a reply right now. Please try again later."`
}

type archive struct {
	Bucket string `yaml:"bucket,omitempty"`
	Prefix string `yaml:"prefix,omitempty" default:"inbound"`
}

type service struct {
	Path    string        `yaml:"path,omitempty" default:"/webhook"`
	Addr    string        `yaml:"addr,omitempty"`
	Port    string        `yaml:"port,omitempty" default:"8080"`
	Timeout time.Duration `yaml:"timeout,omitempty" default:"30s"`
	Metrics bool          `yaml:"metrics,omitempty" default:"true"`
}

type lambda struct {
	PayloadType string `yaml:"payloadType,omitempty" default:"api-gateway-v2"`
}

// SetDefaults sets the default values for the configuration.
func SetDefaults() error {
	return errors.Join(
		defaults.Set(&Global),
		defaults.Set(&Webhook),
		defaults.Set(&Telnyx),
		defaults.Set(&Completion),
		defaults.Set(&Archive),
		defaults.Set(&Service),
		defaults.Set(&Lambda),
	)
}

// LoadFromFile overlays the configuration file onto the current values. Call SetDefaults first so that
// explicit zero values in the file, such as `metrics: false`, are kept.
func LoadFromFile(path string) error {
	if len(path) == 0 {
		return nil
	}
	fstat, err := os.Stat(path)
	if err != nil {
		return nil //nolint:nilerr // If the file does not exist, we ignore it.
	}
	if fstat.IsDir() {
		return fmt.Errorf("configuration file %s is a directory", path)
	}
	if !fstat.Mode().IsRegular() {
		return fmt.Errorf("configuration file %s is not a regular file", path)
	}

	content, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return fmt.Errorf("failed to read configuration file %s: %w", path, err)
	}
	type all struct {
		Global     global     `yaml:"global,omitempty"`
		Webhook    webhook    `yaml:"webhook,omitempty"`
		Telnyx     telnyx     `yaml:"telnyx,omitempty"`
		Completion completion `yaml:"completion,omitempty"`
		Archive    archive    `yaml:"archive,omitempty"`
		Service    service    `yaml:"service,omitempty"`
		Lambda     lambda     `yaml:"lambda,omitempty"`
	}
	a := all{
		Global:     Global,
		Webhook:    Webhook,
		Telnyx:     Telnyx,
		Completion: Completion,
		Archive:    Archive,
		Service:    Service,
		Lambda:     Lambda,
	}
	if err = yaml.Unmarshal(content, &a); err != nil {
		return fmt.Errorf("failed to unmarshal configuration file %s: %w", path, err)
	}
	Global = a.Global
	Webhook = a.Webhook
	Telnyx = a.Telnyx
	Completion = a.Completion
	Archive = a.Archive
	Service = a.Service
	Lambda = a.Lambda

	return nil
}
