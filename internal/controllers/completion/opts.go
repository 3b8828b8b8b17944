package completion

import (
	"log/slog"
	"net/http"
	"time"
)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Controller) {
		c.logger = logger
	}
}

// WithAPIKey sets the bearer token. Without it every call fails with ErrMissingAPIKey.
func WithAPIKey(key string) Option {
	return func(c *Controller) {
		c.apiKey = key
	}
}

// WithURL overrides the chat-completions endpoint.
func WithURL(url string) Option {
	return func(c *Controller) {
		if url != "" {
			c.url = url
		}
	}
}

// WithModel overrides the requested model.
func WithModel(model string) Option {
	return func(c *Controller) {
		if model != "" {
			c.model = model
		}
	}
}

// WithTimeout bounds each call. Zero leaves calls bounded only by the caller's context.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Controller) {
		c.timeout = timeout
	}
}

// WithHTTPClient sets the base client wrapped by the bearer-token transport.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Controller) {
		c.httpClient = client
	}
}
