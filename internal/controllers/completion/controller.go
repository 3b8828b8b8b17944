// Package completion provides a Controller for a chat-completion API that turns an inbound message into a reply.
package completion

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/isometry/sms-relay-app/internal/helpers"
	"github.com/pkg/errors"
)

const (
	// DefaultURL is the chat-completions endpoint used when none is configured.
	DefaultURL = "https://api.openai.com/v1/chat/completions"
	// DefaultModel is the model requested when none is configured.
	DefaultModel = "gpt-4o-mini"
	// DefaultTimeout bounds a single completion call.
	DefaultTimeout = 15 * time.Second

	maxErrorBody    = 512
	maxResponseBody = 1 << 20
)

// ErrMissingAPIKey is returned without any network call when no API key is configured.
var ErrMissingAPIKey = errors.New("missing completion API key")

// Result carries either the generated reply or the reason it could not be produced.
type Result struct {
	Reply string
	Err   error
}

// OK reports whether the call produced a reply.
func (r Result) OK() bool {
	return r.Err == nil
}

// Option configures a Controller.
type Option func(*Controller)

// Controller calls the completion API. It holds read-only configuration and is safe for concurrent use.
type Controller struct {
	logger     *slog.Logger
	apiKey     string
	url        string
	model      string
	timeout    time.Duration
	httpClient *http.Client
	client     *http.Client
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type request struct {
	Model    string    `json:"model"`
	Messages []message `json:"messages"`
}

type response struct {
	Choices []struct {
		Message *struct {
			Content *string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

// NewController initializes a Controller, applying defaults for URL, model and timeout.
func NewController(opts ...Option) *Controller {
	_inst := &Controller{
		url:     DefaultURL,
		model:   DefaultModel,
		timeout: DefaultTimeout,
	}
	for _, opt := range opts {
		opt(_inst)
	}
	if _inst.logger == nil {
		_inst.logger = helpers.NewNoopLogger()
	}
	_inst.logger = _inst.logger.With("controller", "completion")
	if _inst.apiKey != "" {
		_inst.client = helpers.NewBearerClient(context.Background(), _inst.apiKey, _inst.httpClient)
	}
	return _inst
}

// Complete sends text as a single user message and returns the first choice's content.
func (c *Controller) Complete(ctx context.Context, text string) Result {
	if c.client == nil {
		return Result{Err: ErrMissingAPIKey}
	}

	payload, err := json.Marshal(request{
		Model:    c.model,
		Messages: []message{{Role: "user", Content: text}},
	})
	if err != nil {
		return Result{Err: errors.Wrap(err, "failed to marshal completion request")}
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return Result{Err: errors.Wrap(err, "failed to build completion request")}
	}
	req.Header.Set("Content-Type", "application/json")

	c.logger.Debug("requesting completion...", slog.String("model", c.model))
	resp, err := c.client.Do(req)
	if err != nil {
		return Result{Err: errors.Wrap(err, "completion request failed")}
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return Result{Err: errors.Wrap(err, "failed to read completion response")}
	}

	var decoded response
	decodeErr := json.Unmarshal(body, &decoded)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if decodeErr == nil && decoded.Error != nil && decoded.Error.Message != "" {
			return Result{Err: errors.Errorf("completion API returned %d: %s", resp.StatusCode, decoded.Error.Message)}
		}
		return Result{Err: errors.Errorf("completion API returned %d: %s", resp.StatusCode, helpers.Truncate(string(body), maxErrorBody))}
	}
	if decodeErr != nil {
		return Result{Err: errors.Wrap(decodeErr, "failed to decode completion response")}
	}
	if len(decoded.Choices) == 0 || decoded.Choices[0].Message == nil || decoded.Choices[0].Message.Content == nil {
		return Result{Err: errors.New("completion response has no choices[0].message.content")}
	}

	reply := strings.TrimSpace(*decoded.Choices[0].Message.Content)
	if reply == "" {
		return Result{Err: errors.New("completion response is empty")}
	}
	return Result{Reply: reply}
}
