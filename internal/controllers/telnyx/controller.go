// Package telnyx provides a Controller that sends SMS replies through the Telnyx messaging API.
package telnyx

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/isometry/sms-relay-app/internal/helpers"
	"github.com/pkg/errors"
)

const (
	// DefaultURL is the Telnyx v2 messages endpoint.
	DefaultURL = "https://api.telnyx.com/v2/messages"
	// DefaultTimeout bounds a single send call.
	DefaultTimeout = 15 * time.Second

	maxErrorBody    = 512
	maxResponseBody = 1 << 20
)

// ErrMissingAPIKey is returned without any network call when no API key is configured.
var ErrMissingAPIKey = errors.New("missing telnyx API key")

// Message is an outbound SMS.
type Message struct {
	From string `json:"from"`
	To   string `json:"to"`
	Text string `json:"text"`
}

// Result carries the provider message ID or the reason the message was not accepted.
type Result struct {
	MessageID string
	Err       error
}

// OK reports whether the provider accepted the message.
func (r Result) OK() bool {
	return r.Err == nil
}

// Option configures a Controller.
type Option func(*Controller)

// Controller sends messages through Telnyx. It is safe for concurrent use.
type Controller struct {
	logger     *slog.Logger
	apiKey     string
	url        string
	timeout    time.Duration
	httpClient *http.Client
	client     *http.Client
}

type response struct {
	Data *struct {
		ID string `json:"id"`
		To []struct {
			PhoneNumber string `json:"phone_number"`
			Status      string `json:"status"`
		} `json:"to"`
	} `json:"data"`
	Errors []struct {
		Code   string `json:"code"`
		Title  string `json:"title"`
		Detail string `json:"detail"`
	} `json:"errors"`
}

// NewController initializes a Controller with defaults for URL and timeout.
func NewController(opts ...Option) *Controller {
	_inst := &Controller{
		url:     DefaultURL,
		timeout: DefaultTimeout,
	}
	for _, opt := range opts {
		opt(_inst)
	}
	if _inst.logger == nil {
		_inst.logger = helpers.NewNoopLogger()
	}
	_inst.logger = _inst.logger.With("controller", "telnyx")
	if _inst.apiKey != "" {
		_inst.client = helpers.NewBearerClient(context.Background(), _inst.apiKey, _inst.httpClient)
	}
	return _inst
}

// Send posts msg to the messages endpoint.
func (c *Controller) Send(ctx context.Context, msg Message) Result {
	if c.client == nil {
		return Result{Err: ErrMissingAPIKey}
	}
	if msg.From == "" || msg.To == "" {
		return Result{Err: errors.Errorf("incomplete message: from=%q to=%q", msg.From, msg.To)}
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		return Result{Err: errors.Wrap(err, "failed to marshal message")}
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return Result{Err: errors.Wrap(err, "failed to build send request")}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	c.logger.Debug("sending message...", slog.String("to", msg.To), slog.String("from", msg.From))
	resp, err := c.client.Do(req)
	if err != nil {
		return Result{Err: errors.Wrap(err, "send request failed")}
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return Result{Err: errors.Wrap(err, "failed to read send response")}
	}

	var decoded response
	decodeErr := json.Unmarshal(body, &decoded)
	if decodeErr == nil && len(decoded.Errors) > 0 {
		e := decoded.Errors[0]
		return Result{Err: errors.Errorf("telnyx returned %d: %s %s: %s", resp.StatusCode, e.Code, e.Title, e.Detail)}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Result{Err: errors.Errorf("telnyx returned %d: %s", resp.StatusCode, helpers.Truncate(string(body), maxErrorBody))}
	}

	var id string
	if decodeErr == nil && decoded.Data != nil {
		id = decoded.Data.ID
	}
	return Result{MessageID: id}
}
