package runtime

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/isometry/sms-relay-app/internal/handler"
	"github.com/isometry/sms-relay-app/internal/helpers"
	"github.com/isometry/sms-relay-app/internal/metrics"
	"github.com/isometry/sms-relay-app/internal/models"
	"github.com/pkg/errors"
)

// Greeting is returned by the liveness endpoint.
const Greeting = "Hello, World!"

// DefaultWebhookPath is where the provider posts webhooks.
const DefaultWebhookPath = "/webhook"

// maxBodyBytes caps inbound webhook bodies.
const maxBodyBytes = 1 << 20

type Option func(*Runtime)

func WithLogger(logger *slog.Logger) Option {
	return func(r *Runtime) {
		r.logger = logger
	}
}

// WithWebhookPath sets the path the webhook is served on.
func WithWebhookPath(path string) Option {
	return func(r *Runtime) {
		if path != "" {
			r.webhookPath = "/" + strings.TrimPrefix(path, "/")
		}
	}
}

// WithMetrics exposes Prometheus metrics on /metrics.
func WithMetrics(enabled bool) Option {
	return func(r *Runtime) {
		r.metrics = enabled
	}
}

type Runtime struct {
	*handler.Handler
	logger      *slog.Logger
	webhookPath string
	metrics     bool
}

// NewRuntime creates a new runtime instance
func NewRuntime(handler *handler.Handler, opts ...Option) *Runtime {
	_inst := &Runtime{Handler: handler, webhookPath: DefaultWebhookPath}
	for _, opt := range opts {
		opt(_inst)
	}
	if _inst.logger == nil {
		_inst.logger = helpers.NewNoopLogger()
	}
	return _inst
}

// Router returns the HTTP routes served in service mode.
func (r *Runtime) Router() http.Handler {
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Recoverer)

	router.Get("/", r.ServeGreeting)
	router.Post(r.webhookPath, r.ServeHTTP)
	router.MethodNotAllowed(func(resp http.ResponseWriter, req *http.Request) {
		r.logger.Debug("rejecting HTTP request...", slog.Any("requestor", req.RemoteAddr), "reason", "method not allowed", slog.Any("method", req.Method))
		helpers.RespondHTTP(models.Response{StatusCode: http.StatusMethodNotAllowed}, nil, resp)
	})
	if r.metrics {
		router.Method(http.MethodGet, "/metrics", metrics.Handler())
	}
	return router
}

// ServeGreeting answers liveness checks.
func (r *Runtime) ServeGreeting(resp http.ResponseWriter, _ *http.Request) {
	resp.Header().Set("Content-Type", "text/plain; charset=utf-8")
	resp.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(resp, Greeting)
}

// ServeHTTP is the HTTP handler for the webhook
func (r *Runtime) ServeHTTP(resp http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodPost {
		r.logger.Debug("rejecting HTTP request...", slog.Any("requestor", req.RemoteAddr), "reason", "method not allowed", slog.Any("method", req.Method))
		helpers.RespondHTTP(models.Response{StatusCode: http.StatusMethodNotAllowed}, nil, resp)
		return
	}

	logger := r.logger.With(slog.String("requestID", middleware.GetReqID(req.Context())))
	logger.Debug("received HTTP request...", slog.Any("requestor", req.RemoteAddr), slog.Any("path", req.URL.Path))
	headers := make(map[string]string, len(req.Header))
	for k, v := range req.Header {
		// only the first value of repeated headers is kept
		headers[strings.ToLower(k)] = v[0]
	}

	body, err := io.ReadAll(http.MaxBytesReader(resp, req.Body, maxBodyBytes))
	if err != nil {
		logger.Error("failed to read request body", slog.Any("error", err))
		helpers.RespondHTTP(models.Response{StatusCode: http.StatusRequestEntityTooLarge}, err, resp)
		return
	}

	start := time.Now()
	response, err := r.Handler.Process(req.Context(), models.Request{
		Method:  req.Method,
		Path:    req.URL.Path,
		Body:    body,
		Headers: headers,
	})
	logger.Info("handled request", slog.Int("statusCode", response.StatusCode), slog.Duration("duration", time.Since(start)))
	helpers.RespondHTTP(response, err, resp)
}

// lambdaRequest is the part of an HTTP Lambda event the runtime needs, whatever the payload type.
type lambdaRequest struct {
	method          string
	path            string
	body            string
	isBase64Encoded bool
	headers         map[string]string
}

// decodeLambdaRequest unmarshals payload according to the configured Lambda payload type.
func decodeLambdaRequest(payloadType string, payload json.RawMessage) (lambdaRequest, error) {
	switch payloadType {
	case "api-gateway-v1":
		var req events.APIGatewayProxyRequest
		if err := json.Unmarshal(payload, &req); err != nil {
			return lambdaRequest{}, errors.Wrap(err, "failed to decode API Gateway v1 request")
		}
		return lambdaRequest{req.HTTPMethod, req.Path, req.Body, req.IsBase64Encoded, req.Headers}, nil
	case "api-gateway-v2", "":
		var req events.APIGatewayV2HTTPRequest
		if err := json.Unmarshal(payload, &req); err != nil {
			return lambdaRequest{}, errors.Wrap(err, "failed to decode API Gateway v2 request")
		}
		return lambdaRequest{req.RequestContext.HTTP.Method, req.RawPath, req.Body, req.IsBase64Encoded, req.Headers}, nil
	case "lambda-url":
		var req events.LambdaFunctionURLRequest
		if err := json.Unmarshal(payload, &req); err != nil {
			return lambdaRequest{}, errors.Wrap(err, "failed to decode function URL request")
		}
		return lambdaRequest{req.RequestContext.HTTP.Method, req.RawPath, req.Body, req.IsBase64Encoded, req.Headers}, nil
	default:
		return lambdaRequest{}, errors.Errorf("unsupported lambda payload type: %s", payloadType)
	}
}

// Lambda is the Lambda handler for the runtime. The event is decoded according to the configured payload type.
func (r *Runtime) Lambda(ctx context.Context, payload json.RawMessage) (any, error) {
	r.logger.Info("received Lambda request")

	payloadType := r.Handler.GetLambdaPayloadType()
	req, err := decodeLambdaRequest(payloadType, payload)
	if err != nil {
		r.logger.Error("failed to decode Lambda request", slog.Any("error", err))
		return nil, err
	}

	var response models.Response
	switch req.method {
	case http.MethodGet:
		response = models.Response{Body: Greeting, StatusCode: http.StatusOK}
	case http.MethodPost, "":
		body := []byte(req.body)
		if req.isBase64Encoded {
			if body, err = base64.StdEncoding.DecodeString(req.body); err != nil {
				r.logger.Error("failed to decode request body", slog.Any("error", err))
				response = models.Response{StatusCode: http.StatusBadRequest}
				break
			}
		}
		response, err = r.Handler.Process(ctx, models.Request{
			Method:  http.MethodPost,
			Path:    req.path,
			Body:    body,
			Headers: helpers.LowerKeys(req.headers),
		})
	default:
		response = models.Response{StatusCode: http.StatusMethodNotAllowed}
	}

	body := response.Body
	headers := map[string]string{"Content-Type": "text/plain; charset=utf-8"}
	if req.method != http.MethodGet {
		body = helpers.ResponseJSON(response, err)
		headers["Content-Type"] = "application/json"
	}
	statusCode := response.StatusCode
	if statusCode == 0 {
		statusCode = http.StatusOK
	}

	switch payloadType {
	case "api-gateway-v1":
		return events.APIGatewayProxyResponse{
			Body:       body,
			Headers:    headers,
			StatusCode: statusCode,
		}, nil
	case "lambda-url":
		return events.LambdaFunctionURLResponse{
			Body:       body,
			Headers:    headers,
			StatusCode: statusCode,
		}, nil
	default:
		return events.APIGatewayV2HTTPResponse{
			Body:       body,
			Headers:    headers,
			StatusCode: statusCode,
		}, nil
	}
}
