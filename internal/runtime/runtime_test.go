package runtime_test

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/aws/aws-lambda-go/events"
	"github.com/isometry/sms-relay-app/internal/controllers/completion"
	"github.com/isometry/sms-relay-app/internal/controllers/telnyx"
	"github.com/isometry/sms-relay-app/internal/handler"
	"github.com/isometry/sms-relay-app/internal/runtime"
	"github.com/isometry/sms-relay-app/internal/validation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testSecret  = "key"
	inboundBody = `{"data":{"event_type":"message.received","payload":{"direction":"inbound","from":{"phone_number":"+1555"},"to":[{"phone_number":"+1999"}],"text":"hi"}}}`
)

type stubCompleter struct{ calls int }

func (s *stubCompleter) Complete(context.Context, string) completion.Result {
	s.calls++
	return completion.Result{Reply: "hello"}
}

type stubSender struct{ messages []telnyx.Message }

func (s *stubSender) Send(_ context.Context, msg telnyx.Message) telnyx.Result {
	s.messages = append(s.messages, msg)
	return telnyx.Result{MessageID: "msg-1"}
}

func newRuntime(t *testing.T, payloadType string) (*runtime.Runtime, *stubCompleter, *stubSender) {
	t.Helper()
	completer, sender := &stubCompleter{}, &stubSender{}
	hdl, err := handler.NewRelayHandler(
		handler.WithWebhookSecret(testSecret),
		handler.WithLambdaPayloadType(payloadType),
		handler.WithCompleter(completer),
		handler.WithSender(sender))
	require.NoError(t, err)
	return runtime.NewRuntime(hdl, runtime.WithMetrics(true)), completer, sender
}

func signature(body string) string {
	return validation.NewWebhookSecret(testSecret).Sign([]byte(body))
}

func TestRuntime_Router(t *testing.T) {
	testCases := []struct {
		Name           string
		Method         string
		Path           string
		Body           string
		Signature      string
		ExpectedStatus int
		ExpectedBody   string
		ExpectedSends  int
	}{
		{
			Name:           "greeting",
			Method:         http.MethodGet,
			Path:           "/",
			ExpectedStatus: http.StatusOK,
			ExpectedBody:   runtime.Greeting,
		},
		{
			Name:           "webhook",
			Method:         http.MethodPost,
			Path:           "/webhook",
			Body:           inboundBody,
			Signature:      signature(inboundBody),
			ExpectedStatus: http.StatusOK,
			ExpectedBody:   `{"message":"reply sent"}`,
			ExpectedSends:  1,
		},
		{
			Name:           "webhook_forged",
			Method:         http.MethodPost,
			Path:           "/webhook",
			Body:           inboundBody,
			Signature:      signature(`{}`),
			ExpectedStatus: http.StatusForbidden,
		},
		{
			Name:           "webhook_wrong_method",
			Method:         http.MethodGet,
			Path:           "/webhook",
			ExpectedStatus: http.StatusMethodNotAllowed,
		},
		{
			Name:           "metrics",
			Method:         http.MethodGet,
			Path:           "/metrics",
			ExpectedStatus: http.StatusOK,
		},
		{
			Name:           "unknown_path",
			Method:         http.MethodPost,
			Path:           "/other",
			ExpectedStatus: http.StatusNotFound,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.Name, func(t *testing.T) {
			rtm, _, sender := newRuntime(t, "")
			req := httptest.NewRequest(tc.Method, tc.Path, strings.NewReader(tc.Body))
			req.Header.Set("Content-Type", "application/json")
			if tc.Signature != "" {
				req.Header.Set("Telnyx-Signature", tc.Signature)
			}

			rr := httptest.NewRecorder()
			rtm.Router().ServeHTTP(rr, req)

			assert.Equal(t, tc.ExpectedStatus, rr.Code)
			if tc.ExpectedBody != "" {
				if strings.HasPrefix(tc.ExpectedBody, "{") {
					assert.JSONEq(t, tc.ExpectedBody, rr.Body.String())
				} else {
					assert.Equal(t, tc.ExpectedBody, rr.Body.String())
				}
			}
			assert.Len(t, sender.messages, tc.ExpectedSends)
		})
	}
}

func TestRuntime_CustomWebhookPath(t *testing.T) {
	hdl, err := handler.NewRelayHandler(
		handler.WithVerificationMode("none"),
		handler.WithCompleter(&stubCompleter{}),
		handler.WithSender(&stubSender{}))
	require.NoError(t, err)
	rtm := runtime.NewRuntime(hdl, runtime.WithWebhookPath("sms"))

	rr := httptest.NewRecorder()
	rtm.Router().ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/sms", strings.NewReader(inboundBody)))
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = httptest.NewRecorder()
	rtm.Router().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func v1Event(t *testing.T, method, path, body string, headers map[string]string) json.RawMessage {
	t.Helper()
	payload, err := json.Marshal(events.APIGatewayProxyRequest{
		HTTPMethod: method,
		Path:       path,
		Resource:   path,
		Body:       body,
		Headers:    headers,
		RequestContext: events.APIGatewayProxyRequestContext{
			HTTPMethod: method,
			Path:       "/prod" + path,
			Stage:      "prod",
		},
	})
	require.NoError(t, err)
	return payload
}

func v2Event(t *testing.T, method, body string, base64Encoded bool, headers map[string]string) json.RawMessage {
	t.Helper()
	req := events.APIGatewayV2HTTPRequest{
		Version:         "2.0",
		RawPath:         "/webhook",
		Body:            body,
		Headers:         headers,
		IsBase64Encoded: base64Encoded,
	}
	req.RequestContext.HTTP.Method = method
	payload, err := json.Marshal(req)
	require.NoError(t, err)
	return payload
}

func urlEvent(t *testing.T, method, body string, base64Encoded bool, headers map[string]string) json.RawMessage {
	t.Helper()
	req := events.LambdaFunctionURLRequest{
		Version:         "2.0",
		RawPath:         "/",
		Body:            body,
		Headers:         headers,
		IsBase64Encoded: base64Encoded,
	}
	req.RequestContext.HTTP.Method = method
	payload, err := json.Marshal(req)
	require.NoError(t, err)
	return payload
}

func TestRuntime_Lambda(t *testing.T) {
	headers := map[string]string{"Telnyx-Signature": signature(inboundBody), "content-type": "application/json"}
	encoded := base64.StdEncoding.EncodeToString([]byte(inboundBody))

	testCases := []struct {
		Name           string
		PayloadType    string
		Event          func(t *testing.T) json.RawMessage
		ExpectedStatus int
		ExpectedBody   string
		ExpectedSends  int
		ExpectError    bool
	}{
		{
			Name:        "api_gateway_v1_webhook",
			PayloadType: "api-gateway-v1",
			Event: func(t *testing.T) json.RawMessage {
				return v1Event(t, http.MethodPost, "/webhook", inboundBody, headers)
			},
			ExpectedStatus: http.StatusOK,
			ExpectedSends:  1,
		},
		{
			Name:           "api_gateway_v1_greeting",
			PayloadType:    "api-gateway-v1",
			Event:          func(t *testing.T) json.RawMessage { return v1Event(t, http.MethodGet, "/", "", nil) },
			ExpectedStatus: http.StatusOK,
			ExpectedBody:   runtime.Greeting,
		},
		{
			Name:        "api_gateway_v1_raw_json",
			PayloadType: "api-gateway-v1",
			Event: func(*testing.T) json.RawMessage {
				return json.RawMessage(`{"resource":"/","path":"/","httpMethod":"GET","headers":{"Accept":"*/*"},"requestContext":{"stage":"prod","httpMethod":"GET"},"body":null,"isBase64Encoded":false}`)
			},
			ExpectedStatus: http.StatusOK,
			ExpectedBody:   runtime.Greeting,
		},
		{
			Name:           "api_gateway_v2_webhook",
			PayloadType:    "api-gateway-v2",
			Event:          func(t *testing.T) json.RawMessage { return v2Event(t, http.MethodPost, inboundBody, false, headers) },
			ExpectedStatus: http.StatusOK,
			ExpectedSends:  1,
		},
		{
			Name:           "api_gateway_v2_greeting",
			PayloadType:    "api-gateway-v2",
			Event:          func(t *testing.T) json.RawMessage { return v2Event(t, http.MethodGet, "", false, nil) },
			ExpectedStatus: http.StatusOK,
			ExpectedBody:   runtime.Greeting,
		},
		{
			Name:           "default_payload_type_is_v2",
			Event:          func(t *testing.T) json.RawMessage { return v2Event(t, http.MethodPost, inboundBody, false, headers) },
			ExpectedStatus: http.StatusOK,
			ExpectedSends:  1,
		},
		{
			Name:           "lambda_url_base64",
			PayloadType:    "lambda-url",
			Event:          func(t *testing.T) json.RawMessage { return urlEvent(t, http.MethodPost, encoded, true, headers) },
			ExpectedStatus: http.StatusOK,
			ExpectedSends:  1,
		},
		{
			Name:           "lambda_url_greeting",
			PayloadType:    "lambda-url",
			Event:          func(t *testing.T) json.RawMessage { return urlEvent(t, http.MethodGet, "", false, nil) },
			ExpectedStatus: http.StatusOK,
			ExpectedBody:   runtime.Greeting,
		},
		{
			Name:        "forged",
			PayloadType: "api-gateway-v2",
			Event: func(t *testing.T) json.RawMessage {
				return v2Event(t, http.MethodPost, inboundBody, false, map[string]string{"telnyx-signature": "00"})
			},
			ExpectedStatus: http.StatusForbidden,
		},
		{
			Name:        "method_not_allowed",
			PayloadType: "api-gateway-v1",
			Event: func(t *testing.T) json.RawMessage {
				return v1Event(t, http.MethodPut, "/webhook", inboundBody, headers)
			},
			ExpectedStatus: http.StatusMethodNotAllowed,
		},
		{
			Name:        "unsupported_payload_type",
			PayloadType: "sqs",
			Event:       func(t *testing.T) json.RawMessage { return v2Event(t, http.MethodGet, "", false, nil) },
			ExpectError: true,
		},
		{
			Name:        "undecodable_event",
			PayloadType: "api-gateway-v1",
			Event:       func(*testing.T) json.RawMessage { return json.RawMessage(`["not","an","event"]`) },
			ExpectError: true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.Name, func(t *testing.T) {
			rtm, _, sender := newRuntime(t, tc.PayloadType)

			out, err := rtm.Lambda(context.Background(), tc.Event(t))
			if tc.ExpectError {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)

			var status int
			var body string
			switch resp := out.(type) {
			case events.APIGatewayProxyResponse:
				assert.Equal(t, "api-gateway-v1", tc.PayloadType)
				status, body = resp.StatusCode, resp.Body
			case events.APIGatewayV2HTTPResponse:
				assert.Contains(t, []string{"api-gateway-v2", ""}, tc.PayloadType)
				status, body = resp.StatusCode, resp.Body
			case events.LambdaFunctionURLResponse:
				assert.Equal(t, "lambda-url", tc.PayloadType)
				status, body = resp.StatusCode, resp.Body
			default:
				t.Fatalf("unexpected response type %T", out)
			}
			assert.Equal(t, tc.ExpectedStatus, status)
			if tc.ExpectedBody != "" {
				assert.Equal(t, tc.ExpectedBody, body)
			} else {
				assert.True(t, json.Valid([]byte(body)), body)
			}
			assert.Len(t, sender.messages, tc.ExpectedSends)
		})
	}
}
