package handler_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/aws/aws-sdk-go-v2/service/ssm/types"
	awsctl "github.com/isometry/sms-relay-app/internal/controllers/aws"
	"github.com/isometry/sms-relay-app/internal/handler"
	"github.com/isometry/sms-relay-app/internal/models"
	"github.com/isometry/sms-relay-app/internal/validation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testSecret   = "key"
	fallbackText = "fallback reply"
	inboundBody  = `{"data":{"event_type":"message.received","payload":{"direction":"inbound","from":{"phone_number":"+1555"},"to":[{"phone_number":"+1999"}],"text":"hi"}}}`
	outboundBody = `{"data":{"event_type":"message.sent","payload":{"direction":"outbound","from":{"phone_number":"+1999"},"to":[{"phone_number":"+1555"}],"text":"hello"}}}`
	missingText  = `{"data":{"event_type":"message.received","payload":{"direction":"inbound","from":{"phone_number":"+1555"},"to":[{"phone_number":"+1999"}]}}}`
)

// upstream fakes both outbound APIs and records every call in order.
type upstream struct {
	mu               sync.Mutex
	calls            []string
	completionStatus int
	completionReply  string
	telnyxStatus     int
	prompts          []string
	sent             []map[string]string

	completion *httptest.Server
	telnyx     *httptest.Server
}

func newUpstream(t *testing.T) *upstream {
	t.Helper()
	u := &upstream{
		completionStatus: http.StatusOK,
		completionReply:  "hello",
		telnyxStatus:     http.StatusOK,
	}
	u.completion = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Messages []struct {
				Content string `json:"content"`
			} `json:"messages"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		u.mu.Lock()
		u.calls = append(u.calls, "completion")
		if len(req.Messages) > 0 {
			u.prompts = append(u.prompts, req.Messages[0].Content)
		}
		u.mu.Unlock()

		w.WriteHeader(u.completionStatus)
		if u.completionStatus == http.StatusOK {
			_ = json.NewEncoder(w).Encode(map[string]any{
				"choices": []any{map[string]any{"message": map[string]any{"role": "assistant", "content": u.completionReply}}},
			})
		}
	}))
	u.telnyx = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var msg map[string]string
		_ = json.NewDecoder(r.Body).Decode(&msg)
		u.mu.Lock()
		u.calls = append(u.calls, "telnyx")
		u.sent = append(u.sent, msg)
		u.mu.Unlock()

		w.WriteHeader(u.telnyxStatus)
		_, _ = w.Write([]byte(`{"data":{"id":"msg-1"}}`))
	}))
	t.Cleanup(func() {
		u.completion.Close()
		u.telnyx.Close()
	})
	return u
}

func (u *upstream) options() []handler.Option {
	return []handler.Option{
		handler.WithCompletionAPIKey("sk-test"),
		handler.WithCompletionURL(u.completion.URL),
		handler.WithTelnyxAPIKey("KEY-test"),
		handler.WithTelnyxURL(u.telnyx.URL),
		handler.WithFallbackReply(fallbackText),
	}
}

func signedHeaders(body string) map[string]string {
	return map[string]string{
		"Content-Type":     "application/json",
		"Telnyx-Signature": validation.NewWebhookSecret(testSecret).Sign([]byte(body)),
	}
}

func TestHandler_Process(t *testing.T) {
	testCases := []struct {
		Name             string
		Body             string
		Headers          map[string]string
		Secret           string
		CompletionStatus int
		TelnyxStatus     int
		ExpectedStatus   int
		ExpectedCalls    []string
		ExpectedText     string
		ExpectError      bool
	}{
		{
			Name:           "authentic_inbound_message",
			Body:           inboundBody,
			Headers:        signedHeaders(inboundBody),
			Secret:         testSecret,
			ExpectedStatus: http.StatusOK,
			ExpectedCalls:  []string{"completion", "telnyx"},
			ExpectedText:   "hello",
		},
		{
			Name:           "invalid_signature",
			Body:           inboundBody,
			Headers:        map[string]string{"Telnyx-Signature": "00ff", "Content-Type": "application/json"},
			Secret:         testSecret,
			ExpectedStatus: http.StatusForbidden,
			ExpectError:    true,
		},
		{
			Name:           "missing_signature",
			Body:           inboundBody,
			Headers:        map[string]string{"Content-Type": "application/json"},
			Secret:         testSecret,
			ExpectedStatus: http.StatusForbidden,
			ExpectError:    true,
		},
		{
			Name:           "missing_secret_fails_closed",
			Body:           inboundBody,
			Headers:        signedHeaders(inboundBody),
			ExpectedStatus: http.StatusForbidden,
			ExpectError:    true,
		},
		{
			Name:           "outbound_message_is_ignored",
			Body:           outboundBody,
			Headers:        signedHeaders(outboundBody),
			Secret:         testSecret,
			ExpectedStatus: http.StatusOK,
		},
		{
			Name:           "malformed_payload_is_acknowledged",
			Body:           missingText,
			Headers:        signedHeaders(missingText),
			Secret:         testSecret,
			ExpectedStatus: http.StatusOK,
		},
		{
			Name:             "completion_failure_sends_fallback",
			Body:             inboundBody,
			Headers:          signedHeaders(inboundBody),
			Secret:           testSecret,
			CompletionStatus: http.StatusInternalServerError,
			ExpectedStatus:   http.StatusOK,
			ExpectedCalls:    []string{"completion", "telnyx"},
			ExpectedText:     fallbackText,
		},
		{
			Name:           "send_failure_is_acknowledged",
			Body:           inboundBody,
			Headers:        signedHeaders(inboundBody),
			Secret:         testSecret,
			TelnyxStatus:   http.StatusInternalServerError,
			ExpectedStatus: http.StatusOK,
			ExpectedCalls:  []string{"completion", "telnyx"},
			ExpectedText:   "hello",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.Name, func(t *testing.T) {
			u := newUpstream(t)
			if tc.CompletionStatus != 0 {
				u.completionStatus = tc.CompletionStatus
			}
			if tc.TelnyxStatus != 0 {
				u.telnyxStatus = tc.TelnyxStatus
			}

			hdl, err := handler.NewRelayHandler(append(u.options(),
				handler.WithVerificationMode("hmac"),
				handler.WithWebhookSecret(tc.Secret))...)
			require.NoError(t, err)

			resp, err := hdl.Process(context.Background(), models.Request{
				Method:  http.MethodPost,
				Body:    []byte(tc.Body),
				Headers: tc.Headers,
			})

			assert.Equal(t, tc.ExpectedStatus, resp.StatusCode)
			if tc.ExpectError {
				var unauthenticatedErr *validation.UnauthenticatedError
				assert.True(t, errors.As(err, &unauthenticatedErr), "unexpected error: %v", err)
			} else {
				assert.NoError(t, err)
			}

			assert.Equal(t, tc.ExpectedCalls, u.calls)
			if len(tc.ExpectedCalls) == 0 {
				return
			}
			assert.Equal(t, []string{"hi"}, u.prompts)
			require.Len(t, u.sent, 1)
			assert.Equal(t, map[string]string{"to": "+1555", "from": "+1999", "text": tc.ExpectedText}, u.sent[0])
		})
	}
}

func TestHandler_MissingAPIKeys(t *testing.T) {
	u := newUpstream(t)
	hdl, err := handler.NewRelayHandler(
		handler.WithWebhookSecret(testSecret),
		handler.WithCompletionURL(u.completion.URL),
		handler.WithTelnyxURL(u.telnyx.URL))
	require.NoError(t, err)

	resp, err := hdl.Process(context.Background(), models.Request{Body: []byte(inboundBody), Headers: signedHeaders(inboundBody)})

	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "reply not delivered", resp.Body)
	assert.Empty(t, u.calls)
}

func TestHandler_VerificationDisabled(t *testing.T) {
	u := newUpstream(t)
	hdl, err := handler.NewRelayHandler(append(u.options(), handler.WithVerificationMode("none"))...)
	require.NoError(t, err)

	resp, err := hdl.Process(context.Background(), models.Request{Body: []byte(inboundBody)})

	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, []string{"completion", "telnyx"}, u.calls)
}

func TestHandler_InvalidVerificationMode(t *testing.T) {
	_, err := handler.NewRelayHandler(handler.WithVerificationMode("rsa"))

	var configErr *handler.ConfigurationError
	require.True(t, errors.As(err, &configErr))
	assert.Equal(t, "verification-mode", configErr.Key)
}

type fakeSSM struct {
	value string
	err   error
}

func (f *fakeSSM) GetParameter(context.Context, *ssm.GetParameterInput, ...func(*ssm.Options)) (*ssm.GetParameterOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &ssm.GetParameterOutput{Parameter: &types.Parameter{Value: awssdk.String(f.value)}}, nil
}

type fakeS3 struct {
	mu   sync.Mutex
	keys []string
}

func (f *fakeS3) PutObject(_ context.Context, params *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.keys = append(f.keys, awssdk.ToString(params.Key))
	return &s3.PutObjectOutput{}, nil
}

func TestHandler_SecretsFromSSM(t *testing.T) {
	testCases := []struct {
		Name           string
		SSM            *fakeSSM
		ExpectedStatus int
	}{
		{
			Name:           "ssm_secret_overrides_configured_secret",
			SSM:            &fakeSSM{value: `{"webhook_secret":"key"}`},
			ExpectedStatus: http.StatusOK,
		},
		{
			Name:           "ssm_failure_keeps_configured_secret",
			SSM:            &fakeSSM{err: errors.New("access denied")},
			ExpectedStatus: http.StatusForbidden,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.Name, func(t *testing.T) {
			u := newUpstream(t)
			s3Client := &fakeS3{}
			ctl, err := awsctl.NewController(awsctl.WithS3Client(s3Client), awsctl.WithSSMClient(tc.SSM))
			require.NoError(t, err)

			hdl, err := handler.NewRelayHandler(append(u.options(),
				handler.WithWebhookSecret("stale"),
				handler.WithSecretsSSMKey("/sms-relay/secrets"),
				handler.WithArchive("archive", "inbound"),
				handler.WithAWSController(ctl))...)
			require.NoError(t, err)

			resp, _ := hdl.Process(context.Background(), models.Request{Body: []byte(inboundBody), Headers: signedHeaders(inboundBody)})

			assert.Equal(t, tc.ExpectedStatus, resp.StatusCode)
			if tc.ExpectedStatus == http.StatusOK {
				assert.Len(t, s3Client.keys, 1)
			} else {
				assert.Empty(t, s3Client.keys)
			}
		})
	}
}

func TestHandler_ConcurrentRequests(t *testing.T) {
	u := newUpstream(t)
	hdl, err := handler.NewRelayHandler(append(u.options(),
		handler.WithWebhookSecret(testSecret),
		handler.WithLogger(slog.New(slog.NewJSONHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelDebug}))))...)
	require.NoError(t, err)

	const workers = 8
	statuses := make(chan int, workers)
	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			resp, _ := hdl.Process(context.Background(), models.Request{Body: []byte(inboundBody), Headers: signedHeaders(inboundBody)})
			statuses <- resp.StatusCode
		}()
	}
	wg.Wait()
	close(statuses)

	for status := range statuses {
		assert.Equal(t, http.StatusOK, status)
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	assert.Len(t, u.sent, workers)
}
