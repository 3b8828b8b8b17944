package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func reset() {
	Global, Webhook, Telnyx, Completion, Archive, Service, Lambda = global{}, webhook{}, telnyx{}, completion{}, archive{}, service{}, lambda{}
}

func TestSetDefaults(t *testing.T) {
	t.Cleanup(reset)
	reset()

	require.NoError(t, SetDefaults())

	assert.Equal(t, ModeLambdaHTTP, Global.Mode)
	assert.Equal(t, 15*time.Second, Global.OutboundTimeout)
	assert.Equal(t, "hmac", Webhook.Mode)
	assert.Empty(t, Webhook.SignatureHeader)
	assert.Equal(t, "telnyx-timestamp", Webhook.TimestampHeader)
	assert.Equal(t, "https://api.telnyx.com/v2/messages", Telnyx.URL)
	assert.Equal(t, "gpt-4o-mini", Completion.Model)
	assert.NotEmpty(t, Completion.FallbackReply)
	assert.Equal(t, "/webhook", Service.Path)
	assert.Equal(t, "8080", Service.Port)
	assert.True(t, Service.Metrics)
	assert.Equal(t, "api-gateway-v2", Lambda.PayloadType)
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	validPath := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(validPath, []byte(`
global:
  mode: service
  outboundTimeout: 5s
webhook:
  mode: ed25519
  publicKey: abc
telnyx:
  sendingNumber: "+15550000000"
service:
  port: "9090"
`), 0o600))
	disabledPath := filepath.Join(dir, "disabled.yaml")
	require.NoError(t, os.WriteFile(disabledPath, []byte(`
service:
  metrics: false
`), 0o600))
	invalidPath := filepath.Join(dir, "invalid.yaml")
	require.NoError(t, os.WriteFile(invalidPath, []byte("global: ["), 0o600))

	testCases := []struct {
		Name        string
		Path        string
		ExpectError bool
		Check       func(t *testing.T)
	}{
		{
			Name: "empty_path",
		},
		{
			Name: "missing_file_is_ignored",
			Path: filepath.Join(dir, "missing.yaml"),
		},
		{
			Name:        "directory",
			Path:        dir,
			ExpectError: true,
		},
		{
			Name:        "invalid_yaml",
			Path:        invalidPath,
			ExpectError: true,
		},
		{
			Name: "empty_path_keeps_defaults",
			Check: func(t *testing.T) {
				assert.Equal(t, "8080", Service.Port)
				assert.True(t, Service.Metrics)
			},
		},
		{
			Name: "valid_file_over_defaults",
			Path: validPath,
			Check: func(t *testing.T) {
				assert.Equal(t, ModeService, Global.Mode)
				assert.Equal(t, 5*time.Second, Global.OutboundTimeout)
				assert.Equal(t, "ed25519", Webhook.Mode)
				assert.Equal(t, "abc", Webhook.PublicKey)
				assert.Equal(t, "+15550000000", Telnyx.SendingNumber)
				assert.Equal(t, "9090", Service.Port)
				assert.Equal(t, "/webhook", Service.Path)
				assert.Equal(t, "https://api.telnyx.com/v2/messages", Telnyx.URL)
				assert.True(t, Service.Metrics)
			},
		},
		{
			Name: "explicit_false_overrides_default",
			Path: disabledPath,
			Check: func(t *testing.T) {
				assert.False(t, Service.Metrics)
				assert.Equal(t, "8080", Service.Port)
				assert.Equal(t, "/webhook", Service.Path)
				assert.Equal(t, ModeLambdaHTTP, Global.Mode)
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.Name, func(t *testing.T) {
			t.Cleanup(reset)
			reset()
			require.NoError(t, SetDefaults())

			err := LoadFromFile(tc.Path)
			if tc.ExpectError {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			if tc.Check != nil {
				tc.Check(t)
			}
		})
	}
}
