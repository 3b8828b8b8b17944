// Package cmd provides the entrypoint for the sms-relay-app cli.
package cmd

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/isometry/sms-relay-app/internal/config"
	"github.com/isometry/sms-relay-app/internal/handler"
	"github.com/isometry/sms-relay-app/internal/helpers"
	"github.com/isometry/sms-relay-app/internal/runtime"
	pkgerrors "github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	configFilePath string
	logger         *slog.Logger
)

// New returns the root command for the sms-relay-app.
func New() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "sms-relay-app",
		Short:        "Replies to inbound SMS with a generated completion",
		SilenceUsage: true,
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			config.Global.Mode = strings.TrimSpace(config.Global.Mode)
			logger = helpers.NewJSONLogger(os.Stdout, config.Global.Logging.Verbosity, config.Global.Logging.CallerTrace).
				With("mode", config.Global.Mode)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			switch config.Global.Mode {
			case config.ModeService:
				return cmdService().RunE(cmd, args)
			case config.ModeLambdaHTTP:
				return cmdLambdaHTTP().RunE(cmd, args)
			default:
				return fmt.Errorf("invalid mode: %s", config.Global.Mode)
			}
		},
	}

	// Root command flags
	cmd.PersistentFlags().StringVarP(&configFilePath, "config", "c", "config.yaml", "path to the configuration file")

	// Configuration loading & defaults
	if err := errors.Join(
		config.SetDefaults(),
		config.LoadFromFile(configPath()),
	); err != nil {
		panic(err)
	}

	// Dynamic flags
	setupDynamicFlags(cmd)

	// Subcommands
	cmd.AddCommand(
		cmdLambda(),
		cmdService(),
	)

	return cmd
}

// configPath resolves the configuration file before flags are parsed.
func configPath() string {
	if p, ok := os.LookupEnv("CONFIG"); ok {
		return p
	}
	for i, arg := range os.Args {
		switch {
		case (arg == "-c" || arg == "--config") && i+1 < len(os.Args):
			return os.Args[i+1]
		case strings.HasPrefix(arg, "--config="):
			return strings.TrimPrefix(arg, "--config=")
		}
	}
	return configFilePath
}

func setupDynamicFlags(cmd *cobra.Command) {
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(replacer)

	bindEnvMap(cmd, envMapString)
	bindEnvMap(cmd, envMapBool)
	bindEnvMap(cmd, envMapCount)
	bindEnvMap(cmd, envMapDuration)
}

// setup builds the relay handler and the runtime wrapping it from the parsed configuration.
func setup(cmd *cobra.Command) (*runtime.Runtime, error) {
	logger.Debug("creating relay handler...")
	hdl, err := handler.NewRelayHandler(
		handler.WithContext(cmd.Context()),
		handler.WithLogger(logger.With("component", "relay-handler")),
		handler.WithLambdaPayloadType(config.Lambda.PayloadType),
		handler.WithVerificationMode(config.Webhook.Mode),
		handler.WithWebhookSecret(config.Webhook.Secret),
		handler.WithPublicKey(config.Webhook.PublicKey),
		handler.WithSignatureHeader(config.Webhook.SignatureHeader),
		handler.WithTimestampHeader(config.Webhook.TimestampHeader),
		handler.WithSignatureTolerance(config.Webhook.Tolerance),
		handler.WithTelnyxAPIKey(config.Telnyx.APIKey),
		handler.WithTelnyxURL(config.Telnyx.URL),
		handler.WithSendingNumber(config.Telnyx.SendingNumber),
		handler.WithCompletionAPIKey(config.Completion.APIKey),
		handler.WithCompletionURL(config.Completion.URL),
		handler.WithCompletionModel(config.Completion.Model),
		handler.WithFallbackReply(config.Completion.FallbackReply),
		handler.WithOutboundTimeout(config.Global.OutboundTimeout),
		handler.WithSecretsSSMKey(config.Global.SecretsSSMKey),
		handler.WithArchive(config.Archive.Bucket, config.Archive.Prefix))
	if err != nil {
		return nil, pkgerrors.Wrap(err, "failed to create relay handler")
	}

	logger.Debug("creating runtime...")
	return runtime.NewRuntime(hdl,
		runtime.WithLogger(logger.With("component", "runtime")),
		runtime.WithWebhookPath(config.Service.Path),
		runtime.WithMetrics(config.Service.Metrics)), nil
}
