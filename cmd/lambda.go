package cmd

import (
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/isometry/sms-relay-app/internal/config"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

func cmdLambda() *cobra.Command {
	cmd := &cobra.Command{
		Use: "lambda",
	}
	cmd.AddCommand(cmdLambdaHTTP())

	bindEnvMap(cmd, lambdaEnvMapString)

	return cmd
}

// cmdLambdaHTTP serves API Gateway and function URL requests.
func cmdLambdaHTTP() *cobra.Command {
	return &cobra.Command{
		Use: "http",
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger = logger.With("mode", config.ModeLambdaHTTP, "payloadType", config.Lambda.PayloadType)
			rtm, err := setup(cmd)
			if err != nil {
				return errors.Wrap(err, "failed to setup lambda")
			}

			logger.Info("lambda starting...")
			lambda.StartWithOptions(rtm.Lambda,
				lambda.WithContext(cmd.Context()))

			return nil
		},
	}
}
