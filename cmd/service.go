package cmd

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/isometry/sms-relay-app/internal/config"
	pkgerrors "github.com/pkg/errors"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 10 * time.Second

func cmdService() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "service",
		Aliases: []string{"s", "serve", "standalone", "server"},
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger = logger.With("mode", config.ModeService)
			logger.Info("spawning...")

			rtm, err := setup(cmd)
			if err != nil {
				return pkgerrors.Wrap(err, "failed to setup service")
			}

			logger.Debug("creating HTTP server...")
			s := &http.Server{
				Handler:     rtm.Router(),
				Addr:        net.JoinHostPort(config.Service.Addr, config.Service.Port),
				ReadTimeout: config.Service.Timeout,
				IdleTimeout: config.Service.Timeout,
				// a webhook may wait on both outbound calls before it is answered
				WriteTimeout: max(config.Service.Timeout, 2*config.Global.OutboundTimeout+time.Second),
			}

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
			defer stop()
			go func() {
				<-ctx.Done()
				logger.Info("shutting down...")
				shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
				defer cancel()
				if err := s.Shutdown(shutdownCtx); err != nil {
					logger.Error("server shutdown error", "error", err)
				}
			}()

			logger.Info("serving...", "address", s.Addr, "path", config.Service.Path, "timeout", config.Service.Timeout.String())
			if err = s.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			logger.Info("server stopped")
			return nil
		},
	}

	bindEnvMap(cmd, svcEnvMapString)
	bindEnvMap(cmd, svcEnvMapBool)
	bindEnvMap(cmd, svcEnvMapDuration)

	return cmd
}
