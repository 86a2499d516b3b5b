package commands

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/spendwise-dev/spendwise/internal/config"
	"github.com/spendwise-dev/spendwise/internal/fakeapi"
	"github.com/spendwise-dev/spendwise/internal/logging"
)

func newDevServerCommand() *cobra.Command {
	var addr, secret, logLevel string
	var disabled []string

	cmd := &cobra.Command{
		Use:   "dev-server",
		Short: "Run an in-memory backend for local testing",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := logging.New(config.LogConfig{Level: logLevel, Format: "text"}, cmd.ErrOrStderr())
			api := fakeapi.New(fakeapi.Options{Secret: secret, Disabled: disabled}, logger)

			server := &http.Server{
				Addr:         addr,
				Handler:      api.Handler(),
				ReadTimeout:  10 * time.Second,
				WriteTimeout: 10 * time.Second,
			}

			errCh := make(chan error, 1)
			go func() {
				logger.Infof("Starting dev server on %s", addr)
				errCh <- server.ListenAndServe()
			}()

			select {
			case err := <-errCh:
				if errors.Is(err, http.ErrServerClosed) {
					return nil
				}
				return fmt.Errorf("dev server: %w", err)
			case <-cmd.Context().Done():
			}

			logger.Info("Shutting down dev server...")
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return server.Shutdown(ctx)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "localhost:8080", "listen address")
	cmd.Flags().StringVar(&secret, "secret", "", "JWT signing key (default: a fixed development key)")
	cmd.Flags().StringVar(&logLevel, "log-level", "info", "log level")
	cmd.Flags().StringSliceVar(&disabled, "disable", nil, "collections to answer 404, e.g. budgets,accounts")

	return cmd
}
