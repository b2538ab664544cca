package cmd

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/lehigh-university-libraries/tapsight/internal/handlers"
	"github.com/lehigh-university-libraries/tapsight/internal/pipeline"
	"github.com/spf13/cobra"
)

func newServeCmd(a *app) *cobra.Command {
	var port string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the tap recognition HTTP service",
		Long: `Starts the Tapsight HTTP service.

AR clients post camera frames with a tap point to /api/taps and poll
/api/session with their viewport size for the card content and placement.
The sighting journal is flushed on shutdown.`,
		Example: `  # Start server on the configured port (default 8888)
  tapsight serve

  # Start server on custom port with the OpenAI backend
  TAPSIGHT_PROVIDER=openai tapsight serve --port 3000`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if port == "" {
				port = a.cfg.Server.Port
			}

			p, err := pipeline.New(a.cfg)
			if err != nil {
				return err
			}
			defer func() {
				if err := p.Close(); err != nil {
					slog.Error("Failed to flush journal", "err", err)
				}
			}()

			addr := ":" + port
			server := &http.Server{
				Addr:    addr,
				Handler: handlers.New(p).Routes(),
			}

			// Start server in goroutine
			serverErr := make(chan error, 1)
			go func() {
				slog.Info("Tapsight service available", "addr", addr, "url", "http://localhost"+addr, "provider", a.cfg.Provider)
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					serverErr <- err
				}
			}()

			// Wait for context cancellation (Ctrl+C) or server error
			select {
			case <-cmd.Context().Done():
				slog.Info("Shutting down server...")
				// Give server 5 seconds to shut down gracefully
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := server.Shutdown(shutdownCtx); err != nil {
					slog.Error("Server shutdown failed", "err", err)
					return err
				}
				slog.Info("Server stopped")
				return nil
			case err := <-serverErr:
				return err
			}
		},
	}

	cmd.Flags().StringVarP(&port, "port", "p", "", "Port to listen on (default from config, 8888)")

	return cmd
}
