package cmd

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/lehigh-university-libraries/imagegallery/internal/api"
	"github.com/lehigh-university-libraries/imagegallery/internal/caption"
	"github.com/lehigh-university-libraries/imagegallery/internal/config"
	"github.com/lehigh-university-libraries/imagegallery/internal/handlers"
	"github.com/lehigh-university-libraries/imagegallery/internal/sessions"
	"github.com/spf13/cobra"
)

func newServeCmd(cfg *config.Config) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the gallery web server",
		Long: `Starts the gallery web interface.

Each browser gets its own session: the pages loaded so far, the add-image
form and pending notices. Idle sessions are dropped after the session TTL.`,
		Example: `  # Start server on default address :8888
  gallery serve

  # Use another images API and port
  gallery serve --api-url http://localhost:3333 --addr :3000`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("addr") {
				cfg.Addr = addr
			}
			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			uploader, uploadDir, closeUploader, err := newUploader(ctx, *cfg)
			if err != nil {
				return err
			}
			defer closeUploader()

			store := sessions.New(ctx, api.NewClient(cfg.APIURL), uploader)
			defer store.Close()
			go store.Janitor(ctx, time.Minute, cfg.SessionTTL)

			opts := []handlers.Option{handlers.WithDefaultLocale(cfg.Locale)}
			if gemini, err := caption.NewGemini(cfg.GeminiKey); err == nil {
				opts = append(opts, handlers.WithCaptioner(gemini, caption.Config{Model: cfg.Model, Temperature: 0.4}))
			} else {
				slog.Info("Caption suggestions disabled", "reason", err)
			}
			handler := handlers.New(store, opts...)

			server := &http.Server{
				Addr:              cfg.Addr,
				Handler:           handler.Routes(uploadDir),
				ReadHeaderTimeout: 10 * time.Second,
			}

			// Start server in goroutine
			serverErr := make(chan error, 1)
			go func() {
				slog.Info("Gallery available", "addr", cfg.Addr, "api_url", cfg.APIURL, "storage", cfg.Storage)
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

	cmd.Flags().StringVarP(&addr, "addr", "a", ":8888", "Address to listen on")

	return cmd
}
