package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/lehigh-university-libraries/imagegallery/internal/config"
	"github.com/spf13/cobra"
)

func NewRootCmd() *cobra.Command {
	cfg := config.Default()
	var configPath string
	var logLevel string
	var locale string
	var apiURL string

	cmd := &cobra.Command{
		Use:   "gallery",
		Short: "Image gallery backed by a paginated images API",
		Long: `Gallery serves a browser image gallery on top of an external images API.

Images are stored through a storage backend (local disk or imgbb), registered
with a title and description, and listed page by page.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Load .env file if present (ignore errors)
			_ = godotenv.Load()

			level, err := parseLevel(logLevel)
			if err != nil {
				return err
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

			loaded, err := config.Load(configPath)
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}
			if cmd.Flags().Changed("locale") {
				loaded.Locale = locale
			}
			if cmd.Flags().Changed("api-url") {
				loaded.APIURL = apiURL
			}
			cfg = loaded
			slog.Debug("Configuration loaded", "api_url", cfg.APIURL, "storage", cfg.Storage, "locale", cfg.Locale)
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to a YAML config file")
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	cmd.PersistentFlags().StringVar(&locale, "locale", "", "Locale for notices and messages (en, pt-BR)")
	cmd.PersistentFlags().StringVar(&apiURL, "api-url", "", "Base URL of the images API")

	// Add subcommands
	cmd.AddCommand(newServeCmd(&cfg))
	cmd.AddCommand(newImagesCmd(&cfg))
	cmd.AddCommand(newDescribeCmd(&cfg))

	return cmd
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo, fmt.Errorf("unknown log level %q: %w", s, err)
	}
	return level, nil
}
