package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/lehigh-university-libraries/imagegallery/internal/caption"
	"github.com/lehigh-university-libraries/imagegallery/internal/config"
	"github.com/lehigh-university-libraries/imagegallery/internal/validation"
	"github.com/spf13/cobra"
)

func newDescribeCmd(cfg *config.Config) *cobra.Command {
	var temperature float64

	cmd := &cobra.Command{
		Use:   "describe <file or url>",
		Short: "Suggest a title and description for an image",
		Long: `Asks Gemini for a gallery title and description of an image.

Requires GEMINI_API_KEY. The suggestion fits the add-image form's length
limits and is written in the configured locale.`,
		Example: `  gallery describe ./dog.png

  gallery describe https://example.com/cat.jpg --locale pt-BR`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			provider, err := caption.NewGemini(cfg.GeminiKey)
			if err != nil {
				return err
			}

			file, err := loadFile(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if file.Size >= validation.MaxFileSize {
				return fmt.Errorf("image is %d bytes, limit is %d", file.Size, validation.MaxFileSize)
			}

			suggestion, err := provider.Suggest(cmd.Context(), *file, caption.Config{
				Model:       cfg.Model,
				Temperature: temperature,
				Locale:      cfg.Locale,
			})
			if err != nil {
				return fmt.Errorf("failed to describe image: %w", err)
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(suggestion)
		},
	}

	cmd.Flags().Float64Var(&temperature, "temperature", 0.4, "Sampling temperature")

	return cmd
}
