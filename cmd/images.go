package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/lehigh-university-libraries/imagegallery/internal/api"
	"github.com/lehigh-university-libraries/imagegallery/internal/config"
	"github.com/lehigh-university-libraries/imagegallery/internal/export"
	"github.com/lehigh-university-libraries/imagegallery/internal/i18n"
	"github.com/lehigh-university-libraries/imagegallery/internal/models"
	"github.com/lehigh-university-libraries/imagegallery/internal/pagination"
	"github.com/lehigh-university-libraries/imagegallery/internal/storage"
	"github.com/lehigh-university-libraries/imagegallery/internal/upload"
	"github.com/lehigh-university-libraries/imagegallery/internal/validation"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var errLimitReached = errors.New("limit reached")

func newImagesCmd(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "images",
		Short: "List, export and add gallery images",
	}

	cmd.AddCommand(newImagesListCmd(cfg))
	cmd.AddCommand(newImagesExportCmd(cfg))
	cmd.AddCommand(newImagesAddCmd(cfg))

	return cmd
}

func newImagesListCmd(cfg *config.Config) *cobra.Command {
	var format string
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List images page by page",
		Example: `  # Print the first 20 images as a table
  gallery images list --limit 20

  # Print every image as YAML
  gallery images list --format yaml --limit 0`,
		RunE: func(cmd *cobra.Command, args []string) error {
			store := pagination.NewStore(api.NewClient(cfg.APIURL))
			records, err := collect(cmd.Context(), store, limit)
			if err != nil {
				return err
			}
			return printRecords(cmd.OutOrStdout(), records, format)
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "table", "Output format (table, json, yaml)")
	cmd.Flags().IntVar(&limit, "limit", 50, "Maximum number of images (0 for all)")

	return cmd
}

// collect walks pages until limit records are gathered
func collect(ctx context.Context, store *pagination.Store, limit int) ([]models.ImageRecord, error) {
	var records []models.ImageRecord
	err := store.Walk(ctx, func(page []models.ImageRecord) error {
		records = append(records, page...)
		if limit > 0 && len(records) >= limit {
			return errLimitReached
		}
		return nil
	})
	if err != nil && !errors.Is(err, errLimitReached) {
		return nil, fmt.Errorf("failed to list images: %w", err)
	}
	if limit > 0 && len(records) > limit {
		records = records[:limit]
	}
	return records, nil
}

func printRecords(w io.Writer, records []models.ImageRecord, format string) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(records)
	case "yaml":
		return yaml.NewEncoder(w).Encode(records)
	case "table", "":
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tTITLE\tCREATED\tURL")
		for _, r := range records {
			created := ""
			if r.Timestamp > 0 {
				created = time.UnixMilli(r.Timestamp).UTC().Format(time.RFC3339)
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", r.ID, r.Title, created, r.URL)
		}
		return tw.Flush()
	default:
		return fmt.Errorf("unsupported format %q", format)
	}
}

func newImagesExportCmd(cfg *config.Config) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "export <path>",
		Short: "Export every image record to a parquet, jsonl or yaml file",
		Example: `  # Format is taken from the extension
  gallery images export images.parquet

  gallery images export dump.txt --format jsonl`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			f := export.Format(format)
			if format == "" {
				var err error
				if f, err = export.FormatFromPath(path); err != nil {
					return err
				}
			}
			return exportRecords(cmd.Context(), api.NewClient(cfg.APIURL), path, f)
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "", "Output format (parquet, jsonl, yaml); defaults to the file extension")

	return cmd
}

func exportRecords(ctx context.Context, lister pagination.Lister, path string, format export.Format) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create export file: %w", err)
	}
	defer file.Close()

	w, err := export.NewWriter(file, format)
	if err != nil {
		return err
	}

	total := 0
	store := pagination.NewStore(lister)
	err = store.Walk(ctx, func(page []models.ImageRecord) error {
		total += len(page)
		slog.Debug("Exporting page", "records", len(page), "total", total)
		return w.Write(page)
	})
	if err != nil {
		return fmt.Errorf("export interrupted after %d records: %w", total, err)
	}
	if err := w.Close(); err != nil {
		return err
	}
	slog.Info("Export complete", "path", path, "format", format, "records", total)
	return nil
}

func newImagesAddCmd(cfg *config.Config) *cobra.Command {
	var title string
	var description string

	cmd := &cobra.Command{
		Use:   "add <file or url>",
		Short: "Upload an image and register it with a title and description",
		Example: `  gallery images add ./dog.png --title "Rex" --description "Our dog at the beach"

  gallery images add https://example.com/cat.jpg -t "Cat" -d "Asleep"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := i18n.WithLocalizer(cmd.Context(), i18n.New(cfg.Locale))

			file, err := loadFile(ctx, args[0])
			if err != nil {
				return err
			}

			uploader, _, release, err := newUploader(ctx, *cfg)
			if err != nil {
				return err
			}
			defer release()

			client := api.NewClient(cfg.APIURL)
			store := pagination.NewStore(client)
			flow := upload.NewFlow(uploader, client, store)

			return addImage(ctx, cmd.OutOrStdout(), flow, store, *file, title, description)
		},
	}

	cmd.Flags().StringVarP(&title, "title", "t", "", "Image title")
	cmd.Flags().StringVarP(&description, "description", "d", "", "Image description")

	return cmd
}

func addImage(ctx context.Context, w io.Writer, flow *upload.Flow, store *pagination.Store, file models.FileUpload, title, description string) error {
	selected := flow.SelectFile(ctx, file)
	if len(selected.Violations) > 0 {
		return violationsError(selected.Violations)
	}
	if selected.Err != nil {
		printNotice(w, selected)
		return selected.Err
	}
	fmt.Fprintf(w, "Stored %s at %s\n", file.Name, selected.URL)

	out := flow.Submit(ctx, title, description)
	if len(out.Violations) > 0 {
		return violationsError(out.Violations)
	}
	printNotice(w, out)
	if out.Err != nil {
		return out.Err
	}

	// the submit invalidated the store; show the refreshed first page
	if err := store.Drain(ctx); err != nil {
		return fmt.Errorf("failed to refresh gallery: %w", err)
	}
	fmt.Fprintf(w, "Registered %s (%s)\n", out.Record.ID, out.Record.URL)
	fmt.Fprintf(w, "First page now has %d images\n", len(store.Records()))
	return nil
}

func printNotice(w io.Writer, out upload.Outcome) {
	if out.Notice == nil {
		return
	}
	fmt.Fprintf(w, "[%s] %s: %s\n", out.Notice.Status, out.Notice.Title, out.Notice.Description)
}

func violationsError(result validation.Result) error {
	fields := make([]string, 0, len(result))
	for field := range result {
		fields = append(fields, string(field))
	}
	sort.Strings(fields)

	msgs := make([]string, len(fields))
	for i, field := range fields {
		msgs[i] = fmt.Sprintf("%s: %s", field, result[validation.Field(field)].Message)
	}
	return fmt.Errorf("invalid image: %s", strings.Join(msgs, "; "))
}

// loadFile reads a local path or downloads an http(s) URL
func loadFile(ctx context.Context, source string) (*models.FileUpload, error) {
	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		client := &http.Client{Timeout: 30 * time.Second}
		return storage.Fetch(ctx, client, source, validation.MaxFileSize)
	}

	data, err := os.ReadFile(source)
	if err != nil {
		return nil, fmt.Errorf("failed to read image: %w", err)
	}
	file := storage.NewFileUpload(filepath.Base(source), data, "")
	return &file, nil
}
