package export

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/lehigh-university-libraries/imagegallery/internal/models"
	"github.com/parquet-go/parquet-go"
	"gopkg.in/yaml.v3"
)

type Format string

const (
	FormatParquet Format = "parquet"
	FormatJSONL   Format = "jsonl"
	FormatYAML    Format = "yaml"
)

// Formats lists the supported output formats
var Formats = []Format{FormatParquet, FormatJSONL, FormatYAML}

// Writer receives records page by page
type Writer interface {
	Write(records []models.ImageRecord) error
	Close() error
}

// FormatFromPath picks the format from a file extension
func FormatFromPath(path string) (Format, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".parquet":
		return FormatParquet, nil
	case ".jsonl", ".ndjson":
		return FormatJSONL, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("unsupported file format: %s", ext)
	}
}

// NewWriter returns a writer for format. Closing it does not close w.
func NewWriter(w io.Writer, format Format) (Writer, error) {
	switch format {
	case FormatParquet:
		return &parquetWriter{w: parquet.NewGenericWriter[models.ImageRecord](w)}, nil
	case FormatJSONL:
		return &jsonlWriter{enc: json.NewEncoder(w)}, nil
	case FormatYAML:
		return &yamlWriter{w: w}, nil
	default:
		return nil, fmt.Errorf("unsupported export format: %s", format)
	}
}

type parquetWriter struct {
	w     *parquet.GenericWriter[models.ImageRecord]
	total int
}

func (p *parquetWriter) Write(records []models.ImageRecord) error {
	n, err := p.w.Write(records)
	p.total += n
	if err != nil {
		return fmt.Errorf("failed to write parquet rows: %w", err)
	}
	slog.Debug("Wrote parquet rows", "rows_in_batch", n, "total_rows", p.total)
	return nil
}

func (p *parquetWriter) Close() error {
	if err := p.w.Close(); err != nil {
		return fmt.Errorf("failed to close parquet writer: %w", err)
	}
	return nil
}

type jsonlWriter struct {
	enc *json.Encoder
}

func (j *jsonlWriter) Write(records []models.ImageRecord) error {
	for _, r := range records {
		if err := j.enc.Encode(r); err != nil {
			return fmt.Errorf("failed to write record %s: %w", r.ID, err)
		}
	}
	return nil
}

func (j *jsonlWriter) Close() error {
	return nil
}

// yamlWriter buffers everything and emits a single document on Close
type yamlWriter struct {
	w       io.Writer
	records []models.ImageRecord
}

func (y *yamlWriter) Write(records []models.ImageRecord) error {
	y.records = append(y.records, records...)
	return nil
}

func (y *yamlWriter) Close() error {
	if y.records == nil {
		y.records = []models.ImageRecord{}
	}
	enc := yaml.NewEncoder(y.w)
	enc.SetIndent(2)
	if err := enc.Encode(y.records); err != nil {
		return fmt.Errorf("failed to marshal YAML: %w", err)
	}
	return enc.Close()
}
