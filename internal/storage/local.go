package storage

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/lehigh-university-libraries/imagegallery/internal/models"
	_ "modernc.org/sqlite"
)

// Local stores images on disk, named by content hash, and keeps an index
// of stored blobs in sqlite so identical uploads are written once
type Local struct {
	dir       string
	publicURL string
	db        *sql.DB
}

// Blob is a row of the local index
type Blob struct {
	SHA256      string
	Filename    string
	ContentType string
	Size        int64
	CreatedAt   time.Time
}

// NewLocal opens (or creates) a local store in dir. Files are served from
// publicURL; indexPath defaults to dir/index.db.
func NewLocal(ctx context.Context, dir, publicURL, indexPath string) (*Local, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory: %w", err)
	}
	if indexPath == "" {
		indexPath = filepath.Join(dir, "index.db")
	}

	db, err := sql.Open("sqlite", indexPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open blob index: %w", err)
	}
	// sqlite allows a single writer
	db.SetMaxOpenConns(1)

	l := &Local{
		dir:       dir,
		publicURL: strings.TrimSuffix(publicURL, "/"),
		db:        db,
	}
	if err := l.prepare(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return l, nil
}

func (l *Local) prepare(ctx context.Context) error {
	_, err := l.db.ExecContext(ctx, `
create table if not exists blobs (
    sha256 text primary key,
    filename text not null,
    content_type text not null,
    size integer not null,
    created_at timestamp default current_timestamp
)`)
	if err != nil {
		return fmt.Errorf("while creating table 'blobs': %w", err)
	}
	return nil
}

// Dir is the directory files are written to
func (l *Local) Dir() string {
	return l.dir
}

// Upload writes the file unless an identical one is already indexed
func (l *Local) Upload(ctx context.Context, file models.FileUpload) (string, error) {
	hash := fmt.Sprintf("%x", sha256.Sum256(file.Data))

	existing, err := l.Lookup(ctx, hash)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrUploadFailed, err)
	}
	if existing != nil {
		if _, err := os.Stat(filepath.Join(l.dir, existing.Filename)); err == nil {
			slog.Debug("Blob already stored", "sha256", hash, "filename", existing.Filename)
			return l.urlFor(existing.Filename), nil
		}
	}

	filename := hash + extensionFor(file)
	tempPath := filepath.Join(l.dir, "."+filename+".tmp")
	if err := os.WriteFile(tempPath, file.Data, 0644); err != nil {
		return "", fmt.Errorf("%w: failed to save image: %w", ErrUploadFailed, err)
	}
	if err := os.Rename(tempPath, filepath.Join(l.dir, filename)); err != nil {
		os.Remove(tempPath)
		return "", fmt.Errorf("%w: failed to move image: %w", ErrUploadFailed, err)
	}

	_, err = l.db.ExecContext(ctx, `
insert into blobs (sha256, filename, content_type, size) values (?, ?, ?, ?)
on conflict(sha256) do update set filename=excluded.filename`,
		hash, filename, file.ContentType, len(file.Data))
	if err != nil {
		return "", fmt.Errorf("%w: failed to index image: %w", ErrUploadFailed, err)
	}

	slog.Info("Image saved", "filename", filename, "size", len(file.Data), "type", file.ContentType)
	return l.urlFor(filename), nil
}

// Lookup returns the indexed blob for a sha256, or nil
func (l *Local) Lookup(ctx context.Context, hash string) (*Blob, error) {
	var b Blob
	err := l.db.QueryRowContext(ctx,
		"select sha256, filename, content_type, size, created_at from blobs where sha256 = ?", hash,
	).Scan(&b.SHA256, &b.Filename, &b.ContentType, &b.Size, &b.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("while querying blob %s: %w", hash, err)
	}
	return &b, nil
}

// Count returns the number of indexed blobs
func (l *Local) Count(ctx context.Context) (int64, error) {
	var n int64
	err := l.db.QueryRowContext(ctx, "select count(*) from blobs").Scan(&n)
	return n, err
}

func (l *Local) Close() error {
	return l.db.Close()
}

func (l *Local) urlFor(filename string) string {
	return l.publicURL + "/" + filename
}
