package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/lehigh-university-libraries/imagegallery/internal/config"
	"github.com/lehigh-university-libraries/imagegallery/internal/storage"
)

// newUploader builds the configured storage backend. dir is the directory
// to serve under /uploads/, empty for remote backends. release frees it.
func newUploader(ctx context.Context, cfg config.Config) (uploader storage.Uploader, dir string, release func(), err error) {
	switch cfg.Storage {
	case config.StorageImgBB:
		return storage.NewImgBB(cfg.ImgBBKey), "", func() {}, nil
	case config.StorageLocal:
		local, err := storage.NewLocal(ctx, cfg.UploadDir, publicURL(cfg), "")
		if err != nil {
			return nil, "", nil, fmt.Errorf("failed to open local storage: %w", err)
		}
		return local, local.Dir(), func() { _ = local.Close() }, nil
	default:
		return nil, "", nil, fmt.Errorf("unknown storage %q", cfg.Storage)
	}
}

// publicURL is where local uploads are reachable, derived from the listen
// address when not configured
func publicURL(cfg config.Config) string {
	if cfg.PublicURL != "" {
		return cfg.PublicURL
	}
	host := cfg.Addr
	if strings.HasPrefix(host, ":") {
		host = "localhost" + host
	}
	return "http://" + host + "/uploads"
}
