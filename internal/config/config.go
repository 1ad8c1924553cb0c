package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Storage backends
const (
	StorageLocal = "local"
	StorageImgBB = "imgbb"
)

// Config is read from an optional YAML file and then from the environment
type Config struct {
	APIURL     string        `yaml:"api_url"`
	Addr       string        `yaml:"addr"`
	Storage    string        `yaml:"storage"`
	UploadDir  string        `yaml:"upload_dir"`
	PublicURL  string        `yaml:"public_url"`
	ImgBBKey   string        `yaml:"imgbb_api_key"`
	GeminiKey  string        `yaml:"gemini_api_key"`
	Model      string        `yaml:"gemini_model"`
	Locale     string        `yaml:"locale"`
	SessionTTL time.Duration `yaml:"session_ttl"`
}

// Default returns the configuration used when nothing is set
func Default() Config {
	return Config{
		APIURL:     "http://localhost:3333",
		Addr:       ":8888",
		Storage:    StorageLocal,
		UploadDir:  "uploads",
		Locale:     "en",
		SessionTTL: 30 * time.Minute,
	}
}

// Load reads path (if not empty) over the defaults, then applies environment
// overrides. A missing file is only an error when path was given explicitly.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

func (c *Config) applyEnv() error {
	vars := map[string]*string{
		"GALLERY_API_URL":    &c.APIURL,
		"GALLERY_ADDR":       &c.Addr,
		"GALLERY_STORAGE":    &c.Storage,
		"GALLERY_UPLOAD_DIR": &c.UploadDir,
		"GALLERY_PUBLIC_URL": &c.PublicURL,
		"IMGBB_API_KEY":      &c.ImgBBKey,
		"GEMINI_API_KEY":     &c.GeminiKey,
		"GEMINI_MODEL":       &c.Model,
		"GALLERY_LOCALE":     &c.Locale,
	}
	for key, dst := range vars {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}

	if v := os.Getenv("GALLERY_SESSION_TTL"); v != "" {
		ttl, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid GALLERY_SESSION_TTL %q: %w", v, err)
		}
		c.SessionTTL = ttl
	}
	return nil
}

// Validate checks the combination of settings
func (c Config) Validate() error {
	var errs []error
	if c.APIURL == "" {
		errs = append(errs, errors.New("api_url is required"))
	}
	switch c.Storage {
	case StorageLocal:
		if c.UploadDir == "" {
			errs = append(errs, errors.New("upload_dir is required for local storage"))
		}
	case StorageImgBB:
		if c.ImgBBKey == "" {
			errs = append(errs, errors.New("imgbb storage needs IMGBB_API_KEY"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown storage %q", c.Storage))
	}
	if c.SessionTTL <= 0 {
		errs = append(errs, errors.New("session_ttl must be positive"))
	}
	return errors.Join(errs...)
}
