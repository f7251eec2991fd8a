package readnotes

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds settings shared by the CLI and the HTTP server
type Config struct {
	Export ExportConfig `yaml:"export"`
	Server ServerConfig `yaml:"server"`
}

// ExportConfig controls how notes are turned into documents.
type ExportConfig struct {
	// FontDir holds TTF files for the non-core reader fonts.
	FontDir string `yaml:"font_dir"`
	// AssetDir holds background images referenced by notes.
	AssetDir string `yaml:"asset_dir"`
	// OutputDir is where exported documents are written.
	OutputDir string `yaml:"output_dir"`
	// ImageTimeout bounds each remote image fetch.
	ImageTimeout time.Duration `yaml:"image_timeout"`
	// MaxImageBytes caps the size of a downloaded image.
	MaxImageBytes int64 `yaml:"max_image_bytes"`
	// Prefetch is the number of concurrent image fetches; 1 fetches serially.
	Prefetch int `yaml:"prefetch"`
	// CacheTTL is how long decoded images stay cached.
	CacheTTL time.Duration `yaml:"cache_ttl"`
}

// ServerConfig controls the HTTP export service.
type ServerConfig struct {
	Addr         string        `yaml:"addr"`
	TLS          bool          `yaml:"tls"`
	CertFile     string        `yaml:"cert_file"`
	KeyFile      string        `yaml:"key_file"`
	RateLimit    int           `yaml:"rate_limit"`
	RateWindow   time.Duration `yaml:"rate_window"`
	MaxBodyBytes int64         `yaml:"max_body_bytes"`
	JobTTL       time.Duration `yaml:"job_ttl"`
}

// DefaultConfig returns the built-in configuration.
func DefaultConfig() *Config {
	return &Config{
		Export: ExportConfig{
			FontDir:       "fonts",
			AssetDir:      "assets",
			OutputDir:     "outputs",
			ImageTimeout:  30 * time.Second,
			MaxImageBytes: 10 << 20,
			Prefetch:      1,
			CacheTTL:      time.Hour,
		},
		Server: ServerConfig{
			Addr:         ":8081",
			CertFile:     filepath.Join("certs", "server.crt"),
			KeyFile:      filepath.Join("certs", "server.key"),
			RateLimit:    30,
			RateWindow:   time.Minute,
			MaxBodyBytes: 1 << 20,
			JobTTL:       24 * time.Hour,
		},
	}
}

// LoadConfig reads a YAML config file on top of the defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	return cfg, nil
}

// LoadConfigOrDefault loads path if it exists, then applies environment
// overrides. An empty or missing path yields the defaults.
func LoadConfigOrDefault(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			loaded, err := LoadConfig(path)
			if err != nil {
				return nil, err
			}
			cfg = loaded
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("checking config: %w", err)
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("READNOTES_ADDR"); v != "" {
		c.Server.Addr = v
	}
	if v := os.Getenv("READNOTES_FONT_DIR"); v != "" {
		c.Export.FontDir = v
	}
	if v := os.Getenv("READNOTES_ASSET_DIR"); v != "" {
		c.Export.AssetDir = v
	}
	if v := os.Getenv("READNOTES_OUTPUT_DIR"); v != "" {
		c.Export.OutputDir = v
	}
	if v := os.Getenv("READNOTES_IMAGE_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("parsing READNOTES_IMAGE_TIMEOUT: %w", err)
		}
		c.Export.ImageTimeout = d
	}
	if v := os.Getenv("READNOTES_PREFETCH"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("parsing READNOTES_PREFETCH: %w", err)
		}
		c.Export.Prefetch = n
	}
	return nil
}

// Save writes the config as YAML, creating parent directories.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	return WriteFileAtomic(path, data, 0o644)
}
