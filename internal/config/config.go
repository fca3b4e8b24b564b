// Package config provides configuration loading for lifebankd.
package config

import (
	"fmt"
	"time"

	"github.com/fyrsmithlabs/lifebank/internal/logging"
)

// Config is the full daemon configuration.
type Config struct {
	Server       ServerConfig       `koanf:"server"`
	Logging      logging.Config     `koanf:"logging"`
	Store        StoreConfig        `koanf:"store"`
	Collaborator CollaboratorConfig `koanf:"collaborator"`
	Extraction   ExtractionConfig   `koanf:"extraction"`
}

// ServerConfig controls the HTTP API.
type ServerConfig struct {
	Host            string   `koanf:"host"`
	Port            int      `koanf:"port"`
	ShutdownTimeout Duration `koanf:"shutdown_timeout"`
}

// StoreConfig controls knowledge base persistence and semantic search.
type StoreConfig struct {
	SnapshotPath string      `koanf:"snapshot_path"`
	RecordsPath  string      `koanf:"records_path"`
	Index        IndexConfig `koanf:"index"`
}

// IndexConfig controls the embedded vector index.
type IndexConfig struct {
	Enabled  bool   `koanf:"enabled"`
	Path     string `koanf:"path"`
	Compress bool   `koanf:"compress"`
}

// CollaboratorConfig selects and tunes the external AI collaborator.
type CollaboratorConfig struct {
	Provider   string  `koanf:"provider"` // openai | anthropic
	Model      string  `koanf:"model"`
	APIKey     Secret  `koanf:"api_key"`
	BaseURL    string  `koanf:"base_url"`
	RateLimit  float64 `koanf:"rate_limit"`  // requests per second
	MaxRetries int     `koanf:"max_retries"` // -1 disables retry; 0 means default
}

// ExtractionConfig tunes the extraction pipeline.
type ExtractionConfig struct {
	ReviewConfidence float64 `koanf:"review_confidence"`
	Concurrency      int     `koanf:"concurrency"`
}

// NewDefaultConfig returns config with working defaults for everything that
// does not require a credential.
func NewDefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "127.0.0.1",
			Port:            8950,
			ShutdownTimeout: Duration(10 * time.Second),
		},
		Logging: *logging.NewDefaultConfig(),
		Store: StoreConfig{
			Index: IndexConfig{
				Enabled:  true,
				Compress: true,
			},
		},
		Collaborator: CollaboratorConfig{
			Provider:   "openai",
			RateLimit:  2,
			MaxRetries: 2,
		},
		Extraction: ExtractionConfig{
			ReviewConfidence: 0.6,
			Concurrency:      2,
		},
	}
}

// applyDefaults fills zero values after file and env loading.
func applyDefaults(cfg *Config) {
	def := NewDefaultConfig()

	if cfg.Server.Host == "" {
		cfg.Server.Host = def.Server.Host
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = def.Server.Port
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = def.Server.ShutdownTimeout
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = def.Logging.Level
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = def.Logging.Format
	}
	if cfg.Logging.Fields == nil {
		cfg.Logging.Fields = def.Logging.Fields
	}

	if cfg.Collaborator.Provider == "" {
		cfg.Collaborator.Provider = def.Collaborator.Provider
	}
	if cfg.Collaborator.RateLimit == 0 {
		cfg.Collaborator.RateLimit = def.Collaborator.RateLimit
	}
	if cfg.Collaborator.MaxRetries == 0 {
		cfg.Collaborator.MaxRetries = def.Collaborator.MaxRetries
	}

	if cfg.Extraction.ReviewConfidence == 0 {
		cfg.Extraction.ReviewConfidence = def.Extraction.ReviewConfidence
	}
	if cfg.Extraction.Concurrency == 0 {
		cfg.Extraction.Concurrency = def.Extraction.Concurrency
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server port must be 1-65535, got %d", c.Server.Port)
	}
	if c.Server.ShutdownTimeout.Duration() <= 0 {
		return fmt.Errorf("server shutdown timeout must be > 0")
	}

	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging: %w", err)
	}

	switch c.Collaborator.Provider {
	case "openai", "anthropic":
	default:
		return fmt.Errorf("collaborator provider must be 'openai' or 'anthropic', got %q", c.Collaborator.Provider)
	}
	if c.Collaborator.RateLimit <= 0 {
		return fmt.Errorf("collaborator rate limit must be > 0")
	}
	if c.Collaborator.MaxRetries < -1 {
		return fmt.Errorf("collaborator max retries must be >= -1, got %d", c.Collaborator.MaxRetries)
	}

	if c.Extraction.ReviewConfidence < 0 || c.Extraction.ReviewConfidence > 1 {
		return fmt.Errorf("extraction review confidence must be between 0.0 and 1.0")
	}
	if c.Extraction.Concurrency < 1 {
		return fmt.Errorf("extraction concurrency must be >= 1")
	}

	return nil
}
