// Package config holds the application configuration, loaded through
// viper from file, environment (SITEWATCH_*) and flags.
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds the application configuration
type Config struct {
	Images   ImagesConfig   `mapstructure:"images"`
	Vision   VisionConfig   `mapstructure:"vision"`
	Ingest   IngestConfig   `mapstructure:"ingest"`
	Database DatabaseConfig `mapstructure:"database"`
	Server   ServerConfig   `mapstructure:"server"`
}

// ImagesConfig holds configuration for image intake
type ImagesConfig struct {
	Dir         string `mapstructure:"dir"`
	MaxFileSize int64  `mapstructure:"max_file_size"`
	SendFormat  string `mapstructure:"send_format"`
	SendMaxDim  int    `mapstructure:"send_max_dim"`
	SendQuality int    `mapstructure:"send_quality"`
}

// VisionConfig holds configuration for the vision model backend
type VisionConfig struct {
	Backend string `mapstructure:"backend"` // ollama or openai
	BaseURL string `mapstructure:"base_url"`
	Model   string `mapstructure:"model"`
	APIKey  string `mapstructure:"api_key"`
	Prompt  string `mapstructure:"prompt"` // empty uses the built-in PPE prompt
}

// IngestConfig holds configuration for the batch pipeline
type IngestConfig struct {
	BatchSize   int           `mapstructure:"batch_size"`
	CallSpacing time.Duration `mapstructure:"call_spacing"`
	CallTimeout time.Duration `mapstructure:"call_timeout"`
	IdentityKey string        `mapstructure:"identity_key"` // site_name or location_details
}

// DatabaseConfig holds configuration for the relational store
type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

// ServerConfig holds configuration for the HTTP read surface
type ServerConfig struct {
	Listen   string        `mapstructure:"listen"`
	CacheTTL time.Duration `mapstructure:"cache_ttl"`
}

// SetDefaults registers every default with viper. Called once before
// config files and environment are read.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("images.dir", "images")
	v.SetDefault("images.max_file_size", 5*1024*1024)
	v.SetDefault("images.send_format", "jpg")
	v.SetDefault("images.send_max_dim", 2048)
	v.SetDefault("images.send_quality", 90)

	v.SetDefault("vision.backend", "ollama")
	v.SetDefault("vision.base_url", "")
	v.SetDefault("vision.model", "minicpm-v")
	v.SetDefault("vision.api_key", "")
	v.SetDefault("vision.prompt", "")

	v.SetDefault("ingest.batch_size", 1)
	v.SetDefault("ingest.call_spacing", time.Second)
	v.SetDefault("ingest.call_timeout", 5*time.Minute)
	v.SetDefault("ingest.identity_key", "site_name")

	v.SetDefault("database.path", "site_violations.db")

	v.SetDefault("server.listen", ":5000")
	v.SetDefault("server.cache_ttl", 30*time.Second)
}

// Load unmarshals the effective configuration from viper.
func Load(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns the built-in configuration.
func Default() *Config {
	v := viper.New()
	SetDefaults(v)
	cfg, err := Load(v)
	if err != nil {
		// Defaults are always valid; this is a programming error.
		panic(err)
	}
	return cfg
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Images.Dir == "" {
		return fmt.Errorf("images.dir cannot be empty")
	}
	if c.Images.MaxFileSize < 1 {
		return fmt.Errorf("images.max_file_size must be positive")
	}
	if c.Images.SendQuality < 1 || c.Images.SendQuality > 100 {
		return fmt.Errorf("images.send_quality must be between 1 and 100")
	}
	if c.Images.SendFormat != "jpg" && c.Images.SendFormat != "png" {
		return fmt.Errorf("images.send_format must be jpg or png")
	}

	if c.Vision.Backend != "ollama" && c.Vision.Backend != "openai" {
		return fmt.Errorf("vision.backend must be ollama or openai")
	}
	if c.Vision.Model == "" {
		return fmt.Errorf("vision.model cannot be empty")
	}

	if c.Ingest.BatchSize < 1 {
		return fmt.Errorf("ingest.batch_size must be positive")
	}
	if c.Ingest.CallSpacing < 0 {
		return fmt.Errorf("ingest.call_spacing cannot be negative")
	}
	if c.Ingest.IdentityKey != "site_name" && c.Ingest.IdentityKey != "location_details" {
		return fmt.Errorf("ingest.identity_key must be site_name or location_details")
	}

	if c.Database.Path == "" {
		return fmt.Errorf("database.path cannot be empty")
	}
	if c.Server.Listen == "" {
		return fmt.Errorf("server.listen cannot be empty")
	}

	return nil
}
