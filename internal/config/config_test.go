package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "ollama", cfg.Vision.Backend)
	assert.Equal(t, 1, cfg.Ingest.BatchSize)
	assert.Equal(t, time.Second, cfg.Ingest.CallSpacing)
	assert.Equal(t, "site_violations.db", cfg.Database.Path)
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero batch size", func(c *Config) { c.Ingest.BatchSize = 0 }},
		{"bad backend", func(c *Config) { c.Vision.Backend = "carrier-pigeon" }},
		{"bad identity key", func(c *Config) { c.Ingest.IdentityKey = "gps" }},
		{"bad quality", func(c *Config) { c.Images.SendQuality = 101 }},
		{"bad format", func(c *Config) { c.Images.SendFormat = "tiff" }},
		{"empty db path", func(c *Config) { c.Database.Path = "" }},
		{"empty model", func(c *Config) { c.Vision.Model = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
