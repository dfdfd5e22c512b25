package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateWorkers(); err != nil {
		return err
	}
	if err := c.validateEmbedding(); err != nil {
		return err
	}
	if err := c.validateScoring(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateWorkers() error {
	checks := []struct {
		name  string
		value int
	}{
		{"ingest.workers", c.Ingest.Workers},
		{"transcription.workers", c.Transcription.Workers},
		{"embedding.workers", c.Embedding.Workers},
		{"scoring.workers", c.Scoring.Workers},
	}
	for _, check := range checks {
		if check.value < 1 {
			return fmt.Errorf("%s must be at least 1", check.name)
		}
	}
	timeouts := []struct {
		name  string
		value int
	}{
		{"ingest.fetch_timeout_seconds", c.Ingest.FetchTimeoutSeconds},
		{"transcription.timeout_seconds", c.Transcription.TimeoutSeconds},
		{"embedding.timeout_seconds", c.Embedding.TimeoutSeconds},
		{"scoring.timeout_seconds", c.Scoring.TimeoutSeconds},
	}
	for _, timeout := range timeouts {
		if timeout.value < 0 {
			return fmt.Errorf("%s must not be negative", timeout.name)
		}
	}
	if c.Ingest.MinFreeGiB < 0 {
		return errors.New("ingest.min_free_gib must not be negative")
	}
	return nil
}

func (c *Config) validateEmbedding() error {
	switch c.Embedding.Provider {
	case "http":
		if c.Embedding.BaseURL == "" {
			return errors.New("embedding.base_url must be set when embedding.provider is http")
		}
	default:
		return fmt.Errorf("embedding.provider: unsupported value %q (expected http)", c.Embedding.Provider)
	}
	if c.Embedding.Model == "" {
		return errors.New("embedding.model must be set")
	}
	if c.Embedding.Dimensions <= 0 {
		return errors.New("embedding.dimensions must be positive")
	}
	return nil
}

func (c *Config) validateScoring() error {
	switch c.Scoring.Provider {
	case "http":
		if c.Scoring.BaseURL == "" {
			return errors.New("scoring.base_url must be set when scoring.provider is http")
		}
	case "lexical":
	default:
		return fmt.Errorf("scoring.provider: unsupported value %q (expected http or lexical)", c.Scoring.Provider)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}
