package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"clipper/internal/language"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeIngest()
	if err := c.normalizeTranscription(); err != nil {
		return err
	}
	c.normalizeEmbedding()
	c.normalizeScoring()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}

	derived := []struct {
		field *string
		name  string
		def   string
	}{
		{&c.Paths.MediaDir, "paths.media_dir", defaultMediaDirName},
		{&c.Paths.TranscriptDir, "paths.transcript_dir", defaultTranscriptDirName},
		{&c.Paths.LogDir, "paths.log_dir", defaultLogDirName},
		{&c.Paths.LedgerPath, "paths.ledger_path", defaultLedgerName},
	}
	for _, d := range derived {
		if strings.TrimSpace(*d.field) == "" {
			*d.field = filepath.Join(c.Paths.DataDir, d.def)
		}
		if *d.field, err = expandPath(*d.field); err != nil {
			return fmt.Errorf("%s: %w", d.name, err)
		}
	}
	return nil
}

func (c *Config) normalizeIngest() {
	c.Ingest.FetchCommand = strings.TrimSpace(c.Ingest.FetchCommand)
	if c.Ingest.FetchCommand == "" {
		c.Ingest.FetchCommand = defaultFetchCommand
	}
	c.Ingest.FetchFormat = strings.TrimSpace(c.Ingest.FetchFormat)
	if c.Ingest.FetchFormat == "" {
		c.Ingest.FetchFormat = defaultFetchFormat
	}
}

func (c *Config) normalizeTranscription() error {
	c.Transcription.WhisperBinary = strings.TrimSpace(c.Transcription.WhisperBinary)
	if c.Transcription.WhisperBinary == "" {
		c.Transcription.WhisperBinary = defaultWhisperBinary
	}
	var err error
	if c.Transcription.ModelPath, err = expandPath(strings.TrimSpace(c.Transcription.ModelPath)); err != nil {
		return fmt.Errorf("transcription.model_path: %w", err)
	}
	if c.Transcription.Language, err = language.ForWhisper(c.Transcription.Language); err != nil {
		return fmt.Errorf("transcription.language: %w", err)
	}
	return nil
}

func (c *Config) normalizeEmbedding() {
	c.Embedding.Provider = strings.ToLower(strings.TrimSpace(c.Embedding.Provider))
	if c.Embedding.Provider == "" {
		c.Embedding.Provider = defaultEmbeddingProvider
	}
	c.Embedding.BaseURL = strings.TrimRight(strings.TrimSpace(c.Embedding.BaseURL), "/")
	c.Embedding.Model = strings.TrimSpace(c.Embedding.Model)
	if c.Embedding.APIKey == "" {
		if value, ok := os.LookupEnv("CLIPPER_EMBEDDING_API_KEY"); ok {
			c.Embedding.APIKey = strings.TrimSpace(value)
		}
	}
}

func (c *Config) normalizeScoring() {
	c.Scoring.Provider = strings.ToLower(strings.TrimSpace(c.Scoring.Provider))
	if c.Scoring.Provider == "" {
		c.Scoring.Provider = defaultScoringProvider
	}
	c.Scoring.BaseURL = strings.TrimRight(strings.TrimSpace(c.Scoring.BaseURL), "/")
	c.Scoring.Model = strings.TrimSpace(c.Scoring.Model)
	if c.Scoring.APIKey == "" {
		if value, ok := os.LookupEnv("CLIPPER_SCORING_API_KEY"); ok {
			c.Scoring.APIKey = strings.TrimSpace(value)
		}
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	c.Metrics.TextfilePath = strings.TrimSpace(c.Metrics.TextfilePath)
	if c.Metrics.TextfilePath != "" {
		if expanded, err := expandPath(c.Metrics.TextfilePath); err == nil {
			c.Metrics.TextfilePath = expanded
		}
	}
}
