package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"clipper/internal/config"
)

func TestLoadDefaultConfigExpandsPathsAndReadsEnvKeys(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Setenv("CLIPPER_EMBEDDING_API_KEY", " embed-key ")
	t.Setenv("CLIPPER_SCORING_API_KEY", "score-key")

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	dataDir := filepath.Join(tempHome, ".local", "share", "clipper")
	if cfg.Paths.DataDir != dataDir {
		t.Fatalf("unexpected data dir: got %q want %q", cfg.Paths.DataDir, dataDir)
	}
	if cfg.Paths.MediaDir != filepath.Join(dataDir, "media") {
		t.Fatalf("unexpected media dir: %q", cfg.Paths.MediaDir)
	}
	if cfg.Paths.TranscriptDir != filepath.Join(dataDir, "transcripts") {
		t.Fatalf("unexpected transcript dir: %q", cfg.Paths.TranscriptDir)
	}
	if cfg.Paths.LedgerPath != filepath.Join(dataDir, "ledger.db") {
		t.Fatalf("unexpected ledger path: %q", cfg.Paths.LedgerPath)
	}
	if cfg.Embedding.APIKey != "embed-key" {
		t.Fatalf("expected embedding key from env, got %q", cfg.Embedding.APIKey)
	}
	if cfg.Scoring.APIKey != "score-key" {
		t.Fatalf("expected scoring key from env, got %q", cfg.Scoring.APIKey)
	}
	if cfg.Scoring.Threshold != 0 {
		t.Fatalf("expected default threshold 0, got %v", cfg.Scoring.Threshold)
	}
	if cfg.Embedding.Dimensions != 384 {
		t.Fatalf("unexpected default dimensions: %d", cfg.Embedding.Dimensions)
	}
	if cfg.Logging.Format != "console" || cfg.Logging.Level != "info" {
		t.Fatalf("unexpected logging defaults: %+v", cfg.Logging)
	}
}

func TestLoadCustomConfigOverridesDefaults(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Setenv("CLIPPER_SCORING_API_KEY", "from-env")

	configPath := filepath.Join(t.TempDir(), "clipper.toml")
	content := `
[paths]
data_dir = "~/clips"
ledger_path = "~/db/custom.db"

[ingest]
workers = 8

[transcription]
language = "German"

[scoring]
provider = "LEXICAL"
api_key = "from-file"
threshold = 0.5
cross_item_only = true

[logging]
format = "JSON"
level = "DEBUG"
`
	if err := os.WriteFile(configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || resolved != configPath {
		t.Fatalf("expected existing config at %q, got %q exists=%v", configPath, resolved, exists)
	}
	if cfg.Paths.DataDir != filepath.Join(tempHome, "clips") {
		t.Fatalf("unexpected data dir: %q", cfg.Paths.DataDir)
	}
	if cfg.Paths.MediaDir != filepath.Join(tempHome, "clips", "media") {
		t.Fatalf("media dir should derive from data dir, got %q", cfg.Paths.MediaDir)
	}
	if cfg.Paths.LedgerPath != filepath.Join(tempHome, "db", "custom.db") {
		t.Fatalf("unexpected ledger path: %q", cfg.Paths.LedgerPath)
	}
	if cfg.Ingest.Workers != 8 {
		t.Fatalf("unexpected ingest workers: %d", cfg.Ingest.Workers)
	}
	if cfg.Transcription.Workers != config.Default().Transcription.Workers {
		t.Fatalf("transcription workers should keep default, got %d", cfg.Transcription.Workers)
	}
	if cfg.Transcription.Language != "de" {
		t.Fatalf("expected language normalized to de, got %q", cfg.Transcription.Language)
	}
	if cfg.Scoring.Provider != "lexical" {
		t.Fatalf("expected provider normalized to lexical, got %q", cfg.Scoring.Provider)
	}
	if cfg.Scoring.APIKey != "from-file" {
		t.Fatalf("file key should win over env, got %q", cfg.Scoring.APIKey)
	}
	if cfg.Scoring.Threshold != 0.5 || !cfg.Scoring.CrossItemOnly {
		t.Fatalf("unexpected scoring config: %+v", cfg.Scoring)
	}
	if cfg.Logging.Format != "json" || cfg.Logging.Level != "debug" {
		t.Fatalf("unexpected logging config: %+v", cfg.Logging)
	}
}

func TestLoadRejectsUnknownLanguage(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	configPath := filepath.Join(t.TempDir(), "clipper.toml")
	if err := os.WriteFile(configPath, []byte("[transcription]\nlanguage = \"e1\"\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	_, _, _, err := config.Load(configPath)
	if err == nil || !strings.Contains(err.Error(), "transcription.language") {
		t.Fatalf("expected language error, got %v", err)
	}
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	configPath := filepath.Join(t.TempDir(), "clipper.toml")
	if err := os.WriteFile(configPath, []byte("[ingest]\nworkerz = 3\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, _, _, err := config.Load(configPath); err == nil {
		t.Fatal("expected unknown key to fail")
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{"zero ingest workers", func(c *config.Config) { c.Ingest.Workers = 0 }, "ingest.workers"},
		{"zero embedding workers", func(c *config.Config) { c.Embedding.Workers = 0 }, "embedding.workers"},
		{"negative fetch timeout", func(c *config.Config) { c.Ingest.FetchTimeoutSeconds = -1 }, "ingest.fetch_timeout_seconds"},
		{"negative transcription timeout", func(c *config.Config) { c.Transcription.TimeoutSeconds = -1 }, "transcription.timeout_seconds"},
		{"negative embedding timeout", func(c *config.Config) { c.Embedding.TimeoutSeconds = -5 }, "embedding.timeout_seconds"},
		{"negative scoring timeout", func(c *config.Config) { c.Scoring.TimeoutSeconds = -5 }, "scoring.timeout_seconds"},
		{"unknown embedding provider", func(c *config.Config) { c.Embedding.Provider = "magic" }, "embedding.provider"},
		{"missing embedding url", func(c *config.Config) { c.Embedding.BaseURL = "" }, "embedding.base_url"},
		{"non-positive dimensions", func(c *config.Config) { c.Embedding.Dimensions = 0 }, "embedding.dimensions"},
		{"unknown scoring provider", func(c *config.Config) { c.Scoring.Provider = "oracle" }, "scoring.provider"},
		{"missing scoring url", func(c *config.Config) { c.Scoring.BaseURL = "" }, "scoring.base_url"},
		{"bad log format", func(c *config.Config) { c.Logging.Format = "xml" }, "logging.format"},
		{"bad log level", func(c *config.Config) { c.Logging.Level = "loud" }, "logging.level"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected error mentioning %q, got %v", tt.want, err)
			}
		})
	}
}

func TestLexicalScoringDoesNotNeedBaseURL(t *testing.T) {
	cfg := config.Default()
	cfg.Scoring.Provider = "lexical"
	cfg.Scoring.BaseURL = ""
	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestCreateSampleProducesLoadableConfig(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample returned error: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	var raw map[string]any
	if err := toml.Unmarshal(data, &raw); err != nil {
		t.Fatalf("sample is not valid TOML: %v", err)
	}
	if _, ok := raw["scoring"]; !ok {
		t.Fatal("sample config missing scoring section")
	}

	if _, _, exists, err := config.Load(path); err != nil || !exists {
		t.Fatalf("sample config should load cleanly: exists=%v err=%v", exists, err)
	}
}

func TestEnsureDirectoriesCreatesTree(t *testing.T) {
	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.DataDir = filepath.Join(base, "data")
	cfg.Paths.MediaDir = filepath.Join(base, "data", "media")
	cfg.Paths.TranscriptDir = filepath.Join(base, "data", "transcripts")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Paths.LedgerPath = filepath.Join(base, "db", "ledger.db")

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories returned error: %v", err)
	}
	for _, dir := range []string{cfg.Paths.MediaDir, cfg.Paths.TranscriptDir, cfg.Paths.LogDir, filepath.Join(base, "db")} {
		info, err := os.Stat(dir)
		if err != nil || !info.IsDir() {
			t.Fatalf("expected directory %q: %v", dir, err)
		}
	}
}
