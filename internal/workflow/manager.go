package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"clipper/internal/config"
	"clipper/internal/embedding"
	"clipper/internal/ingest"
	"clipper/internal/ledger"
	"clipper/internal/logging"
	"clipper/internal/metrics"
	"clipper/internal/scoring"
	"clipper/internal/services"
	"clipper/internal/transcription"
)

// Manager coordinates stage batches against one ledger.
type Manager struct {
	cfg      *config.Config
	ledger   *ledger.Ledger
	logger   *slog.Logger
	recorder *metrics.Recorder
	pool     *embedding.Pool

	fetcher     ingest.Fetcher
	transcriber transcription.Transcriber
	scorer      scoring.Scorer

	// preflight is true for collaborators built from config, which shell
	// out to binaries and write into the configured directories.
	preflight map[string]bool
}

// ManagerOption configures optional Manager behavior.
type ManagerOption func(*Manager)

// WithFetcher replaces the yt-dlp fetcher.
func WithFetcher(f ingest.Fetcher) ManagerOption {
	return func(m *Manager) {
		m.fetcher = f
		m.preflight[ingestStage] = false
	}
}

// WithTranscriber replaces the whisper.cpp transcriber.
func WithTranscriber(t transcription.Transcriber) ManagerOption {
	return func(m *Manager) {
		m.transcriber = t
		m.preflight[transcription.StageName] = false
	}
}

// WithEmbeddingFactory replaces the HTTP embedding provider factory.
func WithEmbeddingFactory(factory embedding.Factory) ManagerOption {
	return func(m *Manager) {
		m.pool = embedding.NewPool(factory)
	}
}

// WithScorer replaces the configured contradiction scorer.
func WithScorer(s scoring.Scorer) ManagerOption {
	return func(m *Manager) {
		m.scorer = s
	}
}

// WithRecorder sets the metrics recorder.
func WithRecorder(r *metrics.Recorder) ManagerOption {
	return func(m *Manager) {
		m.recorder = r
	}
}

// NewManager constructs a manager. Collaborators not supplied through
// options are built from cfg.
func NewManager(cfg *config.Config, l *ledger.Ledger, logger *slog.Logger, opts ...ManagerOption) *Manager {
	if logger == nil {
		logger = logging.NewNop()
	}
	m := &Manager{
		cfg:       cfg,
		ledger:    l,
		logger:    logger,
		preflight: map[string]bool{ingestStage: true, transcription.StageName: true},
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.fetcher == nil {
		m.fetcher = newFetcher(cfg)
	}
	if m.transcriber == nil {
		m.transcriber = newTranscriber(cfg)
	}
	if m.pool == nil {
		m.pool = embedding.NewPool(newEmbeddingFactory(cfg))
	}
	if m.scorer == nil {
		m.scorer = newScorer(cfg)
	}
	if m.recorder == nil {
		m.recorder = metrics.New()
	}
	return m
}

// Ledger returns the manager's ledger.
func (m *Manager) Ledger() *ledger.Ledger {
	return m.ledger
}

// Recorder returns the metrics recorder.
func (m *Manager) Recorder() *metrics.Recorder {
	return m.recorder
}

// Close releases embedding models and writes the metrics textfile. The
// ledger is owned by the caller.
func (m *Manager) Close(ctx context.Context) error {
	var errs []error
	if err := m.publishCounts(ctx); err != nil {
		errs = append(errs, err)
	}
	if err := m.recorder.WriteTextfile(m.cfg.Metrics.TextfilePath); err != nil {
		errs = append(errs, err)
	}
	if err := m.pool.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (m *Manager) publishCounts(ctx context.Context) error {
	session, err := m.ledger.Session(ctx)
	if err != nil {
		return err
	}
	defer session.Close()
	counts, err := session.Counts(ctx)
	if err != nil {
		return err
	}
	m.recorder.SetCounts(counts)
	return nil
}

// OpenLedger prepares the working directories, opens the ledger, and
// brings its schema to the current version. Every failure is a setup
// error.
func OpenLedger(ctx context.Context, cfg *config.Config) (*ledger.Ledger, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "ledger", "prepare", "cannot create working directories", err)
	}
	l, err := ledger.Open(cfg.Paths.LedgerPath)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "ledger", "open", cfg.Paths.LedgerPath, err)
	}
	ensureCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := l.Ensure(ensureCtx, ledger.CurrentVersion); err != nil {
		_ = l.Close()
		return nil, services.Wrap(services.ErrConfiguration, "ledger", "schema", fmt.Sprintf("cannot prepare schema v%d", ledger.CurrentVersion), err)
	}
	return l, nil
}
