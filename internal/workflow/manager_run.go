package workflow

import (
	"context"
	"errors"
	"time"

	"clipper/internal/embedding"
	"clipper/internal/ingest"
	"clipper/internal/logging"
	"clipper/internal/scoring"
	"clipper/internal/stage"
	"clipper/internal/transcription"
)

// PipelineReport collects the reports of one full pipeline run.
type PipelineReport struct {
	Ingest ingest.Report
	Stages []stage.Report
}

// Failed counts per-key failures across every stage of the run.
func (r PipelineReport) Failed() int {
	total := r.Ingest.Failed
	for _, s := range r.Stages {
		total += s.Failed
	}
	return total
}

func pick(override, configured int) int {
	if override > 0 {
		return override
	}
	return configured
}

func (m *Manager) stageOptions(timeoutSeconds int) stage.Options {
	return stage.Options{
		CallTimeout: seconds(timeoutSeconds),
		Logger:      m.logger,
		Observer:    m.recorder,
	}
}

// Ingest fetches and records every locator not yet bound. workers <= 0
// uses the configured pool size.
func (m *Manager) Ingest(ctx context.Context, locators []string, workers int) (ingest.Report, error) {
	logger := logging.NewComponentLogger(m.logger, ingestStage)
	if err := m.runPreflightChecks(logger, ingestStage); err != nil {
		return ingest.Report{}, err
	}
	controller := ingest.NewController(m.ledger, m.fetcher, m.logger, ingest.WithObserver(m.recorder))
	report, err := controller.Ingest(ctx, locators, pick(workers, m.cfg.Ingest.Workers))
	m.recorder.ObserveRun(ingestStage, time.Now())
	return report, err
}

// Transcribe runs the transcription stage.
func (m *Manager) Transcribe(ctx context.Context, workers int) (stage.Report, error) {
	logger := logging.NewComponentLogger(m.logger, transcription.StageName)
	if err := m.runPreflightChecks(logger, transcription.StageName); err != nil {
		return stage.Report{}, err
	}
	controller := transcription.NewController(m.ledger, m.transcriber, m.stageOptions(m.cfg.Transcription.TimeoutSeconds))
	report, err := controller.Run(ctx, pick(workers, m.cfg.Transcription.Workers))
	m.recorder.ObserveRun(transcription.StageName, time.Now())
	return report, err
}

// Embed runs the embedding stage with the configured model.
func (m *Manager) Embed(ctx context.Context, workers int) (stage.Report, error) {
	provider, err := m.pool.Get(m.cfg.Embedding.Model)
	if err != nil {
		return stage.Report{}, err
	}
	controller := embedding.NewController(m.ledger, provider, m.stageOptions(m.cfg.Embedding.TimeoutSeconds))
	report, err := controller.Run(ctx, pick(workers, m.cfg.Embedding.Workers))
	m.recorder.ObserveRun(embedding.StageName, time.Now())
	return report, err
}

// DetectOptions overrides scoring configuration for one run.
type DetectOptions struct {
	Workers   int
	Threshold *float64
}

// Detect runs pairwise contradiction scoring.
func (m *Manager) Detect(ctx context.Context, opts DetectOptions) (stage.Report, error) {
	threshold := m.cfg.Scoring.Threshold
	if opts.Threshold != nil {
		threshold = *opts.Threshold
	}
	controller := scoring.NewController(m.ledger, m.scorer, scoring.Options{
		Threshold:     threshold,
		CrossItemOnly: m.cfg.Scoring.CrossItemOnly,
		Stage:         m.stageOptions(m.cfg.Scoring.TimeoutSeconds),
	})
	report, err := controller.Run(ctx, pick(opts.Workers, m.cfg.Scoring.Workers))
	m.recorder.ObserveRun(scoring.StageName, time.Now())
	return report, err
}

// RunPipeline chains ingest, transcription, embedding, and scoring. It
// stops at the first setup error or cancellation and returns the reports
// gathered so far.
func (m *Manager) RunPipeline(ctx context.Context, locators []string) (PipelineReport, error) {
	var result PipelineReport

	ingestReport, err := m.Ingest(ctx, locators, 0)
	result.Ingest = ingestReport
	if err != nil {
		return result, err
	}

	steps := []func(context.Context) (stage.Report, error){
		func(ctx context.Context) (stage.Report, error) { return m.Transcribe(ctx, 0) },
		func(ctx context.Context) (stage.Report, error) { return m.Embed(ctx, 0) },
		func(ctx context.Context) (stage.Report, error) { return m.Detect(ctx, DetectOptions{}) },
	}
	for _, step := range steps {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		report, err := step(ctx)
		if report.Stage != "" {
			result.Stages = append(result.Stages, report)
		}
		if err != nil {
			if errors.Is(err, context.Canceled) {
				m.logger.Info("pipeline interrupted", logging.String(logging.FieldEventType, "pipeline_cancelled"))
			}
			return result, err
		}
	}
	return result, nil
}
