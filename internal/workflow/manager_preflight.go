package workflow

import (
	"log/slog"

	"clipper/internal/config"
	"clipper/internal/deps"
	"clipper/internal/logging"
	"clipper/internal/preflight"
	"clipper/internal/services"
	"clipper/internal/transcription"
)

// stageChecks returns the local checks a stage's default collaborator
// needs before any key is attempted.
func stageChecks(cfg *config.Config, stageName string) []preflight.Result {
	var results []preflight.Result
	var req deps.Requirement
	switch stageName {
	case ingestStage:
		results = append(results, preflight.CheckDirectoryAccess("Media directory", cfg.Paths.MediaDir))
		if cfg.Ingest.MinFreeGiB > 0 {
			results = append(results, preflight.CheckFreeSpace("Media free space", cfg.Paths.MediaDir, cfg.Ingest.MinFreeGiB))
		}
		req = deps.Requirement{Name: "yt-dlp", Command: cfg.Ingest.FetchCommand}
	case transcription.StageName:
		results = append(results, preflight.CheckDirectoryAccess("Transcript directory", cfg.Paths.TranscriptDir))
		results = append(results, preflight.CheckModelFile("Whisper model", cfg.Transcription.ModelPath))
		req = deps.Requirement{Name: "whisper.cpp", Command: cfg.Transcription.WhisperBinary}
	default:
		return nil
	}
	binary := deps.CheckBinaries([]deps.Requirement{req})[0]
	detail := binary.Command
	if !binary.Available {
		detail = binary.Detail
	}
	return append(results, preflight.Result{Name: binary.Name, Passed: binary.Available, Detail: detail})
}

// runPreflightChecks validates local readiness before a stage batch.
// Returns nil when all checks pass, or a configuration error describing
// all failures.
func (m *Manager) runPreflightChecks(logger *slog.Logger, stageName string) error {
	if !m.preflight[stageName] {
		return nil
	}
	results := stageChecks(m.cfg, stageName)
	for _, r := range results {
		if r.Passed {
			logger.Debug("preflight check passed",
				logging.String("check", r.Name),
				logging.String("detail", r.Detail),
				logging.String(logging.FieldEventType, "preflight_passed"),
			)
			continue
		}
		logger.Error("preflight check failed",
			logging.String("check", r.Name),
			logging.String("detail", r.Detail),
			logging.String(logging.FieldEventType, "preflight_failed"),
			logging.String(logging.FieldErrorHint, "fix the reported issue and rerun the command"),
		)
	}
	if failed := preflight.Failed(results); len(failed) > 0 {
		return services.Wrap(services.ErrConfiguration, stageName, "preflight", "preflight checks failed: "+preflight.Summary(results), nil)
	}
	return nil
}
