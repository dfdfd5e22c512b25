package workflow

import (
	"time"

	"clipper/internal/config"
	"clipper/internal/embedding"
	"clipper/internal/ingest"
	"clipper/internal/scoring"
	"clipper/internal/services/embedapi"
	"clipper/internal/services/nli"
	"clipper/internal/services/whisper"
	"clipper/internal/services/ytdlp"
	"clipper/internal/transcription"
)

const ingestStage = "ingest"

func seconds(n int) time.Duration {
	if n <= 0 {
		return 0
	}
	return time.Duration(n) * time.Second
}

func newFetcher(cfg *config.Config) ingest.Fetcher {
	return ingest.FromYTDLP(ytdlp.New(ytdlp.Config{
		Binary:    cfg.Ingest.FetchCommand,
		Format:    cfg.Ingest.FetchFormat,
		OutputDir: cfg.Paths.MediaDir,
		Timeout:   seconds(cfg.Ingest.FetchTimeoutSeconds),
	}))
}

func newTranscriber(cfg *config.Config) transcription.Transcriber {
	return transcription.FromWhisper(whisper.New(whisper.Config{
		Binary:    cfg.Transcription.WhisperBinary,
		ModelPath: cfg.Transcription.ModelPath,
		Language:  cfg.Transcription.Language,
		OutputDir: cfg.Paths.TranscriptDir,
	}))
}

func newEmbeddingFactory(cfg *config.Config) embedding.Factory {
	emb := cfg.Embedding
	return func(model string) (embedding.Provider, error) {
		return embedapi.New(embedapi.Config{
			BaseURL:    emb.BaseURL,
			APIKey:     emb.APIKey,
			Model:      model,
			Dimensions: emb.Dimensions,
			Timeout:    seconds(emb.TimeoutSeconds),
		}), nil
	}
}

func newScorer(cfg *config.Config) scoring.Scorer {
	if cfg.Scoring.Provider == "lexical" {
		return scoring.NewLexicalScorer(0)
	}
	return nli.New(nli.Config{
		BaseURL: cfg.Scoring.BaseURL,
		APIKey:  cfg.Scoring.APIKey,
		Model:   cfg.Scoring.Model,
		Timeout: seconds(cfg.Scoring.TimeoutSeconds),
	})
}
