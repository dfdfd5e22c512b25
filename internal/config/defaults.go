package config

const (
	defaultConfigPath               = "~/.config/clipper/config.toml"
	defaultDataDir                  = "~/.local/share/clipper"
	defaultMediaDirName             = "media"
	defaultTranscriptDirName        = "transcripts"
	defaultLogDirName               = "logs"
	defaultLedgerName               = "ledger.db"
	defaultWorkers                  = 4
	defaultFetchCommand             = "yt-dlp"
	defaultFetchFormat              = "best"
	defaultFetchTimeoutSeconds      = 1800
	defaultMinFreeGiB               = 5
	defaultWhisperBinary            = "whisper-cli"
	defaultWhisperModelPath         = "~/.local/share/clipper/models/ggml-base.en.bin"
	defaultTranscribeTimeoutSeconds = 3600
	defaultEmbeddingProvider        = "http"
	defaultEmbeddingBaseURL         = "http://127.0.0.1:8080/v1"
	defaultEmbeddingModel           = "all-MiniLM-L6-v2"
	defaultEmbeddingDimensions      = 384
	defaultProviderTimeoutSeconds   = 60
	defaultScoringProvider          = "http"
	defaultScoringBaseURL           = "http://127.0.0.1:8081"
	defaultScoringModel             = "roberta-large-mnli"
	defaultScoringThreshold         = 0.0
	defaultLogFormat                = "console"
	defaultLogLevel                 = "info"
)

// Default returns a Config populated with repository defaults. Path fields
// under data_dir are left empty and derived during normalization.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
		},
		Ingest: Ingest{
			Workers:             defaultWorkers,
			FetchCommand:        defaultFetchCommand,
			FetchFormat:         defaultFetchFormat,
			FetchTimeoutSeconds: defaultFetchTimeoutSeconds,
			MinFreeGiB:          defaultMinFreeGiB,
		},
		Transcription: Transcription{
			Workers:        defaultWorkers,
			WhisperBinary:  defaultWhisperBinary,
			ModelPath:      defaultWhisperModelPath,
			Language:       "en",
			TimeoutSeconds: defaultTranscribeTimeoutSeconds,
		},
		Embedding: Embedding{
			Provider:       defaultEmbeddingProvider,
			BaseURL:        defaultEmbeddingBaseURL,
			Model:          defaultEmbeddingModel,
			Dimensions:     defaultEmbeddingDimensions,
			Workers:        1,
			TimeoutSeconds: defaultProviderTimeoutSeconds,
		},
		Scoring: Scoring{
			Provider:       defaultScoringProvider,
			BaseURL:        defaultScoringBaseURL,
			Model:          defaultScoringModel,
			Threshold:      defaultScoringThreshold,
			Workers:        1,
			TimeoutSeconds: defaultProviderTimeoutSeconds,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
