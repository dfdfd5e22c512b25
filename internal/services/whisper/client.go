package whisper

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"

	"clipper/internal/services"
)

// Config captures runtime settings for whisper.cpp.
type Config struct {
	Binary    string
	ModelPath string
	Language  string
	OutputDir string
}

// CommandRunner executes a command and returns its combined output.
type CommandRunner func(ctx context.Context, name string, args ...string) ([]byte, error)

// Client runs whisper.cpp transcriptions.
type Client struct {
	cfg    Config
	runner CommandRunner
}

// Segment is one timed span from a transcript.
type Segment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

// New constructs a whisper client.
func New(cfg Config) *Client {
	return &Client{cfg: cfg}
}

// WithCommandRunner sets a custom command runner (for testing).
func (c *Client) WithCommandRunner(runner CommandRunner) {
	c.runner = runner
}

// Binary returns the configured whisper executable.
func (c *Client) Binary() string {
	return c.cfg.Binary
}

var unsafeNameChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// TranscriptPath returns where the JSON transcript for itemID is written.
func (c *Client) TranscriptPath(itemID string) string {
	return filepath.Join(c.cfg.OutputDir, transcriptBase(itemID)+".json")
}

func transcriptBase(itemID string) string {
	name := unsafeNameChars.ReplaceAllString(strings.TrimSpace(itemID), "_")
	if name == "" || name == "." || name == ".." {
		name = "item"
	}
	return name
}

// Transcribe runs whisper.cpp over mediaPath and returns the parsed segments.
func (c *Client) Transcribe(ctx context.Context, itemID, mediaPath string) ([]Segment, error) {
	if mediaPath == "" {
		return nil, services.Wrap(services.ErrValidation, "transcription", "whisper", "media path required", nil)
	}
	if c.cfg.OutputDir == "" {
		return nil, services.Wrap(services.ErrConfiguration, "transcription", "whisper", "transcript directory not configured", nil)
	}
	if err := os.MkdirAll(c.cfg.OutputDir, 0o755); err != nil {
		return nil, fmt.Errorf("whisper: ensure output dir: %w", err)
	}

	base := filepath.Join(c.cfg.OutputDir, transcriptBase(itemID))
	jsonPath := base + ".json"
	_ = os.Remove(jsonPath)

	output, err := c.run(ctx, c.cfg.Binary, c.buildArgs(mediaPath, base)...)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, services.Wrap(services.ErrExternalTool, "transcription", "whisper",
			fmt.Sprintf("%s failed: %s", c.cfg.Binary, lastLine(output)), err)
	}

	segments, err := LoadSegments(jsonPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, services.Wrap(services.ErrExternalTool, "transcription", "whisper",
				fmt.Sprintf("transcript output missing: %s", lastLine(output)), err)
		}
		return nil, services.Wrap(services.ErrValidation, "transcription", "whisper", "unreadable transcript", err)
	}
	return segments, nil
}

func (c *Client) buildArgs(mediaPath, outputBase string) []string {
	args := []string{mediaPath}
	if c.cfg.ModelPath != "" {
		args = append(args, "--model", c.cfg.ModelPath)
	}
	if c.cfg.Language != "" {
		args = append(args, "--language", c.cfg.Language)
	}
	return append(args, "-oj", "--output-file", outputBase)
}

func (c *Client) run(ctx context.Context, name string, args ...string) ([]byte, error) {
	if c.runner != nil {
		return c.runner(ctx, name, args...)
	}
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec
	return cmd.CombinedOutput()
}

func lastLine(output []byte) string {
	trimmed := strings.TrimSpace(string(output))
	if idx := strings.LastIndex(trimmed, "\n"); idx >= 0 {
		trimmed = trimmed[idx+1:]
	}
	if trimmed == "" {
		return "no output"
	}
	return trimmed
}

type transcriptPayload struct {
	Segments      []Segment `json:"segments"`
	Transcription []struct {
		Offsets struct {
			From int64 `json:"from"`
			To   int64 `json:"to"`
		} `json:"offsets"`
		Text string `json:"text"`
	} `json:"transcription"`
}

// LoadSegments parses a transcript JSON file. Text is trimmed and empty
// spans are dropped.
func LoadSegments(jsonPath string) ([]Segment, error) {
	data, err := os.ReadFile(jsonPath)
	if err != nil {
		return nil, err
	}
	var payload transcriptPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("parse transcript json: %w", err)
	}

	raw := payload.Segments
	if len(raw) == 0 {
		for _, entry := range payload.Transcription {
			raw = append(raw, Segment{
				Start: float64(entry.Offsets.From) / 1000,
				End:   float64(entry.Offsets.To) / 1000,
				Text:  entry.Text,
			})
		}
	}

	segments := make([]Segment, 0, len(raw))
	for _, seg := range raw {
		text := strings.TrimSpace(seg.Text)
		if text == "" {
			continue
		}
		seg.Text = text
		segments = append(segments, seg)
	}
	return segments, nil
}
