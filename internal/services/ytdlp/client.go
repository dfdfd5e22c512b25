package ytdlp

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"clipper/internal/services"
)

// CommandRunner executes a command and returns stdout and combined stderr.
type CommandRunner func(ctx context.Context, name string, args ...string) (stdout []byte, stderr []byte, err error)

// Config captures yt-dlp runtime settings.
type Config struct {
	Binary    string
	Format    string
	OutputDir string
	Timeout   time.Duration
}

// Client downloads media with yt-dlp.
type Client struct {
	cfg    Config
	runner CommandRunner
}

// Download is a completed media download.
type Download struct {
	Path    string
	VideoID string
}

// New constructs a yt-dlp client.
func New(cfg Config) *Client {
	if cfg.Binary == "" {
		cfg.Binary = "yt-dlp"
	}
	if cfg.Format == "" {
		cfg.Format = "best"
	}
	return &Client{cfg: cfg}
}

// WithCommandRunner sets a custom command runner (for testing).
func (c *Client) WithCommandRunner(runner CommandRunner) {
	c.runner = runner
}

// Binary returns the configured yt-dlp executable.
func (c *Client) Binary() string {
	return c.cfg.Binary
}

var unsafeIDChars = regexp.MustCompile(`[^A-Za-z0-9_-]+`)

// Download fetches locator into the output directory.
func (c *Client) Download(ctx context.Context, locator string) (Download, error) {
	if strings.TrimSpace(locator) == "" {
		return Download{}, services.Wrap(services.ErrValidation, "ingest", "yt-dlp", "empty locator", nil)
	}
	if c.cfg.OutputDir == "" {
		return Download{}, services.Wrap(services.ErrConfiguration, "ingest", "yt-dlp", "media directory not configured", nil)
	}
	if c.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.Timeout)
		defer cancel()
	}
	if err := os.MkdirAll(c.cfg.OutputDir, 0o755); err != nil {
		return Download{}, fmt.Errorf("yt-dlp: ensure output dir: %w", err)
	}

	stdout, stderr, err := c.run(ctx, c.cfg.Binary, "--get-id", "--no-playlist", locator)
	if err != nil {
		return Download{}, c.toolError(ctx, "resolve video id", stderr, err)
	}
	videoID := firstLine(stdout)
	if videoID == "" {
		return Download{}, services.Wrap(services.ErrExternalTool, "ingest", "yt-dlp", "no video id returned for "+locator, nil)
	}

	prefix := fmt.Sprintf("%s.%s", unsafeIDChars.ReplaceAllString(videoID, "_"), uuid.NewString()[:8])
	template := filepath.Join(c.cfg.OutputDir, prefix+".%(ext)s")
	_, stderr, err = c.run(ctx, c.cfg.Binary, "-f", c.cfg.Format, "--no-playlist", "--no-part", "-o", template, locator)
	if err != nil {
		c.removeMatches(prefix)
		return Download{}, c.toolError(ctx, "download", stderr, err)
	}

	path, err := c.locate(prefix)
	if err != nil {
		c.removeMatches(prefix)
		return Download{}, err
	}
	return Download{Path: path, VideoID: videoID}, nil
}

func (c *Client) locate(prefix string) (string, error) {
	matches, err := filepath.Glob(filepath.Join(c.cfg.OutputDir, prefix+".*"))
	if err != nil {
		return "", fmt.Errorf("yt-dlp: locate download: %w", err)
	}
	for _, match := range matches {
		if strings.HasSuffix(match, ".part") || strings.HasSuffix(match, ".ytdl") {
			continue
		}
		if info, err := os.Stat(match); err == nil && info.Mode().IsRegular() {
			return match, nil
		}
	}
	return "", services.Wrap(services.ErrExternalTool, "ingest", "yt-dlp", "unable to locate downloaded file", nil)
}

func (c *Client) removeMatches(prefix string) {
	matches, _ := filepath.Glob(filepath.Join(c.cfg.OutputDir, prefix+".*"))
	for _, match := range matches {
		_ = os.Remove(match)
	}
}

func (c *Client) toolError(ctx context.Context, operation string, stderr []byte, err error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return services.Wrap(services.ErrTimeout, "ingest", "yt-dlp", operation+" timed out", err)
	}
	msg := firstLine(stderr)
	if msg == "" {
		msg = operation + " failed"
	}
	return services.Wrap(services.ErrExternalTool, "ingest", "yt-dlp", msg, err)
}

func (c *Client) run(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
	if c.runner != nil {
		return c.runner(ctx, name, args...)
	}
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec
	var stderr strings.Builder
	cmd.Stderr = &stderr
	stdout, err := cmd.Output()
	return stdout, []byte(stderr.String()), err
}

func firstLine(b []byte) string {
	text := strings.TrimSpace(string(b))
	if idx := strings.IndexByte(text, '\n'); idx >= 0 {
		text = strings.TrimSpace(text[:idx])
	}
	return text
}
