package preflight

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"golang.org/x/sys/unix"

	"clipper/internal/config"
	"clipper/internal/deps"
)

const gib = 1024 * 1024 * 1024

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckFreeSpace verifies that the filesystem holding path has at least
// minGiB available to unprivileged users.
func CheckFreeSpace(name, path string, minGiB int) Result {
	var stat unix.Statfs_t
	if err := unix.Statfs(path, &stat); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: statfs: %v)", path, err)}
	}
	free := stat.Bavail * uint64(stat.Bsize)
	freeGiB := float64(free) / gib
	if minGiB > 0 && free < uint64(minGiB)*gib {
		return Result{Name: name, Detail: fmt.Sprintf("%.1f GiB free, need %d GiB", freeGiB, minGiB)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%.1f GiB free", freeGiB)}
}

// CheckSystemDeps evaluates the external binaries for the given config.
// Both the workflow manager and the CLI status command use this to avoid
// duplicating the requirements list.
func CheckSystemDeps(_ context.Context, cfg *config.Config) []deps.Status {
	requirements := []deps.Requirement{
		{
			Name:        "yt-dlp",
			Command:     cfg.Ingest.FetchCommand,
			Description: "Required for fetching source media",
		},
		{
			Name:        "whisper.cpp",
			Command:     cfg.Transcription.WhisperBinary,
			Description: "Required for transcription",
		},
		{
			Name:        "FFmpeg",
			Command:     "ffmpeg",
			Description: "Used by yt-dlp to merge separate audio and video streams",
			Optional:    true,
		},
	}
	return deps.CheckBinaries(requirements)
}

// CheckModelFile verifies that the whisper model file is present.
func CheckModelFile(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: %v)", path, err)}
	}
	if info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is a directory)", path)}
	}
	return Result{Name: name, Passed: true, Detail: path}
}

// CheckEndpoint verifies an HTTP collaborator answers at baseURL. Any
// response other than an auth rejection or a server error counts as
// reachable, since the probed path is not a real API route.
func CheckEndpoint(ctx context.Context, name, baseURL, apiKey string) Result {
	base := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if base == "" {
		return Result{Name: name, Detail: "missing url"}
	}

	checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	req := resty.New().SetTimeout(5 * time.Second).R().SetContext(checkCtx)
	if strings.TrimSpace(apiKey) != "" {
		req.SetAuthToken(strings.TrimSpace(apiKey))
	}
	resp, err := req.Get(base)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("unreachable (%v)", err)}
	}

	switch code := resp.StatusCode(); {
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return Result{Name: name, Detail: "auth failed (invalid api key)"}
	case code >= 500:
		return Result{Name: name, Detail: fmt.Sprintf("server error (%d)", code)}
	default:
		return Result{Name: name, Passed: true, Detail: "Reachable"}
	}
}

// CheckEndpoints probes the configured HTTP collaborators. The lexical
// scorer runs in-process and is reported without a probe.
func CheckEndpoints(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}
	results := []Result{
		CheckModelFile("Whisper model", cfg.Transcription.ModelPath),
		CheckEndpoint(ctx, "Embedding API", cfg.Embedding.BaseURL, cfg.Embedding.APIKey),
	}
	if cfg.Scoring.Provider == "lexical" {
		results = append(results, Result{Name: "Scoring API", Passed: true, Detail: "lexical (in-process)"})
	} else {
		results = append(results, CheckEndpoint(ctx, "Scoring API", cfg.Scoring.BaseURL, cfg.Scoring.APIKey))
	}
	return results
}
