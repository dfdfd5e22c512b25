package ytdlp_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"clipper/internal/services"
	"clipper/internal/services/ytdlp"
	"clipper/internal/testsupport"
)

// fakeYTDLP answers --get-id and writes the download to the -o template.
func fakeYTDLP(t *testing.T, id string, downloadErr error) ytdlp.CommandRunner {
	return func(_ context.Context, _ string, args ...string) ([]byte, []byte, error) {
		if slices.Contains(args, "--get-id") {
			return []byte(id + "\n"), nil, nil
		}
		idx := slices.Index(args, "-o")
		target := strings.Replace(args[idx+1], "%(ext)s", "mp4", 1)
		testsupport.WriteContent(t, target, []byte("video"))
		if downloadErr != nil {
			return nil, []byte("ERROR: network unreachable\n"), downloadErr
		}
		return nil, nil, nil
	}
}

func TestDownloadReturnsUniquePathAndID(t *testing.T) {
	dir := t.TempDir()
	client := ytdlp.New(ytdlp.Config{OutputDir: dir})
	client.WithCommandRunner(fakeYTDLP(t, "abc123", nil))

	first, err := client.Download(context.Background(), "https://example.com/watch?v=abc123")
	if err != nil {
		t.Fatalf("Download: %v", err)
	}
	second, err := client.Download(context.Background(), "https://example.com/watch?v=abc123")
	if err != nil {
		t.Fatalf("Download: %v", err)
	}
	if first.VideoID != "abc123" {
		t.Fatalf("unexpected id: %q", first.VideoID)
	}
	if first.Path == second.Path {
		t.Fatalf("expected distinct paths for concurrent-safe downloads, got %s twice", first.Path)
	}
	if filepath.Dir(first.Path) != dir || !strings.HasPrefix(filepath.Base(first.Path), "abc123.") {
		t.Fatalf("unexpected path: %s", first.Path)
	}
}

func TestDownloadFailureRemovesPartialFiles(t *testing.T) {
	dir := t.TempDir()
	client := ytdlp.New(ytdlp.Config{OutputDir: dir})
	client.WithCommandRunner(fakeYTDLP(t, "abc", errors.New("exit status 1")))

	_, err := client.Download(context.Background(), "https://example.com/x")
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected ErrExternalTool, got %v", err)
	}
	if !strings.Contains(err.Error(), "network unreachable") {
		t.Fatalf("expected stderr in error, got %v", err)
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 0 {
		t.Fatalf("expected partial download to be removed, found %d entries", len(entries))
	}
}

func TestDownloadRejectsEmptyLocator(t *testing.T) {
	client := ytdlp.New(ytdlp.Config{OutputDir: t.TempDir()})
	if _, err := client.Download(context.Background(), " "); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}
