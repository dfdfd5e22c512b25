package services_test

import (
	"errors"
	"strings"
	"testing"

	"clipper/internal/services"
)

func TestWrapIncludesContext(t *testing.T) {
	base := errors.New("boom")
	err := services.Wrap(services.ErrExternalTool, "transcription", "whisper", "failed", base)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected marker to be retained, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped error to contain base error, got %v", err)
	}
	msg := err.Error()
	for _, fragment := range []string{"transcription", "whisper", "failed"} {
		if !strings.Contains(msg, fragment) {
			t.Fatalf("expected %q in error string %q", fragment, msg)
		}
	}
}

func TestWrapDefaultsToTransient(t *testing.T) {
	err := services.Wrap(nil, "", "", "", nil)
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected transient marker, got %v", err)
	}
	if !strings.Contains(err.Error(), "service failure") {
		t.Fatalf("expected fallback detail, got %q", err.Error())
	}
}

func TestKindMapping(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{nil, ""},
		{services.Wrap(services.ErrTimeout, "fetch", "yt-dlp", "hung", nil), "timeout"},
		{services.Wrap(services.ErrExternalTool, "fetch", "yt-dlp", "exit 1", nil), "external_tool"},
		{services.Wrap(services.ErrValidation, "embedding", "dims", "mismatch", nil), "validation"},
		{services.Wrap(services.ErrConfiguration, "config", "", "bad", nil), "configuration"},
		{errors.New("io"), "transient"},
	}
	for _, tc := range cases {
		if got := services.Kind(tc.err); got != tc.want {
			t.Fatalf("Kind(%v) = %q, want %q", tc.err, got, tc.want)
		}
	}
}

func TestIsSetupError(t *testing.T) {
	if !services.IsSetupError(services.Wrap(services.ErrNotFound, "ingest", "read list", "missing", nil)) {
		t.Fatal("expected not-found to be a setup error")
	}
	if services.IsSetupError(services.Wrap(services.ErrExternalTool, "ingest", "fetch", "failed", nil)) {
		t.Fatal("expected external tool failure to be per-item")
	}
}
