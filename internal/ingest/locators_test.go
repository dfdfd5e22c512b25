package ingest_test

import (
	"path/filepath"
	"reflect"
	"testing"

	"clipper/internal/ingest"
	"clipper/internal/services"
	"clipper/internal/testsupport"
)

func TestReadLocators(t *testing.T) {
	path := filepath.Join(t.TempDir(), "urls.txt")
	testsupport.WriteContent(t, path, []byte("https://a\n\n  # comment\nhttps://b  \nhttps://a\n"))

	got, err := ingest.ReadLocators(path)
	if err != nil {
		t.Fatalf("ReadLocators: %v", err)
	}
	want := []string{"https://a", "https://b"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("ReadLocators = %v, want %v", got, want)
	}
}

func TestReadLocatorsMissingFileIsSetupError(t *testing.T) {
	_, err := ingest.ReadLocators(filepath.Join(t.TempDir(), "missing.txt"))
	if err == nil {
		t.Fatal("expected error")
	}
	if !services.IsSetupError(err) {
		t.Fatalf("expected setup error, got %v", err)
	}
}
