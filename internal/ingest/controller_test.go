package ingest_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"clipper/internal/config"
	"clipper/internal/ingest"
	"clipper/internal/ledger"
	"clipper/internal/stage"
	"clipper/internal/testsupport"
)

// fakeFetcher writes each locator's bytes to a fresh file under dir.
type fakeFetcher struct {
	dir     string
	content map[string]string
	fail    map[string]bool
	delay   time.Duration
	calls   atomic.Int32
	seq     atomic.Int64
}

func (f *fakeFetcher) Fetch(_ context.Context, locator string) (ingest.Fetched, error) {
	f.calls.Add(1)
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	name := fmt.Sprintf("%s-%d.mp4", strings.NewReplacer("/", "_", ":", "_").Replace(locator), f.seq.Add(1))
	path := filepath.Join(f.dir, name)
	if f.fail[locator] {
		_ = os.WriteFile(path, []byte("partial"), 0o644)
		return ingest.Fetched{Path: path}, errors.New("unreachable source")
	}
	body, ok := f.content[locator]
	if !ok {
		body = "content for " + locator
	}
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		return ingest.Fetched{}, err
	}
	return ingest.Fetched{Path: path, ItemID: "id-" + locator}, nil
}

func setup(t *testing.T) (*config.Config, *ledger.Ledger, *ledger.Session, *fakeFetcher) {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	l := testsupport.MustOpenLedger(t, cfg)
	session := testsupport.MustSession(t, l)
	fetcher := &fakeFetcher{dir: cfg.Paths.MediaDir, content: map[string]string{}, fail: map[string]bool{}}
	return cfg, l, session, fetcher
}

func TestIngestRerunIssuesNoFetches(t *testing.T) {
	_, l, session, fetcher := setup(t)
	controller := ingest.NewController(l, fetcher, nil)
	ctx := context.Background()

	first, err := controller.Ingest(ctx, []string{"A"}, 2)
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if first.Ingested != 1 || first.RunID == "" {
		t.Fatalf("unexpected first report: %+v", first)
	}

	second, err := controller.Ingest(ctx, []string{"A"}, 2)
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if second.Skipped != 1 || second.Ingested != 0 {
		t.Fatalf("expected locator to be skipped, got %+v", second)
	}
	if got := fetcher.calls.Load(); got != 1 {
		t.Fatalf("expected a single fetch across both runs, got %d", got)
	}

	counts, err := session.Counts(ctx)
	if err != nil {
		t.Fatalf("Counts: %v", err)
	}
	if counts.ContentObjects != 1 || counts.SourceRefs != 1 {
		t.Fatalf("unexpected counts: %+v", counts)
	}
}

func TestIngestDeduplicatesIdenticalContentAcrossLocators(t *testing.T) {
	cfg, l, session, fetcher := setup(t)
	fetcher.content["A"] = "same bytes"
	fetcher.content["B"] = "same bytes"
	controller := ingest.NewController(l, fetcher, nil)
	ctx := context.Background()

	report, err := controller.Ingest(ctx, []string{"A", "B"}, 2)
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if report.Ingested != 1 || report.Deduplicated != 1 || report.Failed != 0 {
		t.Fatalf("unexpected report: %+v", report)
	}

	counts, _ := session.Counts(ctx)
	if counts.ContentObjects != 1 || counts.SourceRefs != 2 {
		t.Fatalf("unexpected counts: %+v", counts)
	}
	refA, err := session.SourceRef(ctx, "A")
	if err != nil {
		t.Fatalf("SourceRef(A): %v", err)
	}
	refB, err := session.SourceRef(ctx, "B")
	if err != nil {
		t.Fatalf("SourceRef(B): %v", err)
	}
	if refA.Fingerprint != refB.Fingerprint {
		t.Fatalf("locators bound to different content: %s vs %s", refA.Fingerprint, refB.Fingerprint)
	}

	files := testsupport.ListFiles(t, cfg.Paths.MediaDir)
	if len(files) != 1 {
		t.Fatalf("expected exactly one surviving media file, got %v", files)
	}
	winner, err := session.ContentByFingerprint(ctx, refA.Fingerprint)
	if err != nil {
		t.Fatalf("ContentByFingerprint: %v", err)
	}
	if files[0] != winner.Location {
		t.Fatalf("surviving file %s is not the winner's location %s", files[0], winner.Location)
	}
}

func TestConcurrentIngestOfSameLocatorLeavesNoOrphans(t *testing.T) {
	cfg, l, session, fetcher := setup(t)
	fetcher.delay = 5 * time.Millisecond
	ctx := context.Background()

	const runs = 6
	var wg sync.WaitGroup
	errs := make(chan error, runs)
	for i := 0; i < runs; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			report, err := ingest.NewController(l, fetcher, nil).Ingest(ctx, []string{"https://example.com/v"}, 1)
			if err != nil {
				errs <- err
				return
			}
			if report.Failed != 0 {
				errs <- fmt.Errorf("unexpected failures: %+v", report.Failures)
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatal(err)
	}

	counts, _ := session.Counts(ctx)
	if counts.ContentObjects != 1 || counts.SourceRefs != 1 || counts.OrphanContent != 0 {
		t.Fatalf("unexpected counts: %+v", counts)
	}
	if files := testsupport.ListFiles(t, cfg.Paths.MediaDir); len(files) != 1 {
		t.Fatalf("expected one media file, got %v", files)
	}
}

func TestFetchFailureIsIsolatedAndCleanedUp(t *testing.T) {
	cfg, l, session, fetcher := setup(t)
	fetcher.fail["bad"] = true
	controller := ingest.NewController(l, fetcher, nil)
	ctx := context.Background()

	report, err := controller.Ingest(ctx, []string{"good", "bad", "also-good"}, 3)
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if report.Ingested != 2 || report.Failed != 1 {
		t.Fatalf("unexpected report: %+v", report)
	}
	if len(report.Failures) != 1 || report.Failures[0].Locator != "bad" {
		t.Fatalf("unexpected failures: %+v", report.Failures)
	}
	bound, _ := session.IsBound(ctx, "bad")
	if bound {
		t.Fatal("failed locator must not be bound")
	}
	if files := testsupport.ListFiles(t, cfg.Paths.MediaDir); len(files) != 2 {
		t.Fatalf("expected partial download to be removed, got %v", files)
	}

	fetcher.fail["bad"] = false
	retry, err := controller.Ingest(ctx, []string{"good", "bad", "also-good"}, 3)
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if retry.Ingested != 1 || retry.Skipped != 2 {
		t.Fatalf("expected only the failed locator to be retried, got %+v", retry)
	}
}

func TestPanickingFetcherBecomesFailure(t *testing.T) {
	_, l, _, _ := setup(t)
	fetcher := ingest.FetcherFunc(func(context.Context, string) (ingest.Fetched, error) {
		panic("fetch tool crashed")
	})
	report, err := ingest.NewController(l, fetcher, nil).Ingest(context.Background(), []string{"x"}, 1)
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if report.Failed != 1 {
		t.Fatalf("expected a failure, got %+v", report)
	}
}

func TestIngestNormalizesLocatorList(t *testing.T) {
	_, l, _, fetcher := setup(t)
	report, err := ingest.NewController(l, fetcher, nil).Ingest(context.Background(), []string{" A ", "", "# note", "A", "B"}, 2)
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if report.Requested != 2 || report.Ingested != 2 {
		t.Fatalf("unexpected report: %+v", report)
	}
	if got := fetcher.calls.Load(); got != 2 {
		t.Fatalf("expected 2 fetches, got %d", got)
	}
}

type outcomeTally struct {
	mu     sync.Mutex
	counts map[stage.Outcome]int
}

func (o *outcomeTally) ObserveKey(_ string, outcome stage.Outcome, _ time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.counts[outcome]++
}

func TestIngestReportsPreCheckedLocatorsToObserver(t *testing.T) {
	_, l, _, fetcher := setup(t)
	ctx := context.Background()

	if _, err := ingest.NewController(l, fetcher, nil).Ingest(ctx, []string{"A", "B"}, 2); err != nil {
		t.Fatalf("Ingest: %v", err)
	}

	tally := &outcomeTally{counts: map[stage.Outcome]int{}}
	report, err := ingest.NewController(l, fetcher, nil, ingest.WithObserver(tally)).Ingest(ctx, []string{"A", "B", "C"}, 2)
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if report.Skipped != 2 || report.Ingested != 1 {
		t.Fatalf("unexpected report: %+v", report)
	}
	if tally.counts[stage.OutcomeSkipped] != 2 || tally.counts[stage.OutcomeCommitted] != 1 {
		t.Fatalf("unexpected observed outcomes: %v", tally.counts)
	}
}
