package stage_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"clipper/internal/ledger"
	"clipper/internal/services"
	"clipper/internal/stage"
	"clipper/internal/testsupport"
)

type fixture struct {
	ledger   *ledger.Ledger
	session  *ledger.Session
	segments []ledger.Segment
}

func newFixture(t *testing.T, texts ...string) fixture {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	l := testsupport.MustOpenLedger(t, cfg)
	session := testsupport.MustSession(t, l)
	inputs := make([]ledger.SegmentInput, 0, len(texts))
	for i, text := range texts {
		inputs = append(inputs, ledger.SegmentInput{StartSec: float64(i), EndSec: float64(i) + 1, Text: text})
	}
	segs := testsupport.SeedSegments(t, session, "item", inputs)
	return fixture{ledger: l, session: session, segments: segs}
}

func (f fixture) keys() []int64 {
	keys := make([]int64, 0, len(f.segments))
	for _, seg := range f.segments {
		keys = append(keys, seg.ID)
	}
	return keys
}

func embedSpec(keys []int64, work func(context.Context, int64) ([]float32, error)) stage.Spec[int64, []float32] {
	return stage.Spec[int64, []float32]{
		Name: "embedding",
		Keys: keys,
		IsDone: func(ctx context.Context, s *ledger.Session, id int64) (bool, error) {
			return s.HasEmbedding(ctx, id)
		},
		Work: work,
		Commit: func(ctx context.Context, s *ledger.Session, id int64, v []float32) error {
			return s.InsertEmbedding(ctx, id, v)
		},
	}
}

func TestRunProcessesEachKeyOnceAcrossRuns(t *testing.T) {
	f := newFixture(t, "a", "b", "c")
	var calls atomic.Int32
	work := func(context.Context, int64) ([]float32, error) {
		calls.Add(1)
		return []float32{1, 2}, nil
	}

	first, err := stage.Run(context.Background(), f.ledger, stage.Options{Workers: 2}, embedSpec(f.keys(), work))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if first.Committed != 3 || first.Failed != 0 || first.RunID == "" {
		t.Fatalf("unexpected first report: %+v", first)
	}

	second, err := stage.Run(context.Background(), f.ledger, stage.Options{Workers: 2}, embedSpec(f.keys(), work))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if second.Skipped != 3 || second.Committed != 0 {
		t.Fatalf("expected all keys skipped, got %+v", second)
	}
	if second.RunID == first.RunID {
		t.Fatal("expected a fresh run id per run")
	}
	if got := calls.Load(); got != 3 {
		t.Fatalf("work called %d times, want 3", got)
	}
	counts, _ := f.session.Counts(context.Background())
	if counts.Embeddings != 3 {
		t.Fatalf("expected 3 embeddings, got %d", counts.Embeddings)
	}
}

func TestRunIsolatesFailuresAndRetriesThemLater(t *testing.T) {
	f := newFixture(t, "good", "bad", "ugly")
	badKey := f.segments[1].ID
	panicKey := f.segments[2].ID
	fail := true
	work := func(_ context.Context, id int64) ([]float32, error) {
		if fail && id == badKey {
			return nil, errors.New("provider unavailable")
		}
		if fail && id == panicKey {
			panic("boom")
		}
		return []float32{float32(id)}, nil
	}

	report, err := stage.Run(context.Background(), f.ledger, stage.Options{Workers: 1}, embedSpec(f.keys(), work))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.Committed != 1 || report.Failed != 2 || len(report.Failures) != 2 {
		t.Fatalf("unexpected report: %+v", report)
	}
	for _, failure := range report.Failures {
		if failure.Phase != "work" || failure.Err == nil {
			t.Fatalf("unexpected failure record: %+v", failure)
		}
	}

	fail = false
	retry, err := stage.Run(context.Background(), f.ledger, stage.Options{Workers: 1}, embedSpec(f.keys(), work))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if retry.Committed != 2 || retry.Skipped != 1 || retry.Failed != 0 {
		t.Fatalf("expected failed keys to be retried, got %+v", retry)
	}
}

func TestRunTreatsLostCommitRaceAsSuperseded(t *testing.T) {
	f := newFixture(t, "contested")
	key := f.segments[0].ID
	rival := testsupport.MustSession(t, f.ledger)
	work := func(ctx context.Context, id int64) ([]float32, error) {
		if err := rival.InsertEmbedding(ctx, id, []float32{7}); err != nil {
			return nil, err
		}
		return []float32{1}, nil
	}

	report, err := stage.Run(context.Background(), f.ledger, stage.Options{}, embedSpec([]int64{key}, work))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.Superseded != 1 || report.Done() != 1 || report.Failed != 0 {
		t.Fatalf("expected superseded outcome, got %+v", report)
	}
	emb, err := f.session.EmbeddingFor(context.Background(), key)
	if err != nil {
		t.Fatalf("EmbeddingFor: %v", err)
	}
	if emb.Vector[0] != 7 {
		t.Fatalf("winner's row was replaced: %+v", emb)
	}
}

func TestRunCountsNotStoredAsDiscarded(t *testing.T) {
	f := newFixture(t, "x", "y")
	spec := embedSpec(f.keys(), func(context.Context, int64) ([]float32, error) { return []float32{0}, nil })
	spec.Commit = func(context.Context, *ledger.Session, int64, []float32) error { return stage.ErrNotStored }

	report, err := stage.Run(context.Background(), f.ledger, stage.Options{Workers: 2}, spec)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.Discarded != 2 || report.Done() != 2 {
		t.Fatalf("unexpected report: %+v", report)
	}
}

func TestRunConvertsHungCallIntoTimeoutFailure(t *testing.T) {
	f := newFixture(t, "slow")
	release := make(chan struct{})
	t.Cleanup(func() { close(release) })
	work := func(context.Context, int64) ([]float32, error) {
		<-release
		return []float32{1}, nil
	}

	report, err := stage.Run(context.Background(), f.ledger, stage.Options{CallTimeout: 20 * time.Millisecond}, embedSpec(f.keys(), work))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.Failed != 1 {
		t.Fatalf("expected timeout failure, got %+v", report)
	}
	if !errors.Is(report.Failures[0].Err, services.ErrTimeout) {
		t.Fatalf("expected ErrTimeout, got %v", report.Failures[0].Err)
	}
}

func TestRunWithDuplicateKeysUnderContentionWritesOnce(t *testing.T) {
	f := newFixture(t, "shared")
	key := f.segments[0].ID
	keys := make([]int64, 16)
	for i := range keys {
		keys[i] = key
	}
	var calls atomic.Int32
	work := func(context.Context, int64) ([]float32, error) {
		calls.Add(1)
		time.Sleep(time.Millisecond)
		return []float32{1}, nil
	}

	report, err := stage.Run(context.Background(), f.ledger, stage.Options{Workers: 8}, embedSpec(keys, work))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.Committed != 1 {
		t.Fatalf("expected exactly one commit, got %+v", report)
	}
	if report.Done() != len(keys) || report.Failed != 0 {
		t.Fatalf("every duplicate should end done, got %+v", report)
	}
	counts, _ := f.session.Counts(context.Background())
	if counts.Embeddings != 1 {
		t.Fatalf("expected one embedding row, got %d", counts.Embeddings)
	}
}

type recordingObserver struct {
	mu       sync.Mutex
	outcomes map[stage.Outcome]int
}

func (r *recordingObserver) ObserveKey(_ string, outcome stage.Outcome, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.outcomes == nil {
		r.outcomes = map[stage.Outcome]int{}
	}
	r.outcomes[outcome]++
}

func TestRunNotifiesObserver(t *testing.T) {
	f := newFixture(t, "a", "b")
	observer := &recordingObserver{}
	work := func(context.Context, int64) ([]float32, error) { return []float32{1}, nil }

	if _, err := stage.Run(context.Background(), f.ledger, stage.Options{Observer: observer}, embedSpec(f.keys(), work)); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if observer.outcomes[stage.OutcomeCommitted] != 2 {
		t.Fatalf("unexpected observations: %+v", observer.outcomes)
	}
}

func TestRunStopsDispatchingWhenCancelled(t *testing.T) {
	f := newFixture(t, "a", "b", "c", "d")
	ctx, cancel := context.WithCancel(context.Background())
	work := func(context.Context, int64) ([]float32, error) {
		cancel()
		return []float32{1}, nil
	}

	report, err := stage.Run(ctx, f.ledger, stage.Options{Workers: 1}, embedSpec(f.keys(), work))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if report.Pending() == 0 {
		t.Fatalf("expected undispatched keys after cancel, got %+v", report)
	}
}

func TestRunRejectsIncompleteSpec(t *testing.T) {
	f := newFixture(t, "a")
	if _, err := stage.Run(context.Background(), f.ledger, stage.Options{}, stage.Spec[int64, int]{Name: "broken"}); err == nil {
		t.Fatal("expected error for missing callbacks")
	}
}
