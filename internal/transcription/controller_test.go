package transcription_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"clipper/internal/ledger"
	"clipper/internal/stage"
	"clipper/internal/testsupport"
	"clipper/internal/transcription"
)

type countingTranscriber struct {
	mu       sync.Mutex
	calls    map[string]int
	segments map[string][]ledger.SegmentInput
	fail     map[string]error
}

func newCountingTranscriber() *countingTranscriber {
	return &countingTranscriber{calls: map[string]int{}, segments: map[string][]ledger.SegmentInput{}, fail: map[string]error{}}
}

func (c *countingTranscriber) Transcribe(_ context.Context, itemID, _ string) ([]ledger.SegmentInput, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls[itemID]++
	if err := c.fail[itemID]; err != nil {
		return nil, err
	}
	return c.segments[itemID], nil
}

func seedItem(t *testing.T, s *ledger.Session, itemID string) {
	t.Helper()
	ctx := context.Background()
	obj := ledger.ContentObject{Fingerprint: "fp-" + itemID, ItemID: itemID, Location: "/media/" + itemID + ".mp4", SizeBytes: 1}
	if err := s.InsertContentObject(ctx, obj); err != nil {
		t.Fatalf("InsertContentObject: %v", err)
	}
	if err := s.BindSource(ctx, "loc-"+itemID, obj.Fingerprint); err != nil {
		t.Fatalf("BindSource: %v", err)
	}
}

func TestRunTranscribesEachItemOnce(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	l := testsupport.MustOpenLedger(t, cfg)
	session := testsupport.MustSession(t, l)
	seedItem(t, session, "a")
	seedItem(t, session, "b")

	tr := newCountingTranscriber()
	tr.segments["a"] = []ledger.SegmentInput{{StartSec: 0, EndSec: 1, Text: "no"}, {StartSec: 2, EndSec: 3, Text: "yes"}}
	tr.segments["b"] = []ledger.SegmentInput{{StartSec: 0, EndSec: 4, Text: "maybe"}}
	controller := transcription.NewController(l, tr, stage.Options{})
	ctx := context.Background()

	first, err := controller.Run(ctx, 2)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if first.Committed != 2 || first.Stage != transcription.StageName {
		t.Fatalf("unexpected report: %+v", first)
	}
	second, err := controller.Run(ctx, 2)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if second.Skipped != 2 || second.Committed != 0 {
		t.Fatalf("expected second run to skip, got %+v", second)
	}
	if tr.calls["a"] != 1 || tr.calls["b"] != 1 {
		t.Fatalf("expected one call per item, got %+v", tr.calls)
	}

	counts, _ := session.Counts(ctx)
	if counts.Segments != 3 {
		t.Fatalf("expected exactly 3 segments, got %d", counts.Segments)
	}
}

func TestRunLeavesNoRowsWhenTranscriberFails(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	l := testsupport.MustOpenLedger(t, cfg)
	session := testsupport.MustSession(t, l)
	seedItem(t, session, "broken")

	tr := newCountingTranscriber()
	tr.fail["broken"] = errors.New("whisper crashed")
	controller := transcription.NewController(l, tr, stage.Options{})
	ctx := context.Background()

	report, err := controller.Run(ctx, 1)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.Failed != 1 {
		t.Fatalf("expected failure, got %+v", report)
	}
	has, _ := session.HasSegments(ctx, "broken")
	if has {
		t.Fatal("failed transcription must not leave segments")
	}

	delete(tr.fail, "broken")
	tr.segments["broken"] = []ledger.SegmentInput{{StartSec: 0, EndSec: 1, Text: "fixed"}}
	retry, err := controller.Run(ctx, 1)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if retry.Committed != 1 {
		t.Fatalf("expected retry to commit, got %+v", retry)
	}
}

func TestRunFailsBackwardsSegmentRangeBeforeCommit(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	l := testsupport.MustOpenLedger(t, cfg)
	session := testsupport.MustSession(t, l)
	seedItem(t, session, "odd")

	tr := newCountingTranscriber()
	tr.segments["odd"] = []ledger.SegmentInput{{StartSec: 0, EndSec: 1, Text: "fine"}, {StartSec: 5, EndSec: 2, Text: "backwards"}}
	report, err := transcription.NewController(l, tr, stage.Options{}).Run(context.Background(), 1)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.Failed != 1 {
		t.Fatalf("expected failure, got %+v", report)
	}
	counts, _ := session.Counts(context.Background())
	if counts.Segments != 0 {
		t.Fatalf("expected no partial segments, got %d", counts.Segments)
	}
}

func TestRunDiscardsEmptyTranscript(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	l := testsupport.MustOpenLedger(t, cfg)
	session := testsupport.MustSession(t, l)
	seedItem(t, session, "silent")

	report, err := transcription.NewController(l, newCountingTranscriber(), stage.Options{}).Run(context.Background(), 1)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.Discarded != 1 {
		t.Fatalf("expected discarded outcome, got %+v", report)
	}
}
