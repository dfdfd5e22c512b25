package scoring_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"clipper/internal/ledger"
	"clipper/internal/scoring"
	"clipper/internal/testsupport"
)

func TestNoYesScenarioStoresOneContradiction(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	l := testsupport.MustOpenLedger(t, cfg)
	session := testsupport.MustSession(t, l)
	segs := testsupport.SeedSegments(t, session, "video", []ledger.SegmentInput{
		{StartSec: 0, EndSec: 1, Text: "no"},
		{StartSec: 1, EndSec: 2, Text: "yes"},
	})

	var calls atomic.Int32
	scorer := scoring.ScorerFunc(func(ctx context.Context, a, b string) (float64, error) {
		calls.Add(1)
		return scoring.NewLexicalScorer(0).Score(ctx, a, b)
	})
	controller := scoring.NewController(l, scorer, scoring.Options{})
	ctx := context.Background()

	for run := 0; run < 2; run++ {
		if _, err := controller.Run(ctx, 2); err != nil {
			t.Fatalf("Run %d: %v", run, err)
		}
	}
	if calls.Load() != 1 {
		t.Fatalf("expected the pair to be scored once, got %d", calls.Load())
	}

	rows, err := session.ListContradictions(ctx)
	if err != nil {
		t.Fatalf("ListContradictions: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected 1 contradiction, got %d", len(rows))
	}
	want := ledger.SegmentPair{A: segs[0].ID, B: segs[1].ID}
	if rows[0].Pair != want || rows[0].Confidence != 0.9 {
		t.Fatalf("unexpected row: %+v", rows[0])
	}
}

func TestScoresAtOrBelowThresholdAreNotStored(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	l := testsupport.MustOpenLedger(t, cfg)
	session := testsupport.MustSession(t, l)
	testsupport.SeedSegments(t, session, "a", []ledger.SegmentInput{
		{StartSec: 0, EndSec: 1, Text: "one"},
		{StartSec: 1, EndSec: 2, Text: "two"},
		{StartSec: 2, EndSec: 3, Text: "three"},
	})

	scores := map[string]float64{"one|two": 0.5, "one|three": 0.2, "two|three": 0}
	scorer := scoring.ScorerFunc(func(_ context.Context, a, b string) (float64, error) {
		return scores[a+"|"+b], nil
	})
	report, err := scoring.NewController(l, scorer, scoring.Options{Threshold: 0.2}).Run(context.Background(), 1)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.Total != 3 || report.Committed != 1 || report.Discarded != 2 {
		t.Fatalf("unexpected report: %+v", report)
	}
}

func TestScorerFailureIsIsolated(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	l := testsupport.MustOpenLedger(t, cfg)
	session := testsupport.MustSession(t, l)
	testsupport.SeedSegments(t, session, "a", []ledger.SegmentInput{
		{StartSec: 0, EndSec: 1, Text: "bad"},
		{StartSec: 1, EndSec: 2, Text: "x"},
		{StartSec: 2, EndSec: 3, Text: "y"},
	})

	scorer := scoring.ScorerFunc(func(_ context.Context, a, _ string) (float64, error) {
		if a == "bad" {
			return 0, errors.New("model crashed")
		}
		return 0.7, nil
	})
	report, err := scoring.NewController(l, scorer, scoring.Options{}).Run(context.Background(), 3)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.Failed != 2 || report.Committed != 1 {
		t.Fatalf("unexpected report: %+v", report)
	}
	for _, f := range report.Failures {
		if f.Phase != "work" {
			t.Fatalf("expected work-phase failure, got %+v", f)
		}
	}
}

func TestPairsCrossItemOnly(t *testing.T) {
	segments := []ledger.Segment{
		{ID: 1, ItemID: "a"},
		{ID: 2, ItemID: "a"},
		{ID: 3, ItemID: "b"},
	}
	all := scoring.Pairs(segments, false)
	if len(all) != 3 {
		t.Fatalf("expected 3 pairs, got %v", all)
	}
	cross := scoring.Pairs(segments, true)
	if len(cross) != 2 || cross[0] != (ledger.SegmentPair{A: 1, B: 3}) || cross[1] != (ledger.SegmentPair{A: 2, B: 3}) {
		t.Fatalf("unexpected cross-item pairs: %v", cross)
	}
	for _, p := range all {
		if !p.Valid() {
			t.Fatalf("pair not ordered: %v", p)
		}
	}
}

func TestLexicalScorer(t *testing.T) {
	scorer := scoring.NewLexicalScorer(0)
	tests := []struct {
		a, b string
		want float64
	}{
		{"no", "yes", 0.9},
		{"I did NOT say that", "I said that", 0.9},
		{"We can't go", "We can go", 0.9},
		{"never", "not ever", 0},
		{"the sky is blue", "the sky is green", 0},
		{"Nothing happened.", "", 0.9},
	}
	for _, tc := range tests {
		got, err := scorer.Score(context.Background(), tc.a, tc.b)
		if err != nil {
			t.Fatalf("Score(%q, %q): %v", tc.a, tc.b, err)
		}
		if got != tc.want {
			t.Errorf("Score(%q, %q) = %v, want %v", tc.a, tc.b, got, tc.want)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := scorer.Score(ctx, "no", "yes"); err == nil {
		t.Fatal("expected cancelled context error")
	}
}
