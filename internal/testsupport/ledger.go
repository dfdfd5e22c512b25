package testsupport

import (
	"context"
	"testing"

	"clipper/internal/config"
	"clipper/internal/ledger"
)

// MustOpenLedger opens the config's ledger at the current schema version and
// registers cleanup.
func MustOpenLedger(t testing.TB, cfg *config.Config) *ledger.Ledger {
	t.Helper()

	l, err := ledger.Open(cfg.Paths.LedgerPath)
	if err != nil {
		t.Fatalf("ledger.Open: %v", err)
	}
	t.Cleanup(func() {
		l.Close()
	})
	if err := l.Ensure(context.Background(), ledger.CurrentVersion); err != nil {
		t.Fatalf("ledger.Ensure: %v", err)
	}
	return l
}

// MustSession checks out a ledger session for the duration of the test.
func MustSession(t testing.TB, l *ledger.Ledger) *ledger.Session {
	t.Helper()

	session, err := l.Session(context.Background())
	if err != nil {
		t.Fatalf("ledger.Session: %v", err)
	}
	t.Cleanup(func() {
		session.Close()
	})
	return session
}

// SeedSegments inserts a content object, its source binding, and segments
// for itemID, returning the committed segments.
func SeedSegments(t testing.TB, session *ledger.Session, itemID string, segments []ledger.SegmentInput) []ledger.Segment {
	t.Helper()

	ctx := context.Background()
	obj := ledger.ContentObject{
		Fingerprint: "fp-" + itemID,
		ItemID:      itemID,
		Location:    "/media/" + itemID + ".mp4",
		SizeBytes:   1,
	}
	if err := session.InsertContentObject(ctx, obj); err != nil {
		t.Fatalf("InsertContentObject: %v", err)
	}
	if err := session.BindSource(ctx, "locator-"+itemID, obj.Fingerprint); err != nil {
		t.Fatalf("BindSource: %v", err)
	}
	if err := session.InsertSegments(ctx, itemID, segments); err != nil {
		t.Fatalf("InsertSegments: %v", err)
	}
	stored, err := session.SegmentsForItem(ctx, itemID)
	if err != nil {
		t.Fatalf("SegmentsForItem: %v", err)
	}
	return stored
}
