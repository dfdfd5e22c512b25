package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

const segmentColumns = "id, item_id, start_sec, end_sec, text"

func scanSegment(scanner interface{ Scan(dest ...any) error }) (Segment, error) {
	var seg Segment
	err := scanner.Scan(&seg.ID, &seg.ItemID, &seg.StartSec, &seg.EndSec, &seg.Text)
	return seg, err
}

// HasSegments reports whether any segment exists for itemID.
func (s *Session) HasSegments(ctx context.Context, itemID string) (bool, error) {
	return s.exists(ctx, "SELECT EXISTS(SELECT 1 FROM segments WHERE item_id = ?)", itemID)
}

// InsertSegments commits the full segment set for itemID in one
// transaction. If segments for the item appeared since the caller checked,
// nothing is written and ErrDuplicate is returned.
func (s *Session) InsertSegments(ctx context.Context, itemID string, segments []SegmentInput) error {
	if itemID == "" {
		return errors.New("item id is required")
	}
	if len(segments) == 0 {
		return errors.New("no segments to insert")
	}
	ctx = ensureContext(ctx)
	return s.withTx(ctx, func(tx *sql.Tx) error {
		var present int
		if err := tx.QueryRowContext(ctx,
			"SELECT EXISTS(SELECT 1 FROM segments WHERE item_id = ?)", itemID,
		).Scan(&present); err != nil {
			return fmt.Errorf("check segments for %s: %w", itemID, err)
		}
		if present != 0 {
			return ErrDuplicate
		}

		stmt, err := tx.PrepareContext(ctx, "INSERT INTO segments (item_id, start_sec, end_sec, text) VALUES (?, ?, ?, ?)")
		if err != nil {
			return fmt.Errorf("prepare segment insert: %w", err)
		}
		defer stmt.Close()
		for i, seg := range segments {
			if _, err := stmt.ExecContext(ctx, itemID, seg.StartSec, seg.EndSec, seg.Text); err != nil {
				return fmt.Errorf("insert segment %d for %s: %w", i, itemID, err)
			}
		}
		return nil
	})
}

// Segment loads one segment by id.
func (s *Session) Segment(ctx context.Context, id int64) (Segment, error) {
	ctx = ensureContext(ctx)
	seg, err := scanSegment(s.conn.QueryRowContext(ctx, "SELECT "+segmentColumns+" FROM segments WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return Segment{}, fmt.Errorf("segment %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return Segment{}, fmt.Errorf("load segment %d: %w", id, err)
	}
	return seg, nil
}

// ListSegments returns every segment ordered by id.
func (s *Session) ListSegments(ctx context.Context) ([]Segment, error) {
	return s.querySegments(ctx, "SELECT "+segmentColumns+" FROM segments ORDER BY id")
}

// SegmentsForItem returns the segments of one item ordered by start time.
func (s *Session) SegmentsForItem(ctx context.Context, itemID string) ([]Segment, error) {
	return s.querySegments(ctx, "SELECT "+segmentColumns+" FROM segments WHERE item_id = ? ORDER BY start_sec, id", itemID)
}

func (s *Session) querySegments(ctx context.Context, query string, args ...any) ([]Segment, error) {
	ctx = ensureContext(ctx)
	rows, err := s.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query segments: %w", err)
	}
	defer rows.Close()

	var out []Segment
	for rows.Next() {
		seg, err := scanSegment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan segment: %w", err)
		}
		out = append(out, seg)
	}
	return out, rows.Err()
}
