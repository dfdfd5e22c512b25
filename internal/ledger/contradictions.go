package ledger

import (
	"context"
	"errors"
	"fmt"
)

// HasContradiction reports whether pair already has a stored score.
func (s *Session) HasContradiction(ctx context.Context, pair SegmentPair) (bool, error) {
	return s.exists(ctx,
		"SELECT EXISTS(SELECT 1 FROM contradictions WHERE segment_a_id = ? AND segment_b_id = ?)",
		pair.A, pair.B)
}

// InsertContradiction stores confidence for pair. It returns ErrDuplicate
// when the pair already has a score.
func (s *Session) InsertContradiction(ctx context.Context, pair SegmentPair, confidence float64) error {
	if !pair.Valid() {
		return errors.New("contradiction pair must satisfy a < b")
	}
	return s.insertOnce(ctx,
		`INSERT INTO contradictions (segment_a_id, segment_b_id, confidence)
		 VALUES (?, ?, ?) ON CONFLICT(segment_a_id, segment_b_id) DO NOTHING`,
		pair.A, pair.B, confidence,
	)
}

// ListContradictions returns every stored score, highest confidence first.
func (s *Session) ListContradictions(ctx context.Context) ([]Contradiction, error) {
	ctx = ensureContext(ctx)
	rows, err := s.conn.QueryContext(ctx,
		"SELECT id, segment_a_id, segment_b_id, confidence FROM contradictions ORDER BY confidence DESC, id")
	if err != nil {
		return nil, fmt.Errorf("query contradictions: %w", err)
	}
	defer rows.Close()

	var out []Contradiction
	for rows.Next() {
		var c Contradiction
		if err := rows.Scan(&c.ID, &c.Pair.A, &c.Pair.B, &c.Confidence); err != nil {
			return nil, fmt.Errorf("scan contradiction: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// ContradictionClips joins the top contradictions with the media location
// and time range of both segments. A limit <= 0 returns every row.
func (s *Session) ContradictionClips(ctx context.Context, limit int) ([]ContradictionClip, error) {
	ctx = ensureContext(ctx)
	query := `SELECT c.confidence,
		sa.id, sa.item_id, COALESCE(ca.location, ''), sa.start_sec, sa.end_sec, sa.text,
		sb.id, sb.item_id, COALESCE(cb.location, ''), sb.start_sec, sb.end_sec, sb.text
		FROM contradictions c
		JOIN segments sa ON sa.id = c.segment_a_id
		JOIN segments sb ON sb.id = c.segment_b_id
		LEFT JOIN content_objects ca ON ca.item_id = sa.item_id
		LEFT JOIN content_objects cb ON cb.item_id = sb.item_id
		GROUP BY c.id
		ORDER BY c.confidence DESC, c.id`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := s.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query contradiction clips: %w", err)
	}
	defer rows.Close()

	var out []ContradictionClip
	for rows.Next() {
		var clip ContradictionClip
		if err := rows.Scan(&clip.Confidence,
			&clip.A.SegmentID, &clip.A.ItemID, &clip.A.Location, &clip.A.StartSec, &clip.A.EndSec, &clip.A.Text,
			&clip.B.SegmentID, &clip.B.ItemID, &clip.B.Location, &clip.B.StartSec, &clip.B.EndSec, &clip.B.Text,
		); err != nil {
			return nil, fmt.Errorf("scan contradiction clip: %w", err)
		}
		out = append(out, clip)
	}
	return out, rows.Err()
}
