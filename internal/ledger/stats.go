package ledger

import (
	"context"
	"fmt"
)

// Counts returns row counts for every entity table plus the number of
// unreferenced content objects.
func (s *Session) Counts(ctx context.Context) (Counts, error) {
	ctx = ensureContext(ctx)
	var counts Counts
	queries := []struct {
		name  string
		query string
		dest  *int
	}{
		{"content_objects", "SELECT COUNT(1) FROM content_objects", &counts.ContentObjects},
		{"source_refs", "SELECT COUNT(1) FROM source_refs", &counts.SourceRefs},
		{"segments", "SELECT COUNT(1) FROM segments", &counts.Segments},
		{"embeddings", "SELECT COUNT(1) FROM embeddings", &counts.Embeddings},
		{"contradictions", "SELECT COUNT(1) FROM contradictions", &counts.Contradictions},
		{"orphan_content", `SELECT COUNT(1) FROM content_objects c
			WHERE NOT EXISTS (SELECT 1 FROM source_refs r WHERE r.fingerprint = c.fingerprint)`, &counts.OrphanContent},
	}
	for _, q := range queries {
		if err := s.conn.QueryRowContext(ctx, q.query).Scan(q.dest); err != nil {
			return Counts{}, fmt.Errorf("count %s: %w", q.name, err)
		}
	}
	return counts, nil
}
