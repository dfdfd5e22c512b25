package ledger

import (
	"context"
	"database/sql"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"time"
)

// HasEmbedding reports whether segmentID already has a vector.
func (s *Session) HasEmbedding(ctx context.Context, segmentID int64) (bool, error) {
	return s.exists(ctx, "SELECT EXISTS(SELECT 1 FROM embeddings WHERE segment_id = ?)", segmentID)
}

// InsertEmbedding stores vector for segmentID. It returns ErrDuplicate when
// the segment already has one.
func (s *Session) InsertEmbedding(ctx context.Context, segmentID int64, vector []float32) error {
	if len(vector) == 0 {
		return errors.New("embedding vector is empty")
	}
	return s.insertOnce(ctx,
		`INSERT INTO embeddings (segment_id, vector, created_at)
		 VALUES (?, ?, ?) ON CONFLICT(segment_id) DO NOTHING`,
		segmentID, packVector(vector), formatTime(time.Now()),
	)
}

// EmbeddingFor loads the vector stored for segmentID.
func (s *Session) EmbeddingFor(ctx context.Context, segmentID int64) (Embedding, error) {
	ctx = ensureContext(ctx)
	var (
		emb     Embedding
		blob    []byte
		created sql.NullString
	)
	err := s.conn.QueryRowContext(ctx,
		"SELECT id, segment_id, vector, created_at FROM embeddings WHERE segment_id = ?", segmentID,
	).Scan(&emb.ID, &emb.SegmentID, &blob, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return Embedding{}, fmt.Errorf("embedding for segment %d: %w", segmentID, ErrNotFound)
	}
	if err != nil {
		return Embedding{}, fmt.Errorf("load embedding for segment %d: %w", segmentID, err)
	}
	emb.Vector = unpackVector(blob)
	emb.CreatedAt = parseTimeString(created)
	return emb, nil
}

func packVector(v []float32) []byte {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

func unpackVector(b []byte) []float32 {
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return v
}
