package ledger

import (
	"fmt"
	"time"
)

// ContentObject is one distinct piece of fetched media, keyed by its
// content fingerprint.
type ContentObject struct {
	Fingerprint string
	ItemID      string
	Location    string
	SizeBytes   int64
	CreatedAt   time.Time
}

// SourceRef binds a source locator to the content it resolved to.
type SourceRef struct {
	Locator     string
	Fingerprint string
	ResolvedAt  time.Time
}

// SegmentInput is a timed text span produced by a transcriber, before it
// has a ledger id.
type SegmentInput struct {
	StartSec float64
	EndSec   float64
	Text     string
}

// Segment is a committed transcript span.
type Segment struct {
	ID       int64
	ItemID   string
	StartSec float64
	EndSec   float64
	Text     string
}

// Embedding is the stored vector for one segment.
type Embedding struct {
	ID        int64
	SegmentID int64
	Vector    []float32
	CreatedAt time.Time
}

// SegmentPair identifies two segments with A < B.
type SegmentPair struct {
	A int64
	B int64
}

// NewSegmentPair orders the ids so the pair has a single canonical form.
func NewSegmentPair(x, y int64) SegmentPair {
	if x > y {
		x, y = y, x
	}
	return SegmentPair{A: x, B: y}
}

// Valid reports whether the pair references two distinct segments in order.
func (p SegmentPair) Valid() bool {
	return p.A < p.B
}

func (p SegmentPair) String() string {
	return fmt.Sprintf("%d:%d", p.A, p.B)
}

// Contradiction is a stored score for a segment pair.
type Contradiction struct {
	ID         int64
	Pair       SegmentPair
	Confidence float64
}

// Clip is a time range inside a stored media file.
type Clip struct {
	SegmentID int64   `json:"segment_id"`
	ItemID    string  `json:"item_id"`
	Location  string  `json:"location"`
	StartSec  float64 `json:"start_sec"`
	EndSec    float64 `json:"end_sec"`
	Text      string  `json:"text"`
}

// ContradictionClip joins a contradiction with both sides' clip ranges.
type ContradictionClip struct {
	Confidence float64 `json:"confidence"`
	A          Clip    `json:"a"`
	B          Clip    `json:"b"`
}

// Counts summarizes table sizes.
type Counts struct {
	ContentObjects int `json:"content_objects"`
	SourceRefs     int `json:"source_refs"`
	Segments       int `json:"segments"`
	Embeddings     int `json:"embeddings"`
	Contradictions int `json:"contradictions"`
	OrphanContent  int `json:"orphan_content"`
}
