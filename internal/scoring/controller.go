package scoring

import (
	"context"
	"errors"

	"clipper/internal/ledger"
	"clipper/internal/logging"
	"clipper/internal/stage"
)

// StageName labels scoring runs in logs, reports, and metrics.
const StageName = "scoring"

// Scorer returns a contradiction confidence for two texts.
type Scorer interface {
	Score(ctx context.Context, a, b string) (float64, error)
}

// ScorerFunc adapts a function to the Scorer interface.
type ScorerFunc func(ctx context.Context, a, b string) (float64, error)

// Score calls f.
func (f ScorerFunc) Score(ctx context.Context, a, b string) (float64, error) {
	return f(ctx, a, b)
}

// Options tunes which pairs are scored and which scores are kept.
type Options struct {
	// Threshold is an exclusive lower bound on stored confidence.
	Threshold float64
	// CrossItemOnly skips pairs whose segments come from the same item.
	CrossItemOnly bool
	Stage         stage.Options
}

// Controller runs the pairwise scoring stage.
type Controller struct {
	ledger *ledger.Ledger
	scorer Scorer
	opts   Options
}

// NewController constructs a scoring controller.
func NewController(l *ledger.Ledger, scorer Scorer, opts Options) *Controller {
	opts.Stage.Logger = logging.NewComponentLogger(opts.Stage.Logger, StageName)
	return &Controller{ledger: l, scorer: scorer, opts: opts}
}

// Run scores every pair that has no stored contradiction.
func (c *Controller) Run(ctx context.Context, workers int) (stage.Report, error) {
	if c.scorer == nil {
		return stage.Report{}, errors.New("scoring: scorer is required")
	}
	segments, err := c.segments(ctx)
	if err != nil {
		return stage.Report{}, err
	}
	texts := make(map[int64]string, len(segments))
	for _, seg := range segments {
		texts[seg.ID] = seg.Text
	}
	keys := Pairs(segments, c.opts.CrossItemOnly)

	opts := c.opts.Stage
	opts.Workers = workers
	threshold := c.opts.Threshold
	return stage.Run(ctx, c.ledger, opts, stage.Spec[ledger.SegmentPair, float64]{
		Name:  StageName,
		Keys:  keys,
		Label: ledger.SegmentPair.String,
		IsDone: func(ctx context.Context, s *ledger.Session, pair ledger.SegmentPair) (bool, error) {
			return s.HasContradiction(ctx, pair)
		},
		Work: func(ctx context.Context, pair ledger.SegmentPair) (float64, error) {
			return c.scorer.Score(ctx, texts[pair.A], texts[pair.B])
		},
		Commit: func(ctx context.Context, s *ledger.Session, pair ledger.SegmentPair, score float64) error {
			if !(score > threshold) {
				return stage.ErrNotStored
			}
			return s.InsertContradiction(ctx, pair, score)
		},
	})
}

// Pairs returns every ordered pair of the given segments. Segments are
// expected in ascending id order.
func Pairs(segments []ledger.Segment, crossItemOnly bool) []ledger.SegmentPair {
	var pairs []ledger.SegmentPair
	for i := range segments {
		for j := i + 1; j < len(segments); j++ {
			if crossItemOnly && segments[i].ItemID == segments[j].ItemID {
				continue
			}
			pair := ledger.NewSegmentPair(segments[i].ID, segments[j].ID)
			if pair.Valid() {
				pairs = append(pairs, pair)
			}
		}
	}
	return pairs
}

func (c *Controller) segments(ctx context.Context) ([]ledger.Segment, error) {
	session, err := c.ledger.Session(ctx)
	if err != nil {
		return nil, err
	}
	defer session.Close()
	return session.ListSegments(ctx)
}
