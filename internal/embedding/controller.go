package embedding

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"clipper/internal/ledger"
	"clipper/internal/logging"
	"clipper/internal/services"
	"clipper/internal/stage"
)

// StageName labels embedding runs in logs, reports, and metrics.
const StageName = "embedding"

// Controller runs the embedding stage.
type Controller struct {
	ledger   *ledger.Ledger
	provider Provider
	opts     stage.Options
}

// NewController constructs an embedding controller.
func NewController(l *ledger.Ledger, provider Provider, opts stage.Options) *Controller {
	opts.Logger = logging.NewComponentLogger(opts.Logger, StageName)
	return &Controller{ledger: l, provider: provider, opts: opts}
}

// Run embeds every segment that has no vector yet.
func (c *Controller) Run(ctx context.Context, workers int) (stage.Report, error) {
	if c.provider == nil {
		return stage.Report{}, errors.New("embedding: provider is required")
	}
	texts, keys, err := c.segments(ctx)
	if err != nil {
		return stage.Report{}, err
	}
	dims := c.provider.Dimensions()

	opts := c.opts
	opts.Workers = workers
	return stage.Run(ctx, c.ledger, opts, stage.Spec[int64, []float32]{
		Name:  StageName,
		Keys:  keys,
		Label: func(id int64) string { return strconv.FormatInt(id, 10) },
		IsDone: func(ctx context.Context, s *ledger.Session, id int64) (bool, error) {
			return s.HasEmbedding(ctx, id)
		},
		Work: func(ctx context.Context, id int64) ([]float32, error) {
			vector, err := c.provider.Embed(ctx, texts[id])
			if err != nil {
				return nil, err
			}
			if dims > 0 && len(vector) != dims {
				return nil, services.Wrap(services.ErrValidation, StageName, "embed",
					fmt.Sprintf("vector has %d dimensions, expected %d", len(vector), dims), nil)
			}
			return vector, nil
		},
		Commit: func(ctx context.Context, s *ledger.Session, id int64, vector []float32) error {
			return s.InsertEmbedding(ctx, id, vector)
		},
	})
}

func (c *Controller) segments(ctx context.Context) (map[int64]string, []int64, error) {
	session, err := c.ledger.Session(ctx)
	if err != nil {
		return nil, nil, err
	}
	defer session.Close()

	segments, err := session.ListSegments(ctx)
	if err != nil {
		return nil, nil, err
	}
	texts := make(map[int64]string, len(segments))
	keys := make([]int64, 0, len(segments))
	for _, seg := range segments {
		texts[seg.ID] = seg.Text
		keys = append(keys, seg.ID)
	}
	return texts, keys, nil
}
