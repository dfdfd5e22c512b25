package transcription

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"clipper/internal/ledger"
	"clipper/internal/logging"
	"clipper/internal/services"
	"clipper/internal/stage"
)

// StageName labels transcription runs in logs, reports, and metrics.
const StageName = "transcription"

// Transcriber converts a media file into ordered timed segments.
type Transcriber interface {
	Transcribe(ctx context.Context, itemID, path string) ([]ledger.SegmentInput, error)
}

// TranscriberFunc adapts a function to the Transcriber interface.
type TranscriberFunc func(ctx context.Context, itemID, path string) ([]ledger.SegmentInput, error)

// Transcribe calls f.
func (f TranscriberFunc) Transcribe(ctx context.Context, itemID, path string) ([]ledger.SegmentInput, error) {
	return f(ctx, itemID, path)
}

// Controller runs the transcription stage.
type Controller struct {
	ledger      *ledger.Ledger
	transcriber Transcriber
	opts        stage.Options
}

// NewController constructs a transcription controller. opts.Workers is
// overridden per run.
func NewController(l *ledger.Ledger, transcriber Transcriber, opts stage.Options) *Controller {
	opts.Logger = logging.NewComponentLogger(opts.Logger, StageName)
	return &Controller{ledger: l, transcriber: transcriber, opts: opts}
}

// Run transcribes every item that has no segments yet.
func (c *Controller) Run(ctx context.Context, workers int) (stage.Report, error) {
	if c.transcriber == nil {
		return stage.Report{}, errors.New("transcription: transcriber is required")
	}
	items, err := c.pendingItems(ctx)
	if err != nil {
		return stage.Report{}, err
	}

	keys := make([]string, 0, len(items))
	for id := range items {
		keys = append(keys, id)
	}
	slices.Sort(keys)

	opts := c.opts
	opts.Workers = workers
	return stage.Run(ctx, c.ledger, opts, stage.Spec[string, []ledger.SegmentInput]{
		Name: StageName,
		Keys: keys,
		IsDone: func(ctx context.Context, s *ledger.Session, itemID string) (bool, error) {
			return s.HasSegments(ctx, itemID)
		},
		Work: func(ctx context.Context, itemID string) ([]ledger.SegmentInput, error) {
			return c.transcriber.Transcribe(ctx, itemID, items[itemID])
		},
		Commit: func(ctx context.Context, s *ledger.Session, itemID string, segments []ledger.SegmentInput) error {
			if len(segments) == 0 {
				return stage.ErrNotStored
			}
			for i, seg := range segments {
				if seg.EndSec < seg.StartSec {
					return services.Wrap(services.ErrValidation, StageName, "commit",
						fmt.Sprintf("segment %d ends before it starts", i), nil)
				}
			}
			return s.InsertSegments(ctx, itemID, segments)
		},
	})
}

// pendingItems maps each distinct item id to the stored media location.
func (c *Controller) pendingItems(ctx context.Context) (map[string]string, error) {
	session, err := c.ledger.Session(ctx)
	if err != nil {
		return nil, err
	}
	defer session.Close()

	content, err := session.ListContent(ctx)
	if err != nil {
		return nil, err
	}
	items := make(map[string]string, len(content))
	for _, obj := range content {
		if obj.ItemID == "" {
			continue
		}
		if _, seen := items[obj.ItemID]; !seen {
			items[obj.ItemID] = obj.Location
		}
	}
	return items, nil
}
