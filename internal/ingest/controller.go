package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"clipper/internal/fileutil"
	"clipper/internal/fingerprint"
	"clipper/internal/ledger"
	"clipper/internal/logging"
	"clipper/internal/services"
	"clipper/internal/stage"
)

const stageName = "ingest"

// Outcome is the result of ingesting one locator.
type Outcome string

const (
	// OutcomeSkipped means the locator was already bound before the run.
	OutcomeSkipped Outcome = "skipped"
	// OutcomeIngested means this worker created the content object.
	OutcomeIngested Outcome = "ingested"
	// OutcomeDeduplicated means the bytes were already owned by another
	// content object; the locator now points at it.
	OutcomeDeduplicated Outcome = "deduplicated"
	// OutcomeAlreadyBound means a concurrent worker bound the locator first.
	OutcomeAlreadyBound Outcome = "already_bound"
	// OutcomeFailed means the locator produced no ledger rows this run.
	OutcomeFailed Outcome = "failed"
)

// Failure records one locator that could not be ingested.
type Failure struct {
	Locator string
	Err     error
}

// Report summarizes one ingest batch.
type Report struct {
	RunID        string
	Requested    int
	Skipped      int
	Ingested     int
	Deduplicated int
	AlreadyBound int
	Failed       int
	Duration     time.Duration
	Failures     []Failure
}

// Pending counts locators that were never processed, typically because the
// run was cancelled.
func (r Report) Pending() int {
	pending := r.Requested - r.Skipped - r.Ingested - r.Deduplicated - r.AlreadyBound - r.Failed
	if pending < 0 {
		return 0
	}
	return pending
}

func (r *Report) record(locator string, outcome Outcome, err error) {
	switch outcome {
	case OutcomeSkipped:
		r.Skipped++
	case OutcomeIngested:
		r.Ingested++
	case OutcomeDeduplicated:
		r.Deduplicated++
	case OutcomeAlreadyBound:
		r.AlreadyBound++
	case OutcomeFailed:
		r.Failed++
		r.Failures = append(r.Failures, Failure{Locator: locator, Err: err})
	}
}

// Controller runs ingest batches against one ledger.
type Controller struct {
	ledger   *ledger.Ledger
	fetcher  Fetcher
	logger   *slog.Logger
	observer stage.Observer
}

// Option customizes a Controller.
type Option func(*Controller)

// WithObserver reports each locator's outcome to observer.
func WithObserver(observer stage.Observer) Option {
	return func(c *Controller) {
		c.observer = observer
	}
}

// NewController constructs an ingest controller.
func NewController(l *ledger.Ledger, fetcher Fetcher, logger *slog.Logger, opts ...Option) *Controller {
	c := &Controller{ledger: l, fetcher: fetcher, logger: logging.NewComponentLogger(logger, stageName)}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Ingest fetches, fingerprints, and records every locator not yet bound.
// Per-locator failures are reported, never returned; the error is reserved
// for setup problems and cancellation.
func (c *Controller) Ingest(ctx context.Context, locators []string, workers int) (Report, error) {
	if c.ledger == nil || c.fetcher == nil {
		return Report{}, errors.New("ingest: ledger and fetcher are required")
	}
	locators = NormalizeLocators(locators)
	report := Report{RunID: uuid.NewString(), Requested: len(locators)}
	ctx = services.WithStage(ctx, stageName)
	ctx = services.WithRunID(ctx, report.RunID)
	logger := logging.WithContext(ctx, c.logger)
	start := time.Now()

	pending, err := c.unbound(ctx, locators)
	if err != nil {
		return report, err
	}
	report.Skipped = len(locators) - len(pending)
	for i := 0; i < report.Skipped; i++ {
		c.observe(OutcomeSkipped, 0)
	}

	if workers < 1 {
		workers = 1
	}
	if n := len(pending); n > 0 && workers > n {
		workers = n
	}
	logger.Info("ingest started",
		logging.String(logging.FieldEventType, "stage_start"),
		logging.Int("requested", len(locators)),
		logging.Int("already_bound", report.Skipped),
		logging.Int("workers", workers),
	)

	var mu sync.Mutex
	queue := make(chan string)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer close(queue)
		for _, locator := range pending {
			select {
			case queue <- locator:
			case <-gctx.Done():
				return nil
			}
		}
		return nil
	})

	for w := 1; w <= workers && len(pending) > 0; w++ {
		w := w
		workerCtx := services.WithWorker(gctx, w)
		g.Go(func() error {
			session, err := c.ledger.Session(workerCtx)
			if err != nil {
				return fmt.Errorf("worker %d: %w", w, err)
			}
			defer session.Close()

			for locator := range queue {
				if workerCtx.Err() != nil {
					continue
				}
				keyCtx := services.WithWorkKey(workerCtx, locator)
				began := time.Now()
				outcome, keyErr := c.ingestOne(keyCtx, session, locator)
				elapsed := time.Since(began)
				c.logOutcome(logging.WithContext(keyCtx, c.logger), outcome, keyErr, elapsed)
				c.observe(outcome, elapsed)

				mu.Lock()
				report.record(locator, outcome, keyErr)
				mu.Unlock()
			}
			return nil
		})
	}

	err = g.Wait()
	report.Duration = time.Since(start)
	if err == nil {
		err = ctx.Err()
	}
	logger.Info("ingest completed",
		logging.String(logging.FieldEventType, "stage_complete"),
		logging.Int("ingested", report.Ingested),
		logging.Int("deduplicated", report.Deduplicated),
		logging.Int("already_bound", report.AlreadyBound),
		logging.Int("skipped", report.Skipped),
		logging.Int("failed", report.Failed),
		logging.Duration("duration", report.Duration),
	)
	return report, err
}

// unbound drops locators that already resolved in an earlier run. It is an
// optimization only; the constraints in ingestOne decide correctness.
func (c *Controller) unbound(ctx context.Context, locators []string) ([]string, error) {
	if len(locators) == 0 {
		return nil, nil
	}
	session, err := c.ledger.Session(ctx)
	if err != nil {
		return nil, err
	}
	defer session.Close()

	pending := make([]string, 0, len(locators))
	for _, locator := range locators {
		bound, err := session.IsBound(ctx, locator)
		if err != nil {
			return nil, fmt.Errorf("check locator %s: %w", locator, err)
		}
		if !bound {
			pending = append(pending, locator)
		}
	}
	return pending, nil
}

func (c *Controller) ingestOne(ctx context.Context, session *ledger.Session, locator string) (outcome Outcome, err error) {
	defer func() {
		if r := recover(); r != nil {
			outcome = OutcomeFailed
			err = fmt.Errorf("panic while ingesting %s: %v", locator, r)
		}
	}()

	fetched, err := c.fetcher.Fetch(ctx, locator)
	if err != nil {
		if fetched.Path != "" {
			c.releaseFile(ctx, session, fetched.Path)
		}
		return OutcomeFailed, fmt.Errorf("fetch: %w", err)
	}
	if fetched.Path == "" {
		return OutcomeFailed, services.Wrap(services.ErrValidation, stageName, "fetch", "fetcher returned no file", nil)
	}

	// held is the file this worker is still responsible for removing.
	held := fetched.Path
	defer func() {
		if held != "" {
			c.releaseFile(ctx, session, held)
		}
	}()

	digest, err := fingerprint.File(held)
	if err != nil {
		return OutcomeFailed, fmt.Errorf("fingerprint: %w", err)
	}
	info, err := os.Stat(held)
	if err != nil {
		return OutcomeFailed, fmt.Errorf("stat fetched file: %w", err)
	}

	outcome = OutcomeIngested
	err = session.InsertContentObject(ctx, ledger.ContentObject{
		Fingerprint: digest,
		ItemID:      fetched.ItemID,
		Location:    held,
		SizeBytes:   info.Size(),
	})
	switch {
	case err == nil:
		held = ""
	case errors.Is(err, ledger.ErrDuplicate):
		winner, lookupErr := session.ContentByFingerprint(ctx, digest)
		if lookupErr != nil {
			return OutcomeFailed, fmt.Errorf("load winning content: %w", lookupErr)
		}
		if winner.Location != held {
			c.removeFile(ctx, held)
		}
		held = ""
		outcome = OutcomeDeduplicated
	default:
		return OutcomeFailed, fmt.Errorf("record content: %w", err)
	}

	err = session.BindSource(ctx, locator, digest)
	switch {
	case err == nil:
		return outcome, nil
	case errors.Is(err, ledger.ErrDuplicate):
		return OutcomeAlreadyBound, nil
	default:
		return OutcomeFailed, fmt.Errorf("bind locator: %w", err)
	}
}

// releaseFile removes path unless a content object claims it. When the
// claim cannot be checked the file is kept, since it may be a winner's.
func (c *Controller) releaseFile(ctx context.Context, session *ledger.Session, path string) {
	ctx = context.WithoutCancel(ctx)
	claimed, err := session.IsLocationClaimed(ctx, path)
	if err != nil {
		logging.WarnWithContext(logging.WithContext(ctx, c.logger), "could not verify fetched file ownership", "cleanup_skipped",
			logging.String("path", path),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "remove the file manually if no content object references it"),
		)
		return
	}
	if !claimed {
		c.removeFile(ctx, path)
	}
}

func (c *Controller) removeFile(ctx context.Context, path string) {
	if err := fileutil.RemoveIfExists(path); err != nil {
		logging.WarnWithContext(logging.WithContext(ctx, c.logger), "failed to remove fetched file", "cleanup_failed",
			logging.String("path", path),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check permissions on the media directory"),
		)
	}
}

func (c *Controller) logOutcome(logger *slog.Logger, outcome Outcome, err error, elapsed time.Duration) {
	if outcome == OutcomeFailed {
		logging.WarnWithContext(logger, "locator failed", "key_failed",
			logging.Error(err),
			logging.ErrorKind(err),
			logging.Duration("elapsed", elapsed),
		)
		return
	}
	logger.Info("locator "+string(outcome),
		logging.String(logging.FieldEventType, "key_"+string(outcome)),
		logging.Duration("elapsed", elapsed),
	)
}

func (c *Controller) observe(outcome Outcome, elapsed time.Duration) {
	if c.observer == nil {
		return
	}
	mapped := stage.OutcomeCommitted
	switch outcome {
	case OutcomeSkipped:
		mapped = stage.OutcomeSkipped
	case OutcomeDeduplicated, OutcomeAlreadyBound:
		mapped = stage.OutcomeSuperseded
	case OutcomeFailed:
		mapped = stage.OutcomeFailed
	}
	c.observer.ObserveKey(stageName, mapped, elapsed)
}
