package stage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"clipper/internal/ledger"
	"clipper/internal/logging"
	"clipper/internal/services"
)

// Spec describes one stage over keys of type K producing results of type R.
type Spec[K comparable, R any] struct {
	Name   string
	Keys   []K
	Label  func(K) string
	IsDone func(context.Context, *ledger.Session, K) (bool, error)
	Work   func(context.Context, K) (R, error)
	Commit func(context.Context, *ledger.Session, K, R) error
}

// Options controls pool size, per-call timeout, logging, and metrics.
type Options struct {
	Workers     int
	CallTimeout time.Duration
	Logger      *slog.Logger
	Observer    Observer
}

const (
	phaseCheck  = "check"
	phaseWork   = "work"
	phaseCommit = "commit"
)

// Run executes spec over its keys. Per-key failures land in the report; the
// returned error is reserved for setup problems and cancellation.
func Run[K comparable, R any](ctx context.Context, l *ledger.Ledger, opts Options, spec Spec[K, R]) (Report, error) {
	if l == nil {
		return Report{}, errors.New("stage: ledger is required")
	}
	if spec.IsDone == nil || spec.Work == nil || spec.Commit == nil {
		return Report{}, fmt.Errorf("stage %s: IsDone, Work, and Commit are required", spec.Name)
	}
	label := spec.Label
	if label == nil {
		label = func(k K) string { return fmt.Sprint(k) }
	}

	workers := opts.Workers
	if workers < 1 {
		workers = 1
	}
	if n := len(spec.Keys); n > 0 && workers > n {
		workers = n
	}

	report := Report{Stage: spec.Name, RunID: uuid.NewString(), Total: len(spec.Keys)}
	ctx = services.WithStage(ctx, spec.Name)
	ctx = services.WithRunID(ctx, report.RunID)
	logger := logging.WithContext(ctx, opts.Logger)

	logger.Info("stage started",
		logging.String(logging.FieldEventType, "stage_start"),
		logging.Int("keys", len(spec.Keys)),
		logging.Int("workers", workers),
	)
	start := time.Now()

	var mu sync.Mutex
	queue := make(chan K)
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer close(queue)
		for _, key := range spec.Keys {
			select {
			case queue <- key:
			case <-gctx.Done():
				return nil
			}
		}
		return nil
	})

	for w := 1; w <= workers; w++ {
		w := w
		workerCtx := services.WithWorker(gctx, w)
		g.Go(func() error {
			session, err := l.Session(workerCtx)
			if err != nil {
				return fmt.Errorf("worker %d: %w", w, err)
			}
			defer session.Close()

			for key := range queue {
				if workerCtx.Err() != nil {
					continue
				}
				keyLabel := label(key)
				keyCtx := services.WithWorkKey(workerCtx, keyLabel)
				began := time.Now()
				outcome, phase, keyErr := runKey(keyCtx, session, opts.CallTimeout, spec, key)
				elapsed := time.Since(began)

				logKey(logging.WithContext(keyCtx, opts.Logger), outcome, phase, keyErr, elapsed)
				if opts.Observer != nil {
					opts.Observer.ObserveKey(spec.Name, outcome, elapsed)
				}
				mu.Lock()
				report.record(keyLabel, outcome, phase, keyErr)
				mu.Unlock()
			}
			return nil
		})
	}

	err := g.Wait()
	report.Duration = time.Since(start)
	if err == nil {
		err = ctx.Err()
	}

	logger.Info("stage completed",
		logging.String(logging.FieldEventType, "stage_complete"),
		logging.Int("committed", report.Committed),
		logging.Int("skipped", report.Skipped),
		logging.Int("superseded", report.Superseded),
		logging.Int("discarded", report.Discarded),
		logging.Int("failed", report.Failed),
		logging.Int("pending", report.Pending()),
		logging.Duration("duration", report.Duration),
	)
	return report, err
}

func runKey[K comparable, R any](ctx context.Context, session *ledger.Session, timeout time.Duration, spec Spec[K, R], key K) (outcome Outcome, phase string, err error) {
	phase = phaseCheck
	defer func() {
		if r := recover(); r != nil {
			outcome = OutcomeFailed
			err = fmt.Errorf("panic during %s: %v", phase, r)
		}
	}()

	done, err := spec.IsDone(ctx, session, key)
	if err != nil {
		return OutcomeFailed, phase, err
	}
	if done {
		return OutcomeSkipped, "", nil
	}

	phase = phaseWork
	result, err := callWork(ctx, timeout, spec.Work, key)
	if err != nil {
		return OutcomeFailed, phase, err
	}

	phase = phaseCommit
	err = spec.Commit(ctx, session, key, result)
	switch {
	case err == nil:
		return OutcomeCommitted, "", nil
	case errors.Is(err, ledger.ErrDuplicate):
		return OutcomeSuperseded, "", nil
	case errors.Is(err, ErrNotStored):
		return OutcomeDiscarded, "", nil
	default:
		return OutcomeFailed, phase, err
	}
}

type workResult[R any] struct {
	value R
	err   error
}

// callWork runs work on its own goroutine so a collaborator that ignores
// its context still releases the worker when the deadline passes. The
// abandoned goroutine finishes in the background.
func callWork[K comparable, R any](ctx context.Context, timeout time.Duration, work func(context.Context, K) (R, error), key K) (R, error) {
	callCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	done := make(chan workResult[R], 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				var zero R
				done <- workResult[R]{value: zero, err: fmt.Errorf("panic during work: %v", r)}
			}
		}()
		value, err := work(callCtx, key)
		done <- workResult[R]{value: value, err: err}
	}()

	select {
	case res := <-done:
		if res.err != nil && errors.Is(callCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
			return res.value, services.Wrap(services.ErrTimeout, "stage", "work", fmt.Sprintf("call exceeded %s", timeout), res.err)
		}
		return res.value, res.err
	case <-callCtx.Done():
		var zero R
		if ctx.Err() == nil {
			return zero, services.Wrap(services.ErrTimeout, "stage", "work", fmt.Sprintf("call exceeded %s", timeout), callCtx.Err())
		}
		return zero, ctx.Err()
	}
}

func logKey(logger *slog.Logger, outcome Outcome, phase string, err error, elapsed time.Duration) {
	switch outcome {
	case OutcomeFailed:
		logging.WarnWithContext(logger, "key failed", "key_failed",
			logging.String("phase", phase),
			logging.Error(err),
			logging.ErrorKind(err),
			logging.Duration("elapsed", elapsed),
		)
	case OutcomeCommitted:
		logger.Info("key committed",
			logging.String(logging.FieldEventType, "key_committed"),
			logging.Duration("elapsed", elapsed),
		)
	default:
		logger.Debug("key "+string(outcome),
			logging.String(logging.FieldEventType, "key_"+string(outcome)),
		)
	}
}
