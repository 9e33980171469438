package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nao1215/banreview/internal/model"
	"github.com/nao1215/banreview/internal/throttle"
)

// DefaultConcurrency is the default ceiling on evaluations in flight.
const DefaultConcurrency = 20

// DefaultAdmissionDelay is the base delay before each admission.
const DefaultAdmissionDelay = time.Millisecond

// EvaluateFunc evaluates one ban.
type EvaluateFunc func(ctx context.Context, ban model.BanRecord) (model.Verdict, error)

// BatchProcessor runs evaluations concurrently under a fixed ceiling.
type BatchProcessor struct {
	// concurrency is the maximum number of evaluations in flight.
	concurrency int

	// throttle spaces out admissions.
	throttle *throttle.Throttle

	// admissionDelay is the base delay passed to the throttle.
	admissionDelay time.Duration

	logger *slog.Logger
}

// BatchOption configures a BatchProcessor.
type BatchOption func(*BatchProcessor)

// WithBatchLogger sets a custom logger for batch processing.
func WithBatchLogger(logger *slog.Logger) BatchOption {
	return func(b *BatchProcessor) {
		b.logger = logger
	}
}

// WithConcurrency sets the maximum number of concurrent evaluations.
// Non-positive values keep the default.
func WithConcurrency(n int) BatchOption {
	return func(b *BatchProcessor) {
		if n > 0 {
			b.concurrency = n
		}
	}
}

// WithThrottle sets the throttle used between admissions.
func WithThrottle(t *throttle.Throttle) BatchOption {
	return func(b *BatchProcessor) {
		b.throttle = t
	}
}

// WithAdmissionDelay sets the base delay before each admission.
func WithAdmissionDelay(d time.Duration) BatchOption {
	return func(b *BatchProcessor) {
		b.admissionDelay = d
	}
}

// NewBatchProcessor creates a BatchProcessor.
func NewBatchProcessor(opts ...BatchOption) *BatchProcessor {
	bp := &BatchProcessor{
		concurrency:    DefaultConcurrency,
		admissionDelay: DefaultAdmissionDelay,
	}
	for _, opt := range opts {
		opt(bp)
	}
	if bp.throttle == nil {
		bp.throttle = throttle.New()
	}
	if bp.logger == nil {
		bp.logger = slog.Default()
	}
	return bp
}

// ProcessBatch evaluates bans and returns one verdict per ban, in the
// order of bans.
//
// Bans are admitted one at a time after a throttled delay. While the
// ceiling is reached, admission waits for any evaluation to finish. A
// failed or panicking evaluation yields a placeholder verdict and the
// batch carries on. Once ctx is done nothing more is admitted; bans that
// were never started also get placeholder verdicts.
func (bp *BatchProcessor) ProcessBatch(ctx context.Context, bans []model.BanRecord, evaluate EvaluateFunc) []model.Verdict {
	startTime := time.Now()
	verdicts := make([]model.Verdict, len(bans))
	for i, ban := range bans {
		verdicts[i] = model.NewFailedVerdict(ban)
	}

	// A plain Group: one failed evaluation must not cancel the others.
	var g errgroup.Group
	g.SetLimit(bp.concurrency)

	admitted := 0
	for i, ban := range bans {
		if err := bp.throttle.Wait(ctx, bp.admissionDelay); err != nil {
			break
		}
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			verdicts[i] = bp.run(ctx, ban, evaluate)
			return nil
		})
		admitted++
	}

	// The tasks never return errors.
	_ = g.Wait() //nolint:errcheck // always nil

	if skipped := len(bans) - admitted; skipped > 0 {
		bp.logger.Warn("batch interrupted", "skipped", skipped, "reason", ctx.Err())
	}
	bp.logger.Debug("batch complete",
		"total", len(bans),
		"concurrency", bp.concurrency,
		"elapsed", time.Since(startTime),
	)
	return verdicts
}

// run evaluates one ban, recovering failures at the task boundary.
func (bp *BatchProcessor) run(ctx context.Context, ban model.BanRecord, evaluate EvaluateFunc) (verdict model.Verdict) {
	bp.logger.Info("starting evaluation", "user", ban.Username)

	defer func() {
		if r := recover(); r != nil {
			bp.logger.Error("evaluation failed", "user", ban.Username, "error", fmt.Sprintf("panic: %v", r))
			verdict = model.NewFailedVerdict(ban)
		}
	}()

	v, err := evaluate(ctx, ban)
	if err != nil {
		bp.logger.Error("evaluation failed", "user", ban.Username, "error", err)
		return model.NewFailedVerdict(ban)
	}
	bp.logger.Info("evaluation finished", "user", ban.Username, "unban", v.UnbanFlag())
	return v
}
