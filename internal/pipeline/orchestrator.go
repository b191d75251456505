package pipeline

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/rpattn/salespipe/internal/catalog"
	"github.com/rpattn/salespipe/internal/domain"
	"github.com/rpattn/salespipe/internal/logger"
)

const defaultWorkers = 4

// RunLogSink persists record-level issues (rejections, lookup failures)
// raised during a run. A nil sink disables persistence; issues are still
// logged and counted.
type RunLogSink interface {
	Record(ctx context.Context, entry domain.RunLogEntry) error
}

// Runner composes validation, enrichment, and aggregation over a batch of
// raw records. It owns the only state that spans records within a run: the
// seen-id set, the running summary, and the per-product lookup cache. All
// three are created at Run entry and discarded when the results are
// returned, so nothing leaks across runs; a lookup that failed in one run
// is retried fresh in the next.
type Runner struct {
	lookup  catalog.Lookup
	logSink RunLogSink
	workers int
	topN    int
}

// Option customizes a Runner.
type Option func(*Runner)

// WithWorkers bounds the enrichment worker pool.
func WithWorkers(n int) Option {
	return func(r *Runner) {
		if n > 0 {
			r.workers = n
		}
	}
}

// WithRunLog attaches a sink for record-level issues.
func WithRunLog(sink RunLogSink) Option {
	return func(r *Runner) {
		r.logSink = sink
	}
}

// WithTopN bounds the product and customer rankings in the summary.
func WithTopN(n int) Option {
	return func(r *Runner) {
		if n > 0 {
			r.topN = n
		}
	}
}

// NewRunner creates a pipeline runner. A nil lookup runs the pipeline in
// skip mode: records are validated and aggregated but carry status
// LOOKUP_SKIPPED.
func NewRunner(lookup catalog.Lookup, opts ...Option) *Runner {
	runner := &Runner{
		lookup:  lookup,
		workers: defaultWorkers,
		topN:    defaultTopN,
	}
	for _, opt := range opts {
		opt(runner)
	}
	return runner
}

// Result is the complete output contract of one run.
type Result struct {
	RunID    uuid.UUID               `json:"run_id"`
	Enriched []domain.EnrichedRecord `json:"enriched"`
	Rejected []domain.RejectedRecord `json:"rejected"`
	Summary  domain.AnalysisSummary  `json:"summary"`
	Duration time.Duration           `json:"duration_ns"`
}

type enrichJob struct {
	index  int
	record domain.ValidatedRecord
}

type enrichOutcome struct {
	index   int
	record  domain.EnrichedRecord
	failure *LookupFailure
}

// Run validates every record in input order (first-seen-wins for duplicate
// transaction ids), fans surviving records out to a bounded enrichment
// worker pool, and folds each enriched record into the summary as it is
// produced. A bad record never aborts the run; the only fatal condition
// Run itself raises is context cancellation.
func (r *Runner) Run(ctx context.Context, records []domain.RawRecord) (Result, error) {
	start := time.Now()
	log := logger.FromContext(ctx)
	runID := uuid.New()
	log.Info().Str("run_id", runID.String()).Int("records", len(records)).Msg("pipeline run started")

	seen := make(SeenIDs, len(records))
	rejected := make([]domain.RejectedRecord, 0)
	aggregator := NewAggregator(r.topN)

	// The lookup cache is scoped to this run: repeat product ids within the
	// batch collapse into one call, but outcomes are not carried into later
	// runs, so a catalog that recovers is retried.
	lookup := r.lookup
	if lookup != nil {
		lookup = catalog.NewCachedLookup(lookup)
	}
	enricher := NewEnricher(lookup)

	// Validation runs sequentially in input order; duplicate detection
	// needs the serialization point. The id is only marked seen on
	// acceptance, so the first otherwise-valid record wins.
	accepted := 0
	pending := make([]enrichJob, 0, len(records))
	for _, raw := range records {
		validated, rejection := Validate(raw, seen)
		if rejection != nil {
			rejected = append(rejected, *rejection)
			r.recordRejection(ctx, runID, *rejection)
			continue
		}
		seen.Add(validated.TransactionID)
		pending = append(pending, enrichJob{index: accepted, record: validated})
		accepted++
	}

	enriched := make([]domain.EnrichedRecord, accepted)
	jobs := make(chan enrichJob)
	outcomes := make(chan enrichOutcome)

	var wg sync.WaitGroup
	for i := 0; i < r.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range jobs {
				record, failure := enricher.Enrich(ctx, job.record)
				select {
				case outcomes <- enrichOutcome{index: job.index, record: record, failure: failure}:
				case <-ctx.Done():
					return
				}
			}
		}()
	}
	go func() {
		wg.Wait()
		close(outcomes)
	}()

	// Collector: the single goroutine allowed to touch the aggregator.
	// Completion order does not matter, folding is commutative; the index
	// keeps the enriched slice in acceptance order.
	collectorDone := make(chan struct{})
	go func() {
		defer close(collectorDone)
		for outcome := range outcomes {
			enriched[outcome.index] = outcome.record
			aggregator.Fold(outcome.record)
			if outcome.failure != nil {
				r.recordLookupFailure(ctx, runID, outcome.failure)
			}
		}
	}()

	var runErr error
feed:
	for _, job := range pending {
		select {
		case jobs <- job:
		case <-ctx.Done():
			runErr = ctx.Err()
			break feed
		}
	}
	close(jobs)
	<-collectorDone

	if runErr == nil && ctx.Err() != nil {
		runErr = ctx.Err()
	}
	if runErr != nil {
		return Result{}, runErr
	}

	summary := aggregator.Finalize()
	duration := time.Since(start)
	log.Info().
		Str("run_id", runID.String()).
		Int("accepted", accepted).
		Int("rejected", len(rejected)).
		Int("lookup_failed", summary.LookupFailedCount).
		Dur("duration", duration).
		Msg("pipeline run finished")

	return Result{
		RunID:    runID,
		Enriched: enriched,
		Rejected: rejected,
		Summary:  summary,
		Duration: duration,
	}, nil
}

func (r *Runner) recordRejection(ctx context.Context, runID uuid.UUID, rej domain.RejectedRecord) {
	log := logger.FromContext(ctx)
	log.Warn().
		Str("run_id", runID.String()).
		Str("transaction_id", rej.Raw.TransactionID).
		Str("reason", string(rej.Reason)).
		Str("detail", rej.Detail).
		Msg("record rejected")
	if r.logSink == nil {
		return
	}
	entry := domain.RunLogEntry{
		RunID:         runID,
		Kind:          domain.RunLogRejection,
		TransactionID: rej.Raw.TransactionID,
		ProductID:     rej.Raw.ProductID,
		Reason:        string(rej.Reason),
		Detail:        rej.Detail,
	}
	if rej.Raw.Line > 0 {
		line := rej.Raw.Line
		entry.Line = &line
	}
	if err := r.logSink.Record(ctx, entry); err != nil {
		log.Error().Err(err).Msg("failed to persist rejection log entry")
	}
}

func (r *Runner) recordLookupFailure(ctx context.Context, runID uuid.UUID, failure *LookupFailure) {
	if r.logSink == nil {
		return
	}
	entry := domain.RunLogEntry{
		RunID:         runID,
		Kind:          domain.RunLogLookupFailure,
		TransactionID: failure.TransactionID,
		ProductID:     failure.ProductID,
		Reason:        string(failure.Kind),
		Detail:        failure.Detail,
	}
	if err := r.logSink.Record(ctx, entry); err != nil {
		log := logger.FromContext(ctx)
		log.Error().Err(err).Msg("failed to persist lookup failure log entry")
	}
}
