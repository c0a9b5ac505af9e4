package engine

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/trialmind/trialmind/internal/domain"
	"github.com/trialmind/trialmind/internal/ports"
)

// Dispatcher holds exactly one worker instance per kind and runs workers
// singly, in parallel batches, or in staged pipelines. The kind-to-worker
// map is written only during registration at startup and is treated as
// read-only during execution, so lookups need no locking on the hot path.
type Dispatcher struct {
	mu      sync.RWMutex
	workers map[domain.WorkerKind]ports.Worker
	logger  *zap.Logger
	metrics ports.MetricsCollector
	tracer  trace.Tracer
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithLogger sets the structured logger used for warnings.
func WithLogger(logger *zap.Logger) Option {
	return func(d *Dispatcher) { d.logger = logger }
}

// WithMetrics sets the collector receiving per-run metrics.
func WithMetrics(metrics ports.MetricsCollector) Option {
	return func(d *Dispatcher) { d.metrics = metrics }
}

// NewDispatcher creates an empty dispatcher ready for registration.
func NewDispatcher(opts ...Option) *Dispatcher {
	d := &Dispatcher{
		workers: make(map[domain.WorkerKind]ports.Worker),
		logger:  zap.NewNop(),
		tracer:  otel.Tracer("trialmind/engine"),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Register adds a worker under its declared kind. A worker declaring no
// kind, failing its own validation, or colliding with an already
// registered kind is a registration error — fatal at startup, never a
// per-request state to recover from.
func (d *Dispatcher) Register(worker ports.Worker) error {
	if worker == nil {
		return domain.ErrNilWorker
	}

	kind := worker.Kind()
	if kind == "" || !kind.Valid() {
		return fmt.Errorf("%w: %q", domain.ErrMissingKind, kind)
	}

	if err := worker.Validate(); err != nil {
		return fmt.Errorf("worker %s failed validation: %w", kind, err)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if _, exists := d.workers[kind]; exists {
		return fmt.Errorf("worker already registered for kind %s", kind)
	}
	d.workers[kind] = worker

	return nil
}

// RegisteredKinds returns the kinds with a registered worker.
func (d *Dispatcher) RegisteredKinds() []domain.WorkerKind {
	d.mu.RLock()
	defer d.mu.RUnlock()

	kinds := make([]domain.WorkerKind, 0, len(d.workers))
	for kind := range d.workers {
		kinds = append(kinds, kind)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}

func (d *Dispatcher) lookup(kind domain.WorkerKind) (ports.Worker, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	worker, ok := d.workers[kind]
	return worker, ok
}

// RunOne executes the worker registered for the given kind.
func (d *Dispatcher) RunOne(ctx context.Context, kind domain.WorkerKind, ec *domain.ExecutionContext) (*domain.WorkerResult, error) {
	worker, ok := d.lookup(kind)
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrNoWorker, kind)
	}
	return d.runInstrumented(ctx, worker, ec), nil
}

// RunParallel starts all requested workers concurrently against the same
// read-only context and awaits every one of them. One worker's failure
// or timeout never cancels or delays its siblings. Kinds with no
// registered worker are skipped with a logged warning rather than
// failing the batch.
func (d *Dispatcher) RunParallel(ctx context.Context, kinds []domain.WorkerKind, ec *domain.ExecutionContext) map[domain.WorkerKind]*domain.WorkerResult {
	type keyed struct {
		kind   domain.WorkerKind
		result *domain.WorkerResult
	}

	resultChan := make(chan keyed, len(kinds))
	var wg sync.WaitGroup

	started := 0
	for _, kind := range kinds {
		worker, ok := d.lookup(kind)
		if !ok {
			d.logger.Warn("no worker registered for kind, skipping",
				zap.String("kind", kind.String()),
				zap.String("request_id", ec.RequestID))
			continue
		}

		started++
		wg.Add(1)
		go func(kind domain.WorkerKind, worker ports.Worker) {
			defer wg.Done()
			// Run already converts worker errors and panics, but a
			// panic in the wrapper itself must not abort the batch.
			defer func() {
				if r := recover(); r != nil {
					resultChan <- keyed{kind, domain.FailedResult(kind, fmt.Errorf("execution panicked: %v", r))}
				}
			}()
			// Every worker gets its own snapshot of shared state so a
			// misbehaving worker cannot mutate what siblings read.
			resultChan <- keyed{kind, d.runInstrumented(ctx, worker, ec.WithSharedData(nil))}
		}(kind, worker)
	}

	go func() {
		wg.Wait()
		close(resultChan)
	}()

	results := make(map[domain.WorkerKind]*domain.WorkerResult, started)
	for entry := range resultChan {
		results[entry.kind] = entry.result
	}
	return results
}

// RunPipeline executes stages strictly in order with RunParallel
// semantics inside each stage. After a stage completes, every successful
// result is written into a fresh copy of the context's shared data
// before the next stage starts, so later stages observe a frozen
// snapshot of all prior successful results and never partial or failed
// state. The returned map is the union of every stage's results, with
// the most recent write per kind winning.
func (d *Dispatcher) RunPipeline(ctx context.Context, stages [][]domain.WorkerKind, initial *domain.ExecutionContext) map[domain.WorkerKind]*domain.WorkerResult {
	all := make(map[domain.WorkerKind]*domain.WorkerResult)
	current := initial

	for _, stage := range stages {
		stageResults := d.RunParallel(ctx, stage, current)

		successes := make(map[domain.WorkerKind]map[string]any)
		for kind, result := range stageResults {
			all[kind] = result
			if result.Success {
				successes[kind] = result.AsMap()
			}
		}

		current = current.WithSharedData(successes)
	}

	return all
}

// runInstrumented wraps Run with a trace span and execution metrics.
func (d *Dispatcher) runInstrumented(ctx context.Context, worker ports.Worker, ec *domain.ExecutionContext) *domain.WorkerResult {
	kind := worker.Kind()

	ctx, span := d.tracer.Start(ctx, "worker.run", trace.WithAttributes(
		attribute.String("worker.kind", kind.String()),
		attribute.String("request.id", ec.RequestID),
		attribute.String("study.id", ec.StudyID),
	))
	defer span.End()

	start := time.Now()
	result := Run(ctx, worker, ec)

	span.SetAttributes(
		attribute.Int64("worker.elapsed_ms", result.ElapsedMs),
		attribute.Int("worker.generation_calls", result.GenerationCalls),
	)
	if !result.Success {
		span.SetStatus(codes.Error, result.Error)
	}

	if d.metrics != nil {
		outcome := "success"
		if !result.Success {
			outcome = "failure"
		}
		labels := map[string]string{"kind": kind.String(), "outcome": outcome}
		d.metrics.RecordLatency("worker_run", time.Since(start), labels)
		d.metrics.RecordCounter("worker_runs_total", 1, labels)
		d.metrics.RecordCounter("worker_generation_calls_total", float64(result.GenerationCalls), labels)
	}

	return result
}
