// Package engine contains the execution wrapper and dispatcher that run
// analytical workers singly, in parallel batches, or in staged pipelines
// with frozen shared state.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/trialmind/trialmind/internal/domain"
	"github.com/trialmind/trialmind/internal/ports"
)

// callCounterKey carries the per-run generation-call counter through the
// context so worker helpers can increment it without threading state.
type callCounterKey struct{}

func withCallCounter(ctx context.Context) (context.Context, *atomic.Int64) {
	counter := &atomic.Int64{}
	return context.WithValue(ctx, callCounterKey{}, counter), counter
}

// CountGenerationCall increments the current run's generation-call
// counter and returns the new total. Outside a wrapped run it is a no-op
// returning zero; generation calls made there are simply not attributed.
func CountGenerationCall(ctx context.Context) int {
	counter, ok := ctx.Value(callCounterKey{}).(*atomic.Int64)
	if !ok {
		return 0
	}
	return int(counter.Add(1))
}

// GenerationCalls reports the calls counted so far in the current run.
func GenerationCalls(ctx context.Context) int {
	counter, ok := ctx.Value(callCounterKey{}).(*atomic.Int64)
	if !ok {
		return 0
	}
	return int(counter.Load())
}

// Run is the non-overridable wrapper around every worker execution. It
// starts the wall-clock timer, resets the generation-call counter,
// enforces the context's deadline, converts errors and panics into
// failed results, and stamps timing and call counts onto the outcome.
// Workers never propagate raw errors past this boundary.
func Run(ctx context.Context, worker ports.Worker, ec *domain.ExecutionContext) *domain.WorkerResult {
	start := time.Now()
	kind := worker.Kind()
	deadline := ec.EffectiveDeadline()

	runCtx, cancel := context.WithTimeout(ctx, deadline)
	defer cancel()
	runCtx, counter := withCallCounter(runCtx)

	type outcome struct {
		result *domain.WorkerResult
		err    error
	}
	done := make(chan outcome, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- outcome{err: fmt.Errorf("worker panicked: %v", r)}
			}
		}()
		result, err := worker.Execute(runCtx, ec)
		done <- outcome{result: result, err: err}
	}()

	var result *domain.WorkerResult
	select {
	case <-runCtx.Done():
		if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
			result = domain.FailedResult(kind, fmt.Errorf("timed out after %ds", int(deadline.Seconds())))
		} else {
			result = domain.FailedResult(kind, runCtx.Err())
		}
	case out := <-done:
		switch {
		case out.err != nil:
			result = domain.FailedResult(kind, out.err)
		case out.result == nil:
			result = domain.FailedResult(kind, fmt.Errorf("worker returned no result"))
		default:
			result = out.result
			if result.Kind == "" {
				result.Kind = kind
			}
		}
	}

	result.Finalize(start, int(counter.Load()))
	return result
}
