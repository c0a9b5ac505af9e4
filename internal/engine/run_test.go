package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trialmind/trialmind/internal/domain"
)

// fakeWorker is a configurable worker for exercising the wrapper and
// dispatcher without real analysis logic.
type fakeWorker struct {
	kind        domain.WorkerKind
	delay       time.Duration
	err         error
	panics      bool
	validateErr error
	execute     func(ctx context.Context, ec *domain.ExecutionContext) (*domain.WorkerResult, error)
}

func (w *fakeWorker) Kind() domain.WorkerKind { return w.kind }

func (w *fakeWorker) Validate() error { return w.validateErr }

func (w *fakeWorker) Execute(ctx context.Context, ec *domain.ExecutionContext) (*domain.WorkerResult, error) {
	if w.execute != nil {
		return w.execute(ctx, ec)
	}
	if w.panics {
		panic("unexpected analysis state")
	}
	if w.delay > 0 {
		select {
		case <-time.After(w.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if w.err != nil {
		return nil, w.err
	}
	result := domain.NewWorkerResult(w.kind)
	result.Data["finding"] = "ok"
	result.Confidence = 0.9
	return result, nil
}

func testContext() *domain.ExecutionContext {
	ec := domain.NewExecutionContext("req-1", "STUDY-001")
	ec.Deadline = 2 * time.Second
	return ec
}

func TestRunSuccessStampsTimingAndCalls(t *testing.T) {
	worker := &fakeWorker{
		kind: domain.WorkerData,
		execute: func(ctx context.Context, ec *domain.ExecutionContext) (*domain.WorkerResult, error) {
			CountGenerationCall(ctx)
			CountGenerationCall(ctx)
			result := domain.NewWorkerResult(domain.WorkerData)
			result.Confidence = 0.8
			return result, nil
		},
	}

	result := Run(context.Background(), worker, testContext())

	assert.True(t, result.Success)
	assert.Equal(t, 2, result.GenerationCalls)
	assert.GreaterOrEqual(t, result.ElapsedMs, int64(0))
	assert.Equal(t, 0.8, result.Confidence)
}

func TestRunConvertsErrorToFailedResult(t *testing.T) {
	worker := &fakeWorker{kind: domain.WorkerSafety, err: errors.New("dataset unreadable")}

	result := Run(context.Background(), worker, testContext())

	assert.False(t, result.Success)
	assert.Equal(t, "dataset unreadable", result.Error)
	assert.Equal(t, domain.WorkerSafety, result.Kind)
}

func TestRunConvertsPanicToFailedResult(t *testing.T) {
	worker := &fakeWorker{kind: domain.WorkerProtocol, panics: true}

	result := Run(context.Background(), worker, testContext())

	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "worker panicked")
}

func TestRunEnforcesDeadline(t *testing.T) {
	worker := &fakeWorker{kind: domain.WorkerLiterature, delay: 5 * time.Second}
	ec := testContext()
	ec.Deadline = 50 * time.Millisecond

	start := time.Now()
	result := Run(context.Background(), worker, ec)

	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "timed out after 0s")
	assert.Less(t, time.Since(start), time.Second, "timeout must not wait for the slow worker")
}

func TestRunTimeoutMessageUsesConfiguredDeadline(t *testing.T) {
	worker := &fakeWorker{kind: domain.WorkerLiterature, execute: func(ctx context.Context, ec *domain.ExecutionContext) (*domain.WorkerResult, error) {
		<-ctx.Done()
		time.Sleep(10 * time.Millisecond)
		return nil, ctx.Err()
	}}
	ec := testContext()
	ec.Deadline = 1 * time.Second

	result := Run(context.Background(), worker, ec)
	assert.Contains(t, result.Error, "timed out after 1s")
}

func TestRunNilResultWithoutError(t *testing.T) {
	worker := &fakeWorker{kind: domain.WorkerData, execute: func(ctx context.Context, ec *domain.ExecutionContext) (*domain.WorkerResult, error) {
		return nil, nil
	}}

	result := Run(context.Background(), worker, testContext())

	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "no result")
}

func TestCountGenerationCallOutsideRunIsNoop(t *testing.T) {
	assert.Equal(t, 0, CountGenerationCall(context.Background()))
	assert.Equal(t, 0, GenerationCalls(context.Background()))
}

func TestRunFinalizeDegradesUnbackedMixedDisplay(t *testing.T) {
	worker := &fakeWorker{kind: domain.WorkerData, execute: func(ctx context.Context, ec *domain.ExecutionContext) (*domain.WorkerResult, error) {
		result := domain.NewWorkerResult(domain.WorkerData)
		result.Display = domain.DisplayMixed
		return result, nil
	}}

	result := Run(context.Background(), worker, testContext())
	require.True(t, result.Success)
	assert.Equal(t, domain.DisplayNarrative, result.Display)
}
