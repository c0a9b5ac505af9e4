// Package ports defines the interfaces that form the contract between
// the domain/engine layers and the infrastructure layer. These interfaces
// enable dependency inversion and make the system testable.
package ports

import (
	"context"

	"github.com/trialmind/trialmind/internal/domain"
)

// Worker is the uniform contract every analytical unit implements.
// A worker performs one specialty's analysis over a read-only execution
// context and surfaces everything it learned in the returned result.
// Workers must be stateless and safe for concurrent execution; the
// dispatcher holds exactly one instance per kind and may run it for many
// requests at once.
type Worker interface {
	// Kind returns the specialty this worker is registered under.
	// A worker returning an empty or invalid kind fails registration.
	Kind() domain.WorkerKind

	// Execute performs the analysis. The execution context must be
	// treated as read-only; results travel only through the returned
	// WorkerResult. Execute may fail by returning an error, which the
	// execution wrapper converts into a failed result — errors never
	// reach the dispatcher raw.
	//
	// The context parameter carries the per-run deadline; workers
	// should respect cancellation and return promptly.
	Execute(ctx context.Context, ec *domain.ExecutionContext) (*domain.WorkerResult, error)

	// Validate checks that the worker is properly configured and ready
	// for execution. It is called once at registration time.
	Validate() error
}
