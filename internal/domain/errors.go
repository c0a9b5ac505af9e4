package domain

import "errors"

// Common domain errors for the execution and synthesis engine.
var (
	// ErrUnknownKind indicates a worker or evidence kind outside the
	// closed enumeration.
	ErrUnknownKind = errors.New("unknown kind")

	// ErrNilWorker indicates an attempt to register a nil worker.
	ErrNilWorker = errors.New("worker cannot be nil")

	// ErrMissingKind indicates a worker that declares no kind. This is
	// fatal at registration time, never a per-request condition.
	ErrMissingKind = errors.New("worker declares no kind")

	// ErrNoWorker indicates that no worker is registered for the
	// requested kind.
	ErrNoWorker = errors.New("no worker registered for kind")

	// ErrUnknownSynthesisKind indicates a synthesis kind outside the
	// supported set.
	ErrUnknownSynthesisKind = errors.New("unknown synthesis kind")
)
