package service

import "errors"

var (
	// ErrClassificationUnavailable means the external classifier call errored
	// or timed out. Transient: the adapter retries once, then the orchestrator
	// degrades the turn to a clarification.
	ErrClassificationUnavailable = errors.New("classification unavailable")

	// ErrMalformedResult means the classifier response could not be parsed as
	// minimally valid JSON. Not retriable.
	ErrMalformedResult = errors.New("malformed classifier result")

	// ErrSearchExecutionFailed means the persistence collaborator failed; the
	// turn fails with no partial result.
	ErrSearchExecutionFailed = errors.New("search execution failed")
)
