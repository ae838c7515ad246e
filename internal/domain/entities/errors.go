package entities

import "errors"

// Domain error taxonomy. Storage faults are not part of it: unexpected
// persistence failures propagate as ordinary wrapped errors and are not
// retried by the engine.
var (
	// ErrNotFound means the unit is absent within the requested window.
	ErrNotFound = errors.New("item not found")

	// ErrBadRequest means the request violates a structural invariant:
	// a duplicate id in one import batch, a price on a category, a missing
	// or negative price on an offer, a unit referencing itself as parent,
	// a parent whose governing revision is an offer, a kind change across
	// revisions, or a duplicate (unit, date) pair.
	ErrBadRequest = errors.New("validation failed")

	// ErrTimeout means an aggregation exceeded its wall-clock budget
	// mid-stream. Fragments already flushed are not retracted; the caller
	// must treat the truncated stream as a failed request.
	ErrTimeout = errors.New("stream timed out")
)
