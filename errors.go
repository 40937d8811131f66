package main

import "fmt"

// Shape violation reasons.
const (
	ReasonAssignmentCount = "assignment_count"
	ReasonTicketIndex     = "ticket_index"
	ReasonDuplicateIndex  = "duplicate_index"
	ReasonDecisionTag     = "decision_tag"
)

// ShapeViolationError reports a reasoning-service response that does not
// match the batch contract. It is batch-fatal and never retried.
type ShapeViolationError struct {
	Reason   string
	Expected int
	Actual   int
	Index    int
	Tag      string
}

func (e *ShapeViolationError) Error() string {
	switch e.Reason {
	case ReasonAssignmentCount:
		return fmt.Sprintf("assignment count mismatch: expected %d, got %d", e.Expected, e.Actual)
	case ReasonTicketIndex:
		return fmt.Sprintf("ticket index %d out of range [0, %d)", e.Index, e.Expected)
	case ReasonDuplicateIndex:
		return fmt.Sprintf("duplicate ticket index %d", e.Index)
	case ReasonDecisionTag:
		return fmt.Sprintf("unrecognized decision tag %q for ticket index %d", e.Tag, e.Index)
	}
	return fmt.Sprintf("shape violation: %s", e.Reason)
}

// TransportError wraps a failure talking to the reasoning service. It
// propagates to the caller untouched; retry policy lives with the caller.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// PersistenceError wraps a storage failure during decision application,
// carrying the original cause.
type PersistenceError struct {
	Op     string
	Entity string
	Err    error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Entity, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }
