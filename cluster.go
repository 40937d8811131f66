package main

import (
	"context"
	"database/sql"
	"log"
)

// ProcessBatch drives one reasoning-service call for a whole batch of
// unassigned tickets, validates the response shape, and applies each
// decision. Any validation or transport failure aborts the batch as a unit;
// nothing is written before validation of the assignment count and ticket
// indices has passed. Errors are never retried here.
func ProcessBatch(ctx context.Context, db *sql.DB, llm ReasoningClient, tickets []Ticket, existing []Intent, temperature float64, stats *RunStats) ([]Assignment, error) {
	if len(tickets) == 0 {
		return nil, nil
	}

	req := BuildClusterRequest(tickets, existing, temperature)

	result, usage, err := llm.Complete(ctx, req)
	if err != nil {
		return nil, err
	}
	log.Printf("clustering batch tickets=%d intents=%d tokens=%d", len(tickets), len(existing), usage.TotalTokens())

	assignments := result.Assignments
	if len(assignments) != len(tickets) {
		return nil, &ShapeViolationError{
			Reason:   ReasonAssignmentCount,
			Expected: len(tickets),
			Actual:   len(assignments),
		}
	}

	seen := make(map[int]bool, len(assignments))
	for _, a := range assignments {
		if a.TicketIndex < 0 || a.TicketIndex >= len(tickets) {
			return nil, &ShapeViolationError{
				Reason:   ReasonTicketIndex,
				Expected: len(tickets),
				Index:    a.TicketIndex,
			}
		}
		if seen[a.TicketIndex] {
			return nil, &ShapeViolationError{
				Reason: ReasonDuplicateIndex,
				Index:  a.TicketIndex,
			}
		}
		seen[a.TicketIndex] = true
	}

	for i := range assignments {
		a := &assignments[i]
		ticket := tickets[a.TicketIndex]
		switch a.Decision {
		case DecisionMatchExisting:
			if err := applyMatchExisting(db, ticket.ID, a.IntentID, stats); err != nil {
				return nil, err
			}
		case DecisionCreateNew:
			intentID, err := applyCreateNew(db, ticket.ID, *a, stats)
			if err != nil {
				return nil, err
			}
			a.IntentID = intentID
		default:
			return nil, &ShapeViolationError{
				Reason: ReasonDecisionTag,
				Index:  a.TicketIndex,
				Tag:    a.Decision,
			}
		}
	}

	metricBatchesClustered.Inc()
	return assignments, nil
}
