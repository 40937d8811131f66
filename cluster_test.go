package main

import (
	"context"
	"errors"
	"strings"
	"testing"
)

// stubReasoningClient returns a canned batch result and counts calls.
type stubReasoningClient struct {
	result BatchResult
	err    error
	calls  int
}

func (s *stubReasoningClient) Complete(_ context.Context, _ ClusterRequest) (BatchResult, LLMUsage, error) {
	s.calls++
	if s.err != nil {
		return BatchResult{}, LLMUsage{}, s.err
	}
	return s.result, LLMUsage{InputTokens: 10, OutputTokens: 5}, nil
}

func TestProcessBatchAllCreateNew(t *testing.T) {
	db := newTestDB(t)
	tickets, err := InsertTickets(db, []TicketRecord{
		{Subject: "Login broken", Body: "cannot sign in"},
		{Subject: "Refund", Body: "charged twice"},
		{Subject: "Slow app", Body: "pages take forever"},
	})
	if err != nil {
		t.Fatalf("InsertTickets failed: %v", err)
	}

	llm := &stubReasoningClient{result: BatchResult{Assignments: []Assignment{
		{TicketIndex: 0, Decision: DecisionCreateNew, CategoryL1: "Account", IntentName: "Login failures", Confidence: 0.9},
		{TicketIndex: 1, Decision: DecisionCreateNew, CategoryL1: "Billing", CategoryL2: "Refunds", IntentName: "Double charge", Confidence: 0.85},
		{TicketIndex: 2, Decision: DecisionCreateNew, CategoryL1: "Performance", IntentName: "Slow pages", Confidence: 0.7},
	}}}

	stats := RunStats{}
	assignments, err := ProcessBatch(context.Background(), db, llm, tickets, nil, 0.2, &stats)
	if err != nil {
		t.Fatalf("ProcessBatch failed: %v", err)
	}
	if llm.calls != 1 {
		t.Fatalf("expected exactly one reasoning call per batch, got %d", llm.calls)
	}
	if len(assignments) != len(tickets) {
		t.Fatalf("expected %d assignments, got %d", len(tickets), len(assignments))
	}
	if stats.Created != 3 || stats.Matched != 0 {
		t.Fatalf("unexpected stats: %+v", stats)
	}

	// Indices cover exactly {0, 1, 2} with no duplicates.
	covered := map[int]bool{}
	for _, a := range assignments {
		if covered[a.TicketIndex] {
			t.Fatalf("duplicate index %d", a.TicketIndex)
		}
		covered[a.TicketIndex] = true
		if a.IntentID == "" {
			t.Fatalf("create_new assignment missing minted intent id: %+v", a)
		}
	}
	for i := range tickets {
		if !covered[i] {
			t.Fatalf("index %d not covered", i)
		}
	}

	count, err := CountIntents(db)
	if err != nil {
		t.Fatalf("CountIntents failed: %v", err)
	}
	if count != 3 {
		t.Fatalf("expected 3 new intents, got %d", count)
	}
	for i, a := range assignments {
		ticket, err := GetTicketByID(db, tickets[a.TicketIndex].ID)
		if err != nil {
			t.Fatalf("GetTicketByID failed: %v", err)
		}
		if ticket.IntentID != a.IntentID {
			t.Fatalf("assignment %d: ticket intent %q != assignment intent %q", i, ticket.IntentID, a.IntentID)
		}
	}
}

func TestProcessBatchCreateNewMintsFreshIDs(t *testing.T) {
	db := newTestDB(t)
	tickets, _ := InsertTickets(db, []TicketRecord{{Subject: "s", Body: "b"}})

	stats := RunStats{}
	existingID, err := applyCreateNew(db, insertOneTicket(t, db), Assignment{IntentName: "Seed", CategoryL1: "Misc"}, &stats)
	if err != nil {
		t.Fatalf("seeding intent failed: %v", err)
	}
	existing, err := ListIntents(db)
	if err != nil {
		t.Fatalf("ListIntents failed: %v", err)
	}

	llm := &stubReasoningClient{result: BatchResult{Assignments: []Assignment{
		{TicketIndex: 0, Decision: DecisionCreateNew, CategoryL1: "Billing", IntentName: "New one", Confidence: 0.9},
	}}}
	assignments, err := ProcessBatch(context.Background(), db, llm, tickets, existing, 0, &stats)
	if err != nil {
		t.Fatalf("ProcessBatch failed: %v", err)
	}
	if assignments[0].IntentID == existingID {
		t.Fatalf("create_new reused an existing intent id")
	}
	for _, intent := range existing {
		if assignments[0].IntentID == intent.ID {
			t.Fatalf("minted id %q collides with existing intent", assignments[0].IntentID)
		}
	}
}

func TestProcessBatchMatchExistingCreatesNoRows(t *testing.T) {
	db := newTestDB(t)

	stats := RunStats{}
	seedID, err := applyCreateNew(db, insertOneTicket(t, db), Assignment{IntentName: "Seed", CategoryL1: "Misc"}, &stats)
	if err != nil {
		t.Fatalf("seeding intent failed: %v", err)
	}
	before, _ := CountIntents(db)

	tickets, _ := InsertTickets(db, []TicketRecord{{Subject: "s", Body: "b"}})
	existing, _ := ListIntents(db)

	llm := &stubReasoningClient{result: BatchResult{Assignments: []Assignment{
		{TicketIndex: 0, Decision: DecisionMatchExisting, IntentID: seedID, Confidence: 0.95},
	}}}
	stats = RunStats{}
	if _, err := ProcessBatch(context.Background(), db, llm, tickets, existing, 0, &stats); err != nil {
		t.Fatalf("ProcessBatch failed: %v", err)
	}

	after, _ := CountIntents(db)
	if after != before {
		t.Fatalf("match_existing created intent rows: before=%d after=%d", before, after)
	}
	if stats.Matched != 1 || stats.Created != 0 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
	ticket, _ := GetTicketByID(db, tickets[0].ID)
	if ticket.IntentID != seedID {
		t.Fatalf("ticket not linked to existing intent: %q", ticket.IntentID)
	}
}

func TestProcessBatchCountMismatchFailsWholeBatch(t *testing.T) {
	db := newTestDB(t)
	tickets, _ := InsertTickets(db, []TicketRecord{
		{Subject: "a", Body: "a"},
		{Subject: "b", Body: "b"},
	})

	llm := &stubReasoningClient{result: BatchResult{Assignments: []Assignment{
		{TicketIndex: 0, Decision: DecisionCreateNew, IntentName: "only one", Confidence: 1},
	}}}
	stats := RunStats{}
	_, err := ProcessBatch(context.Background(), db, llm, tickets, nil, 0, &stats)

	var shape *ShapeViolationError
	if !errors.As(err, &shape) {
		t.Fatalf("expected ShapeViolationError, got %v", err)
	}
	if shape.Reason != ReasonAssignmentCount || shape.Expected != 2 || shape.Actual != 1 {
		t.Fatalf("unexpected violation fields: %+v", shape)
	}
	if !strings.Contains(err.Error(), "expected 2") || !strings.Contains(err.Error(), "got 1") {
		t.Fatalf("error must name expected vs actual count: %v", err)
	}

	// Nothing was written.
	if count, _ := CountIntents(db); count != 0 {
		t.Fatalf("failed batch must not persist intents, got %d", count)
	}
}

func TestProcessBatchInvalidIndexFailsBeforeWriting(t *testing.T) {
	db := newTestDB(t)
	tickets, _ := InsertTickets(db, []TicketRecord{
		{Subject: "a", Body: "a"},
		{Subject: "b", Body: "b"},
		{Subject: "c", Body: "c"},
	})

	llm := &stubReasoningClient{result: BatchResult{Assignments: []Assignment{
		{TicketIndex: 0, Decision: DecisionCreateNew, IntentName: "x", Confidence: 1},
		{TicketIndex: 5, Decision: DecisionCreateNew, IntentName: "y", Confidence: 1},
		{TicketIndex: 2, Decision: DecisionCreateNew, IntentName: "z", Confidence: 1},
	}}}
	stats := RunStats{}
	_, err := ProcessBatch(context.Background(), db, llm, tickets, nil, 0, &stats)

	var shape *ShapeViolationError
	if !errors.As(err, &shape) {
		t.Fatalf("expected ShapeViolationError, got %v", err)
	}
	if shape.Reason != ReasonTicketIndex || shape.Index != 5 {
		t.Fatalf("unexpected violation fields: %+v", shape)
	}
	if !strings.Contains(err.Error(), "5") {
		t.Fatalf("error must name the invalid index: %v", err)
	}

	// Index validation happens before dispatch, so even the valid
	// assignments wrote nothing.
	if count, _ := CountIntents(db); count != 0 {
		t.Fatalf("failed batch must not persist intents, got %d", count)
	}
}

func TestProcessBatchDuplicateIndexFails(t *testing.T) {
	db := newTestDB(t)
	tickets, _ := InsertTickets(db, []TicketRecord{
		{Subject: "a", Body: "a"},
		{Subject: "b", Body: "b"},
	})

	llm := &stubReasoningClient{result: BatchResult{Assignments: []Assignment{
		{TicketIndex: 0, Decision: DecisionCreateNew, IntentName: "x", Confidence: 1},
		{TicketIndex: 0, Decision: DecisionCreateNew, IntentName: "y", Confidence: 1},
	}}}
	stats := RunStats{}
	_, err := ProcessBatch(context.Background(), db, llm, tickets, nil, 0, &stats)

	var shape *ShapeViolationError
	if !errors.As(err, &shape) {
		t.Fatalf("expected ShapeViolationError, got %v", err)
	}
	if shape.Reason != ReasonDuplicateIndex || shape.Index != 0 {
		t.Fatalf("unexpected violation fields: %+v", shape)
	}
}

func TestProcessBatchUnknownDecisionTagFails(t *testing.T) {
	db := newTestDB(t)
	tickets, _ := InsertTickets(db, []TicketRecord{{Subject: "a", Body: "a"}})

	llm := &stubReasoningClient{result: BatchResult{Assignments: []Assignment{
		{TicketIndex: 0, Decision: "unknown_decision", Confidence: 1},
	}}}
	stats := RunStats{}
	_, err := ProcessBatch(context.Background(), db, llm, tickets, nil, 0, &stats)

	var shape *ShapeViolationError
	if !errors.As(err, &shape) {
		t.Fatalf("expected ShapeViolationError, got %v", err)
	}
	if shape.Reason != ReasonDecisionTag || shape.Tag != "unknown_decision" {
		t.Fatalf("unexpected violation fields: %+v", shape)
	}
	if !strings.Contains(err.Error(), "unknown_decision") {
		t.Fatalf("error must name the unrecognized tag: %v", err)
	}
}

func TestProcessBatchTransportErrorPropagates(t *testing.T) {
	db := newTestDB(t)
	tickets, _ := InsertTickets(db, []TicketRecord{{Subject: "a", Body: "a"}})

	cause := errors.New("connection reset")
	llm := &stubReasoningClient{err: &TransportError{Op: "anthropic messages", Err: cause}}
	stats := RunStats{}
	_, err := ProcessBatch(context.Background(), db, llm, tickets, nil, 0, &stats)

	var transport *TransportError
	if !errors.As(err, &transport) {
		t.Fatalf("expected TransportError, got %v", err)
	}
	if !errors.Is(err, cause) {
		t.Fatalf("transport error must carry the original cause")
	}
	if llm.calls != 1 {
		t.Fatalf("transport failures must not be retried, calls=%d", llm.calls)
	}
}

func TestProcessBatchEmptyBatchIsNoOp(t *testing.T) {
	db := newTestDB(t)
	llm := &stubReasoningClient{}
	stats := RunStats{}
	assignments, err := ProcessBatch(context.Background(), db, llm, nil, nil, 0, &stats)
	if err != nil || assignments != nil {
		t.Fatalf("empty batch should be a no-op, got %v / %v", assignments, err)
	}
	if llm.calls != 0 {
		t.Fatalf("empty batch must not invoke the reasoning service")
	}
}
