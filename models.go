package main

import (
	"strings"
	"time"
)

// Decision tags returned by the reasoning service for each ticket.
const (
	DecisionMatchExisting = "match_existing"
	DecisionCreateNew     = "create_new"
)

// TicketRecord is a parsed upload row before it has a database identity.
type TicketRecord struct {
	Subject   string    `json:"subject"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at,omitempty"`
}

type Ticket struct {
	ID        int64
	Subject   string
	Body      string
	IntentID  string // empty until a clustering pass assigns one
	CreatedAt time.Time
}

// Intent is a named category tickets are clustered into. Category levels
// are optional but a level is only meaningful when the one above it is set.
type Intent struct {
	ID         string // uuid
	Name       string
	CategoryL1 string
	CategoryL2 string
	CategoryL3 string
	Area       string
	Processed  bool

	// A/B experiment accounting.
	VariantAImpressions int64
	VariantBImpressions int64
	VariantAResolutions int64
	VariantBResolutions int64

	CreatedAt time.Time
}

// CategoryPath renders the set levels as "L1 > L2 > L3", stopping at the
// first unset level.
func (i Intent) CategoryPath() string {
	var parts []string
	for _, level := range []string{i.CategoryL1, i.CategoryL2, i.CategoryL3} {
		level = strings.TrimSpace(level)
		if level == "" {
			break
		}
		parts = append(parts, level)
	}
	return strings.Join(parts, " > ")
}

// Assignment is the per-ticket verdict for one batch. For create_new
// decisions IntentID holds the minted intent id once the decision has been
// applied.
type Assignment struct {
	TicketIndex int     `json:"ticket_index"`
	Decision    string  `json:"decision"`
	IntentID    string  `json:"intent_id,omitempty"`
	CategoryL1  string  `json:"category_l1,omitempty"`
	CategoryL2  string  `json:"category_l2,omitempty"`
	CategoryL3  string  `json:"category_l3,omitempty"`
	IntentName  string  `json:"intent_name,omitempty"`
	Confidence  float64 `json:"confidence"`
	Rationale   string  `json:"rationale,omitempty"`
}

// BatchResult is the ordered assignment list for one batch. It is the value
// cached under the batch's fingerprint key.
type BatchResult struct {
	Assignments []Assignment `json:"assignments"`
}

// RunStats accumulates matched/created counts across a clustering pass.
type RunStats struct {
	Matched int
	Created int
}

// UploadSummary is what the upload caller gets back for one batch.
type UploadSummary struct {
	TotalTickets    int
	ClustersCreated int
	FromCache       bool
}

type Article struct {
	ID          int64
	Title       string
	Body        string
	Published   bool
	PublishedAt time.Time
}
