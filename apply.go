package main

import (
	"database/sql"

	"github.com/google/uuid"
)

// applyMatchExisting links a ticket to an existing intent in one
// transaction. No intent row is written.
func applyMatchExisting(db *sql.DB, ticketID int64, intentID string, stats *RunStats) error {
	tx, err := db.Begin()
	if err != nil {
		return &PersistenceError{Op: "link", Entity: "ticket", Err: err}
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`UPDATE tickets SET intent_id = ? WHERE id = ?`, intentID, ticketID); err != nil {
		return &PersistenceError{Op: "link", Entity: "ticket", Err: err}
	}
	if err := tx.Commit(); err != nil {
		return &PersistenceError{Op: "link", Entity: "ticket", Err: err}
	}

	stats.Matched++
	metricIntentsMatched.Inc()
	return nil
}

// applyCreateNew mints a new intent from the decision's category names and
// intent name, links the ticket to it, and commits both in one transaction.
// The returned id did not previously exist.
func applyCreateNew(db *sql.DB, ticketID int64, a Assignment, stats *RunStats) (string, error) {
	intentID := uuid.NewString()
	l1, l2, l3 := normalizeCategoryLevels(a.CategoryL1, a.CategoryL2, a.CategoryL3)

	tx, err := db.Begin()
	if err != nil {
		return "", &PersistenceError{Op: "create", Entity: "intent", Err: err}
	}
	defer tx.Rollback()

	if _, err := tx.Exec(
		`INSERT INTO intents (id, name, category_l1, category_l2, category_l3) VALUES (?, ?, ?, ?, ?)`,
		intentID, a.IntentName, nullable(l1), nullable(l2), nullable(l3),
	); err != nil {
		return "", &PersistenceError{Op: "create", Entity: "intent", Err: err}
	}
	if _, err := tx.Exec(`UPDATE tickets SET intent_id = ? WHERE id = ?`, intentID, ticketID); err != nil {
		return "", &PersistenceError{Op: "link", Entity: "ticket", Err: err}
	}
	if err := tx.Commit(); err != nil {
		return "", &PersistenceError{Op: "create", Entity: "intent", Err: err}
	}

	stats.Created++
	metricIntentsCreated.Inc()
	return intentID, nil
}

// normalizeCategoryLevels drops everything after the first unset level so a
// stored level k always has level k-1 present.
func normalizeCategoryLevels(l1, l2, l3 string) (string, string, string) {
	if l1 == "" {
		return "", "", ""
	}
	if l2 == "" {
		return l1, "", ""
	}
	return l1, l2, l3
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
