package main

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

func InitDB(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	schema := `
	CREATE TABLE IF NOT EXISTS tickets (
		id         INTEGER PRIMARY KEY AUTOINCREMENT,
		subject    TEXT NOT NULL,
		body       TEXT NOT NULL,
		intent_id  TEXT,
		created_at DATETIME NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_tickets_intent ON tickets(intent_id);
	CREATE INDEX IF NOT EXISTS idx_tickets_created_at ON tickets(created_at);

	CREATE TABLE IF NOT EXISTS intents (
		id                    TEXT PRIMARY KEY,
		name                  TEXT NOT NULL,
		category_l1           TEXT,
		category_l2           TEXT,
		category_l3           TEXT,
		area                  TEXT DEFAULT '',
		processed             INTEGER NOT NULL DEFAULT 0,
		variant_a_impressions INTEGER NOT NULL DEFAULT 0,
		variant_b_impressions INTEGER NOT NULL DEFAULT 0,
		variant_a_resolutions INTEGER NOT NULL DEFAULT 0,
		variant_b_resolutions INTEGER NOT NULL DEFAULT 0,
		created_at            DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_intents_area ON intents(area);

	CREATE TABLE IF NOT EXISTS cache_entries (
		key        TEXT PRIMARY KEY,
		value      TEXT NOT NULL,
		expires_at DATETIME NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_cache_expires ON cache_entries(expires_at);

	CREATE TABLE IF NOT EXISTS articles (
		id           INTEGER PRIMARY KEY AUTOINCREMENT,
		title        TEXT NOT NULL,
		body         TEXT NOT NULL,
		published    INTEGER NOT NULL DEFAULT 0,
		published_at DATETIME
	);
	`
	_, err = db.Exec(schema)
	if err != nil {
		return nil, err
	}

	return db, nil
}

// InsertTickets stores parsed upload rows in one transaction and returns
// them with their database identities, in input order.
func InsertTickets(db *sql.DB, records []TicketRecord) ([]Ticket, error) {
	tx, err := db.Begin()
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`INSERT INTO tickets (subject, body, created_at) VALUES (?, ?, ?)`)
	if err != nil {
		return nil, err
	}
	defer stmt.Close()

	tickets := make([]Ticket, 0, len(records))
	for _, rec := range records {
		createdAt := rec.CreatedAt
		if createdAt.IsZero() {
			createdAt = time.Now().UTC()
		}
		res, err := stmt.Exec(rec.Subject, rec.Body, createdAt)
		if err != nil {
			return nil, err
		}
		id, err := res.LastInsertId()
		if err != nil {
			return nil, err
		}
		tickets = append(tickets, Ticket{
			ID:        id,
			Subject:   rec.Subject,
			Body:      rec.Body,
			CreatedAt: createdAt,
		})
	}

	return tickets, tx.Commit()
}

func GetTicketByID(db *sql.DB, id int64) (Ticket, error) {
	var t Ticket
	var intentID sql.NullString
	err := db.QueryRow(
		`SELECT id, subject, body, intent_id, created_at FROM tickets WHERE id = ?`, id,
	).Scan(&t.ID, &t.Subject, &t.Body, &intentID, &t.CreatedAt)
	t.IntentID = intentID.String
	return t, err
}

func ListIntents(db *sql.DB) ([]Intent, error) {
	rows, err := db.Query(
		`SELECT id, name, category_l1, category_l2, category_l3, area, processed,
		        variant_a_impressions, variant_b_impressions,
		        variant_a_resolutions, variant_b_resolutions, created_at
		 FROM intents ORDER BY created_at, id`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var intents []Intent
	for rows.Next() {
		intent, err := scanIntent(rows)
		if err != nil {
			return nil, err
		}
		intents = append(intents, intent)
	}
	return intents, rows.Err()
}

func GetIntentByID(db *sql.DB, id string) (Intent, error) {
	row := db.QueryRow(
		`SELECT id, name, category_l1, category_l2, category_l3, area, processed,
		        variant_a_impressions, variant_b_impressions,
		        variant_a_resolutions, variant_b_resolutions, created_at
		 FROM intents WHERE id = ?`, id,
	)
	return scanIntent(row)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanIntent(row rowScanner) (Intent, error) {
	var intent Intent
	var l1, l2, l3 sql.NullString
	err := row.Scan(
		&intent.ID, &intent.Name, &l1, &l2, &l3, &intent.Area, &intent.Processed,
		&intent.VariantAImpressions, &intent.VariantBImpressions,
		&intent.VariantAResolutions, &intent.VariantBResolutions, &intent.CreatedAt,
	)
	intent.CategoryL1 = l1.String
	intent.CategoryL2 = l2.String
	intent.CategoryL3 = l3.String
	return intent, err
}

func CountIntents(db *sql.DB) (int, error) {
	var count int
	err := db.QueryRow(`SELECT COUNT(*) FROM intents`).Scan(&count)
	return count, err
}

// IncrementIntentImpression bumps the impression counter for one experiment
// variant ("a" or "b") in a single statement.
func IncrementIntentImpression(db *sql.DB, intentID, variant string) error {
	column, err := variantColumn(variant, "impressions")
	if err != nil {
		return err
	}
	_, err = db.Exec(`UPDATE intents SET `+column+` = `+column+` + 1 WHERE id = ?`, intentID)
	return err
}

// IncrementIntentResolution bumps the resolution counter for one experiment
// variant ("a" or "b") in a single statement.
func IncrementIntentResolution(db *sql.DB, intentID, variant string) error {
	column, err := variantColumn(variant, "resolutions")
	if err != nil {
		return err
	}
	_, err = db.Exec(`UPDATE intents SET `+column+` = `+column+` + 1 WHERE id = ?`, intentID)
	return err
}

func variantColumn(variant, kind string) (string, error) {
	switch variant {
	case "a":
		return "variant_a_" + kind, nil
	case "b":
		return "variant_b_" + kind, nil
	}
	return "", fmt.Errorf("unknown experiment variant %q", variant)
}

func InsertArticle(db *sql.DB, article Article) (int64, error) {
	res, err := db.Exec(
		`INSERT INTO articles (title, body, published, published_at) VALUES (?, ?, ?, ?)`,
		article.Title, article.Body, article.Published, article.PublishedAt,
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func GetPublishedArticleBody(db *sql.DB, id int64) (string, error) {
	var body string
	err := db.QueryRow(`SELECT body FROM articles WHERE id = ? AND published = 1`, id).Scan(&body)
	return body, err
}
