package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mixelka/mailhook/pkg/models"
)

// InsertEmails writes records to the document sink and returns how many were
// new. Records without an id are dropped. Each record is written on its own so
// one failure does not block the rest; duplicate ids are skipped silently. Any
// other failure fails the call with a *PersistenceError after the remaining
// records have been attempted.
func (db *DB) InsertEmails(ctx context.Context, records []models.EmailRecord) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}

	batch := make([]models.EmailRecord, 0, len(records))
	for _, rec := range records {
		if rec.ID != "" {
			batch = append(batch, rec)
		}
	}
	if len(batch) == 0 {
		return 0, nil
	}

	query := db.expand(`
		INSERT INTO {emails} (id, subject, body, received_at, from_addr, category, created_at)
		VALUES (:id, :subject, :body, :received_at, :from_addr, :category, :created_at)
	`)
	stmt, err := db.PrepareNamedContext(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare email insert: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC()
	inserted := 0
	var failures []error
	for _, rec := range batch {
		rec.ReceivedAt = rec.ReceivedAt.UTC()
		rec.CreatedAt = now

		if _, err := stmt.ExecContext(ctx, rec); err != nil {
			if isDuplicateKey(err) {
				continue
			}
			failures = append(failures, fmt.Errorf("email %s: %w", rec.ID, err))
			continue
		}
		inserted++
	}

	if len(failures) > 0 {
		return inserted, newPersistenceError("insert emails", inserted, failures)
	}
	return inserted, nil
}

// GetEmail returns an email by provider id
func (db *DB) GetEmail(ctx context.Context, id string) (*models.EmailRecord, error) {
	var rec models.EmailRecord
	query := db.Rebind(db.expand(`SELECT * FROM {emails} WHERE id = ?`))
	err := db.GetContext(ctx, &rec, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get email: %w", err)
	}
	return &rec, nil
}

// CountEmails returns the number of stored emails
func (db *DB) CountEmails(ctx context.Context) (int, error) {
	var n int
	if err := db.GetContext(ctx, &n, db.expand(`SELECT COUNT(*) FROM {emails}`)); err != nil {
		return 0, fmt.Errorf("failed to count emails: %w", err)
	}
	return n, nil
}
