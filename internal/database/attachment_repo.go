package database

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mixelka/mailhook/pkg/models"
)

// InsertAttachments stores each payload's bytes in the blob table and a record
// referencing them, one payload at a time. Payloads whose id is already stored
// are skipped. Returns the number of new records.
func (db *DB) InsertAttachments(ctx context.Context, payloads []models.AttachmentPayload) (int, error) {
	inserted := 0
	for _, p := range payloads {
		if p.ID == "" {
			continue
		}

		exists, err := db.AttachmentExists(ctx, p.ID)
		if err != nil {
			return inserted, newPersistenceError("insert attachments", inserted, []error{err})
		}
		if exists {
			continue
		}

		err = db.createAttachment(ctx, p)
		if errors.Is(err, ErrAlreadyExists) {
			continue
		}
		if err != nil {
			return inserted, newPersistenceError("insert attachments", inserted, []error{fmt.Errorf("attachment %s: %w", p.ID, err)})
		}
		inserted++
	}
	return inserted, nil
}

// AttachmentExists reports whether an attachment record with id is stored
func (db *DB) AttachmentExists(ctx context.Context, id string) (bool, error) {
	var n int
	query := db.Rebind(db.expand(`SELECT COUNT(*) FROM {attachments} WHERE id = ?`))
	if err := db.GetContext(ctx, &n, query, id); err != nil {
		return false, fmt.Errorf("failed to check attachment: %w", err)
	}
	return n > 0, nil
}

// createAttachment writes the blob and the record in one transaction. When a
// concurrent delivery stored the same id first, the transaction is rolled back
// and ErrAlreadyExists is returned.
func (db *DB) createAttachment(ctx context.Context, p models.AttachmentPayload) error {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	sum := sha256.Sum256(p.Content)
	blob := models.Blob{
		ID:           uuid.NewString(),
		SHA256:       hex.EncodeToString(sum[:]),
		AttachmentID: p.ID,
		Filename:     p.Filename,
		ContentType:  p.ContentType,
		Size:         int64(len(p.Content)),
		Data:         p.Content,
		CreatedAt:    now,
	}
	if blob.Data == nil {
		blob.Data = []byte{}
	}

	_, err = tx.NamedExecContext(ctx, db.expand(`
		INSERT INTO {blobs} (id, sha256, attachment_id, filename, content_type, size, data, created_at)
		VALUES (:id, :sha256, :attachment_id, :filename, :content_type, :size, :data, :created_at)
	`), blob)
	if err != nil {
		return fmt.Errorf("failed to store blob: %w", err)
	}

	rec := models.AttachmentRecord{
		ID:          p.ID,
		MessageID:   p.MessageID,
		Filename:    p.Filename,
		ContentType: p.ContentType,
		ModifiedAt:  p.ModifiedAt.UTC(),
		BlobID:      blob.ID,
		Size:        blob.Size,
		CreatedAt:   now,
	}
	result, err := tx.NamedExecContext(ctx, db.expand(`
		INSERT INTO {attachments} (id, message_id, filename, content_type, modified_at, blob_id, size, created_at)
		VALUES (:id, :message_id, :filename, :content_type, :modified_at, :blob_id, :size, :created_at)
		ON CONFLICT (id) DO NOTHING
	`), rec)
	if err != nil {
		return fmt.Errorf("failed to store attachment: %w", err)
	}

	// Check if row was actually inserted (not ignored due to duplicate)
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrAlreadyExists
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit attachment: %w", err)
	}
	return nil
}

// GetAttachment returns an attachment record by provider id
func (db *DB) GetAttachment(ctx context.Context, id string) (*models.AttachmentRecord, error) {
	var rec models.AttachmentRecord
	query := db.Rebind(db.expand(`SELECT * FROM {attachments} WHERE id = ?`))
	err := db.GetContext(ctx, &rec, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get attachment: %w", err)
	}
	return &rec, nil
}

// GetBlob returns a stored attachment body by blob id
func (db *DB) GetBlob(ctx context.Context, id string) (*models.Blob, error) {
	var blob models.Blob
	query := db.Rebind(db.expand(`SELECT * FROM {blobs} WHERE id = ?`))
	err := db.GetContext(ctx, &blob, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get blob: %w", err)
	}
	return &blob, nil
}

// CountBlobs returns the number of stored blobs
func (db *DB) CountBlobs(ctx context.Context) (int, error) {
	var n int
	if err := db.GetContext(ctx, &n, db.expand(`SELECT COUNT(*) FROM {blobs}`)); err != nil {
		return 0, fmt.Errorf("failed to count blobs: %w", err)
	}
	return n, nil
}
