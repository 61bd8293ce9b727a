package models

import "time"

// AttachmentRecord is the stored metadata of an attachment; the bytes live in the blob sink
type AttachmentRecord struct {
	ID          string    `db:"id"`           // Provider attachment id
	MessageID   string    `db:"message_id"`   // Provider id of the owning message
	Filename    string    `db:"filename"`     // Attachment file name
	ContentType string    `db:"content_type"` // MIME type
	ModifiedAt  time.Time `db:"modified_at"`  // Last modified time, UTC
	BlobID      string    `db:"blob_id"`      // Reference into the blob sink
	Size        int64     `db:"size"`         // Decoded size in bytes
	CreatedAt   time.Time `db:"created_at"`
}

// AttachmentPayload is a classified attachment whose content is still held in memory
type AttachmentPayload struct {
	ID          string
	MessageID   string
	Filename    string
	ContentType string
	ModifiedAt  time.Time
	Content     []byte
}

// Blob is a stored attachment body
type Blob struct {
	ID           string    `db:"id"`
	SHA256       string    `db:"sha256"`
	AttachmentID string    `db:"attachment_id"`
	Filename     string    `db:"filename"`
	ContentType  string    `db:"content_type"`
	Size         int64     `db:"size"`
	Data         []byte    `db:"data"`
	CreatedAt    time.Time `db:"created_at"`
}
