package models

import "time"

// EmailRecord is a classified plain-content message as stored in the document sink
type EmailRecord struct {
	ID         string    `db:"id"`          // Provider message id
	Subject    string    `db:"subject"`     // Email subject
	Body       string    `db:"body"`        // Body normalized to markdown text
	ReceivedAt time.Time `db:"received_at"` // Received time, UTC
	FromAddr   string    `db:"from_addr"`   // Sender address
	Category   string    `db:"category"`    // Category tag that routed the message
	CreatedAt  time.Time `db:"created_at"`
}
