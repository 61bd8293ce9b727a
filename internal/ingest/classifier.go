package ingest

import (
	"encoding/base64"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mixelka/mailhook/internal/graph"
	"github.com/mixelka/mailhook/internal/parser"
	"github.com/mixelka/mailhook/pkg/models"
)

// Classified is the outcome of classifying one resolved message. At most one of
// Email and Attachment is set; both are nil when the message is skipped.
type Classified struct {
	Category   models.Category
	Email      *models.EmailRecord
	Attachment *models.AttachmentPayload
}

// Classifier routes messages by category tag and builds the records to store
type Classifier struct {
	plainTag      string
	attachmentTag string
	html          *parser.HTMLParser
	logger        *slog.Logger
}

// NewClassifier creates a classifier for the two configured category tags
func NewClassifier(plainTag, attachmentTag string, logger *slog.Logger) *Classifier {
	return &Classifier{
		plainTag:      plainTag,
		attachmentTag: attachmentTag,
		html:          parser.NewHTMLParser(),
		logger:        logger.With("component", "classifier"),
	}
}

// Tags returns the configured category tags
func (c *Classifier) Tags() []string {
	return []string{c.plainTag, c.attachmentTag}
}

// Category returns the branch for msg. The first tag on the message that
// matches a configured tag wins.
func (c *Classifier) Category(msg *graph.Message) models.Category {
	for _, tag := range msg.Categories {
		switch {
		case strings.EqualFold(tag, c.plainTag):
			return models.CategoryPlain
		case strings.EqualFold(tag, c.attachmentTag):
			return models.CategoryAttachment
		}
	}
	return models.CategoryUnclassified
}

// Classify builds the record for a resolved message
func (c *Classifier) Classify(res *Resolved) (*Classified, error) {
	out := &Classified{Category: res.Category}

	switch res.Category {
	case models.CategoryPlain:
		rec, err := c.emailRecord(res.Message)
		if err != nil {
			return nil, err
		}
		out.Email = rec

	case models.CategoryAttachment:
		payload, err := c.attachmentPayload(res.Message, res.Attachments)
		if err != nil {
			return nil, err
		}
		out.Attachment = payload

	default:
		c.logger.Info("skipping unclassified message",
			"message_id", res.Message.ID,
			"categories", res.Message.Categories,
		)
	}

	return out, nil
}

func (c *Classifier) emailRecord(msg *graph.Message) (*models.EmailRecord, error) {
	received, err := graph.ParseTime(msg.ReceivedDateTime)
	if err != nil {
		return nil, fmt.Errorf("message %s: %w", msg.ID, err)
	}

	// Parse HTML to text
	body := msg.Body.Content
	if strings.EqualFold(msg.Body.ContentType, "html") {
		parsed, err := c.html.Parse(body)
		if err != nil {
			c.logger.Warn("failed to parse HTML", "error", err, "message_id", msg.ID)
		} else {
			body = parsed
		}
	}

	return &models.EmailRecord{
		ID:         msg.ID,
		Subject:    msg.Subject,
		Body:       body,
		ReceivedAt: received,
		FromAddr:   msg.From.EmailAddress.Address,
		Category:   c.plainTag,
	}, nil
}

// attachmentPayload decodes the first attachment of the message. Later
// attachments are not processed.
func (c *Classifier) attachmentPayload(msg *graph.Message, set *graph.AttachmentSet) (*models.AttachmentPayload, error) {
	if set == nil || len(set.Items) == 0 {
		c.logger.Info("attachment message has no attachments", "message_id", msg.ID)
		return nil, nil
	}
	if len(set.Items) > 1 {
		c.logger.Warn("message has more than one attachment, only the first is stored",
			"message_id", msg.ID,
			"count", len(set.Items),
		)
	}

	att := set.Items[0]
	if att.ODataType != "" && att.ODataType != graph.FileAttachmentType {
		c.logger.Warn("skipping non-file attachment", "message_id", msg.ID, "type", att.ODataType)
		return nil, nil
	}

	content, err := base64.StdEncoding.DecodeString(att.ContentBytes)
	if err != nil {
		return nil, fmt.Errorf("attachment %s: failed to decode content: %w", att.ID, err)
	}

	modified, err := graph.ParseTime(att.LastModifiedDateTime)
	if err != nil {
		return nil, fmt.Errorf("attachment %s: %w", att.ID, err)
	}

	return &models.AttachmentPayload{
		ID:          att.ID,
		MessageID:   msg.ID,
		Filename:    att.Name,
		ContentType: att.ContentType,
		ModifiedAt:  modified,
		Content:     content,
	}, nil
}
