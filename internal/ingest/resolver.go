package ingest

import (
	"context"
	"fmt"
	"time"

	"github.com/mixelka/mailhook/internal/graph"
	"github.com/mixelka/mailhook/pkg/models"
)

// MailAPI is the part of the remote API the pipeline reads from
type MailAPI interface {
	GetMessage(ctx context.Context, resource string) (*graph.Message, error)
	ListAttachments(ctx context.Context, messageID string) (*graph.AttachmentSet, error)
	FolderIDByName(ctx context.Context, name string) (string, error)
	ListMessages(ctx context.Context, folderID string, start, end time.Time, categories []string) ([]graph.Message, error)
}

// Resolved is a notification resource fetched from the remote API. Attachments
// is only set for messages routed to the attachment branch.
type Resolved struct {
	Message     *graph.Message
	Attachments *graph.AttachmentSet
	Category    models.Category
}

// Resolver turns notification resource paths into full messages
type Resolver struct {
	api        MailAPI
	classifier *Classifier
}

// NewResolver creates a new resolver
func NewResolver(api MailAPI, classifier *Classifier) *Resolver {
	return &Resolver{api: api, classifier: classifier}
}

// Resolve fetches the message a resource path points at, plus its attachments
// when the message belongs to the attachment category
func (r *Resolver) Resolve(ctx context.Context, resource string) (*Resolved, error) {
	msg, err := r.api.GetMessage(ctx, resource)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s: %w", resource, err)
	}
	return r.complete(ctx, msg)
}

// complete fetches what the message's category needs beyond the message itself
func (r *Resolver) complete(ctx context.Context, msg *graph.Message) (*Resolved, error) {
	res := &Resolved{Message: msg, Category: r.classifier.Category(msg)}
	if res.Category != models.CategoryAttachment {
		return res, nil
	}

	set, err := r.api.ListAttachments(ctx, msg.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list attachments of %s: %w", msg.ID, err)
	}
	res.Attachments = set
	return res, nil
}
