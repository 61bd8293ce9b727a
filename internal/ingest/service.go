package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/mixelka/mailhook/internal/graph"
	"github.com/mixelka/mailhook/pkg/models"
)

// Store is the persistence side of the pipeline
type Store interface {
	InsertEmails(ctx context.Context, records []models.EmailRecord) (int, error)
	InsertAttachments(ctx context.Context, payloads []models.AttachmentPayload) (int, error)
}

// Result counts what one batch stored
type Result struct {
	Emails      int // new email records
	Attachments int // new attachment records
	Skipped     int // envelopes or messages that produced nothing to store
}

// Saved returns the number of newly stored records
func (r Result) Saved() int {
	return r.Emails + r.Attachments
}

// Service drives resolve -> classify -> persist
type Service struct {
	api         MailAPI
	resolver    *Resolver
	classifier  *Classifier
	store       Store
	clientState string
	logger      *slog.Logger
}

// NewService creates a new ingestion service. An empty clientState disables
// the envelope check.
func NewService(api MailAPI, classifier *Classifier, store Store, clientState string, logger *slog.Logger) *Service {
	return &Service{
		api:         api,
		resolver:    NewResolver(api, classifier),
		classifier:  classifier,
		store:       store,
		clientState: clientState,
		logger:      logger.With("component", "ingest"),
	}
}

// HandleBatch processes one webhook delivery. Envelopes are resolved one after
// another; on error the returned Result holds what was stored so far.
func (s *Service) HandleBatch(ctx context.Context, notes []models.Notification) (Result, error) {
	var res Result
	var emails []models.EmailRecord
	var attachments []models.AttachmentPayload

	for _, note := range notes {
		if s.clientState != "" && note.ClientState != s.clientState {
			s.logger.Warn("dropping notification with unexpected client state",
				"subscription_id", note.SubscriptionID,
			)
			res.Skipped++
			continue
		}
		if note.Resource == "" {
			s.logger.Warn("dropping notification without resource", "subscription_id", note.SubscriptionID)
			res.Skipped++
			continue
		}

		resolved, err := s.resolver.Resolve(ctx, note.Resource)
		if err != nil {
			return res, err
		}

		classified, err := s.classifier.Classify(resolved)
		if err != nil {
			return res, err
		}
		emails, attachments = collect(classified, emails, attachments, &res)
	}

	return s.persist(ctx, emails, attachments, res)
}

// Backfill stores messages of a folder received in [start, end) that carry
// one of the configured category tags
func (s *Service) Backfill(ctx context.Context, folder string, start, end time.Time) (Result, error) {
	var res Result

	folderID, err := s.api.FolderIDByName(ctx, folder)
	if err != nil {
		return res, err
	}

	msgs, err := s.api.ListMessages(ctx, folderID, start, end, s.classifier.Tags())
	if err != nil {
		return res, fmt.Errorf("failed to list messages of %s: %w", folder, err)
	}

	s.logger.Info("backfilling folder",
		"folder", folder,
		"since", graph.FormatTime(start),
		"until", graph.FormatTime(end),
		"messages", len(msgs),
	)

	var emails []models.EmailRecord
	var attachments []models.AttachmentPayload
	for i := range msgs {
		resolved, err := s.resolver.complete(ctx, &msgs[i])
		if err != nil {
			return res, err
		}

		classified, err := s.classifier.Classify(resolved)
		if err != nil {
			return res, err
		}
		emails, attachments = collect(classified, emails, attachments, &res)
	}

	return s.persist(ctx, emails, attachments, res)
}

func collect(c *Classified, emails []models.EmailRecord, attachments []models.AttachmentPayload, res *Result) ([]models.EmailRecord, []models.AttachmentPayload) {
	switch {
	case c.Email != nil:
		emails = append(emails, *c.Email)
	case c.Attachment != nil:
		attachments = append(attachments, *c.Attachment)
	default:
		res.Skipped++
	}
	return emails, attachments
}

// persist writes emails first, then attachments. A failing sink stops the
// call and the counts gathered so far are returned with the error.
func (s *Service) persist(ctx context.Context, emails []models.EmailRecord, attachments []models.AttachmentPayload, res Result) (Result, error) {
	n, err := s.store.InsertEmails(ctx, emails)
	res.Emails = n
	if err != nil {
		return res, err
	}

	n, err = s.store.InsertAttachments(ctx, attachments)
	res.Attachments = n
	if err != nil {
		return res, err
	}

	s.logger.Info("batch stored",
		"emails", res.Emails,
		"attachments", res.Attachments,
		"duplicates", len(emails)+len(attachments)-res.Saved(),
		"skipped", res.Skipped,
	)
	return res, nil
}
