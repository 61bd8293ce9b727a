package graph

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const messageFields = "id,subject,body,bodyPreview,receivedDateTime,from,categories,hasAttachments,parentFolderId"

// ListFolders returns the top-level mail folders of the signed-in user
func (c *Client) ListFolders(ctx context.Context) ([]Folder, error) {
	return listAll[Folder](ctx, c, "me/mailFolders", url.Values{"$top": {"100"}})
}

// FolderIDByName returns the id of the folder with the given display name
func (c *Client) FolderIDByName(ctx context.Context, name string) (string, error) {
	folders, err := c.ListFolders(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to list folders: %w", err)
	}

	for _, f := range folders {
		if f.DisplayName == name {
			return f.ID, nil
		}
	}

	return "", &ConfigurationError{What: fmt.Sprintf("folder %q", name), Err: ErrFolderNotFound}
}

// GetMessage fetches the message a notification resource path points at
func (c *Client) GetMessage(ctx context.Context, resource string) (*Message, error) {
	resource = strings.TrimLeft(strings.TrimSpace(resource), "/")
	if resource == "" {
		return nil, fmt.Errorf("empty resource path")
	}

	var msg Message
	if err := c.do(ctx, http.MethodGet, resource, url.Values{"$select": {messageFields}}, nil, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// ListAttachments returns the attachments of a message, content included
func (c *Client) ListAttachments(ctx context.Context, messageID string) (*AttachmentSet, error) {
	items, err := listAll[Attachment](ctx, c, "me/messages/"+url.PathEscape(messageID)+"/attachments", nil)
	if err != nil {
		return nil, err
	}
	return &AttachmentSet{MessageID: messageID, Items: items}, nil
}

// ListMessages returns messages of a folder received in [start, end), newest
// first. When categories is non-empty only messages tagged with one of them
// are returned.
func (c *Client) ListMessages(ctx context.Context, folderID string, start, end time.Time, categories []string) ([]Message, error) {
	query := url.Values{
		"$select":  {messageFields},
		"$orderby": {"receivedDateTime desc"},
		"$top":     {"50"},
		"$filter":  {MessageFilter(start, end, categories)},
	}
	return listAll[Message](ctx, c, "me/mailFolders/"+url.PathEscape(folderID)+"/messages", query)
}

// MessageFilter builds the OData filter used by ListMessages
func MessageFilter(start, end time.Time, categories []string) string {
	filter := fmt.Sprintf("receivedDateTime ge %s and receivedDateTime lt %s", FormatTime(start), FormatTime(end))
	if len(categories) == 0 {
		return filter
	}

	clauses := make([]string, 0, len(categories))
	for _, cat := range categories {
		clauses = append(clauses, fmt.Sprintf("categories/any(c:c eq '%s')", strings.ReplaceAll(cat, "'", "''")))
	}
	return filter + " and (" + strings.Join(clauses, " or ") + ")"
}
